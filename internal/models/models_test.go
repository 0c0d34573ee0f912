package models

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http/httptest"
	"testing"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestViewerID(t *testing.T) {
	id, ok := ViewerID(Authenticated{ID: "u-1"})
	assert.True(t, ok)
	assert.Equal(t, "u-1", id)

	_, ok = ViewerID(Anonymous{})
	assert.False(t, ok)

	_, ok = ViewerID(Authenticated{})
	assert.False(t, ok, "an empty id is not a session")

	_, ok = ViewerID(nil)
	assert.False(t, ok)
}

func TestNewAuthor(t *testing.T) {
	name := "Tama"
	empty := ""
	avatar := "https://cdn.test/a.png"

	assert.Nil(t, NewAuthor(nil, nil, false, DefaultCommentAuthorName))

	a := NewAuthor(&name, &avatar, true, DefaultCommentAuthorName)
	require.NotNil(t, a)
	assert.Equal(t, "Tama", a.Name)
	assert.Equal(t, &avatar, a.AvatarURL)

	assert.Equal(t, DefaultCommentAuthorName, NewAuthor(nil, nil, true, DefaultCommentAuthorName).Name)
	assert.Equal(t, DefaultPostAuthorName, NewAuthor(&empty, nil, true, DefaultPostAuthorName).Name)
}

func TestStatusFor(t *testing.T) {
	tests := []struct {
		err    error
		status int
	}{
		{NewNotFoundError("Post", 1), fiber.StatusNotFound},
		{NewValidationError("bad"), fiber.StatusBadRequest},
		{NewUnauthorizedError("no"), fiber.StatusUnauthorized},
		{NewForbiddenError("no"), fiber.StatusForbidden},
		{NewConflictError("dup", nil), fiber.StatusConflict},
		{NewInternalError(errors.New("boom")), fiber.StatusInternalServerError},
		{fmt.Errorf("wrapped: %w", NewForbiddenError("no")), fiber.StatusForbidden},
		{errors.New("plain"), fiber.StatusInternalServerError},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.status, StatusFor(tt.err), tt.err.Error())
	}
}

func TestRespondWithError_HidesInternalCause(t *testing.T) {
	app := fiber.New()
	app.Get("/internal", func(c *fiber.Ctx) error {
		return RespondWithError(c, fiber.StatusInternalServerError, NewInternalError(errors.New("pq: relation does not exist")))
	})
	app.Get("/conflict", func(c *fiber.Ctx) error {
		return RespondWithError(c, fiber.StatusConflict, NewConflictError("already liked", errors.New("duplicate")))
	})

	resp, err := app.Test(httptest.NewRequest("GET", "/internal", nil))
	require.NoError(t, err)
	body, _ := io.ReadAll(resp.Body)
	var out ErrorResponse
	require.NoError(t, json.Unmarshal(body, &out))
	assert.Equal(t, CodeInternal, out.Code)
	assert.Empty(t, out.Details)
	assert.NotContains(t, string(body), "relation")

	resp, err = app.Test(httptest.NewRequest("GET", "/conflict", nil))
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusConflict, resp.StatusCode)
	body, _ = io.ReadAll(resp.Body)
	require.NoError(t, json.Unmarshal(body, &out))
	assert.Equal(t, "duplicate", out.Details)
}
