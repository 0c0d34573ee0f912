package server

import (
	"encoding/json"
	"net/http"
	"strings"
	"testing"

	"catspot/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMyProfile(t *testing.T) {
	env := setupTestServer(t, nil)

	status, _ := env.do(t, http.MethodGet, "/api/users/me", "", nil)
	assert.Equal(t, http.StatusUnauthorized, status)

	t.Run("missing row reads as an empty profile", func(t *testing.T) {
		status, body := env.do(t, http.MethodGet, "/api/users/me", aliceID, nil)
		require.Equal(t, http.StatusOK, status)

		var profile models.Profile
		require.NoError(t, json.Unmarshal(body, &profile))
		assert.Equal(t, aliceID, profile.ID)
		assert.Nil(t, profile.Name)
	})

	t.Run("update creates then renames", func(t *testing.T) {
		status, body := env.do(t, http.MethodPut, "/api/users/me", aliceID, map[string]string{"name": " みけ "})
		require.Equal(t, http.StatusOK, status, string(body))

		status, body = env.do(t, http.MethodPut, "/api/users/me", aliceID, map[string]string{"name": "tama"})
		require.Equal(t, http.StatusOK, status, string(body))

		status, body = env.do(t, http.MethodGet, "/api/users/me", aliceID, nil)
		require.Equal(t, http.StatusOK, status)
		var profile models.Profile
		require.NoError(t, json.Unmarshal(body, &profile))
		require.NotNil(t, profile.Name)
		assert.Equal(t, "tama", *profile.Name)

		var rows int64
		require.NoError(t, env.db.Model(&models.Profile{}).Count(&rows).Error)
		assert.Equal(t, int64(1), rows)
	})

	t.Run("invalid names are rejected", func(t *testing.T) {
		for _, name := range []string{"", "   ", strings.Repeat("a", 51)} {
			status, _ := env.do(t, http.MethodPut, "/api/users/me", aliceID, map[string]string{"name": name})
			assert.Equal(t, http.StatusBadRequest, status, "name %q", name)
		}
	})
}
