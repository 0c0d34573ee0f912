package server

import (
	"encoding/json"
	"net/http"
	"strconv"
	"strings"
	"testing"
	"time"

	"catspot/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func commentIDs(views []models.CommentView) []uint {
	ids := make([]uint, len(views))
	for i, v := range views {
		ids[i] = v.ID
	}
	return ids
}

func TestGetComments_SortModes(t *testing.T) {
	env := setupTestServer(t, nil)
	post := env.seedPost(t, aliceID, baseTime)
	first := env.seedComment(t, post.ID, aliceID, "first", baseTime)
	second := env.seedComment(t, post.ID, bobID, "second", baseTime.Add(time.Minute))
	third := env.seedComment(t, post.ID, aliceID, "third", baseTime.Add(2*time.Minute))
	require.NoError(t, env.db.Create(&models.CommentFavorite{CommentID: first.ID, UserID: bobID}).Error)
	require.NoError(t, env.db.Create(&models.CommentFavorite{CommentID: first.ID, UserID: aliceID}).Error)
	require.NoError(t, env.db.Create(&models.CommentFavorite{CommentID: third.ID, UserID: bobID}).Error)

	base := "/api/posts/" + strconv.Itoa(int(post.ID)) + "/comments"

	t.Run("popular orders by likes then newest", func(t *testing.T) {
		status, body := env.do(t, http.MethodGet, base+"?sort=popular", bobID, nil)
		require.Equal(t, http.StatusOK, status)

		var views []models.CommentView
		require.NoError(t, json.Unmarshal(body, &views))
		assert.Equal(t, []uint{first.ID, third.ID, second.ID}, commentIDs(views))
		assert.Equal(t, 2, views[0].LikeCount)
		assert.True(t, views[0].IsLiked)
		assert.True(t, views[1].IsLiked)
		assert.False(t, views[2].IsLiked)
	})

	t.Run("new orders newest first", func(t *testing.T) {
		status, body := env.do(t, http.MethodGet, base+"?sort=new", "", nil)
		require.Equal(t, http.StatusOK, status)

		var views []models.CommentView
		require.NoError(t, json.Unmarshal(body, &views))
		assert.Equal(t, []uint{third.ID, second.ID, first.ID}, commentIDs(views))
		for _, v := range views {
			assert.False(t, v.IsLiked)
		}
	})

	t.Run("authors without a profile fall back", func(t *testing.T) {
		require.NoError(t, env.db.Create(&models.Profile{ID: aliceID}).Error)

		status, body := env.do(t, http.MethodGet, base+"?sort=new", "", nil)
		require.Equal(t, http.StatusOK, status)

		var views []models.CommentView
		require.NoError(t, json.Unmarshal(body, &views))
		require.NotNil(t, views[0].Author)
		assert.Equal(t, models.DefaultCommentAuthorName, views[0].Author.Name)
		assert.Nil(t, views[1].Author, "bob has no profile row")
	})
}

func TestCreateComment(t *testing.T) {
	env := setupTestServer(t, nil)
	post := env.seedPost(t, aliceID, baseTime)
	path := "/api/posts/" + strconv.Itoa(int(post.ID)) + "/comments"

	status, _ := env.do(t, http.MethodPost, path, "", map[string]string{"content": "hi"})
	assert.Equal(t, http.StatusUnauthorized, status)

	status, _ = env.do(t, http.MethodPost, path, bobID, map[string]string{"content": "   "})
	assert.Equal(t, http.StatusBadRequest, status)

	status, _ = env.do(t, http.MethodPost, path, bobID, map[string]string{"content": strings.Repeat("猫", 1001)})
	assert.Equal(t, http.StatusBadRequest, status)

	status, body := env.do(t, http.MethodPost, path, bobID, map[string]string{"content": "にゃー"})
	require.Equal(t, http.StatusCreated, status, string(body))
	var created models.Comment
	require.NoError(t, json.Unmarshal(body, &created))
	assert.Equal(t, "にゃー", created.Content)
	assert.Equal(t, bobID, created.UserID)

	status, _ = env.do(t, http.MethodPost, "/api/posts/9999/comments", bobID, map[string]string{"content": "lost"})
	assert.Equal(t, http.StatusNotFound, status)
}

func TestCommentLikes(t *testing.T) {
	env := setupTestServer(t, nil)
	post := env.seedPost(t, aliceID, baseTime)
	comment := env.seedComment(t, post.ID, aliceID, "look", baseTime)
	path := "/api/comments/" + strconv.Itoa(int(comment.ID)) + "/like"

	status, _ := env.do(t, http.MethodPut, path, bobID, nil)
	assert.Equal(t, http.StatusNoContent, status)
	status, _ = env.do(t, http.MethodPut, path, bobID, nil)
	assert.Equal(t, http.StatusConflict, status)

	status, _ = env.do(t, http.MethodDelete, path, bobID, nil)
	assert.Equal(t, http.StatusNoContent, status)

	var count int64
	require.NoError(t, env.db.Model(&models.CommentFavorite{}).Count(&count).Error)
	assert.Zero(t, count)
}

func TestDeleteComment(t *testing.T) {
	env := setupTestServer(t, nil)
	post := env.seedPost(t, aliceID, baseTime)
	comment := env.seedComment(t, post.ID, aliceID, "mine", baseTime)
	path := "/api/comments/" + strconv.Itoa(int(comment.ID))

	status, _ := env.do(t, http.MethodDelete, path, bobID, nil)
	assert.Equal(t, http.StatusForbidden, status)

	status, _ = env.do(t, http.MethodDelete, path, aliceID, nil)
	assert.Equal(t, http.StatusNoContent, status)

	var count int64
	require.NoError(t, env.db.Model(&models.Comment{}).Count(&count).Error)
	assert.Zero(t, count)
}
