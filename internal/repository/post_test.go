package repository

import (
	"context"
	"regexp"
	"testing"
	"time"

	"catspot/internal/models"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPostRepository_Create(t *testing.T) {
	db, mock := setupMockDB(t)
	repo := NewPostRepository(db)

	post := &models.Post{UserID: aliceID, Caption: "orange tabby", ImageURL: "https://cdn.test/Images/a.jpg"}

	mock.ExpectBegin()
	mock.ExpectQuery(regexp.QuoteMeta(`INSERT INTO "posts"`)).
		WillReturnRows(sqlmock.NewRows([]string{"post_id"}).AddRow(1))
	mock.ExpectCommit()

	require.NoError(t, repo.Create(context.Background(), post))
	assert.Equal(t, uint(1), post.ID)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostRepository_ListTimeline(t *testing.T) {
	db := setupSQLiteDB(t)
	repo := NewPostRepository(db)
	ctx := context.Background()

	seedProfile(t, db, aliceID, strPtr("Alice"))
	seedProfile(t, db, bobID, strPtr(""))
	older := seedPost(t, db, aliceID, baseTime)
	newer := seedPost(t, db, bobID, baseTime.Add(time.Hour))
	orphan := seedPost(t, db, carolID, baseTime.Add(2*time.Hour))

	require.NoError(t, repo.Like(ctx, older.ID, bobID))
	require.NoError(t, repo.Like(ctx, older.ID, carolID))
	seedComment(t, db, older.ID, bobID, "cute", baseTime)

	posts, err := repo.ListTimeline(ctx, 0)
	require.NoError(t, err)
	require.Len(t, posts, 3)

	assert.Equal(t, []uint{orphan.ID, newer.ID, older.ID}, []uint{posts[0].ID, posts[1].ID, posts[2].ID}, "newest first")
	assert.Nil(t, posts[0].Author)
	require.NotNil(t, posts[1].Author)
	assert.Equal(t, models.DefaultPostAuthorName, posts[1].Author.Name)
	assert.Equal(t, "Alice", posts[2].Author.Name)
	assert.Equal(t, 2, posts[2].LikeCount)
	assert.Equal(t, 1, posts[2].CommentCount)

	limited, err := repo.ListTimeline(ctx, 1)
	require.NoError(t, err)
	assert.Len(t, limited, 1)
}

func TestPostRepository_GetView(t *testing.T) {
	db := setupSQLiteDB(t)
	repo := NewPostRepository(db)
	ctx := context.Background()

	post := seedPost(t, db, aliceID, baseTime)

	v, err := repo.GetView(ctx, post.ID)
	require.NoError(t, err)
	assert.Equal(t, post.Caption, v.Caption)
	assert.False(t, v.IsLiked)

	_, err = repo.GetView(ctx, 4242)
	var appErr *models.AppError
	require.ErrorAs(t, err, &appErr)
	assert.Equal(t, models.CodeNotFound, appErr.Code)
}

func TestPostRepository_LikeUnlike(t *testing.T) {
	db := setupSQLiteDB(t)
	repo := NewPostRepository(db)
	ctx := context.Background()

	post := seedPost(t, db, aliceID, baseTime)

	require.NoError(t, repo.Like(ctx, post.ID, bobID))
	err := repo.Like(ctx, post.ID, bobID)
	assert.ErrorIs(t, err, ErrDuplicateReaction)

	liked, err := repo.LikedPostIDs(ctx, bobID, []uint{post.ID, 77})
	require.NoError(t, err)
	assert.Equal(t, []uint{post.ID}, liked)

	require.NoError(t, repo.Unlike(ctx, post.ID, bobID))
	liked, err = repo.LikedPostIDs(ctx, bobID, []uint{post.ID})
	require.NoError(t, err)
	assert.Empty(t, liked)
}

func TestPostRepository_ListMapPins(t *testing.T) {
	db := setupSQLiteDB(t)
	repo := NewPostRepository(db)

	lat, lng := 35.662186, 139.634098
	located := &models.Post{UserID: aliceID, ImageURL: "https://cdn.test/Images/m.jpg", Latitude: &lat, Longitude: &lng, CreatedAt: baseTime}
	require.NoError(t, db.Create(located).Error)
	seedPost(t, db, aliceID, baseTime)

	pins, err := repo.ListMapPins(context.Background())
	require.NoError(t, err)
	require.Len(t, pins, 1)
	assert.Equal(t, located.ID, pins[0].ID)
	assert.InDelta(t, lat, pins[0].Latitude, 1e-9)
	assert.InDelta(t, lng, pins[0].Longitude, 1e-9)
}

func TestPostRepository_DeleteWithChildren(t *testing.T) {
	db := setupSQLiteDB(t)
	repo := NewPostRepository(db)
	ctx := context.Background()

	post := seedPost(t, db, aliceID, baseTime)
	keep := seedPost(t, db, aliceID, baseTime)
	c := seedComment(t, db, post.ID, bobID, "bye", baseTime)
	kept := seedComment(t, db, keep.ID, bobID, "stay", baseTime)
	require.NoError(t, db.Create(&models.CommentFavorite{CommentID: c.ID, UserID: aliceID}).Error)
	require.NoError(t, db.Create(&models.CommentFavorite{CommentID: kept.ID, UserID: aliceID}).Error)
	require.NoError(t, repo.Like(ctx, post.ID, bobID))

	require.NoError(t, repo.DeleteWithChildren(ctx, post.ID))

	count := func(model interface{}, where string, args ...interface{}) int64 {
		var n int64
		require.NoError(t, db.Model(model).Where(where, args...).Count(&n).Error)
		return n
	}
	assert.Zero(t, count(&models.Post{}, "post_id = ?", post.ID))
	assert.Zero(t, count(&models.Comment{}, "post_id = ?", post.ID))
	assert.Zero(t, count(&models.Favorite{}, "post_id = ?", post.ID))
	assert.Zero(t, count(&models.CommentFavorite{}, "comment_id = ?", c.ID))
	assert.Equal(t, int64(1), count(&models.CommentFavorite{}, "comment_id = ?", kept.ID))

	err := repo.DeleteWithChildren(ctx, post.ID)
	var appErr *models.AppError
	require.ErrorAs(t, err, &appErr)
	assert.Equal(t, models.CodeNotFound, appErr.Code)
}

func TestPostRepository_Like_PgUniqueViolation(t *testing.T) {
	db, mock := setupMockDB(t)
	repo := NewPostRepository(db)

	mock.ExpectBegin()
	mock.ExpectExec(regexp.QuoteMeta(`INSERT INTO "favorites"`)).
		WillReturnError(&pgconn.PgError{Code: "23505", Message: `duplicate key value violates unique constraint "favorites_pkey"`})
	mock.ExpectRollback()

	err := repo.Like(context.Background(), 1, aliceID)
	assert.ErrorIs(t, err, ErrDuplicateReaction)
	assert.NoError(t, mock.ExpectationsWereMet())
}
