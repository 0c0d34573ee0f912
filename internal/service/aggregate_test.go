package service

import (
	"context"
	"errors"
	"testing"

	"catspot/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func sortFixture() []models.CommentView {
	return []models.CommentView{
		comment(1, 2, 0),
		comment(2, 5, 1),
		comment(3, 2, 5),
		comment(4, 0, 9),
		comment(5, 5, 1),
		comment(6, 2, 5),
	}
}

func ids(comments []models.CommentView) []uint {
	out := make([]uint, len(comments))
	for i, c := range comments {
		out[i] = c.ID
	}
	return out
}

func TestSortComments_Popular(t *testing.T) {
	t.Parallel()
	in := sortFixture()

	got := SortComments(in, SortPopular)

	// Equal likes and equal times keep fetch order.
	assert.Equal(t, []uint{2, 5, 3, 6, 1, 4}, ids(got))
	for i := 1; i < len(got); i++ {
		a, b := got[i-1], got[i]
		ok := a.LikeCount > b.LikeCount ||
			(a.LikeCount == b.LikeCount && !a.CreatedAt.Before(b.CreatedAt))
		assert.Truef(t, ok, "%d must not precede %d", a.ID, b.ID)
	}
}

func TestSortComments_New(t *testing.T) {
	t.Parallel()

	got := SortComments(sortFixture(), SortNew)

	assert.Equal(t, []uint{4, 3, 6, 2, 5, 1}, ids(got))
	for i := 1; i < len(got); i++ {
		assert.False(t, got[i-1].CreatedAt.Before(got[i].CreatedAt))
	}
}

func TestSortComments_IsPureAndDeterministic(t *testing.T) {
	t.Parallel()
	in := sortFixture()
	before := ids(in)

	for _, mode := range []SortMode{SortPopular, SortNew} {
		first := SortComments(in, mode)
		second := SortComments(in, mode)
		assert.Equal(t, first, second)
	}
	assert.Equal(t, before, ids(in), "input must not be reordered")
}

func TestSortComments_Empty(t *testing.T) {
	t.Parallel()
	assert.Empty(t, SortComments(nil, SortPopular))
}

func TestParseSortMode(t *testing.T) {
	t.Parallel()
	assert.Equal(t, SortNew, ParseSortMode("new"))
	assert.Equal(t, SortPopular, ParseSortMode("popular"))
	assert.Equal(t, SortPopular, ParseSortMode(""))
	assert.Equal(t, SortPopular, ParseSortMode("oldest"))
}

func TestAggregateComments(t *testing.T) {
	t.Parallel()

	t.Run("anonymous skips liked lookup", func(t *testing.T) {
		repo := noopCommentRepo()
		repo.listByPostFn = func(context.Context, uint) ([]models.CommentView, error) {
			return []models.CommentView{comment(1, 1, 0)}, nil
		}

		got, err := AggregateComments(context.Background(), repo, 1, models.Anonymous{})
		require.NoError(t, err)
		assert.Len(t, got, 1)
		assert.False(t, got[0].IsLiked)
		assert.Zero(t, repo.called("LikedCommentIDs"))
	})

	t.Run("stamps liked comments", func(t *testing.T) {
		repo := noopCommentRepo()
		repo.listByPostFn = func(context.Context, uint) ([]models.CommentView, error) {
			return []models.CommentView{comment(1, 1, 0), comment(2, 0, 1), comment(3, 4, 2)}, nil
		}
		repo.likedCommentIDsFn = func(_ context.Context, viewerID string, ids []uint) ([]uint, error) {
			assert.Equal(t, aliceID, viewerID)
			assert.Equal(t, []uint{1, 2, 3}, ids)
			return []uint{1, 3}, nil
		}

		got, err := AggregateComments(context.Background(), repo, 1, alice())
		require.NoError(t, err)
		assert.True(t, got[0].IsLiked)
		assert.False(t, got[1].IsLiked)
		assert.True(t, got[2].IsLiked)
	})

	t.Run("base failure is returned", func(t *testing.T) {
		repo := noopCommentRepo()
		repo.listByPostFn = func(context.Context, uint) ([]models.CommentView, error) {
			return nil, errors.New("query failed")
		}

		got, err := AggregateComments(context.Background(), repo, 1, alice())
		assert.Error(t, err)
		assert.Nil(t, got)
	})
}

func TestApplyAndRevertReaction(t *testing.T) {
	t.Parallel()

	liked, count := false, 3
	delta := applyReaction(&liked, &count, true)
	assert.Equal(t, 1, delta)
	assert.True(t, liked)
	assert.Equal(t, 4, count)
	revertReaction(&liked, &count, false, delta)
	assert.False(t, liked)
	assert.Equal(t, 3, count)

	// Unliking at zero never goes negative and reverts to zero.
	liked, count = true, 0
	delta = applyReaction(&liked, &count, false)
	assert.Equal(t, 0, delta)
	assert.Equal(t, 0, count)
	revertReaction(&liked, &count, true, delta)
	assert.True(t, liked)
	assert.Equal(t, 0, count)
}
