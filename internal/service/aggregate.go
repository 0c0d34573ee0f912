// Package service holds the comment and post aggregation logic and the
// optimistic mutation commands used by HTTP handlers and live panels.
package service

import (
	"cmp"
	"context"
	"log/slog"
	"slices"

	"catspot/internal/models"
	"catspot/internal/observability"
	"catspot/internal/repository"
)

// SortMode selects the user-facing order of a comment list.
type SortMode string

const (
	SortPopular SortMode = "popular"
	SortNew     SortMode = "new"
)

// ParseSortMode maps a query value to a SortMode. Anything unknown is popular.
func ParseSortMode(s string) SortMode {
	if SortMode(s) == SortNew {
		return SortNew
	}
	return SortPopular
}

// SortComments returns a sorted copy of comments and never mutates its input.
// New orders by creation time, newest first. Popular orders by like count and
// then by creation time, both descending. The sort is stable, so rows that
// compare equal keep their fetch order.
func SortComments(comments []models.CommentView, mode SortMode) []models.CommentView {
	out := slices.Clone(comments)
	byNewest := func(a, b models.CommentView) int {
		return b.CreatedAt.Compare(a.CreatedAt)
	}
	if mode == SortNew {
		slices.SortStableFunc(out, byNewest)
		return out
	}
	slices.SortStableFunc(out, func(a, b models.CommentView) int {
		if c := cmp.Compare(b.LikeCount, a.LikeCount); c != 0 {
			return c
		}
		return byNewest(a, b)
	})
	return out
}

// AggregateComments loads a post's comments oldest first and marks the ones
// the viewer liked. A failed liked lookup is logged and leaves every comment
// unliked; only the base fetch can fail.
func AggregateComments(ctx context.Context, repo repository.CommentRepository, postID uint, viewer models.Viewer) ([]models.CommentView, error) {
	comments, err := repo.ListByPost(ctx, postID)
	if err != nil {
		observability.FetchFailures.WithLabelValues("comment").Inc()
		return nil, err
	}
	for i := range comments {
		comments[i].IsLiked = false
	}

	viewerID, ok := models.ViewerID(viewer)
	if !ok || len(comments) == 0 {
		return comments, nil
	}

	ids := make([]uint, len(comments))
	for i, c := range comments {
		ids[i] = c.ID
	}
	liked, err := repo.LikedCommentIDs(ctx, viewerID, ids)
	if err != nil {
		observability.EnrichmentFailures.WithLabelValues("comment").Inc()
		observability.GlobalLogger.WarnContext(ctx, "comment liked lookup failed",
			slog.Uint64("post_id", uint64(postID)),
			slog.String("error", err.Error()),
		)
		return comments, nil
	}

	set := idSet(liked)
	for i := range comments {
		_, comments[i].IsLiked = set[comments[i].ID]
	}
	return comments, nil
}

// MarkLikedPosts stamps IsLiked on posts the viewer liked. Errors are returned
// so the caller decides whether they are fatal; posts are left untouched then.
func MarkLikedPosts(ctx context.Context, repo repository.PostRepository, posts []models.PostView, viewer models.Viewer) error {
	for i := range posts {
		posts[i].IsLiked = false
	}
	viewerID, ok := models.ViewerID(viewer)
	if !ok || len(posts) == 0 {
		return nil
	}

	ids := make([]uint, len(posts))
	for i, p := range posts {
		ids[i] = p.ID
	}
	liked, err := repo.LikedPostIDs(ctx, viewerID, ids)
	if err != nil {
		observability.EnrichmentFailures.WithLabelValues("post").Inc()
		return err
	}

	set := idSet(liked)
	for i := range posts {
		_, posts[i].IsLiked = set[posts[i].ID]
	}
	return nil
}

func idSet(ids []uint) map[uint]struct{} {
	set := make(map[uint]struct{}, len(ids))
	for _, id := range ids {
		set[id] = struct{}{}
	}
	return set
}

// applyReaction flips the liked flag to liked and moves count by one. It
// returns the delta actually applied so a rollback can undo exactly that.
// Counts never go below zero.
func applyReaction(isLiked *bool, count *int, liked bool) int {
	*isLiked = liked
	if liked {
		*count++
		return 1
	}
	if *count > 0 {
		*count--
		return -1
	}
	return 0
}

func revertReaction(isLiked *bool, count *int, wasLiked bool, delta int) {
	*isLiked = wasLiked
	*count -= delta
	if *count < 0 {
		*count = 0
	}
}

func direction(liked bool) string {
	if liked {
		return "like"
	}
	return "unlike"
}
