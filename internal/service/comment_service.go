package service

import (
	"context"
	"errors"

	"catspot/internal/cache"
	"catspot/internal/models"
	"catspot/internal/observability"
	"catspot/internal/repository"
	"catspot/internal/validation"
)

// CommentService is the request/response counterpart of CommentPanel used by
// the REST handlers.
type CommentService struct {
	commentRepo repository.CommentRepository
	postRepo    repository.PostRepository
	publisher   ChangePublisher
}

func NewCommentService(
	commentRepo repository.CommentRepository,
	postRepo repository.PostRepository,
	publisher ChangePublisher,
) *CommentService {
	return &CommentService{
		commentRepo: commentRepo,
		postRepo:    postRepo,
		publisher:   publisherOrNop(publisher),
	}
}

// ListComments returns the post's comments in the requested order.
func (s *CommentService) ListComments(ctx context.Context, viewer models.Viewer, postID uint, mode SortMode) ([]models.CommentView, error) {
	comments, err := AggregateComments(ctx, s.commentRepo, postID, viewer)
	if err != nil {
		return nil, models.NewInternalError(err)
	}
	return SortComments(comments, mode), nil
}

// CreateComment stores a comment written by the viewer on an existing post.
func (s *CommentService) CreateComment(ctx context.Context, viewer models.Viewer, postID uint, content string) (*models.Comment, error) {
	viewerID, ok := models.ViewerID(viewer)
	if !ok {
		return nil, models.NewUnauthorizedError("Sign in to comment")
	}
	text, err := validation.Comment(content)
	if err != nil {
		return nil, models.NewValidationError(err.Error())
	}
	if _, err := s.postRepo.GetByID(ctx, postID); err != nil {
		return nil, err
	}

	comment := &models.Comment{PostID: postID, UserID: viewerID, Content: text}
	if err := s.commentRepo.Create(ctx, comment); err != nil {
		return nil, models.NewInternalError(err)
	}
	cache.InvalidatePost(ctx, postID)
	s.publisher.PublishCommentChange(ctx, "", postID, ChangeCommentCreated)
	s.publisher.PublishTimelineChange(ctx, "", postID, ChangeCommentCreated)
	return comment, nil
}

// LikeComment adds the viewer's like. Liking twice is a conflict.
func (s *CommentService) LikeComment(ctx context.Context, viewer models.Viewer, commentID uint) error {
	viewerID, ok := models.ViewerID(viewer)
	if !ok {
		return models.NewUnauthorizedError("Sign in to like comments")
	}
	comment, err := s.commentRepo.GetByID(ctx, commentID)
	if err != nil {
		return err
	}
	observability.ReactionToggles.WithLabelValues("comment", "like").Inc()
	if err := s.commentRepo.AddFavorite(ctx, commentID, viewerID); err != nil {
		if errors.Is(err, repository.ErrDuplicateReaction) {
			return models.NewConflictError("Comment already liked", err)
		}
		return models.NewInternalError(err)
	}
	s.publisher.PublishCommentChange(ctx, "", comment.PostID, ChangeCommentReaction)
	return nil
}

// UnlikeComment removes the viewer's like. Removing a missing like succeeds.
func (s *CommentService) UnlikeComment(ctx context.Context, viewer models.Viewer, commentID uint) error {
	viewerID, ok := models.ViewerID(viewer)
	if !ok {
		return models.NewUnauthorizedError("Sign in to like comments")
	}
	comment, err := s.commentRepo.GetByID(ctx, commentID)
	if err != nil {
		return err
	}
	observability.ReactionToggles.WithLabelValues("comment", "unlike").Inc()
	if err := s.commentRepo.RemoveFavorite(ctx, commentID, viewerID); err != nil {
		return models.NewInternalError(err)
	}
	s.publisher.PublishCommentChange(ctx, "", comment.PostID, ChangeCommentReaction)
	return nil
}

// DeleteComment deletes one of the viewer's own comments.
func (s *CommentService) DeleteComment(ctx context.Context, viewer models.Viewer, commentID uint) error {
	viewerID, ok := models.ViewerID(viewer)
	if !ok {
		return models.NewUnauthorizedError("Sign in to delete comments")
	}
	comment, err := s.commentRepo.GetByID(ctx, commentID)
	if err != nil {
		return err
	}
	if err := s.commentRepo.DeleteOwned(ctx, commentID, viewerID); err != nil {
		if errors.Is(err, repository.ErrNotOwner) {
			return models.NewForbiddenError("You can only delete your own comments")
		}
		var appErr *models.AppError
		if errors.As(err, &appErr) {
			return err
		}
		return models.NewInternalError(err)
	}
	cache.InvalidatePost(ctx, comment.PostID)
	s.publisher.PublishCommentChange(ctx, "", comment.PostID, ChangeCommentDeleted)
	s.publisher.PublishTimelineChange(ctx, "", comment.PostID, ChangeCommentDeleted)
	return nil
}
