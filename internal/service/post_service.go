package service

import (
	"context"
	"errors"
	"log/slog"

	"catspot/internal/cache"
	"catspot/internal/featureflags"
	"catspot/internal/models"
	"catspot/internal/observability"
	"catspot/internal/photo"
	"catspot/internal/repository"
	"catspot/internal/validation"

	"github.com/google/uuid"
)

// ObjectStore keeps post photos. Remove takes the public URL Put returned.
type ObjectStore interface {
	Put(ctx context.Context, key string, body []byte, contentType string) (string, error)
	Remove(ctx context.Context, publicURL string) error
}

type PostService struct {
	postRepo  repository.PostRepository
	store     ObjectStore
	flags     *featureflags.Manager
	publisher ChangePublisher
	timeline  TimelineOptions
}

type CreatePostInput struct {
	Viewer    models.Viewer
	Caption   string
	Latitude  *float64
	Longitude *float64
	Image     []byte
}

func NewPostService(
	postRepo repository.PostRepository,
	store ObjectStore,
	flags *featureflags.Manager,
	publisher ChangePublisher,
	timeline TimelineOptions,
) *PostService {
	timeline.Flags = flags
	return &PostService{
		postRepo:  postRepo,
		store:     store,
		flags:     flags,
		publisher: publisherOrNop(publisher),
		timeline:  timeline,
	}
}

// ListTimeline returns the aggregated timeline for viewer.
func (s *PostService) ListTimeline(ctx context.Context, viewer models.Viewer) ([]models.PostView, error) {
	posts, err := LoadTimeline(ctx, s.postRepo, viewer, s.timeline)
	if err != nil {
		return nil, models.NewInternalError(err)
	}
	return posts, nil
}

// GetPost returns one aggregated post.
func (s *PostService) GetPost(ctx context.Context, viewer models.Viewer, postID uint) (*models.PostView, error) {
	var view models.PostView
	err := cache.Aside(ctx, "post", cache.PostKey(postID), &view, cache.PostTTL, func() error {
		v, err := s.postRepo.GetView(ctx, postID)
		if err != nil {
			return err
		}
		view = *v
		return nil
	})
	if err != nil {
		return nil, err
	}

	posts := []models.PostView{view}
	if err := MarkLikedPosts(ctx, s.postRepo, posts, viewer); err != nil {
		observability.GlobalLogger.WarnContext(ctx, "post liked lookup failed",
			slog.Uint64("post_id", uint64(postID)),
			slog.String("error", err.Error()),
		)
	}
	return &posts[0], nil
}

// ListMapPins returns every located post for the map.
func (s *PostService) ListMapPins(ctx context.Context) ([]models.MapPin, error) {
	var pins []models.MapPin
	err := cache.Aside(ctx, "map", cache.MapPinsKey, &pins, cache.MapPinsTTL, func() error {
		var err error
		pins, err = s.postRepo.ListMapPins(ctx)
		return err
	})
	if err != nil {
		return nil, models.NewInternalError(err)
	}
	return pins, nil
}

// CreatePost normalizes the photo, uploads it under <viewer>/<uuid>.jpg and
// stores the post. Missing coordinates are filled from EXIF GPS when the
// exif_location flag is on.
func (s *PostService) CreatePost(ctx context.Context, in CreatePostInput) (*models.Post, error) {
	viewerID, ok := models.ViewerID(in.Viewer)
	if !ok {
		return nil, models.NewUnauthorizedError("Sign in to post")
	}

	fields := validation.PostInput{Caption: in.Caption, Latitude: in.Latitude, Longitude: in.Longitude}
	if err := validation.Post(&fields); err != nil {
		return nil, models.NewValidationError(err.Error())
	}
	if len(in.Image) == 0 {
		return nil, models.NewValidationError("image is required")
	}

	processed, err := photo.Process(in.Image)
	if err != nil {
		if errors.Is(err, photo.ErrUnsupported) {
			return nil, models.NewValidationError("image format is not supported")
		}
		return nil, models.NewValidationError("image could not be read")
	}

	if fields.Latitude == nil && processed.Location != nil && s.flags.Enabled(featureflags.ExifLocation, viewerID) {
		fields.Latitude = &processed.Location.Latitude
		fields.Longitude = &processed.Location.Longitude
	}

	key := viewerID + "/" + uuid.NewString() + ".jpg"
	url, err := s.store.Put(ctx, key, processed.JPEG, photo.ContentType)
	if err != nil {
		return nil, models.NewInternalError(err)
	}

	post := &models.Post{
		UserID:    viewerID,
		Caption:   fields.Caption,
		ImageURL:  url,
		Latitude:  fields.Latitude,
		Longitude: fields.Longitude,
	}
	if err := s.postRepo.Create(ctx, post); err != nil {
		if rmErr := s.store.Remove(ctx, url); rmErr != nil {
			observability.GlobalLogger.WarnContext(ctx, "orphaned upload", slog.String("url", url), slog.String("error", rmErr.Error()))
		}
		return nil, models.NewInternalError(err)
	}

	cache.Invalidate(ctx, cache.TimelineKey, cache.MapPinsKey)
	s.publisher.PublishTimelineChange(ctx, "", post.ID, ChangePostCreated)
	return post, nil
}

// DeletePost deletes the viewer's own post with its comments and reactions.
// Removing the photo is best effort.
func (s *PostService) DeletePost(ctx context.Context, viewer models.Viewer, postID uint) error {
	viewerID, ok := models.ViewerID(viewer)
	if !ok {
		return models.NewUnauthorizedError("Sign in to delete posts")
	}

	post, err := s.postRepo.GetByID(ctx, postID)
	if err != nil {
		return err
	}
	if post.UserID != viewerID {
		return models.NewForbiddenError("You can only delete your own posts")
	}

	if post.ImageURL != "" {
		if err := s.store.Remove(ctx, post.ImageURL); err != nil {
			observability.GlobalLogger.ErrorContext(ctx, "failed to delete post image",
				slog.Uint64("post_id", uint64(postID)),
				slog.String("url", post.ImageURL),
				slog.String("error", err.Error()),
			)
		}
	}

	if err := s.postRepo.DeleteWithChildren(ctx, postID); err != nil {
		return err
	}

	cache.InvalidatePost(ctx, postID)
	s.publisher.PublishTimelineChange(ctx, "", postID, ChangePostDeleted)
	s.publisher.PublishCommentChange(ctx, "", postID, ChangePostDeleted)
	return nil
}

// LikePost adds the viewer's like. Liking twice is a conflict.
func (s *PostService) LikePost(ctx context.Context, viewer models.Viewer, postID uint) error {
	viewerID, ok := models.ViewerID(viewer)
	if !ok {
		return models.NewUnauthorizedError("Sign in to like posts")
	}
	if _, err := s.postRepo.GetByID(ctx, postID); err != nil {
		return err
	}
	observability.ReactionToggles.WithLabelValues("post", "like").Inc()
	if err := s.postRepo.Like(ctx, postID, viewerID); err != nil {
		if errors.Is(err, repository.ErrDuplicateReaction) {
			return models.NewConflictError("Post already liked", err)
		}
		return models.NewInternalError(err)
	}
	cache.InvalidatePost(ctx, postID)
	s.publisher.PublishTimelineChange(ctx, "", postID, ChangePostReaction)
	return nil
}

// UnlikePost removes the viewer's like. Removing a missing like succeeds.
func (s *PostService) UnlikePost(ctx context.Context, viewer models.Viewer, postID uint) error {
	viewerID, ok := models.ViewerID(viewer)
	if !ok {
		return models.NewUnauthorizedError("Sign in to like posts")
	}
	observability.ReactionToggles.WithLabelValues("post", "unlike").Inc()
	if err := s.postRepo.Unlike(ctx, postID, viewerID); err != nil {
		return models.NewInternalError(err)
	}
	cache.InvalidatePost(ctx, postID)
	s.publisher.PublishTimelineChange(ctx, "", postID, ChangePostReaction)
	return nil
}
