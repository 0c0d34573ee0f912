package service

import (
	"context"
	"sync"
	"time"

	"catspot/internal/models"
)

const (
	aliceID = "0b6f3d1c-7e2a-4a55-9c1e-1f2e3d4c5b6a"
	bobID   = "5d9e2a71-3c4b-4f68-8a0d-6b7c8d9e0f1a"
)

var baseTime = time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)

// commentRepoStub is a stub for repository.CommentRepository.
type commentRepoStub struct {
	listByPostFn      func(context.Context, uint) ([]models.CommentView, error)
	likedCommentIDsFn func(context.Context, string, []uint) ([]uint, error)
	addFavoriteFn     func(context.Context, uint, string) error
	removeFavoriteFn  func(context.Context, uint, string) error
	createFn          func(context.Context, *models.Comment) error
	getByIDFn         func(context.Context, uint) (*models.Comment, error)
	deleteOwnedFn     func(context.Context, uint, string) error

	mu    sync.Mutex
	calls []string
}

func (s *commentRepoStub) record(name string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.calls = append(s.calls, name)
}

func (s *commentRepoStub) called(name string) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	n := 0
	for _, c := range s.calls {
		if c == name {
			n++
		}
	}
	return n
}

func (s *commentRepoStub) ListByPost(ctx context.Context, postID uint) ([]models.CommentView, error) {
	s.record("ListByPost")
	return s.listByPostFn(ctx, postID)
}
func (s *commentRepoStub) LikedCommentIDs(ctx context.Context, viewerID string, ids []uint) ([]uint, error) {
	s.record("LikedCommentIDs")
	return s.likedCommentIDsFn(ctx, viewerID, ids)
}
func (s *commentRepoStub) AddFavorite(ctx context.Context, commentID uint, viewerID string) error {
	s.record("AddFavorite")
	return s.addFavoriteFn(ctx, commentID, viewerID)
}
func (s *commentRepoStub) RemoveFavorite(ctx context.Context, commentID uint, viewerID string) error {
	s.record("RemoveFavorite")
	return s.removeFavoriteFn(ctx, commentID, viewerID)
}
func (s *commentRepoStub) Create(ctx context.Context, comment *models.Comment) error {
	s.record("Create")
	return s.createFn(ctx, comment)
}
func (s *commentRepoStub) GetByID(ctx context.Context, id uint) (*models.Comment, error) {
	s.record("GetByID")
	return s.getByIDFn(ctx, id)
}
func (s *commentRepoStub) DeleteOwned(ctx context.Context, commentID uint, viewerID string) error {
	s.record("DeleteOwned")
	return s.deleteOwnedFn(ctx, commentID, viewerID)
}

func noopCommentRepo() *commentRepoStub {
	return &commentRepoStub{
		listByPostFn:      func(context.Context, uint) ([]models.CommentView, error) { return nil, nil },
		likedCommentIDsFn: func(context.Context, string, []uint) ([]uint, error) { return nil, nil },
		addFavoriteFn:     func(context.Context, uint, string) error { return nil },
		removeFavoriteFn:  func(context.Context, uint, string) error { return nil },
		createFn:          func(context.Context, *models.Comment) error { return nil },
		getByIDFn: func(_ context.Context, id uint) (*models.Comment, error) {
			return &models.Comment{ID: id, PostID: 1, UserID: aliceID}, nil
		},
		deleteOwnedFn: func(context.Context, uint, string) error { return nil },
	}
}

// postRepoStub is a stub for repository.PostRepository.
type postRepoStub struct {
	createFn             func(context.Context, *models.Post) error
	getByIDFn            func(context.Context, uint) (*models.Post, error)
	getViewFn            func(context.Context, uint) (*models.PostView, error)
	listTimelineFn       func(context.Context, int) ([]models.PostView, error)
	listMapPinsFn        func(context.Context) ([]models.MapPin, error)
	likedPostIDsFn       func(context.Context, string, []uint) ([]uint, error)
	likeFn               func(context.Context, uint, string) error
	unlikeFn             func(context.Context, uint, string) error
	deleteWithChildrenFn func(context.Context, uint) error
}

func (s *postRepoStub) Create(ctx context.Context, post *models.Post) error {
	return s.createFn(ctx, post)
}
func (s *postRepoStub) GetByID(ctx context.Context, id uint) (*models.Post, error) {
	return s.getByIDFn(ctx, id)
}
func (s *postRepoStub) GetView(ctx context.Context, id uint) (*models.PostView, error) {
	return s.getViewFn(ctx, id)
}
func (s *postRepoStub) ListTimeline(ctx context.Context, limit int) ([]models.PostView, error) {
	return s.listTimelineFn(ctx, limit)
}
func (s *postRepoStub) ListMapPins(ctx context.Context) ([]models.MapPin, error) {
	return s.listMapPinsFn(ctx)
}
func (s *postRepoStub) LikedPostIDs(ctx context.Context, viewerID string, ids []uint) ([]uint, error) {
	return s.likedPostIDsFn(ctx, viewerID, ids)
}
func (s *postRepoStub) Like(ctx context.Context, postID uint, viewerID string) error {
	return s.likeFn(ctx, postID, viewerID)
}
func (s *postRepoStub) Unlike(ctx context.Context, postID uint, viewerID string) error {
	return s.unlikeFn(ctx, postID, viewerID)
}
func (s *postRepoStub) DeleteWithChildren(ctx context.Context, id uint) error {
	return s.deleteWithChildrenFn(ctx, id)
}

func noopPostRepo() *postRepoStub {
	return &postRepoStub{
		createFn: func(_ context.Context, p *models.Post) error {
			p.ID = 1
			return nil
		},
		getByIDFn: func(_ context.Context, id uint) (*models.Post, error) {
			return &models.Post{ID: id, UserID: aliceID}, nil
		},
		getViewFn: func(_ context.Context, id uint) (*models.PostView, error) {
			return &models.PostView{ID: id, AuthorID: aliceID}, nil
		},
		listTimelineFn:       func(context.Context, int) ([]models.PostView, error) { return nil, nil },
		listMapPinsFn:        func(context.Context) ([]models.MapPin, error) { return nil, nil },
		likedPostIDsFn:       func(context.Context, string, []uint) ([]uint, error) { return nil, nil },
		likeFn:               func(context.Context, uint, string) error { return nil },
		unlikeFn:             func(context.Context, uint, string) error { return nil },
		deleteWithChildrenFn: func(context.Context, uint) error { return nil },
	}
}

// recordingPublisher captures change events.
type recordingPublisher struct {
	mu       sync.Mutex
	comments []string
	timeline []string
}

func (p *recordingPublisher) PublishCommentChange(_ context.Context, _ string, _ uint, kind string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.comments = append(p.comments, kind)
}

func (p *recordingPublisher) PublishTimelineChange(_ context.Context, _ string, _ uint, kind string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.timeline = append(p.timeline, kind)
}

func alice() models.Viewer { return models.Authenticated{ID: aliceID} }

func comment(id uint, likes int, minutes int) models.CommentView {
	return models.CommentView{
		ID:        id,
		PostID:    1,
		AuthorID:  aliceID,
		Content:   "comment",
		CreatedAt: baseTime.Add(time.Duration(minutes) * time.Minute),
		Author:    &models.Author{Name: "alice"},
		LikeCount: likes,
	}
}
