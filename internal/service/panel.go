package service

import (
	"context"

	"catspot/internal/models"
)

// ViewerSource resolves who is looking at a panel when an operation starts.
type ViewerSource interface {
	CurrentViewer(ctx context.Context) models.Viewer
}

// ViewerSourceFunc adapts a function to ViewerSource.
type ViewerSourceFunc func(ctx context.Context) models.Viewer

func (f ViewerSourceFunc) CurrentViewer(ctx context.Context) models.Viewer { return f(ctx) }

// FixedViewer always reports the same viewer, e.g. the one that opened a socket.
func FixedViewer(v models.Viewer) ViewerSource {
	return ViewerSourceFunc(func(context.Context) models.Viewer { return v })
}

// ContextViewer reads the viewer stored on the request context.
var ContextViewer ViewerSource = ViewerSourceFunc(models.ViewerFromContext)

// Change kinds published after a committed write.
const (
	ChangeCommentCreated  = "comment_created"
	ChangeCommentDeleted  = "comment_deleted"
	ChangeCommentReaction = "comment_reaction"
	ChangePostCreated     = "post_created"
	ChangePostDeleted     = "post_deleted"
	ChangePostReaction    = "post_reaction"
)

// ChangePublisher tells other panels that the remote store changed. origin is
// the id of the panel that made the change so it can skip its own echo; it is
// empty for plain HTTP writes.
type ChangePublisher interface {
	PublishCommentChange(ctx context.Context, origin string, postID uint, kind string)
	PublishTimelineChange(ctx context.Context, origin string, postID uint, kind string)
}

type nopPublisher struct{}

func (nopPublisher) PublishCommentChange(context.Context, string, uint, string)  {}
func (nopPublisher) PublishTimelineChange(context.Context, string, uint, string) {}

func publisherOrNop(p ChangePublisher) ChangePublisher {
	if p == nil {
		return nopPublisher{}
	}
	return p
}
