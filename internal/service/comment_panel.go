package service

import (
	"context"
	"log/slog"
	"slices"
	"sync"

	"catspot/internal/cache"
	"catspot/internal/models"
	"catspot/internal/notice"
	"catspot/internal/observability"
	"catspot/internal/repository"
	"catspot/internal/validation"

	"github.com/google/uuid"
	"golang.org/x/text/language"
)

// CommentPanelState is the observable surface of a CommentPanel. Comments
// stay in fetch order (oldest first); use Sorted for display.
type CommentPanelState struct {
	PostID   uint                 `json:"post_id"`
	Comments []models.CommentView `json:"comments"`
	Loading  bool                 `json:"loading"`
	Error    string               `json:"error,omitempty"`
	Viewer   models.Viewer        `json:"-"`
	Sort     SortMode             `json:"sort"`
}

// Sorted returns the comments in the state's sort mode.
func (s CommentPanelState) Sorted() []models.CommentView {
	return SortComments(s.Comments, s.Sort)
}

// CommentPanel owns the comment list of one open panel for one post. Writes
// are applied locally first and reverted if the store rejects them.
//
// A second toggle or delete on a comment that still has a write in flight is
// ignored. Results that arrive after Close, or fetches superseded by a newer
// fetch, are dropped.
type CommentPanel struct {
	id        string
	repo      repository.CommentRepository
	viewers   ViewerSource
	publisher ChangePublisher
	locale    language.Tag

	mu       sync.Mutex
	state    CommentPanelState
	inflight map[uint]struct{}
	fetchSeq uint64
	// generation moves whenever a fetch replaces the list.
	generation uint64
	closed     bool
	subs       []func(CommentPanelState)
}

// NewCommentPanel creates a panel for postID. It holds no comments until
// FetchComments runs.
func NewCommentPanel(
	postID uint,
	repo repository.CommentRepository,
	viewers ViewerSource,
	publisher ChangePublisher,
	locale language.Tag,
) *CommentPanel {
	return &CommentPanel{
		id:        uuid.NewString(),
		repo:      repo,
		viewers:   viewers,
		publisher: publisherOrNop(publisher),
		locale:    locale,
		state: CommentPanelState{
			PostID: postID,
			Viewer: models.Anonymous{},
			Sort:   SortPopular,
		},
		inflight: make(map[uint]struct{}),
	}
}

// ID identifies the panel in change events.
func (p *CommentPanel) ID() string { return p.id }

// PostID returns the post the panel currently shows.
func (p *CommentPanel) PostID() uint {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.state.PostID
}

// State returns a copy of the current state.
func (p *CommentPanel) State() CommentPanelState {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.snapshotLocked()
}

// Subscribe registers fn to receive every state change. fn runs without the
// panel lock held, on the goroutine that made the change.
func (p *CommentPanel) Subscribe(fn func(CommentPanelState)) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.subs = append(p.subs, fn)
}

// Close disposes the panel. In-flight operations finish but their results are
// discarded and nobody is notified any more.
func (p *CommentPanel) Close() {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.closed = true
	p.subs = nil
}

// SetSort changes the display order.
func (p *CommentPanel) SetSort(mode SortMode) {
	p.mu.Lock()
	if p.closed {
		p.mu.Unlock()
		return
	}
	p.state.Sort = mode
	p.unlockAndNotify()
}

// FetchComments replaces the held list with a fresh aggregation for postID.
// A failed base fetch empties the list and sets a localized error; a failed
// liked lookup only leaves every comment unliked.
func (p *CommentPanel) FetchComments(ctx context.Context, postID uint) error {
	ctx, span := observability.GetTraceLayer().TracePanelOperation(ctx, "comments", "fetch", postID)
	defer span.End()

	viewer := p.viewers.CurrentViewer(ctx)

	p.mu.Lock()
	if p.closed {
		p.mu.Unlock()
		return nil
	}
	p.fetchSeq++
	seq := p.fetchSeq
	if p.state.PostID != postID {
		p.state.Comments = nil
	}
	p.state.PostID = postID
	p.state.Loading = true
	p.state.Error = ""
	p.unlockAndNotify()

	comments, err := AggregateComments(ctx, p.repo, postID, viewer)

	p.mu.Lock()
	if p.closed || seq != p.fetchSeq {
		p.mu.Unlock()
		return nil
	}
	p.generation++
	p.state.Loading = false
	p.state.Viewer = viewer
	if err != nil {
		p.state.Comments = nil
		p.state.Error = notice.Message(p.locale, notice.CommentFetchFailed)
		p.unlockAndNotify()

		observability.RecordErrorInContext(ctx, err)
		observability.GlobalLogger.ErrorContext(ctx, "comment fetch failed",
			slog.Uint64("post_id", uint64(postID)),
			slog.String("error", err.Error()),
		)
		return models.NewUserFacingError(notice.Message(p.locale, notice.CommentFetchFailed), err)
	}
	p.state.Comments = comments
	p.unlockAndNotify()
	return nil
}

// ToggleReaction likes or unlikes a comment. wasLiked is the state the caller
// saw before the click. The change is visible immediately and reverted if the
// store rejects it; failures are logged and never returned.
func (p *CommentPanel) ToggleReaction(ctx context.Context, commentID uint, wasLiked bool) {
	viewerID, ok := models.ViewerID(p.viewers.CurrentViewer(ctx))
	if !ok {
		return
	}

	ctx, span := observability.GetTraceLayer().TracePanelOperation(ctx, "comments", "toggle_reaction", commentID)
	defer span.End()

	p.mu.Lock()
	idx := p.indexLocked(commentID)
	_, busy := p.inflight[commentID]
	if p.closed || idx < 0 || busy {
		p.mu.Unlock()
		return
	}
	p.inflight[commentID] = struct{}{}
	c := &p.state.Comments[idx]
	delta := applyReaction(&c.IsLiked, &c.LikeCount, !wasLiked)
	generation := p.generation
	postID := p.state.PostID
	p.unlockAndNotify()

	fields := map[string]interface{}{"comment_id": commentID, "direction": direction(!wasLiked)}
	observability.ReactionToggles.WithLabelValues("comment", direction(!wasLiked)).Inc()
	observability.LogAsyncOperationStart(ctx, "comment_reaction", fields)

	var err error
	if wasLiked {
		err = p.repo.RemoveFavorite(ctx, commentID, viewerID)
	} else {
		err = p.repo.AddFavorite(ctx, commentID, viewerID)
	}

	p.mu.Lock()
	delete(p.inflight, commentID)
	if err == nil {
		p.mu.Unlock()
		observability.LogAsyncOperationEnd(ctx, "comment_reaction", fields)
		p.publisher.PublishCommentChange(ctx, p.id, postID, ChangeCommentReaction)
		return
	}

	observability.OptimisticRollbacks.WithLabelValues("comment", "reaction").Inc()
	observability.RecordErrorInContext(ctx, err)
	observability.LogAsyncOperationError(ctx, "comment_reaction", err, fields)
	if p.closed {
		p.mu.Unlock()
		return
	}
	// A refetch since the toggle replaced the row with the store's count.
	if p.generation != generation {
		p.mu.Unlock()
		return
	}
	if idx := p.indexLocked(commentID); idx >= 0 {
		c := &p.state.Comments[idx]
		revertReaction(&c.IsLiked, &c.LikeCount, wasLiked, delta)
	}
	p.unlockAndNotify()
}

// DeleteComment removes a comment locally, then asks the store to delete it.
// The store only deletes the viewer's own comments. On failure the whole list
// as it was before the delete comes back and a localized error is returned.
func (p *CommentPanel) DeleteComment(ctx context.Context, commentID uint) error {
	viewerID, ok := models.ViewerID(p.viewers.CurrentViewer(ctx))
	if !ok {
		return nil
	}

	ctx, span := observability.GetTraceLayer().TracePanelOperation(ctx, "comments", "delete", commentID)
	defer span.End()

	p.mu.Lock()
	idx := p.indexLocked(commentID)
	_, busy := p.inflight[commentID]
	if p.closed || idx < 0 || busy {
		p.mu.Unlock()
		return nil
	}
	p.inflight[commentID] = struct{}{}
	snapshot := slices.Clone(p.state.Comments)
	generation := p.generation
	postID := p.state.PostID
	p.state.Comments = slices.Delete(p.state.Comments, idx, idx+1)
	p.unlockAndNotify()

	fields := map[string]interface{}{"comment_id": commentID, "post_id": postID}
	observability.LogAsyncOperationStart(ctx, "comment_delete", fields)

	err := p.repo.DeleteOwned(ctx, commentID, viewerID)

	p.mu.Lock()
	delete(p.inflight, commentID)
	if err == nil {
		p.mu.Unlock()
		observability.LogAsyncOperationEnd(ctx, "comment_delete", fields)
		cache.InvalidatePost(ctx, postID)
		p.publisher.PublishCommentChange(ctx, p.id, postID, ChangeCommentDeleted)
		p.publisher.PublishTimelineChange(ctx, p.id, postID, ChangeCommentDeleted)
		return nil
	}

	observability.OptimisticRollbacks.WithLabelValues("comment", "delete").Inc()
	observability.RecordErrorInContext(ctx, err)
	observability.LogAsyncOperationError(ctx, "comment_delete", err, fields)
	msg := notice.Message(p.locale, notice.CommentDeleteFailed)
	if p.closed {
		p.mu.Unlock()
		return models.NewUserFacingError(msg, err)
	}
	// A fetch that landed meanwhile already holds the store's view.
	if p.generation == generation {
		p.state.Comments = snapshot
	}
	p.unlockAndNotify()
	return models.NewUserFacingError(msg, err)
}

// PostComment adds a comment as the current viewer and refetches on success.
func (p *CommentPanel) PostComment(ctx context.Context, content string) error {
	viewerID, ok := models.ViewerID(p.viewers.CurrentViewer(ctx))
	if !ok {
		return models.NewUnauthorizedError("Sign in to comment")
	}
	text, err := validation.Comment(content)
	if err != nil {
		return models.NewValidationError(err.Error())
	}

	postID := p.PostID()
	ctx, span := observability.GetTraceLayer().TracePanelOperation(ctx, "comments", "post", postID)
	defer span.End()

	comment := &models.Comment{PostID: postID, UserID: viewerID, Content: text}
	if err := p.repo.Create(ctx, comment); err != nil {
		observability.RecordErrorInContext(ctx, err)
		observability.GlobalLogger.ErrorContext(ctx, "comment create failed",
			slog.Uint64("post_id", uint64(postID)),
			slog.String("error", err.Error()),
		)
		return models.NewUserFacingError(notice.Message(p.locale, notice.CommentPostFailed), err)
	}
	cache.InvalidatePost(ctx, postID)
	p.publisher.PublishCommentChange(ctx, p.id, postID, ChangeCommentCreated)
	p.publisher.PublishTimelineChange(ctx, p.id, postID, ChangeCommentCreated)
	return p.FetchComments(ctx, postID)
}

func (p *CommentPanel) indexLocked(commentID uint) int {
	return slices.IndexFunc(p.state.Comments, func(c models.CommentView) bool {
		return c.ID == commentID
	})
}

func (p *CommentPanel) snapshotLocked() CommentPanelState {
	s := p.state
	s.Comments = slices.Clone(p.state.Comments)
	return s
}

// unlockAndNotify releases p.mu and hands the new state to subscribers.
func (p *CommentPanel) unlockAndNotify() {
	state := p.snapshotLocked()
	subs := slices.Clone(p.subs)
	p.mu.Unlock()
	for _, fn := range subs {
		fn(state)
	}
}
