package service

import (
	"context"
	"log/slog"
	"slices"
	"sync"
	"time"

	"catspot/internal/cache"
	"catspot/internal/featureflags"
	"catspot/internal/models"
	"catspot/internal/notice"
	"catspot/internal/observability"
	"catspot/internal/repository"

	"github.com/google/uuid"
	"golang.org/x/text/language"
)

// TimelineState is the observable surface of a TimelineSession.
type TimelineState struct {
	Posts   []models.PostView `json:"posts"`
	Loading bool              `json:"loading"`
	Error   string            `json:"error,omitempty"`
	Viewer  models.Viewer     `json:"-"`
}

// TimelineOptions tune how a session loads base rows.
type TimelineOptions struct {
	// Limit caps the number of posts; zero loads all of them.
	Limit    int
	CacheTTL time.Duration
	Flags    *featureflags.Manager
}

// TimelineSession is the post counterpart of CommentPanel: it holds the
// newest-first post list of one open timeline and toggles likes optimistically.
type TimelineSession struct {
	id        string
	repo      repository.PostRepository
	viewers   ViewerSource
	publisher ChangePublisher
	locale    language.Tag
	opts      TimelineOptions

	mu       sync.Mutex
	state    TimelineState
	inflight map[uint]struct{}
	fetchSeq uint64
	// generation moves whenever a fetch replaces the list.
	generation uint64
	closed     bool
	subs       []func(TimelineState)
}

func NewTimelineSession(
	repo repository.PostRepository,
	viewers ViewerSource,
	publisher ChangePublisher,
	locale language.Tag,
	opts TimelineOptions,
) *TimelineSession {
	if opts.CacheTTL <= 0 {
		opts.CacheTTL = cache.TimelineTTL
	}
	return &TimelineSession{
		id:        uuid.NewString(),
		repo:      repo,
		viewers:   viewers,
		publisher: publisherOrNop(publisher),
		locale:    locale,
		opts:      opts,
		state:     TimelineState{Viewer: models.Anonymous{}},
		inflight:  make(map[uint]struct{}),
	}
}

func (s *TimelineSession) ID() string { return s.id }

func (s *TimelineSession) State() TimelineState {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.snapshotLocked()
}

func (s *TimelineSession) Subscribe(fn func(TimelineState)) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.subs = append(s.subs, fn)
}

func (s *TimelineSession) Close() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.closed = true
	s.subs = nil
}

// FetchPosts reloads the timeline. Base rows may come from the cache; the
// viewer's liked set is always read from the store.
func (s *TimelineSession) FetchPosts(ctx context.Context) error {
	ctx, span := observability.GetTraceLayer().TracePanelOperation(ctx, "timeline", "fetch", 0)
	defer span.End()

	viewer := s.viewers.CurrentViewer(ctx)

	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return nil
	}
	s.fetchSeq++
	seq := s.fetchSeq
	s.state.Loading = true
	s.state.Error = ""
	s.unlockAndNotify()

	posts, err := LoadTimeline(ctx, s.repo, viewer, s.opts)

	s.mu.Lock()
	if s.closed || seq != s.fetchSeq {
		s.mu.Unlock()
		return nil
	}
	s.generation++
	s.state.Loading = false
	s.state.Viewer = viewer
	if err != nil {
		msg := notice.Message(s.locale, notice.PostsFetchFailed)
		s.state.Posts = nil
		s.state.Error = msg
		s.unlockAndNotify()

		observability.RecordErrorInContext(ctx, err)
		observability.GlobalLogger.ErrorContext(ctx, "timeline fetch failed", slog.String("error", err.Error()))
		return models.NewUserFacingError(msg, err)
	}
	s.state.Posts = posts
	s.unlockAndNotify()
	return nil
}

// ToggleLike likes or unlikes a post with the same optimistic protocol as
// CommentPanel.ToggleReaction.
func (s *TimelineSession) ToggleLike(ctx context.Context, postID uint, wasLiked bool) {
	viewerID, ok := models.ViewerID(s.viewers.CurrentViewer(ctx))
	if !ok {
		return
	}

	ctx, span := observability.GetTraceLayer().TracePanelOperation(ctx, "timeline", "toggle_like", postID)
	defer span.End()

	s.mu.Lock()
	idx := s.indexLocked(postID)
	_, busy := s.inflight[postID]
	if s.closed || idx < 0 || busy {
		s.mu.Unlock()
		return
	}
	s.inflight[postID] = struct{}{}
	p := &s.state.Posts[idx]
	delta := applyReaction(&p.IsLiked, &p.LikeCount, !wasLiked)
	generation := s.generation
	s.unlockAndNotify()

	fields := map[string]interface{}{"post_id": postID, "direction": direction(!wasLiked)}
	observability.ReactionToggles.WithLabelValues("post", direction(!wasLiked)).Inc()
	observability.LogAsyncOperationStart(ctx, "post_like", fields)

	var err error
	if wasLiked {
		err = s.repo.Unlike(ctx, postID, viewerID)
	} else {
		err = s.repo.Like(ctx, postID, viewerID)
	}

	s.mu.Lock()
	delete(s.inflight, postID)
	if err == nil {
		s.mu.Unlock()
		observability.LogAsyncOperationEnd(ctx, "post_like", fields)
		cache.InvalidatePost(ctx, postID)
		s.publisher.PublishTimelineChange(ctx, s.id, postID, ChangePostReaction)
		return
	}

	observability.OptimisticRollbacks.WithLabelValues("post", "reaction").Inc()
	observability.RecordErrorInContext(ctx, err)
	observability.LogAsyncOperationError(ctx, "post_like", err, fields)
	if s.closed {
		s.mu.Unlock()
		return
	}
	if s.generation != generation {
		s.mu.Unlock()
		return
	}
	if idx := s.indexLocked(postID); idx >= 0 {
		p := &s.state.Posts[idx]
		revertReaction(&p.IsLiked, &p.LikeCount, wasLiked, delta)
	}
	s.unlockAndNotify()
}

// LoadTimeline aggregates the timeline for viewer. A failed liked lookup is
// logged and leaves every post unliked.
func LoadTimeline(ctx context.Context, repo repository.PostRepository, viewer models.Viewer, opts TimelineOptions) ([]models.PostView, error) {
	viewerID, _ := models.ViewerID(viewer)

	var posts []models.PostView
	fetch := func() error {
		rows, err := repo.ListTimeline(ctx, opts.Limit)
		posts = rows
		return err
	}

	var err error
	if opts.Flags.Enabled(featureflags.TimelineCache, viewerID) && opts.Limit == 0 {
		err = cache.Aside(ctx, "timeline", cache.TimelineKey, &posts, opts.CacheTTL, fetch)
	} else {
		err = fetch()
	}
	if err != nil {
		observability.FetchFailures.WithLabelValues("post").Inc()
		return nil, err
	}

	if err := MarkLikedPosts(ctx, repo, posts, viewer); err != nil {
		observability.GlobalLogger.WarnContext(ctx, "post liked lookup failed", slog.String("error", err.Error()))
	}
	return posts, nil
}

func (s *TimelineSession) indexLocked(postID uint) int {
	return slices.IndexFunc(s.state.Posts, func(p models.PostView) bool {
		return p.ID == postID
	})
}

func (s *TimelineSession) snapshotLocked() TimelineState {
	st := s.state
	st.Posts = slices.Clone(s.state.Posts)
	return st
}

func (s *TimelineSession) unlockAndNotify() {
	state := s.snapshotLocked()
	subs := slices.Clone(s.subs)
	s.mu.Unlock()
	for _, fn := range subs {
		fn(state)
	}
}
