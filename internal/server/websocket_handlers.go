package server

import (
	"context"
	"encoding/json"
	"errors"
	"strconv"
	"time"

	"catspot/internal/middleware"
	"catspot/internal/models"
	"catspot/internal/notifications"
	"catspot/internal/observability"
	"catspot/internal/service"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/websocket/v2"
	"go.opentelemetry.io/otel/trace"
	"golang.org/x/text/language"
)

// Intent types a panel connection accepts.
const (
	intentRefresh        = "refresh"
	intentSort           = "sort"
	intentToggleReaction = "toggle_reaction"
	intentDelete         = "delete"
	intentPost           = "post"
	intentToggleLike     = "toggle_like"
)

// Message types a panel connection emits.
const (
	messageState  = "state"
	messageNotice = "notice"
)

// panelIntent is one message from the client.
type panelIntent struct {
	Type    string          `json:"type"`
	Payload json.RawMessage `json:"payload"`
}

type panelMessage struct {
	Type    string `json:"type"`
	Payload any    `json:"payload"`
}

type viewerPayload struct {
	Authenticated bool   `json:"authenticated"`
	ID            string `json:"id,omitempty"`
}

type commentStatePayload struct {
	PostID   uint                 `json:"post_id"`
	Comments []models.CommentView `json:"comments"`
	Loading  bool                 `json:"loading"`
	Error    string               `json:"error,omitempty"`
	Viewer   viewerPayload        `json:"viewer"`
	Sort     service.SortMode     `json:"sort"`
}

type timelineStatePayload struct {
	Posts   []models.PostView `json:"posts"`
	Loading bool              `json:"loading"`
	Error   string            `json:"error,omitempty"`
	Viewer  viewerPayload     `json:"viewer"`
}

type noticePayload struct {
	Message string `json:"message"`
	Code    string `json:"code,omitempty"`
}

func newViewerPayload(v models.Viewer) viewerPayload {
	id, ok := models.ViewerID(v)
	return viewerPayload{Authenticated: ok, ID: id}
}

func commentState(st service.CommentPanelState) commentStatePayload {
	comments := st.Sorted()
	if comments == nil {
		comments = []models.CommentView{}
	}
	return commentStatePayload{
		PostID:   st.PostID,
		Comments: comments,
		Loading:  st.Loading,
		Error:    st.Error,
		Viewer:   newViewerPayload(st.Viewer),
		Sort:     st.Sort,
	}
}

func timelineState(st service.TimelineState) timelineStatePayload {
	posts := st.Posts
	if posts == nil {
		posts = []models.PostView{}
	}
	return timelineStatePayload{
		Posts:   posts,
		Loading: st.Loading,
		Error:   st.Error,
		Viewer:  newViewerPayload(st.Viewer),
	}
}

func newNotice(err error) noticePayload {
	var appErr *models.AppError
	if errors.As(err, &appErr) {
		return noticePayload{Message: appErr.Message, Code: appErr.Code}
	}
	return noticePayload{Message: "Internal server error", Code: models.CodeInternal}
}

// sendMessage queues a typed message on the client without blocking.
func sendMessage(c *notifications.Client, msgType string, payload any) {
	b, err := json.Marshal(panelMessage{Type: msgType, Payload: payload})
	if err != nil {
		return
	}
	c.TrySend(b)
}

func sendNotice(c *notifications.Client, err error) {
	sendMessage(c, messageNotice, newNotice(err))
}

// decodePayload unmarshals an intent payload, treating a missing one as empty.
func decodePayload(raw json.RawMessage, dest any) error {
	if len(raw) == 0 {
		return nil
	}
	return json.Unmarshal(raw, dest)
}

func socketViewer(conn *websocket.Conn) models.Viewer {
	if v, ok := conn.Locals(middleware.ViewerLocal).(models.Viewer); ok && v != nil {
		return v
	}
	return models.Anonymous{}
}

func socketLocale(conn *websocket.Conn) language.Tag {
	if tag, ok := conn.Locals(localeLocal).(language.Tag); ok {
		return tag
	}
	return language.Japanese
}

// rejectSocket tells the client why the connection is refused and closes it.
func rejectSocket(conn *websocket.Conn, err error) {
	b, _ := json.Marshal(panelMessage{Type: messageNotice, Payload: noticePayload{Message: err.Error()}})
	_ = conn.WriteMessage(websocket.TextMessage, b)
	_ = conn.WriteMessage(websocket.CloseMessage,
		websocket.FormatCloseMessage(websocket.ClosePolicyViolation, err.Error()))
	_ = conn.Close()
}

// CommentPanelSocket serves GET /api/ws/posts/:id/comments. Each connection
// owns one comment panel, which is disposed when the connection closes.
func (s *Server) CommentPanelSocket() fiber.Handler {
	return websocket.New(func(conn *websocket.Conn) {
		postID, err := strconv.ParseUint(conn.Params("id"), 10, 0)
		if err != nil || postID == 0 {
			rejectSocket(conn, errors.New("invalid post ID"))
			return
		}

		viewer := socketViewer(conn)
		viewerID, _ := models.ViewerID(viewer)
		ctx, cancel := context.WithCancel(s.baseContext())
		defer cancel()
		if viewerID != "" {
			ctx = context.WithValue(ctx, middleware.ViewerIDKey, viewerID)
		}

		panel := service.NewCommentPanel(uint(postID), s.commentRepo, service.FixedViewer(viewer), s.publisher(), socketLocale(conn))
		defer panel.Close()

		client, err := s.commentHub.Register(conn, notifications.CommentChannel(uint(postID)), viewerID, panel.ID())
		if err != nil {
			rejectSocket(conn, err)
			return
		}

		wsLog := observability.NewWSLogger(s.commentHub.Name())
		wsLog.LogConnect(ctx, viewerID, panel.ID())
		defer wsLog.LogDisconnect(ctx, viewerID, panel.ID(), "closed")

		panel.Subscribe(func(st service.CommentPanelState) {
			sendMessage(client, messageState, commentState(st))
		})
		client.OnChange = func(notifications.ChangeEvent) {
			go s.refreshCommentPanel(ctx, client, panel)
		}
		client.IncomingHandler = func(c *notifications.Client, message []byte) {
			s.handleCommentIntent(ctx, c, panel, wsLog, message)
		}

		go client.WritePump()
		go s.refreshCommentPanel(ctx, client, panel)
		client.ReadPump()
	})
}

func (s *Server) refreshCommentPanel(ctx context.Context, c *notifications.Client, panel *service.CommentPanel) {
	if err := panel.FetchComments(ctx, panel.PostID()); err != nil {
		sendNotice(c, err)
	}
}

// spanWork ends span when the intent handler returns, or when the goroutine
// handed to run finishes if the handler started one.
func spanWork(span trace.Span) (run func(func()), done func()) {
	async := false
	run = func(fn func()) {
		async = true
		go func() {
			defer span.End()
			fn()
		}()
	}
	done = func() {
		if !async {
			span.End()
		}
	}
	return run, done
}

// handleCommentIntent applies one client intent. Writes run detached from the
// connection so a click made just before closing still reaches the store.
func (s *Server) handleCommentIntent(
	ctx context.Context, c *notifications.Client, panel *service.CommentPanel, wsLog *observability.WSLogger, message []byte,
) {
	var intent panelIntent
	if err := json.Unmarshal(message, &intent); err != nil {
		sendNotice(c, models.NewValidationError("Invalid message format"))
		return
	}
	wsLog.LogMessage(ctx, panel.ID(), intent.Type)

	ctx, span := observability.GetTraceLayer().TraceWebSocket(ctx, s.commentHub.Name(), intent.Type)
	run, done := spanWork(span)
	defer done()
	writeCtx := context.WithoutCancel(ctx)

	switch intent.Type {
	case intentRefresh:
		run(func() { s.refreshCommentPanel(ctx, c, panel) })

	case intentSort:
		var p struct {
			Sort string `json:"sort"`
		}
		if err := decodePayload(intent.Payload, &p); err != nil {
			sendNotice(c, models.NewValidationError("Invalid sort payload"))
			return
		}
		panel.SetSort(service.ParseSortMode(p.Sort))

	case intentToggleReaction:
		var p struct {
			CommentID uint `json:"comment_id"`
			WasLiked  bool `json:"was_liked"`
		}
		if err := decodePayload(intent.Payload, &p); err != nil || p.CommentID == 0 {
			sendNotice(c, models.NewValidationError("Invalid reaction payload"))
			return
		}
		run(func() { panel.ToggleReaction(writeCtx, p.CommentID, p.WasLiked) })

	case intentDelete:
		var p struct {
			CommentID uint `json:"comment_id"`
		}
		if err := decodePayload(intent.Payload, &p); err != nil || p.CommentID == 0 {
			sendNotice(c, models.NewValidationError("Invalid delete payload"))
			return
		}
		run(func() {
			if err := panel.DeleteComment(writeCtx, p.CommentID); err != nil {
				sendNotice(c, err)
			}
		})

	case intentPost:
		var p struct {
			Content string `json:"content"`
		}
		if err := decodePayload(intent.Payload, &p); err != nil {
			sendNotice(c, models.NewValidationError("Invalid comment payload"))
			return
		}
		if c.ViewerID != "" {
			allowed, _ := middleware.CheckRateLimit(ctx, s.redis, "create_comment", "viewer:"+c.ViewerID, 10, time.Minute)
			if !allowed {
				sendNotice(c, models.NewValidationError("Rate limit exceeded. Please wait a moment."))
				return
			}
		}
		run(func() {
			if err := panel.PostComment(writeCtx, p.Content); err != nil {
				sendNotice(c, err)
			}
		})

	default:
		sendNotice(c, models.NewValidationError("Unknown message type"))
	}
}

// TimelineSocket serves GET /api/ws/timeline with one timeline session per
// connection.
func (s *Server) TimelineSocket() fiber.Handler {
	return websocket.New(func(conn *websocket.Conn) {
		viewer := socketViewer(conn)
		viewerID, _ := models.ViewerID(viewer)
		ctx, cancel := context.WithCancel(s.baseContext())
		defer cancel()
		if viewerID != "" {
			ctx = context.WithValue(ctx, middleware.ViewerIDKey, viewerID)
		}

		session := service.NewTimelineSession(s.postRepo, service.FixedViewer(viewer), s.publisher(), socketLocale(conn), s.timelineOptions())
		defer session.Close()

		client, err := s.timelineHub.Register(conn, notifications.TimelineChannel, viewerID, session.ID())
		if err != nil {
			rejectSocket(conn, err)
			return
		}

		wsLog := observability.NewWSLogger(s.timelineHub.Name())
		wsLog.LogConnect(ctx, viewerID, session.ID())
		defer wsLog.LogDisconnect(ctx, viewerID, session.ID(), "closed")

		session.Subscribe(func(st service.TimelineState) {
			sendMessage(client, messageState, timelineState(st))
		})
		client.OnChange = func(notifications.ChangeEvent) {
			go s.refreshTimeline(ctx, client, session)
		}
		client.IncomingHandler = func(c *notifications.Client, message []byte) {
			s.handleTimelineIntent(ctx, c, session, wsLog, message)
		}

		go client.WritePump()
		go s.refreshTimeline(ctx, client, session)
		client.ReadPump()
	})
}

func (s *Server) refreshTimeline(ctx context.Context, c *notifications.Client, session *service.TimelineSession) {
	if err := session.FetchPosts(ctx); err != nil {
		sendNotice(c, err)
	}
}

func (s *Server) handleTimelineIntent(
	ctx context.Context, c *notifications.Client, session *service.TimelineSession, wsLog *observability.WSLogger, message []byte,
) {
	var intent panelIntent
	if err := json.Unmarshal(message, &intent); err != nil {
		sendNotice(c, models.NewValidationError("Invalid message format"))
		return
	}
	wsLog.LogMessage(ctx, session.ID(), intent.Type)

	ctx, span := observability.GetTraceLayer().TraceWebSocket(ctx, s.timelineHub.Name(), intent.Type)
	run, done := spanWork(span)
	defer done()

	switch intent.Type {
	case intentRefresh:
		run(func() { s.refreshTimeline(ctx, c, session) })

	case intentToggleLike:
		var p struct {
			PostID   uint `json:"post_id"`
			WasLiked bool `json:"was_liked"`
		}
		if err := decodePayload(intent.Payload, &p); err != nil || p.PostID == 0 {
			sendNotice(c, models.NewValidationError("Invalid like payload"))
			return
		}
		run(func() { session.ToggleLike(context.WithoutCancel(ctx), p.PostID, p.WasLiked) })

	default:
		sendNotice(c, models.NewValidationError("Unknown message type"))
	}
}
