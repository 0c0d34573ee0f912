// Package notifications fans committed writes out to open panels through
// Redis pub/sub and manages the panel websocket connections.
package notifications

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"runtime/debug"
	"strconv"
	"strings"
	"time"

	"catspot/internal/observability"

	"github.com/redis/go-redis/v9"
)

const (
	commentChannelPrefix = "comments:post:"
	// TimelineChannel carries every change that affects the timeline.
	TimelineChannel = "posts:timeline"
)

// ChangeEvent is published after a write the store accepted.
type ChangeEvent struct {
	Kind   string    `json:"kind"`
	PostID uint      `json:"post_id"`
	Origin string    `json:"origin,omitempty"`
	At     time.Time `json:"at"`
}

// Notifier provides helpers to publish change events into Redis channels
type Notifier struct {
	rdb *redis.Client
}

// NewNotifier creates a new Notifier instance using the provided Redis client.
func NewNotifier(rdb *redis.Client) *Notifier {
	return &Notifier{rdb: rdb}
}

// Publish sends ev on channel. A nil client is a no-op.
func (n *Notifier) Publish(ctx context.Context, channel string, ev ChangeEvent) error {
	if n == nil || n.rdb == nil {
		return nil
	}
	if ev.At.IsZero() {
		ev.At = time.Now().UTC()
	}
	payload, err := json.Marshal(ev)
	if err != nil {
		return fmt.Errorf("marshal change event: %w", err)
	}
	return n.rdb.Publish(ctx, channel, payload).Err()
}

// PublishCommentChange tells comment panels of postID to refetch.
func (n *Notifier) PublishCommentChange(ctx context.Context, origin string, postID uint, kind string) {
	n.publishLogged(ctx, CommentChannel(postID), ChangeEvent{Kind: kind, PostID: postID, Origin: origin})
}

// PublishTimelineChange tells timeline sessions to refetch.
func (n *Notifier) PublishTimelineChange(ctx context.Context, origin string, postID uint, kind string) {
	n.publishLogged(ctx, TimelineChannel, ChangeEvent{Kind: kind, PostID: postID, Origin: origin})
}

func (n *Notifier) publishLogged(ctx context.Context, channel string, ev ChangeEvent) {
	if err := n.Publish(ctx, channel, ev); err != nil {
		observability.RedisErrorRate.WithLabelValues("publish").Inc()
		observability.GlobalLogger.WarnContext(ctx, "change publish failed",
			slog.String("channel", channel),
			slog.String("kind", ev.Kind),
			slog.String("error", err.Error()),
		)
	}
}

// StartPanelSubscriber subscribes to comment and timeline channels and calls
// onMessage for each incoming message until ctx is cancelled.
func (n *Notifier) StartPanelSubscriber(
	ctx context.Context, onMessage func(channel string, payload string),
) error {
	if n == nil || n.rdb == nil {
		return nil
	}
	sub := n.rdb.PSubscribe(ctx, commentChannelPrefix+"*", TimelineChannel)
	// Wait for the subscription so events published right after start are seen.
	if _, err := sub.Receive(ctx); err != nil {
		_ = sub.Close()
		return fmt.Errorf("subscribe panel channels: %w", err)
	}
	ch := sub.Channel()

	go func() {
		defer func() { _ = sub.Close() }()
		for {
			select {
			case <-ctx.Done():
				return
			case msg, ok := <-ch:
				if !ok {
					return
				}
				func() {
					defer func() {
						if r := recover(); r != nil {
							observability.GlobalLogger.Error("panic in panel subscriber",
								slog.Any("panic", r),
								slog.String("stack", string(debug.Stack())),
							)
						}
					}()
					onMessage(msg.Channel, msg.Payload)
				}()
			}
		}
	}()

	return nil
}

// CommentChannel derives the Redis channel name for a post's comments.
func CommentChannel(postID uint) string {
	return commentChannelPrefix + strconv.FormatUint(uint64(postID), 10)
}

// PostIDFromChannel parses the post id out of a comment channel name.
func PostIDFromChannel(channel string) (uint, bool) {
	raw, ok := strings.CutPrefix(channel, commentChannelPrefix)
	if !ok {
		return 0, false
	}
	id, err := strconv.ParseUint(raw, 10, 64)
	if err != nil || id == 0 {
		return 0, false
	}
	return uint(id), true
}
