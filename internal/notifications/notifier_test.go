package notifications

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNotifier_NilClientIsNoop(t *testing.T) {
	n := NewNotifier(nil)
	assert.NoError(t, n.Publish(context.Background(), TimelineChannel, ChangeEvent{Kind: "x"}))
	assert.NoError(t, n.StartPanelSubscriber(context.Background(), func(string, string) {}))
	n.PublishCommentChange(context.Background(), "", 1, "comment_created")
}

func TestCommentChannel(t *testing.T) {
	t.Parallel()
	tests := []struct {
		postID   uint
		expected string
	}{
		{1, "comments:post:1"},
		{100, "comments:post:100"},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.expected, CommentChannel(tt.postID))
		id, ok := PostIDFromChannel(tt.expected)
		assert.True(t, ok)
		assert.Equal(t, tt.postID, id)
	}

	_, ok := PostIDFromChannel(TimelineChannel)
	assert.False(t, ok)
	_, ok = PostIDFromChannel("comments:post:abc")
	assert.False(t, ok)
}

func TestNotifier_PanelSubscriberReceivesAndStopsOnCancel(t *testing.T) {
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	defer func() { _ = rdb.Close() }()

	n := NewNotifier(rdb)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	type msg struct{ channel, payload string }
	got := make(chan msg, 4)
	require.NoError(t, n.StartPanelSubscriber(ctx, func(channel, payload string) {
		got <- msg{channel, payload}
	}))

	n.PublishCommentChange(context.Background(), "panel-1", 7, "comment_created")

	select {
	case m := <-got:
		assert.Equal(t, "comments:post:7", m.channel)
		var ev ChangeEvent
		require.NoError(t, json.Unmarshal([]byte(m.payload), &ev))
		assert.Equal(t, "comment_created", ev.Kind)
		assert.Equal(t, uint(7), ev.PostID)
		assert.Equal(t, "panel-1", ev.Origin)
		assert.False(t, ev.At.IsZero())
	case <-time.After(time.Second):
		t.Fatal("no message received")
	}

	cancel()
	time.Sleep(20 * time.Millisecond)

	n.PublishTimelineChange(context.Background(), "", 7, "post_created")
	assert.Never(t, func() bool { return len(got) > 0 }, 200*time.Millisecond, 10*time.Millisecond)
}
