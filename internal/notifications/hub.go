package notifications

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"sync"

	"catspot/internal/observability"

	"github.com/gofiber/websocket/v2"
)

const (
	// Max open panels per signed-in viewer
	maxConnsPerViewer = 12
	// Max total connections
	maxTotalConns = 10000
)

var (
	ErrServerFull = errors.New("server connection limit reached")
	ErrViewerFull = errors.New("viewer connection limit reached")
)

// PanelHub tracks open panels by topic channel and forwards change events
// from other panels to them.
type PanelHub struct {
	name string

	mu         sync.RWMutex
	topics     map[string]map[*Client]struct{}
	perViewer  map[string]int
	totalConns int
}

// NewPanelHub creates an empty hub. name labels metrics and logs.
func NewPanelHub(name string) *PanelHub {
	return &PanelHub{
		name:      name,
		topics:    make(map[string]map[*Client]struct{}),
		perViewer: make(map[string]int),
	}
}

// Name returns a human-readable identifier for this hub.
func (h *PanelHub) Name() string { return h.name }

// Register adds a panel connection listening on topic.
func (h *PanelHub) Register(conn *websocket.Conn, topic, viewerID, panelID string) (*Client, error) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if h.totalConns >= maxTotalConns {
		return nil, ErrServerFull
	}
	if viewerID != "" && h.perViewer[viewerID] >= maxConnsPerViewer {
		return nil, ErrViewerFull
	}

	client := NewClient(h, conn, topic, viewerID, panelID)
	m, ok := h.topics[topic]
	if !ok {
		m = make(map[*Client]struct{})
		h.topics[topic] = m
	}
	m[client] = struct{}{}
	if viewerID != "" {
		h.perViewer[viewerID]++
	}
	h.totalConns++
	observability.ActiveWebSockets.WithLabelValues(h.name).Inc()
	return client, nil
}

// UnregisterClient removes a client. Calling it twice is safe.
func (h *PanelHub) UnregisterClient(client *Client) {
	h.mu.Lock()
	defer h.mu.Unlock()

	m, ok := h.topics[client.Topic]
	if !ok {
		return
	}
	if _, exists := m[client]; !exists {
		return
	}
	delete(m, client)
	if len(m) == 0 {
		delete(h.topics, client.Topic)
	}
	if client.ViewerID != "" {
		h.perViewer[client.ViewerID]--
		if h.perViewer[client.ViewerID] <= 0 {
			delete(h.perViewer, client.ViewerID)
		}
	}
	h.totalConns--
	observability.ActiveWebSockets.WithLabelValues(h.name).Dec()
}

// Count returns the number of panels listening on topic.
func (h *PanelHub) Count(topic string) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.topics[topic])
}

// Dispatch delivers one pub/sub message to every panel on channel except the
// one that caused it.
func (h *PanelHub) Dispatch(channel, payload string) {
	var ev ChangeEvent
	if err := json.Unmarshal([]byte(payload), &ev); err != nil {
		observability.GlobalLogger.Warn("invalid change event",
			slog.String("hub", h.name),
			slog.String("channel", channel),
			slog.String("error", err.Error()),
		)
		return
	}

	h.mu.RLock()
	targets := make([]*Client, 0, len(h.topics[channel]))
	for c := range h.topics[channel] {
		if ev.Origin != "" && c.PanelID == ev.Origin {
			continue
		}
		targets = append(targets, c)
	}
	h.mu.RUnlock()

	for _, c := range targets {
		if c.OnChange != nil {
			c.OnChange(ev)
		}
	}
}

// StartWiring connects the Notifier to this hub.
func (h *PanelHub) StartWiring(ctx context.Context, n *Notifier) error {
	return n.StartPanelSubscriber(ctx, h.Dispatch)
}

// Shutdown gracefully closes all websocket connections
func (h *PanelHub) Shutdown(_ context.Context) error {
	h.mu.Lock()
	defer h.mu.Unlock()

	for _, clients := range h.topics {
		for client := range clients {
			if client.Conn == nil {
				continue
			}
			if err := client.Conn.WriteMessage(websocket.CloseMessage,
				websocket.FormatCloseMessage(websocket.CloseGoingAway, "Server shutting down")); err != nil {
				observability.GlobalLogger.Warn("failed to write close message",
					slog.String("panel_id", client.PanelID),
					slog.String("error", err.Error()),
				)
			}
			_ = client.Conn.Close()
		}
	}
	h.topics = make(map[string]map[*Client]struct{})
	h.perViewer = make(map[string]int)
	observability.ActiveWebSockets.WithLabelValues(h.name).Sub(float64(h.totalConns))
	h.totalConns = 0
	return nil
}
