package shocklet

import (
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"
)

// StreamConfig configures the detection event stream.
type StreamConfig struct {
	// BufferSize is the channel buffer size per subscription.
	BufferSize int
	// WriteTimeout for WebSocket writes.
	WriteTimeout time.Duration
}

// DefaultStreamConfig returns default streaming configuration.
func DefaultStreamConfig() StreamConfig {
	return StreamConfig{
		BufferSize:   256,
		WriteTimeout: 10 * time.Second,
	}
}

// DetectionEvent is published once per detected window.
type DetectionEvent struct {
	Series string  `json:"series"`
	Row    int     `json:"row"`
	Window Window  `json:"window"`
	Weight float64 `json:"weight"`
	Peak   int     `json:"peak"`
	Time   int64   `json:"time"`
}

// EventSub is an active event subscription.
type EventSub struct {
	ID     string
	ch     chan DetectionEvent
	done   chan struct{}
	closed bool
	mu     sync.Mutex
}

// C returns the channel for receiving events.
func (s *EventSub) C() <-chan DetectionEvent { return s.ch }

// Close closes the subscription.
func (s *EventSub) Close() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return
	}
	s.closed = true
	close(s.done)
	close(s.ch)
}

// EventHub fans detection events out to subscribers. Slow subscribers drop
// events rather than blocking the publisher.
type EventHub struct {
	config StreamConfig
	mu     sync.RWMutex
	subs   map[string]*EventSub
	nextID uint64
}

// NewEventHub creates an event hub.
func NewEventHub(cfg StreamConfig) *EventHub {
	if cfg.BufferSize <= 0 {
		cfg.BufferSize = 256
	}
	if cfg.WriteTimeout <= 0 {
		cfg.WriteTimeout = 10 * time.Second
	}
	return &EventHub{config: cfg, subs: make(map[string]*EventSub)}
}

// Subscribe registers a new subscriber.
func (h *EventHub) Subscribe() *EventSub {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.nextID++
	sub := &EventSub{
		ID:   fmt.Sprintf("sub-%d", h.nextID),
		ch:   make(chan DetectionEvent, h.config.BufferSize),
		done: make(chan struct{}),
	}
	h.subs[sub.ID] = sub
	return sub
}

// Unsubscribe removes a subscriber.
func (h *EventHub) Unsubscribe(id string) {
	h.mu.Lock()
	sub, ok := h.subs[id]
	if ok {
		delete(h.subs, id)
	}
	h.mu.Unlock()
	if ok {
		sub.Close()
	}
}

// Publish delivers an event to every subscriber without blocking.
func (h *EventHub) Publish(ev DetectionEvent) {
	h.mu.RLock()
	defer h.mu.RUnlock()
	for _, sub := range h.subs {
		sub.mu.Lock()
		if !sub.closed {
			select {
			case sub.ch <- ev:
			default:
			}
		}
		sub.mu.Unlock()
	}
}

// SubscriberCount returns the number of active subscribers.
func (h *EventHub) SubscriberCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.subs)
}

var streamUpgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 4096,
	CheckOrigin:     func(*http.Request) bool { return true },
}

// ServeHTTP upgrades the connection and streams detection events as JSON
// messages until the client disconnects.
func (h *EventHub) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	conn, err := streamUpgrader.Upgrade(w, r, nil)
	if err != nil {
		return
	}
	sub := h.Subscribe()
	defer h.Unsubscribe(sub.ID)
	defer conn.Close()

	// Drain client control frames so pongs and close frames are processed.
	go func() {
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				sub.Close()
				return
			}
		}
	}()

	for ev := range sub.C() {
		conn.SetWriteDeadline(time.Now().Add(h.config.WriteTimeout))
		if err := conn.WriteJSON(ev); err != nil {
			return
		}
	}
}
