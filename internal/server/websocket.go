// Copyright (C) 2026 Noldarim
// SPDX-License-Identifier: AGPL-3.0-or-later

package server

import (
	"encoding/json"
	"net/http"
	"slices"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/noldarim/navlink/internal/protocol"
	"github.com/noldarim/navlink/internal/route"
)

const (
	maxInboundSize  = 4096
	maxFilters      = 50
	maxSubscribers  = 1000
	subscriberQueue = 64

	pongWait   = 60 * time.Second
	pingPeriod = pongWait * 9 / 10
	writeWait  = 10 * time.Second
)

// Envelope types sent to subscribers.
const (
	msgSnapshot     = "snapshot"
	msgEvent        = "event"
	msgSubscribed   = "subscribed"
	msgUnsubscribed = "unsubscribed"
	msgError        = "error"
)

// SubscriptionFilter selects navigator events. Events lists wire names (see
// protocol.EventName); Kinds lists screen kinds and only constrains events
// that name a screen, which are stack_changed (by top entry) and
// screen_presented. Empty lists match everything.
type SubscriptionFilter struct {
	Events []string     `json:"events,omitempty"`
	Kinds  []route.Kind `json:"kinds,omitempty"`
}

func (f SubscriptionFilter) matches(name string, kind route.Kind) bool {
	if len(f.Events) > 0 && !slices.Contains(f.Events, name) {
		return false
	}
	return kind == "" || len(f.Kinds) == 0 || slices.Contains(f.Kinds, kind)
}

func (f SubscriptionFilter) equal(o SubscriptionFilter) bool {
	return slices.Equal(f.Events, o.Events) && slices.Equal(f.Kinds, o.Kinds)
}

// screenKindOf returns the screen an event is about, or "".
func screenKindOf(event protocol.Event) route.Kind {
	switch e := event.(type) {
	case protocol.StackChangedEvent:
		if top, ok := e.Snapshot.Top(); ok {
			return top.Kind
		}
	case protocol.ScreenPresentedEvent:
		return e.Entry.Kind
	}
	return ""
}

// inbound is a subscriber control message.
type inbound struct {
	Type    string             `json:"type"` // "subscribe" or "unsubscribe"
	Filters SubscriptionFilter `json:"filters"`
}

// outbound is the envelope of everything written to a subscriber.
type outbound struct {
	Type      string `json:"type"`
	EventType string `json:"event_type,omitempty"`
	Payload   any    `json:"payload,omitempty"`
	Message   string `json:"message,omitempty"`
}

type subscriber struct {
	conn  *websocket.Conn
	queue chan []byte

	mu      sync.RWMutex
	filters []SubscriptionFilter
}

func (s *subscriber) wants(name string, kind route.Kind) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if len(s.filters) == 0 {
		return true
	}
	return slices.ContainsFunc(s.filters, func(f SubscriptionFilter) bool {
		return f.matches(name, kind)
	})
}

// enqueue drops the message when the subscriber is not keeping up.
func (s *subscriber) enqueue(data []byte) bool {
	select {
	case s.queue <- data:
		return true
	default:
		return false
	}
}

// Hub tracks websocket subscribers and fans navigator events out to them.
type Hub struct {
	mu          sync.RWMutex
	subscribers map[*subscriber]struct{}
}

func NewHub() *Hub {
	return &Hub{subscribers: make(map[*subscriber]struct{})}
}

// Len returns the number of connected subscribers.
func (h *Hub) Len() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.subscribers)
}

// Broadcast encodes event once and queues it for every subscriber whose
// filters accept it.
func (h *Hub) Broadcast(event protocol.Event) {
	name := protocol.EventName(event)
	data, err := json.Marshal(outbound{Type: msgEvent, EventType: name, Payload: event})
	if err != nil {
		getLog().Error().Err(err).Str("event", name).Msg("Failed to encode event for subscribers")
		return
	}
	kind := screenKindOf(event)

	h.mu.RLock()
	defer h.mu.RUnlock()
	for s := range h.subscribers {
		if s.wants(name, kind) && !s.enqueue(data) {
			getLog().Warn().Str("event", name).Msg("Subscriber queue full, dropping event")
		}
	}
}

func (h *Hub) join(s *subscriber) bool {
	h.mu.Lock()
	defer h.mu.Unlock()
	if len(h.subscribers) >= maxSubscribers {
		return false
	}
	h.subscribers[s] = struct{}{}
	return true
}

func (h *Hub) leave(s *subscriber) {
	h.mu.Lock()
	delete(h.subscribers, s)
	h.mu.Unlock()
}

func checkOrigin(allowedOrigins []string) func(*http.Request) bool {
	if len(allowedOrigins) == 0 {
		return func(*http.Request) bool { return true }
	}
	return func(r *http.Request) bool {
		return slices.Contains(allowedOrigins, r.Header.Get("Origin"))
	}
}

// HandleWebSocket upgrades the connection, sends the current stack snapshot
// and then streams navigator events until the client goes away.
func HandleWebSocket(hub *Hub, stack StackReader, allowedOrigins []string) http.HandlerFunc {
	upgrader := websocket.Upgrader{CheckOrigin: checkOrigin(allowedOrigins)}

	return func(w http.ResponseWriter, r *http.Request) {
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			getLog().Warn().Err(err).Msg("WebSocket upgrade failed")
			return
		}

		s := &subscriber{conn: conn, queue: make(chan []byte, subscriberQueue)}
		if !hub.join(s) {
			getLog().Warn().Int("limit", maxSubscribers).Msg("Rejecting subscriber, limit reached")
			_ = conn.WriteControl(websocket.CloseMessage,
				websocket.FormatCloseMessage(websocket.CloseTryAgainLater, "too many subscribers"),
				time.Now().Add(writeWait))
			conn.Close()
			return
		}
		getLog().Info().Str("remote", r.RemoteAddr).Str("request_id", GetRequestID(r.Context())).Msg("Subscriber connected")

		s.reply(outbound{Type: msgSnapshot, Payload: stack.Snapshot()})

		go s.writeLoop()
		s.readLoop(hub)
	}
}

func (s *subscriber) reply(msg outbound) {
	data, err := json.Marshal(msg)
	if err != nil {
		getLog().Error().Err(err).Str("type", msg.Type).Msg("Failed to encode subscriber reply")
		return
	}
	if !s.enqueue(data) {
		getLog().Warn().Str("type", msg.Type).Msg("Subscriber queue full, dropping reply")
	}
}

func (s *subscriber) readLoop(hub *Hub) {
	defer func() {
		hub.leave(s)
		close(s.queue)
		s.conn.Close()
		getLog().Info().Msg("Subscriber disconnected")
	}()

	s.conn.SetReadLimit(maxInboundSize)
	_ = s.conn.SetReadDeadline(time.Now().Add(pongWait))
	s.conn.SetPongHandler(func(string) error {
		return s.conn.SetReadDeadline(time.Now().Add(pongWait))
	})

	for {
		_, data, err := s.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				getLog().Warn().Err(err).Msg("Subscriber read failed")
			}
			return
		}

		var msg inbound
		if err := json.Unmarshal(data, &msg); err != nil {
			s.reply(outbound{Type: msgError, Message: "invalid control message"})
			continue
		}
		s.reply(s.apply(msg))
	}
}

// apply updates the filters for a control message and returns the answer.
func (s *subscriber) apply(msg inbound) outbound {
	s.mu.Lock()
	defer s.mu.Unlock()

	switch msg.Type {
	case "subscribe":
		if len(s.filters) >= maxFilters {
			return outbound{Type: msgError, Message: "too many filters"}
		}
		s.filters = append(s.filters, msg.Filters)
		getLog().Debug().Strs("events", msg.Filters.Events).Int("kinds", len(msg.Filters.Kinds)).Msg("Subscriber added filter")
		return outbound{Type: msgSubscribed, Payload: s.filters}
	case "unsubscribe":
		s.filters = slices.DeleteFunc(s.filters, msg.Filters.equal)
		return outbound{Type: msgUnsubscribed, Payload: s.filters}
	default:
		return outbound{Type: msgError, Message: "unknown control message type " + msg.Type}
	}
}

func (s *subscriber) writeLoop() {
	ticker := time.NewTicker(pingPeriod)
	defer ticker.Stop()

	for {
		select {
		case data, ok := <-s.queue:
			_ = s.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				_ = s.conn.WriteMessage(websocket.CloseMessage, nil)
				return
			}
			if err := s.conn.WriteMessage(websocket.TextMessage, data); err != nil {
				getLog().Warn().Err(err).Msg("Subscriber write failed")
				return
			}
		case <-ticker.C:
			_ = s.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := s.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}
