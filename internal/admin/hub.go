// Package admin serves a read-only operator dashboard: a JSON list
// of live sessions and a websocket feed of session lifecycle and
// console-speak events, grounded on the teacher's Hub+subscriber+
// websocket-upgrade pattern but read-only and decoupled from any game
// loop — admin never reaches into a Session's internals directly, only
// through the Registry's externally-synchronized snapshot methods and
// the event feed the session publishes to.
package admin

import (
	"context"
	"strconv"
	"sync"

	"github.com/gorilla/websocket"

	"uoproxy/logging"
)

// subscriber is one connected dashboard websocket client.
type subscriber struct {
	conn *websocket.Conn
	mu   sync.Mutex
}

func (s *subscriber) send(v any) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.conn.WriteJSON(v)
}

// Hub fans admin-relevant log events out to every connected dashboard
// websocket, mirroring the teacher's subscribers-map broadcast pattern.
type Hub struct {
	mu          sync.Mutex
	subscribers map[string]*subscriber
	nextID      int
}

// NewHub constructs an empty admin broadcast hub.
func NewHub() *Hub {
	return &Hub{subscribers: make(map[string]*subscriber)}
}

// Join registers a new dashboard websocket connection.
func (h *Hub) Join(conn *websocket.Conn) string {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.nextID++
	id := "dash-" + strconv.Itoa(h.nextID)
	h.subscribers[id] = &subscriber{conn: conn}
	return id
}

// Leave unregisters and closes a dashboard websocket connection.
func (h *Hub) Leave(id string) {
	h.mu.Lock()
	sub, ok := h.subscribers[id]
	delete(h.subscribers, id)
	h.mu.Unlock()
	if ok {
		sub.conn.Close()
	}
}

// Sink adapts the hub into a logging.Sink so it can be registered as
// one more named sink on the router, alongside console/json/logrus.
type Sink struct {
	hub *Hub
}

// AsSink wraps the hub as a router-attachable sink.
func (h *Hub) AsSink() *Sink { return &Sink{hub: h} }

func (s *Sink) Write(event logging.Event) error {
	s.hub.Publish(context.Background(), event)
	return nil
}

func (s *Sink) Close(context.Context) error { return nil }

// Publish implements logging.Publisher: every event the session
// router emits is offered to admin's broadcast hub, which relays it
// to every connected dashboard client as JSON. Admin only observes;
// it never mutates a session.
func (h *Hub) Publish(_ context.Context, event logging.Event) {
	h.mu.Lock()
	subs := make([]*subscriber, 0, len(h.subscribers))
	ids := make([]string, 0, len(h.subscribers))
	for id, sub := range h.subscribers {
		subs = append(subs, sub)
		ids = append(ids, id)
	}
	h.mu.Unlock()

	for i, sub := range subs {
		if err := sub.send(event); err != nil {
			h.Leave(ids[i])
		}
	}
}
