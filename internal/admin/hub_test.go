package admin

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gorilla/websocket"

	"uoproxy/logging"
)

func TestHubPublishReachesSubscriber(t *testing.T) {
	hub := NewHub()
	upgrader := websocket.Upgrader{}
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			t.Fatalf("upgrade: %v", err)
		}
		id := hub.Join(conn)
		defer hub.Leave(id)
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}))
	defer ts.Close()

	wsURL := "ws" + ts.URL[len("http"):]
	client, _, err := websocket.DefaultDialer.Dial(wsURL, nil)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	defer client.Close()

	time.Sleep(20 * time.Millisecond)
	hub.Publish(context.Background(), logging.Event{Type: "lifecycle.session_attached"})

	client.SetReadDeadline(time.Now().Add(2 * time.Second))
	var msg map[string]any
	if err := client.ReadJSON(&msg); err != nil {
		t.Fatalf("expected broadcast event, got error: %v", err)
	}
	if msg["type"] != "lifecycle.session_attached" {
		t.Fatalf("unexpected event payload: %+v", msg)
	}
}
