package admin

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"uoproxy/internal/session"
)

type fakeUpstream struct{}

func (fakeUpstream) Send([]byte) error { return nil }
func (fakeUpstream) Close() error      { return nil }

func TestHandleSessionsListsRegisteredSessions(t *testing.T) {
	reg := session.NewRegistry()
	key := session.Key{Username: "alice", ServerIndex: 0, CharacterIndex: 1}
	reg.Put(session.New(key, 7, fakeUpstream{}, nil))

	srv := NewServer(reg, NewHub())
	ts := httptest.NewServer(srv.Handler())
	defer ts.Close()

	resp, err := http.Get(ts.URL + "/api/sessions")
	if err != nil {
		t.Fatalf("GET /api/sessions: %v", err)
	}
	defer resp.Body.Close()

	var summaries []SessionSummary
	if err := json.NewDecoder(resp.Body).Decode(&summaries); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(summaries) != 1 || summaries[0].Username != "alice" {
		t.Fatalf("unexpected summaries: %+v", summaries)
	}
}

func TestHandleSessionsEmptyRegistry(t *testing.T) {
	srv := NewServer(session.NewRegistry(), NewHub())
	ts := httptest.NewServer(srv.Handler())
	defer ts.Close()

	resp, err := http.Get(ts.URL + "/api/sessions")
	if err != nil {
		t.Fatalf("GET /api/sessions: %v", err)
	}
	defer resp.Body.Close()

	var summaries []SessionSummary
	if err := json.NewDecoder(resp.Body).Decode(&summaries); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(summaries) != 0 {
		t.Fatalf("expected empty list, got %+v", summaries)
	}
}
