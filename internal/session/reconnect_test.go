package session

import (
	"context"
	"testing"
	"time"
)

func TestReconnectorPacesAttempts(t *testing.T) {
	r := NewReconnector(1000, 1, time.Minute)
	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()

	if err := r.Wait(ctx); err != nil {
		t.Fatalf("first wait: %v", err)
	}
	if r.Attempts() != 1 {
		t.Fatalf("expected 1 attempt, got %d", r.Attempts())
	}
	if err := r.Wait(ctx); err != nil {
		t.Fatalf("second wait: %v", err)
	}
	if r.Attempts() != 2 {
		t.Fatalf("expected 2 attempts, got %d", r.Attempts())
	}

	r.Reset()
	if r.Attempts() != 0 {
		t.Fatalf("expected attempts reset to 0, got %d", r.Attempts())
	}
}

func TestReconnectorDescribe(t *testing.T) {
	r := NewReconnector(1000, 1, time.Minute)
	if got := r.Describe(); got != "not reconnecting" {
		t.Fatalf("expected idle description, got %q", got)
	}
	ctx := context.Background()
	if err := r.Wait(ctx); err != nil {
		t.Fatalf("wait: %v", err)
	}
	if got := r.Describe(); got == "not reconnecting" {
		t.Fatal("expected non-idle description after an attempt")
	}
}
