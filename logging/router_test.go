package logging_test

import (
	"context"
	"testing"
	"time"

	"uoproxy/logging"
	"uoproxy/logging/sinks"
)

func TestRouterAppliesCategorySeverityOverride(t *testing.T) {
	cfg := logging.DefaultConfig()
	cfg.MinimumSeverity = logging.SeverityError
	cfg.CategorySeverity = map[string]logging.Severity{logging.CategoryProtocol: logging.SeverityDebug}

	mem := sinks.NewMemorySink()
	router, err := logging.NewRouter(logging.ClockFunc(time.Now), cfg, []logging.NamedSink{{Name: "memory", Sink: mem}})
	if err != nil {
		t.Fatalf("NewRouter: %v", err)
	}
	defer router.Close(context.Background())

	router.Publish(context.Background(), logging.Event{Type: "session.malformed_packet", Severity: logging.SeverityWarn, Category: logging.CategoryProtocol})
	router.Publish(context.Background(), logging.Event{Type: "session.broadcast_failed", Severity: logging.SeverityWarn, Category: logging.CategorySession})

	waitFor(t, func() bool { return len(mem.Events()) == 1 })

	events := mem.Events()
	if len(events) != 1 || events[0].Type != "session.malformed_packet" {
		t.Fatalf("expected only the protocol event to pass the override, got %+v", events)
	}
}

func TestRouterFallsBackToMinimumSeverityOutsideOverride(t *testing.T) {
	cfg := logging.DefaultConfig()
	cfg.MinimumSeverity = logging.SeverityInfo
	cfg.CategorySeverity = nil

	mem := sinks.NewMemorySink()
	router, err := logging.NewRouter(logging.ClockFunc(time.Now), cfg, []logging.NamedSink{{Name: "memory", Sink: mem}})
	if err != nil {
		t.Fatalf("NewRouter: %v", err)
	}
	defer router.Close(context.Background())

	router.Publish(context.Background(), logging.Event{Type: "session.attach", Severity: logging.SeverityDebug, Category: logging.CategoryAttach})
	router.Publish(context.Background(), logging.Event{Type: "session.endpoint_zombified", Severity: logging.SeverityInfo, Category: logging.CategoryAttach})

	waitFor(t, func() bool { return len(mem.Events()) == 1 })

	events := mem.Events()
	if len(events) != 1 || events[0].Type != "session.endpoint_zombified" {
		t.Fatalf("expected only the info-or-above event to pass, got %+v", events)
	}
}

func waitFor(t *testing.T, cond func() bool) {
	deadline := time.Now().Add(time.Second)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(time.Millisecond)
	}
	t.Fatal("condition never became true")
}
