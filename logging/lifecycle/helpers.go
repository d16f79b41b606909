package lifecycle

import (
	"context"

	"uoproxy/logging"
)

const (
	// EventSessionAttached is emitted when a downstream client attaches
	// to a session, whether newly created or pre-existing.
	EventSessionAttached logging.EventType = "lifecycle.session_attached"
	// EventSessionTornDown is emitted when a session is destroyed.
	EventSessionTornDown logging.EventType = "lifecycle.session_torn_down"
	// EventDownstreamDisposed is emitted when a downstream endpoint is
	// disposed, whatever its prior state.
	EventDownstreamDisposed logging.EventType = "lifecycle.downstream_disposed"
)

// SessionAttachedPayload captures how a downstream joined a session.
type SessionAttachedPayload struct {
	NewSession      bool   `json:"newSession"`
	ServerIndex     int    `json:"serverIndex"`
	CharacterIndex  int    `json:"characterIndex"`
}

// SessionTornDownPayload captures why a session ended.
type SessionTornDownPayload struct {
	Reason string `json:"reason"`
}

// DownstreamDisposedPayload captures why an endpoint was dropped.
type DownstreamDisposedPayload struct {
	Reason string `json:"reason"`
}

func SessionAttached(ctx context.Context, pub logging.Publisher, actor logging.EntityRef, payload SessionAttachedPayload) {
	if pub == nil {
		return
	}
	pub.Publish(ctx, logging.Event{
		Type:     EventSessionAttached,
		Actor:    actor,
		Severity: logging.SeverityInfo,
		Category: logging.CategoryAttach,
		Payload:  payload,
	})
}

func SessionTornDown(ctx context.Context, pub logging.Publisher, actor logging.EntityRef, payload SessionTornDownPayload) {
	if pub == nil {
		return
	}
	pub.Publish(ctx, logging.Event{
		Type:     EventSessionTornDown,
		Actor:    actor,
		Severity: logging.SeverityInfo,
		Category: logging.CategorySession,
		Payload:  payload,
	})
}

func DownstreamDisposed(ctx context.Context, pub logging.Publisher, actor logging.EntityRef, payload DownstreamDisposedPayload) {
	if pub == nil {
		return
	}
	pub.Publish(ctx, logging.Event{
		Type:     EventDownstreamDisposed,
		Actor:    actor,
		Severity: logging.SeverityInfo,
		Category: logging.CategorySession,
		Payload:  payload,
	})
}
