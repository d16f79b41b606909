package network

import (
	"context"

	"uoproxy/logging"
)

const (
	// EventAckAdvanced is emitted when the upstream server acknowledges a
	// walk seq newer than previously recorded.
	EventAckAdvanced logging.EventType = "network.ack_advanced"
	// EventAckRegression is emitted when a walk ack arrives for a seq
	// older than the one already recorded as acknowledged.
	EventAckRegression logging.EventType = "network.ack_regression"
)

// AckPayload captures acknowledgement progression details.
type AckPayload struct {
	Previous uint64 `json:"previous"`
	Ack      uint64 `json:"ack"`
}

// AckAdvanced publishes a debug event when a client acknowledgement advances.
func AckAdvanced(ctx context.Context, pub logging.Publisher, actor logging.EntityRef, payload AckPayload, extra map[string]any) {
	if pub == nil {
		return
	}
	event := logging.Event{
		Type:     EventAckAdvanced,
		Actor:    actor,
		Severity: logging.SeverityDebug,
		Category: logging.CategoryWalk,
		Payload:  payload,
		Extra:    extra,
	}
	pub.Publish(ctx, event)
}

// AckRegression publishes a warning event when a client acknowledgement regresses.
func AckRegression(ctx context.Context, pub logging.Publisher, actor logging.EntityRef, payload AckPayload, extra map[string]any) {
	if pub == nil {
		return
	}
	event := logging.Event{
		Type:     EventAckRegression,
		Actor:    actor,
		Severity: logging.SeverityWarn,
		Category: logging.CategoryWalk,
		Payload:  payload,
		Extra:    extra,
	}
	pub.Publish(ctx, event)
}
