package sinks

import (
	"context"

	"github.com/sirupsen/logrus"

	"uoproxy/logging"
)

// Logrus adapts logging.Event into structured logrus fields, for
// operators who already pipe logrus output into an existing
// aggregator and don't want a second JSON format on the wire.
type Logrus struct {
	entry *logrus.Entry
}

// NewLogrus wraps a configured logrus.Logger as a sink.
func NewLogrus(logger *logrus.Logger) *Logrus {
	if logger == nil {
		logger = logrus.New()
	}
	return &Logrus{entry: logrus.NewEntry(logger)}
}

func (s *Logrus) Write(event logging.Event) error {
	fields := logrus.Fields{
		"type":     event.Type,
		"actor":    formatEntity(event.Actor),
		"category": event.Category,
	}
	if event.Payload != nil {
		fields["payload"] = event.Payload
	}
	if len(event.Targets) > 0 {
		fields["targets"] = formatTargets(event.Targets)
	}
	if event.TraceID != "" {
		fields["traceId"] = event.TraceID
	}
	if event.CommandID != "" {
		fields["commandId"] = event.CommandID
	}
	entry := s.entry.WithFields(fields)
	if !event.Time.IsZero() {
		entry = entry.WithTime(event.Time)
	}
	switch event.Severity {
	case logging.SeverityDebug:
		entry.Debug("event")
	case logging.SeverityWarn:
		entry.Warn("event")
	case logging.SeverityError:
		entry.Error("event")
	default:
		entry.Info("event")
	}
	return nil
}

func (s *Logrus) Close(context.Context) error {
	return nil
}
