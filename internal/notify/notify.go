// Package notify carries shopper-facing messages produced by cart operations.
package notify

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

// Severity classifies a notification.
type Severity string

const (
	SeverityError   Severity = "error"
	SeveritySuccess Severity = "success"
	SeverityWarning Severity = "warning"
)

// Notification is one message shown to a shopper.
type Notification struct {
	ID        string    `json:"id"`
	Message   string    `json:"message"`
	Type      Severity  `json:"type"`
	CreatedAt time.Time `json:"createdAt"`
}

// Sink receives notifications for a single audience.
type Sink interface {
	Notify(ctx context.Context, message string, severity Severity)
}

// SinkFunc adapts a function to Sink.
type SinkFunc func(ctx context.Context, message string, severity Severity)

// Notify implements Sink.
func (f SinkFunc) Notify(ctx context.Context, message string, severity Severity) {
	f(ctx, message, severity)
}

// Multi fans a notification out to every sink.
type Multi []Sink

// Notify implements Sink.
func (m Multi) Notify(ctx context.Context, message string, severity Severity) {
	for _, s := range m {
		if s != nil {
			s.Notify(ctx, message, severity)
		}
	}
}

// LogSink writes notifications to the structured log.
type LogSink struct {
	Logger    zerolog.Logger
	SessionID string
}

// Notify implements Sink.
func (l LogSink) Notify(_ context.Context, message string, severity Severity) {
	ev := l.Logger.Info()
	if severity == SeverityError {
		ev = l.Logger.Warn()
	}
	ev.Str("session_id", l.SessionID).Str("severity", string(severity)).Msg(message)
}

func newNotification(message string, severity Severity, now time.Time) Notification {
	return Notification{ID: uuid.NewString(), Message: message, Type: severity, CreatedAt: now.UTC()}
}
