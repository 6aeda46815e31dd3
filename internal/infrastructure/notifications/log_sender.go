package notifications

import (
	"context"

	"github.com/zatekoja/consultbook/internal/domain/providers"
	"github.com/zatekoja/consultbook/internal/infrastructure/observability"
)

// LogSender hands notification messages to the log stream. Actual email
// delivery is owned by a separate service consuming these records.
type LogSender struct{}

// NewLogSender creates a new log-backed notification sender
func NewLogSender() providers.NotificationSender {
	return &LogSender{}
}

// Send implements providers.NotificationSender
func (s *LogSender) Send(ctx context.Context, to, subject, body string) error {
	observability.LoggerFromContext(ctx).Info().
		Str("to", to).
		Str("subject", subject).
		Int("body_bytes", len(body)).
		Msg("notification handed off")
	return nil
}
