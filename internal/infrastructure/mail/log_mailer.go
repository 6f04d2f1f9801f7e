// Package mail holds the outbound message sender.
package mail

import (
	"context"

	"github.com/rs/zerolog"

	"github.com/homeowner/portal/internal/core/domain"
)

// LogMailer writes outbound messages to the log instead of delivering them.
// In development the confirmation and reset links are read from here.
type LogMailer struct {
	log zerolog.Logger
}

func NewLogMailer(log zerolog.Logger) *LogMailer {
	return &LogMailer{log: log.With().Str("component", "mailer").Logger()}
}

func (m *LogMailer) Send(_ context.Context, msg domain.Message) error {
	m.log.Info().
		Str("to", msg.To).
		Str("subject", msg.Subject).
		Str("body", msg.Body).
		Msg("outbound email")
	return nil
}
