package notification

import (
	"context"

	"github.com/rs/zerolog"
)

// Template identifiers known to the mail provider
const (
	TemplateGroupInvitation = "group-invitation"
)

// EmailSender delivers a templated email. Implementations are best-effort;
// the core logs failures and moves on.
type EmailSender interface {
	SendTemplated(ctx context.Context, to, subject, templateID string, vars map[string]string) error
}

// LogEmailSender writes emails to the log instead of sending them. Default
// backend for development and tests.
type LogEmailSender struct {
	log zerolog.Logger
}

func NewLogEmailSender(log zerolog.Logger) *LogEmailSender {
	return &LogEmailSender{log: log}
}

func (s *LogEmailSender) SendTemplated(_ context.Context, to, subject, templateID string, vars map[string]string) error {
	s.log.Info().
		Str("to", to).
		Str("subject", subject).
		Str("template", templateID).
		Interface("vars", vars).
		Msg("email (not sent, log backend)")

	return nil
}
