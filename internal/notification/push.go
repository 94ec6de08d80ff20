package notification

import (
	"context"

	"github.com/rs/zerolog"
)

// PushSender delivers a multicast push notification and reports how many
// devices it reached. Partial delivery failure is the sender's problem.
type PushSender interface {
	SendMulticast(ctx context.Context, tokens []string, title, body string, data map[string]string) (int, error)
}

// DeviceTokenSource resolves users to their registered device tokens
type DeviceTokenSource interface {
	TokensForUsers(ctx context.Context, userIDs []int64) ([]string, error)
}

// LogPushSender writes pushes to the log instead of sending them
type LogPushSender struct {
	log zerolog.Logger
}

func NewLogPushSender(log zerolog.Logger) *LogPushSender {
	return &LogPushSender{log: log}
}

func (s *LogPushSender) SendMulticast(_ context.Context, tokens []string, title, body string, data map[string]string) (int, error) {
	s.log.Info().
		Int("devices", len(tokens)).
		Str("title", title).
		Str("body", body).
		Interface("data", data).
		Msg("push (not sent, log backend)")

	return len(tokens), nil
}

// NoDeviceTokens is a token source for deployments without push registration
type NoDeviceTokens struct{}

func (NoDeviceTokens) TokensForUsers(context.Context, []int64) ([]string, error) {
	return nil, nil
}
