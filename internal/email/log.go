package email

import (
	"context"

	"github.com/rs/zerolog/log"
)

// LogNotifier records outgoing mail in the log instead of sending it.
type LogNotifier struct{}

func NewLogNotifier() *LogNotifier {
	return &LogNotifier{}
}

func (LogNotifier) SendPasswordReset(_ context.Context, to, _ string) error {
	log.Info().Str("to", to).Msg("email disabled, skipping password reset email")
	return nil
}

func (LogNotifier) SendWelcome(_ context.Context, to, _ string) error {
	log.Info().Str("to", to).Msg("email disabled, skipping welcome email")
	return nil
}

func (LogNotifier) SendTeamInvite(_ context.Context, to, teamName, _ string) error {
	log.Info().Str("to", to).Str("team", teamName).Msg("email disabled, skipping team invite")
	return nil
}

func (LogNotifier) SendAlert(_ context.Context, to, teamName, message string) error {
	log.Info().Str("to", to).Str("team", teamName).Str("alert", message).Msg("email disabled, skipping alert")
	return nil
}
