package service

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog/log"

	apperrors "github.com/tokenmeter/tokenmeter-api/internal/errors"
	"github.com/tokenmeter/tokenmeter-api/internal/events"
)

// EventPublisher delivers live updates to a team's subscribers.
type EventPublisher interface {
	Publish(ctx context.Context, teamID string, event events.Event) error
}

func dbError(op string, err error) error {
	return apperrors.Database(fmt.Errorf("%s: %w", op, err))
}

// publish sends a team event. Failures are logged and never fail the caller.
func publish(ctx context.Context, p EventPublisher, teamID, eventType string, data any) {
	if p == nil {
		return
	}
	event, err := events.New(eventType, data)
	if err != nil {
		log.Error().Err(err).Str("type", eventType).Msg("failed to encode team event")
		return
	}
	if err := p.Publish(ctx, teamID, event); err != nil {
		log.Warn().Err(err).Str("teamId", teamID).Str("type", eventType).Msg("failed to publish team event")
	}
}

type clock func() time.Time
