package service

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/tokenmeter/tokenmeter-api/internal/email"
	"github.com/tokenmeter/tokenmeter-api/internal/model"
	"github.com/tokenmeter/tokenmeter-api/internal/repository"
)

const monthlyPeriod = "monthly"

// BudgetAlerter emails the team owner when month-to-date spend crosses a
// team-wide budget's alert threshold, at most once per budget per month.
type BudgetAlerter struct {
	teams    repository.TeamRepository
	users    repository.UserRepository
	alerts   repository.AlertSettingsRepository
	budgets  repository.BudgetRepository
	spending repository.SpendingRepository
	notifier email.Notifier
	now      clock
}

func NewBudgetAlerter(
	teams repository.TeamRepository,
	users repository.UserRepository,
	alerts repository.AlertSettingsRepository,
	budgets repository.BudgetRepository,
	spending repository.SpendingRepository,
	notifier email.Notifier,
) *BudgetAlerter {
	return &BudgetAlerter{
		teams:    teams,
		users:    users,
		alerts:   alerts,
		budgets:  budgets,
		spending: spending,
		notifier: notifier,
		now:      time.Now,
	}
}

// Check never fails the caller; problems are logged.
func (a *BudgetAlerter) Check(ctx context.Context, teamID string) {
	budgets, err := a.budgets.ListByTeam(ctx, teamID)
	if err != nil {
		log.Error().Err(err).Str("teamId", teamID).Msg("budget check: list budgets")
		return
	}

	now := a.now()
	monthStart := time.Date(now.Year(), now.Month(), 1, 0, 0, 0, 0, time.UTC)

	var messages []string
	spent := -1.0
	for _, b := range budgets {
		if b.ProviderID != nil || b.Period != monthlyPeriod || b.AmountUSD <= 0 {
			continue
		}
		if spent < 0 {
			spent, err = a.spending.Total(ctx, teamID, monthStart, now)
			if err != nil {
				log.Error().Err(err).Str("teamId", teamID).Msg("budget check: total spend")
				return
			}
		}
		if !crossed(spent, b) || alertedSince(b, monthStart) {
			continue
		}
		claimed, err := a.budgets.ClaimAlert(ctx, b.ID, monthStart, now)
		if err != nil {
			log.Error().Err(err).Str("budgetId", b.ID).Msg("budget check: claim alert")
			continue
		}
		if claimed {
			messages = append(messages, fmt.Sprintf(
				"Month-to-date spend of $%.2f has reached %d%% of the $%.2f monthly budget.",
				spent, b.AlertThresholdPct, b.AmountUSD))
		}
	}
	if len(messages) == 0 {
		return
	}

	a.notifyOwner(ctx, teamID, messages)
}

func (a *BudgetAlerter) notifyOwner(ctx context.Context, teamID string, messages []string) {
	team, err := a.teams.FindByID(ctx, teamID)
	if err != nil || team == nil {
		log.Error().Err(err).Str("teamId", teamID).Msg("budget check: find team")
		return
	}

	settings, err := a.alerts.FindByUserID(ctx, team.OwnerID)
	if err != nil {
		log.Error().Err(err).Str("teamId", teamID).Msg("budget check: alert settings")
		return
	}
	if settings != nil && !settings.EmailEnabled {
		return
	}

	owner, err := a.users.FindByID(ctx, team.OwnerID)
	if err != nil || owner == nil {
		log.Error().Err(err).Str("teamId", teamID).Msg("budget check: find owner")
		return
	}

	for _, msg := range messages {
		if err := a.notifier.SendAlert(ctx, owner.Email, team.Name, msg); err != nil {
			log.Warn().Err(err).Str("teamId", teamID).Msg("budget alert email failed")
		}
	}
	log.Info().Str("teamId", teamID).Int("alerts", len(messages)).Msg("budget alerts sent")
}

// alertedSince reports whether b already alerted in the period starting at periodStart.
func alertedSince(b model.Budget, periodStart time.Time) bool {
	return b.LastAlertedAt != nil && !b.LastAlertedAt.Before(periodStart)
}

func crossed(spent float64, b model.Budget) bool {
	return spent >= b.AmountUSD*float64(b.AlertThresholdPct)/100
}
