package service

import (
	"context"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/tokenmeter/tokenmeter-api/internal/config"
	"github.com/tokenmeter/tokenmeter-api/internal/database"
	apperrors "github.com/tokenmeter/tokenmeter-api/internal/errors"
	"github.com/tokenmeter/tokenmeter-api/internal/model"
	"github.com/tokenmeter/tokenmeter-api/internal/repository"
)

// PlanChangeOutcome tells whether a plan change created the user's first
// subscription or replaced the plan on an existing one.
type PlanChangeOutcome int

const (
	PlanChangeCreated PlanChangeOutcome = iota + 1
	PlanChangeUpdated
)

func (o PlanChangeOutcome) String() string {
	switch o {
	case PlanChangeCreated:
		return "created"
	case PlanChangeUpdated:
		return "updated"
	default:
		return "unknown"
	}
}

type PlanChange struct {
	Outcome      PlanChangeOutcome
	Plan         *model.SubscriptionPlan
	Subscription *model.Subscription
}

// BillingOverview is the user's subscription, if any, plus the plan catalog.
type BillingOverview struct {
	Subscription *model.Subscription
	Plan         *model.SubscriptionPlan
	Plans        []model.SubscriptionPlan
}

type BillingService struct {
	plans repository.PlanRepository
	subs  repository.SubscriptionRepository
	now   clock
}

func NewBillingService(plans repository.PlanRepository, subs repository.SubscriptionRepository) *BillingService {
	return &BillingService{plans: plans, subs: subs, now: time.Now}
}

func (s *BillingService) Current(ctx context.Context, userID string) (*BillingOverview, error) {
	plans, err := s.plans.List(ctx)
	if err != nil {
		return nil, dbError("list plans", err)
	}

	sub, err := s.subs.FindByUserID(ctx, userID)
	if err != nil {
		return nil, dbError("find subscription", err)
	}

	overview := &BillingOverview{Subscription: sub, Plans: plans}
	if sub != nil {
		for i := range plans {
			if plans[i].ID == sub.PlanID {
				overview.Plan = &plans[i]
				break
			}
		}
	}
	return overview, nil
}

// ChangePlan moves the user onto planID. An existing subscription keeps its
// period end; a new one runs for 30 days.
func (s *BillingService) ChangePlan(ctx context.Context, userID, planID string) (*PlanChange, error) {
	plan, err := s.plans.FindByID(ctx, planID)
	if err != nil {
		return nil, dbError("find plan", err)
	}
	if plan == nil {
		return nil, apperrors.ValidationError("Invalid plan")
	}

	current, err := s.subs.FindByUserID(ctx, userID)
	if err != nil {
		return nil, dbError("find subscription", err)
	}

	now := s.now()
	if current == nil {
		sub, err := s.subs.Create(ctx, model.UpsertSubscriptionParams{
			UserID:      userID,
			PlanID:      planID,
			PeriodStart: now,
			PeriodEnd:   now.Add(config.SubscriptionPeriod),
		})
		if err == nil {
			log.Info().Str("userId", userID).Str("plan", plan.Slug).Msg("subscription created")
			return &PlanChange{Outcome: PlanChangeCreated, Plan: plan, Subscription: sub}, nil
		}
		if !database.IsUniqueViolation(err) {
			return nil, dbError("create subscription", err)
		}

		// A concurrent request created the subscription first; change that one.
		current, err = s.subs.FindByUserID(ctx, userID)
		if err != nil {
			return nil, dbError("find subscription", err)
		}
		if current == nil {
			return nil, apperrors.NotFound("Subscription")
		}
	}

	if current.PlanID == planID {
		return nil, apperrors.ValidationError("Already on this plan")
	}

	sub, err := s.subs.Update(ctx, model.UpsertSubscriptionParams{
		UserID:      userID,
		PlanID:      planID,
		PeriodStart: now,
		PeriodEnd:   current.CurrentPeriodEnd,
	})
	if err != nil {
		return nil, dbError("update subscription", err)
	}
	if sub == nil {
		return nil, apperrors.NotFound("Subscription")
	}

	log.Info().
		Str("userId", userID).
		Str("fromPlan", current.PlanID).
		Str("plan", plan.Slug).
		Msg("subscription plan changed")
	return &PlanChange{Outcome: PlanChangeUpdated, Plan: plan, Subscription: sub}, nil
}
