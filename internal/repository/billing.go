package repository

import (
	"context"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/tokenmeter/tokenmeter-api/internal/model"
)

type PlanRepository interface {
	List(ctx context.Context) ([]model.SubscriptionPlan, error)
	FindByID(ctx context.Context, id string) (*model.SubscriptionPlan, error)
}

type planRepo struct {
	db sqlxDB
}

func NewPlanRepository(db *sqlx.DB) PlanRepository {
	return &planRepo{db: db}
}

func (r *planRepo) List(ctx context.Context) ([]model.SubscriptionPlan, error) {
	plans := []model.SubscriptionPlan{}
	err := r.db.SelectContext(ctx, &plans, `
		SELECT * FROM subscription_plans ORDER BY price_monthly ASC
	`)
	if err != nil {
		return nil, err
	}
	return plans, nil
}

func (r *planRepo) FindByID(ctx context.Context, id string) (*model.SubscriptionPlan, error) {
	var plan model.SubscriptionPlan
	err := r.db.GetContext(ctx, &plan, `SELECT * FROM subscription_plans WHERE id = $1`, id)
	return HandleNotFound(&plan, err)
}

// Subscription Repository

type SubscriptionRepository interface {
	FindByUserID(ctx context.Context, userID string) (*model.Subscription, error)
	Create(ctx context.Context, params model.UpsertSubscriptionParams) (*model.Subscription, error)
	Update(ctx context.Context, params model.UpsertSubscriptionParams) (*model.Subscription, error)
}

type subscriptionRepo struct {
	db sqlxDB
}

func NewSubscriptionRepository(db *sqlx.DB) SubscriptionRepository {
	return &subscriptionRepo{db: db}
}

func (r *subscriptionRepo) FindByUserID(ctx context.Context, userID string) (*model.Subscription, error) {
	var sub model.Subscription
	err := r.db.GetContext(ctx, &sub, `SELECT * FROM subscriptions WHERE user_id = $1`, userID)
	return HandleNotFound(&sub, err)
}

func (r *subscriptionRepo) Create(ctx context.Context, params model.UpsertSubscriptionParams) (*model.Subscription, error) {
	var sub model.Subscription
	err := r.db.GetContext(ctx, &sub, `
		INSERT INTO subscriptions (user_id, plan_id, status, current_period_start, current_period_end)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING *
	`, params.UserID, params.PlanID, model.SubscriptionStatusActive, params.PeriodStart, params.PeriodEnd)
	if err != nil {
		return nil, err
	}
	return &sub, nil
}

func (r *subscriptionRepo) Update(ctx context.Context, params model.UpsertSubscriptionParams) (*model.Subscription, error) {
	var sub model.Subscription
	err := r.db.GetContext(ctx, &sub, `
		UPDATE subscriptions SET
			plan_id = $2,
			status = $3,
			current_period_start = $4,
			current_period_end = $5,
			updated_at = $6
		WHERE user_id = $1
		RETURNING *
	`, params.UserID, params.PlanID, model.SubscriptionStatusActive, params.PeriodStart, params.PeriodEnd, time.Now())
	return HandleNotFound(&sub, err)
}
