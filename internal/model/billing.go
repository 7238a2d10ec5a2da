package model

import (
	"time"

	"github.com/lib/pq"
)

type SubscriptionPlan struct {
	ID             string         `db:"id" json:"id"`
	Name           string         `db:"name" json:"name"`
	Slug           string         `db:"slug" json:"slug"`
	Description    *string        `db:"description" json:"description"`
	PriceMonthly   float64        `db:"price_monthly" json:"price_monthly"`
	Features       pq.StringArray `db:"features" json:"features"`
	MaxTeamMembers *int           `db:"max_team_members" json:"max_team_members"`
	MaxProviders   *int           `db:"max_providers" json:"max_providers"`
	APIAccess      bool           `db:"api_access" json:"api_access"`
}

type Subscription struct {
	ID                 string             `db:"id" json:"id"`
	UserID             string             `db:"user_id" json:"-"`
	PlanID             string             `db:"plan_id" json:"plan_id"`
	Status             SubscriptionStatus `db:"status" json:"status"`
	CurrentPeriodStart time.Time          `db:"current_period_start" json:"current_period_start"`
	CurrentPeriodEnd   time.Time          `db:"current_period_end" json:"current_period_end"`
	CreatedAt          time.Time          `db:"created_at" json:"created_at"`
	UpdatedAt          time.Time          `db:"updated_at" json:"updated_at"`
}

type UpsertSubscriptionParams struct {
	UserID      string
	PlanID      string
	PeriodStart time.Time
	PeriodEnd   time.Time
}
