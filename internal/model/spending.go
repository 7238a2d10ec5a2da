package model

import (
	"time"
)

// DateLayout is the wire and storage format of entry dates.
const DateLayout = "2006-01-02"

type SpendingEntry struct {
	ID           string    `db:"id" json:"id"`
	TeamID       string    `db:"team_id" json:"team_id"`
	ProviderID   string    `db:"provider_id" json:"provider_id"`
	ProviderName *string   `db:"provider_name" json:"provider_name,omitempty"`
	Model        string    `db:"model" json:"model"`
	TokensUsed   int64     `db:"tokens_used" json:"tokens_used"`
	CostUSD      float64   `db:"cost_usd" json:"cost_usd"`
	EntryDate    Date      `db:"entry_date" json:"entry_date"`
	CreatedAt    time.Time `db:"created_at" json:"created_at"`
}

type CreateSpendingEntryParams struct {
	TeamID     string
	ProviderID string
	Model      string
	TokensUsed int64
	CostUSD    float64
	EntryDate  time.Time
}

type SpendingFilter struct {
	TeamID     string
	StartDate  *time.Time
	EndDate    *time.Time
	ProviderID *string
	Limit      int
	Offset     int
}

// Amount is a labelled aggregate, e.g. spend per provider or per day.
type Amount struct {
	Key   string  `db:"key"`
	Total float64 `db:"total"`
}

type Budget struct {
	ID                string     `db:"id" json:"id"`
	TeamID            string     `db:"team_id" json:"team_id"`
	ProviderID        *string    `db:"provider_id" json:"provider_id"`
	ProviderName      *string    `db:"provider_name" json:"provider_name"`
	AmountUSD         float64    `db:"amount_usd" json:"amount_usd"`
	Period            string     `db:"period" json:"period"`
	AlertThresholdPct int        `db:"alert_threshold_pct" json:"alert_threshold_pct"`
	LastAlertedAt     *time.Time `db:"last_alerted_at" json:"last_alerted_at"`
	CreatedAt         time.Time  `db:"created_at" json:"created_at"`
}

type SpendingSummary struct {
	TotalSpend float64              `json:"totalSpend"`
	Period     SummaryPeriod        `json:"period"`
	ByProvider map[string]float64   `json:"byProvider"`
	ByModel    map[string]float64   `json:"byModel"`
	DailyTrend map[string]float64   `json:"dailyTrend"`
	Providers  []ProviderConnection `json:"providers"`
	Budgets    []Budget             `json:"budgets"`
}

type SummaryPeriod struct {
	Start string `json:"start"`
	End   string `json:"end"`
}
