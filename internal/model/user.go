package model

import (
	"time"
)

type User struct {
	ID           string    `db:"id" json:"id"`
	Email        string    `db:"email" json:"email"`
	Username     string    `db:"username" json:"username"`
	Name         string    `db:"name" json:"name"`
	Company      *string   `db:"company" json:"company"`
	PasswordHash *string   `db:"password_hash" json:"-"`
	Timezone     string    `db:"timezone" json:"timezone"`
	CreatedAt    time.Time `db:"created_at" json:"created_at"`
	UpdatedAt    time.Time `db:"updated_at" json:"updated_at"`
}

// HashedPassword returns the stored hash or "" for accounts without a password.
func (u *User) HashedPassword() string {
	if u.PasswordHash == nil {
		return ""
	}
	return *u.PasswordHash
}

type CreateUserParams struct {
	ID           string
	Email        string
	Username     string
	Name         string
	Company      *string
	PasswordHash *string
}

type UpdateProfileParams struct {
	Name     *string
	Company  *string
	Timezone *string
}

type AlertSettings struct {
	UserID            string    `db:"user_id" json:"user_id"`
	EmailEnabled      bool      `db:"email_enabled" json:"email_enabled"`
	SlackEnabled      bool      `db:"slack_enabled" json:"slack_enabled"`
	SlackWebhookURL   *string   `db:"slack_webhook_url" json:"slack_webhook_url"`
	SpikeThresholdPct int       `db:"spike_threshold_pct" json:"spike_threshold_pct"`
	DailyDigest       bool      `db:"daily_digest" json:"daily_digest"`
	WeeklyReport      bool      `db:"weekly_report" json:"weekly_report"`
	UpdatedAt         time.Time `db:"updated_at" json:"updated_at"`
}

// DefaultSpikeThresholdPct is applied to new alert settings.
const DefaultSpikeThresholdPct = 20

type UpdateAlertSettingsParams struct {
	EmailEnabled      *bool
	SlackEnabled      *bool
	SlackWebhookURL   *string
	SpikeThresholdPct *int
	DailyDigest       *bool
	WeeklyReport      *bool
}
