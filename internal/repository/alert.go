package repository

import (
	"context"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/tokenmeter/tokenmeter-api/internal/model"
)

type AlertSettingsRepository interface {
	FindByUserID(ctx context.Context, userID string) (*model.AlertSettings, error)
	// CreateDefault inserts default settings, leaving existing rows untouched.
	CreateDefault(ctx context.Context, userID string) (*model.AlertSettings, error)
	Update(ctx context.Context, userID string, params model.UpdateAlertSettingsParams) (*model.AlertSettings, error)
	WithTx(tx *sqlx.Tx) AlertSettingsRepository
}

type alertSettingsRepo struct {
	db sqlxDB
}

func NewAlertSettingsRepository(db *sqlx.DB) AlertSettingsRepository {
	return &alertSettingsRepo{db: db}
}

func (r *alertSettingsRepo) WithTx(tx *sqlx.Tx) AlertSettingsRepository {
	return &alertSettingsRepo{db: tx}
}

func (r *alertSettingsRepo) FindByUserID(ctx context.Context, userID string) (*model.AlertSettings, error) {
	var settings model.AlertSettings
	err := r.db.GetContext(ctx, &settings, `SELECT * FROM alert_settings WHERE user_id = $1`, userID)
	return HandleNotFound(&settings, err)
}

func (r *alertSettingsRepo) CreateDefault(ctx context.Context, userID string) (*model.AlertSettings, error) {
	var settings model.AlertSettings
	err := r.db.GetContext(ctx, &settings, `
		INSERT INTO alert_settings (user_id, email_enabled, spike_threshold_pct)
		VALUES ($1, TRUE, $2)
		ON CONFLICT (user_id) DO UPDATE SET user_id = EXCLUDED.user_id
		RETURNING *
	`, userID, model.DefaultSpikeThresholdPct)
	if err != nil {
		return nil, err
	}
	return &settings, nil
}

func (r *alertSettingsRepo) Update(ctx context.Context, userID string, params model.UpdateAlertSettingsParams) (*model.AlertSettings, error) {
	var settings model.AlertSettings
	err := r.db.GetContext(ctx, &settings, `
		UPDATE alert_settings SET
			email_enabled = COALESCE($2, email_enabled),
			slack_enabled = COALESCE($3, slack_enabled),
			slack_webhook_url = COALESCE($4, slack_webhook_url),
			spike_threshold_pct = COALESCE($5, spike_threshold_pct),
			daily_digest = COALESCE($6, daily_digest),
			weekly_report = COALESCE($7, weekly_report),
			updated_at = $8
		WHERE user_id = $1
		RETURNING *
	`, userID, params.EmailEnabled, params.SlackEnabled, params.SlackWebhookURL,
		params.SpikeThresholdPct, params.DailyDigest, params.WeeklyReport, time.Now())
	return HandleNotFound(&settings, err)
}
