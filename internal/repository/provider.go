package repository

import (
	"context"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"

	"github.com/tokenmeter/tokenmeter-api/internal/model"
)

type ProviderRepository interface {
	ListByTeam(ctx context.Context, teamID string) ([]model.ProviderConnection, error)
	ListActive(ctx context.Context, teamID string) ([]model.ProviderConnection, error)
	FindByID(ctx context.Context, teamID, id string) (*model.ProviderConnection, error)
	// CountInTeam counts how many of ids are connections of teamID.
	CountInTeam(ctx context.Context, teamID string, ids []string) (int, error)
	Create(ctx context.Context, params model.CreateProviderConnectionParams) (*model.ProviderConnection, error)
	Delete(ctx context.Context, teamID, id string) (bool, error)
	TouchLastSync(ctx context.Context, teamID, id string, at time.Time) (*model.ProviderConnection, error)
	WithTx(tx *sqlx.Tx) ProviderRepository
}

type providerRepo struct {
	db sqlxDB
}

func NewProviderRepository(db *sqlx.DB) ProviderRepository {
	return &providerRepo{db: db}
}

func (r *providerRepo) WithTx(tx *sqlx.Tx) ProviderRepository {
	return &providerRepo{db: tx}
}

func (r *providerRepo) ListByTeam(ctx context.Context, teamID string) ([]model.ProviderConnection, error) {
	providers := []model.ProviderConnection{}
	err := r.db.SelectContext(ctx, &providers, `
		SELECT * FROM provider_connections
		WHERE team_id = $1
		ORDER BY created_at DESC
	`, teamID)
	if err != nil {
		return nil, err
	}
	return providers, nil
}

func (r *providerRepo) ListActive(ctx context.Context, teamID string) ([]model.ProviderConnection, error) {
	providers := []model.ProviderConnection{}
	err := r.db.SelectContext(ctx, &providers, `
		SELECT * FROM provider_connections
		WHERE team_id = $1 AND status = $2
		ORDER BY provider_name ASC
	`, teamID, model.ConnectionStatusActive)
	if err != nil {
		return nil, err
	}
	return providers, nil
}

func (r *providerRepo) FindByID(ctx context.Context, teamID, id string) (*model.ProviderConnection, error) {
	var provider model.ProviderConnection
	err := r.db.GetContext(ctx, &provider, `
		SELECT * FROM provider_connections WHERE team_id = $1 AND id = $2
	`, teamID, id)
	return HandleNotFound(&provider, err)
}

func (r *providerRepo) CountInTeam(ctx context.Context, teamID string, ids []string) (int, error) {
	var count int
	err := r.db.GetContext(ctx, &count, `
		SELECT COUNT(*) FROM provider_connections
		WHERE team_id = $1 AND id = ANY($2::uuid[])
	`, teamID, pq.Array(ids))
	return count, err
}

func (r *providerRepo) Create(ctx context.Context, params model.CreateProviderConnectionParams) (*model.ProviderConnection, error) {
	var provider model.ProviderConnection
	err := r.db.GetContext(ctx, &provider, `
		INSERT INTO provider_connections (team_id, provider_name, api_key_encrypted, status)
		VALUES ($1, $2, $3, $4)
		RETURNING *
	`, params.TeamID, params.ProviderName, params.APIKeyEncrypted, model.ConnectionStatusActive)
	if err != nil {
		return nil, err
	}
	return &provider, nil
}

func (r *providerRepo) Delete(ctx context.Context, teamID, id string) (bool, error) {
	return affected(r.db.ExecContext(ctx, `
		DELETE FROM provider_connections WHERE team_id = $1 AND id = $2
	`, teamID, id))
}

func (r *providerRepo) TouchLastSync(ctx context.Context, teamID, id string, at time.Time) (*model.ProviderConnection, error) {
	var provider model.ProviderConnection
	err := r.db.GetContext(ctx, &provider, `
		UPDATE provider_connections SET last_sync = $3
		WHERE team_id = $1 AND id = $2
		RETURNING *
	`, teamID, id, at)
	return HandleNotFound(&provider, err)
}
