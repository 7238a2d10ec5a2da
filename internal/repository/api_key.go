package repository

import (
	"context"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/tokenmeter/tokenmeter-api/internal/model"
)

type APIKeyRepository interface {
	ListByUser(ctx context.Context, userID string) ([]model.APIKey, error)
	FindByID(ctx context.Context, id string) (*model.APIKey, error)
	FindByHash(ctx context.Context, keyHash string) (*model.APIKey, error)
	Create(ctx context.Context, params model.CreateAPIKeyParams) (*model.APIKey, error)
	Rename(ctx context.Context, id, name string) (*model.APIKey, error)
	Delete(ctx context.Context, id string) error
	TouchLastUsed(ctx context.Context, id string, at time.Time) error
}

type apiKeyRepo struct {
	db sqlxDB
}

func NewAPIKeyRepository(db *sqlx.DB) APIKeyRepository {
	return &apiKeyRepo{db: db}
}

func (r *apiKeyRepo) ListByUser(ctx context.Context, userID string) ([]model.APIKey, error) {
	keys := []model.APIKey{}
	err := r.db.SelectContext(ctx, &keys, `
		SELECT * FROM api_keys WHERE user_id = $1 ORDER BY created_at DESC
	`, userID)
	if err != nil {
		return nil, err
	}
	return keys, nil
}

func (r *apiKeyRepo) FindByID(ctx context.Context, id string) (*model.APIKey, error) {
	var key model.APIKey
	err := r.db.GetContext(ctx, &key, `SELECT * FROM api_keys WHERE id = $1`, id)
	return HandleNotFound(&key, err)
}

func (r *apiKeyRepo) FindByHash(ctx context.Context, keyHash string) (*model.APIKey, error) {
	var key model.APIKey
	err := r.db.GetContext(ctx, &key, `SELECT * FROM api_keys WHERE key_hash = $1`, keyHash)
	return HandleNotFound(&key, err)
}

func (r *apiKeyRepo) Create(ctx context.Context, params model.CreateAPIKeyParams) (*model.APIKey, error) {
	var key model.APIKey
	err := r.db.GetContext(ctx, &key, `
		INSERT INTO api_keys (user_id, name, key_hash)
		VALUES ($1, $2, $3)
		RETURNING *
	`, params.UserID, params.Name, params.KeyHash)
	if err != nil {
		return nil, err
	}
	return &key, nil
}

func (r *apiKeyRepo) Rename(ctx context.Context, id, name string) (*model.APIKey, error) {
	var key model.APIKey
	err := r.db.GetContext(ctx, &key, `
		UPDATE api_keys SET name = $2 WHERE id = $1 RETURNING *
	`, id, name)
	return HandleNotFound(&key, err)
}

func (r *apiKeyRepo) Delete(ctx context.Context, id string) error {
	_, err := r.db.ExecContext(ctx, `DELETE FROM api_keys WHERE id = $1`, id)
	return err
}

func (r *apiKeyRepo) TouchLastUsed(ctx context.Context, id string, at time.Time) error {
	_, err := r.db.ExecContext(ctx, `UPDATE api_keys SET last_used_at = $2 WHERE id = $1`, id, at)
	return err
}
