package repository

import (
	"context"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/tokenmeter/tokenmeter-api/internal/model"
)

type ResetTokenRepository interface {
	Create(ctx context.Context, params model.CreateResetTokenParams) (*model.PasswordResetToken, error)
	FindByHash(ctx context.Context, tokenHash string) (*model.PasswordResetToken, error)
	// MarkUsed stamps used_at only if the token is still unused.
	// It returns false when another request already consumed it.
	MarkUsed(ctx context.Context, id string, at time.Time) (bool, error)
	DeleteStale(ctx context.Context, olderThan time.Time) (int64, error)
	WithTx(tx *sqlx.Tx) ResetTokenRepository
}

type resetTokenRepo struct {
	db sqlxDB
}

func NewResetTokenRepository(db *sqlx.DB) ResetTokenRepository {
	return &resetTokenRepo{db: db}
}

func (r *resetTokenRepo) WithTx(tx *sqlx.Tx) ResetTokenRepository {
	return &resetTokenRepo{db: tx}
}

func (r *resetTokenRepo) Create(ctx context.Context, params model.CreateResetTokenParams) (*model.PasswordResetToken, error) {
	var token model.PasswordResetToken
	err := r.db.GetContext(ctx, &token, `
		INSERT INTO password_reset_tokens (user_id, token_hash, expires_at)
		VALUES ($1, $2, $3)
		RETURNING *
	`, params.UserID, params.TokenHash, params.ExpiresAt)
	if err != nil {
		return nil, err
	}
	return &token, nil
}

func (r *resetTokenRepo) FindByHash(ctx context.Context, tokenHash string) (*model.PasswordResetToken, error) {
	var token model.PasswordResetToken
	err := r.db.GetContext(ctx, &token, `
		SELECT * FROM password_reset_tokens WHERE token_hash = $1
	`, tokenHash)
	return HandleNotFound(&token, err)
}

func (r *resetTokenRepo) MarkUsed(ctx context.Context, id string, at time.Time) (bool, error) {
	return affected(r.db.ExecContext(ctx, `
		UPDATE password_reset_tokens SET used_at = $2
		WHERE id = $1 AND used_at IS NULL
	`, id, at))
}

// DeleteStale removes used tokens and tokens that expired before olderThan.
func (r *resetTokenRepo) DeleteStale(ctx context.Context, olderThan time.Time) (int64, error) {
	return rowsAffected(r.db.ExecContext(ctx, `
		DELETE FROM password_reset_tokens
		WHERE used_at IS NOT NULL OR expires_at < $1
	`, olderThan))
}
