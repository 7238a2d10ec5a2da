package repository

import (
	"context"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/tokenmeter/tokenmeter-api/internal/model"
)

type UserRepository interface {
	FindByID(ctx context.Context, id string) (*model.User, error)
	FindByEmail(ctx context.Context, email string) (*model.User, error)
	FindByLogin(ctx context.Context, username, email string) (*model.User, error)
	ExistsByEmailOrUsername(ctx context.Context, email, username string) (bool, error)
	Create(ctx context.Context, params model.CreateUserParams) (*model.User, error)
	UpdateProfile(ctx context.Context, id string, params model.UpdateProfileParams) (*model.User, error)
	UpdatePassword(ctx context.Context, id, passwordHash string) error
	// WithTx returns a new repository that uses the given transaction
	WithTx(tx *sqlx.Tx) UserRepository
}

type userRepo struct {
	db sqlxDB
}

func NewUserRepository(db *sqlx.DB) UserRepository {
	return &userRepo{db: db}
}

func (r *userRepo) WithTx(tx *sqlx.Tx) UserRepository {
	return &userRepo{db: tx}
}

func (r *userRepo) FindByID(ctx context.Context, id string) (*model.User, error) {
	var user model.User
	err := r.db.GetContext(ctx, &user, `SELECT * FROM users WHERE id = $1`, id)
	return HandleNotFound(&user, err)
}

func (r *userRepo) FindByEmail(ctx context.Context, email string) (*model.User, error) {
	var user model.User
	err := r.db.GetContext(ctx, &user, `SELECT * FROM users WHERE lower(email) = lower($1)`, email)
	return HandleNotFound(&user, err)
}

// FindByLogin matches on username when given, otherwise on email.
func (r *userRepo) FindByLogin(ctx context.Context, username, email string) (*model.User, error) {
	var user model.User
	var err error
	if username != "" {
		err = r.db.GetContext(ctx, &user, `SELECT * FROM users WHERE username = $1`, username)
	} else {
		err = r.db.GetContext(ctx, &user, `SELECT * FROM users WHERE lower(email) = lower($1)`, email)
	}
	return HandleNotFound(&user, err)
}

func (r *userRepo) ExistsByEmailOrUsername(ctx context.Context, email, username string) (bool, error) {
	var exists bool
	err := r.db.GetContext(ctx, &exists, `
		SELECT EXISTS (SELECT 1 FROM users WHERE lower(email) = lower($1) OR username = $2)
	`, email, username)
	return exists, err
}

func (r *userRepo) Create(ctx context.Context, params model.CreateUserParams) (*model.User, error) {
	var user model.User
	err := r.db.GetContext(ctx, &user, `
		INSERT INTO users (id, email, username, name, company, password_hash)
		VALUES (COALESCE(NULLIF($1, '')::uuid, gen_random_uuid()), $2, $3, $4, $5, $6)
		RETURNING *
	`, params.ID, params.Email, params.Username, params.Name, params.Company, params.PasswordHash)
	if err != nil {
		return nil, err
	}
	return &user, nil
}

func (r *userRepo) UpdateProfile(ctx context.Context, id string, params model.UpdateProfileParams) (*model.User, error) {
	var user model.User
	err := r.db.GetContext(ctx, &user, `
		UPDATE users SET
			name = COALESCE($2, name),
			company = COALESCE($3, company),
			timezone = COALESCE($4, timezone),
			updated_at = $5
		WHERE id = $1
		RETURNING *
	`, id, params.Name, params.Company, params.Timezone, time.Now())
	return HandleNotFound(&user, err)
}

func (r *userRepo) UpdatePassword(ctx context.Context, id, passwordHash string) error {
	_, err := r.db.ExecContext(ctx, `
		UPDATE users SET password_hash = $2, updated_at = $3 WHERE id = $1
	`, id, passwordHash, time.Now())
	return err
}
