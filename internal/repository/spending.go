package repository

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/tokenmeter/tokenmeter-api/internal/model"
)

type SpendingRepository interface {
	List(ctx context.Context, filter model.SpendingFilter) ([]model.SpendingEntry, error)
	Total(ctx context.Context, teamID string, start, end time.Time) (float64, error)
	ByProvider(ctx context.Context, teamID string, start, end time.Time) ([]model.Amount, error)
	ByModel(ctx context.Context, teamID string, start, end time.Time) ([]model.Amount, error)
	Daily(ctx context.Context, teamID string, start, end time.Time) ([]model.Amount, error)
	Create(ctx context.Context, params model.CreateSpendingEntryParams) (*model.SpendingEntry, error)
	WithTx(tx *sqlx.Tx) SpendingRepository
}

type spendingRepo struct {
	db sqlxDB
}

func NewSpendingRepository(db *sqlx.DB) SpendingRepository {
	return &spendingRepo{db: db}
}

func (r *spendingRepo) WithTx(tx *sqlx.Tx) SpendingRepository {
	return &spendingRepo{db: tx}
}

func (r *spendingRepo) List(ctx context.Context, filter model.SpendingFilter) ([]model.SpendingEntry, error) {
	var b strings.Builder
	args := []any{filter.TeamID}

	b.WriteString(`
		SELECT s.id, s.team_id, s.provider_id, p.provider_name, s.model,
			s.tokens_used, s.cost_usd, s.entry_date, s.created_at
		FROM spending_entries s
		LEFT JOIN provider_connections p ON p.id = s.provider_id
		WHERE s.team_id = $1`)

	if filter.StartDate != nil {
		args = append(args, filter.StartDate.Format(model.DateLayout))
		fmt.Fprintf(&b, " AND s.entry_date >= $%d", len(args))
	}
	if filter.EndDate != nil {
		args = append(args, filter.EndDate.Format(model.DateLayout))
		fmt.Fprintf(&b, " AND s.entry_date <= $%d", len(args))
	}
	if filter.ProviderID != nil {
		args = append(args, *filter.ProviderID)
		fmt.Fprintf(&b, " AND s.provider_id = $%d", len(args))
	}

	args = append(args, filter.Limit, filter.Offset)
	fmt.Fprintf(&b, " ORDER BY s.entry_date DESC, s.created_at DESC LIMIT $%d OFFSET $%d", len(args)-1, len(args))

	entries := []model.SpendingEntry{}
	if err := r.db.SelectContext(ctx, &entries, b.String(), args...); err != nil {
		return nil, err
	}
	return entries, nil
}

func (r *spendingRepo) Total(ctx context.Context, teamID string, start, end time.Time) (float64, error) {
	var total float64
	err := r.db.GetContext(ctx, &total, `
		SELECT COALESCE(SUM(cost_usd), 0)::float8
		FROM spending_entries
		WHERE team_id = $1 AND entry_date BETWEEN $2 AND $3
	`, teamID, start.Format(model.DateLayout), end.Format(model.DateLayout))
	return total, err
}

func (r *spendingRepo) ByProvider(ctx context.Context, teamID string, start, end time.Time) ([]model.Amount, error) {
	return r.aggregate(ctx, `
		SELECT COALESCE(p.provider_name, 'Unknown') AS key, SUM(s.cost_usd)::float8 AS total
		FROM spending_entries s
		LEFT JOIN provider_connections p ON p.id = s.provider_id
		WHERE s.team_id = $1 AND s.entry_date BETWEEN $2 AND $3
		GROUP BY 1
		ORDER BY 2 DESC
	`, teamID, start, end)
}

func (r *spendingRepo) ByModel(ctx context.Context, teamID string, start, end time.Time) ([]model.Amount, error) {
	return r.aggregate(ctx, `
		SELECT model AS key, SUM(cost_usd)::float8 AS total
		FROM spending_entries
		WHERE team_id = $1 AND entry_date BETWEEN $2 AND $3
		GROUP BY 1
		ORDER BY 2 DESC
	`, teamID, start, end)
}

func (r *spendingRepo) Daily(ctx context.Context, teamID string, start, end time.Time) ([]model.Amount, error) {
	return r.aggregate(ctx, `
		SELECT to_char(entry_date, 'YYYY-MM-DD') AS key, SUM(cost_usd)::float8 AS total
		FROM spending_entries
		WHERE team_id = $1 AND entry_date BETWEEN $2 AND $3
		GROUP BY 1
		ORDER BY 1 ASC
	`, teamID, start, end)
}

func (r *spendingRepo) aggregate(ctx context.Context, query, teamID string, start, end time.Time) ([]model.Amount, error) {
	amounts := []model.Amount{}
	err := r.db.SelectContext(ctx, &amounts, query, teamID, start.Format(model.DateLayout), end.Format(model.DateLayout))
	if err != nil {
		return nil, err
	}
	return amounts, nil
}

func (r *spendingRepo) Create(ctx context.Context, params model.CreateSpendingEntryParams) (*model.SpendingEntry, error) {
	var entry model.SpendingEntry
	err := r.db.GetContext(ctx, &entry, `
		INSERT INTO spending_entries (team_id, provider_id, model, tokens_used, cost_usd, entry_date)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING id, team_id, provider_id, NULL::text AS provider_name, model,
			tokens_used, cost_usd, entry_date, created_at
	`, params.TeamID, params.ProviderID, params.Model, params.TokensUsed, params.CostUSD,
		params.EntryDate.Format(model.DateLayout))
	if err != nil {
		return nil, err
	}
	return &entry, nil
}

// Budget Repository

type BudgetRepository interface {
	ListByTeam(ctx context.Context, teamID string) ([]model.Budget, error)
	ClaimAlert(ctx context.Context, budgetID string, periodStart, at time.Time) (bool, error)
}

type budgetRepo struct {
	db sqlxDB
}

func NewBudgetRepository(db *sqlx.DB) BudgetRepository {
	return &budgetRepo{db: db}
}

func (r *budgetRepo) ListByTeam(ctx context.Context, teamID string) ([]model.Budget, error) {
	budgets := []model.Budget{}
	err := r.db.SelectContext(ctx, &budgets, `
		SELECT b.*, p.provider_name
		FROM budgets b
		LEFT JOIN provider_connections p ON p.id = b.provider_id
		WHERE b.team_id = $1
		ORDER BY b.created_at ASC
	`, teamID)
	if err != nil {
		return nil, err
	}
	return budgets, nil
}

// ClaimAlert stamps last_alerted_at unless the budget already alerted on or
// after periodStart. Only the caller that gets true sends the alert.
func (r *budgetRepo) ClaimAlert(ctx context.Context, budgetID string, periodStart, at time.Time) (bool, error) {
	return affected(r.db.ExecContext(ctx, `
		UPDATE budgets SET last_alerted_at = $3
		WHERE id = $1 AND (last_alerted_at IS NULL OR last_alerted_at < $2)
	`, budgetID, periodStart, at))
}
