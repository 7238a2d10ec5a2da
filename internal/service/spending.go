package service

import (
	"context"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/rs/zerolog/log"

	"github.com/tokenmeter/tokenmeter-api/internal/config"
	"github.com/tokenmeter/tokenmeter-api/internal/database"
	apperrors "github.com/tokenmeter/tokenmeter-api/internal/errors"
	"github.com/tokenmeter/tokenmeter-api/internal/events"
	"github.com/tokenmeter/tokenmeter-api/internal/model"
	"github.com/tokenmeter/tokenmeter-api/internal/repository"
)

type SpendingService struct {
	db        database.TxRunner
	spending  repository.SpendingRepository
	budgets   repository.BudgetRepository
	providers repository.ProviderRepository
	alerter   *BudgetAlerter
	events    EventPublisher
	now       clock
}

func NewSpendingService(
	db database.TxRunner,
	spending repository.SpendingRepository,
	budgets repository.BudgetRepository,
	providers repository.ProviderRepository,
	alerter *BudgetAlerter,
	events EventPublisher,
) *SpendingService {
	return &SpendingService{
		db:        db,
		spending:  spending,
		budgets:   budgets,
		providers: providers,
		alerter:   alerter,
		events:    events,
		now:       time.Now,
	}
}

// List returns entries newest first. Limit defaults to 100 and is capped at 1000.
func (s *SpendingService) List(ctx context.Context, filter model.SpendingFilter) ([]model.SpendingEntry, error) {
	if filter.Limit <= 0 {
		filter.Limit = config.DefaultSpendingLimit
	}
	if filter.Limit > config.MaxSpendingLimit {
		filter.Limit = config.MaxSpendingLimit
	}
	if filter.Offset < 0 {
		filter.Offset = 0
	}

	entries, err := s.spending.List(ctx, filter)
	if err != nil {
		return nil, dbError("list spending", err)
	}
	return entries, nil
}

// Summary aggregates spend between start and end, defaulting to the last 30 days.
func (s *SpendingService) Summary(ctx context.Context, teamID string, start, end *time.Time) (*model.SpendingSummary, error) {
	to := s.now()
	if end != nil {
		to = *end
	}
	from := to.AddDate(0, 0, -config.DefaultSummaryDays)
	if start != nil {
		from = *start
	}
	if from.After(to) {
		return nil, apperrors.ValidationError("startDate must not be after endDate")
	}

	total, err := s.spending.Total(ctx, teamID, from, to)
	if err != nil {
		return nil, dbError("total spend", err)
	}
	byProvider, err := s.spending.ByProvider(ctx, teamID, from, to)
	if err != nil {
		return nil, dbError("spend by provider", err)
	}
	byModel, err := s.spending.ByModel(ctx, teamID, from, to)
	if err != nil {
		return nil, dbError("spend by model", err)
	}
	daily, err := s.spending.Daily(ctx, teamID, from, to)
	if err != nil {
		return nil, dbError("daily spend", err)
	}
	providers, err := s.providers.ListActive(ctx, teamID)
	if err != nil {
		return nil, dbError("list providers", err)
	}
	budgets, err := s.budgets.ListByTeam(ctx, teamID)
	if err != nil {
		return nil, dbError("list budgets", err)
	}

	return &model.SpendingSummary{
		TotalSpend: total,
		Period: model.SummaryPeriod{
			Start: from.Format(model.DateLayout),
			End:   to.Format(model.DateLayout),
		},
		ByProvider: toMap(byProvider),
		ByModel:    toMap(byModel),
		DailyTrend: toMap(daily),
		Providers:  providers,
		Budgets:    budgets,
	}, nil
}

// Import validates every row, then inserts them all in one transaction.
// Rows may only reference providers connected to teamID.
func (s *SpendingService) Import(ctx context.Context, teamID string, rows []ImportRow) (int, error) {
	if len(rows) == 0 {
		return 0, apperrors.ValidationError("No entries provided")
	}

	params, err := parseImportRows(teamID, rows, s.now())
	if err != nil {
		return 0, err
	}

	providerIDs := distinctProviders(params)
	count, err := s.providers.CountInTeam(ctx, teamID, providerIDs)
	if err != nil {
		return 0, dbError("check providers", err)
	}
	if count != len(providerIDs) {
		return 0, apperrors.ValidationError("One or more entries reference a provider that is not connected to this team")
	}

	err = s.db.WithTx(ctx, func(tx *sqlx.Tx) error {
		repo := s.spending.WithTx(tx)
		for i, p := range params {
			if _, err := repo.Create(ctx, p); err != nil {
				return fmt.Errorf("insert entry %d: %w", i, err)
			}
		}
		return nil
	})
	if err != nil {
		return 0, dbError("import spending", err)
	}

	log.Info().Str("teamId", teamID).Int("imported", len(params)).Msg("spending imported")

	publish(ctx, s.events, teamID, events.TypeSpendingImported, map[string]int{"imported": len(params)})
	if s.alerter != nil {
		s.alerter.Check(ctx, teamID)
	}

	return len(params), nil
}

func toMap(amounts []model.Amount) map[string]float64 {
	m := make(map[string]float64, len(amounts))
	for _, a := range amounts {
		m[a.Key] += a.Total
	}
	return m
}

func distinctProviders(params []model.CreateSpendingEntryParams) []string {
	seen := make(map[string]bool)
	ids := make([]string, 0)
	for _, p := range params {
		if !seen[p.ProviderID] {
			seen[p.ProviderID] = true
			ids = append(ids, p.ProviderID)
		}
	}
	return ids
}
