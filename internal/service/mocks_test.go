package service

import (
	"context"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/mock"

	"github.com/tokenmeter/tokenmeter-api/internal/database"
	"github.com/tokenmeter/tokenmeter-api/internal/events"
	"github.com/tokenmeter/tokenmeter-api/internal/model"
	"github.com/tokenmeter/tokenmeter-api/internal/repository"
)

// fakeTx runs the callback without a real transaction; repositories under
// test return themselves from WithTx.
type fakeTx struct {
	calls int
}

func (f *fakeTx) WithTx(_ context.Context, fn database.TxFunc) error {
	f.calls++
	return fn(nil)
}

type mockUserRepo struct {
	mock.Mock
}

func (m *mockUserRepo) FindByID(ctx context.Context, id string) (*model.User, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.User), args.Error(1)
}

func (m *mockUserRepo) FindByEmail(ctx context.Context, email string) (*model.User, error) {
	args := m.Called(ctx, email)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.User), args.Error(1)
}

func (m *mockUserRepo) FindByLogin(ctx context.Context, username, email string) (*model.User, error) {
	args := m.Called(ctx, username, email)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.User), args.Error(1)
}

func (m *mockUserRepo) ExistsByEmailOrUsername(ctx context.Context, email, username string) (bool, error) {
	args := m.Called(ctx, email, username)
	return args.Bool(0), args.Error(1)
}

func (m *mockUserRepo) Create(ctx context.Context, params model.CreateUserParams) (*model.User, error) {
	args := m.Called(ctx, params)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.User), args.Error(1)
}

func (m *mockUserRepo) UpdateProfile(ctx context.Context, id string, params model.UpdateProfileParams) (*model.User, error) {
	args := m.Called(ctx, id, params)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.User), args.Error(1)
}

func (m *mockUserRepo) UpdatePassword(ctx context.Context, id, passwordHash string) error {
	args := m.Called(ctx, id, passwordHash)
	return args.Error(0)
}

func (m *mockUserRepo) WithTx(*sqlx.Tx) repository.UserRepository {
	return m
}

type mockAlertRepo struct {
	mock.Mock
}

func (m *mockAlertRepo) FindByUserID(ctx context.Context, userID string) (*model.AlertSettings, error) {
	args := m.Called(ctx, userID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.AlertSettings), args.Error(1)
}

func (m *mockAlertRepo) CreateDefault(ctx context.Context, userID string) (*model.AlertSettings, error) {
	args := m.Called(ctx, userID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.AlertSettings), args.Error(1)
}

func (m *mockAlertRepo) Update(ctx context.Context, userID string, params model.UpdateAlertSettingsParams) (*model.AlertSettings, error) {
	args := m.Called(ctx, userID, params)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.AlertSettings), args.Error(1)
}

func (m *mockAlertRepo) WithTx(*sqlx.Tx) repository.AlertSettingsRepository {
	return m
}

type mockTeamRepo struct {
	mock.Mock
}

func (m *mockTeamRepo) ListForUser(ctx context.Context, userID string) ([]model.TeamWithRole, error) {
	args := m.Called(ctx, userID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]model.TeamWithRole), args.Error(1)
}

func (m *mockTeamRepo) FindByID(ctx context.Context, id string) (*model.Team, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.Team), args.Error(1)
}

func (m *mockTeamRepo) Create(ctx context.Context, params model.CreateTeamParams) (*model.Team, error) {
	args := m.Called(ctx, params)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.Team), args.Error(1)
}

func (m *mockTeamRepo) WithTx(*sqlx.Tx) repository.TeamRepository {
	return m
}

type mockMemberRepo struct {
	mock.Mock
}

func (m *mockMemberRepo) FindMembership(ctx context.Context, teamID, userID string) (*model.TeamMember, error) {
	args := m.Called(ctx, teamID, userID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.TeamMember), args.Error(1)
}

func (m *mockMemberRepo) FindByID(ctx context.Context, teamID, memberID string) (*model.TeamMember, error) {
	args := m.Called(ctx, teamID, memberID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.TeamMember), args.Error(1)
}

func (m *mockMemberRepo) ListWithUsers(ctx context.Context, teamID string) ([]model.MemberWithUser, error) {
	args := m.Called(ctx, teamID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]model.MemberWithUser), args.Error(1)
}

func (m *mockMemberRepo) Create(ctx context.Context, teamID, userID string, role model.TeamRole) (*model.TeamMember, error) {
	args := m.Called(ctx, teamID, userID, role)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.TeamMember), args.Error(1)
}

func (m *mockMemberRepo) UpdateRole(ctx context.Context, teamID, memberID string, role model.TeamRole) (*model.TeamMember, error) {
	args := m.Called(ctx, teamID, memberID, role)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.TeamMember), args.Error(1)
}

func (m *mockMemberRepo) Delete(ctx context.Context, teamID, memberID string) (bool, error) {
	args := m.Called(ctx, teamID, memberID)
	return args.Bool(0), args.Error(1)
}

func (m *mockMemberRepo) WithTx(*sqlx.Tx) repository.TeamMemberRepository {
	return m
}

type mockInvitationRepo struct {
	mock.Mock
}

func (m *mockInvitationRepo) ListPending(ctx context.Context, teamID string) ([]model.TeamInvitation, error) {
	args := m.Called(ctx, teamID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]model.TeamInvitation), args.Error(1)
}

func (m *mockInvitationRepo) Create(ctx context.Context, params model.CreateInvitationParams) (*model.TeamInvitation, error) {
	args := m.Called(ctx, params)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.TeamInvitation), args.Error(1)
}

func (m *mockInvitationRepo) Delete(ctx context.Context, teamID, invitationID string) (bool, error) {
	args := m.Called(ctx, teamID, invitationID)
	return args.Bool(0), args.Error(1)
}

func (m *mockInvitationRepo) DeleteExpired(ctx context.Context) (int64, error) {
	args := m.Called(ctx)
	return args.Get(0).(int64), args.Error(1)
}

type mockProviderRepo struct {
	mock.Mock
}

func (m *mockProviderRepo) ListByTeam(ctx context.Context, teamID string) ([]model.ProviderConnection, error) {
	args := m.Called(ctx, teamID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]model.ProviderConnection), args.Error(1)
}

func (m *mockProviderRepo) ListActive(ctx context.Context, teamID string) ([]model.ProviderConnection, error) {
	args := m.Called(ctx, teamID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]model.ProviderConnection), args.Error(1)
}

func (m *mockProviderRepo) FindByID(ctx context.Context, teamID, id string) (*model.ProviderConnection, error) {
	args := m.Called(ctx, teamID, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.ProviderConnection), args.Error(1)
}

func (m *mockProviderRepo) CountInTeam(ctx context.Context, teamID string, ids []string) (int, error) {
	args := m.Called(ctx, teamID, ids)
	return args.Int(0), args.Error(1)
}

func (m *mockProviderRepo) Create(ctx context.Context, params model.CreateProviderConnectionParams) (*model.ProviderConnection, error) {
	args := m.Called(ctx, params)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.ProviderConnection), args.Error(1)
}

func (m *mockProviderRepo) Delete(ctx context.Context, teamID, id string) (bool, error) {
	args := m.Called(ctx, teamID, id)
	return args.Bool(0), args.Error(1)
}

func (m *mockProviderRepo) TouchLastSync(ctx context.Context, teamID, id string, at time.Time) (*model.ProviderConnection, error) {
	args := m.Called(ctx, teamID, id, at)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.ProviderConnection), args.Error(1)
}

func (m *mockProviderRepo) WithTx(*sqlx.Tx) repository.ProviderRepository {
	return m
}

type mockSpendingRepo struct {
	mock.Mock
}

func (m *mockSpendingRepo) List(ctx context.Context, filter model.SpendingFilter) ([]model.SpendingEntry, error) {
	args := m.Called(ctx, filter)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]model.SpendingEntry), args.Error(1)
}

func (m *mockSpendingRepo) Total(ctx context.Context, teamID string, start, end time.Time) (float64, error) {
	args := m.Called(ctx, teamID, start, end)
	return args.Get(0).(float64), args.Error(1)
}

func (m *mockSpendingRepo) ByProvider(ctx context.Context, teamID string, start, end time.Time) ([]model.Amount, error) {
	args := m.Called(ctx, teamID, start, end)
	return args.Get(0).([]model.Amount), args.Error(1)
}

func (m *mockSpendingRepo) ByModel(ctx context.Context, teamID string, start, end time.Time) ([]model.Amount, error) {
	args := m.Called(ctx, teamID, start, end)
	return args.Get(0).([]model.Amount), args.Error(1)
}

func (m *mockSpendingRepo) Daily(ctx context.Context, teamID string, start, end time.Time) ([]model.Amount, error) {
	args := m.Called(ctx, teamID, start, end)
	return args.Get(0).([]model.Amount), args.Error(1)
}

func (m *mockSpendingRepo) Create(ctx context.Context, params model.CreateSpendingEntryParams) (*model.SpendingEntry, error) {
	args := m.Called(ctx, params)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.SpendingEntry), args.Error(1)
}

func (m *mockSpendingRepo) WithTx(*sqlx.Tx) repository.SpendingRepository {
	return m
}

type mockBudgetRepo struct {
	mock.Mock
}

func (m *mockBudgetRepo) ListByTeam(ctx context.Context, teamID string) ([]model.Budget, error) {
	args := m.Called(ctx, teamID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]model.Budget), args.Error(1)
}

func (m *mockBudgetRepo) ClaimAlert(ctx context.Context, budgetID string, periodStart, at time.Time) (bool, error) {
	args := m.Called(ctx, budgetID, periodStart, at)
	return args.Bool(0), args.Error(1)
}

type mockResetTokenRepo struct {
	mock.Mock
}

func (m *mockResetTokenRepo) Create(ctx context.Context, params model.CreateResetTokenParams) (*model.PasswordResetToken, error) {
	args := m.Called(ctx, params)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.PasswordResetToken), args.Error(1)
}

func (m *mockResetTokenRepo) FindByHash(ctx context.Context, tokenHash string) (*model.PasswordResetToken, error) {
	args := m.Called(ctx, tokenHash)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.PasswordResetToken), args.Error(1)
}

func (m *mockResetTokenRepo) MarkUsed(ctx context.Context, id string, at time.Time) (bool, error) {
	args := m.Called(ctx, id, at)
	return args.Bool(0), args.Error(1)
}

func (m *mockResetTokenRepo) DeleteStale(ctx context.Context, olderThan time.Time) (int64, error) {
	args := m.Called(ctx, olderThan)
	return args.Get(0).(int64), args.Error(1)
}

func (m *mockResetTokenRepo) WithTx(*sqlx.Tx) repository.ResetTokenRepository {
	return m
}

type mockAPIKeyRepo struct {
	mock.Mock
}

func (m *mockAPIKeyRepo) ListByUser(ctx context.Context, userID string) ([]model.APIKey, error) {
	args := m.Called(ctx, userID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]model.APIKey), args.Error(1)
}

func (m *mockAPIKeyRepo) FindByID(ctx context.Context, id string) (*model.APIKey, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.APIKey), args.Error(1)
}

func (m *mockAPIKeyRepo) FindByHash(ctx context.Context, keyHash string) (*model.APIKey, error) {
	args := m.Called(ctx, keyHash)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.APIKey), args.Error(1)
}

func (m *mockAPIKeyRepo) Create(ctx context.Context, params model.CreateAPIKeyParams) (*model.APIKey, error) {
	args := m.Called(ctx, params)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.APIKey), args.Error(1)
}

func (m *mockAPIKeyRepo) Rename(ctx context.Context, id, name string) (*model.APIKey, error) {
	args := m.Called(ctx, id, name)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.APIKey), args.Error(1)
}

func (m *mockAPIKeyRepo) Delete(ctx context.Context, id string) error {
	return m.Called(ctx, id).Error(0)
}

func (m *mockAPIKeyRepo) TouchLastUsed(ctx context.Context, id string, at time.Time) error {
	return m.Called(ctx, id, at).Error(0)
}

type mockPlanRepo struct {
	mock.Mock
}

func (m *mockPlanRepo) List(ctx context.Context) ([]model.SubscriptionPlan, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]model.SubscriptionPlan), args.Error(1)
}

func (m *mockPlanRepo) FindByID(ctx context.Context, id string) (*model.SubscriptionPlan, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.SubscriptionPlan), args.Error(1)
}

type mockSubscriptionRepo struct {
	mock.Mock
}

func (m *mockSubscriptionRepo) FindByUserID(ctx context.Context, userID string) (*model.Subscription, error) {
	args := m.Called(ctx, userID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.Subscription), args.Error(1)
}

func (m *mockSubscriptionRepo) Create(ctx context.Context, params model.UpsertSubscriptionParams) (*model.Subscription, error) {
	args := m.Called(ctx, params)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.Subscription), args.Error(1)
}

func (m *mockSubscriptionRepo) Update(ctx context.Context, params model.UpsertSubscriptionParams) (*model.Subscription, error) {
	args := m.Called(ctx, params)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.Subscription), args.Error(1)
}

type mockNotifier struct {
	mock.Mock
}

func (m *mockNotifier) SendPasswordReset(ctx context.Context, to, token string) error {
	return m.Called(ctx, to, token).Error(0)
}

func (m *mockNotifier) SendWelcome(ctx context.Context, to, name string) error {
	return m.Called(ctx, to, name).Error(0)
}

func (m *mockNotifier) SendTeamInvite(ctx context.Context, to, teamName, token string) error {
	return m.Called(ctx, to, teamName, token).Error(0)
}

func (m *mockNotifier) SendAlert(ctx context.Context, to, teamName, message string) error {
	return m.Called(ctx, to, teamName, message).Error(0)
}

// recordingPublisher keeps every published event.
type recordingPublisher struct {
	events []events.Event
}

func (p *recordingPublisher) Publish(_ context.Context, _ string, event events.Event) error {
	p.events = append(p.events, event)
	return nil
}

func (p *recordingPublisher) types() []string {
	types := make([]string, len(p.events))
	for i, e := range p.events {
		types[i] = e.Type
	}
	return types
}
