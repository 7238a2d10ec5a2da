package handler

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/tokenmeter/tokenmeter-api/internal/auth"
	"github.com/tokenmeter/tokenmeter-api/internal/middleware"
	"github.com/tokenmeter/tokenmeter-api/internal/model"
	"github.com/tokenmeter/tokenmeter-api/internal/service"
)

const (
	testUserID = "3f2b8c1d-0000-4000-8000-000000000001"
	testTeamID = "0b9c2d4e-1f3a-4b5c-8d7e-6f5a4b3c2d1e"
)

var testIdentity = &auth.Claims{ID: testUserID, Email: "a@b.com", Username: "abc123"}

// authenticated stands in for AuthMiddleware.
func authenticated(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		next.ServeHTTP(w, r.WithContext(middleware.WithIdentity(r.Context(), testIdentity)))
	})
}

// teamAs stands in for TeamAccess, granting the caller role in the routed team.
func teamAs(role model.TeamRole) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx := middleware.WithTeam(r.Context(), &middleware.TeamContext{ID: testTeamID, Role: role})
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// serve runs one request through routes, optionally as the test identity.
func serve(t *testing.T, routes http.Handler, method, target, body string, signedIn bool) *httptest.ResponseRecorder {
	t.Helper()
	var reader io.Reader
	if body != "" {
		reader = strings.NewReader(body)
	}
	req := httptest.NewRequest(method, target, reader)
	req.Header.Set("Content-Type", "application/json")

	handler := routes
	if signedIn {
		handler = authenticated(routes)
	}
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	return rec
}

func decodeBody(t *testing.T, rec *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var body map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body), rec.Body.String())
	return body
}

func strPtr(s string) *string { return &s }

func testUser() *model.User {
	return &model.User{
		ID:        testUserID,
		Email:     "a@b.com",
		Username:  "abc123",
		Name:      "A B",
		Company:   strPtr("Acme"),
		Timezone:  "UTC",
		CreatedAt: time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC),
	}
}

type mockAuthService struct {
	mock.Mock
}

func (m *mockAuthService) Login(ctx context.Context, input service.LoginInput) (*service.AuthResult, error) {
	args := m.Called(ctx, input)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*service.AuthResult), args.Error(1)
}

func (m *mockAuthService) Signup(ctx context.Context, input service.SignupInput) (*service.AuthResult, error) {
	args := m.Called(ctx, input)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*service.AuthResult), args.Error(1)
}

func (m *mockAuthService) RefreshToken(ctx context.Context, token string) (*service.AuthResult, error) {
	args := m.Called(ctx, token)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*service.AuthResult), args.Error(1)
}

func (m *mockAuthService) OAuthCallback(ctx context.Context, input service.OAuthInput) error {
	return m.Called(ctx, input).Error(0)
}

func (m *mockAuthService) LandingEmail(ctx context.Context, address string) error {
	return m.Called(ctx, address).Error(0)
}

type mockResetService struct {
	mock.Mock
}

func (m *mockResetService) RequestReset(ctx context.Context, address string) error {
	return m.Called(ctx, address).Error(0)
}

func (m *mockResetService) CompleteReset(ctx context.Context, token, newPassword string) (string, error) {
	args := m.Called(ctx, token, newPassword)
	return args.String(0), args.Error(1)
}

type mockUserService struct {
	mock.Mock
}

func (m *mockUserService) GetProfile(ctx context.Context, userID string) (*model.User, error) {
	args := m.Called(ctx, userID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.User), args.Error(1)
}

func (m *mockUserService) UpdateProfile(ctx context.Context, userID string, params model.UpdateProfileParams) (*model.User, error) {
	args := m.Called(ctx, userID, params)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.User), args.Error(1)
}

func (m *mockUserService) GetAlerts(ctx context.Context, userID string) (*model.AlertSettings, error) {
	args := m.Called(ctx, userID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.AlertSettings), args.Error(1)
}

func (m *mockUserService) UpdateAlerts(ctx context.Context, userID string, params model.UpdateAlertSettingsParams) (*model.AlertSettings, error) {
	args := m.Called(ctx, userID, params)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.AlertSettings), args.Error(1)
}

func (m *mockUserService) ChangePassword(ctx context.Context, userID, current, next string) error {
	return m.Called(ctx, userID, current, next).Error(0)
}

type mockAPIKeyService struct {
	mock.Mock
}

func (m *mockAPIKeyService) List(ctx context.Context, userID string) ([]model.APIKey, error) {
	args := m.Called(ctx, userID)
	keys, _ := args.Get(0).([]model.APIKey)
	return keys, args.Error(1)
}

func (m *mockAPIKeyService) Create(ctx context.Context, userID, name string) (*service.CreatedAPIKey, error) {
	args := m.Called(ctx, userID, name)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*service.CreatedAPIKey), args.Error(1)
}

func (m *mockAPIKeyService) Rename(ctx context.Context, userID, keyID, name string) (*model.APIKey, error) {
	args := m.Called(ctx, userID, keyID, name)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.APIKey), args.Error(1)
}

func (m *mockAPIKeyService) Delete(ctx context.Context, userID, keyID string) error {
	return m.Called(ctx, userID, keyID).Error(0)
}

type mockTeamService struct {
	mock.Mock
}

func (m *mockTeamService) ListForUser(ctx context.Context, userID string) ([]model.TeamWithRole, error) {
	args := m.Called(ctx, userID)
	teams, _ := args.Get(0).([]model.TeamWithRole)
	return teams, args.Error(1)
}

func (m *mockTeamService) Create(ctx context.Context, userID, name string) (*model.Team, error) {
	args := m.Called(ctx, userID, name)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.Team), args.Error(1)
}

func (m *mockTeamService) Get(ctx context.Context, teamID string) (*model.Team, error) {
	args := m.Called(ctx, teamID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.Team), args.Error(1)
}

func (m *mockTeamService) ListMembers(ctx context.Context, teamID string) ([]model.MemberListing, error) {
	args := m.Called(ctx, teamID)
	members, _ := args.Get(0).([]model.MemberListing)
	return members, args.Error(1)
}

func (m *mockTeamService) Invite(ctx context.Context, input service.InviteInput) (*model.TeamInvitation, error) {
	args := m.Called(ctx, input)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.TeamInvitation), args.Error(1)
}

func (m *mockTeamService) RemoveMember(ctx context.Context, teamID, memberID string) error {
	return m.Called(ctx, teamID, memberID).Error(0)
}

func (m *mockTeamService) UpdateMemberRole(ctx context.Context, teamID, memberID string, role model.TeamRole) (*model.TeamMember, error) {
	args := m.Called(ctx, teamID, memberID, role)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.TeamMember), args.Error(1)
}

func (m *mockTeamService) CancelInvitation(ctx context.Context, teamID, invitationID string) error {
	return m.Called(ctx, teamID, invitationID).Error(0)
}

type mockProviderService struct {
	mock.Mock
}

func (m *mockProviderService) List(ctx context.Context, teamID string) ([]model.ProviderConnection, error) {
	args := m.Called(ctx, teamID)
	providers, _ := args.Get(0).([]model.ProviderConnection)
	return providers, args.Error(1)
}

func (m *mockProviderService) Connect(ctx context.Context, teamID, providerName, apiKey string) (*model.ProviderConnection, error) {
	args := m.Called(ctx, teamID, providerName, apiKey)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.ProviderConnection), args.Error(1)
}

func (m *mockProviderService) Disconnect(ctx context.Context, teamID, providerID string) error {
	return m.Called(ctx, teamID, providerID).Error(0)
}

func (m *mockProviderService) Sync(ctx context.Context, teamID, providerID string) (*model.ProviderConnection, error) {
	args := m.Called(ctx, teamID, providerID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.ProviderConnection), args.Error(1)
}

type mockSpendingService struct {
	mock.Mock
}

func (m *mockSpendingService) List(ctx context.Context, filter model.SpendingFilter) ([]model.SpendingEntry, error) {
	args := m.Called(ctx, filter)
	entries, _ := args.Get(0).([]model.SpendingEntry)
	return entries, args.Error(1)
}

func (m *mockSpendingService) Summary(ctx context.Context, teamID string, start, end *time.Time) (*model.SpendingSummary, error) {
	args := m.Called(ctx, teamID, start, end)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.SpendingSummary), args.Error(1)
}

func (m *mockSpendingService) Import(ctx context.Context, teamID string, rows []service.ImportRow) (int, error) {
	args := m.Called(ctx, teamID, rows)
	return args.Int(0), args.Error(1)
}

type mockBillingService struct {
	mock.Mock
}

func (m *mockBillingService) Current(ctx context.Context, userID string) (*service.BillingOverview, error) {
	args := m.Called(ctx, userID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*service.BillingOverview), args.Error(1)
}

func (m *mockBillingService) ChangePlan(ctx context.Context, userID, planID string) (*service.PlanChange, error) {
	args := m.Called(ctx, userID, planID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*service.PlanChange), args.Error(1)
}

type mockRatingService struct {
	mock.Mock
}

func (m *mockRatingService) List(ctx context.Context) ([]service.RatedProvider, error) {
	args := m.Called(ctx)
	providers, _ := args.Get(0).([]service.RatedProvider)
	return providers, args.Error(1)
}

func (m *mockRatingService) Get(ctx context.Context, slug string) (*service.RatedProvider, error) {
	args := m.Called(ctx, slug)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*service.RatedProvider), args.Error(1)
}
