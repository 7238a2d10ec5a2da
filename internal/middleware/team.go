package middleware

import (
	"context"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog/log"

	"github.com/tokenmeter/tokenmeter-api/internal/model"
	"github.com/tokenmeter/tokenmeter-api/internal/util"
)

const TeamContextKey contextKey = "team"

const (
	msgTeamDenied    = "Access denied to this team"
	msgAdminRequired = "Admin access required"
)

// TeamContext is the caller's membership in the team named by the route.
type TeamContext struct {
	ID   string
	Role model.TeamRole
}

func GetTeam(ctx context.Context) *TeamContext {
	if team, ok := ctx.Value(TeamContextKey).(*TeamContext); ok {
		return team
	}
	return nil
}

func WithTeam(ctx context.Context, team *TeamContext) context.Context {
	return context.WithValue(ctx, TeamContextKey, team)
}

type MembershipFinder interface {
	FindMembership(ctx context.Context, teamID, userID string) (*model.TeamMember, error)
}

// TeamAccess admits only members of the {teamId} route parameter. It must run
// after AuthMiddleware.
type TeamAccess struct {
	members MembershipFinder
}

func NewTeamAccess(members MembershipFinder) *TeamAccess {
	return &TeamAccess{members: members}
}

func (m *TeamAccess) Handler(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		identity := GetIdentity(r.Context())
		teamID := chi.URLParam(r, "teamId")
		if identity == nil || !util.IsValidUUID(teamID) {
			writeMessage(w, http.StatusForbidden, msgTeamDenied)
			return
		}

		membership, err := m.members.FindMembership(r.Context(), teamID, identity.ID)
		if err != nil {
			log.Error().Err(err).Str("teamId", teamID).Msg("team access: membership lookup failed")
			writeMessage(w, http.StatusInternalServerError, "Failed to verify team access")
			return
		}
		if membership == nil {
			writeMessage(w, http.StatusForbidden, msgTeamDenied)
			return
		}

		ctx := WithTeam(r.Context(), &TeamContext{ID: teamID, Role: membership.Role})
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// RequireAdmin admits owners and admins of the team resolved by TeamAccess.
func RequireAdmin(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		team := GetTeam(r.Context())
		if team == nil || !team.Role.IsAdmin() {
			writeMessage(w, http.StatusForbidden, msgAdminRequired)
			return
		}
		next.ServeHTTP(w, r)
	})
}
