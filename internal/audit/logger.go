package audit

import (
	"context"
	"net"
	"net/http"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

type EventType string

const (
	EventLoginSuccess       EventType = "login_success"
	EventLoginFailure       EventType = "login_failure"
	EventSignup             EventType = "signup"
	EventPasswordResetReq   EventType = "password_reset_requested"
	EventPasswordResetDone  EventType = "password_reset_completed"
	EventPasswordChange     EventType = "password_change"
	EventAPIKeyCreate       EventType = "api_key_create"
	EventAPIKeyDelete       EventType = "api_key_delete"
	EventProviderConnect    EventType = "provider_connect"
	EventProviderDisconnect EventType = "provider_disconnect"
	EventMemberRemove       EventType = "member_remove"
	EventMemberRoleChange   EventType = "member_role_change"
	EventInvitationCreate   EventType = "invitation_create"
	EventRateLimitExceed    EventType = "rate_limit_exceeded"
	EventAuthFailure        EventType = "auth_failure"
	EventSubscriptionChange EventType = "subscription_change"
)

type Event struct {
	Type      EventType
	UserID    string
	TeamID    string
	IP        string
	UserAgent string
	Details   map[string]any
}

func Log(ctx context.Context, event Event) {
	logger := log.With().
		Str("audit", "security").
		Str("event_type", string(event.Type)).
		Time("timestamp", time.Now()).
		Logger()

	if event.UserID != "" {
		logger = logger.With().Str("user_id", event.UserID).Logger()
	}
	if event.TeamID != "" {
		logger = logger.With().Str("team_id", event.TeamID).Logger()
	}
	if event.IP != "" {
		logger = logger.With().Str("ip", event.IP).Logger()
	}
	if event.UserAgent != "" {
		logger = logger.With().Str("user_agent", event.UserAgent).Logger()
	}

	logEvent := logger.Info()
	for k, v := range event.Details {
		logEvent = addField(logEvent, k, v)
	}
	logEvent.Msg("security audit event")
}

func addField(e *zerolog.Event, key string, value any) *zerolog.Event {
	switch v := value.(type) {
	case string:
		return e.Str(key, v)
	case int:
		return e.Int(key, v)
	case int64:
		return e.Int64(key, v)
	case bool:
		return e.Bool(key, v)
	default:
		return e.Interface(key, v)
	}
}

func LogFromRequest(r *http.Request, event Event) {
	event.IP = ClientIP(r)
	event.UserAgent = r.UserAgent()
	Log(r.Context(), event)
}

// ClientIP prefers the first X-Forwarded-For hop, then X-Real-IP, then the
// connection address without its port.
func ClientIP(r *http.Request) string {
	if forwarded := r.Header.Get("X-Forwarded-For"); forwarded != "" {
		first, _, _ := strings.Cut(forwarded, ",")
		return strings.TrimSpace(first)
	}
	if realIP := r.Header.Get("X-Real-IP"); realIP != "" {
		return realIP
	}
	if host, _, err := net.SplitHostPort(r.RemoteAddr); err == nil {
		return host
	}
	return r.RemoteAddr
}
