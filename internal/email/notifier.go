package email

import (
	"context"
	"fmt"
	"net/url"
)

// Notifier delivers transactional email.
type Notifier interface {
	SendPasswordReset(ctx context.Context, to, token string) error
	SendWelcome(ctx context.Context, to, name string) error
	SendTeamInvite(ctx context.Context, to, teamName, token string) error
	SendAlert(ctx context.Context, to, teamName, message string) error
}

// Links builds the frontend URLs embedded in outgoing mail.
type Links struct {
	FrontendURL string
}

func (l Links) ResetPassword(token string) string {
	return fmt.Sprintf("%s/reset-password?token=%s", l.FrontendURL, url.QueryEscape(token))
}

func (l Links) AcceptInvite(token string) string {
	return fmt.Sprintf("%s/invite?token=%s", l.FrontendURL, url.QueryEscape(token))
}

func (l Links) Login() string {
	return l.FrontendURL + "/login"
}

func (l Links) Dashboard() string {
	return l.FrontendURL + "/dashboard"
}

// New returns a SendGrid-backed notifier, or a LogNotifier when no API key
// is configured.
func New(apiKey, from string, links Links) Notifier {
	if apiKey == "" {
		return NewLogNotifier()
	}
	return NewSendGridNotifier(apiKey, from, links)
}
