package email

import (
	"context"
	"fmt"
	"html/template"

	"github.com/rs/zerolog/log"
	"github.com/sendgrid/sendgrid-go"
	"github.com/sendgrid/sendgrid-go/helpers/mail"

	"github.com/tokenmeter/tokenmeter-api/internal/config"
)

const senderName = "aiMonitor"

type SendGridNotifier struct {
	client *sendgrid.Client
	from   *mail.Email
	links  Links
}

func NewSendGridNotifier(apiKey, from string, links Links) *SendGridNotifier {
	return &SendGridNotifier{
		client: sendgrid.NewSendClient(apiKey),
		from:   mail.NewEmail(senderName, from),
		links:  links,
	}
}

func (n *SendGridNotifier) SendPasswordReset(ctx context.Context, to, token string) error {
	link := n.links.ResetPassword(token)
	return n.send(ctx, to, "Reset Your aiMonitor Password", resetTemplate, templateData{Link: link})
}

func (n *SendGridNotifier) SendWelcome(ctx context.Context, to, name string) error {
	return n.send(ctx, to, "Welcome to aiMonitor!", welcomeTemplate, templateData{
		Name: name,
		Link: n.links.Login(),
	})
}

func (n *SendGridNotifier) SendTeamInvite(ctx context.Context, to, teamName, token string) error {
	subject := fmt.Sprintf("You've been invited to join %s on aiMonitor", teamName)
	return n.send(ctx, to, subject, inviteTemplate, templateData{
		TeamName: teamName,
		Link:     n.links.AcceptInvite(token),
	})
}

func (n *SendGridNotifier) SendAlert(ctx context.Context, to, teamName, message string) error {
	return n.send(ctx, to, "Cost Alert: "+teamName, alertTemplate, templateData{
		TeamName: teamName,
		Message:  message,
		Link:     n.links.Dashboard(),
	})
}

func (n *SendGridNotifier) send(ctx context.Context, to, subject string, t *template.Template, data templateData) error {
	html, err := render(t, data)
	if err != nil {
		return fmt.Errorf("render %s email: %w", t.Name(), err)
	}

	ctx, cancel := context.WithTimeout(ctx, config.EmailSendTimeout)
	defer cancel()

	plain := subject
	if data.Link != "" {
		plain += "\n\n" + data.Link
	}

	message := mail.NewSingleEmail(n.from, subject, mail.NewEmail("", to), plain, html)
	resp, err := n.client.SendWithContext(ctx, message)
	if err != nil {
		return fmt.Errorf("send %s email: %w", t.Name(), err)
	}
	if resp.StatusCode >= 400 {
		return fmt.Errorf("send %s email: sendgrid returned status %d", t.Name(), resp.StatusCode)
	}

	log.Debug().
		Str("template", t.Name()).
		Int("status", resp.StatusCode).
		Msg("email sent")
	return nil
}
