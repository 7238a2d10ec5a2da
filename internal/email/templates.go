package email

import (
	"bytes"
	"html/template"
)

const buttonStyle = "display: inline-block; padding: 12px 24px; color: white; text-decoration: none; border-radius: 6px; font-weight: 600;"

var (
	resetTemplate = template.Must(template.New("reset").Parse(`
<h2>Password Reset Request</h2>
<p>You requested to reset your password for your aiMonitor account.</p>
<p>Click the link below to reset your password (link expires in 1 hour):</p>
<a href="{{.Link}}" style="{{.Style}} background: #6366F1;">Reset Password</a>
<p style="margin-top: 20px; font-size: 12px; color: #666;">
  If you didn't request this, please ignore this email.<br>
  Or copy this link in your browser: {{.Link}}
</p>`))

	welcomeTemplate = template.Must(template.New("welcome").Parse(`
<h2>Welcome to aiMonitor, {{.Name}}!</h2>
<p>Your account has been successfully created.</p>
<p>You can now log in to your dashboard and start monitoring your AI costs.</p>
<a href="{{.Link}}" style="{{.Style}} background: #6366F1; margin: 20px 0;">Go to Dashboard</a>
<p style="margin-top: 30px; font-size: 12px; color: #666;">
  Questions? Reply to this email or visit our help center.
</p>`))

	inviteTemplate = template.Must(template.New("invite").Parse(`
<h2>Team Invitation</h2>
<p>You've been invited to join the team <strong>{{.TeamName}}</strong> on aiMonitor.</p>
<p>Click the link below to accept the invitation:</p>
<a href="{{.Link}}" style="{{.Style}} background: #6366F1;">Accept Invitation</a>
<p style="margin-top: 20px; font-size: 12px; color: #666;">This invitation expires in 7 days.</p>`))

	alertTemplate = template.Must(template.New("alert").Parse(`
<h2>Cost Alert</h2>
<p>Your team <strong>{{.TeamName}}</strong> has triggered a cost alert:</p>
<p>{{.Message}}</p>
<a href="{{.Link}}" style="{{.Style}} background: #F59E0B; margin: 20px 0;">View Dashboard</a>`))
)

type templateData struct {
	Name     string
	TeamName string
	Message  string
	Link     string
	Style    template.CSS
}

func render(t *template.Template, data templateData) (string, error) {
	data.Style = template.CSS(buttonStyle)
	var buf bytes.Buffer
	if err := t.Execute(&buf, data); err != nil {
		return "", err
	}
	return buf.String(), nil
}
