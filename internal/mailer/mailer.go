// Package mailer sends transactional email over SMTP. Messages are built
// from html/template bodies with a plain-text alternative.
package mailer

import (
	"bytes"
	"fmt"
	"html/template"
	"strings"

	"github.com/rs/zerolog"
	"gopkg.in/gomail.v2"

	"github.com/roamly/tour-booking/internal/config"
	"github.com/roamly/tour-booking/internal/repository"
)

// Mailer sends the application's outbound email.
type Mailer struct {
	dialer *gomail.Dialer
	from   string
	logger zerolog.Logger
}

func New(cfg config.Config, logger zerolog.Logger) *Mailer {
	return &Mailer{
		dialer: gomail.NewDialer(cfg.SMTPHost, cfg.SMTPPort, cfg.SMTPUser, cfg.SMTPPass),
		from:   cfg.MailFrom,
		logger: logger,
	}
}

// SendWelcome greets a freshly signed-up user with a link to their account.
func (m *Mailer) SendWelcome(user repository.User, url string) error {
	return m.send(user, url, "Welcome to the Roamly Family", welcomeTmpl)
}

// SendPasswordReset mails the single-use reset URL. The subject names the
// validity window so stale links are less surprising.
func (m *Mailer) SendPasswordReset(user repository.User, url string) error {
	return m.send(user, url, "Your password reset token (valid for 10 mins)", resetTmpl)
}

func (m *Mailer) send(user repository.User, url, subject string, tmpl *template.Template) error {
	firstName := user.Name
	if i := strings.IndexByte(firstName, ' '); i > 0 {
		firstName = firstName[:i]
	}

	var html bytes.Buffer
	if err := tmpl.Execute(&html, map[string]string{
		"FirstName": firstName,
		"URL":       url,
		"Subject":   subject,
	}); err != nil {
		return fmt.Errorf("render email: %w", err)
	}

	msg := gomail.NewMessage()
	msg.SetHeader("From", m.from)
	msg.SetHeader("To", user.Email)
	msg.SetHeader("Subject", subject)
	msg.SetBody("text/html", html.String())
	msg.AddAlternative("text/plain", fmt.Sprintf("Hi %s,\n\n%s\n", firstName, url))

	if err := m.dialer.DialAndSend(msg); err != nil {
		m.logger.Error().Err(err).Str("to", user.Email).Str("subject", subject).
			Msg("email send failed")
		return err
	}
	m.logger.Debug().Str("to", user.Email).Str("subject", subject).Msg("email sent")
	return nil
}

var welcomeTmpl = template.Must(template.New("welcome").Parse(`<html><body>
<h2>{{.Subject}}</h2>
<p>Hi {{.FirstName}}, welcome aboard! We're glad to have you.</p>
<p><a href="{{.URL}}">Visit your account</a> to upload a photo and explore tours.</p>
</body></html>`))

var resetTmpl = template.Must(template.New("reset").Parse(`<html><body>
<h2>Forgot your password?</h2>
<p>Hi {{.FirstName}}, submit a new password using the link below.</p>
<p><a href="{{.URL}}">Reset my password</a></p>
<p>If you didn't request this, just ignore this email.</p>
</body></html>`))
