package service

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"html/template"

	"gopkg.in/gomail.v2"
)

const DefaultMailFrom = "Life Organizer <no-reply@urlifeorganizer.com>"

var mailTemplates = template.Must(template.New("verification").Parse(`<p>Hi {{.Name}},</p>
<p>Click <a href="{{.Link}}">here</a> to verify your email address.</p>
<p>This link will expire in 1 hour.</p>`))

func init() {
	template.Must(mailTemplates.New("reset").Parse(`<p>Hi {{.Name}},</p>
<p>Someone asked to reset the password of the account registered as {{.To}}.</p>
<p>Click <a href="{{.Link}}">here</a> to choose a new password. If it wasn't you, ignore this email.</p>`))
}

var subjects = map[MailKind]string{
	MailVerification: "Verify your email to start using Life Organizer",
	MailReset:        "Reset your Life Organizer password",
}

type MailConfig struct {
	Host     string
	Port     int
	Username string
	Password string
	From     string
	SSL      bool
}

type mailDialer interface {
	DialAndSend(m ...*gomail.Message) error
}

// Mailer delivers notifications over SMTP.
type Mailer struct {
	from   string
	dialer mailDialer
}

func NewMailer(cfg MailConfig) *Mailer {
	d := gomail.NewDialer(cfg.Host, cfg.Port, cfg.Username, cfg.Password)
	d.SSL = cfg.SSL

	from := cfg.From
	if from == "" {
		from = DefaultMailFrom
	}

	return &Mailer{from: from, dialer: d}
}

func (m *Mailer) Notify(ctx context.Context, msg Message) error {
	const op = "service.Mailer.Notify"

	if err := ctx.Err(); err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}

	mail, err := m.compose(msg)
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}

	if err := m.dialer.DialAndSend(mail); err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}

	return nil
}

func (m *Mailer) compose(msg Message) (*gomail.Message, error) {
	if msg.To == "" {
		return nil, errors.New("no recipient")
	}

	subject, ok := subjects[msg.Kind]
	if !ok {
		return nil, fmt.Errorf("unknown mail kind %q", msg.Kind)
	}

	body, err := renderBody(msg)
	if err != nil {
		return nil, err
	}

	mail := gomail.NewMessage()
	mail.SetHeader("From", m.from)
	mail.SetHeader("To", msg.To)
	mail.SetHeader("Subject", subject)
	mail.SetBody("text/html", body)

	return mail, nil
}

func renderBody(msg Message) (string, error) {
	var body bytes.Buffer
	if err := mailTemplates.ExecuteTemplate(&body, string(msg.Kind), msg); err != nil {
		return "", err
	}

	return body.String(), nil
}
