// Copyright (c) 2026 Yomira. All rights reserved.
// Author: tai.buivan.jp@gmail.com

package otp

import (
	"bytes"
	"context"
	"embed"
	"fmt"
	"html/template"
	"log/slog"
	"time"

	"github.com/wneessen/go-mail"
)

//go:embed templates/code.html
var templateFS embed.FS

var codeTemplate = template.Must(template.ParseFS(templateFS, "templates/code.html"))

const codeSubject = "Your HealthID sign-in code"

type codeView struct {
	Code    string
	Minutes int
}

// renderCode renders the HTML body for a code e-mail.
func renderCode(code string, ttl time.Duration) (string, error) {
	var buffer bytes.Buffer
	view := codeView{Code: code, Minutes: int(ttl.Round(time.Minute) / time.Minute)}
	if err := codeTemplate.Execute(&buffer, view); err != nil {
		return "", fmt.Errorf("otp_render_template_failed: %w", err)
	}
	return buffer.String(), nil
}

// # SMTP Sender

// SMTPConfig holds outbound mail settings.
type SMTPConfig struct {
	Host     string
	Port     int
	Username string
	Password string
	From     string
}

// SMTPSender delivers codes by e-mail through an SMTP relay.
type SMTPSender struct {
	client *mail.Client
	from   string
}

// NewSMTPSender builds the process-wide SMTP client.
func NewSMTPSender(config SMTPConfig) (*SMTPSender, error) {
	options := []mail.Option{
		mail.WithPort(config.Port),
		mail.WithTLSPolicy(mail.TLSOpportunistic),
		mail.WithTimeout(10 * time.Second),
	}
	if config.Username != "" {
		options = append(options,
			mail.WithSMTPAuth(mail.SMTPAuthPlain),
			mail.WithUsername(config.Username),
			mail.WithPassword(config.Password),
		)
	}

	client, err := mail.NewClient(config.Host, options...)
	if err != nil {
		return nil, fmt.Errorf("otp: failed to configure smtp client: %w", err)
	}
	return &SMTPSender{client: client, from: config.From}, nil
}

/*
SendCode e-mails code to the given address.

Parameters:
  - context: context.Context
  - to: string (E-mail address)
  - code: string
  - ttl: time.Duration (Shown to the user)

Returns:
  - error: Rendering or delivery failures
*/
func (sender *SMTPSender) SendCode(context context.Context, to, code string, ttl time.Duration) error {
	body, err := renderCode(code, ttl)
	if err != nil {
		return err
	}

	message := mail.NewMsg()
	if err := message.From(sender.from); err != nil {
		return fmt.Errorf("otp_mail_from_invalid: %w", err)
	}
	if err := message.To(to); err != nil {
		return fmt.Errorf("otp_mail_to_invalid: %w", err)
	}
	message.Subject(codeSubject)
	message.SetBodyString(mail.TypeTextPlain, fmt.Sprintf("Your HealthID sign-in code is %s", code))
	message.AddAlternativeString(mail.TypeTextHTML, body)

	if err := sender.client.DialAndSendWithContext(context, message); err != nil {
		return fmt.Errorf("otp_mail_send_failed: %w", err)
	}
	return nil
}

// # Log Sender

// LogSender writes codes to the log instead of sending them. Development only.
type LogSender struct {
	logger *slog.Logger
}

// NewLogSender creates a LogSender.
func NewLogSender(logger *slog.Logger) *LogSender {
	return &LogSender{logger: logger}
}

// SendCode logs the code at warn level.
func (sender *LogSender) SendCode(context context.Context, to, code string, ttl time.Duration) error {
	sender.logger.WarnContext(context, "otp_code_not_mailed",
		slog.String("to", to),
		slog.String("code", code),
		slog.Duration("ttl", ttl),
	)
	return nil
}
