package utils

import (
	"fmt"

	"gopkg.in/gomail.v2"
)

// SMTPConfig holds the outgoing mail settings.
type SMTPConfig struct {
	Host string
	Port int
	User string
	Pass string
}

// ResetCodeSender delivers password reset codes.
type ResetCodeSender interface {
	SendResetCode(email, code string) error
}

// Mailer sends reset codes over SMTP with gomail.
type Mailer struct {
	config SMTPConfig
	dialer *gomail.Dialer
}

func NewMailer(config SMTPConfig) *Mailer {
	return &Mailer{
		config: config,
		dialer: gomail.NewDialer(config.Host, config.Port, config.User, config.Pass),
	}
}

// BuildResetCodeMessage renders the reset email.
func BuildResetCodeMessage(from, to, code string) *gomail.Message {
	m := gomail.NewMessage()
	m.SetHeader("From", from)
	m.SetHeader("To", to)
	m.SetHeader("Subject", "ClinicHub password reset code")
	m.SetBody("text/plain", "Your password reset code is: "+code+"\nIt expires in 15 minutes.")

	htmlBody := `<!DOCTYPE html>
<html>
<head>
	<title>Password Reset Code</title>
	<style>
		body { font-family: Arial, sans-serif; background-color: #f4f4f4; margin: 0; padding: 0; }
		.container { background-color: #ffffff; margin: 20px auto; padding: 20px; border-radius: 8px; max-width: 600px; }
		.code { font-weight: bold; color: #0f766e; font-size: 24px; letter-spacing: 4px; }
	</style>
</head>
<body>
	<div class="container">
		<h1>Password Reset Code</h1>
		<p>Your ClinicHub password reset code is:</p>
		<p class="code">` + code + `</p>
		<p>The code expires in 15 minutes. If you did not request a reset, ignore this email.</p>
	</div>
</body>
</html>`
	m.AddAlternative("text/html", htmlBody)
	return m
}

func (m *Mailer) SendResetCode(email, code string) error {
	if m.config.Host == "" {
		return fmt.Errorf("SMTP_HOST is not configured")
	}
	msg := BuildResetCodeMessage(m.config.User, email, code)
	if err := m.dialer.DialAndSend(msg); err != nil {
		return fmt.Errorf("failed to send reset code email: %w", err)
	}
	return nil
}
