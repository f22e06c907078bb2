package auth

import (
	"errors"
	"fmt"
	"log"
	"net/smtp"
	"os"
)

// ErrMailerNotConfigured is returned when an email must be sent but no
// SMTP server is configured.
var ErrMailerNotConfigured = errors.New("smtp not configured")

// Mailer sends transactional auth emails over SMTP.
// All fields come from environment variables; an empty host means the
// mailer is disabled.
type Mailer struct {
	host    string
	port    string
	from    string
	user    string
	pass    string
	baseURL string
}

// NewMailerFromEnv builds a Mailer from SMTP_* environment variables.
func NewMailerFromEnv() *Mailer {
	port := os.Getenv("SMTP_PORT")
	if port == "" {
		port = "587"
	}
	baseURL := os.Getenv("APP_BASE_URL")
	if baseURL == "" {
		baseURL = "http://localhost:8080"
	}
	return &Mailer{
		host:    os.Getenv("SMTP_HOST"),
		port:    port,
		from:    os.Getenv("SMTP_FROM"),
		user:    os.Getenv("SMTP_USER"),
		pass:    os.Getenv("SMTP_PASS"),
		baseURL: baseURL,
	}
}

// Configured reports whether an SMTP host is set.
func (m *Mailer) Configured() bool {
	return m.host != ""
}

// SendPasswordReset emails a password reset link. Reset mail is
// mandatory, so an unconfigured mailer is an error here.
func (m *Mailer) SendPasswordReset(to, token string) error {
	if !m.Configured() {
		return ErrMailerNotConfigured
	}
	link := fmt.Sprintf("%s/reset-password?token=%s", m.baseURL, token)
	body := fmt.Sprintf("Click the link to reset your password: %s\r\nThe link expires in 1 hour.", link)
	return m.send(to, "Reset your password", body)
}

// SendEmailVerification emails a verification link. Verification mail is
// best-effort; when no SMTP server is configured the link is logged so
// local setups can still complete the flow.
func (m *Mailer) SendEmailVerification(to, token string) error {
	link := fmt.Sprintf("%s/verify-email?token=%s", m.baseURL, token)
	if !m.Configured() {
		log.Printf("[auth] SMTP not configured, verification link for %s: %s", to, link)
		return nil
	}
	body := fmt.Sprintf("Click the link to verify your email address: %s\r\nThe link expires in 24 hours.", link)
	return m.send(to, "Verify your email", body)
}

func (m *Mailer) send(to, subject, body string) error {
	msg := fmt.Sprintf("From: %s\r\nTo: %s\r\nSubject: %s\r\n\r\n%s\r\n", m.from, to, subject, body)

	var auth smtp.Auth
	if m.user != "" {
		auth = smtp.PlainAuth("", m.user, m.pass, m.host)
	}

	addr := m.host + ":" + m.port
	if err := smtp.SendMail(addr, auth, m.from, []string{to}, []byte(msg)); err != nil {
		return fmt.Errorf("failed to send email: %w", err)
	}
	return nil
}
