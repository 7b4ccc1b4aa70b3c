// Package mail sends email on behalf of the caller over SMTP.
package mail

import (
	"context"
	"fmt"
	"net/smtp"
	"regexp"
	"strings"
)

var addressPattern = regexp.MustCompile(`^[a-zA-Z0-9._%+-]+@[a-zA-Z0-9.-]+\.[a-zA-Z]{2,}$`)

// ValidAddress reports whether addr looks like a deliverable email address.
func ValidAddress(addr string) bool {
	return addressPattern.MatchString(addr)
}

// Result mirrors what the conversation needs to relay: whether the send
// worked and a human-readable explanation when it did not.
type Result struct {
	Success bool
	Message string
}

// Sender delivers email. Implementations must not panic on missing
// configuration; they degrade to a failed Result instead.
type Sender interface {
	Send(ctx context.Context, to, subject, body string) Result
}

// SMTPConfig configures an SMTPSender. From doubles as the auth username.
type SMTPConfig struct {
	Host     string // e.g. "smtp.gmail.com"
	Port     int    // e.g. 587
	From     string
	Password string
}

// SMTPSender sends plain-text mail through a single SMTP account.
type SMTPSender struct {
	cfg SMTPConfig
	// sendMail is swapped in tests; defaults to smtp.SendMail, which
	// negotiates STARTTLS on port 587.
	sendMail func(addr string, a smtp.Auth, from string, to []string, msg []byte) error
}

// NewSMTPSender creates a sender. Missing host or credentials are allowed;
// Send reports the degradation per call.
func NewSMTPSender(cfg SMTPConfig) *SMTPSender {
	if cfg.Host == "" {
		cfg.Host = "smtp.gmail.com"
	}
	if cfg.Port == 0 {
		cfg.Port = 587
	}
	return &SMTPSender{cfg: cfg, sendMail: smtp.SendMail}
}

// Configured reports whether credentials are present.
func (s *SMTPSender) Configured() bool {
	return s != nil && strings.TrimSpace(s.cfg.From) != "" && s.cfg.Password != ""
}

// Send delivers one message. All failure modes come back as a Result the
// agent can speak, never as an error that could surface to the session.
func (s *SMTPSender) Send(ctx context.Context, to, subject, body string) Result {
	if !s.Configured() {
		return Result{Success: false, Message: "Email service is not configured."}
	}
	to = strings.TrimSpace(to)
	if !ValidAddress(to) {
		return Result{Success: false, Message: fmt.Sprintf("Invalid email address: %s", to)}
	}
	if err := ctx.Err(); err != nil {
		return Result{Success: false, Message: "Email send was cancelled."}
	}

	msg := buildMessage(s.cfg.From, to, subject, body)
	auth := smtp.PlainAuth("", s.cfg.From, s.cfg.Password, s.cfg.Host)
	addr := fmt.Sprintf("%s:%d", s.cfg.Host, s.cfg.Port)

	if err := s.sendMail(addr, auth, s.cfg.From, []string{to}, msg); err != nil {
		if strings.Contains(strings.ToLower(err.Error()), "auth") {
			return Result{Success: false, Message: "Email authentication failed. Please check credentials."}
		}
		return Result{Success: false, Message: fmt.Sprintf("Failed to send email: %v", err)}
	}
	return Result{Success: true, Message: fmt.Sprintf("Email sent successfully to %s", to)}
}

func buildMessage(from, to, subject, body string) []byte {
	var b strings.Builder
	b.WriteString("From: " + from + "\r\n")
	b.WriteString("To: " + to + "\r\n")
	b.WriteString("Subject: " + sanitizeHeader(subject) + "\r\n")
	b.WriteString("MIME-Version: 1.0\r\n")
	b.WriteString("Content-Type: text/plain; charset=\"utf-8\"\r\n")
	b.WriteString("\r\n")
	b.WriteString(body)
	return []byte(b.String())
}

// sanitizeHeader strips CRLF so spoken subjects cannot inject headers.
func sanitizeHeader(v string) string {
	v = strings.ReplaceAll(v, "\r", " ")
	v = strings.ReplaceAll(v, "\n", " ")
	return strings.TrimSpace(v)
}
