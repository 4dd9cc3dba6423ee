// Package mail sends transactional email (password reset links) over SMTP.
//
//	err := mailer.Send(ctx, mail.Message{
//	    To:      []string{user.Email},
//	    Subject: "Password reset token",
//	    Text:    "Reset your password: " + link,
//	})
package mail

import (
	"context"
	"crypto/tls"
	"errors"
	"fmt"
	"net"
	"net/smtp"
	"strings"
	"time"

	"github.com/shashiranjanraj/studio/config"
)

// Message is a single plain-text or HTML email.
type Message struct {
	To      []string
	Subject string
	Text    string
	HTML    string
}

// Sender delivers messages.
type Sender interface {
	Send(ctx context.Context, msg Message) error
}

// ErrNotConfigured is returned when no SMTP credentials are set.
var ErrNotConfigured = errors.New("mail: MAIL_USERNAME not configured")

// SMTP holds connection credentials.
type SMTP struct {
	Host     string
	Port     string
	Username string
	Password string
	From     string
	FromName string
}

// FromConfig reads MAIL_* settings.
func FromConfig() *SMTP {
	return &SMTP{
		Host:     config.Get("MAIL_HOST", "smtp.mailtrap.io"),
		Port:     config.Get("MAIL_PORT", "587"),
		Username: config.Get("MAIL_USERNAME", ""),
		Password: config.Get("MAIL_PASSWORD", ""),
		From:     config.Get("MAIL_FROM", "noreply@studio.local"),
		FromName: config.Get("MAIL_FROM_NAME", "Studio"),
	}
}

// Send delivers msg. Port 465 uses implicit TLS; other ports use STARTTLS
// when the server offers it.
func (s *SMTP) Send(ctx context.Context, msg Message) error {
	if s.Username == "" {
		return ErrNotConfigured
	}
	if len(msg.To) == 0 {
		return errors.New("mail: no recipients")
	}

	addr := net.JoinHostPort(s.Host, s.Port)
	raw := s.build(msg)
	auth := smtp.PlainAuth("", s.Username, s.Password, s.Host)

	deadline, ok := ctx.Deadline()
	if !ok {
		deadline = time.Now().Add(30 * time.Second)
	}
	dialer := &net.Dialer{Deadline: deadline}

	var conn net.Conn
	var err error
	if s.Port == "465" {
		conn, err = tls.DialWithDialer(dialer, "tcp", addr, &tls.Config{ServerName: s.Host})
	} else {
		conn, err = dialer.DialContext(ctx, "tcp", addr)
	}
	if err != nil {
		return fmt.Errorf("mail: dial: %w", err)
	}
	_ = conn.SetDeadline(deadline)

	client, err := smtp.NewClient(conn, s.Host)
	if err != nil {
		_ = conn.Close()
		return fmt.Errorf("mail: handshake: %w", err)
	}
	defer client.Close()

	if s.Port != "465" {
		if ok, _ := client.Extension("STARTTLS"); ok {
			if err := client.StartTLS(&tls.Config{ServerName: s.Host}); err != nil {
				return fmt.Errorf("mail: starttls: %w", err)
			}
		}
	}
	if err := client.Auth(auth); err != nil {
		return fmt.Errorf("mail: auth: %w", err)
	}
	if err := client.Mail(s.From); err != nil {
		return err
	}
	for _, to := range msg.To {
		if err := client.Rcpt(to); err != nil {
			return err
		}
	}
	w, err := client.Data()
	if err != nil {
		return err
	}
	if _, err := w.Write(raw); err != nil {
		_ = w.Close()
		return err
	}
	if err := w.Close(); err != nil {
		return err
	}
	return client.Quit()
}

func (s *SMTP) build(msg Message) []byte {
	contentType, body := "text/plain", msg.Text
	if msg.HTML != "" {
		contentType, body = "text/html", msg.HTML
	}

	var b strings.Builder
	b.WriteString(fmt.Sprintf("From: %s <%s>\r\n", s.FromName, s.From))
	b.WriteString("To: " + strings.Join(msg.To, ", ") + "\r\n")
	b.WriteString("Subject: " + msg.Subject + "\r\n")
	b.WriteString("MIME-Version: 1.0\r\n")
	b.WriteString(fmt.Sprintf("Content-Type: %s; charset=\"UTF-8\"\r\n", contentType))
	b.WriteString("\r\n")
	b.WriteString(body)
	return []byte(b.String())
}
