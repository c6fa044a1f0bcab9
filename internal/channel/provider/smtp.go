package provider

import (
	"bytes"
	"context"
	"crypto/tls"
	"fmt"
	"log/slog"
	"net"
	"net/smtp"
	"strings"
	"time"
)

// SMTPProvider implements email delivery over plain SMTP with STARTTLS or
// implicit TLS on port 465.
type SMTPProvider struct {
	host     string
	port     int
	username string
	password string
}

var _ Provider = (*SMTPProvider)(nil)

// NewSMTPProvider creates an SMTP provider. Username and password are
// optional; without them the provider sends unauthenticated.
func NewSMTPProvider(host string, port int, username, password string) *SMTPProvider {
	return &SMTPProvider{
		host:     host,
		port:     port,
		username: username,
		password: password,
	}
}

// Name returns the provider name.
func (p *SMTPProvider) Name() string {
	return "smtp"
}

// IsConfigured returns true if a host and port are set.
func (p *SMTPProvider) IsConfigured() bool {
	return p.host != "" && p.port > 0
}

// Send sends an email via SMTP.
func (p *SMTPProvider) Send(ctx context.Context, req *EmailRequest) error {
	if !p.IsConfigured() {
		return fmt.Errorf("SMTP host and port not configured")
	}
	if len(req.To) == 0 {
		return fmt.Errorf("no recipients specified")
	}

	msg := buildMessage(req)
	addr := fmt.Sprintf("%s:%d", p.host, p.port)

	done := make(chan error, 1)
	go func() {
		done <- p.send(addr, req.From, req.To, msg)
	}()
	select {
	case err := <-done:
		if err != nil {
			return fmt.Errorf("SMTP send failed: %w", err)
		}
		slog.Info("Email sent via SMTP", "to", req.To, "subject", req.Subject)
		return nil
	case <-ctx.Done():
		return fmt.Errorf("SMTP send canceled: %w", ctx.Err())
	}
}

// send speaks the SMTP session. Port 465 is TLS from the first byte; other
// ports upgrade with STARTTLS when the server offers it.
func (p *SMTPProvider) send(addr, from string, to []string, msg []byte) error {
	var client *smtp.Client

	if p.port == 465 {
		conn, err := tls.Dial("tcp", addr, &tls.Config{ServerName: p.host})
		if err != nil {
			return fmt.Errorf("failed to connect with TLS: %w", err)
		}
		defer conn.Close()
		client, err = smtp.NewClient(conn, p.host)
		if err != nil {
			return fmt.Errorf("failed to create SMTP client: %w", err)
		}
	} else {
		conn, err := net.DialTimeout("tcp", addr, 30*time.Second)
		if err != nil {
			return fmt.Errorf("failed to connect: %w", err)
		}
		client, err = smtp.NewClient(conn, p.host)
		if err != nil {
			conn.Close()
			return fmt.Errorf("failed to create SMTP client: %w", err)
		}
		if ok, _ := client.Extension("STARTTLS"); ok {
			if err := client.StartTLS(&tls.Config{ServerName: p.host}); err != nil {
				client.Close()
				return fmt.Errorf("failed to start TLS: %w", err)
			}
		}
	}
	defer client.Close()

	if p.username != "" && p.password != "" {
		auth := smtp.PlainAuth("", p.username, p.password, p.host)
		if err := client.Auth(auth); err != nil {
			return fmt.Errorf("SMTP authentication failed: %w", err)
		}
	}

	if err := client.Mail(from); err != nil {
		return fmt.Errorf("failed to set sender %s: %w", from, err)
	}
	for _, rcpt := range to {
		if err := client.Rcpt(rcpt); err != nil {
			return fmt.Errorf("failed to set recipient %s: %w", rcpt, err)
		}
	}

	writer, err := client.Data()
	if err != nil {
		return fmt.Errorf("failed to open data writer: %w", err)
	}
	if _, err := writer.Write(msg); err != nil {
		writer.Close()
		return fmt.Errorf("failed to write email data: %w", err)
	}
	if err := writer.Close(); err != nil {
		return fmt.Errorf("failed to close data writer: %w", err)
	}

	if err := client.Quit(); err != nil {
		slog.Warn("Error during SMTP QUIT", "error", err)
	}
	return nil
}

// buildMessage builds a complete email message in RFC 822 format. An HTML
// body takes precedence over plain text.
func buildMessage(req *EmailRequest) []byte {
	var msg bytes.Buffer
	msg.WriteString(fmt.Sprintf("From: %s\r\n", req.From))
	msg.WriteString(fmt.Sprintf("To: %s\r\n", strings.Join(req.To, ", ")))
	msg.WriteString(fmt.Sprintf("Subject: %s\r\n", req.Subject))
	msg.WriteString(fmt.Sprintf("Date: %s\r\n", time.Now().Format(time.RFC1123Z)))
	msg.WriteString("MIME-Version: 1.0\r\n")
	if req.HTML != "" {
		msg.WriteString("Content-Type: text/html; charset=UTF-8\r\n")
	} else {
		msg.WriteString("Content-Type: text/plain; charset=UTF-8\r\n")
	}
	msg.WriteString("Content-Transfer-Encoding: 8bit\r\n")
	msg.WriteString("\r\n")
	if req.HTML != "" {
		msg.WriteString(req.HTML)
	} else {
		msg.WriteString(req.Body)
	}
	return msg.Bytes()
}
