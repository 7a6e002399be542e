package email

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/smtp"
	"strings"
	"time"
)

type Sender interface {
	Send(ctx context.Context, to, subject, body string) error
	ProviderID() string
}

// SMTPSender sends plain text mail through an unauthenticated relay
// (Mailpit in development).
type SMTPSender struct {
	addr string
	from string
}

func NewSMTPSender(host, port, from string) *SMTPSender {
	from = strings.TrimSpace(from)
	if from == "" {
		from = "no-reply@salonbook.local"
	}
	return &SMTPSender{
		addr: strings.TrimSpace(host) + ":" + strings.TrimSpace(port),
		from: from,
	}
}

func (s *SMTPSender) ProviderID() string { return "smtp" }

func (s *SMTPSender) Send(ctx context.Context, to, subject, body string) error {
	if err := validateRecipient(to); err != nil {
		return err
	}
	if err := ctx.Err(); err != nil {
		return err
	}
	return smtp.SendMail(s.addr, nil, s.from, []string{to}, buildMessage(s.from, to, subject, body))
}

func buildMessage(from, to, subject, body string) []byte {
	return []byte(fmt.Sprintf(
		"From: %s\r\nTo: %s\r\nSubject: %s\r\nMIME-Version: 1.0\r\nContent-Type: text/plain; charset=utf-8\r\n\r\n%s\r\n",
		from, to, sanitizeHeader(subject), body,
	))
}

func sanitizeHeader(v string) string {
	return strings.NewReplacer("\r", " ", "\n", " ").Replace(v)
}

func validateRecipient(to string) error {
	to = strings.TrimSpace(to)
	if to == "" || !strings.Contains(to, "@") || strings.ContainsAny(to, "\r\n") {
		return errors.New("invalid email recipient")
	}
	return nil
}

// APISender posts messages to a transactional email HTTP API that accepts
// {from, to, subject, text} with a bearer key.
type APISender struct {
	url  string
	key  string
	from string
	http *http.Client
}

func NewAPISender(url, key, from string, client *http.Client) *APISender {
	if client == nil {
		client = &http.Client{Timeout: 5 * time.Second}
	}
	return &APISender{
		url:  strings.TrimSpace(url),
		key:  strings.TrimSpace(key),
		from: strings.TrimSpace(from),
		http: client,
	}
}

func (s *APISender) ProviderID() string { return "email-api" }

func (s *APISender) Send(ctx context.Context, to, subject, body string) error {
	if s.url == "" {
		return errors.New("email api url not configured")
	}
	if err := validateRecipient(to); err != nil {
		return err
	}
	raw, err := json.Marshal(map[string]any{
		"from":    s.from,
		"to":      []string{to},
		"subject": subject,
		"text":    body,
	})
	if err != nil {
		return err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.url, bytes.NewReader(raw))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	if s.key != "" {
		req.Header.Set("Authorization", "Bearer "+s.key)
	}
	resp, err := s.http.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fmt.Errorf("email api returned %d", resp.StatusCode)
	}
	return nil
}

// NoopSender accepts everything. Used when no provider is configured.
type NoopSender struct{}

func (NoopSender) ProviderID() string { return "email-noop" }

func (NoopSender) Send(context.Context, string, string, string) error { return nil }
