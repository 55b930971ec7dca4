package notify

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strings"
	"time"
)

// TextSender delivers a rendered text draft to one recipient. WhatsApp and
// SMS delivery both go through integration webhooks; the core neither knows
// nor cares which gateway sits behind the URL.
type TextSender interface {
	Send(ctx context.Context, to string, body string) error
	ProviderID() string
}

type WebhookSender struct {
	provider string
	url      string
	token    string
	http     *http.Client
}

func NewWebhookSender(provider string, url string, token string) *WebhookSender {
	return &WebhookSender{
		provider: provider,
		url:      strings.TrimSpace(url),
		token:    strings.TrimSpace(token),
		http: &http.Client{
			Timeout: 5 * time.Second,
		},
	}
}

func (s *WebhookSender) ProviderID() string {
	return s.provider + "-webhook"
}

func (s *WebhookSender) Send(ctx context.Context, to string, body string) error {
	if s.url == "" {
		return errors.New(s.provider + " webhook url not configured")
	}
	payload := map[string]string{
		"to":   to,
		"body": body,
	}
	raw, err := json.Marshal(payload)
	if err != nil {
		return err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.url, bytes.NewReader(raw))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	if s.token != "" {
		req.Header.Set("Authorization", "Bearer "+s.token)
	}
	resp, err := s.http.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return errors.New(s.provider + " webhook returned non-2xx")
	}
	return nil
}

// NoopTextSender accepts every draft without delivering it. Used when no
// gateway is configured; the appointment still gets its notification log
// entry, which is the part the core owns.
type NoopTextSender struct {
	Provider string
}

func (s NoopTextSender) ProviderID() string {
	if s.Provider == "" {
		return "noop"
	}
	return s.Provider + "-noop"
}

func (NoopTextSender) Send(context.Context, string, string) error { return nil }
