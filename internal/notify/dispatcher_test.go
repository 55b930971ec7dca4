package notify

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"

	"github.com/serviceflow/schedcore/internal/model"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestWebhookSender_PostsPayload(t *testing.T) {
	var (
		mu   sync.Mutex
		got  map[string]string
		auth string
	)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		mu.Lock()
		defer mu.Unlock()
		auth = r.Header.Get("Authorization")
		_ = json.NewDecoder(r.Body).Decode(&got)
		w.WriteHeader(http.StatusAccepted)
	}))
	defer srv.Close()

	sender := NewWebhookSender("whatsapp", srv.URL, "secret-token")
	if err := sender.Send(context.Background(), "+244900000001", "Olá Carlos"); err != nil {
		t.Fatalf("Send failed: %v", err)
	}

	mu.Lock()
	defer mu.Unlock()
	if got["to"] != "+244900000001" || got["body"] != "Olá Carlos" {
		t.Fatalf("payload = %v", got)
	}
	if auth != "Bearer secret-token" {
		t.Fatalf("auth header = %q", auth)
	}
}

func TestWebhookSender_Non2xxIsError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "rate limited", http.StatusTooManyRequests)
	}))
	defer srv.Close()

	sender := NewWebhookSender("sms", srv.URL, "")
	if err := sender.Send(context.Background(), "+244900000001", "x"); err == nil {
		t.Fatal("expected error on non-2xx response")
	}
}

func TestWebhookSender_UnconfiguredURL(t *testing.T) {
	sender := NewWebhookSender("whatsapp", "", "")
	if err := sender.Send(context.Background(), "+244900000001", "x"); err == nil {
		t.Fatal("expected error when url is not configured")
	}
}

type errTextSender struct{ err error }

func (s errTextSender) Send(context.Context, string, string) error { return s.err }
func (errTextSender) ProviderID() string                           { return "err" }

func TestDispatch_RoutesByChannel(t *testing.T) {
	failing := errTextSender{err: errors.New("gateway down")}
	d := NewDispatcher(failing, nil, nil, nil, testLogger())

	// WhatsApp goes through the failing sender.
	status := d.Dispatch(context.Background(), "a1", Draft{Channel: model.ChannelWhatsApp, Recipient: "+1", Body: "x"})
	if status != model.DeliveryFailed {
		t.Fatalf("whatsapp status = %q, want failed", status)
	}

	// SMS falls back to the noop sender and succeeds.
	status = d.Dispatch(context.Background(), "a1", Draft{Channel: model.ChannelSMS, Recipient: "+1", Body: "x"})
	if status != model.DeliverySent {
		t.Fatalf("sms status = %q, want sent", status)
	}

	// Email likewise.
	status = d.Dispatch(context.Background(), "a1", Draft{Channel: model.ChannelEmail, Recipient: "a@b", Subject: "s", Body: "x"})
	if status != model.DeliverySent {
		t.Fatalf("email status = %q, want sent", status)
	}
}

func TestDispatch_FailureIsRecordedNotPropagated(t *testing.T) {
	d := NewDispatcher(errTextSender{err: errors.New("boom")}, nil, nil, nil, testLogger())
	// Dispatch has no error return; the disposition string is the contract.
	if status := d.Dispatch(context.Background(), "a1", Draft{Channel: model.ChannelWhatsApp, Body: "x"}); status != model.DeliveryFailed {
		t.Fatalf("status = %q", status)
	}
}

func TestBuildMessage(t *testing.T) {
	msg := buildMessage("no-reply@schedcore.local", "carlos@example.com", "Agendamento", "Olá")
	for _, want := range []string{
		"From: no-reply@schedcore.local\r\n",
		"To: carlos@example.com\r\n",
		"Subject: Agendamento\r\n",
		"\r\n\r\nOlá\r\n",
	} {
		if !strings.Contains(msg, want) {
			t.Fatalf("message missing %q:\n%s", want, msg)
		}
	}
}
