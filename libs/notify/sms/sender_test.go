package sms

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
)

func TestNormalizeNumber(t *testing.T) {
	cases := map[string]string{
		"+1 (555) 123-4567": "+15551234567",
		"555.123.4567":      "5551234567",
		"12345":             "",
		"555-CALL-NOW":      "",
		"1+5551234567":      "",
	}
	for in, want := range cases {
		if got := NormalizeNumber(in); got != want {
			t.Fatalf("NormalizeNumber(%q) = %q, want %q", in, got, want)
		}
	}
}

func TestWebhookSender(t *testing.T) {
	var got map[string]string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("Authorization") != "Bearer tok" {
			w.WriteHeader(http.StatusUnauthorized)
			return
		}
		_ = json.NewDecoder(r.Body).Decode(&got)
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	s := NewWebhookSender(srv.URL, "tok", srv.Client())
	if err := s.Send(context.Background(), "+1 555 123 4567", "See you at 10:00"); err != nil {
		t.Fatalf("Send failed: %v", err)
	}
	if got["to"] != "+15551234567" || got["body"] != "See you at 10:00" {
		t.Fatalf("unexpected payload %v", got)
	}

	bad := NewWebhookSender(srv.URL, "wrong", srv.Client())
	if err := bad.Send(context.Background(), "+15551234567", "x"); err == nil {
		t.Fatal("expected error on non-2xx")
	}
}
