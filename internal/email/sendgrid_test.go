package email

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
)

// rewriteTransport redirects all requests to a test server URL.
type rewriteTransport struct {
	base   http.RoundTripper
	target string
}

func (t *rewriteTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	req.URL.Scheme = "http"
	req.URL.Host = t.target[len("http://"):]
	return t.base.RoundTrip(req)
}

func testClient(apiKey, target string) *Client {
	c := NewClient(apiKey, "no-reply@ponti.io", "Ponti Studios", slog.Default())
	if target != "" {
		c.httpClient = &http.Client{Transport: &rewriteTransport{base: http.DefaultTransport, target: target}}
	}
	return c
}

func TestSendLoginToken(t *testing.T) {
	var received sendgridMail
	var gotAuth string

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotAuth = r.Header.Get("Authorization")
		if err := json.NewDecoder(r.Body).Decode(&received); err != nil {
			t.Errorf("decode request: %v", err)
		}
		w.WriteHeader(http.StatusAccepted)
	}))
	defer server.Close()

	client := testClient("test-key", server.URL)
	if err := client.SendLoginToken(context.Background(), "alice@example.com", "12345678"); err != nil {
		t.Fatalf("send login token: %v", err)
	}

	if gotAuth != "Bearer test-key" {
		t.Errorf("Authorization = %q, want %q", gotAuth, "Bearer test-key")
	}
	if received.Subject != "Your Ponti Studios login token" {
		t.Errorf("Subject = %q, want login token subject", received.Subject)
	}
	if received.From.Email != "no-reply@ponti.io" {
		t.Errorf("From = %q, want %q", received.From.Email, "no-reply@ponti.io")
	}
	to := received.Personalizations[0].To[0].Email
	if to != "alice@example.com" {
		t.Errorf("To = %q, want %q", to, "alice@example.com")
	}
	if len(received.Content) != 2 || !strings.Contains(received.Content[0].Value, "12345678") {
		t.Errorf("content = %+v, want token in body", received.Content)
	}
}

func TestSendLoginTokenNotConfigured(t *testing.T) {
	client := testClient("", "")

	// Dev mode: no API key means the token is logged, not sent, and the
	// issuance still succeeds.
	if err := client.SendLoginToken(context.Background(), "alice@example.com", "12345678"); err != nil {
		t.Fatalf("unconfigured send should not fail: %v", err)
	}
}

func TestSendLoginTokenAPIError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
	}))
	defer server.Close()

	client := testClient("bad-key", server.URL)
	if err := client.SendLoginToken(context.Background(), "alice@example.com", "12345678"); err == nil {
		t.Fatal("expected error for API failure")
	}
}

func TestConfigured(t *testing.T) {
	if !testClient("key", "").Configured() {
		t.Error("expected Configured() = true")
	}
	if testClient("", "").Configured() {
		t.Error("expected Configured() = false")
	}
}
