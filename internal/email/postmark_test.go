package email

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/dukerupert/clausedesk/internal/model"
)

func TestSendWelcome(t *testing.T) {
	var received postmarkEmail
	var gotToken string

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotToken = r.Header.Get("X-Postmark-Server-Token")
		if err := json.NewDecoder(r.Body).Decode(&received); err != nil {
			t.Errorf("decode request: %v", err)
		}
		w.WriteHeader(http.StatusOK)
		w.Write([]byte(`{"MessageID": "test-id"}`))
	}))
	defer server.Close()

	client := NewClient("test-token", "noreply@example.com", "https://clausedesk.test", WithAPIURL(server.URL))

	if err := client.SendWelcome(context.Background(), "alice@example.com", "Alice"); err != nil {
		t.Fatalf("send welcome: %v", err)
	}
	if gotToken != "test-token" {
		t.Errorf("server token = %q, want %q", gotToken, "test-token")
	}
	if received.To != "alice@example.com" {
		t.Errorf("To = %q, want %q", received.To, "alice@example.com")
	}
	if received.From != "noreply@example.com" {
		t.Errorf("From = %q, want %q", received.From, "noreply@example.com")
	}
	if received.Subject != "Welcome to ClauseDesk" {
		t.Errorf("Subject = %q", received.Subject)
	}
}

func TestSendReminderSubject(t *testing.T) {
	var received postmarkEmail
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		json.NewDecoder(r.Body).Decode(&received)
		w.WriteHeader(http.StatusOK)
	}))
	defer server.Close()

	client := NewClient("test-token", "noreply@example.com", "https://clausedesk.test", WithAPIURL(server.URL))
	r := model.Reminder{ContractName: "Office <Lease>", Type: "renewal", DueDate: "2026-03-11", Description: "Renew"}

	if err := client.SendReminder(context.Background(), "alice@example.com", r, 1); err != nil {
		t.Fatalf("send reminder: %v", err)
	}
	if received.Subject != "Contract reminder: Office <Lease> (tomorrow)" {
		t.Errorf("Subject = %q", received.Subject)
	}
	if !strings.Contains(received.HtmlBody, "Office &lt;Lease&gt;") {
		t.Error("html body should escape the contract name")
	}
}

func TestSendRetriesServerErrors(t *testing.T) {
	var calls atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if calls.Add(1) < 3 {
			w.WriteHeader(http.StatusServiceUnavailable)
			return
		}
		w.WriteHeader(http.StatusOK)
	}))
	defer server.Close()

	client := NewClient("test-token", "noreply@example.com", "https://clausedesk.test",
		WithAPIURL(server.URL), WithRetry(3, time.Millisecond))

	if err := client.SendWelcome(context.Background(), "alice@example.com", "Alice"); err != nil {
		t.Fatalf("send welcome: %v", err)
	}
	if got := calls.Load(); got != 3 {
		t.Errorf("calls = %d, want 3", got)
	}
}

func TestSendDoesNotRetryClientErrors(t *testing.T) {
	var calls atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusUnprocessableEntity)
	}))
	defer server.Close()

	client := NewClient("test-token", "noreply@example.com", "https://clausedesk.test",
		WithAPIURL(server.URL), WithRetry(3, time.Millisecond))

	if err := client.SendWelcome(context.Background(), "alice@example.com", "Alice"); err == nil {
		t.Fatal("expected error for 422")
	}
	if got := calls.Load(); got != 1 {
		t.Errorf("calls = %d, want 1", got)
	}
}

func TestSendNotConfigured(t *testing.T) {
	client := NewClient("", "noreply@example.com", "https://clausedesk.test")

	err := client.SendWelcome(context.Background(), "alice@example.com", "Alice")
	if !errors.Is(err, ErrNotConfigured) {
		t.Fatalf("err = %v, want ErrNotConfigured", err)
	}
}
