package billing

import (
	"bytes"
	"context"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stripe/stripe-go/v82/webhook"

	"github.com/dukerupert/clausedesk/internal/model"
)

const testSecret = "whsec_test"

type fakeUsers struct {
	byCustomer map[string]*model.User
	customer   map[string]string
	sub        map[string]*string
}

func newFakeUsers() *fakeUsers {
	return &fakeUsers{
		byCustomer: map[string]*model.User{},
		customer:   map[string]string{},
		sub:        map[string]*string{},
	}
}

func (f *fakeUsers) GetByStripeCustomer(id string) (*model.User, error) {
	return f.byCustomer[id], nil
}

func (f *fakeUsers) SetStripeCustomer(id, customerID string) error {
	f.customer[id] = customerID
	return nil
}

func (f *fakeUsers) SetStripeSubscription(id string, subID *string) error {
	f.sub[id] = subID
	return nil
}

type fakeSubs struct {
	calls []string
}

func (f *fakeSubs) Upgrade(_ context.Context, userID string) error {
	f.calls = append(f.calls, "upgrade:"+userID)
	return nil
}

func (f *fakeSubs) Downgrade(_ context.Context, userID string) error {
	f.calls = append(f.calls, "downgrade:"+userID)
	return nil
}

func newTestWebhook() (*Webhook, *fakeUsers, *fakeSubs) {
	users := newFakeUsers()
	subs := &fakeSubs{}
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	h := NewWebhook(NewClient(Config{WebhookSecret: testSecret}), users, subs, logger)
	return h, users, subs
}

func post(t *testing.T, h http.Handler, payload string, secret string) *httptest.ResponseRecorder {
	t.Helper()
	signed := webhook.GenerateTestSignedPayload(&webhook.UnsignedPayload{
		Payload:   []byte(payload),
		Secret:    secret,
		Timestamp: time.Now(),
		Scheme:    "v1",
	})
	req := httptest.NewRequest(http.MethodPost, "/webhooks/stripe", bytes.NewReader(signed.Payload))
	req.Header.Set("Stripe-Signature", signed.Header)
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func TestWebhookCheckoutCompletedUpgrades(t *testing.T) {
	h, users, subs := newTestWebhook()

	payload := `{"id":"evt_1","object":"event","type":"checkout.session.completed",
		"data":{"object":{"id":"cs_1","object":"checkout.session","client_reference_id":"u1",
		"customer":"cus_1","subscription":"sub_1"}}}`
	rec := post(t, h, payload, testSecret)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, body = %s", rec.Code, rec.Body.String())
	}
	if len(subs.calls) != 1 || subs.calls[0] != "upgrade:u1" {
		t.Errorf("calls = %v", subs.calls)
	}
	if users.customer["u1"] != "cus_1" {
		t.Errorf("customer = %q", users.customer["u1"])
	}
	if s := users.sub["u1"]; s == nil || *s != "sub_1" {
		t.Errorf("subscription = %v", s)
	}
}

func TestWebhookSubscriptionStatus(t *testing.T) {
	tests := []struct {
		status string
		want   string
	}{
		{"active", "upgrade:u1"},
		{"trialing", "upgrade:u1"},
		{"past_due", "downgrade:u1"},
		{"canceled", "downgrade:u1"},
	}

	for _, tt := range tests {
		t.Run(tt.status, func(t *testing.T) {
			h, users, subs := newTestWebhook()
			users.byCustomer["cus_1"] = &model.User{ID: "u1"}

			payload := `{"id":"evt_2","object":"event","type":"customer.subscription.updated",
				"data":{"object":{"id":"sub_1","object":"subscription","customer":"cus_1","status":"` + tt.status + `"}}}`
			rec := post(t, h, payload, testSecret)

			if rec.Code != http.StatusOK {
				t.Fatalf("status = %d", rec.Code)
			}
			if len(subs.calls) != 1 || subs.calls[0] != tt.want {
				t.Errorf("calls = %v, want [%s]", subs.calls, tt.want)
			}
		})
	}
}

func TestWebhookSubscriptionDeletedDowngrades(t *testing.T) {
	h, users, subs := newTestWebhook()
	users.byCustomer["cus_1"] = &model.User{ID: "u1"}
	existing := "sub_1"
	users.sub["u1"] = &existing

	payload := `{"id":"evt_3","object":"event","type":"customer.subscription.deleted",
		"data":{"object":{"id":"sub_1","object":"subscription","customer":"cus_1","status":"canceled"}}}`
	rec := post(t, h, payload, testSecret)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	if len(subs.calls) != 1 || subs.calls[0] != "downgrade:u1" {
		t.Errorf("calls = %v", subs.calls)
	}
	if users.sub["u1"] != nil {
		t.Error("subscription id should be cleared")
	}
}

func TestWebhookUnknownCustomerIgnored(t *testing.T) {
	h, _, subs := newTestWebhook()

	payload := `{"id":"evt_4","object":"event","type":"customer.subscription.updated",
		"data":{"object":{"id":"sub_9","object":"subscription","customer":"cus_9","status":"active"}}}`
	rec := post(t, h, payload, testSecret)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	if len(subs.calls) != 0 {
		t.Errorf("calls = %v, want none", subs.calls)
	}
}

func TestWebhookBadSignature(t *testing.T) {
	h, _, subs := newTestWebhook()

	payload := `{"id":"evt_5","object":"event","type":"checkout.session.completed","data":{"object":{}}}`
	rec := post(t, h, payload, "whsec_other")

	if rec.Code != http.StatusBadRequest {
		t.Errorf("status = %d, want 400", rec.Code)
	}
	if len(subs.calls) != 0 {
		t.Errorf("calls = %v", subs.calls)
	}
}

func TestClientEnabled(t *testing.T) {
	if NewClient(Config{}).Enabled() {
		t.Error("empty config should be disabled")
	}
	if !NewClient(Config{SecretKey: "sk_test", PriceID: "price_1"}).Enabled() {
		t.Error("expected enabled")
	}
}
