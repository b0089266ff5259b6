package handler

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/dukerupert/clausedesk/internal/account"
	"github.com/dukerupert/clausedesk/internal/auth"
	"github.com/dukerupert/clausedesk/internal/billing"
	"github.com/dukerupert/clausedesk/internal/store"
)

type BillingHandler struct {
	client   *billing.Client
	users    *store.UserStore
	accounts *account.Service
	logger   *slog.Logger
}

func NewBillingHandler(client *billing.Client, users *store.UserStore, accounts *account.Service, logger *slog.Logger) *BillingHandler {
	return &BillingHandler{client: client, users: users, accounts: accounts, logger: logger}
}

// Checkout handles POST /api/billing/checkout
func (h *BillingHandler) Checkout(w http.ResponseWriter, r *http.Request) {
	if !h.client.Enabled() {
		writeError(w, http.StatusServiceUnavailable, "billing is not configured")
		return
	}
	user, err := h.users.GetByID(auth.UserID(r.Context()))
	if err != nil || user == nil {
		writeError(w, http.StatusNotFound, "user not found")
		return
	}

	customerID := ""
	if user.StripeCustomerID != nil {
		customerID = *user.StripeCustomerID
	}
	if customerID == "" {
		customerID, err = h.client.CreateCustomer(user.Email, user.ID)
		if err != nil {
			h.logger.Error("create stripe customer", "error", err)
			writeError(w, http.StatusBadGateway, "failed to create customer")
			return
		}
		if err := h.users.SetStripeCustomer(user.ID, customerID); err != nil {
			h.logger.Error("save stripe customer", "error", err)
		}
	}

	url, err := h.client.CreateCheckoutSession(customerID, user.ID)
	if err != nil {
		h.logger.Error("create checkout session", "error", err)
		writeError(w, http.StatusBadGateway, "failed to create checkout session")
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"url": url})
}

// Portal handles POST /api/billing/portal
func (h *BillingHandler) Portal(w http.ResponseWriter, r *http.Request) {
	if !h.client.Enabled() {
		writeError(w, http.StatusServiceUnavailable, "billing is not configured")
		return
	}
	user, err := h.users.GetByID(auth.UserID(r.Context()))
	if err != nil || user == nil {
		writeError(w, http.StatusNotFound, "user not found")
		return
	}
	if user.StripeCustomerID == nil {
		writeError(w, http.StatusBadRequest, "no billing account")
		return
	}

	url, err := h.client.CreatePortalSession(*user.StripeCustomerID)
	if err != nil {
		h.logger.Error("create portal session", "error", err)
		writeError(w, http.StatusBadGateway, "failed to create portal session")
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"url": url})
}

// DemoUpgrade handles POST /api/subscription/upgrade when demo checkout is on.
func (h *BillingHandler) DemoUpgrade(w http.ResponseWriter, r *http.Request) {
	h.demoSetTier(w, r, h.accounts.Upgrade)
}

// DemoDowngrade handles POST /api/subscription/downgrade when demo checkout is on.
func (h *BillingHandler) DemoDowngrade(w http.ResponseWriter, r *http.Request) {
	h.demoSetTier(w, r, h.accounts.Downgrade)
}

func (h *BillingHandler) demoSetTier(w http.ResponseWriter, r *http.Request, apply func(ctx context.Context, userID string) error) {
	userID := auth.UserID(r.Context())
	if err := apply(r.Context(), userID); err != nil {
		h.logger.Error("change subscription", "user_id", userID, "error", err)
		writeError(w, http.StatusInternalServerError, "failed to change subscription")
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"subscription_type": h.accounts.TierFor(r.Context(), userID),
	})
}
