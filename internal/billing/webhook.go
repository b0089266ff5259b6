package billing

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"

	stripe "github.com/stripe/stripe-go/v82"

	"github.com/dukerupert/clausedesk/internal/model"
)

// Subscriptions applies tier changes to a user.
type Subscriptions interface {
	Upgrade(ctx context.Context, userID string) error
	Downgrade(ctx context.Context, userID string) error
}

// Customers maps Stripe identifiers onto users.
type Customers interface {
	GetByStripeCustomer(customerID string) (*model.User, error)
	SetStripeCustomer(id, customerID string) error
	SetStripeSubscription(id string, subscriptionID *string) error
}

type Webhook struct {
	client *Client
	users  Customers
	subs   Subscriptions
	logger *slog.Logger
}

func NewWebhook(client *Client, users Customers, subs Subscriptions, logger *slog.Logger) *Webhook {
	return &Webhook{client: client, users: users, subs: subs, logger: logger}
}

func (h *Webhook) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	body, err := io.ReadAll(io.LimitReader(r.Body, 65536))
	if err != nil {
		http.Error(w, "read body", http.StatusBadRequest)
		return
	}

	event, err := h.client.ConstructEvent(body, r.Header.Get("Stripe-Signature"))
	if err != nil {
		h.logger.Warn("stripe webhook rejected", "error", err)
		http.Error(w, "invalid signature", http.StatusBadRequest)
		return
	}

	if err := h.Handle(r.Context(), event); err != nil {
		h.logger.Error("stripe webhook failed", "type", event.Type, "id", event.ID, "error", err)
		http.Error(w, "webhook processing failed", http.StatusInternalServerError)
		return
	}
	w.WriteHeader(http.StatusOK)
}

// Handle applies a verified event. Events for unknown users are ignored;
// store failures are returned so Stripe retries delivery.
func (h *Webhook) Handle(ctx context.Context, event stripe.Event) error {
	switch event.Type {
	case stripe.EventTypeCheckoutSessionCompleted:
		return h.checkoutCompleted(ctx, event)
	case stripe.EventTypeCustomerSubscriptionUpdated:
		return h.subscriptionUpdated(ctx, event)
	case stripe.EventTypeCustomerSubscriptionDeleted:
		return h.subscriptionDeleted(ctx, event)
	}
	return nil
}

func (h *Webhook) checkoutCompleted(ctx context.Context, event stripe.Event) error {
	var sess stripe.CheckoutSession
	if err := json.Unmarshal(event.Data.Raw, &sess); err != nil {
		return fmt.Errorf("unmarshal checkout session: %w", err)
	}

	userID := sess.ClientReferenceID
	if userID == "" && sess.Customer != nil {
		u, err := h.users.GetByStripeCustomer(sess.Customer.ID)
		if err != nil {
			return fmt.Errorf("find user by customer: %w", err)
		}
		if u != nil {
			userID = u.ID
		}
	}
	if userID == "" {
		h.logger.Warn("checkout completed without a known user", "session", sess.ID)
		return nil
	}

	if sess.Customer != nil {
		if err := h.users.SetStripeCustomer(userID, sess.Customer.ID); err != nil {
			return fmt.Errorf("set stripe customer: %w", err)
		}
	}
	if sess.Subscription != nil {
		subID := sess.Subscription.ID
		if err := h.users.SetStripeSubscription(userID, &subID); err != nil {
			return fmt.Errorf("set stripe subscription: %w", err)
		}
	}

	if err := h.subs.Upgrade(ctx, userID); err != nil {
		return fmt.Errorf("upgrade after checkout: %w", err)
	}
	h.logger.Info("checkout completed", "user_id", userID)
	return nil
}

func (h *Webhook) subscriptionUser(event stripe.Event) (*stripe.Subscription, *model.User, error) {
	var sub stripe.Subscription
	if err := json.Unmarshal(event.Data.Raw, &sub); err != nil {
		return nil, nil, fmt.Errorf("unmarshal subscription: %w", err)
	}
	if sub.Customer == nil {
		return &sub, nil, nil
	}
	u, err := h.users.GetByStripeCustomer(sub.Customer.ID)
	if err != nil {
		return nil, nil, fmt.Errorf("find user by customer: %w", err)
	}
	return &sub, u, nil
}

func (h *Webhook) subscriptionUpdated(ctx context.Context, event stripe.Event) error {
	sub, u, err := h.subscriptionUser(event)
	if err != nil {
		return err
	}
	if u == nil {
		h.logger.Warn("subscription update for unknown customer", "subscription", sub.ID)
		return nil
	}

	switch sub.Status {
	case stripe.SubscriptionStatusActive, stripe.SubscriptionStatusTrialing:
		subID := sub.ID
		if err := h.users.SetStripeSubscription(u.ID, &subID); err != nil {
			return fmt.Errorf("set stripe subscription: %w", err)
		}
		return h.subs.Upgrade(ctx, u.ID)
	default:
		return h.subs.Downgrade(ctx, u.ID)
	}
}

func (h *Webhook) subscriptionDeleted(ctx context.Context, event stripe.Event) error {
	sub, u, err := h.subscriptionUser(event)
	if err != nil {
		return err
	}
	if u == nil {
		h.logger.Warn("subscription deleted for unknown customer", "subscription", sub.ID)
		return nil
	}
	if err := h.users.SetStripeSubscription(u.ID, nil); err != nil {
		return fmt.Errorf("clear stripe subscription: %w", err)
	}
	return h.subs.Downgrade(ctx, u.ID)
}
