package model

import "time"

// Tier is a subscription level.
type Tier string

const (
	TierFree Tier = "free"
	TierPaid Tier = "paid"
)

// ParseTier maps a stored or externally supplied value to a Tier.
// Anything other than an exact "paid" is treated as free.
func ParseTier(s string) Tier {
	if Tier(s) == TierPaid {
		return TierPaid
	}
	return TierFree
}

type User struct {
	ID                   string     `json:"id"`
	Email                string     `json:"email"`
	Name                 string     `json:"name"`
	Company              string     `json:"company,omitempty"`
	PasswordHash         string     `json:"-"`
	SubscriptionType     Tier       `json:"subscription_type"`
	StripeCustomerID     *string    `json:"-"`
	StripeSubscriptionID *string    `json:"-"`
	LastLogin            *time.Time `json:"last_login,omitempty"`
	CreatedAt            time.Time  `json:"created_at"`
	UpdatedAt            time.Time  `json:"updated_at"`
}
