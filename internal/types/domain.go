// Package types defines the shared domain model for the Plara payment
// intermediary: request/response DTOs exchanged with the storefront, the
// entities mirrored from the Polar API, and the cross-cutting error and
// context plumbing.
//
// All entities are request-scoped; the service owns no long-lived state.
package types

import "time"

// SubscriptionStatus is the provider-reported lifecycle state of a subscription.
type SubscriptionStatus string

const (
	SubStatusActive   SubscriptionStatus = "active"
	SubStatusCanceled SubscriptionStatus = "canceled"
	SubStatusPastDue  SubscriptionStatus = "past_due"
	SubStatusUnpaid   SubscriptionStatus = "unpaid"
)

// Product is a purchasable product as presented to the storefront.
// Pricing fields come from the first price entry on the provider record;
// provider products with no prices are never surfaced.
type Product struct {
	ID            string `json:"id"`
	Name          string `json:"name"`
	Description   string `json:"description,omitempty"`
	PriceAmount   int64  `json:"price_amount"`
	PriceCurrency string `json:"price_currency"`
	IsRecurring   bool   `json:"is_recurring"`
	Interval      string `json:"interval,omitempty"`
}

// Order is a completed purchase as reported by the provider.
type Order struct {
	ID            string    `json:"id"`
	CustomerEmail string    `json:"customer_email"`
	ProductName   string    `json:"product_name"`
	Amount        int64     `json:"amount"`
	Currency      string    `json:"currency"`
	Status        string    `json:"status"`
	CreatedAt     time.Time `json:"created_at"`
}

// Subscription is a recurring purchase as reported by the provider.
type Subscription struct {
	ID               string             `json:"id"`
	CustomerEmail    string             `json:"customer_email"`
	Status           SubscriptionStatus `json:"status"`
	CurrentPeriodEnd *time.Time         `json:"current_period_end,omitempty"`
}

// IsActive reports whether the subscription is currently active.
func (s *Subscription) IsActive() bool {
	return s.Status == SubStatusActive
}

// SubscriptionSummary is the subset of subscription fields returned to the
// storefront when checking a customer's subscription status.
type SubscriptionSummary struct {
	ID               string             `json:"id"`
	Status           SubscriptionStatus `json:"status"`
	CurrentPeriodEnd *time.Time         `json:"current_period_end,omitempty"`
}

// SubscriptionStatusResponse is the response for GET /api/subscriptions/{email}.
type SubscriptionStatusResponse struct {
	HasActiveSubscription bool                 `json:"has_active_subscription"`
	Subscription          *SubscriptionSummary `json:"subscription,omitempty"`
}

// Checkout is a hosted checkout session as reported by the provider.
type Checkout struct {
	ID            string
	URL           string
	Status        string
	CustomerEmail string
	Amount        int64
	Currency      string
	ProductName   string
	CreatedAt     time.Time
	ConfirmedAt   *time.Time
	ExpiresAt     *time.Time
}

// CheckoutRequest is the request body for POST /api/checkout.
// Only the product identifier is required; the remaining fields pre-fill the
// hosted checkout page.
type CheckoutRequest struct {
	ProductID    string         `json:"product_id" validate:"required"`
	Email        string         `json:"email,omitempty" validate:"omitempty,email"`
	CustomerName string         `json:"customer_name,omitempty"`
	Metadata     map[string]any `json:"metadata,omitempty"`
}

// CheckoutResponse is the response for POST /api/checkout.
type CheckoutResponse struct {
	CheckoutURL string     `json:"checkout_url"`
	CheckoutID  string     `json:"checkout_id"`
	ExpiresAt   *time.Time `json:"expires_at,omitempty"`
}

// CheckoutDetail is the response for GET /api/checkout/{id}, used by the
// storefront success page to confirm payment completion.
type CheckoutDetail struct {
	CheckoutID    string     `json:"checkout_id"`
	Status        string     `json:"status"`
	CustomerEmail string     `json:"customer_email,omitempty"`
	Amount        int64      `json:"amount"`
	Currency      string     `json:"currency"`
	ProductName   string     `json:"product_name,omitempty"`
	CreatedAt     time.Time  `json:"created_at"`
	ConfirmedAt   *time.Time `json:"confirmed_at,omitempty"`
}
