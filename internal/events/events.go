package events

import (
	"encoding/json"
	"time"

	"plara/internal/types"
)

// Event kinds delivered by Polar webhooks. Any type outside this set parses
// into an Unrecognized event rather than an error, so new provider event
// types never break webhook acknowledgment.
const (
	KindCheckoutCreated      = "checkout.created"
	KindCheckoutUpdated      = "checkout.updated"
	KindOrderCreated         = "order.created"
	KindSubscriptionCreated  = "subscription.created"
	KindSubscriptionUpdated  = "subscription.updated"
	KindSubscriptionCanceled = "subscription.canceled"
)

// Event is the closed set of webhook events. Exactly one of the concrete
// types in this package implements it; consumers switch on the concrete type.
type Event interface {
	// Kind returns the provider event type string, verbatim from the payload.
	Kind() string
}

// envelope is the outer webhook payload shape: a type discriminator plus a
// raw data object decoded per-variant.
type envelope struct {
	Type string          `json:"type"`
	Data json.RawMessage `json:"data"`
}

// CheckoutCreated fires when a customer opens a hosted checkout session.
type CheckoutCreated struct {
	CheckoutID    string `json:"id"`
	Status        string `json:"status"`
	CustomerEmail string `json:"customer_email"`
	Amount        int64  `json:"amount"`
	Currency      string `json:"currency"`
}

func (CheckoutCreated) Kind() string { return KindCheckoutCreated }

// CheckoutUpdated fires when a checkout session changes state, including the
// transition to confirmed after payment.
type CheckoutUpdated struct {
	CheckoutID    string `json:"id"`
	Status        string `json:"status"`
	CustomerEmail string `json:"customer_email"`
	Amount        int64  `json:"amount"`
	Currency      string `json:"currency"`
}

func (CheckoutUpdated) Kind() string { return KindCheckoutUpdated }

// OrderCreated fires when a payment completes and an order is recorded.
type OrderCreated struct {
	OrderID  string              `json:"id"`
	Amount   int64               `json:"amount"`
	Currency string              `json:"currency"`
	Customer eventCustomer       `json:"customer"`
	Product  eventProductSummary `json:"product"`
}

func (OrderCreated) Kind() string { return KindOrderCreated }

// SubscriptionCreated fires when a recurring product is first purchased.
type SubscriptionCreated struct {
	SubscriptionID   string        `json:"id"`
	Status           string        `json:"status"`
	CurrentPeriodEnd *time.Time    `json:"current_period_end"`
	Customer         eventCustomer `json:"customer"`
}

func (SubscriptionCreated) Kind() string { return KindSubscriptionCreated }

// SubscriptionUpdated fires on subscription state changes such as renewals
// or plan switches.
type SubscriptionUpdated struct {
	SubscriptionID   string        `json:"id"`
	Status           string        `json:"status"`
	CurrentPeriodEnd *time.Time    `json:"current_period_end"`
	Customer         eventCustomer `json:"customer"`
}

func (SubscriptionUpdated) Kind() string { return KindSubscriptionUpdated }

// SubscriptionCanceled fires when a subscription is canceled. The customer
// may retain access until the end of the paid period.
type SubscriptionCanceled struct {
	SubscriptionID   string        `json:"id"`
	Status           string        `json:"status"`
	CurrentPeriodEnd *time.Time    `json:"current_period_end"`
	Customer         eventCustomer `json:"customer"`
}

func (SubscriptionCanceled) Kind() string { return KindSubscriptionCanceled }

// Unrecognized carries any event type this service does not model. The raw
// data is preserved for logging; the event is acknowledged like any other.
type Unrecognized struct {
	Type string
	Data json.RawMessage
}

func (u Unrecognized) Kind() string { return u.Type }

type eventCustomer struct {
	Email string `json:"email"`
}

type eventProductSummary struct {
	Name string `json:"name"`
}

// Parse decodes an already-verified webhook body into a typed event. A body
// that is not valid JSON, or that lacks a type discriminator, is a
// validation error; an unknown type is not.
func Parse(body []byte) (Event, error) {
	var env envelope
	if err := json.Unmarshal(body, &env); err != nil {
		return nil, types.NewAppError(
			types.ErrCodeValidationInvalidJSON,
			"webhook body is not valid JSON",
			err,
		)
	}
	if env.Type == "" {
		return nil, types.NewAppError(
			types.ErrCodeValidationMissingField,
			"webhook body is missing the event type",
			nil,
		)
	}

	switch env.Type {
	case KindCheckoutCreated:
		return decodeVariant[CheckoutCreated](env)
	case KindCheckoutUpdated:
		return decodeVariant[CheckoutUpdated](env)
	case KindOrderCreated:
		return decodeVariant[OrderCreated](env)
	case KindSubscriptionCreated:
		return decodeVariant[SubscriptionCreated](env)
	case KindSubscriptionUpdated:
		return decodeVariant[SubscriptionUpdated](env)
	case KindSubscriptionCanceled:
		return decodeVariant[SubscriptionCanceled](env)
	default:
		return Unrecognized{Type: env.Type, Data: env.Data}, nil
	}
}

// decodeVariant decodes the data object into the concrete event type. A type
// we recognize with a malformed data object is still a validation error.
func decodeVariant[T Event](env envelope) (Event, error) {
	var event T
	if len(env.Data) > 0 {
		if err := json.Unmarshal(env.Data, &event); err != nil {
			return nil, types.NewAppError(
				types.ErrCodeValidationInvalidJSON,
				"webhook event data is not valid JSON for type "+env.Type,
				err,
			)
		}
	}
	return event, nil
}
