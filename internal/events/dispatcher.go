package events

import (
	"context"
	"log/slog"
)

// Hooks are optional per-event callbacks. A nil hook leaves the default
// log-only behavior in place. Hook errors are logged and swallowed: webhook
// acknowledgment never depends on handler outcomes, because a failed ack
// makes the provider redeliver an event we already accepted.
type Hooks struct {
	OnCheckoutCreated      func(ctx context.Context, e CheckoutCreated) error
	OnCheckoutUpdated      func(ctx context.Context, e CheckoutUpdated) error
	OnOrderCreated         func(ctx context.Context, e OrderCreated) error
	OnSubscriptionCreated  func(ctx context.Context, e SubscriptionCreated) error
	OnSubscriptionUpdated  func(ctx context.Context, e SubscriptionUpdated) error
	OnSubscriptionCanceled func(ctx context.Context, e SubscriptionCanceled) error
}

// Dispatcher routes parsed webhook events to their handlers.
type Dispatcher struct {
	logger *slog.Logger
	hooks  Hooks
}

// NewDispatcher creates a Dispatcher. With zero-value hooks every event is
// handled by structured logging only.
func NewDispatcher(logger *slog.Logger, hooks Hooks) *Dispatcher {
	if logger == nil {
		logger = slog.Default()
	}
	return &Dispatcher{logger: logger, hooks: hooks}
}

// Dispatch routes an event to its handler. It never returns an error: by the
// time an event reaches the dispatcher it has been authenticated and parsed,
// and processing failures are an internal concern.
func (d *Dispatcher) Dispatch(ctx context.Context, event Event) {
	switch e := event.(type) {
	case CheckoutCreated:
		d.logger.InfoContext(ctx, "checkout session created",
			"checkout_id", e.CheckoutID,
			"status", e.Status,
		)
		d.runHook(ctx, e.Kind(), func() error {
			if d.hooks.OnCheckoutCreated == nil {
				return nil
			}
			return d.hooks.OnCheckoutCreated(ctx, e)
		})

	case CheckoutUpdated:
		d.logger.InfoContext(ctx, "checkout session updated",
			"checkout_id", e.CheckoutID,
			"status", e.Status,
		)
		d.runHook(ctx, e.Kind(), func() error {
			if d.hooks.OnCheckoutUpdated == nil {
				return nil
			}
			return d.hooks.OnCheckoutUpdated(ctx, e)
		})

	case OrderCreated:
		d.logger.InfoContext(ctx, "order created",
			"order_id", e.OrderID,
			"amount", e.Amount,
			"currency", e.Currency,
			"product", e.Product.Name,
		)
		d.runHook(ctx, e.Kind(), func() error {
			if d.hooks.OnOrderCreated == nil {
				return nil
			}
			return d.hooks.OnOrderCreated(ctx, e)
		})

	case SubscriptionCreated:
		d.logger.InfoContext(ctx, "subscription created",
			"subscription_id", e.SubscriptionID,
			"status", e.Status,
		)
		d.runHook(ctx, e.Kind(), func() error {
			if d.hooks.OnSubscriptionCreated == nil {
				return nil
			}
			return d.hooks.OnSubscriptionCreated(ctx, e)
		})

	case SubscriptionUpdated:
		d.logger.InfoContext(ctx, "subscription updated",
			"subscription_id", e.SubscriptionID,
			"status", e.Status,
		)
		d.runHook(ctx, e.Kind(), func() error {
			if d.hooks.OnSubscriptionUpdated == nil {
				return nil
			}
			return d.hooks.OnSubscriptionUpdated(ctx, e)
		})

	case SubscriptionCanceled:
		d.logger.InfoContext(ctx, "subscription canceled",
			"subscription_id", e.SubscriptionID,
			"status", e.Status,
		)
		d.runHook(ctx, e.Kind(), func() error {
			if d.hooks.OnSubscriptionCanceled == nil {
				return nil
			}
			return d.hooks.OnSubscriptionCanceled(ctx, e)
		})

	case Unrecognized:
		d.logger.InfoContext(ctx, "unhandled webhook event type",
			"event_type", e.Type,
		)

	default:
		d.logger.WarnContext(ctx, "event with no dispatch case",
			"event_type", event.Kind(),
		)
	}
}

func (d *Dispatcher) runHook(ctx context.Context, kind string, fn func() error) {
	if err := fn(); err != nil {
		d.logger.ErrorContext(ctx, "webhook event handler failed",
			"event_type", kind,
			"error", err,
		)
	}
}
