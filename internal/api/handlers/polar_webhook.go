// This file implements the Polar webhook handler.
//
// The endpoint is not behind any auth middleware -- it is called directly by
// Polar. Security is provided by verifying the Polar-Signature header with
// HMAC-SHA256 over the raw body. Verification fails closed: a deployment
// without a webhook secret rejects every delivery rather than accepting
// unverified ones.
package handlers

import (
	"context"
	"io"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"plara/internal/core"
	"plara/internal/events"
	"plara/internal/external"
	"plara/internal/types"
)

// maxWebhookBodySize caps Polar webhook payloads at 64 KB. Event payloads
// are small; the limit protects against abuse.
const maxWebhookBodySize = 64 * 1024

// signatureHeader is the HTTP header carrying the provider's HMAC signature.
const signatureHeader = "Polar-Signature"

// EventDispatcher routes a parsed webhook event to its handler. Implemented
// by events.Dispatcher.
type EventDispatcher interface {
	Dispatch(ctx context.Context, event events.Event)
}

// WebhookAck is the acknowledgment body returned after a delivery is
// authenticated and parsed, regardless of how the event was processed.
type WebhookAck struct {
	Status    string `json:"status"`
	EventType string `json:"event_type"`
}

// PolarWebhookHandler handles asynchronous event deliveries from Polar.
type PolarWebhookHandler struct {
	verifier   external.WebhookVerifier
	dispatcher EventDispatcher
	secret     types.SecretString
	logger     *slog.Logger
}

// NewPolarWebhookHandler creates a PolarWebhookHandler with the provided
// dependencies.
func NewPolarWebhookHandler(
	verifier external.WebhookVerifier,
	dispatcher EventDispatcher,
	secret types.SecretString,
	logger *slog.Logger,
) *PolarWebhookHandler {
	if logger == nil {
		logger = slog.Default()
	}
	return &PolarWebhookHandler{
		verifier:   verifier,
		dispatcher: dispatcher,
		secret:     secret,
		logger:     logger,
	}
}

// RegisterRoutes mounts the primary webhook endpoint under the API router.
func (h *PolarWebhookHandler) RegisterRoutes(r chi.Router) {
	r.Post("/webhooks/polar", h.Handle)
}

// RegisterRootRoutes mounts the legacy root-level alias. Older provider
// dashboards were configured with /webhook before the endpoint moved under
// /api; both paths share one handler so behavior can never diverge.
func (h *PolarWebhookHandler) RegisterRootRoutes(r chi.Router) {
	r.Post("/webhook", h.Handle)
}

// Handle processes an incoming Polar webhook delivery.
//
// The pipeline is: read body, verify Polar-Signature, parse the event, hand
// it to the dispatcher. Once a delivery is authenticated and parsed it is
// always acknowledged with 200, whatever the handler outcome -- a non-2xx
// ack makes Polar redeliver an event that was already accepted.
func (h *PolarWebhookHandler) Handle(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, maxWebhookBodySize)
	payload, err := io.ReadAll(r.Body)
	if err != nil {
		h.logger.WarnContext(r.Context(), "failed to read webhook body",
			"error", err,
		)
		core.Error(w, r, types.NewAppError(
			types.ErrCodeValidationInvalidJSON,
			"failed to read request body",
			err,
		))
		return
	}

	signature := r.Header.Get(signatureHeader)
	if err := h.verifier.Verify(payload, signature, h.secret); err != nil {
		h.logger.WarnContext(r.Context(), "webhook signature rejected",
			"error", err,
		)
		core.Error(w, r, err)
		return
	}

	event, err := events.Parse(payload)
	if err != nil {
		h.logger.WarnContext(r.Context(), "webhook body unparsable after valid signature",
			"error", err,
		)
		core.Error(w, r, err)
		return
	}

	h.dispatcher.Dispatch(r.Context(), event)

	core.JSON(w, r, http.StatusOK, WebhookAck{
		Status:    "received",
		EventType: event.Kind(),
	})
}
