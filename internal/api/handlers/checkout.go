// Package handlers contains the HTTP handler implementations for the Plara
// payment API.
//
// This file implements checkout session creation and status lookup. Redirect
// URLs are constructed server-side from configuration; the client never
// supplies one.
package handlers

import (
	"context"
	"log/slog"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"

	"plara/internal/config"
	"plara/internal/core"
	"plara/internal/external"
	"plara/internal/types"
)

// successURLPath is appended to the storefront URL as the post-payment
// redirect target. The {CHECKOUT_ID} token is substituted by the provider.
const successURLPath = "/success?checkout_id={CHECKOUT_ID}"

// CheckoutService abstracts the payment provider operations the checkout
// handler needs. Implemented by external.PolarClient; mocked in tests.
type CheckoutService interface {
	// CreateCheckout opens a hosted checkout session and returns its URL.
	CreateCheckout(ctx context.Context, params external.CheckoutParams) (*types.Checkout, error)

	// GetCheckout retrieves a checkout session by ID.
	GetCheckout(ctx context.Context, checkoutID string) (*types.Checkout, error)
}

// CheckoutHandler handles checkout session creation and status lookup.
type CheckoutHandler struct {
	service     CheckoutService
	validator   *core.Validator
	frontendURL string
	logger      *slog.Logger
}

// NewCheckoutHandler creates a CheckoutHandler with the provided dependencies.
func NewCheckoutHandler(
	svc CheckoutService,
	cfg *config.Config,
	v *core.Validator,
	l *slog.Logger,
) *CheckoutHandler {
	if l == nil {
		l = slog.Default()
	}

	frontendURL := ""
	if cfg != nil {
		frontendURL = strings.TrimSuffix(cfg.Server.FrontendURL, "/")
	}

	return &CheckoutHandler{
		service:     svc,
		validator:   v,
		frontendURL: frontendURL,
		logger:      l,
	}
}

// RegisterRoutes mounts the checkout endpoints.
func (h *CheckoutHandler) RegisterRoutes(r chi.Router) {
	r.Post("/checkout", h.Create)
	r.Get("/checkout/{checkout_id}", h.Get)
}

// Create handles POST /api/checkout.
//
// The request is validated before any provider call: a missing product_id is
// rejected locally with 400 and never reaches the provider. On success the
// response carries the hosted checkout URL the storefront redirects to.
func (h *CheckoutHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req types.CheckoutRequest
	if err := core.DecodeJSON(w, r, &req); err != nil {
		core.Error(w, r, err)
		return
	}

	if err := h.validator.ValidateStruct(&req); err != nil {
		core.Error(w, r, err)
		return
	}

	checkout, err := h.service.CreateCheckout(r.Context(), external.CheckoutParams{
		ProductID:     req.ProductID,
		SuccessURL:    h.frontendURL + successURLPath,
		CustomerEmail: req.Email,
		CustomerName:  req.CustomerName,
		Metadata:      req.Metadata,
	})
	if err != nil {
		core.Error(w, r, err)
		return
	}

	h.logger.InfoContext(r.Context(), "checkout session created",
		"checkout_id", checkout.ID,
		"product_id", req.ProductID,
	)

	core.JSON(w, r, http.StatusOK, types.CheckoutResponse{
		CheckoutURL: checkout.URL,
		CheckoutID:  checkout.ID,
		ExpiresAt:   checkout.ExpiresAt,
	})
}

// Get handles GET /api/checkout/{checkout_id}.
//
// Used by the storefront success page to poll payment status. An unknown ID
// returns 404.
func (h *CheckoutHandler) Get(w http.ResponseWriter, r *http.Request) {
	checkoutID := chi.URLParam(r, "checkout_id")
	if checkoutID == "" {
		core.Error(w, r, types.NewAppError(
			types.ErrCodeValidationMissingField,
			"checkout_id is required",
			nil,
		))
		return
	}

	checkout, err := h.service.GetCheckout(r.Context(), checkoutID)
	if err != nil {
		core.Error(w, r, err)
		return
	}

	core.JSON(w, r, http.StatusOK, types.CheckoutDetail{
		CheckoutID:    checkout.ID,
		Status:        checkout.Status,
		CustomerEmail: checkout.CustomerEmail,
		Amount:        checkout.Amount,
		Currency:      checkout.Currency,
		ProductName:   checkout.ProductName,
		CreatedAt:     checkout.CreatedAt,
		ConfirmedAt:   checkout.ConfirmedAt,
	})
}
