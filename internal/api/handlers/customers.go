package handlers

import (
	"context"
	"log/slog"
	"net/http"
	"net/url"

	"github.com/go-chi/chi/v5"

	"plara/internal/core"
	"plara/internal/types"
)

// CustomerService abstracts the per-customer read operations. Implemented by
// external.PolarClient. Both list calls return organization-wide data; the
// provider API offers no server-side email filter, so filtering happens here.
type CustomerService interface {
	// ListOrders returns all orders for the organization.
	ListOrders(ctx context.Context, organizationID string) ([]types.Order, error)

	// ListSubscriptions returns all subscriptions for the organization.
	ListSubscriptions(ctx context.Context, organizationID string) ([]types.Subscription, error)
}

// OrdersResponse is the response for GET /api/orders/{customer_email}.
type OrdersResponse struct {
	Orders []types.Order `json:"orders"`
}

// CustomerHandler serves per-customer order history and subscription status.
type CustomerHandler struct {
	service        CustomerService
	organizationID string
	logger         *slog.Logger
}

// NewCustomerHandler creates a CustomerHandler with the provided dependencies.
func NewCustomerHandler(svc CustomerService, organizationID string, l *slog.Logger) *CustomerHandler {
	if l == nil {
		l = slog.Default()
	}
	return &CustomerHandler{
		service:        svc,
		organizationID: organizationID,
		logger:         l,
	}
}

// RegisterRoutes mounts the customer endpoints.
func (h *CustomerHandler) RegisterRoutes(r chi.Router) {
	r.Get("/orders/{customer_email}", h.ListOrders)
	r.Get("/subscriptions/{customer_email}", h.SubscriptionStatus)
}

// ListOrders handles GET /api/orders/{customer_email}.
//
// Matching is exact and case-sensitive against the provider-reported order
// email. A customer with no orders gets an empty list, not a 404.
func (h *CustomerHandler) ListOrders(w http.ResponseWriter, r *http.Request) {
	email, err := pathEmail(r)
	if err != nil {
		core.Error(w, r, err)
		return
	}

	orders, err := h.service.ListOrders(r.Context(), h.organizationID)
	if err != nil {
		core.Error(w, r, err)
		return
	}

	matched := make([]types.Order, 0)
	for _, order := range orders {
		if order.CustomerEmail == email {
			matched = append(matched, order)
		}
	}

	core.JSON(w, r, http.StatusOK, OrdersResponse{Orders: matched})
}

// SubscriptionStatus handles GET /api/subscriptions/{customer_email}.
//
// Scans the organization's subscriptions for the first active one belonging
// to the customer. Inactive subscriptions (canceled, past_due, unpaid) never
// satisfy the check.
func (h *CustomerHandler) SubscriptionStatus(w http.ResponseWriter, r *http.Request) {
	email, err := pathEmail(r)
	if err != nil {
		core.Error(w, r, err)
		return
	}

	subs, err := h.service.ListSubscriptions(r.Context(), h.organizationID)
	if err != nil {
		core.Error(w, r, err)
		return
	}

	for i := range subs {
		sub := &subs[i]
		if sub.CustomerEmail == email && sub.IsActive() {
			core.JSON(w, r, http.StatusOK, types.SubscriptionStatusResponse{
				HasActiveSubscription: true,
				Subscription: &types.SubscriptionSummary{
					ID:               sub.ID,
					Status:           sub.Status,
					CurrentPeriodEnd: sub.CurrentPeriodEnd,
				},
			})
			return
		}
	}

	core.JSON(w, r, http.StatusOK, types.SubscriptionStatusResponse{
		HasActiveSubscription: false,
	})
}

// pathEmail extracts and decodes the customer_email path parameter. Emails
// arrive percent-encoded ("@" as %40) from some clients; chi leaves the
// decoding to us.
func pathEmail(r *http.Request) (string, error) {
	raw := chi.URLParam(r, "customer_email")
	if raw == "" {
		return "", types.NewAppError(
			types.ErrCodeValidationMissingField,
			"customer_email is required",
			nil,
		)
	}

	email, err := url.PathUnescape(raw)
	if err != nil {
		return "", types.NewAppError(
			types.ErrCodeValidationInvalidField,
			"customer_email is not a valid path segment",
			err,
		)
	}
	return email, nil
}
