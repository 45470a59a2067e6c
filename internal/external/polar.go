package external

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"plara/internal/types"
)

// PolarClientConfig holds the configuration for creating a PolarClient.
type PolarClientConfig struct {
	AccessToken types.SecretString
	BaseURL     string // e.g. https://api.polar.sh/v1; required
	Logger      *slog.Logger
}

// PolarClient issues authenticated requests to the Polar REST API through
// BaseClient, inheriting the circuit breaker, bounded retry, and error
// mapping. Failure semantics are single-shot pass-through: any non-2xx
// provider response surfaces as an AppError carrying the upstream status and
// body, with no provider-specific interpretation beyond not-found.
type PolarClient struct {
	base        *BaseClient
	accessToken types.SecretString
	baseURL     string
	logger      *slog.Logger
}

// NewPolarClient creates a PolarClient. The httpClient timeout bounds each
// individual attempt against the provider.
func NewPolarClient(httpClient *http.Client, cfg PolarClientConfig) *PolarClient {
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}

	base := NewBaseClient(
		httpClient,
		"polar",
		DefaultRetryPolicy(),
		"Plara/1.0",
	)

	return &PolarClient{
		base:        base,
		accessToken: cfg.AccessToken,
		baseURL:     strings.TrimSuffix(cfg.BaseURL, "/"),
		logger:      logger,
	}
}

// NewPolarClientWithBase creates a PolarClient with a pre-configured
// BaseClient. This is useful for testing when you want to control the
// BaseClient configuration (e.g., no retry sleeps).
func NewPolarClientWithBase(base *BaseClient, cfg PolarClientConfig) *PolarClient {
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}

	return &PolarClient{
		base:        base,
		accessToken: cfg.AccessToken,
		baseURL:     strings.TrimSuffix(cfg.BaseURL, "/"),
		logger:      logger,
	}
}

// CheckoutParams are the inputs for creating a hosted checkout session.
// SuccessURL is constructed server-side by the handler; it is never taken
// from client input.
type CheckoutParams struct {
	ProductID     string
	SuccessURL    string
	CustomerEmail string
	CustomerName  string
	Metadata      map[string]any
}

// ---------------------------------------------------------------------------
// Checkout Operations
// ---------------------------------------------------------------------------

// CreateCheckout creates a hosted checkout session for the given product and
// returns the checkout URL the customer is redirected to.
func (p *PolarClient) CreateCheckout(ctx context.Context, params CheckoutParams) (*types.Checkout, error) {
	body := polarCheckoutCreate{
		Products:   []string{params.ProductID},
		SuccessURL: params.SuccessURL,
	}
	if params.CustomerEmail != "" {
		body.CustomerEmail = params.CustomerEmail
	}
	if params.CustomerName != "" {
		body.CustomerName = params.CustomerName
	}
	if len(params.Metadata) > 0 {
		body.Metadata = params.Metadata
	}

	resp, err := p.doPost(ctx, "/checkouts/", body)
	if err != nil {
		return nil, p.wrapPolarError("CreateCheckout", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, p.handleErrorResponse(resp, "CreateCheckout")
	}

	var checkout polarCheckout
	if err := json.NewDecoder(resp.Body).Decode(&checkout); err != nil {
		return nil, types.NewAppError(
			types.ErrCodeInternalUnexpected,
			"failed to decode Polar checkout response",
			err,
		)
	}

	p.logger.InfoContext(ctx, "created checkout session",
		"checkout_id", checkout.ID,
		"product_id", params.ProductID,
	)

	return mapPolarCheckout(&checkout), nil
}

// GetCheckout retrieves a single checkout session by ID. An unknown ID
// surfaces as a domain not-found error.
func (p *PolarClient) GetCheckout(ctx context.Context, checkoutID string) (*types.Checkout, error) {
	resp, err := p.doGet(ctx, "/checkouts/"+url.PathEscape(checkoutID), nil)
	if err != nil {
		return nil, p.wrapPolarError("GetCheckout", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusNotFound {
		return nil, types.NewAppError(
			types.ErrCodeNotFoundCheckout,
			fmt.Sprintf("checkout %s not found", checkoutID),
			nil,
		)
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, p.handleErrorResponse(resp, "GetCheckout")
	}

	var checkout polarCheckout
	if err := json.NewDecoder(resp.Body).Decode(&checkout); err != nil {
		return nil, types.NewAppError(
			types.ErrCodeInternalUnexpected,
			"failed to decode Polar checkout response",
			err,
		)
	}

	return mapPolarCheckout(&checkout), nil
}

// ---------------------------------------------------------------------------
// Catalog / Customer Operations
// ---------------------------------------------------------------------------

// ListProducts returns the organization's non-archived products. Products
// with no price entries are omitted; the first price entry populates the
// amount, currency, recurring flag, and billing interval.
func (p *PolarClient) ListProducts(ctx context.Context, organizationID string) ([]types.Product, error) {
	params := url.Values{}
	params.Set("organization_id", organizationID)
	params.Set("is_archived", "false")

	resp, err := p.doGet(ctx, "/products/", params)
	if err != nil {
		return nil, p.wrapPolarError("ListProducts", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, p.handleErrorResponse(resp, "ListProducts")
	}

	var list polarProductList
	if err := json.NewDecoder(resp.Body).Decode(&list); err != nil {
		return nil, types.NewAppError(
			types.ErrCodeInternalUnexpected,
			"failed to decode Polar products response",
			err,
		)
	}

	products := make([]types.Product, 0, len(list.Items))
	for i := range list.Items {
		if product := mapPolarProduct(&list.Items[i]); product != nil {
			products = append(products, *product)
		}
	}

	return products, nil
}

// ListOrders returns all orders visible to the organization. Filtering to a
// specific customer happens client-side; the provider API is not assumed to
// support server-side email filtering.
func (p *PolarClient) ListOrders(ctx context.Context, organizationID string) ([]types.Order, error) {
	params := url.Values{}
	params.Set("organization_id", organizationID)

	resp, err := p.doGet(ctx, "/orders/", params)
	if err != nil {
		return nil, p.wrapPolarError("ListOrders", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, p.handleErrorResponse(resp, "ListOrders")
	}

	var list polarOrderList
	if err := json.NewDecoder(resp.Body).Decode(&list); err != nil {
		return nil, types.NewAppError(
			types.ErrCodeInternalUnexpected,
			"failed to decode Polar orders response",
			err,
		)
	}

	orders := make([]types.Order, 0, len(list.Items))
	for i := range list.Items {
		orders = append(orders, mapPolarOrder(&list.Items[i]))
	}

	return orders, nil
}

// ListSubscriptions returns all subscriptions visible to the organization.
// Callers scan for the customer and status they care about.
func (p *PolarClient) ListSubscriptions(ctx context.Context, organizationID string) ([]types.Subscription, error) {
	params := url.Values{}
	params.Set("organization_id", organizationID)

	resp, err := p.doGet(ctx, "/subscriptions/", params)
	if err != nil {
		return nil, p.wrapPolarError("ListSubscriptions", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, p.handleErrorResponse(resp, "ListSubscriptions")
	}

	var list polarSubscriptionList
	if err := json.NewDecoder(resp.Body).Decode(&list); err != nil {
		return nil, types.NewAppError(
			types.ErrCodeInternalUnexpected,
			"failed to decode Polar subscriptions response",
			err,
		)
	}

	subs := make([]types.Subscription, 0, len(list.Items))
	for i := range list.Items {
		subs = append(subs, mapPolarSubscription(&list.Items[i]))
	}

	return subs, nil
}

// ---------------------------------------------------------------------------
// HTTP Helpers
// ---------------------------------------------------------------------------

// doGet performs an authenticated GET request to the Polar API.
func (p *PolarClient) doGet(ctx context.Context, path string, params url.Values) (*http.Response, error) {
	reqURL := p.baseURL + path
	if len(params) > 0 {
		reqURL += "?" + params.Encode()
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, nil)
	if err != nil {
		return nil, err
	}
	p.setAuthHeaders(req)

	return p.base.Do(req)
}

// doPost performs an authenticated POST request to the Polar API with a JSON body.
func (p *PolarClient) doPost(ctx context.Context, path string, body any) (*http.Response, error) {
	payload, err := json.Marshal(body)
	if err != nil {
		return nil, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, p.baseURL+path, bytes.NewReader(payload))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")
	p.setAuthHeaders(req)

	return p.base.Do(req)
}

// setAuthHeaders sets the Polar API bearer token.
func (p *PolarClient) setAuthHeaders(req *http.Request) {
	req.Header.Set("Authorization", "Bearer "+p.accessToken.Unmask())
}

// ---------------------------------------------------------------------------
// Error Handling
// ---------------------------------------------------------------------------

// handleErrorResponse reads a Polar error response and maps it to a
// types.AppError carrying the upstream status and body verbatim.
func (p *PolarClient) handleErrorResponse(resp *http.Response, operation string) error {
	body, readErr := io.ReadAll(resp.Body)
	if readErr != nil {
		return types.NewAppErrorWithDetails(
			types.ErrCodeUpstreamPolar,
			fmt.Sprintf("%s: Polar returned status %d and response body was unreadable", operation, resp.StatusCode),
			readErr,
			map[string]any{"provider_status": resp.StatusCode},
		)
	}

	return types.NewAppErrorWithDetails(
		types.ErrCodeUpstreamPolar,
		fmt.Sprintf("%s: Polar error (%d)", operation, resp.StatusCode),
		nil,
		map[string]any{
			"provider_status": resp.StatusCode,
			"provider_body":   string(body),
		},
	)
}

// wrapPolarError wraps a BaseClient transport error with operation context.
func (p *PolarClient) wrapPolarError(operation string, err error) error {
	// BaseClient errors (circuit breaker, retries exhausted) already carry
	// the right upstream code; return them as-is.
	if _, ok := err.(*types.AppError); ok {
		return err
	}
	return types.NewAppError(
		types.ErrCodeUpstreamPolar,
		fmt.Sprintf("%s: Polar request failed: %v", operation, err),
		err,
	)
}

// ---------------------------------------------------------------------------
// Polar Wire Types (for JSON serialization)
// ---------------------------------------------------------------------------

type polarCheckoutCreate struct {
	Products      []string       `json:"products"`
	SuccessURL    string         `json:"success_url"`
	CustomerEmail string         `json:"customer_email,omitempty"`
	CustomerName  string         `json:"customer_name,omitempty"`
	Metadata      map[string]any `json:"metadata,omitempty"`
}

type polarCheckout struct {
	ID            string           `json:"id"`
	URL           string           `json:"url"`
	Status        string           `json:"status"`
	CustomerEmail string           `json:"customer_email"`
	Amount        int64            `json:"amount"`
	Currency      string           `json:"currency"`
	CreatedAt     time.Time        `json:"created_at"`
	ConfirmedAt   *time.Time       `json:"confirmed_at"`
	ExpiresAt     *time.Time       `json:"expires_at"`
	Product       *polarProductRef `json:"product"`
}

type polarProductRef struct {
	Name string `json:"name"`
}

type polarCustomerRef struct {
	Email string `json:"email"`
}

type polarProduct struct {
	ID          string       `json:"id"`
	Name        string       `json:"name"`
	Description string       `json:"description"`
	IsArchived  bool         `json:"is_archived"`
	Prices      []polarPrice `json:"prices"`
}

type polarPrice struct {
	PriceAmount       int64  `json:"price_amount"`
	PriceCurrency     string `json:"price_currency"`
	IsRecurring       bool   `json:"is_recurring"`
	RecurringInterval string `json:"recurring_interval"`
}

type polarProductList struct {
	Items []polarProduct `json:"items"`
}

type polarOrder struct {
	ID        string           `json:"id"`
	Amount    int64            `json:"amount"`
	Currency  string           `json:"currency"`
	Status    string           `json:"status"`
	CreatedAt time.Time        `json:"created_at"`
	Customer  polarCustomerRef `json:"customer"`
	Product   polarProductRef  `json:"product"`
}

type polarOrderList struct {
	Items []polarOrder `json:"items"`
}

type polarSubscription struct {
	ID               string           `json:"id"`
	Status           string           `json:"status"`
	CurrentPeriodEnd *time.Time       `json:"current_period_end"`
	Customer         polarCustomerRef `json:"customer"`
}

type polarSubscriptionList struct {
	Items []polarSubscription `json:"items"`
}

// ---------------------------------------------------------------------------
// Mapping Functions
// ---------------------------------------------------------------------------

// mapPolarCheckout converts a Polar checkout to the domain type.
func mapPolarCheckout(c *polarCheckout) *types.Checkout {
	checkout := &types.Checkout{
		ID:            c.ID,
		URL:           c.URL,
		Status:        c.Status,
		CustomerEmail: c.CustomerEmail,
		Amount:        c.Amount,
		Currency:      c.Currency,
		CreatedAt:     c.CreatedAt,
		ConfirmedAt:   c.ConfirmedAt,
		ExpiresAt:     c.ExpiresAt,
	}
	if c.Product != nil {
		checkout.ProductName = c.Product.Name
	}
	return checkout
}

// mapPolarProduct converts a Polar product record to the domain type.
// Returns nil for records with no price entries; those are not purchasable
// through this service and are omitted from listings.
func mapPolarProduct(p *polarProduct) *types.Product {
	if len(p.Prices) == 0 {
		return nil
	}

	price := p.Prices[0]
	product := &types.Product{
		ID:            p.ID,
		Name:          p.Name,
		Description:   p.Description,
		PriceAmount:   price.PriceAmount,
		PriceCurrency: price.PriceCurrency,
		IsRecurring:   price.IsRecurring,
	}
	if price.IsRecurring {
		product.Interval = price.RecurringInterval
	}
	return product
}

// mapPolarOrder converts a Polar order to the domain type.
func mapPolarOrder(o *polarOrder) types.Order {
	return types.Order{
		ID:            o.ID,
		CustomerEmail: o.Customer.Email,
		ProductName:   o.Product.Name,
		Amount:        o.Amount,
		Currency:      o.Currency,
		Status:        o.Status,
		CreatedAt:     o.CreatedAt,
	}
}

// mapPolarSubscription converts a Polar subscription to the domain type.
func mapPolarSubscription(s *polarSubscription) types.Subscription {
	return types.Subscription{
		ID:               s.ID,
		CustomerEmail:    s.Customer.Email,
		Status:           types.SubscriptionStatus(s.Status),
		CurrentPeriodEnd: s.CurrentPeriodEnd,
	}
}
