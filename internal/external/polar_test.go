package external

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"plara/internal/types"
)

func newTestPolarClient(serverURL string) *PolarClient {
	return NewPolarClient(http.DefaultClient, PolarClientConfig{
		AccessToken: types.SecretString("polar_at_test"),
		BaseURL:     serverURL,
	})
}

func TestPolarClient_CreateCheckout(t *testing.T) {
	var gotPath, gotAuth string
	var gotBody map[string]any

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		gotAuth = r.Header.Get("Authorization")
		require.NoError(t, json.NewDecoder(r.Body).Decode(&gotBody))

		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusCreated)
		_, _ = w.Write([]byte(`{
			"id": "chk_abc",
			"url": "https://polar.sh/checkout/chk_abc",
			"status": "open",
			"created_at": "2026-08-30T10:00:00Z",
			"expires_at": "2026-08-30T11:00:00Z"
		}`))
	}))
	defer srv.Close()

	client := newTestPolarClient(srv.URL)
	checkout, err := client.CreateCheckout(context.Background(), CheckoutParams{
		ProductID:     "prod_1",
		SuccessURL:    "https://shop.example.com/success?checkout_id={CHECKOUT_ID}",
		CustomerEmail: "buyer@example.com",
		CustomerName:  "Buyer",
		Metadata:      map[string]any{"order_ref": "ref_42"},
	})
	require.NoError(t, err)

	assert.Equal(t, "/checkouts/", gotPath)
	assert.Equal(t, "Bearer polar_at_test", gotAuth)
	assert.Equal(t, []any{"prod_1"}, gotBody["products"])
	assert.Equal(t, "https://shop.example.com/success?checkout_id={CHECKOUT_ID}", gotBody["success_url"])
	assert.Equal(t, "buyer@example.com", gotBody["customer_email"])
	assert.Equal(t, "Buyer", gotBody["customer_name"])
	assert.Equal(t, map[string]any{"order_ref": "ref_42"}, gotBody["metadata"])

	assert.Equal(t, "chk_abc", checkout.ID)
	assert.Equal(t, "https://polar.sh/checkout/chk_abc", checkout.URL)
	assert.Equal(t, "open", checkout.Status)
	require.NotNil(t, checkout.ExpiresAt)
}

func TestPolarClient_CreateCheckout_OmitsEmptyOptionalFields(t *testing.T) {
	var gotBody map[string]any

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.NoError(t, json.NewDecoder(r.Body).Decode(&gotBody))
		_, _ = w.Write([]byte(`{"id":"chk_1","url":"https://polar.sh/c/1","status":"open","created_at":"2026-08-30T10:00:00Z"}`))
	}))
	defer srv.Close()

	client := newTestPolarClient(srv.URL)
	_, err := client.CreateCheckout(context.Background(), CheckoutParams{
		ProductID:  "prod_1",
		SuccessURL: "https://shop.example.com/success",
	})
	require.NoError(t, err)

	_, hasEmail := gotBody["customer_email"]
	_, hasName := gotBody["customer_name"]
	_, hasMeta := gotBody["metadata"]
	assert.False(t, hasEmail, "empty customer_email must be omitted")
	assert.False(t, hasName, "empty customer_name must be omitted")
	assert.False(t, hasMeta, "empty metadata must be omitted")
}

func TestPolarClient_CreateCheckout_UpstreamErrorPassthrough(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnprocessableEntity)
		_, _ = w.Write([]byte(`{"detail":"product not found"}`))
	}))
	defer srv.Close()

	client := newTestPolarClient(srv.URL)
	_, err := client.CreateCheckout(context.Background(), CheckoutParams{
		ProductID:  "prod_bogus",
		SuccessURL: "https://shop.example.com/success",
	})
	require.Error(t, err)

	var appErr *types.AppError
	require.ErrorAs(t, err, &appErr)
	assert.Equal(t, types.ErrCodeUpstreamPolar, appErr.Code)
	assert.Equal(t, http.StatusInternalServerError, appErr.HTTPStatus())
	assert.Equal(t, http.StatusUnprocessableEntity, appErr.Details["provider_status"])
	assert.Contains(t, appErr.Details["provider_body"], "product not found")
}

func TestPolarClient_GetCheckout_NotFound(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
		_, _ = w.Write([]byte(`{"detail":"Not Found"}`))
	}))
	defer srv.Close()

	client := newTestPolarClient(srv.URL)
	_, err := client.GetCheckout(context.Background(), "chk_missing")
	require.Error(t, err)

	var appErr *types.AppError
	require.ErrorAs(t, err, &appErr)
	assert.Equal(t, types.ErrCodeNotFoundCheckout, appErr.Code)
	assert.Equal(t, http.StatusNotFound, appErr.HTTPStatus())
}

func TestPolarClient_GetCheckout(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/checkouts/chk_abc", r.URL.Path)
		_, _ = w.Write([]byte(`{
			"id": "chk_abc",
			"url": "https://polar.sh/checkout/chk_abc",
			"status": "confirmed",
			"customer_email": "buyer@example.com",
			"amount": 1500,
			"currency": "usd",
			"created_at": "2026-08-30T10:00:00Z",
			"confirmed_at": "2026-08-30T10:05:00Z",
			"product": {"name": "Pro License"}
		}`))
	}))
	defer srv.Close()

	client := newTestPolarClient(srv.URL)
	checkout, err := client.GetCheckout(context.Background(), "chk_abc")
	require.NoError(t, err)

	assert.Equal(t, "confirmed", checkout.Status)
	assert.Equal(t, "buyer@example.com", checkout.CustomerEmail)
	assert.Equal(t, int64(1500), checkout.Amount)
	assert.Equal(t, "Pro License", checkout.ProductName)
	require.NotNil(t, checkout.ConfirmedAt)
}

func TestPolarClient_ListProducts(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/products/", r.URL.Path)
		assert.Equal(t, "org_1", r.URL.Query().Get("organization_id"))
		assert.Equal(t, "false", r.URL.Query().Get("is_archived"))

		_, _ = w.Write([]byte(`{
			"items": [
				{
					"id": "prod_sub",
					"name": "Monthly Plan",
					"description": "Recurring access",
					"prices": [
						{"price_amount": 900, "price_currency": "usd", "is_recurring": true, "recurring_interval": "month"},
						{"price_amount": 9000, "price_currency": "usd", "is_recurring": true, "recurring_interval": "year"}
					]
				},
				{
					"id": "prod_free",
					"name": "No Price Yet",
					"prices": []
				},
				{
					"id": "prod_once",
					"name": "Lifetime",
					"prices": [
						{"price_amount": 19900, "price_currency": "usd", "is_recurring": false}
					]
				}
			]
		}`))
	}))
	defer srv.Close()

	client := newTestPolarClient(srv.URL)
	products, err := client.ListProducts(context.Background(), "org_1")
	require.NoError(t, err)

	// prod_free has no prices and must be omitted.
	require.Len(t, products, 2)

	assert.Equal(t, "prod_sub", products[0].ID)
	assert.Equal(t, int64(900), products[0].PriceAmount, "first price entry must win")
	assert.Equal(t, "usd", products[0].PriceCurrency)
	assert.True(t, products[0].IsRecurring)
	assert.Equal(t, "month", products[0].Interval)

	assert.Equal(t, "prod_once", products[1].ID)
	assert.False(t, products[1].IsRecurring)
	assert.Empty(t, products[1].Interval, "one-time products carry no interval")
}

func TestPolarClient_ListOrders(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/orders/", r.URL.Path)
		assert.Equal(t, "org_1", r.URL.Query().Get("organization_id"))

		_, _ = w.Write([]byte(`{
			"items": [
				{
					"id": "ord_1",
					"amount": 1500,
					"currency": "usd",
					"status": "paid",
					"created_at": "2026-08-29T08:00:00Z",
					"customer": {"email": "buyer@example.com"},
					"product": {"name": "Pro License"}
				}
			]
		}`))
	}))
	defer srv.Close()

	client := newTestPolarClient(srv.URL)
	orders, err := client.ListOrders(context.Background(), "org_1")
	require.NoError(t, err)

	require.Len(t, orders, 1)
	assert.Equal(t, "ord_1", orders[0].ID)
	assert.Equal(t, "buyer@example.com", orders[0].CustomerEmail)
	assert.Equal(t, "Pro License", orders[0].ProductName)
	assert.Equal(t, "paid", orders[0].Status)
}

func TestPolarClient_ListSubscriptions(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/subscriptions/", r.URL.Path)

		_, _ = w.Write([]byte(`{
			"items": [
				{
					"id": "sub_1",
					"status": "active",
					"current_period_end": "2026-09-30T00:00:00Z",
					"customer": {"email": "buyer@example.com"}
				},
				{
					"id": "sub_2",
					"status": "canceled",
					"current_period_end": null,
					"customer": {"email": "former@example.com"}
				}
			]
		}`))
	}))
	defer srv.Close()

	client := newTestPolarClient(srv.URL)
	subs, err := client.ListSubscriptions(context.Background(), "org_1")
	require.NoError(t, err)

	require.Len(t, subs, 2)
	assert.True(t, subs[0].IsActive())
	require.NotNil(t, subs[0].CurrentPeriodEnd)
	assert.False(t, subs[1].IsActive())
	assert.Nil(t, subs[1].CurrentPeriodEnd)
}

func TestPolarClient_ListProducts_ServerErrorRetriesOnce(t *testing.T) {
	attempts := 0
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		attempts++
		if attempts == 1 {
			w.WriteHeader(http.StatusServiceUnavailable)
			return
		}
		_, _ = w.Write([]byte(`{"items":[]}`))
	}))
	defer srv.Close()

	base := NewBaseClient(
		http.DefaultClient,
		"polar-test",
		RetryPolicy{MaxRetries: 1, MinWait: 0, MaxWait: 0},
		"Plara/1.0",
		WithSleepFunc(func(time.Duration) {}),
	)
	client := NewPolarClientWithBase(base, PolarClientConfig{
		AccessToken: types.SecretString("polar_at_test"),
		BaseURL:     srv.URL,
	})

	products, err := client.ListProducts(context.Background(), "org_1")
	require.NoError(t, err)
	assert.Empty(t, products)
	assert.Equal(t, 2, attempts, "transient 503 should be retried exactly once")
}
