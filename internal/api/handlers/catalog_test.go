package handlers

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-chi/chi/v5"

	"plara/internal/types"
)

// mockCatalogService implements CatalogService for testing.
type mockCatalogService struct {
	gotOrgID string
	products []types.Product
	err      error
}

func (m *mockCatalogService) ListProducts(ctx context.Context, organizationID string) ([]types.Product, error) {
	m.gotOrgID = organizationID
	if m.err != nil {
		return nil, m.err
	}
	return m.products, nil
}

func doCatalogRequest(handler *CatalogHandler) *httptest.ResponseRecorder {
	r := chi.NewRouter()
	handler.RegisterRoutes(r)

	req := httptest.NewRequest(http.MethodGet, "/products", nil)
	rr := httptest.NewRecorder()
	r.ServeHTTP(rr, req)
	return rr
}

func TestCatalogHandler_List_Success(t *testing.T) {
	svc := &mockCatalogService{
		products: []types.Product{
			{ID: "prod_1", Name: "Monthly Plan", PriceAmount: 900, PriceCurrency: "usd", IsRecurring: true, Interval: "month"},
			{ID: "prod_2", Name: "Lifetime", PriceAmount: 19900, PriceCurrency: "usd"},
		},
	}
	handler := NewCatalogHandler(svc, "org_1", nil)

	rr := doCatalogRequest(handler)

	if rr.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d", rr.Code)
	}
	if svc.gotOrgID != "org_1" {
		t.Errorf("expected organization org_1, got %q", svc.gotOrgID)
	}

	var resp ProductsResponse
	if err := json.Unmarshal(rr.Body.Bytes(), &resp); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
	if len(resp.Products) != 2 {
		t.Fatalf("expected 2 products, got %d", len(resp.Products))
	}
	if resp.Products[0].Interval != "month" {
		t.Errorf("expected interval month, got %q", resp.Products[0].Interval)
	}
}

func TestCatalogHandler_List_EmptyCatalogIsArrayNotNull(t *testing.T) {
	handler := NewCatalogHandler(&mockCatalogService{products: nil}, "org_1", nil)

	rr := doCatalogRequest(handler)

	if rr.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d", rr.Code)
	}

	var raw map[string]json.RawMessage
	if err := json.Unmarshal(rr.Body.Bytes(), &raw); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
	if string(raw["products"]) != "[]" {
		t.Errorf("expected products to be [], got %s", raw["products"])
	}
}

func TestCatalogHandler_List_UpstreamError(t *testing.T) {
	svc := &mockCatalogService{
		err: types.NewAppError(types.ErrCodeUpstreamUnavailable, "upstream request failed", nil),
	}
	handler := NewCatalogHandler(svc, "org_1", nil)

	rr := doCatalogRequest(handler)

	if rr.Code != http.StatusInternalServerError {
		t.Fatalf("expected status 500, got %d", rr.Code)
	}
	if code := decodeErrorCode(t, rr); code != string(types.ErrCodeUpstreamUnavailable) {
		t.Errorf("expected error code %q, got %q", types.ErrCodeUpstreamUnavailable, code)
	}
}
