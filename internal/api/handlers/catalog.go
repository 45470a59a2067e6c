package handlers

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"plara/internal/core"
	"plara/internal/types"
)

// CatalogService abstracts the product listing operation. Implemented by
// external.PolarClient.
type CatalogService interface {
	// ListProducts returns the organization's purchasable products.
	ListProducts(ctx context.Context, organizationID string) ([]types.Product, error)
}

// ProductsResponse is the response for GET /api/products.
type ProductsResponse struct {
	Products []types.Product `json:"products"`
}

// CatalogHandler serves the product catalog to the storefront.
type CatalogHandler struct {
	service        CatalogService
	organizationID string
	logger         *slog.Logger
}

// NewCatalogHandler creates a CatalogHandler with the provided dependencies.
func NewCatalogHandler(svc CatalogService, organizationID string, l *slog.Logger) *CatalogHandler {
	if l == nil {
		l = slog.Default()
	}
	return &CatalogHandler{
		service:        svc,
		organizationID: organizationID,
		logger:         l,
	}
}

// RegisterRoutes mounts the catalog endpoints.
func (h *CatalogHandler) RegisterRoutes(r chi.Router) {
	r.Get("/products", h.List)
}

// List handles GET /api/products. An organization with no purchasable
// products returns an empty list, never null.
func (h *CatalogHandler) List(w http.ResponseWriter, r *http.Request) {
	products, err := h.service.ListProducts(r.Context(), h.organizationID)
	if err != nil {
		core.Error(w, r, err)
		return
	}

	if products == nil {
		products = []types.Product{}
	}

	core.JSON(w, r, http.StatusOK, ProductsResponse{Products: products})
}
