package handlers

import (
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/commedeschamps/Uly-Dala-Coffee/internal/domain"
	"github.com/commedeschamps/Uly-Dala-Coffee/internal/platform/auth"
	"github.com/commedeschamps/Uly-Dala-Coffee/internal/platform/httpx"
	"github.com/commedeschamps/Uly-Dala-Coffee/internal/services"
)

// ProductHandlers exposes the public menu and the staff-only catalog
// management endpoints.
type ProductHandlers struct {
	authn      *auth.Authenticator
	catalog    services.CatalogService
	staffRoles []string
}

// NewProductHandlers constructs a new ProductHandlers instance. staffRoles
// gate the mutating endpoints.
func NewProductHandlers(authn *auth.Authenticator, catalog services.CatalogService, staffRoles []string) *ProductHandlers {
	return &ProductHandlers{
		authn:      authn,
		catalog:    catalog,
		staffRoles: staffRoles,
	}
}

// Routes registers the /products endpoints.
func (h *ProductHandlers) Routes(r chi.Router) {
	if r == nil {
		return
	}
	r.Get("/", h.listProducts)
	r.Get("/{productID}", h.getProduct)

	r.Group(func(staff chi.Router) {
		if h.authn != nil {
			staff.Use(h.authn.RequireAuth(h.staffRoles...))
		}
		staff.Post("/", h.createProduct)
		staff.Patch("/{productID}", h.updateProduct)
		staff.Delete("/{productID}", h.deleteProduct)
	})
}

func (h *ProductHandlers) listProducts(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	if h.catalog == nil {
		httpx.WriteError(ctx, w, httpx.NewError("catalog_service_unavailable", "catalog service unavailable", http.StatusServiceUnavailable))
		return
	}

	query := r.URL.Query()
	products, err := h.catalog.ListProducts(ctx, services.ProductListQuery{
		Category:      strings.TrimSpace(query.Get("category")),
		OnlyAvailable: strings.EqualFold(query.Get("available"), "true"),
	})
	if err != nil {
		writeServiceError(ctx, w, err)
		return
	}

	payloads := make([]productPayload, 0, len(products))
	for _, product := range products {
		payloads = append(payloads, buildProductPayload(product))
	}
	writeJSONResponse(w, http.StatusOK, productListResponse{
		Status:   statusSuccess,
		Results:  len(payloads),
		Products: payloads,
	})
}

func (h *ProductHandlers) getProduct(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	if h.catalog == nil {
		httpx.WriteError(ctx, w, httpx.NewError("catalog_service_unavailable", "catalog service unavailable", http.StatusServiceUnavailable))
		return
	}

	product, err := h.catalog.GetProduct(ctx, strings.TrimSpace(chi.URLParam(r, "productID")))
	if err != nil {
		writeServiceError(ctx, w, err)
		return
	}
	writeJSONResponse(w, http.StatusOK, productResponse{Status: statusSuccess, Product: buildProductPayload(product)})
}

type productSizeRequest struct {
	Label string `json:"label"`
	Price int64  `json:"price"`
}

type createProductRequest struct {
	Name        string               `json:"name"`
	Category    string               `json:"category"`
	Description string               `json:"description"`
	ImageURL    string               `json:"imageUrl"`
	IsAvailable *bool                `json:"isAvailable"`
	Price       *int64               `json:"price"`
	BasePrice   *int64               `json:"basePrice"`
	Sizes       []productSizeRequest `json:"sizes"`
}

func (h *ProductHandlers) createProduct(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	if h.catalog == nil {
		httpx.WriteError(ctx, w, httpx.NewError("catalog_service_unavailable", "catalog service unavailable", http.StatusServiceUnavailable))
		return
	}

	var req createProductRequest
	if !decodeBody(w, r, &req) {
		return
	}

	product, err := h.catalog.CreateProduct(ctx, services.CreateProductCommand{
		Name:        req.Name,
		Category:    req.Category,
		Description: req.Description,
		ImageURL:    req.ImageURL,
		IsAvailable: req.IsAvailable,
		Price:       req.Price,
		BasePrice:   req.BasePrice,
		Sizes:       buildSizeRequests(req.Sizes),
	})
	if err != nil {
		writeServiceError(ctx, w, err)
		return
	}
	writeJSONResponse(w, http.StatusCreated, productResponse{Status: statusSuccess, Product: buildProductPayload(product)})
}

type updateProductRequest struct {
	Name        *string              `json:"name"`
	Category    *string              `json:"category"`
	Description *string              `json:"description"`
	ImageURL    *string              `json:"imageUrl"`
	IsAvailable *bool                `json:"isAvailable"`
	Price       *int64               `json:"price"`
	BasePrice   *int64               `json:"basePrice"`
	Sizes       []productSizeRequest `json:"sizes"`
}

func (h *ProductHandlers) updateProduct(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	if h.catalog == nil {
		httpx.WriteError(ctx, w, httpx.NewError("catalog_service_unavailable", "catalog service unavailable", http.StatusServiceUnavailable))
		return
	}

	var req updateProductRequest
	if !decodeBody(w, r, &req) {
		return
	}

	product, err := h.catalog.UpdateProduct(ctx, strings.TrimSpace(chi.URLParam(r, "productID")), services.ProductChanges{
		Name:        req.Name,
		Category:    req.Category,
		Description: req.Description,
		ImageURL:    req.ImageURL,
		IsAvailable: req.IsAvailable,
		Price:       req.Price,
		BasePrice:   req.BasePrice,
		Sizes:       buildSizeRequests(req.Sizes),
	})
	if err != nil {
		writeServiceError(ctx, w, err)
		return
	}
	writeJSONResponse(w, http.StatusOK, productResponse{Status: statusSuccess, Product: buildProductPayload(product)})
}

func (h *ProductHandlers) deleteProduct(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	if h.catalog == nil {
		httpx.WriteError(ctx, w, httpx.NewError("catalog_service_unavailable", "catalog service unavailable", http.StatusServiceUnavailable))
		return
	}

	if err := h.catalog.DeleteProduct(ctx, strings.TrimSpace(chi.URLParam(r, "productID"))); err != nil {
		writeServiceError(ctx, w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func buildSizeRequests(sizes []productSizeRequest) []domain.ProductSize {
	if sizes == nil {
		return nil
	}
	out := make([]domain.ProductSize, 0, len(sizes))
	for _, size := range sizes {
		out = append(out, domain.ProductSize{
			Label: domain.SizeLabel(strings.ToLower(strings.TrimSpace(size.Label))),
			Price: size.Price,
		})
	}
	return out
}
