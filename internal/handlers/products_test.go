package handlers

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/commedeschamps/Uly-Dala-Coffee/internal/domain"
	"github.com/commedeschamps/Uly-Dala-Coffee/internal/services"
)

type stubCatalogService struct {
	createFn  func(ctx context.Context, cmd services.CreateProductCommand) (domain.Product, error)
	getFn     func(ctx context.Context, productID string) (domain.Product, error)
	listFn    func(ctx context.Context, query services.ProductListQuery) ([]domain.Product, error)
	updateFn  func(ctx context.Context, productID string, changes services.ProductChanges) (domain.Product, error)
	deleteFn  func(ctx context.Context, productID string) error
	resolveFn func(ctx context.Context, productIDs []string) (map[string]domain.Product, error)
}

func (s *stubCatalogService) CreateProduct(ctx context.Context, cmd services.CreateProductCommand) (domain.Product, error) {
	if s.createFn == nil {
		return domain.Product{}, nil
	}
	return s.createFn(ctx, cmd)
}

func (s *stubCatalogService) GetProduct(ctx context.Context, productID string) (domain.Product, error) {
	if s.getFn == nil {
		return domain.Product{}, nil
	}
	return s.getFn(ctx, productID)
}

func (s *stubCatalogService) ListProducts(ctx context.Context, query services.ProductListQuery) ([]domain.Product, error) {
	if s.listFn == nil {
		return nil, nil
	}
	return s.listFn(ctx, query)
}

func (s *stubCatalogService) UpdateProduct(ctx context.Context, productID string, changes services.ProductChanges) (domain.Product, error) {
	if s.updateFn == nil {
		return domain.Product{}, nil
	}
	return s.updateFn(ctx, productID, changes)
}

func (s *stubCatalogService) DeleteProduct(ctx context.Context, productID string) error {
	if s.deleteFn == nil {
		return nil
	}
	return s.deleteFn(ctx, productID)
}

func (s *stubCatalogService) ResolveProducts(ctx context.Context, productIDs []string) (map[string]domain.Product, error) {
	if s.resolveFn == nil {
		return map[string]domain.Product{}, nil
	}
	return s.resolveFn(ctx, productIDs)
}

func newProductRouter(svc services.CatalogService) chi.Router {
	r := chi.NewRouter()
	NewProductHandlers(nil, svc, []string{"staff", "admin"}).Routes(r)
	return r
}

func testProduct() domain.Product {
	base := int64(120000)
	return domain.Product{
		ID:          "prd_latte",
		Name:        "Latte",
		Category:    "coffee",
		Description: "Double shot with steamed milk",
		IsAvailable: true,
		BasePrice:   &base,
		Sizes: []domain.ProductSize{
			{Label: domain.SizeSmall, Price: 100000},
			{Label: domain.SizeLarge, Price: 150000},
		},
		CreatedAt: time.Date(2025, 5, 1, 12, 0, 0, 0, time.UTC),
		UpdatedAt: time.Date(2025, 5, 1, 12, 0, 0, 0, time.UTC),
	}
}

func TestListProductsForwardsFilters(t *testing.T) {
	var captured services.ProductListQuery
	svc := &stubCatalogService{
		listFn: func(_ context.Context, query services.ProductListQuery) ([]domain.Product, error) {
			captured = query
			return []domain.Product{testProduct()}, nil
		},
	}
	router := newProductRouter(svc)

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/?category=coffee&available=TRUE", nil))

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d (%s)", rec.Code, rec.Body.String())
	}
	if captured.Category != "coffee" || !captured.OnlyAvailable {
		t.Fatalf("unexpected query: %+v", captured)
	}

	var resp productListResponse
	decodeJSONBody(t, rec, &resp)
	if resp.Status != "success" || resp.Results != 1 {
		t.Fatalf("unexpected envelope: %+v", resp)
	}
	if resp.Products[0].ID != "prd_latte" {
		t.Fatalf("unexpected product id %q", resp.Products[0].ID)
	}
	if resp.Products[0].BasePrice == nil || *resp.Products[0].BasePrice != 120000 {
		t.Fatalf("expected base price in payload")
	}
	if len(resp.Products[0].Sizes) != 2 {
		t.Fatalf("expected sizes in payload, got %+v", resp.Products[0].Sizes)
	}
}

func TestGetProductNotFound(t *testing.T) {
	svc := &stubCatalogService{
		getFn: func(_ context.Context, _ string) (domain.Product, error) {
			return domain.Product{}, services.ErrNotFound
		},
	}
	router := newProductRouter(svc)

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/prd_missing", nil))

	if rec.Code != http.StatusNotFound {
		t.Fatalf("expected 404, got %d", rec.Code)
	}
}

func TestCreateProductForwardsCommand(t *testing.T) {
	var captured services.CreateProductCommand
	svc := &stubCatalogService{
		createFn: func(_ context.Context, cmd services.CreateProductCommand) (domain.Product, error) {
			captured = cmd
			return testProduct(), nil
		},
	}
	router := newProductRouter(svc)

	body := `{"name":"Latte","category":"coffee","basePrice":120000,"sizes":[{"label":"Small","price":100000},{"label":"large","price":150000}]}`
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, authedRequest(http.MethodPost, "/", body, staffIdentity()))

	if rec.Code != http.StatusCreated {
		t.Fatalf("expected 201, got %d (%s)", rec.Code, rec.Body.String())
	}
	if captured.Name != "Latte" || captured.Category != "coffee" {
		t.Fatalf("unexpected command: %+v", captured)
	}
	if captured.BasePrice == nil || *captured.BasePrice != 120000 {
		t.Fatalf("expected base price to be forwarded")
	}
	if len(captured.Sizes) != 2 || captured.Sizes[0].Label != domain.SizeSmall {
		t.Fatalf("expected lowered size labels, got %+v", captured.Sizes)
	}
}

func TestCreateProductRejectsEmptyBody(t *testing.T) {
	router := newProductRouter(&stubCatalogService{})

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, authedRequest(http.MethodPost, "/", "", staffIdentity()))

	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", rec.Code)
	}
}

func TestUpdateProductOmittedSizesStayNil(t *testing.T) {
	var captured services.ProductChanges
	svc := &stubCatalogService{
		updateFn: func(_ context.Context, _ string, changes services.ProductChanges) (domain.Product, error) {
			captured = changes
			return testProduct(), nil
		},
	}
	router := newProductRouter(svc)

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, authedRequest(http.MethodPatch, "/prd_latte", `{"isAvailable":false}`, staffIdentity()))

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d (%s)", rec.Code, rec.Body.String())
	}
	if captured.IsAvailable == nil || *captured.IsAvailable {
		t.Fatalf("expected availability change, got %+v", captured.IsAvailable)
	}
	if captured.Sizes != nil {
		t.Fatalf("omitted sizes must stay nil, got %+v", captured.Sizes)
	}
	if captured.Name != nil || captured.Price != nil {
		t.Fatalf("omitted fields must stay nil: %+v", captured)
	}
}

func TestDeleteProductReturnsNoContent(t *testing.T) {
	var capturedID string
	svc := &stubCatalogService{
		deleteFn: func(_ context.Context, productID string) error {
			capturedID = productID
			return nil
		},
	}
	router := newProductRouter(svc)

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, authedRequest(http.MethodDelete, "/prd_latte", "", staffIdentity()))

	if rec.Code != http.StatusNoContent {
		t.Fatalf("expected 204, got %d", rec.Code)
	}
	if capturedID != "prd_latte" {
		t.Fatalf("unexpected product id %q", capturedID)
	}
}

func TestProductHandlersWithoutService(t *testing.T) {
	router := newProductRouter(nil)

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))

	if rec.Code != http.StatusServiceUnavailable {
		t.Fatalf("expected 503, got %d", rec.Code)
	}
}
