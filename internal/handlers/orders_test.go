package handlers

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/commedeschamps/Uly-Dala-Coffee/internal/domain"
	"github.com/commedeschamps/Uly-Dala-Coffee/internal/platform/auth"
	"github.com/commedeschamps/Uly-Dala-Coffee/internal/services"
)

type stubOrderService struct {
	createFn func(ctx context.Context, cmd services.CreateOrderCommand) (domain.Order, error)
	getFn    func(ctx context.Context, actor services.Actor, orderID string) (domain.Order, error)
	listFn   func(ctx context.Context, actor services.Actor, query services.OrderListQuery) ([]domain.Order, error)
	updateFn func(ctx context.Context, actor services.Actor, orderID string, changes services.OrderChanges) (domain.Order, error)
	deleteFn func(ctx context.Context, actor services.Actor, orderID string) error
}

func (s *stubOrderService) Create(ctx context.Context, cmd services.CreateOrderCommand) (domain.Order, error) {
	if s.createFn == nil {
		return domain.Order{}, nil
	}
	return s.createFn(ctx, cmd)
}

func (s *stubOrderService) Get(ctx context.Context, actor services.Actor, orderID string) (domain.Order, error) {
	if s.getFn == nil {
		return domain.Order{}, nil
	}
	return s.getFn(ctx, actor, orderID)
}

func (s *stubOrderService) List(ctx context.Context, actor services.Actor, query services.OrderListQuery) ([]domain.Order, error) {
	if s.listFn == nil {
		return nil, nil
	}
	return s.listFn(ctx, actor, query)
}

func (s *stubOrderService) Update(ctx context.Context, actor services.Actor, orderID string, changes services.OrderChanges) (domain.Order, error) {
	if s.updateFn == nil {
		return domain.Order{}, nil
	}
	return s.updateFn(ctx, actor, orderID, changes)
}

func (s *stubOrderService) Delete(ctx context.Context, actor services.Actor, orderID string) error {
	if s.deleteFn == nil {
		return nil
	}
	return s.deleteFn(ctx, actor, orderID)
}

func newOrderRouter(svc services.OrderService) chi.Router {
	r := chi.NewRouter()
	NewOrderHandlers(nil, svc).Routes(r)
	return r
}

func authedRequest(method, target, body string, identity *auth.Identity) *http.Request {
	req := httptest.NewRequest(method, target, strings.NewReader(body))
	if identity != nil {
		req = req.WithContext(auth.WithIdentity(req.Context(), identity))
	}
	return req
}

func customerIdentity() *auth.Identity {
	return &auth.Identity{UID: "usr_cust", Email: "aigerim@example.com", Role: auth.RoleUser}
}

func staffIdentity() *auth.Identity {
	return &auth.Identity{UID: "usr_staff", Email: "barista@ulydala.coffee", Role: auth.RoleStaff}
}

func decodeJSONBody(t *testing.T, rec *httptest.ResponseRecorder, dst any) {
	t.Helper()
	if err := json.Unmarshal(rec.Body.Bytes(), dst); err != nil {
		t.Fatalf("decode response: %v (body %q)", err, rec.Body.String())
	}
}

func testOrder() domain.Order {
	productID := "prd_latte"
	pickup := time.Date(2025, 6, 10, 9, 30, 0, 0, time.UTC)
	return domain.Order{
		ID:          "ord_000TEST",
		OrderNumber: "UDC-2025-000042",
		UserID:      "usr_cust",
		Items: []domain.OrderLineItem{
			{ProductRef: &productID, Name: "Latte", Size: domain.SizeMedium, UnitPrice: 150000, Quantity: 2},
			{Name: "Baursak", Size: domain.SizeMedium, UnitPrice: 90000, Quantity: 1},
		},
		Status:     domain.OrderStatusPending,
		Notes:      "no sugar",
		PickupTime: &pickup,
		Total:      390000,
		CreatedAt:  time.Date(2025, 6, 10, 8, 0, 0, 0, time.UTC),
		UpdatedAt:  time.Date(2025, 6, 10, 8, 0, 0, 0, time.UTC),
	}
}

func TestCreateOrderReturnsEnvelope(t *testing.T) {
	var captured services.CreateOrderCommand
	svc := &stubOrderService{
		createFn: func(_ context.Context, cmd services.CreateOrderCommand) (domain.Order, error) {
			captured = cmd
			return testOrder(), nil
		},
	}
	router := newOrderRouter(svc)

	body := `{"items":[{"product":"prd_latte","size":"medium","quantity":2},{"name":"Baursak","unitPrice":90000}],"notes":"no sugar","pickupTime":"2025-06-10T09:30:00Z"}`
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, authedRequest(http.MethodPost, "/", body, customerIdentity()))

	if rec.Code != http.StatusCreated {
		t.Fatalf("expected 201, got %d (%s)", rec.Code, rec.Body.String())
	}
	if captured.Actor.ID != "usr_cust" || captured.Actor.Role != domain.RoleUser {
		t.Fatalf("unexpected actor: %+v", captured.Actor)
	}
	if len(captured.Items) != 2 {
		t.Fatalf("expected 2 item requests, got %d", len(captured.Items))
	}
	if captured.Items[0].ProductID != "prd_latte" || captured.Items[0].Quantity != 2 {
		t.Fatalf("unexpected first item: %+v", captured.Items[0])
	}
	if captured.PickupTime == nil || !captured.PickupTime.Equal(time.Date(2025, 6, 10, 9, 30, 0, 0, time.UTC)) {
		t.Fatalf("unexpected pickup time: %v", captured.PickupTime)
	}

	var resp orderResponse
	decodeJSONBody(t, rec, &resp)
	if resp.Status != "success" {
		t.Fatalf("expected success envelope, got %q", resp.Status)
	}
	if resp.Order.ID != "ord_000TEST" || resp.Order.User != "usr_cust" {
		t.Fatalf("unexpected order payload: %+v", resp.Order)
	}
	if resp.Order.OrderNumber != "UDC-2025-000042" {
		t.Fatalf("unexpected order number %q", resp.Order.OrderNumber)
	}
	if resp.Order.Total != 390000 {
		t.Fatalf("unexpected total %d", resp.Order.Total)
	}
	if resp.Order.Items[0].Product == nil || *resp.Order.Items[0].Product != "prd_latte" {
		t.Fatalf("expected catalog item to keep its product reference")
	}
	if resp.Order.Items[1].Product != nil {
		t.Fatalf("ad-hoc item should not carry a product reference")
	}
}

func TestCreateOrderRejectsBadPickupTime(t *testing.T) {
	router := newOrderRouter(&stubOrderService{})

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, authedRequest(http.MethodPost, "/", `{"items":[{"product":"prd_latte"}],"pickupTime":"tomorrow"}`, customerIdentity()))

	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", rec.Code)
	}
}

func TestCreateOrderRequiresAuthentication(t *testing.T) {
	router := newOrderRouter(&stubOrderService{})

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, authedRequest(http.MethodPost, "/", `{"items":[]}`, nil))

	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401, got %d", rec.Code)
	}
}

func TestListOrdersPassesQuery(t *testing.T) {
	var captured services.OrderListQuery
	svc := &stubOrderService{
		listFn: func(_ context.Context, _ services.Actor, query services.OrderListQuery) ([]domain.Order, error) {
			captured = query
			return []domain.Order{testOrder()}, nil
		},
	}
	router := newOrderRouter(svc)

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, authedRequest(http.MethodGet, "/?status=Ready&all=true", "", staffIdentity()))

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d (%s)", rec.Code, rec.Body.String())
	}
	if captured.Status != domain.OrderStatusReady {
		t.Fatalf("expected lowered status, got %q", captured.Status)
	}
	if !captured.All {
		t.Fatalf("expected all=true to be forwarded")
	}

	var resp orderListResponse
	decodeJSONBody(t, rec, &resp)
	if resp.Results != 1 || len(resp.Orders) != 1 {
		t.Fatalf("unexpected list envelope: results=%d orders=%d", resp.Results, len(resp.Orders))
	}
}

func TestListOrdersEmptyKeepsEnvelope(t *testing.T) {
	router := newOrderRouter(&stubOrderService{})

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, authedRequest(http.MethodGet, "/", "", customerIdentity()))

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	var resp orderListResponse
	decodeJSONBody(t, rec, &resp)
	if resp.Status != "success" || resp.Results != 0 || resp.Orders == nil {
		t.Fatalf("expected empty success list, got %+v", resp)
	}
}

func TestGetOrderMapsServiceErrors(t *testing.T) {
	cases := []struct {
		name string
		err  error
		want int
	}{
		{name: "validation", err: services.ErrValidation, want: http.StatusBadRequest},
		{name: "forbidden", err: services.ErrForbidden, want: http.StatusForbidden},
		{name: "not found", err: services.ErrNotFound, want: http.StatusNotFound},
		{name: "conflict", err: services.ErrConflict, want: http.StatusConflict},
		{name: "unavailable", err: services.ErrUnavailable, want: http.StatusServiceUnavailable},
		{name: "unknown", err: context.DeadlineExceeded, want: http.StatusInternalServerError},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			svc := &stubOrderService{
				getFn: func(_ context.Context, _ services.Actor, _ string) (domain.Order, error) {
					return domain.Order{}, tc.err
				},
			}
			router := newOrderRouter(svc)

			rec := httptest.NewRecorder()
			router.ServeHTTP(rec, authedRequest(http.MethodGet, "/ord_000TEST", "", customerIdentity()))

			if rec.Code != tc.want {
				t.Fatalf("expected %d, got %d", tc.want, rec.Code)
			}
		})
	}
}

func TestUpdateOrderForwardsStatusChange(t *testing.T) {
	var captured services.OrderChanges
	var capturedID string
	svc := &stubOrderService{
		updateFn: func(_ context.Context, _ services.Actor, orderID string, changes services.OrderChanges) (domain.Order, error) {
			capturedID = orderID
			captured = changes
			order := testOrder()
			order.Status = domain.OrderStatusReady
			return order, nil
		},
	}
	router := newOrderRouter(svc)

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, authedRequest(http.MethodPatch, "/ord_000TEST", `{"status":"Ready"}`, staffIdentity()))

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d (%s)", rec.Code, rec.Body.String())
	}
	if capturedID != "ord_000TEST" {
		t.Fatalf("unexpected order id %q", capturedID)
	}
	if captured.Status == nil || *captured.Status != domain.OrderStatusReady {
		t.Fatalf("expected lowered status change, got %+v", captured.Status)
	}
	if captured.Items != nil || captured.Notes != nil || captured.Priority != nil || captured.PickupTime != nil {
		t.Fatalf("absent fields must stay nil: %+v", captured)
	}

	var resp orderResponse
	decodeJSONBody(t, rec, &resp)
	if resp.Order.Status != "ready" {
		t.Fatalf("expected updated status in payload, got %q", resp.Order.Status)
	}
}

func TestUpdateOrderDistinguishesEmptyItems(t *testing.T) {
	var captured services.OrderChanges
	svc := &stubOrderService{
		updateFn: func(_ context.Context, _ services.Actor, _ string, changes services.OrderChanges) (domain.Order, error) {
			captured = changes
			return testOrder(), nil
		},
	}
	router := newOrderRouter(svc)

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, authedRequest(http.MethodPatch, "/ord_000TEST", `{"items":[],"notes":""}`, customerIdentity()))

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	if captured.Items == nil || len(captured.Items) != 0 {
		t.Fatalf("explicit empty items must be forwarded, got %+v", captured.Items)
	}
	if captured.Notes == nil || *captured.Notes != "" {
		t.Fatalf("explicit empty notes must be forwarded, got %+v", captured.Notes)
	}
}

func TestDeleteOrderReturnsNoContent(t *testing.T) {
	var capturedID string
	svc := &stubOrderService{
		deleteFn: func(_ context.Context, _ services.Actor, orderID string) error {
			capturedID = orderID
			return nil
		},
	}
	router := newOrderRouter(svc)

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, authedRequest(http.MethodDelete, "/ord_000TEST", "", customerIdentity()))

	if rec.Code != http.StatusNoContent {
		t.Fatalf("expected 204, got %d", rec.Code)
	}
	if capturedID != "ord_000TEST" {
		t.Fatalf("unexpected order id %q", capturedID)
	}
	if rec.Body.Len() != 0 {
		t.Fatalf("expected empty body, got %q", rec.Body.String())
	}
}

func TestOrderHandlersWithoutService(t *testing.T) {
	router := newOrderRouter(nil)

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, authedRequest(http.MethodGet, "/", "", customerIdentity()))

	if rec.Code != http.StatusServiceUnavailable {
		t.Fatalf("expected 503, got %d", rec.Code)
	}
}
