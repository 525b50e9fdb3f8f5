package handlers

import (
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/commedeschamps/Uly-Dala-Coffee/internal/domain"
	"github.com/commedeschamps/Uly-Dala-Coffee/internal/platform/auth"
	"github.com/commedeschamps/Uly-Dala-Coffee/internal/platform/httpx"
	"github.com/commedeschamps/Uly-Dala-Coffee/internal/services"
)

// OrderHandlers exposes the order lifecycle endpoints for authenticated
// customers and staff.
type OrderHandlers struct {
	authn  *auth.Authenticator
	orders services.OrderService
}

// NewOrderHandlers constructs a new OrderHandlers instance.
func NewOrderHandlers(authn *auth.Authenticator, orders services.OrderService) *OrderHandlers {
	return &OrderHandlers{
		authn:  authn,
		orders: orders,
	}
}

// Routes registers the /orders endpoints.
func (h *OrderHandlers) Routes(r chi.Router) {
	if r == nil {
		return
	}
	if h.authn != nil {
		r.Use(h.authn.RequireAuth())
	}
	r.Get("/", h.listOrders)
	r.Post("/", h.createOrder)
	r.Get("/{orderID}", h.getOrder)
	r.Patch("/{orderID}", h.updateOrder)
	r.Delete("/{orderID}", h.deleteOrder)
}

type orderItemRequest struct {
	Product   string `json:"product"`
	Name      string `json:"name"`
	Size      string `json:"size"`
	UnitPrice *int64 `json:"unitPrice"`
	Quantity  int    `json:"quantity"`
}

type createOrderRequest struct {
	Items      []orderItemRequest `json:"items"`
	Notes      string             `json:"notes"`
	PickupTime string             `json:"pickupTime"`
	Priority   bool               `json:"priority"`
}

type updateOrderRequest struct {
	Items      []orderItemRequest `json:"items"`
	Notes      *string            `json:"notes"`
	PickupTime *string            `json:"pickupTime"`
	Priority   *bool              `json:"priority"`
	Status     *string            `json:"status"`
}

func (h *OrderHandlers) listOrders(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	if h.orders == nil {
		httpx.WriteError(ctx, w, httpx.NewError("order_service_unavailable", "order service unavailable", http.StatusServiceUnavailable))
		return
	}
	actor, ok := requireIdentity(w, r)
	if !ok {
		return
	}

	query := r.URL.Query()
	orders, err := h.orders.List(ctx, actor, services.OrderListQuery{
		Status: domain.OrderStatus(strings.ToLower(strings.TrimSpace(query.Get("status")))),
		All:    strings.EqualFold(query.Get("all"), "true"),
	})
	if err != nil {
		writeServiceError(ctx, w, err)
		return
	}

	payloads := make([]orderPayload, 0, len(orders))
	for _, order := range orders {
		payloads = append(payloads, buildOrderPayload(order))
	}
	writeJSONResponse(w, http.StatusOK, orderListResponse{
		Status:  statusSuccess,
		Results: len(payloads),
		Orders:  payloads,
	})
}

func (h *OrderHandlers) createOrder(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	if h.orders == nil {
		httpx.WriteError(ctx, w, httpx.NewError("order_service_unavailable", "order service unavailable", http.StatusServiceUnavailable))
		return
	}
	actor, ok := requireIdentity(w, r)
	if !ok {
		return
	}

	var req createOrderRequest
	if !decodeBody(w, r, &req) {
		return
	}

	var pickup *time.Time
	if raw := strings.TrimSpace(req.PickupTime); raw != "" {
		ts, err := time.Parse(time.RFC3339, raw)
		if err != nil {
			httpx.WriteError(ctx, w, httpx.NewError("invalid_request", "pickupTime must be a valid RFC3339 timestamp", http.StatusBadRequest))
			return
		}
		pickup = &ts
	}

	order, err := h.orders.Create(ctx, services.CreateOrderCommand{
		Actor:      actor,
		Items:      buildItemRequests(req.Items),
		Notes:      req.Notes,
		PickupTime: pickup,
		Priority:   req.Priority,
	})
	if err != nil {
		writeServiceError(ctx, w, err)
		return
	}
	writeJSONResponse(w, http.StatusCreated, orderResponse{Status: statusSuccess, Order: buildOrderPayload(order)})
}

func (h *OrderHandlers) getOrder(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	if h.orders == nil {
		httpx.WriteError(ctx, w, httpx.NewError("order_service_unavailable", "order service unavailable", http.StatusServiceUnavailable))
		return
	}
	actor, ok := requireIdentity(w, r)
	if !ok {
		return
	}

	order, err := h.orders.Get(ctx, actor, strings.TrimSpace(chi.URLParam(r, "orderID")))
	if err != nil {
		writeServiceError(ctx, w, err)
		return
	}
	writeJSONResponse(w, http.StatusOK, orderResponse{Status: statusSuccess, Order: buildOrderPayload(order)})
}

func (h *OrderHandlers) updateOrder(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	if h.orders == nil {
		httpx.WriteError(ctx, w, httpx.NewError("order_service_unavailable", "order service unavailable", http.StatusServiceUnavailable))
		return
	}
	actor, ok := requireIdentity(w, r)
	if !ok {
		return
	}

	var req updateOrderRequest
	if !decodeBody(w, r, &req) {
		return
	}

	changes := services.OrderChanges{
		Notes:    req.Notes,
		Priority: req.Priority,
	}
	if req.Items != nil {
		changes.Items = buildItemRequests(req.Items)
	}
	if req.PickupTime != nil {
		ts, err := time.Parse(time.RFC3339, strings.TrimSpace(*req.PickupTime))
		if err != nil {
			httpx.WriteError(ctx, w, httpx.NewError("invalid_request", "pickupTime must be a valid RFC3339 timestamp", http.StatusBadRequest))
			return
		}
		changes.PickupTime = &ts
	}
	if req.Status != nil {
		status := domain.OrderStatus(strings.ToLower(strings.TrimSpace(*req.Status)))
		changes.Status = &status
	}

	order, err := h.orders.Update(ctx, actor, strings.TrimSpace(chi.URLParam(r, "orderID")), changes)
	if err != nil {
		writeServiceError(ctx, w, err)
		return
	}
	writeJSONResponse(w, http.StatusOK, orderResponse{Status: statusSuccess, Order: buildOrderPayload(order)})
}

func (h *OrderHandlers) deleteOrder(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	if h.orders == nil {
		httpx.WriteError(ctx, w, httpx.NewError("order_service_unavailable", "order service unavailable", http.StatusServiceUnavailable))
		return
	}
	actor, ok := requireIdentity(w, r)
	if !ok {
		return
	}

	if err := h.orders.Delete(ctx, actor, strings.TrimSpace(chi.URLParam(r, "orderID"))); err != nil {
		writeServiceError(ctx, w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func buildItemRequests(items []orderItemRequest) []services.ItemRequest {
	out := make([]services.ItemRequest, 0, len(items))
	for _, item := range items {
		out = append(out, services.ItemRequest{
			ProductID: strings.TrimSpace(item.Product),
			Name:      item.Name,
			Size:      item.Size,
			UnitPrice: item.UnitPrice,
			Quantity:  item.Quantity,
		})
	}
	return out
}
