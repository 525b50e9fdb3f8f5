package services

import (
	"context"
	"errors"
	"fmt"
	"time"
	"unicode/utf8"

	"github.com/oklog/ulid/v2"

	"github.com/commedeschamps/Uly-Dala-Coffee/internal/domain"
	"github.com/commedeschamps/Uly-Dala-Coffee/internal/platform/config"
	"github.com/commedeschamps/Uly-Dala-Coffee/internal/repositories"
)

const orderNotesMaxLen = 300

// ProductResolver is the slice of the catalog the order service needs.
type ProductResolver interface {
	ResolveProducts(ctx context.Context, productIDs []string) (map[string]domain.Product, error)
}

// OrderServiceDeps wires the order service dependencies. Events and Logger
// are optional; everything else is required.
type OrderServiceDeps struct {
	Orders      repositories.OrderRepository
	Users       repositories.UserRepository
	Counters    repositories.CounterRepository
	Catalog     ProductResolver
	Policy      AccessPolicy
	Statuses    *StatusMachine
	Events      OrderEventPublisher
	Config      config.OrdersConfig
	Clock       func() time.Time
	IDGenerator func() string
	Logger      func(ctx context.Context, event string, fields map[string]any)
}

type orderService struct {
	orders   repositories.OrderRepository
	users    repositories.UserRepository
	counters repositories.CounterRepository
	catalog  ProductResolver
	policy   AccessPolicy
	statuses *StatusMachine
	events   OrderEventPublisher
	cfg      config.OrdersConfig
	clock    func() time.Time
	newID    func() string
	logger   func(ctx context.Context, event string, fields map[string]any)
}

// NewOrderService constructs the order lifecycle service.
func NewOrderService(deps OrderServiceDeps) (OrderService, error) {
	if deps.Orders == nil {
		return nil, errors.New("order service requires an order repository")
	}
	if deps.Users == nil {
		return nil, errors.New("order service requires a user repository")
	}
	if deps.Counters == nil {
		return nil, errors.New("order service requires a counter repository")
	}
	if deps.Catalog == nil {
		return nil, errors.New("order service requires a product resolver")
	}
	if deps.Statuses == nil {
		return nil, errors.New("order service requires a status machine")
	}
	clock := deps.Clock
	if clock == nil {
		clock = time.Now
	}
	newID := deps.IDGenerator
	if newID == nil {
		newID = func() string { return ulid.Make().String() }
	}
	logger := deps.Logger
	if logger == nil {
		logger = func(context.Context, string, map[string]any) {}
	}
	return &orderService{
		orders:   deps.Orders,
		users:    deps.Users,
		counters: deps.Counters,
		catalog:  deps.Catalog,
		policy:   deps.Policy,
		statuses: deps.Statuses,
		events:   deps.Events,
		cfg:      deps.Config,
		clock:    func() time.Time { return clock().UTC() },
		newID:    newID,
		logger:   logger,
	}, nil
}

func (s *orderService) Create(ctx context.Context, cmd CreateOrderCommand) (domain.Order, error) {
	if err := s.policy.AuthorizeCreate(cmd.Actor, cmd.Priority); err != nil {
		return domain.Order{}, err
	}
	if err := s.validateItemRequests(cmd.Items); err != nil {
		return domain.Order{}, err
	}
	notes, err := s.normaliseNotes(cmd.Notes)
	if err != nil {
		return domain.Order{}, err
	}
	now := s.clock()
	if err := validatePickupTime(now, cmd.PickupTime); err != nil {
		return domain.Order{}, err
	}

	products, err := s.catalog.ResolveProducts(ctx, requestedProductIDs(cmd.Items))
	if err != nil {
		return domain.Order{}, err
	}
	items, err := resolveLineItems(cmd.Items, products)
	if err != nil {
		return domain.Order{}, err
	}

	order := domain.Order{
		ID:         "ord_" + s.newID(),
		UserID:     cmd.Actor.ID,
		Items:      items,
		Status:     s.statuses.Initial(),
		Priority:   cmd.Priority,
		Notes:      notes,
		PickupTime: cmd.PickupTime,
		Total:      computeTotal(items),
		CreatedAt:  now,
		UpdatedAt:  now,
	}
	// The counter increment runs in its own transaction inside the
	// repository; a crash before the insert burns a display sequence
	// number, nothing more.
	number, err := s.generateOrderNumber(ctx, now)
	if err != nil {
		return domain.Order{}, mapRepositoryError(err, "order")
	}
	order.OrderNumber = number
	if err := s.orders.Insert(ctx, order); err != nil {
		return domain.Order{}, mapRepositoryError(err, "order")
	}
	s.publishEvent(ctx, OrderEventCreated, order, "")
	return order, nil
}

func (s *orderService) Get(ctx context.Context, actor Actor, orderID string) (domain.Order, error) {
	order, err := s.find(ctx, orderID)
	if err != nil {
		return domain.Order{}, err
	}
	if err := s.policy.AuthorizeRead(actor, order); err != nil {
		return domain.Order{}, err
	}
	return order, nil
}

func (s *orderService) List(ctx context.Context, actor Actor, query OrderListQuery) ([]domain.Order, error) {
	if query.Status != "" && !s.statuses.IsValid(query.Status) {
		return nil, fmt.Errorf("%w: unknown order status %q", ErrValidation, query.Status)
	}
	orders, err := s.orders.List(ctx, repositories.OrderListFilter{
		UserID: s.policy.ListScope(actor, query.All),
		Status: query.Status,
		Limit:  query.Limit,
	})
	if err != nil {
		return nil, mapRepositoryError(err, "orders")
	}
	return orders, nil
}

func (s *orderService) Update(ctx context.Context, actor Actor, orderID string, changes OrderChanges) (domain.Order, error) {
	order, err := s.find(ctx, orderID)
	if err != nil {
		return domain.Order{}, err
	}
	if err := s.policy.AuthorizeUpdate(actor, order, changes); err != nil {
		return domain.Order{}, err
	}
	touchesContent := changes.Items != nil || changes.Notes != nil || changes.PickupTime != nil || changes.Priority != nil
	if touchesContent && s.statuses.IsTerminal(order.Status) {
		return domain.Order{}, fmt.Errorf("%w: order is already %s", ErrConflict, order.Status)
	}

	now := s.clock()
	previousStatus := order.Status
	if changes.Items != nil {
		if err := s.validateItemRequests(changes.Items); err != nil {
			return domain.Order{}, err
		}
		products, err := s.catalog.ResolveProducts(ctx, requestedProductIDs(changes.Items))
		if err != nil {
			return domain.Order{}, err
		}
		items, err := resolveLineItems(changes.Items, products)
		if err != nil {
			return domain.Order{}, err
		}
		order.Items = items
		order.Total = computeTotal(items)
	}
	if changes.Notes != nil {
		notes, err := s.normaliseNotes(*changes.Notes)
		if err != nil {
			return domain.Order{}, err
		}
		order.Notes = notes
	}
	if changes.PickupTime != nil {
		if err := validatePickupTime(now, changes.PickupTime); err != nil {
			return domain.Order{}, err
		}
		order.PickupTime = changes.PickupTime
	}
	if changes.Priority != nil {
		order.Priority = *changes.Priority
	}
	if changes.Status != nil {
		if err := s.statuses.Authorize(s.policy.IsStaff(actor.Role), order.Status, *changes.Status); err != nil {
			return domain.Order{}, err
		}
		order.Status = *changes.Status
	}

	order.UpdatedAt = now
	if err := s.orders.Update(ctx, order); err != nil {
		return domain.Order{}, mapRepositoryError(err, "order")
	}
	if order.Status != previousStatus {
		s.publishEvent(ctx, OrderEventStatusChanged, order, previousStatus)
	}
	return order, nil
}

func (s *orderService) Delete(ctx context.Context, actor Actor, orderID string) error {
	order, err := s.find(ctx, orderID)
	if err != nil {
		return err
	}
	if err := s.policy.AuthorizeDelete(actor, order); err != nil {
		return err
	}
	if err := s.orders.Delete(ctx, order.ID); err != nil {
		return mapRepositoryError(err, "order")
	}
	return nil
}

func (s *orderService) find(ctx context.Context, orderID string) (domain.Order, error) {
	if orderID == "" {
		return domain.Order{}, fmt.Errorf("%w: order id is required", ErrValidation)
	}
	order, err := s.orders.FindByID(ctx, orderID)
	if err != nil {
		return domain.Order{}, mapRepositoryError(err, "order")
	}
	return order, nil
}

func (s *orderService) validateItemRequests(items []ItemRequest) error {
	if len(items) == 0 {
		return fmt.Errorf("%w: order requires at least one item", ErrValidation)
	}
	if len(items) > s.cfg.MaxItems {
		return fmt.Errorf("%w: order may not exceed %d items", ErrValidation, s.cfg.MaxItems)
	}
	for idx, item := range items {
		if item.Quantity > s.cfg.MaxItemQuantity {
			return fmt.Errorf("%w: items[%d] quantity may not exceed %d", ErrValidation, idx, s.cfg.MaxItemQuantity)
		}
	}
	return nil
}

func (s *orderService) normaliseNotes(notes string) (string, error) {
	cleaned := sanitizeText(notes)
	if utf8.RuneCountInString(cleaned) > orderNotesMaxLen {
		return "", fmt.Errorf("%w: notes must not exceed %d characters", ErrValidation, orderNotesMaxLen)
	}
	return cleaned, nil
}

func validatePickupTime(now time.Time, pickup *time.Time) error {
	if pickup == nil {
		return nil
	}
	if pickup.Before(now) {
		return fmt.Errorf("%w: pickup time must be in the future", ErrValidation)
	}
	return nil
}

func (s *orderService) generateOrderNumber(ctx context.Context, now time.Time) (string, error) {
	seq, err := s.counters.Next(ctx, "orders", 1)
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("%s-%04d-%06d", s.cfg.NumberPrefix, now.Year(), seq), nil
}

// publishEvent delivers an order event on a best-effort basis. Failures are
// logged and never surfaced to the caller.
func (s *orderService) publishEvent(ctx context.Context, eventType string, order domain.Order, previous domain.OrderStatus) {
	if s.events == nil {
		return
	}
	items := make([]OrderEventItem, 0, len(order.Items))
	for _, item := range order.Items {
		items = append(items, OrderEventItem{
			Name:      item.Name,
			Size:      string(item.Size),
			UnitPrice: item.UnitPrice,
			Quantity:  item.Quantity,
		})
	}
	event := OrderEvent{
		Type:           eventType,
		OrderID:        order.ID,
		OrderNumber:    order.OrderNumber,
		UserID:         order.UserID,
		Status:         string(order.Status),
		PreviousStatus: string(previous),
		Items:          items,
		Total:          order.Total,
		PickupTime:     order.PickupTime,
		OccurredAt:     s.clock(),
	}
	if account, err := s.users.FindByID(ctx, order.UserID); err != nil {
		s.logger(ctx, "order_event_recipient_lookup_failed", map[string]any{
			"order_id": order.ID,
			"user_id":  order.UserID,
			"error":    err.Error(),
		})
	} else {
		event.RecipientEmail = account.Email
		event.RecipientName = account.Username
	}
	if err := s.events.PublishOrderEvent(ctx, event); err != nil {
		s.logger(ctx, "order_event_publish_failed", map[string]any{
			"order_id": order.ID,
			"type":     eventType,
			"error":    err.Error(),
		})
	}
}

