package firestore

import (
	"context"
	"errors"
	"strings"
	"time"

	"cloud.google.com/go/firestore"
	"google.golang.org/api/iterator"

	domain "github.com/commedeschamps/Uly-Dala-Coffee/internal/domain"
	pfirestore "github.com/commedeschamps/Uly-Dala-Coffee/internal/platform/firestore"
	"github.com/commedeschamps/Uly-Dala-Coffee/internal/repositories"
)

const ordersCollection = "orders"

type orderItemDocument struct {
	ProductRef *string `firestore:"productRef,omitempty"`
	Name       string  `firestore:"name"`
	Size       string  `firestore:"size,omitempty"`
	UnitPrice  int64   `firestore:"unitPrice"`
	Quantity   int     `firestore:"quantity"`
}

type orderDocument struct {
	OrderNumber string              `firestore:"orderNumber"`
	UserID      string              `firestore:"userId"`
	Items       []orderItemDocument `firestore:"items"`
	Status      string              `firestore:"status"`
	Priority    bool                `firestore:"priority"`
	Notes       string              `firestore:"notes,omitempty"`
	PickupTime  *time.Time          `firestore:"pickupTime,omitempty"`
	Total       int64               `firestore:"total"`
	CreatedAt   time.Time           `firestore:"createdAt"`
	UpdatedAt   time.Time           `firestore:"updatedAt"`
}

// OrderRepository persists customer orders in Firestore.
type OrderRepository struct {
	provider *pfirestore.Provider
}

// NewOrderRepository constructs a Firestore-backed order repository.
func NewOrderRepository(provider *pfirestore.Provider) (*OrderRepository, error) {
	if provider == nil {
		return nil, errors.New("order repository requires firestore provider")
	}
	return &OrderRepository{provider: provider}, nil
}

// Insert creates the order document. Fails when the id already exists.
func (r *OrderRepository) Insert(ctx context.Context, order domain.Order) error {
	ref, err := r.docRef(ctx, order.ID)
	if err != nil {
		return err
	}
	_, err = ref.Create(ctx, fromDomainOrder(order))
	return pfirestore.WrapError("orders.insert", err)
}

// Update overwrites the order document. Fails when the document is missing.
func (r *OrderRepository) Update(ctx context.Context, order domain.Order) error {
	ref, err := r.docRef(ctx, order.ID)
	if err != nil {
		return err
	}
	doc := fromDomainOrder(order)
	err = r.provider.RunTransaction(ctx, func(ctx context.Context, tx *firestore.Transaction) error {
		if _, err := tx.Get(ref); err != nil {
			return err
		}
		return tx.Set(ref, doc)
	})
	return pfirestore.WrapError("orders.update", err)
}

// Delete removes the order document. Missing documents surface as not found.
func (r *OrderRepository) Delete(ctx context.Context, orderID string) error {
	ref, err := r.docRef(ctx, orderID)
	if err != nil {
		return err
	}
	err = r.provider.RunTransaction(ctx, func(ctx context.Context, tx *firestore.Transaction) error {
		if _, err := tx.Get(ref); err != nil {
			return err
		}
		return tx.Delete(ref)
	})
	return pfirestore.WrapError("orders.delete", err)
}

// FindByID loads a single order by id.
func (r *OrderRepository) FindByID(ctx context.Context, orderID string) (domain.Order, error) {
	ref, err := r.docRef(ctx, orderID)
	if err != nil {
		return domain.Order{}, err
	}
	snap, err := ref.Get(ctx)
	if err != nil {
		return domain.Order{}, pfirestore.WrapError("orders.find", err)
	}

	var doc orderDocument
	if err := snap.DataTo(&doc); err != nil {
		return domain.Order{}, pfirestore.WrapError("orders.decode", err)
	}
	return toDomainOrder(snap.Ref.ID, doc), nil
}

// List returns orders matching the filter, newest first.
func (r *OrderRepository) List(ctx context.Context, filter repositories.OrderListFilter) ([]domain.Order, error) {
	client, err := r.provider.Client(ctx)
	if err != nil {
		return nil, err
	}

	query := client.Collection(ordersCollection).Query
	if userID := strings.TrimSpace(filter.UserID); userID != "" {
		query = query.Where("userId", "==", userID)
	}
	if filter.Status != "" {
		query = query.Where("status", "==", string(filter.Status))
	}
	query = query.OrderBy("createdAt", firestore.Desc)
	if filter.Limit > 0 {
		query = query.Limit(filter.Limit)
	}

	iter := query.Documents(ctx)
	defer iter.Stop()

	var orders []domain.Order
	for {
		snap, err := iter.Next()
		if errors.Is(err, iterator.Done) {
			break
		}
		if err != nil {
			return nil, pfirestore.WrapError("orders.list", err)
		}
		var doc orderDocument
		if err := snap.DataTo(&doc); err != nil {
			return nil, pfirestore.WrapError("orders.decode", err)
		}
		orders = append(orders, toDomainOrder(snap.Ref.ID, doc))
	}
	return orders, nil
}

func (r *OrderRepository) docRef(ctx context.Context, orderID string) (*firestore.DocumentRef, error) {
	if r == nil || r.provider == nil {
		return nil, errors.New("order repository not initialised")
	}
	id := strings.TrimSpace(orderID)
	if id == "" {
		return nil, errors.New("order id is required")
	}
	client, err := r.provider.Client(ctx)
	if err != nil {
		return nil, err
	}
	return client.Collection(ordersCollection).Doc(id), nil
}

func fromDomainOrder(order domain.Order) orderDocument {
	doc := orderDocument{
		OrderNumber: strings.TrimSpace(order.OrderNumber),
		UserID:      strings.TrimSpace(order.UserID),
		Status:      string(order.Status),
		Priority:    order.Priority,
		Notes:       strings.TrimSpace(order.Notes),
		PickupTime:  order.PickupTime,
		Total:       order.Total,
		CreatedAt:   order.CreatedAt,
		UpdatedAt:   order.UpdatedAt,
	}
	for _, item := range order.Items {
		doc.Items = append(doc.Items, orderItemDocument{
			ProductRef: item.ProductRef,
			Name:       item.Name,
			Size:       string(item.Size),
			UnitPrice:  item.UnitPrice,
			Quantity:   item.Quantity,
		})
	}
	return doc
}

func toDomainOrder(id string, doc orderDocument) domain.Order {
	order := domain.Order{
		ID:          id,
		OrderNumber: doc.OrderNumber,
		UserID:      doc.UserID,
		Status:      domain.OrderStatus(doc.Status),
		Priority:    doc.Priority,
		Notes:       doc.Notes,
		PickupTime:  doc.PickupTime,
		Total:       doc.Total,
		CreatedAt:   doc.CreatedAt,
		UpdatedAt:   doc.UpdatedAt,
	}
	for _, item := range doc.Items {
		order.Items = append(order.Items, domain.OrderLineItem{
			ProductRef: item.ProductRef,
			Name:       item.Name,
			Size:       domain.SizeLabel(item.Size),
			UnitPrice:  item.UnitPrice,
			Quantity:   item.Quantity,
		})
	}
	return order
}
