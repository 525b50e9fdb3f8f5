package services

import (
	"context"
	"time"

	"github.com/commedeschamps/Uly-Dala-Coffee/internal/domain"
)

// Actor identifies the authenticated caller on whose behalf a service
// operation runs.
type Actor struct {
	ID   string
	Role domain.Role
}

// ItemRequest is one requested order line before catalog resolution. A
// populated ProductID resolves against the catalog; otherwise Name and
// UnitPrice describe an ad-hoc item.
type ItemRequest struct {
	ProductID string
	Name      string
	Size      string
	UnitPrice *int64
	Quantity  int
}

// CreateOrderCommand carries everything needed to place a new order.
type CreateOrderCommand struct {
	Actor      Actor
	Items      []ItemRequest
	Notes      string
	PickupTime *time.Time
	Priority   bool
}

// OrderChanges is a partial update. Nil fields are left untouched; a nil
// Items slice means the line items stay as they are.
type OrderChanges struct {
	Items      []ItemRequest
	Notes      *string
	PickupTime *time.Time
	Priority   *bool
	Status     *domain.OrderStatus
}

// OrderListQuery filters the order listing. All requests the full book and
// is only honoured for staff callers.
type OrderListQuery struct {
	Status domain.OrderStatus
	All    bool
	Limit  int
}

// OrderService owns the order lifecycle from placement to pickup.
type OrderService interface {
	Create(ctx context.Context, cmd CreateOrderCommand) (domain.Order, error)
	Get(ctx context.Context, actor Actor, orderID string) (domain.Order, error)
	List(ctx context.Context, actor Actor, query OrderListQuery) ([]domain.Order, error)
	Update(ctx context.Context, actor Actor, orderID string, changes OrderChanges) (domain.Order, error)
	Delete(ctx context.Context, actor Actor, orderID string) error
}

// CreateProductCommand describes a new menu entry.
type CreateProductCommand struct {
	Name        string
	Category    string
	Description string
	ImageURL    string
	IsAvailable *bool
	Price       *int64
	BasePrice   *int64
	Sizes       []domain.ProductSize
}

// ProductChanges is a partial product update.
type ProductChanges struct {
	Name        *string
	Category    *string
	Description *string
	ImageURL    *string
	IsAvailable *bool
	Price       *int64
	BasePrice   *int64
	Sizes       []domain.ProductSize
}

// ProductListQuery filters the menu listing.
type ProductListQuery struct {
	Category      string
	OnlyAvailable bool
}

// CatalogService manages the product menu and resolves product references
// for order placement.
type CatalogService interface {
	CreateProduct(ctx context.Context, cmd CreateProductCommand) (domain.Product, error)
	GetProduct(ctx context.Context, productID string) (domain.Product, error)
	ListProducts(ctx context.Context, query ProductListQuery) ([]domain.Product, error)
	UpdateProduct(ctx context.Context, productID string, changes ProductChanges) (domain.Product, error)
	DeleteProduct(ctx context.Context, productID string) error
	ResolveProducts(ctx context.Context, productIDs []string) (map[string]domain.Product, error)
}

// RegisterCommand creates a new account. Role may be empty or one of the
// self-assignable roles.
type RegisterCommand struct {
	Username string
	Email    string
	Password string
	Role     string
}

// Session is the result of a successful authentication.
type Session struct {
	Token   string
	Account domain.UserAccount
}

// AccountService owns registration, login and the password reset flow.
type AccountService interface {
	Register(ctx context.Context, cmd RegisterCommand) (Session, error)
	Login(ctx context.Context, email, password string) (Session, error)
	ForgotPassword(ctx context.Context, email string) error
	ResetPassword(ctx context.Context, token, newPassword string) (Session, error)
	GetProfile(ctx context.Context, userID string) (domain.UserAccount, error)
}

// TokenIssuer mints signed session tokens.
type TokenIssuer interface {
	Issue(userID, email, role string) (string, error)
}

// OrderEventItem is one order line carried on an event, enough for a
// notification to render the receipt without a repository lookup.
type OrderEventItem struct {
	Name      string `json:"name"`
	Size      string `json:"size,omitempty"`
	UnitPrice int64  `json:"unitPrice"`
	Quantity  int    `json:"quantity"`
}

// OrderEvent is published whenever an order is created or changes status.
type OrderEvent struct {
	Type           string           `json:"type"`
	OrderID        string           `json:"orderId"`
	OrderNumber    string           `json:"orderNumber"`
	UserID         string           `json:"userId"`
	Status         string           `json:"status"`
	PreviousStatus string           `json:"previousStatus,omitempty"`
	Items          []OrderEventItem `json:"items,omitempty"`
	Total          int64            `json:"total"`
	PickupTime     *time.Time       `json:"pickupTime,omitempty"`
	RecipientEmail string           `json:"recipientEmail,omitempty"`
	RecipientName  string           `json:"recipientName,omitempty"`
	OccurredAt     time.Time        `json:"occurredAt"`
}

// Order event types.
const (
	OrderEventCreated       = "order.created"
	OrderEventStatusChanged = "order.status_changed"
)

// OrderEventPublisher delivers order events to interested consumers.
// Publishing is best-effort; services log and continue on failure.
type OrderEventPublisher interface {
	PublishOrderEvent(ctx context.Context, event OrderEvent) error
}

// AccountMailer sends account lifecycle mail.
type AccountMailer interface {
	SendWelcome(ctx context.Context, email, username string) error
	SendPasswordReset(ctx context.Context, email, username, resetToken string) error
}
