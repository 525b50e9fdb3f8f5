package repositories

import (
	"context"

	domain "github.com/commedeschamps/Uly-Dala-Coffee/internal/domain"
)

// RepositoryError wraps low-level persistence failures with categorisation used by services.
type RepositoryError interface {
	error
	IsNotFound() bool
	IsConflict() bool
	IsUnavailable() bool
}

// ProductRepository persists menu products.
type ProductRepository interface {
	Insert(ctx context.Context, product domain.Product) error
	Update(ctx context.Context, product domain.Product) error
	Delete(ctx context.Context, productID string) error
	FindByID(ctx context.Context, productID string) (domain.Product, error)
	FindByIDs(ctx context.Context, productIDs []string) (map[string]domain.Product, error)
	List(ctx context.Context, filter ProductListFilter) ([]domain.Product, error)
}

// ProductListFilter narrows product listings.
type ProductListFilter struct {
	Category      string
	OnlyAvailable bool
}

// OrderRepository persists customer orders.
type OrderRepository interface {
	Insert(ctx context.Context, order domain.Order) error
	Update(ctx context.Context, order domain.Order) error
	Delete(ctx context.Context, orderID string) error
	FindByID(ctx context.Context, orderID string) (domain.Order, error)
	List(ctx context.Context, filter OrderListFilter) ([]domain.Order, error)
}

// OrderListFilter narrows order listings. Zero values leave the dimension unfiltered.
type OrderListFilter struct {
	UserID string
	Status domain.OrderStatus
	Limit  int
}

// UserRepository persists customer accounts.
type UserRepository interface {
	Insert(ctx context.Context, account domain.UserAccount) error
	Update(ctx context.Context, account domain.UserAccount) error
	FindByID(ctx context.Context, userID string) (domain.UserAccount, error)
	FindByEmail(ctx context.Context, email string) (domain.UserAccount, error)
	FindByResetToken(ctx context.Context, tokenDigest string) (domain.UserAccount, error)
}

// CounterRepository provides monotonically increasing sequences, e.g. for order numbers.
type CounterRepository interface {
	Next(ctx context.Context, counterID string, step int64) (int64, error)
}

// HealthRepository aggregates dependency probes for readiness reporting.
type HealthRepository interface {
	Collect(ctx context.Context) (domain.SystemHealthReport, error)
}
