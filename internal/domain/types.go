package domain

import (
	"time"
)

// Role enumerates the closed set of account roles recognised by the platform.
type Role string

const (
	// RoleUser is the default role assigned to newly registered customers.
	RoleUser Role = "user"
	// RolePremium marks customers with elevated ordering privileges.
	RolePremium Role = "premium"
	// RoleStaff marks fulfillment staff working the counter.
	RoleStaff Role = "staff"
	// RoleAdmin marks administrators with unrestricted access.
	RoleAdmin Role = "admin"
)

// SizeLabel enumerates the drink sizes a product may be offered in.
type SizeLabel string

const (
	// SizeSmall is the smallest serving size.
	SizeSmall SizeLabel = "small"
	// SizeMedium is the default serving size.
	SizeMedium SizeLabel = "medium"
	// SizeLarge is the largest serving size.
	SizeLarge SizeLabel = "large"
)

// ValidSize reports whether the label belongs to the size enum.
func ValidSize(label SizeLabel) bool {
	switch label {
	case SizeSmall, SizeMedium, SizeLarge:
		return true
	}
	return false
}

// ProductSize pairs a size label with its price in minor currency units.
type ProductSize struct {
	Label SizeLabel
	Price int64
}

// Product describes a single menu entry. Pricing is resolved in order of
// matched size price, base price, then flat price.
type Product struct {
	ID          string
	Name        string
	Category    string
	Description string
	ImageURL    string
	IsAvailable bool
	Price       *int64
	BasePrice   *int64
	Sizes       []ProductSize
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

// HasPrice reports whether the product carries at least one way to resolve a
// unit price.
func (p Product) HasPrice() bool {
	return p.Price != nil || p.BasePrice != nil || len(p.Sizes) > 0
}

// OrderStatus enumerates valid lifecycle states for orders.
type OrderStatus string

const (
	// OrderStatusPending indicates the order has been placed but not paid.
	OrderStatusPending OrderStatus = "pending"
	// OrderStatusPaid indicates payment has been taken at the counter.
	OrderStatusPaid OrderStatus = "paid"
	// OrderStatusInProgress indicates baristas are preparing the order.
	OrderStatusInProgress OrderStatus = "in_progress"
	// OrderStatusReady indicates the order is ready for pickup.
	OrderStatusReady OrderStatus = "ready"
	// OrderStatusCompleted indicates the order has been handed over.
	OrderStatusCompleted OrderStatus = "completed"
	// OrderStatusCancelled indicates the order was cancelled before completion.
	OrderStatusCancelled OrderStatus = "cancelled"
)

// OrderLineItem is a priced line embedded in an order. ProductRef is nil for
// ad-hoc items supplied without a catalog reference. The unit price is a
// snapshot taken at resolution time and is never recomputed from the live
// catalog.
type OrderLineItem struct {
	ProductRef *string
	Name       string
	Size       SizeLabel
	UnitPrice  int64
	Quantity   int
}

// LineTotal returns the line contribution to the order total.
func (i OrderLineItem) LineTotal() int64 {
	return i.UnitPrice * int64(i.Quantity)
}

// Order captures an order header with its embedded line items.
type Order struct {
	ID          string
	OrderNumber string
	UserID      string
	Items       []OrderLineItem
	Status      OrderStatus
	Priority    bool
	Notes       string
	PickupTime  *time.Time
	Total       int64
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

// UserAccount stores the credential and profile record for a customer or
// staff member. PasswordHash and the reset token fields never leave the
// repository layer.
type UserAccount struct {
	ID                   string
	Username             string
	Email                string
	PasswordHash         string
	Role                 Role
	PasswordResetToken   string
	PasswordResetExpires *time.Time
	CreatedAt            time.Time
	UpdatedAt            time.Time
}
