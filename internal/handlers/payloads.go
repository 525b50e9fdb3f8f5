package handlers

import (
	"strings"

	"github.com/commedeschamps/Uly-Dala-Coffee/internal/domain"
)

// The success envelope and field names mirror the public API contract the
// storefront already consumes.

type orderItemPayload struct {
	Product   *string `json:"product,omitempty"`
	Name      string  `json:"name"`
	Size      string  `json:"size"`
	UnitPrice int64   `json:"unitPrice"`
	Quantity  int     `json:"quantity"`
}

type orderPayload struct {
	ID          string             `json:"_id"`
	OrderNumber string             `json:"orderNumber"`
	User        string             `json:"user"`
	Items       []orderItemPayload `json:"items"`
	Status      string             `json:"status"`
	Priority    bool               `json:"priority"`
	Notes       string             `json:"notes,omitempty"`
	PickupTime  string             `json:"pickupTime,omitempty"`
	Total       int64              `json:"total"`
	CreatedAt   string             `json:"createdAt"`
	UpdatedAt   string             `json:"updatedAt"`
}

type orderResponse struct {
	Status string       `json:"status"`
	Order  orderPayload `json:"order"`
}

type orderListResponse struct {
	Status  string         `json:"status"`
	Results int            `json:"results"`
	Orders  []orderPayload `json:"orders"`
}

func buildOrderPayload(order domain.Order) orderPayload {
	items := make([]orderItemPayload, 0, len(order.Items))
	for _, item := range order.Items {
		payload := orderItemPayload{
			Name:      item.Name,
			Size:      string(item.Size),
			UnitPrice: item.UnitPrice,
			Quantity:  item.Quantity,
		}
		if item.ProductRef != nil {
			ref := *item.ProductRef
			payload.Product = &ref
		}
		items = append(items, payload)
	}
	payload := orderPayload{
		ID:          order.ID,
		OrderNumber: order.OrderNumber,
		User:        order.UserID,
		Items:       items,
		Status:      string(order.Status),
		Priority:    order.Priority,
		Notes:       order.Notes,
		Total:       order.Total,
		CreatedAt:   formatTime(order.CreatedAt),
		UpdatedAt:   formatTime(order.UpdatedAt),
	}
	if order.PickupTime != nil {
		payload.PickupTime = formatTime(*order.PickupTime)
	}
	return payload
}

type productSizePayload struct {
	Label string `json:"label"`
	Price int64  `json:"price"`
}

type productPayload struct {
	ID          string               `json:"_id"`
	Name        string               `json:"name"`
	Category    string               `json:"category"`
	Description string               `json:"description,omitempty"`
	ImageURL    string               `json:"imageUrl,omitempty"`
	IsAvailable bool                 `json:"isAvailable"`
	Price       *int64               `json:"price,omitempty"`
	BasePrice   *int64               `json:"basePrice,omitempty"`
	Sizes       []productSizePayload `json:"sizes,omitempty"`
	CreatedAt   string               `json:"createdAt"`
	UpdatedAt   string               `json:"updatedAt"`
}

type productResponse struct {
	Status  string         `json:"status"`
	Product productPayload `json:"product"`
}

type productListResponse struct {
	Status   string           `json:"status"`
	Results  int              `json:"results"`
	Products []productPayload `json:"products"`
}

func buildProductPayload(product domain.Product) productPayload {
	sizes := make([]productSizePayload, 0, len(product.Sizes))
	for _, size := range product.Sizes {
		sizes = append(sizes, productSizePayload{Label: string(size.Label), Price: size.Price})
	}
	if len(sizes) == 0 {
		sizes = nil
	}
	return productPayload{
		ID:          product.ID,
		Name:        product.Name,
		Category:    product.Category,
		Description: product.Description,
		ImageURL:    product.ImageURL,
		IsAvailable: product.IsAvailable,
		Price:       product.Price,
		BasePrice:   product.BasePrice,
		Sizes:       sizes,
		CreatedAt:   formatTime(product.CreatedAt),
		UpdatedAt:   formatTime(product.UpdatedAt),
	}
}

type userPayload struct {
	ID        string `json:"_id"`
	Username  string `json:"username"`
	Email     string `json:"email"`
	Role      string `json:"role"`
	CreatedAt string `json:"createdAt"`
}

type sessionResponse struct {
	Status string      `json:"status"`
	Token  string      `json:"token"`
	User   userPayload `json:"user"`
}

type userResponse struct {
	Status string      `json:"status"`
	User   userPayload `json:"user"`
}

type messageResponse struct {
	Status  string `json:"status"`
	Message string `json:"message"`
}

// buildUserPayload strips credential material from the account record.
func buildUserPayload(account domain.UserAccount) userPayload {
	return userPayload{
		ID:        account.ID,
		Username:  account.Username,
		Email:     strings.ToLower(account.Email),
		Role:      string(account.Role),
		CreatedAt: formatTime(account.CreatedAt),
	}
}

const statusSuccess = "success"
