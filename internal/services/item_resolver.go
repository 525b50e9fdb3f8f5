package services

import (
	"fmt"
	"strings"

	"github.com/commedeschamps/Uly-Dala-Coffee/internal/domain"
)

// resolveLineItems turns requested items into priced lines. Catalog items are
// priced from the product snapshot in resolution order size price, base
// price, flat price; the client-supplied unit price is ignored for them.
// Ad-hoc items must carry their own name and unit price. Input order is
// preserved.
func resolveLineItems(items []ItemRequest, products map[string]domain.Product) ([]domain.OrderLineItem, error) {
	resolved := make([]domain.OrderLineItem, 0, len(items))
	for idx, item := range items {
		quantity := item.Quantity
		if quantity == 0 {
			quantity = 1
		}
		if quantity < 0 {
			return nil, fmt.Errorf("%w: items[%d] quantity must be positive", ErrValidation, idx)
		}
		size := domain.SizeLabel(strings.ToLower(strings.TrimSpace(item.Size)))
		if size == "" {
			size = domain.SizeMedium
		}
		if !domain.ValidSize(size) {
			return nil, fmt.Errorf("%w: items[%d] has unknown size %q", ErrValidation, idx, item.Size)
		}

		if item.ProductID == "" {
			line, err := resolveAdHocItem(idx, item, size, quantity)
			if err != nil {
				return nil, err
			}
			resolved = append(resolved, line)
			continue
		}

		product, ok := products[item.ProductID]
		if !ok {
			return nil, fmt.Errorf("%w: items[%d] references unknown product %q", ErrValidation, idx, item.ProductID)
		}
		if !product.IsAvailable {
			return nil, fmt.Errorf("%w: product %q is currently unavailable", ErrValidation, product.Name)
		}
		unitPrice, err := resolveUnitPrice(product, size)
		if err != nil {
			return nil, fmt.Errorf("%w: items[%d]: %s", ErrValidation, idx, err)
		}
		ref := item.ProductID
		resolved = append(resolved, domain.OrderLineItem{
			ProductRef: &ref,
			Name:       product.Name,
			Size:       size,
			UnitPrice:  unitPrice,
			Quantity:   quantity,
		})
	}
	return resolved, nil
}

func resolveAdHocItem(idx int, item ItemRequest, size domain.SizeLabel, quantity int) (domain.OrderLineItem, error) {
	name := strings.TrimSpace(item.Name)
	if name == "" {
		return domain.OrderLineItem{}, fmt.Errorf("%w: items[%d] requires a name or a product reference", ErrValidation, idx)
	}
	if item.UnitPrice == nil {
		return domain.OrderLineItem{}, fmt.Errorf("%w: items[%d] requires a unit price", ErrValidation, idx)
	}
	if *item.UnitPrice < 0 {
		return domain.OrderLineItem{}, fmt.Errorf("%w: items[%d] unit price must not be negative", ErrValidation, idx)
	}
	return domain.OrderLineItem{
		Name:      name,
		Size:      size,
		UnitPrice: *item.UnitPrice,
		Quantity:  quantity,
	}, nil
}

func resolveUnitPrice(product domain.Product, size domain.SizeLabel) (int64, error) {
	if len(product.Sizes) > 0 {
		for _, candidate := range product.Sizes {
			if candidate.Label == size {
				return candidate.Price, nil
			}
		}
		return 0, fmt.Errorf("product %q is not offered in size %q", product.Name, size)
	}
	if product.BasePrice != nil {
		return *product.BasePrice, nil
	}
	if product.Price != nil {
		return *product.Price, nil
	}
	return 0, fmt.Errorf("product %q has no price configured", product.Name)
}

// requestedProductIDs collects the distinct catalog references out of the
// requested items.
func requestedProductIDs(items []ItemRequest) []string {
	seen := make(map[string]struct{}, len(items))
	ids := make([]string, 0, len(items))
	for _, item := range items {
		if item.ProductID == "" {
			continue
		}
		if _, ok := seen[item.ProductID]; ok {
			continue
		}
		seen[item.ProductID] = struct{}{}
		ids = append(ids, item.ProductID)
	}
	return ids
}
