package services

import (
	"context"
	"errors"
	"fmt"
	"time"
	"unicode/utf8"

	"github.com/oklog/ulid/v2"

	"github.com/commedeschamps/Uly-Dala-Coffee/internal/domain"
	"github.com/commedeschamps/Uly-Dala-Coffee/internal/repositories"
)

const (
	productNameMinLen        = 2
	productNameMaxLen        = 80
	productCategoryMaxLen    = 40
	productDescriptionMaxLen = 300
)

// CatalogServiceDeps wires the catalog service dependencies.
type CatalogServiceDeps struct {
	Products    repositories.ProductRepository
	Clock       func() time.Time
	IDGenerator func() string
}

type catalogService struct {
	products repositories.ProductRepository
	clock    func() time.Time
	newID    func() string
}

// NewCatalogService constructs the menu management service.
func NewCatalogService(deps CatalogServiceDeps) (CatalogService, error) {
	if deps.Products == nil {
		return nil, errors.New("catalog service requires a product repository")
	}
	clock := deps.Clock
	if clock == nil {
		clock = time.Now
	}
	newID := deps.IDGenerator
	if newID == nil {
		newID = func() string { return ulid.Make().String() }
	}
	return &catalogService{
		products: deps.Products,
		clock:    func() time.Time { return clock().UTC() },
		newID:    newID,
	}, nil
}

func (s *catalogService) CreateProduct(ctx context.Context, cmd CreateProductCommand) (domain.Product, error) {
	now := s.clock()
	product := domain.Product{
		ID:          "prd_" + s.newID(),
		Name:        sanitizeText(cmd.Name),
		Category:    sanitizeText(cmd.Category),
		Description: sanitizeText(cmd.Description),
		ImageURL:    sanitizeText(cmd.ImageURL),
		IsAvailable: true,
		Price:       cmd.Price,
		BasePrice:   cmd.BasePrice,
		Sizes:       cloneSizes(cmd.Sizes),
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	if cmd.IsAvailable != nil {
		product.IsAvailable = *cmd.IsAvailable
	}
	if err := validateProduct(product); err != nil {
		return domain.Product{}, err
	}
	if err := s.products.Insert(ctx, product); err != nil {
		return domain.Product{}, mapRepositoryError(err, "product")
	}
	return product, nil
}

func (s *catalogService) GetProduct(ctx context.Context, productID string) (domain.Product, error) {
	if productID == "" {
		return domain.Product{}, fmt.Errorf("%w: product id is required", ErrValidation)
	}
	product, err := s.products.FindByID(ctx, productID)
	if err != nil {
		return domain.Product{}, mapRepositoryError(err, "product")
	}
	return product, nil
}

func (s *catalogService) ListProducts(ctx context.Context, query ProductListQuery) ([]domain.Product, error) {
	products, err := s.products.List(ctx, repositories.ProductListFilter{
		Category:      sanitizeText(query.Category),
		OnlyAvailable: query.OnlyAvailable,
	})
	if err != nil {
		return nil, mapRepositoryError(err, "products")
	}
	return products, nil
}

func (s *catalogService) UpdateProduct(ctx context.Context, productID string, changes ProductChanges) (domain.Product, error) {
	if productID == "" {
		return domain.Product{}, fmt.Errorf("%w: product id is required", ErrValidation)
	}
	product, err := s.products.FindByID(ctx, productID)
	if err != nil {
		return domain.Product{}, mapRepositoryError(err, "product")
	}
	if changes.Name != nil {
		product.Name = sanitizeText(*changes.Name)
	}
	if changes.Category != nil {
		product.Category = sanitizeText(*changes.Category)
	}
	if changes.Description != nil {
		product.Description = sanitizeText(*changes.Description)
	}
	if changes.ImageURL != nil {
		product.ImageURL = sanitizeText(*changes.ImageURL)
	}
	if changes.IsAvailable != nil {
		product.IsAvailable = *changes.IsAvailable
	}
	if changes.Price != nil {
		product.Price = changes.Price
	}
	if changes.BasePrice != nil {
		product.BasePrice = changes.BasePrice
	}
	if changes.Sizes != nil {
		product.Sizes = cloneSizes(changes.Sizes)
	}
	product.UpdatedAt = s.clock()
	if err := validateProduct(product); err != nil {
		return domain.Product{}, err
	}
	if err := s.products.Update(ctx, product); err != nil {
		return domain.Product{}, mapRepositoryError(err, "product")
	}
	return product, nil
}

func (s *catalogService) DeleteProduct(ctx context.Context, productID string) error {
	if productID == "" {
		return fmt.Errorf("%w: product id is required", ErrValidation)
	}
	if err := s.products.Delete(ctx, productID); err != nil {
		return mapRepositoryError(err, "product")
	}
	return nil
}

func (s *catalogService) ResolveProducts(ctx context.Context, productIDs []string) (map[string]domain.Product, error) {
	if len(productIDs) == 0 {
		return map[string]domain.Product{}, nil
	}
	products, err := s.products.FindByIDs(ctx, productIDs)
	if err != nil {
		return nil, mapRepositoryError(err, "products")
	}
	return products, nil
}

func validateProduct(product domain.Product) error {
	nameLen := utf8.RuneCountInString(product.Name)
	if nameLen < productNameMinLen || nameLen > productNameMaxLen {
		return fmt.Errorf("%w: product name must be between %d and %d characters", ErrValidation, productNameMinLen, productNameMaxLen)
	}
	if product.Category == "" {
		return fmt.Errorf("%w: product category is required", ErrValidation)
	}
	if utf8.RuneCountInString(product.Category) > productCategoryMaxLen {
		return fmt.Errorf("%w: product category must not exceed %d characters", ErrValidation, productCategoryMaxLen)
	}
	if utf8.RuneCountInString(product.Description) > productDescriptionMaxLen {
		return fmt.Errorf("%w: product description must not exceed %d characters", ErrValidation, productDescriptionMaxLen)
	}
	if product.Price != nil && *product.Price < 0 {
		return fmt.Errorf("%w: product price must not be negative", ErrValidation)
	}
	if product.BasePrice != nil && *product.BasePrice < 0 {
		return fmt.Errorf("%w: product base price must not be negative", ErrValidation)
	}
	seen := make(map[domain.SizeLabel]struct{}, len(product.Sizes))
	for _, size := range product.Sizes {
		if !domain.ValidSize(size.Label) {
			return fmt.Errorf("%w: unknown product size %q", ErrValidation, size.Label)
		}
		if _, dup := seen[size.Label]; dup {
			return fmt.Errorf("%w: duplicate product size %q", ErrValidation, size.Label)
		}
		seen[size.Label] = struct{}{}
		if size.Price < 0 {
			return fmt.Errorf("%w: price for size %q must not be negative", ErrValidation, size.Label)
		}
	}
	if !product.HasPrice() {
		return fmt.Errorf("%w: product requires a price, a base price or at least one size", ErrValidation)
	}
	return nil
}

func cloneSizes(sizes []domain.ProductSize) []domain.ProductSize {
	if sizes == nil {
		return nil
	}
	cloned := make([]domain.ProductSize, len(sizes))
	copy(cloned, sizes)
	return cloned
}
