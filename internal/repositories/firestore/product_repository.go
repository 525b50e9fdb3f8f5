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

const productsCollection = "products"

type productSizeDocument struct {
	Label string `firestore:"label"`
	Price int64  `firestore:"price"`
}

type productDocument struct {
	Name        string                `firestore:"name"`
	Category    string                `firestore:"category"`
	Description string                `firestore:"description,omitempty"`
	ImageURL    string                `firestore:"imageUrl,omitempty"`
	IsAvailable bool                  `firestore:"isAvailable"`
	Price       *int64                `firestore:"price,omitempty"`
	BasePrice   *int64                `firestore:"basePrice,omitempty"`
	Sizes       []productSizeDocument `firestore:"sizes,omitempty"`
	CreatedAt   time.Time             `firestore:"createdAt"`
	UpdatedAt   time.Time             `firestore:"updatedAt"`
}

// ProductRepository persists menu products in Firestore.
type ProductRepository struct {
	provider *pfirestore.Provider
}

// NewProductRepository constructs a Firestore-backed product repository.
func NewProductRepository(provider *pfirestore.Provider) (*ProductRepository, error) {
	if provider == nil {
		return nil, errors.New("product repository requires firestore provider")
	}
	return &ProductRepository{provider: provider}, nil
}

// Insert creates the product document. Fails when the id already exists.
func (r *ProductRepository) Insert(ctx context.Context, product domain.Product) error {
	ref, err := r.docRef(ctx, product.ID)
	if err != nil {
		return err
	}
	_, err = ref.Create(ctx, fromDomainProduct(product))
	return pfirestore.WrapError("products.insert", err)
}

// Update overwrites the product document. Fails when the document is missing.
func (r *ProductRepository) Update(ctx context.Context, product domain.Product) error {
	ref, err := r.docRef(ctx, product.ID)
	if err != nil {
		return err
	}
	doc := fromDomainProduct(product)
	err = r.provider.RunTransaction(ctx, func(ctx context.Context, tx *firestore.Transaction) error {
		if _, err := tx.Get(ref); err != nil {
			return err
		}
		return tx.Set(ref, doc)
	})
	return pfirestore.WrapError("products.update", err)
}

// Delete removes the product document. Missing documents surface as not found.
func (r *ProductRepository) Delete(ctx context.Context, productID string) error {
	ref, err := r.docRef(ctx, productID)
	if err != nil {
		return err
	}
	err = r.provider.RunTransaction(ctx, func(ctx context.Context, tx *firestore.Transaction) error {
		if _, err := tx.Get(ref); err != nil {
			return err
		}
		return tx.Delete(ref)
	})
	return pfirestore.WrapError("products.delete", err)
}

// FindByID loads a single product by id.
func (r *ProductRepository) FindByID(ctx context.Context, productID string) (domain.Product, error) {
	ref, err := r.docRef(ctx, productID)
	if err != nil {
		return domain.Product{}, err
	}
	snap, err := ref.Get(ctx)
	if err != nil {
		return domain.Product{}, pfirestore.WrapError("products.find", err)
	}

	var doc productDocument
	if err := snap.DataTo(&doc); err != nil {
		return domain.Product{}, pfirestore.WrapError("products.decode", err)
	}
	return toDomainProduct(snap.Ref.ID, doc), nil
}

// FindByIDs loads the requested products keyed by id. Missing ids are simply absent from the result.
func (r *ProductRepository) FindByIDs(ctx context.Context, productIDs []string) (map[string]domain.Product, error) {
	out := make(map[string]domain.Product, len(productIDs))
	if len(productIDs) == 0 {
		return out, nil
	}

	client, err := r.provider.Client(ctx)
	if err != nil {
		return nil, err
	}

	refs := make([]*firestore.DocumentRef, 0, len(productIDs))
	for _, id := range productIDs {
		id = strings.TrimSpace(id)
		if id == "" {
			continue
		}
		refs = append(refs, client.Collection(productsCollection).Doc(id))
	}

	snaps, err := client.GetAll(ctx, refs)
	if err != nil {
		return nil, pfirestore.WrapError("products.find_batch", err)
	}

	for _, snap := range snaps {
		if !snap.Exists() {
			continue
		}
		var doc productDocument
		if err := snap.DataTo(&doc); err != nil {
			return nil, pfirestore.WrapError("products.decode", err)
		}
		out[snap.Ref.ID] = toDomainProduct(snap.Ref.ID, doc)
	}
	return out, nil
}

// List returns products matching the filter, newest first.
func (r *ProductRepository) List(ctx context.Context, filter repositories.ProductListFilter) ([]domain.Product, error) {
	client, err := r.provider.Client(ctx)
	if err != nil {
		return nil, err
	}

	query := client.Collection(productsCollection).Query
	if category := strings.TrimSpace(filter.Category); category != "" {
		query = query.Where("category", "==", category)
	}
	if filter.OnlyAvailable {
		query = query.Where("isAvailable", "==", true)
	}
	query = query.OrderBy("createdAt", firestore.Desc)

	iter := query.Documents(ctx)
	defer iter.Stop()

	var products []domain.Product
	for {
		snap, err := iter.Next()
		if errors.Is(err, iterator.Done) {
			break
		}
		if err != nil {
			return nil, pfirestore.WrapError("products.list", err)
		}
		var doc productDocument
		if err := snap.DataTo(&doc); err != nil {
			return nil, pfirestore.WrapError("products.decode", err)
		}
		products = append(products, toDomainProduct(snap.Ref.ID, doc))
	}
	return products, nil
}

func (r *ProductRepository) docRef(ctx context.Context, productID string) (*firestore.DocumentRef, error) {
	if r == nil || r.provider == nil {
		return nil, errors.New("product repository not initialised")
	}
	id := strings.TrimSpace(productID)
	if id == "" {
		return nil, errors.New("product id is required")
	}
	client, err := r.provider.Client(ctx)
	if err != nil {
		return nil, err
	}
	return client.Collection(productsCollection).Doc(id), nil
}

func fromDomainProduct(product domain.Product) productDocument {
	doc := productDocument{
		Name:        strings.TrimSpace(product.Name),
		Category:    strings.TrimSpace(product.Category),
		Description: strings.TrimSpace(product.Description),
		ImageURL:    strings.TrimSpace(product.ImageURL),
		IsAvailable: product.IsAvailable,
		Price:       product.Price,
		BasePrice:   product.BasePrice,
		CreatedAt:   product.CreatedAt,
		UpdatedAt:   product.UpdatedAt,
	}
	for _, size := range product.Sizes {
		doc.Sizes = append(doc.Sizes, productSizeDocument{
			Label: string(size.Label),
			Price: size.Price,
		})
	}
	return doc
}

func toDomainProduct(id string, doc productDocument) domain.Product {
	product := domain.Product{
		ID:          id,
		Name:        doc.Name,
		Category:    doc.Category,
		Description: doc.Description,
		ImageURL:    doc.ImageURL,
		IsAvailable: doc.IsAvailable,
		Price:       doc.Price,
		BasePrice:   doc.BasePrice,
		CreatedAt:   doc.CreatedAt,
		UpdatedAt:   doc.UpdatedAt,
	}
	for _, size := range doc.Sizes {
		product.Sizes = append(product.Sizes, domain.ProductSize{
			Label: domain.SizeLabel(size.Label),
			Price: size.Price,
		})
	}
	return product
}
