package cache

import (
	"context"
	"time"

	"shopcore/backend/internal/domain"
)

// CatalogCache fronts product reads. Stock-mutating operations must call
// Invalidate so cached stock levels never outlive a sale.
type CatalogCache interface {
	GetProductList(ctx context.Context) ([]domain.Product, bool, error)
	SetProductList(ctx context.Context, products []domain.Product, ttl time.Duration) error
	GetProduct(ctx context.Context, id string) (*domain.Product, bool, error)
	SetProduct(ctx context.Context, product *domain.Product, ttl time.Duration) error
	Invalidate(ctx context.Context, productIDs ...string) error
}

type NoopCatalogCache struct{}

func (NoopCatalogCache) GetProductList(_ context.Context) ([]domain.Product, bool, error) {
	return nil, false, nil
}

func (NoopCatalogCache) SetProductList(_ context.Context, _ []domain.Product, _ time.Duration) error {
	return nil
}

func (NoopCatalogCache) GetProduct(_ context.Context, _ string) (*domain.Product, bool, error) {
	return nil, false, nil
}

func (NoopCatalogCache) SetProduct(_ context.Context, _ *domain.Product, _ time.Duration) error {
	return nil
}

func (NoopCatalogCache) Invalidate(_ context.Context, _ ...string) error {
	return nil
}
