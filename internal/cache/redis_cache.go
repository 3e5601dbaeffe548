package cache

import (
	"context"
	"encoding/json"
	"time"

	redis "github.com/redis/go-redis/v9"

	"shopcore/backend/internal/domain"
)

const (
	productListKey   = "catalog:products"
	productKeyPrefix = "catalog:product:"
)

type RedisCatalogCache struct {
	client *redis.Client
}

func NewRedisCatalogCache(addr string, password string, db int) *RedisCatalogCache {
	client := redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: password,
		DB:       db,
	})

	return &RedisCatalogCache{client: client}
}

func (c *RedisCatalogCache) Ping(ctx context.Context) error {
	return c.client.Ping(ctx).Err()
}

func (c *RedisCatalogCache) Close() error {
	return c.client.Close()
}

func (c *RedisCatalogCache) GetProductList(ctx context.Context) ([]domain.Product, bool, error) {
	val, err := c.client.Get(ctx, productListKey).Result()
	if err == redis.Nil {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, err
	}

	var products []domain.Product
	if err := json.Unmarshal([]byte(val), &products); err != nil {
		return nil, false, err
	}
	return products, true, nil
}

func (c *RedisCatalogCache) SetProductList(ctx context.Context, products []domain.Product, ttl time.Duration) error {
	payload, err := json.Marshal(products)
	if err != nil {
		return err
	}
	return c.client.Set(ctx, productListKey, payload, ttl).Err()
}

func (c *RedisCatalogCache) GetProduct(ctx context.Context, id string) (*domain.Product, bool, error) {
	val, err := c.client.Get(ctx, productKeyPrefix+id).Result()
	if err == redis.Nil {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, err
	}

	var product domain.Product
	if err := json.Unmarshal([]byte(val), &product); err != nil {
		return nil, false, err
	}
	return &product, true, nil
}

func (c *RedisCatalogCache) SetProduct(ctx context.Context, product *domain.Product, ttl time.Duration) error {
	if product == nil {
		return nil
	}
	payload, err := json.Marshal(product)
	if err != nil {
		return err
	}
	return c.client.Set(ctx, productKeyPrefix+product.ID, payload, ttl).Err()
}

// Invalidate drops the list key and any per-product keys touched by a
// stock mutation.
func (c *RedisCatalogCache) Invalidate(ctx context.Context, productIDs ...string) error {
	keys := make([]string, 0, len(productIDs)+1)
	keys = append(keys, productListKey)
	for _, id := range productIDs {
		keys = append(keys, productKeyPrefix+id)
	}
	return c.client.Del(ctx, keys...).Err()
}
