package redis

import (
	"context"
	"fmt"
	"sort"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"

	"storefront-hub/internal/model"
	"storefront-hub/internal/repository"
)

// cartRepository keeps one Redis hash per user. Fields are product ids,
// values are quantities. A quantity that reaches zero removes the field so
// the cart never accumulates dead lines.
type cartRepository struct {
	client *redis.Client
}

func NewCartRepository(client *redis.Client) repository.CartRepository {
	return &cartRepository{client: client}
}

var _ repository.CartRepository = (*cartRepository)(nil)

func cartKey(userID uuid.UUID) string {
	return "cart:" + userID.String()
}

func (r *cartRepository) Add(ctx context.Context, userID, productID uuid.UUID, quantity int) (int, error) {
	key := cartKey(userID)
	field := productID.String()

	total, err := r.client.HIncrBy(ctx, key, field, int64(quantity)).Result()
	if err != nil {
		return 0, err
	}
	if total <= 0 {
		if err := r.client.HDel(ctx, key, field).Err(); err != nil {
			return 0, err
		}
		return 0, nil
	}
	return int(total), nil
}

func (r *cartRepository) SetQuantity(ctx context.Context, userID, productID uuid.UUID, quantity int) error {
	key := cartKey(userID)
	field := productID.String()

	if quantity <= 0 {
		return r.client.HDel(ctx, key, field).Err()
	}
	return r.client.HSet(ctx, key, field, quantity).Err()
}

func (r *cartRepository) Get(ctx context.Context, userID uuid.UUID) ([]model.CartItem, error) {
	entries, err := r.client.HGetAll(ctx, cartKey(userID)).Result()
	if err != nil {
		return nil, err
	}

	items := make([]model.CartItem, 0, len(entries))
	for field, value := range entries {
		productID, parseErr := uuid.Parse(field)
		if parseErr != nil {
			return nil, fmt.Errorf("corrupt cart field %q: %w", field, parseErr)
		}
		var quantity int
		if _, scanErr := fmt.Sscanf(value, "%d", &quantity); scanErr != nil {
			return nil, fmt.Errorf("corrupt cart quantity for %s: %w", field, scanErr)
		}
		items = append(items, model.CartItem{ProductID: productID, Quantity: quantity})
	}

	// HGetAll order is unspecified; sort so responses are stable.
	sort.Slice(items, func(i, j int) bool {
		return items[i].ProductID.String() < items[j].ProductID.String()
	})
	return items, nil
}

func (r *cartRepository) Remove(ctx context.Context, userID uuid.UUID, productIDs []uuid.UUID) error {
	if len(productIDs) == 0 {
		return nil
	}

	fields := make([]string, len(productIDs))
	for i, id := range productIDs {
		fields[i] = id.String()
	}
	return r.client.HDel(ctx, cartKey(userID), fields...).Err()
}

func (r *cartRepository) Clear(ctx context.Context, userID uuid.UUID) error {
	return r.client.Del(ctx, cartKey(userID)).Err()
}
