package redis

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/tmforge/fulfilld/internal/domain"
)

const keyPrefix = "fulfilld:context:"

// ContextStore implements ports.ContextStore using Redis.
type ContextStore struct {
	client *redis.Client
	logger *zap.Logger
	ttl    time.Duration
}

// NewContextStore creates a new Redis context store. Contexts expire after
// ttl; terminal contexts stay readable until then (archived, not removed).
func NewContextStore(client *redis.Client, ttl time.Duration, logger *zap.Logger) *ContextStore {
	return &ContextStore{
		client: client,
		logger: logger,
		ttl:    ttl,
	}
}

// Put persists a context with TTL.
func (s *ContextStore) Put(ctx context.Context, fc *domain.FulfillmentContext) error {
	key := contextKey(fc.OrderID)

	data, err := json.Marshal(fc)
	if err != nil {
		return fmt.Errorf("failed to marshal context: %w", err)
	}

	if err := s.client.Set(ctx, key, data, s.ttl).Err(); err != nil {
		return fmt.Errorf("failed to save context: %w: %v", domain.ErrPersistence, err)
	}

	s.logger.Debug("context saved",
		zap.String("order_id", fc.OrderID.String()),
		zap.String("state", string(fc.State)))

	return nil
}

// Get retrieves the context for an order.
func (s *ContextStore) Get(ctx context.Context, orderID uuid.UUID) (*domain.FulfillmentContext, error) {
	key := contextKey(orderID)

	data, err := s.client.Get(ctx, key).Bytes()
	if err != nil {
		if err == redis.Nil {
			return nil, fmt.Errorf("context for order %s: %w", orderID, domain.ErrNotFound)
		}
		return nil, fmt.Errorf("failed to get context: %w: %v", domain.ErrPersistence, err)
	}

	var fc domain.FulfillmentContext
	if err := json.Unmarshal(data, &fc); err != nil {
		return nil, fmt.Errorf("failed to unmarshal context: %w", err)
	}
	return &fc, nil
}

// List returns the order ids of all stored contexts.
func (s *ContextStore) List(ctx context.Context) ([]uuid.UUID, error) {
	pattern := keyPrefix + "*"

	var cursor uint64
	var keys []string

	for {
		var batch []string
		var err error

		batch, cursor, err = s.client.Scan(ctx, cursor, pattern, 100).Result()
		if err != nil {
			return nil, fmt.Errorf("failed to scan contexts: %w: %v", domain.ErrPersistence, err)
		}

		keys = append(keys, batch...)

		if cursor == 0 {
			break
		}
	}

	orderIDs := make([]uuid.UUID, 0, len(keys))
	for _, key := range keys {
		if len(key) <= len(keyPrefix) {
			continue
		}
		id, err := uuid.Parse(key[len(keyPrefix):])
		if err != nil {
			continue
		}
		orderIDs = append(orderIDs, id)
	}

	return orderIDs, nil
}

// Delete removes the context for an order.
func (s *ContextStore) Delete(ctx context.Context, orderID uuid.UUID) error {
	if err := s.client.Del(ctx, contextKey(orderID)).Err(); err != nil {
		return fmt.Errorf("failed to delete context: %w: %v", domain.ErrPersistence, err)
	}

	s.logger.Debug("context deleted",
		zap.String("order_id", orderID.String()))

	return nil
}

// contextKey returns the Redis key for an order's context.
func contextKey(orderID uuid.UUID) string {
	return keyPrefix + orderID.String()
}
