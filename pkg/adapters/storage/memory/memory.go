package memory

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"

	"github.com/google/uuid"

	"github.com/tmforge/fulfilld/internal/domain"
)

// ContextStore implements ports.ContextStore using an in-memory map.
// This is for testing purposes only.
type ContextStore struct {
	contexts map[uuid.UUID][]byte
	mu       sync.RWMutex
}

// NewContextStore creates a new in-memory context store.
func NewContextStore() *ContextStore {
	return &ContextStore{
		contexts: make(map[uuid.UUID][]byte),
	}
}

// Put persists a context. The value is stored serialized so callers always
// read an independent copy, matching the behavior of the Redis store.
func (s *ContextStore) Put(ctx context.Context, fc *domain.FulfillmentContext) error {
	data, err := json.Marshal(fc)
	if err != nil {
		return fmt.Errorf("failed to marshal context: %w", err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	s.contexts[fc.OrderID] = data
	return nil
}

// Get retrieves the context for an order.
func (s *ContextStore) Get(ctx context.Context, orderID uuid.UUID) (*domain.FulfillmentContext, error) {
	s.mu.RLock()
	data, ok := s.contexts[orderID]
	s.mu.RUnlock()

	if !ok {
		return nil, fmt.Errorf("context for order %s: %w", orderID, domain.ErrNotFound)
	}

	var fc domain.FulfillmentContext
	if err := json.Unmarshal(data, &fc); err != nil {
		return nil, fmt.Errorf("failed to unmarshal context: %w", err)
	}
	return &fc, nil
}

// List returns all stored order ids.
func (s *ContextStore) List(ctx context.Context) ([]uuid.UUID, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	orderIDs := make([]uuid.UUID, 0, len(s.contexts))
	for id := range s.contexts {
		orderIDs = append(orderIDs, id)
	}
	return orderIDs, nil
}

// Delete removes the context for an order.
func (s *ContextStore) Delete(ctx context.Context, orderID uuid.UUID) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	delete(s.contexts, orderID)
	return nil
}
