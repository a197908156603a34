package wompiwebhook

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/angelmondragon/floristeria-backend/pkg/redis"
)

const guardScope = "webhook:wompi"

// DeliveryGuard marks a transaction id as in flight so concurrent
// redeliveries short-circuit before touching the database.
type DeliveryGuard struct {
	store redis.IdempotencyStore
	ttl   time.Duration
}

func NewDeliveryGuard(store redis.IdempotencyStore, ttl time.Duration) (*DeliveryGuard, error) {
	if store == nil {
		return nil, errors.New("idempotency store is required")
	}
	if ttl < 0 {
		return nil, errors.New("ttl must be non-negative")
	}
	return &DeliveryGuard{store: store, ttl: ttl}, nil
}

// CheckAndMark reports whether transactionID was already marked.
func (g *DeliveryGuard) CheckAndMark(ctx context.Context, transactionID string) (bool, error) {
	if transactionID == "" {
		return false, errors.New("transaction id is required")
	}
	set, err := g.store.SetNX(ctx, g.store.IdempotencyKey(guardScope, transactionID), "1", g.ttl)
	if err != nil {
		return false, fmt.Errorf("set webhook guard: %w", err)
	}
	return !set, nil
}

func (g *DeliveryGuard) Release(ctx context.Context, transactionID string) error {
	if transactionID == "" {
		return errors.New("transaction id is required")
	}
	return g.store.Del(ctx, g.store.IdempotencyKey(guardScope, transactionID))
}
