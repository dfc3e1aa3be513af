package paytmwebhook

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/angelmondragon/paytm-adapter/pkg/redis"
)

// IdempotencyGuard suppresses redelivered notifications for the same order and status.
type IdempotencyGuard struct {
	store redis.IdempotencyStore
	ttl   time.Duration
	scope string
}

func NewIdempotencyGuard(store redis.IdempotencyStore, ttl time.Duration, scope string) (*IdempotencyGuard, error) {
	if store == nil {
		return nil, errors.New("idempotency store is required")
	}
	if ttl < 0 {
		return nil, errors.New("ttl must be non-negative")
	}
	if scope == "" {
		return nil, errors.New("scope is required")
	}
	return &IdempotencyGuard{
		store: store,
		ttl:   ttl,
		scope: scope,
	}, nil
}

// EventKey identifies one notification delivery.
func EventKey(orderID, status string) string {
	return orderID + ":" + status
}

// CheckAndMark reports whether the key was already seen, marking it otherwise.
func (g *IdempotencyGuard) CheckAndMark(ctx context.Context, key string) (bool, error) {
	if key == "" {
		return false, errors.New("event key is required")
	}
	set, err := g.store.SetNX(ctx, g.store.IdempotencyKey(g.scope, key), "1", g.ttl)
	if err != nil {
		return false, fmt.Errorf("set idempotency key: %w", err)
	}
	return !set, nil
}

// Delete releases the key so a redelivery is processed again.
func (g *IdempotencyGuard) Delete(ctx context.Context, key string) error {
	if key == "" {
		return errors.New("event key is required")
	}
	return g.store.Del(ctx, g.store.IdempotencyKey(g.scope, key))
}
