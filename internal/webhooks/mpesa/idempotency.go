package mpesawebhook

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/angelmondragon/retailops-backend/pkg/redis"
)

// IdempotencyGuard drops callback replays before they reach the database.
// The conditional status update stays the source of truth.
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
	return &IdempotencyGuard{store: store, ttl: ttl, scope: scope}, nil
}

// CheckAndMark reports true when the checkout request was already seen.
func (g *IdempotencyGuard) CheckAndMark(ctx context.Context, checkoutRequestID string) (bool, error) {
	if checkoutRequestID == "" {
		return false, errors.New("checkout request id is required")
	}
	set, err := g.store.SetNX(ctx, g.store.IdempotencyKey(g.scope, checkoutRequestID), "1", g.ttl)
	if err != nil {
		return false, fmt.Errorf("set callback guard: %w", err)
	}
	return !set, nil
}

// Delete releases the guard so a redelivered callback is processed again.
func (g *IdempotencyGuard) Delete(ctx context.Context, checkoutRequestID string) error {
	if checkoutRequestID == "" {
		return errors.New("checkout request id is required")
	}
	return g.store.Del(ctx, g.store.IdempotencyKey(g.scope, checkoutRequestID))
}
