package idempotency

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
)

var ErrEventIDRequired = errors.New("event id is required")

// claimStore is satisfied by *redis.Client.
type claimStore interface {
	SetNX(context.Context, string, any, time.Duration) (bool, error)
	Del(context.Context, ...string) error
	IdempotencyKey(scope, id string) string
}

// PublishGuard remembers which outbox event IDs a publisher already delivered
// so a row re-fetched after a failed commit is not sent twice.
// Keys follow the `lqa:idempotency:evt:published:<publisher>:<event_id>` pattern.
type PublishGuard struct {
	store     claimStore
	publisher string
	ttl       time.Duration
}

// NewPublishGuard builds a guard for the named publisher.
func NewPublishGuard(store claimStore, publisher string, ttl time.Duration) (*PublishGuard, error) {
	if store == nil {
		return nil, errors.New("idempotency store is required")
	}
	if publisher == "" {
		return nil, errors.New("publisher name is required")
	}
	if ttl < 0 {
		return nil, errors.New("ttl must be non-negative")
	}
	return &PublishGuard{store: store, publisher: publisher, ttl: ttl}, nil
}

// Claim reports true when the caller now owns delivery of eventID, and false
// when an earlier attempt already delivered it.
func (g *PublishGuard) Claim(ctx context.Context, eventID uuid.UUID) (bool, error) {
	key, err := g.key(eventID)
	if err != nil {
		return false, err
	}
	return g.store.SetNX(ctx, key, "1", g.ttl)
}

// Release forgets a claim after a failed publish so the next attempt can retry.
func (g *PublishGuard) Release(ctx context.Context, eventID uuid.UUID) error {
	key, err := g.key(eventID)
	if err != nil {
		return err
	}
	return g.store.Del(ctx, key)
}

func (g *PublishGuard) key(eventID uuid.UUID) (string, error) {
	if eventID == uuid.Nil {
		return "", ErrEventIDRequired
	}
	return g.store.IdempotencyKey("evt:published:"+g.publisher, eventID.String()), nil
}
