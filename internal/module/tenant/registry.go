package tenant

import (
	"context"
	"encoding/json"
	"errors"
	"math/rand"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

const cacheKey = "starspay:tenants"

// Registry resolves tenant credentials for inbound routing and outbound calls.
// The underlying set is cached with a bounded TTL so deactivation propagates
// within the configured staleness window; there is no module-level global, the
// registry is injected wherever tenant context is needed.
type Registry struct {
	repo   Repository
	cache  redis.UniversalClient // optional
	ttl    time.Duration
	logger *zap.Logger
}

// NewRegistry creates a new tenant registry. cache may be nil, in which case
// every lookup goes to the repository.
func NewRegistry(repo Repository, cache redis.UniversalClient, ttl time.Duration, logger *zap.Logger) *Registry {
	if ttl <= 0 {
		ttl = time.Minute
	}
	return &Registry{
		repo:   repo,
		cache:  cache,
		ttl:    ttl,
		logger: logger,
	}
}

// Resolve returns the credential for the given tenant id. It distinguishes an
// unknown tenant (ErrTenantNotFound) from a deactivated one (ErrTenantInactive,
// returned alongside the credential so callers can still log context).
func (r *Registry) Resolve(ctx context.Context, id int64) (*BotToken, error) {
	tokens, err := r.load(ctx)
	if err != nil {
		return nil, err
	}
	for _, t := range tokens {
		if t.ID == id {
			if !t.IsActive {
				return t, ErrTenantInactive
			}
			return t, nil
		}
	}
	return nil, ErrTenantNotFound
}

// ListActive returns all active tenant credentials.
func (r *Registry) ListActive(ctx context.Context) ([]*BotToken, error) {
	tokens, err := r.load(ctx)
	if err != nil {
		return nil, err
	}
	active := make([]*BotToken, 0, len(tokens))
	for _, t := range tokens {
		if t.IsActive {
			active = append(active, t)
		}
	}
	return active, nil
}

// PickRandomActive returns a random active credential. The invoice path uses
// it when a payment is not pinned to a specific tenant yet.
func (r *Registry) PickRandomActive(ctx context.Context) (*BotToken, error) {
	active, err := r.ListActive(ctx)
	if err != nil {
		return nil, err
	}
	if len(active) == 0 {
		return nil, ErrNoActiveTenants
	}
	return active[rand.Intn(len(active))], nil
}

// Refresh drops the cached credential set so the next lookup rereads the store.
func (r *Registry) Refresh(ctx context.Context) error {
	if r.cache == nil {
		return nil
	}
	if err := r.cache.Del(ctx, cacheKey).Err(); err != nil && !errors.Is(err, redis.Nil) {
		return err
	}
	return nil
}

// load returns the full credential set, serving from cache when fresh. Cache
// failures degrade to direct repository reads.
func (r *Registry) load(ctx context.Context) ([]*BotToken, error) {
	if r.cache != nil {
		raw, err := r.cache.Get(ctx, cacheKey).Bytes()
		if err == nil {
			var tokens []*BotToken
			if jsonErr := json.Unmarshal(raw, &tokens); jsonErr == nil {
				return tokens, nil
			}
			r.logger.Warn("corrupt tenant cache entry, rereading store")
		} else if !errors.Is(err, redis.Nil) {
			r.logger.Warn("tenant cache read failed", zap.Error(err))
		}
	}

	tokens, err := r.repo.List(ctx)
	if err != nil {
		return nil, err
	}

	if r.cache != nil {
		if raw, err := json.Marshal(tokens); err == nil {
			if err := r.cache.Set(ctx, cacheKey, raw, r.ttl).Err(); err != nil {
				r.logger.Warn("tenant cache write failed", zap.Error(err))
			}
		}
	}
	return tokens, nil
}
