package marketdata

import (
	"context"
	"time"

	"github.com/wonny/fairvalue/pkg/logger"
	"github.com/wonny/fairvalue/pkg/redis"
)

// CachedProvider keeps fetched snapshots in redis.
// Statements change at most quarterly, so a daily TTL is enough.
type CachedProvider struct {
	next   Provider
	cache  *redis.Cache
	ttl    time.Duration
	logger *logger.Logger
}

// NewCachedProvider wraps next with a redis snapshot cache
func NewCachedProvider(next Provider, cache *redis.Cache, log *logger.Logger) *CachedProvider {
	return &CachedProvider{
		next:   next,
		cache:  cache,
		ttl:    redis.TTLDaily,
		logger: log,
	}
}

// Fetch implements Provider
func (p *CachedProvider) Fetch(ctx context.Context, ticker string) (*Snapshot, error) {
	ticker = NormalizeTicker(ticker)
	key := redis.FinancialsKey(ticker)

	var cached Snapshot
	found, err := p.cache.Get(ctx, key, &cached)
	if err != nil {
		// 캐시 장애는 무시하고 원본 조회
		p.logger.WithError(err).WithTicker(ticker).Warn("Snapshot cache read failed")
	}
	if found {
		return &cached, nil
	}

	snap, err := p.next.Fetch(ctx, ticker)
	if err != nil {
		return nil, err
	}

	if err := p.cache.Set(ctx, key, snap, p.ttl); err != nil {
		p.logger.WithError(err).WithTicker(ticker).Warn("Snapshot cache write failed")
	}

	return snap, nil
}
