package clientdata

import (
	"context"
	"fmt"
	"time"

	"github.com/aristath/markowitz/internal/domain"
	"github.com/rs/zerolog"
)

// CachingProvider wraps a price provider with the price history cache.
// Fresh entries are served without calling upstream; when upstream fails a
// stale entry is returned instead of the error.
type CachingProvider struct {
	upstream domain.PriceHistoryProvider
	repo     *Repository
	source   string
	ttl      time.Duration
	log      zerolog.Logger
}

// NewCachingProvider creates a caching provider. source namespaces cache keys
// so tables from different providers never mix.
func NewCachingProvider(upstream domain.PriceHistoryProvider, repo *Repository, source string, ttl time.Duration, log zerolog.Logger) *CachingProvider {
	if ttl <= 0 {
		ttl = TTLPriceHistory
	}
	return &CachingProvider{
		upstream: upstream,
		repo:     repo,
		source:   source,
		ttl:      ttl,
		log:      log.With().Str("component", "price_cache").Str("source", source).Logger(),
	}
}

// Fetch implements domain.PriceHistoryProvider
func (p *CachingProvider) Fetch(ctx context.Context, symbols []string, start, end time.Time) (domain.PriceTable, error) {
	key := CacheKey(p.source, symbols, start, end)

	cached, err := p.repo.GetIfFresh(key)
	if err != nil {
		p.log.Warn().Err(err).Str("key", key).Msg("Failed to read price cache")
	} else if cached != nil {
		p.log.Debug().Str("key", key).Int("rows", cached.Len()).Msg("Price cache hit")
		return *cached, nil
	}

	table, fetchErr := p.upstream.Fetch(ctx, symbols, start, end)
	if fetchErr != nil {
		stale, err := p.repo.Get(key)
		if err == nil && stale != nil {
			p.log.Warn().
				Err(fetchErr).
				Str("key", key).
				Msg("Provider failed, using stale cached prices")
			return *stale, nil
		}
		return domain.PriceTable{}, fmt.Errorf("failed to fetch prices: %w", fetchErr)
	}

	ttl := TTLFor(end, p.repo.now(), p.ttl)
	if err := p.repo.Store(key, table, ttl); err != nil {
		p.log.Warn().Err(err).Str("key", key).Msg("Failed to cache prices")
	} else {
		p.log.Debug().Str("key", key).Dur("ttl", ttl).Msg("Cached prices")
	}

	return table, nil
}
