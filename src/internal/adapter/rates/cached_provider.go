package rates

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/api-sage/banking-ledger/src/internal/domain"
	"github.com/api-sage/banking-ledger/src/internal/observability"
	"github.com/shopspring/decimal"
	"golang.org/x/sync/singleflight"
)

var _ domain.ExchangeRateProvider = (*CachedProvider)(nil)

type cachedRate struct {
	rate      decimal.Decimal
	expiresAt time.Time
}

// CachedProvider keeps resolved rates for ttl and collapses concurrent
// lookups for the same missing codes into one upstream call. Codes the
// upstream could not resolve are not cached.
type CachedProvider struct {
	next  domain.ExchangeRateProvider
	ttl   time.Duration
	now   func() time.Time
	group singleflight.Group

	mu    sync.RWMutex
	rates map[string]cachedRate
}

func NewCachedProvider(next domain.ExchangeRateProvider, ttl time.Duration) *CachedProvider {
	return &CachedProvider{
		next:  next,
		ttl:   ttl,
		now:   time.Now,
		rates: make(map[string]cachedRate),
	}
}

func (p *CachedProvider) FetchRates(ctx context.Context, currencyCodes []string) (map[string]decimal.Decimal, error) {
	out, missing := p.lookup(currencyCodes)
	if len(missing) == 0 {
		observability.RecordRateFetch("cache", observability.OutcomeSuccess)
		return out, nil
	}

	sort.Strings(missing)
	key := strings.Join(missing, ",")

	// The shared fetch outlives any one caller; each caller still stops
	// waiting when its own context ends.
	fetchCtx := context.WithoutCancel(ctx)
	results := p.group.DoChan(key, func() (any, error) {
		fetched, err := p.next.FetchRates(fetchCtx, missing)
		if err != nil {
			return nil, err
		}
		p.store(fetched)
		return fetched, nil
	})

	var result singleflight.Result
	select {
	case result = <-results:
	case <-ctx.Done():
		return nil, ctx.Err()
	}
	if result.Err != nil {
		return nil, result.Err
	}

	for code, rate := range result.Val.(map[string]decimal.Decimal) {
		out[code] = rate
	}
	return out, nil
}

func (p *CachedProvider) lookup(currencyCodes []string) (map[string]decimal.Decimal, []string) {
	p.mu.RLock()
	defer p.mu.RUnlock()

	now := p.now()
	out := make(map[string]decimal.Decimal, len(currencyCodes))
	missing := make([]string, 0, len(currencyCodes))
	for _, code := range currencyCodes {
		if entry, ok := p.rates[code]; ok && now.Before(entry.expiresAt) {
			out[code] = entry.rate
			continue
		}
		missing = append(missing, code)
	}
	return out, missing
}

func (p *CachedProvider) store(fetched map[string]decimal.Decimal) {
	p.mu.Lock()
	defer p.mu.Unlock()

	expiresAt := p.now().Add(p.ttl)
	for code, rate := range fetched {
		p.rates[code] = cachedRate{rate: rate, expiresAt: expiresAt}
	}
}
