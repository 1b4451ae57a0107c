package fx

import (
	"context"
	"fmt"
	"time"

	"github.com/patrickmn/go-cache"
	"github.com/shopspring/decimal"
	"golang.org/x/sync/singleflight"

	"inventory-console/internal/logger"
)

// Origin tells where a quoted rate came from.
type Origin string

const (
	OriginLive     Origin = "live"     // fetched within the cache TTL
	OriginCached   Origin = "cached"   // last good rate, source currently failing
	OriginFallback Origin = "fallback" // configured default, no good rate yet
)

// Quote is the rate handed to callers. Warning is set whenever the source
// could not be reached and Rate is not fresh.
type Quote struct {
	Rate    decimal.Decimal `json:"rate"`
	Source  Origin          `json:"source"`
	Warning string          `json:"warning,omitempty"`
	AsOf    time.Time       `json:"as_of"`
}

const (
	freshKey    = "rate-fresh"
	lastGoodKey = "rate-last-good"
	degradedKey = "rate-degraded"
	fetchKey    = "fetch"
)

// DefaultRetryBackoff is how long a degraded quote is served before the
// source is tried again.
const DefaultRetryBackoff = 30 * time.Second

type entry struct {
	rate decimal.Decimal
	asOf time.Time
}

// RateProvider is the process-wide holder of the exchange rate. It never
// returns an error: a failing source degrades to the last good rate, then
// to the configured fallback. While the source is failing the degraded
// quote is reused for the retry backoff, and concurrent callers share a
// single in-flight fetch.
type RateProvider struct {
	source   RateSource
	fallback decimal.Decimal
	backoff  time.Duration
	cache    *cache.Cache
	group    singleflight.Group
	now      func() time.Time
}

// NewRateProvider keeps a fetched rate fresh for ttl. fallback must be
// positive; a non-positive value is replaced by 1.
func NewRateProvider(source RateSource, fallback decimal.Decimal, ttl time.Duration) *RateProvider {
	if !fallback.IsPositive() {
		fallback = decimal.NewFromInt(1)
	}
	return &RateProvider{
		source:   source,
		fallback: fallback,
		backoff:  DefaultRetryBackoff,
		cache:    cache.New(ttl, 2*ttl),
		now:      time.Now,
	}
}

// WithRetryBackoff sets how long a degraded quote is served before the
// next fetch attempt. Non-positive values keep the default.
func (p *RateProvider) WithRetryBackoff(d time.Duration) *RateProvider {
	if d > 0 {
		p.backoff = d
	}
	return p
}

// Current returns the fresh rate if one is cached, or the degraded quote
// while the retry backoff runs. Otherwise it fetches.
func (p *RateProvider) Current(ctx context.Context) Quote {
	if q, ok := p.cached(); ok {
		return q
	}
	return p.load(ctx, false)
}

// Refresh fetches from the source regardless of the cache. It joins a
// fetch that is already in flight.
func (p *RateProvider) Refresh(ctx context.Context) Quote {
	return p.load(ctx, true)
}

func (p *RateProvider) cached() (Quote, bool) {
	if e, ok := p.cache.Get(freshKey); ok {
		got := e.(entry)
		return Quote{Rate: got.rate, Source: OriginLive, AsOf: got.asOf}, true
	}
	if q, ok := p.cache.Get(degradedKey); ok {
		return q.(Quote), true
	}
	return Quote{}, false
}

func (p *RateProvider) load(ctx context.Context, force bool) Quote {
	// The shared fetch must not die with the first caller's request.
	fetchCtx := context.WithoutCancel(ctx)
	v, _, _ := p.group.Do(fetchKey, func() (any, error) {
		if !force {
			if q, ok := p.cached(); ok {
				return q, nil
			}
		}
		return p.fetch(fetchCtx), nil
	})
	return v.(Quote)
}

func (p *RateProvider) fetch(ctx context.Context) Quote {
	rate, err := p.source.FetchCurrent(ctx)
	if err == nil && !rate.IsPositive() {
		err = fmt.Errorf("invalid rate %s", rate)
	}
	if err == nil {
		e := entry{rate: rate, asOf: p.now()}
		p.cache.SetDefault(freshKey, e)
		p.cache.Set(lastGoodKey, e, cache.NoExpiration)
		p.cache.Delete(degradedKey)
		return Quote{Rate: rate, Source: OriginLive, AsOf: e.asOf}
	}

	log := logger.FromContext(ctx)
	var q Quote
	if last, ok := p.cache.Get(lastGoodKey); ok {
		got := last.(entry)
		log.Warn("exchange rate fetch failed, using last known rate", "error", err, "rate", got.rate.String(), "as_of", got.asOf)
		q = Quote{
			Rate:    got.rate,
			Source:  OriginCached,
			Warning: fmt.Sprintf("exchange rate source unavailable; using last known rate from %s", got.asOf.Format(time.RFC3339)),
			AsOf:    got.asOf,
		}
	} else {
		log.Warn("exchange rate fetch failed, using fallback rate", "error", err, "rate", p.fallback.String())
		q = Quote{
			Rate:    p.fallback,
			Source:  OriginFallback,
			Warning: fmt.Sprintf("exchange rate source unavailable; using fallback rate %s", p.fallback),
			AsOf:    p.now(),
		}
	}
	p.cache.Set(degradedKey, q, p.backoff)
	return q
}
