package api

import (
	"sync"

	"fieldbook/internal/config"

	"golang.org/x/time/rate"
)

// rateLimiter hands out one token bucket per client key. Buckets are created
// lazily and never expire; the key space is bounded by the configured API keys
// plus connecting hosts.
type rateLimiter struct {
	buckets sync.Map
	rps     rate.Limit
	burst   int
}

func newRateLimiter(cfg *config.APIConfig) *rateLimiter {
	burst := cfg.RateLimit.Burst
	if burst <= 0 {
		burst = 5
	}
	return &rateLimiter{
		rps:   rate.Limit(cfg.RateLimit.RPS),
		burst: burst,
	}
}

func (l *rateLimiter) getLimiter(key string) *rate.Limiter {
	if v, ok := l.buckets.Load(key); ok {
		return v.(*rate.Limiter)
	}
	v, _ := l.buckets.LoadOrStore(key, rate.NewLimiter(l.rps, l.burst))
	return v.(*rate.Limiter)
}
