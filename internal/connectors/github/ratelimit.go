package github

import (
	"context"
	"sync"
	"time"

	gh "github.com/google/go-github/v80/github"
	"golang.org/x/time/rate"

	"github.com/custodia-labs/vigil-cli/internal/logger"
)

// Rate limiting configuration.
const (
	// ProactiveRate is requests per second we allow ourselves,
	// regardless of what the API reports. GitHub allows 5000/hour
	// (~1.4/sec) authenticated; we stay under that.
	ProactiveRate = 1.2

	// MinBuffer is the remaining-requests threshold below which we
	// pause until the reported reset time.
	MinBuffer = 100
)

// RateLimiter provides both proactive and reactive rate limiting for
// GitHub API calls. Proactive limiting paces requests with a token
// bucket. Reactive limiting reads the rate information go-github
// returns with each response and pauses when the remaining quota runs
// low.
type RateLimiter struct {
	limiter *rate.Limiter

	mu        sync.Mutex
	remaining int
	limit     int
	resetAt   time.Time
}

// NewRateLimiter creates a rate limiter with default settings.
func NewRateLimiter() *RateLimiter {
	return &RateLimiter{
		limiter:   rate.NewLimiter(rate.Limit(ProactiveRate), 1),
		remaining: -1, // unknown until first response
	}
}

// Wait blocks until a request is permitted. It honors both the
// proactive token bucket and any reactive pause from low quota.
func (r *RateLimiter) Wait(ctx context.Context) error {
	if err := r.limiter.Wait(ctx); err != nil {
		return err
	}

	r.mu.Lock()
	remaining := r.remaining
	resetAt := r.resetAt
	r.mu.Unlock()

	if remaining >= 0 && remaining < MinBuffer && time.Now().Before(resetAt) {
		pause := time.Until(resetAt)
		logger.Warn("GitHub quota low (%d remaining), pausing %s", remaining, pause.Round(time.Second))
		select {
		case <-time.After(pause):
		case <-ctx.Done():
			return ctx.Err()
		}
	}

	return nil
}

// UpdateFromResponse records the rate information from an API response.
func (r *RateLimiter) UpdateFromResponse(resp *gh.Response) {
	if resp == nil {
		return
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	r.remaining = resp.Rate.Remaining
	r.limit = resp.Rate.Limit
	r.resetAt = resp.Rate.Reset.Time
}

// Remaining returns the last reported remaining quota, -1 if unknown.
func (r *RateLimiter) Remaining() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.remaining
}
