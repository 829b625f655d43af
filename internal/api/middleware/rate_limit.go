package middleware

import (
	"fmt"
	"net"
	"net/http"
	"sync"
	"time"

	apiContext "umnico/internal/api/context"
	"umnico/internal/pkg/errors"
	"umnico/internal/platform/auth"
	"umnico/internal/platform/config"
)

const (
	LimitAPIRead  = "api_read"
	LimitAPIWrite = "api_write"
	LimitLogin    = "login"
)

// idleBucketTTL bounds how long an unused bucket is kept. Sweeps happen
// inline on Allow so the limiter owns no goroutine.
const idleBucketTTL = 10 * time.Minute

type RateLimiter struct {
	store     *sync.Map // map[string]*Bucket
	limits    map[string]int
	now       func() time.Time
	lastSweep time.Time
	sweepMu   sync.Mutex
}

type Bucket struct {
	tokens     int
	lastRefill time.Time
	lastAccess time.Time
	evicted    bool
	mu         sync.Mutex
}

func NewRateLimiter(cfg config.RateLimitConfig) *RateLimiter {
	return &RateLimiter{
		store: &sync.Map{},
		limits: map[string]int{
			LimitAPIRead:  cfg.APIReadPerMinute,
			LimitAPIWrite: cfg.APIWritePerMinute,
			LimitLogin:    cfg.LoginPerMinute,
		},
		now: time.Now,
	}
}

func (rl *RateLimiter) Allow(key string, limit int) bool {
	now := rl.now()
	rl.sweep(now)

	bucket := rl.bucket(key, limit, now)
	defer bucket.mu.Unlock()

	bucket.lastAccess = now

	// Rate is limit / 60 seconds
	elapsed := now.Sub(bucket.lastRefill)
	refillTokens := int(elapsed.Seconds() * float64(limit) / 60.0)

	if refillTokens > 0 {
		if bucket.tokens+refillTokens > limit {
			bucket.tokens = limit
		} else {
			bucket.tokens += refillTokens
		}
		bucket.lastRefill = now
	}

	if bucket.tokens > 0 {
		bucket.tokens--
		return true
	}

	return false
}

// bucket returns the live, locked bucket for key. A bucket evicted by a
// concurrent sweep is dropped and replaced.
func (rl *RateLimiter) bucket(key string, limit int, now time.Time) *Bucket {
	for {
		val, _ := rl.store.LoadOrStore(key, &Bucket{
			tokens:     limit,
			lastRefill: now,
			lastAccess: now,
		})

		bucket := val.(*Bucket)
		bucket.mu.Lock()
		if !bucket.evicted {
			return bucket
		}
		bucket.mu.Unlock()
		rl.store.CompareAndDelete(key, bucket)
	}
}

func (rl *RateLimiter) sweep(now time.Time) {
	rl.sweepMu.Lock()
	if now.Sub(rl.lastSweep) < idleBucketTTL {
		rl.sweepMu.Unlock()
		return
	}
	rl.lastSweep = now
	rl.sweepMu.Unlock()

	rl.store.Range(func(key, value interface{}) bool {
		bucket := value.(*Bucket)
		bucket.mu.Lock()
		if now.Sub(bucket.lastAccess) > idleBucketTTL {
			bucket.evicted = true
			rl.store.CompareAndDelete(key, bucket)
		}
		bucket.mu.Unlock()
		return true
	})
}

func (rl *RateLimiter) Limit(limitType string) func(http.HandlerFunc) http.HandlerFunc {
	return func(next http.HandlerFunc) http.HandlerFunc {
		return func(w http.ResponseWriter, r *http.Request) {
			limit, ok := rl.limits[limitType]
			if !ok || limit <= 0 {
				next(w, r)
				return
			}

			var key string
			if claims, ok := r.Context().Value(apiContext.Claims).(*auth.Claims); ok && claims != nil {
				key = fmt.Sprintf("%s:%s", claims.Subject, limitType)
			} else {
				key = fmt.Sprintf("%s:%s", remoteHost(r), limitType)
			}

			if !rl.Allow(key, limit) {
				w.Header().Set("Retry-After", "60")
				errors.WriteError(w, http.StatusTooManyRequests, errors.ErrCodeRateLimitExceeded, "Rate limit exceeded", nil)
				return
			}

			next(w, r)
		}
	}
}

func remoteHost(r *http.Request) string {
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}
