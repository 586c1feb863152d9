package middleware

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"golang.org/x/time/rate"
)

// RateLimiterStore keeps one token bucket per client and tier.
type RateLimiterStore interface {
	// Allow takes one token from every tier's bucket, or none when any of them is empty. denied is
	// the index of the first empty tier, -1 when the request may pass.
	Allow(ctx context.Context, key string, tiers []RateLimitTier) (denied int, retryAfter time.Duration, err error)
	StartCleanup(ctx context.Context)
	StopCleanup()
}

const (
	cleanupInterval = 5 * time.Minute
	staleThreshold  = 10 * time.Minute
)

// memoryRateLimiterStore implements RateLimiterStore using in-memory token buckets.
type memoryRateLimiterStore struct {
	limiters    sync.Map // map[string]*limiterEntry
	stopCh      chan struct{}
	cleanupOnce sync.Once
	stopOnce    sync.Once
}

type limiterEntry struct {
	limiter    *rate.Limiter
	window     time.Duration
	lastAccess int64 // unix seconds
}

// NewMemoryRateLimiterStore returns a store that is local to this gateway instance.
func NewMemoryRateLimiterStore() RateLimiterStore {
	return &memoryRateLimiterStore{}
}

func (m *memoryRateLimiterStore) Allow(_ context.Context, key string, tiers []RateLimitTier) (int, time.Duration, error) {
	now := time.Now()

	reservations := make([]*rate.Reservation, 0, len(tiers))
	denied, retryAfter := -1, time.Duration(0)

	for i, tier := range tiers {
		r := m.entry(key, tier, now).limiter.ReserveN(now, 1)
		reservations = append(reservations, r)

		if denied >= 0 {
			continue
		}

		switch {
		case !r.OK():
			denied, retryAfter = i, time.Second
		case r.DelayFrom(now) > 0:
			denied, retryAfter = i, r.DelayFrom(now)
		}
	}

	if denied < 0 {
		return -1, 0, nil
	}

	// cancelling at the reservation instant hands every token back, including the tiers that had one
	for _, r := range reservations {
		r.CancelAt(now)
	}

	return denied, retryAfter, nil
}

func (m *memoryRateLimiterStore) entry(key string, tier RateLimitTier, now time.Time) *limiterEntry {
	val, _ := m.limiters.LoadOrStore(tier.Name+":"+key, &limiterEntry{
		limiter:    rate.NewLimiter(rate.Limit(tier.perSecond()), tier.Limit),
		window:     tier.Window,
		lastAccess: now.Unix(),
	})

	entry := val.(*limiterEntry)
	atomic.StoreInt64(&entry.lastAccess, now.Unix())

	return entry
}

// StartCleanup starts a background goroutine to clean up stale limiters.
// This method is safe to call multiple times - only one cleanup goroutine will be started.
func (m *memoryRateLimiterStore) StartCleanup(ctx context.Context) {
	m.cleanupOnce.Do(func() {
		m.stopCh = make(chan struct{})

		go func() {
			ticker := time.NewTicker(cleanupInterval)
			defer ticker.Stop()

			for {
				select {
				case <-ticker.C:
					m.cleanup(time.Now())
				case <-m.stopCh:
					return
				case <-ctx.Done():
					return
				}
			}
		}()
	})
}

// StopCleanup stops the cleanup goroutine.
// This method is safe to call multiple times.
func (m *memoryRateLimiterStore) StopCleanup() {
	m.stopOnce.Do(func() {
		if m.stopCh != nil {
			close(m.stopCh)
		}
	})
}

// cleanup drops buckets idle for longer than both staleThreshold and their own window, so an
// hourly tier is not reset after ten minutes of silence.
func (m *memoryRateLimiterStore) cleanup(now time.Time) {
	m.limiters.Range(func(key, value any) bool {
		entry := value.(*limiterEntry)

		idleFor := now.Sub(time.Unix(atomic.LoadInt64(&entry.lastAccess), 0))
		if idleFor > staleThreshold && idleFor > entry.window {
			m.limiters.Delete(key)
		}

		return true
	})
}
