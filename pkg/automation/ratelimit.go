package automation

import (
	"context"
	"sync"
	"time"

	"github.com/opx/controlplane/pkg/domain"
)

// Limits are the default per-operation-type manual-trigger admission limits
// (spec.md §4.8), each measured over a one-hour sliding window, in effect
// until internal/config's tunables watcher (if wired) calls SetLimits.
var Limits = map[domain.OperationType]int{
	domain.OperationPatternExtraction: 5,
	domain.OperationCalibration:       3,
	domain.OperationSnapshot:          10,
}

var (
	limitsMu     sync.RWMutex
	activeLimits = Limits
)

// SetLimits replaces the active rate-limit ceilings — internal/config's
// fsnotify-based tunables watcher calls this on every reload so an operator
// can adjust limits without a process restart.
func SetLimits(next map[domain.OperationType]int) {
	limitsMu.Lock()
	activeLimits = next
	limitsMu.Unlock()
}

func currentLimit(operationType domain.OperationType) (int, bool) {
	limitsMu.RLock()
	defer limitsMu.RUnlock()
	limit, ok := activeLimits[operationType]
	return limit, ok
}

const rateLimitWindow = time.Hour

// RateLimitStore is the persistence port a RateLimiter depends on; satisfied
// by internal/store/{memory,postgres}.RateLimitStore.
type RateLimitStore interface {
	CountSince(ctx context.Context, principal string, op domain.OperationType, since time.Time) ([]domain.RateLimitEntry, error)
	Record(ctx context.Context, entry domain.RateLimitEntry) error
}

// RateLimiter admits or rejects a manual-trigger invocation, keyed by
// (principal, operationType) — each key isolated from every other, per
// spec.md §5.
type RateLimiter struct {
	Store RateLimitStore
}

// NewRateLimiter builds a RateLimiter.
func NewRateLimiter(store RateLimitStore) *RateLimiter {
	return &RateLimiter{Store: store}
}

// Check counts entries for (principal, operationType) since now-1h and
// compares against the active limit (Limits unless SetLimits has replaced
// them). A store read error fails open — spec.md §4.8
// specifies "fail-open on store error" for rate-limit checks, same as the
// kill switch.
func (r *RateLimiter) Check(ctx context.Context, principal string, operationType domain.OperationType, now time.Time) (domain.RateLimitCheck, error) {
	limit, limited := currentLimit(operationType)
	if !limited {
		return domain.RateLimitCheck{Allowed: true}, nil
	}

	entries, err := r.Store.CountSince(ctx, principal, operationType, now.Add(-rateLimitWindow))
	if err != nil {
		return domain.RateLimitCheck{Allowed: true, Limit: limit}, nil
	}

	count := len(entries)
	if count >= limit {
		return domain.RateLimitCheck{
			Allowed:      false,
			CurrentCount: count,
			Limit:        limit,
			RetryAfter:   retryAfter(entries, now),
		}, nil
	}
	return domain.RateLimitCheck{Allowed: true, CurrentCount: count, Limit: limit}, nil
}

// Record appends a new admission entry. Call only after Check allows —
// Record itself never checks the limit.
func (r *RateLimiter) Record(ctx context.Context, principal string, operationType domain.OperationType, now time.Time) error {
	return r.Store.Record(ctx, domain.RateLimitEntry{
		Principal:     principal,
		OperationType: operationType,
		Timestamp:     now,
		TTL:           rateLimitWindow,
	})
}

func retryAfter(entries []domain.RateLimitEntry, now time.Time) time.Duration {
	oldest := entries[0].Timestamp
	for _, e := range entries[1:] {
		if e.Timestamp.Before(oldest) {
			oldest = e.Timestamp
		}
	}
	d := oldest.Add(rateLimitWindow).Sub(now)
	if d < 0 {
		return 0
	}
	return d
}
