package observability

import (
	"sync"
	"time"

	"github.com/gin-gonic/gin"
)

// RequestTracker counts requests over a trailing window using fixed-size
// buckets, so memory stays constant whatever the traffic.
type RequestTracker struct {
	mu     sync.Mutex
	bucket time.Duration
	counts []int64
	starts []time.Time
	now    func() time.Time
}

// NewRequestTracker tracks the trailing window split into n buckets.
func NewRequestTracker(window time.Duration, n int) *RequestTracker {
	if n <= 0 {
		n = 24
	}
	return &RequestTracker{
		bucket: window / time.Duration(n),
		counts: make([]int64, n),
		starts: make([]time.Time, n),
		now:    time.Now,
	}
}

// NewDailyTracker counts the trailing 24 hours in hourly buckets.
func NewDailyTracker() *RequestTracker {
	return NewRequestTracker(24*time.Hour, 24)
}

func (t *RequestTracker) slot(at time.Time) (int, time.Time) {
	start := at.Truncate(t.bucket)
	idx := int((start.UnixNano() / int64(t.bucket)) % int64(len(t.counts)))
	return idx, start
}

// Record counts one request at the given instant.
func (t *RequestTracker) Record(at time.Time) {
	t.mu.Lock()
	defer t.mu.Unlock()

	idx, start := t.slot(at)
	if !t.starts[idx].Equal(start) {
		t.starts[idx] = start
		t.counts[idx] = 0
	}
	t.counts[idx]++
}

// Count returns the requests recorded in buckets that overlap the window ending at now.
func (t *RequestTracker) Count(now time.Time) int64 {
	t.mu.Lock()
	defer t.mu.Unlock()

	_, current := t.slot(now)
	oldest := current.Add(-t.bucket * time.Duration(len(t.counts)-1))

	var total int64
	for i, start := range t.starts {
		if !start.Before(oldest) && !start.After(current) {
			total += t.counts[i]
		}
	}
	return total
}

// CountNow is Count at the tracker's clock.
func (t *RequestTracker) CountNow() int64 {
	return t.Count(t.now())
}

// Middleware records every request that reaches it.
func (t *RequestTracker) Middleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		t.Record(t.now())
		c.Next()
	}
}
