package middleware

import (
	"net"
	"net/http"
	"strconv"
	"strings"
	"sync"
	"time"

	"admin-dashboard/backend/pkg/config"
	"admin-dashboard/backend/pkg/errors"
	"admin-dashboard/backend/pkg/logger"

	"github.com/gin-gonic/gin"
	"golang.org/x/time/rate"
)

// RateLimiterOptions configures the rate limiter
type RateLimiterOptions struct {
	// Window is the length of the sliding window
	Window time.Duration
	// MaxRequests is the number of requests admitted per window
	MaxRequests int
	// Message is returned to rejected clients
	Message string
	// KeyFunc extracts the limiting key from a request
	KeyFunc func(*gin.Context) string
	// Now is the clock; tests replace it
	Now func() time.Time
}

// DefaultRateLimiterOptions returns 100 requests per 15 minutes keyed by client address.
func DefaultRateLimiterOptions() RateLimiterOptions {
	return RateLimiterOptions{
		Window:      15 * time.Minute,
		MaxRequests: 100,
		Message:     config.DefaultRateLimitMessage,
		KeyFunc:     ClientID,
		Now:         time.Now,
	}
}

// OptionsFromConfig maps the rate_limit config section onto options.
func OptionsFromConfig(cfg config.RateLimitConfig) RateLimiterOptions {
	opts := DefaultRateLimiterOptions()
	if cfg.Window > 0 {
		opts.Window = cfg.Window
	}
	if cfg.MaxRequests > 0 {
		opts.MaxRequests = cfg.MaxRequests
	}
	if cfg.Message != "" {
		opts.Message = cfg.Message
	}
	return opts
}

// Decision is the outcome of one admission check.
type Decision struct {
	Allowed bool
	// Count is the number of requests in the window, this one included
	Count     int
	Limit     int
	Remaining int
	// RetryAfter is how long until enough entries age out to admit again
	RetryAfter time.Duration
}

// RateLimiter is a sliding-window limiter keyed by client. Every request,
// admitted or not, is recorded. A single mutex guards the whole map.
type RateLimiter struct {
	mu      sync.Mutex
	options RateLimiterOptions
	clients map[string][]time.Time
	logger  *logger.Logger
	warn    rate.Sometimes
}

// NewRateLimiter creates a new rate limiter
func NewRateLimiter(log *logger.Logger, options ...RateLimiterOptions) *RateLimiter {
	opts := DefaultRateLimiterOptions()
	if len(options) > 0 {
		opts = options[0]
	}
	if opts.KeyFunc == nil {
		opts.KeyFunc = ClientID
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	if log == nil {
		log = logger.GetGlobal()
	}

	return &RateLimiter{
		options: opts,
		clients: make(map[string][]time.Time),
		logger:  log,
		warn:    rate.Sometimes{First: 1, Interval: 10 * time.Second},
	}
}

// Admit records a request from clientID at now and decides whether it may proceed.
func (r *RateLimiter) Admit(clientID string, now time.Time) Decision {
	r.mu.Lock()
	defer r.mu.Unlock()

	stamps := prune(append(r.clients[clientID], now), now, r.options.Window)
	r.clients[clientID] = stamps

	count := len(stamps)
	d := Decision{
		Allowed: count <= r.options.MaxRequests,
		Count:   count,
		Limit:   r.options.MaxRequests,
	}
	if d.Allowed {
		d.Remaining = r.options.MaxRequests - count
		return d
	}

	// The retry itself is recorded, so count-max+1 of the oldest entries
	// must age out before the window admits again.
	oldest := stamps[count-r.options.MaxRequests]
	d.RetryAfter = oldest.Add(r.options.Window).Sub(now)
	if d.RetryAfter < 0 {
		d.RetryAfter = 0
	}
	return d
}

// prune keeps the entries younger than window, preserving order and reusing stamps.
func prune(stamps []time.Time, now time.Time, window time.Duration) []time.Time {
	kept := stamps[:0]
	for _, ts := range stamps {
		if now.Sub(ts) < window {
			kept = append(kept, ts)
		}
	}
	return kept
}

// Sweep prunes every client's window and drops clients left with none.
// It returns the number of clients removed.
func (r *RateLimiter) Sweep(now time.Time) int {
	r.mu.Lock()
	defer r.mu.Unlock()

	removed := 0
	for id, stamps := range r.clients {
		stamps = prune(stamps, now, r.options.Window)
		if len(stamps) == 0 {
			delete(r.clients, id)
			removed++
			continue
		}
		r.clients[id] = stamps
	}
	return removed
}

// SweepNow runs Sweep at the limiter's clock; it is the scheduled job body.
func (r *RateLimiter) SweepNow() {
	if n := r.Sweep(r.options.Now()); n > 0 {
		r.logger.Debug("rate limiter swept idle clients", "removed", n)
	}
}

// SweepInterval is the period between sweeps: half the window.
func (r *RateLimiter) SweepInterval() time.Duration {
	return r.options.Window / 2
}

// ClientCount returns the number of clients currently tracked.
func (r *RateLimiter) ClientCount() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.clients)
}

// Check runs the limiter for c, setting the X-RateLimit headers. On rejection
// it returns the 429 AppError to hand to the error handler.
func (r *RateLimiter) Check(c *gin.Context) (string, error) {
	key := r.options.KeyFunc(c)
	d := r.Admit(key, r.options.Now())

	c.Header("X-RateLimit-Limit", strconv.Itoa(d.Limit))
	c.Header("X-RateLimit-Remaining", strconv.Itoa(d.Remaining))

	if d.Allowed {
		return key, nil
	}

	r.warn.Do(func() {
		r.logger.Warn("Rate limit exceeded",
			"client", key,
			"count", d.Count,
			"path", c.Request.URL.Path,
			"method", c.Request.Method,
		)
	})
	return key, errors.RateLimited(r.options.Message, d.RetryAfter)
}

// Middleware returns a Gin middleware for rate limiting
func (r *RateLimiter) Middleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		if _, err := r.Check(c); err != nil {
			c.Error(err)
			c.Abort()
			return
		}
		c.Next()
	}
}

// ClientID identifies the caller: the first X-Forwarded-For hop when present,
// otherwise the socket peer address.
func ClientID(c *gin.Context) string {
	return clientIDFromRequest(c.Request)
}

func clientIDFromRequest(req *http.Request) string {
	if xff := req.Header.Get("X-Forwarded-For"); xff != "" {
		first, _, _ := strings.Cut(xff, ",")
		if first = strings.TrimSpace(first); first != "" {
			return first
		}
	}
	host, _, err := net.SplitHostPort(req.RemoteAddr)
	if err != nil {
		return req.RemoteAddr
	}
	return host
}
