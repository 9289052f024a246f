package server

import (
	"net"
	"net/http"
	"strings"
	"sync"
	"time"

	"cvcoach/internal/errors"

	"golang.org/x/time/rate"
)

// limiterEvictionAge is how long an idle limiter is kept
const limiterEvictionAge = 10 * time.Minute

// LimiterManager manages a collection of rate limiters for different keys (IPs, API keys).
type LimiterManager struct {
	mu       sync.Mutex
	limiters map[string]*rate.Limiter
	lastSeen map[string]time.Time
	rate     rate.Limit
	burst    int
	done     chan struct{}
	once     sync.Once
	logger   *errors.Logger
}

// RateLimiter is the limiter the server uses
type RateLimiter = LimiterManager

// NewRateLimiter creates a manager allowing requestsPerMin per key with a
// token bucket of burstCapacity
func NewRateLimiter(requestsPerMin, burstCapacity int, logger *errors.Logger) *LimiterManager {
	if logger == nil {
		logger = errors.Discard()
	}
	if burstCapacity <= 0 {
		burstCapacity = 1
	}

	m := &LimiterManager{
		limiters: make(map[string]*rate.Limiter),
		lastSeen: make(map[string]time.Time),
		rate:     rate.Limit(float64(requestsPerMin) / 60.0),
		burst:    burstCapacity,
		done:     make(chan struct{}),
		logger:   logger,
	}

	go m.cleanupRoutine(limiterEvictionAge)
	return m
}

// GetLimiter retrieves or creates a limiter for a given key.
func (m *LimiterManager) GetLimiter(key string) *rate.Limiter {
	m.mu.Lock()
	defer m.mu.Unlock()

	limiter, exists := m.limiters[key]
	if !exists {
		limiter = rate.NewLimiter(m.rate, m.burst)
		m.limiters[key] = limiter
	}
	m.lastSeen[key] = time.Now()

	return limiter
}

// Allow checks if a request should be allowed for the given key
func (m *LimiterManager) Allow(key string) bool {
	return m.GetLimiter(key).Allow()
}

// GetStats returns current rate limiter statistics
func (m *LimiterManager) GetStats() map[string]any {
	m.mu.Lock()
	defer m.mu.Unlock()

	return map[string]any{
		"active_limiters": len(m.limiters),
		"rate_per_second": float64(m.rate),
		"rate_per_minute": float64(m.rate) * 60.0,
		"burst_capacity":  m.burst,
	}
}

func (m *LimiterManager) cleanupRoutine(interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			m.cleanup(time.Now(), interval)
		case <-m.done:
			return
		}
	}
}

// cleanup removes limiters idle for longer than evictionAge
func (m *LimiterManager) cleanup(now time.Time, evictionAge time.Duration) int {
	m.mu.Lock()
	defer m.mu.Unlock()

	removed := 0
	for key, lastSeen := range m.lastSeen {
		if now.Sub(lastSeen) > evictionAge {
			delete(m.limiters, key)
			delete(m.lastSeen, key)
			removed++
		}
	}

	m.logger.Debug("Rate limiter cleanup completed",
		"removed", removed,
		"remaining_limiters", len(m.limiters))
	return removed
}

// Close stops the cleanup goroutine. Safe to call more than once.
func (m *LimiterManager) Close() {
	m.once.Do(func() { close(m.done) })
}

// rateLimitMiddleware rejects requests over the per-key budget
func (s *Server) rateLimitMiddleware(next http.Handler) http.Handler {
	if s.RateLimit == nil || !s.RateLimit.Enabled || s.RateLimiter == nil {
		return next
	}

	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		key := getRateLimitKey(r, s.RateLimit.ByAPIKey, s.RateLimit.ByIP)
		if key == "" {
			next.ServeHTTP(w, r)
			return
		}

		if !s.RateLimiter.Allow(key) {
			by, _, _ := strings.Cut(key, ":")
			s.Metrics.RateLimitHit(r.Context(), by)
			s.Logger.Info("Rate limit exceeded",
				"by", by,
				"endpoint", r.URL.Path,
				"client_ip", getClientIP(r))
			writeErrorResponse(w, "Rate limit exceeded", "Muitas requisições. Aguarde um instante e tente novamente.", http.StatusTooManyRequests)
			return
		}

		next.ServeHTTP(w, r)
	})
}

// getRateLimitKey prefers the API key and falls back to the client IP
func getRateLimitKey(r *http.Request, byAPIKey, byIP bool) string {
	if byAPIKey {
		if apiKey := requestAPIKey(r); apiKey != "" {
			return "api:" + apiKey
		}
	}

	if byIP {
		return "ip:" + getClientIP(r)
	}

	return ""
}

// getClientIP extracts the client IP address from the request
func getClientIP(r *http.Request) string {
	if xff := r.Header.Get("X-Forwarded-For"); xff != "" {
		if ip := parseFirstIP(xff); ip != "" {
			return ip
		}
	}

	if xri := r.Header.Get("X-Real-IP"); xri != "" {
		if ip := net.ParseIP(xri); ip != nil {
			return xri
		}
	}

	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}

// parseFirstIP parses the first valid IP from a comma-separated list
func parseFirstIP(ips string) string {
	for ip := range strings.SplitSeq(ips, ",") {
		ip = strings.TrimSpace(ip)
		if parsed := net.ParseIP(ip); parsed != nil {
			return ip
		}
	}
	return ""
}
