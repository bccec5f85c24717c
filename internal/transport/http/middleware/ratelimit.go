package middleware

import (
	"bytes"
	"encoding/json"
	"io"
	"log/slog"
	"math"
	"net"
	"net/http"
	"strconv"
	"strings"
	"sync"
	"time"

	lru "github.com/hashicorp/golang-lru/v2"
	"golang.org/x/time/rate"

	"managerhr/internal/transport/http/api"
)

const rateLimiterKeys = 8192

type RateLimitKeyFunc func(r *http.Request) string

// rateLimiter holds one token bucket per key. Idle keys fall out of the LRU
// instead of being swept.
type rateLimiter struct {
	mu       sync.Mutex
	perMin   int
	every    rate.Limit
	keyFn    RateLimitKeyFunc
	limiters *lru.Cache[string, *rate.Limiter]
}

func newRateLimiter(perMinute int, keyFn RateLimitKeyFunc) *rateLimiter {
	limiters, _ := lru.New[string, *rate.Limiter](rateLimiterKeys)
	return &rateLimiter{
		perMin:   perMinute,
		every:    rate.Every(time.Minute / time.Duration(max(perMinute, 1))),
		keyFn:    keyFn,
		limiters: limiters,
	}
}

func (rl *rateLimiter) limiter(key string) *rate.Limiter {
	rl.mu.Lock()
	defer rl.mu.Unlock()
	if lim, ok := rl.limiters.Get(key); ok {
		return lim
	}
	lim := rate.NewLimiter(rl.every, rl.perMin)
	rl.limiters.Add(key, lim)
	return lim
}

func (rl *rateLimiter) enforce(w http.ResponseWriter, r *http.Request) bool {
	if rl.perMin <= 0 {
		return true
	}
	key := rl.keyFn(r)
	if key == "" {
		key = clientIPKey(r)
	}
	lim := rl.limiter(key)
	w.Header().Set("X-RateLimit-Limit", strconv.Itoa(rl.perMin))
	if lim.Allow() {
		w.Header().Set("X-RateLimit-Remaining", strconv.Itoa(max(int(lim.Tokens()), 0)))
		return true
	}

	retry := int(math.Ceil(time.Minute.Seconds() / float64(rl.perMin)))
	w.Header().Set("X-RateLimit-Remaining", "0")
	w.Header().Set("Retry-After", strconv.Itoa(max(retry, 1)))
	slog.Warn("rate limit exceeded",
		"key", key,
		"path", r.URL.Path,
		"method", r.Method,
		"perMinute", rl.perMin,
	)
	api.FailWithNotice(w, http.StatusTooManyRequests, "rate_limited", "too many requests",
		api.Transient(api.NoticeWarning, "Bạn thao tác quá nhanh, vui lòng thử lại sau."), GetRequestID(r.Context()))
	return false
}

// RateLimit throttles by client address.
func RateLimit(perMinute int) func(http.Handler) http.Handler {
	rl := newRateLimiter(perMinute, clientIPKey)
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if !rl.enforce(w, r) {
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

// LoginRateLimit throttles login attempts both per address and per phone
// number, so one attacker cannot spray many accounts and many addresses
// cannot hammer one account.
func LoginRateLimit(perMinute int) func(http.Handler) http.Handler {
	byIP := newRateLimiter(perMinute, clientIPKey)
	byPhone := newRateLimiter(perMinute, JSONFieldOrIPKey("phone"))
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if !byIP.enforce(w, r) {
				return
			}
			if !byPhone.enforce(w, r) {
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

func JSONFieldOrIPKey(field string) RateLimitKeyFunc {
	return func(r *http.Request) string {
		value := extractJSONField(r, field)
		if value == "" {
			return clientIPKey(r)
		}
		return field + ":" + strings.ToLower(value)
	}
}

func clientIPKey(r *http.Request) string {
	if fwd := strings.TrimSpace(r.Header.Get("X-Forwarded-For")); fwd != "" {
		first, _, _ := strings.Cut(fwd, ",")
		if value := strings.TrimSpace(first); value != "" {
			return value
		}
	}
	host, _, err := net.SplitHostPort(strings.TrimSpace(r.RemoteAddr))
	if err == nil && host != "" {
		return host
	}
	return strings.TrimSpace(r.RemoteAddr)
}

// extractJSONField peeks at a JSON body and restores it for the handler.
func extractJSONField(r *http.Request, field string) string {
	if r == nil || r.Body == nil {
		return ""
	}
	contentType := strings.ToLower(strings.TrimSpace(r.Header.Get("Content-Type")))
	if !strings.Contains(contentType, "application/json") {
		return ""
	}
	raw, err := io.ReadAll(io.LimitReader(r.Body, 64*1024))
	if err != nil {
		return ""
	}
	r.Body = io.NopCloser(bytes.NewReader(raw))
	if len(raw) == 0 {
		return ""
	}
	payload := map[string]any{}
	if err := json.Unmarshal(raw, &payload); err != nil {
		return ""
	}
	value, _ := payload[field].(string)
	return strings.TrimSpace(value)
}
