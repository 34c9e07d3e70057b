package middlewares

import (
	"net/http"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"golang.org/x/time/rate"
)

// RateLimiterConfig holds the configuration for the rate limiter
type RateLimiterConfig struct {
	RequestsPerSecond float64
	Burst             int
}

type visitor struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

// rateLimiterData keeps one token bucket per client IP.
type rateLimiterData struct {
	config   RateLimiterConfig
	mu       sync.Mutex
	visitors map[string]*visitor
	lastGC   time.Time
}

const visitorTTL = 10 * time.Minute

func (d *rateLimiterData) limiter(ip string, now time.Time) *rate.Limiter {
	d.mu.Lock()
	defer d.mu.Unlock()

	if now.Sub(d.lastGC) > visitorTTL {
		for key, v := range d.visitors {
			if now.Sub(v.lastSeen) > visitorTTL {
				delete(d.visitors, key)
			}
		}
		d.lastGC = now
	}

	v, ok := d.visitors[ip]
	if !ok {
		v = &visitor{limiter: rate.NewLimiter(rate.Limit(d.config.RequestsPerSecond), d.config.Burst)}
		d.visitors[ip] = v
	}
	v.lastSeen = now
	return v.limiter
}

// NewRateLimiterMiddleware limits each client IP to the configured rate. A
// non-positive rate disables limiting.
func NewRateLimiterMiddleware(config RateLimiterConfig) gin.HandlerFunc {
	if config.RequestsPerSecond <= 0 {
		return func(c *gin.Context) { c.Next() }
	}
	if config.Burst < 1 {
		config.Burst = 1
	}
	data := &rateLimiterData{
		config:   config,
		visitors: make(map[string]*visitor),
		lastGC:   time.Now(),
	}

	return func(c *gin.Context) {
		if !data.limiter(c.ClientIP(), time.Now()).Allow() {
			c.AbortWithStatusJSON(http.StatusTooManyRequests, gin.H{
				"error": "rate limit exceeded",
			})
			return
		}
		c.Next()
	}
}
