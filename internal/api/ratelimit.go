package api

import (
	"math"
	"net/http"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"golang.org/x/time/rate"
)

const limiterIdleTTL = 10 * time.Minute

// RateLimitMiddleware allows each client IP rps requests per second, bursting to
// the next whole number.
func RateLimitMiddleware(rps float64) gin.HandlerFunc {
	clients := newClientLimiters(rps, limiterIdleTTL)

	return func(c *gin.Context) {
		if !clients.get(c.ClientIP()).Allow() {
			c.AbortWithStatusJSON(http.StatusTooManyRequests, gin.H{
				"error": "rate limit exceeded",
			})
			return
		}
		c.Next()
	}
}

type clientLimiter struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

// clientLimiters keeps one limiter per IP and drops those idle for longer than ttl.
// ttl is never shorter than a full refill, so a dropped limiter would have allowed
// the next request anyway.
type clientLimiters struct {
	mu        sync.Mutex
	limit     rate.Limit
	burst     int
	ttl       time.Duration
	clients   map[string]*clientLimiter
	lastSweep time.Time
	now       func() time.Time
}

func newClientLimiters(rps float64, ttl time.Duration) *clientLimiters {
	burst := int(math.Ceil(rps))
	if burst < 1 {
		burst = 1
	}
	if refill := time.Duration(float64(burst) / rps * float64(time.Second)); refill > ttl {
		ttl = refill
	}
	return &clientLimiters{
		limit:     rate.Limit(rps),
		burst:     burst,
		ttl:       ttl,
		clients:   make(map[string]*clientLimiter),
		lastSweep: time.Now(),
		now:       time.Now,
	}
}

func (cl *clientLimiters) get(ip string) *rate.Limiter {
	cl.mu.Lock()
	defer cl.mu.Unlock()

	now := cl.now()
	if now.Sub(cl.lastSweep) >= cl.ttl {
		cl.sweep(now)
	}

	c, ok := cl.clients[ip]
	if !ok {
		c = &clientLimiter{limiter: rate.NewLimiter(cl.limit, cl.burst)}
		cl.clients[ip] = c
	}
	c.lastSeen = now
	return c.limiter
}

func (cl *clientLimiters) sweep(now time.Time) {
	for ip, c := range cl.clients {
		if now.Sub(c.lastSeen) >= cl.ttl {
			delete(cl.clients, ip)
		}
	}
	cl.lastSweep = now
}

func (cl *clientLimiters) size() int {
	cl.mu.Lock()
	defer cl.mu.Unlock()
	return len(cl.clients)
}
