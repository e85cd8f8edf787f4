package ratelimitx

import (
	"sync"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/hashicorp/golang-lru/v2/expirable"
	"golang.org/x/time/rate"
)

const (
	maxTrackedClients = 1000
	clientIdleExpiry  = 5 * time.Minute
)

// Limiter aplica un límite de peticiones por cliente. Cada clave tiene su
// propio token bucket; los clientes inactivos expiran del LRU solos.
type Limiter struct {
	mu      sync.Mutex
	clients *expirable.LRU[string, *rate.Limiter]
	rps     rate.Limit
	burst   int
}

// New crea un limiter que permite perMinute peticiones por minuto con ráfagas
// de hasta burst
func New(perMinute, burst int) *Limiter {
	return &Limiter{
		clients: expirable.NewLRU[string, *rate.Limiter](maxTrackedClients, nil, clientIdleExpiry),
		rps:     rate.Limit(float64(perMinute) / 60.0),
		burst:   burst,
	}
}

// Allow reporta si la clave puede hacer otra petición ahora
func (l *Limiter) Allow(key string) bool {
	l.mu.Lock()
	limiter, ok := l.clients.Get(key)
	if !ok {
		limiter = rate.NewLimiter(l.rps, l.burst)
		l.clients.Add(key, limiter)
	}
	l.mu.Unlock()

	return limiter.Allow()
}

// Middleware limita las peticiones por IP de origen
func (l *Limiter) Middleware() fiber.Handler {
	return func(c *fiber.Ctx) error {
		if !l.Allow(c.IP()) {
			return c.Status(fiber.StatusTooManyRequests).JSON(fiber.Map{
				"error": "Rate limit exceeded",
				"code":  "RATE_LIMITED",
			})
		}
		return c.Next()
	}
}
