package service

import (
	"strings"
	"sync"
	"time"
)

// unknownClientKey agrupa las peticiones sin IP identificable en un único contador.
const unknownClientKey = "unknown"

func normalizeLimiterKey(key string) string {
	key = strings.TrimSpace(key)
	if key == "" {
		return unknownClientKey
	}
	return key
}

// RateLimiter decide si una clave (IP) puede consumir un intento más en su ventana.
type RateLimiter interface {
	Allow(key string) bool
}

// RateLimitPolicy describe el límite de una categoría de rutas.
type RateLimitPolicy struct {
	Category string
	Limit    int
	Window   time.Duration
	Message  string
}

const (
	RateCategoryRegister       = "register"
	RateCategoryLogin          = "login"
	RateCategoryForgotPassword = "forgot-password"
	RateCategoryGeneral        = "general"
)

// DefaultRateLimitPolicies devuelve los límites por categoría con sus mensajes de rechazo.
func DefaultRateLimitPolicies() map[string]RateLimitPolicy {
	return map[string]RateLimitPolicy{
		RateCategoryRegister: {
			Category: RateCategoryRegister,
			Limit:    5,
			Window:   time.Hour,
			Message:  "Too many accounts created from this IP, please try again after an hour",
		},
		RateCategoryLogin: {
			Category: RateCategoryLogin,
			Limit:    3,
			Window:   10 * time.Minute,
			Message:  "Too many login attempts from this IP, please try again after 10 minutes",
		},
		RateCategoryForgotPassword: {
			Category: RateCategoryForgotPassword,
			Limit:    10,
			Window:   15 * time.Minute,
			Message:  "Too many password reset requests from this IP, please try again after 15 minutes",
		},
		RateCategoryGeneral: {
			Category: RateCategoryGeneral,
			Limit:    100,
			Window:   15 * time.Minute,
			Message:  "Too many requests from this IP, please try again after 15 minutes",
		},
	}
}

type memoryRateLimiter struct {
	mu        sync.Mutex
	window    time.Duration
	max       int
	hits      map[string][]time.Time
	lastSweep time.Time
	now       func() time.Time
}

// NewMemoryRateLimiter crea un limitador de ventana deslizante en memoria.
func NewMemoryRateLimiter(window time.Duration, max int) RateLimiter {
	if max <= 0 {
		max = 1
	}
	if window <= 0 {
		window = time.Minute
	}
	return &memoryRateLimiter{
		window: window,
		max:    max,
		hits:   make(map[string][]time.Time),
		now:    func() time.Time { return time.Now().UTC() },
	}
}

func (l *memoryRateLimiter) Allow(key string) bool {
	key = normalizeLimiterKey(key)
	l.mu.Lock()
	defer l.mu.Unlock()
	now := l.now()
	cutoff := now.Add(-l.window)
	if now.Sub(l.lastSweep) > l.window {
		l.sweep(cutoff)
		l.lastSweep = now
	}

	entries := l.hits[key]
	kept := entries[:0]
	for _, ts := range entries {
		if ts.After(cutoff) {
			kept = append(kept, ts)
		}
	}
	if len(kept) >= l.max {
		l.hits[key] = kept
		return false
	}
	l.hits[key] = append(kept, now)
	return true
}

// sweep descarta claves sin intentos dentro de la ventana.
func (l *memoryRateLimiter) sweep(cutoff time.Time) {
	for key, entries := range l.hits {
		if len(entries) == 0 || !entries[len(entries)-1].After(cutoff) {
			delete(l.hits, key)
		}
	}
}
