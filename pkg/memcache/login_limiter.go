package mem

import (
	"strings"
	"sync"
	"time"

	"golang.org/x/time/rate"
)

// LoginAttemptStore throttles failed logins per (username, source IP),
// independently of the per-account lockout counter.
type LoginAttemptStore interface {
	// Blocked reports whether key is out of attempts at now and how long until
	// the next attempt is allowed.
	Blocked(key string, now time.Time) (bool, time.Duration)

	// Hit records one failed attempt for key.
	Hit(key string, now time.Time)

	// Clear forgets key, e.g. after a successful login.
	Clear(key string)
}

type entry struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

type LoginLimiter struct {
	mu      sync.Mutex
	data    map[string]*entry
	limit   rate.Limit
	ceiling int
	window  time.Duration
}

// NewLoginLimiter allows ceiling failed attempts, refilled evenly over window.
func NewLoginLimiter(ceiling int, window time.Duration) *LoginLimiter {
	return &LoginLimiter{
		data:    make(map[string]*entry),
		limit:   rate.Every(window / time.Duration(ceiling)),
		ceiling: ceiling,
		window:  window,
	}
}

func LoginKey(username, ip string) string {
	return strings.ToLower(strings.TrimSpace(username)) + "|" + ip
}

func (s *LoginLimiter) get(key string, now time.Time) *entry {
	e, ok := s.data[key]
	if !ok {
		e = &entry{limiter: rate.NewLimiter(s.limit, s.ceiling)}
		s.data[key] = e
	}
	e.lastSeen = now
	return e
}

func (s *LoginLimiter) Blocked(key string, now time.Time) (bool, time.Duration) {
	s.mu.Lock()
	defer s.mu.Unlock()

	e, ok := s.data[key]
	if !ok {
		return false, 0
	}
	tokens := e.limiter.TokensAt(now)
	if tokens >= 1 {
		return false, 0
	}
	wait := time.Duration((1 - tokens) / float64(s.limit) * float64(time.Second))
	return true, wait
}

func (s *LoginLimiter) Hit(key string, now time.Time) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.evictIdle(now)
	s.get(key, now).limiter.AllowN(now, 1)
}

func (s *LoginLimiter) Clear(key string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.data, key)
}

// evictIdle drops keys whose bucket has fully refilled.
func (s *LoginLimiter) evictIdle(now time.Time) {
	for k, e := range s.data {
		if now.Sub(e.lastSeen) > s.window {
			delete(s.data, k)
		}
	}
}
