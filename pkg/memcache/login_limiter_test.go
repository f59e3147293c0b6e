package mem

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestLoginLimiterBlocksAfterCeiling(t *testing.T) {
	now := time.Date(2025, 7, 7, 10, 0, 0, 0, time.UTC)
	l := NewLoginLimiter(5, time.Minute)
	key := LoginKey("Alice@Example.com", "10.0.0.1")

	for i := 0; i < 5; i++ {
		blocked, _ := l.Blocked(key, now)
		assert.False(t, blocked, "attempt %d should be allowed", i+1)
		l.Hit(key, now)
	}

	blocked, wait := l.Blocked(key, now)
	assert.True(t, blocked)
	assert.InDelta(t, float64(12*time.Second), float64(wait), float64(time.Millisecond))

	// one attempt refills after window/ceiling (12s)
	blocked, _ = l.Blocked(key, now.Add(13*time.Second))
	assert.False(t, blocked)
}

func TestLoginLimiterKeysAreIndependent(t *testing.T) {
	now := time.Now()
	l := NewLoginLimiter(2, time.Minute)

	a := LoginKey("alice", "10.0.0.1")
	b := LoginKey("alice", "10.0.0.2")
	l.Hit(a, now)
	l.Hit(a, now)

	blocked, _ := l.Blocked(a, now)
	assert.True(t, blocked)
	blocked, _ = l.Blocked(b, now)
	assert.False(t, blocked)
}

func TestLoginLimiterClear(t *testing.T) {
	now := time.Now()
	l := NewLoginLimiter(1, time.Minute)
	key := LoginKey("bob", "127.0.0.1")

	l.Hit(key, now)
	blocked, _ := l.Blocked(key, now)
	assert.True(t, blocked)

	l.Clear(key)
	blocked, _ = l.Blocked(key, now)
	assert.False(t, blocked)
}

func TestLoginKeyNormalizesUsername(t *testing.T) {
	assert.Equal(t, LoginKey(" BOB ", "1.2.3.4"), LoginKey("bob", "1.2.3.4"))
}

func TestLoginLimiterEvictsIdleKeys(t *testing.T) {
	now := time.Now()
	l := NewLoginLimiter(1, time.Minute)
	l.Hit(LoginKey("old", "1.1.1.1"), now)
	l.Hit(LoginKey("new", "1.1.1.1"), now.Add(2*time.Minute))

	l.mu.Lock()
	defer l.mu.Unlock()
	assert.Len(t, l.data, 1)
}
