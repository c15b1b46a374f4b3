package memory

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/go-verify-api/internal/domain"
)

type tokenEntry struct {
	token     string
	expiresAt time.Time
	gen       uint64
	timer     *time.Timer
}

// TokenCache keeps access tokens by OAuth state. Every Put arms one eviction
// timer and stops the one armed by the previous Put for the same state, so an
// entry lives exactly ttl after its most recent insertion.
type TokenCache struct {
	mu      sync.Mutex
	entries map[string]*tokenEntry
	ttl     time.Duration
	gen     uint64
	nowF    func() time.Time
}

func NewTokenCache(ttl time.Duration) *TokenCache {
	return &TokenCache{
		entries: make(map[string]*tokenEntry),
		ttl:     ttl,
		nowF:    time.Now,
	}
}

func (c *TokenCache) Put(_ context.Context, state, token string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if old, ok := c.entries[state]; ok {
		old.timer.Stop()
	}
	c.gen++
	gen := c.gen
	c.entries[state] = &tokenEntry{
		token:     token,
		expiresAt: c.nowF().Add(c.ttl),
		gen:       gen,
		timer:     time.AfterFunc(c.ttl, func() { c.expire(state, gen) }),
	}
	return nil
}

// Take returns the token for state without consuming it.
func (c *TokenCache) Take(_ context.Context, state string) (string, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	e, ok := c.entries[state]
	if !ok {
		return "", fmt.Errorf("access token: %w", domain.ErrNotFound)
	}
	if !c.nowF().Before(e.expiresAt) {
		e.timer.Stop()
		delete(c.entries, state)
		return "", fmt.Errorf("access token expired: %w", domain.ErrNotFound)
	}
	return e.token, nil
}

// expire removes state only if it still holds the entry of insertion gen; a
// timer that lost the race with a newer Put is a no-op.
func (c *TokenCache) expire(state string, gen uint64) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if e, ok := c.entries[state]; ok && e.gen == gen {
		delete(c.entries, state)
	}
}

// Len returns the number of live entries.
func (c *TokenCache) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.entries)
}

// Close stops all pending eviction timers and empties the cache.
func (c *TokenCache) Close() {
	c.mu.Lock()
	defer c.mu.Unlock()
	for state, e := range c.entries {
		e.timer.Stop()
		delete(c.entries, state)
	}
}
