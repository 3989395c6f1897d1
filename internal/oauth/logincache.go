package oauth

import (
	"sync"

	"github.com/craftedlabs/user-service/internal/domain"
)

// LoginCache remembers the login result produced for an authorization
// code so a re-fired callback replays the original response instead of
// re-exchanging a single-use code. Best effort and in-process only; it
// is not a distributed or durable idempotency guarantee.
type LoginCache struct {
	mu      sync.Mutex
	max     int
	results map[string]*domain.LoginResult
	order   []string
}

// NewLoginCache builds a cache bounded to max entries (default 1000).
func NewLoginCache(max int) *LoginCache {
	if max <= 0 {
		max = 1000
	}
	return &LoginCache{
		max:     max,
		results: make(map[string]*domain.LoginResult),
	}
}

// Get returns the cached result for the code, if any.
func (c *LoginCache) Get(code string) (*domain.LoginResult, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	result, ok := c.results[code]
	return result, ok
}

// Put stores the result for the code. Entries are never updated in
// place; the first write for a code wins. Exceeding the bound evicts
// the oldest-inserted half in one batch.
func (c *LoginCache) Put(code string, result *domain.LoginResult) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if _, exists := c.results[code]; exists {
		return
	}
	c.results[code] = result
	c.order = append(c.order, code)

	if len(c.order) > c.max {
		drop := len(c.order) / 2
		for _, old := range c.order[:drop] {
			delete(c.results, old)
		}
		c.order = append([]string(nil), c.order[drop:]...)
	}
}

// Len reports the current entry count.
func (c *LoginCache) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.results)
}
