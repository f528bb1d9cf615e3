// Package dedupe suppresses re-delivered anomaly records on the sink side.
package dedupe

import (
	"fmt"
	"sync"
	"time"

	"anomaly-engine/internal/anomaly"
)

// Cache remembers recently seen (subject, method, timestamp) triples. The
// detector republishes on retry and Kafka delivers at-least-once, so the
// sink sees duplicates under normal operation.
type Cache struct {
	mu   sync.Mutex
	ttl  time.Duration
	seen map[string]time.Time
	now  func() time.Time
}

func NewCache(ttl time.Duration) *Cache {
	if ttl <= 0 {
		ttl = 5 * time.Minute
	}
	return &Cache{
		ttl:  ttl,
		seen: make(map[string]time.Time),
		now:  time.Now,
	}
}

// Seen reports whether the anomaly was already recorded within the TTL and
// records it if not.
func (c *Cache) Seen(a anomaly.Anomaly) bool {
	key := fmt.Sprintf("%s|%s|%d", a.Subject, a.Method, a.Timestamp.UnixNano())

	c.mu.Lock()
	defer c.mu.Unlock()

	if at, ok := c.seen[key]; ok && c.now().Sub(at) < c.ttl {
		return true
	}
	c.seen[key] = c.now()
	return false
}

// StartCleanup evicts expired entries on a ticker until stop is closed.
func (c *Cache) StartCleanup(interval time.Duration, stop <-chan struct{}) {
	go func() {
		ticker := time.NewTicker(interval)
		defer ticker.Stop()
		for {
			select {
			case <-stop:
				return
			case <-ticker.C:
				now := c.now()
				c.mu.Lock()
				for key, at := range c.seen {
					if now.Sub(at) >= c.ttl {
						delete(c.seen, key)
					}
				}
				c.mu.Unlock()
			}
		}
	}()
}
