package memory

import (
	"context"
	"math/rand"
	"strings"
	"sync"
	"time"

	"golang.org/x/sync/singleflight"

	"spelling-quiz-service/internal/app"
	"spelling-quiz-service/internal/domain"
)

// DefinitionCache keeps resolved definitions in process with a TTL, so repeated
// draws of the same word skip the dictionary round trip.
type DefinitionCache struct {
	lookup app.DefinitionLookup
	ttl    time.Duration
	clock  func() time.Time
	sf     singleflight.Group

	rndMu sync.Mutex
	rnd   *rand.Rand

	mu    sync.RWMutex
	cache map[string]cachedDefinition
}

type cachedDefinition struct {
	definition domain.Definition
	expiresAt  time.Time
}

func NewDefinitionCache(lookup app.DefinitionLookup, ttl time.Duration) *DefinitionCache {
	return &DefinitionCache{
		lookup: lookup,
		ttl:    ttl,
		clock:  time.Now,
		rnd:    rand.New(rand.NewSource(time.Now().UnixNano())),
		cache:  make(map[string]cachedDefinition),
	}
}

// Lookup returns a cached definition or resolves it through the wrapped lookup.
// Concurrent callers for the same word share one resolution, which runs detached
// from any single caller's cancellation; each caller stops waiting when its own
// ctx is done. Failures are never cached.
func (c *DefinitionCache) Lookup(ctx context.Context, word string) (domain.Definition, error) {
	key := strings.ToLower(word)

	if def, ok := c.cached(key); ok {
		return def, nil
	}

	shared := context.WithoutCancel(ctx)
	results := c.sf.DoChan(key, func() (interface{}, error) {
		if def, ok := c.cached(key); ok {
			return def, nil
		}

		def, err := c.lookup.Lookup(shared, word)
		if err != nil {
			return domain.Definition{}, err
		}

		c.mu.Lock()
		c.cache[key] = cachedDefinition{
			definition: def,
			expiresAt:  c.clock().Add(c.ttlWithJitter()),
		}
		c.mu.Unlock()
		return def, nil
	})

	select {
	case res := <-results:
		if res.Err != nil {
			return domain.Definition{}, res.Err
		}
		return res.Val.(domain.Definition), nil
	case <-ctx.Done():
		return domain.Definition{}, ctx.Err()
	}
}

func (c *DefinitionCache) cached(key string) (domain.Definition, bool) {
	now := c.clock()
	c.mu.RLock()
	defer c.mu.RUnlock()
	if entry, ok := c.cache[key]; ok && entry.expiresAt.After(now) {
		return entry.definition, true
	}
	return domain.Definition{}, false
}

func (c *DefinitionCache) ttlWithJitter() time.Duration {
	if c.ttl <= 0 {
		return 0
	}
	// add up to 10% jitter to spread expirations
	jitterMax := int64(c.ttl) / 10
	c.rndMu.Lock()
	defer c.rndMu.Unlock()
	return c.ttl + time.Duration(c.rnd.Int63n(jitterMax+1))
}
