package redis

import (
	"context"
	"math/rand"
	"strings"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
	"golang.org/x/sync/singleflight"

	"spelling-quiz-service/internal/app"
	"spelling-quiz-service/internal/domain"
)

const (
	fieldMeaning      = "meaning"
	fieldPartOfSpeech = "part_of_speech"
	fieldPhonetic     = "phonetic"
)

// DefinitionCache caches resolved definitions in Redis (hash per word) and falls back
// to the wrapped lookup on a miss.
// Definitions are stored as: HSET definition:{word} meaning ... part_of_speech ... phonetic ...
type DefinitionCache struct {
	client *redis.Client
	lookup app.DefinitionLookup
	ttl    time.Duration
	sf     singleflight.Group

	rndMu sync.Mutex
	rnd   *rand.Rand
}

func NewDefinitionCache(client *redis.Client, lookup app.DefinitionLookup, ttl time.Duration) *DefinitionCache {
	return &DefinitionCache{
		client: client,
		lookup: lookup,
		ttl:    ttl,
		rnd:    rand.New(rand.NewSource(time.Now().UnixNano())),
	}
}

// Lookup serves a definition from Redis or resolves it through the wrapped lookup.
// The shared resolution is detached from the first caller's cancellation so one
// session going away cannot fail another session waiting on the same word.
func (c *DefinitionCache) Lookup(ctx context.Context, word string) (domain.Definition, error) {
	key := c.key(word)

	if def, ok := c.cached(ctx, key); ok {
		return def, nil
	}

	shared := context.WithoutCancel(ctx)
	results := c.sf.DoChan(key, func() (interface{}, error) {
		// Re-check cache in case another goroutine filled it.
		if def, ok := c.cached(shared, key); ok {
			return def, nil
		}

		def, err := c.lookup.Lookup(shared, word)
		if err != nil {
			return domain.Definition{}, err
		}

		ttl := c.ttlWithJitter()
		pipe := c.client.Pipeline()
		pipe.HSet(shared, key,
			fieldMeaning, def.Meaning,
			fieldPartOfSpeech, def.PartOfSpeech,
			fieldPhonetic, def.Phonetic,
		)
		if ttl > 0 {
			pipe.Expire(shared, key, ttl)
		}
		// best-effort write; the lookup result is still returned on failure
		_, _ = pipe.Exec(shared)

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

func (c *DefinitionCache) cached(ctx context.Context, key string) (domain.Definition, bool) {
	fields, err := c.client.HGetAll(ctx, key).Result()
	if err != nil || len(fields) == 0 {
		return domain.Definition{}, false
	}
	return domain.Definition{
		Meaning:      fields[fieldMeaning],
		PartOfSpeech: fields[fieldPartOfSpeech],
		Phonetic:     fields[fieldPhonetic],
	}, true
}

func (c *DefinitionCache) key(word string) string {
	return "definition:" + strings.ToLower(word)
}

func (c *DefinitionCache) ttlWithJitter() time.Duration {
	if c.ttl <= 0 {
		return 0
	}
	jitterMax := int64(c.ttl) / 10
	c.rndMu.Lock()
	defer c.rndMu.Unlock()
	return c.ttl + time.Duration(c.rnd.Int63n(jitterMax+1))
}
