// Package cache backs the Dependency Graph Builder's output cache
// (spec.md §4.2: "caches its output; invalidated only when source data
// changes"). It is deliberately a plain byte-oriented key/value cache so
// the graph package can serialize whatever shape it likes without this
// package needing to import it back.
package cache

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/qlp-hq/production-scheduler/internal/bundle"
	"github.com/qlp-hq/production-scheduler/internal/logger"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

// Cache is a byte-oriented get/set cache. Implementations must be safe for
// concurrent use even though the engine itself is single-threaded, since
// multiple scenario runs in internal/engine's RunAll execute concurrently
// (§A.5).
type Cache interface {
	Get(ctx context.Context, key string) ([]byte, bool)
	Set(ctx context.Context, key string, value []byte, ttl time.Duration)
}

// KeyForBundle derives a stable cache key from the parts of a bundle the
// Dependency Graph Builder actually consumes (tasks, quality links,
// precedence, late-part and rework edges). Team capacities and calendars do
// not affect the effective DAG and are deliberately excluded, so capacity
// mutations across scenario runs never invalidate the cache.
func KeyForBundle(b *bundle.DataBundle) string {
	h := sha256.New()

	ids := b.SortedTaskIDs()
	for _, id := range ids {
		t := b.Tasks[id]
		fmt.Fprintf(h, "task|%d|%d|%s|%d|%s|%d;", t.ID, t.DurationMin, t.TeamName, t.WorkersRequired, t.Kind, t.InspectsTaskID)
	}

	var primaryIDs []int
	for id := range b.QualityLinks {
		primaryIDs = append(primaryIDs, id)
	}
	sort.Ints(primaryIDs)
	for _, id := range primaryIDs {
		l := b.QualityLinks[id]
		fmt.Fprintf(h, "qlink|%d|%d|%d|%d;", l.PrimaryID, l.QualityID, l.QualityDuration, l.QualityWorkers)
	}

	for _, e := range b.Precedence {
		fmt.Fprintf(h, "prec|%d|%d|%s;", e.First, e.Second, e.Relation)
	}
	for _, e := range b.LatePartEdges {
		fmt.Fprintf(h, "late|%d|%d|%s|%s;", e.LatePartID, e.DependentID, e.OnDockDate.Format("2006-01-02"), e.ProductLine)
	}
	for _, e := range b.ReworkEdges {
		fmt.Fprintf(h, "rework|%d|%d|%s|%s;", e.ReworkID, e.DependentID, e.Relation, e.ProductLine)
	}

	return hex.EncodeToString(h.Sum(nil))
}

// InMemory is a sync.Map-backed Cache, used as the fallback when Redis is
// unreachable and in tests.
type InMemory struct {
	entries sync.Map // key -> inMemoryEntry
}

type inMemoryEntry struct {
	value   []byte
	expires time.Time
}

// NewInMemory constructs an empty in-process cache.
func NewInMemory() *InMemory { return &InMemory{} }

func (c *InMemory) Get(_ context.Context, key string) ([]byte, bool) {
	v, ok := c.entries.Load(key)
	if !ok {
		return nil, false
	}
	entry := v.(inMemoryEntry)
	if !entry.expires.IsZero() && time.Now().After(entry.expires) {
		c.entries.Delete(key)
		return nil, false
	}
	return entry.value, true
}

func (c *InMemory) Set(_ context.Context, key string, value []byte, ttl time.Duration) {
	var expires time.Time
	if ttl > 0 {
		expires = time.Now().Add(ttl)
	}
	c.entries.Store(key, inMemoryEntry{value: value, expires: expires})
}

// Redis is a go-redis-backed Cache with an in-memory fallback: any Redis
// error is logged and treated as a cache miss (or a best-effort, ignored
// write), since the DAG cache is a pure performance optimization — the
// builder can always recompute.
type Redis struct {
	client   *redis.Client
	fallback *InMemory
}

// NewRedis constructs a Redis-backed cache. addr is a "host:port" address;
// an empty addr disables Redis entirely and returns a cache that only uses
// the in-memory fallback.
func NewRedis(addr string) *Redis {
	r := &Redis{fallback: NewInMemory()}
	if addr == "" {
		return r
	}
	r.client = redis.NewClient(&redis.Options{Addr: addr})
	return r
}

func (r *Redis) Get(ctx context.Context, key string) ([]byte, bool) {
	if r.client == nil {
		return r.fallback.Get(ctx, key)
	}
	val, err := r.client.Get(ctx, key).Bytes()
	if err != nil {
		if err != redis.Nil {
			logger.WithComponent("dag-cache").Warn("redis get failed, falling back to in-memory cache", zap.Error(err))
		}
		return r.fallback.Get(ctx, key)
	}
	return val, true
}

func (r *Redis) Set(ctx context.Context, key string, value []byte, ttl time.Duration) {
	r.fallback.Set(ctx, key, value, ttl)
	if r.client == nil {
		return
	}
	if err := r.client.Set(ctx, key, value, ttl).Err(); err != nil {
		logger.WithComponent("dag-cache").Warn("redis set failed, cached in-memory only", zap.Error(err))
	}
}
