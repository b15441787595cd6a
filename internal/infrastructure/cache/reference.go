package cache

import (
	"context"
	"fmt"
	"sync"
	"time"

	appmfg "github.com/erp/manufacturing/internal/application/manufacturing"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

const (
	referenceKeyPrefix = "mfg:ref:"
	// counters outlive their day so a late request near midnight still finds it
	referenceKeyTTL = 48 * time.Hour
)

func formatReference(prefix, day string, seq int64) string {
	return fmt.Sprintf("%s-%s-%04d", prefix, day, seq)
}

func referenceDay(t time.Time) string {
	return t.UTC().Format("20060102")
}

// RedisReferenceGenerator numbers documents with one INCR counter per prefix and day.
// Every process sharing the Redis server draws from the same sequence.
type RedisReferenceGenerator struct {
	client    *redis.Client
	keyPrefix string
	now       func() time.Time
}

// NewRedisReferenceGenerator creates a generator on an existing client
func NewRedisReferenceGenerator(client *redis.Client, keyPrefix string) *RedisReferenceGenerator {
	if keyPrefix == "" {
		keyPrefix = referenceKeyPrefix
	}
	return &RedisReferenceGenerator{client: client, keyPrefix: keyPrefix, now: time.Now}
}

// Next returns PREFIX-YYYYMMDD-NNNN
func (g *RedisReferenceGenerator) Next(ctx context.Context, prefix string) (string, error) {
	day := referenceDay(g.now())
	key := g.keyPrefix + prefix + ":" + day

	seq, err := g.client.Incr(ctx, key).Result()
	if err != nil {
		return "", fmt.Errorf("failed to increment reference counter: %w", err)
	}
	if seq == 1 {
		if err := g.client.Expire(ctx, key, referenceKeyTTL).Err(); err != nil {
			return "", fmt.Errorf("failed to set reference counter ttl: %w", err)
		}
	}
	return formatReference(prefix, day, seq), nil
}

// InMemoryReferenceGenerator keeps the counters in process memory.
// Sequences restart with the process, so it suits single instances and tests.
type InMemoryReferenceGenerator struct {
	mu       sync.Mutex
	counters map[string]int64
	now      func() time.Time
}

// NewInMemoryReferenceGenerator creates an in-memory generator
func NewInMemoryReferenceGenerator() *InMemoryReferenceGenerator {
	return &InMemoryReferenceGenerator{counters: make(map[string]int64), now: time.Now}
}

// Next returns PREFIX-YYYYMMDD-NNNN
func (g *InMemoryReferenceGenerator) Next(_ context.Context, prefix string) (string, error) {
	day := referenceDay(g.now())
	key := prefix + ":" + day

	g.mu.Lock()
	defer g.mu.Unlock()
	g.counters[key]++
	return formatReference(prefix, day, g.counters[key]), nil
}

// NewReferenceGenerator picks the backend named by configuration. The redis
// backend falls back to memory when no client is available.
func NewReferenceGenerator(backend string, client *redis.Client, logger *zap.Logger) appmfg.ReferenceGenerator {
	if logger == nil {
		logger = zap.NewNop()
	}
	if backend == "redis" {
		if client != nil {
			logger.Info("using Redis reference generator")
			return NewRedisReferenceGenerator(client, "")
		}
		logger.Warn("Redis unavailable, falling back to in-memory reference generator. " +
			"Document numbers restart when the process does.")
	}
	return NewInMemoryReferenceGenerator()
}

var (
	_ appmfg.ReferenceGenerator = (*RedisReferenceGenerator)(nil)
	_ appmfg.ReferenceGenerator = (*InMemoryReferenceGenerator)(nil)
)
