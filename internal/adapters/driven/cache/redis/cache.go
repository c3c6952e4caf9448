// Package redis provides a shared embedding cache on Redis.
package redis

import (
	"context"
	"encoding/binary"
	"errors"
	"fmt"
	"math"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/custodia-labs/reverie/internal/adapters/driven/cache"
	"github.com/custodia-labs/reverie/internal/core/ports/driven"
)

var _ driven.EmbeddingCache = (*Cache)(nil)

// Cache stores vectors as little-endian float32 strings with a TTL.
type Cache struct {
	client redis.UniversalClient
	ttl    time.Duration
}

// New wraps an existing client. A non-positive ttl stores without expiry.
func New(client redis.UniversalClient, ttl time.Duration) *Cache {
	return &Cache{client: client, ttl: ttl}
}

// Dial connects to addr and verifies the server answers.
func Dial(ctx context.Context, addr string, ttl time.Duration) (*Cache, error) {
	client := redis.NewClient(&redis.Options{Addr: addr})
	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("connecting to redis at %s: %w", addr, err)
	}
	return New(client, ttl), nil
}

// Get returns the cached vector; a missing key is a miss, not an error.
func (c *Cache) Get(ctx context.Context, model, text string) ([]float32, bool, error) {
	raw, err := c.client.Get(ctx, cache.Key(model, text)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("redis get: %w", err)
	}
	if len(raw)%4 != 0 {
		return nil, false, fmt.Errorf("redis get: corrupt vector of %d bytes", len(raw))
	}
	return decode(raw), true, nil
}

// Set stores vector under the model/text key.
func (c *Cache) Set(ctx context.Context, model, text string, vector []float32) error {
	ttl := c.ttl
	if ttl < 0 {
		ttl = 0
	}
	if err := c.client.Set(ctx, cache.Key(model, text), encode(vector), ttl).Err(); err != nil {
		return fmt.Errorf("redis set: %w", err)
	}
	return nil
}

// Close closes the underlying client.
func (c *Cache) Close() error {
	return c.client.Close()
}

func encode(v []float32) []byte {
	buf := make([]byte, len(v)*4)
	for i, f := range v {
		binary.LittleEndian.PutUint32(buf[i*4:], math.Float32bits(f))
	}
	return buf
}

func decode(b []byte) []float32 {
	v := make([]float32, len(b)/4)
	for i := range v {
		v[i] = math.Float32frombits(binary.LittleEndian.Uint32(b[i*4:]))
	}
	return v
}
