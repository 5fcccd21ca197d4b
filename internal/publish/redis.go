package publish

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"sync"
	"time"

	"github.com/go-redis/redis/v8"

	"github.com/corvid-data/proximity.report/internal/mmwave/pipeline"
)

// Cache keeps the latest frame summary in a redis key so dashboards can
// poll current state without touching the service. Like Publisher it is a
// no-op sink until connected.
type Cache struct {
	key string
	ttl time.Duration

	mutex   sync.Mutex
	client  *redis.Client
	enabled bool

	now func() time.Time
}

var _ pipeline.ResultSink = (*Cache)(nil)

// NewCache builds a disconnected cache writing to key with the given TTL.
// A zero ttl keeps the key until the next frame overwrites it.
func NewCache(key string, ttl time.Duration) *Cache {
	return &Cache{
		key: key,
		ttl: ttl,
		now: time.Now,
	}
}

// Connect dials redis and verifies the connection with a ping.
func (c *Cache) Connect(ctx context.Context, addr string) error {
	c.mutex.Lock()
	defer c.mutex.Unlock()

	client := redis.NewClient(&redis.Options{Addr: addr})
	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		c.enabled = false
		return fmt.Errorf("failed to connect to redis: %w", err)
	}

	c.client = client
	c.enabled = true
	log.Printf("redis connected: %s", addr)
	return nil
}

// ConsumeResult overwrites the cached summary with this frame's.
func (c *Cache) ConsumeResult(ctx context.Context, res *pipeline.FrameResult) error {
	c.mutex.Lock()
	defer c.mutex.Unlock()

	if !c.enabled || c.client == nil {
		return nil
	}

	jsonData, err := json.Marshal(newFrameSummary(res, c.now().UnixMilli()))
	if err != nil {
		return fmt.Errorf("failed to marshal cache payload: %w", err)
	}

	if err := c.client.Set(ctx, c.key, jsonData, c.ttl).Err(); err != nil {
		return fmt.Errorf("failed to cache latest frame: %w", err)
	}
	return nil
}

// Latest reads the cached summary back. Returns nil with no error when the
// key is missing or expired.
func (c *Cache) Latest(ctx context.Context) (*FrameSummary, error) {
	c.mutex.Lock()
	defer c.mutex.Unlock()

	if !c.enabled || c.client == nil {
		return nil, fmt.Errorf("not connected to redis")
	}

	data, err := c.client.Get(ctx, c.key).Bytes()
	if err == redis.Nil {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read cached frame: %w", err)
	}

	var summary FrameSummary
	if err := json.Unmarshal(data, &summary); err != nil {
		return nil, fmt.Errorf("failed to decode cached frame: %w", err)
	}
	return &summary, nil
}

// Close releases the client. Further writes no-op.
func (c *Cache) Close() {
	c.mutex.Lock()
	defer c.mutex.Unlock()

	if c.client != nil {
		c.client.Close()
		c.client = nil
		c.enabled = false
		log.Printf("redis disconnected")
	}
}
