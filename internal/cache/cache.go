// Package cache holds the filter-options cache used by the catalog service.
// Redis is used when configured; otherwise an in-process cache is used.
package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/go-redis/redis/v8"

	"gamecatalog/pkg/models"
)

const filterOptionsKey = "gamecatalog:filter-options"

// NewRedisClient connects to addr and verifies the connection with PING.
func NewRedisClient(ctx context.Context, addr, password string, db int) (*redis.Client, error) {
	if addr == "" {
		return nil, fmt.Errorf("redis address not set")
	}
	client := redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: password,
		DB:       db,
	})

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := client.Ping(pingCtx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("connect redis: %w", err)
	}
	return client, nil
}

type Redis struct {
	client *redis.Client
	ttl    time.Duration
	key    string
}

func NewRedis(client *redis.Client, ttl time.Duration) *Redis {
	return &Redis{client: client, ttl: ttl, key: filterOptionsKey}
}

func (r *Redis) Get(ctx context.Context) (*models.FilterOptions, bool, error) {
	b, err := r.client.Get(ctx, r.key).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("redis get: %w", err)
	}
	var opts models.FilterOptions
	if err := json.Unmarshal(b, &opts); err != nil {
		return nil, false, fmt.Errorf("decode cached options: %w", err)
	}
	return &opts, true, nil
}

func (r *Redis) Set(ctx context.Context, opts *models.FilterOptions) error {
	b, err := json.Marshal(opts)
	if err != nil {
		return fmt.Errorf("encode options: %w", err)
	}
	if err := r.client.Set(ctx, r.key, b, r.ttl).Err(); err != nil {
		return fmt.Errorf("redis set: %w", err)
	}
	return nil
}

func (r *Redis) Invalidate(ctx context.Context) error {
	if err := r.client.Del(ctx, r.key).Err(); err != nil {
		return fmt.Errorf("redis del: %w", err)
	}
	return nil
}

// Memory is a single-process cache with the same contract as Redis.
type Memory struct {
	mu      sync.Mutex
	ttl     time.Duration
	now     func() time.Time
	value   *models.FilterOptions
	expires time.Time
}

func NewMemory(ttl time.Duration) *Memory {
	return &Memory{ttl: ttl, now: time.Now}
}

func (m *Memory) Get(context.Context) (*models.FilterOptions, bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.value == nil || (m.ttl > 0 && !m.now().Before(m.expires)) {
		return nil, false, nil
	}
	return cloneOptions(m.value), true, nil
}

func (m *Memory) Set(_ context.Context, opts *models.FilterOptions) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.value = cloneOptions(opts)
	m.expires = m.now().Add(m.ttl)
	return nil
}

func (m *Memory) Invalidate(context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.value = nil
	return nil
}

func cloneOptions(o *models.FilterOptions) *models.FilterOptions {
	if o == nil {
		return nil
	}
	return &models.FilterOptions{
		Genres:     append([]string{}, o.Genres...),
		Platforms:  append([]string{}, o.Platforms...),
		Developers: append([]string{}, o.Developers...),
	}
}
