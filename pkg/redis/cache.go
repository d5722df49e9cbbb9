package redis

import (
	"context"
	"encoding/json"
	"fmt"
	"time"
)

// Cache provides typed, best-effort caching on top of the client. Loss
// of every cache entry must never change correctness, only latency, so
// read failures report a miss and write failures are swallowed by
// callers.
type Cache struct {
	client *Client
	prefix string
}

// NewCache creates a new cache helper.
func NewCache(client *Client, prefix string) *Cache {
	return &Cache{
		client: client,
		prefix: prefix,
	}
}

// Get retrieves a cached value into dest. A missing key, a disabled
// client, and a transport failure all report (false, nil).
func (c *Cache) Get(ctx context.Context, key string, dest interface{}) (bool, error) {
	if !c.client.Enabled() {
		return false, nil
	}

	fullKey := fmt.Sprintf("%s:cache:%s", c.prefix, key)
	data, err := c.client.Redis().Get(ctx, fullKey).Bytes()
	if err != nil {
		return false, nil
	}

	if err := json.Unmarshal(data, dest); err != nil {
		return false, fmt.Errorf("cache unmarshal failed: %w", err)
	}

	return true, nil
}

// Set stores a value with TTL.
func (c *Cache) Set(ctx context.Context, key string, value interface{}, ttl time.Duration) error {
	if !c.client.Enabled() {
		return nil
	}

	data, err := json.Marshal(value)
	if err != nil {
		return fmt.Errorf("cache marshal failed: %w", err)
	}

	fullKey := fmt.Sprintf("%s:cache:%s", c.prefix, key)
	return c.client.Redis().Set(ctx, fullKey, data, ttl).Err()
}

// Delete removes a cached value.
func (c *Cache) Delete(ctx context.Context, key string) error {
	if !c.client.Enabled() {
		return nil
	}

	fullKey := fmt.Sprintf("%s:cache:%s", c.prefix, key)
	return c.client.Redis().Del(ctx, fullKey).Err()
}

// Cache key generators. Keys are namespaced by data kind so per-kind
// TTLs never interfere with each other.

func SignalKey(symbol string) string {
	return fmt.Sprintf("signal:%s", symbol)
}

func PricesKey(symbol string) string {
	return fmt.Sprintf("prices:%s", symbol)
}

func FundamentalsKey(symbol string) string {
	return fmt.Sprintf("fundamentals:%s", symbol)
}

func IndicatorsKey(symbol string) string {
	return fmt.Sprintf("indicators:%s", symbol)
}

func TopSignalsKey(market, signalType string, limit int) string {
	return fmt.Sprintf("top_signals:%s:%s:%d", market, signalType, limit)
}
