// Package cache provides the TTL key-value cache used by the auth and
// encounter components. Values are stored as JSON snapshots, never live
// entity pointers, so readers always reconstruct the richer shape
// explicitly.
package cache

import (
	"encoding/json"
	"time"

	"github.com/viccon/sturdyc"
)

const (
	// EntityTTL bounds detail entries; they are normally invalidated
	// explicitly by the next write, the TTL is only a backstop.
	EntityTTL = time.Hour

	// ListTTL applies to list-result envelopes and the provider list.
	ListTTL = 5 * time.Minute

	// IdempotencyTTL applies to idempotency-key mappings. A key is never
	// relied upon after this window.
	IdempotencyTTL = 24 * time.Hour
)

const (
	defaultCapacity = 10000
	numShards       = 64
	evictionPercent = 10
)

// Config sizes the cache shards.
type Config struct {
	Capacity int
}

// Client is the process-wide cache. Separate sturdyc clients back each TTL
// class because sturdyc fixes the TTL per client.
type Client struct {
	entities *sturdyc.Client[[]byte]
	lists    *sturdyc.Client[[]byte]
	strings  *sturdyc.Client[string]
}

// New creates a cache client with the given capacity per TTL class.
func New(cfg Config) *Client {
	capacity := cfg.Capacity
	if capacity <= 0 {
		capacity = defaultCapacity
	}
	return &Client{
		entities: sturdyc.New[[]byte](capacity, numShards, EntityTTL, evictionPercent),
		lists:    sturdyc.New[[]byte](capacity, numShards, ListTTL, evictionPercent),
		strings:  sturdyc.New[string](capacity, numShards, IdempotencyTTL, evictionPercent),
	}
}

// SetString stores a raw string (idempotency-key mappings, 24h TTL).
func (c *Client) SetString(key, value string) {
	c.strings.Set(key, value)
}

// GetString returns a raw string entry, reporting whether it was present.
func (c *Client) GetString(key string) (string, bool) {
	return c.strings.Get(key)
}

// DeleteString drops a raw string entry. Used to discard stale idempotency
// mappings whose encounter no longer resolves.
func (c *Client) DeleteString(key string) {
	c.strings.Delete(key)
}

// DeleteEntity invalidates a single-entity snapshot.
func (c *Client) DeleteEntity(key string) {
	c.entities.Delete(key)
}

// SetEntity stores v as a JSON snapshot under key in the entity class.
// Marshal failures drop the write; the cache is an optimization, never the
// source of truth.
func SetEntity[T any](c *Client, key string, v T) {
	data, err := json.Marshal(v)
	if err != nil {
		return
	}
	c.entities.Set(key, data)
}

// GetEntity reconstructs an entity snapshot stored under key. A corrupt
// entry is treated as a miss.
func GetEntity[T any](c *Client, key string) (T, bool) {
	var out T
	data, ok := c.entities.Get(key)
	if !ok {
		return out, false
	}
	if err := json.Unmarshal(data, &out); err != nil {
		c.entities.Delete(key)
		return out, false
	}
	return out, true
}

// SetList stores a list-result envelope (or the provider list) under key.
func SetList[T any](c *Client, key string, v T) {
	data, err := json.Marshal(v)
	if err != nil {
		return
	}
	c.lists.Set(key, data)
}

// GetList reconstructs a list-result envelope stored under key.
func GetList[T any](c *Client, key string) (T, bool) {
	var out T
	data, ok := c.lists.Get(key)
	if !ok {
		return out, false
	}
	if err := json.Unmarshal(data, &out); err != nil {
		c.lists.Delete(key)
		return out, false
	}
	return out, true
}
