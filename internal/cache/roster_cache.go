// Package cache stores finished roster documents in redis so repeat reads
// of a day's plan skip the solver entirely.
package cache

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/go-redis/redis/v8"

	"github.com/metrorun/inductor/internal/induction"
)

const keyPrefix = "inductor:roster:"

// RosterCache implements induction.RosterStore on a redis client.
type RosterCache struct {
	client redis.UniversalClient
	ttl    time.Duration
}

// NewRosterCache wraps an existing client. TTL zero means no expiry.
func NewRosterCache(client redis.UniversalClient, ttl time.Duration) *RosterCache {
	return &RosterCache{client: client, ttl: ttl}
}

// Put stores the document under its roster day.
func (c *RosterCache) Put(ctx context.Context, day string, doc *induction.Document) error {
	data, err := json.Marshal(doc)
	if err != nil {
		return fmt.Errorf("failed to marshal roster document: %w", err)
	}
	if err := c.client.Set(ctx, keyPrefix+day, data, c.ttl).Err(); err != nil {
		return fmt.Errorf("failed to cache roster for %s: %w", day, err)
	}
	return nil
}

// Get returns the cached document for a day, or nil on a miss.
func (c *RosterCache) Get(ctx context.Context, day string) (*induction.Document, error) {
	data, err := c.client.Get(ctx, keyPrefix+day).Bytes()
	if err == redis.Nil {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read cached roster for %s: %w", day, err)
	}
	var doc induction.Document
	if err := json.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("failed to decode cached roster for %s: %w", day, err)
	}
	return &doc, nil
}
