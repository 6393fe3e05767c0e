// Package redis caches remote search responses so repeated queries
// while online do not re-hit the wiki. The article cache itself lives in
// SQLite; this layer is optional and purely an accelerator.
package redis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/offcache/wikicache/internal/domain"
)

// DefaultSearchTTL is used when the configured TTL is zero.
const DefaultSearchTTL = 10 * time.Minute

// SearchCache stores remote search results with a TTL.
type SearchCache struct {
	client *redis.Client
	ttl    time.Duration
}

// NewSearchCache creates a search cache on an existing client.
func NewSearchCache(client *redis.Client, ttl time.Duration) *SearchCache {
	if ttl <= 0 {
		ttl = DefaultSearchTTL
	}
	return &SearchCache{client: client, ttl: ttl}
}

// Put caches the results for one (wiki, query, limit) request.
func (c *SearchCache) Put(ctx context.Context, wikiID int64, query string, limit int, results []*domain.Article) error {
	data, err := json.Marshal(results)
	if err != nil {
		return fmt.Errorf("failed to marshal search results: %w", err)
	}

	key := SearchKey(wikiID, strings.ToLower(query), limit)
	if err := c.client.Set(ctx, key, data, c.ttl).Err(); err != nil {
		return fmt.Errorf("failed to cache search results: %w", err)
	}
	return nil
}

// Get retrieves cached results. A cache miss returns (nil, nil).
func (c *SearchCache) Get(ctx context.Context, wikiID int64, query string, limit int) ([]*domain.Article, error) {
	key := SearchKey(wikiID, strings.ToLower(query), limit)
	data, err := c.client.Get(ctx, key).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, nil // cache miss
		}
		return nil, fmt.Errorf("failed to get cached search results: %w", err)
	}

	var results []*domain.Article
	if err := json.Unmarshal(data, &results); err != nil {
		return nil, fmt.Errorf("failed to unmarshal search results: %w", err)
	}
	return results, nil
}

// InvalidateWiki removes every cached search for one wiki. Called when
// the wiki is deleted or its configuration changes.
func (c *SearchCache) InvalidateWiki(ctx context.Context, wikiID int64) error {
	pattern := fmt.Sprintf("%s%d:*", KeyPrefixSearch, wikiID)
	iter := c.client.Scan(ctx, 0, pattern, 0).Iterator()
	for iter.Next(ctx) {
		if err := c.client.Del(ctx, iter.Val()).Err(); err != nil {
			return fmt.Errorf("failed to delete search cache key: %w", err)
		}
	}
	if err := iter.Err(); err != nil {
		return fmt.Errorf("failed to invalidate search cache: %w", err)
	}
	return nil
}

// Flush removes all cached searches.
func (c *SearchCache) Flush(ctx context.Context) error {
	iter := c.client.Scan(ctx, 0, KeyPrefixSearch+"*", 0).Iterator()
	for iter.Next(ctx) {
		if err := c.client.Del(ctx, iter.Val()).Err(); err != nil {
			return fmt.Errorf("failed to delete search cache key: %w", err)
		}
	}
	if err := iter.Err(); err != nil {
		return fmt.Errorf("failed to flush search cache: %w", err)
	}
	return nil
}
