package cache

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/mdabushayem62/plex-playlists-sub003/model"

	"github.com/go-redis/redis/v8"
)

// hotTTL bounds how long a genre entry stays in Redis before the next read
// falls through to MySQL again. Kept short; MySQL owns the real 90-day TTL.
const hotTTL = time.Hour

// GenreHotCache is a Redis read-through layer in front of the persistent
// genre cache, so generation-time lookups stay local and cheap.
type GenreHotCache struct {
	client *redis.Client
}

// NewGenreHotCache creates a GenreHotCache. A nil client disables the layer;
// every call becomes a miss or a no-op.
func NewGenreHotCache(client *redis.Client) *GenreHotCache {
	return &GenreHotCache{client: client}
}

// genreKey builds the Redis key for a cache entry.
func genreKey(artistKey, albumKey string) string {
	if albumKey == "" {
		return fmt.Sprintf("genre:artist:%s", artistKey)
	}
	return fmt.Sprintf("genre:album:%s:%s", artistKey, albumKey)
}

// Get returns the cached entry, or (nil, nil) on a miss.
func (c *GenreHotCache) Get(ctx context.Context, artistKey, albumKey string) (*model.GenreCacheEntry, error) {
	if c.client == nil {
		return nil, nil
	}

	data, err := c.client.Get(ctx, genreKey(artistKey, albumKey)).Bytes()
	if err != nil {
		if err == redis.Nil {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get genre entry from redis: %w", err)
	}

	var entry model.GenreCacheEntry
	if err := json.Unmarshal(data, &entry); err != nil {
		return nil, fmt.Errorf("failed to unmarshal genre entry: %w", err)
	}
	return &entry, nil
}

// Set stores the entry under its key pair.
func (c *GenreHotCache) Set(ctx context.Context, entry *model.GenreCacheEntry) error {
	if c.client == nil {
		return nil
	}

	data, err := json.Marshal(entry)
	if err != nil {
		return fmt.Errorf("failed to marshal genre entry: %w", err)
	}

	err = c.client.Set(ctx, genreKey(entry.ArtistKey, entry.AlbumKey), data, hotTTL).Err()
	if err != nil {
		return fmt.Errorf("failed to set genre entry in redis: %w", err)
	}
	return nil
}

// Invalidate drops the artist-level key and, when albumKey is non-empty, the
// album-level key too. Used after a background refresh rewrites MySQL.
func (c *GenreHotCache) Invalidate(ctx context.Context, artistKey, albumKey string) error {
	if c.client == nil {
		return nil
	}

	keys := []string{genreKey(artistKey, "")}
	if albumKey != "" {
		keys = append(keys, genreKey(artistKey, albumKey))
	}
	if err := c.client.Del(ctx, keys...).Err(); err != nil {
		return fmt.Errorf("failed to invalidate genre entry in redis: %w", err)
	}
	return nil
}
