package model

import (
	"strings"
	"time"
)

// GenreSource identifies where a cache entry's genres/moods came from.
type GenreSource string

const (
	SourceSpotify  GenreSource = "spotify"
	SourceLastFM   GenreSource = "lastfm"
	SourceEmbedded GenreSource = "embedded"
	SourceManual   GenreSource = "manual"
)

// GenreCacheEntry is one cached genre/mood lookup, keyed by normalized artist
// name, or by artist+album for album-level entries. At most one row exists per
// key pair; writes are upserts that fully replace the row.
type GenreCacheEntry struct {
	ID         int64       `json:"id" gorm:"primaryKey;autoIncrement"`
	ArtistKey  string      `json:"artistKey" gorm:"size:255;uniqueIndex:idx_genre_cache_key,priority:1"`
	AlbumKey   string      `json:"albumKey" gorm:"size:255;uniqueIndex:idx_genre_cache_key,priority:2"` // empty for artist-level entries
	Genres     StringList  `json:"genres" gorm:"type:text"`
	Moods      StringList  `json:"moods" gorm:"type:text"`
	Source     GenreSource `json:"source" gorm:"size:16"`
	CachedAt   time.Time   `json:"cachedAt"`
	ExpiresAt  time.Time   `json:"expiresAt" gorm:"index"`
	LastUsedAt *time.Time  `json:"lastUsedAt" gorm:"index"`
}

// TableName keeps the legacy table name.
func (GenreCacheEntry) TableName() string {
	return "genre_cache"
}

// Expired reports whether the entry is past its TTL at the given instant.
func (e *GenreCacheEntry) Expired(now time.Time) bool {
	return now.After(e.ExpiresAt)
}

// NormalizeCacheKey lowercases and trims a name for use as a cache key.
func NormalizeCacheKey(name string) string {
	return strings.ToLower(strings.TrimSpace(name))
}

// CacheStats summarizes cache contents for observability tooling.
type CacheStats struct {
	TotalEntries   int64            `json:"totalEntries"`
	BySource       map[string]int64 `json:"bySource"`
	ExpiredEntries int64            `json:"expiredEntries"`
	ExpiringIn7d   int64            `json:"expiringIn7d"`
	ExpiringIn30d  int64            `json:"expiringIn30d"`
}
