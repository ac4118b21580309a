package repository

import (
	"errors"
	"fmt"
	"time"

	"github.com/mdabushayem62/plex-playlists-sub003/model"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// GenreCacheRepository defines persistence for genre/mood cache entries.
type GenreCacheRepository interface {
	// Upsert fully replaces the row for the entry's key pair.
	Upsert(entry *model.GenreCacheEntry) error
	// Get returns the entry for the key pair, or (nil, nil) if absent.
	// Use an empty albumKey for artist-level entries.
	Get(artistKey, albumKey string) (*model.GenreCacheEntry, error)
	// TouchLastUsed updates last_used_at for every entry of the artist.
	TouchLastUsed(artistKey string, usedAt time.Time) error
	// RefreshCandidates returns entries expiring before the horizon, most
	// recently used first, so maintenance refreshes what still matters.
	RefreshCandidates(horizon time.Time, limit int) ([]model.GenreCacheEntry, error)
	// PurgeExpired deletes entries already past their TTL.
	PurgeExpired(now time.Time) (int64, error)
	// Stats summarizes cache contents.
	Stats(now time.Time) (*model.CacheStats, error)
}

type gormGenreCacheRepository struct {
	db *gorm.DB
}

// NewGenreCacheRepository creates a GORM-backed GenreCacheRepository.
func NewGenreCacheRepository(db *gorm.DB) GenreCacheRepository {
	return &gormGenreCacheRepository{db: db}
}

func (r *gormGenreCacheRepository) Upsert(entry *model.GenreCacheEntry) error {
	err := r.db.Clauses(clause.OnConflict{
		Columns: []clause.Column{{Name: "artist_key"}, {Name: "album_key"}},
		DoUpdates: clause.AssignmentColumns([]string{
			"genres", "moods", "source", "cached_at", "expires_at", "last_used_at",
		}),
	}).Create(entry).Error
	if err != nil {
		return fmt.Errorf("failed to upsert genre cache entry for %q/%q: %w", entry.ArtistKey, entry.AlbumKey, err)
	}
	return nil
}

func (r *gormGenreCacheRepository) Get(artistKey, albumKey string) (*model.GenreCacheEntry, error) {
	var entry model.GenreCacheEntry
	err := r.db.Where("artist_key = ? AND album_key = ?", artistKey, albumKey).First(&entry).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to query genre cache entry for %q/%q: %w", artistKey, albumKey, err)
	}
	return &entry, nil
}

func (r *gormGenreCacheRepository) TouchLastUsed(artistKey string, usedAt time.Time) error {
	err := r.db.Model(&model.GenreCacheEntry{}).
		Where("artist_key = ?", artistKey).
		Update("last_used_at", usedAt).Error
	if err != nil {
		return fmt.Errorf("failed to touch last_used_at for %q: %w", artistKey, err)
	}
	return nil
}

func (r *gormGenreCacheRepository) RefreshCandidates(horizon time.Time, limit int) ([]model.GenreCacheEntry, error) {
	var entries []model.GenreCacheEntry
	err := r.db.Where("expires_at < ?", horizon).
		Order("last_used_at IS NULL, last_used_at DESC").
		Limit(limit).
		Find(&entries).Error
	if err != nil {
		return nil, fmt.Errorf("failed to query refresh candidates: %w", err)
	}
	return entries, nil
}

func (r *gormGenreCacheRepository) PurgeExpired(now time.Time) (int64, error) {
	res := r.db.Where("expires_at < ?", now).Delete(&model.GenreCacheEntry{})
	if res.Error != nil {
		return 0, fmt.Errorf("failed to purge expired genre cache entries: %w", res.Error)
	}
	return res.RowsAffected, nil
}

func (r *gormGenreCacheRepository) Stats(now time.Time) (*model.CacheStats, error) {
	stats := &model.CacheStats{BySource: make(map[string]int64)}

	if err := r.db.Model(&model.GenreCacheEntry{}).Count(&stats.TotalEntries).Error; err != nil {
		return nil, fmt.Errorf("failed to count genre cache entries: %w", err)
	}

	type sourceCount struct {
		Source string
		N      int64
	}
	var bySource []sourceCount
	err := r.db.Model(&model.GenreCacheEntry{}).
		Select("source, COUNT(*) AS n").
		Group("source").
		Scan(&bySource).Error
	if err != nil {
		return nil, fmt.Errorf("failed to count genre cache entries by source: %w", err)
	}
	for _, sc := range bySource {
		stats.BySource[sc.Source] = sc.N
	}

	if err := r.db.Model(&model.GenreCacheEntry{}).Where("expires_at < ?", now).Count(&stats.ExpiredEntries).Error; err != nil {
		return nil, fmt.Errorf("failed to count expired genre cache entries: %w", err)
	}
	if err := r.db.Model(&model.GenreCacheEntry{}).
		Where("expires_at >= ? AND expires_at < ?", now, now.Add(7*24*time.Hour)).
		Count(&stats.ExpiringIn7d).Error; err != nil {
		return nil, fmt.Errorf("failed to count entries expiring in 7d: %w", err)
	}
	if err := r.db.Model(&model.GenreCacheEntry{}).
		Where("expires_at >= ? AND expires_at < ?", now, now.Add(30*24*time.Hour)).
		Count(&stats.ExpiringIn30d).Error; err != nil {
		return nil, fmt.Errorf("failed to count entries expiring in 30d: %w", err)
	}

	return stats, nil
}
