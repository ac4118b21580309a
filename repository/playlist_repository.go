package repository

import (
	"errors"
	"fmt"

	"github.com/mdabushayem62/plex-playlists-sub003/model"

	"gorm.io/gorm"
)

// PlaylistRepository defines persistence for generated playlists.
type PlaylistRepository interface {
	Create(playlist *model.Playlist) error
	GetByExternalID(externalID string) (*model.Playlist, error)
	ListRecent(limit int) ([]model.Playlist, error)
	// HasWindow reports whether any playlist exists for the named window.
	HasWindow(window string) (bool, error)
}

type gormPlaylistRepository struct {
	db *gorm.DB
}

// NewPlaylistRepository creates a GORM-backed PlaylistRepository.
func NewPlaylistRepository(db *gorm.DB) PlaylistRepository {
	return &gormPlaylistRepository{db: db}
}

func (r *gormPlaylistRepository) Create(playlist *model.Playlist) error {
	if err := r.db.Create(playlist).Error; err != nil {
		return fmt.Errorf("failed to create playlist %q: %w", playlist.Title, err)
	}
	return nil
}

func (r *gormPlaylistRepository) GetByExternalID(externalID string) (*model.Playlist, error) {
	var playlist model.Playlist
	err := r.db.Preload("Tracks", func(db *gorm.DB) *gorm.DB {
		return db.Order("position ASC")
	}).Where("external_id = ?", externalID).First(&playlist).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to query playlist %q: %w", externalID, err)
	}
	return &playlist, nil
}

func (r *gormPlaylistRepository) ListRecent(limit int) ([]model.Playlist, error) {
	var playlists []model.Playlist
	err := r.db.Order("created_at DESC").Limit(limit).Find(&playlists).Error
	if err != nil {
		return nil, fmt.Errorf("failed to list playlists: %w", err)
	}
	return playlists, nil
}

func (r *gormPlaylistRepository) HasWindow(window string) (bool, error) {
	var count int64
	err := r.db.Model(&model.Playlist{}).Where("time_window = ?", window).Count(&count).Error
	if err != nil {
		return false, fmt.Errorf("failed to count playlists for window %q: %w", window, err)
	}
	return count > 0, nil
}
