package repository

import (
	"errors"
	"fmt"

	"github.com/mdabushayem62/plex-playlists-sub003/model"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// patternsRowID pins the patterns table to a single logical row.
const patternsRowID = 1

// PatternsRepository defines persistence for the learned-patterns row.
type PatternsRepository interface {
	// Get returns the patterns row, or (nil, nil) if none has been saved.
	Get() (*model.UserPatterns, error)
	// Save replaces the row wholesale. Last writer wins.
	Save(patterns *model.UserPatterns) error
}

type gormPatternsRepository struct {
	db *gorm.DB
}

// NewPatternsRepository creates a GORM-backed PatternsRepository.
func NewPatternsRepository(db *gorm.DB) PatternsRepository {
	return &gormPatternsRepository{db: db}
}

func (r *gormPatternsRepository) Get() (*model.UserPatterns, error) {
	var patterns model.UserPatterns
	err := r.db.Where("id = ?", patternsRowID).First(&patterns).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to query user patterns: %w", err)
	}
	return &patterns, nil
}

func (r *gormPatternsRepository) Save(patterns *model.UserPatterns) error {
	patterns.ID = patternsRowID
	err := r.db.Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "id"}},
		UpdateAll: true,
	}).Create(patterns).Error
	if err != nil {
		return fmt.Errorf("failed to save user patterns: %w", err)
	}
	return nil
}
