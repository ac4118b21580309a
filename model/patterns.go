package model

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"
	"time"
)

// HourlyGenrePreference is one learned (hour, genre) weight.
type HourlyGenrePreference struct {
	Hour      int     `json:"hour"` // 0..23
	Genre     string  `json:"genre"`
	Weight    float64 `json:"weight"` // [0,1]
	PlayCount int     `json:"playCount"`
}

// HourlyPreferences stores the learned preference list as a JSON column.
type HourlyPreferences []HourlyGenrePreference

// Value implements driver.Valuer.
func (p HourlyPreferences) Value() (driver.Value, error) {
	if p == nil {
		return "[]", nil
	}
	b, err := json.Marshal([]HourlyGenrePreference(p))
	if err != nil {
		return nil, fmt.Errorf("failed to marshal hourly preferences: %w", err)
	}
	return string(b), nil
}

// Scan implements sql.Scanner.
func (p *HourlyPreferences) Scan(value interface{}) error {
	if value == nil {
		*p = nil
		return nil
	}

	var data []byte
	switch v := value.(type) {
	case []byte:
		data = v
	case string:
		data = []byte(v)
	default:
		return fmt.Errorf("unsupported type for hourly preferences: %T", value)
	}

	if len(data) == 0 {
		*p = nil
		return nil
	}
	return json.Unmarshal(data, (*[]HourlyGenrePreference)(p))
}

// UserPatterns is the single cached row of learned listening patterns.
// The analyzer overwrites it wholesale; partial updates are not supported.
type UserPatterns struct {
	ID                     int64             `json:"id" gorm:"primaryKey"`
	HourlyGenrePreferences HourlyPreferences `json:"hourlyGenrePreferences" gorm:"type:text"`
	PeakHours              IntList           `json:"peakHours" gorm:"type:text"` // top 3-5 hours by activity
	SessionsAnalyzed       int               `json:"sessionsAnalyzed"`
	AnalyzedFrom           time.Time         `json:"analyzedFrom"`
	AnalyzedTo             time.Time         `json:"analyzedTo"`
	CreatedAt              time.Time         `json:"createdAt"`
	ExpiresAt              time.Time         `json:"expiresAt"`
}

// TableName keeps the legacy table name.
func (UserPatterns) TableName() string {
	return "user_patterns"
}

// Expired reports whether the patterns row is past its TTL at the given instant.
func (p *UserPatterns) Expired(now time.Time) bool {
	return now.After(p.ExpiresAt)
}

// GenreWeightForHour returns the learned weight for a genre at an hour,
// or 0 if no preference was learned.
func (p *UserPatterns) GenreWeightForHour(hour int, genre string) float64 {
	key := NormalizeCacheKey(genre)
	for _, pref := range p.HourlyGenrePreferences {
		if pref.Hour == hour && NormalizeCacheKey(pref.Genre) == key {
			return pref.Weight
		}
	}
	return 0
}

// IntList stores a list of ints as a JSON column.
type IntList []int

// Value implements driver.Valuer.
func (l IntList) Value() (driver.Value, error) {
	if l == nil {
		return "[]", nil
	}
	b, err := json.Marshal([]int(l))
	if err != nil {
		return nil, fmt.Errorf("failed to marshal int list: %w", err)
	}
	return string(b), nil
}

// Scan implements sql.Scanner.
func (l *IntList) Scan(value interface{}) error {
	if value == nil {
		*l = nil
		return nil
	}

	var data []byte
	switch v := value.(type) {
	case []byte:
		data = v
	case string:
		data = []byte(v)
	default:
		return fmt.Errorf("unsupported type for int list: %T", value)
	}

	if len(data) == 0 {
		*l = nil
		return nil
	}
	return json.Unmarshal(data, (*[]int)(l))
}
