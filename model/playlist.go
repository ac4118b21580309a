package model

import "time"

// Playlist is a generated playlist persisted locally after creation on the
// media server.
type Playlist struct {
	ID            int64           `json:"id" gorm:"primaryKey;autoIncrement"`
	ExternalID    string          `json:"externalId" gorm:"size:36;uniqueIndex"` // uuid
	PlexRatingKey string          `json:"plexRatingKey" gorm:"size:32"`
	Title         string          `json:"title" gorm:"size:255"`
	Window        string          `json:"window" gorm:"column:time_window;size:32"` // morning, afternoon, evening, discovery, throwback...
	Strategy      string          `json:"strategy" gorm:"size:32"`
	TrackCount    int             `json:"trackCount"`
	Tracks        []PlaylistTrack `json:"tracks" gorm:"foreignKey:PlaylistID"`
	CreatedAt     time.Time       `json:"createdAt"`
	UpdatedAt     time.Time       `json:"updatedAt"`
}

// TableName keeps the legacy table name.
func (Playlist) TableName() string {
	return "playlists"
}

// PlaylistTrack is one selected track within a saved playlist. BreakdownJSON
// is the optional serialized ScoreBreakdown captured at selection time.
type PlaylistTrack struct {
	ID            int64     `json:"id" gorm:"primaryKey;autoIncrement"`
	PlaylistID    int64     `json:"playlistId" gorm:"index"`
	Position      int       `json:"position"`
	RatingKey     string    `json:"ratingKey" gorm:"size:32"`
	Title         string    `json:"title" gorm:"size:255"`
	Artist        string    `json:"artist" gorm:"size:255"`
	Album         string    `json:"album" gorm:"size:255"`
	Score         float64   `json:"score"`
	BreakdownJSON string    `json:"breakdownJson,omitempty" gorm:"type:text"`
	CreatedAt     time.Time `json:"createdAt"`
}

// TableName keeps the legacy table name.
func (PlaylistTrack) TableName() string {
	return "playlist_tracks"
}
