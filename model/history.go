package model

import "time"

// PlayEvent is one raw play record from the media server history.
type PlayEvent struct {
	RatingKey string    `json:"ratingKey"`
	ViewedAt  time.Time `json:"viewedAt"`
	AccountID int64     `json:"accountId"`
}

// TrackStats aggregates all play events for one track.
type TrackStats struct {
	RatingKey    string     `json:"ratingKey"`
	PlayCount    uint       `json:"playCount"`
	LastPlayedAt *time.Time `json:"lastPlayedAt,omitempty"`
}

// TrackMetadata is the library metadata for one track as returned by the
// media server. Rating is on the server's 0-10 scale; 0 means unrated.
type TrackMetadata struct {
	RatingKey    string     `json:"ratingKey"`
	Title        string     `json:"title"`
	Artist       string     `json:"artist"`
	Album        string     `json:"album"`
	Genres       []string   `json:"genres"` // embedded genre tags
	Moods        []string   `json:"moods"`
	Rating       float64    `json:"rating"`
	ViewCount    uint       `json:"viewCount"`
	SkipCount    uint       `json:"skipCount"`
	DurationMs   int64      `json:"durationMs"`
	AddedAt      *time.Time `json:"addedAt,omitempty"`
	LastViewedAt *time.Time `json:"lastViewedAt,omitempty"`
}
