package model

import "time"

// ScoreBreakdown carries every sub-score that contributed to a candidate's
// final score. Informational only; persisted as a JSON blob alongside saved
// playlist tracks, never re-derived from storage.
type ScoreBreakdown struct {
	Strategy         string  `json:"strategy"`
	RecencyWeight    float64 `json:"recencyWeight"`
	RatingScore      float64 `json:"ratingScore"`
	PlayCountScore   float64 `json:"playCountScore"`
	FallbackScore    float64 `json:"fallbackScore"`
	GenreBoost       float64 `json:"genreBoost,omitempty"`
	MoodBoost        float64 `json:"moodBoost,omitempty"`
	TimeOfDayBoost   float64 `json:"timeOfDayBoost,omitempty"`
	EnergyTempoBoost float64 `json:"energyTempoBoost,omitempty"`
	ExplorationBoost float64 `json:"explorationBoost,omitempty"`
	SkipPenalty      float64 `json:"skipPenalty,omitempty"`
	ArtistPenalty    float64 `json:"artistPenalty,omitempty"`
	GenrePenalty     float64 `json:"genrePenalty,omitempty"`
	NostalgiaWeight  float64 `json:"nostalgiaWeight,omitempty"`
	PlayCountPenalty float64 `json:"playCountPenalty,omitempty"`
	RecencyPenalty   float64 `json:"recencyPenalty,omitempty"`
	FinalScore       float64 `json:"finalScore"`
}

// CandidateTrack is one library track under consideration for a playlist.
// Built fresh per selection run and discarded afterwards.
type CandidateTrack struct {
	RatingKey    string         `json:"ratingKey"`
	Title        string         `json:"title"`
	Artist       string         `json:"artist"`
	Album        string         `json:"album"`
	Genres       []string       `json:"genres"`
	Moods        []string       `json:"moods"`
	PlayCount    uint           `json:"playCount"`
	LastPlayedAt *time.Time     `json:"lastPlayedAt,omitempty"`
	FinalScore   float64        `json:"finalScore"`
	Breakdown    ScoreBreakdown `json:"breakdown"`
}
