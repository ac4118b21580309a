package scoring

import (
	"math"
	"time"
)

// Scoring knobs. Boost caps are additive on top of a strategy's base score;
// penalties are multiplicative on the result.
const (
	MaxSkipPenalty = 0.5

	MaxGenreMatchBoost  = 0.15
	MaxMoodMatchBoost   = 0.10
	MaxTimeOfDayBoost   = 0.15
	MaxEnergyTempoBoost = 0.05
	MaxExplorationBoost = 0.20

	EnergyAlignmentWeight = 0.7
	TempoAlignmentWeight  = 0.3

	// Under-played / newly-added thresholds for the exploration boost.
	LowPlayThreshold   = 3
	NewlyAddedDays     = 30
	UnderPlayedBoost   = 0.10
	NewlyAddedBoost    = 0.10

	// Spacing penalties keep one artist or genre from dominating a session.
	ArtistSpacingHours      = 6.0
	ArtistSpacingFloor      = 0.7
	GenreSpacingHours       = 2.0
	GenreSpacingFloor       = 0.85

	// Cap on the play-count quality proxy used for unrated tracks.
	UnratedQualityProxyCap = 0.6

	RecencyPenaltyDays = 365.0
)

// RecencyWeight computes an exponential half-life decay for a track's last
// play. Never-played tracks weigh 1. A non-positive half-life degenerates to
// a step function: 1 when played at or after now, else 0.
func RecencyWeight(lastPlayed *time.Time, now time.Time, halfLifeDays float64) float64 {
	if lastPlayed == nil {
		return 1
	}
	days := DaysBetween(*lastPlayed, now)
	if halfLifeDays <= 0 {
		if days <= 0 {
			return 1
		}
		return 0
	}
	return math.Exp(-math.Ln2 / halfLifeDays * days)
}

// NormalizeStarRating maps a 0-5 star rating to [0,1]. Unrated tracks get a
// neutral 0.5 so rating neither helps nor hurts them.
func NormalizeStarRating(stars float64, rated bool) float64 {
	if !rated {
		return 0.5
	}
	if stars < 0 {
		stars = 0
	}
	if stars > 5 {
		stars = 5
	}
	return stars / 5
}

// NormalizePlayCount maps a play count to [0,1], saturating at the
// configured count.
func NormalizePlayCount(count uint, saturation int) float64 {
	if saturation <= 0 {
		saturation = 1
	}
	v := float64(count) / float64(saturation)
	if v > 1 {
		return 1
	}
	return v
}

// SkipPenalty returns a multiplicative penalty in [1-MaxSkipPenalty, 1] based
// on the skip/play ratio. Missing data means no penalty.
func SkipPenalty(skips, plays uint) float64 {
	if plays == 0 {
		return 1
	}
	penalty := float64(skips) / float64(plays) * MaxSkipPenalty
	if penalty > MaxSkipPenalty {
		penalty = MaxSkipPenalty
	}
	return 1 - penalty
}

// DaysBetween returns the fractional number of days from a to b, floored at 0.
func DaysBetween(a, b time.Time) float64 {
	days := b.Sub(a).Hours() / 24
	if days < 0 {
		return 0
	}
	return days
}

// spacingPenalty decays toward floor the more recently the artist or genre
// was played, recovering linearly over the spacing window.
func spacingPenalty(lastSeen *time.Time, now time.Time, windowHours, floor float64) float64 {
	if lastSeen == nil {
		return 1
	}
	hours := now.Sub(*lastSeen).Hours()
	if hours < 0 {
		hours = 0
	}
	if hours >= windowHours {
		return 1
	}
	return floor + (1-floor)*(hours/windowHours)
}

// clamp01 clamps v into [0,1].
func clamp01(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}

// overlapFraction returns the fraction of targets present in values,
// case-insensitively. Empty targets yield 0.
func overlapFraction(values, targets []string) float64 {
	if len(targets) == 0 || len(values) == 0 {
		return 0
	}
	set := make(map[string]struct{}, len(values))
	for _, v := range values {
		set[normalize(v)] = struct{}{}
	}
	matched := 0
	for _, t := range targets {
		if _, ok := set[normalize(t)]; ok {
			matched++
		}
	}
	return float64(matched) / float64(len(targets))
}
