package scoring

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestRecencyWeight(t *testing.T) {
	now := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)

	t.Run("never played weighs 1", func(t *testing.T) {
		assert.Equal(t, 1.0, RecencyWeight(nil, now, 7))
	})

	t.Run("played right now weighs 1", func(t *testing.T) {
		assert.Equal(t, 1.0, RecencyWeight(&now, now, 7))
	})

	t.Run("strictly decreasing with age", func(t *testing.T) {
		prev := 1.1
		for days := 0; days <= 120; days += 3 {
			played := now.AddDate(0, 0, -days)
			w := RecencyWeight(&played, now, 7)
			assert.Less(t, w, prev, "weight must strictly decrease at %d days", days)
			prev = w
		}
	})

	t.Run("half life halves the weight", func(t *testing.T) {
		played := now.AddDate(0, 0, -7)
		assert.InDelta(t, 0.5, RecencyWeight(&played, now, 7), 1e-9)
	})

	t.Run("non-positive half life is a step function", func(t *testing.T) {
		past := now.AddDate(0, 0, -1)
		assert.Equal(t, 0.0, RecencyWeight(&past, now, 0))
		assert.Equal(t, 1.0, RecencyWeight(&now, now, 0))
		assert.Equal(t, 0.0, RecencyWeight(&past, now, -3))
	})
}

func TestNormalizeStarRating(t *testing.T) {
	assert.Equal(t, 0.5, NormalizeStarRating(0, false), "unrated defaults to neutral")
	assert.Equal(t, 0.0, NormalizeStarRating(0, true))
	assert.Equal(t, 1.0, NormalizeStarRating(5, true))
	assert.Equal(t, 0.8, NormalizeStarRating(4, true))
	assert.Equal(t, 1.0, NormalizeStarRating(9, true), "clamps above 5 stars")
	assert.Equal(t, 0.0, NormalizeStarRating(-1, true), "clamps below 0 stars")
}

func TestNormalizePlayCount(t *testing.T) {
	t.Run("monotonic non-decreasing", func(t *testing.T) {
		prev := -1.0
		for count := uint(0); count <= 60; count++ {
			v := NormalizePlayCount(count, 25)
			assert.GreaterOrEqual(t, v, prev)
			prev = v
		}
	})

	t.Run("saturates at the configured count", func(t *testing.T) {
		assert.Equal(t, 1.0, NormalizePlayCount(25, 25))
		assert.Equal(t, 1.0, NormalizePlayCount(500, 25))
		assert.InDelta(t, 0.4, NormalizePlayCount(10, 25), 1e-9)
	})
}

func TestSkipPenalty(t *testing.T) {
	assert.Equal(t, 1.0, SkipPenalty(0, 0), "no data means no penalty")
	assert.Equal(t, 1.0, SkipPenalty(0, 10))
	assert.InDelta(t, 0.75, SkipPenalty(5, 10), 1e-9)
	assert.InDelta(t, 0.5, SkipPenalty(10, 10), 1e-9)
	assert.InDelta(t, 0.5, SkipPenalty(30, 10), 1e-9, "penalty is capped")
}

func TestSpacingPenalty(t *testing.T) {
	now := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)

	assert.Equal(t, 1.0, spacingPenalty(nil, now, ArtistSpacingHours, ArtistSpacingFloor))

	justNow := now.Add(-time.Minute)
	assert.InDelta(t, ArtistSpacingFloor, spacingPenalty(&justNow, now, ArtistSpacingHours, ArtistSpacingFloor), 0.01)

	longAgo := now.Add(-24 * time.Hour)
	assert.Equal(t, 1.0, spacingPenalty(&longAgo, now, ArtistSpacingHours, ArtistSpacingFloor))
}

func TestOverlapFraction(t *testing.T) {
	assert.Equal(t, 0.0, overlapFraction(nil, []string{"rock"}))
	assert.Equal(t, 0.0, overlapFraction([]string{"rock"}, nil))
	assert.Equal(t, 1.0, overlapFraction([]string{"Rock", "jazz"}, []string{"rock"}))
	assert.Equal(t, 0.5, overlapFraction([]string{"rock"}, []string{"rock", "jazz"}))
}
