package scoring

import (
	"testing"
	"time"

	"github.com/mdabushayem62/plex-playlists-sub003/model"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func patternsWithPreference(hour int, genre string, weight float64) *model.UserPatterns {
	return &model.UserPatterns{
		HourlyGenrePreferences: model.HourlyPreferences{
			{Hour: hour, Genre: genre, Weight: weight, PlayCount: 12},
		},
	}
}

func testEngine() *Engine {
	return NewEngine(Config{
		HalfLifeDays:     7,
		Saturation:       25,
		ThrowbackMinDays: 730,
		ThrowbackMaxDays: 1825,
		DiscoveryMinDays: 90,
	})
}

func daysAgo(now time.Time, days int) *time.Time {
	t := now.AddDate(0, 0, -days)
	return &t
}

func TestBalancedFavorsFreshWellRatedTracks(t *testing.T) {
	e := testEngine()
	now := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)

	// Track A: 500 plays, rated 8/10 (4 stars), last played 2 days ago.
	a := e.Score(StrategyBalanced, Context{
		Stars:        4,
		Rated:        true,
		PlayCount:    500,
		LastPlayedAt: daysAgo(now, 2),
		Now:          now,
	})

	// Track B: 1 play, unrated, last played 200 days ago.
	b := e.Score(StrategyBalanced, Context{
		PlayCount:    1,
		LastPlayedAt: daysAgo(now, 200),
		Now:          now,
	})

	assert.Greater(t, a.FinalScore, b.FinalScore)
}

func TestBalancedScoreStaysInUnitInterval(t *testing.T) {
	e := testEngine()
	now := time.Now()

	b := e.Score(StrategyBalanced, Context{
		Stars:        5,
		Rated:        true,
		PlayCount:    2,
		AddedAt:      daysAgo(now, 1),
		Genres:       []string{"rock"},
		Moods:        []string{"energetic"},
		TargetGenres: []string{"rock"},
		TargetMoods:  []string{"energetic"},
		Now:          now,
	})

	assert.LessOrEqual(t, b.FinalScore, 1.0)
	assert.GreaterOrEqual(t, b.FinalScore, 0.0)
}

func TestQualityWeighsRatingOverRecency(t *testing.T) {
	e := testEngine()
	now := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)

	// Highly rated but stale vs unrated but fresh.
	rated := Context{Stars: 5, Rated: true, PlayCount: 20, LastPlayedAt: daysAgo(now, 60), Now: now}
	fresh := Context{PlayCount: 20, LastPlayedAt: daysAgo(now, 1), Now: now}

	assert.Greater(t, e.Score(StrategyQuality, rated).FinalScore, e.Score(StrategyQuality, fresh).FinalScore)
	// Balanced flips the comparison: recency dominates.
	assert.Greater(t, e.Score(StrategyBalanced, fresh).FinalScore, e.Score(StrategyBalanced, rated).FinalScore)
}

func TestDiscoveryRewardsForgottenTracks(t *testing.T) {
	e := testEngine()
	now := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)

	forgotten := e.Score(StrategyDiscovery, Context{
		Stars: 4, Rated: true, PlayCount: 5, LastPlayedAt: daysAgo(now, 400), Now: now,
	})
	heavyRotation := e.Score(StrategyDiscovery, Context{
		Stars: 4, Rated: true, PlayCount: 200, LastPlayedAt: daysAgo(now, 2), Now: now,
	})

	assert.Greater(t, forgotten.FinalScore, heavyRotation.FinalScore)
	assert.Equal(t, 0.0, heavyRotation.PlayCountPenalty, "saturated play count zeroes the penalty term")
	assert.InDelta(t, 1.0, forgotten.RecencyPenalty, 1e-9, "over a year unplayed maxes the recency term")
}

func TestDiscoveryUnratedUsesCappedProxy(t *testing.T) {
	e := testEngine()
	now := time.Now()

	b := e.Score(StrategyDiscovery, Context{PlayCount: 25, LastPlayedAt: daysAgo(now, 400), Now: now})
	assert.InDelta(t, UnratedQualityProxyCap, b.FallbackScore, 1e-9)
}

func TestThrowbackNostalgiaWindow(t *testing.T) {
	e := testEngine()
	now := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)

	cases := []struct {
		name      string
		days      int
		nostalgia float64
	}{
		{"before window", 100, 0},
		{"near edge", 730, 0},
		{"mid window", 1278, 0.5004566210045662},
		{"far edge", 1825, 1},
		{"past window clamps", 4000, 1},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			b := e.Score(StrategyThrowback, Context{
				Stars: 5, Rated: true,
				PlayCount:         30,
				PlayCountInWindow: 30,
				LastPlayedAt:      daysAgo(now, tc.days),
				Now:               now,
			})
			assert.InDelta(t, tc.nostalgia, b.NostalgiaWeight, 1e-3)
		})
	}
}

func TestThrowbackMultipliesComponents(t *testing.T) {
	e := testEngine()
	now := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)

	b := e.Score(StrategyThrowback, Context{
		Stars: 4, Rated: true,
		PlayCountInWindow: 10,
		LastPlayedAt:      daysAgo(now, 1825),
		Now:               now,
	})
	require.Equal(t, 1.0, b.NostalgiaWeight)
	assert.InDelta(t, 1.0*0.4*0.8, b.FinalScore, 1e-9)
}

func TestExplorationBoostCaps(t *testing.T) {
	now := time.Now()

	assert.Equal(t, 0.0, explorationBoost(Context{PlayCount: 50, Now: now}))
	assert.InDelta(t, UnderPlayedBoost, explorationBoost(Context{PlayCount: 1, Now: now}), 1e-9)

	boost := explorationBoost(Context{PlayCount: 0, AddedAt: daysAgo(now, 3), Now: now})
	assert.LessOrEqual(t, boost, MaxExplorationBoost)
	assert.InDelta(t, MaxExplorationBoost, boost, 1e-9)
}

func TestPatternsDriveTimeOfDayBoost(t *testing.T) {
	e := testEngine()
	now := time.Date(2025, 6, 1, 8, 0, 0, 0, time.UTC) // 8am

	patterns := patternsWithPreference(8, "jazz", 0.9)

	withBoost := e.Score(StrategyBalanced, Context{
		Genres: []string{"Jazz"}, PlayCount: 10, LastPlayedAt: daysAgo(now, 3),
		Patterns: patterns, Now: now,
	})
	without := e.Score(StrategyBalanced, Context{
		Genres: []string{"Jazz"}, PlayCount: 10, LastPlayedAt: daysAgo(now, 3),
		Now: now,
	})

	assert.Greater(t, withBoost.FinalScore, without.FinalScore)
	assert.InDelta(t, 0.9*MaxTimeOfDayBoost, withBoost.TimeOfDayBoost, 1e-9)

	// Quality scales the same signal to a third.
	q := e.Score(StrategyQuality, Context{
		Genres: []string{"Jazz"}, PlayCount: 10, LastPlayedAt: daysAgo(now, 3),
		Patterns: patterns, Now: now,
	})
	assert.InDelta(t, withBoost.TimeOfDayBoost/3, q.TimeOfDayBoost, 1e-9)
}

func TestParseStrategy(t *testing.T) {
	assert.Equal(t, StrategyQuality, ParseStrategy("Quality"))
	assert.Equal(t, StrategyThrowback, ParseStrategy(" throwback "))
	assert.Equal(t, StrategyBalanced, ParseStrategy("nonsense"))
	assert.Equal(t, StrategyBalanced, ParseStrategy(""))
}
