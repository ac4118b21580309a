package selection

import (
	"errors"
	"fmt"
	"math/rand"
	"testing"

	"github.com/mdabushayem62/plex-playlists-sub003/model"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func candidate(key, artist, genre string, score float64) model.CandidateTrack {
	c := model.CandidateTrack{
		RatingKey:  key,
		Title:      "Track " + key,
		Artist:     artist,
		FinalScore: score,
	}
	if genre != "" {
		c.Genres = []string{genre}
	}
	return c
}

// genrePool builds count candidates per genre, each with a distinct artist
// and descending scores so exploitation order is predictable.
func genrePool(count int, genres ...string) []model.CandidateTrack {
	var pool []model.CandidateTrack
	score := 1.0
	for i := 0; i < count; i++ {
		for _, g := range genres {
			key := fmt.Sprintf("%s-%d", g, i)
			pool = append(pool, candidate(key, "artist "+key, g, score))
			score -= 0.001
		}
	}
	return pool
}

func seededRand() *rand.Rand {
	return rand.New(rand.NewSource(42))
}

func rateOverride(r float64) *float64 { return &r }

func TestExplorationRate(t *testing.T) {
	e := NewEngine()

	tests := []struct {
		name string
		opts Options
		want float64
	}{
		{"baseline", Options{}, 0.15},
		{"large library", Options{LibrarySize: 10001}, 0.18},
		{"high skip rate", Options{RecentSkipRate: 0.35}, 0.18},
		{"large library and high skip rate clamps high", Options{LibrarySize: 20000, RecentSkipRate: 0.5}, 0.20},
		{"discovery playlist lowers", Options{HasDiscoveryPlaylist: true}, 0.12},
		{"threshold library size does not bump", Options{LibrarySize: 10000}, 0.15},
		{"threshold skip rate does not bump", Options{RecentSkipRate: 0.30}, 0.15},
		{"override wins", Options{ExplorationRateOverride: rateOverride(0.17), LibrarySize: 20000}, 0.17},
		{"override clamped low", Options{ExplorationRateOverride: rateOverride(0.01)}, 0.10},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.InDelta(t, tt.want, e.explorationRate(tt.opts), 1e-9)
		})
	}
}

func TestSelectFillsTargetExactly(t *testing.T) {
	pool := genrePool(15, "rock", "jazz")
	e := NewEngine()

	result, err := e.Select(pool, Options{
		TargetCount:   10,
		MaxPerArtist:  2,
		MaxGenreShare: 0.4,
		Rand:          seededRand(),
	})
	require.NoError(t, err)

	assert.Len(t, result.Selected, 10)
	assert.Len(t, result.Remaining, 20)

	seen := make(map[string]struct{})
	for _, c := range result.Selected {
		_, dup := seen[c.RatingKey]
		assert.False(t, dup, "track %s selected twice", c.RatingKey)
		seen[c.RatingKey] = struct{}{}
	}
	for _, c := range result.Remaining {
		_, overlap := seen[c.RatingKey]
		assert.False(t, overlap, "track %s in both selected and remaining", c.RatingKey)
	}
}

func TestExploitStrictPassHonorsGenreFamilyCap(t *testing.T) {
	// Three unrelated families so the strict pass can fill its quota
	// without relaxing.
	pool := genrePool(15, "rock", "jazz", "classical")
	e := NewEngine()

	selected, _ := e.exploit(pool, poolFamilies(pool), 10, Options{
		MaxPerArtist:  2,
		MaxGenreShare: 0.4,
	})
	require.Len(t, selected, 10)

	families := poolFamilies(pool)
	counts := make(map[string]int)
	for _, c := range selected {
		counts[families.FamilyOf(c.Genres[0])]++
	}
	for family, n := range counts {
		assert.LessOrEqual(t, n, 4, "family %s exceeds floor(10*0.4)", family)
	}
}

func TestExploitCountsSubgenresAgainstOneFamily(t *testing.T) {
	// Every metal spelling shares one family with rock, so the cap can't be
	// dodged by tag granularity.
	var pool []model.CandidateTrack
	for i, g := range []string{"metal", "heavy metal", "thrash metal", "doom metal", "hard rock", "rock"} {
		pool = append(pool, candidate(fmt.Sprintf("m-%d", i), fmt.Sprintf("band %d", i), g, 1.0-float64(i)*0.01))
	}
	pool = append(pool, genrePool(6, "jazz", "classical")...)
	e := NewEngine()

	selected, _ := e.exploit(pool, poolFamilies(pool), 10, Options{
		MaxPerArtist:  2,
		MaxGenreShare: 0.4,
	})
	require.Len(t, selected, 10)

	families := poolFamilies(pool)
	rockFamily := families.FamilyOf("rock")
	rockish := 0
	for _, c := range selected {
		if families.FamilyOf(c.Genres[0]) == rockFamily {
			rockish++
		}
	}
	assert.LessOrEqual(t, rockish, 4)
}

func TestSelectRelaxesConstraintsWhenPoolIsUniform(t *testing.T) {
	// One artist, one genre: strict and artist-only passes can't fill, the
	// unconstrained pass must.
	var pool []model.CandidateTrack
	for i := 0; i < 20; i++ {
		pool = append(pool, candidate(fmt.Sprintf("u-%d", i), "The Only Band", "rock", 1.0-float64(i)*0.01))
	}
	e := NewEngine()

	result, err := e.Select(pool, Options{
		TargetCount:   10,
		MaxPerArtist:  2,
		MaxGenreShare: 0.4,
		Rand:          seededRand(),
	})
	require.NoError(t, err)
	assert.Len(t, result.Selected, 10, "a full playlist beats a diverse partial one")
}

func TestSelectInsufficientCandidates(t *testing.T) {
	pool := genrePool(2, "rock") // 2 candidates
	e := NewEngine()

	result, err := e.Select(pool, Options{
		TargetCount:   10,
		MaxPerArtist:  2,
		MaxGenreShare: 0.4,
		Rand:          seededRand(),
	})
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrInsufficientCandidates))
	assert.Len(t, result.Selected, 2, "partial result still returned")
}

func TestSelectExcludedKeysNeverSelected(t *testing.T) {
	pool := genrePool(10, "rock", "jazz")
	exclude := map[string]struct{}{
		"rock-0": {}, // the top-scored candidate
		"jazz-3": {},
	}
	e := NewEngine()

	result, err := e.Select(pool, Options{
		TargetCount:   10,
		MaxPerArtist:  2,
		MaxGenreShare: 0.4,
		ExcludeKeys:   exclude,
		Rand:          seededRand(),
	})
	require.NoError(t, err)

	for _, c := range result.Selected {
		_, excluded := exclude[c.RatingKey]
		assert.False(t, excluded, "excluded track %s was selected", c.RatingKey)
	}
	for _, c := range result.Remaining {
		_, excluded := exclude[c.RatingKey]
		assert.False(t, excluded, "excluded track %s leaked into remaining", c.RatingKey)
	}
}

func TestSelectExplorationPrefersUnrepresented(t *testing.T) {
	// 20 rock tracks over 5 artists dominate by score; one low-scored jazz
	// track from a sixth artist exists. With one exploration slot the jazz
	// track must get it: every leftover rock track repeats a seen artist
	// and a seen genre.
	var pool []model.CandidateTrack
	for i := 0; i < 20; i++ {
		artist := fmt.Sprintf("rock band %d", i%5)
		pool = append(pool, candidate(fmt.Sprintf("r-%d", i), artist, "rock", 0.9-float64(i)*0.01))
	}
	pool = append(pool, candidate("j-0", "lone jazz trio", "jazz", 0.05))
	e := NewEngine()

	result, err := e.Select(pool, Options{
		TargetCount:             10,
		MaxPerArtist:            2,
		MaxGenreShare:           1.0, // isolate the exploration behavior
		ExplorationRateOverride: rateOverride(0.10),
		Rand:                    seededRand(),
	})
	require.NoError(t, err)
	require.Len(t, result.Selected, 10)

	found := false
	for _, c := range result.Selected {
		if c.RatingKey == "j-0" {
			found = true
		}
	}
	assert.True(t, found, "the only novel track must win the exploration slot")
}

func TestSelectDeterministicWithSeededRand(t *testing.T) {
	pool := genrePool(20, "rock", "jazz", "electronic")
	e := NewEngine()
	opts := Options{
		TargetCount:   15,
		MaxPerArtist:  2,
		MaxGenreShare: 0.4,
	}

	opts.Rand = seededRand()
	first, err := e.Select(pool, opts)
	require.NoError(t, err)

	opts.Rand = seededRand()
	second, err := e.Select(pool, opts)
	require.NoError(t, err)

	require.Len(t, second.Selected, len(first.Selected))
	for i := range first.Selected {
		assert.Equal(t, first.Selected[i].RatingKey, second.Selected[i].RatingKey)
	}
}

func TestSelectZeroTarget(t *testing.T) {
	pool := genrePool(5, "rock")
	e := NewEngine()

	result, err := e.Select(pool, Options{TargetCount: 0})
	require.NoError(t, err)
	assert.Empty(t, result.Selected)
}

func TestBuildGenreFamilies(t *testing.T) {
	families := BuildGenreFamilies([]string{
		"Synthwave", "darksynth", "retrowave",
		"rock", "hard rock", "indie rock",
		"jazz", "bebop",
		"classical",
	})

	t.Run("synth variants merge", func(t *testing.T) {
		assert.Equal(t, families.FamilyOf("synthwave"), families.FamilyOf("darksynth"))
		assert.Equal(t, families.FamilyOf("synthwave"), families.FamilyOf("retrowave"))
	})

	t.Run("rock variants merge", func(t *testing.T) {
		assert.Equal(t, families.FamilyOf("rock"), families.FamilyOf("hard rock"))
		assert.Equal(t, families.FamilyOf("rock"), families.FamilyOf("indie rock"))
	})

	t.Run("jazz children merge", func(t *testing.T) {
		assert.Equal(t, families.FamilyOf("jazz"), families.FamilyOf("bebop"))
	})

	t.Run("unrelated families stay apart", func(t *testing.T) {
		assert.NotEqual(t, families.FamilyOf("rock"), families.FamilyOf("jazz"))
		assert.NotEqual(t, families.FamilyOf("classical"), families.FamilyOf("synthwave"))
	})

	t.Run("labels are deterministic and case-insensitive", func(t *testing.T) {
		assert.Equal(t, families.FamilyOf("SYNTHWAVE"), families.FamilyOf("synthwave"))
	})

	t.Run("unknown genre maps to itself", func(t *testing.T) {
		assert.Equal(t, "zydeco", families.FamilyOf("Zydeco"))
	})
}
