// Package selection turns a scored candidate pool into a final ordered
// playlist using epsilon-greedy selection under diversity constraints.
package selection

import (
	"errors"
	"fmt"
	"math"
	"math/rand"
	"sort"
	"strings"
	"time"

	"github.com/mdabushayem62/plex-playlists-sub003/logger"
	"github.com/mdabushayem62/plex-playlists-sub003/model"
)

// ErrInsufficientCandidates signals that the pool could not fill the target
// even after every constraint-relaxation pass. Distinct from an empty
// result: the caller should report it, not retry.
var ErrInsufficientCandidates = errors.New("insufficient candidates to fill playlist")

// Exploration-rate bounds and adjustments.
const (
	BaselineExplorationRate = 0.15
	MinExplorationRate      = 0.10
	MaxExplorationRate      = 0.20

	LargeLibraryThreshold = 10000
	HighSkipRateThreshold = 0.30
	ExplorationAdjustment = 0.03
)

// constraintPolicy is one exploitation pass. Passes run in order, each
// relaxing the previous one's constraints.
type constraintPolicy struct {
	name           string
	genreFamilyCap bool
	artistCap      bool
}

// exploitationPasses is the ordered relaxation ladder: both caps, artist cap
// only, no caps.
var exploitationPasses = []constraintPolicy{
	{name: "strict", genreFamilyCap: true, artistCap: true},
	{name: "artist-only", genreFamilyCap: false, artistCap: true},
	{name: "unconstrained", genreFamilyCap: false, artistCap: false},
}

// Options parameterizes one selection run.
type Options struct {
	TargetCount   int
	MaxPerArtist  int
	MaxGenreShare float64

	// ExcludeKeys are rating keys never to select (e.g. tracks already on
	// a companion playlist).
	ExcludeKeys map[string]struct{}

	// ExplorationRateOverride pins the explore share; nil means the rate
	// is computed from the signals below.
	ExplorationRateOverride *float64
	LibrarySize             int
	RecentSkipRate          float64
	HasDiscoveryPlaylist    bool

	// Rand drives the exploration shuffle; nil seeds from the clock.
	Rand *rand.Rand
}

// Result is the outcome of a selection run. Selected is ordered:
// exploitation picks first, exploration picks after.
type Result struct {
	Selected  []model.CandidateTrack
	Remaining []model.CandidateTrack
}

// Engine performs epsilon-greedy playlist selection.
type Engine struct{}

// NewEngine creates a selection engine.
func NewEngine() *Engine {
	return &Engine{}
}

// Select splits the target between a score-ranked exploitation set and a
// shuffled exploration set, applying the constraint-relaxation ladder to the
// former. Returns ErrInsufficientCandidates (with the partial result) when
// the pool can't fill the target.
func (e *Engine) Select(candidates []model.CandidateTrack, opts Options) (*Result, error) {
	if opts.TargetCount <= 0 {
		return &Result{Remaining: candidates}, nil
	}

	rng := opts.Rand
	if rng == nil {
		rng = rand.New(rand.NewSource(time.Now().UnixNano()))
	}

	pool := make([]model.CandidateTrack, 0, len(candidates))
	for _, c := range candidates {
		if _, excluded := opts.ExcludeKeys[c.RatingKey]; excluded {
			continue
		}
		pool = append(pool, c)
	}
	sort.SliceStable(pool, func(i, j int) bool {
		return pool[i].FinalScore > pool[j].FinalScore
	})

	rate := e.explorationRate(opts)
	numExplore := int(math.Floor(float64(opts.TargetCount) * rate))
	numExploit := opts.TargetCount - numExplore

	families := poolFamilies(pool)

	selected, selectedKeys := e.exploit(pool, families, numExploit, opts)
	selected = e.explore(rng, pool, selected, selectedKeys, numExplore+numExploit-len(selected))

	remaining := make([]model.CandidateTrack, 0, len(pool)-len(selected))
	for _, c := range pool {
		if _, ok := selectedKeys[c.RatingKey]; !ok {
			remaining = append(remaining, c)
		}
	}

	e.logGenreDistribution(selected, families, opts.MaxGenreShare)

	result := &Result{Selected: selected, Remaining: remaining}
	if len(selected) < opts.TargetCount {
		return result, fmt.Errorf("%w: selected %d of %d", ErrInsufficientCandidates, len(selected), opts.TargetCount)
	}
	return result, nil
}

// explorationRate computes the explore share for this run.
func (e *Engine) explorationRate(opts Options) float64 {
	if opts.ExplorationRateOverride != nil {
		return clampRate(*opts.ExplorationRateOverride)
	}

	rate := BaselineExplorationRate
	if opts.LibrarySize > LargeLibraryThreshold {
		rate += ExplorationAdjustment
	}
	if opts.RecentSkipRate > HighSkipRateThreshold {
		rate += ExplorationAdjustment
	}
	if opts.HasDiscoveryPlaylist {
		rate -= ExplorationAdjustment
	}
	return clampRate(rate)
}

func clampRate(rate float64) float64 {
	if rate < MinExplorationRate {
		return MinExplorationRate
	}
	if rate > MaxExplorationRate {
		return MaxExplorationRate
	}
	return rate
}

// exploit fills up to numExploit slots, running the relaxation ladder until
// the quota is met or passes are exhausted.
func (e *Engine) exploit(pool []model.CandidateTrack, families *GenreFamilies, numExploit int, opts Options) ([]model.CandidateTrack, map[string]struct{}) {
	selected := make([]model.CandidateTrack, 0, numExploit)
	selectedKeys := make(map[string]struct{}, numExploit)
	artistCounts := make(map[string]int)
	familyCounts := make(map[string]int)

	familyCap := int(math.Floor(float64(numExploit) * opts.MaxGenreShare))

	for _, pass := range exploitationPasses {
		if len(selected) >= numExploit {
			break
		}
		for _, c := range pool {
			if len(selected) >= numExploit {
				break
			}
			if _, dup := selectedKeys[c.RatingKey]; dup {
				continue
			}

			artistKey := model.NormalizeCacheKey(c.Artist)
			if pass.artistCap && opts.MaxPerArtist > 0 && artistCounts[artistKey] >= opts.MaxPerArtist {
				continue
			}

			family := primaryFamily(c, families)
			if pass.genreFamilyCap && family != "" && familyCounts[family] >= familyCap {
				continue
			}

			selected = append(selected, c)
			selectedKeys[c.RatingKey] = struct{}{}
			artistCounts[artistKey]++
			if family != "" {
				familyCounts[family]++
			}
		}
		logger.Debug("exploitation pass complete",
			logger.String("pass", pass.name),
			logger.Int("selected", len(selected)),
			logger.Int("quota", numExploit))
	}

	return selected, selectedKeys
}

// explore fills the remaining slots from the unselected pool, shuffled,
// preferring tracks whose artist or genre isn't represented yet.
func (e *Engine) explore(rng *rand.Rand, pool, selected []model.CandidateTrack, selectedKeys map[string]struct{}, slots int) []model.CandidateTrack {
	if slots <= 0 {
		return selected
	}

	unselected := make([]model.CandidateTrack, 0, len(pool))
	for _, c := range pool {
		if _, ok := selectedKeys[c.RatingKey]; !ok {
			unselected = append(unselected, c)
		}
	}
	rng.Shuffle(len(unselected), func(i, j int) {
		unselected[i], unselected[j] = unselected[j], unselected[i]
	})

	seenArtists := make(map[string]struct{}, len(selected))
	seenGenres := make(map[string]struct{}, len(selected))
	for _, c := range selected {
		seenArtists[model.NormalizeCacheKey(c.Artist)] = struct{}{}
		for _, g := range c.Genres {
			seenGenres[model.NormalizeCacheKey(g)] = struct{}{}
		}
	}

	isNovel := func(c model.CandidateTrack) bool {
		if _, ok := seenArtists[model.NormalizeCacheKey(c.Artist)]; !ok {
			return true
		}
		for _, g := range c.Genres {
			if _, ok := seenGenres[model.NormalizeCacheKey(g)]; !ok {
				return true
			}
		}
		return false
	}

	// Two sweeps over the shuffled pool: novelty first, then anything left.
	for _, novelOnly := range []bool{true, false} {
		for _, c := range unselected {
			if slots <= 0 {
				return selected
			}
			if _, dup := selectedKeys[c.RatingKey]; dup {
				continue
			}
			if novelOnly && !isNovel(c) {
				continue
			}
			selected = append(selected, c)
			selectedKeys[c.RatingKey] = struct{}{}
			seenArtists[model.NormalizeCacheKey(c.Artist)] = struct{}{}
			for _, g := range c.Genres {
				seenGenres[model.NormalizeCacheKey(g)] = struct{}{}
			}
			slots--
		}
	}
	return selected
}

// poolFamilies clusters every genre string present in the pool.
func poolFamilies(pool []model.CandidateTrack) *GenreFamilies {
	genres := make([]string, 0, len(pool))
	for _, c := range pool {
		genres = append(genres, c.Genres...)
	}
	return BuildGenreFamilies(genres)
}

// primaryFamily maps a candidate to the family of its first genre.
// Genreless tracks don't count against any cap.
func primaryFamily(c model.CandidateTrack, families *GenreFamilies) string {
	if len(c.Genres) == 0 {
		return ""
	}
	return families.FamilyOf(c.Genres[0])
}

// logGenreDistribution reports the top families by share. Observability
// only; never feeds back into selection.
func (e *Engine) logGenreDistribution(selected []model.CandidateTrack, families *GenreFamilies, maxShare float64) {
	if len(selected) == 0 {
		return
	}

	counts := make(map[string]int)
	for _, c := range selected {
		if family := primaryFamily(c, families); family != "" {
			counts[family]++
		}
	}

	type share struct {
		family string
		count  int
	}
	shares := make([]share, 0, len(counts))
	for f, n := range counts {
		shares = append(shares, share{family: f, count: n})
	}
	sort.Slice(shares, func(i, j int) bool {
		if shares[i].count != shares[j].count {
			return shares[i].count > shares[j].count
		}
		return shares[i].family < shares[j].family
	})

	top := make([]string, 0, 3)
	exceeded := false
	for i, s := range shares {
		ratio := float64(s.count) / float64(len(selected))
		if ratio > maxShare {
			exceeded = true
		}
		if i < 3 {
			top = append(top, fmt.Sprintf("%s:%.0f%%", s.family, ratio*100))
		}
	}

	logger.Debug("playlist genre distribution",
		logger.String("top", strings.Join(top, " ")),
		logger.Bool("exceedsMaxShare", exceeded))
}
