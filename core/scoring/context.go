package scoring

import (
	"strings"
	"time"

	"github.com/mdabushayem62/plex-playlists-sub003/model"
)

// Strategy names a scoring strategy.
type Strategy string

const (
	StrategyBalanced  Strategy = "balanced"
	StrategyQuality   Strategy = "quality"
	StrategyDiscovery Strategy = "discovery"
	StrategyThrowback Strategy = "throwback"
)

// ParseStrategy maps a name to a Strategy, defaulting to balanced.
func ParseStrategy(name string) Strategy {
	switch Strategy(strings.ToLower(strings.TrimSpace(name))) {
	case StrategyQuality:
		return StrategyQuality
	case StrategyDiscovery:
		return StrategyDiscovery
	case StrategyThrowback:
		return StrategyThrowback
	default:
		return StrategyBalanced
	}
}

// Context carries every input for scoring one track. It is built per track
// per run and discarded afterwards.
type Context struct {
	// Star rating on the 0-5 scale; Rated is false when the track has none.
	Stars float64
	Rated bool

	PlayCount         uint
	PlayCountInWindow uint // plays inside the throwback lookback window
	SkipCount         uint

	LastPlayedAt *time.Time
	AddedAt      *time.Time

	Genres []string
	Moods  []string

	// Theme of the playlist being generated, when any.
	TargetGenres []string
	TargetMoods  []string

	// Energy in [0,1] and tempo in BPM; zero values mean unknown and
	// disable the energy/tempo alignment boost.
	Energy       float64
	Tempo        float64
	TargetEnergy float64
	TargetTempo  float64

	// When this candidate's artist/genre last appeared in the session,
	// for spacing penalties. Nil means no recent appearance.
	ArtistLastSeenAt *time.Time
	GenreLastSeenAt  *time.Time

	// Learned listening patterns; nil disables the pattern-aware boost.
	Patterns *model.UserPatterns

	Now time.Time
}

// Config holds the tunable scoring parameters.
type Config struct {
	HalfLifeDays     float64
	Saturation       int
	ThrowbackMinDays int
	ThrowbackMaxDays int
	DiscoveryMinDays int
}

// Engine scores candidates under a selected strategy. Engines are pure:
// the same context always yields the same breakdown.
type Engine struct {
	cfg Config
}

// NewEngine creates a scoring engine.
func NewEngine(cfg Config) *Engine {
	return &Engine{cfg: cfg}
}

// Score dispatches to the named strategy and returns the full breakdown.
func (e *Engine) Score(strategy Strategy, ctx Context) model.ScoreBreakdown {
	switch strategy {
	case StrategyQuality:
		return e.scoreQuality(ctx)
	case StrategyDiscovery:
		return e.scoreDiscovery(ctx)
	case StrategyThrowback:
		return e.scoreThrowback(ctx)
	default:
		return e.scoreBalanced(ctx)
	}
}

func normalize(s string) string {
	return strings.ToLower(strings.TrimSpace(s))
}
