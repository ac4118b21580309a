package scoring

import (
	"math"

	"github.com/mdabushayem62/plex-playlists-sub003/model"
)

// Base weights per strategy. Balanced leans on recency for freshness;
// quality re-weights toward rating and play count for curated playlists.
const (
	balancedRecencyWeight   = 0.35
	balancedRatingWeight    = 0.25
	balancedPlayCountWeight = 0.10

	qualityRatingWeight    = 0.40
	qualityPlayCountWeight = 0.20
	qualityRecencyWeight   = 0.05

	// Quality playlists care less about the clock.
	qualityTimeOfDayScale = 1.0 / 3.0
)

// scoreBalanced is the general/time-of-day strategy.
func (e *Engine) scoreBalanced(ctx Context) model.ScoreBreakdown {
	b := e.commonComponents(ctx, string(StrategyBalanced))

	base := balancedRecencyWeight*b.RecencyWeight +
		balancedRatingWeight*b.RatingScore +
		balancedPlayCountWeight*b.PlayCountScore

	b.GenreBoost = overlapFraction(ctx.Genres, ctx.TargetGenres) * MaxGenreMatchBoost
	b.MoodBoost = overlapFraction(ctx.Moods, ctx.TargetMoods) * MaxMoodMatchBoost
	b.TimeOfDayBoost = timeOfDayBoost(ctx) * MaxTimeOfDayBoost
	b.EnergyTempoBoost = energyTempoAlignment(ctx) * MaxEnergyTempoBoost
	b.ExplorationBoost = explorationBoost(ctx)

	raw := base + b.GenreBoost + b.MoodBoost + b.TimeOfDayBoost + b.EnergyTempoBoost + b.ExplorationBoost
	b.FinalScore = clamp01(raw * b.SkipPenalty * b.ArtistPenalty * b.GenrePenalty)
	return b
}

// scoreQuality is the curated/themed strategy: same ingredients as balanced,
// re-weighted toward rating and play count, with the time-of-day signal
// scaled down.
func (e *Engine) scoreQuality(ctx Context) model.ScoreBreakdown {
	b := e.commonComponents(ctx, string(StrategyQuality))

	base := qualityRatingWeight*b.RatingScore +
		qualityPlayCountWeight*b.PlayCountScore +
		qualityRecencyWeight*b.RecencyWeight

	b.GenreBoost = overlapFraction(ctx.Genres, ctx.TargetGenres) * MaxGenreMatchBoost
	b.MoodBoost = overlapFraction(ctx.Moods, ctx.TargetMoods) * MaxMoodMatchBoost
	b.TimeOfDayBoost = timeOfDayBoost(ctx) * MaxTimeOfDayBoost * qualityTimeOfDayScale
	b.EnergyTempoBoost = energyTempoAlignment(ctx) * MaxEnergyTempoBoost
	b.ExplorationBoost = explorationBoost(ctx)

	raw := base + b.GenreBoost + b.MoodBoost + b.TimeOfDayBoost + b.EnergyTempoBoost + b.ExplorationBoost
	b.FinalScore = clamp01(raw * b.SkipPenalty * b.ArtistPenalty * b.GenrePenalty)
	return b
}

// scoreDiscovery surfaces forgotten tracks: quality times how under-played
// and how long-unplayed the track is.
func (e *Engine) scoreDiscovery(ctx Context) model.ScoreBreakdown {
	b := e.commonComponents(ctx, string(StrategyDiscovery))

	quality := e.qualityProxy(ctx)
	b.FallbackScore = quality

	sat := float64(e.cfg.Saturation)
	if sat <= 0 {
		sat = 1
	}
	b.PlayCountPenalty = 1 - math.Min(float64(ctx.PlayCount), sat)/sat

	days := RecencyPenaltyDays
	if ctx.LastPlayedAt != nil {
		days = DaysBetween(*ctx.LastPlayedAt, ctx.Now)
	}
	b.RecencyPenalty = math.Min(days/RecencyPenaltyDays, 1)

	b.ExplorationBoost = explorationBoost(ctx)

	b.FinalScore = clamp01(quality*b.PlayCountPenalty*b.RecencyPenalty + b.ExplorationBoost)
	return b
}

// scoreThrowback rewards well-loved tracks from a bounded lookback window.
func (e *Engine) scoreThrowback(ctx Context) model.ScoreBreakdown {
	b := e.commonComponents(ctx, string(StrategyThrowback))

	quality := e.qualityProxy(ctx)
	b.FallbackScore = quality

	start := float64(e.cfg.ThrowbackMinDays)
	end := float64(e.cfg.ThrowbackMaxDays)
	var days float64
	if ctx.LastPlayedAt != nil {
		days = DaysBetween(*ctx.LastPlayedAt, ctx.Now)
	}
	if end > start {
		b.NostalgiaWeight = clamp01((days - start) / (end - start))
	} else if days >= start {
		b.NostalgiaWeight = 1
	}

	playWeight := NormalizePlayCount(ctx.PlayCountInWindow, e.cfg.Saturation)

	b.PlayCountScore = playWeight
	b.FinalScore = clamp01(b.NostalgiaWeight * playWeight * quality)
	return b
}

// commonComponents fills the sub-scores every strategy shares.
func (e *Engine) commonComponents(ctx Context, strategy string) model.ScoreBreakdown {
	return model.ScoreBreakdown{
		Strategy:       strategy,
		RecencyWeight:  RecencyWeight(ctx.LastPlayedAt, ctx.Now, e.cfg.HalfLifeDays),
		RatingScore:    NormalizeStarRating(ctx.Stars, ctx.Rated),
		PlayCountScore: NormalizePlayCount(ctx.PlayCount, e.cfg.Saturation),
		SkipPenalty:    SkipPenalty(ctx.SkipCount, ctx.PlayCount),
		ArtistPenalty:  spacingPenalty(ctx.ArtistLastSeenAt, ctx.Now, ArtistSpacingHours, ArtistSpacingFloor),
		GenrePenalty:   spacingPenalty(ctx.GenreLastSeenAt, ctx.Now, GenreSpacingHours, GenreSpacingFloor),
	}
}

// qualityProxy is the normalized rating when the track is rated, else a
// capped play-count stand-in so unrated favorites still register.
func (e *Engine) qualityProxy(ctx Context) float64 {
	if ctx.Rated {
		return NormalizeStarRating(ctx.Stars, true)
	}
	proxy := NormalizePlayCount(ctx.PlayCount, e.cfg.Saturation)
	if proxy > UnratedQualityProxyCap {
		proxy = UnratedQualityProxyCap
	}
	return proxy
}

// timeOfDayBoost returns the learned alignment in [0,1] between the track's
// genres/moods and the current hour. No patterns means no boost.
func timeOfDayBoost(ctx Context) float64 {
	if ctx.Patterns == nil {
		return 0
	}
	hour := ctx.Now.Hour()
	best := 0.0
	for _, g := range ctx.Genres {
		if w := ctx.Patterns.GenreWeightForHour(hour, g); w > best {
			best = w
		}
	}
	for _, m := range ctx.Moods {
		if w := ctx.Patterns.GenreWeightForHour(hour, m); w > best {
			best = w
		}
	}
	return clamp01(best)
}

// energyTempoAlignment blends energy and tempo closeness 70/30. Unknown
// targets disable the boost.
func energyTempoAlignment(ctx Context) float64 {
	if ctx.TargetEnergy == 0 && ctx.TargetTempo == 0 {
		return 0
	}

	energyAlign := 0.0
	if ctx.TargetEnergy > 0 {
		energyAlign = 1 - math.Abs(ctx.Energy-ctx.TargetEnergy)
		if energyAlign < 0 {
			energyAlign = 0
		}
	}

	tempoAlign := 0.0
	if ctx.TargetTempo > 0 && ctx.Tempo > 0 {
		// Within 40 BPM counts as progressively aligned.
		diff := math.Abs(ctx.Tempo-ctx.TargetTempo) / 40
		if diff < 1 {
			tempoAlign = 1 - diff
		}
	}

	return clamp01(EnergyAlignmentWeight*energyAlign + TempoAlignmentWeight*tempoAlign)
}

// explorationBoost rewards under-played and newly-added tracks, capped at
// MaxExplorationBoost.
func explorationBoost(ctx Context) float64 {
	boost := 0.0
	if ctx.PlayCount < LowPlayThreshold {
		boost += UnderPlayedBoost
	}
	if ctx.AddedAt != nil && DaysBetween(*ctx.AddedAt, ctx.Now) <= NewlyAddedDays {
		boost += NewlyAddedBoost
	}
	if boost > MaxExplorationBoost {
		boost = MaxExplorationBoost
	}
	return boost
}
