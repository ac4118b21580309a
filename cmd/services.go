package cmd

import (
	"context"
	"log"
	"strconv"

	"github.com/mdabushayem62/plex-playlists-sub003/cache"
	"github.com/mdabushayem62/plex-playlists-sub003/config"
	"github.com/mdabushayem62/plex-playlists-sub003/core/enrich"
	"github.com/mdabushayem62/plex-playlists-sub003/core/generator"
	"github.com/mdabushayem62/plex-playlists-sub003/core/maintain"
	"github.com/mdabushayem62/plex-playlists-sub003/core/patterns"
	"github.com/mdabushayem62/plex-playlists-sub003/core/plex"
	"github.com/mdabushayem62/plex-playlists-sub003/core/scoring"
	"github.com/mdabushayem62/plex-playlists-sub003/core/selection"
	"github.com/mdabushayem62/plex-playlists-sub003/db"
	"github.com/mdabushayem62/plex-playlists-sub003/logger"
	"github.com/mdabushayem62/plex-playlists-sub003/model"
	"github.com/mdabushayem62/plex-playlists-sub003/repository"
)

// services carries the wired-up application for one-shot commands. The
// server command wires the same graph itself and adds the HTTP layer.
type services struct {
	cfg       *config.Config
	generator *generator.Generator
	warmer    *maintain.Warmer
	patterns  *patterns.Store
	analyzer  patterns.Analyzer
	enrich    *enrich.Service
	closers   []func()
}

type storeLoader struct {
	store    *patterns.Store
	analyzer patterns.Analyzer
}

func (l *storeLoader) Load(ctx context.Context) *model.UserPatterns {
	return l.store.GetWithCache(ctx, false, l.analyzer)
}

// newServices loads configuration and wires the full service graph.
// Fatal on anything a one-shot command cannot run without.
func newServices() *services {
	cfg := config.Load()

	logger.InitLogger(logger.Config{
		Level:      logger.LogLevel(cfg.LogLevel),
		OutputPath: cfg.LogPath,
		MaxSize:    100,
		MaxBackups: 3,
		MaxAge:     28,
		Compress:   true,
	})

	s := &services{cfg: cfg}
	s.closers = append(s.closers, func() { logger.Sync() })

	gdb, err := db.Connect(cfg)
	if err != nil {
		log.Fatalf("failed to connect to database: %v", err)
	}
	s.closers = append(s.closers, func() {
		if err := db.Close(gdb); err != nil {
			logger.Warn("failed to close database", logger.ErrorField(err))
		}
	})
	if err := db.AutoMigrate(gdb); err != nil {
		log.Fatalf("failed to migrate database: %v", err)
	}

	var hot *cache.GenreHotCache
	redisClient, err := db.ConnectRedis(cfg)
	if err != nil {
		logger.Warn("redis unavailable, running without hot cache", logger.ErrorField(err))
	} else {
		hot = cache.NewGenreHotCache(redisClient)
		s.closers = append(s.closers, func() { redisClient.Close() })
	}

	genreRepo := repository.NewGenreCacheRepository(gdb)
	patternsRepo := repository.NewPatternsRepository(gdb)
	playlistRepo := repository.NewPlaylistRepository(gdb)

	manual := enrich.NewManualTable(cfg.ManualGenreMapPath)
	if err := manual.Watch(); err != nil {
		logger.Warn("manual genre map watch disabled", logger.ErrorField(err))
	}
	s.closers = append(s.closers, manual.Close)

	usage := enrich.NewUsageTracker(genreRepo, 256)
	usage.Start(1)
	s.closers = append(s.closers, usage.Stop)

	providers := []enrich.Provider{
		enrich.NewSpotifyClient(cfg.SpotifyClientID, cfg.SpotifyClientSecret),
		enrich.NewLastFMClient(cfg.LastFMAPIKey),
	}
	s.enrich = enrich.NewService(genreRepo, hot, providers, manual, usage, cfg.GenreCacheTTL)

	plexClient := plex.NewClient(cfg.PlexBaseURL, cfg.PlexToken,
		strconv.FormatInt(cfg.PlexSectionID, 10))

	s.patterns = patterns.NewStore(patternsRepo, cfg.PatternsCacheTTL)
	s.analyzer = patterns.NewHistoryAnalyzer(plexClient, s.enrich, cfg.PlexAccountID)

	scorer := scoring.NewEngine(scoring.Config{
		HalfLifeDays:     cfg.RecencyHalfLifeDays,
		Saturation:       cfg.PlayCountSaturation,
		ThrowbackMinDays: cfg.ThrowbackMinDays,
		ThrowbackMaxDays: cfg.ThrowbackMaxDays,
		DiscoveryMinDays: cfg.DiscoveryMinDays,
	})
	s.generator = generator.NewGenerator(
		plexClient,
		s.enrich,
		&storeLoader{store: s.patterns, analyzer: s.analyzer},
		scorer,
		selection.NewEngine(),
		playlistRepo,
		cfg,
	)

	s.warmer = maintain.NewWarmer(s.enrich, genreRepo, cfg.CacheWarmConcurrency)

	return s
}

// close releases resources in reverse acquisition order.
func (s *services) close() {
	for i := len(s.closers) - 1; i >= 0; i-- {
		s.closers[i]()
	}
}
