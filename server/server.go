// Package server wires the services together and exposes the HTTP API.
package server

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"github.com/gorilla/mux"

	"github.com/mdabushayem62/plex-playlists-sub003/cache"
	"github.com/mdabushayem62/plex-playlists-sub003/config"
	"github.com/mdabushayem62/plex-playlists-sub003/core/auth"
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

const tokenTTL = 24 * time.Hour

// patternLoader adapts the pattern store to the builder's best-effort
// loading contract.
type patternLoader struct {
	store    *patterns.Store
	analyzer patterns.Analyzer
}

func (l *patternLoader) Load(ctx context.Context) *model.UserPatterns {
	return l.store.GetWithCache(ctx, false, l.analyzer)
}

// Start initializes every service and runs the HTTP server until a shutdown
// signal arrives.
func Start() {
	cfg := config.Load()

	logger.InitLogger(logger.Config{
		Level:      logger.LogLevel(cfg.LogLevel),
		OutputPath: cfg.LogPath,
		MaxSize:    100,
		MaxBackups: 3,
		MaxAge:     28,
		Compress:   true,
	})
	defer logger.Sync()

	if cfg.AdminPassword == "" {
		logger.Fatal("ADMIN_PASSWORD must be set")
	}
	adminHash, err := auth.HashPassword(cfg.AdminPassword)
	if err != nil {
		logger.Fatal("failed to hash admin password", logger.ErrorField(err))
	}

	gdb, err := db.Connect(cfg)
	if err != nil {
		logger.Fatal("failed to connect to database", logger.ErrorField(err))
	}
	defer func() {
		if err := db.Close(gdb); err != nil {
			logger.Warn("failed to close database", logger.ErrorField(err))
		}
	}()
	if err := db.AutoMigrate(gdb); err != nil {
		logger.Fatal("failed to migrate database", logger.ErrorField(err))
	}

	// The hot cache is an optimization; run without it if Redis is down.
	var hot *cache.GenreHotCache
	redisClient, err := db.ConnectRedis(cfg)
	if err != nil {
		logger.Warn("redis unavailable, running without hot cache", logger.ErrorField(err))
	} else {
		hot = cache.NewGenreHotCache(redisClient)
		defer redisClient.Close()
	}

	genreRepo := repository.NewGenreCacheRepository(gdb)
	patternsRepo := repository.NewPatternsRepository(gdb)
	playlistRepo := repository.NewPlaylistRepository(gdb)

	manual := enrich.NewManualTable(cfg.ManualGenreMapPath)
	if err := manual.Watch(); err != nil {
		logger.Warn("manual genre map watch disabled", logger.ErrorField(err))
	}
	defer manual.Close()

	usage := enrich.NewUsageTracker(genreRepo, 256)
	usage.Start(1)
	defer usage.Stop()

	providers := []enrich.Provider{
		enrich.NewSpotifyClient(cfg.SpotifyClientID, cfg.SpotifyClientSecret),
		enrich.NewLastFMClient(cfg.LastFMAPIKey),
	}
	enrichService := enrich.NewService(genreRepo, hot, providers, manual, usage, cfg.GenreCacheTTL)

	plexClient := plex.NewClient(cfg.PlexBaseURL, cfg.PlexToken,
		strconv.FormatInt(cfg.PlexSectionID, 10))

	patternStore := patterns.NewStore(patternsRepo, cfg.PatternsCacheTTL)
	analyzer := patterns.NewHistoryAnalyzer(plexClient, enrichService, cfg.PlexAccountID)

	scorer := scoring.NewEngine(scoring.Config{
		HalfLifeDays:     cfg.RecencyHalfLifeDays,
		Saturation:       cfg.PlayCountSaturation,
		ThrowbackMinDays: cfg.ThrowbackMinDays,
		ThrowbackMaxDays: cfg.ThrowbackMaxDays,
		DiscoveryMinDays: cfg.DiscoveryMinDays,
	})
	gen := generator.NewGenerator(
		plexClient,
		enrichService,
		&patternLoader{store: patternStore, analyzer: analyzer},
		scorer,
		selection.NewEngine(),
		playlistRepo,
		cfg,
	)

	warmer := maintain.NewWarmer(enrichService, genreRepo, cfg.CacheWarmConcurrency)
	scheduler := maintain.NewScheduler(cfg.CacheWarmInterval, func(ctx context.Context) {
		if _, err := warmer.RefreshExpiring(ctx); err != nil {
			logger.Warn("scheduled cache refresh failed", logger.ErrorField(err))
		}
	})
	scheduler.Start()
	defer scheduler.Stop()

	tokens := auth.NewTokenIssuer(cfg.JWTSecret, tokenTTL)
	apiHandler := NewAPIHandler(gen, enrichService, warmer, patternStore, analyzer,
		playlistRepo, tokens, adminHash)

	router := mux.NewRouter()
	router.Use(corsMiddleware)

	router.HandleFunc("/api/health", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	}).Methods(http.MethodGet)

	router.HandleFunc("/api/auth/login", apiHandler.LoginHandler).Methods(http.MethodPost)

	router.HandleFunc("/api/playlists/generate", apiHandler.AuthMiddleware(apiHandler.GeneratePlaylistHandler)).Methods(http.MethodPost)
	router.HandleFunc("/api/playlists", apiHandler.AuthMiddleware(apiHandler.ListPlaylistsHandler)).Methods(http.MethodGet)
	router.HandleFunc("/api/playlists/{id}", apiHandler.AuthMiddleware(apiHandler.GetPlaylistHandler)).Methods(http.MethodGet)
	router.HandleFunc("/api/cache/stats", apiHandler.AuthMiddleware(apiHandler.CacheStatsHandler)).Methods(http.MethodGet)
	router.HandleFunc("/api/cache/warm", apiHandler.AuthMiddleware(apiHandler.WarmCacheHandler)).Methods(http.MethodPost)
	router.HandleFunc("/api/patterns", apiHandler.AuthMiddleware(apiHandler.GetPatternsHandler)).Methods(http.MethodGet)
	router.HandleFunc("/api/patterns", apiHandler.AuthMiddleware(apiHandler.RefreshPatternsHandler)).Methods(http.MethodPost)

	httpServer := &http.Server{
		Addr:         ":" + cfg.ServerPort,
		Handler:      router,
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 5 * time.Minute, // generation and warm rounds can be slow
		IdleTimeout:  120 * time.Second,
	}

	go func() {
		logger.Info("server listening", logger.String("port", cfg.ServerPort))
		if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatal("server failed", logger.ErrorField(err))
		}
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, os.Interrupt, syscall.SIGTERM)
	<-stop

	logger.Info("shutting down")
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := httpServer.Shutdown(ctx); err != nil {
		logger.Error("shutdown failed", logger.ErrorField(err))
	}
}

// corsMiddleware mirrors the browser-facing headers the API needs.
func corsMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, PUT, DELETE, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization")
		w.Header().Set("Access-Control-Max-Age", "86400")

		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusOK)
			return
		}
		next.ServeHTTP(w, r)
	})
}
