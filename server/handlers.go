package server

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"strings"

	"github.com/gorilla/mux"

	"github.com/mdabushayem62/plex-playlists-sub003/core/auth"
	"github.com/mdabushayem62/plex-playlists-sub003/core/generator"
	"github.com/mdabushayem62/plex-playlists-sub003/core/maintain"
	"github.com/mdabushayem62/plex-playlists-sub003/core/patterns"
	"github.com/mdabushayem62/plex-playlists-sub003/core/selection"
	"github.com/mdabushayem62/plex-playlists-sub003/logger"
	"github.com/mdabushayem62/plex-playlists-sub003/model"
	"github.com/mdabushayem62/plex-playlists-sub003/repository"
)

// PlaylistGenerator runs one generation end to end.
type PlaylistGenerator interface {
	Generate(ctx context.Context, req generator.Request) (*model.Playlist, error)
}

// CacheStatsSource reports genre cache contents.
type CacheStatsSource interface {
	Stats() (*model.CacheStats, error)
}

// CacheWarmer runs one maintenance round on demand.
type CacheWarmer interface {
	RefreshExpiring(ctx context.Context) (*maintain.Report, error)
}

// PatternsStore serves and refreshes the learned-patterns row.
type PatternsStore interface {
	GetWithCache(ctx context.Context, forceRefresh bool, analyzer patterns.Analyzer) *model.UserPatterns
}

// APIHandler carries the services the HTTP surface exposes.
type APIHandler struct {
	generator PlaylistGenerator
	cache     CacheStatsSource
	warmer    CacheWarmer
	patterns  PatternsStore
	analyzer  patterns.Analyzer
	playlists repository.PlaylistRepository
	tokens    *auth.TokenIssuer
	adminHash string
}

// NewAPIHandler creates the API handler.
func NewAPIHandler(
	gen PlaylistGenerator,
	cache CacheStatsSource,
	warmer CacheWarmer,
	patternsStore PatternsStore,
	analyzer patterns.Analyzer,
	playlists repository.PlaylistRepository,
	tokens *auth.TokenIssuer,
	adminHash string,
) *APIHandler {
	return &APIHandler{
		generator: gen,
		cache:     cache,
		warmer:    warmer,
		patterns:  patternsStore,
		analyzer:  analyzer,
		playlists: playlists,
		tokens:    tokens,
		adminHash: adminHash,
	}
}

// AuthMiddleware rejects requests without a valid bearer token.
func (h *APIHandler) AuthMiddleware(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		header := r.Header.Get("Authorization")
		if !strings.HasPrefix(header, "Bearer ") {
			writeError(w, http.StatusUnauthorized, "missing bearer token")
			return
		}
		if _, err := h.tokens.Verify(strings.TrimPrefix(header, "Bearer ")); err != nil {
			writeError(w, http.StatusUnauthorized, "invalid token")
			return
		}
		next(w, r)
	}
}

// LoginHandler exchanges the admin password for a bearer token.
func (h *APIHandler) LoginHandler(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Password string `json:"password"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.Password == "" || !auth.CheckPasswordHash(req.Password, h.adminHash) {
		logger.Warn("rejected login attempt")
		writeError(w, http.StatusUnauthorized, "invalid password")
		return
	}

	token, err := h.tokens.Issue("admin")
	if err != nil {
		logger.Error("failed to issue token", logger.ErrorField(err))
		writeError(w, http.StatusInternalServerError, "failed to issue token")
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"token": token})
}

// GeneratePlaylistHandler runs one generation.
func (h *APIHandler) GeneratePlaylistHandler(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Window      string   `json:"window"`
		Strategy    string   `json:"strategy"`
		TargetCount int      `json:"targetCount"`
		GenreFilter string   `json:"genreFilter"`
		Genres      []string `json:"genres"`
		Moods       []string `json:"moods"`
	}
	if r.Body != nil && r.ContentLength != 0 {
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeError(w, http.StatusBadRequest, "invalid request body")
			return
		}
	}

	playlist, err := h.generator.Generate(r.Context(), generator.Request{
		Window:      req.Window,
		Strategy:    req.Strategy,
		TargetCount: req.TargetCount,
		GenreFilter: req.GenreFilter,
		Genres:      req.Genres,
		Moods:       req.Moods,
	})
	switch {
	case err == nil:
		writeJSON(w, http.StatusOK, playlist)
	case errors.Is(err, selection.ErrInsufficientCandidates) && playlist != nil:
		// The playlist exists, just short of the target.
		writeJSON(w, http.StatusOK, map[string]interface{}{
			"playlist": playlist,
			"warning":  err.Error(),
		})
	case errors.Is(err, selection.ErrInsufficientCandidates):
		writeError(w, http.StatusUnprocessableEntity, err.Error())
	case strings.Contains(err.Error(), "unknown playlist window"):
		writeError(w, http.StatusBadRequest, err.Error())
	default:
		logger.Error("playlist generation failed", logger.ErrorField(err))
		writeError(w, http.StatusInternalServerError, "playlist generation failed")
	}
}

// ListPlaylistsHandler returns recently generated playlists.
func (h *APIHandler) ListPlaylistsHandler(w http.ResponseWriter, r *http.Request) {
	limit := 20
	if raw := r.URL.Query().Get("limit"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil || parsed < 1 || parsed > 200 {
			writeError(w, http.StatusBadRequest, "limit must be between 1 and 200")
			return
		}
		limit = parsed
	}

	playlists, err := h.playlists.ListRecent(limit)
	if err != nil {
		logger.Error("failed to list playlists", logger.ErrorField(err))
		writeError(w, http.StatusInternalServerError, "failed to list playlists")
		return
	}
	writeJSON(w, http.StatusOK, playlists)
}

// GetPlaylistHandler returns one saved playlist with its tracks.
func (h *APIHandler) GetPlaylistHandler(w http.ResponseWriter, r *http.Request) {
	externalID := mux.Vars(r)["id"]

	playlist, err := h.playlists.GetByExternalID(externalID)
	if err != nil {
		logger.Error("failed to load playlist", logger.ErrorField(err))
		writeError(w, http.StatusInternalServerError, "failed to load playlist")
		return
	}
	if playlist == nil {
		writeError(w, http.StatusNotFound, "playlist not found")
		return
	}
	writeJSON(w, http.StatusOK, playlist)
}

// CacheStatsHandler reports genre cache contents.
func (h *APIHandler) CacheStatsHandler(w http.ResponseWriter, r *http.Request) {
	stats, err := h.cache.Stats()
	if err != nil {
		logger.Error("failed to compute cache stats", logger.ErrorField(err))
		writeError(w, http.StatusInternalServerError, "failed to compute cache stats")
		return
	}
	writeJSON(w, http.StatusOK, stats)
}

// WarmCacheHandler runs one maintenance round and reports the outcome.
func (h *APIHandler) WarmCacheHandler(w http.ResponseWriter, r *http.Request) {
	report, err := h.warmer.RefreshExpiring(r.Context())
	if err != nil {
		logger.Error("cache warm failed", logger.ErrorField(err))
		writeError(w, http.StatusInternalServerError, "cache warm failed")
		return
	}
	writeJSON(w, http.StatusOK, report)
}

// GetPatternsHandler serves the cached learned patterns.
func (h *APIHandler) GetPatternsHandler(w http.ResponseWriter, r *http.Request) {
	p := h.patterns.GetWithCache(r.Context(), false, nil)
	if p == nil {
		writeError(w, http.StatusNotFound, "no patterns learned yet")
		return
	}
	writeJSON(w, http.StatusOK, p)
}

// RefreshPatternsHandler forces a re-analysis of listening patterns.
func (h *APIHandler) RefreshPatternsHandler(w http.ResponseWriter, r *http.Request) {
	p := h.patterns.GetWithCache(r.Context(), true, h.analyzer)
	if p == nil {
		writeError(w, http.StatusUnprocessableEntity, "pattern analysis produced no result")
		return
	}
	writeJSON(w, http.StatusOK, p)
}

func writeJSON(w http.ResponseWriter, status int, payload interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		logger.Error("failed to encode response", logger.ErrorField(err))
	}
}

func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, map[string]string{"error": message})
}
