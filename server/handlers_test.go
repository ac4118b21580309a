package server

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/mux"

	"github.com/mdabushayem62/plex-playlists-sub003/core/auth"
	"github.com/mdabushayem62/plex-playlists-sub003/core/generator"
	"github.com/mdabushayem62/plex-playlists-sub003/core/maintain"
	"github.com/mdabushayem62/plex-playlists-sub003/core/patterns"
	"github.com/mdabushayem62/plex-playlists-sub003/core/selection"
	"github.com/mdabushayem62/plex-playlists-sub003/model"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeGenerator struct {
	playlist *model.Playlist
	err      error
	lastReq  generator.Request
}

func (f *fakeGenerator) Generate(_ context.Context, req generator.Request) (*model.Playlist, error) {
	f.lastReq = req
	return f.playlist, f.err
}

type fakeStats struct {
	stats *model.CacheStats
	err   error
}

func (f *fakeStats) Stats() (*model.CacheStats, error) { return f.stats, f.err }

type fakeWarmer struct {
	report *maintain.Report
	err    error
}

func (f *fakeWarmer) RefreshExpiring(_ context.Context) (*maintain.Report, error) {
	return f.report, f.err
}

type fakePatterns struct {
	patterns     *model.UserPatterns
	forceRefresh bool
}

func (f *fakePatterns) GetWithCache(_ context.Context, forceRefresh bool, _ patterns.Analyzer) *model.UserPatterns {
	f.forceRefresh = forceRefresh
	return f.patterns
}

type fakePlaylists struct {
	recent  []model.Playlist
	byID    map[string]*model.Playlist
	listErr error
}

func (f *fakePlaylists) Create(*model.Playlist) error { return nil }

func (f *fakePlaylists) GetByExternalID(id string) (*model.Playlist, error) {
	return f.byID[id], nil
}

func (f *fakePlaylists) ListRecent(limit int) ([]model.Playlist, error) {
	if f.listErr != nil {
		return nil, f.listErr
	}
	if limit < len(f.recent) {
		return f.recent[:limit], nil
	}
	return f.recent, nil
}

func (f *fakePlaylists) HasWindow(string) (bool, error) { return false, nil }

type handlerFixture struct {
	handler   *APIHandler
	generator *fakeGenerator
	patterns  *fakePatterns
	playlists *fakePlaylists
	tokens    *auth.TokenIssuer
}

func newFixture(t *testing.T) *handlerFixture {
	t.Helper()
	adminHash, err := auth.HashPassword("hunter2")
	require.NoError(t, err)

	gen := &fakeGenerator{playlist: &model.Playlist{ExternalID: "ext-1", Title: "Morning Mix"}}
	pats := &fakePatterns{}
	lists := &fakePlaylists{byID: map[string]*model.Playlist{}}
	tokens := auth.NewTokenIssuer("test-secret", time.Hour)

	return &handlerFixture{
		handler: NewAPIHandler(gen, &fakeStats{stats: &model.CacheStats{TotalEntries: 12}},
			&fakeWarmer{report: &maintain.Report{Refreshed: 3}}, pats, nil, lists, tokens, adminHash),
		generator: gen,
		patterns:  pats,
		playlists: lists,
		tokens:    tokens,
	}
}

func TestLoginHandler(t *testing.T) {
	f := newFixture(t)

	t.Run("valid password gets a token", func(t *testing.T) {
		rec := httptest.NewRecorder()
		req := httptest.NewRequest(http.MethodPost, "/api/auth/login", strings.NewReader(`{"password":"hunter2"}`))
		f.handler.LoginHandler(rec, req)

		require.Equal(t, http.StatusOK, rec.Code)
		var body map[string]string
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))

		subject, err := f.tokens.Verify(body["token"])
		require.NoError(t, err)
		assert.Equal(t, "admin", subject)
	})

	t.Run("wrong password rejected", func(t *testing.T) {
		rec := httptest.NewRecorder()
		req := httptest.NewRequest(http.MethodPost, "/api/auth/login", strings.NewReader(`{"password":"wrong"}`))
		f.handler.LoginHandler(rec, req)
		assert.Equal(t, http.StatusUnauthorized, rec.Code)
	})

	t.Run("empty body rejected", func(t *testing.T) {
		rec := httptest.NewRecorder()
		req := httptest.NewRequest(http.MethodPost, "/api/auth/login", strings.NewReader(`{}`))
		f.handler.LoginHandler(rec, req)
		assert.Equal(t, http.StatusUnauthorized, rec.Code)
	})
}

func TestAuthMiddleware(t *testing.T) {
	f := newFixture(t)
	protected := f.handler.AuthMiddleware(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNoContent)
	})

	t.Run("missing token", func(t *testing.T) {
		rec := httptest.NewRecorder()
		protected(rec, httptest.NewRequest(http.MethodGet, "/api/playlists", nil))
		assert.Equal(t, http.StatusUnauthorized, rec.Code)
	})

	t.Run("garbage token", func(t *testing.T) {
		rec := httptest.NewRecorder()
		req := httptest.NewRequest(http.MethodGet, "/api/playlists", nil)
		req.Header.Set("Authorization", "Bearer nonsense")
		protected(rec, req)
		assert.Equal(t, http.StatusUnauthorized, rec.Code)
	})

	t.Run("valid token passes through", func(t *testing.T) {
		token, err := f.tokens.Issue("admin")
		require.NoError(t, err)

		rec := httptest.NewRecorder()
		req := httptest.NewRequest(http.MethodGet, "/api/playlists", nil)
		req.Header.Set("Authorization", "Bearer "+token)
		protected(rec, req)
		assert.Equal(t, http.StatusNoContent, rec.Code)
	})
}

func TestGeneratePlaylistHandler(t *testing.T) {
	t.Run("success", func(t *testing.T) {
		f := newFixture(t)
		rec := httptest.NewRecorder()
		req := httptest.NewRequest(http.MethodPost, "/api/playlists/generate",
			strings.NewReader(`{"window":"morning","genres":["jazz"],"targetCount":25}`))
		f.handler.GeneratePlaylistHandler(rec, req)

		require.Equal(t, http.StatusOK, rec.Code)
		assert.Equal(t, "morning", f.generator.lastReq.Window)
		assert.Equal(t, []string{"jazz"}, f.generator.lastReq.Genres)
		assert.Equal(t, 25, f.generator.lastReq.TargetCount)
	})

	t.Run("partial playlist returns warning", func(t *testing.T) {
		f := newFixture(t)
		f.generator.err = fmt.Errorf("%w: selected 7 of 50", selection.ErrInsufficientCandidates)

		rec := httptest.NewRecorder()
		req := httptest.NewRequest(http.MethodPost, "/api/playlists/generate", strings.NewReader(`{}`))
		f.handler.GeneratePlaylistHandler(rec, req)

		require.Equal(t, http.StatusOK, rec.Code)
		var body map[string]interface{}
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
		assert.Contains(t, body, "playlist")
		assert.Contains(t, body["warning"], "insufficient candidates")
	})

	t.Run("no playlist at all", func(t *testing.T) {
		f := newFixture(t)
		f.generator.playlist = nil
		f.generator.err = fmt.Errorf("no candidates: %w", selection.ErrInsufficientCandidates)

		rec := httptest.NewRecorder()
		req := httptest.NewRequest(http.MethodPost, "/api/playlists/generate", strings.NewReader(`{}`))
		f.handler.GeneratePlaylistHandler(rec, req)
		assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)
	})

	t.Run("unknown window", func(t *testing.T) {
		f := newFixture(t)
		f.generator.playlist = nil
		f.generator.err = fmt.Errorf("unknown playlist window %q", "midnight")

		rec := httptest.NewRecorder()
		req := httptest.NewRequest(http.MethodPost, "/api/playlists/generate",
			strings.NewReader(`{"window":"midnight"}`))
		f.handler.GeneratePlaylistHandler(rec, req)
		assert.Equal(t, http.StatusBadRequest, rec.Code)
	})
}

func TestListPlaylistsHandler(t *testing.T) {
	f := newFixture(t)
	f.playlists.recent = []model.Playlist{{ExternalID: "a"}, {ExternalID: "b"}}

	t.Run("default limit", func(t *testing.T) {
		rec := httptest.NewRecorder()
		f.handler.ListPlaylistsHandler(rec, httptest.NewRequest(http.MethodGet, "/api/playlists", nil))

		require.Equal(t, http.StatusOK, rec.Code)
		var body []model.Playlist
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
		assert.Len(t, body, 2)
	})

	t.Run("invalid limit rejected", func(t *testing.T) {
		rec := httptest.NewRecorder()
		f.handler.ListPlaylistsHandler(rec, httptest.NewRequest(http.MethodGet, "/api/playlists?limit=0", nil))
		assert.Equal(t, http.StatusBadRequest, rec.Code)
	})
}

func TestGetPlaylistHandler(t *testing.T) {
	f := newFixture(t)
	f.playlists.byID["ext-9"] = &model.Playlist{ExternalID: "ext-9", Title: "Throwback Mix"}

	router := mux.NewRouter()
	router.HandleFunc("/api/playlists/{id}", f.handler.GetPlaylistHandler)

	t.Run("found", func(t *testing.T) {
		rec := httptest.NewRecorder()
		router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/playlists/ext-9", nil))

		require.Equal(t, http.StatusOK, rec.Code)
		var body model.Playlist
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
		assert.Equal(t, "Throwback Mix", body.Title)
	})

	t.Run("not found", func(t *testing.T) {
		rec := httptest.NewRecorder()
		router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/playlists/missing", nil))
		assert.Equal(t, http.StatusNotFound, rec.Code)
	})
}

func TestCacheStatsHandler(t *testing.T) {
	f := newFixture(t)
	rec := httptest.NewRecorder()
	f.handler.CacheStatsHandler(rec, httptest.NewRequest(http.MethodGet, "/api/cache/stats", nil))

	require.Equal(t, http.StatusOK, rec.Code)
	var stats model.CacheStats
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &stats))
	assert.Equal(t, int64(12), stats.TotalEntries)
}

func TestWarmCacheHandler(t *testing.T) {
	f := newFixture(t)
	rec := httptest.NewRecorder()
	f.handler.WarmCacheHandler(rec, httptest.NewRequest(http.MethodPost, "/api/cache/warm", nil))

	require.Equal(t, http.StatusOK, rec.Code)
	var report maintain.Report
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &report))
	assert.Equal(t, 3, report.Refreshed)
}

func TestPatternsHandlers(t *testing.T) {
	t.Run("nothing learned yet", func(t *testing.T) {
		f := newFixture(t)
		rec := httptest.NewRecorder()
		f.handler.GetPatternsHandler(rec, httptest.NewRequest(http.MethodGet, "/api/patterns", nil))
		assert.Equal(t, http.StatusNotFound, rec.Code)
	})

	t.Run("refresh forces analysis", func(t *testing.T) {
		f := newFixture(t)
		f.patterns.patterns = &model.UserPatterns{SessionsAnalyzed: 42}

		rec := httptest.NewRecorder()
		f.handler.RefreshPatternsHandler(rec, httptest.NewRequest(http.MethodPost, "/api/patterns", nil))

		require.Equal(t, http.StatusOK, rec.Code)
		assert.True(t, f.patterns.forceRefresh)
	})
}
