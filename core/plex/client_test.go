package plex

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestServer(t *testing.T, routes map[string]string) (*httptest.Server, *Client) {
	t.Helper()
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "secret-token", r.Header.Get("X-Plex-Token"))
		body, ok := routes[r.URL.Path]
		if !ok {
			http.NotFound(w, r)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(body))
	}))
	t.Cleanup(server.Close)
	return server, NewClient(server.URL, "secret-token", "3")
}

func TestFetchHistory(t *testing.T) {
	_, client := newTestServer(t, map[string]string{
		"/status/sessions/history/all": `{"MediaContainer":{"size":3,"Metadata":[
			{"ratingKey":"100","viewedAt":1748750400,"accountID":1},
			{"ratingKey":"200","viewedAt":1748664000,"accountID":2},
			{"ratingKey":"","viewedAt":1748660000,"accountID":1}
		]}}`,
	})

	events, err := client.FetchHistory(context.Background(), 30)
	require.NoError(t, err)
	require.Len(t, events, 2, "entries without a rating key are skipped")

	assert.Equal(t, "100", events[0].RatingKey)
	assert.Equal(t, time.Unix(1748750400, 0), events[0].ViewedAt)
	assert.Equal(t, int64(2), events[1].AccountID)
}

func TestFetchTracksByIDs(t *testing.T) {
	_, client := newTestServer(t, map[string]string{
		"/library/metadata/100,200": `{"MediaContainer":{"Metadata":[
			{"ratingKey":"100","title":"Turbo Killer","grandparentTitle":"Carpenter Brut",
			 "parentTitle":"Trilogy","userRating":8,"viewCount":42,"skipCount":1,
			 "addedAt":1700000000,"lastViewedAt":1748750400,
			 "Genre":[{"tag":"Synthwave"},{"tag":"Darksynth"}],"Mood":[{"tag":"Aggressive"}]}
		]}}`,
	})

	tracks, err := client.FetchTracksByIDs(context.Background(), []string{"100", "200"})
	require.NoError(t, err)
	require.Len(t, tracks, 1, "rating key 200 has left the library")

	track := tracks["100"]
	assert.Equal(t, "Carpenter Brut", track.Artist)
	assert.Equal(t, "Trilogy", track.Album)
	assert.Equal(t, 8.0, track.Rating)
	assert.Equal(t, []string{"Synthwave", "Darksynth"}, track.Genres)
	assert.Equal(t, []string{"Aggressive"}, track.Moods)
	require.NotNil(t, track.AddedAt)
	assert.Equal(t, time.Unix(1700000000, 0), *track.AddedAt)
}

func TestFetchTracksByIDsEmpty(t *testing.T) {
	_, client := newTestServer(t, nil)
	tracks, err := client.FetchTracksByIDs(context.Background(), nil)
	require.NoError(t, err)
	assert.Empty(t, tracks, "no ids means no requests")
}

func TestTrackCount(t *testing.T) {
	_, client := newTestServer(t, map[string]string{
		"/library/sections/3/all": `{"MediaContainer":{"totalSize":15234}}`,
	})

	count, err := client.TrackCount(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 15234, count)
}

func TestFindPlaylist(t *testing.T) {
	_, client := newTestServer(t, map[string]string{
		"/playlists": `{"MediaContainer":{"Metadata":[
			{"ratingKey":"900","title":"Morning Mix"},
			{"ratingKey":"901","title":"Discovery Weekly"}
		]}}`,
	})

	key, err := client.FindPlaylist(context.Background(), "discovery weekly")
	require.NoError(t, err)
	assert.Equal(t, "901", key, "title match is case-insensitive")

	key, err = client.FindPlaylist(context.Background(), "Evening Mix")
	require.NoError(t, err)
	assert.Empty(t, key)
}

func TestCreatePlaylist(t *testing.T) {
	var createQuery string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		switch r.URL.Path {
		case "/identity":
			_, _ = w.Write([]byte(`{"MediaContainer":{"machineIdentifier":"abc123"}}`))
		case "/playlists":
			require.Equal(t, http.MethodPost, r.Method)
			createQuery = r.URL.RawQuery
			_, _ = w.Write([]byte(`{"MediaContainer":{"Metadata":[{"ratingKey":"950"}]}}`))
		default:
			http.NotFound(w, r)
		}
	}))
	defer server.Close()
	client := NewClient(server.URL, "secret-token", "3")

	key, err := client.CreatePlaylist(context.Background(), "Morning Mix", []string{"100", "200"})
	require.NoError(t, err)
	assert.Equal(t, "950", key)
	assert.Contains(t, createQuery, "abc123")
	assert.Contains(t, createQuery, "100%2C200")
}

func TestServerErrorSurfaces(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "unauthorized", http.StatusUnauthorized)
	}))
	defer server.Close()
	client := NewClient(server.URL, "bad-token", "3")

	_, err := client.FetchHistory(context.Background(), 30)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "401")
}
