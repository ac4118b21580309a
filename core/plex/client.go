// Package plex is a thin client for the Plex Media Server HTTP API, covering
// only what playlist generation needs: play history, track metadata, and
// playlist create/update.
package plex

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/mdabushayem62/plex-playlists-sub003/logger"
	"github.com/mdabushayem62/plex-playlists-sub003/model"
)

const (
	defaultTimeout = 10 * time.Second

	// Plex caps URL length well above this; batching keeps requests sane
	// for large histories.
	metadataBatchSize = 100
)

// Client talks to one Plex server.
type Client struct {
	baseURL    string
	token      string
	sectionID  string
	httpClient *http.Client

	mu        sync.Mutex
	machineID string
}

// NewClient creates a Plex client. sectionID is the music library section.
func NewClient(baseURL, token, sectionID string) *Client {
	return &Client{
		baseURL:   strings.TrimRight(baseURL, "/"),
		token:     token,
		sectionID: sectionID,
		httpClient: &http.Client{
			Timeout: defaultTimeout,
		},
	}
}

// mediaContainer is the envelope every Plex JSON response shares.
type mediaContainer struct {
	MediaContainer struct {
		Size              int            `json:"size"`
		TotalSize         int            `json:"totalSize"`
		MachineIdentifier string         `json:"machineIdentifier"`
		Metadata          []metadataItem `json:"Metadata"`
	} `json:"MediaContainer"`
}

type tagEntry struct {
	Tag string `json:"tag"`
}

type metadataItem struct {
	RatingKey        string     `json:"ratingKey"`
	Title            string     `json:"title"`
	GrandparentTitle string     `json:"grandparentTitle"` // artist
	ParentTitle      string     `json:"parentTitle"`      // album
	UserRating       float64    `json:"userRating"`
	ViewCount        uint       `json:"viewCount"`
	SkipCount        uint       `json:"skipCount"`
	Duration         int64      `json:"duration"`
	ViewedAt         int64      `json:"viewedAt"`
	AddedAt          int64      `json:"addedAt"`
	LastViewedAt     int64      `json:"lastViewedAt"`
	AccountID        int64      `json:"accountID"`
	Genre            []tagEntry `json:"Genre"`
	Mood             []tagEntry `json:"Mood"`
}

// FetchHistory returns raw play events for the music section within the
// lookback window, newest first as Plex reports them.
func (c *Client) FetchHistory(ctx context.Context, lookbackDays int) ([]model.PlayEvent, error) {
	since := time.Now().AddDate(0, 0, -lookbackDays).Unix()

	query := url.Values{}
	query.Set("librarySectionID", c.sectionID)
	query.Set("viewedAt>", strconv.FormatInt(since, 10))
	query.Set("sort", "viewedAt:desc")

	var container mediaContainer
	if err := c.get(ctx, "/status/sessions/history/all", query, &container); err != nil {
		return nil, fmt.Errorf("failed to fetch play history: %w", err)
	}

	events := make([]model.PlayEvent, 0, len(container.MediaContainer.Metadata))
	for _, item := range container.MediaContainer.Metadata {
		if item.RatingKey == "" || item.ViewedAt == 0 {
			continue
		}
		events = append(events, model.PlayEvent{
			RatingKey: item.RatingKey,
			ViewedAt:  time.Unix(item.ViewedAt, 0),
			AccountID: item.AccountID,
		})
	}

	logger.Debug("fetched play history",
		logger.Int("events", len(events)),
		logger.Int("lookbackDays", lookbackDays))
	return events, nil
}

// FetchTracksByIDs resolves rating keys to track metadata. Keys the server no
// longer knows are simply absent from the result.
func (c *Client) FetchTracksByIDs(ctx context.Context, ids []string) (map[string]model.TrackMetadata, error) {
	tracks := make(map[string]model.TrackMetadata, len(ids))

	for start := 0; start < len(ids); start += metadataBatchSize {
		end := start + metadataBatchSize
		if end > len(ids) {
			end = len(ids)
		}
		batch := ids[start:end]

		var container mediaContainer
		path := "/library/metadata/" + strings.Join(batch, ",")
		if err := c.get(ctx, path, nil, &container); err != nil {
			return nil, fmt.Errorf("failed to fetch track metadata: %w", err)
		}

		for _, item := range container.MediaContainer.Metadata {
			tracks[item.RatingKey] = toTrackMetadata(item)
		}
	}
	return tracks, nil
}

// TrackCount returns the number of tracks in the music section.
func (c *Client) TrackCount(ctx context.Context) (int, error) {
	query := url.Values{}
	query.Set("type", "10") // audio tracks
	query.Set("X-Plex-Container-Start", "0")
	query.Set("X-Plex-Container-Size", "0")

	var container mediaContainer
	path := "/library/sections/" + c.sectionID + "/all"
	if err := c.get(ctx, path, query, &container); err != nil {
		return 0, fmt.Errorf("failed to fetch library size: %w", err)
	}
	return container.MediaContainer.TotalSize, nil
}

// FindPlaylist returns the rating key of the audio playlist with the given
// title, or "" when none exists.
func (c *Client) FindPlaylist(ctx context.Context, title string) (string, error) {
	query := url.Values{}
	query.Set("playlistType", "audio")

	var container mediaContainer
	if err := c.get(ctx, "/playlists", query, &container); err != nil {
		return "", fmt.Errorf("failed to list playlists: %w", err)
	}

	for _, item := range container.MediaContainer.Metadata {
		if strings.EqualFold(item.Title, title) {
			return item.RatingKey, nil
		}
	}
	return "", nil
}

// CreatePlaylist creates an audio playlist with the given tracks and returns
// its rating key.
func (c *Client) CreatePlaylist(ctx context.Context, title string, ratingKeys []string) (string, error) {
	uri, err := c.libraryURI(ctx, ratingKeys)
	if err != nil {
		return "", err
	}

	query := url.Values{}
	query.Set("type", "audio")
	query.Set("title", title)
	query.Set("smart", "0")
	query.Set("uri", uri)

	var container mediaContainer
	if err := c.do(ctx, http.MethodPost, "/playlists", query, &container); err != nil {
		return "", fmt.Errorf("failed to create playlist %q: %w", title, err)
	}
	if len(container.MediaContainer.Metadata) == 0 {
		return "", fmt.Errorf("playlist create for %q returned no metadata", title)
	}
	return container.MediaContainer.Metadata[0].RatingKey, nil
}

// UpdatePlaylist replaces the contents of an existing playlist.
func (c *Client) UpdatePlaylist(ctx context.Context, playlistKey string, ratingKeys []string) error {
	itemsPath := "/playlists/" + playlistKey + "/items"
	if err := c.do(ctx, http.MethodDelete, itemsPath, nil, nil); err != nil {
		return fmt.Errorf("failed to clear playlist %s: %w", playlistKey, err)
	}

	uri, err := c.libraryURI(ctx, ratingKeys)
	if err != nil {
		return err
	}
	query := url.Values{}
	query.Set("uri", uri)
	if err := c.do(ctx, http.MethodPut, itemsPath, query, nil); err != nil {
		return fmt.Errorf("failed to fill playlist %s: %w", playlistKey, err)
	}
	return nil
}

// libraryURI builds the server://.../library/metadata/... uri the playlist
// endpoints expect.
func (c *Client) libraryURI(ctx context.Context, ratingKeys []string) (string, error) {
	machineID, err := c.machineIdentifier(ctx)
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("server://%s/com.plexapp.plugins.library/library/metadata/%s",
		machineID, strings.Join(ratingKeys, ",")), nil
}

// machineIdentifier fetches and caches the server's machine identifier.
func (c *Client) machineIdentifier(ctx context.Context) (string, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.machineID != "" {
		return c.machineID, nil
	}

	var container mediaContainer
	if err := c.get(ctx, "/identity", nil, &container); err != nil {
		return "", fmt.Errorf("failed to fetch server identity: %w", err)
	}
	if container.MediaContainer.MachineIdentifier == "" {
		return "", fmt.Errorf("server identity response carried no machine identifier")
	}
	c.machineID = container.MediaContainer.MachineIdentifier
	return c.machineID, nil
}

func (c *Client) get(ctx context.Context, path string, query url.Values, out interface{}) error {
	return c.do(ctx, http.MethodGet, path, query, out)
}

// do issues one authenticated JSON request. out may be nil when the response
// body doesn't matter.
func (c *Client) do(ctx context.Context, method, path string, query url.Values, out interface{}) error {
	if query == nil {
		query = url.Values{}
	}

	reqURL := c.baseURL + path + "?" + query.Encode()
	req, err := http.NewRequestWithContext(ctx, method, reqURL, nil)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("X-Plex-Token", c.token)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return fmt.Errorf("server returned status %d: %s", resp.StatusCode, strings.TrimSpace(string(body)))
	}

	if out == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("failed to decode response: %w", err)
	}
	return nil
}

func toTrackMetadata(item metadataItem) model.TrackMetadata {
	meta := model.TrackMetadata{
		RatingKey:  item.RatingKey,
		Title:      item.Title,
		Artist:     item.GrandparentTitle,
		Album:      item.ParentTitle,
		Rating:     item.UserRating,
		ViewCount:  item.ViewCount,
		SkipCount:  item.SkipCount,
		DurationMs: item.Duration,
		Genres:     tagsOf(item.Genre),
		Moods:      tagsOf(item.Mood),
	}
	if item.AddedAt > 0 {
		t := time.Unix(item.AddedAt, 0)
		meta.AddedAt = &t
	}
	if item.LastViewedAt > 0 {
		t := time.Unix(item.LastViewedAt, 0)
		meta.LastViewedAt = &t
	}
	return meta
}

func tagsOf(entries []tagEntry) []string {
	if len(entries) == 0 {
		return nil
	}
	tags := make([]string, 0, len(entries))
	for _, e := range entries {
		if e.Tag != "" {
			tags = append(tags, e.Tag)
		}
	}
	return tags
}
