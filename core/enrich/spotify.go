package enrich

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"sync"
	"time"
)

const (
	spotifyTokenURL  = "https://accounts.spotify.com/api/token"
	spotifySearchURL = "https://api.spotify.com/v1/search"
)

// SpotifyClient is provider A: richer metadata, popularity-aware.
type SpotifyClient struct {
	clientID     string
	clientSecret string
	httpClient   *http.Client
	clock        *rateLimitClock

	tokenMu     sync.Mutex
	accessToken string
	tokenExpiry time.Time
}

// NewSpotifyClient creates a Spotify provider client. Empty credentials
// disable the provider.
func NewSpotifyClient(clientID, clientSecret string) *SpotifyClient {
	return &SpotifyClient{
		clientID:     clientID,
		clientSecret: clientSecret,
		httpClient: &http.Client{
			Timeout: time.Second * 10,
		},
		clock: &rateLimitClock{},
	}
}

// Name implements Provider.
func (c *SpotifyClient) Name() string { return "spotify" }

// Enabled implements Provider.
func (c *SpotifyClient) Enabled() bool {
	return c.clientID != "" && c.clientSecret != ""
}

// SearchArtist looks up an artist and returns its genres and popularity.
func (c *SpotifyClient) SearchArtist(ctx context.Context, name string) (*ProviderResult, error) {
	var result *ProviderResult
	err := withRetry(ctx, c.clock, c.Name(), func(ctx context.Context) error {
		var callErr error
		result, callErr = c.searchArtistOnce(ctx, name)
		return callErr
	})
	if err != nil {
		return nil, err
	}
	return result, nil
}

// SearchAlbum looks up an album by artist and title. Spotify rarely tags
// albums directly, so results are sparse; the chain falls through to the
// artist level when this comes back empty.
func (c *SpotifyClient) SearchAlbum(ctx context.Context, artist, album string) (*ProviderResult, error) {
	var result *ProviderResult
	err := withRetry(ctx, c.clock, c.Name(), func(ctx context.Context) error {
		var callErr error
		result, callErr = c.searchAlbumOnce(ctx, artist, album)
		return callErr
	})
	if err != nil {
		return nil, err
	}
	return result, nil
}

func (c *SpotifyClient) searchArtistOnce(ctx context.Context, name string) (*ProviderResult, error) {
	body, err := c.get(ctx, url.Values{
		"q":     {name},
		"type":  {"artist"},
		"limit": {"1"},
	})
	if err != nil {
		return nil, err
	}

	var data struct {
		Artists struct {
			Items []struct {
				Name       string   `json:"name"`
				Genres     []string `json:"genres"`
				Popularity int      `json:"popularity"`
			} `json:"items"`
		} `json:"artists"`
	}
	if err := json.Unmarshal(body, &data); err != nil {
		return nil, fmt.Errorf("failed to decode spotify artist search: %w", err)
	}
	if len(data.Artists.Items) == 0 {
		return &ProviderResult{}, nil
	}

	item := data.Artists.Items[0]
	genres, moods := classifyTags(item.Genres)
	return &ProviderResult{Genres: genres, Moods: moods, Popularity: item.Popularity}, nil
}

func (c *SpotifyClient) searchAlbumOnce(ctx context.Context, artist, album string) (*ProviderResult, error) {
	body, err := c.get(ctx, url.Values{
		"q":     {fmt.Sprintf("album:%s artist:%s", album, artist)},
		"type":  {"album"},
		"limit": {"1"},
	})
	if err != nil {
		return nil, err
	}

	var data struct {
		Albums struct {
			Items []struct {
				Name   string   `json:"name"`
				Genres []string `json:"genres"`
			} `json:"items"`
		} `json:"albums"`
	}
	if err := json.Unmarshal(body, &data); err != nil {
		return nil, fmt.Errorf("failed to decode spotify album search: %w", err)
	}
	if len(data.Albums.Items) == 0 {
		return &ProviderResult{}, nil
	}

	genres, moods := classifyTags(data.Albums.Items[0].Genres)
	return &ProviderResult{Genres: genres, Moods: moods}, nil
}

// get performs an authenticated search request, translating 429s into
// RateLimitError so withRetry can handle them.
func (c *SpotifyClient) get(ctx context.Context, query url.Values) ([]byte, error) {
	token, err := c.token(ctx)
	if err != nil {
		return nil, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, spotifySearchURL+"?"+query.Encode(), nil)
	if err != nil {
		return nil, fmt.Errorf("failed to build spotify request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+token)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("spotify request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusTooManyRequests {
		return nil, &RateLimitError{RetryAfter: parseRetryAfter(resp.Header.Get("Retry-After"))}
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("spotify returned status %d", resp.StatusCode)
	}

	var buf []byte
	buf, err = readBody(resp)
	if err != nil {
		return nil, fmt.Errorf("failed to read spotify response: %w", err)
	}
	return buf, nil
}

// token returns a cached client-credentials token, refreshing when expired.
func (c *SpotifyClient) token(ctx context.Context) (string, error) {
	c.tokenMu.Lock()
	defer c.tokenMu.Unlock()

	if c.accessToken != "" && time.Now().Before(c.tokenExpiry) {
		return c.accessToken, nil
	}

	form := url.Values{"grant_type": {"client_credentials"}}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, spotifyTokenURL, strings.NewReader(form.Encode()))
	if err != nil {
		return "", fmt.Errorf("failed to build spotify token request: %w", err)
	}
	req.SetBasicAuth(c.clientID, c.clientSecret)
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("spotify token request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusTooManyRequests {
		return "", &RateLimitError{RetryAfter: parseRetryAfter(resp.Header.Get("Retry-After"))}
	}
	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("spotify token endpoint returned status %d", resp.StatusCode)
	}

	var data struct {
		AccessToken string `json:"access_token"`
		ExpiresIn   int    `json:"expires_in"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&data); err != nil {
		return "", fmt.Errorf("failed to decode spotify token response: %w", err)
	}

	c.accessToken = data.AccessToken
	// Refresh a minute early so in-flight requests don't race expiry.
	c.tokenExpiry = time.Now().Add(time.Duration(data.ExpiresIn)*time.Second - time.Minute)
	return c.accessToken, nil
}

// parseRetryAfter parses a Retry-After header in seconds; 0 when absent or
// unparseable.
func parseRetryAfter(value string) time.Duration {
	if value == "" {
		return 0
	}
	secs, err := strconv.Atoi(value)
	if err != nil || secs < 0 {
		return 0
	}
	return time.Duration(secs) * time.Second
}
