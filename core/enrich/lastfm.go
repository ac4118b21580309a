package enrich

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"time"
)

const lastFMAPIURL = "https://ws.audioscrobbler.com/2.0/"

// Community tags below this count are too noisy to trust.
const lastFMMinTagCount = 10

// LastFMClient is provider B: community-tagged, with better coverage of
// indie and niche artists than Spotify.
type LastFMClient struct {
	apiKey     string
	httpClient *http.Client
	clock      *rateLimitClock
}

// NewLastFMClient creates a Last.fm provider client. An empty API key
// disables the provider.
func NewLastFMClient(apiKey string) *LastFMClient {
	return &LastFMClient{
		apiKey: apiKey,
		httpClient: &http.Client{
			Timeout: time.Second * 10,
		},
		clock: &rateLimitClock{},
	}
}

// Name implements Provider.
func (c *LastFMClient) Name() string { return "lastfm" }

// Enabled implements Provider.
func (c *LastFMClient) Enabled() bool { return c.apiKey != "" }

// SearchArtist returns the artist's top community tags split into
// genres and moods.
func (c *LastFMClient) SearchArtist(ctx context.Context, name string) (*ProviderResult, error) {
	var result *ProviderResult
	err := withRetry(ctx, c.clock, c.Name(), func(ctx context.Context) error {
		var callErr error
		result, callErr = c.topTagsOnce(ctx, url.Values{
			"method": {"artist.gettoptags"},
			"artist": {name},
		})
		return callErr
	})
	if err != nil {
		return nil, err
	}
	return result, nil
}

// SearchAlbum returns the album's top community tags.
func (c *LastFMClient) SearchAlbum(ctx context.Context, artist, album string) (*ProviderResult, error) {
	var result *ProviderResult
	err := withRetry(ctx, c.clock, c.Name(), func(ctx context.Context) error {
		var callErr error
		result, callErr = c.topTagsOnce(ctx, url.Values{
			"method": {"album.gettoptags"},
			"artist": {artist},
			"album":  {album},
		})
		return callErr
	})
	if err != nil {
		return nil, err
	}
	return result, nil
}

func (c *LastFMClient) topTagsOnce(ctx context.Context, query url.Values) (*ProviderResult, error) {
	query.Set("api_key", c.apiKey)
	query.Set("format", "json")
	query.Set("autocorrect", "1")

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, lastFMAPIURL+"?"+query.Encode(), nil)
	if err != nil {
		return nil, fmt.Errorf("failed to build lastfm request: %w", err)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("lastfm request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusTooManyRequests {
		return nil, &RateLimitError{RetryAfter: parseRetryAfter(resp.Header.Get("Retry-After"))}
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("lastfm returned status %d", resp.StatusCode)
	}

	body, err := readBody(resp)
	if err != nil {
		return nil, fmt.Errorf("failed to read lastfm response: %w", err)
	}

	var data struct {
		TopTags struct {
			Tag []struct {
				Name  string `json:"name"`
				Count int    `json:"count"`
			} `json:"tag"`
		} `json:"toptags"`
		Error   int    `json:"error"`
		Message string `json:"message"`
	}
	if err := json.Unmarshal(body, &data); err != nil {
		return nil, fmt.Errorf("failed to decode lastfm response: %w", err)
	}
	// Error 29 is Last.fm's in-band rate limit signal.
	if data.Error == 29 {
		return nil, &RateLimitError{}
	}
	if data.Error != 0 {
		return nil, fmt.Errorf("lastfm error %d: %s", data.Error, data.Message)
	}

	tags := make([]string, 0, len(data.TopTags.Tag))
	for _, tag := range data.TopTags.Tag {
		if tag.Count < lastFMMinTagCount {
			continue
		}
		tags = append(tags, tag.Name)
	}

	genres, moods := classifyTags(tags)
	return &ProviderResult{Genres: genres, Moods: moods}, nil
}
