package enrich

import (
	"context"
	"io"
	"net/http"
	"strings"
)

// ProviderResult is what a genre/mood provider returns for one lookup.
type ProviderResult struct {
	Genres     []string
	Moods      []string
	Popularity int // 0-100 where the provider reports it, else 0
}

// Empty reports whether the lookup produced no usable data.
func (r *ProviderResult) Empty() bool {
	return r == nil || (len(r.Genres) == 0 && len(r.Moods) == 0)
}

// Provider is an external genre/mood source. Implementations are best-effort:
// missing credentials disable them cleanly rather than erroring.
type Provider interface {
	Name() string
	Enabled() bool
	SearchArtist(ctx context.Context, name string) (*ProviderResult, error)
	SearchAlbum(ctx context.Context, artist, album string) (*ProviderResult, error)
}

// moodVocabulary separates community tags into moods vs genres. Tags are
// community-entered, so the list aims for the common cases, not completeness.
var moodVocabulary = map[string]struct{}{
	"chill": {}, "chillout": {}, "relaxing": {}, "mellow": {}, "calm": {},
	"energetic": {}, "upbeat": {}, "uplifting": {}, "happy": {}, "feel good": {},
	"melancholy": {}, "melancholic": {}, "sad": {}, "dark": {}, "moody": {},
	"dreamy": {}, "atmospheric": {}, "ethereal": {}, "ambient mood": {},
	"aggressive": {}, "intense": {}, "angry": {},
	"romantic": {}, "sensual": {}, "sexy": {},
	"epic": {}, "driving": {}, "groovy": {}, "funky": {},
	"nostalgic": {}, "bittersweet": {}, "haunting": {}, "hypnotic": {},
}

// readBody drains a response body with a 1MB guard.
func readBody(resp *http.Response) ([]byte, error) {
	return io.ReadAll(io.LimitReader(resp.Body, 1<<20))
}

// classifyTags splits raw provider tags into genres and moods, lowercased
// and deduplicated, preserving order of first appearance.
func classifyTags(tags []string) (genres, moods []string) {
	seen := make(map[string]struct{}, len(tags))
	for _, tag := range tags {
		t := strings.ToLower(strings.TrimSpace(tag))
		if t == "" {
			continue
		}
		if _, dup := seen[t]; dup {
			continue
		}
		seen[t] = struct{}{}
		if _, isMood := moodVocabulary[t]; isMood {
			moods = append(moods, t)
		} else {
			genres = append(genres, t)
		}
	}
	return genres, moods
}
