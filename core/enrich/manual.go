package enrich

import (
	"encoding/json"
	"os"
	"strings"
	"sync"

	"github.com/mdabushayem62/plex-playlists-sub003/logger"

	"github.com/fsnotify/fsnotify"
)

// defaultManualGenres is the built-in last-resort mapping. Keys are matched
// as case-insensitive substrings of the artist name.
var defaultManualGenres = map[string][]string{
	"orchestra":  {"classical"},
	"symphony":   {"classical"},
	"quartet":    {"classical"},
	"philharmonic": {"classical"},
	"ensemble":   {"classical"},
	"choir":      {"classical", "vocal"},
	"big band":   {"jazz", "swing"},
	"trio":       {"jazz"},
	"dj ":        {"electronic"},
	"mc ":        {"hip hop"},
	"soundtrack": {"soundtrack"},
	"lo-fi":      {"lo-fi"},
	"lofi":       {"lo-fi"},
}

// ManualTable is the static artist-name→genre mapping used as the last link
// of the provider chain. An optional JSON file extends the built-ins and is
// hot-reloaded when it changes on disk.
type ManualTable struct {
	mu      sync.RWMutex
	entries map[string][]string

	path    string
	watcher *fsnotify.Watcher
	done    chan struct{}
}

// NewManualTable creates a table seeded with the built-in mapping, merged
// with the JSON file at path when it exists. Pass an empty path to use only
// the built-ins.
func NewManualTable(path string) *ManualTable {
	t := &ManualTable{
		entries: make(map[string][]string, len(defaultManualGenres)),
		path:    path,
		done:    make(chan struct{}),
	}
	for k, v := range defaultManualGenres {
		t.entries[strings.ToLower(k)] = v
	}
	if path != "" {
		t.loadFile()
	}
	return t
}

// Lookup returns the genres for the first mapping whose key occurs in the
// artist name, case-insensitively. Empty when nothing matches.
func (t *ManualTable) Lookup(artist string) []string {
	name := strings.ToLower(strings.TrimSpace(artist))
	if name == "" {
		return nil
	}

	t.mu.RLock()
	defer t.mu.RUnlock()

	// Exact key first so a targeted entry beats a substring one.
	if genres, ok := t.entries[name]; ok {
		return genres
	}
	for key, genres := range t.entries {
		if strings.Contains(name, key) {
			return genres
		}
	}
	return nil
}

// Watch starts watching the mapping file and reloads it on change.
// No-op when no path is configured.
func (t *ManualTable) Watch() error {
	if t.path == "" {
		return nil
	}

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}
	if err := watcher.Add(t.path); err != nil {
		// The file may not exist yet; watch its directory would be nicer
		// but a missing optional file just means built-ins only.
		watcher.Close()
		logger.Warn("manual genre map not watchable", logger.String("path", t.path), logger.ErrorField(err))
		return nil
	}
	t.watcher = watcher

	go func() {
		for {
			select {
			case <-t.done:
				return
			case ev, ok := <-watcher.Events:
				if !ok {
					return
				}
				if ev.Op&(fsnotify.Write|fsnotify.Create) != 0 {
					logger.Info("manual genre map changed, reloading", logger.String("path", t.path))
					t.loadFile()
				}
			case err, ok := <-watcher.Errors:
				if !ok {
					return
				}
				logger.Warn("manual genre map watch error", logger.ErrorField(err))
			}
		}
	}()
	return nil
}

// Close stops the file watcher.
func (t *ManualTable) Close() {
	close(t.done)
	if t.watcher != nil {
		t.watcher.Close()
	}
}

// loadFile merges the JSON file over the built-ins. Failures keep the
// current table.
func (t *ManualTable) loadFile() {
	data, err := os.ReadFile(t.path)
	if err != nil {
		if !os.IsNotExist(err) {
			logger.Warn("failed to read manual genre map", logger.String("path", t.path), logger.ErrorField(err))
		}
		return
	}

	var fileEntries map[string][]string
	if err := json.Unmarshal(data, &fileEntries); err != nil {
		logger.Warn("failed to parse manual genre map", logger.String("path", t.path), logger.ErrorField(err))
		return
	}

	merged := make(map[string][]string, len(defaultManualGenres)+len(fileEntries))
	for k, v := range defaultManualGenres {
		merged[strings.ToLower(k)] = v
	}
	for k, v := range fileEntries {
		merged[strings.ToLower(k)] = v
	}

	t.mu.Lock()
	t.entries = merged
	t.mu.Unlock()
}
