package config

import (
	"log"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

// Config stores the application configuration.
// Recommendation knobs have working defaults; credentials must come from the environment.
type Config struct {
	ServerPort string

	DBHost     string
	DBPort     string
	DBUser     string
	DBPassword string
	DBName     string

	RedisHost     string
	RedisPort     string
	RedisPassword string
	RedisDB       int

	// Plex server access
	PlexBaseURL   string
	PlexToken     string
	PlexAccountID int64
	PlexSectionID int64 // music library section

	// Genre/mood providers. Missing credentials disable the provider.
	SpotifyClientID     string
	SpotifyClientSecret string
	LastFMAPIKey        string

	// Path to the manual artist→genre mapping file, hot-reloaded on change.
	ManualGenreMapPath string

	// Scoring
	RecencyHalfLifeDays float64
	PlayCountSaturation int
	ThrowbackMinDays    int
	ThrowbackMaxDays    int
	DiscoveryMinDays    int
	HistoryLookbackDays int

	// Selection
	TargetPlaylistSize int
	MaxPerArtist       int
	MaxGenreShare      float64

	// Cache TTLs and maintenance
	GenreCacheTTL        time.Duration
	PatternsCacheTTL     time.Duration
	CacheWarmConcurrency int
	CacheWarmInterval    time.Duration

	// HTTP API auth
	AdminPassword string
	JWTSecret     string

	LogLevel string
	LogPath  string
}

// getEnv gets an environment variable or returns a default value.
func getEnv(key, fallback string) string {
	if value, exists := os.LookupEnv(key); exists {
		return value
	}
	return fallback
}

// getEnvInt gets an environment variable as int or returns a default value.
func getEnvInt(key string, fallback int) int {
	if value, exists := os.LookupEnv(key); exists {
		if intVal, err := strconv.Atoi(value); err == nil {
			return intVal
		}
	}
	return fallback
}

// getEnvInt64 gets an environment variable as int64 or returns a default value.
func getEnvInt64(key string, fallback int64) int64 {
	if value, exists := os.LookupEnv(key); exists {
		if intVal, err := strconv.ParseInt(value, 10, 64); err == nil {
			return intVal
		}
	}
	return fallback
}

// getEnvFloat gets an environment variable as float64 or returns a default value.
func getEnvFloat(key string, fallback float64) float64 {
	if value, exists := os.LookupEnv(key); exists {
		if floatVal, err := strconv.ParseFloat(value, 64); err == nil {
			return floatVal
		}
	}
	return fallback
}

// Load loads configuration from environment variables (via .env file) or defaults.
func Load() *Config {
	// godotenv.Load() will not override existing env vars.
	err := godotenv.Load()
	if err != nil {
		log.Println("No .env file found or error loading .env, relying on existing environment variables and defaults.")
	}

	return &Config{
		ServerPort: getEnv("SERVER_PORT", "8080"),

		DBHost:     getEnv("DB_HOST", "127.0.0.1"),
		DBPort:     getEnv("DB_PORT", "3306"),
		DBUser:     getEnv("DB_USER", "root"),
		DBPassword: os.Getenv("DB_PASSWORD"),
		DBName:     getEnv("DB_NAME", "plexplaylists"),

		RedisHost:     getEnv("REDIS_HOST", "127.0.0.1"),
		RedisPort:     getEnv("REDIS_PORT", "6379"),
		RedisPassword: getEnv("REDIS_PASSWORD", ""),
		RedisDB:       getEnvInt("REDIS_DB", 0),

		PlexBaseURL:   getEnv("PLEX_BASE_URL", "http://127.0.0.1:32400"),
		PlexToken:     os.Getenv("PLEX_TOKEN"),
		PlexAccountID: getEnvInt64("PLEX_ACCOUNT_ID", 1),
		PlexSectionID: getEnvInt64("PLEX_SECTION_ID", 0),

		SpotifyClientID:     os.Getenv("SPOTIFY_CLIENT_ID"),
		SpotifyClientSecret: os.Getenv("SPOTIFY_CLIENT_SECRET"),
		LastFMAPIKey:        os.Getenv("LASTFM_API_KEY"),

		ManualGenreMapPath: getEnv("MANUAL_GENRE_MAP_PATH", "genre_map.json"),

		RecencyHalfLifeDays: getEnvFloat("RECENCY_HALF_LIFE_DAYS", 7),
		PlayCountSaturation: getEnvInt("PLAY_COUNT_SATURATION", 25),
		ThrowbackMinDays:    getEnvInt("THROWBACK_MIN_DAYS", 730),
		ThrowbackMaxDays:    getEnvInt("THROWBACK_MAX_DAYS", 1825),
		DiscoveryMinDays:    getEnvInt("DISCOVERY_MIN_DAYS", 90),
		HistoryLookbackDays: getEnvInt("HISTORY_LOOKBACK_DAYS", 30),

		TargetPlaylistSize: getEnvInt("TARGET_PLAYLIST_SIZE", 50),
		MaxPerArtist:       getEnvInt("MAX_PER_ARTIST", 2),
		MaxGenreShare:      getEnvFloat("MAX_GENRE_SHARE", 0.4),

		GenreCacheTTL:        time.Duration(getEnvInt("GENRE_CACHE_TTL_DAYS", 90)) * 24 * time.Hour,
		PatternsCacheTTL:     time.Duration(getEnvInt("PATTERNS_CACHE_TTL_DAYS", 7)) * 24 * time.Hour,
		CacheWarmConcurrency: getEnvInt("CACHE_WARM_CONCURRENCY", 3),
		CacheWarmInterval:    time.Duration(getEnvInt("CACHE_WARM_INTERVAL_HOURS", 12)) * time.Hour,

		AdminPassword: os.Getenv("ADMIN_PASSWORD"),
		JWTSecret:     getEnv("JWT_SECRET", "change-me"),

		LogLevel: getEnv("LOG_LEVEL", "info"),
		LogPath:  getEnv("LOG_PATH", "logs/plexplaylists.log"),
	}
}
