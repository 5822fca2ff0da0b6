// Package config loads runtime settings for Mood-Music-Go. Values come from
// the process environment, optionally seeded from a .env file in the working
// directory. Every setting has a default so a bare `go run ./cmd/web` starts
// against a local companion server.
package config

import (
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
	log "github.com/sirupsen/logrus"
)

// Config bundles every setting read at startup.
type Config struct {
	ListenAddr   string
	DatabasePath string
	SigningKey   string
	APIBaseURL   string
	MusicService string

	SupabaseURL          string
	SupabaseAnonKey      string
	SupabaseRefreshToken string

	SpotifyClientID     string
	SpotifyClientSecret string
	SpotifyRedirectURL  string
	YouTubeAPIKey       string
	SoundCloudClientID  string

	MoodCooldown      time.Duration
	PlayerTick        time.Duration
	CaptureSettle     time.Duration
	CaptureRecord     time.Duration
	CaptureSampleRate int
	CameraDevice      string
	MicDevice         string
	FFmpegPath        string

	HistoryWorkers int
	HistoryQueue   int

	LogLevel  string
	LogFormat string
}

// Load reads .env (when present) and the environment into a Config.
func Load() *Config {
	if err := godotenv.Load(); err != nil {
		log.Debug("no .env file found, using environment variables")
	}
	return &Config{
		ListenAddr:   getEnv("LISTEN_ADDR", ":4000"),
		DatabasePath: getEnv("DATABASE_PATH", "moodmusic.db"),
		SigningKey:   getEnv("SIGNING_KEY", ""),
		APIBaseURL:   getEnv("API_BASE_URL", "http://localhost:8000"),
		MusicService: getEnv("MUSIC_SERVICE", "proxy"),

		SupabaseURL:          getEnv("SUPABASE_URL", ""),
		SupabaseAnonKey:      getEnv("SUPABASE_ANON_KEY", ""),
		SupabaseRefreshToken: getEnv("SUPABASE_REFRESH_TOKEN", ""),

		SpotifyClientID:     getEnv("SPOTIFY_CLIENT_ID", ""),
		SpotifyClientSecret: getEnv("SPOTIFY_CLIENT_SECRET", ""),
		SpotifyRedirectURL:  getEnv("SPOTIFY_REDIRECT_URL", "http://localhost:4000/callback"),
		YouTubeAPIKey:       getEnv("YOUTUBE_API_KEY", ""),
		SoundCloudClientID:  getEnv("SOUNDCLOUD_CLIENT_ID", ""),

		MoodCooldown:      getDuration("MOOD_COOLDOWN", 5*time.Minute),
		PlayerTick:        getDuration("PLAYER_TICK", time.Second),
		CaptureSettle:     getDuration("CAPTURE_SETTLE", time.Second),
		CaptureRecord:     getDuration("CAPTURE_RECORD", 10*time.Second),
		CaptureSampleRate: getInt("CAPTURE_SAMPLE_RATE", 16000),
		CameraDevice:      getEnv("CAMERA_DEVICE", "/dev/video0"),
		MicDevice:         getEnv("MIC_DEVICE", "default"),
		FFmpegPath:        getEnv("FFMPEG_PATH", "ffmpeg"),

		HistoryWorkers: getInt("HISTORY_WORKERS", 1),
		HistoryQueue:   getInt("HISTORY_QUEUE", 64),

		LogLevel:  getEnv("LOG_LEVEL", "info"),
		LogFormat: getEnv("LOG_FORMAT", "text"),
	}
}

// ConfigureLogging applies LogLevel and LogFormat to the global logrus logger.
func (c *Config) ConfigureLogging() {
	if lvl, err := log.ParseLevel(c.LogLevel); err == nil {
		log.SetLevel(lvl)
	} else {
		log.WithField("level", c.LogLevel).Warn("unknown log level, keeping info")
	}
	if c.LogFormat == "json" {
		log.SetFormatter(&log.JSONFormatter{})
	}
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getInt(key string, defaultValue int) int {
	raw := os.Getenv(key)
	if raw == "" {
		return defaultValue
	}
	v, err := strconv.Atoi(raw)
	if err != nil || v <= 0 {
		log.WithField("key", key).Warn("invalid integer setting, using default")
		return defaultValue
	}
	return v
}

func getDuration(key string, defaultValue time.Duration) time.Duration {
	raw := os.Getenv(key)
	if raw == "" {
		return defaultValue
	}
	d, err := time.ParseDuration(raw)
	if err != nil || d <= 0 {
		log.WithField("key", key).Warn("invalid duration setting, using default")
		return defaultValue
	}
	return d
}
