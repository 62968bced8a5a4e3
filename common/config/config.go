package config

import (
	"fmt"
	"os"
	"strconv"
	"time"
)

// Config holds all service configuration
type Config struct {
	Service  ServiceConfig
	Database DatabaseConfig
	Redis    RedisConfig
	Reddit   RedditConfig
	Media    MediaConfig
	Janitor  JanitorConfig
}

// ServiceConfig holds service-specific settings
type ServiceConfig struct {
	Name        string
	Port        int
	Environment string
	LogLevel    string
	LogFormat   string
}

// DatabaseConfig holds Postgres connection settings
type DatabaseConfig struct {
	Host        string
	Port        int
	Database    string
	User        string
	Password    string
	MaxConns    int
	MinConns    int
	MaxIdleTime time.Duration
	MaxLifetime time.Duration
}

// RedisConfig holds Redis connection settings
type RedisConfig struct {
	Enabled bool
	Addr    string
	DB      int
}

// RedditConfig holds upstream API settings
type RedditConfig struct {
	ClientID       string
	ClientSecret   string
	UserAgent      string
	BrowserAgent   string
	TokenURL       string
	OAuthBase      string
	RequestsPerSec float64
	ParseTimeout   time.Duration
}

// MediaConfig holds transcoding settings
type MediaConfig struct {
	TempDir          string
	FFmpegPath       string
	FFprobePath      string
	UserAgent        string
	TranscodeTimeout time.Duration
	FileRetention    time.Duration
}

// JanitorConfig holds cleanup intervals
type JanitorConfig struct {
	PostMaxAge        time.Duration
	SearchCacheMaxAge time.Duration
	IconMaxAge        time.Duration
	AnalysisMaxAge    time.Duration
	SweepInterval     time.Duration
}

// Load loads configuration from environment variables
func Load(serviceName string) (*Config, error) {
	cfg := &Config{
		Service: ServiceConfig{
			Name:        serviceName,
			Port:        getEnvInt("PORT", 3000),
			Environment: getEnv("ENVIRONMENT", "development"),
			LogLevel:    getEnv("LOG_LEVEL", "info"),
			LogFormat:   getEnv("LOG_FORMAT", "text"),
		},
		Database: DatabaseConfig{
			Host:        getEnv("POSTGRES_HOST", "localhost"),
			Port:        getEnvInt("POSTGRES_PORT", 5432),
			Database:    getEnv("POSTGRES_DB", "karmafinder"),
			User:        getEnv("POSTGRES_USER", "karmafinder"),
			Password:    getEnv("POSTGRES_PASSWORD", "karmafinder"),
			MaxConns:    getEnvInt("POSTGRES_MAX_CONNS", 20),
			MinConns:    getEnvInt("POSTGRES_MIN_CONNS", 2),
			MaxIdleTime: getEnvDuration("POSTGRES_MAX_IDLE_TIME", 30*time.Minute),
			MaxLifetime: getEnvDuration("POSTGRES_MAX_LIFETIME", 1*time.Hour),
		},
		Redis: RedisConfig{
			Enabled: getEnvBool("REDIS_ENABLED", true),
			Addr:    getEnv("REDIS_ADDR", "localhost:6379"),
			DB:      getEnvInt("REDIS_DB", 0),
		},
		Reddit: RedditConfig{
			ClientID:       getEnv("REDDIT_CLIENT_ID", ""),
			ClientSecret:   getEnv("REDDIT_CLIENT_SECRET", ""),
			UserAgent:      getEnv("REDDIT_USER_AGENT", "android:com.reddit.frontpage:v2023.10.0 (by /u/yourbot)"),
			BrowserAgent:   getEnv("BROWSER_USER_AGENT", "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 Chrome/113.0.0.0 Safari/537.36"),
			TokenURL:       getEnv("REDDIT_TOKEN_URL", "https://www.reddit.com/api/v1/access_token"),
			OAuthBase:      getEnv("REDDIT_OAUTH_BASE", "https://oauth.reddit.com"),
			RequestsPerSec: getEnvFloat("REDDIT_REQUESTS_PER_SEC", 3.0),
			ParseTimeout:   getEnvDuration("REDDIT_PARSE_TIMEOUT", 10*time.Second),
		},
		Media: MediaConfig{
			TempDir:          getEnv("MEDIA_TEMP_DIR", "temp"),
			FFmpegPath:       getEnv("FFMPEG_PATH", "ffmpeg"),
			FFprobePath:      getEnv("FFPROBE_PATH", "ffprobe"),
			UserAgent:        getEnv("MEDIA_USER_AGENT", "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 Chrome/113.0.0.0 Safari/537.36"),
			TranscodeTimeout: getEnvDuration("TRANSCODE_TIMEOUT", 60*time.Second),
			FileRetention:    getEnvDuration("MEDIA_FILE_RETENTION", 7*time.Minute),
		},
		Janitor: JanitorConfig{
			PostMaxAge:        getEnvDuration("JANITOR_POST_MAX_AGE", 7*time.Minute),
			SearchCacheMaxAge: getEnvDuration("JANITOR_SEARCH_CACHE_MAX_AGE", 24*time.Hour),
			IconMaxAge:        getEnvDuration("JANITOR_ICON_MAX_AGE", 240*time.Hour),
			AnalysisMaxAge:    getEnvDuration("JANITOR_ANALYSIS_MAX_AGE", 120*time.Hour),
			SweepInterval:     getEnvDuration("JANITOR_SWEEP_INTERVAL", 5*time.Minute),
		},
	}

	return cfg, cfg.Validate()
}

// Validate checks if configuration is valid
func (c *Config) Validate() error {
	if c.Service.Port < 1 || c.Service.Port > 65535 {
		return fmt.Errorf("invalid port: %d", c.Service.Port)
	}

	if c.Database.Host == "" {
		return fmt.Errorf("database host is required")
	}

	if c.Database.MaxConns < c.Database.MinConns {
		return fmt.Errorf("max_conns must be >= min_conns")
	}

	if c.Reddit.RequestsPerSec <= 0 {
		return fmt.Errorf("reddit requests per second must be positive")
	}

	if c.Media.TranscodeTimeout <= 0 {
		return fmt.Errorf("transcode timeout must be positive")
	}

	return nil
}

// DatabaseURL returns the PostgreSQL connection string
func (c *Config) DatabaseURL() string {
	return fmt.Sprintf(
		"postgres://%s:%s@%s:%d/%s?sslmode=disable",
		c.Database.User,
		c.Database.Password,
		c.Database.Host,
		c.Database.Port,
		c.Database.Database,
	)
}

// Helper functions

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intVal, err := strconv.Atoi(value); err == nil {
			return intVal
		}
	}
	return defaultValue
}

func getEnvFloat(key string, defaultValue float64) float64 {
	if value := os.Getenv(key); value != "" {
		if floatVal, err := strconv.ParseFloat(value, 64); err == nil {
			return floatVal
		}
	}
	return defaultValue
}

func getEnvBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if boolVal, err := strconv.ParseBool(value); err == nil {
			return boolVal
		}
	}
	return defaultValue
}

func getEnvDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if duration, err := time.ParseDuration(value); err == nil {
			return duration
		}
	}
	return defaultValue
}
