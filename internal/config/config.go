package config

import (
	"fmt"
	"os"
	"strconv"
	"time"
)

type Config struct {
	Server   ServerConfig
	Storage  StorageConfig
	Fleet    FleetConfig
	Console  ConsoleConfig
	Geocoder GeocoderConfig
	Worker   WorkerConfig
	Sources  SourcesConfig
	DB       DatabaseConfig
	Logging  LoggingConfig
}

type ServerConfig struct {
	Host           string
	Port           int
	RateLimitRPS   float64
	MetricsEnabled bool
}

type StorageConfig struct {
	Path string
}

type FleetConfig struct {
	Size   int
	Prefix string
}

type ConsoleConfig struct {
	OperatorPassword string
}

type GeocoderConfig struct {
	URL       string
	UserAgent string
	Timeout   time.Duration
}

type WorkerConfig struct {
	Count      int
	BufferSize int
}

type SourcesConfig struct {
	USGSEnabled       bool
	USGSURL           string
	USGSPollInterval  time.Duration
	GDACSEnabled      bool
	GDACSURL          string
	GDACSPollInterval time.Duration
}

type DatabaseConfig struct {
	Path string
}

type LoggingConfig struct {
	Level string
}

func Load() (*Config, error) {
	cfg := &Config{
		Server: ServerConfig{
			Host:           getEnv("SERVER_HOST", "localhost"),
			Port:           getEnvInt("SERVER_PORT", 8080),
			RateLimitRPS:   getEnvFloat("RATE_LIMIT_RPS", 5),
			MetricsEnabled: getEnvBool("METRICS_ENABLED", true),
		},
		Storage: StorageConfig{
			Path: getEnv("STORAGE_PATH", "./data/storage.json"),
		},
		Fleet: FleetConfig{
			Size:   getEnvInt("FLEET_SIZE", 5),
			Prefix: getEnv("FLEET_PREFIX", "Truck"),
		},
		Console: ConsoleConfig{
			OperatorPassword: getEnv("OPERATOR_PASSWORD", "gov"),
		},
		Geocoder: GeocoderConfig{
			URL:       getEnv("GEOCODER_URL", "https://nominatim.openstreetmap.org/search"),
			UserAgent: getEnv("GEOCODER_USER_AGENT", "aid-dispatch/1.0"),
			Timeout:   getEnvDuration("GEOCODER_TIMEOUT", 10*time.Second),
		},
		Worker: WorkerConfig{
			Count:      getEnvInt("WORKER_COUNT", 2),
			BufferSize: getEnvInt("WORKER_BUFFER_SIZE", 20),
		},
		Sources: SourcesConfig{
			USGSEnabled:       getEnvBool("USGS_ENABLED", false),
			USGSURL:           getEnv("USGS_URL", "https://earthquake.usgs.gov/earthquakes/feed/v1.0/summary/all_hour.geojson"),
			USGSPollInterval:  getEnvDuration("USGS_POLL_INTERVAL", 5*time.Minute),
			GDACSEnabled:      getEnvBool("GDACS_ENABLED", false),
			GDACSURL:          getEnv("GDACS_URL", "https://www.gdacs.org/xml/rss.xml"),
			GDACSPollInterval: getEnvDuration("GDACS_POLL_INTERVAL", 10*time.Minute),
		},
		DB: DatabaseConfig{
			Path: getEnv("DB_PATH", "./data/dispatches.db"),
		},
		Logging: LoggingConfig{
			Level: getEnv("LOG_LEVEL", "info"),
		},
	}

	if err := cfg.validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

func (c *Config) validate() error {
	if c.Server.Port < 1 || c.Server.Port > 65535 {
		return fmt.Errorf("invalid server port: %d", c.Server.Port)
	}
	if c.Server.RateLimitRPS <= 0 {
		return fmt.Errorf("rate limit must be positive: %v", c.Server.RateLimitRPS)
	}

	validLevels := map[string]bool{"debug": true, "info": true, "warn": true, "error": true}
	if !validLevels[c.Logging.Level] {
		return fmt.Errorf("invalid log level: %s", c.Logging.Level)
	}

	if c.Storage.Path == "" {
		return fmt.Errorf("storage path is required")
	}
	if c.Fleet.Size < 0 {
		return fmt.Errorf("fleet size cannot be negative: %d", c.Fleet.Size)
	}
	if c.Geocoder.Timeout <= 0 {
		return fmt.Errorf("geocoder timeout must be positive")
	}
	if c.Worker.Count < 1 {
		return fmt.Errorf("worker count must be at least 1")
	}

	if c.Sources.USGSPollInterval < time.Minute {
		return fmt.Errorf("USGS poll interval must be at least 1 minute")
	}
	if c.Sources.GDACSPollInterval < time.Minute {
		return fmt.Errorf("GDACS poll interval must be at least 1 minute")
	}

	return nil
}

// Addr is the listen address of the HTTP server.
func (c *Config) Addr() string {
	return fmt.Sprintf("%s:%d", c.Server.Host, c.Server.Port)
}

func getEnv(key, fallback string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return fallback
}

func getEnvInt(key string, fallback int) int {
	if val := os.Getenv(key); val != "" {
		if i, err := strconv.Atoi(val); err == nil {
			return i
		}
	}
	return fallback
}

func getEnvFloat(key string, fallback float64) float64 {
	if val := os.Getenv(key); val != "" {
		if f, err := strconv.ParseFloat(val, 64); err == nil {
			return f
		}
	}
	return fallback
}

func getEnvBool(key string, fallback bool) bool {
	if val := os.Getenv(key); val != "" {
		if b, err := strconv.ParseBool(val); err == nil {
			return b
		}
	}
	return fallback
}

func getEnvDuration(key string, fallback time.Duration) time.Duration {
	if val := os.Getenv(key); val != "" {
		if d, err := time.ParseDuration(val); err == nil {
			return d
		}
	}
	return fallback
}
