package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"time"

	sharedcfg "github.com/couchcryptid/storm-data-shared/config"
	"github.com/joho/godotenv"
)

// Queue backends.
const (
	QueueMemory = "memory"
	QueueRedis  = "redis"
)

// Config holds all service settings, populated from environment variables.
type Config struct {
	HTTPAddr        string
	LogLevel        string
	LogFormat       string
	ShutdownTimeout time.Duration

	// Census API.
	CensusAPIKey  string
	CensusBaseURL string
	CensusTimeout time.Duration

	// Static tables; empty paths select the embedded defaults.
	VariablesFile   string
	StateCoordsFile string

	ShapePath       string
	OutputDir       string
	RenderFullState bool

	// Job execution.
	WorkerCount  int
	JobTimeout   time.Duration
	QueueBackend string
	QueueSize    int
	QueueName    string
	RedisURL     string
	StatusTTL    time.Duration

	// Artifact notifications; disabled when KafkaBrokers is empty.
	KafkaBrokers []string
	KafkaTopic   string
}

// NotificationsEnabled reports whether artifact events should be published.
func (c *Config) NotificationsEnabled() bool {
	return len(c.KafkaBrokers) > 0
}

// Load reads configuration from environment variables, applying defaults where
// unset. A .env file in the working directory is loaded first if present;
// variables already set in the environment take precedence.
func Load() (*Config, error) {
	_ = godotenv.Load()

	shutdownTimeout, err := sharedcfg.ParseShutdownTimeout()
	if err != nil {
		return nil, err
	}
	censusTimeout, err := parsePositiveDuration("CENSUS_TIMEOUT", "30s")
	if err != nil {
		return nil, err
	}
	jobTimeout, err := parsePositiveDuration("JOB_TIMEOUT", "1h")
	if err != nil {
		return nil, err
	}
	statusTTL, err := parsePositiveDuration("STATUS_TTL", "24h")
	if err != nil {
		return nil, err
	}
	workers, err := parsePositiveInt("WORKER_COUNT", 1)
	if err != nil {
		return nil, err
	}
	queueSize, err := parsePositiveInt("QUEUE_SIZE", 100)
	if err != nil {
		return nil, err
	}
	fullState, err := parseBool("RENDER_FULL_STATE", false)
	if err != nil {
		return nil, err
	}

	var brokers []string
	if v := os.Getenv("KAFKA_BROKERS"); v != "" {
		brokers = sharedcfg.ParseBrokers(v)
	}

	cfg := &Config{
		HTTPAddr:        sharedcfg.EnvOrDefault("HTTP_ADDR", ":8080"),
		LogLevel:        sharedcfg.EnvOrDefault("LOG_LEVEL", "info"),
		LogFormat:       sharedcfg.EnvOrDefault("LOG_FORMAT", "json"),
		ShutdownTimeout: shutdownTimeout,

		CensusAPIKey:  os.Getenv("CENSUS_API_KEY"),
		CensusBaseURL: sharedcfg.EnvOrDefault("CENSUS_API_BASE_URL", "https://api.census.gov/data"),
		CensusTimeout: censusTimeout,

		VariablesFile:   os.Getenv("VARIABLES_FILE"),
		StateCoordsFile: os.Getenv("STATE_COORDS_FILE"),

		ShapePath:       sharedcfg.EnvOrDefault("SHAPE_PATH", "data/tl_2020_us_county.geojson"),
		OutputDir:       sharedcfg.EnvOrDefault("OUTPUT_DIR", "static/output"),
		RenderFullState: fullState,

		WorkerCount:  workers,
		JobTimeout:   jobTimeout,
		QueueBackend: sharedcfg.EnvOrDefault("QUEUE_BACKEND", QueueMemory),
		QueueSize:    queueSize,
		QueueName:    sharedcfg.EnvOrDefault("QUEUE_NAME", "census"),
		RedisURL:     sharedcfg.EnvOrDefault("REDIS_URL", "redis://localhost:6379/0"),
		StatusTTL:    statusTTL,

		KafkaBrokers: brokers,
		KafkaTopic:   sharedcfg.EnvOrDefault("KAFKA_TOPIC", "census-map-artifacts"),
	}

	if cfg.QueueBackend != QueueMemory && cfg.QueueBackend != QueueRedis {
		return nil, fmt.Errorf("invalid QUEUE_BACKEND %q: want %q or %q", cfg.QueueBackend, QueueMemory, QueueRedis)
	}
	if cfg.QueueBackend == QueueRedis && cfg.RedisURL == "" {
		return nil, errors.New("QUEUE_BACKEND is redis but REDIS_URL is not set")
	}
	if cfg.OutputDir == "" {
		return nil, errors.New("OUTPUT_DIR is required")
	}
	if cfg.NotificationsEnabled() && cfg.KafkaTopic == "" {
		return nil, errors.New("KAFKA_BROKERS is set but KAFKA_TOPIC is empty")
	}

	return cfg, nil
}

func parsePositiveDuration(key, def string) (time.Duration, error) {
	d, err := time.ParseDuration(sharedcfg.EnvOrDefault(key, def))
	if err != nil || d <= 0 {
		return 0, fmt.Errorf("invalid %s", key)
	}
	return d, nil
}

func parsePositiveInt(key string, def int) (int, error) {
	s := os.Getenv(key)
	if s == "" {
		return def, nil
	}
	n, err := strconv.Atoi(s)
	if err != nil || n <= 0 {
		return 0, fmt.Errorf("invalid %s: must be a positive integer", key)
	}
	return n, nil
}

func parseBool(key string, def bool) (bool, error) {
	s := os.Getenv(key)
	if s == "" {
		return def, nil
	}
	b, err := strconv.ParseBool(s)
	if err != nil {
		return false, fmt.Errorf("invalid %s: %w", key, err)
	}
	return b, nil
}
