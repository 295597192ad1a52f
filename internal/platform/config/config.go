package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Config is centralized process configuration.
// Keep infra values here and pass typed config into builders.
type Config struct {
	ServiceName  string
	HTTPPort     string
	PostgresDSN  string
	KafkaBrokers []string

	// Embedding provider selection: "azure-openai", "onnx", or "memory".
	EmbeddingProvider       string
	EmbeddingEndpoint       string
	EmbeddingAPIKey         string
	EmbeddingModelPath      string
	EmbeddingTimeout        time.Duration
	EmbeddingConcurrency    int
	EmbeddingRequestsPerSec float64

	DedupThreshold  float64
	DedupMaxMatches int
	DedupFailOpen   bool

	// WardAdmins maps ward code to the administrator user id.
	WardAdmins map[string]string

	// CategoryPrototypes maps category name to exemplar text for title-based
	// category suggestion. File-only; empty keeps the built-in set.
	CategoryPrototypes map[string]string

	OutboxTopic     string
	OutboxBatchSize int
	OutboxInterval  time.Duration
}

// fileConfig is the optional YAML overlay shape. Environment variables win
// over file values.
type fileConfig struct {
	ServiceName string            `yaml:"service_name"`
	HTTPPort    string            `yaml:"http_port"`
	PostgresDSN string            `yaml:"postgres_dsn"`
	WardAdmins  map[string]string `yaml:"ward_admins"`
	Categories  map[string]string `yaml:"category_prototypes"`
	Embedding   struct {
		Provider  string  `yaml:"provider"`
		Endpoint  string  `yaml:"endpoint"`
		APIKey    string  `yaml:"api_key"`
		ModelPath string  `yaml:"model_path"`
		Threshold float64 `yaml:"threshold"`
	} `yaml:"embedding"`
}

func Load() (Config, error) {
	cfg := Config{
		ServiceName:             "civicpulse",
		HTTPPort:                "8080",
		EmbeddingProvider:       "memory",
		EmbeddingTimeout:        10 * time.Second,
		EmbeddingConcurrency:    8,
		EmbeddingRequestsPerSec: 10,
		DedupThreshold:          0.75,
		DedupMaxMatches:         3,
		DedupFailOpen:           true,
		WardAdmins:              map[string]string{},
		OutboxTopic:             "issue.lifecycle",
		OutboxBatchSize:         100,
		OutboxInterval:          2 * time.Second,
	}

	if path := os.Getenv("CONFIG_FILE"); path != "" {
		if err := applyFile(&cfg, path); err != nil {
			return Config{}, err
		}
	}

	if v := os.Getenv("SERVICE_NAME"); v != "" {
		cfg.ServiceName = v
	}
	if v := os.Getenv("HTTP_PORT"); v != "" {
		cfg.HTTPPort = v
	}
	if v := os.Getenv("POSTGRES_DSN"); v != "" {
		cfg.PostgresDSN = v
	}
	for _, value := range strings.Split(os.Getenv("KAFKA_BROKERS"), ",") {
		value = strings.TrimSpace(value)
		if value != "" {
			cfg.KafkaBrokers = append(cfg.KafkaBrokers, value)
		}
	}
	if len(cfg.KafkaBrokers) == 0 {
		cfg.KafkaBrokers = []string{"localhost:9092"}
	}

	if v := os.Getenv("EMBEDDING_PROVIDER"); v != "" {
		cfg.EmbeddingProvider = strings.ToLower(strings.TrimSpace(v))
	}
	if v := os.Getenv("EMBEDDING_ENDPOINT"); v != "" {
		cfg.EmbeddingEndpoint = v
	}
	if v := os.Getenv("EMBEDDING_API_KEY"); v != "" {
		cfg.EmbeddingAPIKey = v
	}
	if v := os.Getenv("EMBEDDING_MODEL_PATH"); v != "" {
		cfg.EmbeddingModelPath = v
	}
	cfg.EmbeddingTimeout = envDuration("EMBEDDING_TIMEOUT", cfg.EmbeddingTimeout)
	cfg.EmbeddingConcurrency = envInt("EMBEDDING_CONCURRENCY", cfg.EmbeddingConcurrency)
	cfg.EmbeddingRequestsPerSec = envFloat("EMBEDDING_REQUESTS_PER_SEC", cfg.EmbeddingRequestsPerSec)

	cfg.DedupThreshold = envFloat("DEDUP_THRESHOLD", cfg.DedupThreshold)
	cfg.DedupMaxMatches = envInt("DEDUP_MAX_MATCHES", cfg.DedupMaxMatches)
	cfg.DedupFailOpen = envBool("DEDUP_FAIL_OPEN", cfg.DedupFailOpen)

	if v := os.Getenv("WARD_ADMINS"); v != "" {
		admins, err := parseWardAdmins(v)
		if err != nil {
			return Config{}, err
		}
		cfg.WardAdmins = admins
	}

	if v := os.Getenv("OUTBOX_TOPIC"); v != "" {
		cfg.OutboxTopic = v
	}
	cfg.OutboxBatchSize = envInt("OUTBOX_BATCH_SIZE", cfg.OutboxBatchSize)
	cfg.OutboxInterval = envDuration("OUTBOX_INTERVAL", cfg.OutboxInterval)

	return cfg, nil
}

func applyFile(cfg *Config, path string) error {
	raw, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read config file %s: %w", path, err)
	}
	var file fileConfig
	if err := yaml.Unmarshal(raw, &file); err != nil {
		return fmt.Errorf("parse config file %s: %w", path, err)
	}
	if file.ServiceName != "" {
		cfg.ServiceName = file.ServiceName
	}
	if file.HTTPPort != "" {
		cfg.HTTPPort = file.HTTPPort
	}
	if file.PostgresDSN != "" {
		cfg.PostgresDSN = file.PostgresDSN
	}
	if len(file.WardAdmins) > 0 {
		cfg.WardAdmins = file.WardAdmins
	}
	if len(file.Categories) > 0 {
		cfg.CategoryPrototypes = file.Categories
	}
	if file.Embedding.Provider != "" {
		cfg.EmbeddingProvider = strings.ToLower(file.Embedding.Provider)
	}
	if file.Embedding.Endpoint != "" {
		cfg.EmbeddingEndpoint = file.Embedding.Endpoint
	}
	if file.Embedding.APIKey != "" {
		cfg.EmbeddingAPIKey = file.Embedding.APIKey
	}
	if file.Embedding.ModelPath != "" {
		cfg.EmbeddingModelPath = file.Embedding.ModelPath
	}
	if file.Embedding.Threshold > 0 {
		cfg.DedupThreshold = file.Embedding.Threshold
	}
	return nil
}

// parseWardAdmins reads "W4:admin-4,W9:admin-9" style assignments.
func parseWardAdmins(raw string) (map[string]string, error) {
	admins := make(map[string]string)
	for _, pair := range strings.Split(raw, ",") {
		pair = strings.TrimSpace(pair)
		if pair == "" {
			continue
		}
		ward, adminID, ok := strings.Cut(pair, ":")
		ward = strings.TrimSpace(ward)
		adminID = strings.TrimSpace(adminID)
		if !ok || ward == "" || adminID == "" {
			return nil, fmt.Errorf("invalid ward admin assignment %q", pair)
		}
		admins[ward] = adminID
	}
	return admins, nil
}

func envBool(name string, fallback bool) bool {
	raw := strings.TrimSpace(strings.ToLower(os.Getenv(name)))
	if raw == "" {
		return fallback
	}
	switch raw {
	case "1", "true", "t", "yes", "y", "on":
		return true
	case "0", "false", "f", "no", "n", "off":
		return false
	default:
		return fallback
	}
}

func envInt(name string, fallback int) int {
	raw := strings.TrimSpace(os.Getenv(name))
	if raw == "" {
		return fallback
	}
	value, err := strconv.Atoi(raw)
	if err != nil {
		return fallback
	}
	return value
}

func envFloat(name string, fallback float64) float64 {
	raw := strings.TrimSpace(os.Getenv(name))
	if raw == "" {
		return fallback
	}
	value, err := strconv.ParseFloat(raw, 64)
	if err != nil {
		return fallback
	}
	return value
}

func envDuration(name string, fallback time.Duration) time.Duration {
	raw := strings.TrimSpace(os.Getenv(name))
	if raw == "" {
		return fallback
	}
	value, err := time.ParseDuration(raw)
	if err != nil {
		return fallback
	}
	return value
}
