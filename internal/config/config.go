package config

import (
	"log"
	"os"
	"time"
)

type Mode string

const (
	ModeLocal Mode = "local"
	ModeGCP   Mode = "gcp"
)

type Config struct {
	Mode Mode

	Port string

	GCPProjectID string
	GCPLocation  string
	ModelName    string

	// StorageBackend selects where drafts, entries, tasks and preferences
	// live: "memory", "sqlite" or "firestore".
	StorageBackend string
	SQLitePath     string

	UseMockLLM bool // true = use the mock generator even in gcp mode

	// GeneratorTimeout bounds a single model call. Bulk-import style usage
	// may need this raised well above the default.
	GeneratorTimeout time.Duration
	GeneratorRetries uint
}

func getEnv(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func getBoolEnv(key string, def bool) bool {
	v := os.Getenv(key)
	if v == "" {
		return def
	}
	return v == "1" || v == "true" || v == "TRUE"
}

func getDurationEnv(key string, def time.Duration) time.Duration {
	v := os.Getenv(key)
	if v == "" {
		return def
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		log.Printf("invalid duration in %s=%q, using default %s", key, v, def)
		return def
	}
	return d
}

// Load reads all env vars and builds the config.
func Load() *Config {
	modeStr := getEnv("QUILL_MODE", "local")
	var mode Mode
	switch modeStr {
	case "gcp":
		mode = ModeGCP
	default:
		mode = ModeLocal
	}

	cfg := &Config{
		Mode: mode,

		Port: getEnv("QUILL_PORT", "8080"),

		GCPProjectID: getEnv("QUILL_GCP_PROJECT", ""),
		GCPLocation:  getEnv("QUILL_GCP_LOCATION", "us-central1"),
		ModelName:    getEnv("QUILL_MODEL_NAME", "gemini-2.5-flash"),

		StorageBackend: getEnv("QUILL_STORAGE_BACKEND", "memory"),
		SQLitePath:     getEnv("QUILL_SQLITE_PATH", "quill.db"),

		UseMockLLM: getBoolEnv("QUILL_USE_MOCK_LLM", mode == ModeLocal),

		GeneratorTimeout: getDurationEnv("QUILL_GENERATOR_TIMEOUT", 90*time.Second),
		GeneratorRetries: 3,
	}

	if cfg.Mode == ModeGCP && cfg.GCPProjectID == "" {
		log.Fatal("QUILL_GCP_PROJECT must be set in gcp mode")
	}

	return cfg
}
