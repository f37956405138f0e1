package config

import (
	_ "embed"
	"os"
	"strconv"
	"time"

	"gopkg.in/yaml.v3"
)

//go:embed defaults.yaml
var defaultsYAML []byte

type Config struct {
	Embedding EmbeddingConfig
	Match     MatchConfig
	Gallery   GalleryConfig
	Ledger    LedgerConfig
	Database  DatabaseConfig
	Web       WebConfig
}

type EmbeddingConfig struct {
	URL     string        // embedding server base URL (defaults to http://localhost:8000)
	Timeout time.Duration // per-call budget for face detection
}

type MatchConfig struct {
	Threshold float64 // maximum distance for a positive identification; lower = stricter
	Metric    string  // "euclidean" or "cosine"
}

type GalleryConfig struct {
	Path         string // directory of reference images, identity derived from filename
	MaxImageSize int    // images larger than this (either dimension) are downscaled before detection
}

type LedgerConfig struct {
	Backend    string        // sqlite, postgres, mysql, csv or memory
	Timezone   string        // IANA zone defining the attendance calendar day (defaults to Local)
	Timeout    time.Duration // per-write budget for the durable sink
	CSVPath    string        // attendance CSV path for the csv backend
	SQLitePath string        // database file path for the sqlite backend
}

type DatabaseConfig struct {
	URL          string // PostgreSQL connection URL
	MySQLDSN     string // MySQL/MariaDB DSN for the mysql backend
	MaxOpenConns int    // Maximum open connections (default 25)
	MaxIdleConns int    // Maximum idle connections (default 5)
}

type WebConfig struct {
	Host string
	Port int
}

// defaults mirrors defaults.yaml. The embedded file is the single place the
// documented default values live; environment variables override it.
type defaults struct {
	Match struct {
		Threshold float64 `yaml:"threshold"`
		Metric    string  `yaml:"metric"`
	} `yaml:"match"`
	Embedding struct {
		URL            string `yaml:"url"`
		TimeoutSeconds int    `yaml:"timeout_seconds"`
	} `yaml:"embedding"`
	Ledger struct {
		Backend        string `yaml:"backend"`
		TimeoutSeconds int    `yaml:"timeout_seconds"`
		CSVPath        string `yaml:"csv_path"`
		SQLitePath     string `yaml:"sqlite_path"`
	} `yaml:"ledger"`
	Gallery struct {
		Path         string `yaml:"path"`
		MaxImageSize int    `yaml:"max_image_size"`
	} `yaml:"gallery"`
}

// envInt reads an environment variable and parses it as a positive integer.
// Returns the default value if the env var is unset, empty, or invalid.
func envInt(key string, defaultVal int) int {
	s := os.Getenv(key)
	if s == "" {
		return defaultVal
	}
	if n, err := strconv.Atoi(s); err == nil && n > 0 {
		return n
	}
	return defaultVal
}

// envFloat reads an environment variable and parses it as a positive float.
func envFloat(key string, defaultVal float64) float64 {
	s := os.Getenv(key)
	if s == "" {
		return defaultVal
	}
	if f, err := strconv.ParseFloat(s, 64); err == nil && f > 0 {
		return f
	}
	return defaultVal
}

// envString reads an environment variable with a fallback default.
func envString(key, defaultVal string) string {
	if s := os.Getenv(key); s != "" {
		return s
	}
	return defaultVal
}

func Load() *Config {
	var d defaults
	if err := yaml.Unmarshal(defaultsYAML, &d); err != nil {
		// This is an embedded file so this error should never happen in practice
		panic("failed to unmarshal embedded defaults.yaml: " + err.Error())
	}

	return &Config{
		Embedding: EmbeddingConfig{
			URL:     envString("EMBEDDING_URL", d.Embedding.URL),
			Timeout: time.Duration(envInt("EMBEDDING_TIMEOUT_SECONDS", d.Embedding.TimeoutSeconds)) * time.Second,
		},
		Match: MatchConfig{
			Threshold: envFloat("MATCH_THRESHOLD", d.Match.Threshold),
			Metric:    envString("MATCH_METRIC", d.Match.Metric),
		},
		Gallery: GalleryConfig{
			Path:         envString("GALLERY_PATH", d.Gallery.Path),
			MaxImageSize: envInt("GALLERY_MAX_IMAGE_SIZE", d.Gallery.MaxImageSize),
		},
		Ledger: LedgerConfig{
			Backend:    envString("LEDGER_BACKEND", d.Ledger.Backend),
			Timezone:   os.Getenv("LEDGER_TIMEZONE"),
			Timeout:    time.Duration(envInt("LEDGER_TIMEOUT_SECONDS", d.Ledger.TimeoutSeconds)) * time.Second,
			CSVPath:    envString("ATTENDANCE_FILE", d.Ledger.CSVPath),
			SQLitePath: envString("SQLITE_PATH", d.Ledger.SQLitePath),
		},
		Database: DatabaseConfig{
			URL:          os.Getenv("DATABASE_URL"),
			MySQLDSN:     os.Getenv("MYSQL_DSN"),
			MaxOpenConns: envInt("DATABASE_MAX_OPEN_CONNS", 25),
			MaxIdleConns: envInt("DATABASE_MAX_IDLE_CONNS", 5),
		},
		Web: WebConfig{
			Host: envString("WEB_HOST", "0.0.0.0"),
			Port: envInt("WEB_PORT", 8080),
		},
	}
}

// Location resolves the configured ledger time zone. An empty or invalid zone
// falls back to the process-local zone so attendance days match the wall clock
// where the camera runs.
func (c *LedgerConfig) Location() *time.Location {
	if c.Timezone == "" {
		return time.Local
	}
	loc, err := time.LoadLocation(c.Timezone)
	if err != nil {
		return time.Local
	}
	return loc
}
