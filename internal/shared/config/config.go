package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// Config holds application configuration.
type Config struct {
	Port                  string
	Env                   string
	CORSAllowOrigin       []string
	ObjectStoreType       string
	LocalStoreDir         string
	AWSRegion             string
	S3Bucket              string
	S3Prefix              string
	SSEKMSKeyID           string
	PDFEngine             string
	MaxUploadBytes        int64
	ArtifactTTL           time.Duration
	JanitorInterval       time.Duration
	LogLevel              string
	LogFormat             string
	RateLimitUploadRPS    float64
	RateLimitUploadBurst  int
	RateLimitDefaultRPS   float64
	RateLimitDefaultBurst int
}

// fileConfig mirrors Config for the optional YAML file named by CONFIG_FILE.
// Values from the file are defaults; environment variables win.
type fileConfig struct {
	Port            string   `yaml:"port"`
	Env             string   `yaml:"env"`
	CORSAllowOrigin []string `yaml:"cors_allow_origins"`
	Storage         struct {
		Type        string `yaml:"type"`
		LocalDir    string `yaml:"local_dir"`
		AWSRegion   string `yaml:"aws_region"`
		S3Bucket    string `yaml:"s3_bucket"`
		S3Prefix    string `yaml:"s3_prefix"`
		SSEKMSKeyID string `yaml:"sse_kms_key_id"`
	} `yaml:"storage"`
	Extraction struct {
		PDFEngine       string `yaml:"pdf_engine"`
		MaxUploadBytes  int64  `yaml:"max_upload_bytes"`
		ArtifactTTL     string `yaml:"artifact_ttl"`
		JanitorInterval string `yaml:"janitor_interval"`
	} `yaml:"extraction"`
	Log struct {
		Level  string `yaml:"level"`
		Format string `yaml:"format"`
	} `yaml:"log"`
	RateLimit struct {
		UploadRPS    float64 `yaml:"upload_rps"`
		UploadBurst  int     `yaml:"upload_burst"`
		DefaultRPS   float64 `yaml:"default_rps"`
		DefaultBurst int     `yaml:"default_burst"`
	} `yaml:"rate_limit"`
}

const (
	defaultMaxUploadBytes  = 25 << 20
	defaultArtifactTTL     = time.Hour
	defaultJanitorInterval = 5 * time.Minute
)

// Load reads configuration from environment variables with sensible defaults.
// Local .env files are loaded first for dev convenience; they never override
// variables already present in the environment.
func Load() Config {
	if files := existing(".env", "cmd/.env"); len(files) > 0 {
		_ = godotenv.Load(files...)
	}

	var fc fileConfig
	if path := strings.TrimSpace(os.Getenv("CONFIG_FILE")); path != "" {
		loaded, err := loadFile(path)
		if err != nil {
			fmt.Fprintf(os.Stderr, "config: ignoring %s: %v\n", path, err)
		} else {
			fc = loaded
		}
	}
	return fromEnv(fc)
}

// loadFile parses the YAML config file at path.
func loadFile(path string) (fileConfig, error) {
	var fc fileConfig
	data, err := os.ReadFile(path)
	if err != nil {
		return fc, fmt.Errorf("read config file: %w", err)
	}
	if err := yaml.Unmarshal(data, &fc); err != nil {
		return fc, fmt.Errorf("parse config file: %w", err)
	}
	return fc, nil
}

func fromEnv(fc fileConfig) Config {
	cors := strings.Join(fc.CORSAllowOrigin, ",")
	if cors == "" {
		cors = "http://localhost:5173"
	}

	return Config{
		Port:                  getEnv("PORT", or(fc.Port, "8080")),
		Env:                   normalizeEnv(getEnv("ENV", or(fc.Env, "dev"))),
		CORSAllowOrigin:       splitAndTrim(getEnv("CORS_ALLOW_ORIGINS", cors)),
		ObjectStoreType:       normalizeStoreType(getEnv("OBJECT_STORE", or(fc.Storage.Type, "local"))),
		LocalStoreDir:         getEnv("LOCAL_STORE_DIR", or(fc.Storage.LocalDir, defaultLocalStoreDir())),
		AWSRegion:             getEnv("AWS_REGION", fc.Storage.AWSRegion),
		S3Bucket:              getEnv("S3_BUCKET", fc.Storage.S3Bucket),
		S3Prefix:              getEnv("S3_PREFIX", fc.Storage.S3Prefix),
		SSEKMSKeyID:           getEnv("SSE_KMS_KEY_ID", fc.Storage.SSEKMSKeyID),
		PDFEngine:             normalizeEngine(getEnv("PDF_ENGINE", or(fc.Extraction.PDFEngine, "native"))),
		MaxUploadBytes:        getInt64("MAX_UPLOAD_BYTES", orInt64(fc.Extraction.MaxUploadBytes, defaultMaxUploadBytes)),
		ArtifactTTL:           getDuration("ARTIFACT_TTL", parseDuration(fc.Extraction.ArtifactTTL, defaultArtifactTTL)),
		JanitorInterval:       getDuration("JANITOR_INTERVAL", parseDuration(fc.Extraction.JanitorInterval, defaultJanitorInterval)),
		LogLevel:              getEnv("LOG_LEVEL", or(fc.Log.Level, "info")),
		LogFormat:             getEnv("LOG_FORMAT", or(fc.Log.Format, "json")),
		RateLimitUploadRPS:    getFloat("RATE_LIMIT_UPLOAD_RPS", orFloat(fc.RateLimit.UploadRPS, 0.5)),
		RateLimitUploadBurst:  getInt("RATE_LIMIT_UPLOAD_BURST", orInt(fc.RateLimit.UploadBurst, 5)),
		RateLimitDefaultRPS:   getFloat("RATE_LIMIT_DEFAULT_RPS", orFloat(fc.RateLimit.DefaultRPS, 10)),
		RateLimitDefaultBurst: getInt("RATE_LIMIT_DEFAULT_BURST", orInt(fc.RateLimit.DefaultBurst, 30)),
	}
}

// defaultLocalStoreDir is ./data, or a directory under the temp dir on Lambda
// where only /tmp is writable.
func defaultLocalStoreDir() string {
	if os.Getenv("AWS_LAMBDA_FUNCTION_NAME") != "" {
		return filepath.Join(os.TempDir(), "guideline-extractor")
	}
	return "./data"
}

func existing(paths ...string) []string {
	var out []string
	for _, p := range paths {
		if _, err := os.Stat(p); err == nil {
			out = append(out, p)
		}
	}
	return out
}

func getEnv(key, def string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return def
}

func getInt(key string, def int) int {
	if v, err := strconv.Atoi(strings.TrimSpace(os.Getenv(key))); err == nil && v > 0 {
		return v
	}
	return def
}

func getInt64(key string, def int64) int64 {
	if v, err := strconv.ParseInt(strings.TrimSpace(os.Getenv(key)), 10, 64); err == nil && v > 0 {
		return v
	}
	return def
}

func getFloat(key string, def float64) float64 {
	if v, err := strconv.ParseFloat(strings.TrimSpace(os.Getenv(key)), 64); err == nil && v > 0 {
		return v
	}
	return def
}

func getDuration(key string, def time.Duration) time.Duration {
	return parseDuration(os.Getenv(key), def)
}

func parseDuration(raw string, def time.Duration) time.Duration {
	if d, err := time.ParseDuration(strings.TrimSpace(raw)); err == nil && d > 0 {
		return d
	}
	return def
}

func or(v, def string) string {
	if strings.TrimSpace(v) != "" {
		return v
	}
	return def
}

func orInt(v, def int) int {
	if v > 0 {
		return v
	}
	return def
}

func orInt64(v, def int64) int64 {
	if v > 0 {
		return v
	}
	return def
}

func orFloat(v, def float64) float64 {
	if v > 0 {
		return v
	}
	return def
}

func splitAndTrim(raw string) []string {
	parts := strings.Split(raw, ",")
	var out []string
	for _, p := range parts {
		if trimmed := strings.TrimSpace(p); trimmed != "" {
			out = append(out, trimmed)
		}
	}
	return out
}

func normalizeEnv(raw string) string {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "production", "prod":
		return "production"
	case "staging":
		return "staging"
	case "local":
		return "local"
	default:
		return "dev"
	}
}

func normalizeStoreType(raw string) string {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "s3":
		return "s3"
	default:
		return "local"
	}
}

func normalizeEngine(raw string) string {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "mupdf", "fitz":
		return "mupdf"
	default:
		return "native"
	}
}
