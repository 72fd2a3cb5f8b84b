package config

import (
    "os"
    "strconv"
    "strings"
    "time"

    "github.com/joho/godotenv"
)

// LoggingConfig holds logging-related configuration.
type LoggingConfig struct {
    Level        string
    Pretty       bool
    File         string
    MaxSizeMB    int
    MaxBackups   int
    MaxAgeDays   int
    Compress     bool
}

// AxiomConfig holds Axiom logging configuration.
type AxiomConfig struct {
    Send          bool
    APIKey        string
    OrgID         string
    Dataset       string
    FlushInterval time.Duration
}

// PDFConfig controls scanning and the PDF engine.
type PDFConfig struct {
    ScanWorkers    int
    Validation     string // "relaxed"|"strict"
    PreviewDPI     int
    PreviewQuality int
}

// StatusConfig selects where status text is mirrored. Empty RedisURL keeps it in memory.
type StatusConfig struct {
    RedisURL string
    Key      string
}

// PublishConfig enables uploading merged files to S3 when Bucket is set.
type PublishConfig struct {
    Bucket          string
    Prefix          string
    Region          string
    Endpoint        string
    AccessKeyID     string
    SecretAccessKey string
}

// ServerConfig holds the HTTP surface and session defaults.
type ServerConfig struct {
    Port       string
    InputDir   string
    OutputPath string
}

// Config is the top-level configuration.
type Config struct {
    Logging LoggingConfig
    Axiom   AxiomConfig
    PDF     PDFConfig
    Status  StatusConfig
    Publish PublishConfig
    Server  ServerConfig
}

// Load reads a .env file from the working directory when present, then FromEnv.
// Variables already set in the environment win over the file.
func Load() Config {
    _ = godotenv.Load()
    return FromEnv()
}

// FromEnv loads configuration from environment with sensible defaults.
func FromEnv() Config {
    cfg := Config{}

    // Logging defaults; no log file unless asked for, the CLI should not litter
    cfg.Logging = LoggingConfig{
        Level:      getEnv("LOG_LEVEL", "info"),
        Pretty:     parseBool(getEnv("LOG_PRETTY", devDefaultPretty())),
        File:       getEnv("LOG_FILE", ""),
        MaxSizeMB:  parseInt(getEnv("LOG_MAX_SIZE_MB", "100"), 100),
        MaxBackups: parseInt(getEnv("LOG_MAX_BACKUPS", "10"), 10),
        MaxAgeDays: parseInt(getEnv("LOG_MAX_AGE_DAYS", "30"), 30),
        Compress:   parseBool(getEnv("LOG_COMPRESS", "true")),
    }

    baseDataset := getEnv("AXIOM_DATASET", "dev")
    cfg.Axiom = AxiomConfig{
        Send:          parseBool(getEnv("SEND_LOGS_TO_AXIOM", "0")),
        APIKey:        getEnv("AXIOM_API_KEY", ""),
        OrgID:         getEnv("AXIOM_ORG_ID", ""),
        Dataset:       baseDataset + "_pagemerge",
        FlushInterval: parseDuration(getEnv("AXIOM_FLUSH_INTERVAL", "10s"), 10*time.Second),
    }

    cfg.PDF = PDFConfig{
        ScanWorkers:    parseInt(getEnv("SCAN_WORKERS", "0"), 0),
        Validation:     strings.ToLower(getEnv("PDF_VALIDATION", "relaxed")),
        PreviewDPI:     parseInt(getEnv("PREVIEW_DPI", "72"), 72),
        PreviewQuality: parseInt(getEnv("PREVIEW_QUALITY", "80"), 80),
    }
    if cfg.PDF.PreviewDPI <= 0 { cfg.PDF.PreviewDPI = 72 }
    if cfg.PDF.PreviewQuality <= 0 || cfg.PDF.PreviewQuality > 100 { cfg.PDF.PreviewQuality = 80 }

    cfg.Status = StatusConfig{
        RedisURL: getEnv("REDIS_URL", ""),
        Key:      getEnv("STATUS_KEY", "pagemerge:status"),
    }

    cfg.Publish = PublishConfig{
        Bucket:          getEnv("S3_OUTPUT_BUCKET", ""),
        Prefix:          strings.Trim(getEnv("S3_OUTPUT_PREFIX", "merged"), "/"),
        Region:          getEnv("AWS_REGION", ""),
        Endpoint:        getEnv("S3_ENDPOINT", ""),
        AccessKeyID:     getEnv("AWS_ACCESS_KEY_ID", ""),
        SecretAccessKey: getEnv("AWS_SECRET_ACCESS_KEY", ""),
    }

    cfg.Server = ServerConfig{
        Port:       getEnv("PORT", "8080"),
        InputDir:   getEnv("INPUT_DIR", ""),
        OutputPath: getEnv("OUTPUT_PATH", ""),
    }

    return cfg
}

// Helpers
func getEnv(key, def string) string {
    if v := os.Getenv(key); v != "" {
        return v
    }
    return def
}

func parseInt(s string, def int) int {
    if s == "" { return def }
    if n, err := strconv.Atoi(s); err == nil { return n }
    return def
}

func parseBool(s string) bool {
    v := strings.ToLower(strings.TrimSpace(s))
    return v == "1" || v == "true" || v == "yes" || v == "on"
}

func parseDuration(s string, def time.Duration) time.Duration {
    if s == "" { return def }
    if d, err := time.ParseDuration(s); err == nil { return d }
    return def
}

func devDefaultPretty() string {
    env := strings.ToLower(os.Getenv("ENVIRONMENT"))
    if env == "dev" || env == "development" || env == "local" { return "true" }
    return "false"
}
