package config

import (
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"strconv"
	"strings"
	"time"
	_ "time/tzdata"

	sharedcfg "github.com/couchcryptid/storm-data-shared/config"
	"github.com/hashicorp/go-multierror"
	"github.com/joho/godotenv"
)

// Storage backends.
const (
	BackendS3    = "s3"
	BackendGCS   = "gcs"
	BackendLocal = "local"
)

// Run modes.
const (
	ModeOnce     = "once"
	ModeSchedule = "schedule"
)

// Config holds all service settings, populated from environment variables.
type Config struct {
	// Forecast endpoint and the fixed query location.
	ForecastBaseURL   string
	ForecastLatitude  float64
	ForecastLongitude float64
	FetchTimeout      time.Duration

	Storage       Storage
	UploadTimeout time.Duration

	KeyUniqueSuffix    bool
	KeyLocation        *time.Location
	ParquetCompression string

	RunMode          string
	ScheduleCron     string
	ScheduleInterval time.Duration

	HTTPAddr        string
	LogLevel        string
	LogFormat       string
	ShutdownTimeout time.Duration

	// Run notifications are disabled when no brokers are configured.
	KafkaBrokers     []string
	KafkaNotifyTopic string
}

// Storage describes the object-storage destination and its credentials.
type Storage struct {
	Backend         string
	Bucket          string
	Prefix          string
	Region          string
	Endpoint        string
	LocalDir        string
	AccessKeyID     string
	SecretAccessKey string
	CredentialsFile string
}

// Root returns the bucket root every persisted URI starts with.
func (s Storage) Root() string {
	switch s.Backend {
	case BackendGCS:
		return "gs://" + s.Bucket
	case BackendLocal:
		return "file://" + strings.TrimSuffix(s.LocalDir, "/")
	default:
		return "s3://" + s.Bucket
	}
}

// Load reads configuration from an optional .env file and environment
// variables, applying defaults where unset. All invalid values are reported
// together.
func Load() (*Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		slog.Warn("failed to read .env file", "error", err)
	}

	var errs *multierror.Error

	shutdownTimeout, err := sharedcfg.ParseShutdownTimeout()
	if err != nil {
		errs = multierror.Append(errs, err)
	}

	cfg := &Config{
		ForecastBaseURL:   sharedcfg.EnvOrDefault("FORECAST_BASE_URL", "https://api.open-meteo.com/v1/forecast"),
		ForecastLatitude:  parseFloat(&errs, "FORECAST_LATITUDE", -21.22),
		ForecastLongitude: parseFloat(&errs, "FORECAST_LONGITUDE", -44.99),
		FetchTimeout:      parsePositiveDuration(&errs, "FETCH_TIMEOUT", "30s"),

		Storage: Storage{
			Backend:         strings.ToLower(sharedcfg.EnvOrDefault("STORAGE_BACKEND", BackendS3)),
			Bucket:          sharedcfg.EnvOrDefault("STORAGE_BUCKET", "dee-tutorial"),
			Prefix:          sharedcfg.EnvOrDefault("STORAGE_PREFIX", "open-meteo"),
			Region:          sharedcfg.EnvOrDefault("STORAGE_REGION", "us-east-2"),
			Endpoint:        os.Getenv("STORAGE_ENDPOINT"),
			LocalDir:        sharedcfg.EnvOrDefault("STORAGE_LOCAL_DIR", "data"),
			AccessKeyID:     os.Getenv("AWS_ACCESS_KEY_ID"),
			SecretAccessKey: os.Getenv("AWS_SECRET_ACCESS_KEY"),
			CredentialsFile: os.Getenv("GCS_CREDENTIALS_FILE"),
		},
		UploadTimeout: parsePositiveDuration(&errs, "UPLOAD_TIMEOUT", "60s"),

		KeyUniqueSuffix:    parseBool(&errs, "KEY_UNIQUE_SUFFIX", true),
		KeyLocation:        parseLocation(&errs, "KEY_TIMEZONE", "UTC"),
		ParquetCompression: strings.ToUpper(sharedcfg.EnvOrDefault("PARQUET_COMPRESSION", "SNAPPY")),

		RunMode:      strings.ToLower(sharedcfg.EnvOrDefault("RUN_MODE", ModeOnce)),
		ScheduleCron: sharedcfg.EnvOrDefault("SCHEDULE_CRON", "0 * * * *"),

		HTTPAddr:        sharedcfg.EnvOrDefault("HTTP_ADDR", ":8080"),
		LogLevel:        sharedcfg.EnvOrDefault("LOG_LEVEL", "info"),
		LogFormat:       sharedcfg.EnvOrDefault("LOG_FORMAT", "json"),
		ShutdownTimeout: shutdownTimeout,

		KafkaNotifyTopic: sharedcfg.EnvOrDefault("KAFKA_NOTIFY_TOPIC", "forecast-runs"),
	}

	if v := os.Getenv("SCHEDULE_INTERVAL"); v != "" {
		cfg.ScheduleInterval = parsePositiveDuration(&errs, "SCHEDULE_INTERVAL", v)
	}
	if v := os.Getenv("KAFKA_BROKERS"); v != "" {
		cfg.KafkaBrokers = sharedcfg.ParseBrokers(v)
	}

	errs = multierror.Append(errs, cfg.validate()...)
	if err := errs.ErrorOrNil(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// NotificationsEnabled reports whether run notifications should be published.
func (c *Config) NotificationsEnabled() bool {
	return len(c.KafkaBrokers) > 0
}

func (c *Config) validate() []error {
	var errs []error

	if c.ForecastBaseURL == "" {
		errs = append(errs, errors.New("FORECAST_BASE_URL is required"))
	}
	if c.ForecastLatitude < -90 || c.ForecastLatitude > 90 {
		errs = append(errs, fmt.Errorf("FORECAST_LATITUDE %v out of range", c.ForecastLatitude))
	}
	if c.ForecastLongitude < -180 || c.ForecastLongitude > 180 {
		errs = append(errs, fmt.Errorf("FORECAST_LONGITUDE %v out of range", c.ForecastLongitude))
	}

	switch c.Storage.Backend {
	case BackendS3, BackendGCS:
		if c.Storage.Bucket == "" {
			errs = append(errs, errors.New("STORAGE_BUCKET is required"))
		}
	case BackendLocal:
		if c.Storage.LocalDir == "" {
			errs = append(errs, errors.New("STORAGE_LOCAL_DIR is required for the local backend"))
		}
	default:
		errs = append(errs, fmt.Errorf("STORAGE_BACKEND %q is not one of s3, gcs, local", c.Storage.Backend))
	}

	switch c.ParquetCompression {
	case "SNAPPY", "GZIP", "NONE", "UNCOMPRESSED":
	default:
		errs = append(errs, fmt.Errorf("PARQUET_COMPRESSION %q is not one of SNAPPY, GZIP, NONE, UNCOMPRESSED", c.ParquetCompression))
	}

	switch c.RunMode {
	case ModeOnce:
	case ModeSchedule:
		if c.ScheduleCron == "" && c.ScheduleInterval == 0 {
			errs = append(errs, errors.New("SCHEDULE_CRON or SCHEDULE_INTERVAL is required in schedule mode"))
		}
	default:
		errs = append(errs, fmt.Errorf("RUN_MODE %q is not one of once, schedule", c.RunMode))
	}

	return errs
}

func parseFloat(errs **multierror.Error, key string, def float64) float64 {
	s := os.Getenv(key)
	if s == "" {
		return def
	}
	v, err := strconv.ParseFloat(strings.TrimSpace(s), 64)
	if err != nil {
		*errs = multierror.Append(*errs, fmt.Errorf("invalid %s: %w", key, err))
		return def
	}
	return v
}

func parseBool(errs **multierror.Error, key string, def bool) bool {
	s := os.Getenv(key)
	if s == "" {
		return def
	}
	v, err := strconv.ParseBool(s)
	if err != nil {
		*errs = multierror.Append(*errs, fmt.Errorf("invalid %s: %w", key, err))
		return def
	}
	return v
}

func parsePositiveDuration(errs **multierror.Error, key, def string) time.Duration {
	s := sharedcfg.EnvOrDefault(key, def)
	d, err := time.ParseDuration(s)
	if err != nil || d <= 0 {
		*errs = multierror.Append(*errs, fmt.Errorf("invalid %s: must be a positive duration", key))
		return 0
	}
	return d
}

func parseLocation(errs **multierror.Error, key, def string) *time.Location {
	name := sharedcfg.EnvOrDefault(key, def)
	loc, err := time.LoadLocation(name)
	if err != nil {
		*errs = multierror.Append(*errs, fmt.Errorf("invalid %s: %w", key, err))
		return time.UTC
	}
	return loc
}
