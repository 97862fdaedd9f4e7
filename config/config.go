package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// Config is read once at startup and passed to whatever needs it.
type Config struct {
	Port        string
	DSN         string
	JWTSecret   string
	TokenTTL    time.Duration
	UseMockData bool
	LogLevel    string
	LogFormat   string

	UseGCS    bool
	GCSBucket string
	GCSPrefix string
	UploadDir string

	MobileAppKey string
	DashboardKey string

	AdminEmail    string
	AdminPassword string

	// Location is the zone daily report slots are evaluated in.
	Location *time.Location
}

// Load reads .env when present, then the process environment.
func Load() (*Config, error) {
	envErr := godotenv.Load()

	cfg := &Config{
		Port:          getenv("PORT", "8080"),
		DSN:           os.Getenv("DB_DSN"),
		JWTSecret:     os.Getenv("JWT_SECRET"),
		UseMockData:   getbool("USE_MOCK_DATA"),
		LogLevel:      getenv("LOG_LEVEL", "info"),
		LogFormat:     getenv("LOG_FORMAT", "json"),
		UseGCS:        getbool("USE_GCS") || os.Getenv("K_SERVICE") != "",
		GCSBucket:     os.Getenv("GCS_BUCKET"),
		GCSPrefix:     getenv("GCS_PREFIX", "uploads"),
		UploadDir:     getenv("UPLOAD_DIR", "./uploads"),
		MobileAppKey:  os.Getenv("MOBILE_APP_KEY"),
		DashboardKey:  os.Getenv("DASHBOARD_KEY"),
		AdminEmail:    getenv("ADMIN_EMAIL", "admin@rigops.local"),
		AdminPassword: getenv("ADMIN_PASSWORD", "Welcome@123"),
		Location:      time.Local,
	}

	ttl, err := time.ParseDuration(getenv("TOKEN_TTL", "72h"))
	if err != nil {
		return nil, fmt.Errorf("TOKEN_TTL: %w", err)
	}
	cfg.TokenTTL = ttl

	if tz := os.Getenv("REPORT_TIMEZONE"); tz != "" {
		loc, err := time.LoadLocation(tz)
		if err != nil {
			return nil, fmt.Errorf("REPORT_TIMEZONE: %w", err)
		}
		cfg.Location = loc
	}

	if err := cfg.validate(); err != nil {
		if envErr != nil {
			return nil, fmt.Errorf("%w (no .env file found)", err)
		}
		return nil, err
	}
	return cfg, nil
}

func (c *Config) validate() error {
	var errs []error
	if c.JWTSecret == "" {
		errs = append(errs, errors.New("JWT_SECRET is required"))
	}
	if !c.UseMockData && c.DSN == "" {
		errs = append(errs, errors.New("DB_DSN is required unless USE_MOCK_DATA=true"))
	}
	if c.UseGCS && c.GCSBucket == "" {
		errs = append(errs, errors.New("GCS_BUCKET is required when USE_GCS=true"))
	}
	return errors.Join(errs...)
}

func getenv(key, fallback string) string {
	if v := strings.TrimSpace(os.Getenv(key)); v != "" {
		return v
	}
	return fallback
}

func getbool(key string) bool {
	b, _ := strconv.ParseBool(os.Getenv(key))
	return b
}

// Connect opens PostgreSQL with unique violations translated to
// gorm.ErrDuplicatedKey and runs the migrations.
func Connect(cfg *Config, log zerolog.Logger) (*gorm.DB, error) {
	level := logger.Warn
	if cfg.LogLevel == "debug" {
		level = logger.Info
	}

	db, err := gorm.Open(postgres.Open(cfg.DSN), &gorm.Config{
		TranslateError: true,
		Logger: logger.New(&log, logger.Config{
			SlowThreshold:             500 * time.Millisecond,
			LogLevel:                  level,
			IgnoreRecordNotFoundError: true,
		}),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	if err := Migrations(db); err != nil {
		return nil, fmt.Errorf("failed to run migrations: %w", err)
	}
	return db, nil
}
