package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"

	"github.com/hms/hms/internal/domain/scheduling"
)

const (
	BackendMemory   = "memory"
	BackendRedis    = "redis"
	BackendPostgres = "postgres"
)

type Config struct {
	Port        string `mapstructure:"PORT"`
	Env         string `mapstructure:"ENV"`
	LogLevel    string `mapstructure:"LOG_LEVEL"`
	CatalogDir  string `mapstructure:"CATALOG_DIR"`
	CORSOrigins []string

	StoreBackend   string `mapstructure:"STORE_BACKEND"`
	RedisURL       string `mapstructure:"REDIS_URL"`
	RedisNamespace string `mapstructure:"REDIS_NAMESPACE"`
	DatabaseURL    string `mapstructure:"DATABASE_URL"`
	DBMaxConns     int32  `mapstructure:"DB_MAX_CONNS"`
	DBMinConns     int32  `mapstructure:"DB_MIN_CONNS"`

	SessionSecret string        `mapstructure:"SESSION_SECRET"`
	SessionTTL    time.Duration `mapstructure:"SESSION_TTL"`

	SlotStartHour        int    `mapstructure:"SLOT_START_HOUR"`
	SlotEndHour          int    `mapstructure:"SLOT_END_HOUR"`
	SlotDurationMinutes  int    `mapstructure:"SLOT_DURATION_MINUTES"`
	BookingHorizonMonths int    `mapstructure:"BOOKING_HORIZON_MONTHS"`
	Timezone             string `mapstructure:"TIMEZONE"`

	RequestTimeout time.Duration `mapstructure:"REQUEST_TIMEOUT"`
	RateLimitRPS   float64       `mapstructure:"RATE_LIMIT_RPS"`
	RateLimitBurst int           `mapstructure:"RATE_LIMIT_BURST"`
}

var keys = []string{
	"PORT", "ENV", "LOG_LEVEL", "CATALOG_DIR", "CORS_ORIGINS",
	"STORE_BACKEND", "REDIS_URL", "REDIS_NAMESPACE", "DATABASE_URL", "DB_MAX_CONNS", "DB_MIN_CONNS",
	"SESSION_SECRET", "SESSION_TTL",
	"SLOT_START_HOUR", "SLOT_END_HOUR", "SLOT_DURATION_MINUTES", "BOOKING_HORIZON_MONTHS", "TIMEZONE",
	"REQUEST_TIMEOUT", "RATE_LIMIT_RPS", "RATE_LIMIT_BURST",
}

// Load reads the environment, plus .env in the working directory when it
// exists. Environment variables win over the file.
func Load() (*Config, error) {
	v := viper.New()
	v.SetConfigFile(".env")
	v.SetConfigType("env")
	v.AutomaticEnv()

	v.SetDefault("PORT", "8000")
	v.SetDefault("ENV", "development")
	v.SetDefault("LOG_LEVEL", "info")
	v.SetDefault("CORS_ORIGINS", "http://localhost:3000")
	v.SetDefault("STORE_BACKEND", BackendMemory)
	v.SetDefault("REDIS_NAMESPACE", "hms:")
	v.SetDefault("DB_MAX_CONNS", 10)
	v.SetDefault("DB_MIN_CONNS", 2)
	v.SetDefault("SESSION_TTL", "24h")
	v.SetDefault("SLOT_START_HOUR", 9)
	v.SetDefault("SLOT_END_HOUR", 18)
	v.SetDefault("SLOT_DURATION_MINUTES", 30)
	v.SetDefault("BOOKING_HORIZON_MONTHS", 3)
	v.SetDefault("TIMEZONE", "Local")
	v.SetDefault("REQUEST_TIMEOUT", "15s")
	v.SetDefault("RATE_LIMIT_RPS", 5)
	v.SetDefault("RATE_LIMIT_BURST", 10)

	for _, k := range keys {
		_ = v.BindEnv(k)
	}

	// .env is optional
	_ = v.ReadInConfig()

	cfg := &Config{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}
	for _, o := range strings.Split(v.GetString("CORS_ORIGINS"), ",") {
		if o = strings.TrimSpace(o); o != "" {
			cfg.CORSOrigins = append(cfg.CORSOrigins, o)
		}
	}
	cfg.StoreBackend = strings.ToLower(cfg.StoreBackend)
	return cfg, nil
}

func (c *Config) IsDev() bool {
	return c.Env == "development"
}

// Location resolves TIMEZONE. Slot start times and "today" are computed in
// it.
func (c *Config) Location() (*time.Location, error) {
	loc, err := time.LoadLocation(c.Timezone)
	if err != nil {
		return nil, fmt.Errorf("TIMEZONE %q: %w", c.Timezone, err)
	}
	return loc, nil
}

// SlotGrid is the bookable day built from the SLOT_* keys.
func (c *Config) SlotGrid() scheduling.SlotGrid {
	return scheduling.SlotGrid{
		StartHour:       c.SlotStartHour,
		EndHour:         c.SlotEndHour,
		DurationMinutes: c.SlotDurationMinutes,
	}
}

// Validate checks the settings the server cannot start without.
func (c *Config) Validate() error {
	switch c.StoreBackend {
	case BackendMemory:
	case BackendRedis:
		if c.RedisURL == "" {
			return fmt.Errorf("REDIS_URL is required when STORE_BACKEND is %q", BackendRedis)
		}
	case BackendPostgres:
		if c.DatabaseURL == "" {
			return fmt.Errorf("DATABASE_URL is required when STORE_BACKEND is %q", BackendPostgres)
		}
		if c.DBMinConns > c.DBMaxConns {
			return fmt.Errorf("DB_MIN_CONNS (%d) exceeds DB_MAX_CONNS (%d)", c.DBMinConns, c.DBMaxConns)
		}
	default:
		return fmt.Errorf("STORE_BACKEND must be memory, redis or postgres, got %q", c.StoreBackend)
	}

	if c.SessionSecret == "" && !c.IsDev() {
		return fmt.Errorf("SESSION_SECRET is required outside development")
	}
	if c.SessionSecret != "" && len(c.SessionSecret) < 32 {
		return fmt.Errorf("SESSION_SECRET must be at least 32 bytes, got %d", len(c.SessionSecret))
	}
	if c.SessionTTL <= 0 {
		return fmt.Errorf("SESSION_TTL must be positive, got %s", c.SessionTTL)
	}
	if c.BookingHorizonMonths <= 0 {
		return fmt.Errorf("BOOKING_HORIZON_MONTHS must be positive, got %d", c.BookingHorizonMonths)
	}
	if c.RateLimitRPS < 0 {
		return fmt.Errorf("RATE_LIMIT_RPS must not be negative, got %g", c.RateLimitRPS)
	}
	if c.RateLimitBurst < 1 {
		return fmt.Errorf("RATE_LIMIT_BURST must be at least 1, got %d", c.RateLimitBurst)
	}
	if g := c.SlotGrid(); !g.Valid() {
		return fmt.Errorf("SLOT_START_HOUR=%d SLOT_END_HOUR=%d SLOT_DURATION_MINUTES=%d yields no slots",
			g.StartHour, g.EndHour, g.DurationMinutes)
	}
	if _, err := c.Location(); err != nil {
		return err
	}
	return nil
}
