package config

import (
	"fmt"
	"strings"
	"time"
	_ "time/tzdata"

	"github.com/spf13/viper"

	"github.com/kiranshivaraju/shopplan/internal/calendar"
)

// Config holds all configuration for the shopplan server.
type Config struct {
	Server    ServerConfig
	Database  DatabaseConfig
	Redis     RedisConfig
	Calendar  CalendarConfig
	Hebcal    HebcalConfig
	Planning  PlanningConfig
	Worker    WorkerConfig
	RateLimit RateLimitConfig
}

type ServerConfig struct {
	Port int
	Env  string
}

type DatabaseConfig struct {
	URL             string
	MaxOpenConns    int
	MaxIdleConns    int
	ConnMaxLifetime time.Duration
}

type RedisConfig struct {
	URL string
}

// CalendarConfig is the plant's working calendar. Location and Week are
// parsed from CALENDAR_TIMEZONE and CALENDAR_WEEK during Load.
type CalendarConfig struct {
	Timezone     string
	WeekPattern  string
	HolidaysFile string
	Location     *time.Location
	Week         calendar.Week
}

type HebcalConfig struct {
	BaseURL string
	Timeout time.Duration
}

type PlanningConfig struct {
	MaxWaitDays       int
	MaxBookingsPerDay int
	EarlyEndCutoff    time.Duration
	LockTTL           time.Duration
}

type WorkerConfig struct {
	Concurrency int
}

type RateLimitConfig struct {
	PerMinute int
}

const configFileEnv = "SHOPPLAN_CONFIG_FILE"

func setDefaults(v *viper.Viper) {
	v.SetDefault("SHOPPLAN_PORT", 8080)
	v.SetDefault("SHOPPLAN_ENV", "production")

	v.SetDefault("DATABASE_URL", "")
	v.SetDefault("DATABASE_MAX_OPEN_CONNS", 25)
	v.SetDefault("DATABASE_MAX_IDLE_CONNS", 5)
	v.SetDefault("DATABASE_CONN_MAX_LIFETIME", 5*time.Minute)

	v.SetDefault("REDIS_URL", "")

	v.SetDefault("CALENDAR_TIMEZONE", "Asia/Jerusalem")
	v.SetDefault("CALENDAR_WEEK", "sun-thu 08:00-16:00; fri 08:00-14:00")
	v.SetDefault("CALENDAR_HOLIDAYS_FILE", "")

	v.SetDefault("HEBCAL_BASE_URL", "https://www.hebcal.com")
	v.SetDefault("HEBCAL_TIMEOUT", 10*time.Second)

	v.SetDefault("PLANNING_MAX_WAIT_DAYS", 60)
	v.SetDefault("PLANNING_MAX_BOOKINGS_PER_DAY", 2)
	v.SetDefault("PLANNING_EARLY_END_CUTOFF", "14:00")
	v.SetDefault("PLANNING_LOCK_TTL", 5*time.Minute)

	v.SetDefault("WORKER_CONCURRENCY", 1)
	v.SetDefault("RATE_LIMIT_PER_MIN", 120)
}

// Load reads configuration from environment variables, optionally layered
// over the file named by SHOPPLAN_CONFIG_FILE, and returns a validated Config.
// Returns an error with a descriptive message if any required value is missing or invalid.
func Load() (*Config, error) {
	v := viper.New()
	setDefaults(v)
	v.AutomaticEnv()

	if path := v.GetString(configFileEnv); path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("read config file %s: %w", path, err)
		}
	}

	cfg := &Config{
		Server: ServerConfig{
			Port: v.GetInt("SHOPPLAN_PORT"),
			Env:  v.GetString("SHOPPLAN_ENV"),
		},
		Database: DatabaseConfig{
			URL:             v.GetString("DATABASE_URL"),
			MaxOpenConns:    v.GetInt("DATABASE_MAX_OPEN_CONNS"),
			MaxIdleConns:    v.GetInt("DATABASE_MAX_IDLE_CONNS"),
			ConnMaxLifetime: v.GetDuration("DATABASE_CONN_MAX_LIFETIME"),
		},
		Redis: RedisConfig{
			URL: v.GetString("REDIS_URL"),
		},
		Calendar: CalendarConfig{
			Timezone:     v.GetString("CALENDAR_TIMEZONE"),
			WeekPattern:  v.GetString("CALENDAR_WEEK"),
			HolidaysFile: v.GetString("CALENDAR_HOLIDAYS_FILE"),
		},
		Hebcal: HebcalConfig{
			BaseURL: v.GetString("HEBCAL_BASE_URL"),
			Timeout: v.GetDuration("HEBCAL_TIMEOUT"),
		},
		Planning: PlanningConfig{
			MaxWaitDays:       v.GetInt("PLANNING_MAX_WAIT_DAYS"),
			MaxBookingsPerDay: v.GetInt("PLANNING_MAX_BOOKINGS_PER_DAY"),
			LockTTL:           v.GetDuration("PLANNING_LOCK_TTL"),
		},
		Worker: WorkerConfig{
			Concurrency: v.GetInt("WORKER_CONCURRENCY"),
		},
		RateLimit: RateLimitConfig{
			PerMinute: v.GetInt("RATE_LIMIT_PER_MIN"),
		},
	}

	if err := cfg.validate(); err != nil {
		return nil, err
	}

	var err error
	if cfg.Planning.EarlyEndCutoff, err = calendar.ParseClock(v.GetString("PLANNING_EARLY_END_CUTOFF")); err != nil {
		return nil, fmt.Errorf("PLANNING_EARLY_END_CUTOFF: %w", err)
	}
	if cfg.Calendar.Location, err = time.LoadLocation(cfg.Calendar.Timezone); err != nil {
		return nil, fmt.Errorf("CALENDAR_TIMEZONE: %w", err)
	}
	if cfg.Calendar.Week, err = calendar.ParseWeek(cfg.Calendar.WeekPattern); err != nil {
		return nil, fmt.Errorf("CALENDAR_WEEK: %w", err)
	}

	return cfg, nil
}

func (c *Config) validate() error {
	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		return fmt.Errorf("SHOPPLAN_PORT must be between 1 and 65535, got %d", c.Server.Port)
	}

	if c.Database.URL == "" {
		return fmt.Errorf("DATABASE_URL is required")
	}

	if c.Redis.URL == "" {
		return fmt.Errorf("REDIS_URL is required")
	}

	if !strings.HasPrefix(c.Hebcal.BaseURL, "http://") && !strings.HasPrefix(c.Hebcal.BaseURL, "https://") {
		return fmt.Errorf("HEBCAL_BASE_URL must start with http:// or https://, got %q", c.Hebcal.BaseURL)
	}

	if c.Planning.MaxWaitDays <= 0 {
		return fmt.Errorf("PLANNING_MAX_WAIT_DAYS must be positive, got %d", c.Planning.MaxWaitDays)
	}
	if c.Planning.MaxBookingsPerDay <= 0 {
		return fmt.Errorf("PLANNING_MAX_BOOKINGS_PER_DAY must be positive, got %d", c.Planning.MaxBookingsPerDay)
	}
	if c.Planning.LockTTL <= 0 {
		return fmt.Errorf("PLANNING_LOCK_TTL must be positive, got %s", c.Planning.LockTTL)
	}

	if c.Worker.Concurrency <= 0 {
		return fmt.Errorf("WORKER_CONCURRENCY must be positive, got %d", c.Worker.Concurrency)
	}

	return nil
}

// IsDevelopment reports whether the server runs with development defaults.
func (c *Config) IsDevelopment() bool {
	return c.Server.Env == "development"
}
