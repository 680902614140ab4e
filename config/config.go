package config

import (
	"errors"
	"fmt"
	"log"
	"os"
	"regexp"
	"time"

	"gopkg.in/yaml.v3"
)

// DefaultBookingURL is the LibCal spaces page for the main library.
const DefaultBookingURL = "https://cal.lib.uoguelph.ca/spaces?lid=1536&gid=0&c=0"

var hhmmRe = regexp.MustCompile(`^([01]?\d|2[0-3]):[0-5]\d$`)

// Config represents the overall application configuration.
type Config struct {
	Booking         BookingConfig       `yaml:"booking"`
	RoomPreferences RoomPreferences     `yaml:"room_preferences"`
	TimePreferences TimePreferences     `yaml:"time_preferences"`
	Schedule        ScheduleConfig      `yaml:"schedule"`
	Notifications   NotificationsConfig `yaml:"notifications"`
	Advanced        AdvancedConfig      `yaml:"advanced"`
	Server          ServerConfig        `yaml:"server"`
	Database        DatabaseConfig      `yaml:"database"`
	Redis           RedisConfig         `yaml:"redis"`
}

// BookingConfig holds the target calendar location.
type BookingConfig struct {
	URL          string `yaml:"url"`
	TargetDomain string `yaml:"target_domain"`
}

// RoomPreferences narrows down which rooms may be booked.
type RoomPreferences struct {
	Capacity       int      `yaml:"capacity"`
	PreferredRooms []string `yaml:"preferred_rooms"`
	ExcludedRooms  []string `yaml:"excluded_rooms"`
}

// TimePreferences controls when and for how long a room is booked.
type TimePreferences struct {
	PreferredStartTimes  []string `yaml:"preferred_start_times"`
	BookingDurationHours float64  `yaml:"booking_duration_hours"`
	DaysInAdvance        int      `yaml:"days_in_advance"`
}

// ScheduleConfig holds the daily scheduler settings.
type ScheduleConfig struct {
	Enabled               bool          `yaml:"enabled"`
	RunTime               string        `yaml:"run_time"`
	RetryOnFailure        bool          `yaml:"retry_on_failure"`
	MaxRetries            int           `yaml:"max_retries"`
	BackoffSeconds        int           `yaml:"backoff_seconds"`
	Backoff               time.Duration `yaml:"-"`
	AttemptTimeoutSeconds int           `yaml:"attempt_timeout_seconds"`
	AttemptTimeout        time.Duration `yaml:"-"`
}

// NotificationsConfig selects the notification channels.
type NotificationsConfig struct {
	Enabled             bool           `yaml:"enabled"`
	DesktopNotification bool           `yaml:"desktop_notification"`
	Email               string         `yaml:"email"`
	Telegram            TelegramConfig `yaml:"telegram"`
	Push                PushConfig     `yaml:"push"`
	WorkerPoolSize      int            `yaml:"worker_pool_size"`
}

// TelegramConfig holds the bot credentials for Telegram alerts.
type TelegramConfig struct {
	BotToken string `yaml:"bot_token"`
	ChatID   int64  `yaml:"chat_id"`
}

// PushConfig holds the VAPID keys for web push notifications.
type PushConfig struct {
	PublicKey  string `yaml:"vapid_public_key"`
	PrivateKey string `yaml:"vapid_private_key"`
	Subject    string `yaml:"subject"`
	TTL        int    `yaml:"ttl"`
}

// AdvancedConfig holds browser and diagnostics tuning.
type AdvancedConfig struct {
	HeadlessMode            bool          `yaml:"headless_mode"`
	WaitTimeoutSeconds      int           `yaml:"wait_timeout"`
	WaitTimeout             time.Duration `yaml:"-"`
	LoginTimeoutSeconds     int           `yaml:"login_timeout"`
	LoginTimeout            time.Duration `yaml:"-"`
	ManualVerifyWaitSeconds int           `yaml:"manual_verify_wait"`
	ManualVerifyWait        time.Duration `yaml:"-"`
	ScreenshotOnError       bool          `yaml:"screenshot_on_error"`
	ScreenshotsDir          string        `yaml:"screenshots_dir"`
	LogLevel                string        `yaml:"log_level"`
	LogsDir                 string        `yaml:"logs_dir"`
	ProfileDir              string        `yaml:"profile_dir"`
}

// ServerConfig holds the server-related configuration.
type ServerConfig struct {
	Port            int     `yaml:"port"`
	RateLimitPerSec float64 `yaml:"rate_limit_per_sec"`
	RateLimitBurst  int     `yaml:"rate_limit_burst"`
	CacheTTLSeconds int     `yaml:"cache_ttl_seconds"`
	// TriggerTokenHash is a bcrypt hash of the bearer token allowed to start runs.
	TriggerTokenHash string `yaml:"trigger_token_hash"`
}

// DatabaseConfig holds the database connection configuration.
type DatabaseConfig struct {
	DSN                    string `yaml:"dsn"`
	MaxOpenConns           int    `yaml:"max_open_conns"`
	MaxIdleConns           int    `yaml:"max_idle_conns"`
	ConnMaxLifetimeMinutes int    `yaml:"conn_max_lifetime_minutes"`
}

// RedisConfig enables the shared run lock when Addr is set.
type RedisConfig struct {
	Addr     string `yaml:"addr"`
	Password string `yaml:"password"`
	DB       int    `yaml:"db"`
}

// Load reads the configuration from the given path.
func Load(path string) (*Config, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	cfg := Default()
	decoder := yaml.NewDecoder(f)
	if err := decoder.Decode(cfg); err != nil {
		return nil, fmt.Errorf("failed to decode %s: %w", path, err)
	}

	cfg.applyDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Default returns a configuration with every default filled in.
func Default() *Config {
	cfg := &Config{
		RoomPreferences: RoomPreferences{Capacity: 1},
		TimePreferences: TimePreferences{
			PreferredStartTimes:  []string{"10:00", "11:00", "12:00", "13:00", "14:00"},
			BookingDurationHours: 2,
			DaysInAdvance:        2,
		},
		Schedule: ScheduleConfig{
			Enabled:        true,
			RunTime:        "00:05",
			RetryOnFailure: true,
			MaxRetries:     3,
		},
		Notifications: NotificationsConfig{
			Enabled:             true,
			DesktopNotification: true,
		},
		Advanced: AdvancedConfig{
			ScreenshotOnError: true,
			LogLevel:          "INFO",
		},
	}
	cfg.applyDefaults()
	return cfg
}

func (c *Config) applyDefaults() {
	if c.Booking.URL == "" {
		c.Booking.URL = DefaultBookingURL
	}
	if c.Booking.TargetDomain == "" {
		c.Booking.TargetDomain = "cal.lib.uoguelph.ca"
	}

	if c.Schedule.RunTime == "" {
		c.Schedule.RunTime = "00:05"
	}
	if c.Schedule.MaxRetries <= 0 {
		c.Schedule.MaxRetries = 1
	}
	if c.Schedule.BackoffSeconds <= 0 {
		c.Schedule.BackoffSeconds = 60
	}
	c.Schedule.Backoff = time.Duration(c.Schedule.BackoffSeconds) * time.Second
	if c.Schedule.AttemptTimeoutSeconds <= 0 {
		c.Schedule.AttemptTimeoutSeconds = 300
	}
	c.Schedule.AttemptTimeout = time.Duration(c.Schedule.AttemptTimeoutSeconds) * time.Second

	if c.Advanced.WaitTimeoutSeconds <= 0 {
		c.Advanced.WaitTimeoutSeconds = 10
	}
	c.Advanced.WaitTimeout = time.Duration(c.Advanced.WaitTimeoutSeconds) * time.Second
	if c.Advanced.LoginTimeoutSeconds <= 0 {
		c.Advanced.LoginTimeoutSeconds = 180
	}
	c.Advanced.LoginTimeout = time.Duration(c.Advanced.LoginTimeoutSeconds) * time.Second
	if c.Advanced.ManualVerifyWaitSeconds <= 0 {
		c.Advanced.ManualVerifyWaitSeconds = 30
	}
	c.Advanced.ManualVerifyWait = time.Duration(c.Advanced.ManualVerifyWaitSeconds) * time.Second
	if c.Advanced.ScreenshotsDir == "" {
		c.Advanced.ScreenshotsDir = "screenshots"
	}
	if c.Advanced.LogsDir == "" {
		c.Advanced.LogsDir = "logs"
	}
	if c.Advanced.LogLevel == "" {
		c.Advanced.LogLevel = "INFO"
	}

	if c.Notifications.Push.TTL <= 0 {
		c.Notifications.Push.TTL = 3600
	}
	if c.Notifications.WorkerPoolSize <= 0 {
		log.Printf("notifications.worker_pool_size is not set or invalid; defaulting to 1")
		c.Notifications.WorkerPoolSize = 1
	}

	if c.Server.Port <= 0 {
		c.Server.Port = 8080
	}
	if c.Server.RateLimitPerSec <= 0 {
		c.Server.RateLimitPerSec = 10
	}
	if c.Server.RateLimitBurst <= 0 {
		c.Server.RateLimitBurst = 5
	}
	if c.Server.CacheTTLSeconds <= 0 {
		c.Server.CacheTTLSeconds = 60
	}

	if c.Database.DSN == "" {
		c.Database.DSN = "booker.db"
	}
	if c.Database.MaxOpenConns <= 0 {
		c.Database.MaxOpenConns = 5
	}
	if c.Database.MaxIdleConns <= 0 {
		c.Database.MaxIdleConns = 2
	}
	if c.Database.ConnMaxLifetimeMinutes <= 0 {
		c.Database.ConnMaxLifetimeMinutes = 30
	}
}

// Validate checks the values that cannot be defaulted.
func (c *Config) Validate() error {
	var errs []error
	if c.RoomPreferences.Capacity < 1 {
		errs = append(errs, fmt.Errorf("room_preferences.capacity must be >= 1, got %d", c.RoomPreferences.Capacity))
	}
	if c.TimePreferences.BookingDurationHours < 0 {
		errs = append(errs, fmt.Errorf("time_preferences.booking_duration_hours must be >= 0"))
	}
	if h := c.TimePreferences.BookingDurationHours * 2; h != float64(int(h)) {
		errs = append(errs, fmt.Errorf("time_preferences.booking_duration_hours must be a multiple of 0.5, got %v", c.TimePreferences.BookingDurationHours))
	}
	if c.TimePreferences.DaysInAdvance < 0 {
		errs = append(errs, fmt.Errorf("time_preferences.days_in_advance must be >= 0"))
	}
	for _, t := range c.TimePreferences.PreferredStartTimes {
		if !hhmmRe.MatchString(t) {
			errs = append(errs, fmt.Errorf("time_preferences.preferred_start_times: %q is not HH:MM", t))
		}
	}
	if !hhmmRe.MatchString(c.Schedule.RunTime) {
		errs = append(errs, fmt.Errorf("schedule.run_time: %q is not HH:MM", c.Schedule.RunTime))
	}
	return errors.Join(errs...)
}
