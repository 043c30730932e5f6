// Package config provides configuration management for the recorder core
// using Viper. It supports configuration from files, environment
// variables, and defaults.
package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Default configuration values.
const (
	defaultServerPort           = 8080
	defaultServerTimeout        = 30 * time.Second
	defaultShutdownTimeout      = 10 * time.Second
	defaultMaxOpenConns         = 25
	defaultMaxIdleConns         = 10
	defaultConnMaxIdleTime      = 30 * time.Minute
	defaultPollInterval         = 60 * time.Second
	defaultPollJitterMax        = 5 * time.Second
	defaultSafetyMargin         = 30 * time.Second
	defaultStreamRetryAttempts  = 5
	defaultStreamRetryDelay     = 5 * time.Second
	defaultSegmentRetryAttempts = 3
	defaultSegmentRetryBaseWait = 500 * time.Millisecond
	defaultSegmentConcurrency   = 4
	defaultSessionCloseDrain    = 5 * time.Second
	defaultHeartbeatGrace       = 1 * time.Second
	defaultEventBusCapacity     = 1024
	defaultRetentionDays        = 30
)

// Config holds all configuration for the application.
type Config struct {
	Server   ServerConfig   `mapstructure:"server"`
	Database DatabaseConfig `mapstructure:"database"`
	Storage  StorageConfig  `mapstructure:"storage"`
	Logging  LoggingConfig  `mapstructure:"logging"`
	Recorder RecorderConfig `mapstructure:"recorder"`
	Platform PlatformConfig `mapstructure:"platform"`
	Backup   BackupConfig   `mapstructure:"backup"`
}

// ServerConfig holds HTTP server configuration for the thin UI-facing
// surface carried alongside the recorder core.
type ServerConfig struct {
	Host            string        `mapstructure:"host"`
	Port            int           `mapstructure:"port"`
	ReadTimeout     time.Duration `mapstructure:"read_timeout"`
	WriteTimeout    time.Duration `mapstructure:"write_timeout"`
	ShutdownTimeout time.Duration `mapstructure:"shutdown_timeout"`
	CORSOrigins     []string      `mapstructure:"cors_origins"`
}

// DatabaseConfig holds database connection configuration for the
// persistence collaborator.
type DatabaseConfig struct {
	Driver          string        `mapstructure:"driver"` // sqlite, postgres, mysql
	DSN             string        `mapstructure:"dsn"`
	MaxOpenConns    int           `mapstructure:"max_open_conns"`
	MaxIdleConns    int           `mapstructure:"max_idle_conns"`
	ConnMaxLifetime time.Duration `mapstructure:"conn_max_lifetime"`
	ConnMaxIdleTime time.Duration `mapstructure:"conn_max_idle_time"`
	LogLevel        string        `mapstructure:"log_level"` // silent, error, warn, info
}

// StorageConfig holds the archive filesystem layout.
type StorageConfig struct {
	// CacheRoot is the root under which archives and danmu logs live, at
	// <cache_root>/<platform>/<room>/<live_id>/.
	CacheRoot string `mapstructure:"cache_root"`
	// OutputRoot is <output_root>: where the external clipper writes
	// finished clips. The core never writes here itself.
	OutputRoot string `mapstructure:"output_root"`
	// TempDir is used for in-flight downloads before they are renamed
	// into place.
	TempDir string `mapstructure:"temp_dir"`
	// RetentionDays controls the optional scheduled archive-retention
	// sweep; 0 disables it.
	RetentionDays int `mapstructure:"retention_days"`
}

// LoggingConfig holds logging configuration.
type LoggingConfig struct {
	Level      string `mapstructure:"level"`  // debug, info, warn, error
	Format     string `mapstructure:"format"` // json, text
	AddSource  bool   `mapstructure:"add_source"`
	TimeFormat string `mapstructure:"time_format"`
}

// RecorderConfig holds the per-Recorder timing and retry knobs.
type RecorderConfig struct {
	// PollInterval is the base status-poll cadence; actual polls are
	// jittered by +/- PollJitterMax.
	PollInterval  time.Duration `mapstructure:"poll_interval"`
	PollJitterMax time.Duration `mapstructure:"poll_jitter_max"`

	// SafetyMargin is how far before a StreamHandle's ExpiresAt a refresh
	// counts as due. The Recorder stores it but never checks a handle
	// against it, so no refresh is scheduled ahead of ExpiresAt.
	SafetyMargin time.Duration `mapstructure:"safety_margin"`

	// StreamRetryAttempts/Delay govern get_stream and WebSocket-connect
	// retries.
	StreamRetryAttempts int           `mapstructure:"stream_retry_attempts"`
	StreamRetryDelay    time.Duration `mapstructure:"stream_retry_delay"`

	// SegmentRetryAttempts/BaseWait are not read by the segment fetcher,
	// which retries each segment download up to a fixed 3 times with
	// exponential backoff from 500ms.
	SegmentRetryAttempts int           `mapstructure:"segment_retry_attempts"`
	SegmentRetryBaseWait time.Duration `mapstructure:"segment_retry_base_wait"`

	// SegmentConcurrency is not read by the segment fetcher, which runs at
	// most a fixed 4 segment downloads at once per session.
	SegmentConcurrency int `mapstructure:"segment_concurrency"`

	// SessionCloseDrain is not used by Recorder.Stop, which waits for its
	// workers to finish without a time limit.
	SessionCloseDrain time.Duration `mapstructure:"session_close_drain"`

	// HeartbeatGrace is not read by any danmaku provider; a provider's
	// heartbeat times out after three intervals without a successful write.
	HeartbeatGrace time.Duration `mapstructure:"heartbeat_grace"`

	// EventBusCapacity is the broadcast channel capacity per subscriber.
	EventBusCapacity int `mapstructure:"event_bus_capacity"`
}

// PlatformConfig holds the per-platform environment flags.
type PlatformConfig struct {
	// ShortLiveDisableMobileAPI is the mobile-API fallback switch for the
	// short-video-live platform (BSR_PLATFORM_SHORTLIVE_DISABLE_MOBILE_API).
	// The short-video-live client has no mobile-API path, so the flag does
	// not change discovery.
	ShortLiveDisableMobileAPI bool `mapstructure:"shortlive_disable_mobile_api"`
	// ShortLivePreferFLV prefers FLV over HLS for the short-video-live
	// platform when both are available.
	ShortLivePreferFLV bool `mapstructure:"shortlive_prefer_flv"`
	// GlobalShortPreferFLV prefers FLV for the global short-video platform.
	GlobalShortPreferFLV bool `mapstructure:"globalshort_prefer_flv"`
	// GlobalShortPreferHLS forces HLS for the global short-video platform
	// even when FLV is healthier.
	GlobalShortPreferHLS bool `mapstructure:"globalshort_prefer_hls"`

	// MainstreamPageBase is the room-page origin used to build room URLs
	// and scrape embedded JSON state for the mainstream platform.
	MainstreamPageBase string `mapstructure:"mainstream_page_base"`
	// MainstreamWSBase is the WebSocket origin danmaku connections are
	// dialed against for the mainstream platform.
	MainstreamWSBase string `mapstructure:"mainstream_ws_base"`

	// GamingPageBase is the room-page origin for the gaming platform.
	GamingPageBase string `mapstructure:"gaming_page_base"`
	// GamingSignKey is the shared secret used to sign gaming-platform CDN
	// playlist URLs.
	GamingSignKey string `mapstructure:"gaming_sign_key"`
	// GamingWSBase is the WebSocket origin for the gaming platform.
	GamingWSBase string `mapstructure:"gaming_ws_base"`

	// ShortLivePageBase is the room-page origin for the short-video live
	// platform.
	ShortLivePageBase string `mapstructure:"shortlive_page_base"`
	// ShortLiveSignerURL is the endpoint of the external signer service
	// that derives a short-video live WebSocket URL for a room ID; left
	// empty, the recorder falls back to an unsigned direct WS URL.
	ShortLiveSignerURL string `mapstructure:"shortlive_signer_url"`

	// GlobalShortPageBase is the room-page origin for the global
	// short-video platform.
	GlobalShortPageBase string `mapstructure:"globalshort_page_base"`
}

// BackupConfig holds the optional scheduled archive-retention sweep,
// scheduled the same way the copied backup-scheduler convention runs.
type BackupConfig struct {
	Schedule RetentionScheduleConfig `mapstructure:"schedule"`
}

// RetentionScheduleConfig holds the cron schedule for the retention sweep.
type RetentionScheduleConfig struct {
	Enabled bool   `mapstructure:"enabled"`
	Cron    string `mapstructure:"cron"` // 6-field cron expression
}

// Load reads configuration from file and environment variables.
// Environment variables take precedence over file configuration.
// Environment variables are prefixed with BSR_ and use underscores for
// nesting. Example: BSR_SERVER_PORT=8080.
func Load(configPath string) (*Config, error) {
	v := viper.New()

	SetDefaults(v)

	if configPath != "" {
		v.SetConfigFile(configPath)
	} else {
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
		v.AddConfigPath("./configs")
		v.AddConfigPath("/etc/bsrecorder")
		v.AddConfigPath("$HOME/.bsrecorder")
	}

	v.SetEnvPrefix("BSR")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		var configFileNotFoundError viper.ConfigFileNotFoundError
		if !errors.As(err, &configFileNotFoundError) {
			return nil, fmt.Errorf("reading config file: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("unmarshaling config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("validating config: %w", err)
	}

	return &cfg, nil
}

// SetDefaults configures default values for all configuration options.
// This should be called before reading the config file to ensure
// defaults are in place.
func SetDefaults(v *viper.Viper) {
	v.SetDefault("server.host", "0.0.0.0")
	v.SetDefault("server.port", defaultServerPort)
	v.SetDefault("server.read_timeout", defaultServerTimeout)
	v.SetDefault("server.write_timeout", defaultServerTimeout)
	v.SetDefault("server.shutdown_timeout", defaultShutdownTimeout)
	v.SetDefault("server.cors_origins", []string{"*"})

	v.SetDefault("database.driver", "sqlite")
	v.SetDefault("database.dsn", "bsrecorder.db")
	v.SetDefault("database.max_open_conns", defaultMaxOpenConns)
	v.SetDefault("database.max_idle_conns", defaultMaxIdleConns)
	v.SetDefault("database.conn_max_lifetime", time.Hour)
	v.SetDefault("database.conn_max_idle_time", defaultConnMaxIdleTime)
	v.SetDefault("database.log_level", "warn")

	v.SetDefault("storage.cache_root", "./data/cache")
	v.SetDefault("storage.output_root", "./data/output")
	v.SetDefault("storage.temp_dir", "./data/tmp")
	v.SetDefault("storage.retention_days", defaultRetentionDays)

	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.format", "json")
	v.SetDefault("logging.add_source", false)
	v.SetDefault("logging.time_format", time.RFC3339)

	v.SetDefault("recorder.poll_interval", defaultPollInterval)
	v.SetDefault("recorder.poll_jitter_max", defaultPollJitterMax)
	v.SetDefault("recorder.safety_margin", defaultSafetyMargin)
	v.SetDefault("recorder.stream_retry_attempts", defaultStreamRetryAttempts)
	v.SetDefault("recorder.stream_retry_delay", defaultStreamRetryDelay)
	v.SetDefault("recorder.segment_retry_attempts", defaultSegmentRetryAttempts)
	v.SetDefault("recorder.segment_retry_base_wait", defaultSegmentRetryBaseWait)
	v.SetDefault("recorder.segment_concurrency", defaultSegmentConcurrency)
	v.SetDefault("recorder.session_close_drain", defaultSessionCloseDrain)
	v.SetDefault("recorder.heartbeat_grace", defaultHeartbeatGrace)
	v.SetDefault("recorder.event_bus_capacity", defaultEventBusCapacity)

	// Platform flags default "on", except the two global-short-video
	// flags which both default "off".
	v.SetDefault("platform.shortlive_disable_mobile_api", true)
	v.SetDefault("platform.shortlive_prefer_flv", true)
	v.SetDefault("platform.globalshort_prefer_flv", false)
	v.SetDefault("platform.globalshort_prefer_hls", false)

	v.SetDefault("platform.mainstream_page_base", "https://live.example-mainstream.tv")
	v.SetDefault("platform.mainstream_ws_base", "wss://danmaku.example-mainstream.tv")
	v.SetDefault("platform.gaming_page_base", "https://live.example-gaming.tv")
	v.SetDefault("platform.gaming_ws_base", "wss://danmaku.example-gaming.tv")
	v.SetDefault("platform.shortlive_page_base", "https://live.example-shortlive.tv")
	v.SetDefault("platform.shortlive_signer_url", "")
	v.SetDefault("platform.globalshort_page_base", "https://www.example-globalshort.com")

	v.SetDefault("backup.schedule.enabled", true)
	v.SetDefault("backup.schedule.cron", "0 0 3 * * *") // Daily at 3 AM
}

// Validate checks the configuration for errors.
func (c *Config) Validate() error {
	const maxPort = 65535
	if c.Server.Port < 1 || c.Server.Port > maxPort {
		return fmt.Errorf("server.port must be between 1 and %d", maxPort)
	}

	validDrivers := map[string]bool{"sqlite": true, "postgres": true, "mysql": true}
	if !validDrivers[c.Database.Driver] {
		return fmt.Errorf("database.driver must be one of: sqlite, postgres, mysql")
	}
	if c.Database.DSN == "" {
		return fmt.Errorf("database.dsn is required")
	}

	if c.Storage.CacheRoot == "" {
		return fmt.Errorf("storage.cache_root is required")
	}

	validLevels := map[string]bool{"debug": true, "info": true, "warn": true, "error": true}
	if !validLevels[c.Logging.Level] {
		return fmt.Errorf("logging.level must be one of: debug, info, warn, error")
	}
	validFormats := map[string]bool{"json": true, "text": true}
	if !validFormats[c.Logging.Format] {
		return fmt.Errorf("logging.format must be one of: json, text")
	}

	if c.Recorder.PollInterval <= 0 {
		return fmt.Errorf("recorder.poll_interval must be positive")
	}
	if c.Recorder.SegmentConcurrency < 1 {
		return fmt.Errorf("recorder.segment_concurrency must be at least 1")
	}

	return nil
}

// Address returns the server address in host:port format.
func (c *ServerConfig) Address() string {
	return fmt.Sprintf("%s:%d", c.Host, c.Port)
}
