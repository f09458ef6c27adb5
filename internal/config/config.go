package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/deemusic/ytmp3-go/internal/identity"
	"github.com/deemusic/ytmp3-go/internal/monitoring"
	"github.com/spf13/viper"
)

// EnvPrefix prefixes every environment override, e.g. YTMP3_SERVER_PORT
const EnvPrefix = "YTMP3"

// Config represents the application configuration
type Config struct {
	Server    ServerConfig    `json:"server" mapstructure:"server"`
	Download  DownloadConfig  `json:"download" mapstructure:"download"`
	Extractor ExtractorConfig `json:"extractor" mapstructure:"extractor"`
	Logging   LoggingConfig   `json:"logging" mapstructure:"logging"`
}

// ServerConfig contains HTTP listener settings
type ServerConfig struct {
	Host                   string `json:"host" mapstructure:"host"`
	Port                   int    `json:"port" mapstructure:"port"`
	ShutdownTimeoutSeconds int    `json:"shutdown_timeout_seconds" mapstructure:"shutdown_timeout_seconds"`
}

// DownloadConfig contains scratch storage settings
type DownloadConfig struct {
	Folder               string `json:"folder" mapstructure:"folder"`
	TagTitle             bool   `json:"tag_title" mapstructure:"tag_title"`
	StaleAfterMinutes    int    `json:"stale_after_minutes" mapstructure:"stale_after_minutes"`
	SweepIntervalMinutes int    `json:"sweep_interval_minutes" mapstructure:"sweep_interval_minutes"`
}

// ExtractorConfig contains yt-dlp settings and the identity profiles
type ExtractorConfig struct {
	Binary         string          `json:"binary" mapstructure:"binary"`
	SpawnRate      float64         `json:"spawn_rate" mapstructure:"spawn_rate"`
	SpawnBurst     int             `json:"spawn_burst" mapstructure:"spawn_burst"`
	ProbeTimeoutMs int             `json:"probe_timeout_ms" mapstructure:"probe_timeout_ms"`
	Profiles       []ProfileConfig `json:"profiles" mapstructure:"profiles"`
}

// ProfileConfig is the configured form of an identity profile
type ProfileConfig struct {
	Name                 string `json:"name" mapstructure:"name"`
	UserAgent            string `json:"user_agent" mapstructure:"user_agent"`
	MinDelaySeconds      int    `json:"min_delay_seconds" mapstructure:"min_delay_seconds"`
	MaxDelaySeconds      int    `json:"max_delay_seconds" mapstructure:"max_delay_seconds"`
	MetadataTimeoutMs    int    `json:"metadata_timeout_ms" mapstructure:"metadata_timeout_ms"`
	AcquisitionTimeoutMs int    `json:"acquisition_timeout_ms" mapstructure:"acquisition_timeout_ms"`
}

// LoggingConfig contains logging settings
type LoggingConfig struct {
	Level      string `json:"level" mapstructure:"level"`
	Format     string `json:"format" mapstructure:"format"`
	Output     string `json:"output" mapstructure:"output"`
	FilePath   string `json:"file_path" mapstructure:"file_path"`
	MaxSizeMB  int    `json:"max_size_mb" mapstructure:"max_size_mb"`
	MaxBackups int    `json:"max_backups" mapstructure:"max_backups"`
	MaxAgeDays int    `json:"max_age_days" mapstructure:"max_age_days"`
	Compress   bool   `json:"compress" mapstructure:"compress"`
}

// Load builds the configuration from defaults, the optional JSON file at
// configPath and YTMP3_* environment variables, in that order of precedence.
// A missing file at configPath is created with the defaults.
func Load(configPath string) (*Config, error) {
	v := viper.New()

	setDefaults(v)

	if configPath != "" {
		v.SetConfigFile(configPath)
		v.SetConfigType("json")

		if err := ensureConfigDir(configPath); err != nil {
			return nil, fmt.Errorf("failed to create config directory: %w", err)
		}

		if err := v.ReadInConfig(); err != nil {
			var notFound viper.ConfigFileNotFoundError
			if errors.As(err, &notFound) || errors.Is(err, fs.ErrNotExist) {
				if err := v.WriteConfigAs(configPath); err != nil {
					return nil, fmt.Errorf("failed to write default config: %w", err)
				}
			} else {
				return nil, fmt.Errorf("failed to read config: %w", err)
			}
		}
	}

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return &cfg, nil
}

// Default returns the configuration produced by defaults alone
func Default() *Config {
	v := viper.New()
	setDefaults(v)

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		panic(fmt.Sprintf("config defaults do not decode: %v", err))
	}
	return &cfg
}

// Validate validates the configuration
func (c *Config) Validate() error {
	// Server validation
	if c.Server.Port < 1 || c.Server.Port > 65535 {
		return fmt.Errorf("server port must be between 1 and 65535")
	}

	if c.Server.ShutdownTimeoutSeconds < 0 {
		return fmt.Errorf("shutdown timeout cannot be negative")
	}

	// Download validation
	if c.Download.Folder == "" {
		return fmt.Errorf("download folder cannot be empty")
	}

	if c.Download.StaleAfterMinutes < 1 {
		return fmt.Errorf("stale after must be at least 1 minute")
	}

	if c.Download.SweepIntervalMinutes < 0 {
		return fmt.Errorf("sweep interval cannot be negative")
	}

	// Extractor validation
	if c.Extractor.Binary == "" {
		return fmt.Errorf("extractor binary cannot be empty")
	}

	if c.Extractor.SpawnRate < 0 {
		return fmt.Errorf("spawn rate cannot be negative")
	}

	if c.Extractor.ProbeTimeoutMs < 0 {
		return fmt.Errorf("probe timeout cannot be negative")
	}

	if _, err := c.Identities(); err != nil {
		return err
	}

	// Logging validation
	validLevels := map[string]bool{"debug": true, "info": true, "warn": true, "error": true}
	if !validLevels[c.Logging.Level] {
		return fmt.Errorf("invalid log level: %s (must be debug, info, warn, or error)", c.Logging.Level)
	}

	validFormats := map[string]bool{"json": true, "console": true}
	if !validFormats[c.Logging.Format] {
		return fmt.Errorf("invalid log format: %s (must be json or console)", c.Logging.Format)
	}

	validOutputs := map[string]bool{"file": true, "console": true, "both": true}
	if !validOutputs[c.Logging.Output] {
		return fmt.Errorf("invalid log output: %s (must be file, console, or both)", c.Logging.Output)
	}

	if c.Logging.MaxSizeMB < 1 {
		return fmt.Errorf("log max size must be at least 1 MB")
	}

	if c.Logging.MaxBackups < 0 {
		return fmt.Errorf("log max backups cannot be negative")
	}

	if c.Logging.MaxAgeDays < 0 {
		return fmt.Errorf("log max age cannot be negative")
	}

	return nil
}

// Identities converts the configured profiles into a validated identity set
func (c *Config) Identities() (identity.Set, error) {
	profiles := make([]identity.Profile, 0, len(c.Extractor.Profiles))
	for _, p := range c.Extractor.Profiles {
		profiles = append(profiles, identity.Profile{
			Name:               p.Name,
			UserAgent:          p.UserAgent,
			MinDelaySeconds:    p.MinDelaySeconds,
			MaxDelaySeconds:    p.MaxDelaySeconds,
			MetadataTimeout:    time.Duration(p.MetadataTimeoutMs) * time.Millisecond,
			AcquisitionTimeout: time.Duration(p.AcquisitionTimeoutMs) * time.Millisecond,
		})
	}

	set, err := identity.NewSet(profiles...)
	if err != nil {
		return identity.Set{}, fmt.Errorf("invalid extractor profiles: %w", err)
	}
	return set, nil
}

// LogConfig returns the logging section in the form the logger expects
func (c *Config) LogConfig() *monitoring.LogConfig {
	return &monitoring.LogConfig{
		Level:      c.Logging.Level,
		Format:     c.Logging.Format,
		Output:     c.Logging.Output,
		FilePath:   c.Logging.FilePath,
		MaxSizeMB:  c.Logging.MaxSizeMB,
		MaxBackups: c.Logging.MaxBackups,
		MaxAgeDays: c.Logging.MaxAgeDays,
		Compress:   c.Logging.Compress,
	}
}

// Address returns the listen address
func (s ServerConfig) Address() string {
	return fmt.Sprintf("%s:%d", s.Host, s.Port)
}

// ShutdownTimeout returns the graceful shutdown budget
func (s ServerConfig) ShutdownTimeout() time.Duration {
	return time.Duration(s.ShutdownTimeoutSeconds) * time.Second
}

// StaleAfter returns the age after which an unused scratch entry is removed
func (d DownloadConfig) StaleAfter() time.Duration {
	return time.Duration(d.StaleAfterMinutes) * time.Minute
}

// SweepInterval returns the period of the scratch sweeper; zero disables it
func (d DownloadConfig) SweepInterval() time.Duration {
	return time.Duration(d.SweepIntervalMinutes) * time.Minute
}

// ProbeTimeout returns the extractor probe budget; zero means five seconds
func (e ExtractorConfig) ProbeTimeout() time.Duration {
	if e.ProbeTimeoutMs == 0 {
		return 5 * time.Second
	}
	return time.Duration(e.ProbeTimeoutMs) * time.Millisecond
}

// Save saves the configuration to file
func (c *Config) Save(path string) error {
	v := viper.New()
	v.SetConfigFile(path)
	v.SetConfigType("json")

	v.Set("server", c.Server)
	v.Set("download", c.Download)
	v.Set("extractor", c.Extractor)
	v.Set("logging", c.Logging)

	return v.WriteConfig()
}

// setDefaults sets default configuration values
func setDefaults(v *viper.Viper) {
	// Server defaults
	v.SetDefault("server.host", "")
	v.SetDefault("server.port", 5001)
	v.SetDefault("server.shutdown_timeout_seconds", 30)

	// Download defaults
	v.SetDefault("download.folder", filepath.Join(GetDataDir(), "downloads"))
	v.SetDefault("download.tag_title", true)
	v.SetDefault("download.stale_after_minutes", 60)
	v.SetDefault("download.sweep_interval_minutes", 15)

	// Extractor defaults
	v.SetDefault("extractor.binary", "yt-dlp")
	v.SetDefault("extractor.spawn_rate", 2.0)
	v.SetDefault("extractor.spawn_burst", 4)
	v.SetDefault("extractor.probe_timeout_ms", 5000)
	v.SetDefault("extractor.profiles", defaultProfiles())

	// Logging defaults
	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.format", "json")
	v.SetDefault("logging.output", "console")
	v.SetDefault("logging.file_path", filepath.Join(GetDataDir(), "logs", "ytmp3d.log"))
	v.SetDefault("logging.max_size_mb", 100)
	v.SetDefault("logging.max_backups", 3)
	v.SetDefault("logging.max_age_days", 30)
	v.SetDefault("logging.compress", true)
}

func defaultProfiles() []map[string]interface{} {
	profiles := identity.Default().Profiles()
	out := make([]map[string]interface{}, 0, len(profiles))
	for _, p := range profiles {
		out = append(out, map[string]interface{}{
			"name":                   p.Name,
			"user_agent":             p.UserAgent,
			"min_delay_seconds":      p.MinDelaySeconds,
			"max_delay_seconds":      p.MaxDelaySeconds,
			"metadata_timeout_ms":    int(p.MetadataTimeout / time.Millisecond),
			"acquisition_timeout_ms": int(p.AcquisitionTimeout / time.Millisecond),
		})
	}
	return out
}

// ensureConfigDir ensures the configuration directory exists
func ensureConfigDir(configPath string) error {
	dir := filepath.Dir(configPath)
	return os.MkdirAll(dir, 0755)
}

// GetDataDir returns the service data directory: YTMP3_DATA_DIR when set,
// the working directory otherwise.
func GetDataDir() string {
	if dir := os.Getenv(EnvPrefix + "_DATA_DIR"); dir != "" {
		return dir
	}
	return "."
}
