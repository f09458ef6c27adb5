package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func validConfig(dir string) Config {
	return Config{
		Server: ServerConfig{
			Port:                   5001,
			ShutdownTimeoutSeconds: 30,
		},
		Download: DownloadConfig{
			Folder:               dir,
			TagTitle:             true,
			StaleAfterMinutes:    60,
			SweepIntervalMinutes: 15,
		},
		Extractor: ExtractorConfig{
			Binary:         "yt-dlp",
			SpawnRate:      2,
			SpawnBurst:     4,
			ProbeTimeoutMs: 5000,
			Profiles: []ProfileConfig{
				{
					Name:                 "first",
					UserAgent:            "UA/1",
					MinDelaySeconds:      2,
					MaxDelaySeconds:      5,
					MetadataTimeoutMs:    60000,
					AcquisitionTimeoutMs: 180000,
				},
				{
					Name:                 "second",
					UserAgent:            "UA/2",
					MinDelaySeconds:      3,
					MaxDelaySeconds:      7,
					MetadataTimeoutMs:    90000,
					AcquisitionTimeoutMs: 240000,
				},
			},
		},
		Logging: LoggingConfig{
			Level:      "info",
			Format:     "json",
			Output:     "console",
			MaxSizeMB:  10,
			MaxBackups: 3,
			MaxAgeDays: 7,
		},
	}
}

func TestConfigValidation(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(c *Config)
		wantErr bool
	}{
		{
			name:    "valid config",
			mutate:  func(c *Config) {},
			wantErr: false,
		},
		{
			name:    "invalid port",
			mutate:  func(c *Config) { c.Server.Port = 0 },
			wantErr: true,
		},
		{
			name:    "empty download folder",
			mutate:  func(c *Config) { c.Download.Folder = "" },
			wantErr: true,
		},
		{
			name:    "zero stale after",
			mutate:  func(c *Config) { c.Download.StaleAfterMinutes = 0 },
			wantErr: true,
		},
		{
			name:    "empty extractor binary",
			mutate:  func(c *Config) { c.Extractor.Binary = "" },
			wantErr: true,
		},
		{
			name:    "no profiles",
			mutate:  func(c *Config) { c.Extractor.Profiles = nil },
			wantErr: true,
		},
		{
			name: "decreasing profile timeouts",
			mutate: func(c *Config) {
				c.Extractor.Profiles[1].MetadataTimeoutMs = 1000
			},
			wantErr: true,
		},
		{
			name: "inverted delay range",
			mutate: func(c *Config) {
				c.Extractor.Profiles[0].MinDelaySeconds = 9
			},
			wantErr: true,
		},
		{
			name:    "invalid log level",
			mutate:  func(c *Config) { c.Logging.Level = "verbose" },
			wantErr: true,
		},
		{
			name:    "invalid log output",
			mutate:  func(c *Config) { c.Logging.Output = "syslog" },
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := validConfig("/tmp/downloads")
			tt.mutate(&cfg)
			err := cfg.Validate()
			if (err != nil) != tt.wantErr {
				t.Errorf("Validate() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func TestDefault(t *testing.T) {
	cfg := Default()

	if err := cfg.Validate(); err != nil {
		t.Fatalf("Default config is invalid: %v", err)
	}
	if cfg.Server.Port != 5001 {
		t.Errorf("Expected port 5001, got %d", cfg.Server.Port)
	}

	set, err := cfg.Identities()
	if err != nil {
		t.Fatalf("Identities() error = %v", err)
	}
	if set.Len() != 2 {
		t.Fatalf("Expected 2 default profiles, got %d", set.Len())
	}
	first := set.Profiles()[0]
	if first.MetadataTimeout != 60*time.Second || first.AcquisitionTimeout != 180*time.Second {
		t.Errorf("Unexpected first profile timeouts: %v / %v", first.MetadataTimeout, first.AcquisitionTimeout)
	}
}

func TestLoadConfig_WritesDefaultsWhenMissing(t *testing.T) {
	configPath := filepath.Join(t.TempDir(), "conf", "ytmp3.json")

	cfg, err := Load(configPath)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if cfg.Extractor.Binary != "yt-dlp" {
		t.Errorf("Expected default binary yt-dlp, got %s", cfg.Extractor.Binary)
	}
	if _, err := os.Stat(configPath); err != nil {
		t.Errorf("Expected default config to be written: %v", err)
	}

	again, err := Load(configPath)
	if err != nil {
		t.Fatalf("Reloading written defaults failed: %v", err)
	}
	if len(again.Extractor.Profiles) != 2 {
		t.Errorf("Expected 2 profiles after reload, got %d", len(again.Extractor.Profiles))
	}
}

func TestLoadConfig_NoFile(t *testing.T) {
	cfg, err := Load("")
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if cfg.Download.StaleAfter() != time.Hour {
		t.Errorf("Expected stale after 1h, got %v", cfg.Download.StaleAfter())
	}
}

func TestLoadConfig_EnvOverrides(t *testing.T) {
	t.Setenv("YTMP3_SERVER_PORT", "8088")
	t.Setenv("YTMP3_DOWNLOAD_FOLDER", "/srv/ytmp3")
	t.Setenv("YTMP3_EXTRACTOR_BINARY", "/usr/local/bin/yt-dlp")

	cfg, err := Load("")
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if cfg.Server.Port != 8088 {
		t.Errorf("Expected port 8088, got %d", cfg.Server.Port)
	}
	if cfg.Download.Folder != "/srv/ytmp3" {
		t.Errorf("Expected folder /srv/ytmp3, got %s", cfg.Download.Folder)
	}
	if cfg.Extractor.Binary != "/usr/local/bin/yt-dlp" {
		t.Errorf("Expected overridden binary, got %s", cfg.Extractor.Binary)
	}
}

func TestSaveConfig(t *testing.T) {
	tmpDir := t.TempDir()
	configPath := filepath.Join(tmpDir, "ytmp3.json")

	cfg := validConfig(tmpDir)
	cfg.Download.TagTitle = false
	cfg.Server.Port = 9000

	if err := cfg.Save(configPath); err != nil {
		t.Fatalf("Save() error = %v", err)
	}

	loadedCfg, err := Load(configPath)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}

	if loadedCfg.Server.Port != 9000 {
		t.Errorf("Expected port 9000, got %d", loadedCfg.Server.Port)
	}
	if loadedCfg.Download.TagTitle {
		t.Error("Expected TagTitle to be false")
	}
	if len(loadedCfg.Extractor.Profiles) != 2 || loadedCfg.Extractor.Profiles[1].Name != "second" {
		t.Errorf("Profiles did not survive a save/load cycle: %+v", loadedCfg.Extractor.Profiles)
	}
}

func TestServerHelpers(t *testing.T) {
	s := ServerConfig{Host: "127.0.0.1", Port: 5001, ShutdownTimeoutSeconds: 10}
	if s.Address() != "127.0.0.1:5001" {
		t.Errorf("Unexpected address %s", s.Address())
	}
	if s.ShutdownTimeout() != 10*time.Second {
		t.Errorf("Unexpected shutdown timeout %v", s.ShutdownTimeout())
	}
}
