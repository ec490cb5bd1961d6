package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/yhonda-ohishi-pub-dev/ytgrab/src/internal/version"
	"github.com/yhonda-ohishi-pub-dev/ytgrab/src/pkg/models"
	"gopkg.in/yaml.v3"
)

// Environment keys read from the process environment or a .env file next
// to the config file. The process environment wins.
const (
	EnvGitHubToken = "GITHUB_TOKEN"
	EnvFeedOwner   = "YTGRAB_FEED_OWNER"
	EnvFeedRepo    = "YTGRAB_FEED_REPO"
	EnvLogLevel    = "YTGRAB_LOG_LEVEL"
)

// LoadConfig loads configuration from a YAML file
func LoadConfig(path string) (*models.Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	var cfg models.Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}

	env, err := loadEnv(filepath.Join(filepath.Dir(path), ".env"))
	if err != nil {
		return nil, err
	}
	applyEnv(&cfg, env)

	setDefaults(&cfg)

	if err := validate(&cfg); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return &cfg, nil
}

// Default returns a configuration with every default applied, for running
// without a config file.
func Default() *models.Config {
	var cfg models.Config
	applyEnv(&cfg, nil)
	setDefaults(&cfg)
	return &cfg
}

// loadEnv reads the optional .env file and overlays the process environment
func loadEnv(path string) (map[string]string, error) {
	env := map[string]string{}
	if _, err := os.Stat(path); err == nil {
		fileEnv, err := godotenv.Read(path)
		if err != nil {
			return nil, fmt.Errorf("failed to read env file: %w", err)
		}
		env = fileEnv
	}
	return env, nil
}

func applyEnv(cfg *models.Config, fileEnv map[string]string) {
	lookup := func(key string) string {
		if v, ok := os.LookupEnv(key); ok && v != "" {
			return v
		}
		return fileEnv[key]
	}

	if v := lookup(EnvGitHubToken); v != "" {
		cfg.Feed.Token = v
	}
	if v := lookup(EnvFeedOwner); v != "" {
		cfg.Feed.Owner = v
	}
	if v := lookup(EnvFeedRepo); v != "" {
		cfg.Feed.Repo = v
	}
	if v := lookup(EnvLogLevel); v != "" {
		cfg.Log.Level = v
	}
}

// setDefaults sets default values for configuration
func setDefaults(cfg *models.Config) {
	// App defaults
	if cfg.App.Name == "" {
		cfg.App.Name = "ytgrab"
	}
	// The running binary knows its own version; the key only overrides it.
	if cfg.App.CurrentVersion == "" {
		cfg.App.CurrentVersion = version.Running()
	}
	if cfg.App.PortableMarker == "" {
		cfg.App.PortableMarker = "portable.txt"
	}
	if cfg.App.TempDir == "" {
		cfg.App.TempDir = os.TempDir()
	}

	// Feed defaults
	if cfg.Feed.APIURL == "" {
		cfg.Feed.APIURL = "https://api.github.com/"
	}
	if !strings.HasSuffix(cfg.Feed.APIURL, "/") {
		cfg.Feed.APIURL += "/"
	}
	if cfg.Feed.Timeout == 0 {
		cfg.Feed.Timeout = 30 * time.Second
	}

	// Asset defaults
	if cfg.Assets.Installed == "" {
		cfg.Assets.Installed = cfg.App.Name + "-setup.exe"
	}
	if cfg.Assets.Portable == "" {
		cfg.Assets.Portable = cfg.App.Name + "-portable.zip"
	}

	// Installer defaults
	if cfg.Installer.ExcludePrefixes == nil {
		cfg.Installer.ExcludePrefixes = []string{"tools/"}
	}
	if cfg.Installer.MaxAttempts == 0 {
		cfg.Installer.MaxAttempts = 5
	}
	if cfg.Installer.BackoffStep == 0 {
		cfg.Installer.BackoffStep = time.Second
	}
	if cfg.Installer.ProcessWait == 0 {
		cfg.Installer.ProcessWait = 2 * time.Second
	}

	// Relaunch defaults
	if cfg.Relaunch.GracePeriod == 0 {
		cfg.Relaunch.GracePeriod = 3 * time.Second
	}
	if cfg.Relaunch.ExitDelay == 0 {
		cfg.Relaunch.ExitDelay = 500 * time.Millisecond
	}
	if cfg.Relaunch.UpdaterName == "" {
		cfg.Relaunch.UpdaterName = cfg.App.Name + "-updater"
	}

	// Tools defaults
	if cfg.Tools.Dir == "" {
		cfg.Tools.Dir = "tools"
	}
	if cfg.Tools.YTDLP == "" {
		cfg.Tools.YTDLP = "yt-dlp"
	}
	if cfg.Tools.FFmpeg == "" {
		cfg.Tools.FFmpeg = "ffmpeg"
	}
	if cfg.Tools.Env == nil {
		cfg.Tools.Env = map[string]string{}
	}
	if _, ok := cfg.Tools.Env["PYTHONIOENCODING"]; !ok {
		cfg.Tools.Env["PYTHONIOENCODING"] = "utf-8"
	}
	if cfg.Tools.CodePage == "" {
		cfg.Tools.CodePage = "windows-1252"
	}
	if cfg.Tools.OutputFormat == "" {
		cfg.Tools.OutputFormat = "%(title)s.%(ext)s"
	}

	// Control defaults
	if cfg.Control.Listen == "" {
		cfg.Control.Listen = "127.0.0.1:50061"
	}
	if cfg.Control.PollInterval == 0 {
		cfg.Control.PollInterval = 6 * time.Hour
	}

	// Log defaults
	if cfg.Log.Level == "" {
		cfg.Log.Level = "info"
	}
}

// validate validates the configuration
func validate(cfg *models.Config) error {
	if cfg.Feed.Owner == "" || cfg.Feed.Repo == "" {
		return fmt.Errorf("feed owner and repo are required")
	}
	if cfg.Installer.MaxAttempts < 1 {
		return fmt.Errorf("installer max_attempts must be at least 1")
	}
	if cfg.Installer.BackoffStep < 0 || cfg.Installer.ProcessWait < 0 {
		return fmt.Errorf("installer durations must not be negative")
	}
	if cfg.Relaunch.GracePeriod < 0 || cfg.Relaunch.ExitDelay < 0 {
		return fmt.Errorf("relaunch durations must not be negative")
	}
	if strings.EqualFold(cfg.Assets.Installed, cfg.Assets.Portable) {
		return fmt.Errorf("installed and portable asset names must differ")
	}
	for i, p := range cfg.Installer.ExcludePrefixes {
		if strings.TrimSpace(p) == "" {
			return fmt.Errorf("installer exclude_prefixes[%d] is empty", i)
		}
	}

	switch strings.ToLower(cfg.Log.Level) {
	case "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("log level must be one of debug, info, warn, error")
	}

	return nil
}
