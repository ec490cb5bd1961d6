package models

import "time"

// Config represents the main configuration for ytgrab
type Config struct {
	App       AppConfig       `yaml:"app"`
	Feed      FeedConfig      `yaml:"feed"`
	Assets    AssetsConfig    `yaml:"assets"`
	Installer InstallerConfig `yaml:"installer"`
	Relaunch  RelaunchConfig  `yaml:"relaunch"`
	Tools     ToolsConfig     `yaml:"tools"`
	Control   ControlConfig   `yaml:"control"`
	Log       LogConfig       `yaml:"log"`
}

// AppConfig describes the running application and how its deployment
// variant is recognised.
type AppConfig struct {
	Name string `yaml:"name"`
	// CurrentVersion overrides the version stamped into the binary. Leave
	// it empty in shipped configs; installs never rewrite it.
	CurrentVersion string `yaml:"current_version,omitempty"`
	// InstalledMarker is a directory that only installed copies live under
	// (e.g. "${LOCALAPPDATA}\Programs\ytgrab"). Environment variables are expanded.
	InstalledMarker string `yaml:"installed_marker"`
	// PortableMarker is a file that only portable copies carry next to the
	// executable (e.g. "portable.txt").
	PortableMarker string `yaml:"portable_marker"`
	TempDir        string `yaml:"temp_dir,omitempty"`
}

// FeedConfig contains the release feed configuration
type FeedConfig struct {
	APIURL  string        `yaml:"api_url"`
	Owner   string        `yaml:"owner"`
	Repo    string        `yaml:"repo"`
	Token   string        `yaml:"-"` // only from GITHUB_TOKEN
	Timeout time.Duration `yaml:"timeout"`

	// SkipPrerelease ignores prerelease entries when picking the newest
	// release. Off by default: the newest entry wins whatever its flag.
	SkipPrerelease bool `yaml:"skip_prerelease"`
}

// AssetsConfig names the one authoritative asset per deployment variant
type AssetsConfig struct {
	Installed string `yaml:"installed"`
	Portable  string `yaml:"portable"`
}

// InstallerConfig tunes the archive installer
type InstallerConfig struct {
	ExcludePrefixes []string      `yaml:"exclude_prefixes"`
	MaxAttempts     int           `yaml:"max_attempts"`
	BackoffStep     time.Duration `yaml:"backoff_step"`
	ProcessWait     time.Duration `yaml:"process_wait"`
	AtomicWrites    bool          `yaml:"atomic_writes"`
}

// RelaunchConfig controls the hand-off between host, updater and target
type RelaunchConfig struct {
	GracePeriod   time.Duration `yaml:"grace_period"`
	ExitDelay     time.Duration `yaml:"exit_delay"`
	UpdaterName   string        `yaml:"updater_name"`
	InstallerArgs []string      `yaml:"installer_args,omitempty"`
}

// ToolsConfig locates the external media tools
type ToolsConfig struct {
	Dir          string            `yaml:"dir"`
	YTDLP        string            `yaml:"ytdlp"`
	FFmpeg       string            `yaml:"ffmpeg"`
	Env          map[string]string `yaml:"env,omitempty"`
	CodePage     string            `yaml:"code_page"`
	OutputFormat string            `yaml:"output_template"`
}

// ControlConfig contains the local gRPC control surface configuration
type ControlConfig struct {
	Listen       string        `yaml:"listen"`
	PollInterval time.Duration `yaml:"poll_interval"`
}

// LogConfig contains logging configuration
type LogConfig struct {
	Level string `yaml:"level"`
	File  string `yaml:"file"`
}
