// Package config handles podbridge paths and the YAML configuration file.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/d2verb/podbridge/internal/logging"
	"github.com/d2verb/podbridge/internal/statusfeed"
)

const (
	DefaultSocketName     = "podcast_app_mcp"
	DefaultMaxRequests    = 60
	DefaultWindow         = 60 * time.Second
	DefaultRequestTimeout = 30 * time.Second
	DefaultMPDAddress     = "localhost:6600"
	DefaultPodcastIndex   = "https://api.podcastindex.org/api/1.0"
)

// Paths holds common paths used by podbridge.
type Paths struct {
	Home      string
	Config    string
	Database  string
	Logs      string
	BridgeLog string
}

// GetPaths returns the paths for the current user.
func GetPaths() (*Paths, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return nil, err
	}

	bridgeHome := filepath.Join(home, ".podbridge")
	logsDir := filepath.Join(bridgeHome, "logs")
	return &Paths{
		Home:      bridgeHome,
		Config:    filepath.Join(bridgeHome, "config.yaml"),
		Database:  filepath.Join(bridgeHome, "library.db"),
		Logs:      logsDir,
		BridgeLog: filepath.Join(logsDir, "bridge.log"),
	}, nil
}

// EnsureDirectories creates the required directories if they don't exist.
func (p *Paths) EnsureDirectories() error {
	for _, dir := range []string{p.Home, p.Logs} {
		if err := os.MkdirAll(dir, 0700); err != nil {
			return err
		}
	}
	return nil
}

// Config is the contents of config.yaml.
type Config struct {
	SocketName     string        `yaml:"socket_name"`
	RateLimit      RateLimit     `yaml:"rate_limit"`
	RequestTimeout time.Duration `yaml:"request_timeout"` // 0 disables the bound
	Database       string        `yaml:"database"`
	MPD            MPD           `yaml:"mpd"`
	PodcastIndex   PodcastIndex  `yaml:"podcastindex"`
	StatusFeed     StatusFeed    `yaml:"status_feed"`
	Log            Log           `yaml:"log"`
}

type RateLimit struct {
	MaxRequests int           `yaml:"max_requests"`
	Window      time.Duration `yaml:"window"`
}

type MPD struct {
	Network  string `yaml:"network"`
	Address  string `yaml:"address"`
	Password string `yaml:"password"`
}

type PodcastIndex struct {
	BaseURL   string `yaml:"base_url"`
	APIKey    string `yaml:"api_key"`
	APISecret string `yaml:"api_secret"`
}

// StatusFeed configures the websocket status feed. An empty Address disables it.
type StatusFeed struct {
	Address  string        `yaml:"address"`
	Interval time.Duration `yaml:"interval"`
}

type Log struct {
	Level      string `yaml:"level"`
	MaxSizeMB  int    `yaml:"max_size_mb"`
	MaxBackups int    `yaml:"max_backups"`
	MaxAgeDays int    `yaml:"max_age_days"`
	Compress   bool   `yaml:"compress"`
}

// DefaultConfig returns the configuration used when no file exists.
func DefaultConfig() *Config {
	return &Config{
		SocketName:     DefaultSocketName,
		RateLimit:      RateLimit{MaxRequests: DefaultMaxRequests, Window: DefaultWindow},
		RequestTimeout: DefaultRequestTimeout,
		MPD:            MPD{Network: "tcp", Address: DefaultMPDAddress},
		PodcastIndex:   PodcastIndex{BaseURL: DefaultPodcastIndex},
		StatusFeed:     StatusFeed{Interval: statusfeed.DefaultInterval},
		Log: Log{
			Level:      "info",
			MaxSizeMB:  50,
			MaxBackups: 3,
			MaxAgeDays: 7,
			Compress:   true,
		},
	}
}

// Load reads the file at path over the defaults. A missing file yields the
// defaults. Relative and ~/ database paths are resolved against the file's
// directory and the home directory.
func Load(path string) (*Config, error) {
	cfg := DefaultConfig()

	data, err := os.ReadFile(path)
	switch {
	case errors.Is(err, os.ErrNotExist):
		return cfg, nil
	case err != nil:
		return nil, fmt.Errorf("read config: %w", err)
	}

	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parse config %s: %w", path, err)
	}
	if cfg.Database != "" {
		if cfg.Database, err = resolvePath(cfg.Database, filepath.Dir(path)); err != nil {
			return nil, err
		}
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config %s: %w", path, err)
	}
	return cfg, nil
}

// Validate checks the values Load cannot default.
func (c *Config) Validate() error {
	switch {
	case strings.TrimSpace(c.SocketName) == "":
		return errors.New("socket_name must not be empty")
	case c.RateLimit.MaxRequests <= 0:
		return errors.New("rate_limit.max_requests must be positive")
	case c.RateLimit.Window <= 0:
		return errors.New("rate_limit.window must be positive")
	case c.RequestTimeout < 0:
		return errors.New("request_timeout must not be negative")
	case c.MPD.Address == "":
		return errors.New("mpd.address must not be empty")
	case c.Log.MaxSizeMB <= 0:
		return errors.New("log.max_size_mb must be positive")
	}
	if _, err := logging.ParseLevel(c.Log.Level); err != nil {
		return err
	}
	if c.StatusFeed.Address != "" {
		if err := statusfeed.CheckAddress(c.StatusFeed.Address); err != nil {
			return err
		}
		if c.StatusFeed.Interval <= 0 {
			return errors.New("status_feed.interval must be positive")
		}
	}
	return nil
}

// resolvePath expands ~/ and resolves relative paths from baseDir.
func resolvePath(path, baseDir string) (string, error) {
	if rest, ok := strings.CutPrefix(path, "~/"); ok {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("expand home dir: %w", err)
		}
		return filepath.Join(home, rest), nil
	}
	if filepath.IsAbs(path) {
		return path, nil
	}
	return filepath.Join(baseDir, path), nil
}

// LogConfig returns the rotation settings for the log file at path.
func (c *Config) LogConfig(path string) logging.Config {
	level, _ := logging.ParseLevel(c.Log.Level)
	return logging.Config{
		Path:       path,
		Level:      level,
		MaxSizeMB:  c.Log.MaxSizeMB,
		MaxBackups: c.Log.MaxBackups,
		MaxAgeDays: c.Log.MaxAgeDays,
		Compress:   c.Log.Compress,
	}
}
