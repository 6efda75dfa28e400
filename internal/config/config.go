// Package config is ralph-core's thin viper-backed configuration layer.
// CLI argument parsing and config-file loading are ambient concerns the
// core needs to bootstrap itself with, not scheduling logic (spec §1
// reserves both as external collaborators).
package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/viper"
)

const (
	DefaultConfigDir   = ".ralph"
	DefaultConfigFile  = "config.json"
	DefaultDBFile      = ".ralph/control/state.sqlite"
	DefaultControlRoot = ".ralph/control"
)

// Load reads the config file (if present) and returns a populated Config.
// The configPath flag may override the default location.
func Load(configPath string) (*Config, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return nil, fmt.Errorf("cannot determine home directory: %w", err)
	}

	v := viper.New()
	v.SetConfigType("json")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if configPath != "" {
		v.SetConfigFile(configPath)
	} else {
		v.SetConfigName("config")
		v.AddConfigPath(filepath.Join(home, DefaultConfigDir))
	}

	setDefaults(v, home)

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			if !isNotExist(err) {
				return nil, fmt.Errorf("reading config: %w", err)
			}
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("parsing config: %w", err)
	}

	expandPaths(&cfg, home)
	return &cfg, nil
}

// Save writes the config to disk as JSON.
func Save(cfg *Config, configPath string) error {
	home, err := os.UserHomeDir()
	if err != nil {
		return fmt.Errorf("cannot determine home directory: %w", err)
	}

	if configPath == "" {
		configPath = filepath.Join(home, DefaultConfigDir, DefaultConfigFile)
	}

	if err := os.MkdirAll(filepath.Dir(configPath), 0o700); err != nil {
		return fmt.Errorf("creating config directory: %w", err)
	}

	data, err := json.MarshalIndent(cfg, "", "  ")
	if err != nil {
		return fmt.Errorf("serialising config: %w", err)
	}

	return os.WriteFile(configPath, data, 0o600)
}

// ConfigPath returns the effective config file path.
func ConfigPath(override string) (string, error) {
	if override != "" {
		return override, nil
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(home, DefaultConfigDir, DefaultConfigFile), nil
}

// EnsureDir creates ~/.ralph and ~/.ralph/control if they don't exist.
func EnsureDir() error {
	home, err := os.UserHomeDir()
	if err != nil {
		return err
	}
	dirs := []string{
		filepath.Join(home, DefaultConfigDir),
		filepath.Join(home, DefaultControlRoot),
	}
	for _, d := range dirs {
		if err := os.MkdirAll(d, 0o700); err != nil {
			return fmt.Errorf("creating directory %s: %w", d, err)
		}
	}
	return nil
}

// setDefaults populates viper with sensible out-of-the-box values.
func setDefaults(v *viper.Viper, home string) {
	v.SetDefault("database.driver", "sqlite")
	v.SetDefault("database.path", filepath.Join(home, DefaultDBFile))
	v.SetDefault("database.dsn", "")

	v.SetDefault("github.host", "github.com")

	v.SetDefault("daemon.control_root", filepath.Join(home, DefaultControlRoot))
	v.SetDefault("daemon.max_workers", 4)
	v.SetDefault("daemon.slots_per_worker", 2)
	v.SetDefault("daemon.bot_branch", "bot/integration")
	v.SetDefault("daemon.poll_interval", 30*time.Second)
	v.SetDefault("daemon.ralph_version", "dev")
	v.SetDefault("daemon.sessions_dir", filepath.Join(home, DefaultConfigDir, "sessions"))
	v.SetDefault("daemon.agent_command", []string{"ralph-agent", "--task", "{task}", "--stage", "{stage}", "--session", "{session}", "--events", "{events}"})
}

// expandPaths resolves ~ in configured paths.
func expandPaths(cfg *Config, home string) {
	cfg.Database.Path = expandHome(cfg.Database.Path, home)
	cfg.Daemon.ControlRoot = expandHome(cfg.Daemon.ControlRoot, home)
	cfg.Daemon.SessionsDir = expandHome(cfg.Daemon.SessionsDir, home)
	for i, r := range cfg.Daemon.ManagedLegacyRoots {
		cfg.Daemon.ManagedLegacyRoots[i] = expandHome(r, home)
	}
}

func expandHome(path, home string) string {
	if strings.HasPrefix(path, "~/") {
		return filepath.Join(home, path[2:])
	}
	return path
}

func isNotExist(err error) bool {
	return os.IsNotExist(err) || strings.Contains(err.Error(), "no such file")
}
