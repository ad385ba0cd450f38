// Package config provides the fleet configuration file for wheelhouse.
package config

import (
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"
)

// FileName is the fleet configuration file discovered upward from cwd.
const FileName = "wheelhouse.yaml"

// Config is the top-level wheelhouse configuration.
type Config struct {
	// Repository is the wheel repository directory. Relative paths are
	// resolved against the config file's directory.
	Repository string `yaml:"repository"`
	// Requirements is the path to the requirements file.
	Requirements string        `yaml:"requirements"`
	Logging      LoggingConfig `yaml:"logging"`
	Hosts        []HostConfig  `yaml:"hosts"`

	// Dir is the directory the config was loaded from. Not serialized.
	Dir string `yaml:"-"`
}

// LoggingConfig configures logging behavior.
type LoggingConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"` // json, text
}

// HostConfig describes one host and its virtual environments.
type HostConfig struct {
	Hostname   string      `yaml:"hostname"`
	ReloadCmd  string      `yaml:"reload_cmd"`
	ReloadOnce bool        `yaml:"reload_once"`
	Envs       []EnvConfig `yaml:"environments"`
}

// EnvConfig describes one virtual environment on a host.
type EnvConfig struct {
	Path       string `yaml:"path"`
	SSHUser    string `yaml:"ssh_user"`
	User       string `yaml:"user"` // environment owner; defaults to ssh_user
	MigrateCmd string `yaml:"migrate_cmd"`
}

// Default returns the default configuration.
func Default() *Config {
	return &Config{
		Repository:   "wheels",
		Requirements: "requirements.txt",
		Logging: LoggingConfig{
			Level:  "info",
			Format: "text",
		},
	}
}

// Load reads a configuration file.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config: %w", err)
	}

	cfg := Default()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}

	abs, err := filepath.Abs(path)
	if err != nil {
		return nil, fmt.Errorf("resolve config path: %w", err)
	}
	cfg.Dir = filepath.Dir(abs)

	for i := range cfg.Hosts {
		for j := range cfg.Hosts[i].Envs {
			env := &cfg.Hosts[i].Envs[j]
			if env.User == "" {
				env.User = env.SSHUser
			}
		}
	}
	return cfg, nil
}

// Discover walks up from cwd to find the config file.
func Discover(cwd string) (*Config, error) {
	path := cwd
	for {
		candidate := filepath.Join(path, FileName)
		if info, err := os.Stat(candidate); err == nil && !info.IsDir() {
			return Load(candidate)
		}
		parent := filepath.Dir(path)
		if parent == path {
			return nil, fmt.Errorf("no %s found in %s or any parent directory", FileName, cwd)
		}
		path = parent
	}
}

// Save writes the configuration to the given path.
func Save(path string, cfg *Config) error {
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("marshal config: %w", err)
	}
	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("write config: %w", err)
	}
	return nil
}

// RepositoryPath returns the absolute repository directory.
func (c *Config) RepositoryPath() string {
	return c.abs(c.Repository)
}

// RequirementsPath returns the absolute requirements file path.
func (c *Config) RequirementsPath() string {
	return c.abs(c.Requirements)
}

func (c *Config) abs(p string) string {
	if filepath.IsAbs(p) || c.Dir == "" {
		return p
	}
	return filepath.Join(c.Dir, p)
}
