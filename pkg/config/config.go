// Package config loads the nbctl configuration file and merges it with
// command line overrides.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"time"

	"github.com/dukex/nbctl/pkg/models"
	"github.com/go-playground/validator/v10"
	"gopkg.in/yaml.v3"
)

const (
	DefaultBaseURL = "http://localhost:8080/"
	DefaultTimeout = 30 * time.Second

	DefaultSandboxAddr    = ":8080"
	DefaultSandboxStorage = "file://.nbctl-sandbox"
)

// Config is the resolved configuration of a command.
type Config struct {
	BaseURL     string        `yaml:"base_url"     validate:"required,url"`
	Token       string        `yaml:"token"`
	WorkspaceID string        `yaml:"workspace_id"`
	Timeout     time.Duration `yaml:"timeout"      validate:"gt=0"`
	Sandbox     Sandbox       `yaml:"sandbox"`
}

// Sandbox configures the local sandbox service.
type Sandbox struct {
	Addr        string                   `yaml:"addr"         validate:"required"`
	Storage     string                   `yaml:"storage"      validate:"required"`
	PublicURL   string                   `yaml:"public_url"   validate:"omitempty,url"`
	Token       string                   `yaml:"token"`
	DataSources []models.ProxyDataSource `yaml:"data_sources,omitempty"`
}

// Overrides are values given on the command line or in the environment.
// Zero values leave the configuration untouched.
type Overrides struct {
	BaseURL     string
	Token       string
	WorkspaceID string
	Timeout     time.Duration
}

func Default() *Config {
	return &Config{
		BaseURL: DefaultBaseURL,
		Timeout: DefaultTimeout,
		Sandbox: Sandbox{
			Addr:    DefaultSandboxAddr,
			Storage: DefaultSandboxStorage,
		},
	}
}

// DefaultPath returns $XDG_CONFIG_HOME/nbctl/config.yaml, or the platform
// equivalent.
func DefaultPath() (string, error) {
	dir, err := os.UserConfigDir()
	if err != nil {
		return "", fmt.Errorf("failed to locate config directory: %w", err)
	}

	return filepath.Join(dir, "nbctl", "config.yaml"), nil
}

// Load reads the configuration file at path on top of the defaults. A
// missing file is only an error when required is set.
func Load(path string, required bool) (*Config, error) {
	cfg := Default()

	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) && !required {
			return cfg, nil
		}

		return nil, fmt.Errorf("failed to read config file %s: %w", path, err)
	}

	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse YAML config %s: %w", path, err)
	}

	return cfg, nil
}

// Apply overlays the non-zero overrides.
func (c *Config) Apply(o Overrides) *Config {
	if o.BaseURL != "" {
		c.BaseURL = o.BaseURL
	}

	if o.Token != "" {
		c.Token = o.Token
	}

	if o.WorkspaceID != "" {
		c.WorkspaceID = o.WorkspaceID
	}

	if o.Timeout > 0 {
		c.Timeout = o.Timeout
	}

	return c
}

func (c *Config) Validate() error {
	validate := validator.New(validator.WithRequiredStructEnabled())

	if err := validate.Struct(c); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}

	return nil
}

// Save writes the configuration to path, creating its directory.
func Save(path string, cfg *Config) error {
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return err
	}

	if err := os.MkdirAll(filepath.Dir(path), 0o700); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	if err := os.WriteFile(path, data, 0o600); err != nil {
		return fmt.Errorf("failed to write config file %s: %w", path, err)
	}

	return nil
}
