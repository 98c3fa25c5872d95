package config

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"gopkg.in/yaml.v3"
)

// Config models bountyline.yml.
type Config struct {
	Server struct {
		Listen   string `yaml:"listen"`
		BasePath string `yaml:"base_path"`
	} `yaml:"server"`
	Auth struct {
		TokenSecret string `yaml:"token_secret"`
		TokenTTL    string `yaml:"token_ttl"`
		// AllowInternalWalletHeader enables the service-to-service
		// X-Internal-Wallet path. Weaker than token auth; off by default.
		AllowInternalWalletHeader bool `yaml:"allow_internal_wallet_header"`
	} `yaml:"auth"`
	Roles map[string][]string `yaml:"roles"`
}

// Load reads and validates config from the workspace.
func Load(workspace string) (*Config, error) {
	path := Path(workspace)
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("config %s not found; run 'bounty config init'", path)
		}
		return nil, err
	}
	return FromYAML(data)
}

// LoadOptional returns the default config if the file does not exist.
func LoadOptional(workspace string) (*Config, error) {
	data, err := os.ReadFile(Path(workspace))
	if err != nil {
		if os.IsNotExist(err) {
			return Default(), nil
		}
		return nil, err
	}
	return FromYAML(data)
}

// FromYAML parses and validates config from raw YAML bytes.
func FromYAML(data []byte) (*Config, error) {
	cfg := Default()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("invalid config yaml: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate ensures the config meets required structure.
func (c *Config) Validate() error {
	if c.Auth.TokenSecret == "" {
		return fmt.Errorf("config.auth.token_secret is required")
	}
	if _, err := time.ParseDuration(c.Auth.TokenTTL); err != nil {
		return fmt.Errorf("config.auth.token_ttl: %w", err)
	}
	for role, perms := range c.Roles {
		if role == "" {
			return fmt.Errorf("config.roles contains empty role id")
		}
		for _, p := range perms {
			if p == "" {
				return fmt.Errorf("role %s has empty permission id", role)
			}
		}
	}
	return nil
}

// TokenTTL returns the parsed token lifetime.
func (c *Config) TokenTTL() time.Duration {
	d, err := time.ParseDuration(c.Auth.TokenTTL)
	if err != nil {
		return time.Hour
	}
	return d
}

// Permissions returns the permission grants for a role.
func (c *Config) Permissions(role string) []string {
	return c.Roles[role]
}

// Path returns the config file path for a workspace.
func Path(workspace string) string {
	if workspace == "" {
		workspace = "."
	}
	return filepath.Join(workspace, "bountyline.yml")
}

// Default returns the default Config struct.
func Default() *Config {
	var cfg Config
	_ = yaml.Unmarshal([]byte(defaultTemplate), &cfg)
	return &cfg
}

// GenerateDefault returns default config YAML.
func GenerateDefault() string {
	return defaultTemplate
}

const defaultTemplate = `server:
  listen: "127.0.0.1:8480"
  base_path: /v1

auth:
  token_secret: dev-secret-change-me
  token_ttl: 24h
  allow_internal_wallet_header: false

roles:
  sponsor:
    - task.create
    - task.update
    - task.delete
    - submission.review
    - sponsor.update
  contributor:
    - submission.create
    - submission.delete
    - contributor.update
  admin:
    - skill.manage
    - sponsor.delete
    - contributor.delete
`
