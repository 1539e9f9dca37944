// Package config loads and validates WaffleMaker's single TOML
// configuration file.
package config

import (
	"fmt"
	"os"
	"time"

	"github.com/pelletier/go-toml/v2"
)

// Config is the top-level WaffleMaker configuration.
type Config struct {
	Agent        AgentConfig             `toml:"agent"`
	Dependencies map[string]DependencyCfg `toml:"dependencies"`
	Deployment   DeploymentConfig        `toml:"deployment"`
	DNS          DNSConfig               `toml:"dns"`
	Git          GitConfig               `toml:"git"`
	HTTP         HTTPConfig              `toml:"http"`
	Notifiers    []NotifierConfig        `toml:"notifiers"`
	Secrets      SecretsConfig           `toml:"secrets"`
}

// AgentConfig controls process-wide behavior.
type AgentConfig struct {
	Log     string `toml:"log"`     // zerolog level: trace, debug, info, warn, error
	Workers int    `toml:"workers"` // number of job-queue workers
	Sentry  string `toml:"sentry,omitempty"`
}

// DependencyCfg is a single dependency-kind entry: either a static value or
// a connection template with a default env var name.
type DependencyCfg struct {
	Value              string `toml:"value,omitempty"`
	ConnectionTemplate string `toml:"connection_template,omitempty"`
	DefaultEnv         string `toml:"default_env"`
}

// DeploymentConfig configures the container engine connection.
type DeploymentConfig struct {
	Connection     string `toml:"connection"` // local, http, ssl
	CA             string `toml:"ca,omitempty"`
	Certificate    string `toml:"certificate,omitempty"`
	Key            string `toml:"key,omitempty"`
	Endpoint       string `toml:"endpoint"`
	TimeoutSeconds int    `toml:"timeout_seconds"`
	Network        string `toml:"network"`
	StatePath      string `toml:"state_path"`
}

// Timeout returns the configured engine-call timeout.
func (d DeploymentConfig) Timeout() time.Duration {
	return time.Duration(d.TimeoutSeconds) * time.Second
}

// DNSConfig configures the DNS record publisher.
type DNSConfig struct {
	Server    string `toml:"server"`
	KVURL     string `toml:"kv_url"`
	KeyPrefix string `toml:"key_prefix"`
	Zone      string `toml:"zone"`
}

// GitConfig configures the Git worker.
type GitConfig struct {
	Branch     string `toml:"branch"`
	CloneTo    string `toml:"clone_to"`
	Repository string `toml:"repository"`
}

// HTTPConfig configures the webhook + management HTTP surface.
type HTTPConfig struct {
	Address          string          `toml:"address"`
	ManagementToken  string          `toml:"management_token"`
	Webhooks         WebhooksConfig  `toml:"webhooks"`
}

// WebhooksConfig carries the shared secrets for the two webhook endpoints.
type WebhooksConfig struct {
	Docker string `toml:"docker"` // shared token "user:token", checked against the Basic auth credentials
	GitHub string `toml:"github"` // HMAC-SHA256 signing secret
}

// NotifierConfig is one configured notifier sink. Exactly one of the
// type-specific blocks is populated, selected by Type.
type NotifierConfig struct {
	Type string `toml:"type"` // "webhook" or "github"

	// webhook sink
	Webhook string `toml:"webhook,omitempty"`

	// github (signed-JWT commit-status) sink
	AppID          int64  `toml:"app_id,omitempty"`
	InstallationID int64  `toml:"installation_id,omitempty"`
	KeyPath        string `toml:"key_path,omitempty"`
	Repository     string `toml:"repository,omitempty"`
}

// SecretsConfig configures the Vault client.
type SecretsConfig struct {
	Address           string  `toml:"address"`
	Token             string  `toml:"token"`
	TokenIntervalSecs int     `toml:"token_interval"`
	LeaseIntervalSecs int     `toml:"lease_interval"`
	LeasePercent      float64 `toml:"lease_percent"`
}

func (s SecretsConfig) TokenInterval() time.Duration {
	return time.Duration(s.TokenIntervalSecs) * time.Second
}

func (s SecretsConfig) LeaseInterval() time.Duration {
	return time.Duration(s.LeaseIntervalSecs) * time.Second
}

// Load reads and validates the configuration file at path.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config: %w", err)
	}

	var cfg Config
	if err := toml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}

	cfg.applyDefaults()

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return &cfg, nil
}

func (c *Config) applyDefaults() {
	if c.Agent.Workers == 0 {
		c.Agent.Workers = 4
	}
	if c.Agent.Log == "" {
		c.Agent.Log = "info"
	}
	if c.Deployment.Connection == "" {
		c.Deployment.Connection = "local"
	}
	if c.Deployment.Endpoint == "" {
		c.Deployment.Endpoint = "unix:///var/run/docker.sock"
	}
	if c.Deployment.TimeoutSeconds == 0 {
		c.Deployment.TimeoutSeconds = 10
	}
	if c.Deployment.Network == "" {
		c.Deployment.Network = "traefik"
	}
	if c.Deployment.StatePath == "" {
		c.Deployment.StatePath = "./state"
	}
	if c.Secrets.LeasePercent == 0 {
		c.Secrets.LeasePercent = 0.7
	}
}

// Validate performs strict validation on the configuration.
func (c *Config) Validate() error {
	if c.Agent.Workers < 1 {
		return fmt.Errorf("agent.workers must be >= 1")
	}

	switch c.Deployment.Connection {
	case "local", "http":
	case "ssl":
		if c.Deployment.CA == "" || c.Deployment.Certificate == "" || c.Deployment.Key == "" {
			return fmt.Errorf("deployment.connection=ssl requires ca, certificate, and key")
		}
	default:
		return fmt.Errorf("deployment.connection: unknown value %q (must be local, http, or ssl)", c.Deployment.Connection)
	}

	if c.Git.Repository == "" {
		return fmt.Errorf("git.repository is required")
	}
	if c.Git.Branch == "" {
		return fmt.Errorf("git.branch is required")
	}
	if c.Git.CloneTo == "" {
		return fmt.Errorf("git.clone_to is required")
	}

	if c.HTTP.Address == "" {
		return fmt.Errorf("http.address is required")
	}
	if c.HTTP.ManagementToken == "" {
		return fmt.Errorf("http.management_token is required")
	}

	if c.DNS.Zone == "" {
		return fmt.Errorf("dns.zone is required")
	}
	if c.DNS.KVURL == "" {
		return fmt.Errorf("dns.kv_url is required")
	}

	if c.Secrets.Address == "" {
		return fmt.Errorf("secrets.address is required")
	}
	if c.Secrets.LeasePercent <= 0 || c.Secrets.LeasePercent >= 1 {
		return fmt.Errorf("secrets.lease_percent must be in (0, 1), got %f", c.Secrets.LeasePercent)
	}

	for i, n := range c.Notifiers {
		switch n.Type {
		case "webhook":
			if n.Webhook == "" {
				return fmt.Errorf("notifiers[%d]: webhook sink requires webhook url", i)
			}
		case "github":
			if n.AppID == 0 || n.InstallationID == 0 || n.KeyPath == "" {
				return fmt.Errorf("notifiers[%d]: github sink requires app_id, installation_id, and key_path", i)
			}
		default:
			return fmt.Errorf("notifiers[%d]: unknown type %q", i, n.Type)
		}
	}

	return nil
}
