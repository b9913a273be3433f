package config

import (
	"fmt"
	"time"

	"gopkg.in/yaml.v3"
)

// Duration is a time.Duration that unmarshals from YAML duration strings
// like "24h" or "30m".
type Duration time.Duration

// UnmarshalYAML parses a duration string node.
func (d *Duration) UnmarshalYAML(node *yaml.Node) error {
	var s string
	if err := node.Decode(&s); err != nil {
		return fmt.Errorf("retention must be a duration string: %w", err)
	}
	parsed, err := time.ParseDuration(s)
	if err != nil {
		return fmt.Errorf("invalid duration %q: %w", s, err)
	}
	if parsed <= 0 {
		return fmt.Errorf("duration must be positive: %q", s)
	}
	*d = Duration(parsed)
	return nil
}

// Std returns the value as a time.Duration.
func (d Duration) Std() time.Duration { return time.Duration(d) }

// Config represents the complete toolgate configuration.
type Config struct {
	Service  ServiceConfig  `yaml:"service"`
	Webhooks WebhooksConfig `yaml:"webhooks"`
	Audit    AuditConfig    `yaml:"audit,omitempty"`
	Operator OperatorConfig `yaml:"operator,omitempty"`
}

// ServiceConfig defines core service settings.
type ServiceConfig struct {
	Name      string `yaml:"name"`
	LogLevel  string `yaml:"log_level"`
	LogFormat string `yaml:"log_format"`
}

// WebhooksConfig defines the webhook listener and per-tool secrets.
type WebhooksConfig struct {
	Listen      string     `yaml:"listen"`
	MaxBodySize string     `yaml:"max_body_size,omitempty"`
	Tools       []ToolConf `yaml:"tools"`
}

// ToolConf binds one registered tool name to its signing secret.
type ToolConf struct {
	// Name must match a tool registered in code.
	Name string `yaml:"name"`

	// Secret is the shared HMAC secret for this tool's webhook.
	Secret string `yaml:"secret,omitempty"`

	// SecretRef references a secret in tokens.yaml (preferred over Secret).
	SecretRef string `yaml:"secret_ref,omitempty"`
}

// AuditConfig defines invocation log storage settings.
type AuditConfig struct {
	Path      string   `yaml:"path"`
	Retention Duration `yaml:"retention,omitempty"`
}

// OperatorConfig defines the operator API token.
type OperatorConfig struct {
	Token    string `yaml:"token,omitempty"`
	TokenRef string `yaml:"token_ref,omitempty"`
}

// Defaults applied by Load.
const (
	DefaultListen    = "127.0.0.1:8787"
	DefaultLogLevel  = "INFO"
	DefaultLogFormat = "json"
	DefaultAuditPath = "toolgate.db"
	DefaultRetention = Duration(7 * 24 * time.Hour)
)
