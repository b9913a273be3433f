package config

import (
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"
)

// Load reads, defaults and validates configuration from a file. A directory
// path is resolved to config.yaml inside it.
func Load(configPath string) (*Config, error) {
	absPath, err := filepath.Abs(configPath)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve config path %q: %w", configPath, err)
	}

	info, err := os.Stat(absPath)
	if err != nil {
		return nil, fmt.Errorf("config file not found: %s", absPath)
	}
	if info.IsDir() {
		absPath = filepath.Join(absPath, "config.yaml")
		if _, err := os.Stat(absPath); err != nil {
			return nil, fmt.Errorf("directory provided but config.yaml not found: %s", absPath)
		}
	}

	data, err := os.ReadFile(absPath)
	if err != nil {
		return nil, fmt.Errorf("failed to read config: %w", err)
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}

	applyDefaults(&cfg)
	if err := Validate(&cfg); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func applyDefaults(cfg *Config) {
	if cfg.Service.Name == "" {
		cfg.Service.Name = "toolgate"
	}
	if cfg.Service.LogLevel == "" {
		cfg.Service.LogLevel = DefaultLogLevel
	}
	if cfg.Service.LogFormat == "" {
		cfg.Service.LogFormat = DefaultLogFormat
	}
	if cfg.Webhooks.Listen == "" {
		cfg.Webhooks.Listen = DefaultListen
	}
	if cfg.Audit.Path == "" {
		cfg.Audit.Path = DefaultAuditPath
	}
	if cfg.Audit.Retention == 0 {
		cfg.Audit.Retention = DefaultRetention
	}
}

// Validate checks internal consistency: every tool entry needs a name and
// exactly one secret source.
func Validate(cfg *Config) error {
	seen := make(map[string]bool)
	for i, tc := range cfg.Webhooks.Tools {
		if tc.Name == "" {
			return fmt.Errorf("webhooks.tools[%d]: name is required", i)
		}
		if seen[tc.Name] {
			return fmt.Errorf("webhooks.tools[%d]: duplicate tool %q", i, tc.Name)
		}
		seen[tc.Name] = true

		if tc.Secret == "" && tc.SecretRef == "" {
			return fmt.Errorf("webhooks.tools[%d] (%q): secret or secret_ref is required", i, tc.Name)
		}
		if tc.Secret != "" && tc.SecretRef != "" {
			return fmt.Errorf("webhooks.tools[%d] (%q): secret and secret_ref are mutually exclusive", i, tc.Name)
		}
	}
	return nil
}

// LoadTokens reads a tokens.yaml file mapping reference names to secret
// values. A missing file yields an empty map.
func LoadTokens(path string) (map[string]string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return map[string]string{}, nil
		}
		return nil, fmt.Errorf("failed to read tokens file: %w", err)
	}

	var tokens map[string]string
	if err := yaml.Unmarshal(data, &tokens); err != nil {
		return nil, fmt.Errorf("failed to parse tokens file: %w", err)
	}
	if tokens == nil {
		tokens = map[string]string{}
	}
	return tokens, nil
}
