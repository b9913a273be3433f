package webhook

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/fieldops/toolgate/internal/config"
)

// FromGlobalConfig converts config.WebhooksConfig to webhook.Config,
// resolving secret references against the tokens map and parsing the body
// size limit.
func FromGlobalConfig(cfg *config.Config, tokens map[string]string) (Config, error) {
	if cfg == nil {
		return Config{}, fmt.Errorf("config is nil")
	}

	out := Config{
		Listen:  cfg.Webhooks.Listen,
		Secrets: make(map[string]string, len(cfg.Webhooks.Tools)),
	}

	for _, tc := range cfg.Webhooks.Tools {
		secret := tc.Secret
		if tc.SecretRef != "" {
			resolved, ok := tokens[tc.SecretRef]
			if !ok {
				return Config{}, fmt.Errorf("tool %q: secret_ref %q not found in tokens", tc.Name, tc.SecretRef)
			}
			secret = resolved
		}
		if secret == "" {
			return Config{}, fmt.Errorf("tool %q: no secret or secret_ref configured", tc.Name)
		}
		out.Secrets[tc.Name] = secret
	}

	maxBodySize, err := parseMaxBodySize(cfg.Webhooks.MaxBodySize)
	if err != nil {
		return Config{}, fmt.Errorf("invalid max_body_size %q: %w", cfg.Webhooks.MaxBodySize, err)
	}
	out.MaxBodySize = maxBodySize

	token := cfg.Operator.Token
	if cfg.Operator.TokenRef != "" {
		resolved, ok := tokens[cfg.Operator.TokenRef]
		if !ok {
			return Config{}, fmt.Errorf("operator token_ref %q not found in tokens", cfg.Operator.TokenRef)
		}
		token = resolved
	}
	out.OperatorToken = token

	return out, nil
}

// parseMaxBodySize parses size strings like "1MB", "512KB" or "2048576" to
// bytes. Returns DefaultMaxBodySize if empty.
func parseMaxBodySize(size string) (int64, error) {
	if size == "" {
		return DefaultMaxBodySize, nil
	}

	upper := strings.ToUpper(strings.TrimSpace(size))
	multiplier := int64(1)

	switch {
	case strings.HasSuffix(upper, "KB"):
		multiplier = 1024
		upper = strings.TrimSuffix(upper, "KB")
	case strings.HasSuffix(upper, "MB"):
		multiplier = 1024 * 1024
		upper = strings.TrimSuffix(upper, "MB")
	case strings.HasSuffix(upper, "GB"):
		multiplier = 1024 * 1024 * 1024
		upper = strings.TrimSuffix(upper, "GB")
	}

	value, err := strconv.ParseInt(strings.TrimSpace(upper), 10, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid size value: %w", err)
	}
	if value <= 0 {
		return 0, fmt.Errorf("size must be positive")
	}

	result := value * multiplier
	if result < 0 {
		return 0, fmt.Errorf("size too large")
	}
	return result, nil
}
