package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeFile(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	return path
}

func TestLoadAppliesDefaults(t *testing.T) {
	dir := t.TempDir()
	path := writeFile(t, dir, "config.yaml", `
webhooks:
  tools:
    - name: echo_tool
      secret: whsec_test
`)

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "toolgate", cfg.Service.Name)
	assert.Equal(t, DefaultLogLevel, cfg.Service.LogLevel)
	assert.Equal(t, DefaultLogFormat, cfg.Service.LogFormat)
	assert.Equal(t, DefaultListen, cfg.Webhooks.Listen)
	assert.Equal(t, DefaultAuditPath, cfg.Audit.Path)
	assert.Equal(t, DefaultRetention, cfg.Audit.Retention)
}

func TestLoadFullConfig(t *testing.T) {
	dir := t.TempDir()
	path := writeFile(t, dir, "config.yaml", `
service:
  name: gateway-prod
  log_level: DEBUG
  log_format: text
webhooks:
  listen: "0.0.0.0:9000"
  max_body_size: 2MB
  tools:
    - name: echo_tool
      secret_ref: echo_secret
audit:
  path: /var/lib/toolgate/audit.db
  retention: 24h
operator:
  token_ref: operator_token
`)

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "gateway-prod", cfg.Service.Name)
	assert.Equal(t, "0.0.0.0:9000", cfg.Webhooks.Listen)
	assert.Equal(t, "2MB", cfg.Webhooks.MaxBodySize)
	assert.Equal(t, "echo_secret", cfg.Webhooks.Tools[0].SecretRef)
	assert.Equal(t, Duration(24*time.Hour), cfg.Audit.Retention)
	assert.Equal(t, "operator_token", cfg.Operator.TokenRef)
}

func TestLoadDirectoryResolvesConfigYAML(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "config.yaml", `
webhooks:
  tools: []
`)

	cfg, err := Load(dir)
	require.NoError(t, err)
	assert.Equal(t, DefaultListen, cfg.Webhooks.Listen)
}

func TestLoadErrors(t *testing.T) {
	dir := t.TempDir()

	tests := []struct {
		name    string
		content string
		errPart string
	}{
		{
			name:    "tool without secret",
			content: "webhooks:\n  tools:\n    - name: echo_tool\n",
			errPart: "secret or secret_ref is required",
		},
		{
			name:    "tool with both secret sources",
			content: "webhooks:\n  tools:\n    - name: echo_tool\n      secret: a\n      secret_ref: b\n",
			errPart: "mutually exclusive",
		},
		{
			name:    "tool without name",
			content: "webhooks:\n  tools:\n    - secret: a\n",
			errPart: "name is required",
		},
		{
			name:    "duplicate tool",
			content: "webhooks:\n  tools:\n    - name: echo_tool\n      secret: a\n    - name: echo_tool\n      secret: b\n",
			errPart: "duplicate tool",
		},
		{
			name:    "malformed yaml",
			content: "webhooks: [unclosed",
			errPart: "failed to parse config",
		},
		{
			name:    "bad retention duration",
			content: "audit:\n  retention: fast\n",
			errPart: "invalid duration",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			path := writeFile(t, dir, "bad.yaml", tt.content)
			_, err := Load(path)
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.errPart)
		})
	}
}

func TestLoadMissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "config file not found")
}

func TestLoadTokens(t *testing.T) {
	dir := t.TempDir()
	path := writeFile(t, dir, "tokens.yaml", "echo_secret: whsec_abc\noperator_token: op_123\n")

	tokens, err := LoadTokens(path)
	require.NoError(t, err)
	assert.Equal(t, "whsec_abc", tokens["echo_secret"])
	assert.Equal(t, "op_123", tokens["operator_token"])
}

func TestLoadTokensMissingFileIsEmpty(t *testing.T) {
	tokens, err := LoadTokens(filepath.Join(t.TempDir(), "tokens.yaml"))
	require.NoError(t, err)
	assert.Empty(t, tokens)
}
