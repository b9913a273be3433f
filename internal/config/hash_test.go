package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestComputeHashDeterministic(t *testing.T) {
	dir := t.TempDir()
	path := writeFile(t, dir, "config.yaml", "service:\n  name: toolgate\n")

	h1, err := ComputeHash(path)
	require.NoError(t, err)
	h2, err := ComputeHash(path)
	require.NoError(t, err)
	assert.Equal(t, h1, h2)
	assert.Len(t, h1, 64)
}

func TestLockAndVerify(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "config.yaml", "service:\n  name: toolgate\n")
	writeFile(t, dir, "tokens.yaml", "echo_secret: whsec_abc\n")

	manifest, err := Lock(dir, []string{"config.yaml", "tokens.yaml", "absent.yaml"})
	require.NoError(t, err)
	assert.Len(t, manifest.Hashes, 2, "missing files are skipped")

	result, err := VerifyIntegrity(dir, []string{"config.yaml", "tokens.yaml"})
	require.NoError(t, err)
	assert.True(t, result.Passed)
	assert.Empty(t, result.Errors)
}

func TestVerifyIntegrityDetectsTampering(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "config.yaml", "service:\n  name: toolgate\n")
	_, err := Lock(dir, []string{"config.yaml"})
	require.NoError(t, err)

	writeFile(t, dir, "config.yaml", "service:\n  name: tampered\n")

	result, err := VerifyIntegrity(dir, []string{"config.yaml"})
	require.NoError(t, err)
	assert.False(t, result.Passed)
	require.NotEmpty(t, result.Errors)
	assert.Contains(t, result.Errors[0], "hash mismatch")
}

func TestVerifyIntegrityUnknownFile(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "config.yaml", "a: 1\n")
	_, err := Lock(dir, []string{"config.yaml"})
	require.NoError(t, err)

	writeFile(t, dir, "tokens.yaml", "t: v\n")

	result, err := VerifyIntegrity(dir, []string{"config.yaml", "tokens.yaml"})
	require.NoError(t, err)
	assert.False(t, result.Passed)
	assert.Contains(t, result.Errors[0], "not in checksums manifest")
}

func TestVerifyIntegrityNoManifestWarns(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "config.yaml", "a: 1\n")

	result, err := VerifyIntegrity(dir, []string{"config.yaml"})
	require.NoError(t, err)
	assert.True(t, result.Passed)
	assert.NotEmpty(t, result.Warnings)
}

func TestLockWritesRestrictedPermissions(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "config.yaml", "a: 1\n")
	_, err := Lock(dir, []string{"config.yaml"})
	require.NoError(t, err)

	info, err := os.Stat(filepath.Join(dir, checksumsFilename))
	require.NoError(t, err)
	assert.Equal(t, os.FileMode(0o600), info.Mode().Perm())
}
