package config

import (
	"encoding/hex"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/zeebo/blake3"
	"gopkg.in/yaml.v3"
)

// ChecksumManifest is the .checksums file written by `config lock`.
type ChecksumManifest struct {
	Version     int               `yaml:"version"`
	GeneratedAt string            `yaml:"generated_at"`
	Hashes      map[string]string `yaml:"hashes"`
}

// checksumsFilename is the manifest name inside the config directory.
const checksumsFilename = ".checksums"

// ComputeHash computes the BLAKE3 hash of a file.
func ComputeHash(filePath string) (string, error) {
	data, err := os.ReadFile(filePath)
	if err != nil {
		return "", fmt.Errorf("failed to read file: %w", err)
	}
	hash := blake3.Sum256(data)
	return hex.EncodeToString(hash[:]), nil
}

// Lock computes BLAKE3 hashes for the given files and writes the manifest
// next to them. Files that do not exist are skipped.
func Lock(configDir string, files []string) (*ChecksumManifest, error) {
	manifest := &ChecksumManifest{
		Version:     1,
		GeneratedAt: time.Now().UTC().Format(time.RFC3339),
		Hashes:      make(map[string]string),
	}

	for _, filename := range files {
		path := filepath.Join(configDir, filename)
		if _, err := os.Stat(path); err != nil {
			continue
		}
		hash, err := ComputeHash(path)
		if err != nil {
			return nil, fmt.Errorf("failed to hash %s: %w", filename, err)
		}
		manifest.Hashes[filename] = hash
	}

	data, err := yaml.Marshal(manifest)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal checksums: %w", err)
	}
	if err := os.WriteFile(filepath.Join(configDir, checksumsFilename), data, 0o600); err != nil {
		return nil, fmt.Errorf("failed to write checksums: %w", err)
	}
	return manifest, nil
}

// IntegrityResult collects the outcome of a manifest verification.
type IntegrityResult struct {
	Passed   bool
	Errors   []string
	Warnings []string
}

// VerifyIntegrity checks the given files against the .checksums manifest.
// A missing manifest is a warning; a hash mismatch or a file missing from
// the manifest is an error.
func VerifyIntegrity(configDir string, files []string) (*IntegrityResult, error) {
	result := &IntegrityResult{Passed: true}

	manifestPath := filepath.Join(configDir, checksumsFilename)
	data, err := os.ReadFile(manifestPath)
	if err != nil {
		result.Warnings = append(result.Warnings,
			fmt.Sprintf("no %s manifest found at %s; run 'toolgate config lock' to enable integrity verification", checksumsFilename, manifestPath))
		return result, nil
	}

	var manifest ChecksumManifest
	if err := yaml.Unmarshal(data, &manifest); err != nil {
		return nil, fmt.Errorf("failed to parse checksums manifest: %w", err)
	}

	for _, filename := range files {
		path := filepath.Join(configDir, filename)
		if _, err := os.Stat(path); err != nil {
			continue
		}

		expected, inManifest := manifest.Hashes[filename]
		if !inManifest {
			result.Passed = false
			result.Errors = append(result.Errors, fmt.Sprintf("file %s not in checksums manifest", filename))
			continue
		}

		actual, err := ComputeHash(path)
		if err != nil {
			result.Passed = false
			result.Errors = append(result.Errors, fmt.Sprintf("failed to hash %s: %v", filename, err))
			continue
		}
		if actual != expected {
			result.Passed = false
			result.Errors = append(result.Errors, fmt.Sprintf("hash mismatch for %s (expected %s, got %s)", filename, expected, actual))
		}
	}

	return result, nil
}
