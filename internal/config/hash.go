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

// ChecksumManifest is the on-disk format of the .checksums file written next
// to the config file by `adjutant config lock`.
type ChecksumManifest struct {
	Version     int    `yaml:"version"`
	GeneratedAt string `yaml:"generated_at"`
	Hash        string `yaml:"hash"`
}

// ComputeHash computes the BLAKE3 hash of a file.
func ComputeHash(filePath string) (string, error) {
	data, err := os.ReadFile(filePath)
	if err != nil {
		return "", fmt.Errorf("failed to read file: %w", err)
	}

	hash := blake3.Sum256(data)
	return hex.EncodeToString(hash[:]), nil
}

func checksumPath(configPath string) string {
	return filepath.Join(filepath.Dir(configPath), ".checksums")
}

// Lock records the current config file hash so later edits can be detected.
func Lock(configPath string) (*ChecksumManifest, error) {
	hash, err := ComputeHash(configPath)
	if err != nil {
		return nil, fmt.Errorf("failed to hash config: %w", err)
	}

	manifest := &ChecksumManifest{
		Version:     1,
		GeneratedAt: time.Now().UTC().Format(time.RFC3339),
		Hash:        hash,
	}

	data, err := yaml.Marshal(manifest)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal checksums: %w", err)
	}

	// Restrictive permissions; the file holds the expected hash.
	if err := os.WriteFile(checksumPath(configPath), data, 0600); err != nil {
		return nil, fmt.Errorf("failed to write checksums: %w", err)
	}

	return manifest, nil
}

// Verify checks the config file against the recorded checksum.
func Verify(configPath string) error {
	data, err := os.ReadFile(checksumPath(configPath))
	if err != nil {
		if os.IsNotExist(err) {
			return fmt.Errorf("checksums file not found (run 'adjutant config lock')")
		}
		return fmt.Errorf("failed to read checksums: %w", err)
	}

	var manifest ChecksumManifest
	if err := yaml.Unmarshal(data, &manifest); err != nil {
		return fmt.Errorf("failed to parse checksums: %w", err)
	}
	if manifest.Version != 1 {
		return fmt.Errorf("unsupported checksums version: %d", manifest.Version)
	}

	actual, err := ComputeHash(configPath)
	if err != nil {
		return fmt.Errorf("failed to compute hash: %w", err)
	}
	if actual != manifest.Hash {
		return fmt.Errorf("hash mismatch for %s: expected %s, got %s\n"+
			"If you edited this file intentionally, run: adjutant config lock",
			filepath.Base(configPath), manifest.Hash, actual)
	}

	return nil
}
