package identity

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/telhawk-systems/authsim/internal/models"
)

// Format is a pool snapshot encoding.
type Format string

const (
	FormatJSON Format = "json"
	FormatYAML Format = "yaml"
)

// FormatFromPath infers the encoding from the file extension, defaulting to JSON.
func FormatFromPath(path string) Format {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		return FormatYAML
	default:
		return FormatJSON
	}
}

// Encode writes the username to IP mapping of pool to w.
func Encode(w io.Writer, pool *models.IdentityPool, format Format) error {
	snapshot := pool.Snapshot()

	switch format {
	case FormatYAML:
		enc := yaml.NewEncoder(w)
		enc.SetIndent(2)
		if err := enc.Encode(snapshot); err != nil {
			return fmt.Errorf("encode pool yaml: %w: %v", models.ErrIO, err)
		}
		return enc.Close()
	case FormatJSON, "":
		if err := json.NewEncoder(w).Encode(snapshot); err != nil {
			return fmt.Errorf("encode pool json: %w: %v", models.ErrIO, err)
		}
		return nil
	default:
		return fmt.Errorf("unknown pool format %q: %w", format, models.ErrInvalidInput)
	}
}

// Write saves pool to path, creating parent directories as needed.
func Write(pool *models.IdentityPool, path string, format Format) error {
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create %s: %w: %v", dir, models.ErrIO, err)
		}
	}

	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create %s: %w: %v", path, models.ErrIO, err)
	}
	if err := Encode(f, pool, format); err != nil {
		f.Close()
		return err
	}
	if err := f.Close(); err != nil {
		return fmt.Errorf("close %s: %w: %v", path, models.ErrIO, err)
	}
	return nil
}

// Load reads a snapshot written by Write. The format follows the file extension.
func Load(path string) (*models.IdentityPool, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read pool %s: %w: %v", path, models.ErrIO, err)
	}

	var entries map[string][]string
	switch FormatFromPath(path) {
	case FormatYAML:
		err = yaml.Unmarshal(data, &entries)
	default:
		err = json.Unmarshal(data, &entries)
	}
	if err != nil {
		return nil, fmt.Errorf("parse pool %s: %w: %v", path, models.ErrInvalidInput, err)
	}

	return models.NewIdentityPool(entries)
}
