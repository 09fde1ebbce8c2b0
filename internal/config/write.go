package config

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/telhawk-systems/authsim/internal/models"
)

var sectionComments = map[string]string{
	"simulation": "Run parameters. start_date is UTC in YYYY-MM-DD HH:MM:SS form.",
	"identity":   "Username universe: first x last names from word lists plus role accounts.\nWithout word lists, generated_names names are drawn from a seeded faker.\npool_in loads a previously written pool instead.",
	"lockout":    "legacy never expires locks and pops the newest one on a coin flip after every login.\ncooldown releases a lock when its account is retried after duration.",
	"arrival":    "Hourly Poisson rate bounds per time regime.",
	"output":     "Output files. Leave a path empty to skip that file.",
	"sinks":      "Downstream delivery, run in order after the files are written.",
	"logging":    "level: debug, info, warn, error. format: text or json.",
}

// Encode renders c as commented YAML.
func (c *Config) Encode() ([]byte, error) {
	var doc yaml.Node
	if err := doc.Encode(c); err != nil {
		return nil, fmt.Errorf("encode config: %w", err)
	}
	root := &doc
	if doc.Kind == yaml.DocumentNode && len(doc.Content) > 0 {
		root = doc.Content[0]
	}
	humanizeDurations(root)

	for i := 0; i+1 < len(root.Content); i += 2 {
		if comment, ok := sectionComments[root.Content[i].Value]; ok {
			root.Content[i].HeadComment = comment
		}
	}

	var buf bytes.Buffer
	buf.WriteString("# authsim configuration\n\n")
	enc := yaml.NewEncoder(&buf)
	enc.SetIndent(2)
	if err := enc.Encode(root); err != nil {
		return nil, fmt.Errorf("encode config: %w", err)
	}
	if err := enc.Close(); err != nil {
		return nil, fmt.Errorf("encode config: %w", err)
	}
	return buf.Bytes(), nil
}

// humanizeDurations rewrites duration and timeout values from nanoseconds to "15m0s" form.
func humanizeDurations(n *yaml.Node) {
	if n.Kind != yaml.MappingNode {
		for _, child := range n.Content {
			humanizeDurations(child)
		}
		return
	}
	for i := 0; i+1 < len(n.Content); i += 2 {
		key, val := n.Content[i], n.Content[i+1]
		if (key.Value == "duration" || key.Value == "timeout") && val.Kind == yaml.ScalarNode {
			var ns int64
			if err := val.Decode(&ns); err == nil {
				val.Value = time.Duration(ns).String()
				val.Tag = "!!str"
			}
			continue
		}
		humanizeDurations(val)
	}
}

// Write saves c to path, creating parent directories. An existing file is only
// replaced when overwrite is set.
func (c *Config) Write(path string, overwrite bool) error {
	if !overwrite {
		if _, err := os.Stat(path); err == nil {
			return fmt.Errorf("%s already exists: %w", path, models.ErrInvalidInput)
		}
	}

	data, err := c.Encode()
	if err != nil {
		return err
	}

	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("create %s: %w: %v", filepath.Dir(path), models.ErrIO, err)
	}
	if err := os.WriteFile(path, data, 0o600); err != nil {
		return fmt.Errorf("write %s: %w: %v", path, models.ErrIO, err)
	}
	return nil
}
