package config

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/kirillkom/findit/internal/core/matching"
)

// LoadMatchingConfig overlays the YAML file at path onto base. Keys absent from
// the file keep their base value. An empty path returns base unchanged.
func LoadMatchingConfig(path string, base matching.Config) (matching.Config, error) {
	if path == "" {
		return base, base.Validate()
	}

	raw, err := os.ReadFile(path)
	if err != nil {
		return matching.Config{}, fmt.Errorf("read matching config %s: %w", path, err)
	}

	cfg := base
	decoder := yaml.NewDecoder(bytes.NewReader(raw))
	decoder.KnownFields(true)
	if err := decoder.Decode(&cfg); err != nil && !errors.Is(err, io.EOF) {
		return matching.Config{}, fmt.Errorf("parse matching config %s: %w", path, err)
	}
	if err := cfg.Validate(); err != nil {
		return matching.Config{}, fmt.Errorf("matching config %s: %w", path, err)
	}
	return cfg, nil
}
