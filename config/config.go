// Package config loads AsteroidDB's on-disk settings from a tolerant
// JSONC file, grounded on calvinalkan-agent-task's config.go.
package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/tailscale/hujson"
)

// Config holds the settings loaded at startup. asteroiddb.DB reads
// DataDirectory and BufferPoolSize; HistoryFile is parsed but not read by
// anything (cmd/asteroiddb always keeps its history in
// ~/.asteroiddb_history). Fields default to DefaultConfig's values when
// absent from the config file.
type Config struct {
	DataDirectory string `json:"data_dir"`
	BufferPoolSize int   `json:"buffer_pool_size"`
	HistoryFile   string `json:"history_file,omitempty"`
}

// FileName is the default config file name, looked up relative to the
// data directory — original_source has no equivalent (it never shipped a
// config file at all), so this is new code following the teacher's
// default-project-file convention (`.tk.json`) adapted to this domain.
const FileName = ".asteroiddb.json"

var errBufferPoolSizeInvalid = errors.New("buffer_pool_size must be positive")

// DefaultConfig returns the configuration used when no config file exists.
func DefaultConfig() Config {
	return Config{
		DataDirectory:  ".",
		BufferPoolSize: 128,
	}
}

// Load reads dataDirectory/.asteroiddb.json if present, tolerating JSONC
// comments and trailing commas via hujson.Standardize (matching
// calvinalkan-agent-task/config.go's parseConfig), and overlays it onto
// DefaultConfig. A missing file is not an error.
func Load(dataDirectory string) (Config, error) {
	cfg := DefaultConfig()
	cfg.DataDirectory = dataDirectory

	path := filepath.Join(dataDirectory, FileName)
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return cfg, nil
		}
		return Config{}, fmt.Errorf("read config %s: %w", path, err)
	}

	standardized, err := hujson.Standardize(data)
	if err != nil {
		return Config{}, fmt.Errorf("parse config %s: invalid JSONC: %w", path, err)
	}

	var overlay Config
	if err := json.Unmarshal(standardized, &overlay); err != nil {
		return Config{}, fmt.Errorf("parse config %s: invalid JSON: %w", path, err)
	}

	merged := mergeConfig(cfg, overlay)
	if err := validate(merged); err != nil {
		return Config{}, fmt.Errorf("config %s: %w", path, err)
	}
	return merged, nil
}

func mergeConfig(base, overlay Config) Config {
	if overlay.DataDirectory != "" {
		base.DataDirectory = overlay.DataDirectory
	}
	if overlay.BufferPoolSize != 0 {
		base.BufferPoolSize = overlay.BufferPoolSize
	}
	if overlay.HistoryFile != "" {
		base.HistoryFile = overlay.HistoryFile
	}
	return base
}

func validate(cfg Config) error {
	if cfg.BufferPoolSize <= 0 {
		return errBufferPoolSizeInvalid
	}
	return nil
}
