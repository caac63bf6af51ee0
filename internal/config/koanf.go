// Cartographus - Media Server Analytics and Geographic Visualization
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/cartographus

package config

import (
	"fmt"
	"os"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/providers/structs"
	"github.com/knadh/koanf/v2"
)

// DefaultConfigPaths lists the paths searched for a config file, in order.
var DefaultConfigPaths = []string{
	"config.yaml",
	"config.yml",
	"/etc/streamindex/config.yaml",
}

// ConfigPathEnvVar overrides the searched config file path.
const ConfigPathEnvVar = "STREAMINDEX_CONFIG_PATH"

// LoadWithKoanf loads Config through three layers, later layers winning
// over earlier ones: built-in defaults, an optional YAML file, then
// environment variables (e.g. INDEX_DIRECTORY, LOG_LEVEL).
func LoadWithKoanf() (*Config, error) {
	k := koanf.New(".")

	defaults := defaultConfig()
	if err := k.Load(structs.Provider(defaults, "koanf"), nil); err != nil {
		return nil, fmt.Errorf("config: load defaults: %w", err)
	}

	if path := findConfigFile(); path != "" {
		if err := k.Load(file.Provider(path), yaml.Parser()); err != nil {
			return nil, fmt.Errorf("config: load file %s: %w", path, err)
		}
	}

	envProvider := env.Provider("", ".", envTransformFunc)
	if err := k.Load(envProvider, nil); err != nil {
		return nil, fmt.Errorf("config: load environment: %w", err)
	}

	cfg := &Config{}
	if err := k.Unmarshal("", cfg); err != nil {
		return nil, fmt.Errorf("config: unmarshal: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config: validate: %w", err)
	}

	return cfg, nil
}

func findConfigFile() string {
	if envPath := os.Getenv(ConfigPathEnvVar); envPath != "" {
		if _, err := os.Stat(envPath); err == nil {
			return envPath
		}
	}
	for _, path := range DefaultConfigPaths {
		if _, err := os.Stat(path); err == nil {
			return path
		}
	}
	return ""
}

// envTransformFunc maps INDEX_DIRECTORY -> index.directory, LOG_LEVEL ->
// log.level, and so on, mirroring the env-var convention the rest of the
// codebase uses.
func envTransformFunc(key string) string {
	mappings := map[string]string{
		"INDEX_DIRECTORY":                "index.directory",
		"INDEX_IN_MEMORY":                "index.in_memory",
		"INDEX_STREAM_ID_FORMAT":         "index.stream_id_format",
		"INDEX_INITIAL_READER_COUNT":     "index.initial_reader_count",
		"INDEX_MAX_READER_COUNT":         "index.max_reader_count",
		"INDEX_READER_BORROW_TIMEOUT":    "index.reader_borrow_timeout",
		"INDEX_HASH_COLLISION_READ_LIMIT": "index.hash_collision_read_limit",
		"INDEX_SKIP_INDEX_SCAN_ON_READ":  "index.skip_index_scan_on_read",
		"LOG_LEVEL":                      "log.level",
		"LOG_FORMAT":                     "log.format",
		"LOG_CALLER":                     "log.caller",
		"METRIC_ENABLED":                 "metric.enabled",
		"METRIC_ADDR":                    "metric.addr",
	}
	if mapped, ok := mappings[key]; ok {
		return mapped
	}
	return ""
}
