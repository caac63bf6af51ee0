// Cartographus - Media Server Analytics and Geographic Visualization
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/cartographus

// Package config loads the index reader's tunables through the same
// layered koanf pipeline the rest of the codebase uses: built-in defaults,
// an optional YAML file, then environment variables, each layer able to
// override the one before it.
package config

import (
	"time"

	"github.com/tomtom215/streamindex/internal/streamid"
	"github.com/tomtom215/streamindex/internal/streammeta"
)

// Config holds every index-reader tunable (base spec §6).
type Config struct {
	Index  IndexConfig  `koanf:"index"`
	Log    LogConfig    `koanf:"log"`
	Metric MetricConfig `koanf:"metric"`
}

// IndexConfig controls the table index, TF log reader pool, and the
// stream-existence filter.
type IndexConfig struct {
	Directory              string        `koanf:"directory"`
	InMemory               bool          `koanf:"in_memory"`
	StreamIDFormat         string        `koanf:"stream_id_format"` // "string" or "numeric"
	InitialReaderCount     int           `koanf:"initial_reader_count"`
	MaxReaderCount         int           `koanf:"max_reader_count"`
	ReaderBorrowTimeout    time.Duration `koanf:"reader_borrow_timeout"`
	StreamExistenceFilter  FilterConfig  `koanf:"stream_existence_filter"`
	HashCollisionReadLimit int           `koanf:"hash_collision_read_limit"`
	SkipIndexScanOnRead    bool          `koanf:"skip_index_scan_on_read"`
	NameIndexSequenceStart uint32        `koanf:"name_index_sequence_start"`
	NameIndexInterval      uint32        `koanf:"name_index_interval"`
}

// FilterConfig sizes the probabilistic stream-existence filter
// (base spec §4.9).
type FilterConfig struct {
	ExpectedStreams   int64   `koanf:"expected_streams"`
	FalsePositiveRate float64 `koanf:"false_positive_rate"`
	CheckpointPath    string  `koanf:"checkpoint_path"`
}

// LogConfig configures the zerolog global logger.
type LogConfig struct {
	Level  string `koanf:"level"`
	Format string `koanf:"format"`
	Caller bool   `koanf:"caller"`
}

// MetricConfig configures the Prometheus metrics endpoint.
type MetricConfig struct {
	Enabled bool   `koanf:"enabled"`
	Addr    string `koanf:"addr"`
}

// StreamIDFormatValue resolves the configured string into a
// streamid.Format, defaulting to FormatString for any unrecognized or
// empty value.
func (c IndexConfig) StreamIDFormatValue() streamid.Format {
	if c.StreamIDFormat == "numeric" {
		return streamid.FormatNumeric
	}
	return streamid.FormatString
}

// defaultConfig returns the built-in defaults (base spec §6's stated
// defaults where given), applied before the file and env layers.
func defaultConfig() *Config {
	return &Config{
		Index: IndexConfig{
			Directory:           "/data/streamindex",
			InMemory:            false,
			StreamIDFormat:      "string",
			InitialReaderCount:  5,
			MaxReaderCount:      100,
			ReaderBorrowTimeout: 5 * time.Second,
			StreamExistenceFilter: FilterConfig{
				ExpectedStreams:   1_000_000,
				FalsePositiveRate: 0.01,
				CheckpointPath:    "/data/streamindex/existence-filter-checkpoint",
			},
			HashCollisionReadLimit: 100,
			SkipIndexScanOnRead:    false,
			NameIndexSequenceStart: 0,
			NameIndexInterval:      2,
		},
		Log: LogConfig{
			Level:  "info",
			Format: "json",
			Caller: false,
		},
		Metric: MetricConfig{
			Enabled: true,
			Addr:    ":9090",
		},
	}
}

// MetastreamMetadata is the fixed metadata value every metastream reports
// for itself (base spec §4.3: metastreams never carry their own retention
// policy in the log).
var MetastreamMetadata = streammeta.Empty
