// Cartographus - Media Server Analytics and Geographic Visualization
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/cartographus

package config

import "fmt"

// Validate checks Config for internally-inconsistent values that would
// otherwise surface as confusing failures deep in the index reader.
func (c *Config) Validate() error {
	if c.Index.InitialReaderCount <= 0 {
		return fmt.Errorf("config: index.initial_reader_count must be > 0")
	}
	if c.Index.MaxReaderCount < c.Index.InitialReaderCount {
		return fmt.Errorf("config: index.max_reader_count must be >= initial_reader_count")
	}
	if c.Index.StreamIDFormat != "string" && c.Index.StreamIDFormat != "numeric" {
		return fmt.Errorf("config: index.stream_id_format must be %q or %q, got %q", "string", "numeric", c.Index.StreamIDFormat)
	}
	if c.Index.HashCollisionReadLimit <= 0 {
		return fmt.Errorf("config: index.hash_collision_read_limit must be > 0")
	}
	if c.Index.StreamExistenceFilter.ExpectedStreams <= 0 {
		return fmt.Errorf("config: index.stream_existence_filter.expected_streams must be > 0")
	}
	if c.Index.StreamExistenceFilter.FalsePositiveRate <= 0 || c.Index.StreamExistenceFilter.FalsePositiveRate >= 1 {
		return fmt.Errorf("config: index.stream_existence_filter.false_positive_rate must be in (0, 1)")
	}
	if c.Index.NameIndexInterval != 0 && c.Index.NameIndexInterval%2 != 0 {
		return fmt.Errorf("config: index.name_index_interval must be even so metastream ids never collide")
	}
	return nil
}
