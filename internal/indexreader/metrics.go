// Cartographus - Media Server Analytics and Geographic Visualization
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/cartographus

package indexreader

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Prometheus metrics for index reader operations, mirroring the layout of
// the teacher's internal/wal/metrics.go.
var (
	cachedStreamInfoTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "indexreader_cached_stream_info_total",
		Help: "Total stream-info lookups served from the versioned cache",
	})

	notCachedStreamInfoTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "indexreader_not_cached_stream_info_total",
		Help: "Total stream-info lookups that missed the versioned cache",
	})

	hashCollisionsTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "indexreader_hash_collisions_total",
		Help: "Total non-matching index entries encountered while resolving a stream hash",
	})

	invalidLastEventNumberTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "indexreader_invalid_last_event_number_total",
		Help: "Total reads where the hash-collision budget was exhausted",
	})

	readLatency = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "indexreader_read_latency_seconds",
		Help:    "Latency of index reader operations",
		Buckets: prometheus.DefBuckets,
	}, []string{"operation"})
)
