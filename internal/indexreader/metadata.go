// Cartographus - Media Server Analytics and Geographic Visualization
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/cartographus

package indexreader

import (
	"context"
	"time"

	"github.com/tomtom215/streamindex/internal/streammeta"
	"github.com/tomtom215/streamindex/internal/tflog"
)

// GetStreamMetadata resolves a stream's metadata (base spec §4.3). A
// metastream's own metadata is the fixed constant cfg.MetastreamMetadata,
// never read from the log. Otherwise the metastream's last event is read
// and parsed; any parse failure or missing JSON flag yields Empty rather
// than an error (favor availability, base spec §7).
func (r *Reader) GetStreamMetadata(ctx context.Context, stream string) (streammeta.StreamMetadata, error) {
	start := time.Now()
	defer r.observeLatency("get_stream_metadata", start)

	if stream == "" {
		return streammeta.Empty, ErrEmptyStream
	}
	if streammeta.IsMetastream(stream) {
		return r.cfg.MetastreamMetadata, nil
	}

	if gen, val, ok := r.backend.TryGetStreamMetadata(stream); ok {
		r.cachedStreamInfo.Add(1)
		cachedStreamInfoTotal.Inc()
		_ = gen
		return val, nil
	}
	r.notCachedStreamInfo.Add(1)
	notCachedStreamInfoTotal.Inc()
	observedGen, _, _ := r.backend.TryGetStreamMetadata(stream)

	meta, err := r.loadMetadataFromLog(ctx, stream)
	if err != nil {
		return streammeta.Empty, err
	}

	winning := r.backend.UpdateStreamMetadata(stream, observedGen, meta)
	return winning, nil
}

func (r *Reader) loadMetadataFromLog(ctx context.Context, stream string) (streammeta.StreamMetadata, error) {
	metaStream := streammeta.MetastreamOf(stream)

	lastMetaEventNumber, err := r.GetStreamLastEventNumber(ctx, metaStream)
	if err != nil {
		return streammeta.Empty, err
	}
	if lastMetaEventNumber == streammeta.NoStream || lastMetaEventNumber == streammeta.Invalid {
		return streammeta.Empty, nil
	}

	rec, found, err := r.ReadPrepare(ctx, metaStream, lastMetaEventNumber)
	if err != nil {
		return streammeta.Empty, err
	}
	if !found {
		r.logIntegrityViolation(metaStream, "metastream has a last-event-number but its prepare is missing")
		return streammeta.Empty, ErrIntegrityViolation
	}

	if len(rec.Data) == 0 || !rec.Flags.Has(tflog.FlagIsJson) {
		return streammeta.Empty, nil
	}

	meta := streammeta.ParseJSON(rec.Data)
	meta = meta.RemapLegacyTruncateBefore(rec.RecordVersion == tflog.LogRecordV0)
	return meta, nil
}
