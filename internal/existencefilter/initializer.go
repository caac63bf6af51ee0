// Cartographus - Media Server Analytics and Geographic Visualization
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/cartographus

package existencefilter

import (
	"context"
	"fmt"

	"github.com/tomtom215/streamindex/internal/hashing"
	"github.com/tomtom215/streamindex/internal/logging"
	"github.com/tomtom215/streamindex/internal/tableindex"
	"github.com/tomtom215/streamindex/internal/tflog"
)

// NameEnumerator yields every stream name known to the stream-name index
// (format B), used to bootstrap a name-keyed filter (base spec §4.9).
// Whether this enumerator is metastream-aware is Open Question (iii) of
// the base spec; this package takes whatever enumerator it's given
// unmodified, deferring that decision to the caller (see DESIGN.md).
type NameEnumerator func(yield func(name string) bool)

// InitHashKeyed bootstraps a stream-hash-keyed filter (format A, base spec
// §4.9): one Add per distinct stream hash already in the table index, then
// continuing from max(prepareCheckpoint, commitCheckpoint) in the TF log,
// Adding each subsequently-committed prepare's stream hash. If the filter's
// own persisted checkpoint is already ahead of the index's checkpoints, it
// resumes directly from the filter checkpoint instead of rescanning the
// table index (base spec §4.9 "resumption checkpoint").
func InitHashKeyed(ctx context.Context, f *Filter, cp *Checkpoint, idx tableindex.Index, pool *tflog.Pool) error {
	filterCheckpoint, err := cp.Read()
	if err != nil {
		return err
	}

	indexCheckpoint := idx.PrepareCheckpoint()
	if idx.CommitCheckpoint() > indexCheckpoint {
		indexCheckpoint = idx.CommitCheckpoint()
	}

	resumePosition := indexCheckpoint
	if filterCheckpoint > indexCheckpoint {
		resumePosition = filterCheckpoint
		logging.Info().
			Int64("filter_checkpoint", filterCheckpoint).
			Int64("index_checkpoint", indexCheckpoint).
			Msg("existence filter checkpoint ahead of index checkpoint, resuming from filter checkpoint")
	} else {
		idx.IterateAll(func(e tableindex.Entry) bool {
			f.Add(hashKey(e.StreamHash))
			return true
		})
	}

	return scanLogFrom(ctx, f, cp, pool, resumePosition)
}

// InitNameKeyed bootstraps a name-keyed filter (format B, base spec §4.9):
// one Add per stream name in the persisted stream-name index.
func InitNameKeyed(f *Filter, names NameEnumerator) {
	names(func(name string) bool {
		f.Add(name)
		return true
	})
}

// scanLogFrom reads forward from position, Adding each committed prepare's
// stream hash and persisting the checkpoint as it advances. The starting
// position is persisted first, so a scan that finds nothing new still
// records how far the filter is populated.
func scanLogFrom(ctx context.Context, f *Filter, cp *Checkpoint, pool *tflog.Pool, position int64) error {
	lease, err := pool.Borrow(ctx)
	if err != nil {
		return fmt.Errorf("existencefilter: borrow reader: %w", err)
	}
	defer lease.Release()

	if err := cp.Write(position); err != nil {
		return err
	}
	lease.Reader.Reposition(position)
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}

		res, err := lease.Reader.TryReadNext(ctx)
		if err != nil {
			return fmt.Errorf("existencefilter: scan log: %w", err)
		}
		if !res.Success {
			break
		}
		if res.Record.Flags.Has(tflog.FlagIsCommitted) {
			f.Add(hashKey(hashing.NameHasher(res.Record.EventStreamID)))
		}
		if err := cp.Write(res.PostPosition); err != nil {
			return err
		}
	}
	return nil
}

// hashKey renders a 64-bit stream hash as a filter key.
func hashKey(h uint64) string {
	var buf [8]byte
	buf[0] = byte(h >> 56)
	buf[1] = byte(h >> 48)
	buf[2] = byte(h >> 40)
	buf[3] = byte(h >> 32)
	buf[4] = byte(h >> 24)
	buf[5] = byte(h >> 16)
	buf[6] = byte(h >> 8)
	buf[7] = byte(h)
	return string(buf[:])
}
