// Cartographus - Media Server Analytics and Geographic Visualization
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/cartographus

package indexreader

import (
	"context"
	"math"
	"time"

	"github.com/tomtom215/streamindex/internal/streammeta"
	"github.com/tomtom215/streamindex/internal/tableindex"
)

// GetStreamLastEventNumber resolves a stream's last event number
// (base spec §4.2). It short-circuits the metastream/original-deleted
// check (step 1) before falling through to cache + table-index resolution.
func (r *Reader) GetStreamLastEventNumber(ctx context.Context, stream string) (int64, error) {
	start := time.Now()
	defer r.observeLatency("get_stream_last_event_number", start)

	key, err := r.resolveKey(ctx, stream)
	if err != nil {
		return 0, err
	}

	if key.isMetastream {
		origLast, err := r.GetStreamLastEventNumber(ctx, key.originalOfMeta)
		if err != nil {
			return 0, err
		}
		if origLast == streammeta.DeletedStream {
			return streammeta.DeletedStream, nil
		}
	}

	return r.resolveLastEventNumber(ctx, stream, key)
}

// resolveLastEventNumber implements base spec §4.2 steps 2-7: cache probe,
// table-index lookup, hash-collision verification/correction, and a
// conditional cache write.
func (r *Reader) resolveLastEventNumber(ctx context.Context, stream string, key streamKey) (int64, error) {
	if gen, val, ok := r.backend.TryGetStreamLastEventNumber(stream); ok {
		r.cachedStreamInfo.Add(1)
		cachedStreamInfoTotal.Inc()
		_ = gen
		return val, nil
	}
	r.notCachedStreamInfo.Add(1)
	notCachedStreamInfoTotal.Inc()
	observedGen, _, _ := r.backend.TryGetStreamLastEventNumber(stream)

	latestEntry, ok := r.table.TryGetLatestEntry(key.hash)
	if !ok {
		winning := r.backend.UpdateStreamLastEventNumber(stream, observedGen, streammeta.NoStream)
		return winning, nil
	}

	latestRec, err := r.readAt(ctx, latestEntry.Position)
	if err != nil {
		if err == errNoRecordAtPosition {
			r.logIntegrityViolation(stream, "latest index entry points at a position with no prepare")
			return 0, ErrIntegrityViolation
		}
		return 0, err
	}

	var resolved int64
	if latestRec.EventStreamID == key.canonicalID {
		// Step 4: the latest entry matched; scan further entries for a
		// newer colliding write to this same stream.
		resolved = latestEntry.Version
		further := r.table.GetRange(key.hash, latestEntry.Version+1, math.MaxInt64, r.cfg.HashCollisionReadLimit+1)
		for _, e := range further {
			rec, err := r.readAt(ctx, e.Position)
			if err != nil {
				if err == errNoRecordAtPosition {
					r.logIntegrityViolation(stream, "collision-scan entry points at a position with no prepare")
					return 0, ErrIntegrityViolation
				}
				return 0, err
			}
			if rec.EventStreamID == key.canonicalID && e.Version > resolved {
				resolved = e.Version
			}
		}
	} else {
		// Step 5/6: the latest entry belongs to a colliding stream; scan the
		// bucket downward from it, reading up to hashCollisionReadLimit
		// entries, and stop at the first (highest-version) entry of ours.
		candidates := r.table.GetRange(key.hash, 0, latestEntry.Version, tableindex.NoLimit)
		found := false
		var provisional int64
		scanned := 0
		for i := len(candidates) - 1; i >= 0; i-- {
			e := candidates[i]
			if found || scanned >= r.cfg.HashCollisionReadLimit {
				break
			}
			scanned++

			entryRec := latestRec
			var readErr error
			if e.Position != latestEntry.Position {
				entryRec, readErr = r.readAt(ctx, e.Position)
			}
			if readErr != nil {
				if readErr == errNoRecordAtPosition {
					r.logIntegrityViolation(stream, "collision-scan entry points at a position with no prepare")
					return 0, ErrIntegrityViolation
				}
				return 0, readErr
			}

			if entryRec.EventStreamID == key.canonicalID {
				found = true
				if e.Version > provisional {
					provisional = e.Version
				}
			} else {
				r.hashCollisions.Add(1)
				hashCollisionsTotal.Inc()
			}
		}

		if !found {
			invalidLastEventNumberTotal.Inc()
			r.logIntegrityViolation(stream, "hash-collision read limit exhausted without resolving last event number")
			return streammeta.Invalid, nil
		}
		resolved = provisional
	}

	winning := r.backend.UpdateStreamLastEventNumber(stream, observedGen, resolved)
	return winning, nil
}
