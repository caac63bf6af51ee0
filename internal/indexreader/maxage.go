// Cartographus - Media Server Analytics and Geographic Visualization
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/cartographus

package indexreader

import (
	"context"
	"time"

	"github.com/tomtom215/streamindex/internal/tableindex"
)

// maxAgeCutoff performs the bounded binary search of base spec §4.5: it
// finds the smallest event number in [low, high] whose prepare timestamp is
// not older than maxAge, so that every event below it is eligible for
// MaxAge-based retention filtering. The search runs in O(log N) reads, not
// O(N), by bisecting the version range rather than scanning forward from
// low one event at a time.
//
// A version can be backed by more than one table-index entry when a hash
// bucket also holds colliding streams (base spec §4.2). Each probe fetches
// every entry at the single version mid and examines them together, so
// advancing low past the probe is always mid+1. If every version in the
// range is expired, the result is high+1.
func (r *Reader) maxAgeCutoff(ctx context.Context, key streamKey, maxAge time.Duration, low, high int64) (int64, error) {
	cutoff := time.Now().Add(-maxAge)
	reAnchored := false
	origHigh := high

	for low < high {
		mid := low + (high-low)/2

		indexEntries := r.table.GetRange(key.hash, mid, mid, tableindex.NoLimit)
		if len(indexEntries) == 0 {
			// The entries covering [low, mid] may have been scavenged
			// concurrently with this search. Re-anchor against the
			// current oldest entry at most once; a second empty result
			// after re-anchoring means the stream itself is gone from
			// under us, so fall through and keep narrowing by one.
			if !reAnchored {
				reAnchored = true
				if oldest, ok := r.table.TryGetOldestEntry(key.hash); ok && oldest.Version > low {
					low = oldest.Version
					continue
				}
			}
			low = mid + 1
			continue
		}

		ts, matched, err := r.timestampAtVersion(ctx, key, indexEntries)
		if err != nil {
			return 0, err
		}
		if !matched {
			// Every entry at this version belongs to a colliding stream;
			// our stream has no event here. Skip past this version.
			low = mid + 1
			continue
		}

		if ts.Before(cutoff) {
			low = mid + 1
		} else {
			high = mid
		}
	}

	if low == origHigh {
		// high was never lowered, so the last version was not probed; if
		// it is expired too, the cutoff lies past the whole range.
		indexEntries := r.table.GetRange(key.hash, low, low, tableindex.NoLimit)
		ts, matched, err := r.timestampAtVersion(ctx, key, indexEntries)
		if err != nil {
			return 0, err
		}
		if matched && ts.Before(cutoff) {
			return low + 1, nil
		}
	}
	return low, nil
}

// timestampAtVersion returns the timestamp of key's own prepare among a
// batch of index entries sharing one version, distinguishing it from
// colliding streams the same way resolveLastEventNumber does.
func (r *Reader) timestampAtVersion(ctx context.Context, key streamKey, indexEntries []tableindex.Entry) (time.Time, bool, error) {
	for _, e := range indexEntries {
		rec, err := r.readAt(ctx, e.Position)
		if err != nil {
			if err == errNoRecordAtPosition {
				continue
			}
			return time.Time{}, false, err
		}
		if rec.EventStreamID == key.canonicalID {
			return rec.Timestamp, true, nil
		}
		r.hashCollisions.Add(1)
		hashCollisionsTotal.Inc()
	}
	return time.Time{}, false, nil
}
