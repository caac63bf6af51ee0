// Cartographus - Media Server Analytics and Geographic Visualization
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/cartographus

package indexreader

import (
	"context"
	"time"

	"github.com/tomtom215/streamindex/internal/streammeta"
	"github.com/tomtom215/streamindex/internal/tableindex"
)

// effectiveLowBound resolves base spec §4.4's retention filter to a single
// inclusive lower event number: the smallest event number a caller is
// allowed to see. TruncateBefore and MaxCount both establish a floor
// directly from metadata; MaxAge requires the bounded binary search of
// §4.5 since events are ordered by version, not by age.
func (r *Reader) effectiveLowBound(ctx context.Context, key streamKey, meta streammeta.StreamMetadata, lastEventNumber int64) (int64, error) {
	var low int64

	if meta.TruncateBefore != nil && *meta.TruncateBefore > low {
		low = *meta.TruncateBefore
	}

	if meta.MaxCount != nil && *meta.MaxCount > 0 {
		countFloor := lastEventNumber - *meta.MaxCount + 1
		if countFloor > low {
			low = countFloor
		}
	}

	if meta.MaxAge != nil && *meta.MaxAge > 0 {
		if low > lastEventNumber {
			return low, nil
		}
		ageFloor, err := r.maxAgeCutoff(ctx, key, *meta.MaxAge, low, lastEventNumber)
		if err != nil {
			return 0, err
		}
		if ageFloor > low {
			low = ageFloor
		}
	}

	return low, nil
}

// readWindow reads every entry in [startEventNumber, endEventNumber] for
// key's stream (base spec §4.4): for each table-index entry, read its
// prepare and drop it if the stream id doesn't match (hash-bucket
// collision, counted regardless of SkipIndexScanOnRead per base spec §8
// property 6). If Config.SkipIndexScanOnRead is false, duplicate entries
// for the same version (left behind by a scavenge/rewrite that relocated
// an event without removing its stale index row) are deduplicated, keeping
// the last-written entry; if true, the first match for a version is kept
// and later duplicates are ignored without the extra scan. Results are
// returned in ascending version order.
func (r *Reader) readWindow(ctx context.Context, key streamKey, startEventNumber, endEventNumber int64) ([]EventRecord, error) {
	entries := r.table.GetRange(key.hash, startEventNumber, endEventNumber, tableindex.NoLimit)

	byVersion := make(map[int64]EventRecord, len(entries))
	order := make([]int64, 0, len(entries))

	for _, e := range entries {
		rec, err := r.readAt(ctx, e.Position)
		if err != nil {
			if err == errNoRecordAtPosition {
				continue
			}
			return nil, err
		}
		if rec.EventStreamID != key.canonicalID {
			r.hashCollisions.Add(1)
			hashCollisionsTotal.Inc()
			continue
		}

		if _, seen := byVersion[e.Version]; !seen {
			order = append(order, e.Version)
		} else if r.cfg.SkipIndexScanOnRead {
			continue
		}
		byVersion[e.Version] = fromPrepare(rec)
	}

	records := make([]EventRecord, len(order))
	for i, v := range order {
		records[i] = byVersion[v]
	}
	return records, nil
}

// readEventAt reads one event at an exact version through readWindow, so a
// single-event read sees the same collision filtering and version
// deduplication as a windowed read (base spec §4.4 applies "to all reads").
func (r *Reader) readEventAt(ctx context.Context, key streamKey, version int64) (EventRecord, bool, error) {
	records, err := r.readWindow(ctx, key, version, version)
	if err != nil {
		return EventRecord{}, false, err
	}
	if len(records) == 0 {
		return EventRecord{}, false, nil
	}
	return records[0], true, nil
}

// ReadEvent reads one event from a stream (base spec §4.1, §4.4). An
// eventNumber of -1 requests the stream's last event. Events below the
// retention floor resolve to ReadEventNotFound, the same status as an
// out-of-range version: base spec §8's Open Question answer is that
// retention-filtered and simply-absent events are indistinguishable to
// callers, both NotFound rather than a distinct "Invalid" status.
func (r *Reader) ReadEvent(ctx context.Context, stream string, eventNumber int64) (ReadEventResult, error) {
	start := time.Now()
	defer r.observeLatency("read_event", start)

	if eventNumber < -1 {
		return ReadEventResult{}, ErrNegativeEventNumber
	}

	key, err := r.resolveKey(ctx, stream)
	if err != nil {
		return ReadEventResult{}, err
	}

	lastEventNumber, err := r.GetStreamLastEventNumber(ctx, stream)
	if err != nil {
		return ReadEventResult{}, err
	}
	if lastEventNumber == streammeta.NoStream {
		return ReadEventResult{Status: ReadEventNoStream, LastEventNumber: lastEventNumber}, nil
	}
	if lastEventNumber == streammeta.DeletedStream {
		return ReadEventResult{Status: ReadEventStreamDeleted, LastEventNumber: lastEventNumber}, nil
	}

	resolvedNumber := eventNumber
	if resolvedNumber == -1 {
		resolvedNumber = lastEventNumber
	}
	if resolvedNumber > lastEventNumber {
		return ReadEventResult{Status: ReadEventNotFound, LastEventNumber: lastEventNumber}, nil
	}

	meta, err := r.GetStreamMetadata(ctx, stream)
	if err != nil {
		return ReadEventResult{}, err
	}
	low, err := r.effectiveLowBound(ctx, key, meta, lastEventNumber)
	if err != nil {
		return ReadEventResult{}, err
	}
	if resolvedNumber < low {
		return ReadEventResult{Status: ReadEventNotFound, Metadata: meta, LastEventNumber: lastEventNumber}, nil
	}

	rec, found, err := r.readEventAt(ctx, key, resolvedNumber)
	if err != nil {
		return ReadEventResult{}, err
	}
	if !found {
		return ReadEventResult{Status: ReadEventNotFound, Metadata: meta, LastEventNumber: lastEventNumber}, nil
	}

	return ReadEventResult{
		Status:               ReadEventSuccess,
		Record:               rec,
		Metadata:             meta,
		LastEventNumber:      lastEventNumber,
		OriginalStreamExists: true,
	}, nil
}

// ReadStreamEventsForward reads up to maxCount events starting at
// fromEventNumber, in ascending order (base spec §4.1, §4.4). The
// requested window is exactly [fromEventNumber, fromEventNumber+maxCount-1]:
// if that whole window falls below the retention floor, the read returns
// empty with nextEventNumber set to the floor so the caller can resume from
// there, rather than silently returning events from past the requested
// window.
func (r *Reader) ReadStreamEventsForward(ctx context.Context, stream string, fromEventNumber int64, maxCount int) (ReadStreamResult, error) {
	start := time.Now()
	defer r.observeLatency("read_stream_forward", start)

	if fromEventNumber < 0 {
		return ReadStreamResult{}, ErrNegativeEventNumber
	}
	if maxCount <= 0 {
		return ReadStreamResult{}, ErrNonPositiveMaxCount
	}

	key, err := r.resolveKey(ctx, stream)
	if err != nil {
		return ReadStreamResult{}, err
	}

	lastEventNumber, err := r.GetStreamLastEventNumber(ctx, stream)
	if err != nil {
		return ReadStreamResult{}, err
	}
	if lastEventNumber == streammeta.NoStream {
		return ReadStreamResult{Status: ReadEventNoStream, LastEventNumber: lastEventNumber, IsEndOfStream: true}, nil
	}
	if lastEventNumber == streammeta.DeletedStream {
		return ReadStreamResult{Status: ReadEventStreamDeleted, LastEventNumber: lastEventNumber, IsEndOfStream: true}, nil
	}

	meta, err := r.GetStreamMetadata(ctx, stream)
	if err != nil {
		return ReadStreamResult{}, err
	}

	startEventNumber := fromEventNumber
	endEventNumber := fromEventNumber + int64(maxCount) - 1

	minEventNumber, err := r.effectiveLowBound(ctx, key, meta, lastEventNumber)
	if err != nil {
		return ReadStreamResult{}, err
	}

	if endEventNumber < minEventNumber {
		return ReadStreamResult{
			Status:          ReadEventSuccess,
			NextEventNumber: minEventNumber,
			LastEventNumber: lastEventNumber,
			IsEndOfStream:   false,
		}, nil
	}
	if startEventNumber < minEventNumber {
		startEventNumber = minEventNumber
	}

	records, err := r.readWindow(ctx, key, startEventNumber, endEventNumber)
	if err != nil {
		return ReadStreamResult{}, err
	}

	nextEventNumber := endEventNumber + 1
	if nextEventNumber > lastEventNumber+1 {
		nextEventNumber = lastEventNumber + 1
	}

	return ReadStreamResult{
		Status:          ReadEventSuccess,
		Records:         records,
		NextEventNumber: nextEventNumber,
		LastEventNumber: lastEventNumber,
		IsEndOfStream:   endEventNumber >= lastEventNumber,
	}, nil
}

// ReadStreamEventsBackward reads up to maxCount events ending at
// fromEventNumber (or the stream's last event, if -1), in descending order
// (base spec §4.6). The requested window is
// [max(0, endEventNumber-maxCount+1), endEventNumber]; the retention floor
// can only raise its start, never its end, so a window entirely below the
// floor ends the read rather than returning out-of-window events.
func (r *Reader) ReadStreamEventsBackward(ctx context.Context, stream string, fromEventNumber int64, maxCount int) (ReadStreamResult, error) {
	start := time.Now()
	defer r.observeLatency("read_stream_backward", start)

	if fromEventNumber < -1 {
		return ReadStreamResult{}, ErrNegativeEventNumber
	}
	if maxCount <= 0 {
		return ReadStreamResult{}, ErrNonPositiveMaxCount
	}

	key, err := r.resolveKey(ctx, stream)
	if err != nil {
		return ReadStreamResult{}, err
	}

	lastEventNumber, err := r.GetStreamLastEventNumber(ctx, stream)
	if err != nil {
		return ReadStreamResult{}, err
	}
	if lastEventNumber == streammeta.NoStream {
		return ReadStreamResult{Status: ReadEventNoStream, LastEventNumber: lastEventNumber, IsEndOfStream: true}, nil
	}
	if lastEventNumber == streammeta.DeletedStream {
		return ReadStreamResult{Status: ReadEventStreamDeleted, LastEventNumber: lastEventNumber, IsEndOfStream: true}, nil
	}

	meta, err := r.GetStreamMetadata(ctx, stream)
	if err != nil {
		return ReadStreamResult{}, err
	}

	endEventNumber := fromEventNumber
	if endEventNumber == -1 || endEventNumber > lastEventNumber {
		endEventNumber = lastEventNumber
	}
	startEventNumber := endEventNumber - int64(maxCount) + 1
	if startEventNumber < 0 {
		startEventNumber = 0
	}

	minEventNumber, err := r.effectiveLowBound(ctx, key, meta, lastEventNumber)
	if err != nil {
		return ReadStreamResult{}, err
	}

	if endEventNumber < minEventNumber {
		return ReadStreamResult{
			Status:          ReadEventSuccess,
			NextEventNumber: minEventNumber - 1,
			LastEventNumber: lastEventNumber,
			IsEndOfStream:   true,
		}, nil
	}
	if startEventNumber < minEventNumber {
		startEventNumber = minEventNumber
	}

	ascending, err := r.readWindow(ctx, key, startEventNumber, endEventNumber)
	if err != nil {
		return ReadStreamResult{}, err
	}

	records := make([]EventRecord, len(ascending))
	for i, rec := range ascending {
		records[len(ascending)-1-i] = rec
	}

	// The earliest expected record is missing from the batch when the last
	// (lowest-numbered) entry we got back isn't startEventNumber itself --
	// a gap at the start, which base spec §4.6 also treats as end-of-stream
	// since a subsequent backward read couldn't make progress past it.
	gapAtStart := len(records) == 0 || records[len(records)-1].EventNumber != startEventNumber

	return ReadStreamResult{
		Status:          ReadEventSuccess,
		Records:         records,
		NextEventNumber: startEventNumber - 1,
		LastEventNumber: lastEventNumber,
		IsEndOfStream:   startEventNumber == 0 || gapAtStart,
	}, nil
}
