// Cartographus - Media Server Analytics and Geographic Visualization
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/cartographus

package indexreader

import (
	"context"
	"fmt"
	"strconv"
	"sync/atomic"
	"time"

	"github.com/tomtom215/streamindex/internal/hashing"
	"github.com/tomtom215/streamindex/internal/indexbackend"
	"github.com/tomtom215/streamindex/internal/logging"
	"github.com/tomtom215/streamindex/internal/streamid"
	"github.com/tomtom215/streamindex/internal/streammeta"
	"github.com/tomtom215/streamindex/internal/streamnameindex"
	"github.com/tomtom215/streamindex/internal/tableindex"
	"github.com/tomtom215/streamindex/internal/tflog"
)

// Config holds the Index Reader's tunables (base spec §6).
type Config struct {
	Format                 streamid.Format
	HashCollisionReadLimit int
	SkipIndexScanOnRead    bool
	MetastreamMetadata     streammeta.StreamMetadata
}

// DefaultConfig returns sane defaults matching base spec §6's stated
// defaults where given.
func DefaultConfig() Config {
	return Config{
		Format:                 streamid.FormatString,
		HashCollisionReadLimit: 100,
		SkipIndexScanOnRead:    false,
	}
}

// Reader is the Index Reader (base spec §4.1): it holds no mutable state
// of its own beyond atomic counters, reentrant across concurrent callers
// (base spec §5).
type Reader struct {
	cfg       Config
	table     tableindex.Index
	pool      *tflog.Pool
	backend   *indexbackend.Backend
	nameIndex streamnameindex.Index // consulted only for FormatNumeric

	cachedStreamInfo    atomic.Int64
	notCachedStreamInfo atomic.Int64
	hashCollisions      atomic.Int64
}

// New constructs a Reader. nameIndex is required (non-nil) for
// Config.Format == FormatNumeric and ignored otherwise.
func New(cfg Config, table tableindex.Index, pool *tflog.Pool, backend *indexbackend.Backend, nameIndex streamnameindex.Index) *Reader {
	return &Reader{cfg: cfg, table: table, pool: pool, backend: backend, nameIndex: nameIndex}
}

// Stats returns a snapshot of the reader's atomic counters.
func (r *Reader) Stats() Stats {
	return Stats{
		CachedStreamInfo:    r.cachedStreamInfo.Load(),
		NotCachedStreamInfo: r.notCachedStreamInfo.Load(),
		HashCollisions:      r.hashCollisions.Load(),
	}
}

// streamKey is everything the reader needs to address one stream: its
// 64-bit hash (table index key) and its canonical id string (matched
// against PrepareRecord.EventStreamID for collision verification).
type streamKey struct {
	hash            uint64
	canonicalID     string
	isMetastream    bool
	originalOfMeta  string
}

// resolveKey derives the streamKey for a caller-supplied stream name,
// translating through the stream-name index for FormatNumeric (base spec
// §4.8).
func (r *Reader) resolveKey(ctx context.Context, stream string) (streamKey, error) {
	if stream == "" {
		return streamKey{}, ErrEmptyStream
	}

	isMeta := streammeta.IsMetastream(stream)
	original := ""
	if isMeta {
		original = streammeta.OriginalStreamOf(stream)
	}

	switch r.cfg.Format {
	case streamid.FormatNumeric:
		id, err := r.nameIndex.IDFor(ctx, stream)
		if err != nil {
			return streamKey{}, fmt.Errorf("indexreader: resolve stream id for %q: %w", stream, err)
		}
		return streamKey{
			hash:           hashing.IdentityHasher(id),
			canonicalID:    strconv.FormatUint(uint64(id), 10),
			isMetastream:   isMeta,
			originalOfMeta: original,
		}, nil
	default:
		return streamKey{
			hash:           hashing.NameHasher(stream),
			canonicalID:    stream,
			isMetastream:   isMeta,
			originalOfMeta: original,
		}, nil
	}
}

// ReadPrepare reads the prepare for (stream, eventNumber) directly,
// bypassing retention (base spec §4.1: "for metadata assembly and
// replication").
func (r *Reader) ReadPrepare(ctx context.Context, stream string, eventNumber int64) (tflog.PrepareRecord, bool, error) {
	key, err := r.resolveKey(ctx, stream)
	if err != nil {
		return tflog.PrepareRecord{}, false, err
	}

	position, ok := r.table.TryGetOneValue(key.hash, eventNumber)
	if !ok {
		return tflog.PrepareRecord{}, false, nil
	}

	rec, err := r.readAt(ctx, position)
	if err != nil {
		return tflog.PrepareRecord{}, false, err
	}
	if rec.EventStreamID != key.canonicalID {
		// Hash collision at this exact position: not our event.
		return tflog.PrepareRecord{}, false, nil
	}
	return rec, true, nil
}

// GetEventStreamIdByTransactionId reads the prepare anchored at txID
// directly (transaction positions are log positions) and returns the
// stream id it belongs to, if any (base spec §4.1).
func (r *Reader) GetEventStreamIdByTransactionId(ctx context.Context, txID int64) (string, bool, error) {
	rec, err := r.readAt(ctx, txID)
	if err != nil {
		if err == errNoRecordAtPosition {
			return "", false, nil
		}
		return "", false, err
	}
	return rec.EventStreamID, true, nil
}

var errNoRecordAtPosition = fmt.Errorf("indexreader: no record at position")

// readAt borrows a TF reader lease and reads the prepare at position,
// releasing the lease on every exit path (base spec §5, §9).
func (r *Reader) readAt(ctx context.Context, position int64) (tflog.PrepareRecord, error) {
	lease, err := r.pool.Borrow(ctx)
	if err != nil {
		return tflog.PrepareRecord{}, fmt.Errorf("indexreader: borrow reader: %w", err)
	}
	defer lease.Release()

	res, err := lease.Reader.TryReadAt(ctx, position)
	if err != nil {
		return tflog.PrepareRecord{}, fmt.Errorf("indexreader: read at %d: %w", position, err)
	}
	if !res.Success {
		return tflog.PrepareRecord{}, errNoRecordAtPosition
	}
	return res.Record, nil
}

func (r *Reader) observeLatency(operation string, start time.Time) {
	readLatency.WithLabelValues(operation).Observe(time.Since(start).Seconds())
}

func (r *Reader) logIntegrityViolation(stream string, detail string) {
	logging.Error().
		Str("stream", stream).
		Str("detail", detail).
		Msg("indexreader: integrity violation")
}
