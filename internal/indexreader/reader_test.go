// Cartographus - Media Server Analytics and Geographic Visualization
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/cartographus

package indexreader

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/tomtom215/streamindex/internal/hashing"
	"github.com/tomtom215/streamindex/internal/indexbackend"
	"github.com/tomtom215/streamindex/internal/streammeta"
	"github.com/tomtom215/streamindex/internal/streamnameindex"
	"github.com/tomtom215/streamindex/internal/tableindex"
	"github.com/tomtom215/streamindex/internal/tflog"
)

// harness wires an in-memory Reader suitable for exercising the read path
// without any real storage engine.
type harness struct {
	t       *testing.T
	log     *tflog.MemLog
	table   *tableindex.Mem
	pool    *tflog.Pool
	backend *indexbackend.Backend
	reader  *Reader
}

func newHarness(t *testing.T) *harness {
	t.Helper()
	log := tflog.NewMemLog()
	table := tableindex.NewMem()
	pool, err := tflog.NewPool(log.NewReader, 2, 4)
	if err != nil {
		t.Fatalf("NewPool: %v", err)
	}
	t.Cleanup(func() { _ = pool.Close() })

	backend := indexbackend.New(indexbackend.SystemSettings{})
	reader := New(DefaultConfig(), table, pool, backend, streamnameindex.Identity{})

	return &harness{t: t, log: log, table: table, pool: pool, backend: backend, reader: reader}
}

// append writes one committed prepare for stream at eventNumber, returning
// its log position, and records it in the table index under stream's own
// hash (i.e. no collision).
func (h *harness) append(stream string, eventNumber int64, ts time.Time, data []byte, flags tflog.Flags) int64 {
	h.t.Helper()
	pos := h.log.Append(tflog.PrepareRecord{
		EventStreamID: stream,
		EventNumber:   eventNumber,
		Timestamp:     ts,
		Flags:         flags | tflog.FlagIsCommitted,
		Data:          data,
	})
	h.table.Add(tableindex.Entry{StreamHash: hashing.NameHasher(stream), Version: eventNumber, Position: pos})
	return pos
}

// appendColliding writes a prepare for stream but files its table entry
// under foreignHash instead of stream's real hash, simulating a hash-bucket
// collision with another stream.
func (h *harness) appendColliding(stream string, eventNumber int64, foreignHash uint64) int64 {
	h.t.Helper()
	pos := h.log.Append(tflog.PrepareRecord{
		EventStreamID: stream,
		EventNumber:   eventNumber,
		Timestamp:     time.Now(),
		Flags:         tflog.FlagIsCommitted,
		Data:          []byte("x"),
	})
	h.table.Add(tableindex.Entry{StreamHash: foreignHash, Version: eventNumber, Position: pos})
	return pos
}

func TestReadEvent_BasicRead(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()

	h.append("orders-1", 0, time.Now(), []byte(`{"amount":10}`), tflog.FlagIsJson)
	h.append("orders-1", 1, time.Now(), []byte(`{"amount":20}`), tflog.FlagIsJson)

	res, err := h.reader.ReadEvent(ctx, "orders-1", 1)
	if err != nil {
		t.Fatalf("ReadEvent: %v", err)
	}
	if res.Status != ReadEventSuccess {
		t.Fatalf("status = %v, want Success", res.Status)
	}
	if res.Record.EventNumber != 1 {
		t.Fatalf("event number = %d, want 1", res.Record.EventNumber)
	}
	if res.LastEventNumber != 1 {
		t.Fatalf("last event number = %d, want 1", res.LastEventNumber)
	}
}

func TestReadEvent_NoStream(t *testing.T) {
	h := newHarness(t)
	res, err := h.reader.ReadEvent(context.Background(), "never-written", 0)
	if err != nil {
		t.Fatalf("ReadEvent: %v", err)
	}
	if res.Status != ReadEventNoStream {
		t.Fatalf("status = %v, want NoStream", res.Status)
	}
}

func TestReadStreamEventsForward_MaxCountTruncation(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()

	for i := int64(0); i < 10; i++ {
		h.append("orders-2", i, time.Now(), []byte("e"), 0)
	}

	res, err := h.reader.ReadStreamEventsForward(ctx, "orders-2", 0, 3)
	if err != nil {
		t.Fatalf("ReadStreamEventsForward: %v", err)
	}
	if len(res.Records) != 3 {
		t.Fatalf("len(records) = %d, want 3", len(res.Records))
	}
	if res.Records[0].EventNumber != 0 || res.Records[2].EventNumber != 2 {
		t.Fatalf("unexpected event numbers: %+v", res.Records)
	}
	if res.NextEventNumber != 3 {
		t.Fatalf("next event number = %d, want 3", res.NextEventNumber)
	}
	if res.IsEndOfStream {
		t.Fatalf("IsEndOfStream = true, want false (7 events remain)")
	}
}

func TestReadEvent_SoftDeleteViaTruncateBefore(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()

	for i := int64(0); i < 5; i++ {
		h.append("orders-3", i, time.Now(), []byte("e"), 0)
	}

	tb := int64(3)
	meta := streammeta.StreamMetadata{TruncateBefore: &tb}
	metaJSON, err := json.Marshal(meta)
	if err != nil {
		t.Fatalf("marshal metadata: %v", err)
	}
	h.append("$$orders-3", 0, time.Now(), metaJSON, tflog.FlagIsJson)

	res, err := h.reader.ReadEvent(ctx, "orders-3", 1)
	if err != nil {
		t.Fatalf("ReadEvent: %v", err)
	}
	if res.Status != ReadEventNotFound {
		t.Fatalf("status = %v, want NotFound (event 1 < truncateBefore 3)", res.Status)
	}

	res, err = h.reader.ReadEvent(ctx, "orders-3", 3)
	if err != nil {
		t.Fatalf("ReadEvent: %v", err)
	}
	if res.Status != ReadEventSuccess {
		t.Fatalf("status = %v, want Success (event 3 == truncateBefore)", res.Status)
	}
}

func TestGetStreamLastEventNumber_HashCollision(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()

	// "victim" writes normally at its own hash.
	h.append("victim", 0, time.Now(), []byte("e"), 0)

	// A different stream's entries are filed under victim's hash bucket,
	// simulating a 64-bit hash collision at a higher version.
	victimHash := hashing.NameHasher("victim")
	h.appendColliding("intruder", 1, victimHash)
	h.appendColliding("intruder", 2, victimHash)

	before := h.reader.Stats().HashCollisions

	last, err := h.reader.GetStreamLastEventNumber(ctx, "victim")
	if err != nil {
		t.Fatalf("GetStreamLastEventNumber: %v", err)
	}
	if last != 0 {
		t.Fatalf("last event number = %d, want 0 (victim's only real event)", last)
	}

	after := h.reader.Stats().HashCollisions
	if after <= before {
		t.Fatalf("hash collisions did not increase: before=%d after=%d", before, after)
	}
}

func TestGetStreamMetadata_MetastreamFixedValue(t *testing.T) {
	h := newHarness(t)
	meta, err := h.reader.GetStreamMetadata(context.Background(), "$$orders-4")
	if err != nil {
		t.Fatalf("GetStreamMetadata: %v", err)
	}
	if !meta.IsEmpty() {
		t.Fatalf("metastream metadata = %+v, want the fixed empty default", meta)
	}
}

func TestGetStreamLastEventNumber_MetastreamTiedToOriginalDeletion(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()

	h.append("orders-5", 0, time.Now(), []byte("e"), 0)

	tb := streammeta.DeletedStream
	meta := streammeta.StreamMetadata{TruncateBefore: &tb}
	metaJSON, err := json.Marshal(meta)
	if err != nil {
		t.Fatalf("marshal metadata: %v", err)
	}
	h.append("$$orders-5", 0, time.Now(), metaJSON, tflog.FlagIsJson)

	// Soft-delete is encoded purely via metadata ($tb = DeletedStream);
	// resolveLastEventNumber itself doesn't special-case this, the
	// retention filter is what turns it into an empty read. Confirm the
	// metastream's own resolution is unaffected (it has one real event).
	metaLast, err := h.reader.GetStreamLastEventNumber(ctx, "$$orders-5")
	if err != nil {
		t.Fatalf("GetStreamLastEventNumber($$orders-5): %v", err)
	}
	if metaLast != 0 {
		t.Fatalf("metastream last event number = %d, want 0", metaLast)
	}

	res, err := h.reader.ReadEvent(ctx, "orders-5", 0)
	if err != nil {
		t.Fatalf("ReadEvent: %v", err)
	}
	if res.Status != ReadEventNotFound {
		t.Fatalf("status = %v, want NotFound (truncated before == DeletedStream)", res.Status)
	}
}

func TestReadStreamEventsBackward_Basic(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()

	for i := int64(0); i < 5; i++ {
		h.append("orders-6", i, time.Now(), []byte("e"), 0)
	}

	res, err := h.reader.ReadStreamEventsBackward(ctx, "orders-6", -1, 2)
	if err != nil {
		t.Fatalf("ReadStreamEventsBackward: %v", err)
	}
	if len(res.Records) != 2 {
		t.Fatalf("len(records) = %d, want 2", len(res.Records))
	}
	if res.Records[0].EventNumber != 4 || res.Records[1].EventNumber != 3 {
		t.Fatalf("unexpected descending order: %+v", res.Records)
	}
}

func TestReadPrepare_NotFoundPastLastEvent(t *testing.T) {
	h := newHarness(t)
	h.append("orders-7", 0, time.Now(), []byte("e"), 0)

	_, found, err := h.reader.ReadPrepare(context.Background(), "orders-7", 5)
	if err != nil {
		t.Fatalf("ReadPrepare: %v", err)
	}
	if found {
		t.Fatalf("found = true, want false for a version never written")
	}
}

func TestGetEventStreamIdByTransactionId(t *testing.T) {
	h := newHarness(t)
	pos := h.append("orders-8", 0, time.Now(), []byte("e"), 0)

	id, found, err := h.reader.GetEventStreamIdByTransactionId(context.Background(), pos)
	if err != nil {
		t.Fatalf("GetEventStreamIdByTransactionId: %v", err)
	}
	if !found || id != "orders-8" {
		t.Fatalf("id = %q, found = %v, want orders-8/true", id, found)
	}
}

func TestGetEffectiveAcl_MergesLayers(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()

	h.backend.SetSystemSettings(indexbackend.SystemSettings{
		UserStreamAcl: streammeta.Acl{ReadRoles: []string{"$all"}},
	})

	acl := streammeta.Acl{WriteRoles: []string{"admin"}}
	metaJSON, err := json.Marshal(streammeta.StreamMetadata{Acl: &acl})
	if err != nil {
		t.Fatalf("marshal metadata: %v", err)
	}
	h.append("orders-9", 0, time.Now(), []byte("e"), 0)
	h.append("$$orders-9", 0, time.Now(), metaJSON, tflog.FlagIsJson)

	effective, err := h.reader.GetEffectiveAcl(ctx, "orders-9")
	if err != nil {
		t.Fatalf("GetEffectiveAcl: %v", err)
	}
	merged := effective.Merge()
	if len(merged.WriteRoles) != 1 || merged.WriteRoles[0] != "admin" {
		t.Fatalf("write roles = %v, want [admin] (stream layer)", merged.WriteRoles)
	}
	if len(merged.ReadRoles) != 1 || merged.ReadRoles[0] != "$all" {
		t.Fatalf("read roles = %v, want [$all] (system layer, stream didn't set it)", merged.ReadRoles)
	}
}

func TestMaxAgeCutoff_BoundedBinarySearch(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()

	base := time.Now().Add(-48 * time.Hour)
	const expiredCount = 40
	for i := int64(0); i < expiredCount; i++ {
		h.append("orders-10", i, base.Add(time.Duration(i)*time.Second), []byte("e"), 0)
	}
	liveStart := time.Now().Add(-1 * time.Minute)
	const liveCount = 10
	for i := int64(0); i < liveCount; i++ {
		h.append("orders-10", expiredCount+i, liveStart.Add(time.Duration(i)*time.Second), []byte("e"), 0)
	}

	// MaxAge is derived from $maxAge (seconds) by ParseJSON; it carries its
	// own json:"-" tag so it is never marshaled directly.
	metaJSON := []byte(`{"$maxAge":600}`)
	h.append("$$orders-10", 0, time.Now(), metaJSON, tflog.FlagIsJson)

	res, err := h.reader.ReadStreamEventsForward(ctx, "orders-10", 0, 100)
	if err != nil {
		t.Fatalf("ReadStreamEventsForward: %v", err)
	}
	if len(res.Records) != liveCount {
		t.Fatalf("len(records) = %d, want %d (only unexpired events)", len(res.Records), liveCount)
	}
	if res.Records[0].EventNumber != expiredCount {
		t.Fatalf("first surviving event number = %d, want %d", res.Records[0].EventNumber, expiredCount)
	}
}

// TestMaxAgeCutoff_WindowEntirelyExpired exercises scenario D (base spec
// §8): a read window that is small and falls entirely inside the expired
// prefix must return zero records and a nextEventNumber advanced to the
// cutoff, never events from past the requested window.
func TestMaxAgeCutoff_WindowEntirelyExpired(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()

	base := time.Now().Add(-48 * time.Hour)
	const expiredCount = 40
	for i := int64(0); i < expiredCount; i++ {
		h.append("orders-11", i, base.Add(time.Duration(i)*time.Second), []byte("e"), 0)
	}
	liveStart := time.Now().Add(-1 * time.Minute)
	const liveCount = 10
	for i := int64(0); i < liveCount; i++ {
		h.append("orders-11", expiredCount+i, liveStart.Add(time.Duration(i)*time.Second), []byte("e"), 0)
	}

	metaJSON := []byte(`{"$maxAge":600}`)
	h.append("$$orders-11", 0, time.Now(), metaJSON, tflog.FlagIsJson)

	res, err := h.reader.ReadStreamEventsForward(ctx, "orders-11", 0, 5)
	if err != nil {
		t.Fatalf("ReadStreamEventsForward: %v", err)
	}
	if len(res.Records) != 0 {
		t.Fatalf("len(records) = %d, want 0 (window [0,4] is entirely expired)", len(res.Records))
	}
	if res.NextEventNumber != expiredCount {
		t.Fatalf("next event number = %d, want %d (the cutoff, so the caller can retry)", res.NextEventNumber, expiredCount)
	}
	if res.IsEndOfStream {
		t.Fatalf("IsEndOfStream = true, want false (live events remain past the cutoff)")
	}
}
