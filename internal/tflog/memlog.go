// Cartographus - Media Server Analytics and Geographic Visualization
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/cartographus

package tflog

import (
	"context"
	"sync"
)

// MemLog is an in-memory, append-only transaction-file log reference
// implementation. It exists to exercise the index reader in tests; the
// real TF log's durability and compaction are out of scope (base spec §1).
// Log positions are simply slice indices.
type MemLog struct {
	mu      sync.RWMutex
	records []PrepareRecord
}

// NewMemLog creates an empty log.
func NewMemLog() *MemLog { return &MemLog{} }

// Append writes a record and returns its assigned log position.
func (m *MemLog) Append(r PrepareRecord) int64 {
	m.mu.Lock()
	defer m.mu.Unlock()
	r.LogPosition = int64(len(m.records))
	m.records = append(m.records, r)
	return r.LogPosition
}

// Len reports the number of records appended so far.
func (m *MemLog) Len() int64 {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return int64(len(m.records))
}

// NewReader returns a Factory-compatible constructor producing Readers
// bound to this log, suitable for tflog.NewPool.
func (m *MemLog) NewReader() (Reader, error) {
	return &memReader{log: m}, nil
}

type memReader struct {
	log *MemLog
	pos int64
}

func (r *memReader) TryReadAt(_ context.Context, position int64) (ReadResult, error) {
	r.log.mu.RLock()
	defer r.log.mu.RUnlock()
	if position < 0 || position >= int64(len(r.log.records)) {
		return ReadResult{}, nil
	}
	return ReadResult{Success: true, Record: r.log.records[position]}, nil
}

func (r *memReader) TryReadNext(_ context.Context) (NextReadResult, error) {
	r.log.mu.RLock()
	defer r.log.mu.RUnlock()
	if r.pos >= int64(len(r.log.records)) {
		return NextReadResult{}, nil
	}
	rec := r.log.records[r.pos]
	r.pos++
	return NextReadResult{Success: true, Record: rec, PostPosition: r.pos}, nil
}

func (r *memReader) Reposition(position int64) {
	r.pos = position
}
