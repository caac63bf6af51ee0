// Cartographus - Media Server Analytics and Geographic Visualization
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/cartographus

// Package tflog defines the transaction-file log records and the reader-pool
// contract the index reader consumes (base spec §6). The log itself --
// durability, crash recovery, compaction -- is out of scope (base spec §1);
// this package only models the records and the narrow lease interface the
// reader borrows against.
package tflog

import "time"

// RecordVersion distinguishes legacy (v0) log records from the current
// format. v0 records encode a deleted truncate-before as int32 max rather
// than the DeletedStream sentinel (base spec §4.3) and must be remapped by
// the metadata resolver.
type RecordVersion uint8

const (
	LogRecordV0 RecordVersion = 0
	LogRecordV1 RecordVersion = 1
)

// Flags is a bitset of Prepare record flags (base spec §3).
type Flags uint16

const (
	FlagIsCommitted Flags = 1 << iota
	FlagIsJson
)

// Has reports whether f contains all bits of want.
func (f Flags) Has(want Flags) bool { return f&want == want }

// PrepareRecord is an immutable record carrying one event's payload
// (base spec §3).
type PrepareRecord struct {
	LogPosition         int64
	EventStreamID       string
	EventNumber         int64 // aka "version"
	Timestamp           time.Time
	Flags               Flags
	Data                []byte
	Metadata            []byte
	TransactionPosition int64
	RecordVersion       RecordVersion
}

// CommitRecord anchors a transaction's prepares at a final event number
// (base spec §3).
type CommitRecord struct {
	LogPosition         int64
	TransactionPosition int64
	FirstEventNumber    int64
}

// ReadResult is the outcome of a positional log read.
type ReadResult struct {
	Success bool
	Record  PrepareRecord
}

// NextReadResult additionally carries the position just past the record
// read, for sequential enumeration (base spec §4.9, §6).
type NextReadResult struct {
	Success      bool
	Record       PrepareRecord
	PostPosition int64
}
