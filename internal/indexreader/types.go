// Cartographus - Media Server Analytics and Geographic Visualization
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/cartographus

// Package indexreader implements the stream index read path (base spec
// §4.1): last-event-number and metadata resolution, retention filtering,
// the bounded MaxAge binary search, ACL assembly, and the narrow set of
// operations every other component reads through.
package indexreader

import (
	"github.com/tomtom215/streamindex/internal/streammeta"
	"github.com/tomtom215/streamindex/internal/tflog"
)

// ReadEventStatus is the outcome of ReadEvent (base spec §4.1).
type ReadEventStatus int

const (
	ReadEventSuccess ReadEventStatus = iota
	ReadEventNotFound
	ReadEventNoStream
	ReadEventStreamDeleted
)

// EventRecord is one resolved event (base spec §3's PrepareRecord, as seen
// through the reader).
type EventRecord struct {
	EventNumber int64
	Data        []byte
	Metadata    []byte
	Timestamp   int64 // unix nanos
	IsJSON      bool
}

func fromPrepare(p tflog.PrepareRecord) EventRecord {
	return EventRecord{
		EventNumber: p.EventNumber,
		Data:        p.Data,
		Metadata:    p.Metadata,
		Timestamp:   p.Timestamp.UnixNano(),
		IsJSON:      p.Flags.Has(tflog.FlagIsJson),
	}
}

// ReadEventResult is ReadEvent's return value.
type ReadEventResult struct {
	Status               ReadEventStatus
	Record               EventRecord
	Metadata             streammeta.StreamMetadata
	LastEventNumber      int64
	OriginalStreamExists bool
}

// ReadStreamResult is the return value of ReadStreamEventsForward/Backward
// (base spec §4.1).
type ReadStreamResult struct {
	Status          ReadEventStatus
	Records         []EventRecord
	NextEventNumber int64
	LastEventNumber int64
	IsEndOfStream   bool
}

// Stats is a point-in-time snapshot of the reader's atomic counters
// (base spec §5, §9's "Stats()-style snapshot").
type Stats struct {
	CachedStreamInfo    int64
	NotCachedStreamInfo int64
	HashCollisions      int64
}
