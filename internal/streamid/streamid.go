// Cartographus - Media Server Analytics and Geographic Visualization
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/cartographus

// Package streamid defines the two concrete stream-identifier formats the
// index reader supports (string names and 32-bit numeric ids) behind a
// single capability set, so the hot read path never needs dynamic dispatch
// to know how to hash, validate, or size a stream id.
package streamid

import "errors"

// ErrEmpty is returned by Validate when a stream id is the format's empty
// sentinel (the empty string, or 0 for numeric ids).
var ErrEmpty = errors.New("streamid: empty stream identifier")

// Format identifies which concrete stream-id representation an Index is
// using. A given Index instance is fixed to one format for its lifetime.
type Format int

const (
	// FormatString is format A: stream ids are their own names, and the
	// stream-name index (§4.8) is a no-op identity mapping.
	FormatString Format = iota
	// FormatNumeric is format B: stream ids are 32-bit unsigned integers
	// allocated from an arithmetic sequence, backed by a persistent
	// name -> id index.
	FormatNumeric
)

// String renders Format for logging and config round-tripping.
func (f Format) String() string {
	if f == FormatNumeric {
		return "numeric"
	}
	return "string"
}

// Codec is the capability set a pluggable stream-id format must provide.
// It is a generic struct instantiated per id type (Codec[string] for
// format A, Codec[uint32] for format B) rather than one
// dynamically-dispatched interface value reused per-call on the hot path;
// this package defines no ready-made instances.
type Codec[T comparable] struct {
	// Format reports which concrete representation this codec implements.
	Format Format

	// Empty is the format's empty sentinel value.
	Empty T

	// Validate returns ErrEmpty if id is the format's empty sentinel.
	// Validate func(T) error

	// Hash derives the 64-bit stream hash for id. For FormatNumeric,
	// this is the identity hasher (§2.1): the numeric id *is* the hash
	// key, so collisions only occur when two distinct ids happen to
	// share low/high halves, which numeric allocation never does.
	Hash func(T) uint64

	// Size reports the on-the-wire byte size of id, used by callers
	// that need to budget persisted index-entry sizes.
	Size func(T) int
}

// Validate reports whether id is the format's empty sentinel.
func Validate[T comparable](c Codec[T], id T) error {
	if id == c.Empty {
		return ErrEmpty
	}
	return nil
}
