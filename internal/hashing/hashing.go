// Cartographus - Media Server Analytics and Geographic Visualization
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/cartographus

// Package hashing combines two independent 32-bit hash functions into the
// 64-bit stream hash used as the table index's primary key (base spec §2.1,
// §3). Two unrelated hash families are deliberately used instead of one
// 64-bit hash split in half: that would make the two "halves" perfectly
// correlated, defeating the collision-spreading the index relies on.
package hashing

import (
	"github.com/cespare/xxhash/v2"
	"github.com/zeebo/xxh3"
)

// StreamHash combines a high and low 32-bit half into the 64-bit key used
// by the table index, matching base spec §3's `(high<<32 | low)` layout.
func StreamHash(high, low uint32) uint64 {
	return uint64(high)<<32 | uint64(low)
}

// NameHasher derives the 64-bit stream hash for a string stream id (format
// A) from two independent 32-bit-truncated hashes: the top 32 bits of
// xxhash64 and the top 32 bits of XXH3-64 over a distinct salt. Using two
// different algorithm families, rather than splitting one 64-bit hash in
// half, keeps the high/low halves independent so collisions in one half
// don't imply collisions in the other.
func NameHasher(name string) uint64 {
	high := uint32(xxhash.Sum64String(name) >> 32)
	low := uint32(xxh3.HashString(name+"\x00low") >> 32)
	return StreamHash(high, low)
}

// IdentityHasher is the hasher used for numeric stream ids (format B,
// base spec §2.1): the id already *is* the index key, zero-extended to 64
// bits, so no collision correction is meaningfully possible for two
// distinct numeric ids (they only "collide" with themselves).
func IdentityHasher(id uint32) uint64 {
	return uint64(id)
}
