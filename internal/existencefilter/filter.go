// Cartographus - Media Server Analytics and Geographic Visualization
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/cartographus

// Package existencefilter implements the probabilistic stream-existence
// filter (base spec §2.2): "definitely absent" vs "possibly present"
// membership over stream hashes or names, with a persisted checkpoint
// tracking how far into the log it has been populated. The bit-array
// design mirrors the teacher's internal/cache BloomFilter, generalized
// from string deduplication keys to stream identifiers and backed by a
// durable checkpoint instead of being purely in-memory.
package existencefilter

import (
	"hash/fnv"
	"sync"
)

// Filter answers "definitely absent" (false) or "possibly present" (true)
// for a stream hash or name (base spec §2.2). No false negatives; false
// positives are possible and expected -- a possibly-present answer must be
// verified against the table index.
type Filter struct {
	mu      sync.RWMutex
	bits    []uint64
	size    uint64
	hashFns int
	count   int
}

// New creates a filter sized for expectedItems at the given false-positive
// rate, using the same m/k sizing formula as the teacher's BloomFilter:
//
//	m = -n*ln(p) / ln(2)^2, k = (m/n)*ln(2)
func New(expectedItems int64, falsePositiveRate float64) *Filter {
	if expectedItems <= 0 {
		expectedItems = 1_000_000
	}
	if falsePositiveRate <= 0 || falsePositiveRate >= 1 {
		falsePositiveRate = 0.01
	}

	const ln2Squared = 0.693147 * 0.693147
	lnP := approximateLn(falsePositiveRate)

	m := int64(-float64(expectedItems) * lnP / ln2Squared)
	if m < 64 {
		m = 64
	}
	k := int(float64(m) / float64(expectedItems) * 0.693147)
	if k < 1 {
		k = 1
	}
	if k > 10 {
		k = 10
	}

	words := (m + 63) / 64
	return &Filter{
		bits:    make([]uint64, words),
		size:    uint64(words * 64),
		hashFns: k,
	}
}

// Add records a stream key (hash-as-string for format A numeric-hash keys,
// or the raw name for format B) as present.
func (f *Filter) Add(key string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, h := range f.hashesLocked(key) {
		idx := h % f.size
		f.bits[idx/64] |= 1 << (idx % 64)
	}
	f.count++
}

// MightContain reports whether key has possibly been added. false is
// authoritative ("definitely absent"); true requires verification.
func (f *Filter) MightContain(key string) bool {
	f.mu.RLock()
	defer f.mu.RUnlock()
	for _, h := range f.hashesLocked(key) {
		idx := h % f.size
		if f.bits[idx/64]&(1<<(idx%64)) == 0 {
			return false
		}
	}
	return true
}

// Count returns the number of Add calls (may include duplicates; the
// filter tolerates them, base spec §4.9).
func (f *Filter) Count() int {
	f.mu.RLock()
	defer f.mu.RUnlock()
	return f.count
}

func (f *Filter) hashesLocked(key string) []uint64 {
	h1 := fnv.New64a()
	_, _ = h1.Write([]byte(key))
	hash1 := h1.Sum64()

	h2 := fnv.New64()
	_, _ = h2.Write([]byte(key))
	_, _ = h2.Write([]byte{0xff})
	hash2 := h2.Sum64()

	hashes := make([]uint64, f.hashFns)
	for i := 0; i < f.hashFns; i++ {
		hashes[i] = hash1 + uint64(i)*hash2
	}
	return hashes
}

func approximateLn(x float64) float64 {
	switch {
	case x >= 0.1:
		return -2.303
	case x >= 0.05:
		return -2.996
	case x >= 0.01:
		return -4.605
	case x >= 0.005:
		return -5.298
	case x >= 0.001:
		return -6.908
	default:
		return -9.210
	}
}
