// Cartographus - Media Server Analytics and Geographic Visualization
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/cartographus

// Package indexbackend is the versioned two-map cache the index reader
// consults before falling back to the table index (base spec §2.6, §3,
// §5). Keys are stream names; values are compare-and-swapped against a
// monotonically increasing generation so the write/commit pipeline -- the
// source of truth -- always wins a race against a reader's cache refresh.
package indexbackend

import (
	"sync"

	"github.com/tomtom215/streamindex/internal/streammeta"
)

// Slot holds one cached value plus the generation it was written at
// (base spec §3, §5, §9).
type Slot[T any] struct {
	Value      T
	Generation int64
}

// versionedMap is a generic compare-and-swap map: Get returns the current
// generation alongside the value so callers can race UpdateIfVersionMatches
// against it; concurrent writers lose cleanly rather than corrupting state.
type versionedMap[T any] struct {
	mu   sync.RWMutex
	data map[string]Slot[T]
}

func newVersionedMap[T any]() *versionedMap[T] {
	return &versionedMap[T]{data: make(map[string]Slot[T])}
}

// TryGet returns the current generation and value for key, if cached.
func (m *versionedMap[T]) TryGet(key string) (Slot[T], bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	s, ok := m.data[key]
	return s, ok
}

// UpdateIfVersionMatches performs the CAS described in base spec §5 and
// §9: if the stored generation still matches expectedGen (or the key is
// absent and expectedGen is 0), the new value is installed at
// expectedGen+1 and newValue is returned. Otherwise the update is dropped
// and the currently-stored (authoritative, likely commit-pipeline-written)
// value is returned.
func (m *versionedMap[T]) UpdateIfVersionMatches(key string, expectedGen int64, newValue T) T {
	m.mu.Lock()
	defer m.mu.Unlock()

	current, exists := m.data[key]
	if !exists && expectedGen == 0 {
		m.data[key] = Slot[T]{Value: newValue, Generation: 1}
		return newValue
	}
	if exists && current.Generation == expectedGen {
		m.data[key] = Slot[T]{Value: newValue, Generation: current.Generation + 1}
		return newValue
	}
	// Lost the race: someone else (typically the commit pipeline) already
	// moved the generation forward. Their value wins.
	return current.Value
}

// Bump unconditionally advances a key's generation and installs value,
// as the commit/write pipeline does on every write (base spec §3, §5).
func (m *versionedMap[T]) Bump(key string, value T) {
	m.mu.Lock()
	defer m.mu.Unlock()
	current := m.data[key]
	m.data[key] = Slot[T]{Value: value, Generation: current.Generation + 1}
}

// SystemSettings holds the system-wide default ACL the reader falls back
// to in §4.7's three-layer assembly (base spec §2.6).
type SystemSettings struct {
	UserStreamAcl   streammeta.Acl
	SystemStreamAcl streammeta.Acl
}

// Backend is the versioned cache plus system settings the index reader
// treats as its one piece of owned mutable state (base spec §5).
type Backend struct {
	lastEventNumbers *versionedMap[int64]
	metadata         *versionedMap[streammeta.StreamMetadata]

	mu       sync.RWMutex
	settings SystemSettings
}

// New creates an empty backend with the given initial system settings.
func New(settings SystemSettings) *Backend {
	return &Backend{
		lastEventNumbers: newVersionedMap[int64](),
		metadata:         newVersionedMap[streammeta.StreamMetadata](),
		settings:         settings,
	}
}

// TryGetStreamLastEventNumber returns (generation, value, found) for the
// cached last-event-number of stream.
func (b *Backend) TryGetStreamLastEventNumber(stream string) (int64, int64, bool) {
	s, ok := b.lastEventNumbers.TryGet(stream)
	return s.Generation, s.Value, ok
}

// UpdateStreamLastEventNumber performs the CAS update for the
// last-event-number cache; returns the winning value (base spec §6).
func (b *Backend) UpdateStreamLastEventNumber(stream string, expectedGen int64, value int64) int64 {
	return b.lastEventNumbers.UpdateIfVersionMatches(stream, expectedGen, value)
}

// CommitStreamLastEventNumber is the write-pipeline-side unconditional
// bump; the commit pipeline always wins (base spec §5).
func (b *Backend) CommitStreamLastEventNumber(stream string, value int64) {
	b.lastEventNumbers.Bump(stream, value)
}

// TryGetStreamMetadata returns (generation, value, found) for the cached
// metadata of stream.
func (b *Backend) TryGetStreamMetadata(stream string) (int64, streammeta.StreamMetadata, bool) {
	s, ok := b.metadata.TryGet(stream)
	return s.Generation, s.Value, ok
}

// UpdateStreamMetadata performs the CAS update for the metadata cache;
// returns the winning value.
func (b *Backend) UpdateStreamMetadata(stream string, expectedGen int64, value streammeta.StreamMetadata) streammeta.StreamMetadata {
	return b.metadata.UpdateIfVersionMatches(stream, expectedGen, value)
}

// CommitStreamMetadata is the write-pipeline-side unconditional bump.
func (b *Backend) CommitStreamMetadata(stream string, value streammeta.StreamMetadata) {
	b.metadata.Bump(stream, value)
}

// GetSystemSettings returns the current default ACLs (base spec §6).
func (b *Backend) GetSystemSettings() SystemSettings {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return b.settings
}

// SetSystemSettings updates the default ACLs.
func (b *Backend) SetSystemSettings(s SystemSettings) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.settings = s
}
