// Cartographus - Media Server Analytics and Geographic Visualization
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/cartographus

// Package streamnameindex implements the stream-name -> stream-id mapping
// used by format B (numeric stream ids, base spec §4.8). Format A (string
// ids) needs no mapping: names are their own ids, modeled here as the
// Identity index so callers can depend on one Index interface regardless
// of format.
package streamnameindex

import (
	"context"
	"encoding/binary"
	"errors"
	"fmt"
	"strings"
	"sync"

	"github.com/dgraph-io/badger/v4"
)

// ErrImmutableBinding is returned when a caller attempts to rebind a name
// to a different id than the one already recorded (base spec §3 invariant:
// "once a (name -> id) binding exists it is immutable").
var ErrImmutableBinding = errors.New("streamnameindex: binding is immutable once established")

// Index resolves between stream names and stream ids. For format A this is
// the identity; for format B it is a persisted bidirectional mapping.
type Index interface {
	// IDFor resolves name to its stream id, allocating a fresh one via the
	// configured sequence if name has never been seen.
	IDFor(ctx context.Context, name string) (uint32, error)
	// NameFor resolves id back to its name, if known.
	NameFor(ctx context.Context, id uint32) (string, bool)
	// Enumerate yields every known (name, id) binding, used by the
	// stream-existence filter initializer in format-B mode (base spec
	// §4.9).
	Enumerate(yield func(name string, id uint32) bool)
}

// Identity is the format-A placeholder Index: IDFor returns 0 for every
// name, NameFor finds nothing and Enumerate yields nothing. In format A
// names are their own ids, so the index reader keys everything off the
// string name and never consults the Index; Identity only fills that slot.
type Identity struct{}

func (Identity) IDFor(_ context.Context, _ string) (uint32, error) { return 0, nil }
func (Identity) NameFor(_ context.Context, _ uint32) (string, bool) { return "", false }
func (Identity) Enumerate(func(string, uint32) bool)                {}

// Sequence allocates stream ids as firstValue + k*interval (base spec
// §4.8). Metastream ids are derived by adding 1 to the original stream's
// id, so the metastream flag is encoded in the low bit -- Sequence
// allocates only even ids, leaving that bit free, when firstValue and
// interval are both even; it does not check either value.
type Sequence struct {
	mu         sync.Mutex
	next       uint32
	firstValue uint32
	interval   uint32
}

// NewSequence creates an id allocator. interval should be even so that
// id+1 (the metastream id) never collides with another original stream id.
func NewSequence(firstValue, interval uint32) *Sequence {
	if interval == 0 {
		interval = 2
	}
	return &Sequence{next: firstValue, firstValue: firstValue, interval: interval}
}

// Next allocates and returns the next original-stream id.
func (s *Sequence) Next() uint32 {
	s.mu.Lock()
	defer s.mu.Unlock()
	id := s.next
	s.next += s.interval
	return id
}

// MetastreamID derives a metastream's id from its original stream's id
// (base spec §4.8: "adding 1").
func MetastreamID(originalID uint32) uint32 { return originalID + 1 }

// IsMetastreamID reports whether id's low bit marks it as a metastream id.
func IsMetastreamID(id uint32) bool { return id&1 == 1 }

var (
	nameToIDPrefix = []byte("n2i:")
	idToNamePrefix = []byte("i2n:")
)

// Persistent is the format-B persisted name->id index, backed by Badger
// the same way the teacher's WAL persists entries (base spec §6:
// "<indexDir>/stream-name-index/*, log-structured, format B only").
type Persistent struct {
	db  *badger.DB
	seq *Sequence
}

// OpenPersistent opens (or creates) the persisted name index at path.
func OpenPersistent(path string, inMemory bool, seq *Sequence) (*Persistent, error) {
	opts := badger.DefaultOptions(path)
	opts.Logger = nil
	if inMemory {
		opts = opts.WithInMemory(true)
	}
	db, err := badger.Open(opts)
	if err != nil {
		return nil, fmt.Errorf("streamnameindex: open: %w", err)
	}
	return &Persistent{db: db, seq: seq}, nil
}

// IDFor resolves name to its id, allocating and durably recording a fresh
// one if name is unseen. Once recorded, a binding never changes (base spec
// §3 invariant).
func (p *Persistent) IDFor(_ context.Context, name string) (uint32, error) {
	if id, ok := p.lookupByName(name); ok {
		return id, nil
	}

	id := p.seq.Next()
	err := p.db.Update(func(txn *badger.Txn) error {
		// Re-check under the write transaction to avoid a racing double
		// allocation for the same name.
		if existing, err := txn.Get(nameKey(name)); err == nil {
			return existing.Value(func(val []byte) error {
				id = binary.BigEndian.Uint32(val)
				return nil
			})
		} else if !errors.Is(err, badger.ErrKeyNotFound) {
			return err
		}

		idBuf := make([]byte, 4)
		binary.BigEndian.PutUint32(idBuf, id)
		if err := txn.Set(nameKey(name), idBuf); err != nil {
			return err
		}
		return txn.Set(idKey(id), []byte(name))
	})
	if err != nil {
		return 0, fmt.Errorf("streamnameindex: allocate id for %q: %w", name, err)
	}
	return id, nil
}

func (p *Persistent) lookupByName(name string) (uint32, bool) {
	var id uint32
	found := false
	_ = p.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get(nameKey(name))
		if err != nil {
			return nil
		}
		found = true
		return item.Value(func(val []byte) error {
			id = binary.BigEndian.Uint32(val)
			return nil
		})
	})
	return id, found
}

// NameFor resolves id back to its name via the reverse mapping.
func (p *Persistent) NameFor(_ context.Context, id uint32) (string, bool) {
	var name string
	found := false
	_ = p.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get(idKey(id))
		if err != nil {
			return nil
		}
		found = true
		return item.Value(func(val []byte) error {
			name = string(val)
			return nil
		})
	})
	return name, found
}

// Enumerate yields every (name, id) binding in the persisted index.
func (p *Persistent) Enumerate(yield func(name string, id uint32) bool) {
	_ = p.db.View(func(txn *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.PrefetchValues = true
		it := txn.NewIterator(opts)
		defer it.Close()

		for it.Seek(nameToIDPrefix); it.ValidForPrefix(nameToIDPrefix); it.Next() {
			item := it.Item()
			name := strings.TrimPrefix(string(item.Key()), string(nameToIDPrefix))
			var id uint32
			if err := item.Value(func(val []byte) error {
				id = binary.BigEndian.Uint32(val)
				return nil
			}); err != nil {
				continue
			}
			if !yield(name, id) {
				return nil
			}
		}
		return nil
	})
}

// Close closes the underlying Badger database.
func (p *Persistent) Close() error { return p.db.Close() }

func nameKey(name string) []byte { return append(append([]byte{}, nameToIDPrefix...), name...) }
func idKey(id uint32) []byte {
	buf := make([]byte, 4)
	binary.BigEndian.PutUint32(buf, id)
	return append(append([]byte{}, idToNamePrefix...), buf...)
}

var _ Index = (*Identity)(nil)
var _ Index = (*Persistent)(nil)
