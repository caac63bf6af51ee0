// Cartographus - Media Server Analytics and Geographic Visualization
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/cartographus

package existencefilter

import (
	"encoding/binary"
	"fmt"

	"github.com/dgraph-io/badger/v4"
)

// checkpointKey is the single key under which the filter's "populated up
// to this log position" checkpoint is persisted, matching the fixed layout
// base spec §6 names: <indexDir>/stream-existence/*.
var checkpointKey = []byte("stream-existence/checkpoint")

// Checkpoint persists the log position up to which the filter has been
// populated, the same way the teacher's BadgerWAL persists entries: one
// small Badger database per component, fsync governed by the caller's
// durability requirements.
type Checkpoint struct {
	db *badger.DB
}

// OpenCheckpoint opens (or creates) the Badger-backed checkpoint store at
// path. Pass inMemory=true for ephemeral/test stores (base spec §6
// config: inMemory).
func OpenCheckpoint(path string, inMemory bool) (*Checkpoint, error) {
	opts := badger.DefaultOptions(path)
	opts.Logger = nil
	if inMemory {
		opts = opts.WithInMemory(true)
	}

	db, err := badger.Open(opts)
	if err != nil {
		return nil, fmt.Errorf("existencefilter: open checkpoint store: %w", err)
	}
	return &Checkpoint{db: db}, nil
}

// Read returns the persisted checkpoint, or -1 if none has been written
// yet (base spec §6: "Read() -> i64 (monotonic)").
func (c *Checkpoint) Read() (int64, error) {
	var pos int64 = -1
	err := c.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get(checkpointKey)
		if err != nil {
			if err == badger.ErrKeyNotFound {
				return nil
			}
			return err
		}
		return item.Value(func(val []byte) error {
			if len(val) != 8 {
				return fmt.Errorf("existencefilter: corrupt checkpoint value (%d bytes)", len(val))
			}
			pos = int64(binary.BigEndian.Uint64(val))
			return nil
		})
	})
	if err != nil {
		return -1, fmt.Errorf("existencefilter: read checkpoint: %w", err)
	}
	return pos, nil
}

// Write persists position as the new checkpoint. The checkpoint is
// monotonic by convention of the caller (the initializer never regresses
// it); this method does not itself enforce monotonicity.
func (c *Checkpoint) Write(position int64) error {
	buf := make([]byte, 8)
	binary.BigEndian.PutUint64(buf, uint64(position))
	err := c.db.Update(func(txn *badger.Txn) error {
		return txn.Set(checkpointKey, buf)
	})
	if err != nil {
		return fmt.Errorf("existencefilter: write checkpoint: %w", err)
	}
	return nil
}

// Close closes the underlying Badger database.
func (c *Checkpoint) Close() error {
	return c.db.Close()
}
