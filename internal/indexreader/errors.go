// Cartographus - Media Server Analytics and Geographic Visualization
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/cartographus

package indexreader

import "errors"

// Argument errors (base spec §7): programmer error, the call aborts.
var (
	ErrEmptyStream         = errors.New("indexreader: stream name must not be empty")
	ErrNegativeEventNumber = errors.New("indexreader: event number must be >= -1")
	ErrNonPositiveMaxCount = errors.New("indexreader: maxCount must be > 0")
)

// ErrIntegrityViolation is returned when the index points at a position
// that does not contain a prepare, or a metastream has a last-event-number
// but its prepare is missing (base spec §7): the store's integrity is
// violated and the error propagates rather than being swallowed.
var ErrIntegrityViolation = errors.New("indexreader: integrity violation")
