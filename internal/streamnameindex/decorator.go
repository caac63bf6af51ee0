// Cartographus - Media Server Analytics and Geographic Visualization
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/cartographus

package streamnameindex

import (
	"context"
	"strings"

	"github.com/tomtom215/streamindex/internal/existencefilter"
)

// ExistenceFiltered wraps an Index with a stream-existence filter
// fast-path: IDFor delegates to the inner index and records every name it
// resolves in the filter, and MightExist answers from the filter alone
// without touching the (possibly slower) persisted map, matching base spec
// §9's "decorator stacking" design -- a fixed, monomorphized composition
// rather than virtual dispatch in the hot path.
type ExistenceFiltered struct {
	inner  Index
	filter *existencefilter.Filter
}

// NewExistenceFiltered composes inner behind an existence-filter check.
func NewExistenceFiltered(inner Index, filter *existencefilter.Filter) *ExistenceFiltered {
	return &ExistenceFiltered{inner: inner, filter: filter}
}

func (e *ExistenceFiltered) IDFor(ctx context.Context, name string) (uint32, error) {
	id, err := e.inner.IDFor(ctx, name)
	if err == nil {
		e.filter.Add(name)
	}
	return id, err
}

func (e *ExistenceFiltered) NameFor(ctx context.Context, id uint32) (string, bool) {
	return e.inner.NameFor(ctx, id)
}

func (e *ExistenceFiltered) Enumerate(yield func(string, uint32) bool) {
	e.inner.Enumerate(yield)
}

// MightExist answers the filter's fast-path question directly, without
// resolving an id: false is authoritative ("definitely absent").
func (e *ExistenceFiltered) MightExist(name string) bool {
	return e.filter.MightContain(name)
}

const metastreamPrefix = "$$"

// Metastream wraps an Index to recognize the "$$"-prefix naming convention
// at the name layer and translate it to the corresponding metastream id at
// the id layer (base spec §4.8): IDFor("$$X") returns MetastreamID(id of
// "X"), without ever persisting a separate binding for "$$X" itself.
type Metastream struct {
	inner Index
}

// NewMetastream composes inner behind metastream-name translation.
func NewMetastream(inner Index) *Metastream {
	return &Metastream{inner: inner}
}

func (m *Metastream) IDFor(ctx context.Context, name string) (uint32, error) {
	if original, ok := strings.CutPrefix(name, metastreamPrefix); ok {
		origID, err := m.inner.IDFor(ctx, original)
		if err != nil {
			return 0, err
		}
		return MetastreamID(origID), nil
	}
	return m.inner.IDFor(ctx, name)
}

func (m *Metastream) NameFor(ctx context.Context, id uint32) (string, bool) {
	if IsMetastreamID(id) {
		name, ok := m.inner.NameFor(ctx, id-1)
		if !ok {
			return "", false
		}
		return metastreamPrefix + name, true
	}
	return m.inner.NameFor(ctx, id)
}

func (m *Metastream) Enumerate(yield func(string, uint32) bool) {
	m.inner.Enumerate(func(name string, id uint32) bool {
		if !yield(name, id) {
			return false
		}
		return yield(metastreamPrefix+name, MetastreamID(id))
	})
}

var _ Index = (*ExistenceFiltered)(nil)
var _ Index = (*Metastream)(nil)
