// Cartographus - Media Server Analytics and Geographic Visualization
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/cartographus

// Package streammeta defines the retention/ACL metadata attached to a
// stream via its metastream (base spec §3, §6) and the system-stream
// naming conventions ($$ prefix, $-prefixed system streams).
package streammeta

import (
	"strings"
	"time"

	json "github.com/goccy/go-json"
)

// Acl is one layer of an access-control list. Fields left nil mean "not
// specified at this layer"; the reader never evaluates these, only merges
// them (base spec §1 Non-goals, §4.7).
type Acl struct {
	ReadRoles      []string `json:"$r,omitempty"`
	WriteRoles     []string `json:"$w,omitempty"`
	DeleteRoles    []string `json:"$d,omitempty"`
	MetaReadRoles  []string `json:"$mr,omitempty"`
	MetaWriteRoles []string `json:"$mw,omitempty"`
}

// IsZero reports whether every field of the ACL layer is unset.
func (a Acl) IsZero() bool {
	return len(a.ReadRoles) == 0 && len(a.WriteRoles) == 0 && len(a.DeleteRoles) == 0 &&
		len(a.MetaReadRoles) == 0 && len(a.MetaWriteRoles) == 0
}

// EffectiveAcl is the three-layer result of §4.7's assembly, returned as a
// triple so callers can reason about which layer supplied each field.
type EffectiveAcl struct {
	Stream   Acl
	System   Acl
	Default  Acl
}

// Merge combines the three layers, first non-empty field wins per field,
// stream ACL having highest priority (base spec §4.7).
func (e EffectiveAcl) Merge() Acl {
	var out Acl
	out.ReadRoles = firstNonEmpty(e.Stream.ReadRoles, e.System.ReadRoles, e.Default.ReadRoles)
	out.WriteRoles = firstNonEmpty(e.Stream.WriteRoles, e.System.WriteRoles, e.Default.WriteRoles)
	out.DeleteRoles = firstNonEmpty(e.Stream.DeleteRoles, e.System.DeleteRoles, e.Default.DeleteRoles)
	out.MetaReadRoles = firstNonEmpty(e.Stream.MetaReadRoles, e.System.MetaReadRoles, e.Default.MetaReadRoles)
	out.MetaWriteRoles = firstNonEmpty(e.Stream.MetaWriteRoles, e.System.MetaWriteRoles, e.Default.MetaWriteRoles)
	return out
}

func firstNonEmpty(layers ...[]string) []string {
	for _, l := range layers {
		if len(l) > 0 {
			return l
		}
	}
	return nil
}

// DeletedStream is the sentinel last-event-number for a soft-deleted
// stream (base spec §3). Also used as the $tb value meaning "delete".
const DeletedStream int64 = 1<<63 - 1

// NoStream is the sentinel last-event-number for a stream with no writes.
const NoStream int64 = -1

// Invalid is the sentinel returned when the hash-collision budget is
// exhausted without resolving a last-event-number (base spec §3, §4.2).
const Invalid int64 = -2

// legacyTruncateBeforeDeleted is the v0 log record encoding of "deleted"
// (int32 max), remapped to DeletedStream by metadata resolution
// (base spec §4.3).
const legacyTruncateBeforeDeleted int64 = 1<<31 - 1

// StreamMetadata is the value type parsed from a metastream's JSON payload
// (base spec §3, §6).
type StreamMetadata struct {
	MaxCount       *int64         `json:"$maxCount,omitempty"`
	MaxAge         *time.Duration `json:"-"`
	MaxAgeSeconds  *int64         `json:"$maxAge,omitempty"`
	TruncateBefore *int64         `json:"$tb,omitempty"`
	CacheControl   *time.Duration `json:"-"`
	CacheControlSeconds *int64    `json:"$cacheControl,omitempty"`
	Acl            *Acl           `json:"$acl,omitempty"`
	TempStream     bool           `json:"$tempStream,omitempty"`
}

// Empty is the all-None StreamMetadata instance.
var Empty = StreamMetadata{}

// IsEmpty reports whether m carries no retention/ACL information.
func (m StreamMetadata) IsEmpty() bool {
	return m.MaxCount == nil && m.MaxAgeSeconds == nil && m.TruncateBefore == nil &&
		m.CacheControlSeconds == nil && m.Acl == nil && !m.TempStream
}

// ParseJSON decodes a metastream event payload into StreamMetadata.
// Any parse failure yields Empty rather than an error: metadata
// resolution favors availability over strictness (base spec §4.3, §7).
func ParseJSON(data []byte) StreamMetadata {
	if len(data) == 0 {
		return Empty
	}
	var m StreamMetadata
	if err := json.Unmarshal(data, &m); err != nil {
		return Empty
	}
	if m.MaxAgeSeconds != nil {
		d := time.Duration(*m.MaxAgeSeconds) * time.Second
		m.MaxAge = &d
	}
	if m.CacheControlSeconds != nil {
		d := time.Duration(*m.CacheControlSeconds) * time.Second
		m.CacheControl = &d
	}
	return m
}

// RemapLegacyTruncateBefore applies base spec §4.3's v0-record remap: a
// truncateBefore of int32-max under LogRecordV0 means DeletedStream, the
// old soft-delete encoding.
func (m StreamMetadata) RemapLegacyTruncateBefore(isV0 bool) StreamMetadata {
	if isV0 && m.TruncateBefore != nil && *m.TruncateBefore == legacyTruncateBeforeDeleted {
		deleted := DeletedStream
		m.TruncateBefore = &deleted
	}
	return m
}

// --- System stream naming conventions (base spec §6, bit-exact) ---

const metastreamPrefix = "$$"

// IsSystemStream reports whether name is a system stream ($-prefixed).
func IsSystemStream(name string) bool {
	return strings.HasPrefix(name, "$")
}

// IsMetastream reports whether name is itself a metastream ($$-prefixed).
func IsMetastream(name string) bool {
	return strings.HasPrefix(name, metastreamPrefix)
}

// OriginalStreamOf returns the original stream name for a metastream name,
// e.g. OriginalStreamOf("$$X") == "X". Panics-free: if name is not a
// metastream, it is returned unchanged.
func OriginalStreamOf(name string) string {
	if !IsMetastream(name) {
		return name
	}
	return strings.TrimPrefix(name, metastreamPrefix)
}

// MetastreamOf returns the metastream name for an original stream name,
// e.g. MetastreamOf("X") == "$$X".
func MetastreamOf(name string) string {
	return metastreamPrefix + name
}
