// Cartographus - Media Server Analytics and Geographic Visualization
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/cartographus

package indexbackend

import (
	"testing"

	"github.com/tomtom215/streamindex/internal/streammeta"
)

func TestTryGetStreamLastEventNumber_MissOnEmpty(t *testing.T) {
	b := New(SystemSettings{})
	if _, _, ok := b.TryGetStreamLastEventNumber("orders-1"); ok {
		t.Fatalf("fresh backend should have no cached entries")
	}
}

func TestUpdateStreamLastEventNumber_CASWinsOnMatch(t *testing.T) {
	b := New(SystemSettings{})
	gen, _, _ := b.TryGetStreamLastEventNumber("orders-1")

	got := b.UpdateStreamLastEventNumber("orders-1", gen, 5)
	if got != 5 {
		t.Fatalf("UpdateStreamLastEventNumber = %d, want 5", got)
	}
	if _, val, ok := b.TryGetStreamLastEventNumber("orders-1"); !ok || val != 5 {
		t.Fatalf("cached value = %d, ok=%v, want 5/true", val, ok)
	}
}

func TestCommitStreamLastEventNumber_AlwaysWins(t *testing.T) {
	b := New(SystemSettings{})
	b.CommitStreamLastEventNumber("orders-1", 1)

	// A reader's stale CAS attempt at generation 0 should lose to the
	// commit pipeline's unconditional bump.
	got := b.UpdateStreamLastEventNumber("orders-1", 0, 99)
	if got != 1 {
		t.Fatalf("stale CAS won the race: got %d, want 1 (commit pipeline value)", got)
	}
}

func TestUpdateStreamMetadata_LosesRaceOnStaleGeneration(t *testing.T) {
	b := New(SystemSettings{})
	first := b.UpdateStreamMetadata("orders-1", 0, streammeta.StreamMetadata{})

	maxCount := int64(10)
	second := b.UpdateStreamMetadata("orders-1", 0, streammeta.StreamMetadata{MaxCount: &maxCount})
	if second.MaxCount != nil {
		t.Fatalf("stale generation 0 should have lost the CAS, got %+v", second)
	}
	_ = first
}

func TestSystemSettings_RoundTrip(t *testing.T) {
	b := New(SystemSettings{UserStreamAcl: streammeta.Acl{ReadRoles: []string{"$all"}}})
	got := b.GetSystemSettings()
	if len(got.UserStreamAcl.ReadRoles) != 1 || got.UserStreamAcl.ReadRoles[0] != "$all" {
		t.Fatalf("GetSystemSettings = %+v, want initial settings", got)
	}

	b.SetSystemSettings(SystemSettings{UserStreamAcl: streammeta.Acl{ReadRoles: []string{"admin"}}})
	got = b.GetSystemSettings()
	if got.UserStreamAcl.ReadRoles[0] != "admin" {
		t.Fatalf("SetSystemSettings did not take effect: %+v", got)
	}
}
