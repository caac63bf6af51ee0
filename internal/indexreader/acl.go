// Cartographus - Media Server Analytics and Geographic Visualization
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/cartographus

package indexreader

import (
	"context"
	"time"

	"github.com/tomtom215/streamindex/internal/streammeta"
)

// GetEffectiveAcl assembles the three-layer ACL of base spec §4.7: the
// stream's own metadata ACL, the system default for its class (user vs
// system stream), and the hard-coded default. No layer is enforced here --
// enforcement is a caller concern (base spec §1 Non-goals) -- this only
// merges the layers a permission check would need.
func (r *Reader) GetEffectiveAcl(ctx context.Context, stream string) (streammeta.EffectiveAcl, error) {
	start := time.Now()
	defer r.observeLatency("get_effective_acl", start)

	meta, err := r.GetStreamMetadata(ctx, stream)
	if err != nil {
		return streammeta.EffectiveAcl{}, err
	}

	settings := r.backend.GetSystemSettings()
	systemLayer := settings.UserStreamAcl
	if streammeta.IsSystemStream(stream) {
		systemLayer = settings.SystemStreamAcl
	}

	var streamLayer streammeta.Acl
	if meta.Acl != nil {
		streamLayer = *meta.Acl
	}

	return streammeta.EffectiveAcl{
		Stream:  streamLayer,
		System:  systemLayer,
		Default: defaultAcl,
	}, nil
}

// defaultAcl is the hard-coded fallback layer: no roles specified, every
// field resolves from System or Stream if either sets it (base spec §4.7).
var defaultAcl = streammeta.Acl{}
