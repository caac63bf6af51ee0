// Cartographus - Media Server Analytics and Geographic Visualization
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/cartographus

package supervisor

import (
	"context"

	"github.com/tomtom215/streamindex/internal/existencefilter"
	"github.com/tomtom215/streamindex/internal/logging"
	"github.com/tomtom215/streamindex/internal/tableindex"
	"github.com/tomtom215/streamindex/internal/tflog"
)

// ExistenceFilterInitializer is a suture.Service that runs the
// stream-existence filter's bootstrap scan (base spec §4.9) once, up to the
// current end of the log; it does not keep following the log afterward. It
// implements suture's Service interface (Serve(ctx) error) so a crash
// mid-scan is restarted by the supervisor rather than silently leaving the
// filter half-populated.
type ExistenceFilterInitializer struct {
	Filter     *existencefilter.Filter
	Checkpoint *existencefilter.Checkpoint
	Table      tableindex.Index
	Pool       *tflog.Pool
}

// Serve runs the hash-keyed bootstrap to completion. It returns nil once the
// scan reaches the end of the log, or the error that stopped it (including
// ctx cancellation).
func (s *ExistenceFilterInitializer) Serve(ctx context.Context) error {
	logging.Info().Msg("existence filter initializer starting")
	err := existencefilter.InitHashKeyed(ctx, s.Filter, s.Checkpoint, s.Table, s.Pool)
	if err != nil && ctx.Err() == nil {
		logging.Error().Err(err).Msg("existence filter initializer stopped with error")
	}
	return err
}
