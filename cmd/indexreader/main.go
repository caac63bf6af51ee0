// Cartographus - Media Server Analytics and Geographic Visualization
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/cartographus

// Package main wires up and serves the stream index reader: the table
// index, TF log reader pool, stream-existence filter, and the reader
// itself, exposing Prometheus metrics over HTTP.
//
// # Configuration
//
// Configuration is loaded via Koanf v2 with layered sources (highest
// priority wins): environment variables, an optional config.yaml, and
// built-in defaults.
//
// # Signal handling
//
// The process shuts down gracefully on SIGINT and SIGTERM, stopping the
// background existence-filter initializer and closing the TF log reader
// pool before exit.
package main

import (
	"context"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/tomtom215/streamindex/internal/config"
	"github.com/tomtom215/streamindex/internal/existencefilter"
	"github.com/tomtom215/streamindex/internal/indexbackend"
	"github.com/tomtom215/streamindex/internal/indexreader"
	"github.com/tomtom215/streamindex/internal/logging"
	"github.com/tomtom215/streamindex/internal/streamnameindex"
	"github.com/tomtom215/streamindex/internal/supervisor"
	"github.com/tomtom215/streamindex/internal/tableindex"
	"github.com/tomtom215/streamindex/internal/tflog"
)

func main() {
	cfg, err := config.LoadWithKoanf()
	if err != nil {
		logging.Fatal().Err(err).Msg("failed to load configuration")
	}

	logging.Init(logging.Config{
		Level:  cfg.Log.Level,
		Format: cfg.Log.Format,
		Caller: cfg.Log.Caller,
	})
	logging.Info().Msg("starting stream index reader")

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	table := tableindex.NewMem()

	memLog := tflog.NewMemLog()
	pool, err := tflog.NewPool(memLog.NewReader, cfg.Index.InitialReaderCount, cfg.Index.MaxReaderCount)
	if err != nil {
		logging.Fatal().Err(err).Msg("failed to create TF log reader pool")
	}
	defer func() {
		if err := pool.Close(); err != nil {
			logging.Error().Err(err).Msg("error closing reader pool")
		}
	}()

	backend := indexbackend.New(indexbackend.SystemSettings{})

	var nameIndex streamnameindex.Index = streamnameindex.Identity{}
	if cfg.Index.StreamIDFormatValue().String() == "numeric" {
		seq := streamnameindex.NewSequence(cfg.Index.NameIndexSequenceStart, cfg.Index.NameIndexInterval)
		persisted, err := streamnameindex.OpenPersistent(cfg.Index.Directory+"/stream-name-index", cfg.Index.InMemory, seq)
		if err != nil {
			logging.Fatal().Err(err).Msg("failed to open stream-name index")
		}
		defer persisted.Close()
		nameIndex = persisted
	}

	filter := existencefilter.New(cfg.Index.StreamExistenceFilter.ExpectedStreams, cfg.Index.StreamExistenceFilter.FalsePositiveRate)
	checkpoint, err := existencefilter.OpenCheckpoint(cfg.Index.StreamExistenceFilter.CheckpointPath, cfg.Index.InMemory)
	if err != nil {
		logging.Fatal().Err(err).Msg("failed to open existence filter checkpoint")
	}
	defer checkpoint.Close()

	tree := supervisor.NewTree(logging.NewSlogLogger(), supervisor.DefaultTreeConfig())
	tree.Add(&supervisor.ExistenceFilterInitializer{
		Filter:     filter,
		Checkpoint: checkpoint,
		Table:      table,
		Pool:       pool,
	})
	treeErrCh := tree.ServeBackground(ctx)

	reader := indexreader.New(indexreader.Config{
		Format:                 cfg.Index.StreamIDFormatValue(),
		HashCollisionReadLimit: cfg.Index.HashCollisionReadLimit,
		SkipIndexScanOnRead:    cfg.Index.SkipIndexScanOnRead,
		MetastreamMetadata:     config.MetastreamMetadata,
	}, table, pool, backend, nameIndex)
	_ = reader

	var srv *http.Server
	if cfg.Metric.Enabled {
		mux := http.NewServeMux()
		mux.Handle("/metrics", promhttp.Handler())
		srv = &http.Server{Addr: cfg.Metric.Addr, Handler: mux}
		go func() {
			logging.Info().Str("addr", cfg.Metric.Addr).Msg("serving metrics")
			if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
				logging.Error().Err(err).Msg("metrics server stopped unexpectedly")
			}
		}()
	}

	select {
	case <-ctx.Done():
		logging.Info().Msg("shutdown signal received")
	case err := <-treeErrCh:
		if err != nil {
			logging.Error().Err(err).Msg("supervisor tree stopped with error")
		}
	}

	if srv != nil {
		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer shutdownCancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			logging.Error().Err(err).Msg("error shutting down metrics server")
		}
	}

	logging.Info().Msg("stream index reader stopped")
}
