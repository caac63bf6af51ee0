// Cartographus - Media Server Analytics and Geographic Visualization
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/cartographus

// Package supervisor provides Suture-based process supervision for the
// index reader's background services -- currently the stream-existence
// filter initializer (base spec §4.9).
package supervisor

import (
	"context"
	"log/slog"
	"time"

	"github.com/thejerf/suture/v4"
	"github.com/thejerf/sutureslog"
)

// TreeConfig holds supervisor tree configuration.
type TreeConfig struct {
	// FailureThreshold is the number of failures before entering backoff.
	// Default: 5
	FailureThreshold float64

	// FailureDecay is the rate at which failures decay in seconds.
	// Default: 30
	FailureDecay float64

	// FailureBackoff is the duration to wait when threshold is exceeded.
	// Default: 15s
	FailureBackoff time.Duration

	// ShutdownTimeout is the maximum time to wait for graceful shutdown.
	// Default: 10s
	ShutdownTimeout time.Duration
}

// DefaultTreeConfig returns production-ready defaults, matching suture's
// own built-in defaults.
func DefaultTreeConfig() TreeConfig {
	return TreeConfig{
		FailureThreshold: 5.0,
		FailureDecay:     30.0,
		FailureBackoff:   15 * time.Second,
		ShutdownTimeout:  10 * time.Second,
	}
}

// Tree is a single-supervisor tree for the index reader's background
// services. Unlike a multi-tenant server, the index reader only ever runs
// one kind of background job -- the existence-filter initializer -- so one
// flat supervisor is enough; failure isolation across layers isn't needed.
type Tree struct {
	root   *suture.Supervisor
	logger *slog.Logger
	config TreeConfig
}

// NewTree creates a supervisor tree with the given configuration.
func NewTree(logger *slog.Logger, cfg TreeConfig) *Tree {
	if cfg.FailureThreshold == 0 {
		cfg.FailureThreshold = 5.0
	}
	if cfg.FailureDecay == 0 {
		cfg.FailureDecay = 30.0
	}
	if cfg.FailureBackoff == 0 {
		cfg.FailureBackoff = 15 * time.Second
	}
	if cfg.ShutdownTimeout == 0 {
		cfg.ShutdownTimeout = 10 * time.Second
	}

	// IMPORTANT: the correct API is (&Handler{Logger: logger}).MustHook(),
	// not sutureslog.EventHook(logger), which does not exist. MustHook has
	// a pointer receiver, so a pointer must be taken here.
	handler := &sutureslog.Handler{Logger: logger}

	spec := suture.Spec{
		EventHook:        handler.MustHook(),
		FailureThreshold: cfg.FailureThreshold,
		FailureDecay:     cfg.FailureDecay,
		FailureBackoff:   cfg.FailureBackoff,
		Timeout:          cfg.ShutdownTimeout,
	}

	return &Tree{
		root:   suture.New("streamindex", spec),
		logger: logger,
		config: cfg,
	}
}

// Root returns the root supervisor for direct access if needed.
func (t *Tree) Root() *suture.Supervisor { return t.root }

// Add adds a service to the tree, returning its token.
func (t *Tree) Add(svc suture.Service) suture.ServiceToken {
	return t.root.Add(svc)
}

// Remove stops and removes a service by its token.
func (t *Tree) Remove(token suture.ServiceToken) error {
	return t.root.Remove(token)
}

// Serve starts the tree and blocks until ctx is canceled.
func (t *Tree) Serve(ctx context.Context) error {
	return t.root.Serve(ctx)
}

// ServeBackground starts the tree in a background goroutine, returning a
// channel that receives the terminal error (or nil) when it stops.
func (t *Tree) ServeBackground(ctx context.Context) <-chan error {
	return t.root.ServeBackground(ctx)
}
