// Cartographus - Media Server Analytics and Geographic Visualization
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/cartographus

package tflog

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/sony/gobreaker/v2"

	"github.com/tomtom215/streamindex/internal/logging"
)

// ErrPoolClosed is returned once the pool has been closed.
var ErrPoolClosed = errors.New("tflog: reader pool closed")

// ErrBreakerOpen is returned when the lease breaker is open -- the pool has
// seen enough consecutive failed leases that it is failing fast rather than
// handing out a reader doomed to error (base spec §5 "reader pool bounded
// by maxReaderCount; requests beyond the pool block").
var ErrBreakerOpen = errors.New("tflog: reader pool breaker open")

// Reader is a leased, single-threaded view over the transaction-file log
// (base spec §6). It is not safe for concurrent use by multiple goroutines;
// callers hold exactly one Reader per in-flight positional scan.
type Reader interface {
	// TryReadAt reads the record at the given log position.
	TryReadAt(ctx context.Context, position int64) (ReadResult, error)
	// TryReadNext reads forward from the reader's current position.
	TryReadNext(ctx context.Context) (NextReadResult, error)
	// Reposition moves the reader's cursor without reading.
	Reposition(position int64)
}

// Factory constructs one Reader instance; called up to maxCount times when
// the pool grows lazily on demand.
type Factory func() (Reader, error)

// Lease is a scoped, mandatory-release handle on a borrowed Reader
// (base spec §5, §9 "scoped resource release"). Release is idempotent and
// must be called on every exit path, including error returns -- the
// idiomatic pattern is `defer lease.Release()` immediately after Borrow
// succeeds.
type Lease struct {
	Reader Reader
	id     string
	index  int
	pool   *Pool
	once   sync.Once
}

// Release returns the reader to the pool. Safe to call multiple times and
// safe to defer unconditionally.
func (l *Lease) Release() {
	l.once.Do(func() {
		l.pool.release(l.index)
	})
}

// Pool leases Readers over a fixed-size backing slice, bounded by
// maxReaderCount (base spec §5, §6). Requests beyond the pool's capacity
// block on the semaphore channel until a lease is released.
type Pool struct {
	mu       sync.Mutex
	sem      chan struct{}
	readers  []Reader
	free     []int
	closed   bool
	breaker  *gobreaker.CircuitBreaker[leaseResult]
	factory  Factory
	maxCount int
}

// leaseResult is the value threaded through the circuit breaker's generic
// Execute call -- the breaker needs a single result type, and a lease needs
// both the slot index (for release bookkeeping) and the Reader itself.
type leaseResult struct {
	index  int
	reader Reader
}

// NewPool creates a reader pool that lazily constructs up to maxCount
// readers via factory, with initialCount pre-warmed eagerly (base spec §6
// config: initialReaderCount, maxReaderCount).
func NewPool(factory Factory, initialCount, maxCount int) (*Pool, error) {
	if maxCount <= 0 {
		return nil, fmt.Errorf("tflog: maxReaderCount must be positive, got %d", maxCount)
	}
	if initialCount > maxCount {
		initialCount = maxCount
	}

	p := &Pool{
		sem:      make(chan struct{}, maxCount),
		readers:  make([]Reader, maxCount),
		factory:  factory,
		maxCount: maxCount,
	}

	for i := 0; i < initialCount; i++ {
		r, err := factory()
		if err != nil {
			return nil, fmt.Errorf("tflog: prewarm reader %d: %w", i, err)
		}
		p.readers[i] = r
		p.free = append(p.free, i)
	}
	for i := initialCount; i < maxCount; i++ {
		p.free = append(p.free, i)
	}

	settings := gobreaker.Settings{
		Name:        "tflog-reader-pool",
		MaxRequests: 1,
		Interval:    30 * time.Second,
		Timeout:     10 * time.Second,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= 5
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			logging.Warn().
				Str("breaker", name).
				Str("from", from.String()).
				Str("to", to.String()).
				Msg("tflog reader pool breaker state changed")
		},
	}
	p.breaker = gobreaker.NewCircuitBreaker[leaseResult](settings)

	return p, nil
}

// Borrow acquires a scoped lease on a Reader, blocking until one is free or
// ctx is done. The caller MUST call the returned Lease's Release on every
// exit path.
func (p *Pool) Borrow(ctx context.Context) (*Lease, error) {
	select {
	case p.sem <- struct{}{}:
	case <-ctx.Done():
		return nil, ctx.Err()
	}

	result, err := p.breaker.Execute(func() (leaseResult, error) {
		p.mu.Lock()
		defer p.mu.Unlock()

		if p.closed {
			return leaseResult{}, ErrPoolClosed
		}
		if len(p.free) == 0 {
			return leaseResult{}, fmt.Errorf("tflog: pool semaphore admitted request with no free slot")
		}

		idx := p.free[len(p.free)-1]
		p.free = p.free[:len(p.free)-1]

		if p.readers[idx] == nil {
			r, ferr := p.factory()
			if ferr != nil {
				p.free = append(p.free, idx)
				return leaseResult{}, fmt.Errorf("tflog: construct reader: %w", ferr)
			}
			p.readers[idx] = r
		}
		return leaseResult{index: idx, reader: p.readers[idx]}, nil
	})

	if err != nil {
		<-p.sem
		if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
			return nil, ErrBreakerOpen
		}
		return nil, err
	}

	return &Lease{Reader: result.reader, id: uuid.NewString(), index: result.index, pool: p}, nil
}

func (p *Pool) release(index int) {
	p.mu.Lock()
	p.free = append(p.free, index)
	p.mu.Unlock()
	<-p.sem
}

// Close marks the pool closed; in-flight leases may still be released.
func (p *Pool) Close() error {
	p.mu.Lock()
	p.closed = true
	p.mu.Unlock()
	return nil
}
