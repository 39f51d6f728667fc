// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 Kaz Walker, Thermoquad

// Package poller sweeps a set of ports on a fixed interval and keeps the
// latest snapshot of each.
package poller

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/Thermoquad/novaprobe/internal/metrics"
	"github.com/Thermoquad/novaprobe/internal/portlock"
	"github.com/Thermoquad/novaprobe/pkg/controller"
	"github.com/Thermoquad/novaprobe/pkg/discovery"
	"github.com/Thermoquad/novaprobe/pkg/health"
	"github.com/Thermoquad/novaprobe/pkg/report"
	"go.uber.org/zap"
)

// SweepFunc runs one full sweep of port
type SweepFunc func(ctx context.Context, port string) (*report.Snapshot, error)

// Sink receives every completed snapshot
type Sink interface {
	Save(ctx context.Context, snap *report.Snapshot) error
}

// SessionSweep opens port, sweeps it with a controller and closes it again
func SessionSweep(open discovery.Opener, top controller.Topology, opts ...controller.Option) SweepFunc {
	return func(ctx context.Context, port string) (*report.Snapshot, error) {
		link, err := open(port)
		if err != nil {
			return nil, err
		}
		defer link.Close()
		return controller.New(link, opts...).Snapshot(ctx, port, top)
	}
}

// Poller runs sweeps across ports
type Poller struct {
	sweep    SweepFunc
	ports    []string
	interval time.Duration
	workers  int
	locker   portlock.Locker
	sinks    []Sink
	metrics  *metrics.AppMetrics
	logger   *zap.Logger

	mu     sync.RWMutex
	latest map[string]*report.Snapshot
	sweeps int
}

// Option configures a Poller
type Option func(*Poller)

// WithInterval sets the time between sweep rounds
func WithInterval(d time.Duration) Option {
	return func(p *Poller) {
		if d > 0 {
			p.interval = d
		}
	}
}

// WithWorkers sets how many ports are swept concurrently
func WithWorkers(n int) Option {
	return func(p *Poller) {
		if n > 0 {
			p.workers = n
		}
	}
}

// WithLocker guards every sweep with a port lock
func WithLocker(l portlock.Locker) Option {
	return func(p *Poller) {
		p.locker = l
	}
}

// WithSink adds a snapshot sink
func WithSink(s Sink) Option {
	return func(p *Poller) {
		p.sinks = append(p.sinks, s)
	}
}

// WithMetrics records every snapshot on m
func WithMetrics(m *metrics.AppMetrics) Option {
	return func(p *Poller) {
		p.metrics = m
	}
}

// WithLogger sets the poller logger
func WithLogger(logger *zap.Logger) Option {
	return func(p *Poller) {
		if logger != nil {
			p.logger = logger
		}
	}
}

// New creates a poller over ports
func New(sweep SweepFunc, ports []string, opts ...Option) *Poller {
	p := &Poller{
		sweep:    sweep,
		ports:    append([]string(nil), ports...),
		interval: 20 * time.Minute,
		workers:  1,
		locker:   portlock.NewLocal(),
		logger:   zap.NewNop(),
		latest:   make(map[string]*report.Snapshot),
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Ports returns the polled ports
func (p *Poller) Ports() []string {
	return append([]string(nil), p.ports...)
}

// Run sweeps immediately and then on every interval until ctx is done
func (p *Poller) Run(ctx context.Context) error {
	ticker := time.NewTicker(p.interval)
	defer ticker.Stop()

	for {
		p.RunOnce(ctx)
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
		}
	}
}

// RunOnce sweeps every port once and returns the snapshots in port order.
// Ports whose sweep could not run have a nil entry.
func (p *Poller) RunOnce(ctx context.Context) []*report.Snapshot {
	out := make([]*report.Snapshot, len(p.ports))
	jobs := make(chan int)

	var wg sync.WaitGroup
	for w := 0; w < min(p.workers, len(p.ports)); w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := range jobs {
				out[i] = p.sweepPort(ctx, p.ports[i])
			}
		}()
	}

feed:
	for i := range p.ports {
		if ctx.Err() != nil {
			break
		}
		select {
		case jobs <- i:
		case <-ctx.Done():
			break feed
		}
	}
	close(jobs)
	wg.Wait()

	p.mu.Lock()
	p.sweeps++
	p.mu.Unlock()
	return out
}

func (p *Poller) sweepPort(ctx context.Context, port string) *report.Snapshot {
	logger := p.logger.With(zap.String("port", port))

	unlock, err := p.locker.Lock(ctx, port)
	if err != nil {
		logger.Warn("port lock failed", zap.Error(err))
		return nil
	}
	snap, err := p.sweep(ctx, port)
	if uerr := unlock(); uerr != nil {
		logger.Warn("port unlock failed", zap.Error(uerr))
	}
	if snap == nil {
		logger.Warn("sweep failed", zap.Error(err))
		return nil
	}
	if err != nil {
		// Cancelled part way: keep the previous complete snapshot
		logger.Info("sweep interrupted", zap.Error(err))
		return snap
	}

	p.mu.Lock()
	p.latest[port] = snap
	p.mu.Unlock()

	health.Log(logger, snap.Results)
	if p.metrics != nil {
		p.metrics.ObserveSnapshot(snap)
	}
	for _, s := range p.sinks {
		if err := s.Save(ctx, snap); err != nil {
			logger.Warn("snapshot sink failed", zap.Error(err))
		}
	}
	return snap
}

// Latest returns the last complete snapshot of port
func (p *Poller) Latest(port string) (*report.Snapshot, bool) {
	p.mu.RLock()
	defer p.mu.RUnlock()
	s, ok := p.latest[port]
	return s, ok
}

// All returns the last complete snapshot of every port that has one, in
// port order
func (p *Poller) All() []*report.Snapshot {
	p.mu.RLock()
	defer p.mu.RUnlock()
	var out []*report.Snapshot
	for _, port := range p.ports {
		if s, ok := p.latest[port]; ok {
			out = append(out, s)
		}
	}
	return out
}

// Ready reports whether a sweep round has finished
func (p *Poller) Ready() bool {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.sweeps > 0
}

// Severity returns the worst severity across the latest snapshots, Unknown
// before the first round
func (p *Poller) Severity() health.Severity {
	all := p.All()
	if len(all) == 0 {
		return health.Unknown
	}
	var results []health.Result
	for _, s := range all {
		results = append(results, s.Results...)
	}
	return health.Worst(results)
}

// String describes the poller for logs
func (p *Poller) String() string {
	return fmt.Sprintf("poller(%d ports every %v)", len(p.ports), p.interval)
}
