// SPDX-License-Identifier: GPL-2.0-or-later
// Copyright (c) 2025 Kaz Walker, Thermoquad

package cmd

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/Thermoquad/novaprobe/internal/httpapi"
	"github.com/Thermoquad/novaprobe/internal/metrics"
	"github.com/Thermoquad/novaprobe/internal/poller"
	"github.com/Thermoquad/novaprobe/internal/portlock"
	redisstore "github.com/Thermoquad/novaprobe/internal/storage/redis"
	"github.com/Thermoquad/novaprobe/pkg/controller"
	"github.com/Thermoquad/novaprobe/pkg/discovery"
	"github.com/Thermoquad/novaprobe/pkg/session"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Poll senders periodically and serve the results over HTTP",
	Long: `Sweep every sender on poll.interval (default 20m) and serve:

  /healthz          liveness
  /readyz           ready once the first sweep round finished
  /metrics          Prometheus metrics (metrics.enable, metrics.path)
  /api/v1/status    latest severity and check results per port
  /api/v1/ports     polled ports
  /api/v1/snapshot  latest full snapshot (?port=&format=json|yaml|cbor)

Without --port or serial.ports, the serial ports are scanned once at startup
and every port with a responding sender is polled.

With redis.enabled, every snapshot is stored and published in Redis and each
sweep holds a Redis port lock so several hosts can share the bus.`,
	RunE: runServe,
}

func init() {
	rootCmd.AddCommand(serveCmd)
}

func runServe(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()

	reg := metrics.NewRegistry()
	appMetrics := metrics.NewAppMetrics(reg)

	open, err := newOpener(ctx, session.WithObserver(appMetrics.ObserveExchange))
	if err != nil {
		return err
	}
	ports, err := servePorts(ctx, open)
	if err != nil {
		return err
	}

	opts := []poller.Option{
		poller.WithInterval(cfg.Poll.Interval),
		poller.WithWorkers(cfg.Poll.Workers),
		poller.WithMetrics(appMetrics),
		poller.WithLogger(logger),
	}
	if cfg.Redis.Enabled {
		client, err := redisstore.NewClient(cfg.Redis)
		if err != nil {
			return err
		}
		defer client.Close()
		opts = append(opts,
			poller.WithSink(redisstore.NewSnapshotStore(client)),
			poller.WithLocker(portlock.Chain{portlock.NewLocal(), redisstore.NewPortLock(client, cfg.Redis.LockTTL)}),
		)
		logger.Info("redis enabled", zap.String("addr", cfg.Redis.Addr))
	}

	sweep := poller.SessionSweep(open, cfg.SweepTopology(),
		controller.WithLogger(logger),
		controller.WithModuleLayout(cfg.SweepTopology().ModuleLayout()),
		controller.WithFlashWait(cfg.Flash.Wait),
	)
	p := poller.New(sweep, ports, opts...)

	var metricsHandler = metrics.Handler(reg)
	if !cfg.Metrics.Enable {
		metricsHandler = nil
	}
	srv := httpapi.New(cfg.HTTP, cfg.Metrics.Path, metricsHandler, p, logger)

	logger.Info("serving", zap.Stringer("poller", p), zap.Strings("ports", ports))

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return p.Run(gctx)
	})
	g.Go(srv.Start)
	g.Go(func() error {
		<-gctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	})

	if err := g.Wait(); err != nil && !errors.Is(err, context.Canceled) {
		return err
	}
	return nil
}

// servePorts returns the ports to poll. Explicit ports are used as given;
// otherwise every responding serial port is.
func servePorts(ctx context.Context, open discovery.Opener) ([]string, error) {
	ports, err := candidatePorts()
	if err != nil {
		return nil, err
	}
	if simulate > 0 || wsURL != "" || portName != "" || len(cfg.Serial.Ports) > 0 {
		return ports, nil
	}

	scanner := discovery.NewScanner(open, discovery.WithWorkers(4), discovery.WithLogger(logger))
	var found []string
	for _, r := range scanner.Scan(ctx, ports) {
		if r.Responding() {
			found = append(found, r.Port)
		}
	}
	if len(found) == 0 {
		return nil, fmt.Errorf("%w on %d port(s)", discovery.ErrNoSender, len(ports))
	}
	return found, nil
}
