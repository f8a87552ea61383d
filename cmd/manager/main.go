// Command manager runs gtstore's membership and rebalancing controller:
// the single logical process storage nodes register with and clients
// query for the routing table (spec.md §4.3).
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/dreamware/gtstore/pkg/config"
	"github.com/dreamware/gtstore/pkg/manager"
	"github.com/dreamware/gtstore/pkg/telemetry"
	"go.uber.org/zap"
)

func main() {
	configPath := flag.String("config", "", "optional YAML config overlay")
	metricsAddr := flag.String("metrics-addr", ":9100", "telemetry HTTP listen address")
	flag.Parse()

	logger, err := initLogger()
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to initialize logger: %v\n", err)
		os.Exit(1)
	}
	defer logger.Sync()

	cfg, err := config.Load(*configPath)
	if err != nil {
		logger.Fatal("failed to load config", zap.Error(err))
	}

	logger.Info("manager starting",
		zap.String("addr", cfg.ManagerAddr()),
		zap.Int("replication", cfg.Replication),
		zap.Int("virtual_nodes", cfg.VirtualNodes))

	metrics := telemetry.New("manager", cfg.NodeLabel)
	telemetrySrv := telemetry.NewServer(*metricsAddr, metrics, logger)
	telemetrySrv.Start()

	mgr := manager.New(cfg, logger, metrics)
	mgr.StartFailureMonitor(cfg.HeartbeatInterval, cfg.HeartbeatTimeout)

	go func() {
		sigChan := make(chan os.Signal, 1)
		signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
		<-sigChan

		logger.Info("manager shutting down")
		if err := mgr.Close(); err != nil {
			logger.Error("error closing manager", zap.Error(err))
		}
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := telemetrySrv.Stop(ctx); err != nil {
			logger.Error("error stopping telemetry server", zap.Error(err))
		}
		os.Exit(0)
	}()

	if err := mgr.ListenAndServe(cfg.ManagerAddr()); err != nil {
		logger.Fatal("manager serve failed", zap.Error(err))
	}
}

func initLogger() (*zap.Logger, error) {
	zapCfg := zap.NewProductionConfig()
	zapCfg.Level = zap.NewAtomicLevelAt(zap.InfoLevel)
	return zapCfg.Build()
}
