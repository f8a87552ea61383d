// Command storage runs a single gtstore storage node: it registers with
// the manager, serves client reads/writes and manager-driven rebalancing
// traffic, and sends a heartbeat every HeartbeatInterval (spec.md §4.4).
package main

import (
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/dreamware/gtstore/pkg/config"
	"github.com/dreamware/gtstore/pkg/ring"
	"github.com/dreamware/gtstore/pkg/storagenode"
	"github.com/dreamware/gtstore/pkg/telemetry"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

func main() {
	configPath := flag.String("config", "", "optional YAML config overlay")
	metricsAddr := flag.String("metrics-addr", ":9101", "telemetry HTTP listen address")
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

	nodeID := cfg.NodeLabel
	if nodeID == "" {
		nodeID = uuid.New().String()
	}

	self := ring.Address{Host: cfg.StorageHost, Port: uint16(cfg.StoragePort)}

	logger.Info("storage node starting",
		zap.String("node_id", nodeID),
		zap.String("addr", cfg.StorageAddr()),
		zap.String("manager_addr", cfg.ManagerAddr()))

	metrics := telemetry.New("storage", nodeID)
	telemetrySrv := telemetry.NewServer(*metricsAddr, metrics, logger)
	telemetrySrv.Start()

	node := storagenode.New(nodeID, self, cfg, logger, metrics)

	go func() {
		sigChan := make(chan os.Signal, 1)
		signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
		<-sigChan

		logger.Info("storage node shutting down")
		if err := node.Close(); err != nil {
			logger.Error("error closing storage node", zap.Error(err))
		}
		os.Exit(0)
	}()

	if _, err := node.Bind(cfg.StorageAddr()); err != nil {
		logger.Fatal("failed to bind storage listener", zap.Error(err))
	}

	if err := node.Register(); err != nil {
		logger.Fatal("failed to register with manager", zap.Error(err))
	}
	node.StartHeartbeat(cfg.HeartbeatInterval)

	if err := node.Serve(); err != nil {
		logger.Fatal("storage node serve failed", zap.Error(err))
	}
}

func initLogger() (*zap.Logger, error) {
	zapCfg := zap.NewProductionConfig()
	zapCfg.Level = zap.NewAtomicLevelAt(zap.InfoLevel)
	return zapCfg.Build()
}
