package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"sync"
	"syscall"

	"volume-dashboard/src/config"
	"volume-dashboard/src/data_source/binance"
	"volume-dashboard/src/interfaces"
	"volume-dashboard/src/logger"
	"volume-dashboard/src/models"
	"volume-dashboard/src/network"
	"volume-dashboard/src/server"

	"github.com/joho/godotenv"
	"go.uber.org/zap"
)

// -----------------------------------------------------------------------------

func main() {

	// Parse command line flags
	configPath := flag.String("config", "config/default.yaml", "path to config file")
	host := flag.String("host", "", "override listen host")
	port := flag.Int("port", 0, "override listen port")
	flag.Parse()

	// Optional .env for local overrides (EXCHANGE_BASE_URL etc.)
	_ = godotenv.Load()

	// Load config from YAML file
	cfg, err := config.NewConfig(*configPath)
	if err != nil {
		fmt.Printf("Error loading config: %v\n", err)
		os.Exit(1)
	}
	if *host != "" {
		cfg.Host = *host
	}
	if *port != 0 {
		cfg.Port = *port
	}

	// Setup logger
	log, err := logger.New(cfg.Log)
	if err != nil {
		fmt.Printf("Error creating logger: %v\n", err)
		os.Exit(1)
	}
	defer log.Sync()

	log.Info("starting", zap.String("name", cfg.Name),
		zap.String("exchange", cfg.Exchange.BaseURL),
		zap.Int("refresh_interval_s", cfg.DataSource.UpdateIntervalSeconds))

	// Setup Components
	nm := network.NewManager(cfg.MConfig, log)

	var source interfaces.IDataSource = binance.NewBinanceSource(cfg.MConfig, nm, log)

	srv := server.NewDashboardServer(cfg.MConfig, log)
	srv.RefreshFunc = source.TriggerRefresh
	var exchanger interfaces.IDataExchanger = srv

	// Start Server
	go func() {
		if err := exchanger.Start(); err != nil {
			log.Fatal("server failed", zap.Error(err))
		}
	}()

	// Main Loop (Push Model)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	wrapWg := &sync.WaitGroup{}
	snapshots := make(chan *models.MSnapshot, 4)

	// Start Source (first cycle fires immediately)
	if err := source.Start(ctx, snapshots, wrapWg); err != nil {
		log.Fatal("failed to start source", zap.Error(err))
	}

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, os.Interrupt, syscall.SIGTERM)

	first := true
	for {
		select {
		case snapshot, ok := <-snapshots:
			if !ok {
				log.Info("data source closed channel")
				return
			}

			if first {
				snapshot.Type = "INITIAL"
				first = false
			}

			if snapshot.Error != "" {
				log.Warn("snapshot carries error", zap.String("error", snapshot.Error))
			} else {
				log.Info("snapshot ready",
					zap.Int("pairs_ranked", snapshot.Metrics.PairsRanked),
					zap.Int("kline_requests", snapshot.Metrics.KlineRequests),
					zap.Float64("fetch_seconds", snapshot.Metrics.FetchSeconds))
			}

			exchanger.Broadcast(snapshot)

		case <-quit:
			log.Info("shutting down")
			cancel()      // Signal source to stop
			wrapWg.Wait() // Wait for source to close
			exchanger.Stop()
			return
		}
	}
}
