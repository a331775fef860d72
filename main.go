package main

import (
	"context"
	"log" // Use standard log only for initial fatal errors before logger is set up

	"wickrSignals/config"
	"wickrSignals/internal/adapters/binanceclient"
	"wickrSignals/internal/adapters/dashboard"
	"wickrSignals/internal/adapters/logger"
	"wickrSignals/internal/adapters/redispub"
	"wickrSignals/internal/adapters/sqlite"
	"wickrSignals/internal/app"
	"wickrSignals/internal/metrics"
	"wickrSignals/internal/ports"
	"wickrSignals/internal/stream"
)

func main() {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// 1. Load Configuration
	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatalf("FATAL: Failed to load configuration: %v", err) // Use standard log before logger is ready
	}

	// 2. Initialize Logger
	appLogger := logger.NewZapLogger(cfg.LogLevel)
	defer appLogger.Sync()
	appLogger.Info(ctx, "Logger initialized", map[string]interface{}{"level": cfg.LogLevel.String()})

	// 3. Load Signal Document
	signalCfg, found, err := config.LoadSignalConfigOrDefault(cfg.SignalConfigPath)
	if err != nil {
		appLogger.Error(ctx, err, "FATAL: Failed to load signal configuration")
		log.Fatalf("FATAL: Failed to load signal configuration: %v", err)
	}
	if !found {
		appLogger.Warn(ctx, "Signal configuration not found, using defaults with no strategies", map[string]interface{}{"path": cfg.SignalConfigPath})
	}
	appLogger.Info(ctx, "Signal configuration loaded", map[string]interface{}{"strategies": len(signalCfg.Strategies)})

	// 4. Initialize Metrics
	m := metrics.New()

	// 5. Initialize Exchange Client (Binance Adapter)
	var feed *stream.CandleStream
	binanceClient, err := binanceclient.New(binanceclient.Config{
		APIKey:     cfg.APIKey,
		SecretKey:  cfg.SecretKey,
		UseTestnet: cfg.IsTestnet,
		Logger:     appLogger,
		OnDecodeError: func(err error) {
			if feed != nil {
				feed.ReportDecodeError(err)
			}
		},
	})
	if err != nil {
		appLogger.Error(ctx, err, "FATAL: Failed to initialize Binance client")
		log.Fatalf("FATAL: Failed to initialize Binance client: %v", err)
	}
	if err := binanceClient.Ping(ctx); err != nil {
		appLogger.Error(ctx, err, "FATAL: Binance API unreachable")
		log.Fatalf("FATAL: Binance API unreachable: %v", err)
	}
	appLogger.Info(ctx, "Binance client initialized")

	// 6. Initialize Candle Stream
	feed, err = stream.New(stream.Config{
		Symbol:         cfg.Symbol,
		Interval:       cfg.Interval,
		Capacity:       cfg.BufferSize,
		MinSeed:        cfg.MinSeedCandles,
		SeedLimit:      cfg.SeedLimit,
		ReconnectDelay: cfg.ReconnectDelay,
		Client:         binanceClient,
		Logger:         appLogger,
		Metrics:        m,
	})
	if err != nil {
		appLogger.Error(ctx, err, "FATAL: Failed to initialize candle stream")
		log.Fatalf("FATAL: Failed to initialize candle stream: %v", err)
	}

	// 7. Initialize Signal Generator
	generator, err := app.NewSignalGenerator(signalCfg, cfg.Symbol, appLogger)
	if err != nil {
		appLogger.Error(ctx, err, "FATAL: Failed to initialize signal generator")
		log.Fatalf("FATAL: Failed to initialize signal generator: %v", err)
	}
	if lookback := generator.RequiredLookback(); lookback > cfg.BufferSize {
		appLogger.Warn(ctx, "Buffer is shorter than the indicator lookback, live signals will never fire", map[string]interface{}{
			"bufferSize": cfg.BufferSize,
			"lookback":   lookback,
		})
	}

	// 8. Initialize Signal Sinks (optional)
	var sinks []ports.SignalSink
	var history dashboard.SignalHistory
	if cfg.DBPath != "" {
		journal, err := sqlite.NewJournal(sqlite.Config{DBPath: cfg.DBPath, Logger: appLogger})
		if err != nil {
			appLogger.Error(ctx, err, "FATAL: Failed to initialize signal journal")
			log.Fatalf("FATAL: Failed to initialize signal journal: %v", err)
		}
		defer func() {
			if err := journal.Close(); err != nil {
				appLogger.Error(ctx, err, "Error closing signal journal")
			}
		}()
		sinks = append(sinks, journal)
		history = journal
		appLogger.Info(ctx, "Signal journal initialized", map[string]interface{}{"path": cfg.DBPath})
	}
	if cfg.RedisAddr != "" {
		publisher, err := redispub.New(redispub.Config{Addr: cfg.RedisAddr, Channel: cfg.RedisChannel, Logger: appLogger})
		if err != nil {
			appLogger.Error(ctx, err, "FATAL: Failed to initialize Redis publisher")
			log.Fatalf("FATAL: Failed to initialize Redis publisher: %v", err)
		}
		defer publisher.Close()
		sinks = append(sinks, publisher)
	}

	// 9. Initialize Dashboard
	state := app.NewState(cfg.Symbol, feed.Window())
	hub, err := dashboard.NewHub(state, appLogger, m)
	if err != nil {
		appLogger.Error(ctx, err, "FATAL: Failed to initialize dashboard hub")
		log.Fatalf("FATAL: Failed to initialize dashboard hub: %v", err)
	}
	server, err := dashboard.NewServer(dashboard.Config{
		Addr:      cfg.Addr(),
		StaticDir: cfg.StaticDir,
		Hub:       hub,
		Metrics:   m,
		Logger:    appLogger,
		History:   history,
		Symbol:    cfg.Symbol,
	})
	if err != nil {
		appLogger.Error(ctx, err, "FATAL: Failed to initialize dashboard server")
		log.Fatalf("FATAL: Failed to initialize dashboard server: %v", err)
	}
	serverDone := make(chan struct{})
	go func() {
		defer close(serverDone)
		if err := server.Run(ctx); err != nil {
			appLogger.Error(ctx, err, "Dashboard server stopped")
		}
	}()

	// 10. Initialize Application Service
	service, err := app.NewSignalService(app.ServiceConfig{
		Feed:          feed,
		Window:        feed.Window(),
		Generator:     generator,
		State:         state,
		Broadcaster:   hub,
		Sinks:         sinks,
		Logger:        appLogger,
		Metrics:       m,
		HandleSignals: true,
	})
	if err != nil {
		appLogger.Error(ctx, err, "FATAL: Failed to initialize signal service")
		log.Fatalf("FATAL: Failed to initialize signal service: %v", err)
	}
	appLogger.Info(ctx, "Signal service initialized")

	// 11. Start the Service
	err = service.Start(ctx)
	cancel()
	<-serverDone
	if err != nil {
		appLogger.Error(context.Background(), err, "Signal service exited with error")
		log.Fatalf("FATAL: Signal service exited with error: %v", err)
	}

	appLogger.Info(context.Background(), "Application finished gracefully.")
}
