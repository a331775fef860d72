package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"log"
	"os"

	"wickrSignals/config"
	"wickrSignals/internal/adapters/binanceclient"
	"wickrSignals/internal/adapters/export"
	"wickrSignals/internal/adapters/logger"
	"wickrSignals/internal/app"
	"wickrSignals/internal/domain"
	"wickrSignals/internal/ports"
	"wickrSignals/internal/utils"
)

// defaultConfigPath is read when --config is not given. A missing default falls
// back to the built-in document.
const defaultConfigPath = "config.json"

// options are the command-line flags.
type options struct {
	symbol     string
	interval   string
	limit      int
	dataFile   string
	output     string
	configPath string
	noSave     bool
	logLevel   string
}

func parseFlags(args []string) (options, error) {
	var opts options
	fs := flag.NewFlagSet("generate_signals", flag.ContinueOnError)
	fs.StringVar(&opts.symbol, "symbol", "BTCUSDT", "trading pair symbol")
	fs.StringVar(&opts.interval, "interval", "1s", "kline interval")
	fs.IntVar(&opts.limit, "limit", 5000, "number of klines to fetch")
	fs.StringVar(&opts.dataFile, "data-file", "", "read candles from this CSV instead of fetching")
	fs.StringVar(&opts.output, "output", "data/signals.json", "where to save the signals")
	fs.StringVar(&opts.configPath, "config", defaultConfigPath, "signal configuration file (YAML or JSON)")
	fs.BoolVar(&opts.noSave, "no-save", false, "print signals without saving them")
	fs.StringVar(&opts.logLevel, "log-level", "warn", "log level (debug, info, warn, error)")
	if err := fs.Parse(args); err != nil {
		return opts, err
	}
	if opts.dataFile == "" && opts.limit <= 0 {
		return opts, fmt.Errorf("limit must be positive")
	}
	return opts, nil
}

func main() {
	opts, err := parseFlags(os.Args[1:])
	if err != nil {
		if errors.Is(err, flag.ErrHelp) {
			return
		}
		log.Fatalf("FATAL: %v", err)
	}

	appLogger := logger.NewZapLogger(logger.ParseLevel(opts.logLevel))
	defer appLogger.Sync()

	var client ports.MarketDataClient
	if opts.dataFile == "" {
		bc, err := binanceclient.New(binanceclient.Config{Logger: appLogger})
		if err != nil {
			log.Fatalf("FATAL: Failed to initialize Binance client: %v", err)
		}
		client = bc
	}

	if err := run(context.Background(), opts, client, appLogger, os.Stdout); err != nil {
		log.Fatalf("FATAL: %v", err)
	}
}

// run generates signals for one batch of candles, prints them and optionally saves them.
func run(ctx context.Context, opts options, client ports.MarketDataClient, appLogger ports.Logger, out io.Writer) error {
	signalCfg, found, err := config.LoadSignalConfigOrDefault(opts.configPath)
	if err != nil {
		return err
	}
	if !found {
		if opts.configPath != "" && opts.configPath != defaultConfigPath {
			return fmt.Errorf("signal configuration %s not found", opts.configPath)
		}
		appLogger.Warn(ctx, "Signal configuration not found, using defaults with no strategies", map[string]interface{}{"path": opts.configPath})
	}

	generator, err := app.NewSignalGenerator(signalCfg, opts.symbol, appLogger)
	if err != nil {
		return fmt.Errorf("failed to initialize signal generator: %w", err)
	}

	candles, err := loadCandles(ctx, opts, client)
	if err != nil {
		return err
	}

	signals, err := generator.Generate(ctx, candles)
	if err != nil {
		return fmt.Errorf("failed to generate signals: %w", err)
	}

	if len(signals) == 0 {
		fmt.Fprintln(out, "No signals generated with the current configuration.")
	} else if err := export.PrintSignals(out, export.ToRecords(signals)); err != nil {
		return err
	}

	if !opts.noSave {
		destination, err := export.SaveSignals(opts.output, signals)
		if err != nil {
			return fmt.Errorf("failed to save signals: %w", err)
		}
		fmt.Fprintf(out, "Saved %d signals to %s\n", len(signals), destination)
	}
	return nil
}

func loadCandles(ctx context.Context, opts options, client ports.MarketDataClient) ([]domain.Candle, error) {
	if opts.dataFile != "" {
		candles, err := utils.ReadCandlesFromCSV(opts.dataFile)
		if err != nil {
			return nil, fmt.Errorf("failed to read %s: %w", opts.dataFile, err)
		}
		return candles, nil
	}
	if client == nil {
		return nil, fmt.Errorf("no data file and no market data client")
	}
	candles, err := client.GetKlines(ctx, opts.symbol, opts.interval, opts.limit)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch data from Binance: %w", err)
	}
	return candles, nil
}
