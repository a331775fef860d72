package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"path/filepath"
	"strings"

	"wickrSignals/internal/adapters/binanceclient"
	"wickrSignals/internal/adapters/logger"
	"wickrSignals/internal/utils"
)

func main() {
	symbol := flag.String("symbol", "BTCUSDT", "trading pair symbol")
	interval := flag.String("interval", "5m", "kline interval")
	limit := flag.Int("limit", 100, "number of klines to fetch")
	output := flag.String("output", "", "CSV destination (default data/<symbol>_<interval>_candles.csv)")
	testnet := flag.Bool("testnet", false, "use the Binance spot testnet")
	logLevel := flag.String("log-level", "info", "log level (debug, info, warn, error)")
	flag.Parse()

	// 1. Initialize Logger
	appLogger := logger.NewZapLogger(logger.ParseLevel(*logLevel))
	defer appLogger.Sync()

	// 2. Initialize Exchange Client (Binance Adapter)
	binanceClient, err := binanceclient.New(binanceclient.Config{
		UseTestnet: *testnet,
		Logger:     appLogger,
	})
	if err != nil {
		appLogger.Error(context.Background(), err, "FATAL: Failed to initialize Binance client")
		log.Fatalf("FATAL: Failed to initialize Binance client: %v", err)
	}

	filename := *output
	if filename == "" {
		filename = filepath.Join("data", fmt.Sprintf("%s_%s_candles.csv", strings.ToLower(*symbol), *interval))
	}

	// 3. Fetch and save
	fmt.Printf("Fetching %d %s candles for %s...\n", *limit, *interval, *symbol)
	candles, err := binanceClient.GetKlines(context.Background(), strings.ToUpper(*symbol), *interval, *limit)
	if err != nil {
		appLogger.Error(context.Background(), err, "Error fetching klines")
		log.Fatalf("Error fetching klines: %v", err)
	}
	if len(candles) == 0 {
		log.Fatalf("No data received")
	}
	fmt.Printf("Fetched %d candles\n", len(candles))

	if err := utils.WriteCandlesToCSV(candles, filename); err != nil {
		appLogger.Error(context.Background(), err, "Error writing CSV")
		log.Fatalf("Error writing CSV: %v", err)
	}
	fmt.Printf("Data saved to %s\n", filename)
}
