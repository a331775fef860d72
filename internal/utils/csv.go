package utils

import (
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"wickrSignals/internal/domain"
)

// candleHeader is the column layout of candle CSV files.
var candleHeader = []string{"open_time", "close_time", "open", "high", "low", "close", "volume", "trades_count"}

// WriteCandlesToCSV writes candles with a header row, creating parent directories.
func WriteCandlesToCSV(candles []domain.Candle, filename string) error {
	if dir := filepath.Dir(filename); dir != "." {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return err
		}
	}
	file, err := os.Create(filename)
	if err != nil {
		return err
	}
	defer file.Close()

	writer := csv.NewWriter(file)
	if err := writer.Write(candleHeader); err != nil {
		return err
	}

	for _, c := range candles {
		writer.Write([]string{
			c.OpenTime.UTC().Format(time.RFC3339Nano),
			c.CloseTime.UTC().Format(time.RFC3339Nano),
			strconv.FormatFloat(c.Open, 'f', -1, 64),
			strconv.FormatFloat(c.High, 'f', -1, 64),
			strconv.FormatFloat(c.Low, 'f', -1, 64),
			strconv.FormatFloat(c.Close, 'f', -1, 64),
			strconv.FormatFloat(c.Volume, 'f', -1, 64),
			strconv.FormatInt(c.TradesCount, 10),
		})
	}
	writer.Flush()
	return writer.Error()
}

// ReadCandlesFromCSV reads a file written by WriteCandlesToCSV.
// Timestamps may be RFC3339 or unix milliseconds; trades_count is optional.
func ReadCandlesFromCSV(filename string) ([]domain.Candle, error) {
	file, err := os.Open(filename)
	if err != nil {
		return nil, err
	}
	defer file.Close()

	reader := csv.NewReader(file)
	reader.FieldsPerRecord = -1

	header, err := reader.Read()
	if err == io.EOF {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("reading header: %w", err)
	}
	index := make(map[string]int, len(header))
	for i, name := range header {
		index[name] = i
	}
	for _, name := range candleHeader[:7] {
		if _, ok := index[name]; !ok {
			return nil, fmt.Errorf("missing column %q", name)
		}
	}

	var candles []domain.Candle
	line := 1
	for {
		record, err := reader.Read()
		if err == io.EOF {
			break
		}
		line++
		if err != nil {
			return nil, fmt.Errorf("line %d: %w", line, err)
		}
		c, err := parseCandleRecord(record, index)
		if err != nil {
			return nil, fmt.Errorf("line %d: %w", line, err)
		}
		candles = append(candles, c)
	}
	return candles, nil
}

func parseCandleRecord(record []string, index map[string]int) (domain.Candle, error) {
	field := func(name string) string {
		i, ok := index[name]
		if !ok || i >= len(record) {
			return ""
		}
		return record[i]
	}

	var c domain.Candle
	var err error
	if c.OpenTime, err = parseTimestamp(field("open_time")); err != nil {
		return c, fmt.Errorf("open_time: %w", err)
	}
	if c.CloseTime, err = parseTimestamp(field("close_time")); err != nil {
		return c, fmt.Errorf("close_time: %w", err)
	}

	prices := []struct {
		name string
		dst  *float64
	}{
		{"open", &c.Open}, {"high", &c.High}, {"low", &c.Low}, {"close", &c.Close}, {"volume", &c.Volume},
	}
	for _, p := range prices {
		if *p.dst, err = strconv.ParseFloat(field(p.name), 64); err != nil {
			return c, fmt.Errorf("%s: %w", p.name, err)
		}
	}

	if raw := field("trades_count"); raw != "" {
		if c.TradesCount, err = strconv.ParseInt(raw, 10, 64); err != nil {
			return c, fmt.Errorf("trades_count: %w", err)
		}
	}
	return c, nil
}

func parseTimestamp(raw string) (time.Time, error) {
	if ms, err := strconv.ParseInt(raw, 10, 64); err == nil {
		return time.UnixMilli(ms).UTC(), nil
	}
	t, err := time.Parse(time.RFC3339Nano, raw)
	if err != nil {
		return time.Time{}, err
	}
	return t.UTC(), nil
}
