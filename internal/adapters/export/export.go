package export

import (
	"encoding/json"
	"fmt"
	"io"
	"math"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"wickrSignals/internal/domain"
)

// Record is the exported form of a signal.
// Timestamp and Price are null when the source value is missing or not finite.
type Record struct {
	Timestamp  *string            `json:"timestamp"`
	Symbol     string             `json:"symbol"`
	Price      *float64           `json:"price"`
	Signal     string             `json:"signal"`
	Strategy   string             `json:"strategy"`
	Direction  string             `json:"direction"`
	Reason     []string           `json:"reason"`
	Confluence int                `json:"confluence"`
	Conditions map[string]bool    `json:"conditions"`
	Indicators map[string]float64 `json:"indicators"`
}

// ToRecord converts a signal to its export form.
func ToRecord(sig domain.Signal) Record {
	rec := Record{
		Symbol:     sig.Symbol,
		Signal:     sig.Label,
		Strategy:   sig.Strategy,
		Direction:  string(sig.Direction),
		Reason:     append([]string{}, sig.Reasons...),
		Confluence: sig.Confluence,
		Conditions: make(map[string]bool, len(sig.Conditions)),
		Indicators: make(map[string]float64, len(sig.Indicators)),
	}
	if !sig.Timestamp.IsZero() {
		ts := sig.Timestamp.UTC().Format(time.RFC3339)
		rec.Timestamp = &ts
	}
	if finite(sig.Price) {
		price := sig.Price
		rec.Price = &price
	}
	for k, v := range sig.Conditions {
		rec.Conditions[k] = v
	}
	for k, v := range sig.Indicators {
		if finite(v) {
			rec.Indicators[k] = v
		}
	}
	return rec
}

// ToRecords converts signals in order.
func ToRecords(signals []domain.Signal) []Record {
	out := make([]Record, len(signals))
	for i, s := range signals {
		out[i] = ToRecord(s)
	}
	return out
}

// SaveSignals writes the signals as an indented JSON array, creating parent directories.
// It returns the absolute path written.
func SaveSignals(path string, signals []domain.Signal) (string, error) {
	abs, err := filepath.Abs(path)
	if err != nil {
		return "", fmt.Errorf("failed to resolve export path %s: %w", path, err)
	}
	if err := os.MkdirAll(filepath.Dir(abs), 0o755); err != nil {
		return "", fmt.Errorf("failed to create export directory: %w", err)
	}

	data, err := json.MarshalIndent(ToRecords(signals), "", "  ")
	if err != nil {
		return "", fmt.Errorf("failed to encode signals: %w", err)
	}
	if err := os.WriteFile(abs, append(data, '\n'), 0o644); err != nil {
		return "", fmt.Errorf("failed to write signals to %s: %w", abs, err)
	}
	return abs, nil
}

// LoadSignals reads an export file back.
func LoadSignals(path string) ([]Record, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read signals from %s: %w", path, err)
	}
	var records []Record
	if err := json.Unmarshal(data, &records); err != nil {
		return nil, fmt.Errorf("failed to decode signals from %s: %w", path, err)
	}
	return records, nil
}

// PrintSignals writes one line per record: "[timestamp] SIGNAL at price: reasons".
func PrintSignals(w io.Writer, records []Record) error {
	for _, r := range records {
		ts := "null"
		if r.Timestamp != nil {
			ts = *r.Timestamp
		}
		price := "null"
		if r.Price != nil {
			price = strconv.FormatFloat(*r.Price, 'f', -1, 64)
		}
		if _, err := fmt.Fprintf(w, "[%s] %s at %s: %s\n", ts, r.Signal, price, strings.Join(r.Reason, ", ")); err != nil {
			return err
		}
	}
	return nil
}

func finite(v float64) bool {
	return !math.IsNaN(v) && !math.IsInf(v, 0)
}
