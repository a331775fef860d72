package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"

	"wickrSignals/internal/domain"
	"wickrSignals/internal/ports"

	_ "github.com/mattn/go-sqlite3" // SQLite driver
)

// Journal is an append-only signal log implementing ports.SignalSink.
type Journal struct {
	db     *sql.DB
	logger ports.Logger
	now    func() time.Time
}

// Config holds configuration for the SQLite journal.
type Config struct {
	DBPath string
	Logger ports.Logger
}

// NewJournal opens (or creates) the journal database.
func NewJournal(cfg Config) (*Journal, error) {
	if cfg.Logger == nil {
		return nil, fmt.Errorf("logger is required for SQLite journal")
	}
	dbPath := cfg.DBPath
	if dbPath == "" {
		dbPath = "./data/signals.db" // Default path
	}

	// Create data directory if it doesn't exist
	if err := os.MkdirAll(filepath.Dir(dbPath), 0755); err != nil {
		err = fmt.Errorf("failed to create data directory '%s': %w", filepath.Dir(dbPath), err)
		cfg.Logger.Error(context.Background(), err, "SQLite journal initialization failed")
		return nil, err
	}

	// Open database connection
	db, err := sql.Open("sqlite3", dbPath+"?_journal_mode=WAL&_busy_timeout=5000") // WAL mode for better concurrency
	if err != nil {
		err = fmt.Errorf("failed to open database at '%s': %w: %w", dbPath, ports.ErrDBConnection, err)
		cfg.Logger.Error(context.Background(), err, "SQLite journal initialization failed")
		return nil, err
	}

	// Test the connection
	if err := db.Ping(); err != nil {
		db.Close() // Close the connection if ping fails
		err = fmt.Errorf("failed to ping database at '%s': %w: %w", dbPath, ports.ErrDBConnection, err)
		cfg.Logger.Error(context.Background(), err, "SQLite journal initialization failed")
		return nil, err
	}

	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)
	db.SetConnMaxLifetime(time.Hour)

	j := &Journal{db: db, logger: cfg.Logger, now: time.Now}
	if err := j.initializeSchema(context.Background()); err != nil {
		db.Close()
		err = fmt.Errorf("failed to initialize database schema: %w", err)
		cfg.Logger.Error(context.Background(), err, "SQLite journal initialization failed")
		return nil, err
	}
	cfg.Logger.Info(context.Background(), "SQLite signal journal ready", map[string]interface{}{"path": dbPath})

	return j, nil
}

// initializeSchema creates tables if they don't exist.
func (j *Journal) initializeSchema(ctx context.Context) error {
	const schema = `
	CREATE TABLE IF NOT EXISTS signals (
		id TEXT PRIMARY KEY,
		symbol TEXT NOT NULL,
		strategy TEXT NOT NULL,
		signal TEXT NOT NULL,
		direction TEXT NOT NULL DEFAULT '',
		price REAL NOT NULL,
		confluence INTEGER NOT NULL,
		reasons TEXT NOT NULL,
		conditions TEXT NOT NULL,
		indicators TEXT NOT NULL,
		signal_time TIMESTAMP NOT NULL,
		recorded_at TIMESTAMP NOT NULL,
		UNIQUE (symbol, strategy, signal_time)
	);
	CREATE INDEX IF NOT EXISTS idx_signals_symbol_time ON signals (symbol, signal_time);
	`
	if _, err := j.db.ExecContext(ctx, schema); err != nil {
		return fmt.Errorf("failed to execute schema initialization: %w", err)
	}
	return nil
}

// Close closes the database connection.
func (j *Journal) Close() error {
	if j.db != nil {
		j.logger.Info(context.Background(), "Closing SQLite database connection")
		return j.db.Close()
	}
	return nil
}

// PublishSignal records a signal. Re-publishing the same symbol, strategy and
// timestamp is a no-op.
func (j *Journal) PublishSignal(ctx context.Context, sig domain.Signal) error {
	const query = `
	INSERT OR IGNORE INTO signals (id, symbol, strategy, signal, direction, price, confluence,
	                               reasons, conditions, indicators, signal_time, recorded_at)
	VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`

	reasons, err := json.Marshal(sig.Reasons)
	if err != nil {
		return fmt.Errorf("failed to encode reasons: %w", err)
	}
	conds, err := json.Marshal(sig.Conditions)
	if err != nil {
		return fmt.Errorf("failed to encode conditions: %w", err)
	}
	inds, err := json.Marshal(sig.Indicators)
	if err != nil {
		return fmt.Errorf("failed to encode indicators: %w", err)
	}

	id := uuid.NewString()
	result, err := j.db.ExecContext(ctx, query,
		id, sig.Symbol, sig.Strategy, sig.Label, string(sig.Direction), sig.Price, sig.Confluence,
		string(reasons), string(conds), string(inds), sig.Timestamp.UTC(), j.now().UTC())
	if err != nil {
		return fmt.Errorf("failed to insert signal for symbol %s: %w: %w", sig.Symbol, ports.ErrQueryFailed, err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected for signal %s: %w", sig.Symbol, err)
	}
	if rows == 0 {
		j.logger.Debug(ctx, "Signal already journaled", map[string]interface{}{"symbol": sig.Symbol, "strategy": sig.Strategy, "timestamp": sig.Timestamp})
		return nil
	}
	j.logger.Debug(ctx, "Signal journaled", map[string]interface{}{"signalID": id, "symbol": sig.Symbol, "signal": sig.Label})
	return nil
}

// FindRecent retrieves the most recent signals for a symbol, newest first.
func (j *Journal) FindRecent(ctx context.Context, symbol string, limit int) ([]domain.Signal, error) {
	const query = `
	SELECT symbol, strategy, signal, direction, price, confluence, reasons, conditions, indicators, signal_time
	FROM signals
	WHERE symbol = ? ORDER BY signal_time DESC, strategy ASC LIMIT ?`

	rows, err := j.db.QueryContext(ctx, query, symbol, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query signals for symbol %s: %w: %w", symbol, ports.ErrQueryFailed, err)
	}
	defer rows.Close()

	signals := make([]domain.Signal, 0)
	for rows.Next() {
		sig, err := scanSignal(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan signal during FindRecent: %w", err)
		}
		signals = append(signals, sig)
	}
	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating signal rows: %w", err)
	}
	return signals, nil
}

// CountByLabel returns how many signals of each label were recorded for a symbol.
func (j *Journal) CountByLabel(ctx context.Context, symbol string) (map[string]int, error) {
	const query = `SELECT signal, COUNT(*) FROM signals WHERE symbol = ? GROUP BY signal`

	rows, err := j.db.QueryContext(ctx, query, symbol)
	if err != nil {
		return nil, fmt.Errorf("failed to count signals for symbol %s: %w: %w", symbol, ports.ErrQueryFailed, err)
	}
	defer rows.Close()

	counts := make(map[string]int)
	for rows.Next() {
		var label string
		var n int
		if err := rows.Scan(&label, &n); err != nil {
			return nil, fmt.Errorf("failed to scan signal count: %w", err)
		}
		counts[label] = n
	}
	return counts, rows.Err()
}

// --- Helper Scan Functions ---

// scanner defines an interface compatible with *sql.Row and *sql.Rows.
type scanner interface {
	Scan(dest ...interface{}) error
}

// scanSignal scans a row into a domain.Signal.
func scanSignal(s scanner) (domain.Signal, error) {
	var sig domain.Signal
	var direction, reasons, conds, inds string
	err := s.Scan(&sig.Symbol, &sig.Strategy, &sig.Label, &direction, &sig.Price, &sig.Confluence,
		&reasons, &conds, &inds, &sig.Timestamp)
	if err != nil {
		return domain.Signal{}, err
	}
	sig.Direction = domain.Direction(direction)
	if err := json.Unmarshal([]byte(reasons), &sig.Reasons); err != nil {
		return domain.Signal{}, fmt.Errorf("decoding reasons: %w", err)
	}
	if err := json.Unmarshal([]byte(conds), &sig.Conditions); err != nil {
		return domain.Signal{}, fmt.Errorf("decoding conditions: %w", err)
	}
	if err := json.Unmarshal([]byte(inds), &sig.Indicators); err != nil {
		return domain.Signal{}, fmt.Errorf("decoding indicators: %w", err)
	}
	return sig, nil
}
