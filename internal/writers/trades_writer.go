// Package writers persists trade logs and run metrics.
package writers

import (
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	_ "github.com/marcboeker/go-duckdb"
	"github.com/rxtech-lab/funding-breakout/internal/types"
)

// TradesWriter buffers closed trades in an in-memory DuckDB table and exports
// them to a parquet file.
type TradesWriter struct {
	db         *sql.DB
	outputPath string
	mu         sync.Mutex
}

// NewTradesWriter creates a new TradesWriter.
// outputPath is the full path to the parquet file.
func NewTradesWriter(outputPath string) *TradesWriter {
	return &TradesWriter{outputPath: outputPath}
}

// Initialize opens the in-memory database and creates the trades table.
func (w *TradesWriter) Initialize() error {
	w.mu.Lock()
	defer w.mu.Unlock()

	if err := os.MkdirAll(filepath.Dir(w.outputPath), 0755); err != nil {
		return fmt.Errorf("failed to create output directory: %w", err)
	}

	db, err := sql.Open("duckdb", ":memory:")
	if err != nil {
		return fmt.Errorf("failed to open DuckDB connection: %w", err)
	}

	_, err = db.Exec(`
		CREATE TABLE IF NOT EXISTS trades (
			symbol TEXT,
			entry_time TIMESTAMP,
			entry_price DOUBLE,
			exit_time TIMESTAMP,
			exit_price DOUBLE,
			quantity DOUBLE,
			pnl DOUBLE,
			r_multiple DOUBLE,
			holding_hours DOUBLE,
			atr_at_entry DOUBLE,
			atr_stop_multiplier DOUBLE,
			risk_multiplier DOUBLE,
			initial_stop DOUBLE,
			final_stop DOUBLE,
			max_price DOUBLE,
			funding DOUBLE,
			funding_z DOUBLE,
			entry_weekday TEXT,
			entry_hour INTEGER,
			session TEXT,
			funding_bucket TEXT,
			funding_sign INTEGER,
			funding_extreme BOOLEAN,
			vol_regime TEXT,
			exit_weekday TEXT,
			exit_hour INTEGER,
			holding_bucket TEXT,
			exit_reason TEXT
		)
	`)
	if err != nil {
		db.Close()

		return fmt.Errorf("failed to create trades table: %w", err)
	}

	w.db = db

	return nil
}

// Write stores one closed trade.
func (w *TradesWriter) Write(t types.TradeRecord) error {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.db == nil {
		return fmt.Errorf("writer not initialized")
	}

	_, err := w.db.Exec(`
		INSERT INTO trades VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`, t.Symbol, t.EntryTime, t.EntryPrice, t.ExitTime, t.ExitPrice, t.Quantity,
		t.PnL, t.RMultiple, t.HoldingHours, t.ATRAtEntry, t.ATRStopMultiplier, t.RiskMultiplier,
		t.InitialStop, t.FinalStop, t.MaxPrice, t.Entry.Funding, t.Entry.FundingZ,
		t.Entry.Weekday, t.Entry.Hour, string(t.Entry.Session), t.Entry.FundingBucket,
		t.Entry.FundingSign, t.Entry.FundingExtreme, t.Entry.VolRegime,
		t.Exit.Weekday, t.Exit.Hour, string(t.Exit.HoldingBucket), string(t.Exit.ExitReason))
	if err != nil {
		return fmt.Errorf("failed to insert trade: %w", err)
	}

	return nil
}

// Flush exports the stored trades to the parquet file.
func (w *TradesWriter) Flush() error {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.db == nil {
		return fmt.Errorf("writer not initialized")
	}

	_, err := w.db.Exec(fmt.Sprintf(`
		COPY (SELECT * FROM trades ORDER BY exit_time ASC)
		TO '%s' (FORMAT PARQUET)
	`, w.outputPath))
	if err != nil {
		return fmt.Errorf("failed to export to parquet: %w", err)
	}

	return nil
}

// GetOutputPath returns the parquet file path.
func (w *TradesWriter) GetOutputPath() string {
	return w.outputPath
}

// GetTradeCount returns the number of trades stored.
func (w *TradesWriter) GetTradeCount() (int, error) {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.db == nil {
		return 0, fmt.Errorf("writer not initialized")
	}

	var count int
	if err := w.db.QueryRow("SELECT COUNT(*) FROM trades").Scan(&count); err != nil {
		return 0, fmt.Errorf("failed to count trades: %w", err)
	}

	return count, nil
}

// ExitReasonCounts returns the number of trades per exit reason.
func (w *TradesWriter) ExitReasonCounts() (map[string]int, error) {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.db == nil {
		return nil, fmt.Errorf("writer not initialized")
	}

	rows, err := w.db.Query("SELECT exit_reason, COUNT(*) FROM trades GROUP BY exit_reason")
	if err != nil {
		return nil, fmt.Errorf("failed to group trades: %w", err)
	}
	defer rows.Close()

	counts := make(map[string]int)

	for rows.Next() {
		var (
			reason string
			n      int
		)

		if err := rows.Scan(&reason, &n); err != nil {
			return nil, fmt.Errorf("failed to scan exit reason: %w", err)
		}

		counts[reason] = n
	}

	return counts, rows.Err()
}

// Close releases database resources.
func (w *TradesWriter) Close() error {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.db != nil {
		if err := w.db.Close(); err != nil {
			return fmt.Errorf("failed to close database: %w", err)
		}

		w.db = nil
	}

	return nil
}
