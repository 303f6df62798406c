package writers

import (
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/rxtech-lab/funding-breakout/internal/types"
	"github.com/stretchr/testify/suite"
)

type WritersTestSuite struct {
	suite.Suite
	tempDir string
}

func (s *WritersTestSuite) SetupTest() {
	tempDir, err := os.MkdirTemp("", "writers_test_*")
	s.Require().NoError(err)
	s.tempDir = tempDir
}

func (s *WritersTestSuite) TearDownTest() {
	if s.tempDir != "" {
		os.RemoveAll(s.tempDir)
	}
}

func TestWritersTestSuite(t *testing.T) {
	suite.Run(t, new(WritersTestSuite))
}

func sampleTrade(reason types.ExitReason, pnl float64) types.TradeRecord {
	entry := time.Date(2024, 3, 4, 9, 0, 0, 0, time.UTC)

	return types.TradeRecord{
		Symbol:            "BTCUSDT",
		EntryTime:         entry,
		EntryPrice:        100,
		ExitTime:          entry.Add(30 * time.Hour),
		ExitPrice:         100 + pnl,
		Quantity:          1,
		PnL:               pnl,
		RMultiple:         pnl / 5,
		HoldingHours:      30,
		ATRAtEntry:        2,
		ATRStopMultiplier: 2.5,
		RiskMultiplier:    1,
		InitialStop:       95,
		FinalStop:         95,
		MaxPrice:          110,
		Entry: types.EntryFeatures{
			Weekday:       "Monday",
			Hour:          9,
			Session:       types.SessionEurope,
			FundingBucket: "funding_neutral",
			VolRegime:     "vol_normal",
		},
		Exit: types.ExitFeatures{
			Weekday:       "Tuesday",
			Hour:          15,
			HoldingBucket: types.HoldingBucketMedium,
			ExitReason:    reason,
		},
	}
}

func (s *WritersTestSuite) TestTradesWriter_Write_NotInitialized() {
	w := NewTradesWriter(filepath.Join(s.tempDir, "trades.parquet"))

	err := w.Write(sampleTrade(types.ExitReasonInitialStop, -5))
	s.Error(err)
	s.Contains(err.Error(), "writer not initialized")
}

func (s *WritersTestSuite) TestTradesWriter_Flush_NotInitialized() {
	w := NewTradesWriter(filepath.Join(s.tempDir, "trades.parquet"))

	err := w.Flush()
	s.Error(err)
	s.Contains(err.Error(), "writer not initialized")
}

func (s *WritersTestSuite) TestTradesWriter_WriteAndFlush() {
	outputPath := filepath.Join(s.tempDir, "nested", "trades.parquet")
	w := NewTradesWriter(outputPath)
	s.Require().NoError(w.Initialize())
	defer w.Close()

	s.Require().NoError(w.Write(sampleTrade(types.ExitReasonInitialStop, -5)))
	s.Require().NoError(w.Write(sampleTrade(types.ExitReasonTrailingStop, 8)))
	s.Require().NoError(w.Write(sampleTrade(types.ExitReasonTrailingStop, 4)))

	count, err := w.GetTradeCount()
	s.Require().NoError(err)
	s.Equal(3, count)

	counts, err := w.ExitReasonCounts()
	s.Require().NoError(err)
	s.Equal(map[string]int{"initial_stop": 1, "trailing_stop": 2}, counts)

	s.Require().NoError(w.Flush())
	s.FileExists(outputPath)

	db, err := sql.Open("duckdb", ":memory:")
	s.Require().NoError(err)
	defer db.Close()

	var total float64
	err = db.QueryRow(fmt.Sprintf("SELECT SUM(pnl) FROM read_parquet('%s')", outputPath)).Scan(&total)
	s.Require().NoError(err)
	s.InDelta(7.0, total, 1e-9)
}

func (s *WritersTestSuite) TestTradesWriter_CloseTwice() {
	w := NewTradesWriter(filepath.Join(s.tempDir, "trades.parquet"))
	s.Require().NoError(w.Initialize())
	s.NoError(w.Close())
	s.NoError(w.Close())
}

func record(id string, score float64) types.RunRecord {
	return types.RunRecord{
		RunID:     id,
		Timestamp: time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC),
		Params:    map[string]float64{types.ParamBreakevenR: 1.0},
		Metrics:   map[string]float64{types.MetricScore: score},
	}
}

func (s *WritersTestSuite) TestRunMetricsWriter_NotInitialized() {
	w := NewRunMetricsWriter(filepath.Join(s.tempDir, "runs.jsonl"))

	err := w.Write(record("run_00000001", 1))
	s.Error(err)
	s.Contains(err.Error(), "writer not initialized")
}

func (s *WritersTestSuite) TestRunMetricsWriter_AppendsAcrossReopen() {
	path := filepath.Join(s.tempDir, "runs.jsonl")

	w := NewRunMetricsWriter(path)
	s.Require().NoError(w.Initialize())
	s.Require().NoError(w.Write(record("run_00000001", 1)))
	s.Require().NoError(w.Close())

	w = NewRunMetricsWriter(path)
	s.Require().NoError(w.Initialize())
	s.Require().NoError(w.Write(record("run_00000002", 2)))
	s.Require().NoError(w.Close())

	records, skipped, err := ReadRunRecords(path)
	s.Require().NoError(err)
	s.Equal(0, skipped)
	s.Require().Len(records, 2)
	s.Equal("run_00000001", records[0].RunID)
	s.Equal("run_00000002", records[1].RunID)
	s.Equal(2.0, records[1].Score().Unwrap())
}

func (s *WritersTestSuite) TestRunMetricsWriter_ConcurrentWrites() {
	path := filepath.Join(s.tempDir, "runs.jsonl")
	w := NewRunMetricsWriter(path)
	s.Require().NoError(w.Initialize())

	var wg sync.WaitGroup

	for i := 0; i < 64; i++ {
		wg.Add(1)

		go func(i int) {
			defer wg.Done()
			s.NoError(w.Write(record(fmt.Sprintf("run_%08d", i), float64(i))))
		}(i)
	}

	wg.Wait()
	s.Require().NoError(w.Close())

	records, skipped, err := ReadRunRecords(path)
	s.Require().NoError(err)
	s.Equal(0, skipped)
	s.Len(records, 64)
}

func (s *WritersTestSuite) TestReadRunRecords() {
	tests := []struct {
		name        string
		content     string
		wantIDs     []string
		wantSkipped int
	}{
		{
			name:    "empty file",
			content: "",
		},
		{
			name:        "malformed lines are skipped",
			content:     "{\"run_id\":\"run_a\",\"metrics\":{\"score\":1}}\nnot json\n{\"metrics\":{}}\n\n{\"run_id\":\"run_b\"}\n",
			wantIDs:     []string{"run_a", "run_b"},
			wantSkipped: 2,
		},
		{
			name:    "last record per run id wins",
			content: "{\"run_id\":\"run_a\",\"metrics\":{\"score\":1}}\n{\"run_id\":\"run_b\"}\n{\"run_id\":\"run_a\",\"metrics\":{\"score\":9}}\n",
			wantIDs: []string{"run_a", "run_b"},
		},
	}

	for _, tt := range tests {
		s.Run(tt.name, func() {
			path := filepath.Join(s.tempDir, "read.jsonl")
			s.Require().NoError(os.WriteFile(path, []byte(tt.content), 0644))

			records, skipped, err := ReadRunRecords(path)
			s.Require().NoError(err)
			s.Equal(tt.wantSkipped, skipped)

			ids := make([]string, 0, len(records))
			for _, r := range records {
				ids = append(ids, r.RunID)
			}

			if len(tt.wantIDs) == 0 {
				s.Empty(ids)
			} else {
				s.Equal(tt.wantIDs, ids)
			}
		})
	}
}

func (s *WritersTestSuite) TestReadRunRecords_LastWinsValue() {
	path := filepath.Join(s.tempDir, "dup.jsonl")
	content := "{\"run_id\":\"run_a\",\"metrics\":{\"score\":1}}\n{\"run_id\":\"run_a\",\"metrics\":{\"score\":9}}\n"
	s.Require().NoError(os.WriteFile(path, []byte(content), 0644))

	records, _, err := ReadRunRecords(path)
	s.Require().NoError(err)
	s.Require().Len(records, 1)
	s.Equal(9.0, records[0].Score().Unwrap())
}

func (s *WritersTestSuite) TestReadRunRecords_MissingFile() {
	records, skipped, err := ReadRunRecords(filepath.Join(s.tempDir, "missing.jsonl"))
	s.NoError(err)
	s.Equal(0, skipped)
	s.Nil(records)
}
