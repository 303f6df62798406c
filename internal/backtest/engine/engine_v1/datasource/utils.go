package datasource

import (
	"fmt"
	"path/filepath"
	"strings"
)

var intervalMinutes = map[Interval]int{
	Interval1m:  1,
	Interval5m:  5,
	Interval15m: 15,
	Interval30m: 30,
	Interval1h:  60,
	Interval4h:  240,
	Interval6h:  360,
	Interval8h:  480,
	Interval12h: 720,
	Interval1d:  1440,
	Interval1w:  10080,
}

// getIntervalMinutes returns the bucket width of a resample interval.
func getIntervalMinutes(interval Interval) (int, error) {
	minutes, ok := intervalMinutes[interval]
	if !ok {
		return 0, fmt.Errorf("unsupported interval: %s", interval)
	}

	return minutes, nil
}

// fileReader returns the DuckDB table function reading path. Malformed CSV
// lines are skipped by DuckDB itself.
func fileReader(path string) (string, error) {
	escaped := strings.ReplaceAll(path, "'", "''")

	switch strings.ToLower(filepath.Ext(path)) {
	case ".parquet":
		return fmt.Sprintf("read_parquet('%s')", escaped), nil
	case ".csv":
		return fmt.Sprintf("read_csv('%s', header=true, auto_detect=true, ignore_errors=true)", escaped), nil
	default:
		return "", fmt.Errorf("unsupported data file type: %s", path)
	}
}
