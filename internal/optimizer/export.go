package optimizer

import (
	"database/sql"
	"fmt"
	"io"
	"maps"
	"os"
	"path/filepath"
	"slices"
	"strconv"
	"strings"

	"github.com/Masterminds/squirrel"
	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/jedib0t/go-pretty/v6/text"
	_ "github.com/marcboeker/go-duckdb"
	"github.com/rxtech-lab/funding-breakout/internal/types"
	"github.com/rxtech-lab/funding-breakout/internal/writers"
	"github.com/rxtech-lab/funding-breakout/pkg/errors"
)

// ExportFormat is the file format of an export.
type ExportFormat string

const (
	ExportFormatCSV     ExportFormat = "csv"
	ExportFormatParquet ExportFormat = "parquet"
)

// ExportFormatFor derives the format from the file extension.
func ExportFormatFor(path string) (ExportFormat, error) {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".csv":
		return ExportFormatCSV, nil
	case ".parquet":
		return ExportFormatParquet, nil
	default:
		return "", errors.Newf(errors.ErrCodeInvalidConfiguration, "unsupported export file %q: use .csv or .parquet", path)
	}
}

// LoadResults reads every stored RunRecord, newest record per run id.
func LoadResults(path string) ([]types.RunRecord, int, error) {
	return writers.ReadRunRecords(path)
}

// columns returns the parameter keys and metric keys found across records.
func columns(records []types.RunRecord) (params []string, metrics []string) {
	paramSet := map[string]struct{}{}
	metricSet := map[string]struct{}{}

	for _, r := range records {
		for k := range r.Params {
			paramSet[k] = struct{}{}
		}

		for k := range r.Metrics {
			metricSet[k] = struct{}{}
		}
	}

	return slices.Sorted(maps.Keys(paramSet)), slices.Sorted(maps.Keys(metricSet))
}

// ExportTop writes the ranked records to path as CSV or parquet through
// DuckDB. Column order is rank, run_id, parameters, metrics.
func ExportTop(records []types.RunRecord, path string) error {
	format, err := ExportFormatFor(path)
	if err != nil {
		return err
	}

	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return errors.Wrap(errors.ErrCodeExportFailed, "failed to create export directory", err)
	}

	db, err := sql.Open("duckdb", "")
	if err != nil {
		return errors.Wrap(errors.ErrCodeExportFailed, "failed to open DuckDB connection", err)
	}
	defer db.Close()

	params, metrics := columns(records)

	names := append([]string{"rank", "run_id"}, params...)
	names = append(names, metrics...)

	definitions := []string{`"rank" INTEGER`, `"run_id" TEXT`}
	for _, name := range names[2:] {
		definitions = append(definitions, fmt.Sprintf(`%s DOUBLE`, quote(name)))
	}

	if _, err := db.Exec(fmt.Sprintf("CREATE TABLE top_runs (%s)", strings.Join(definitions, ", "))); err != nil {
		return errors.Wrap(errors.ErrCodeExportFailed, "failed to create export table", err)
	}

	if len(records) > 0 {
		quoted := make([]string, len(names))
		for i, name := range names {
			quoted[i] = quote(name)
		}

		insert := squirrel.Insert("top_runs").Columns(quoted...).PlaceholderFormat(squirrel.Dollar)

		for i, r := range records {
			row := []any{i + 1, r.RunID}
			for _, k := range params {
				row = append(row, nullable(r.Params, k))
			}

			for _, k := range metrics {
				row = append(row, nullable(r.Metrics, k))
			}

			insert = insert.Values(row...)
		}

		query, args, err := insert.ToSql()
		if err != nil {
			return errors.Wrap(errors.ErrCodeExportFailed, "failed to build export insert", err)
		}

		if _, err := db.Exec(query, args...); err != nil {
			return errors.Wrap(errors.ErrCodeExportFailed, "failed to insert export rows", err)
		}
	}

	options := "FORMAT PARQUET"
	if format == ExportFormatCSV {
		options = "FORMAT CSV, HEADER"
	}

	copyQuery := fmt.Sprintf(`COPY (SELECT * FROM top_runs ORDER BY "rank") TO '%s' (%s)`, strings.ReplaceAll(path, "'", "''"), options)
	if _, err := db.Exec(copyQuery); err != nil {
		return errors.Wrap(errors.ErrCodeExportFailed, "failed to export top runs", err)
	}

	return nil
}

// PrintTop renders the ranked records as a table.
func PrintTop(w io.Writer, records []types.RunRecord) {
	t := table.NewWriter()
	t.SetOutputMirror(w)
	t.SetStyle(table.StyleRounded)
	// headers are parameter and metric keys, keep them as written
	t.Style().Format.Header = text.FormatDefault

	header := table.Row{"#", "run_id"}
	for _, k := range types.ParameterKeys {
		header = append(header, k)
	}

	summary := []string{
		types.MetricScore,
		types.MetricTotalTrades,
		types.MetricProfitFactor,
		types.MetricAvgR,
		types.MetricCAGR,
		types.MetricMaxDrawdownPct,
		types.MetricSharpe,
	}
	for _, k := range summary {
		header = append(header, k)
	}

	t.AppendHeader(header)

	for i, r := range records {
		row := table.Row{i + 1, r.RunID}
		for _, k := range types.ParameterKeys {
			row = append(row, formatCell(r.Params, k))
		}

		for _, k := range summary {
			row = append(row, formatCell(r.Metrics, k))
		}

		t.AppendRow(row)
	}

	t.Render()
}

func quote(name string) string {
	return `"` + strings.ReplaceAll(name, `"`, `""`) + `"`
}

func nullable(values map[string]float64, key string) any {
	v, ok := values[key]
	if !ok {
		return nil
	}

	return v
}

func formatCell(values map[string]float64, key string) string {
	v, ok := values[key]
	if !ok {
		return "-"
	}

	return strconv.FormatFloat(v, 'f', -1, 64)
}
