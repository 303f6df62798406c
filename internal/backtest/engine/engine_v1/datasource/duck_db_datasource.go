package datasource

import (
	"database/sql"
	"fmt"
	"time"

	"github.com/Masterminds/squirrel"
	_ "github.com/marcboeker/go-duckdb"
	"github.com/moznion/go-optional"
	"github.com/rxtech-lab/funding-breakout/internal/logger"
	"github.com/rxtech-lab/funding-breakout/internal/types"
	"github.com/rxtech-lab/funding-breakout/pkg/errors"
	"go.uber.org/zap"
)

type DuckDBDataSource struct {
	db     *sql.DB
	logger *logger.Logger
	sq     squirrel.StatementBuilderType
}

// NewDataSource creates a new DuckDB data source instance with the specified database path.
// Use ":memory:" for a throwaway database. Market data is attached later by Initialize.
func NewDataSource(path string, logger *logger.Logger) (DataSource, error) {
	db, err := sql.Open("duckdb", path)
	if err != nil {
		return nil, errors.Wrap(errors.ErrCodeDataSourceUnavailable, "failed to open DuckDB", err)
	}

	return &DuckDBDataSource{
		db:     db,
		logger: logger,
		sq:     squirrel.StatementBuilder.PlaceholderFormat(squirrel.Dollar),
	}, nil
}

// Initialize implements DataSource. Files are exposed as views with
// normalized column types. Rows that fail to parse are dropped.
func (d *DuckDBDataSource) Initialize(barsPath string, fundingPath string) error {
	d.logger.Debug("Initializing DuckDB data source",
		zap.String("bars", barsPath),
		zap.String("funding", fundingPath),
	)

	bars, err := fileReader(barsPath)
	if err != nil {
		return errors.Wrap(errors.ErrCodeDataNotFound, "invalid bars file", err)
	}

	// Using raw SQL as Squirrel doesn't support CREATE VIEW
	statements := []string{
		`DROP VIEW IF EXISTS market_data;`,
		`DROP VIEW IF EXISTS funding_rates;`,
		fmt.Sprintf(`
			CREATE VIEW market_data AS
			SELECT * FROM (
				SELECT
					TRY_CAST(time AS TIMESTAMP) AS time,
					TRY_CAST(open AS DOUBLE) AS open,
					TRY_CAST(high AS DOUBLE) AS high,
					TRY_CAST(low AS DOUBLE) AS low,
					TRY_CAST(close AS DOUBLE) AS close,
					COALESCE(TRY_CAST(volume AS DOUBLE), 0) AS volume
				FROM %s
			)
			WHERE time IS NOT NULL AND open IS NOT NULL AND high IS NOT NULL
				AND low IS NOT NULL AND close IS NOT NULL;
		`, bars),
	}

	if fundingPath == "" {
		statements = append(statements, `
			CREATE VIEW funding_rates AS
			SELECT CAST(NULL AS TIMESTAMP) AS time, CAST(NULL AS DOUBLE) AS value
			WHERE false;
		`)
	} else {
		funding, err := fileReader(fundingPath)
		if err != nil {
			return errors.Wrap(errors.ErrCodeDataNotFound, "invalid funding file", err)
		}

		statements = append(statements, fmt.Sprintf(`
			CREATE VIEW funding_rates AS
			SELECT * FROM (
				SELECT TRY_CAST(time AS TIMESTAMP) AS time, TRY_CAST(value AS DOUBLE) AS value
				FROM %s
			)
			WHERE time IS NOT NULL AND value IS NOT NULL;
		`, funding))
	}

	for _, stmt := range statements {
		if _, err := d.db.Exec(stmt); err != nil {
			return errors.Wrap(errors.ErrCodeDataSourceUnavailable, "failed to attach market data", err)
		}
	}

	return nil
}

func timeBounds(column string, start optional.Option[time.Time], end optional.Option[time.Time]) squirrel.And {
	conditions := squirrel.And{}

	if start.IsSome() {
		conditions = append(conditions, squirrel.GtOrEq{column: start.Unwrap()})
	}

	if end.IsSome() {
		conditions = append(conditions, squirrel.LtOrEq{column: end.Unwrap()})
	}

	return conditions
}

// Count implements DataSource.
func (d *DuckDBDataSource) Count(start optional.Option[time.Time], end optional.Option[time.Time]) (int, error) {
	builder := d.sq.Select("COUNT(*)").From("market_data")
	if bounds := timeBounds("time", start, end); len(bounds) > 0 {
		builder = builder.Where(bounds)
	}

	query, args, err := builder.ToSql()
	if err != nil {
		return 0, fmt.Errorf("failed to build query: %w", err)
	}

	var count int
	if err := d.db.QueryRow(query, args...).Scan(&count); err != nil {
		return 0, errors.Wrap(errors.ErrCodeQueryFailed, "failed to count bars", err)
	}

	return count, nil
}

func (d *DuckDBDataSource) buildBarsQuery(start optional.Option[time.Time], end optional.Option[time.Time], interval optional.Option[Interval]) (string, []interface{}, error) {
	bounds := timeBounds("time", start, end)

	// If no interval is specified, read the raw bars
	if interval.IsNone() {
		builder := d.sq.
			Select("time", "open", "high", "low", "close", "volume").
			From("market_data").
			OrderBy("time ASC")
		if len(bounds) > 0 {
			builder = builder.Where(bounds)
		}

		return builder.ToSql()
	}

	minutes, err := getIntervalMinutes(interval.Unwrap())
	if err != nil {
		return "", nil, errors.Wrap(errors.ErrCodeInvalidConfiguration, "invalid resample interval", err)
	}

	bucket := fmt.Sprintf("time_bucket(INTERVAL '%d minutes', time)", minutes)
	builder := d.sq.
		Select(
			bucket+" AS bucket_time",
			"arg_min(open, time) AS open",
			"MAX(high) AS high",
			"MIN(low) AS low",
			"arg_max(close, time) AS close",
			"SUM(volume) AS volume",
		).
		From("market_data").
		GroupBy("bucket_time").
		OrderBy("bucket_time ASC")
	if len(bounds) > 0 {
		builder = builder.Where(bounds)
	}

	return builder.ToSql()
}

// Bars implements DataSource.
func (d *DuckDBDataSource) Bars(start optional.Option[time.Time], end optional.Option[time.Time], interval optional.Option[Interval]) func(yield func(types.MarketData, error) bool) {
	return func(yield func(types.MarketData, error) bool) {
		query, args, err := d.buildBarsQuery(start, end, interval)
		if err != nil {
			yield(types.MarketData{}, err)

			return
		}

		rows, err := d.db.Query(query, args...)
		if err != nil {
			yield(types.MarketData{}, errors.Wrap(errors.ErrCodeQueryFailed, "failed to query bars", err))

			return
		}
		defer rows.Close()

		for rows.Next() {
			var bar types.MarketData

			if err := rows.Scan(&bar.Time, &bar.Open, &bar.High, &bar.Low, &bar.Close, &bar.Volume); err != nil {
				yield(types.MarketData{}, errors.Wrap(errors.ErrCodeQueryFailed, "failed to scan bar", err))

				return
			}

			if !yield(bar, nil) {
				return
			}
		}

		if err := rows.Err(); err != nil {
			yield(types.MarketData{}, errors.Wrap(errors.ErrCodeQueryFailed, "error iterating bars", err))
		}
	}
}

// Funding implements DataSource.
func (d *DuckDBDataSource) Funding(start optional.Option[time.Time], end optional.Option[time.Time]) func(yield func(types.FundingSample, error) bool) {
	return func(yield func(types.FundingSample, error) bool) {
		builder := d.sq.Select("time", "value").From("funding_rates").OrderBy("time ASC")
		if bounds := timeBounds("time", start, end); len(bounds) > 0 {
			builder = builder.Where(bounds)
		}

		query, args, err := builder.ToSql()
		if err != nil {
			yield(types.FundingSample{}, fmt.Errorf("failed to build query: %w", err))

			return
		}

		rows, err := d.db.Query(query, args...)
		if err != nil {
			yield(types.FundingSample{}, errors.Wrap(errors.ErrCodeQueryFailed, "failed to query funding rates", err))

			return
		}
		defer rows.Close()

		for rows.Next() {
			var sample types.FundingSample

			if err := rows.Scan(&sample.Time, &sample.Value); err != nil {
				yield(types.FundingSample{}, errors.Wrap(errors.ErrCodeQueryFailed, "failed to scan funding sample", err))

				return
			}

			if !yield(sample, nil) {
				return
			}
		}

		if err := rows.Err(); err != nil {
			yield(types.FundingSample{}, errors.Wrap(errors.ErrCodeQueryFailed, "error iterating funding rates", err))
		}
	}
}

// Close implements DataSource.
func (d *DuckDBDataSource) Close() error {
	return d.db.Close()
}
