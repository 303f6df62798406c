package main

import (
	"context"
	"database/sql"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/Masterminds/squirrel"
	_ "github.com/marcboeker/go-duckdb"
	engine "github.com/rxtech-lab/funding-breakout/internal/backtest/engine/engine_v1"
	"github.com/rxtech-lab/funding-breakout/internal/optimizer"
	"github.com/rxtech-lab/funding-breakout/internal/version"
	"github.com/rxtech-lab/funding-breakout/mocks"
	"github.com/urfave/cli/v3"
	"gopkg.in/yaml.v3"
)

const (
	schemaName           = "backtest-engine-v1-config.json"
	sampleConfigName     = "backtest-engine-v1-config.yaml"
	sampleOptimizerName  = "optimizer.yaml"
	optimizerSchemaName  = "optimizer-config.json"
	sampleBarsName       = "bars.parquet"
	sampleFundingName    = "funding.parquet"
	insertBatchSize      = 500
	defaultSampleBarSeed = 42
)

func validatePaths(schemaPath, sampleConfigPath string) error {
	if schemaPath == "" {
		return fmt.Errorf("schema path cannot be empty")
	}

	if sampleConfigPath == "" {
		return fmt.Errorf("sample config path cannot be empty")
	}

	return nil
}

func validateSchemaName(name string) error {
	if name == "" {
		return fmt.Errorf("schema name cannot be empty")
	}

	if filepath.Ext(name) != ".json" {
		return fmt.Errorf("schema name %q must have .json extension", name)
	}

	return nil
}

func getSchemaReference(name string) string {
	return "# yaml-language-server: $schema=" + name + "\n"
}

func generateSchemaFile(config engine.BacktestEngineV1Config, schemaPath string) error {
	schemaJSON, err := config.GenerateSchemaJSON()
	if err != nil {
		return fmt.Errorf("failed to generate schema: %w", err)
	}

	if err := os.MkdirAll(filepath.Dir(schemaPath), 0755); err != nil {
		return fmt.Errorf("failed to create directory: %w", err)
	}

	if err := os.WriteFile(schemaPath, []byte(schemaJSON), 0644); err != nil {
		return fmt.Errorf("failed to write schema to file: %w", err)
	}

	return nil
}

// writeOnce writes content to path unless the file already exists.
func writeOnce(path string, content []byte) (bool, error) {
	if _, err := os.Stat(path); err == nil {
		return false, nil
	}

	if err := os.WriteFile(path, content, 0644); err != nil {
		return false, fmt.Errorf("failed to write %s: %w", filepath.Base(path), err)
	}

	return true, nil
}

func generateSampleConfig(config engine.BacktestEngineV1Config, samplePath string, schema string) error {
	yamlBytes, err := yaml.Marshal(config)
	if err != nil {
		return fmt.Errorf("failed to marshal sample config to yaml: %w", err)
	}

	written, err := writeOnce(samplePath, append([]byte(getSchemaReference(schema)), yamlBytes...))
	if err != nil {
		return err
	}

	if written {
		log.Printf("Sample config successfully generated at %s", samplePath)
	}

	return nil
}

func generateOptimizerSchemaFile(schemaPath string) error {
	schemaJSON, err := optimizer.ConfigSchema()
	if err != nil {
		return fmt.Errorf("failed to generate optimizer schema: %w", err)
	}

	if err := os.WriteFile(schemaPath, []byte(schemaJSON), 0644); err != nil {
		return fmt.Errorf("failed to write optimizer schema to file: %w", err)
	}

	return nil
}

func generateSampleOptimizerConfig(config optimizer.Config, samplePath string, schema string) error {
	yamlBytes, err := yaml.Marshal(config)
	if err != nil {
		return fmt.Errorf("failed to marshal optimizer config to yaml: %w", err)
	}

	written, err := writeOnce(samplePath, append([]byte(getSchemaReference(schema)), yamlBytes...))
	if err != nil {
		return err
	}

	if written {
		log.Printf("Sample optimizer config successfully generated at %s", samplePath)
	}

	return nil
}

// generateSampleData writes synthetic bars and funding rates for a local run.
func generateSampleData(dir string, bars int, seed int64) error {
	marketData, funding := mocks.GenerateRun(seed, bars)

	db, err := sql.Open("duckdb", "")
	if err != nil {
		return fmt.Errorf("failed to open DuckDB connection: %w", err)
	}
	defer db.Close()

	for _, ddl := range []string{
		"CREATE TABLE bars (time TIMESTAMP, open DOUBLE, high DOUBLE, low DOUBLE, close DOUBLE, volume DOUBLE)",
		"CREATE TABLE funding (time TIMESTAMP, value DOUBLE)",
	} {
		if _, err := db.Exec(ddl); err != nil {
			return fmt.Errorf("failed to create sample tables: %w", err)
		}
	}

	for start := 0; start < len(marketData); start += insertBatchSize {
		insert := squirrel.Insert("bars").Columns("time", "open", "high", "low", "close", "volume").PlaceholderFormat(squirrel.Dollar)
		for _, bar := range marketData[start:min(start+insertBatchSize, len(marketData))] {
			insert = insert.Values(bar.Time, bar.Open, bar.High, bar.Low, bar.Close, bar.Volume)
		}

		if err := execInsert(db, insert); err != nil {
			return err
		}
	}

	for start := 0; start < len(funding); start += insertBatchSize {
		insert := squirrel.Insert("funding").Columns("time", "value").PlaceholderFormat(squirrel.Dollar)
		for _, sample := range funding[start:min(start+insertBatchSize, len(funding))] {
			insert = insert.Values(sample.Time, sample.Value)
		}

		if err := execInsert(db, insert); err != nil {
			return err
		}
	}

	for table, name := range map[string]string{"bars": sampleBarsName, "funding": sampleFundingName} {
		path := strings.ReplaceAll(filepath.Join(dir, name), "'", "''")
		if _, err := db.Exec(fmt.Sprintf("COPY (SELECT * FROM %s ORDER BY time) TO '%s' (FORMAT PARQUET)", table, path)); err != nil {
			return fmt.Errorf("failed to write %s: %w", name, err)
		}
	}

	log.Printf("Sample data with %d bars and %d funding samples generated in %s", len(marketData), len(funding), dir)

	return nil
}

func execInsert(db *sql.DB, insert squirrel.InsertBuilder) error {
	query, args, err := insert.ToSql()
	if err != nil {
		return fmt.Errorf("failed to build insert: %w", err)
	}

	if _, err := db.Exec(query, args...); err != nil {
		return fmt.Errorf("failed to insert sample rows: %w", err)
	}

	return nil
}

// generate writes the schema and sample configurations into dir, and sample
// data when bars is positive.
func generate(dir string, bars int, seed int64) error {
	if err := validateSchemaName(schemaName); err != nil {
		return err
	}

	schemaPath := filepath.Join(dir, schemaName)
	sampleConfigPath := filepath.Join(dir, sampleConfigName)

	if err := validatePaths(schemaPath, sampleConfigPath); err != nil {
		return err
	}

	config := engine.DefaultConfig()
	if bars > 0 {
		config.BarsPath = filepath.Join(dir, sampleBarsName)
		config.FundingPath = filepath.Join(dir, sampleFundingName)
	}

	if err := generateSchemaFile(config, schemaPath); err != nil {
		return err
	}

	if err := generateSampleConfig(config, sampleConfigPath, schemaName); err != nil {
		return err
	}

	if err := generateOptimizerSchemaFile(filepath.Join(dir, optimizerSchemaName)); err != nil {
		return err
	}

	optimizerConfig := optimizer.DefaultConfig()
	optimizerConfig.BacktestConfig = sampleConfigPath

	if err := generateSampleOptimizerConfig(optimizerConfig, filepath.Join(dir, sampleOptimizerName), optimizerSchemaName); err != nil {
		return err
	}

	if bars > 0 {
		if err := generateSampleData(dir, bars, seed); err != nil {
			return err
		}
	}

	log.Printf("Schema successfully generated at %s", schemaPath)

	return nil
}

func main() {
	cmd := &cli.Command{
		Name:    "generate",
		Version: version.GetVersion(),
		Usage:   "Generate the config schema, sample configs and optional sample data",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:  "output",
				Usage: "Directory the files are written to",
				Value: "./config",
			},
			&cli.IntFlag{
				Name:  "sample-bars",
				Usage: "Number of hourly sample bars to generate, 0 to skip",
			},
			&cli.IntFlag{
				Name:  "seed",
				Usage: "Seed of the sample data generator",
				Value: defaultSampleBarSeed,
			},
		},
		Action: func(ctx context.Context, cmd *cli.Command) error {
			started := time.Now()
			if err := generate(cmd.String("output"), cmd.Int("sample-bars"), int64(cmd.Int("seed"))); err != nil {
				return err
			}

			log.Printf("Done in %s", time.Since(started).Round(time.Millisecond))

			return nil
		},
	}

	if err := cmd.Run(context.Background(), os.Args); err != nil {
		log.Fatal(err)
	}
}
