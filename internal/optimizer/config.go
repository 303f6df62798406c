package optimizer

import (
	"os"
	"path/filepath"
	"runtime"

	"github.com/go-playground/validator/v10"
	"github.com/rxtech-lab/funding-breakout/pkg/errors"
	"github.com/rxtech-lab/funding-breakout/pkg/utils"
	"gopkg.in/yaml.v3"
)

// ExecutorKind selects how a single run is executed.
type ExecutorKind string

const (
	// ExecutorInProcess runs the engine inside the optimizer process.
	ExecutorInProcess ExecutorKind = "in_process"
	// ExecutorProcess runs the backtest binary once per parameter set.
	ExecutorProcess ExecutorKind = "process"
)

const (
	runMetricsFileName = "run_metrics.jsonl"
	topFileName        = "top.csv"
)

// Config is the optimizer configuration file.
type Config struct {
	// BacktestConfig is the engine configuration every run starts from.
	BacktestConfig string       `yaml:"backtest_config" validate:"required"`
	Grid           GridConfig   `yaml:"grid"`
	Workers        int          `yaml:"workers" validate:"gt=0"`
	Executor       ExecutorKind `yaml:"executor" validate:"oneof=in_process process"`
	Binary         string       `yaml:"binary" validate:"required_if=Executor process"`
	ResultsFolder  string       `yaml:"results_folder" validate:"required"`
	MetricsFile    string       `yaml:"metrics_file"`
	Filters        RankFilters  `yaml:"filters"`
	TopN           int          `yaml:"top_n" validate:"gte=0"`
	ExportTop      int          `yaml:"export_top" validate:"gte=0"`
	ExportPath     string       `yaml:"export_path"`
}

// DefaultConfig returns the stock optimizer settings.
func DefaultConfig() Config {
	return Config{
		Grid:          DefaultGridConfig(),
		Workers:       max(runtime.NumCPU()-1, 1),
		Executor:      ExecutorInProcess,
		ResultsFolder: "results",
		Filters:       DefaultRankFilters(),
		TopN:          10,
		ExportTop:     20,
	}
}

// LoadConfig reads and validates a YAML file. Missing keys keep their defaults.
func LoadConfig(path string) (Config, error) {
	content, err := os.ReadFile(path)
	if err != nil {
		return Config{}, errors.Wrap(errors.ErrCodeInvalidConfiguration, "failed to read optimizer config", err)
	}

	return ParseConfig(content)
}

// ParseConfig decodes and validates YAML content.
func ParseConfig(content []byte) (Config, error) {
	config := DefaultConfig()
	if err := yaml.Unmarshal(content, &config); err != nil {
		return Config{}, errors.Wrap(errors.ErrCodeInvalidConfiguration, "failed to parse optimizer config", err)
	}

	if err := config.Validate(); err != nil {
		return Config{}, err
	}

	return config, nil
}

// Validate checks the fields and the grid.
func (c *Config) Validate() error {
	if err := validator.New().Struct(c); err != nil {
		return errors.Wrap(errors.ErrCodeInvalidConfiguration, "invalid optimizer config", err)
	}

	return nil
}

// MetricsPath is the JSON-lines file the run records are appended to.
func (c Config) MetricsPath() string {
	if c.MetricsFile != "" {
		return c.MetricsFile
	}

	return filepath.Join(c.ResultsFolder, runMetricsFileName)
}

// TopPath is where the leading runs are exported.
func (c Config) TopPath() string {
	if c.ExportPath != "" {
		return c.ExportPath
	}

	return filepath.Join(c.ResultsFolder, topFileName)
}

// ConfigSchema returns the JSON schema of the optimizer configuration file.
func ConfigSchema() (string, error) {
	return utils.GetSchemaFromConfig(&Config{})
}
