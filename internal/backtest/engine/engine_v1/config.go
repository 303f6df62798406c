package engine

import (
	"encoding/json"
	"os"
	"reflect"
	"slices"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/invopop/jsonschema"
	"github.com/moznion/go-optional"
	"github.com/rxtech-lab/funding-breakout/internal/backtest/engine/engine_v1/commission_fee"
	"github.com/rxtech-lab/funding-breakout/internal/backtest/engine/engine_v1/datasource"
	"github.com/rxtech-lab/funding-breakout/internal/strategy"
	"github.com/rxtech-lab/funding-breakout/pkg/errors"
	"gopkg.in/yaml.v3"
)

type BacktestEngineV1Config struct {
	InitialCapital   float64                    `yaml:"initial_capital" json:"initial_capital" validate:"gt=0" jsonschema:"title=Initial Capital,description=Starting capital for the backtest in quote currency,minimum=0"`
	Symbol           string                     `yaml:"symbol" json:"symbol" validate:"required" jsonschema:"title=Symbol,description=Instrument traded by the strategy"`
	Broker           commission_fee.Broker      `yaml:"broker" json:"broker" validate:"required" jsonschema:"title=Broker,description=The fee model used for fills"`
	FeePercent       float64                    `yaml:"fee_percent" json:"fee_percent" validate:"gte=0,lt=1" jsonschema:"title=Fee Percent,description=Fee rate of the percentage broker as a fraction of notional"`
	DecimalPrecision int                        `yaml:"decimal_precision" json:"decimal_precision" validate:"gte=0,lte=8" jsonschema:"title=Decimal Precision,description=Decimal places kept on order quantities,minimum=0,maximum=8"`
	StartTime        optional.Option[time.Time] `yaml:"start_time" json:"start_time" jsonschema:"title=Start Time,description=Optional start time for the backtest period"`
	EndTime          optional.Option[time.Time] `yaml:"end_time" json:"end_time" jsonschema:"title=End Time,description=Optional end time for the backtest period"`
	Interval         string                     `yaml:"interval" json:"interval" jsonschema:"title=Interval,description=Optional bar resample interval such as 1h or 4h"`
	BarsPath         string                     `yaml:"bars_path" json:"bars_path" jsonschema:"title=Bars Path,description=Parquet or CSV file with time and OHLCV columns"`
	FundingPath      string                     `yaml:"funding_path" json:"funding_path" jsonschema:"title=Funding Path,description=Parquet or CSV file with time and value columns"`
	ResultsFolder    string                     `yaml:"results_folder" json:"results_folder" jsonschema:"title=Results Folder,description=Directory receiving trades.parquet and stats.yaml"`
	Strategy         strategy.Params            `yaml:"strategy" json:"strategy" jsonschema:"title=Strategy,description=Strategy parameters"`
}

// configDocument is the YAML shape of BacktestEngineV1Config with the
// optional bounds as pointers.
type configDocument struct {
	InitialCapital   float64               `yaml:"initial_capital"`
	Symbol           string                `yaml:"symbol"`
	Broker           commission_fee.Broker `yaml:"broker"`
	FeePercent       float64               `yaml:"fee_percent"`
	DecimalPrecision int                   `yaml:"decimal_precision"`
	StartTime        *time.Time            `yaml:"start_time,omitempty"`
	EndTime          *time.Time            `yaml:"end_time,omitempty"`
	Interval         string                `yaml:"interval,omitempty"`
	BarsPath         string                `yaml:"bars_path"`
	FundingPath      string                `yaml:"funding_path,omitempty"`
	ResultsFolder    string                `yaml:"results_folder,omitempty"`
	Strategy         strategy.Params       `yaml:"strategy"`
}

// UnmarshalYAML implements yaml.Unmarshaler. Fields missing from the document
// keep their DefaultConfig values.
func (c *BacktestEngineV1Config) UnmarshalYAML(value *yaml.Node) error {
	defaults := DefaultConfig()
	config := configDocument{
		InitialCapital:   defaults.InitialCapital,
		Symbol:           defaults.Symbol,
		Broker:           defaults.Broker,
		FeePercent:       defaults.FeePercent,
		DecimalPrecision: defaults.DecimalPrecision,
		Strategy:         defaults.Strategy,
	}

	if err := value.Decode(&config); err != nil {
		return err
	}

	c.InitialCapital = config.InitialCapital
	c.Symbol = config.Symbol
	c.Broker = config.Broker
	c.FeePercent = config.FeePercent
	c.DecimalPrecision = config.DecimalPrecision
	c.StartTime = optional.None[time.Time]()
	c.EndTime = optional.None[time.Time]()
	c.Interval = config.Interval
	c.BarsPath = config.BarsPath
	c.FundingPath = config.FundingPath
	c.ResultsFolder = config.ResultsFolder
	c.Strategy = config.Strategy

	if config.StartTime != nil {
		c.StartTime = optional.Some(*config.StartTime)
	}

	if config.EndTime != nil {
		c.EndTime = optional.Some(*config.EndTime)
	}

	return nil
}

// MarshalYAML implements yaml.Marshaler.
func (c BacktestEngineV1Config) MarshalYAML() (interface{}, error) {
	doc := configDocument{
		InitialCapital:   c.InitialCapital,
		Symbol:           c.Symbol,
		Broker:           c.Broker,
		FeePercent:       c.FeePercent,
		DecimalPrecision: c.DecimalPrecision,
		Interval:         c.Interval,
		BarsPath:         c.BarsPath,
		FundingPath:      c.FundingPath,
		ResultsFolder:    c.ResultsFolder,
		Strategy:         c.Strategy,
	}

	if c.StartTime.IsSome() {
		start := c.StartTime.Unwrap()
		doc.StartTime = &start
	}

	if c.EndTime.IsSome() {
		end := c.EndTime.Unwrap()
		doc.EndTime = &end
	}

	return doc, nil
}

// Validate checks the engine fields and the nested strategy parameters.
func (c *BacktestEngineV1Config) Validate() error {
	if err := validator.New().Struct(c); err != nil {
		return errors.Wrap(errors.ErrCodeInvalidConfiguration, "invalid backtest config", err)
	}

	if c.StartTime.IsSome() && c.EndTime.IsSome() && c.EndTime.Unwrap().Before(c.StartTime.Unwrap()) {
		return errors.New(errors.ErrCodeInvalidPeriod, "end_time is before start_time")
	}

	if !isKnownBroker(c.Broker) {
		return errors.Newf(errors.ErrCodeInvalidConfiguration, "unknown broker %q", c.Broker)
	}

	if c.Interval != "" {
		if _, err := c.BarInterval(); err != nil {
			return err
		}
	}

	return c.Strategy.Validate()
}

// BarInterval returns the configured resample interval, if any.
func (c *BacktestEngineV1Config) BarInterval() (optional.Option[datasource.Interval], error) {
	if c.Interval == "" {
		return optional.None[datasource.Interval](), nil
	}

	interval := datasource.Interval(c.Interval)
	if slices.Contains(datasource.AllIntervals, interval) {
		return optional.Some(interval), nil
	}

	return optional.None[datasource.Interval](), errors.Newf(errors.ErrCodeInvalidConfiguration, "unsupported interval %q", c.Interval)
}

func isKnownBroker(broker commission_fee.Broker) bool {
	return slices.Contains(commission_fee.AllBrokers, any(broker))
}

// GenerateSchema generates a JSON schema for the BacktestEngineV1Config
func (c *BacktestEngineV1Config) GenerateSchema() (*jsonschema.Schema, error) {
	reflector := jsonschema.Reflector{
		RequiredFromJSONSchemaTags: true,
		ExpandedStruct:             true,
		AllowAdditionalProperties:  false,
		Mapper: func(t reflect.Type) *jsonschema.Schema {
			if t.String() == "optional.Option[time.Time]" {
				return &jsonschema.Schema{
					Type:   "string",
					Format: "date-time",
				}
			}

			if strings.Contains(t.String(), "commission_fee.Broker") {
				return &jsonschema.Schema{
					Type: "string",
					Enum: commission_fee.AllBrokers,
				}
			}

			return nil
		},
	}

	// Generate schema from BacktestEngineV1Config struct
	schema := reflector.Reflect(c)

	// Set schema metadata
	schema.Title = "backtest-engine-v1-config"
	schema.Description = "Configuration schema for BacktestEngineV1"
	schema.Version = "http://json-schema.org/draft-07/schema#"

	return schema, nil
}

// GenerateSchemaJSON generates a JSON schema string for the BacktestEngineV1Config
func (c *BacktestEngineV1Config) GenerateSchemaJSON() (string, error) {
	schema, err := c.GenerateSchema()
	if err != nil {
		return "", err
	}

	schemaBytes, err := json.MarshalIndent(schema, "", "  ")
	if err != nil {
		return "", err
	}

	return string(schemaBytes), nil
}

// LoadConfig reads and validates a YAML config file.
func LoadConfig(path string) (BacktestEngineV1Config, error) {
	content, err := os.ReadFile(path)
	if err != nil {
		return BacktestEngineV1Config{}, errors.Wrapf(errors.ErrCodeBacktestConfigError, err, "failed to read config %s", path)
	}

	return ParseConfig(content)
}

// ParseConfig decodes and validates YAML config content.
func ParseConfig(content []byte) (BacktestEngineV1Config, error) {
	config := DefaultConfig()
	if err := yaml.Unmarshal(content, &config); err != nil {
		return BacktestEngineV1Config{}, errors.Wrap(errors.ErrCodeBacktestConfigError, "failed to parse config", err)
	}

	if err := config.Validate(); err != nil {
		return BacktestEngineV1Config{}, err
	}

	return config, nil
}

// DefaultConfig returns a BacktestEngineV1Config with default values
func DefaultConfig() BacktestEngineV1Config {
	return BacktestEngineV1Config{
		InitialCapital:   10000,
		Symbol:           "BTCUSDT",
		Broker:           commission_fee.BrokerPercentage,
		FeePercent:       commission_fee.DefaultFeePercent,
		DecimalPrecision: 4,
		StartTime:        optional.None[time.Time](),
		EndTime:          optional.None[time.Time](),
		Strategy:         strategy.DefaultParams(),
	}
}
