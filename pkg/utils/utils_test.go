package utils

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/suite"
)

type UtilsTestSuite struct {
	suite.Suite
}

func TestUtilsSuite(t *testing.T) {
	suite.Run(t, new(UtilsTestSuite))
}

type thresholds struct {
	MinTrades float64 `yaml:"min_trades" jsonschema:"description=Fewest trades a run needs"`
}

type sampleConfig struct {
	Name       string     `yaml:"name" jsonschema:"description=The name of the config"`
	Workers    int        `yaml:"workers"`
	Values     []float64  `yaml:"values,omitempty"`
	Thresholds thresholds `yaml:"thresholds"`
}

func (suite *UtilsTestSuite) decode(config any) map[string]any {
	schema, err := GetSchemaFromConfig(config)
	suite.Require().NoError(err)

	var result map[string]any
	suite.Require().NoError(json.Unmarshal([]byte(schema), &result))

	return result
}

func (suite *UtilsTestSuite) TestPropertiesUseYAMLNames() {
	result := suite.decode(sampleConfig{})

	suite.Contains(result, "$schema")
	suite.Equal("object", result["type"])

	properties, ok := result["properties"].(map[string]any)
	suite.Require().True(ok)
	suite.Contains(properties, "name")
	suite.Contains(properties, "workers")
	suite.Contains(properties, "values")
	suite.Contains(properties, "thresholds")
	suite.NotContains(properties, "Name")
}

func (suite *UtilsTestSuite) TestNestedStructsAreDefinitions() {
	result := suite.decode(&sampleConfig{})

	defs, ok := result["$defs"].(map[string]any)
	suite.Require().True(ok)
	suite.Contains(defs, "thresholds")
}

func (suite *UtilsTestSuite) TestOutputIsIndented() {
	schema, err := GetSchemaFromConfig(sampleConfig{Name: "grid", Workers: 4})
	suite.Require().NoError(err)
	suite.Contains(schema, "\n  \"")
}
