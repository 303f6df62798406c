package engine

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/suite"
)

// UtilsTestSuite is a test suite for utils package
type UtilsTestSuite struct {
	suite.Suite
}

// TestUtilsSuite runs the test suite
func TestUtilsSuite(t *testing.T) {
	suite.Run(t, new(UtilsTestSuite))
}

func (suite *UtilsTestSuite) TestResultFolder() {
	tests := []struct {
		name          string
		resultsFolder string
		strategyName  string
		runID         string
		expectedPath  string
	}{
		{
			name:          "Run with id",
			resultsFolder: "/results",
			strategyName:  "donchian_funding",
			runID:         "run_fb832715",
			expectedPath:  "/results/donchian_funding/run_fb832715",
		},
		{
			name:          "Run without id",
			resultsFolder: "/results",
			strategyName:  "donchian_funding",
			runID:         "",
			expectedPath:  "/results/donchian_funding/default",
		},
		{
			name:          "Run id cannot escape the folder",
			resultsFolder: "/results",
			strategyName:  "donchian_funding",
			runID:         "../../etc",
			expectedPath:  "/results/donchian_funding/etc",
		},
		{
			name:          "Relative results folder",
			resultsFolder: "out",
			strategyName:  "donchian_funding",
			runID:         "run_97c115e9",
			expectedPath:  "out/donchian_funding/run_97c115e9",
		},
	}

	for _, tc := range tests {
		suite.Run(tc.name, func() {
			resultPath := ResultFolder(tc.resultsFolder, tc.strategyName, tc.runID)
			suite.Equal(filepath.Clean(tc.expectedPath), filepath.Clean(resultPath), "Result folder path mismatch")
		})
	}
}

func (suite *UtilsTestSuite) TestStatsPath() {
	suite.Equal(filepath.Join("/results", "donchian_funding", "run_63f476c2", "stats.yaml"),
		StatsPath("/results", "donchian_funding", "run_63f476c2"))
}
