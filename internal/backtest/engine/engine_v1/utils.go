package engine

import (
	"path/filepath"
)

// defaultRunName names the result folder of a run without a run id.
const defaultRunName = "default"

// ResultFolder returns the folder a run writes into:
// <resultsFolder>/<strategyName>/<runID>.
func ResultFolder(resultsFolder string, strategyName string, runID string) string {
	if runID == "" {
		runID = defaultRunName
	}

	return filepath.Join(resultsFolder, strategyName, filepath.Base(runID))
}

// StatsPath returns the stats.yaml path of a run.
func StatsPath(resultsFolder string, strategyName string, runID string) string {
	return filepath.Join(ResultFolder(resultsFolder, strategyName, runID), statsFileName)
}
