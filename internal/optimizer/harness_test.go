package optimizer

import (
	"bytes"
	"context"
	"fmt"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"sync/atomic"
	"testing"

	"github.com/rxtech-lab/funding-breakout/internal/metrics"
	"github.com/rxtech-lab/funding-breakout/internal/optimizer/executor"
	"github.com/rxtech-lab/funding-breakout/internal/types"
	"github.com/rxtech-lab/funding-breakout/internal/writers"
	"github.com/rxtech-lab/funding-breakout/mocks"
	"github.com/rxtech-lab/funding-breakout/pkg/errors"
	"github.com/stretchr/testify/suite"
	"go.uber.org/mock/gomock"
)

type HarnessTestSuite struct {
	suite.Suite
	ctrl     *gomock.Controller
	executor *mocks.MockExecutor
	writer   *writers.RunMetricsWriter
	path     string
}

func TestHarnessSuite(t *testing.T) {
	suite.Run(t, new(HarnessTestSuite))
}

func (suite *HarnessTestSuite) SetupTest() {
	suite.ctrl = gomock.NewController(suite.T())
	suite.executor = mocks.NewMockExecutor(suite.ctrl)
	suite.path = filepath.Join(suite.T().TempDir(), "run_metrics.jsonl")
	suite.writer = writers.NewRunMetricsWriter(suite.path)
	suite.Require().NoError(suite.writer.Initialize())
}

func (suite *HarnessTestSuite) TearDownTest() {
	suite.Require().NoError(suite.writer.Close())
	suite.ctrl.Finish()
}

// smallGrid yields four runs.
func smallGrid() []Run {
	grid := GridConfig{
		ATRStopNegative: []float64{3.0},
		ATRStopNeutral:  []float64{2.5},
		ATRStopPositive: []float64{2.0},
		BreakevenR:      []float64{0.8, 1.0},
		TrailStartR:     []float64{2.1, 2.4},
		SoftExitR:       []float64{3.5},
	}

	runs, err := NewGenerator(grid).Generate()
	if err != nil {
		panic(err)
	}

	return runs
}

func resultFor(req executor.Request) types.RunRecord {
	return types.RunRecord{
		RunID:  req.RunID,
		Params: req.Params.AsMap(),
		Metrics: map[string]float64{
			types.MetricTotalTrades:    100,
			types.MetricProfitFactor:   1.5,
			types.MetricAvgR:           0.2,
			types.MetricMaxDrawdownPct: 10,
			types.MetricScore:          req.Params.BreakevenR,
		},
	}
}

func scrape(m *metrics.Metrics) string {
	rec := httptest.NewRecorder()
	m.Handler().ServeHTTP(rec, httptest.NewRequest("GET", "/metrics", nil))

	return rec.Body.String()
}

func (suite *HarnessTestSuite) stored() []types.RunRecord {
	records, skipped, err := writers.ReadRunRecords(suite.path)
	suite.Require().NoError(err)
	suite.Zero(skipped)

	return records
}

func (suite *HarnessTestSuite) TestRunsEveryParameterSet() {
	runs := smallGrid()
	suite.Require().Len(runs, 4)

	suite.executor.EXPECT().Execute(gomock.Any(), gomock.Any()).
		DoAndReturn(func(_ context.Context, req executor.Request) (types.RunRecord, error) {
			return resultFor(req), nil
		}).Times(4)

	harness := NewHarness(suite.executor, suite.writer, WithWorkers(3))

	summary, err := harness.Run(context.Background(), runs)
	suite.Require().NoError(err)
	suite.Equal(Summary{Total: 4, Succeeded: 4}, summary)

	records := suite.stored()
	suite.Len(records, 4)

	ids := map[string]bool{}
	for _, r := range records {
		ids[r.RunID] = true
		suite.Equal(RunIDFromMap(r.Params), r.RunID)
	}

	for _, r := range runs {
		suite.True(ids[r.ID], "missing %s", r.ID)
	}
}

func (suite *HarnessTestSuite) TestFailedRunsAreSkipped() {
	runs := smallGrid()
	failing := runs[1].ID

	suite.executor.EXPECT().Execute(gomock.Any(), gomock.Any()).
		DoAndReturn(func(_ context.Context, req executor.Request) (types.RunRecord, error) {
			if req.RunID == failing {
				return types.RunRecord{}, errors.New(errors.ErrCodeRunFailed, "boom")
			}

			return resultFor(req), nil
		}).Times(4)

	m := metrics.New()
	harness := NewHarness(suite.executor, suite.writer, WithWorkers(2), WithHarnessMetrics(m))

	summary, err := harness.Run(context.Background(), runs)
	suite.Require().NoError(err)
	suite.Equal(3, summary.Succeeded)
	suite.Equal(1, summary.Failed)

	for _, r := range suite.stored() {
		suite.NotEqual(failing, r.RunID)
	}

	body := scrape(m)
	suite.Contains(body, `funding_breakout_runs_total{status="failed"} 1`)
	suite.Contains(body, `funding_breakout_runs_total{status="succeeded"} 3`)
}

func (suite *HarnessTestSuite) TestResumeSkipsStoredRuns() {
	runs := smallGrid()

	suite.Require().NoError(suite.writer.Write(resultFor(executor.Request{RunID: runs[0].ID, Params: runs[0].Params})))
	suite.Require().NoError(suite.writer.Write(resultFor(executor.Request{RunID: runs[2].ID, Params: runs[2].Params})))

	var executed []string

	suite.executor.EXPECT().Execute(gomock.Any(), gomock.Any()).
		DoAndReturn(func(_ context.Context, req executor.Request) (types.RunRecord, error) {
			executed = append(executed, req.RunID)

			return resultFor(req), nil
		}).Times(2)

	m := metrics.New()
	harness := NewHarness(suite.executor, suite.writer, WithHarnessMetrics(m))

	summary, err := harness.Run(context.Background(), runs)
	suite.Require().NoError(err)
	suite.Equal(Summary{Total: 4, Skipped: 2, Succeeded: 2}, summary)
	suite.ElementsMatch([]string{runs[1].ID, runs[3].ID}, executed)
	suite.Len(suite.stored(), 4)
	suite.Contains(scrape(m), `funding_breakout_runs_total{status="skipped"} 2`)
}

func (suite *HarnessTestSuite) TestRecordIsNormalized() {
	runs := smallGrid()[:1]

	suite.executor.EXPECT().Execute(gomock.Any(), gomock.Any()).
		Return(types.RunRecord{RunID: "other", Metrics: map[string]float64{types.MetricTotalTrades: 2}}, nil)

	harness := NewHarness(suite.executor, suite.writer)

	_, err := harness.Run(context.Background(), runs)
	suite.Require().NoError(err)

	records := suite.stored()
	suite.Require().Len(records, 1)
	suite.Equal(runs[0].ID, records[0].RunID)
	suite.Equal(runs[0].Params.AsMap(), records[0].Params)
	suite.True(records[0].Score().IsSome())
}

func (suite *HarnessTestSuite) TestCancelStopsScheduling() {
	runs := smallGrid()
	ctx, cancel := context.WithCancel(context.Background())

	var calls atomic.Int32

	suite.executor.EXPECT().Execute(gomock.Any(), gomock.Any()).
		DoAndReturn(func(_ context.Context, req executor.Request) (types.RunRecord, error) {
			calls.Add(1)
			cancel()

			return resultFor(req), nil
		}).MaxTimes(4)

	harness := NewHarness(suite.executor, suite.writer, WithWorkers(1))

	summary, err := harness.Run(ctx, runs)
	suite.ErrorIs(err, context.Canceled)
	suite.Equal(int32(1), calls.Load())
	suite.Equal(1, summary.Succeeded)
	suite.Len(suite.stored(), 1)
}

func (suite *HarnessTestSuite) TestProgressBar() {
	runs := smallGrid()

	suite.executor.EXPECT().Execute(gomock.Any(), gomock.Any()).
		DoAndReturn(func(_ context.Context, req executor.Request) (types.RunRecord, error) {
			return resultFor(req), nil
		}).Times(len(runs))

	var out bytes.Buffer
	harness := NewHarness(suite.executor, suite.writer, WithProgress(&out))

	_, err := harness.Run(context.Background(), runs)
	suite.Require().NoError(err)
	suite.True(strings.Contains(out.String(), fmt.Sprintf("Optimizing %d parameter sets", len(runs))))
}
