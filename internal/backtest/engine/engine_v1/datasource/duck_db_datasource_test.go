package datasource

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/moznion/go-optional"
	"github.com/rxtech-lab/funding-breakout/internal/logger"
	"github.com/rxtech-lab/funding-breakout/internal/types"
	"github.com/stretchr/testify/suite"
)

type DuckDBDataSourceTestSuite struct {
	suite.Suite
	tempDir    string
	dataSource DataSource
}

func TestDuckDBDataSourceSuite(t *testing.T) {
	suite.Run(t, new(DuckDBDataSourceTestSuite))
}

const barsCSV = `time,open,high,low,close,volume
2024-01-01 00:00:00,100,101,99,100.5,10
2024-01-01 00:15:00,100.5,102,100,101.5,20
not-a-time,1,2,3,4,5
2024-01-01 00:30:00,101.5,103,101,102,30
2024-01-01 00:45:00,102,102.5,98,99,40
2024-01-01 01:00:00,99,100,97,98,50
`

const fundingCSV = `time,value
2024-01-01 00:00:00,0.0001
2024-01-01 08:00:00,-0.0002
2024-01-01 16:00:00,0.0003
`

func (suite *DuckDBDataSourceTestSuite) SetupTest() {
	tempDir, err := os.MkdirTemp("", "datasource-test")
	suite.Require().NoError(err)
	suite.tempDir = tempDir

	barsPath := filepath.Join(tempDir, "bars.csv")
	fundingPath := filepath.Join(tempDir, "funding.csv")
	suite.Require().NoError(os.WriteFile(barsPath, []byte(barsCSV), 0644))
	suite.Require().NoError(os.WriteFile(fundingPath, []byte(fundingCSV), 0644))

	ds, err := NewDataSource(":memory:", logger.NewNopLogger())
	suite.Require().NoError(err)
	suite.Require().NoError(ds.Initialize(barsPath, fundingPath))
	suite.dataSource = ds
}

func (suite *DuckDBDataSourceTestSuite) TearDownTest() {
	if suite.dataSource != nil {
		suite.NoError(suite.dataSource.Close())
	}

	os.RemoveAll(suite.tempDir)
}

func collectBars(iter func(yield func(types.MarketData, error) bool)) ([]types.MarketData, error) {
	var bars []types.MarketData

	for bar, err := range iter {
		if err != nil {
			return bars, err
		}

		bars = append(bars, bar)
	}

	return bars, nil
}

func (suite *DuckDBDataSourceTestSuite) TestBarsSkipsMalformedRows() {
	bars, err := collectBars(suite.dataSource.Bars(optional.None[time.Time](), optional.None[time.Time](), optional.None[Interval]()))
	suite.Require().NoError(err)
	suite.Require().Len(bars, 5)

	suite.Equal(time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC), bars[0].Time.UTC())
	suite.Equal(100.5, bars[0].Close)
	suite.Equal(98.0, bars[4].Close)

	for i := 1; i < len(bars); i++ {
		suite.True(bars[i].Time.After(bars[i-1].Time))
	}
}

func (suite *DuckDBDataSourceTestSuite) TestBarsWithinBounds() {
	start := optional.Some(time.Date(2024, 1, 1, 0, 15, 0, 0, time.UTC))
	end := optional.Some(time.Date(2024, 1, 1, 0, 45, 0, 0, time.UTC))

	bars, err := collectBars(suite.dataSource.Bars(start, end, optional.None[Interval]()))
	suite.Require().NoError(err)
	suite.Require().Len(bars, 3)
	suite.Equal(101.5, bars[0].Close)
	suite.Equal(99.0, bars[2].Close)

	count, err := suite.dataSource.Count(start, end)
	suite.Require().NoError(err)
	suite.Equal(3, count)
}

func (suite *DuckDBDataSourceTestSuite) TestBarsResampled() {
	bars, err := collectBars(suite.dataSource.Bars(optional.None[time.Time](), optional.None[time.Time](), optional.Some(Interval1h)))
	suite.Require().NoError(err)
	suite.Require().Len(bars, 2)

	first := bars[0]
	suite.Equal(100.0, first.Open)
	suite.Equal(103.0, first.High)
	suite.Equal(98.0, first.Low)
	suite.Equal(99.0, first.Close)
	suite.Equal(100.0, first.Volume)

	suite.Equal(98.0, bars[1].Close)
}

func (suite *DuckDBDataSourceTestSuite) TestBarsInvalidInterval() {
	_, err := collectBars(suite.dataSource.Bars(optional.None[time.Time](), optional.None[time.Time](), optional.Some(Interval("3m"))))
	suite.Error(err)
}

func (suite *DuckDBDataSourceTestSuite) TestFunding() {
	var samples []types.FundingSample

	for sample, err := range suite.dataSource.Funding(optional.None[time.Time](), optional.None[time.Time]()) {
		suite.Require().NoError(err)
		samples = append(samples, sample)
	}

	suite.Require().Len(samples, 3)
	suite.Equal(0.0001, samples[0].Value)
	suite.Equal(-0.0002, samples[1].Value)
	suite.Equal(time.Date(2024, 1, 1, 16, 0, 0, 0, time.UTC), samples[2].Time.UTC())
}

func (suite *DuckDBDataSourceTestSuite) TestWithoutFunding() {
	ds, err := NewDataSource(":memory:", logger.NewNopLogger())
	suite.Require().NoError(err)
	defer ds.Close()

	suite.Require().NoError(ds.Initialize(filepath.Join(suite.tempDir, "bars.csv"), ""))

	count := 0
	for _, err := range ds.Funding(optional.None[time.Time](), optional.None[time.Time]()) {
		suite.Require().NoError(err)
		count++
	}

	suite.Zero(count)
}

func (suite *DuckDBDataSourceTestSuite) TestUnsupportedFile() {
	ds, err := NewDataSource(":memory:", logger.NewNopLogger())
	suite.Require().NoError(err)
	defer ds.Close()

	suite.Error(ds.Initialize(filepath.Join(suite.tempDir, "bars.json"), ""))
}

type InMemoryDataSourceTestSuite struct {
	suite.Suite
}

func TestInMemoryDataSourceSuite(t *testing.T) {
	suite.Run(t, new(InMemoryDataSourceTestSuite))
}

func (suite *InMemoryDataSourceTestSuite) TestSortsAndFilters() {
	base := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	bars := []types.MarketData{
		{Time: base.Add(2 * time.Hour), Close: 3},
		{Time: base, Close: 1},
		{Time: base.Add(time.Hour), Close: 2},
	}

	ds := NewInMemoryDataSource(bars, []types.FundingSample{{Time: base, Value: 0.1}})

	got, err := collectBars(ds.Bars(optional.Some(base.Add(time.Hour)), optional.None[time.Time](), optional.None[Interval]()))
	suite.Require().NoError(err)
	suite.Require().Len(got, 2)
	suite.Equal(2.0, got[0].Close)
	suite.Equal(3.0, got[1].Close)

	count, err := ds.Count(optional.None[time.Time](), optional.Some(base.Add(time.Hour)))
	suite.Require().NoError(err)
	suite.Equal(2, count)

	// the caller's slice is not reordered
	suite.Equal(3.0, bars[0].Close)
}

func (suite *InMemoryDataSourceTestSuite) TestRejectsResample() {
	ds := NewInMemoryDataSource(nil, nil)

	_, err := collectBars(ds.Bars(optional.None[time.Time](), optional.None[time.Time](), optional.Some(Interval1h)))
	suite.Error(err)
}
