package engine

import (
	"testing"

	"github.com/rxtech-lab/funding-breakout/internal/types"
	"github.com/stretchr/testify/suite"
)

type EngineTestSuite struct {
	suite.Suite
}

func TestEngineSuite(t *testing.T) {
	suite.Run(t, new(EngineTestSuite))
}

func (suite *EngineTestSuite) TestOnProcessDataCallbackWithProgress() {
	var progress []int
	callback := OnProcessDataCallback(func(current int, total int) error {
		progress = append(progress, current)
		return nil
	})

	for i := 1; i <= 5; i++ {
		err := callback(i, 5)
		suite.NoError(err)
	}

	suite.Equal([]int{1, 2, 3, 4, 5}, progress)
}

func (suite *EngineTestSuite) TestLifecycleCallbacksOptional() {
	var callbacks LifecycleCallbacks

	suite.Nil(callbacks.OnRunStart)
	suite.Nil(callbacks.OnRunEnd)
	suite.Nil(callbacks.OnProcessData)
	suite.Nil(callbacks.OnTradeClosed)

	var closed []string
	onTrade := OnTradeClosedCallback(func(record types.TradeRecord) {
		closed = append(closed, string(record.Exit.ExitReason))
	})
	callbacks.OnTradeClosed = &onTrade

	(*callbacks.OnTradeClosed)(types.TradeRecord{Exit: types.ExitFeatures{ExitReason: types.ExitReasonSoftExit}})
	suite.Equal([]string{string(types.ExitReasonSoftExit)}, closed)
}
