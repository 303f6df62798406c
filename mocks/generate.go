package mocks

//go:generate mockgen -destination=./mock_order_gateway.go -package=mocks github.com/rxtech-lab/funding-breakout/internal/trading OrderGateway
//go:generate mockgen -destination=./mock_account_reader.go -package=mocks github.com/rxtech-lab/funding-breakout/internal/trading AccountReader
//go:generate mockgen -destination=./mock_datasource.go -package=mocks github.com/rxtech-lab/funding-breakout/internal/backtest/engine/engine_v1/datasource DataSource
//go:generate mockgen -destination=./mock_executor.go -package=mocks github.com/rxtech-lab/funding-breakout/internal/optimizer/executor Executor
