package errors

// ErrorCode represents a unique error code for identifying different error types.
type ErrorCode int

const (
	// General errors (1-99)
	ErrCodeUnknown ErrorCode = 1

	// Usage and validation errors (100-199)
	ErrCodeInvalidParameter     ErrorCode = 100
	ErrCodeInvalidConfiguration ErrorCode = 101
	ErrCodeMissingParameter     ErrorCode = 102
	ErrCodeUnknownParameter     ErrorCode = 103
	ErrCodeMissingScore         ErrorCode = 104
	ErrCodeInvalidPeriod        ErrorCode = 105

	// Data errors (200-299)
	ErrCodeDataNotFound          ErrorCode = 200
	ErrCodeDataSourceUnavailable ErrorCode = 201
	ErrCodeQueryFailed           ErrorCode = 202
	ErrCodeNoDataFound           ErrorCode = 203

	// Trade lifecycle errors (300-399)
	ErrCodeTradeAlreadyOpen ErrorCode = 300
	ErrCodeTradeNotOpen     ErrorCode = 301

	// Order errors (400-499)
	ErrCodeOrderFailed    ErrorCode = 400
	ErrCodeOrderNotFound  ErrorCode = 401
	ErrCodeInvalidOrder   ErrorCode = 402
	ErrCodeInsufficientBP ErrorCode = 403

	// Backtest errors (500-599)
	ErrCodeBacktestInitFailed   ErrorCode = 500
	ErrCodeBacktestConfigError  ErrorCode = 501
	ErrCodeBacktestNoDatasource ErrorCode = 502
	ErrCodeBacktestNoResultsDir ErrorCode = 503
	ErrCodeBacktestWriteFailed  ErrorCode = 504

	// Optimizer errors (600-699)
	ErrCodeRunFailed      ErrorCode = 600
	ErrCodeResultsCorrupt ErrorCode = 601
	ErrCodeExportFailed   ErrorCode = 602
)

// Category groups error codes by the range they belong to.
type Category string

const (
	CategoryGeneral   Category = "general"
	CategoryUsage     Category = "usage"
	CategoryData      Category = "data"
	CategoryTrade     Category = "trade"
	CategoryOrder     Category = "order"
	CategoryBacktest  Category = "backtest"
	CategoryOptimizer Category = "optimizer"
)

// Category returns the range category of the code.
func (c ErrorCode) Category() Category {
	switch {
	case c >= 100 && c < 200:
		return CategoryUsage
	case c >= 200 && c < 300:
		return CategoryData
	case c >= 300 && c < 400:
		return CategoryTrade
	case c >= 400 && c < 500:
		return CategoryOrder
	case c >= 500 && c < 600:
		return CategoryBacktest
	case c >= 600 && c < 700:
		return CategoryOptimizer
	default:
		return CategoryGeneral
	}
}
