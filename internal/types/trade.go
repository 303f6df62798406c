package types

import (
	"time"
)

// ExitReason labels why a trade was closed.
type ExitReason string

const (
	ExitReasonInitialStop   ExitReason = "initial_stop"
	ExitReasonBreakevenStop ExitReason = "breakeven_stop"
	ExitReasonTrailingStop  ExitReason = "trailing_stop"
	ExitReasonChannelExit   ExitReason = "channel_exit"
	ExitReasonSoftExit      ExitReason = "soft_exit"
	ExitReasonEndOfData     ExitReason = "end_of_data"
)

// HoldingBucket groups trades by how long they were held.
type HoldingBucket string

const (
	HoldingBucketShort  HoldingBucket = "<12h"
	HoldingBucketMedium HoldingBucket = "12-48h"
	HoldingBucketLong   HoldingBucket = "48h+"
)

// HoldingBucketFor returns the bucket of a holding duration in hours.
func HoldingBucketFor(hours float64) HoldingBucket {
	switch {
	case hours < 12:
		return HoldingBucketShort
	case hours < 48:
		return HoldingBucketMedium
	default:
		return HoldingBucketLong
	}
}

// Session is the UTC trading session of a timestamp.
type Session string

const (
	SessionAsia   Session = "asia"
	SessionEurope Session = "europe"
	SessionUS     Session = "us"
)

// SessionFor buckets the UTC hour into 8-hour sessions.
func SessionFor(t time.Time) Session {
	switch h := t.UTC().Hour(); {
	case h < 8:
		return SessionAsia
	case h < 16:
		return SessionEurope
	default:
		return SessionUS
	}
}

// EntryFeatures are the descriptive labels frozen when a trade opens.
type EntryFeatures struct {
	Weekday        string  `yaml:"entry_weekday" json:"entry_weekday" csv:"entry_weekday"`
	Hour           int     `yaml:"entry_hour" json:"entry_hour" csv:"entry_hour"`
	Session        Session `yaml:"session" json:"session" csv:"session"`
	Funding        float64 `yaml:"funding" json:"funding" csv:"funding"`
	FundingZ       float64 `yaml:"funding_z" json:"funding_z" csv:"funding_z"`
	FundingBucket  string  `yaml:"funding_bucket" json:"funding_bucket" csv:"funding_bucket"`
	FundingSign    int     `yaml:"funding_sign" json:"funding_sign" csv:"funding_sign"`
	FundingExtreme bool    `yaml:"funding_extreme" json:"funding_extreme" csv:"funding_extreme"`
	VolRegime      string  `yaml:"vol_regime" json:"vol_regime" csv:"vol_regime"`
}

// ExitFeatures are the descriptive labels computed when a trade closes.
type ExitFeatures struct {
	Weekday       string        `yaml:"exit_weekday" json:"exit_weekday" csv:"exit_weekday"`
	Hour          int           `yaml:"exit_hour" json:"exit_hour" csv:"exit_hour"`
	HoldingBucket HoldingBucket `yaml:"holding_bucket" json:"holding_bucket" csv:"holding_bucket"`
	ExitReason    ExitReason    `yaml:"exit_reason" json:"exit_reason" csv:"exit_reason"`
}

// TradeRecord is one closed trade as written to the trade log.
type TradeRecord struct {
	Symbol            string        `yaml:"symbol" json:"symbol" csv:"symbol"`
	EntryTime         time.Time     `yaml:"entry_time" json:"entry_time" csv:"entry_time"`
	EntryPrice        float64       `yaml:"entry_price" json:"entry_price" csv:"entry_price"`
	ExitTime          time.Time     `yaml:"exit_time" json:"exit_time" csv:"exit_time"`
	ExitPrice         float64       `yaml:"exit_price" json:"exit_price" csv:"exit_price"`
	Quantity          float64       `yaml:"quantity" json:"quantity" csv:"quantity"`
	PnL               float64       `yaml:"pnl" json:"pnl" csv:"pnl"`
	RMultiple         float64       `yaml:"r_multiple" json:"r_multiple" csv:"r_multiple"`
	HoldingHours      float64       `yaml:"holding_hours" json:"holding_hours" csv:"holding_hours"`
	ATRAtEntry        float64       `yaml:"atr_at_entry" json:"atr_at_entry" csv:"atr_at_entry"`
	ATRStopMultiplier float64       `yaml:"atr_stop_multiplier" json:"atr_stop_multiplier" csv:"atr_stop_multiplier"`
	RiskMultiplier    float64       `yaml:"risk_multiplier" json:"risk_multiplier" csv:"risk_multiplier"`
	InitialStop       float64       `yaml:"initial_stop" json:"initial_stop" csv:"initial_stop"`
	FinalStop         float64       `yaml:"final_stop" json:"final_stop" csv:"final_stop"`
	MaxPrice          float64       `yaml:"max_price" json:"max_price" csv:"max_price"`
	Entry             EntryFeatures `yaml:",inline" json:"entry" csv:"entry"`
	Exit              ExitFeatures  `yaml:",inline" json:"exit" csv:"exit"`
}

// IsWin reports whether the trade closed with positive pnl.
func (t TradeRecord) IsWin() bool {
	return t.PnL > 0
}
