package contracts

import "time"

// IndicatorSnapshot holds derived technical indicators for a security as
// of a date. Owned exclusively by the indicator calculator. A nil field
// means the underlying series was too short for that indicator's window.
// The snapshot is stale whenever a price bar newer than Date exists.
type IndicatorSnapshot struct {
	SecurityID      int64     `json:"security_id"`
	Date            time.Time `json:"date"`
	RSI             *float64  `json:"rsi,omitempty"`
	MACD            *float64  `json:"macd,omitempty"`
	MACDSignal      *float64  `json:"macd_signal,omitempty"`
	MACDHistogram   *float64  `json:"macd_histogram,omitempty"`
	SMA20           *float64  `json:"sma_20,omitempty"`
	SMA50           *float64  `json:"sma_50,omitempty"`
	SMA200          *float64  `json:"sma_200,omitempty"`
	EMA12           *float64  `json:"ema_12,omitempty"`
	EMA26           *float64  `json:"ema_26,omitempty"`
	BollingerUpper  *float64  `json:"bollinger_upper,omitempty"`
	BollingerMiddle *float64  `json:"bollinger_middle,omitempty"`
	BollingerLower  *float64  `json:"bollinger_lower,omitempty"`
	VolumeAvg       *float64  `json:"volume_avg,omitempty"`
}

// FreshFor reports whether the snapshot still covers the given latest bar
// timestamp. Indicator freshness is tied to price freshness, not a TTL.
func (s *IndicatorSnapshot) FreshFor(latestBar time.Time) bool {
	return !s.Date.Before(latestBar)
}
