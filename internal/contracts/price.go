package contracts

import "time"

// PriceBar is one OHLCV bar. Bars are immutable once written and keyed
// by (security, time); the price ingestion path is the only writer.
type PriceBar struct {
	SecurityID int64     `json:"security_id"`
	Time       time.Time `json:"time"`
	Open       float64   `json:"open"`
	High       float64   `json:"high"`
	Low        float64   `json:"low"`
	Close      float64   `json:"close"`
	Volume     int64     `json:"volume"`
}

// LatestBar returns the most recent bar of an ascending series.
func LatestBar(bars []PriceBar) (PriceBar, bool) {
	if len(bars) == 0 {
		return PriceBar{}, false
	}
	return bars[len(bars)-1], true
}

// Closes extracts the close column from an ascending bar series.
func Closes(bars []PriceBar) []float64 {
	out := make([]float64, len(bars))
	for i, b := range bars {
		out[i] = b.Close
	}
	return out
}

// Volumes extracts the volume column from an ascending bar series.
func Volumes(bars []PriceBar) []float64 {
	out := make([]float64, len(bars))
	for i, b := range bars {
		out[i] = float64(b.Volume)
	}
	return out
}
