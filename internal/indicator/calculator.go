// Package indicator derives technical indicators from daily price bars.
// All functions are pure; the snapshot's Date is set to the latest bar
// time so freshness can be checked against the price series.
package indicator

import (
	"gonum.org/v1/gonum/stat"

	"github.com/quantlab/stocksignal/internal/contracts"
)

const (
	rsiPeriod       = 14
	macdFast        = 12
	macdSlow        = 26
	macdSignal      = 9
	bollingerPeriod = 20
	bollingerWidth  = 2.0
	volumePeriod    = 20
)

// Compute calculates all indicators from an ascending bar series. Bars
// shorter than an indicator's window leave that field nil; an empty
// series returns nil.
func Compute(bars []contracts.PriceBar) *contracts.IndicatorSnapshot {
	latest, ok := contracts.LatestBar(bars)
	if !ok {
		return nil
	}

	closes := contracts.Closes(bars)
	volumes := contracts.Volumes(bars)

	snap := &contracts.IndicatorSnapshot{
		SecurityID: latest.SecurityID,
		Date:       latest.Time,
		RSI:        RSI(closes, rsiPeriod),
		SMA20:      SMA(closes, 20),
		SMA50:      SMA(closes, 50),
		SMA200:     SMA(closes, 200),
		EMA12:      EMA(closes, macdFast),
		EMA26:      EMA(closes, macdSlow),
		VolumeAvg:  SMA(volumes, volumePeriod),
	}

	snap.MACD, snap.MACDSignal, snap.MACDHistogram = MACD(closes, macdFast, macdSlow, macdSignal)
	snap.BollingerUpper, snap.BollingerMiddle, snap.BollingerLower = Bollinger(closes, bollingerPeriod, bollingerWidth)

	return snap
}

// RSI computes the relative strength index over the trailing period,
// using simple averages of gains and losses. Needs period+1 values.
func RSI(values []float64, period int) *float64 {
	if len(values) < period+1 {
		return nil
	}

	var gain, loss float64
	for i := len(values) - period; i < len(values); i++ {
		delta := values[i] - values[i-1]
		if delta > 0 {
			gain += delta
		} else {
			loss -= delta
		}
	}
	gain /= float64(period)
	loss /= float64(period)

	if loss == 0 {
		if gain == 0 {
			return nil // flat series, RSI undefined
		}
		v := 100.0
		return &v
	}

	rs := gain / loss
	v := 100 - (100 / (1 + rs))
	return &v
}

// SMA computes the simple moving average over the trailing period.
func SMA(values []float64, period int) *float64 {
	if len(values) < period {
		return nil
	}
	v := stat.Mean(values[len(values)-period:], nil)
	return &v
}

// EMA computes the exponential moving average with alpha = 2/(period+1),
// seeded with the first value and run over the whole series.
func EMA(values []float64, period int) *float64 {
	if len(values) < period {
		return nil
	}
	v := emaSeries(values, period)
	last := v[len(v)-1]
	return &last
}

func emaSeries(values []float64, period int) []float64 {
	alpha := 2.0 / (float64(period) + 1)
	out := make([]float64, len(values))
	out[0] = values[0]
	for i := 1; i < len(values); i++ {
		out[i] = alpha*values[i] + (1-alpha)*out[i-1]
	}
	return out
}

// MACD computes the MACD line (fast EMA minus slow EMA), its signal
// line (EMA of the MACD line), and the histogram (line minus signal).
// Needs slow+signal values.
func MACD(values []float64, fast, slow, signal int) (line, sig, hist *float64) {
	if len(values) < slow+signal {
		return nil, nil, nil
	}

	fastEMA := emaSeries(values, fast)
	slowEMA := emaSeries(values, slow)

	macdLine := make([]float64, len(values))
	for i := range values {
		macdLine[i] = fastEMA[i] - slowEMA[i]
	}
	signalLine := emaSeries(macdLine, signal)

	l := macdLine[len(macdLine)-1]
	s := signalLine[len(signalLine)-1]
	h := l - s
	return &l, &s, &h
}

// Bollinger computes the Bollinger bands: a simple moving average plus
// and minus width sample standard deviations over the trailing period.
func Bollinger(values []float64, period int, width float64) (upper, middle, lower *float64) {
	if len(values) < period {
		return nil, nil, nil
	}

	window := values[len(values)-period:]
	mean := stat.Mean(window, nil)
	std := stat.StdDev(window, nil)

	u := mean + width*std
	l := mean - width*std
	return &u, &mean, &l
}
