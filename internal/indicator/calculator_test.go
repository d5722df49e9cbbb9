package indicator

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/quantlab/stocksignal/internal/contracts"
)

func makeBars(closes []float64) []contracts.PriceBar {
	start := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	bars := make([]contracts.PriceBar, len(closes))
	for i, c := range closes {
		bars[i] = contracts.PriceBar{
			SecurityID: 1,
			Time:       start.AddDate(0, 0, i),
			Open:       c,
			High:       c,
			Low:        c,
			Close:      c,
			Volume:     1000,
		}
	}
	return bars
}

func TestSMA(t *testing.T) {
	values := []float64{1, 2, 3, 4, 5}

	got := SMA(values, 5)
	require.NotNil(t, got)
	assert.Equal(t, 3.0, *got)

	got = SMA(values, 3)
	require.NotNil(t, got)
	assert.Equal(t, 4.0, *got, "SMA uses the trailing window")

	assert.Nil(t, SMA(values, 6), "short series yields nil")
}

func TestEMA(t *testing.T) {
	// alpha = 2/(3+1) = 0.5, seeded with the first value:
	// 1 -> 1.5 -> 2.25 -> 3.125
	values := []float64{1, 2, 3, 4}

	got := EMA(values, 3)
	require.NotNil(t, got)
	assert.InDelta(t, 3.125, *got, 1e-9)

	assert.Nil(t, EMA([]float64{1, 2}, 3))
}

func TestRSI(t *testing.T) {
	t.Run("all gains", func(t *testing.T) {
		values := make([]float64, 15)
		for i := range values {
			values[i] = 100 + float64(i)
		}
		got := RSI(values, 14)
		require.NotNil(t, got)
		assert.Equal(t, 100.0, *got)
	})

	t.Run("all losses", func(t *testing.T) {
		values := make([]float64, 15)
		for i := range values {
			values[i] = 100 - float64(i)
		}
		got := RSI(values, 14)
		require.NotNil(t, got)
		assert.Equal(t, 0.0, *got)
	})

	t.Run("alternating", func(t *testing.T) {
		// +2/-1 alternating over 14 deltas: 7 gains of 2, 7 losses of 1,
		// rs = 2, rsi = 100 - 100/3.
		values := []float64{100}
		for i := 0; i < 7; i++ {
			values = append(values, values[len(values)-1]+2)
			values = append(values, values[len(values)-1]-1)
		}
		got := RSI(values, 14)
		require.NotNil(t, got)
		assert.InDelta(t, 100-100.0/3, *got, 1e-9)
	})

	t.Run("flat series", func(t *testing.T) {
		values := make([]float64, 15)
		for i := range values {
			values[i] = 100
		}
		assert.Nil(t, RSI(values, 14))
	})

	t.Run("insufficient data", func(t *testing.T) {
		assert.Nil(t, RSI(make([]float64, 14), 14), "needs period+1 values")
	})
}

func TestBollinger(t *testing.T) {
	// Window {2,4,4,4,5,5,7,9}: mean 5, sample std ~2.138.
	values := []float64{2, 4, 4, 4, 5, 5, 7, 9}

	upper, middle, lower := Bollinger(values, 8, 2)
	require.NotNil(t, middle)
	assert.Equal(t, 5.0, *middle)
	assert.InDelta(t, 5+2*2.13809, *upper, 1e-4)
	assert.InDelta(t, 5-2*2.13809, *lower, 1e-4)

	u, m, l := Bollinger(values, 20, 2)
	assert.Nil(t, u)
	assert.Nil(t, m)
	assert.Nil(t, l)
}

func TestMACD(t *testing.T) {
	t.Run("insufficient data", func(t *testing.T) {
		line, sig, hist := MACD(make([]float64, 34), 12, 26, 9)
		assert.Nil(t, line)
		assert.Nil(t, sig)
		assert.Nil(t, hist)
	})

	t.Run("constant series", func(t *testing.T) {
		values := make([]float64, 40)
		for i := range values {
			values[i] = 50
		}
		line, sig, hist := MACD(values, 12, 26, 9)
		require.NotNil(t, line)
		assert.InDelta(t, 0, *line, 1e-9)
		assert.InDelta(t, 0, *sig, 1e-9)
		assert.InDelta(t, 0, *hist, 1e-9)
	})

	t.Run("uptrend keeps macd positive", func(t *testing.T) {
		values := make([]float64, 60)
		for i := range values {
			values[i] = 100 + float64(i)
		}
		line, sig, hist := MACD(values, 12, 26, 9)
		require.NotNil(t, line)
		assert.Greater(t, *line, 0.0, "fast EMA above slow EMA in an uptrend")
		assert.Greater(t, *sig, 0.0)
		require.NotNil(t, hist)
		assert.InDelta(t, *line-*sig, *hist, 1e-12)
	})
}

func TestCompute(t *testing.T) {
	t.Run("empty series", func(t *testing.T) {
		assert.Nil(t, Compute(nil))
	})

	t.Run("short series computes what it can", func(t *testing.T) {
		closes := make([]float64, 25)
		for i := range closes {
			closes[i] = 100 + float64(i%5)
		}
		snap := Compute(makeBars(closes))
		require.NotNil(t, snap)

		assert.NotNil(t, snap.RSI)
		assert.NotNil(t, snap.SMA20)
		assert.Nil(t, snap.SMA50, "50-bar window unavailable")
		assert.Nil(t, snap.SMA200)
		assert.NotNil(t, snap.EMA12)
		assert.Nil(t, snap.MACD, "MACD needs 35 bars")
		assert.NotNil(t, snap.BollingerMiddle)
		assert.NotNil(t, snap.VolumeAvg)
	})

	t.Run("full series fills everything", func(t *testing.T) {
		closes := make([]float64, 220)
		for i := range closes {
			closes[i] = 100 + float64(i%7)
		}
		bars := makeBars(closes)
		snap := Compute(bars)
		require.NotNil(t, snap)

		assert.Equal(t, bars[len(bars)-1].Time, snap.Date, "snapshot dated at latest bar")
		assert.NotNil(t, snap.SMA200)
		assert.NotNil(t, snap.MACD)
		assert.NotNil(t, snap.MACDSignal)
		assert.NotNil(t, snap.MACDHistogram)
		assert.Equal(t, 1000.0, *snap.VolumeAvg)
	})

	t.Run("deterministic", func(t *testing.T) {
		closes := make([]float64, 100)
		for i := range closes {
			closes[i] = 100 + float64((i*13)%11)
		}
		bars := makeBars(closes)
		a := Compute(bars)
		b := Compute(bars)
		assert.Equal(t, *a.RSI, *b.RSI)
		assert.Equal(t, *a.MACD, *b.MACD)
		assert.Equal(t, *a.BollingerUpper, *b.BollingerUpper)
	})
}
