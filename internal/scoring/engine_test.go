package scoring

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/quantlab/stocksignal/internal/contracts"
	"github.com/quantlab/stocksignal/pkg/config"
)

func testEngine() *Engine {
	return NewEngine(config.ScoringConfig{MinBars: 20, ConflictGap: 45})
}

func f(v float64) *float64 { return &v }

func barsWithCloses(closes []float64) []contracts.PriceBar {
	start := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	bars := make([]contracts.PriceBar, len(closes))
	for i, c := range closes {
		bars[i] = contracts.PriceBar{
			SecurityID: 1,
			Time:       start.AddDate(0, 0, i),
			Open:       c, High: c, Low: c, Close: c,
			Volume: 1000,
		}
	}
	return bars
}

func steadyUptrend(n int) []contracts.PriceBar {
	closes := make([]float64, n)
	for i := range closes {
		closes[i] = 100 * (1 + 0.002*float64(i))
	}
	return barsWithCloses(closes)
}

func testSecurity() *contracts.Security {
	return &contracts.Security{
		ID:     1,
		Symbol: "AAPL",
		Market: contracts.MarketUS,
		Class:  contracts.ClassGrowth,
		Active: true,
	}
}

func TestClassifyScoreBands(t *testing.T) {
	e := testEngine()
	up := trendResult{Score: 60, Short: 1, Medium: 1}
	down := trendResult{Score: 40, Short: -1, Medium: -1}

	tests := []struct {
		name      string
		composite float64
		trend     trendResult
		want      contracts.SignalType
	}{
		{"61 with rising momentum is BUY", 61, up, contracts.SignalBuy},
		{"61 with falling momentum is HOLD", 61, down, contracts.SignalHold},
		{"39 with falling momentum is SELL", 39, down, contracts.SignalSell},
		{"39 with rising momentum is HOLD", 39, up, contracts.SignalHold},
		{"50 is HOLD", 50, up, contracts.SignalHold},
		{"40 is HOLD", 40, down, contracts.SignalHold},
		{"60 is HOLD", 60, up, contracts.SignalHold},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := e.classify(tt.composite, nil, tt.trend, false)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestClassifyMomentumFromMACD(t *testing.T) {
	e := testEngine()
	flatTrend := trendResult{Score: 50}

	ind := &contracts.IndicatorSnapshot{MACDHistogram: f(-0.5)}
	assert.Equal(t, contracts.SignalHold, e.classify(65, ind, flatTrend, false),
		"negative histogram blocks BUY regardless of trend score")

	ind = &contracts.IndicatorSnapshot{MACDHistogram: f(0.5)}
	assert.Equal(t, contracts.SignalBuy, e.classify(65, ind, flatTrend, false))
	assert.Equal(t, contracts.SignalHold, e.classify(35, ind, flatTrend, false),
		"positive histogram blocks SELL")
}

func TestConflictedYieldsNoSignal(t *testing.T) {
	e := testEngine()

	assert.True(t, e.conflicted(90, 20, 55), "70-point gap inside the HOLD band")
	assert.False(t, e.conflicted(90, 20, 65), "strong composite overrides the gap")
	assert.False(t, e.conflicted(60, 40, 50), "20-point gap is tolerable")

	assert.Equal(t, contracts.SignalNoSignal, e.classify(55, nil, trendResult{Score: 55}, true))
}

func TestEvaluateInsufficientHistory(t *testing.T) {
	e := testEngine()
	sig := e.Evaluate(Input{
		Security:    testSecurity(),
		Bars:        steadyUptrend(5),
		EvaluatedAt: time.Now().UTC(),
	})

	assert.Equal(t, contracts.SignalNoSignal, sig.Type)
	assert.Equal(t, 0.0, sig.Confidence)
	assert.Contains(t, sig.Explanation.Summary, "Insufficient price history")
}

func TestEvaluateFullInput(t *testing.T) {
	e := testEngine()
	bars := steadyUptrend(252)
	in := Input{
		Security: testSecurity(),
		Bars:     bars,
		Indicators: &contracts.IndicatorSnapshot{
			SecurityID:     1,
			Date:           bars[len(bars)-1].Time,
			RSI:            f(40),
			MACD:           f(1.2),
			MACDSignal:     f(0.8),
			MACDHistogram:  f(0.4),
			SMA20:          f(145),
			SMA50:          f(140),
			SMA200:         f(120),
			BollingerUpper: f(160),
			BollingerLower: f(142),
			VolumeAvg:      f(1000),
		},
		Fundamentals: &contracts.FundamentalSnapshot{
			SecurityID:     1,
			Date:           time.Now().UTC(),
			PERatio:        f(18),
			EarningsGrowth: f(25),
			DebtRatio:      f(20),
		},
		EvaluatedAt: time.Date(2025, 9, 29, 0, 0, 0, 0, time.UTC),
	}

	sig := e.Evaluate(in)
	require.NotNil(t, sig)

	assert.Equal(t, contracts.SignalBuy, sig.Type,
		"bullish technicals, strong fundamentals, and a steady uptrend")
	assert.GreaterOrEqual(t, sig.Confidence, 0.0)
	assert.LessOrEqual(t, sig.Confidence, 100.0)
	assert.Greater(t, sig.Explanation.CompositeScore, 60.0)
	assert.NotEmpty(t, sig.Explanation.Triggers)
	assert.NotEmpty(t, sig.Explanation.Risks)
	assert.NotEmpty(t, sig.Explanation.Invalidation)
	assert.NotNil(t, sig.Explanation.Classification, "classified security carries advice")
	assert.Equal(t, in.EvaluatedAt, sig.CreatedAt)
}

func TestEvaluateDeterministic(t *testing.T) {
	e := testEngine()
	in := Input{
		Security:    testSecurity(),
		Bars:        steadyUptrend(100),
		Indicators:  &contracts.IndicatorSnapshot{RSI: f(28), MACDHistogram: f(0.2), MACD: f(0.5), MACDSignal: f(0.3)},
		EvaluatedAt: time.Date(2025, 9, 29, 12, 0, 0, 0, time.UTC),
	}

	a := e.Evaluate(in)
	b := e.Evaluate(in)

	assert.Equal(t, a.Type, b.Type)
	assert.Equal(t, a.Confidence, b.Confidence)
	assert.Equal(t, a.Explanation, b.Explanation, "same inputs must reproduce the trace exactly")
}

func TestEvaluateMissingFundamentalsDiscountsConfidence(t *testing.T) {
	e := testEngine()
	bars := steadyUptrend(252)
	ind := &contracts.IndicatorSnapshot{
		RSI: f(35), MACD: f(1), MACDSignal: f(0.5), MACDHistogram: f(0.5),
		SMA20: f(100), SMA50: f(95), SMA200: f(80),
	}

	full := e.Evaluate(Input{
		Security: testSecurity(), Bars: bars, Indicators: ind,
		Fundamentals: &contracts.FundamentalSnapshot{PERatio: f(15), EarningsGrowth: f(15), DebtRatio: f(25)},
		EvaluatedAt:  time.Now().UTC(),
	})
	bare := e.Evaluate(Input{
		Security: testSecurity(), Bars: bars, Indicators: ind,
		EvaluatedAt: time.Now().UTC(),
	})

	if full.Type == bare.Type && full.Type != contracts.SignalNoSignal {
		assert.Less(t, bare.Confidence, full.Confidence,
			"missing fundamentals must reduce confidence")
	}
}

func TestRiskLevelTerciles(t *testing.T) {
	// Attainable volatility sub-scores are 50 plus delta sums in
	// steps of 5 within [25, 65]; each tercile must be reachable.
	assert.Equal(t, contracts.RiskLow, riskLevel(65))
	assert.Equal(t, contracts.RiskLow, riskLevel(55))
	assert.Equal(t, contracts.RiskMedium, riskLevel(50))
	assert.Equal(t, contracts.RiskMedium, riskLevel(40))
	assert.Equal(t, contracts.RiskHigh, riskLevel(35))
	assert.Equal(t, contracts.RiskHigh, riskLevel(25))
}

func TestRiskLevelFromPriceSeries(t *testing.T) {
	// A calm series: near-constant small gains, no drawdown.
	calm := volatilityScore(steadyUptrend(60))
	assert.GreaterOrEqual(t, calm.Score, volScoreMax-(volScoreMax-volScoreMin)/3)
	assert.Equal(t, contracts.RiskLow, riskLevel(calm.Score))

	// A turbulent series: 40% swings every bar.
	closes := make([]float64, 60)
	for i := range closes {
		if i%2 == 0 {
			closes[i] = 100
		} else {
			closes[i] = 60
		}
	}
	turbulent := volatilityScore(barsWithCloses(closes))
	assert.Equal(t, contracts.RiskHigh, riskLevel(turbulent.Score))
}

func TestHoldingPeriod(t *testing.T) {
	tests := []struct {
		name  string
		sig   contracts.SignalType
		trend trendResult
		want  contracts.HoldingPeriod
	}{
		{"multi-horizon agreement", contracts.SignalBuy, trendResult{Short: 1, Medium: 1, Long: 1}, contracts.HoldingLong},
		{"two horizons agree", contracts.SignalBuy, trendResult{Short: 0, Medium: 1, Long: 1}, contracts.HoldingLong},
		{"short horizon only", contracts.SignalBuy, trendResult{Short: 1, Medium: 0, Long: 0}, contracts.HoldingShort},
		{"no agreement", contracts.SignalBuy, trendResult{Short: -1, Medium: 0, Long: 0}, contracts.HoldingMedium},
		{"sell with downtrend horizons", contracts.SignalSell, trendResult{Short: -1, Medium: -1, Long: 0}, contracts.HoldingLong},
		{"hold with flat trend", contracts.SignalHold, trendResult{}, contracts.HoldingMedium},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, holdingPeriod(tt.sig, tt.trend))
		})
	}
}

func TestCompositeWeights(t *testing.T) {
	assert.InDelta(t, 1.0, TechnicalWeight+FundamentalWeight+TrendWeight+VolatilityWeight, 1e-12)
}
