package scoring

import (
	"fmt"
	"math"
	"time"

	"github.com/quantlab/stocksignal/internal/contracts"
	"github.com/quantlab/stocksignal/pkg/config"
)

// Input is everything one evaluation consumes. The engine never
// inspects freshness; the resolver already decided what to hand it.
type Input struct {
	Security     *contracts.Security
	Bars         []contracts.PriceBar
	Indicators   *contracts.IndicatorSnapshot
	Fundamentals *contracts.FundamentalSnapshot
	EvaluatedAt  time.Time
}

// Engine turns resolved market data into a graded signal. Evaluation is
// a pure function of its input: same input, same signal.
type Engine struct {
	minBars     int
	conflictGap float64
}

// NewEngine creates a scoring engine from configuration.
func NewEngine(cfg config.ScoringConfig) *Engine {
	return &Engine{
		minBars:     cfg.MinBars,
		conflictGap: cfg.ConflictGap,
	}
}

// Evaluate produces a signal. Degraded inputs never error: too little
// history or sharply conflicting sub-scores yield NO_SIGNAL instead.
func (e *Engine) Evaluate(in Input) *contracts.Signal {
	if len(in.Bars) < e.minBars {
		return e.noSignal(in, fmt.Sprintf(
			"NO_SIGNAL - Insufficient price history (%d bars, need %d).", len(in.Bars), e.minBars),
			[]string{"Insufficient price data"})
	}

	latest := in.Bars[len(in.Bars)-1]

	tech := technicalScore(in.Indicators, latest.Close, latest.Volume)
	fund := fundamentalScore(in.Fundamentals)
	trend := trendScore(in.Bars)
	vol := volatilityScore(in.Bars)

	composite := tech.Score*TechnicalWeight +
		fund.Score*FundamentalWeight +
		trend.Score*TrendWeight +
		vol.Score*VolatilityWeight

	conflicted := e.conflicted(tech.Score, fund.Score, composite)
	signalType := e.classify(composite, in.Indicators, trend, conflicted)

	confidence := 0.0
	if signalType != contracts.SignalNoSignal {
		confidence = e.confidence(composite, signalType, in, tech)
	}

	sig := &contracts.Signal{
		SecurityID: in.Security.ID,
		Symbol:     in.Security.Symbol,
		Market:     in.Security.Market,
		Type:       signalType,
		Confidence: round2(confidence),
		Risk:       riskLevel(vol.Score),
		Holding:    holdingPeriod(signalType, trend),
		CreatedAt:  in.EvaluatedAt,
	}
	sig.Explanation = buildExplanation(sig, in, tech, fund, trend, vol, round2(composite), conflicted)
	return sig
}

// classify maps the composite to a signal type. The score band alone
// is not enough: BUY needs non-negative momentum, SELL negative, and a
// sharp technical-vs-fundamental conflict inside the HOLD band yields
// NO_SIGNAL instead of a guess.
func (e *Engine) classify(composite float64, ind *contracts.IndicatorSnapshot, trend trendResult, conflicted bool) contracts.SignalType {
	if conflicted {
		return contracts.SignalNoSignal
	}

	momentumUp := momentumNonNegative(ind, trend)
	switch {
	case composite > 60:
		if momentumUp {
			return contracts.SignalBuy
		}
		return contracts.SignalHold
	case composite < 40:
		if !momentumUp {
			return contracts.SignalSell
		}
		return contracts.SignalHold
	default:
		return contracts.SignalHold
	}
}

// conflicted reports a sharp sub-score disagreement with no majority:
// technical and fundamental further apart than the configured gap while
// the composite sits in the undecided band.
func (e *Engine) conflicted(techScore, fundScore, composite float64) bool {
	gap := techScore - fundScore
	if gap < 0 {
		gap = -gap
	}
	return gap >= e.conflictGap && composite >= 40 && composite <= 60
}

// momentumNonNegative reads momentum from the MACD histogram when
// available, otherwise from the trend score.
func momentumNonNegative(ind *contracts.IndicatorSnapshot, trend trendResult) bool {
	if ind != nil && ind.MACDHistogram != nil {
		return *ind.MACDHistogram >= 0
	}
	return trend.Score >= 50
}

// confidence converts distance from the neutral composite into [0,100],
// discounted for missing inputs and adjusted by vote agreement.
func (e *Engine) confidence(composite float64, signalType contracts.SignalType, in Input, tech technicalResult) float64 {
	confidence := abs(composite-50) * 2

	quality := 1.0
	if in.Indicators == nil || in.Fundamentals == nil || in.Fundamentals.Empty() {
		quality = 0.7
	}

	buys, sells := 0, 0
	for _, v := range tech.Votes {
		switch v {
		case voteBuy:
			buys++
		case voteSell:
			sells++
		}
	}

	agreement := 0.9
	switch {
	case signalType == contracts.SignalBuy && buys > sells:
		agreement = 1.1
	case signalType == contracts.SignalSell && sells > buys:
		agreement = 1.1
	case signalType == contracts.SignalHold && buys == sells:
		agreement = 1.0
	}

	confidence *= quality * agreement
	if confidence > 100 {
		confidence = 100
	}
	return confidence
}

// The volatility deltas move the 50 base by at most +15 (low
// volatility, controlled drawdown) and -25 (high volatility, deep
// drawdown), so the sub-score lives in [25, 65].
const (
	volScoreMin = 25.0
	volScoreMax = 65.0
)

// riskLevel buckets the volatility sub-score into terciles of its
// attainable range. The score is inverse to risk: calm series score
// high and grade LOW.
func riskLevel(volScore float64) contracts.RiskLevel {
	third := (volScoreMax - volScoreMin) / 3
	switch {
	case volScore >= volScoreMax-third:
		return contracts.RiskLow
	case volScore <= volScoreMin+third:
		return contracts.RiskHigh
	default:
		return contracts.RiskMedium
	}
}

// holdingPeriod derives from horizon agreement with the signal's
// direction: multiple agreeing horizons recommend LONG, only the short
// horizon SHORT, anything else MEDIUM.
func holdingPeriod(signalType contracts.SignalType, trend trendResult) contracts.HoldingPeriod {
	dir := 0
	switch signalType {
	case contracts.SignalBuy:
		dir = 1
	case contracts.SignalSell:
		dir = -1
	default:
		// HOLD and NO_SIGNAL follow the dominant trend direction.
		sum := trend.Short + trend.Medium + trend.Long
		if sum > 0 {
			dir = 1
		} else if sum < 0 {
			dir = -1
		}
	}
	if dir == 0 {
		return contracts.HoldingMedium
	}

	agreeing := 0
	shortAgrees := trend.Short == dir
	if shortAgrees {
		agreeing++
	}
	if trend.Medium == dir {
		agreeing++
	}
	if trend.Long == dir {
		agreeing++
	}

	switch {
	case agreeing >= 2:
		return contracts.HoldingLong
	case agreeing == 1 && shortAgrees:
		return contracts.HoldingShort
	default:
		return contracts.HoldingMedium
	}
}

func (e *Engine) noSignal(in Input, summary string, risks []string) *contracts.Signal {
	return &contracts.Signal{
		SecurityID: in.Security.ID,
		Symbol:     in.Security.Symbol,
		Market:     in.Security.Market,
		Type:       contracts.SignalNoSignal,
		Confidence: 0,
		Risk:       contracts.RiskHigh,
		Holding:    contracts.HoldingShort,
		CreatedAt:  in.EvaluatedAt,
		Explanation: contracts.Explanation{
			Summary:     summary,
			Technical:   contracts.FactorScore{Score: 50},
			Fundamental: contracts.FactorScore{Score: 50},
			Trend:       contracts.FactorScore{Score: 50},
			Volatility:  contracts.FactorScore{Score: 50},
			Risks:       risks,
			EvaluatedAt: in.EvaluatedAt,
		},
	}
}

func abs(v float64) float64 {
	if v < 0 {
		return -v
	}
	return v
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}
