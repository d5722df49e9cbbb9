// Package scoring implements the multi-factor composite scoring engine:
// four bounded sub-scores blended by fixed weights into one graded
// signal with a deterministic explanation trace.
package scoring

import (
	"fmt"
	"math"

	"gonum.org/v1/gonum/stat"

	"github.com/quantlab/stocksignal/internal/contracts"
)

// Composite weights. Fixed by design; tuning them invalidates the
// documented score bands.
const (
	TechnicalWeight   = 0.40
	FundamentalWeight = 0.30
	TrendWeight       = 0.20
	VolatilityWeight  = 0.10
)

// vote markers collected while scoring technicals.
const (
	voteBuy  = "BUY"
	voteSell = "SELL"
)

type technicalResult struct {
	Score   float64
	Factors []string
	Votes   []string
	Trend   string // bullish, bearish, neutral
}

type fundamentalResult struct {
	Score   float64
	Factors []string
}

type trendResult struct {
	Score   float64
	Factors []string
	// Direction per horizon: -1 down, 0 flat, +1 up. Zero when the
	// series is too short for that horizon.
	Short, Medium, Long int
}

type volatilityResult struct {
	Score       float64
	Factors     []string
	Annualized  *float64 // percent, nil when the series is too short
	MaxDrawdown float64  // percent, <= 0
}

func clampScore(score float64) float64 {
	return math.Max(0, math.Min(100, score))
}

// technicalScore scores indicator posture around a neutral 50: RSI
// zone, MACD crossover, moving-average alignment, Bollinger position,
// and volume confirmation of the collected votes.
func technicalScore(ind *contracts.IndicatorSnapshot, currentPrice float64, currentVolume int64) technicalResult {
	score := 50.0
	var factors, votes []string

	if ind != nil && ind.RSI != nil {
		rsi := *ind.RSI
		switch {
		case rsi < 30:
			score += 15
			factors = append(factors, "RSI oversold (bullish)")
			votes = append(votes, voteBuy)
		case rsi > 70:
			score -= 15
			factors = append(factors, "RSI overbought (bearish)")
			votes = append(votes, voteSell)
		case rsi <= 45:
			score += 5
			factors = append(factors, "RSI in neutral-bullish zone")
		case rsi >= 55:
			score -= 5
			factors = append(factors, "RSI in neutral-bearish zone")
		}
	}

	if ind != nil && ind.MACD != nil && ind.MACDSignal != nil && ind.MACDHistogram != nil {
		switch {
		case *ind.MACD > *ind.MACDSignal && *ind.MACDHistogram > 0:
			score += 10
			factors = append(factors, "Bullish MACD crossover")
			votes = append(votes, voteBuy)
		case *ind.MACD < *ind.MACDSignal && *ind.MACDHistogram < 0:
			score -= 10
			factors = append(factors, "Bearish MACD crossover")
			votes = append(votes, voteSell)
		}
	}

	bullishMA := 0
	if ind != nil {
		if ind.SMA20 != nil && currentPrice > *ind.SMA20 {
			score += 5
			bullishMA++
			factors = append(factors, "Price above SMA 20")
		}
		if ind.SMA50 != nil && currentPrice > *ind.SMA50 {
			score += 8
			bullishMA++
			factors = append(factors, "Price above SMA 50")
		}
		if ind.SMA200 != nil && currentPrice > *ind.SMA200 {
			score += 10
			bullishMA++
			factors = append(factors, "Price above SMA 200")
		}
	}
	if bullishMA == 0 {
		score -= 10
		factors = append(factors, "Price below all key moving averages")
	}

	if ind != nil && ind.BollingerUpper != nil && ind.BollingerLower != nil {
		switch {
		case currentPrice <= *ind.BollingerLower:
			score += 10
			factors = append(factors, "Price near lower Bollinger Band (potential bounce)")
		case currentPrice >= *ind.BollingerUpper:
			score -= 10
			factors = append(factors, "Price near upper Bollinger Band (potential pullback)")
		}
	}

	if ind != nil && ind.VolumeAvg != nil && *ind.VolumeAvg > 0 && currentVolume > 0 {
		ratio := float64(currentVolume) / *ind.VolumeAvg
		if ratio > 1.5 {
			if contains(votes, voteBuy) {
				score += 5
			} else if contains(votes, voteSell) {
				score -= 5
			}
			factors = append(factors, fmt.Sprintf("Volume %.2fx average (confirms trend)", ratio))
		}
	}

	score = clampScore(score)

	trend := "neutral"
	if score > 50 {
		trend = "bullish"
	} else if score < 50 {
		trend = "bearish"
	}

	return technicalResult{Score: score, Factors: factors, Votes: votes, Trend: trend}
}

// fundamentalScore scores valuation and balance-sheet posture. Missing
// metrics contribute nothing; a fully empty snapshot stays neutral.
func fundamentalScore(f *contracts.FundamentalSnapshot) fundamentalResult {
	score := 50.0
	var factors []string

	if f == nil {
		return fundamentalResult{Score: score, Factors: []string{"No fundamental data available"}}
	}

	if f.PERatio != nil {
		pe := *f.PERatio
		if pe >= 10 && pe <= 25 {
			score += 5
			factors = append(factors, fmt.Sprintf("Reasonable P/E ratio (%.2f)", pe))
		} else if pe > 30 {
			score -= 10
			factors = append(factors, fmt.Sprintf("High P/E ratio (%.2f)", pe))
		}
	}

	if f.EarningsGrowth != nil {
		g := *f.EarningsGrowth
		switch {
		case g > 20:
			score += 15
			factors = append(factors, fmt.Sprintf("Strong earnings growth (%.2f%%)", g))
		case g > 10:
			score += 8
			factors = append(factors, fmt.Sprintf("Positive earnings growth (%.2f%%)", g))
		case g > 0:
			score += 3
			factors = append(factors, fmt.Sprintf("Modest earnings growth (%.2f%%)", g))
		case g < -10:
			score -= 15
			factors = append(factors, fmt.Sprintf("Negative earnings growth (%.2f%%)", g))
		default:
			score -= 5
			factors = append(factors, fmt.Sprintf("Declining earnings growth (%.2f%%)", g))
		}
	}

	if f.DebtRatio != nil {
		d := *f.DebtRatio
		if d < 30 {
			score += 5
			factors = append(factors, fmt.Sprintf("Low debt ratio (%.2f%%)", d))
		} else if d > 70 {
			score -= 10
			factors = append(factors, fmt.Sprintf("High debt ratio (%.2f%%)", d))
		}
	}

	return fundamentalResult{Score: clampScore(score), Factors: factors}
}

// trendScore measures price change over short (20), medium (50), and
// long (200) bar horizons and records each horizon's direction for the
// holding-period derivation.
func trendScore(bars []contracts.PriceBar) trendResult {
	if len(bars) < 5 {
		return trendResult{Score: 50, Factors: []string{"Insufficient data for trend analysis"}}
	}

	closes := contracts.Closes(bars)
	score := 50.0
	var factors []string
	res := trendResult{}

	if len(closes) >= 20 {
		change := pctChange(closes, 20)
		switch {
		case change > 5:
			score += 8
			factors = append(factors, fmt.Sprintf("Strong short-term uptrend (%.2f%%)", change))
		case change > 2:
			score += 4
			factors = append(factors, fmt.Sprintf("Positive short-term trend (%.2f%%)", change))
		case change < -5:
			score -= 8
			factors = append(factors, fmt.Sprintf("Strong short-term downtrend (%.2f%%)", change))
		case change < -2:
			score -= 4
			factors = append(factors, fmt.Sprintf("Negative short-term trend (%.2f%%)", change))
		}
		res.Short = direction(change, 2)
	}

	if len(closes) >= 50 {
		change := pctChange(closes, 50)
		switch {
		case change > 10:
			score += 10
			factors = append(factors, fmt.Sprintf("Strong medium-term uptrend (%.2f%%)", change))
		case change > 5:
			score += 5
			factors = append(factors, fmt.Sprintf("Positive medium-term trend (%.2f%%)", change))
		case change < -10:
			score -= 10
			factors = append(factors, fmt.Sprintf("Strong medium-term downtrend (%.2f%%)", change))
		case change < -5:
			score -= 5
			factors = append(factors, fmt.Sprintf("Negative medium-term trend (%.2f%%)", change))
		}
		res.Medium = direction(change, 5)
	}

	if len(closes) >= 200 {
		change := pctChange(closes, 200)
		switch {
		case change > 20:
			score += 12
			factors = append(factors, fmt.Sprintf("Strong long-term uptrend (%.2f%%)", change))
		case change > 10:
			score += 6
			factors = append(factors, fmt.Sprintf("Positive long-term trend (%.2f%%)", change))
		case change < -20:
			score -= 12
			factors = append(factors, fmt.Sprintf("Strong long-term downtrend (%.2f%%)", change))
		case change < -10:
			score -= 6
			factors = append(factors, fmt.Sprintf("Negative long-term trend (%.2f%%)", change))
		}
		res.Long = direction(change, 10)
	}

	res.Score = clampScore(score)
	res.Factors = factors
	return res
}

// volatilityScore is an inverse measure of risk: higher for calm series
// with controlled drawdowns, lower for volatile ones.
func volatilityScore(bars []contracts.PriceBar) volatilityResult {
	if len(bars) < 20 {
		return volatilityResult{Score: 50, Factors: []string{"Insufficient data for volatility analysis"}}
	}

	closes := contracts.Closes(bars)
	returns := make([]float64, 0, len(closes)-1)
	for i := 1; i < len(closes); i++ {
		if closes[i-1] != 0 {
			returns = append(returns, closes[i]/closes[i-1]-1)
		}
	}
	if len(returns) == 0 {
		return volatilityResult{Score: 50, Factors: []string{"Insufficient data for volatility analysis"}}
	}

	score := 50.0
	var factors []string

	annualized := stat.StdDev(returns, nil) * 100 * math.Sqrt(252)
	switch {
	case annualized < 15:
		score += 10
		factors = append(factors, fmt.Sprintf("Low volatility (%.2f%%)", annualized))
	case annualized > 40:
		score -= 15
		factors = append(factors, fmt.Sprintf("High volatility (%.2f%%)", annualized))
	default:
		factors = append(factors, fmt.Sprintf("Moderate volatility (%.2f%%)", annualized))
	}

	maxDrawdown := maxDrawdownPct(returns)
	if maxDrawdown > -20 {
		score += 5
		factors = append(factors, fmt.Sprintf("Controlled drawdown (%.2f%%)", maxDrawdown))
	} else if maxDrawdown < -50 {
		score -= 10
		factors = append(factors, fmt.Sprintf("Significant drawdown (%.2f%%)", maxDrawdown))
	}

	return volatilityResult{
		Score:       clampScore(score),
		Factors:     factors,
		Annualized:  &annualized,
		MaxDrawdown: maxDrawdown,
	}
}

// pctChange is the percent change from n bars ago to the latest close.
func pctChange(closes []float64, n int) float64 {
	base := closes[len(closes)-n]
	if base == 0 {
		return 0
	}
	return (closes[len(closes)-1] - base) / base * 100
}

// direction buckets a percent change into -1/0/+1 around a threshold.
func direction(change, threshold float64) int {
	switch {
	case change > threshold:
		return 1
	case change < -threshold:
		return -1
	default:
		return 0
	}
}

// maxDrawdownPct is the largest peak-to-trough loss of the compounded
// return series, in percent (<= 0).
func maxDrawdownPct(returns []float64) float64 {
	cumulative := 1.0
	peak := 1.0
	worst := 0.0
	for _, r := range returns {
		cumulative *= 1 + r
		if cumulative > peak {
			peak = cumulative
		}
		dd := (cumulative - peak) / peak
		if dd < worst {
			worst = dd
		}
	}
	return worst * 100
}

func contains(list []string, want string) bool {
	for _, s := range list {
		if s == want {
			return true
		}
	}
	return false
}
