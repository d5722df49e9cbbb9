package scoring

import (
	"fmt"
	"strings"

	"github.com/quantlab/stocksignal/internal/contracts"
)

// buildExplanation assembles the structured decision trace. Everything
// here derives from the evaluation inputs, so the same inputs always
// produce the same trace apart from EvaluatedAt.
func buildExplanation(
	sig *contracts.Signal,
	in Input,
	tech technicalResult,
	fund fundamentalResult,
	trend trendResult,
	vol volatilityResult,
	composite float64,
	conflicted bool,
) contracts.Explanation {
	exp := contracts.Explanation{
		Summary:        summary(sig, in, tech, fund, conflicted),
		Technical:      contracts.FactorScore{Score: tech.Score, Factors: tech.Factors},
		Fundamental:    contracts.FactorScore{Score: fund.Score, Factors: fund.Factors},
		Trend:          contracts.FactorScore{Score: trend.Score, Factors: trend.Factors},
		Volatility:     contracts.FactorScore{Score: vol.Score, Factors: vol.Factors},
		CompositeScore: composite,
		Triggers:       triggers(in, fund, trend),
		Risks:          risks(sig.Risk, vol, in.Fundamentals),
		Invalidation:   invalidation(sig.Type, in.Indicators),
		Classification: Advice(in.Security.Class, sig.Type),
		EvaluatedAt:    in.EvaluatedAt,
	}
	return exp
}

func summary(sig *contracts.Signal, in Input, tech technicalResult, fund fundamentalResult, conflicted bool) string {
	var rsi, growth *float64
	if in.Indicators != nil {
		rsi = in.Indicators.RSI
	}
	if in.Fundamentals != nil {
		growth = in.Fundamentals.EarningsGrowth
	}

	parts := []string{fmt.Sprintf("%s -", sig.Type)}
	switch sig.Type {
	case contracts.SignalBuy:
		parts = append(parts, "Strong upward momentum")
		if rsi != nil {
			parts = append(parts, fmt.Sprintf("with RSI at %.1f", *rsi))
		}
		if growth != nil && *growth > 0 {
			parts = append(parts, fmt.Sprintf("positive earnings growth of %.1f%%", *growth))
		}
		if tech.Trend == "bullish" {
			parts = append(parts, "and price above key moving averages")
		}
	case contracts.SignalSell:
		parts = append(parts, "Negative momentum")
		if rsi != nil && *rsi > 70 {
			parts = append(parts, fmt.Sprintf("with RSI overbought at %.1f", *rsi))
		}
		if growth != nil && *growth < 0 {
			parts = append(parts, fmt.Sprintf("negative earnings growth of %.1f%%", *growth))
		}
		if tech.Trend == "bearish" {
			parts = append(parts, "and price below key moving averages")
		}
	case contracts.SignalHold:
		parts = append(parts, "Mixed signals", "with neutral momentum")
	default:
		if conflicted {
			parts = append(parts, "Conflicting technical and fundamental signals")
		} else {
			parts = append(parts, "Insufficient data or conflicting signals")
		}
	}
	parts = append(parts, fmt.Sprintf("(Confidence: %.1f%%)", sig.Confidence))

	return strings.Join(parts, " ") + "."
}

func triggers(in Input, fund fundamentalResult, trend trendResult) []string {
	var out []string

	if in.Indicators != nil {
		if rsi := in.Indicators.RSI; rsi != nil {
			if *rsi < 30 {
				out = append(out, fmt.Sprintf("RSI oversold (%.1f)", *rsi))
			} else if *rsi > 70 {
				out = append(out, fmt.Sprintf("RSI overbought (%.1f)", *rsi))
			}
		}
		if hist := in.Indicators.MACDHistogram; hist != nil {
			if *hist > 0 {
				out = append(out, "Bullish MACD crossover")
			} else if *hist < 0 {
				out = append(out, "Bearish MACD crossover")
			}
		}
		if sma50 := in.Indicators.SMA50; sma50 != nil && len(in.Bars) > 0 {
			if in.Bars[len(in.Bars)-1].Close > *sma50 {
				out = append(out, "Price above 50-day SMA")
			} else {
				out = append(out, "Price below 50-day SMA")
			}
		}
	}

	if in.Fundamentals != nil && in.Fundamentals.EarningsGrowth != nil {
		g := *in.Fundamentals.EarningsGrowth
		if g > 10 {
			out = append(out, fmt.Sprintf("Positive earnings growth (%.1f%%)", g))
		} else if g < -10 {
			out = append(out, fmt.Sprintf("Negative earnings growth (%.1f%%)", g))
		}
	}

	out = append(out, head(trend.Factors, 2)...)
	return head(out, 5)
}

func risks(level contracts.RiskLevel, vol volatilityResult, f *contracts.FundamentalSnapshot) []string {
	var out []string

	if level == contracts.RiskHigh {
		out = append(out, "High volatility and risk level")
	}
	if vol.Annualized != nil && *vol.Annualized > 40 {
		out = append(out, fmt.Sprintf("High market volatility (%.1f%%)", *vol.Annualized))
	}
	if f != nil && f.DebtRatio != nil && *f.DebtRatio > 70 {
		out = append(out, fmt.Sprintf("High debt ratio (%.1f%%)", *f.DebtRatio))
	}
	if level == contracts.RiskMedium {
		out = append(out, "Moderate market volatility may increase")
	}

	out = append(out,
		"Market conditions can change rapidly",
		"Past performance does not guarantee future results",
	)
	return head(out, 4)
}

func invalidation(signalType contracts.SignalType, ind *contracts.IndicatorSnapshot) []string {
	var out []string

	switch signalType {
	case contracts.SignalBuy:
		if ind != nil {
			if ind.SMA50 != nil {
				out = append(out, fmt.Sprintf("Price breaks below $%.2f support (50-day SMA)", *ind.SMA50))
			}
			if ind.RSI != nil {
				out = append(out, "RSI exceeds 70 (overbought)")
			}
			if ind.BollingerLower != nil {
				out = append(out, fmt.Sprintf("Price breaks below $%.2f (lower Bollinger Band)", *ind.BollingerLower))
			}
		}
	case contracts.SignalSell:
		if ind != nil {
			if ind.SMA50 != nil {
				out = append(out, fmt.Sprintf("Price breaks above $%.2f resistance (50-day SMA)", *ind.SMA50))
			}
			if ind.RSI != nil {
				out = append(out, "RSI falls below 30 (oversold)")
			}
			if ind.BollingerUpper != nil {
				out = append(out, fmt.Sprintf("Price breaks above $%.2f (upper Bollinger Band)", *ind.BollingerUpper))
			}
		}
	}
	if len(out) == 0 {
		out = append(out, "Signal may change with new data")
	}
	return head(out, 3)
}

func head(list []string, n int) []string {
	if len(list) > n {
		return list[:n]
	}
	return list
}
