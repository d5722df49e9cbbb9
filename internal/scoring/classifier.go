package scoring

import (
	"fmt"
	"strings"

	"github.com/quantlab/stocksignal/internal/contracts"
)

// Classify tags a security as GROWTH, DIVIDEND, or HYBRID from its
// fundamental snapshot. A snapshot with no usable metrics stays
// UNCLASSIFIED so the tag can be assigned on a later refresh.
func Classify(f *contracts.FundamentalSnapshot) contracts.SecurityClass {
	if f == nil || f.Empty() {
		return contracts.ClassUnclassified
	}

	yield := deref(f.DividendYield)
	growth := deref(f.EarningsGrowth)
	pe := deref(f.PERatio)
	payout := deref(f.PayoutRatio)

	hasDividend := yield > 0.5
	hasGrowth := growth > 10
	highPE := pe > 25
	highPayout := payout > 50

	// Dividend: meaningful yield, little growth, payout-heavy.
	if hasDividend && (!hasGrowth || growth < 5) && (highPayout || yield > 3) {
		return contracts.ClassDividend
	}

	// Growth: strong growth with growth-priced multiples or no yield.
	if hasGrowth && (highPE || !hasDividend || yield < 1) {
		return contracts.ClassGrowth
	}

	if hasDividend && hasGrowth {
		return contracts.ClassHybrid
	}
	if hasDividend {
		return contracts.ClassDividend
	}
	if hasGrowth {
		return contracts.ClassGrowth
	}
	return contracts.ClassHybrid
}

// Advice returns the investor recommendation for a classified security
// under the given signal.
func Advice(class contracts.SecurityClass, signalType contracts.SignalType) *contracts.ClassificationAdvice {
	if class == contracts.ClassUnclassified || class == "" {
		return nil
	}

	advice := &contracts.ClassificationAdvice{Class: class}
	switch class {
	case contracts.ClassGrowth:
		advice.BestFor = []string{"Growth investors", "Long-term wealth building", "Capital appreciation seekers"}
		advice.Strategy = "Focus on capital gains and reinvestment"
		advice.TimeHorizon = "Long-term (5+ years)"
	case contracts.ClassDividend:
		advice.BestFor = []string{"Income investors", "Retirement portfolios", "Passive income seekers"}
		advice.Strategy = "Focus on regular dividend income"
		advice.TimeHorizon = "Long-term (steady income)"
	default:
		advice.BestFor = []string{"Balanced investors", "Total return seekers", "Diversified portfolios"}
		advice.Strategy = "Combination of growth and income"
		advice.TimeHorizon = "Medium to long-term"
	}

	switch signalType {
	case contracts.SignalBuy:
		advice.Action = fmt.Sprintf("Consider adding to %s portfolio", strings.ToLower(string(class)))
	case contracts.SignalHold:
		advice.Action = "Maintain position if aligned with investment goals"
	case contracts.SignalSell:
		advice.Action = "Consider reducing position or taking profits"
	default:
		advice.Action = "Wait for clearer signals"
	}
	return advice
}

func deref(v *float64) float64 {
	if v == nil {
		return 0
	}
	return *v
}
