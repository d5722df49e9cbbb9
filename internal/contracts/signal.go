package contracts

import "time"

// SignalType is the graded recommendation.
type SignalType string

const (
	SignalBuy      SignalType = "BUY"
	SignalHold     SignalType = "HOLD"
	SignalSell     SignalType = "SELL"
	SignalNoSignal SignalType = "NO_SIGNAL"
)

// ParseSignalType validates a signal type string. Empty input is allowed
// and means "no filter".
func ParseSignalType(s string) (SignalType, bool) {
	switch SignalType(s) {
	case "", SignalBuy, SignalHold, SignalSell, SignalNoSignal:
		return SignalType(s), true
	default:
		return "", false
	}
}

// RiskLevel is derived from the volatility sub-score tercile.
type RiskLevel string

const (
	RiskLow    RiskLevel = "LOW"
	RiskMedium RiskLevel = "MEDIUM"
	RiskHigh   RiskLevel = "HIGH"
)

// HoldingPeriod is the recommended minimum duration to retain a position.
type HoldingPeriod string

const (
	HoldingShort  HoldingPeriod = "SHORT"
	HoldingMedium HoldingPeriod = "MEDIUM"
	HoldingLong   HoldingPeriod = "LONG"
)

// FactorScore records one sub-score of the composite decision.
type FactorScore struct {
	Score   float64  `json:"score"`
	Factors []string `json:"factors,omitempty"`
}

// ClassificationAdvice is the investor recommendation attached to the
// explanation once the security has been classified.
type ClassificationAdvice struct {
	Class       SecurityClass `json:"class"`
	BestFor     []string      `json:"best_for"`
	Strategy    string        `json:"strategy"`
	TimeHorizon string        `json:"time_horizon"`
	Action      string        `json:"action"`
}

// Explanation is the structured decision trace. It must be regenerable
// deterministically from the same inputs; the only time-dependent field
// is EvaluatedAt.
type Explanation struct {
	Summary        string                `json:"summary"`
	Technical      FactorScore           `json:"technical"`
	Fundamental    FactorScore           `json:"fundamental"`
	Trend          FactorScore           `json:"trend"`
	Volatility     FactorScore           `json:"volatility"`
	CompositeScore float64               `json:"composite_score"`
	Triggers       []string              `json:"triggers"`
	Risks          []string              `json:"risks"`
	Invalidation   []string              `json:"invalidation_conditions"`
	Classification *ClassificationAdvice `json:"classification,omitempty"`
	EvaluatedAt    time.Time             `json:"evaluated_at"`
}

// Signal is one graded recommendation for a security. Rows are
// append-only; the current signal is the most recent row per security.
type Signal struct {
	ID          int64         `json:"id"`
	SecurityID  int64         `json:"security_id"`
	Symbol      string        `json:"symbol,omitempty"`
	Market      Market        `json:"market,omitempty"`
	Type        SignalType    `json:"signal_type"`
	Confidence  float64       `json:"confidence_score"` // 0-100
	Risk        RiskLevel     `json:"risk_level"`
	Holding     HoldingPeriod `json:"holding_period"`
	Explanation Explanation   `json:"explanation"`
	CreatedAt   time.Time     `json:"created_at"`
}

// Age returns how old the signal is relative to now.
func (s *Signal) Age(now time.Time) time.Duration {
	return now.Sub(s.CreatedAt)
}
