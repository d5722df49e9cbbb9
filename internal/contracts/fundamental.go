package contracts

import "time"

// FundamentalSnapshot holds fundamental metrics for a security as of a
// date. One row per (security, date); refreshes upsert in place. Any
// field may be absent; dividend metrics in particular are legitimately
// missing for growth stocks and for sparsely covered markets.
type FundamentalSnapshot struct {
	SecurityID       int64     `json:"security_id"`
	Date             time.Time `json:"date"`
	PERatio          *float64  `json:"pe_ratio,omitempty"`
	EPS              *float64  `json:"eps,omitempty"`
	Revenue          *float64  `json:"revenue,omitempty"`
	DebtRatio        *float64  `json:"debt_ratio,omitempty"`      // percent
	EarningsGrowth   *float64  `json:"earnings_growth,omitempty"` // percent
	DividendYield    *float64  `json:"dividend_yield,omitempty"`  // percent
	DividendPerShare *float64  `json:"dividend_per_share,omitempty"`
	PayoutRatio      *float64  `json:"payout_ratio,omitempty"` // percent
}

// Empty reports whether the snapshot carries no metrics at all.
func (f *FundamentalSnapshot) Empty() bool {
	return f.PERatio == nil && f.EPS == nil && f.Revenue == nil &&
		f.DebtRatio == nil && f.EarningsGrowth == nil &&
		f.DividendYield == nil && f.DividendPerShare == nil && f.PayoutRatio == nil
}
