package contracts

import (
	"fmt"
	"strings"
	"time"
)

// Market identifies a supported exchange.
type Market string

const (
	MarketUS  Market = "US"
	MarketNGX Market = "NGX"
)

// ParseMarket validates and normalizes a market string.
func ParseMarket(s string) (Market, error) {
	switch Market(strings.ToUpper(strings.TrimSpace(s))) {
	case MarketUS:
		return MarketUS, nil
	case MarketNGX:
		return MarketNGX, nil
	default:
		return "", fmt.Errorf("unsupported market %q", s)
	}
}

// SecurityClass is the fundamental classification of a security.
// Assigned asynchronously once fundamentals are available.
type SecurityClass string

const (
	ClassGrowth       SecurityClass = "GROWTH"
	ClassDividend     SecurityClass = "DIVIDEND"
	ClassHybrid       SecurityClass = "HYBRID"
	ClassUnclassified SecurityClass = "UNCLASSIFIED"
)

// Security is a tradable instrument tracked by symbol and market.
// Securities are never hard-deleted, only deactivated.
type Security struct {
	ID        int64         `json:"id"`
	Symbol    string        `json:"symbol"`
	Name      string        `json:"name,omitempty"`
	Market    Market        `json:"market"`
	Sector    string        `json:"sector,omitempty"`
	Currency  string        `json:"currency,omitempty"`
	AssetType string        `json:"asset_type,omitempty"` // STOCK, ETF, MUTUAL_FUND
	Class     SecurityClass `json:"class"`
	Active    bool          `json:"active"`
	CreatedAt time.Time     `json:"created_at"`
	UpdatedAt time.Time     `json:"updated_at"`
}
