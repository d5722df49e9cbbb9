package yahoo

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/quantlab/stocksignal/internal/contracts"
)

func TestProviderSymbol(t *testing.T) {
	tests := []struct {
		name   string
		symbol string
		market contracts.Market
		want   string
	}{
		{"us plain", "AAPL", contracts.MarketUS, "AAPL"},
		{"us lowercase", "aapl", contracts.MarketUS, "AAPL"},
		{"ngx gets suffix", "DANGCEM", contracts.MarketNGX, "DANGCEM.NG"},
		{"ngx already suffixed", "DANGCEM.NG", contracts.MarketNGX, "DANGCEM.NG"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, providerSymbol(tt.symbol, tt.market))
		})
	}
}

func TestLookbackRange(t *testing.T) {
	tests := []struct {
		bars int
		want string
	}{
		{5, "5d"},
		{20, "1mo"},
		{60, "3mo"},
		{120, "6mo"},
		{252, "1y"},
		{500, "2y"},
		{2000, "max"},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.want, lookbackRange(tt.bars), "bars=%d", tt.bars)
	}
}

func TestParseChartResponse(t *testing.T) {
	body := []byte(`{
		"chart": {
			"result": [{
				"timestamp": [1700000000, 1700086400, 1700172800],
				"indicators": {
					"quote": [{
						"open":   [100.0, 102.0, null],
						"high":   [105.0, 106.0, null],
						"low":    [99.0, 101.0, null],
						"close":  [104.0, 103.5, null],
						"volume": [1000000, 1200000, null]
					}]
				}
			}],
			"error": null
		}
	}`)

	bars, err := parseChartResponse(body)
	require.NoError(t, err)
	require.Len(t, bars, 2, "null close row must be dropped")

	assert.Equal(t, 104.0, bars[0].Close)
	assert.Equal(t, int64(1000000), bars[0].Volume)
	assert.True(t, bars[0].Time.Before(bars[1].Time), "bars must be ascending")
}

func TestParseChartResponseProviderError(t *testing.T) {
	body := []byte(`{"chart": {"result": null, "error": {"code": "Not Found", "description": "No data found"}}}`)

	_, err := parseChartResponse(body)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "Not Found")
}

func TestValidateBars(t *testing.T) {
	bars := []contracts.PriceBar{
		{Open: 100, High: 105, Low: 99, Close: 104, Volume: 1000},
		{Open: 100, High: 105, Low: 99, Close: 0, Volume: 1000},   // zero close dropped
		{Open: 100, High: 90, Low: 99, Close: 104, Volume: -5},    // high/volume repaired
		{Open: 0, High: 0, Low: 0, Close: 50, Volume: 10},         // open backfilled from close
	}

	out := ValidateBars(bars)
	require.Len(t, out, 3)

	assert.Equal(t, 104.0, out[1].Close)
	assert.GreaterOrEqual(t, out[1].High, out[1].Close)
	assert.GreaterOrEqual(t, out[1].High, out[1].Open)
	assert.Equal(t, int64(0), out[1].Volume)

	assert.Equal(t, 50.0, out[2].Open)
	assert.LessOrEqual(t, out[2].Low, out[2].Close)
}

func TestParseQuoteSummary(t *testing.T) {
	body := []byte(`{
		"quoteSummary": {
			"result": [{
				"summaryDetail": {
					"trailingPE": {"raw": 28.5},
					"dividendYield": {"raw": 0.0055},
					"dividendRate": {"raw": 0.96},
					"payoutRatio": {"raw": 0.147}
				},
				"defaultKeyStatistics": {
					"trailingEps": {"raw": 6.42}
				},
				"financialData": {
					"totalRevenue": {"raw": 383000000000},
					"debtToEquity": {"raw": 145.0},
					"earningsGrowth": {"raw": 0.11}
				}
			}],
			"error": null
		}
	}`)

	snap, err := parseQuoteSummary(body)
	require.NoError(t, err)
	require.False(t, snap.Empty())

	require.NotNil(t, snap.PERatio)
	assert.Equal(t, 28.5, *snap.PERatio)
	require.NotNil(t, snap.EPS)
	assert.Equal(t, 6.42, *snap.EPS)

	// Fractions become percents.
	require.NotNil(t, snap.DividendYield)
	assert.InDelta(t, 0.55, *snap.DividendYield, 1e-9)
	require.NotNil(t, snap.EarningsGrowth)
	assert.InDelta(t, 11.0, *snap.EarningsGrowth, 1e-9)
	require.NotNil(t, snap.PayoutRatio)
	assert.InDelta(t, 14.7, *snap.PayoutRatio, 1e-9)
}

func TestParseQuoteSummaryMissingFields(t *testing.T) {
	body := []byte(`{
		"quoteSummary": {
			"result": [{
				"summaryDetail": {"trailingPE": {"raw": 15.0}},
				"defaultKeyStatistics": {},
				"financialData": {}
			}],
			"error": null
		}
	}`)

	snap, err := parseQuoteSummary(body)
	require.NoError(t, err)
	require.NotNil(t, snap.PERatio)
	assert.Nil(t, snap.DividendYield, "absent metrics stay nil, never zero")
	assert.Nil(t, snap.EPS)
}

func TestParseStatValue(t *testing.T) {
	tests := []struct {
		in   string
		want float64
		ok   bool
	}{
		{"28.50", 28.50, true},
		{"1,234.5", 1234.5, true},
		{"0.55%", 0.55, true},
		{"383.29B", 383.29e9, true},
		{"1.2T", 1.2e12, true},
		{"45.3M", 45.3e6, true},
		{"N/A", 0, false},
		{"--", 0, false},
		{"", 0, false},
	}

	for _, tt := range tests {
		got, ok := parseStatValue(tt.in)
		assert.Equal(t, tt.ok, ok, "input %q", tt.in)
		if tt.ok {
			assert.InDelta(t, tt.want, got, 1e-6, "input %q", tt.in)
		}
	}
}

func TestParseStatisticsHTML(t *testing.T) {
	html := `<html><body><table>
		<tr><td>Trailing P/E</td><td>28.50</td></tr>
		<tr><td>Diluted EPS (ttm)</td><td>6.42</td></tr>
		<tr><td>Revenue (ttm)</td><td>383.29B</td></tr>
		<tr><td>Forward Annual Dividend Yield</td><td>0.55%</td></tr>
		<tr><td>Forward Annual Dividend Rate</td><td>0.96</td></tr>
		<tr><td>Payout Ratio</td><td>N/A</td></tr>
	</table></body></html>`

	snap, err := parseStatisticsHTML(html)
	require.NoError(t, err)

	require.NotNil(t, snap.PERatio)
	assert.Equal(t, 28.5, *snap.PERatio)
	require.NotNil(t, snap.EPS)
	assert.Equal(t, 6.42, *snap.EPS)
	require.NotNil(t, snap.Revenue)
	assert.InDelta(t, 383.29e9, *snap.Revenue, 1e3)
	require.NotNil(t, snap.DividendYield)
	assert.InDelta(t, 0.55, *snap.DividendYield, 1e-9)
	require.NotNil(t, snap.DividendPerShare)
	assert.Equal(t, 0.96, *snap.DividendPerShare)
	assert.Nil(t, snap.PayoutRatio, "N/A values stay nil")
}

func TestParseProfile(t *testing.T) {
	body := []byte(`{
		"quoteSummary": {
			"result": [{
				"price": {"shortName": "Apple", "longName": "Apple Inc.", "currency": "USD", "quoteType": "EQUITY"},
				"assetProfile": {"sector": "Technology"}
			}],
			"error": null
		}
	}`)

	p, err := parseProfile(body)
	require.NoError(t, err)
	assert.Equal(t, "Apple Inc.", p.Name)
	assert.Equal(t, "Technology", p.Sector)
	assert.Equal(t, "USD", p.Currency)
	assert.Equal(t, "STOCK", p.AssetType)
}

func TestNormalizeAssetType(t *testing.T) {
	assert.Equal(t, "ETF", normalizeAssetType("ETF"))
	assert.Equal(t, "MUTUAL_FUND", normalizeAssetType("MUTUALFUND"))
	assert.Equal(t, "STOCK", normalizeAssetType("EQUITY"))
	assert.Equal(t, "STOCK", normalizeAssetType(""))
	assert.Equal(t, "STOCK", normalizeAssetType("CRYPTOCURRENCY"))
}
