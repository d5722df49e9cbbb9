package yahoo

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"

	"github.com/quantlab/stocksignal/internal/contracts"
)

// rawValue is the provider's {raw, fmt} wrapper around numeric fields.
type rawValue struct {
	Raw *float64 `json:"raw"`
}

type quoteSummaryResponse struct {
	QuoteSummary struct {
		Result []struct {
			SummaryDetail struct {
				TrailingPE    rawValue `json:"trailingPE"`
				DividendYield rawValue `json:"dividendYield"`
				DividendRate  rawValue `json:"dividendRate"`
				PayoutRatio   rawValue `json:"payoutRatio"`
			} `json:"summaryDetail"`
			DefaultKeyStatistics struct {
				TrailingEPS rawValue `json:"trailingEps"`
			} `json:"defaultKeyStatistics"`
			FinancialData struct {
				TotalRevenue   rawValue `json:"totalRevenue"`
				DebtToEquity   rawValue `json:"debtToEquity"`
				EarningsGrowth rawValue `json:"earningsGrowth"`
			} `json:"financialData"`
		} `json:"result"`
		Error *struct {
			Code        string `json:"code"`
			Description string `json:"description"`
		} `json:"error"`
	} `json:"quoteSummary"`
}

// FetchFundamentals fetches the current fundamental snapshot for a
// security. The JSON quoteSummary API is tried first; when it fails or
// returns an empty snapshot, the statistics page is scraped as a
// fallback. Both empty is ErrDataUnavailable.
func (c *Client) FetchFundamentals(ctx context.Context, symbol string, market contracts.Market) (*contracts.FundamentalSnapshot, error) {
	ticker := providerSymbol(symbol, market)

	snap, err := c.fetchQuoteSummary(ctx, ticker)
	if err != nil || snap.Empty() {
		if err != nil {
			c.logger.WithField("symbol", symbol).WithError(err).Debug("quoteSummary failed, falling back to scrape")
		}
		scraped, scrapeErr := c.scrapeStatistics(ctx, ticker)
		if scrapeErr == nil && !scraped.Empty() {
			snap = scraped
		} else if err != nil {
			return nil, dataUnavailable("fundamentals for %s: %v", ticker, err)
		}
	}

	if snap.Empty() {
		return nil, dataUnavailable("no fundamental data for %s", ticker)
	}

	snap.Date = time.Now().UTC().Truncate(24 * time.Hour)
	return snap, nil
}

func (c *Client) fetchQuoteSummary(ctx context.Context, ticker string) (*contracts.FundamentalSnapshot, error) {
	url := fmt.Sprintf("%s/v10/finance/quoteSummary/%s?modules=summaryDetail,defaultKeyStatistics,financialData",
		c.baseURL, ticker)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("create request failed: %w", err)
	}
	req.Header.Set("User-Agent", userAgent)

	resp, err := c.fundClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("quoteSummary request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("quoteSummary: unexpected status %d", resp.StatusCode)
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read response body failed: %w", err)
	}

	return parseQuoteSummary(body)
}

func parseQuoteSummary(body []byte) (*contracts.FundamentalSnapshot, error) {
	var qs quoteSummaryResponse
	if err := json.Unmarshal(body, &qs); err != nil {
		return nil, fmt.Errorf("decode failed: %w", err)
	}
	if qs.QuoteSummary.Error != nil {
		return nil, fmt.Errorf("provider error %s: %s",
			qs.QuoteSummary.Error.Code, qs.QuoteSummary.Error.Description)
	}
	if len(qs.QuoteSummary.Result) == 0 {
		return nil, fmt.Errorf("empty result")
	}

	r := qs.QuoteSummary.Result[0]
	snap := &contracts.FundamentalSnapshot{
		PERatio:          r.SummaryDetail.TrailingPE.Raw,
		EPS:              r.DefaultKeyStatistics.TrailingEPS.Raw,
		Revenue:          r.FinancialData.TotalRevenue.Raw,
		DebtRatio:        r.FinancialData.DebtToEquity.Raw,
		DividendPerShare: r.SummaryDetail.DividendRate.Raw,
	}
	// Provider reports these as fractions; metrics are kept in percent.
	snap.EarningsGrowth = asPercent(r.FinancialData.EarningsGrowth.Raw)
	snap.DividendYield = asPercent(r.SummaryDetail.DividendYield.Raw)
	snap.PayoutRatio = asPercent(r.SummaryDetail.PayoutRatio.Raw)
	return snap, nil
}

func asPercent(v *float64) *float64 {
	if v == nil {
		return nil
	}
	p := *v * 100
	return &p
}

// scrapeStatistics parses the key-statistics HTML page. Slower and more
// fragile than the JSON API, so only used as a fallback.
func (c *Client) scrapeStatistics(ctx context.Context, ticker string) (*contracts.FundamentalSnapshot, error) {
	url := fmt.Sprintf("%s/quote/%s/key-statistics", c.scrapeURL, ticker)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("create request failed: %w", err)
	}
	req.Header.Set("User-Agent", userAgent)

	resp, err := c.fundClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("statistics page request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("statistics page: unexpected status %d", resp.StatusCode)
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read response body failed: %w", err)
	}

	return parseStatisticsHTML(string(body))
}

// statisticsLabels maps page row labels to snapshot fields. Percent
// values keep their magnitude; the % suffix is stripped during parsing.
var statisticsLabels = []struct {
	prefix string
	assign func(*contracts.FundamentalSnapshot, float64)
}{
	{"Trailing P/E", func(s *contracts.FundamentalSnapshot, v float64) { s.PERatio = &v }},
	{"Diluted EPS", func(s *contracts.FundamentalSnapshot, v float64) { s.EPS = &v }},
	{"Revenue (ttm)", func(s *contracts.FundamentalSnapshot, v float64) { s.Revenue = &v }},
	{"Total Debt/Equity", func(s *contracts.FundamentalSnapshot, v float64) { s.DebtRatio = &v }},
	{"Quarterly Earnings Growth", func(s *contracts.FundamentalSnapshot, v float64) { s.EarningsGrowth = &v }},
	{"Forward Annual Dividend Yield", func(s *contracts.FundamentalSnapshot, v float64) { s.DividendYield = &v }},
	{"Forward Annual Dividend Rate", func(s *contracts.FundamentalSnapshot, v float64) { s.DividendPerShare = &v }},
	{"Payout Ratio", func(s *contracts.FundamentalSnapshot, v float64) { s.PayoutRatio = &v }},
}

func parseStatisticsHTML(html string) (*contracts.FundamentalSnapshot, error) {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		return nil, fmt.Errorf("parse HTML failed: %w", err)
	}

	snap := &contracts.FundamentalSnapshot{}
	doc.Find("tr").Each(func(i int, row *goquery.Selection) {
		cells := row.Find("td")
		if cells.Length() < 2 {
			return
		}
		label := strings.TrimSpace(cells.Eq(0).Text())
		value := strings.TrimSpace(cells.Eq(1).Text())

		for _, f := range statisticsLabels {
			if !strings.HasPrefix(label, f.prefix) {
				continue
			}
			if v, ok := parseStatValue(value); ok {
				f.assign(snap, v)
			}
			return
		}
	})
	return snap, nil
}

// parseStatValue handles the page's number formats: thousands commas,
// percent suffixes, and the B/M/T magnitude suffixes used for revenue.
func parseStatValue(s string) (float64, bool) {
	s = strings.TrimSpace(s)
	if s == "" || s == "N/A" || s == "--" {
		return 0, false
	}
	s = strings.ReplaceAll(s, ",", "")
	s = strings.TrimSuffix(s, "%")

	mult := 1.0
	switch {
	case strings.HasSuffix(s, "T"):
		mult = 1e12
		s = strings.TrimSuffix(s, "T")
	case strings.HasSuffix(s, "B"):
		mult = 1e9
		s = strings.TrimSuffix(s, "B")
	case strings.HasSuffix(s, "M"):
		mult = 1e6
		s = strings.TrimSuffix(s, "M")
	case strings.HasSuffix(s, "k"):
		mult = 1e3
		s = strings.TrimSuffix(s, "k")
	}

	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0, false
	}
	return v * mult, true
}
