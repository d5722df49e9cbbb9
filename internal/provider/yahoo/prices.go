package yahoo

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/quantlab/stocksignal/internal/contracts"
)

// chartResponse mirrors the provider's chart API envelope.
type chartResponse struct {
	Chart struct {
		Result []struct {
			Timestamp  []int64 `json:"timestamp"`
			Indicators struct {
				Quote []struct {
					Open   []*float64 `json:"open"`
					High   []*float64 `json:"high"`
					Low    []*float64 `json:"low"`
					Close  []*float64 `json:"close"`
					Volume []*int64   `json:"volume"`
				} `json:"quote"`
			} `json:"indicators"`
		} `json:"result"`
		Error *struct {
			Code        string `json:"code"`
			Description string `json:"description"`
		} `json:"error"`
	} `json:"chart"`
}

// FetchPrices fetches up to lookback daily bars for a security, ordered
// by time ascending. Exhausted retries and provider not-found both
// surface as ErrDataUnavailable; the caller decides whether a persisted
// fallback exists.
func (c *Client) FetchPrices(ctx context.Context, symbol string, market contracts.Market, lookback int) ([]contracts.PriceBar, error) {
	ticker := providerSymbol(symbol, market)
	url := fmt.Sprintf("%s/v8/finance/chart/%s?range=%s&interval=1d",
		c.baseURL, ticker, lookbackRange(lookback))

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("create request failed: %w", err)
	}
	req.Header.Set("User-Agent", userAgent)

	resp, err := c.priceClient.Do(req)
	if err != nil {
		return nil, dataUnavailable("price fetch for %s failed: %v", ticker, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusNotFound {
		return nil, dataUnavailable("symbol %s not found", ticker)
	}
	if resp.StatusCode != http.StatusOK {
		return nil, dataUnavailable("price fetch for %s: unexpected status %d", ticker, resp.StatusCode)
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, dataUnavailable("read response body failed: %v", err)
	}

	bars, err := parseChartResponse(body)
	if err != nil {
		return nil, dataUnavailable("parse chart response for %s: %v", ticker, err)
	}

	bars = ValidateBars(bars)
	if len(bars) == 0 {
		return nil, dataUnavailable("no usable bars for %s", ticker)
	}
	if len(bars) > lookback {
		bars = bars[len(bars)-lookback:]
	}

	c.logger.WithFields(map[string]interface{}{
		"symbol": symbol,
		"count":  len(bars),
	}).Debug("Fetched prices")

	return bars, nil
}

// parseChartResponse decodes the chart envelope into bars ordered by
// time ascending, the order the provider returns timestamps in.
func parseChartResponse(body []byte) ([]contracts.PriceBar, error) {
	var cr chartResponse
	if err := json.Unmarshal(body, &cr); err != nil {
		return nil, fmt.Errorf("decode failed: %w", err)
	}

	if cr.Chart.Error != nil {
		return nil, fmt.Errorf("provider error %s: %s", cr.Chart.Error.Code, cr.Chart.Error.Description)
	}
	if len(cr.Chart.Result) == 0 || len(cr.Chart.Result[0].Indicators.Quote) == 0 {
		return nil, fmt.Errorf("empty result")
	}

	result := cr.Chart.Result[0]
	quote := result.Indicators.Quote[0]

	bars := make([]contracts.PriceBar, 0, len(result.Timestamp))
	for i, ts := range result.Timestamp {
		if i >= len(quote.Close) || quote.Close[i] == nil {
			continue // provider emits null rows for non-trading periods
		}

		bar := contracts.PriceBar{
			Time:  time.Unix(ts, 0).UTC(),
			Close: *quote.Close[i],
		}
		if i < len(quote.Open) && quote.Open[i] != nil {
			bar.Open = *quote.Open[i]
		}
		if i < len(quote.High) && quote.High[i] != nil {
			bar.High = *quote.High[i]
		}
		if i < len(quote.Low) && quote.Low[i] != nil {
			bar.Low = *quote.Low[i]
		}
		if i < len(quote.Volume) && quote.Volume[i] != nil {
			bar.Volume = *quote.Volume[i]
		}
		bars = append(bars, bar)
	}

	return bars, nil
}

// ValidateBars clips raw provider bars before storage. Provider data is
// never assumed sanitized: zero-close rows are dropped, negative volume
// is clamped, and high/low are widened to contain open and close.
func ValidateBars(bars []contracts.PriceBar) []contracts.PriceBar {
	out := make([]contracts.PriceBar, 0, len(bars))
	for _, b := range bars {
		if b.Close <= 0 {
			continue
		}
		if b.Open <= 0 {
			b.Open = b.Close
		}
		if b.Volume < 0 {
			b.Volume = 0
		}
		if b.High < b.Open {
			b.High = b.Open
		}
		if b.High < b.Close {
			b.High = b.Close
		}
		if b.Low <= 0 || b.Low > b.Open {
			b.Low = b.Open
		}
		if b.Low > b.Close {
			b.Low = b.Close
		}
		out = append(out, b)
	}
	return out
}
