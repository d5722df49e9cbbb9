package yahoo

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/quantlab/stocksignal/internal/contracts"
)

// SecurityProfile is the provider's descriptive metadata for a listing,
// used to enrich a security at registration time.
type SecurityProfile struct {
	Name      string
	Sector    string
	Currency  string
	AssetType string
}

type profileResponse struct {
	QuoteSummary struct {
		Result []struct {
			Price struct {
				ShortName string `json:"shortName"`
				LongName  string `json:"longName"`
				Currency  string `json:"currency"`
				QuoteType string `json:"quoteType"`
			} `json:"price"`
			AssetProfile struct {
				Sector string `json:"sector"`
			} `json:"assetProfile"`
		} `json:"result"`
		Error *struct {
			Code        string `json:"code"`
			Description string `json:"description"`
		} `json:"error"`
	} `json:"quoteSummary"`
}

// FetchProfile fetches descriptive metadata for a listing. A missing or
// unknown symbol is ErrDataUnavailable; registration proceeds with
// caller-supplied fields in that case.
func (c *Client) FetchProfile(ctx context.Context, symbol string, market contracts.Market) (*SecurityProfile, error) {
	ticker := providerSymbol(symbol, market)
	url := fmt.Sprintf("%s/v10/finance/quoteSummary/%s?modules=price,assetProfile", c.baseURL, ticker)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("create request failed: %w", err)
	}
	req.Header.Set("User-Agent", userAgent)

	resp, err := c.fundClient.Do(req)
	if err != nil {
		return nil, dataUnavailable("profile fetch for %s failed: %v", ticker, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, dataUnavailable("profile fetch for %s: unexpected status %d", ticker, resp.StatusCode)
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, dataUnavailable("read response body failed: %v", err)
	}

	profile, err := parseProfile(body)
	if err != nil {
		return nil, dataUnavailable("parse profile for %s: %v", ticker, err)
	}
	return profile, nil
}

func parseProfile(body []byte) (*SecurityProfile, error) {
	var pr profileResponse
	if err := json.Unmarshal(body, &pr); err != nil {
		return nil, fmt.Errorf("decode failed: %w", err)
	}
	if pr.QuoteSummary.Error != nil {
		return nil, fmt.Errorf("provider error %s: %s",
			pr.QuoteSummary.Error.Code, pr.QuoteSummary.Error.Description)
	}
	if len(pr.QuoteSummary.Result) == 0 {
		return nil, fmt.Errorf("empty result")
	}

	r := pr.QuoteSummary.Result[0]
	name := r.Price.LongName
	if name == "" {
		name = r.Price.ShortName
	}

	return &SecurityProfile{
		Name:      name,
		Sector:    r.AssetProfile.Sector,
		Currency:  r.Price.Currency,
		AssetType: normalizeAssetType(r.Price.QuoteType),
	}, nil
}

// normalizeAssetType maps the provider's quoteType to our asset types.
func normalizeAssetType(quoteType string) string {
	switch strings.ToUpper(quoteType) {
	case "ETF":
		return "ETF"
	case "MUTUALFUND":
		return "MUTUAL_FUND"
	case "EQUITY", "":
		return "STOCK"
	default:
		return "STOCK"
	}
}
