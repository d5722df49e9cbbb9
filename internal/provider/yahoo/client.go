package yahoo

import (
	"fmt"
	"strings"
	"time"

	"github.com/quantlab/stocksignal/internal/contracts"
	"github.com/quantlab/stocksignal/pkg/config"
	"github.com/quantlab/stocksignal/pkg/httputil"
	"github.com/quantlab/stocksignal/pkg/logger"
	"github.com/quantlab/stocksignal/pkg/redis"
)

const userAgent = "Mozilla/5.0 (Macintosh; Intel Mac OS X 10_15_7) AppleWebKit/537.36"

// Client fetches market data from Yahoo Finance. Price and fundamental
// calls carry different retry budgets: prices up to 3 attempts,
// fundamentals up to 2, both with 2^attempt-second backoff inside the
// per-call timeout.
type Client struct {
	baseURL     string
	scrapeURL   string
	priceClient *httputil.Client
	fundClient  *httputil.Client
	logger      *logger.Logger
}

// New creates a Yahoo Finance client. The shared limiter may be nil
// when Redis is disabled; the in-process limiter still applies.
func New(cfg *config.Config, log *logger.Logger, shared *redis.RateLimiter) *Client {
	priceClient := httputil.New(log, cfg.Provider.Timeout).
		WithRetry(cfg.Provider.PriceRetries-1, time.Second). // 1s, 2s, ...
		WithRateLimit(cfg.Provider.RatePerSecond)
	fundClient := httputil.New(log, cfg.Provider.Timeout).
		WithRetry(cfg.Provider.FundRetries-1, time.Second).
		WithRateLimit(cfg.Provider.RatePerSecond)

	if shared != nil {
		priceClient = priceClient.WithSharedRateLimit(shared, redis.ProviderRateLimit)
		fundClient = fundClient.WithSharedRateLimit(shared, redis.ProviderRateLimit)
	}

	return &Client{
		baseURL:     strings.TrimRight(cfg.Provider.BaseURL, "/"),
		scrapeURL:   "https://finance.yahoo.com",
		priceClient: priceClient,
		fundClient:  fundClient,
		logger:      log.WithField("module", "yahoo"),
	}
}

// providerSymbol maps a (symbol, market) pair to the provider's ticker
// format. NGX listings are exposed on Yahoo under the .NG suffix.
func providerSymbol(symbol string, market contracts.Market) string {
	symbol = strings.ToUpper(symbol)
	if market == contracts.MarketNGX && !strings.HasSuffix(symbol, ".NG") {
		return symbol + ".NG"
	}
	return symbol
}

// lookbackRange maps a bar count to the provider's range parameter.
func lookbackRange(bars int) string {
	switch {
	case bars <= 5:
		return "5d"
	case bars <= 22:
		return "1mo"
	case bars <= 66:
		return "3mo"
	case bars <= 126:
		return "6mo"
	case bars <= 252:
		return "1y"
	case bars <= 504:
		return "2y"
	default:
		return "max"
	}
}

func dataUnavailable(format string, args ...interface{}) error {
	return fmt.Errorf("%s: %w", fmt.Sprintf(format, args...), contracts.ErrDataUnavailable)
}
