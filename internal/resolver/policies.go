package resolver

import (
	"context"
	"fmt"
	"time"

	"github.com/quantlab/stocksignal/internal/contracts"
	"github.com/quantlab/stocksignal/internal/indicator"
	"github.com/quantlab/stocksignal/pkg/config"
	"github.com/quantlab/stocksignal/pkg/logger"
	"github.com/quantlab/stocksignal/pkg/redis"
)

// Provider is the market-data dependency of the data policies.
type Provider interface {
	FetchPrices(ctx context.Context, symbol string, market contracts.Market, lookback int) ([]contracts.PriceBar, error)
	FetchFundamentals(ctx context.Context, symbol string, market contracts.Market) (*contracts.FundamentalSnapshot, error)
}

// Service resolves the market-data kinds. Signal resolution lives in
// the scoring service, which carries its own policy over this chain.
type Service struct {
	prices       contracts.PriceRepository
	fundamentals contracts.FundamentalRepository
	indicators   contracts.IndicatorRepository
	provider     Provider
	cache        *redis.Cache
	ttl          config.TTLConfig
	lookback     int
	logger       *logger.Logger
}

// NewService creates the resolver service.
func NewService(
	prices contracts.PriceRepository,
	fundamentals contracts.FundamentalRepository,
	indicators contracts.IndicatorRepository,
	provider Provider,
	cache *redis.Cache,
	cfg *config.Config,
	log *logger.Logger,
) *Service {
	return &Service{
		prices:       prices,
		fundamentals: fundamentals,
		indicators:   indicators,
		provider:     provider,
		cache:        cache,
		ttl:          cfg.TTL,
		lookback:     cfg.Provider.LookbackBars,
		logger:       log.WithField("module", "resolver"),
	}
}

// Prices resolves the recent bar series for a security. A store series
// is fresh while its newest bar is within the price TTL; otherwise a
// provider fetch refreshes and persists it.
func (s *Service) Prices(ctx context.Context, sec *contracts.Security) (*Resolved[[]contracts.PriceBar], error) {
	policy := Policy[[]contracts.PriceBar]{
		Kind:     "prices",
		CacheKey: redis.PricesKey(sec.Symbol),
		TTL:      s.ttl.Price,
		LoadStore: func(ctx context.Context) ([]contracts.PriceBar, time.Time, error) {
			bars, err := s.prices.GetRecent(ctx, sec.ID, s.lookback)
			if err != nil {
				return nil, time.Time{}, err
			}
			latest, ok := contracts.LatestBar(bars)
			if !ok {
				return nil, time.Time{}, contracts.ErrNotFound
			}
			return bars, latest.Time, nil
		},
		Refresh: func(ctx context.Context) ([]contracts.PriceBar, error) {
			return s.refreshPrices(ctx, sec)
		},
	}
	return Resolve(ctx, s.cache, s.logger, policy)
}

// RefreshPrices fetches, persists, and caches a new bar series,
// bypassing freshness checks. The ingestion path calls this directly.
func (s *Service) RefreshPrices(ctx context.Context, sec *contracts.Security) ([]contracts.PriceBar, error) {
	bars, err := s.refreshPrices(ctx, sec)
	if err != nil {
		return nil, err
	}
	cacheSet(ctx, s.cache, s.logger, "prices", redis.PricesKey(sec.Symbol), bars, s.ttl.Price)
	return bars, nil
}

func (s *Service) refreshPrices(ctx context.Context, sec *contracts.Security) ([]contracts.PriceBar, error) {
	bars, err := s.provider.FetchPrices(ctx, sec.Symbol, sec.Market, s.lookback)
	if err != nil {
		return nil, err
	}
	for i := range bars {
		bars[i].SecurityID = sec.ID
	}
	if err := s.prices.SaveBatch(ctx, bars); err != nil {
		return nil, fmt.Errorf("persist bars: %w", err)
	}
	return bars, nil
}

// Fundamentals resolves the latest fundamental snapshot, refreshing
// from the provider when the stored one is older than the 24h TTL.
func (s *Service) Fundamentals(ctx context.Context, sec *contracts.Security) (*Resolved[*contracts.FundamentalSnapshot], error) {
	policy := Policy[*contracts.FundamentalSnapshot]{
		Kind:     "fundamentals",
		CacheKey: redis.FundamentalsKey(sec.Symbol),
		TTL:      s.ttl.Fundamental,
		LoadStore: func(ctx context.Context) (*contracts.FundamentalSnapshot, time.Time, error) {
			snap, err := s.fundamentals.GetLatest(ctx, sec.ID)
			if err != nil {
				return nil, time.Time{}, err
			}
			return snap, snap.Date, nil
		},
		Refresh: func(ctx context.Context) (*contracts.FundamentalSnapshot, error) {
			return s.RefreshFundamentals(ctx, sec)
		},
	}
	return Resolve(ctx, s.cache, s.logger, policy)
}

// RefreshFundamentals fetches and persists a new snapshot.
func (s *Service) RefreshFundamentals(ctx context.Context, sec *contracts.Security) (*contracts.FundamentalSnapshot, error) {
	snap, err := s.provider.FetchFundamentals(ctx, sec.Symbol, sec.Market)
	if err != nil {
		return nil, err
	}
	snap.SecurityID = sec.ID
	if err := s.fundamentals.Upsert(ctx, snap); err != nil {
		return nil, fmt.Errorf("persist fundamentals: %w", err)
	}
	return snap, nil
}

// Indicators resolves the indicator snapshot. Freshness is tied to the
// price series, not a TTL: the stored snapshot is stale whenever a bar
// newer than its as-of date exists.
func (s *Service) Indicators(ctx context.Context, sec *contracts.Security) (*Resolved[*contracts.IndicatorSnapshot], error) {
	latestBar, err := s.prices.GetLatest(ctx, sec.ID)
	if err != nil {
		if contracts.IsNotFound(err) {
			return nil, fmt.Errorf("no price history for %s: %w", sec.Symbol, contracts.ErrDataUnavailable)
		}
		return nil, err
	}

	policy := Policy[*contracts.IndicatorSnapshot]{
		Kind:     "indicators",
		CacheKey: redis.IndicatorsKey(sec.Symbol),
		TTL:      s.ttl.Price,
		LoadStore: func(ctx context.Context) (*contracts.IndicatorSnapshot, time.Time, error) {
			snap, err := s.indicators.GetLatest(ctx, sec.ID)
			if err != nil {
				return nil, time.Time{}, err
			}
			return snap, snap.Date, nil
		},
		Fresh: func(asOf time.Time) bool {
			return !asOf.Before(latestBar.Time)
		},
		Refresh: func(ctx context.Context) (*contracts.IndicatorSnapshot, error) {
			return s.RecomputeIndicators(ctx, sec)
		},
	}
	return Resolve(ctx, s.cache, s.logger, policy)
}

// RecomputeIndicators derives and persists a snapshot from the stored
// bar series. An empty series is ErrInsufficientData.
func (s *Service) RecomputeIndicators(ctx context.Context, sec *contracts.Security) (*contracts.IndicatorSnapshot, error) {
	bars, err := s.prices.GetRecent(ctx, sec.ID, s.lookback)
	if err != nil {
		return nil, fmt.Errorf("load bars: %w", err)
	}

	snap := indicator.Compute(bars)
	if snap == nil {
		return nil, fmt.Errorf("no bars for %s: %w", sec.Symbol, contracts.ErrInsufficientData)
	}

	if err := s.indicators.Upsert(ctx, snap); err != nil {
		return nil, fmt.Errorf("persist indicators: %w", err)
	}
	cacheSet(ctx, s.cache, s.logger, "indicators", redis.IndicatorsKey(sec.Symbol), snap, s.ttl.Price)
	return snap, nil
}

// Cache exposes the shared cache for policies built outside this
// service (the signal and top-signals paths).
func (s *Service) Cache() *redis.Cache {
	return s.cache
}
