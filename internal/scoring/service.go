package scoring

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/quantlab/stocksignal/internal/contracts"
	"github.com/quantlab/stocksignal/internal/resolver"
	"github.com/quantlab/stocksignal/pkg/config"
	"github.com/quantlab/stocksignal/pkg/logger"
	"github.com/quantlab/stocksignal/pkg/redis"
)

// Service generates and serves signals. It owns the signal and
// top-signals resolution policies and is the only writer of signal rows.
type Service struct {
	engine     *Engine
	resolver   *resolver.Service
	securities contracts.SecurityRepository
	signals    contracts.SignalRepository
	cache      *redis.Cache
	ttl        config.TTLConfig
	logger     *logger.Logger

	// mu serializes evaluation per security so two concurrent runs can
	// never race on the current-signal write. The repository's
	// version-checked insert backstops writers from other processes.
	mu     sync.Mutex
	locks  map[int64]*sync.Mutex
	nowFn  func() time.Time
}

// NewService creates the signal service.
func NewService(
	engine *Engine,
	res *resolver.Service,
	securities contracts.SecurityRepository,
	signals contracts.SignalRepository,
	cfg *config.Config,
	log *logger.Logger,
) *Service {
	return &Service{
		engine:     engine,
		resolver:   res,
		securities: securities,
		signals:    signals,
		cache:      res.Cache(),
		ttl:        cfg.TTL,
		logger:     log.WithField("module", "scoring"),
		locks:      make(map[int64]*sync.Mutex),
		nowFn:      time.Now,
	}
}

// GetSignal resolves the current signal for a symbol: cache, then the
// stored row if younger than the signal TTL, then a fresh evaluation.
// A failed evaluation degrades to the stored signal, marked stale.
func (s *Service) GetSignal(ctx context.Context, symbol string) (*resolver.Resolved[*contracts.Signal], error) {
	sec, err := s.securities.GetBySymbol(ctx, symbol)
	if err != nil {
		return nil, err
	}

	policy := resolver.Policy[*contracts.Signal]{
		Kind:     "signal",
		CacheKey: redis.SignalKey(sec.Symbol),
		TTL:      s.ttl.Signal,
		LoadStore: func(ctx context.Context) (*contracts.Signal, time.Time, error) {
			sig, err := s.signals.GetLatest(ctx, sec.ID)
			if err != nil {
				return nil, time.Time{}, err
			}
			return sig, sig.CreatedAt, nil
		},
		Refresh: func(ctx context.Context) (*contracts.Signal, error) {
			return s.Generate(ctx, sec)
		},
	}
	return resolver.Resolve(ctx, s.cache, s.logger, policy)
}

// Generate runs one full evaluation for a security and persists the
// resulting signal. Inputs come through the resolver, so stale-but-
// available data flows in rather than failing the run; only a security
// with no price history at all cannot be evaluated.
func (s *Service) Generate(ctx context.Context, sec *contracts.Security) (*contracts.Signal, error) {
	lock := s.lockFor(sec.ID)
	lock.Lock()
	defer lock.Unlock()

	prices, err := s.resolver.Prices(ctx, sec)
	if err != nil {
		return nil, fmt.Errorf("resolve prices for %s: %w", sec.Symbol, err)
	}

	indicators, err := s.resolver.Indicators(ctx, sec)
	if err != nil && !errors.Is(err, contracts.ErrInsufficientData) && !contracts.IsDataUnavailable(err) {
		return nil, fmt.Errorf("resolve indicators for %s: %w", sec.Symbol, err)
	}

	fundamentals, err := s.resolver.Fundamentals(ctx, sec)
	if err != nil && !contracts.IsDataUnavailable(err) {
		return nil, fmt.Errorf("resolve fundamentals for %s: %w", sec.Symbol, err)
	}

	in := Input{
		Security:    sec,
		Bars:        prices.Value,
		EvaluatedAt: s.nowFn().UTC(),
	}
	if indicators != nil {
		in.Indicators = indicators.Value
	}
	if fundamentals != nil {
		in.Fundamentals = fundamentals.Value
		s.maybeClassify(ctx, sec, fundamentals.Value)
	}

	sig := s.engine.Evaluate(in)

	if err := s.signals.Insert(ctx, sig); err != nil {
		if errors.Is(err, contracts.ErrStaleWrite) {
			// A later-completed evaluation already landed; serve it.
			s.logger.WithField("symbol", sec.Symbol).Debug("Evaluation superseded by a newer signal")
			return s.signals.GetLatest(ctx, sec.ID)
		}
		return nil, fmt.Errorf("persist signal for %s: %w", sec.Symbol, err)
	}

	if err := s.cache.Set(ctx, redis.SignalKey(sec.Symbol), sig, s.ttl.Signal); err != nil {
		s.logger.WithField("symbol", sec.Symbol).WithError(err).Warn("Cache write failed")
	}

	s.logger.WithFields(map[string]interface{}{
		"symbol":     sec.Symbol,
		"signal":     string(sig.Type),
		"confidence": sig.Confidence,
	}).Info("Signal generated")

	return sig, nil
}

// TopSignals serves the strongest current signals through a separate
// 15-minute cache independent of per-signal TTLs.
func (s *Service) TopSignals(ctx context.Context, market contracts.Market, signalType contracts.SignalType, limit int) ([]*contracts.Signal, error) {
	key := redis.TopSignalsKey(string(market), string(signalType), limit)

	var cached []*contracts.Signal
	if hit, err := s.cache.Get(ctx, key, &cached); err == nil && hit {
		return cached, nil
	}

	since := s.nowFn().UTC().Truncate(24 * time.Hour) // today's rows
	signals, err := s.signals.GetTop(ctx, contracts.TopSignalsFilter{
		Market: market,
		Type:   signalType,
		Since:  since,
		Limit:  limit,
	})
	if err != nil {
		return nil, err
	}

	if err := s.cache.Set(ctx, key, signals, s.ttl.TopSignals); err != nil {
		s.logger.WithError(err).Warn("Cache write failed")
	}
	return signals, nil
}

// History returns past signals for a symbol, newest first.
func (s *Service) History(ctx context.Context, symbol string, limit int) ([]*contracts.Signal, error) {
	sec, err := s.securities.GetBySymbol(ctx, symbol)
	if err != nil {
		return nil, err
	}
	return s.signals.GetHistory(ctx, sec.ID, limit)
}

// maybeClassify assigns the fundamental classification the first time
// usable fundamentals show up for an unclassified security.
func (s *Service) maybeClassify(ctx context.Context, sec *contracts.Security, f *contracts.FundamentalSnapshot) {
	if sec.Class != contracts.ClassUnclassified && sec.Class != "" {
		return
	}
	class := Classify(f)
	if class == contracts.ClassUnclassified {
		return
	}
	if err := s.securities.UpdateClass(ctx, sec.ID, class); err != nil {
		s.logger.WithField("symbol", sec.Symbol).WithError(err).Warn("Classification update failed")
		return
	}
	sec.Class = class
	s.logger.WithFields(map[string]interface{}{
		"symbol": sec.Symbol,
		"class":  string(class),
	}).Info("Security classified")
}

func (s *Service) lockFor(securityID int64) *sync.Mutex {
	s.mu.Lock()
	defer s.mu.Unlock()
	lock, ok := s.locks[securityID]
	if !ok {
		lock = &sync.Mutex{}
		s.locks[securityID] = lock
	}
	return lock
}
