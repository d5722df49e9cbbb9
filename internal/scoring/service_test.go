package scoring

import (
	"context"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/quantlab/stocksignal/internal/contracts"
	"github.com/quantlab/stocksignal/internal/resolver"
	"github.com/quantlab/stocksignal/pkg/config"
	"github.com/quantlab/stocksignal/pkg/logger"
	"github.com/quantlab/stocksignal/pkg/redis"
)

type fakeSecurityRepo struct {
	sec *contracts.Security
}

func (r *fakeSecurityRepo) Create(ctx context.Context, sec *contracts.Security) error { return nil }
func (r *fakeSecurityRepo) GetBySymbol(ctx context.Context, symbol string) (*contracts.Security, error) {
	if r.sec == nil || r.sec.Symbol != symbol {
		return nil, contracts.ErrSecurityNotFound
	}
	return r.sec, nil
}
func (r *fakeSecurityRepo) ListActive(ctx context.Context) ([]*contracts.Security, error) {
	return []*contracts.Security{r.sec}, nil
}
func (r *fakeSecurityRepo) UpdateClass(ctx context.Context, id int64, class contracts.SecurityClass) error {
	return nil
}
func (r *fakeSecurityRepo) UpdateProfile(ctx context.Context, sec *contracts.Security) error {
	return nil
}
func (r *fakeSecurityRepo) Deactivate(ctx context.Context, id int64) error { return nil }

type fakeBarRepo struct {
	bars []contracts.PriceBar
}

func (r *fakeBarRepo) GetRecent(ctx context.Context, securityID int64, limit int) ([]contracts.PriceBar, error) {
	if len(r.bars) == 0 {
		return nil, contracts.ErrNotFound
	}
	return r.bars, nil
}
func (r *fakeBarRepo) GetRange(ctx context.Context, securityID int64, from, to time.Time) ([]contracts.PriceBar, error) {
	return r.bars, nil
}
func (r *fakeBarRepo) GetLatest(ctx context.Context, securityID int64) (*contracts.PriceBar, error) {
	if len(r.bars) == 0 {
		return nil, contracts.ErrNotFound
	}
	return &r.bars[len(r.bars)-1], nil
}
func (r *fakeBarRepo) Count(ctx context.Context, securityID int64) (int, error) {
	return len(r.bars), nil
}
func (r *fakeBarRepo) SaveBatch(ctx context.Context, bars []contracts.PriceBar) error { return nil }

type fakeFundRepo struct{}

func (r *fakeFundRepo) GetLatest(ctx context.Context, securityID int64) (*contracts.FundamentalSnapshot, error) {
	return nil, contracts.ErrNotFound
}
func (r *fakeFundRepo) Upsert(ctx context.Context, snap *contracts.FundamentalSnapshot) error {
	return nil
}

type fakeIndRepo struct {
	snap *contracts.IndicatorSnapshot
}

func (r *fakeIndRepo) GetLatest(ctx context.Context, securityID int64) (*contracts.IndicatorSnapshot, error) {
	if r.snap == nil {
		return nil, contracts.ErrNotFound
	}
	return r.snap, nil
}
func (r *fakeIndRepo) Upsert(ctx context.Context, snap *contracts.IndicatorSnapshot) error {
	r.snap = snap
	return nil
}

type fakeSignalRepo struct {
	insertCalls int32
	staleWrites int32 // Insert fails with ErrStaleWrite this many times
	latest      *contracts.Signal
	inserted    *contracts.Signal
}

func (r *fakeSignalRepo) Insert(ctx context.Context, sig *contracts.Signal) error {
	atomic.AddInt32(&r.insertCalls, 1)
	if atomic.AddInt32(&r.staleWrites, -1) >= 0 {
		return contracts.ErrStaleWrite
	}
	r.inserted = sig
	r.latest = sig
	return nil
}
func (r *fakeSignalRepo) GetLatest(ctx context.Context, securityID int64) (*contracts.Signal, error) {
	if r.latest == nil {
		return nil, contracts.ErrNotFound
	}
	return r.latest, nil
}
func (r *fakeSignalRepo) GetHistory(ctx context.Context, securityID int64, limit int) ([]*contracts.Signal, error) {
	if r.latest == nil {
		return nil, nil
	}
	return []*contracts.Signal{r.latest}, nil
}
func (r *fakeSignalRepo) GetTop(ctx context.Context, filter contracts.TopSignalsFilter) ([]*contracts.Signal, error) {
	return nil, nil
}

type fakeMarketProvider struct {
	priceCalls int32
	fundCalls  int32
}

func (p *fakeMarketProvider) FetchPrices(ctx context.Context, symbol string, market contracts.Market, lookback int) ([]contracts.PriceBar, error) {
	atomic.AddInt32(&p.priceCalls, 1)
	return nil, contracts.ErrDataUnavailable
}

func (p *fakeMarketProvider) FetchFundamentals(ctx context.Context, symbol string, market contracts.Market) (*contracts.FundamentalSnapshot, error) {
	atomic.AddInt32(&p.fundCalls, 1)
	return nil, contracts.ErrDataUnavailable
}

func newServiceForTest(t *testing.T, signals *fakeSignalRepo) (*Service, *fakeMarketProvider) {
	t.Helper()

	cfg := &config.Config{
		Redis: config.RedisConfig{Enabled: false},
		TTL: config.TTLConfig{
			Signal:      time.Hour,
			Price:       5 * time.Minute,
			Fundamental: 24 * time.Hour,
			TopSignals:  15 * time.Minute,
		},
		Provider: config.ProviderConfig{LookbackBars: 252},
		Scoring:  config.ScoringConfig{MinBars: 20, ConflictGap: 45},
	}

	// Fresh stored bars so the resolver never reaches the provider for
	// prices.
	bars := steadyUptrend(60)
	bars[len(bars)-1].Time = time.Now().UTC()

	client, err := redis.New(cfg)
	require.NoError(t, err)
	cache := redis.NewCache(client, "test")
	log := logger.NewNop()

	provider := &fakeMarketProvider{}
	res := resolver.NewService(&fakeBarRepo{bars: bars}, &fakeFundRepo{}, &fakeIndRepo{}, provider, cache, cfg, log)

	svc := NewService(NewEngine(cfg.Scoring), res, &fakeSecurityRepo{sec: testSecurity()}, signals, cfg, log)
	return svc, provider
}

func TestGeneratePersistsAndReturnsEvaluation(t *testing.T) {
	signals := &fakeSignalRepo{}
	svc, provider := newServiceForTest(t, signals)

	sig, err := svc.Generate(context.Background(), testSecurity())
	require.NoError(t, err)
	require.NotNil(t, sig)

	assert.Equal(t, int32(1), atomic.LoadInt32(&signals.insertCalls))
	assert.Same(t, signals.inserted, sig, "the persisted row is the one returned")
	assert.Equal(t, int32(0), atomic.LoadInt32(&provider.priceCalls),
		"fresh stored bars must not trigger a provider fetch")
}

func TestGenerateSupersededServesNewerSignal(t *testing.T) {
	// A competing evaluation already landed a later row: the rejected
	// insert must never displace it, and the caller gets the newer row.
	newer := &contracts.Signal{
		ID:         99,
		SecurityID: 1,
		Symbol:     "AAPL",
		Type:       contracts.SignalHold,
		Confidence: 12.3,
		CreatedAt:  time.Now().UTC().Add(time.Minute),
	}
	signals := &fakeSignalRepo{staleWrites: 1, latest: newer}
	svc, _ := newServiceForTest(t, signals)

	sig, err := svc.Generate(context.Background(), testSecurity())
	require.NoError(t, err)

	assert.Same(t, newer, sig, "a superseded evaluation serves the later-completed signal")
	assert.Nil(t, signals.inserted, "the rejected evaluation is never persisted")
	assert.Equal(t, int32(1), atomic.LoadInt32(&signals.insertCalls))
}

func TestGetSignalServesFreshStoredRow(t *testing.T) {
	stored := &contracts.Signal{
		ID:         7,
		SecurityID: 1,
		Symbol:     "AAPL",
		Type:       contracts.SignalBuy,
		Confidence: 62.5,
		CreatedAt:  time.Now().UTC().Add(-time.Minute),
	}
	signals := &fakeSignalRepo{latest: stored}
	svc, _ := newServiceForTest(t, signals)

	resolved, err := svc.GetSignal(context.Background(), "AAPL")
	require.NoError(t, err)

	assert.Equal(t, resolver.SourceStore, resolved.Source)
	assert.Same(t, stored, resolved.Value)
	assert.Equal(t, int32(0), atomic.LoadInt32(&signals.insertCalls),
		"a signal within its TTL must not trigger re-evaluation")
}
