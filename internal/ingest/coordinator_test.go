package ingest

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/quantlab/stocksignal/internal/contracts"
	"github.com/quantlab/stocksignal/pkg/config"
	"github.com/quantlab/stocksignal/pkg/logger"
)

// fakeRefresher records call order per symbol and can fail selectively.
type fakeRefresher struct {
	mu            sync.Mutex
	calls         map[string][]string
	failPrices    bool
	failFunds     bool
	priceCalls    int32
	fundCalls     int32
	indicatorRuns int32
}

func newFakeRefresher() *fakeRefresher {
	return &fakeRefresher{calls: make(map[string][]string)}
}

func (f *fakeRefresher) record(symbol, op string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls[symbol] = append(f.calls[symbol], op)
}

func (f *fakeRefresher) callsFor(symbol string) []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]string, len(f.calls[symbol]))
	copy(out, f.calls[symbol])
	return out
}

func (f *fakeRefresher) RefreshPrices(ctx context.Context, sec *contracts.Security) ([]contracts.PriceBar, error) {
	atomic.AddInt32(&f.priceCalls, 1)
	f.record(sec.Symbol, "prices")
	if f.failPrices {
		return nil, contracts.ErrDataUnavailable
	}
	return []contracts.PriceBar{{SecurityID: sec.ID, Time: time.Now(), Close: 100}}, nil
}

func (f *fakeRefresher) RefreshFundamentals(ctx context.Context, sec *contracts.Security) (*contracts.FundamentalSnapshot, error) {
	atomic.AddInt32(&f.fundCalls, 1)
	f.record(sec.Symbol, "fundamentals")
	if f.failFunds {
		return nil, contracts.ErrDataUnavailable
	}
	return &contracts.FundamentalSnapshot{SecurityID: sec.ID}, nil
}

func (f *fakeRefresher) RecomputeIndicators(ctx context.Context, sec *contracts.Security) (*contracts.IndicatorSnapshot, error) {
	atomic.AddInt32(&f.indicatorRuns, 1)
	f.record(sec.Symbol, "indicators")
	return &contracts.IndicatorSnapshot{SecurityID: sec.ID}, nil
}

func testConfig() *config.Config {
	return &config.Config{
		Ingest: config.IngestConfig{Workers: 3, TaskTimeout: 5 * time.Second},
	}
}

func security(id int64, symbol string) *contracts.Security {
	return &contracts.Security{ID: id, Symbol: symbol, Market: contracts.MarketUS, Active: true}
}

func waitFor(t *testing.T, cond func() bool) {
	t.Helper()
	deadline := time.After(2 * time.Second)
	for {
		if cond() {
			return
		}
		select {
		case <-deadline:
			t.Fatal("condition not met in time")
		case <-time.After(10 * time.Millisecond):
		}
	}
}

func TestFullRefreshOrdersIndicatorsAfterPrices(t *testing.T) {
	ref := newFakeRefresher()
	c := New(ref, testConfig(), logger.NewNop())
	c.Start(context.Background())
	defer c.Stop()

	c.EnqueueFullRefresh(security(1, "AAPL"))

	waitFor(t, func() bool { return atomic.LoadInt32(&ref.indicatorRuns) == 1 })

	calls := ref.callsFor("AAPL")
	require.Len(t, calls, 3)

	priceIdx, indIdx := -1, -1
	for i, op := range calls {
		switch op {
		case "prices":
			priceIdx = i
		case "indicators":
			indIdx = i
		}
	}
	assert.Less(t, priceIdx, indIdx, "indicators must run after price ingestion completes")
}

func TestPriceFailureSkipsIndicators(t *testing.T) {
	ref := newFakeRefresher()
	ref.failPrices = true
	c := New(ref, testConfig(), logger.NewNop())
	c.Start(context.Background())

	c.EnqueueFullRefresh(security(1, "AAPL"))

	waitFor(t, func() bool { return atomic.LoadInt32(&ref.fundCalls) == 1 })
	c.Stop()

	assert.Equal(t, int32(0), atomic.LoadInt32(&ref.indicatorRuns),
		"a failed price fetch leaves the previous snapshot current")
	assert.Equal(t, int32(1), atomic.LoadInt32(&ref.fundCalls),
		"fundamentals run regardless of the price outcome")
}

func TestFundamentalsFailureDoesNotBlockOthers(t *testing.T) {
	ref := newFakeRefresher()
	ref.failFunds = true
	c := New(ref, testConfig(), logger.NewNop())
	c.Start(context.Background())
	defer c.Stop()

	c.EnqueueFullRefresh(security(1, "AAPL"))

	waitFor(t, func() bool { return atomic.LoadInt32(&ref.indicatorRuns) == 1 })
	assert.Equal(t, int32(1), atomic.LoadInt32(&ref.priceCalls))
}

func TestSweepToleratesPartialFailure(t *testing.T) {
	ref := newFakeRefresher()
	c := New(ref, testConfig(), logger.NewNop())

	securities := []*contracts.Security{
		security(1, "AAPL"),
		security(2, "FAIL"),
		security(3, "MSFT"),
	}

	results := c.Sweep(context.Background(), "prices", securities, func(ctx context.Context, sec *contracts.Security) error {
		if sec.Symbol == "FAIL" {
			return errors.New("boom")
		}
		_, err := ref.RefreshPrices(ctx, sec)
		return err
	})

	require.Len(t, results, 3, "one failure must not abort the sweep")

	failures := 0
	for _, r := range results {
		if r.Err != nil {
			failures++
			assert.Equal(t, "FAIL", r.Symbol)
		}
	}
	assert.Equal(t, 1, failures)
	assert.Equal(t, int32(2), atomic.LoadInt32(&ref.priceCalls))
}

func TestSyncRefreshPricesChainsIndicators(t *testing.T) {
	ref := newFakeRefresher()
	c := New(ref, testConfig(), logger.NewNop())

	err := c.RefreshPrices(context.Background(), security(1, "AAPL"))
	require.NoError(t, err)

	assert.Equal(t, []string{"prices", "indicators"}, ref.callsFor("AAPL"))
}

func TestSyncRefreshPricesStopsOnFailure(t *testing.T) {
	ref := newFakeRefresher()
	ref.failPrices = true
	c := New(ref, testConfig(), logger.NewNop())

	err := c.RefreshPrices(context.Background(), security(1, "AAPL"))
	require.Error(t, err)
	assert.True(t, contracts.IsDataUnavailable(err))
	assert.Equal(t, int32(0), atomic.LoadInt32(&ref.indicatorRuns))
}

func TestStopReleasesPendingDependencyWaiter(t *testing.T) {
	ref := newFakeRefresher()
	cfg := &config.Config{
		Ingest: config.IngestConfig{Workers: 1, TaskTimeout: 5 * time.Second},
	}
	c := New(ref, cfg, logger.NewNop())
	c.Start(context.Background())

	// Park the only worker so the full refresh stays queued.
	release := make(chan struct{})
	c.submit(task{name: "blocker", symbol: "X", run: func(ctx context.Context) error {
		<-release
		return nil
	}})

	c.EnqueueFullRefresh(security(1, "AAPL"))

	stopped := make(chan struct{})
	go func() {
		c.Stop()
		close(stopped)
	}()

	// Unpark the worker only once shutdown is underway, so the queued
	// refresh can never sneak into the worker first.
	<-c.quit
	close(release)

	select {
	case <-stopped:
	case <-time.After(2 * time.Second):
		t.Fatal("Stop did not return; the price-completion waiter is stuck")
	}

	assert.Equal(t, int32(0), atomic.LoadInt32(&ref.priceCalls),
		"queued tasks are dropped at shutdown")
	assert.Equal(t, int32(0), atomic.LoadInt32(&ref.indicatorRuns))
}
