// Package ingest coordinates the per-security ingestion tasks. Price
// and fundamental fetches run independently; indicator recalculation is
// chained behind price completion through explicit signaling, never
// through queue ordering.
package ingest

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/quantlab/stocksignal/internal/contracts"
	"github.com/quantlab/stocksignal/pkg/config"
	"github.com/quantlab/stocksignal/pkg/logger"
)

// Refresher is the ingestion surface of the resolver service.
type Refresher interface {
	RefreshPrices(ctx context.Context, sec *contracts.Security) ([]contracts.PriceBar, error)
	RefreshFundamentals(ctx context.Context, sec *contracts.Security) (*contracts.FundamentalSnapshot, error)
	RecomputeIndicators(ctx context.Context, sec *contracts.Security) (*contracts.IndicatorSnapshot, error)
}

// task is one unit of work dispatched to the pool.
type task struct {
	name   string
	symbol string
	run    func(ctx context.Context) error
}

// Result reports the outcome of one task for sweep summaries.
type Result struct {
	Symbol string
	Task   string
	Err    error
}

// Coordinator owns the worker pool and the price→indicator dependency.
type Coordinator struct {
	resolver    Refresher
	workers     int
	taskTimeout time.Duration
	logger      *logger.Logger

	tasks   chan task
	quit    chan struct{}
	wg      sync.WaitGroup
	startMu sync.Mutex
	started bool
}

// New creates a coordinator. Start must be called before enqueueing.
func New(res Refresher, cfg *config.Config, log *logger.Logger) *Coordinator {
	return &Coordinator{
		resolver:    res,
		workers:     cfg.Ingest.Workers,
		taskTimeout: cfg.Ingest.TaskTimeout,
		logger:      log.WithField("module", "ingest"),
		tasks:       make(chan task, cfg.Ingest.Workers*4),
		quit:        make(chan struct{}),
	}
}

// Start launches the worker pool. Workers drain the queue until Stop.
func (c *Coordinator) Start(ctx context.Context) {
	c.startMu.Lock()
	defer c.startMu.Unlock()
	if c.started {
		return
	}
	c.started = true

	for i := 0; i < c.workers; i++ {
		c.wg.Add(1)
		go func(workerID int) {
			defer c.wg.Done()
			for {
				// Shutdown wins over queued work.
				select {
				case <-c.quit:
					return
				default:
				}
				select {
				case <-c.quit:
					return
				case t := <-c.tasks:
					c.runTask(ctx, workerID, t)
				}
			}
		}(i)
	}
	c.logger.WithField("workers", c.workers).Info("Coordinator started")
}

// Stop signals the workers and waits for in-flight tasks to finish.
// Queued tasks that never started are dropped; the next scheduled sweep
// picks the work up again.
func (c *Coordinator) Stop() {
	c.startMu.Lock()
	defer c.startMu.Unlock()
	if !c.started {
		return
	}
	c.started = false
	close(c.quit)
	c.wg.Wait()
	c.logger.Info("Coordinator stopped")
}

// submit enqueues a task unless the coordinator is shutting down.
func (c *Coordinator) submit(t task) {
	select {
	case c.tasks <- t:
	case <-c.quit:
	}
}

func (c *Coordinator) runTask(ctx context.Context, workerID int, t task) {
	taskCtx, cancel := context.WithTimeout(ctx, c.taskTimeout)
	defer cancel()

	if err := t.run(taskCtx); err != nil {
		c.logger.WithFields(map[string]interface{}{
			"worker": workerID,
			"task":   t.name,
			"symbol": t.symbol,
		}).WithError(err).Warn("Task failed")
	}
}

// EnqueueFullRefresh starts price and fundamentals ingestion for a
// security concurrently and schedules indicator recalculation to run
// once price ingestion has completed. A fundamentals failure never
// blocks the other two; a price failure skips indicator recalculation
// for this cycle, leaving the previous snapshot current.
func (c *Coordinator) EnqueueFullRefresh(sec *contracts.Security) {
	priceDone := make(chan error, 1)

	c.submit(task{
		name:   "prices",
		symbol: sec.Symbol,
		run: func(ctx context.Context) error {
			_, err := c.resolver.RefreshPrices(ctx, sec)
			priceDone <- err
			return err
		},
	})

	c.submit(task{
		name:   "fundamentals",
		symbol: sec.Symbol,
		run: func(ctx context.Context) error {
			_, err := c.resolver.RefreshFundamentals(ctx, sec)
			return err
		},
	})

	// The wait happens outside the pool so a parked dependency can
	// never starve the workers. Stop releases the waiter too: a queued
	// prices task dropped at shutdown never sends on priceDone.
	c.wg.Add(1)
	go func() {
		defer c.wg.Done()
		var err error
		select {
		case err = <-priceDone:
		case <-c.quit:
			return
		}
		if err != nil {
			c.logger.WithField("symbol", sec.Symbol).WithError(err).
				Warn("Price ingestion failed, skipping indicator recalculation")
			return
		}
		c.submit(task{
			name:   "indicators",
			symbol: sec.Symbol,
			run: func(ctx context.Context) error {
				_, err := c.resolver.RecomputeIndicators(ctx, sec)
				return err
			},
		})
	}()
}

// RefreshPrices synchronously refreshes prices for one security and
// then recalculates its indicators, honoring the same dependency as the
// async path.
func (c *Coordinator) RefreshPrices(ctx context.Context, sec *contracts.Security) error {
	taskCtx, cancel := context.WithTimeout(ctx, c.taskTimeout)
	defer cancel()

	if _, err := c.resolver.RefreshPrices(taskCtx, sec); err != nil {
		return fmt.Errorf("refresh prices for %s: %w", sec.Symbol, err)
	}
	if _, err := c.resolver.RecomputeIndicators(taskCtx, sec); err != nil {
		return fmt.Errorf("recompute indicators for %s: %w", sec.Symbol, err)
	}
	return nil
}

// RefreshFundamentals synchronously refreshes fundamentals for one
// security.
func (c *Coordinator) RefreshFundamentals(ctx context.Context, sec *contracts.Security) error {
	taskCtx, cancel := context.WithTimeout(ctx, c.taskTimeout)
	defer cancel()

	if _, err := c.resolver.RefreshFundamentals(taskCtx, sec); err != nil {
		return fmt.Errorf("refresh fundamentals for %s: %w", sec.Symbol, err)
	}
	return nil
}

// RecalculateIndicators synchronously recomputes indicators for one
// security from its stored bars.
func (c *Coordinator) RecalculateIndicators(ctx context.Context, sec *contracts.Security) error {
	taskCtx, cancel := context.WithTimeout(ctx, c.taskTimeout)
	defer cancel()

	if _, err := c.resolver.RecomputeIndicators(taskCtx, sec); err != nil {
		return fmt.Errorf("recompute indicators for %s: %w", sec.Symbol, err)
	}
	return nil
}

// Sweep fans one operation out over a set of securities with its own
// bounded worker pool and collects per-security outcomes. One failure
// never aborts the rest.
func (c *Coordinator) Sweep(ctx context.Context, name string, securities []*contracts.Security, op func(ctx context.Context, sec *contracts.Security) error) []Result {
	c.logger.WithFields(map[string]interface{}{
		"sweep":   name,
		"count":   len(securities),
		"workers": c.workers,
	}).Info("Starting sweep")

	secCh := make(chan *contracts.Security, len(securities))
	resultCh := make(chan Result, len(securities))

	var wg sync.WaitGroup
	for i := 0; i < c.workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for sec := range secCh {
				resultCh <- Result{
					Symbol: sec.Symbol,
					Task:   name,
					Err:    op(ctx, sec),
				}
			}
		}()
	}

	for _, sec := range securities {
		secCh <- sec
	}
	close(secCh)

	go func() {
		wg.Wait()
		close(resultCh)
	}()

	results := make([]Result, 0, len(securities))
	failures := 0
	for r := range resultCh {
		if r.Err != nil {
			failures++
		}
		results = append(results, r)
	}

	c.logger.WithFields(map[string]interface{}{
		"sweep":    name,
		"total":    len(results),
		"failures": failures,
	}).Info("Sweep finished")

	return results
}
