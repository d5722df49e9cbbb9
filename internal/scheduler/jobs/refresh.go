// Package jobs defines the recurring ingestion sweeps: daily prices,
// weekly fundamentals, and hourly indicator recalculation. Each sweep
// fans out one coordinator call per active security and tolerates
// partial failure.
package jobs

import (
	"context"
	"fmt"

	"github.com/quantlab/stocksignal/internal/contracts"
	"github.com/quantlab/stocksignal/internal/ingest"
	"github.com/quantlab/stocksignal/pkg/logger"
)

// PriceRefreshJob refreshes price bars for every active security once a
// day, after the US close, and recalculates indicators behind each
// successful fetch.
type PriceRefreshJob struct {
	coordinator *ingest.Coordinator
	securities  contracts.SecurityRepository
	logger      *logger.Logger
}

// NewPriceRefreshJob creates the daily price sweep.
func NewPriceRefreshJob(c *ingest.Coordinator, securities contracts.SecurityRepository, log *logger.Logger) *PriceRefreshJob {
	return &PriceRefreshJob{coordinator: c, securities: securities, logger: log}
}

func (j *PriceRefreshJob) Name() string { return "price_refresh" }

// Schedule is 21:30 UTC daily, after the US market close.
func (j *PriceRefreshJob) Schedule() string { return "0 30 21 * * *" }

func (j *PriceRefreshJob) Run(ctx context.Context) error {
	securities, err := j.securities.ListActive(ctx)
	if err != nil {
		return fmt.Errorf("list active securities: %w", err)
	}

	results := j.coordinator.Sweep(ctx, "prices", securities, j.coordinator.RefreshPrices)
	return summarize(results)
}

// FundamentalsRefreshJob refreshes fundamental snapshots weekly.
// Fundamentals move with filings, not ticks; a weekly sweep plus the
// 24-hour resolver TTL keeps them current enough.
type FundamentalsRefreshJob struct {
	coordinator *ingest.Coordinator
	securities  contracts.SecurityRepository
	logger      *logger.Logger
}

// NewFundamentalsRefreshJob creates the weekly fundamentals sweep.
func NewFundamentalsRefreshJob(c *ingest.Coordinator, securities contracts.SecurityRepository, log *logger.Logger) *FundamentalsRefreshJob {
	return &FundamentalsRefreshJob{coordinator: c, securities: securities, logger: log}
}

func (j *FundamentalsRefreshJob) Name() string { return "fundamental_refresh" }

// Schedule is midnight UTC every Sunday.
func (j *FundamentalsRefreshJob) Schedule() string { return "0 0 0 * * 0" }

func (j *FundamentalsRefreshJob) Run(ctx context.Context) error {
	securities, err := j.securities.ListActive(ctx)
	if err != nil {
		return fmt.Errorf("list active securities: %w", err)
	}

	results := j.coordinator.Sweep(ctx, "fundamentals", securities, j.coordinator.RefreshFundamentals)
	return summarize(results)
}

// IndicatorRecalcJob recomputes indicator snapshots hourly from the
// stored bar series, catching any security whose snapshot fell behind
// its prices.
type IndicatorRecalcJob struct {
	coordinator *ingest.Coordinator
	securities  contracts.SecurityRepository
	logger      *logger.Logger
}

// NewIndicatorRecalcJob creates the hourly indicator sweep.
func NewIndicatorRecalcJob(c *ingest.Coordinator, securities contracts.SecurityRepository, log *logger.Logger) *IndicatorRecalcJob {
	return &IndicatorRecalcJob{coordinator: c, securities: securities, logger: log}
}

func (j *IndicatorRecalcJob) Name() string { return "indicator_recalc" }

func (j *IndicatorRecalcJob) Schedule() string { return "0 0 * * * *" }

func (j *IndicatorRecalcJob) Run(ctx context.Context) error {
	securities, err := j.securities.ListActive(ctx)
	if err != nil {
		return fmt.Errorf("list active securities: %w", err)
	}

	results := j.coordinator.Sweep(ctx, "indicators", securities, j.coordinator.RecalculateIndicators)
	return summarize(results)
}

// summarize fails the job only when every security failed; partial
// failure is the expected steady state with flaky providers.
func summarize(results []ingest.Result) error {
	if len(results) == 0 {
		return nil
	}
	failures := 0
	for _, r := range results {
		if r.Err != nil {
			failures++
		}
	}
	if failures == len(results) {
		return fmt.Errorf("all %d securities failed", failures)
	}
	return nil
}
