package store

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/quantlab/stocksignal/internal/contracts"
)

// FundamentalRepository implements contracts.FundamentalRepository.
type FundamentalRepository struct {
	pool *pgxpool.Pool
}

// NewFundamentalRepository creates a new fundamental repository.
func NewFundamentalRepository(pool *pgxpool.Pool) *FundamentalRepository {
	return &FundamentalRepository{pool: pool}
}

// GetLatest retrieves the most recent fundamental snapshot.
func (r *FundamentalRepository) GetLatest(ctx context.Context, securityID int64) (*contracts.FundamentalSnapshot, error) {
	query := `
		SELECT security_id, snapshot_date, pe_ratio, eps, revenue, debt_ratio,
		       earnings_growth, dividend_yield, dividend_per_share, payout_ratio
		FROM data.fundamental_snapshots
		WHERE security_id = $1
		ORDER BY snapshot_date DESC
		LIMIT 1
	`

	var s contracts.FundamentalSnapshot
	err := r.pool.QueryRow(ctx, query, securityID).Scan(
		&s.SecurityID, &s.Date, &s.PERatio, &s.EPS, &s.Revenue, &s.DebtRatio,
		&s.EarningsGrowth, &s.DividendYield, &s.DividendPerShare, &s.PayoutRatio,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, contracts.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("query latest fundamentals: %w", err)
	}
	return &s, nil
}

// Upsert writes a snapshot, replacing any existing row for the same
// (security, date).
func (r *FundamentalRepository) Upsert(ctx context.Context, snap *contracts.FundamentalSnapshot) error {
	query := `
		INSERT INTO data.fundamental_snapshots (
			security_id, snapshot_date, pe_ratio, eps, revenue, debt_ratio,
			earnings_growth, dividend_yield, dividend_per_share, payout_ratio
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
		ON CONFLICT (security_id, snapshot_date) DO UPDATE SET
			pe_ratio = EXCLUDED.pe_ratio,
			eps = EXCLUDED.eps,
			revenue = EXCLUDED.revenue,
			debt_ratio = EXCLUDED.debt_ratio,
			earnings_growth = EXCLUDED.earnings_growth,
			dividend_yield = EXCLUDED.dividend_yield,
			dividend_per_share = EXCLUDED.dividend_per_share,
			payout_ratio = EXCLUDED.payout_ratio
	`

	_, err := r.pool.Exec(ctx, query,
		snap.SecurityID, snap.Date, snap.PERatio, snap.EPS, snap.Revenue, snap.DebtRatio,
		snap.EarningsGrowth, snap.DividendYield, snap.DividendPerShare, snap.PayoutRatio,
	)
	if err != nil {
		return fmt.Errorf("upsert fundamentals: %w", err)
	}
	return nil
}
