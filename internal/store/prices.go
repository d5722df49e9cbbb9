package store

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/quantlab/stocksignal/internal/contracts"
)

// PriceRepository implements contracts.PriceRepository.
type PriceRepository struct {
	pool *pgxpool.Pool
}

// NewPriceRepository creates a new price repository.
func NewPriceRepository(pool *pgxpool.Pool) *PriceRepository {
	return &PriceRepository{pool: pool}
}

// GetRecent retrieves the most recent bars, ordered by time ascending.
func (r *PriceRepository) GetRecent(ctx context.Context, securityID int64, limit int) ([]contracts.PriceBar, error) {
	query := `
		SELECT security_id, bar_time, open_price, high_price, low_price, close_price, volume
		FROM (
			SELECT security_id, bar_time, open_price, high_price, low_price, close_price, volume
			FROM data.price_bars
			WHERE security_id = $1
			ORDER BY bar_time DESC
			LIMIT $2
		) recent
		ORDER BY bar_time ASC
	`

	rows, err := r.pool.Query(ctx, query, securityID, limit)
	if err != nil {
		return nil, fmt.Errorf("query recent bars: %w", err)
	}
	defer rows.Close()

	return scanBars(rows)
}

// GetRange retrieves bars within [from, to], ordered by time ascending.
func (r *PriceRepository) GetRange(ctx context.Context, securityID int64, from, to time.Time) ([]contracts.PriceBar, error) {
	query := `
		SELECT security_id, bar_time, open_price, high_price, low_price, close_price, volume
		FROM data.price_bars
		WHERE security_id = $1 AND bar_time BETWEEN $2 AND $3
		ORDER BY bar_time ASC
	`

	rows, err := r.pool.Query(ctx, query, securityID, from, to)
	if err != nil {
		return nil, fmt.Errorf("query bar range: %w", err)
	}
	defer rows.Close()

	return scanBars(rows)
}

// GetLatest retrieves the most recent bar.
func (r *PriceRepository) GetLatest(ctx context.Context, securityID int64) (*contracts.PriceBar, error) {
	query := `
		SELECT security_id, bar_time, open_price, high_price, low_price, close_price, volume
		FROM data.price_bars
		WHERE security_id = $1
		ORDER BY bar_time DESC
		LIMIT 1
	`

	var b contracts.PriceBar
	err := r.pool.QueryRow(ctx, query, securityID).Scan(
		&b.SecurityID, &b.Time, &b.Open, &b.High, &b.Low, &b.Close, &b.Volume,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, contracts.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("query latest bar: %w", err)
	}
	return &b, nil
}

// Count returns the number of stored bars for a security.
func (r *PriceRepository) Count(ctx context.Context, securityID int64) (int, error) {
	var n int
	err := r.pool.QueryRow(ctx,
		`SELECT COUNT(*) FROM data.price_bars WHERE security_id = $1`, securityID).Scan(&n)
	if err != nil {
		return 0, fmt.Errorf("count bars: %w", err)
	}
	return n, nil
}

// SaveBatch upserts a batch of bars in a single transaction. Re-fetched
// bars overwrite in place so provider corrections land.
func (r *PriceRepository) SaveBatch(ctx context.Context, bars []contracts.PriceBar) error {
	if len(bars) == 0 {
		return nil
	}

	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback(ctx)

	query := `
		INSERT INTO data.price_bars (security_id, bar_time, open_price, high_price, low_price, close_price, volume)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		ON CONFLICT (security_id, bar_time) DO UPDATE SET
			open_price = EXCLUDED.open_price,
			high_price = EXCLUDED.high_price,
			low_price = EXCLUDED.low_price,
			close_price = EXCLUDED.close_price,
			volume = EXCLUDED.volume
	`

	for _, b := range bars {
		if _, err := tx.Exec(ctx, query,
			b.SecurityID, b.Time, b.Open, b.High, b.Low, b.Close, b.Volume,
		); err != nil {
			return fmt.Errorf("insert bar %v: %w", b.Time, err)
		}
	}

	return tx.Commit(ctx)
}

func scanBars(rows pgx.Rows) ([]contracts.PriceBar, error) {
	var bars []contracts.PriceBar
	for rows.Next() {
		var b contracts.PriceBar
		if err := rows.Scan(&b.SecurityID, &b.Time, &b.Open, &b.High, &b.Low, &b.Close, &b.Volume); err != nil {
			return nil, err
		}
		bars = append(bars, b)
	}
	return bars, rows.Err()
}
