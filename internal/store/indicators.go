package store

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/quantlab/stocksignal/internal/contracts"
)

// IndicatorRepository implements contracts.IndicatorRepository.
type IndicatorRepository struct {
	pool *pgxpool.Pool
}

// NewIndicatorRepository creates a new indicator repository.
func NewIndicatorRepository(pool *pgxpool.Pool) *IndicatorRepository {
	return &IndicatorRepository{pool: pool}
}

// GetLatest retrieves the most recent indicator snapshot.
func (r *IndicatorRepository) GetLatest(ctx context.Context, securityID int64) (*contracts.IndicatorSnapshot, error) {
	query := `
		SELECT security_id, snapshot_date, rsi, macd, macd_signal, macd_histogram,
		       sma_20, sma_50, sma_200, ema_12, ema_26,
		       bollinger_upper, bollinger_middle, bollinger_lower, volume_avg
		FROM data.indicator_snapshots
		WHERE security_id = $1
		ORDER BY snapshot_date DESC
		LIMIT 1
	`

	var s contracts.IndicatorSnapshot
	err := r.pool.QueryRow(ctx, query, securityID).Scan(
		&s.SecurityID, &s.Date, &s.RSI, &s.MACD, &s.MACDSignal, &s.MACDHistogram,
		&s.SMA20, &s.SMA50, &s.SMA200, &s.EMA12, &s.EMA26,
		&s.BollingerUpper, &s.BollingerMiddle, &s.BollingerLower, &s.VolumeAvg,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, contracts.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("query latest indicators: %w", err)
	}
	return &s, nil
}

// Upsert writes a snapshot, replacing any existing row for the same
// (security, date). The calculator is the only writer.
func (r *IndicatorRepository) Upsert(ctx context.Context, snap *contracts.IndicatorSnapshot) error {
	query := `
		INSERT INTO data.indicator_snapshots (
			security_id, snapshot_date, rsi, macd, macd_signal, macd_histogram,
			sma_20, sma_50, sma_200, ema_12, ema_26,
			bollinger_upper, bollinger_middle, bollinger_lower, volume_avg
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15)
		ON CONFLICT (security_id, snapshot_date) DO UPDATE SET
			rsi = EXCLUDED.rsi,
			macd = EXCLUDED.macd,
			macd_signal = EXCLUDED.macd_signal,
			macd_histogram = EXCLUDED.macd_histogram,
			sma_20 = EXCLUDED.sma_20,
			sma_50 = EXCLUDED.sma_50,
			sma_200 = EXCLUDED.sma_200,
			ema_12 = EXCLUDED.ema_12,
			ema_26 = EXCLUDED.ema_26,
			bollinger_upper = EXCLUDED.bollinger_upper,
			bollinger_middle = EXCLUDED.bollinger_middle,
			bollinger_lower = EXCLUDED.bollinger_lower,
			volume_avg = EXCLUDED.volume_avg
	`

	_, err := r.pool.Exec(ctx, query,
		snap.SecurityID, snap.Date, snap.RSI, snap.MACD, snap.MACDSignal, snap.MACDHistogram,
		snap.SMA20, snap.SMA50, snap.SMA200, snap.EMA12, snap.EMA26,
		snap.BollingerUpper, snap.BollingerMiddle, snap.BollingerLower, snap.VolumeAvg,
	)
	if err != nil {
		return fmt.Errorf("upsert indicators: %w", err)
	}
	return nil
}
