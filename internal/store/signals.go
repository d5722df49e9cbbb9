package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/quantlab/stocksignal/internal/contracts"
)

// SignalRepository implements contracts.SignalRepository.
type SignalRepository struct {
	pool *pgxpool.Pool
}

// NewSignalRepository creates a new signal repository.
func NewSignalRepository(pool *pgxpool.Pool) *SignalRepository {
	return &SignalRepository{pool: pool}
}

// Insert appends a signal. The guard clause rejects the write when a
// newer row already exists for the security, so a slow evaluation can
// never land on top of a fresher one.
func (r *SignalRepository) Insert(ctx context.Context, sig *contracts.Signal) error {
	explanation, err := json.Marshal(sig.Explanation)
	if err != nil {
		return fmt.Errorf("marshal explanation: %w", err)
	}

	query := `
		INSERT INTO data.signals (security_id, signal_type, confidence, risk_level, holding_period, explanation, created_at)
		SELECT $1, $2, $3, $4, $5, $6, $7
		WHERE NOT EXISTS (
			SELECT 1 FROM data.signals
			WHERE security_id = $1 AND created_at > $7
		)
		RETURNING id
	`

	err = r.pool.QueryRow(ctx, query,
		sig.SecurityID, sig.Type, sig.Confidence, sig.Risk, sig.Holding, explanation, sig.CreatedAt,
	).Scan(&sig.ID)
	if errors.Is(err, pgx.ErrNoRows) {
		return contracts.ErrStaleWrite
	}
	if err != nil {
		return fmt.Errorf("insert signal: %w", err)
	}
	return nil
}

// GetLatest retrieves the current signal for a security.
func (r *SignalRepository) GetLatest(ctx context.Context, securityID int64) (*contracts.Signal, error) {
	query := `
		SELECT s.id, s.security_id, sec.symbol, sec.market, s.signal_type,
		       s.confidence, s.risk_level, s.holding_period, s.explanation, s.created_at
		FROM data.signals s
		JOIN data.securities sec ON sec.id = s.security_id
		WHERE s.security_id = $1
		ORDER BY s.created_at DESC
		LIMIT 1
	`

	sig, err := scanSignal(r.pool.QueryRow(ctx, query, securityID))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, contracts.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("query latest signal: %w", err)
	}
	return sig, nil
}

// GetHistory retrieves past signals, newest first.
func (r *SignalRepository) GetHistory(ctx context.Context, securityID int64, limit int) ([]*contracts.Signal, error) {
	query := `
		SELECT s.id, s.security_id, sec.symbol, sec.market, s.signal_type,
		       s.confidence, s.risk_level, s.holding_period, s.explanation, s.created_at
		FROM data.signals s
		JOIN data.securities sec ON sec.id = s.security_id
		WHERE s.security_id = $1
		ORDER BY s.created_at DESC
		LIMIT $2
	`

	rows, err := r.pool.Query(ctx, query, securityID, limit)
	if err != nil {
		return nil, fmt.Errorf("query signal history: %w", err)
	}
	defer rows.Close()

	return scanSignals(rows)
}

// GetTop retrieves the strongest current signals: the latest signal per
// security, filtered, ordered by confidence descending with creation
// time as the tie-break.
func (r *SignalRepository) GetTop(ctx context.Context, filter contracts.TopSignalsFilter) ([]*contracts.Signal, error) {
	query := `
		SELECT id, security_id, symbol, market, signal_type,
		       confidence, risk_level, holding_period, explanation, created_at
		FROM (
			SELECT DISTINCT ON (s.security_id)
			       s.id, s.security_id, sec.symbol, sec.market, s.signal_type,
			       s.confidence, s.risk_level, s.holding_period, s.explanation, s.created_at
			FROM data.signals s
			JOIN data.securities sec ON sec.id = s.security_id
			WHERE sec.active = TRUE
			  AND ($1 = '' OR sec.market = $1)
			ORDER BY s.security_id, s.created_at DESC
		) latest
		WHERE created_at >= $2
		  AND ($3 = '' OR signal_type = $3)
		  AND (signal_type <> 'NO_SIGNAL' OR $3 = 'NO_SIGNAL')
		ORDER BY confidence DESC, created_at DESC
		LIMIT $4
	`

	rows, err := r.pool.Query(ctx, query,
		string(filter.Market), filter.Since, string(filter.Type), filter.Limit)
	if err != nil {
		return nil, fmt.Errorf("query top signals: %w", err)
	}
	defer rows.Close()

	return scanSignals(rows)
}

func scanSignal(row pgx.Row) (*contracts.Signal, error) {
	var s contracts.Signal
	var explanation []byte
	err := row.Scan(
		&s.ID, &s.SecurityID, &s.Symbol, &s.Market, &s.Type,
		&s.Confidence, &s.Risk, &s.Holding, &explanation, &s.CreatedAt,
	)
	if err != nil {
		return nil, err
	}
	if err := json.Unmarshal(explanation, &s.Explanation); err != nil {
		return nil, fmt.Errorf("unmarshal explanation: %w", err)
	}
	return &s, nil
}

func scanSignals(rows pgx.Rows) ([]*contracts.Signal, error) {
	var signals []*contracts.Signal
	for rows.Next() {
		s, err := scanSignal(rows)
		if err != nil {
			return nil, err
		}
		signals = append(signals, s)
	}
	return signals, rows.Err()
}
