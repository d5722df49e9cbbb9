// Package store implements the persistence contracts on PostgreSQL.
// Repositories hold a shared pgxpool and write plain SQL; conflict
// handling is done with ON CONFLICT upserts at the statement level.
package store

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/quantlab/stocksignal/internal/contracts"
)

// SecurityRepository implements contracts.SecurityRepository.
type SecurityRepository struct {
	pool *pgxpool.Pool
}

// NewSecurityRepository creates a new security repository.
func NewSecurityRepository(pool *pgxpool.Pool) *SecurityRepository {
	return &SecurityRepository{pool: pool}
}

// Create inserts a security. A re-registered symbol is reactivated and
// its profile refreshed instead of duplicated.
func (r *SecurityRepository) Create(ctx context.Context, sec *contracts.Security) error {
	if sec.Class == "" {
		sec.Class = contracts.ClassUnclassified
	}

	query := `
		INSERT INTO data.securities (symbol, name, market, sector, currency, asset_type, class, active, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, TRUE, NOW(), NOW())
		ON CONFLICT (symbol, market) DO UPDATE SET
			name = EXCLUDED.name,
			sector = EXCLUDED.sector,
			currency = EXCLUDED.currency,
			asset_type = EXCLUDED.asset_type,
			active = TRUE,
			updated_at = NOW()
		RETURNING id, class, created_at, updated_at
	`

	err := r.pool.QueryRow(ctx, query,
		sec.Symbol, sec.Name, sec.Market, sec.Sector, sec.Currency, sec.AssetType, sec.Class,
	).Scan(&sec.ID, &sec.Class, &sec.CreatedAt, &sec.UpdatedAt)
	if err != nil {
		return fmt.Errorf("insert security: %w", err)
	}
	sec.Active = true
	return nil
}

// GetBySymbol retrieves a security by its symbol, any market.
func (r *SecurityRepository) GetBySymbol(ctx context.Context, symbol string) (*contracts.Security, error) {
	query := `
		SELECT id, symbol, name, market, sector, currency, asset_type, class, active, created_at, updated_at
		FROM data.securities
		WHERE symbol = $1
		ORDER BY created_at ASC
		LIMIT 1
	`

	var s contracts.Security
	err := r.pool.QueryRow(ctx, query, symbol).Scan(
		&s.ID, &s.Symbol, &s.Name, &s.Market, &s.Sector, &s.Currency,
		&s.AssetType, &s.Class, &s.Active, &s.CreatedAt, &s.UpdatedAt,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, contracts.ErrSecurityNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("query security: %w", err)
	}
	return &s, nil
}

// ListActive retrieves all active securities.
func (r *SecurityRepository) ListActive(ctx context.Context) ([]*contracts.Security, error) {
	query := `
		SELECT id, symbol, name, market, sector, currency, asset_type, class, active, created_at, updated_at
		FROM data.securities
		WHERE active = TRUE
		ORDER BY symbol ASC
	`

	rows, err := r.pool.Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("query active securities: %w", err)
	}
	defer rows.Close()

	var securities []*contracts.Security
	for rows.Next() {
		var s contracts.Security
		if err := rows.Scan(
			&s.ID, &s.Symbol, &s.Name, &s.Market, &s.Sector, &s.Currency,
			&s.AssetType, &s.Class, &s.Active, &s.CreatedAt, &s.UpdatedAt,
		); err != nil {
			return nil, err
		}
		securities = append(securities, &s)
	}
	return securities, rows.Err()
}

// UpdateClass sets the fundamental classification.
func (r *SecurityRepository) UpdateClass(ctx context.Context, id int64, class contracts.SecurityClass) error {
	tag, err := r.pool.Exec(ctx,
		`UPDATE data.securities SET class = $2, updated_at = NOW() WHERE id = $1`, id, class)
	if err != nil {
		return fmt.Errorf("update class: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return contracts.ErrSecurityNotFound
	}
	return nil
}

// UpdateProfile refreshes descriptive metadata.
func (r *SecurityRepository) UpdateProfile(ctx context.Context, sec *contracts.Security) error {
	tag, err := r.pool.Exec(ctx, `
		UPDATE data.securities
		SET name = $2, sector = $3, currency = $4, asset_type = $5, updated_at = NOW()
		WHERE id = $1
	`, sec.ID, sec.Name, sec.Sector, sec.Currency, sec.AssetType)
	if err != nil {
		return fmt.Errorf("update profile: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return contracts.ErrSecurityNotFound
	}
	return nil
}

// Deactivate soft-deletes a security. Its history stays queryable.
func (r *SecurityRepository) Deactivate(ctx context.Context, id int64) error {
	tag, err := r.pool.Exec(ctx,
		`UPDATE data.securities SET active = FALSE, updated_at = NOW() WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("deactivate security: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return contracts.ErrSecurityNotFound
	}
	return nil
}
