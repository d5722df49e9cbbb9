package contracts

import (
	"context"
	"time"
)

// SecurityRepository manages the security master.
type SecurityRepository interface {
	Create(ctx context.Context, sec *Security) error
	GetBySymbol(ctx context.Context, symbol string) (*Security, error)
	ListActive(ctx context.Context) ([]*Security, error)
	UpdateClass(ctx context.Context, id int64, class SecurityClass) error
	UpdateProfile(ctx context.Context, sec *Security) error
	Deactivate(ctx context.Context, id int64) error
}

// PriceRepository manages the append-only price bar series.
type PriceRepository interface {
	GetRecent(ctx context.Context, securityID int64, limit int) ([]PriceBar, error)
	GetRange(ctx context.Context, securityID int64, from, to time.Time) ([]PriceBar, error)
	GetLatest(ctx context.Context, securityID int64) (*PriceBar, error)
	Count(ctx context.Context, securityID int64) (int, error)
	SaveBatch(ctx context.Context, bars []PriceBar) error
}

// FundamentalRepository manages fundamental snapshots, one per
// (security, date), upserted on refresh.
type FundamentalRepository interface {
	GetLatest(ctx context.Context, securityID int64) (*FundamentalSnapshot, error)
	Upsert(ctx context.Context, snap *FundamentalSnapshot) error
}

// IndicatorRepository manages derived indicator snapshots.
type IndicatorRepository interface {
	GetLatest(ctx context.Context, securityID int64) (*IndicatorSnapshot, error)
	Upsert(ctx context.Context, snap *IndicatorSnapshot) error
}

// TopSignalsFilter narrows the top-signals aggregate view.
type TopSignalsFilter struct {
	Market Market     // empty = all markets
	Type   SignalType // empty = all types
	Since  time.Time  // only signals created at or after this instant
	Limit  int
}

// SignalRepository manages the append-only signal history.
type SignalRepository interface {
	// Insert appends a signal. The write is version-checked: it fails
	// with ErrStaleWrite when a row created after sig.CreatedAt already
	// exists for the security, so an earlier-computed evaluation can
	// never displace a later-completed one as "current".
	Insert(ctx context.Context, sig *Signal) error
	GetLatest(ctx context.Context, securityID int64) (*Signal, error)
	GetHistory(ctx context.Context, securityID int64, limit int) ([]*Signal, error)
	GetTop(ctx context.Context, filter TopSignalsFilter) ([]*Signal, error)
}
