package contracts

import "errors"

// Error taxonomy for the signal pipeline. Raw provider and storage
// errors never cross the resolver boundary; they are translated into
// one of these before reaching callers.
var (
	// ErrDataUnavailable marks a provider timeout, exhausted retries, or
	// not-found. Fatal to a read only when no persisted fallback exists.
	ErrDataUnavailable = errors.New("data unavailable")

	// ErrInsufficientData marks a series too short for a computation.
	// Indicators degrade to a partial snapshot instead of returning it;
	// the scoring engine maps it to NO_SIGNAL.
	ErrInsufficientData = errors.New("insufficient data")

	// ErrConflictingSignals marks sub-scores disagreeing beyond the
	// configured tolerance. Mapped to NO_SIGNAL, never surfaced raw.
	ErrConflictingSignals = errors.New("conflicting signals")

	// ErrSecurityNotFound marks an unknown symbol.
	ErrSecurityNotFound = errors.New("security not found")

	// ErrNotFound marks a repository miss for any entity.
	ErrNotFound = errors.New("not found")

	// ErrStaleWrite marks a signal insert rejected because a newer row
	// already exists for the security.
	ErrStaleWrite = errors.New("stale write")
)

// IsDataUnavailable reports whether err is (or wraps) ErrDataUnavailable.
func IsDataUnavailable(err error) bool {
	return errors.Is(err, ErrDataUnavailable)
}

// IsNotFound reports whether err is a repository or security miss.
func IsNotFound(err error) bool {
	return errors.Is(err, ErrNotFound) || errors.Is(err, ErrSecurityNotFound)
}
