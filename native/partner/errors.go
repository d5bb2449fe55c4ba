package partner

import "errors"

var (
	// ErrNilState indicates the engine operated without a bound state backend.
	ErrNilState = errors.New("partner engine: state not configured")
	// ErrNilLedger indicates the engine operated without a points ledger.
	ErrNilLedger = errors.New("partner engine: ledger not configured")
	// ErrNilOracle indicates a revenue split ran without a pricing oracle.
	ErrNilOracle = errors.New("partner engine: oracle not configured")
	// ErrInvalidAmount is returned when a positive amount is required.
	ErrInvalidAmount = errors.New("partner engine: amount must be positive")
	// ErrPartnerNotFound is returned when no quota record exists for a partner.
	ErrPartnerNotFound = errors.New("partner engine: partner not registered")
	// ErrQuotaExceeded is returned when a mint would breach the daily or
	// lifetime quota.
	ErrQuotaExceeded = errors.New("partner engine: quota exceeded")
)
