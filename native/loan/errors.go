package loan

import "errors"

var (
	ErrNilState           = errors.New("loan engine: state not configured")
	ErrNilLedger          = errors.New("loan engine: ledger not configured")
	ErrNilOracle          = errors.New("loan engine: oracle not configured")
	ErrInvalidAmount      = errors.New("loan engine: amount must be positive")
	ErrHasBadDebt         = errors.New("loan engine: borrower has outstanding bad debt")
	ErrLoanNotFound       = errors.New("loan engine: loan not found")
	ErrCollateralNotFound = errors.New("loan engine: collateral position not found")
	ErrCollateralInUse    = errors.New("loan engine: collateral already encumbered")
	ErrExceedsLTV         = errors.New("loan engine: requested amount exceeds loan-to-value limit")
	ErrInsufficientPoints = errors.New("loan engine: insufficient points to repay")
)
