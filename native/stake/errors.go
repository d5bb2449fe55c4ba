package stake

import "errors"

var (
	ErrNilState              = errors.New("stake engine: state not configured")
	ErrNilLedger             = errors.New("stake engine: ledger not configured")
	ErrInvalidAmount         = errors.New("stake engine: amount must be positive")
	ErrHasBadDebt            = errors.New("stake engine: account has outstanding bad debt")
	ErrInvalidDuration       = errors.New("stake engine: duration must be positive")
	ErrPositionNotFound      = errors.New("stake engine: position not found")
	ErrNotMature             = errors.New("stake engine: position not mature")
	ErrExpired               = errors.New("stake engine: redemption window closed")
	ErrNotExpired            = errors.New("stake engine: position not yet expired")
	ErrEncumbered            = errors.New("stake engine: position pledged as collateral")
	ErrCollateralOutstanding = errors.New("stake engine: expired position still backs an open loan")
)
