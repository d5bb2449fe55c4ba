package points

import "errors"

var (
	ErrNilState             = errors.New("points engine: state not configured")
	ErrInvalidAmount        = errors.New("points engine: amount must be positive")
	ErrInsufficientBalance  = errors.New("points engine: insufficient balance")
	ErrInsufficientLocked   = errors.New("points engine: insufficient locked balance")
	ErrRepaymentExceedsDebt = errors.New("points engine: repayment exceeds outstanding debt")
)
