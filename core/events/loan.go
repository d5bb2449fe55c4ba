package events

import (
	"alphaledger/core/types"
	"alphaledger/crypto"
)

const (
	// TypeLoanOpened is emitted when a loan is drawn against a stake position.
	TypeLoanOpened = "loan.opened"
	// TypeLoanRepaid is emitted when a loan is repaid in full.
	TypeLoanRepaid = "loan.repaid"
	// TypeLoanSettled is emitted when an administrator settles a defaulted
	// loan by booking bad debt.
	TypeLoanSettled = "loan.settled"
)

// LoanOpened captures a newly opened loan.
type LoanOpened struct {
	LoanID       [32]byte
	Borrower     crypto.Address
	CollateralID [32]byte
	Principal    uint64
	Fee          uint64
}

// EventType satisfies the Event interface.
func (LoanOpened) EventType() string { return TypeLoanOpened }

// Event converts the structured payload into a broadcastable event.
func (e LoanOpened) Event() *types.Event {
	return &types.Event{Type: TypeLoanOpened, Attributes: map[string]string{
		"loanId":       formatID(e.LoanID),
		"borrower":     formatAddress(e.Borrower),
		"collateralId": formatID(e.CollateralID),
		"principal":    formatAmount(e.Principal),
		"fee":          formatAmount(e.Fee),
	}}
}

// LoanRepaid captures a full repayment including accrued interest.
type LoanRepaid struct {
	LoanID   [32]byte
	Borrower crypto.Address
	Paid     uint64
	Interest uint64
}

// EventType satisfies the Event interface.
func (LoanRepaid) EventType() string { return TypeLoanRepaid }

// Event converts the structured payload into a broadcastable event.
func (e LoanRepaid) Event() *types.Event {
	return &types.Event{Type: TypeLoanRepaid, Attributes: map[string]string{
		"loanId":   formatID(e.LoanID),
		"borrower": formatAddress(e.Borrower),
		"paid":     formatAmount(e.Paid),
		"interest": formatAmount(e.Interest),
	}}
}

// LoanSettled captures an administrative settlement of a defaulted loan.
type LoanSettled struct {
	LoanID   [32]byte
	Borrower crypto.Address
	BadDebt  uint64
}

// EventType satisfies the Event interface.
func (LoanSettled) EventType() string { return TypeLoanSettled }

// Event converts the structured payload into a broadcastable event.
func (e LoanSettled) Event() *types.Event {
	return &types.Event{Type: TypeLoanSettled, Attributes: map[string]string{
		"loanId":   formatID(e.LoanID),
		"borrower": formatAddress(e.Borrower),
		"badDebt":  formatAmount(e.BadDebt),
	}}
}
