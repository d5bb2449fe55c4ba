package loan

import "alphaledger/crypto"

// Loan captures one open borrowing position against a stake position. The
// record is destroyed on repayment or administrative settlement.
type Loan struct {
	ID           [32]byte       `json:"id"`
	Borrower     crypto.Address `json:"borrower"`
	CollateralID [32]byte       `json:"collateralId"`
	// Principal is the pre-fee amount borrowed, in points.
	Principal uint64 `json:"principal"`
	// InterestAccrued holds interest settled onto the record; running
	// interest is computed on demand from OpenedTime.
	InterestAccrued uint64 `json:"interestAccrued"`
	OpenedTime      uint64 `json:"openedTime"`
}

// Clone returns a copy the caller can mutate without touching stored state.
func (l *Loan) Clone() *Loan {
	if l == nil {
		return nil
	}
	clone := *l
	return &clone
}

// Params groups the governance controlled lending limits.
type Params struct {
	// MaxLTVBps caps borrowed points relative to the collateral's point
	// value, in basis points.
	MaxLTVBps uint64
	// OriginationFeeBps is deducted from the disbursed amount and routed to
	// the protocol fee account.
	OriginationFeeBps uint64
	// InterestRateBps is the annual interest rate applied per elapsed epoch.
	InterestRateBps uint64
	// EpochsPerYear anchors the per-epoch interest fraction.
	EpochsPerYear uint64
}
