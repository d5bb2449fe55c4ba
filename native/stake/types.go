package stake

import "alphaledger/crypto"

// Position captures one time-locked deposit and its lifecycle bookkeeping.
// A position is created on deposit and destroyed on redemption or forfeiture;
// while it collateralizes a loan the Encumbered flag blocks redemption.
type Position struct {
	ID            [32]byte       `json:"id"`
	Owner         crypto.Address `json:"owner"`
	Principal     uint64         `json:"principal"`
	Duration      uint64         `json:"duration"`
	StartTime     uint64         `json:"startTime"`
	UnlockTime    uint64         `json:"unlockTime"`
	ExpiryTime    uint64         `json:"expiryTime"`
	Encumbered    bool           `json:"encumbered"`
	LastClaimTime uint64         `json:"lastClaimTime"`
}

// Clone returns a copy the caller can mutate without touching stored state.
func (p *Position) Clone() *Position {
	if p == nil {
		return nil
	}
	clone := *p
	return &clone
}

// Matured reports whether the position has reached its unlock time.
func (p *Position) Matured(now uint64) bool {
	return p != nil && now >= p.UnlockTime
}

// Expired reports whether the redemption window has closed.
func (p *Position) Expired(now uint64) bool {
	return p != nil && now > p.ExpiryTime
}
