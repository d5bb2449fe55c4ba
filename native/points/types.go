package points

import "alphaledger/crypto"

// Balance holds the point position for a single account. Available points can
// be spent or locked; locked points back in-flight obligations and must be
// unlocked before spending.
type Balance struct {
	Address   crypto.Address `json:"address"`
	Available uint64         `json:"available"`
	Locked    uint64         `json:"locked"`
}

// Total returns the account's full point holding across both buckets.
func (b *Balance) Total() uint64 {
	if b == nil {
		return 0
	}
	return b.Available + b.Locked
}

// Clone returns a copy the caller can mutate without touching stored state.
func (b *Balance) Clone() *Balance {
	if b == nil {
		return nil
	}
	clone := *b
	return &clone
}
