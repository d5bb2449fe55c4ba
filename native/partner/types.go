package partner

import (
	"alphaledger/crypto"
	"alphaledger/native/common"
)

// Quota tracks the TVL-backed minting allowance of a single partner. Both
// allowances derive from the registered collateral value: the lifetime quota
// is a 1000x multiple and the daily quota is 3% of it, recomputed whenever
// the collateral value changes.
type Quota struct {
	Partner            crypto.Address `json:"partner"`
	PayoutAccount      crypto.Address `json:"payoutAccount"`
	CollateralValueUSD uint64         `json:"collateralValueUsd"`
	LifetimeQuota      uint64         `json:"lifetimeQuota"`
	DailyQuota         uint64         `json:"dailyQuota"`
	LifetimeMinted     uint64         `json:"lifetimeMinted"`
	DailyMinted        uint64         `json:"dailyMinted"`
	LastResetEpoch     uint64         `json:"lastResetEpoch"`
}

// Clone returns a deep copy of the quota record.
func (q *Quota) Clone() *Quota {
	if q == nil {
		return nil
	}
	clone := *q
	return &clone
}

const (
	lifetimeMultiplier = 1_000
	dailyNumerator     = 3
	dailyDenominator   = 100
)

// recompute refreshes both quotas from the current collateral value.
func (q *Quota) recompute() error {
	lifetime, err := common.MulU64(q.CollateralValueUSD, lifetimeMultiplier)
	if err != nil {
		return err
	}
	daily, err := common.MulDivU64(q.CollateralValueUSD, dailyNumerator, dailyDenominator)
	if err != nil {
		return err
	}
	q.LifetimeQuota = lifetime
	q.DailyQuota = daily
	return nil
}
