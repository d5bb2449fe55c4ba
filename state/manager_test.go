package state

import (
	"math/big"
	"testing"

	"github.com/stretchr/testify/require"

	"alphaledger/crypto"
	"alphaledger/native/loan"
	"alphaledger/native/oracle"
	"alphaledger/native/partner"
	"alphaledger/native/points"
	"alphaledger/native/stake"
	"alphaledger/storage"
)

func newTestManager(t *testing.T) *Manager {
	t.Helper()
	return NewManager(storage.NewMemDB())
}

func makeAddress(t *testing.T, suffix byte) crypto.Address {
	t.Helper()
	raw := make([]byte, 20)
	raw[len(raw)-1] = suffix
	return crypto.NewAddress(crypto.AlphaPrefix, raw)
}

func TestBalanceRoundTrip(t *testing.T) {
	manager := newTestManager(t)
	addr := makeAddress(t, 0x01)

	got, err := manager.GetBalance(addr)
	require.NoError(t, err)
	require.Nil(t, got)

	balance := &points.Balance{Address: addr, Available: 750, Locked: 250}
	require.NoError(t, manager.PutBalance(addr, balance))

	got, err = manager.GetBalance(addr)
	require.NoError(t, err)
	require.Equal(t, balance, got)
}

func TestBadDebtLifecycle(t *testing.T) {
	manager := newTestManager(t)
	addr := makeAddress(t, 0x02)

	_, ok, err := manager.GetBadDebt(addr)
	require.NoError(t, err)
	require.False(t, ok)

	require.NoError(t, manager.PutBadDebt(addr, 123))
	amount, ok, err := manager.GetBadDebt(addr)
	require.NoError(t, err)
	require.True(t, ok)
	require.Equal(t, uint64(123), amount)

	require.NoError(t, manager.DeleteBadDebt(addr))
	_, ok, err = manager.GetBadDebt(addr)
	require.NoError(t, err)
	require.False(t, ok)
}

func TestTotalSupplyDefaultsToZero(t *testing.T) {
	manager := newTestManager(t)

	total, err := manager.TotalSupply()
	require.NoError(t, err)
	require.Zero(t, total)

	require.NoError(t, manager.SetTotalSupply(9_000))
	total, err = manager.TotalSupply()
	require.NoError(t, err)
	require.Equal(t, uint64(9_000), total)
}

func TestOracleRateRoundTrip(t *testing.T) {
	manager := newTestManager(t)

	got, err := manager.OracleRate()
	require.NoError(t, err)
	require.Nil(t, got)

	rate := &oracle.Rate{
		Value:              big.NewInt(25_000),
		Decimals:           6,
		LastUpdateTime:     1_000,
		StalenessThreshold: 300,
	}
	require.NoError(t, manager.PutOracleRate(rate))

	got, err = manager.OracleRate()
	require.NoError(t, err)
	require.Equal(t, rate, got)
}

func TestPositionRoundTrip(t *testing.T) {
	manager := newTestManager(t)
	owner := makeAddress(t, 0x03)

	position := &stake.Position{
		ID:         crypto.DeriveID(owner.Bytes(), []byte{0x01}),
		Owner:      owner,
		Principal:  50_000,
		Duration:   1_000,
		StartTime:  10,
		UnlockTime: 1_010,
		ExpiryTime: 2_010,
		Encumbered: true,
	}
	require.NoError(t, manager.PutPosition(position))

	got, err := manager.GetPosition(position.ID)
	require.NoError(t, err)
	require.Equal(t, position, got)

	require.NoError(t, manager.DeletePosition(position.ID))
	got, err = manager.GetPosition(position.ID)
	require.NoError(t, err)
	require.Nil(t, got)
}

func TestLoanRoundTrip(t *testing.T) {
	manager := newTestManager(t)
	borrower := makeAddress(t, 0x04)

	record := &loan.Loan{
		ID:           crypto.DeriveID(borrower.Bytes(), []byte{0x02}),
		Borrower:     borrower,
		CollateralID: crypto.DeriveID(borrower.Bytes(), []byte{0x03}),
		Principal:    7_000,
		OpenedTime:   500,
	}
	require.NoError(t, manager.PutLoan(record))

	got, err := manager.GetLoan(record.ID)
	require.NoError(t, err)
	require.Equal(t, record, got)

	require.NoError(t, manager.DeleteLoan(record.ID))
	got, err = manager.GetLoan(record.ID)
	require.NoError(t, err)
	require.Nil(t, got)
}

func TestQuotaRoundTrip(t *testing.T) {
	manager := newTestManager(t)
	addr := makeAddress(t, 0x05)

	record := &partner.Quota{
		Partner:            addr,
		PayoutAccount:      makeAddress(t, 0x06),
		CollateralValueUSD: 1_000,
		LifetimeQuota:      1_000_000,
		DailyQuota:         30,
		LifetimeMinted:     60,
		DailyMinted:        30,
		LastResetEpoch:     4,
	}
	require.NoError(t, manager.PutQuota(record))

	got, err := manager.GetQuota(addr)
	require.NoError(t, err)
	require.Equal(t, record, got)
}

func TestNoncesAreMonotonicAndIndependent(t *testing.T) {
	manager := newTestManager(t)

	first, err := manager.NextPositionNonce()
	require.NoError(t, err)
	second, err := manager.NextPositionNonce()
	require.NoError(t, err)
	require.Equal(t, first+1, second)

	loanFirst, err := manager.NextLoanNonce()
	require.NoError(t, err)
	require.Equal(t, uint64(1), loanFirst)
}
