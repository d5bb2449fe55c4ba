package state

import (
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"sync"

	"alphaledger/crypto"
	"alphaledger/native/loan"
	"alphaledger/native/oracle"
	"alphaledger/native/partner"
	"alphaledger/native/points"
	"alphaledger/native/stake"
	"alphaledger/storage"
)

// Key prefixes partition the backing store by module. Records are stored as
// JSON under their prefix; counters share the store with their module.
var (
	balancePrefix  = []byte("points/balance/")
	badDebtPrefix  = []byte("points/debt/")
	supplyKey      = []byte("points/supply")
	oracleRateKey  = []byte("oracle/rate")
	positionPrefix = []byte("stake/pos/")
	positionNonce  = []byte("stake/nonce")
	loanPrefix     = []byte("loan/record/")
	loanNonce      = []byte("loan/nonce")
	quotaPrefix    = []byte("partner/quota/")
)

// Manager is the owning store for all protocol objects. Every engine reads
// and writes through it; the mutex grants one mutating operation at a time
// exclusive access, so each operation sees a consistent view of every object
// it touches.
type Manager struct {
	mu sync.Mutex
	db storage.Database
}

// NewManager wraps a database in a state manager.
func NewManager(db storage.Database) *Manager {
	return &Manager{db: db}
}

// Lock takes exclusive access to the store for the duration of one
// operation. The caller must call the returned function when done.
func (m *Manager) Lock() func() {
	m.mu.Lock()
	return m.mu.Unlock
}

func addressKey(prefix []byte, addr crypto.Address) []byte {
	return append(append([]byte(nil), prefix...), addr.Bytes()...)
}

func idKey(prefix []byte, id [32]byte) []byte {
	encoded := make([]byte, hex.EncodedLen(len(id)))
	hex.Encode(encoded, id[:])
	return append(append([]byte(nil), prefix...), encoded...)
}

func (m *Manager) getJSON(key []byte, out interface{}) (bool, error) {
	raw, err := m.db.Get(key)
	if errors.Is(err, storage.ErrKeyNotFound) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	if err := json.Unmarshal(raw, out); err != nil {
		return false, fmt.Errorf("state: decode %q: %w", key, err)
	}
	return true, nil
}

func (m *Manager) putJSON(key []byte, value interface{}) error {
	raw, err := json.Marshal(value)
	if err != nil {
		return fmt.Errorf("state: encode %q: %w", key, err)
	}
	return m.db.Put(key, raw)
}

func (m *Manager) nextNonce(key []byte) (uint64, error) {
	var nonce uint64
	if _, err := m.getJSON(key, &nonce); err != nil {
		return 0, err
	}
	nonce++
	if err := m.putJSON(key, nonce); err != nil {
		return 0, err
	}
	return nonce, nil
}

// GetBalance returns the stored point balance for an address, or nil.
func (m *Manager) GetBalance(addr crypto.Address) (*points.Balance, error) {
	balance := new(points.Balance)
	ok, err := m.getJSON(addressKey(balancePrefix, addr), balance)
	if err != nil || !ok {
		return nil, err
	}
	return balance, nil
}

// PutBalance persists a point balance under its address.
func (m *Manager) PutBalance(addr crypto.Address, balance *points.Balance) error {
	return m.putJSON(addressKey(balancePrefix, addr), balance)
}

// GetBadDebt returns the recorded bad debt for an address and whether a
// record exists.
func (m *Manager) GetBadDebt(addr crypto.Address) (uint64, bool, error) {
	var amount uint64
	ok, err := m.getJSON(addressKey(badDebtPrefix, addr), &amount)
	if err != nil {
		return 0, false, err
	}
	return amount, ok, nil
}

// PutBadDebt persists a bad-debt amount under its address.
func (m *Manager) PutBadDebt(addr crypto.Address, amount uint64) error {
	return m.putJSON(addressKey(badDebtPrefix, addr), amount)
}

// DeleteBadDebt removes the bad-debt record for an address.
func (m *Manager) DeleteBadDebt(addr crypto.Address) error {
	return m.db.Delete(addressKey(badDebtPrefix, addr))
}

// TotalSupply returns the outstanding point supply.
func (m *Manager) TotalSupply() (uint64, error) {
	var total uint64
	if _, err := m.getJSON(supplyKey, &total); err != nil {
		return 0, err
	}
	return total, nil
}

// SetTotalSupply persists the outstanding point supply.
func (m *Manager) SetTotalSupply(total uint64) error {
	return m.putJSON(supplyKey, total)
}

// OracleRate returns the stored conversion rate, or nil before the first
// update.
func (m *Manager) OracleRate() (*oracle.Rate, error) {
	rate := new(oracle.Rate)
	ok, err := m.getJSON(oracleRateKey, rate)
	if err != nil || !ok {
		return nil, err
	}
	return rate, nil
}

// PutOracleRate persists the conversion rate.
func (m *Manager) PutOracleRate(rate *oracle.Rate) error {
	return m.putJSON(oracleRateKey, rate)
}

// GetPosition returns the stored stake position for an identifier, or nil.
func (m *Manager) GetPosition(id [32]byte) (*stake.Position, error) {
	position := new(stake.Position)
	ok, err := m.getJSON(idKey(positionPrefix, id), position)
	if err != nil || !ok {
		return nil, err
	}
	return position, nil
}

// PutPosition persists a stake position under its identifier.
func (m *Manager) PutPosition(position *stake.Position) error {
	return m.putJSON(idKey(positionPrefix, position.ID), position)
}

// DeletePosition removes a stake position from the store.
func (m *Manager) DeletePosition(id [32]byte) error {
	return m.db.Delete(idKey(positionPrefix, id))
}

// NextPositionNonce increments and returns the position counter.
func (m *Manager) NextPositionNonce() (uint64, error) {
	return m.nextNonce(positionNonce)
}

// GetLoan returns the stored loan record for an identifier, or nil.
func (m *Manager) GetLoan(id [32]byte) (*loan.Loan, error) {
	record := new(loan.Loan)
	ok, err := m.getJSON(idKey(loanPrefix, id), record)
	if err != nil || !ok {
		return nil, err
	}
	return record, nil
}

// PutLoan persists a loan record under its identifier.
func (m *Manager) PutLoan(record *loan.Loan) error {
	return m.putJSON(idKey(loanPrefix, record.ID), record)
}

// DeleteLoan removes a loan record from the store.
func (m *Manager) DeleteLoan(id [32]byte) error {
	return m.db.Delete(idKey(loanPrefix, id))
}

// NextLoanNonce increments and returns the loan counter.
func (m *Manager) NextLoanNonce() (uint64, error) {
	return m.nextNonce(loanNonce)
}

// GetQuota returns the stored partner quota record, or nil.
func (m *Manager) GetQuota(addr crypto.Address) (*partner.Quota, error) {
	record := new(partner.Quota)
	ok, err := m.getJSON(addressKey(quotaPrefix, addr), record)
	if err != nil || !ok {
		return nil, err
	}
	return record, nil
}

// PutQuota persists a partner quota record.
func (m *Manager) PutQuota(record *partner.Quota) error {
	return m.putJSON(addressKey(quotaPrefix, record.Partner), record)
}
