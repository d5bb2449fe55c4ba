package stake

import (
	"errors"
	"testing"

	"alphaledger/crypto"
	"alphaledger/native/common"
)

type mockEngineState struct {
	positions map[[32]byte]*Position
	nonce     uint64
}

func newMockEngineState() *mockEngineState {
	return &mockEngineState{positions: make(map[[32]byte]*Position)}
}

func (m *mockEngineState) GetPosition(id [32]byte) (*Position, error) {
	if pos, ok := m.positions[id]; ok {
		return pos.Clone(), nil
	}
	return nil, nil
}

func (m *mockEngineState) PutPosition(position *Position) error {
	m.positions[position.ID] = position.Clone()
	return nil
}

func (m *mockEngineState) DeletePosition(id [32]byte) error {
	delete(m.positions, id)
	return nil
}

func (m *mockEngineState) NextPositionNonce() (uint64, error) {
	m.nonce++
	return m.nonce, nil
}

type mockLedger struct {
	earned map[string]uint64
	debts  map[string]uint64
}

func newMockLedger() *mockLedger {
	return &mockLedger{earned: make(map[string]uint64), debts: make(map[string]uint64)}
}

func (m *mockLedger) Earn(_ common.Token, user crypto.Address, amount uint64) error {
	m.earned[string(user.Bytes())] += amount
	return nil
}

func (m *mockLedger) BadDebt(user crypto.Address) (uint64, error) {
	return m.debts[string(user.Bytes())], nil
}

func makeAddress(suffix byte) crypto.Address {
	raw := make([]byte, 20)
	raw[len(raw)-1] = suffix
	return crypto.NewAddress(crypto.AlphaPrefix, raw)
}

const (
	testGracePeriod = uint64(7 * 24 * 3600)
	testAccrualBps  = uint64(500) // 5% annually
)

func newTestEngine() (*Engine, *mockEngineState, *mockLedger) {
	engine := NewEngine(testGracePeriod, testAccrualBps)
	state := newMockEngineState()
	ledger := newMockLedger()
	engine.SetState(state)
	engine.SetLedger(ledger)
	return engine, state, ledger
}

func TestDepositRejectsBadDebt(t *testing.T) {
	engine, _, ledger := newTestEngine()
	owner := makeAddress(0x0e)
	token := common.NewAccountToken(owner)

	ledger.debts[string(owner.Bytes())] = 100
	if _, err := engine.Deposit(token, owner, 1_000_000, 30*24*3600, 1_000); !errors.Is(err, ErrHasBadDebt) {
		t.Fatalf("expected ErrHasBadDebt, got %v", err)
	}

	// Clearing the debt restores the ability to stake.
	delete(ledger.debts, string(owner.Bytes()))
	if _, err := engine.Deposit(token, owner, 1_000_000, 30*24*3600, 1_000); err != nil {
		t.Fatalf("deposit after clearing debt: %v", err)
	}
}

func TestDepositCreatesPosition(t *testing.T) {
	engine, state, _ := newTestEngine()
	owner := makeAddress(0x01)
	token := common.NewAccountToken(owner)

	position, err := engine.Deposit(token, owner, 1_000_000, 30*24*3600, 1_000)
	if err != nil {
		t.Fatalf("deposit: %v", err)
	}
	if position.UnlockTime != 1_000+30*24*3600 {
		t.Fatalf("unexpected unlock time: %d", position.UnlockTime)
	}
	if position.ExpiryTime != position.UnlockTime+testGracePeriod {
		t.Fatalf("unexpected expiry time: %d", position.ExpiryTime)
	}
	if position.Encumbered {
		t.Fatalf("new position must be unencumbered")
	}
	if position.LastClaimTime != 1_000 {
		t.Fatalf("unexpected last claim time: %d", position.LastClaimTime)
	}
	if _, ok := state.positions[position.ID]; !ok {
		t.Fatalf("position not stored")
	}

	second, err := engine.Deposit(token, owner, 1_000_000, 30*24*3600, 1_000)
	if err != nil {
		t.Fatalf("second deposit: %v", err)
	}
	if second.ID == position.ID {
		t.Fatalf("duplicate position identifier")
	}
}

func TestDepositValidation(t *testing.T) {
	engine, _, _ := newTestEngine()
	owner := makeAddress(0x02)
	token := common.NewAccountToken(owner)

	if _, err := engine.Deposit(token, owner, 0, 100, 1_000); !errors.Is(err, ErrInvalidAmount) {
		t.Fatalf("expected ErrInvalidAmount, got %v", err)
	}
	if _, err := engine.Deposit(token, owner, 100, 0, 1_000); !errors.Is(err, ErrInvalidDuration) {
		t.Fatalf("expected ErrInvalidDuration, got %v", err)
	}
	if _, err := engine.Deposit(common.NewAccountToken(makeAddress(0x03)), owner, 100, 100, 1_000); !errors.Is(err, common.ErrUnauthorized) {
		t.Fatalf("expected ErrUnauthorized, got %v", err)
	}
}

func TestMaturityGating(t *testing.T) {
	engine, state, _ := newTestEngine()
	owner := makeAddress(0x04)
	token := common.NewAccountToken(owner)

	position, err := engine.Deposit(token, owner, 500_000, 1_000, 0)
	if err != nil {
		t.Fatalf("deposit: %v", err)
	}

	if _, err := engine.Redeem(token, position.ID, 999); !errors.Is(err, ErrNotMature) {
		t.Fatalf("expected ErrNotMature, got %v", err)
	}
	if _, err := engine.Redeem(token, position.ID, position.ExpiryTime+1); !errors.Is(err, ErrExpired) {
		t.Fatalf("expected ErrExpired, got %v", err)
	}

	principal, err := engine.Redeem(token, position.ID, position.UnlockTime)
	if err != nil {
		t.Fatalf("redeem: %v", err)
	}
	if principal != 500_000 {
		t.Fatalf("unexpected principal: %d", principal)
	}
	if _, ok := state.positions[position.ID]; ok {
		t.Fatalf("position must be destroyed on redemption")
	}
	if _, err := engine.Redeem(token, position.ID, position.UnlockTime); !errors.Is(err, ErrPositionNotFound) {
		t.Fatalf("expected ErrPositionNotFound, got %v", err)
	}
}

func TestRedeemEncumberedFails(t *testing.T) {
	engine, state, _ := newTestEngine()
	owner := makeAddress(0x05)
	token := common.NewAccountToken(owner)

	position, err := engine.Deposit(token, owner, 100, 1_000, 0)
	if err != nil {
		t.Fatalf("deposit: %v", err)
	}
	stored := state.positions[position.ID]
	stored.Encumbered = true

	if _, err := engine.Redeem(token, position.ID, position.UnlockTime); !errors.Is(err, ErrEncumbered) {
		t.Fatalf("expected ErrEncumbered, got %v", err)
	}
}

func TestClaimAccrued(t *testing.T) {
	engine, state, ledger := newTestEngine()
	owner := makeAddress(0x06)
	token := common.NewAccountToken(owner)

	position, err := engine.Deposit(token, owner, 1_000_000, SecondsPerYear, 0)
	if err != nil {
		t.Fatalf("deposit: %v", err)
	}

	// Half a year at 5% annually over 1_000_000 principal accrues 25_000.
	accrued, err := engine.ClaimAccrued(token, position.ID, SecondsPerYear/2)
	if err != nil {
		t.Fatalf("claim: %v", err)
	}
	if accrued != 25_000 {
		t.Fatalf("unexpected accrual: %d", accrued)
	}
	if ledger.earned[string(owner.Bytes())] != 25_000 {
		t.Fatalf("ledger not credited: %d", ledger.earned[string(owner.Bytes())])
	}
	if state.positions[position.ID].LastClaimTime != SecondsPerYear/2 {
		t.Fatalf("claim cursor not advanced")
	}

	// Claiming again at the same instant accrues nothing.
	accrued, err = engine.ClaimAccrued(token, position.ID, SecondsPerYear/2)
	if err != nil || accrued != 0 {
		t.Fatalf("expected zero accrual, got %d err %v", accrued, err)
	}

	// Redemption at maturity credits only the second half.
	if _, err := engine.Redeem(token, position.ID, SecondsPerYear); err != nil {
		t.Fatalf("redeem: %v", err)
	}
	if ledger.earned[string(owner.Bytes())] != 50_000 {
		t.Fatalf("redemption accrual mismatch: %d", ledger.earned[string(owner.Bytes())])
	}
}

func TestForfeit(t *testing.T) {
	engine, state, _ := newTestEngine()
	owner := makeAddress(0x07)
	ownerToken := common.NewAccountToken(owner)
	admin := common.NewAdminToken()

	position, err := engine.Deposit(ownerToken, owner, 900, 1_000, 0)
	if err != nil {
		t.Fatalf("deposit: %v", err)
	}

	if _, err := engine.Forfeit(admin, position.ID, position.ExpiryTime); !errors.Is(err, ErrNotExpired) {
		t.Fatalf("expected ErrNotExpired, got %v", err)
	}
	if _, err := engine.Forfeit(ownerToken, position.ID, position.ExpiryTime+1); !errors.Is(err, common.ErrUnauthorized) {
		t.Fatalf("expected ErrUnauthorized, got %v", err)
	}

	state.positions[position.ID].Encumbered = true
	if _, err := engine.Forfeit(admin, position.ID, position.ExpiryTime+1); !errors.Is(err, ErrCollateralOutstanding) {
		t.Fatalf("expected ErrCollateralOutstanding, got %v", err)
	}
	state.positions[position.ID].Encumbered = false

	principal, err := engine.Forfeit(admin, position.ID, position.ExpiryTime+1)
	if err != nil {
		t.Fatalf("forfeit: %v", err)
	}
	if principal != 900 {
		t.Fatalf("unexpected principal: %d", principal)
	}
	if _, ok := state.positions[position.ID]; ok {
		t.Fatalf("position must be destroyed on forfeiture")
	}
}
