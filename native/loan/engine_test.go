package loan

import (
	"errors"
	"testing"

	"alphaledger/core/epoch"
	"alphaledger/crypto"
	"alphaledger/native/common"
	"alphaledger/native/points"
	"alphaledger/native/stake"
)

type mockEngineState struct {
	loans     map[[32]byte]*Loan
	positions map[[32]byte]*stake.Position
	nonce     uint64
}

func newMockEngineState() *mockEngineState {
	return &mockEngineState{
		loans:     make(map[[32]byte]*Loan),
		positions: make(map[[32]byte]*stake.Position),
	}
}

func (m *mockEngineState) GetLoan(id [32]byte) (*Loan, error) {
	if record, ok := m.loans[id]; ok {
		return record.Clone(), nil
	}
	return nil, nil
}

func (m *mockEngineState) PutLoan(record *Loan) error {
	m.loans[record.ID] = record.Clone()
	return nil
}

func (m *mockEngineState) DeleteLoan(id [32]byte) error {
	delete(m.loans, id)
	return nil
}

func (m *mockEngineState) GetPosition(id [32]byte) (*stake.Position, error) {
	if position, ok := m.positions[id]; ok {
		return position.Clone(), nil
	}
	return nil, nil
}

func (m *mockEngineState) PutPosition(position *stake.Position) error {
	m.positions[position.ID] = position.Clone()
	return nil
}

func (m *mockEngineState) NextLoanNonce() (uint64, error) {
	m.nonce++
	return m.nonce, nil
}

type mockLedger struct {
	balances map[string]uint64
	debts    map[string]uint64
}

func newMockLedger() *mockLedger {
	return &mockLedger{balances: make(map[string]uint64), debts: make(map[string]uint64)}
}

func (m *mockLedger) key(addr crypto.Address) string { return string(addr.Bytes()) }

func (m *mockLedger) EarnSplit(_ common.Token, first crypto.Address, firstAmount uint64, second crypto.Address, secondAmount uint64) error {
	m.balances[m.key(first)] += firstAmount
	m.balances[m.key(second)] += secondAmount
	return nil
}

func (m *mockLedger) Spend(_ common.Token, user crypto.Address, amount uint64) error {
	if m.balances[m.key(user)] < amount {
		return points.ErrInsufficientBalance
	}
	m.balances[m.key(user)] -= amount
	return nil
}

func (m *mockLedger) AddBadDebt(_ common.Token, user crypto.Address, amount uint64) error {
	m.debts[m.key(user)] += amount
	return nil
}

func (m *mockLedger) BadDebt(user crypto.Address) (uint64, error) {
	return m.debts[m.key(user)], nil
}

// fixedOracle values asset units at a fixed point multiple.
type fixedOracle struct {
	multiplier uint64
}

func (o fixedOracle) AssetToPoints(asset uint64, _ uint64) (uint64, error) {
	return asset * o.multiplier, nil
}

func makeAddress(suffix byte) crypto.Address {
	raw := make([]byte, 20)
	raw[len(raw)-1] = suffix
	return crypto.NewAddress(crypto.AlphaPrefix, raw)
}

var (
	feeCollector = makeAddress(0xfe)
	testParams   = Params{
		MaxLTVBps:         7_000,
		OriginationFeeBps: 100,
		InterestRateBps:   1_000,
		EpochsPerYear:     365,
	}
	dayEpochs = epoch.Config{LengthSeconds: 86_400}
)

func newTestEngine() (*Engine, *mockEngineState, *mockLedger) {
	engine := NewEngine(testParams, dayEpochs, feeCollector)
	state := newMockEngineState()
	ledger := newMockLedger()
	engine.SetState(state)
	engine.SetLedger(ledger)
	engine.SetOracle(fixedOracle{multiplier: 1})
	return engine, state, ledger
}

func seedPosition(state *mockEngineState, owner crypto.Address, principal uint64) *stake.Position {
	position := &stake.Position{
		ID:         crypto.DeriveID(owner.Bytes(), []byte{0x01}),
		Owner:      owner,
		Principal:  principal,
		Duration:   1_000,
		UnlockTime: 1_000,
		ExpiryTime: 2_000,
	}
	state.positions[position.ID] = position
	return position
}

func TestOpenEnforcesLTV(t *testing.T) {
	engine, state, _ := newTestEngine()
	borrower := makeAddress(0x01)
	token := common.NewAccountToken(borrower)
	position := seedPosition(state, borrower, 10_000)

	// Collateral is worth 10_000 points; 70% LTV caps the draw at 7_000.
	if _, err := engine.Open(token, borrower, position.ID, 7_001, 100); !errors.Is(err, ErrExceedsLTV) {
		t.Fatalf("expected ErrExceedsLTV, got %v", err)
	}
	record, err := engine.Open(token, borrower, position.ID, 7_000, 100)
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	if record.Principal != 7_000 {
		t.Fatalf("unexpected principal: %d", record.Principal)
	}
	if !state.positions[position.ID].Encumbered {
		t.Fatalf("collateral not encumbered")
	}
}

func TestOpenRoutesOriginationFee(t *testing.T) {
	engine, state, ledger := newTestEngine()
	borrower := makeAddress(0x02)
	token := common.NewAccountToken(borrower)
	position := seedPosition(state, borrower, 10_000)

	if _, err := engine.Open(token, borrower, position.ID, 5_000, 100); err != nil {
		t.Fatalf("open: %v", err)
	}
	// 1% fee on 5_000 routes 50 to the collector, 4_950 to the borrower.
	if got := ledger.balances[ledger.key(borrower)]; got != 4_950 {
		t.Fatalf("unexpected borrower balance: %d", got)
	}
	if got := ledger.balances[ledger.key(feeCollector)]; got != 50 {
		t.Fatalf("unexpected fee collector balance: %d", got)
	}
}

func TestOpenGuards(t *testing.T) {
	engine, state, ledger := newTestEngine()
	borrower := makeAddress(0x03)
	other := makeAddress(0x04)
	token := common.NewAccountToken(borrower)
	position := seedPosition(state, borrower, 10_000)

	if _, err := engine.Open(token, borrower, position.ID, 0, 100); !errors.Is(err, ErrInvalidAmount) {
		t.Fatalf("expected ErrInvalidAmount, got %v", err)
	}
	if _, err := engine.Open(common.NewAccountToken(other), borrower, position.ID, 100, 100); !errors.Is(err, common.ErrUnauthorized) {
		t.Fatalf("expected ErrUnauthorized, got %v", err)
	}

	ledger.debts[ledger.key(borrower)] = 1
	if _, err := engine.Open(token, borrower, position.ID, 100, 100); !errors.Is(err, ErrHasBadDebt) {
		t.Fatalf("expected ErrHasBadDebt, got %v", err)
	}
	delete(ledger.debts, ledger.key(borrower))

	var missing [32]byte
	if _, err := engine.Open(token, borrower, missing, 100, 100); !errors.Is(err, ErrCollateralNotFound) {
		t.Fatalf("expected ErrCollateralNotFound, got %v", err)
	}

	if _, err := engine.Open(token, borrower, position.ID, 100, 100); err != nil {
		t.Fatalf("open: %v", err)
	}
	if _, err := engine.Open(token, borrower, position.ID, 100, 100); !errors.Is(err, ErrCollateralInUse) {
		t.Fatalf("expected ErrCollateralInUse, got %v", err)
	}
}

func TestInterestAccruesPerEpoch(t *testing.T) {
	engine, state, _ := newTestEngine()
	borrower := makeAddress(0x05)
	token := common.NewAccountToken(borrower)
	position := seedPosition(state, borrower, 100_000)

	record, err := engine.Open(token, borrower, position.ID, 36_500, 0)
	if err != nil {
		t.Fatalf("open: %v", err)
	}

	// 10% annually on 36_500 over 365 epochs/year accrues 10 per epoch.
	interest, err := engine.InterestDue(record, 86_400*10)
	if err != nil {
		t.Fatalf("interest: %v", err)
	}
	if interest != 100 {
		t.Fatalf("unexpected interest: %d", interest)
	}

	// Within the opening epoch nothing accrues.
	interest, err = engine.InterestDue(record, 86_399)
	if err != nil || interest != 0 {
		t.Fatalf("expected zero interest, got %d err %v", interest, err)
	}
}

func TestInterestOnSmallPrincipal(t *testing.T) {
	engine, state, _ := newTestEngine()
	borrower := makeAddress(0x0a)
	token := common.NewAccountToken(borrower)
	position := seedPosition(state, borrower, 100)

	record, err := engine.Open(token, borrower, position.ID, 9, 0)
	if err != nil {
		t.Fatalf("open: %v", err)
	}

	// 10% annually on a principal of 9 accrues below one point per year, so
	// the division must run over the full product: after ten years (3_650
	// epochs) the interest is floor(9 * 1000 * 3650 / (10000 * 365)) = 9.
	interest, err := engine.InterestDue(record, 86_400*3_650)
	if err != nil {
		t.Fatalf("interest: %v", err)
	}
	if interest != 9 {
		t.Fatalf("unexpected interest: %d", interest)
	}

	// A single year still rounds down to zero.
	interest, err = engine.InterestDue(record, 86_400*365)
	if err != nil || interest != 0 {
		t.Fatalf("expected zero interest, got %d err %v", interest, err)
	}
}

func TestRepayClosesLoan(t *testing.T) {
	engine, state, ledger := newTestEngine()
	borrower := makeAddress(0x06)
	token := common.NewAccountToken(borrower)
	position := seedPosition(state, borrower, 100_000)

	record, err := engine.Open(token, borrower, position.ID, 36_500, 0)
	if err != nil {
		t.Fatalf("open: %v", err)
	}

	// Owed after 10 epochs: principal 36_500 plus 100 interest; the borrower
	// holds 36_135 after the fee, so top up the difference.
	ledger.balances[ledger.key(borrower)] += 465

	if _, err := engine.Repay(token, record.ID, 86_400*10); err != nil {
		t.Fatalf("repay: %v", err)
	}
	if got := ledger.balances[ledger.key(borrower)]; got != 0 {
		t.Fatalf("unexpected remaining balance: %d", got)
	}
	if state.positions[position.ID].Encumbered {
		t.Fatalf("encumbrance not cleared")
	}
	if _, ok := state.loans[record.ID]; ok {
		t.Fatalf("loan record not destroyed")
	}
}

func TestRepayInsufficientPoints(t *testing.T) {
	engine, state, ledger := newTestEngine()
	borrower := makeAddress(0x07)
	token := common.NewAccountToken(borrower)
	position := seedPosition(state, borrower, 100_000)

	record, err := engine.Open(token, borrower, position.ID, 10_000, 0)
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	// The borrower holds 9_900 after the fee, 100 short of the principal.
	if _, err := engine.Repay(token, record.ID, 0); !errors.Is(err, ErrInsufficientPoints) {
		t.Fatalf("expected ErrInsufficientPoints, got %v", err)
	}
	if _, ok := state.loans[record.ID]; !ok {
		t.Fatalf("failed repayment must not destroy the loan")
	}
	if got := ledger.balances[ledger.key(borrower)]; got != 9_900 {
		t.Fatalf("failed repayment must not debit the borrower: %d", got)
	}
}

func TestForceSettleBooksBadDebt(t *testing.T) {
	engine, state, ledger := newTestEngine()
	borrower := makeAddress(0x08)
	token := common.NewAccountToken(borrower)
	position := seedPosition(state, borrower, 100_000)

	record, err := engine.Open(token, borrower, position.ID, 36_500, 0)
	if err != nil {
		t.Fatalf("open: %v", err)
	}

	if _, err := engine.ForceSettle(token, record.ID, 86_400*10); !errors.Is(err, common.ErrUnauthorized) {
		t.Fatalf("expected ErrUnauthorized, got %v", err)
	}

	owed, err := engine.ForceSettle(common.NewAdminToken(), record.ID, 86_400*10)
	if err != nil {
		t.Fatalf("force settle: %v", err)
	}
	if owed != 36_600 {
		t.Fatalf("unexpected owed amount: %d", owed)
	}
	if got := ledger.debts[ledger.key(borrower)]; got != 36_600 {
		t.Fatalf("bad debt not booked: %d", got)
	}
	if state.positions[position.ID].Encumbered {
		t.Fatalf("encumbrance not cleared by settlement")
	}
	if _, ok := state.loans[record.ID]; ok {
		t.Fatalf("loan record not destroyed by settlement")
	}
}
