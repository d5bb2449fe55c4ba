package points

import (
	"alphaledger/core/events"
	"alphaledger/crypto"
	"alphaledger/native/common"
)

const moduleName = "points"

type engineState interface {
	GetBalance(addr crypto.Address) (*Balance, error)
	PutBalance(addr crypto.Address, balance *Balance) error
	GetBadDebt(addr crypto.Address) (uint64, bool, error)
	PutBadDebt(addr crypto.Address, amount uint64) error
	DeleteBadDebt(addr crypto.Address) error
	TotalSupply() (uint64, error)
	SetTotalSupply(total uint64) error
}

// Engine owns the point ledger: per-account available/locked balances, the
// bad-debt book and the running total supply. Every mutation re-reads the
// stored record, checks the precondition against fresh state and only then
// persists, so arbitrary host ordering cannot corrupt the conservation
// invariant.
type Engine struct {
	state   engineState
	emitter events.Emitter
	pauses  common.PauseView
}

// NewEngine constructs a points engine with a no-op event emitter.
func NewEngine() *Engine {
	return &Engine{emitter: events.NoopEmitter{}}
}

// SetState wires the engine to the external persistence layer.
func (e *Engine) SetState(state engineState) { e.state = state }

// SetEmitter configures the event emitter used by the engine. Passing nil
// resets the emitter to a no-op implementation.
func (e *Engine) SetEmitter(emitter events.Emitter) {
	if emitter == nil {
		e.emitter = events.NoopEmitter{}
		return
	}
	e.emitter = emitter
}

func (e *Engine) SetPauses(p common.PauseView) {
	if e == nil {
		return
	}
	e.pauses = p
}

func (e *Engine) emit(event events.Event) {
	if e == nil || e.emitter == nil {
		return
	}
	e.emitter.Emit(event)
}

func (e *Engine) ensureBalance(addr crypto.Address) (*Balance, error) {
	if e == nil || e.state == nil {
		return nil, ErrNilState
	}
	balance, err := e.state.GetBalance(addr)
	if err != nil {
		return nil, err
	}
	if balance == nil {
		balance = &Balance{Address: addr}
	}
	return balance, nil
}

// Earn credits points to the account's available balance, creating the
// balance record on first credit. A zero amount is a no-op.
func (e *Engine) Earn(token common.Token, user crypto.Address, amount uint64) error {
	if e == nil || e.state == nil {
		return ErrNilState
	}
	if err := common.Guard(e.pauses, moduleName); err != nil {
		return err
	}
	if err := common.RequireAccount(token, user); err != nil {
		return err
	}
	if amount == 0 {
		return nil
	}

	balance, err := e.ensureBalance(user)
	if err != nil {
		return err
	}
	available, err := common.AddU64(balance.Available, amount)
	if err != nil {
		return err
	}
	supply, err := e.state.TotalSupply()
	if err != nil {
		return err
	}
	newSupply, err := common.AddU64(supply, amount)
	if err != nil {
		return err
	}

	balance.Available = available
	if err := e.state.PutBalance(user, balance); err != nil {
		return err
	}
	if err := e.state.SetTotalSupply(newSupply); err != nil {
		return err
	}

	e.emit(events.PointsEarned{User: user, Amount: amount, Supply: newSupply})
	return nil
}

// EarnSplit credits two recipients as one mint. Both balance additions and
// the combined supply increment are checked before anything is written, so a
// failure on either side leaves no partial credit behind. A zero share skips
// that recipient. Splitting is a protocol-internal operation.
func (e *Engine) EarnSplit(token common.Token, first crypto.Address, firstAmount uint64, second crypto.Address, secondAmount uint64) error {
	if e == nil || e.state == nil {
		return ErrNilState
	}
	if err := common.Guard(e.pauses, moduleName); err != nil {
		return err
	}
	if err := common.RequireProtocol(token); err != nil {
		return err
	}
	combined, err := common.AddU64(firstAmount, secondAmount)
	if err != nil {
		return err
	}
	if combined == 0 {
		return nil
	}

	firstBalance, err := e.ensureBalance(first)
	if err != nil {
		return err
	}
	if first.Equal(second) {
		firstAmount = combined
		secondAmount = 0
	}
	firstAvailable, err := common.AddU64(firstBalance.Available, firstAmount)
	if err != nil {
		return err
	}
	var secondBalance *Balance
	secondAvailable := uint64(0)
	if secondAmount > 0 {
		secondBalance, err = e.ensureBalance(second)
		if err != nil {
			return err
		}
		secondAvailable, err = common.AddU64(secondBalance.Available, secondAmount)
		if err != nil {
			return err
		}
	}
	supply, err := e.state.TotalSupply()
	if err != nil {
		return err
	}
	newSupply, err := common.AddU64(supply, combined)
	if err != nil {
		return err
	}

	if firstAmount > 0 {
		firstBalance.Available = firstAvailable
		if err := e.state.PutBalance(first, firstBalance); err != nil {
			return err
		}
	}
	if secondAmount > 0 {
		secondBalance.Available = secondAvailable
		if err := e.state.PutBalance(second, secondBalance); err != nil {
			return err
		}
	}
	if err := e.state.SetTotalSupply(newSupply); err != nil {
		return err
	}

	if firstAmount > 0 {
		e.emit(events.PointsEarned{User: first, Amount: firstAmount, Supply: newSupply})
	}
	if secondAmount > 0 {
		e.emit(events.PointsEarned{User: second, Amount: secondAmount, Supply: newSupply})
	}
	return nil
}

// Spend debits points from the account's available balance and reduces total
// supply. The points are burned; asset-side settlement is the caller's
// responsibility and must happen in the same atomic operation.
func (e *Engine) Spend(token common.Token, user crypto.Address, amount uint64) error {
	if e == nil || e.state == nil {
		return ErrNilState
	}
	if err := common.Guard(e.pauses, moduleName); err != nil {
		return err
	}
	if err := common.RequireAccount(token, user); err != nil {
		return err
	}
	if amount == 0 {
		return ErrInvalidAmount
	}

	balance, err := e.ensureBalance(user)
	if err != nil {
		return err
	}
	if balance.Available < amount {
		return ErrInsufficientBalance
	}
	supply, err := e.state.TotalSupply()
	if err != nil {
		return err
	}
	if supply < amount {
		// The conservation invariant makes this unreachable unless storage
		// was mutated outside the engine.
		return ErrInsufficientBalance
	}

	balance.Available -= amount
	if err := e.state.PutBalance(user, balance); err != nil {
		return err
	}
	newSupply := supply - amount
	if err := e.state.SetTotalSupply(newSupply); err != nil {
		return err
	}

	e.emit(events.PointsSpent{User: user, Amount: amount, Supply: newSupply})
	return nil
}

// Lock moves points from the available to the locked bucket. The account's
// total holding is unchanged.
func (e *Engine) Lock(token common.Token, user crypto.Address, amount uint64) error {
	if e == nil || e.state == nil {
		return ErrNilState
	}
	if err := common.Guard(e.pauses, moduleName); err != nil {
		return err
	}
	if err := common.RequireAccount(token, user); err != nil {
		return err
	}
	if amount == 0 {
		return ErrInvalidAmount
	}

	balance, err := e.ensureBalance(user)
	if err != nil {
		return err
	}
	if balance.Available < amount {
		return ErrInsufficientBalance
	}
	locked, err := common.AddU64(balance.Locked, amount)
	if err != nil {
		return err
	}

	balance.Available -= amount
	balance.Locked = locked
	if err := e.state.PutBalance(user, balance); err != nil {
		return err
	}

	e.emit(events.PointsLocked{User: user, Amount: amount})
	return nil
}

// Unlock moves points from the locked bucket back to available.
func (e *Engine) Unlock(token common.Token, user crypto.Address, amount uint64) error {
	if e == nil || e.state == nil {
		return ErrNilState
	}
	if err := common.Guard(e.pauses, moduleName); err != nil {
		return err
	}
	if err := common.RequireAccount(token, user); err != nil {
		return err
	}
	if amount == 0 {
		return ErrInvalidAmount
	}

	balance, err := e.ensureBalance(user)
	if err != nil {
		return err
	}
	if balance.Locked < amount {
		return ErrInsufficientLocked
	}
	available, err := common.AddU64(balance.Available, amount)
	if err != nil {
		return err
	}

	balance.Locked -= amount
	balance.Available = available
	if err := e.state.PutBalance(user, balance); err != nil {
		return err
	}

	e.emit(events.PointsUnlocked{User: user, Amount: amount})
	return nil
}

// AddBadDebt books a shortfall against the account. A zero amount is a no-op.
func (e *Engine) AddBadDebt(token common.Token, user crypto.Address, amount uint64) error {
	if e == nil || e.state == nil {
		return ErrNilState
	}
	if err := common.RequireProtocol(token); err != nil {
		return err
	}
	if amount == 0 {
		return nil
	}

	debt, _, err := e.state.GetBadDebt(user)
	if err != nil {
		return err
	}
	total, err := common.AddU64(debt, amount)
	if err != nil {
		return err
	}
	if err := e.state.PutBadDebt(user, total); err != nil {
		return err
	}

	e.emit(events.BadDebtAdded{User: user, Amount: amount, Total: total})
	return nil
}

// RepayBadDebt pays down (and on full repayment removes) the account's
// shortfall entry. Repaying more than is owed fails.
func (e *Engine) RepayBadDebt(token common.Token, user crypto.Address, amount uint64) error {
	if e == nil || e.state == nil {
		return ErrNilState
	}
	if err := common.Guard(e.pauses, moduleName); err != nil {
		return err
	}
	if err := common.RequireAccount(token, user); err != nil {
		return err
	}
	if amount == 0 {
		return ErrInvalidAmount
	}

	debt, exists, err := e.state.GetBadDebt(user)
	if err != nil {
		return err
	}
	if !exists || amount > debt {
		return ErrRepaymentExceedsDebt
	}

	remaining := debt - amount
	if remaining == 0 {
		if err := e.state.DeleteBadDebt(user); err != nil {
			return err
		}
	} else {
		if err := e.state.PutBadDebt(user, remaining); err != nil {
			return err
		}
	}

	e.emit(events.BadDebtRepaid{User: user, Amount: amount, Remaining: remaining})
	return nil
}

// BadDebt reports the account's outstanding shortfall. Accounts without an
// entry owe zero.
func (e *Engine) BadDebt(user crypto.Address) (uint64, error) {
	if e == nil || e.state == nil {
		return 0, ErrNilState
	}
	debt, _, err := e.state.GetBadDebt(user)
	if err != nil {
		return 0, err
	}
	return debt, nil
}

// BalanceOf returns a copy of the account's balance record. Accounts that have
// never been credited report a zero balance.
func (e *Engine) BalanceOf(user crypto.Address) (*Balance, error) {
	balance, err := e.ensureBalance(user)
	if err != nil {
		return nil, err
	}
	return balance.Clone(), nil
}

// TotalSupply reports the points outstanding across all accounts.
func (e *Engine) TotalSupply() (uint64, error) {
	if e == nil || e.state == nil {
		return 0, ErrNilState
	}
	return e.state.TotalSupply()
}
