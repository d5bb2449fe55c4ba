package stake

import (
	"encoding/binary"

	"alphaledger/core/events"
	"alphaledger/crypto"
	"alphaledger/native/common"
)

const moduleName = "stake"

// SecondsPerYear anchors the accrual rate: accrualRateBps is an annual rate
// applied pro rata per elapsed second.
const SecondsPerYear uint64 = 31_536_000

type engineState interface {
	GetPosition(id [32]byte) (*Position, error)
	PutPosition(position *Position) error
	DeletePosition(id [32]byte) error
	NextPositionNonce() (uint64, error)
}

type pointsLedger interface {
	Earn(token common.Token, user crypto.Address, amount uint64) error
	BadDebt(user crypto.Address) (uint64, error)
}

// Engine owns the stake-position lifecycle: deposits open positions, accrual
// claims credit points over time, redemption returns the principal inside the
// maturity window, and administrative forfeiture sweeps expired positions.
type Engine struct {
	state          engineState
	ledger         pointsLedger
	emitter        events.Emitter
	pauses         common.PauseView
	gracePeriod    uint64
	accrualRateBps uint64
}

// NewEngine constructs a stake engine. The grace period extends the
// redemption window past maturity; the accrual rate is an annual basis-point
// rate over the principal.
func NewEngine(gracePeriod, accrualRateBps uint64) *Engine {
	return &Engine{
		emitter:        events.NoopEmitter{},
		gracePeriod:    gracePeriod,
		accrualRateBps: accrualRateBps,
	}
}

// SetState wires the engine to the external persistence layer.
func (e *Engine) SetState(state engineState) { e.state = state }

// SetLedger wires the points ledger used to credit accrued points.
func (e *Engine) SetLedger(ledger pointsLedger) { e.ledger = ledger }

// SetEmitter configures the event emitter used by the engine.
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

func (e *Engine) loadPosition(id [32]byte) (*Position, error) {
	if e == nil || e.state == nil {
		return nil, ErrNilState
	}
	position, err := e.state.GetPosition(id)
	if err != nil {
		return nil, err
	}
	if position == nil {
		return nil, ErrPositionNotFound
	}
	return position, nil
}

func deriveID(owner crypto.Address, nonce, start uint64) [32]byte {
	var buf [16]byte
	binary.BigEndian.PutUint64(buf[:8], nonce)
	binary.BigEndian.PutUint64(buf[8:], start)
	return crypto.DeriveID(owner.Bytes(), buf[:])
}

// Deposit opens a position for the owner. The asset principal itself is held
// by the custody escrow; the caller pairs the custody transfer with this call
// in one atomic operation.
func (e *Engine) Deposit(token common.Token, owner crypto.Address, principal, duration, now uint64) (*Position, error) {
	if e == nil || e.state == nil {
		return nil, ErrNilState
	}
	if err := common.Guard(e.pauses, moduleName); err != nil {
		return nil, err
	}
	if err := common.RequireAccount(token, owner); err != nil {
		return nil, err
	}
	if principal == 0 {
		return nil, ErrInvalidAmount
	}
	if duration == 0 {
		return nil, ErrInvalidDuration
	}
	if e.ledger == nil {
		return nil, ErrNilLedger
	}

	// Accounts carrying bad debt must clear it before staking again.
	debt, err := e.ledger.BadDebt(owner)
	if err != nil {
		return nil, err
	}
	if debt > 0 {
		return nil, ErrHasBadDebt
	}

	unlock, err := common.AddU64(now, duration)
	if err != nil {
		return nil, err
	}
	expiry, err := common.AddU64(unlock, e.gracePeriod)
	if err != nil {
		return nil, err
	}
	nonce, err := e.state.NextPositionNonce()
	if err != nil {
		return nil, err
	}

	position := &Position{
		ID:            deriveID(owner, nonce, now),
		Owner:         owner,
		Principal:     principal,
		Duration:      duration,
		StartTime:     now,
		UnlockTime:    unlock,
		ExpiryTime:    expiry,
		LastClaimTime: now,
	}
	if err := e.state.PutPosition(position); err != nil {
		return nil, err
	}

	e.emitter.Emit(events.StakeCreated{
		PositionID: position.ID,
		Owner:      owner,
		Principal:  principal,
		UnlockTime: unlock,
		ExpiryTime: expiry,
	})
	return position.Clone(), nil
}

// AccruedSince returns the points accrued on the principal between the two
// timestamps at the configured annual rate.
func (e *Engine) AccruedSince(principal, from, to uint64) (uint64, error) {
	if e == nil || to <= from {
		return 0, nil
	}
	elapsed := to - from
	scaled, err := common.MulDivU64(principal, e.accrualRateBps, common.BasisPointsDenominator)
	if err != nil {
		return 0, err
	}
	return common.MulDivU64(scaled, elapsed, SecondsPerYear)
}

// ClaimAccrued credits points accrued since the last claim and advances the
// claim cursor without destroying the position. It may be called repeatedly
// before maturity.
func (e *Engine) ClaimAccrued(token common.Token, id [32]byte, now uint64) (uint64, error) {
	if e == nil || e.state == nil {
		return 0, ErrNilState
	}
	if e.ledger == nil {
		return 0, ErrNilLedger
	}
	if err := common.Guard(e.pauses, moduleName); err != nil {
		return 0, err
	}

	position, err := e.loadPosition(id)
	if err != nil {
		return 0, err
	}
	if err := common.RequireAccount(token, position.Owner); err != nil {
		return 0, err
	}

	accrued, err := e.AccruedSince(position.Principal, position.LastClaimTime, now)
	if err != nil {
		return 0, err
	}
	if accrued == 0 {
		return 0, nil
	}
	if err := e.ledger.Earn(common.NewProtocolToken(), position.Owner, accrued); err != nil {
		return 0, err
	}
	position.LastClaimTime = now
	if err := e.state.PutPosition(position); err != nil {
		return 0, err
	}

	e.emitter.Emit(events.StakeAccrualClaimed{
		PositionID:    position.ID,
		Owner:         position.Owner,
		PointsAccrued: accrued,
		ClaimedAt:     now,
	})
	return accrued, nil
}

// Redeem destroys a matured, unencumbered position inside its redemption
// window, credits the final accrual and returns the principal owed back to
// the owner by the custody escrow.
func (e *Engine) Redeem(token common.Token, id [32]byte, now uint64) (uint64, error) {
	if e == nil || e.state == nil {
		return 0, ErrNilState
	}
	if e.ledger == nil {
		return 0, ErrNilLedger
	}
	if err := common.Guard(e.pauses, moduleName); err != nil {
		return 0, err
	}

	position, err := e.loadPosition(id)
	if err != nil {
		return 0, err
	}
	if err := common.RequireAccount(token, position.Owner); err != nil {
		return 0, err
	}
	if position.Encumbered {
		return 0, ErrEncumbered
	}
	if !position.Matured(now) {
		return 0, ErrNotMature
	}
	if position.Expired(now) {
		return 0, ErrExpired
	}

	accrued, err := e.AccruedSince(position.Principal, position.LastClaimTime, now)
	if err != nil {
		return 0, err
	}
	if accrued > 0 {
		if err := e.ledger.Earn(common.NewProtocolToken(), position.Owner, accrued); err != nil {
			return 0, err
		}
	}
	if err := e.state.DeletePosition(id); err != nil {
		return 0, err
	}

	e.emitter.Emit(events.StakeRedeemed{
		PositionID:    position.ID,
		Owner:         position.Owner,
		Principal:     position.Principal,
		PointsAccrued: accrued,
	})
	return position.Principal, nil
}

// Forfeit removes an expired, unredeemed position. The principal stays in
// custody for administrative withdrawal; no points are minted to the owner.
// An encumbered position must be settled through the loan engine first.
func (e *Engine) Forfeit(token common.Token, id [32]byte, now uint64) (uint64, error) {
	if e == nil || e.state == nil {
		return 0, ErrNilState
	}
	if err := common.Guard(e.pauses, moduleName); err != nil {
		return 0, err
	}
	if err := common.RequireAdmin(token); err != nil {
		return 0, err
	}

	position, err := e.loadPosition(id)
	if err != nil {
		return 0, err
	}
	if !position.Expired(now) {
		return 0, ErrNotExpired
	}
	if position.Encumbered {
		return 0, ErrCollateralOutstanding
	}
	if err := e.state.DeletePosition(id); err != nil {
		return 0, err
	}

	e.emitter.Emit(events.StakeForfeited{
		PositionID: position.ID,
		Owner:      position.Owner,
		Principal:  position.Principal,
	})
	return position.Principal, nil
}

// Get returns a copy of the stored position.
func (e *Engine) Get(id [32]byte) (*Position, error) {
	position, err := e.loadPosition(id)
	if err != nil {
		return nil, err
	}
	return position.Clone(), nil
}
