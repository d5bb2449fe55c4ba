package loan

import (
	"encoding/binary"
	"errors"

	"alphaledger/core/epoch"
	"alphaledger/core/events"
	"alphaledger/crypto"
	"alphaledger/native/common"
	"alphaledger/native/points"
	"alphaledger/native/stake"
)

const moduleName = "loan"

type engineState interface {
	GetLoan(id [32]byte) (*Loan, error)
	PutLoan(loan *Loan) error
	DeleteLoan(id [32]byte) error
	GetPosition(id [32]byte) (*stake.Position, error)
	PutPosition(position *stake.Position) error
	NextLoanNonce() (uint64, error)
}

type pointsLedger interface {
	EarnSplit(token common.Token, first crypto.Address, firstAmount uint64, second crypto.Address, secondAmount uint64) error
	Spend(token common.Token, user crypto.Address, amount uint64) error
	AddBadDebt(token common.Token, user crypto.Address, amount uint64) error
	BadDebt(user crypto.Address) (uint64, error)
}

type collateralOracle interface {
	AssetToPoints(asset uint64, now uint64) (uint64, error)
}

// Engine orchestrates the collateralized loan lifecycle: LTV-gated opening
// with an origination fee, epoch-based interest computed on demand, full
// repayment and the administrative settlement path for defaulted collateral.
type Engine struct {
	state        engineState
	ledger       pointsLedger
	oracle       collateralOracle
	emitter      events.Emitter
	pauses       common.PauseView
	params       Params
	epochs       epoch.Config
	feeCollector crypto.Address
}

// NewEngine constructs a loan engine with the supplied risk parameters. The
// fee collector receives origination fees.
func NewEngine(params Params, epochs epoch.Config, feeCollector crypto.Address) *Engine {
	return &Engine{
		emitter:      events.NoopEmitter{},
		params:       params,
		epochs:       epochs.Normalize(),
		feeCollector: feeCollector,
	}
}

// SetState wires the engine to the external persistence layer.
func (e *Engine) SetState(state engineState) { e.state = state }

// SetLedger wires the points ledger used for disbursement and repayment.
func (e *Engine) SetLedger(ledger pointsLedger) { e.ledger = ledger }

// SetOracle wires the price source used to value collateral.
func (e *Engine) SetOracle(oracle collateralOracle) { e.oracle = oracle }

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

func (e *Engine) ready() error {
	if e == nil || e.state == nil {
		return ErrNilState
	}
	if e.ledger == nil {
		return ErrNilLedger
	}
	if e.oracle == nil {
		return ErrNilOracle
	}
	return nil
}

func (e *Engine) loadLoan(id [32]byte) (*Loan, error) {
	record, err := e.state.GetLoan(id)
	if err != nil {
		return nil, err
	}
	if record == nil {
		return nil, ErrLoanNotFound
	}
	return record, nil
}

func deriveID(borrower crypto.Address, collateral [32]byte, nonce uint64) [32]byte {
	var buf [8]byte
	binary.BigEndian.PutUint64(buf[:], nonce)
	return crypto.DeriveID(borrower.Bytes(), collateral[:], buf[:])
}

// Open draws a loan against an unencumbered stake position owned by the
// borrower. The disbursed amount is the requested principal minus the
// origination fee; the fee is credited to the protocol fee account.
func (e *Engine) Open(token common.Token, borrower crypto.Address, collateralID [32]byte, requested, now uint64) (*Loan, error) {
	if err := e.ready(); err != nil {
		return nil, err
	}
	if err := common.Guard(e.pauses, moduleName); err != nil {
		return nil, err
	}
	if err := common.RequireAccount(token, borrower); err != nil {
		return nil, err
	}
	if requested == 0 {
		return nil, ErrInvalidAmount
	}

	debt, err := e.ledger.BadDebt(borrower)
	if err != nil {
		return nil, err
	}
	if debt > 0 {
		return nil, ErrHasBadDebt
	}

	position, err := e.state.GetPosition(collateralID)
	if err != nil {
		return nil, err
	}
	if position == nil {
		return nil, ErrCollateralNotFound
	}
	if !position.Owner.Equal(borrower) {
		return nil, common.ErrUnauthorized
	}
	if position.Encumbered {
		return nil, ErrCollateralInUse
	}

	collateralValue, err := e.oracle.AssetToPoints(position.Principal, now)
	if err != nil {
		return nil, err
	}
	maxBorrowable, err := common.BpsShare(collateralValue, e.params.MaxLTVBps)
	if err != nil {
		return nil, err
	}
	if requested > maxBorrowable {
		return nil, ErrExceedsLTV
	}

	fee, err := common.BpsShare(requested, e.params.OriginationFeeBps)
	if err != nil {
		return nil, err
	}
	disbursed := requested - fee

	if err := e.ledger.EarnSplit(common.NewProtocolToken(), borrower, disbursed, e.feeCollector, fee); err != nil {
		return nil, err
	}

	position.Encumbered = true
	if err := e.state.PutPosition(position); err != nil {
		return nil, err
	}

	nonce, err := e.state.NextLoanNonce()
	if err != nil {
		return nil, err
	}
	record := &Loan{
		ID:           deriveID(borrower, collateralID, nonce),
		Borrower:     borrower,
		CollateralID: collateralID,
		Principal:    requested,
		OpenedTime:   now,
	}
	if err := e.state.PutLoan(record); err != nil {
		return nil, err
	}

	e.emitter.Emit(events.LoanOpened{
		LoanID:       record.ID,
		Borrower:     borrower,
		CollateralID: collateralID,
		Principal:    requested,
		Fee:          fee,
	})
	return record.Clone(), nil
}

// InterestDue computes interest accrued between loan opening and now as a
// pure function of elapsed whole epochs; nothing is persisted per epoch.
func (e *Engine) InterestDue(record *Loan, now uint64) (uint64, error) {
	if record == nil {
		return 0, ErrLoanNotFound
	}
	elapsed := e.epochs.Elapsed(record.OpenedTime, now)
	if elapsed == 0 || e.params.InterestRateBps == 0 {
		return record.InterestAccrued, nil
	}
	epochsPerYear := e.params.EpochsPerYear
	if epochsPerYear == 0 {
		epochsPerYear = 1
	}
	// One floor division over the full product: flooring an intermediate
	// quotient would zero out small-principal interest entirely.
	factor, err := common.MulU64(e.params.InterestRateBps, elapsed)
	if err != nil {
		return 0, err
	}
	divisor, err := common.MulU64(common.BasisPointsDenominator, epochsPerYear)
	if err != nil {
		return 0, err
	}
	running, err := common.MulDivU64(record.Principal, factor, divisor)
	if err != nil {
		return 0, err
	}
	return common.AddU64(record.InterestAccrued, running)
}

// Owed returns the full amount required to close the loan at the supplied
// time.
func (e *Engine) Owed(record *Loan, now uint64) (uint64, error) {
	interest, err := e.InterestDue(record, now)
	if err != nil {
		return 0, err
	}
	return common.AddU64(record.Principal, interest)
}

// Repay settles the loan in full: the borrower's ledger is debited principal
// plus interest, the collateral encumbrance clears and the loan record is
// destroyed.
func (e *Engine) Repay(token common.Token, id [32]byte, now uint64) (uint64, error) {
	if err := e.ready(); err != nil {
		return 0, err
	}
	if err := common.Guard(e.pauses, moduleName); err != nil {
		return 0, err
	}

	record, err := e.loadLoan(id)
	if err != nil {
		return 0, err
	}
	if err := common.RequireAccount(token, record.Borrower); err != nil {
		return 0, err
	}

	interest, err := e.InterestDue(record, now)
	if err != nil {
		return 0, err
	}
	owed, err := common.AddU64(record.Principal, interest)
	if err != nil {
		return 0, err
	}

	if err := e.ledger.Spend(token, record.Borrower, owed); err != nil {
		if errors.Is(err, points.ErrInsufficientBalance) {
			return 0, ErrInsufficientPoints
		}
		return 0, err
	}

	if err := e.clearEncumbrance(record.CollateralID); err != nil {
		return 0, err
	}
	if err := e.state.DeleteLoan(id); err != nil {
		return 0, err
	}

	e.emitter.Emit(events.LoanRepaid{
		LoanID:   record.ID,
		Borrower: record.Borrower,
		Paid:     owed,
		Interest: interest,
	})
	return owed, nil
}

// ForceSettle is the administrative resolution for a loan whose collateral
// expired before repayment. The full owed amount is booked as bad debt
// against the borrower, the encumbrance clears so the position becomes
// forfeitable and the loan record is destroyed. Nothing is liquidated
// automatically; settlement requires the admin capability.
func (e *Engine) ForceSettle(token common.Token, id [32]byte, now uint64) (uint64, error) {
	if err := e.ready(); err != nil {
		return 0, err
	}
	if err := common.RequireAdmin(token); err != nil {
		return 0, err
	}

	record, err := e.loadLoan(id)
	if err != nil {
		return 0, err
	}
	owed, err := e.Owed(record, now)
	if err != nil {
		return 0, err
	}
	if err := e.ledger.AddBadDebt(common.NewProtocolToken(), record.Borrower, owed); err != nil {
		return 0, err
	}
	if err := e.clearEncumbrance(record.CollateralID); err != nil {
		return 0, err
	}
	if err := e.state.DeleteLoan(id); err != nil {
		return 0, err
	}

	e.emitter.Emit(events.LoanSettled{
		LoanID:   record.ID,
		Borrower: record.Borrower,
		BadDebt:  owed,
	})
	return owed, nil
}

func (e *Engine) clearEncumbrance(collateralID [32]byte) error {
	position, err := e.state.GetPosition(collateralID)
	if err != nil {
		return err
	}
	if position == nil {
		// Settlement of a loan whose position was already removed clears
		// nothing; the loan record itself still has to go.
		return nil
	}
	position.Encumbered = false
	return e.state.PutPosition(position)
}

// Get returns a copy of the stored loan record.
func (e *Engine) Get(id [32]byte) (*Loan, error) {
	if e == nil || e.state == nil {
		return nil, ErrNilState
	}
	record, err := e.loadLoan(id)
	if err != nil {
		return nil, err
	}
	return record.Clone(), nil
}
