package core

import (
	"fmt"
	"math/big"

	"alphaledger/config"
	"alphaledger/core/epoch"
	"alphaledger/core/events"
	"alphaledger/crypto"
	"alphaledger/native/common"
	"alphaledger/native/loan"
	"alphaledger/native/oracle"
	"alphaledger/native/partner"
	"alphaledger/native/points"
	"alphaledger/native/stake"
	"alphaledger/state"
)

// Recorder observes the outcome of every public operation. The observability
// package provides the Prometheus-backed implementation.
type Recorder interface {
	RecordOperation(op string, success bool)
}

// NoopRecorder discards all observations.
type NoopRecorder struct{}

// RecordOperation satisfies the Recorder interface.
func (NoopRecorder) RecordOperation(string, bool) {}

// Protocol sequences the public operations over the native engines. It is
// the one component that crosses module boundaries: it owns the state lock,
// so each operation reads and mutates a consistent view of every object it
// touches, and it routes failures and successes to the metrics recorder.
type Protocol struct {
	manager  *state.Manager
	points   *points.Engine
	oracle   *oracle.Engine
	stake    *stake.Engine
	loan     *loan.Engine
	partner  *partner.Engine
	emitter  events.Emitter
	recorder Recorder
}

// NewProtocol wires the engines to shared state and configuration.
func NewProtocol(cfg config.Config, manager *state.Manager, emitter events.Emitter) (*Protocol, error) {
	if manager == nil {
		return nil, fmt.Errorf("core: state manager required")
	}
	if emitter == nil {
		emitter = events.NoopEmitter{}
	}

	feeCollector, err := resolveAccount(cfg.Protocol.FeeCollector)
	if err != nil {
		return nil, fmt.Errorf("core: fee collector: %w", err)
	}
	platformAccount, err := resolveAccount(cfg.Protocol.PlatformAccount)
	if err != nil {
		return nil, fmt.Errorf("core: platform account: %w", err)
	}

	epochs := epoch.Config{LengthSeconds: cfg.Protocol.EpochLengthSeconds}.Normalize()

	pointsEngine := points.NewEngine()
	oracleEngine := oracle.NewEngine(cfg.Protocol.OracleDecimals, cfg.Protocol.OracleStalenessSeconds)
	stakeEngine := stake.NewEngine(cfg.Protocol.GracePeriodSeconds, cfg.Protocol.AccrualRateBps)
	loanEngine := loan.NewEngine(loan.Params{
		MaxLTVBps:         cfg.Protocol.MaxLTVBps,
		OriginationFeeBps: cfg.Protocol.OriginationFeeBps,
		InterestRateBps:   cfg.Protocol.InterestRateBps,
		EpochsPerYear:     cfg.Protocol.EpochsPerYear,
	}, epochs, feeCollector)
	partnerEngine := partner.NewEngine(epochs, platformAccount)

	pointsEngine.SetState(manager)
	oracleEngine.SetState(manager)
	stakeEngine.SetState(manager)
	loanEngine.SetState(manager)
	partnerEngine.SetState(manager)

	stakeEngine.SetLedger(pointsEngine)
	loanEngine.SetLedger(pointsEngine)
	loanEngine.SetOracle(oracleEngine)
	partnerEngine.SetLedger(pointsEngine)
	partnerEngine.SetOracle(oracleEngine)

	pointsEngine.SetEmitter(emitter)
	oracleEngine.SetEmitter(emitter)
	stakeEngine.SetEmitter(emitter)
	loanEngine.SetEmitter(emitter)
	partnerEngine.SetEmitter(emitter)

	pauses := cfg.Pauses
	pointsEngine.SetPauses(pauses)
	stakeEngine.SetPauses(pauses)
	loanEngine.SetPauses(pauses)
	partnerEngine.SetPauses(pauses)

	return &Protocol{
		manager:  manager,
		points:   pointsEngine,
		oracle:   oracleEngine,
		stake:    stakeEngine,
		loan:     loanEngine,
		partner:  partnerEngine,
		emitter:  emitter,
		recorder: NoopRecorder{},
	}, nil
}

func resolveAccount(encoded string) (crypto.Address, error) {
	if encoded == "" {
		return crypto.Address{}, nil
	}
	return crypto.DecodeAddress(encoded)
}

// SetRecorder configures the metrics recorder for public operations.
func (p *Protocol) SetRecorder(recorder Recorder) {
	if recorder == nil {
		p.recorder = NoopRecorder{}
		return
	}
	p.recorder = recorder
}

func (p *Protocol) record(op string, err error) {
	p.recorder.RecordOperation(op, err == nil)
}

// EarnPoints credits points to a user's available balance.
func (p *Protocol) EarnPoints(token common.Token, user crypto.Address, amount uint64) error {
	defer p.manager.Lock()()
	err := p.points.Earn(token, user, amount)
	p.record("points.earn", err)
	return err
}

// SpendPoints debits points from a user's available balance.
func (p *Protocol) SpendPoints(token common.Token, user crypto.Address, amount uint64) error {
	defer p.manager.Lock()()
	err := p.points.Spend(token, user, amount)
	p.record("points.spend", err)
	return err
}

// LockPoints moves points from available to locked for the same user.
func (p *Protocol) LockPoints(token common.Token, user crypto.Address, amount uint64) error {
	defer p.manager.Lock()()
	err := p.points.Lock(token, user, amount)
	p.record("points.lock", err)
	return err
}

// UnlockPoints moves points from locked back to available.
func (p *Protocol) UnlockPoints(token common.Token, user crypto.Address, amount uint64) error {
	defer p.manager.Lock()()
	err := p.points.Unlock(token, user, amount)
	p.record("points.unlock", err)
	return err
}

// RepayBadDebt reduces a user's recorded bad debt.
func (p *Protocol) RepayBadDebt(token common.Token, user crypto.Address, amount uint64) error {
	defer p.manager.Lock()()
	err := p.points.RepayBadDebt(token, user, amount)
	p.record("points.repayBadDebt", err)
	return err
}

// RedeemPoints converts a user's points back into asset units at the current
// oracle rate and spends them from the ledger. The returned value is the
// asset amount owed to the user by the custody layer.
func (p *Protocol) RedeemPoints(token common.Token, user crypto.Address, pointsIn, now uint64) (uint64, error) {
	defer p.manager.Lock()()
	assetOut, err := p.redeemPoints(token, user, pointsIn, now)
	p.record("points.redeem", err)
	return assetOut, err
}

func (p *Protocol) redeemPoints(token common.Token, user crypto.Address, pointsIn, now uint64) (uint64, error) {
	assetOut, err := p.oracle.PointsToAsset(pointsIn, now)
	if err != nil {
		return 0, err
	}
	if err := p.points.Spend(token, user, pointsIn); err != nil {
		return 0, err
	}
	return assetOut, nil
}

// BalanceOf returns a user's point balance.
func (p *Protocol) BalanceOf(user crypto.Address) (*points.Balance, error) {
	defer p.manager.Lock()()
	return p.points.BalanceOf(user)
}

// BadDebt returns a user's recorded bad debt.
func (p *Protocol) BadDebt(user crypto.Address) (uint64, error) {
	defer p.manager.Lock()()
	return p.points.BadDebt(user)
}

// TotalSupply returns the outstanding point supply.
func (p *Protocol) TotalSupply() (uint64, error) {
	defer p.manager.Lock()()
	return p.points.TotalSupply()
}

// UpdateOracleRate records a new conversion rate with the supplied clock.
func (p *Protocol) UpdateOracleRate(token common.Token, newRate *big.Int, now uint64) error {
	defer p.manager.Lock()()
	err := p.oracle.UpdateRate(token, newRate, now)
	p.record("oracle.updateRate", err)
	return err
}

// OracleRate returns the stored conversion rate.
func (p *Protocol) OracleRate() (*oracle.Rate, error) {
	defer p.manager.Lock()()
	return p.oracle.CurrentRate()
}

// DepositStake opens a new time-locked position for the owner.
func (p *Protocol) DepositStake(token common.Token, owner crypto.Address, principal, duration, now uint64) (*stake.Position, error) {
	defer p.manager.Lock()()
	position, err := p.stake.Deposit(token, owner, principal, duration, now)
	p.record("stake.deposit", err)
	return position, err
}

// ClaimAccrued credits points accrued on a position since the last claim.
func (p *Protocol) ClaimAccrued(token common.Token, id [32]byte, now uint64) (uint64, error) {
	defer p.manager.Lock()()
	credited, err := p.stake.ClaimAccrued(token, id, now)
	p.record("stake.claim", err)
	return credited, err
}

// RedeemStake destroys a mature, unencumbered position and returns its
// principal after crediting the remaining accrual.
func (p *Protocol) RedeemStake(token common.Token, id [32]byte, now uint64) (uint64, error) {
	defer p.manager.Lock()()
	principal, err := p.stake.Redeem(token, id, now)
	p.record("stake.redeem", err)
	return principal, err
}

// ForfeitStake destroys an expired position without crediting its owner.
func (p *Protocol) ForfeitStake(token common.Token, id [32]byte, now uint64) (uint64, error) {
	defer p.manager.Lock()()
	principal, err := p.stake.Forfeit(token, id, now)
	p.record("stake.forfeit", err)
	return principal, err
}

// GetPosition returns a stored stake position.
func (p *Protocol) GetPosition(id [32]byte) (*stake.Position, error) {
	defer p.manager.Lock()()
	return p.stake.Get(id)
}

// OpenLoan draws points against an unencumbered stake position.
func (p *Protocol) OpenLoan(token common.Token, borrower crypto.Address, collateralID [32]byte, requested, now uint64) (*loan.Loan, error) {
	defer p.manager.Lock()()
	record, err := p.loan.Open(token, borrower, collateralID, requested, now)
	p.record("loan.open", err)
	return record, err
}

// RepayLoan settles a loan in full and releases its collateral.
func (p *Protocol) RepayLoan(token common.Token, id [32]byte, now uint64) (uint64, error) {
	defer p.manager.Lock()()
	paid, err := p.loan.Repay(token, id, now)
	p.record("loan.repay", err)
	return paid, err
}

// ForceSettleLoan books a defaulted loan as bad debt and releases its
// collateral for forfeiture. Admin only.
func (p *Protocol) ForceSettleLoan(token common.Token, id [32]byte, now uint64) (uint64, error) {
	defer p.manager.Lock()()
	owed, err := p.loan.ForceSettle(token, id, now)
	p.record("loan.forceSettle", err)
	return owed, err
}

// GetLoan returns a stored loan record.
func (p *Protocol) GetLoan(id [32]byte) (*loan.Loan, error) {
	defer p.manager.Lock()()
	return p.loan.Get(id)
}

// RegisterCollateral records TVL collateral backing a partner's quota.
func (p *Protocol) RegisterCollateral(token common.Token, partnerAddr, payoutAccount crypto.Address, valueUSD uint64) (*partner.Quota, error) {
	defer p.manager.Lock()()
	record, err := p.partner.RegisterCollateral(token, partnerAddr, payoutAccount, valueUSD)
	p.record("partner.register", err)
	return record, err
}

// MintWithQuota mints points to a user against a partner's quota.
func (p *Protocol) MintWithQuota(token common.Token, partnerAddr, user crypto.Address, amount, now uint64) error {
	defer p.manager.Lock()()
	err := p.partner.MintWithQuota(token, partnerAddr, user, amount, now)
	p.record("partner.mint", err)
	return err
}

// SplitRevenue distributes perk revenue between the partner, the
// reinvestment pool and the platform.
func (p *Protocol) SplitRevenue(token common.Token, partnerAddr crypto.Address, cost, now uint64) error {
	defer p.manager.Lock()()
	err := p.partner.SplitRevenue(token, partnerAddr, cost, now)
	p.record("partner.splitRevenue", err)
	return err
}

// ReinvestRevenue grows a partner's collateral value with realized revenue.
func (p *Protocol) ReinvestRevenue(token common.Token, partnerAddr crypto.Address, amountUSD uint64) error {
	defer p.manager.Lock()()
	err := p.partner.ReinvestRevenue(token, partnerAddr, amountUSD)
	p.record("partner.reinvest", err)
	return err
}

// GetQuota returns a stored partner quota record.
func (p *Protocol) GetQuota(partnerAddr crypto.Address) (*partner.Quota, error) {
	defer p.manager.Lock()()
	return p.partner.Get(partnerAddr)
}
