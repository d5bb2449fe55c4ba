package partner

import (
	"alphaledger/core/epoch"
	"alphaledger/core/events"
	"alphaledger/crypto"
	"alphaledger/native/common"
)

const moduleName = "partner"

// Revenue from a perk sale splits into fixed basis-point shares: the payout
// share goes straight to the partner, the reinvestment share is converted to
// USD and grows the partner's collateral, and the platform keeps the rest.
const (
	payoutShareBps   = 7_000
	reinvestShareBps = 2_000
)

type engineState interface {
	GetQuota(partner crypto.Address) (*Quota, error)
	PutQuota(record *Quota) error
}

type pointsLedger interface {
	Earn(token common.Token, user crypto.Address, amount uint64) error
	EarnSplit(token common.Token, first crypto.Address, firstAmount uint64, second crypto.Address, secondAmount uint64) error
}

type revenueOracle interface {
	PointsToAsset(points uint64, now uint64) (uint64, error)
}

// Engine owns the partner quota lifecycle: collateral registration sizes the
// quotas, quota-gated mints credit users through the points ledger, and
// revenue splits pay the partner while reinvesting a share into its
// collateral so future quota grows with realized sales.
type Engine struct {
	state           engineState
	ledger          pointsLedger
	oracle          revenueOracle
	emitter         events.Emitter
	pauses          common.PauseView
	epochs          epoch.Config
	platformAccount crypto.Address
}

// NewEngine constructs a partner engine. The platform account receives the
// non-partner, non-reinvested remainder of every revenue split.
func NewEngine(epochs epoch.Config, platformAccount crypto.Address) *Engine {
	return &Engine{
		emitter:         events.NoopEmitter{},
		epochs:          epochs.Normalize(),
		platformAccount: platformAccount,
	}
}

// SetState wires the engine to the external persistence layer.
func (e *Engine) SetState(state engineState) { e.state = state }

// SetLedger wires the points ledger used to credit mints and payouts.
func (e *Engine) SetLedger(ledger pointsLedger) { e.ledger = ledger }

// SetOracle wires the price oracle used to value reinvested revenue.
func (e *Engine) SetOracle(oracle revenueOracle) { e.oracle = oracle }

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
	if e.state == nil {
		return ErrNilState
	}
	if e.ledger == nil {
		return ErrNilLedger
	}
	return nil
}

func (e *Engine) loadQuota(partner crypto.Address) (*Quota, error) {
	record, err := e.state.GetQuota(partner)
	if err != nil {
		return nil, err
	}
	if record == nil {
		return nil, ErrPartnerNotFound
	}
	return record, nil
}

// RegisterCollateral records, or adds to, the USD collateral value backing a
// partner's quota and recomputes both quotas from the new total. First
// registration fixes the payout account for revenue splits. Registration is
// an administrative operation.
func (e *Engine) RegisterCollateral(token common.Token, partner, payoutAccount crypto.Address, valueUSD uint64) (*Quota, error) {
	if err := e.ready(); err != nil {
		return nil, err
	}
	if err := common.Guard(e.pauses, moduleName); err != nil {
		return nil, err
	}
	if err := common.RequireAdmin(token); err != nil {
		return nil, err
	}
	if valueUSD == 0 {
		return nil, ErrInvalidAmount
	}

	record, err := e.state.GetQuota(partner)
	if err != nil {
		return nil, err
	}
	if record == nil {
		record = &Quota{Partner: partner, PayoutAccount: payoutAccount}
	}
	total, err := common.AddU64(record.CollateralValueUSD, valueUSD)
	if err != nil {
		return nil, err
	}
	record.CollateralValueUSD = total
	if err := record.recompute(); err != nil {
		return nil, err
	}
	if err := e.state.PutQuota(record); err != nil {
		return nil, err
	}

	e.emitter.Emit(events.PartnerCollateralRegistered{
		Partner:       partner,
		ValueUSD:      total,
		LifetimeQuota: record.LifetimeQuota,
		DailyQuota:    record.DailyQuota,
	})
	return record.Clone(), nil
}

// MintWithQuota mints points to a user on behalf of a partner, debiting both
// the daily and the lifetime quota. The daily counter resets when the epoch
// has advanced past the last reset before validation runs, so a fresh epoch
// always starts with the full daily quota.
func (e *Engine) MintWithQuota(token common.Token, partner, user crypto.Address, amount, now uint64) error {
	if err := e.ready(); err != nil {
		return err
	}
	if err := common.Guard(e.pauses, moduleName); err != nil {
		return err
	}
	if err := common.RequireAccount(token, partner); err != nil {
		return err
	}
	if amount == 0 {
		return ErrInvalidAmount
	}

	record, err := e.loadQuota(partner)
	if err != nil {
		return err
	}
	currentEpoch := e.epochs.EpochOf(now)
	if currentEpoch > record.LastResetEpoch {
		record.DailyMinted = 0
		record.LastResetEpoch = currentEpoch
	}

	daily, err := common.AddU64(record.DailyMinted, amount)
	if err != nil {
		return err
	}
	lifetime, err := common.AddU64(record.LifetimeMinted, amount)
	if err != nil {
		return err
	}
	if daily > record.DailyQuota || lifetime > record.LifetimeQuota {
		return ErrQuotaExceeded
	}

	if err := e.ledger.Earn(common.NewProtocolToken(), user, amount); err != nil {
		return err
	}
	record.DailyMinted = daily
	record.LifetimeMinted = lifetime
	if err := e.state.PutQuota(record); err != nil {
		return err
	}

	e.emitter.Emit(events.PartnerMinted{
		Partner: partner,
		User:    user,
		Amount:  amount,
		Epoch:   currentEpoch,
	})
	return nil
}

// ReinvestRevenue adds realized USD revenue to a partner's collateral value
// and recomputes both quotas. Only the protocol itself may reinvest; partners
// cannot grow their own quota by self-reported claims.
func (e *Engine) ReinvestRevenue(token common.Token, partner crypto.Address, amountUSD uint64) error {
	if err := e.ready(); err != nil {
		return err
	}
	if err := common.RequireProtocol(token); err != nil {
		return err
	}
	if amountUSD == 0 {
		return nil
	}

	record, err := e.loadQuota(partner)
	if err != nil {
		return err
	}
	total, err := common.AddU64(record.CollateralValueUSD, amountUSD)
	if err != nil {
		return err
	}
	record.CollateralValueUSD = total
	if err := record.recompute(); err != nil {
		return err
	}
	return e.state.PutQuota(record)
}

// SplitRevenue distributes the points revenue of a perk sale: 70% is paid to
// the partner's payout account, 20% is valued in USD through the oracle and
// reinvested into the partner's collateral, and the remainder goes to the
// platform account. Rounding dust from the basis-point shares stays with the
// platform so the full cost is always accounted for.
func (e *Engine) SplitRevenue(token common.Token, partner crypto.Address, cost, now uint64) error {
	if err := e.ready(); err != nil {
		return err
	}
	if e.oracle == nil {
		return ErrNilOracle
	}
	if err := common.Guard(e.pauses, moduleName); err != nil {
		return err
	}
	if err := common.RequireProtocol(token); err != nil {
		return err
	}
	if cost == 0 {
		return ErrInvalidAmount
	}

	record, err := e.loadQuota(partner)
	if err != nil {
		return err
	}

	payout, err := common.BpsShare(cost, payoutShareBps)
	if err != nil {
		return err
	}
	reinvestPoints, err := common.BpsShare(cost, reinvestShareBps)
	if err != nil {
		return err
	}
	platformShare := cost - payout - reinvestPoints

	reinvestUSD, err := e.oracle.PointsToAsset(reinvestPoints, now)
	if err != nil {
		return err
	}

	if err := e.ledger.EarnSplit(common.NewProtocolToken(), record.PayoutAccount, payout, e.platformAccount, platformShare); err != nil {
		return err
	}

	total, err := common.AddU64(record.CollateralValueUSD, reinvestUSD)
	if err != nil {
		return err
	}
	record.CollateralValueUSD = total
	if err := record.recompute(); err != nil {
		return err
	}
	if err := e.state.PutQuota(record); err != nil {
		return err
	}

	e.emitter.Emit(events.PartnerRevenueShared{
		Partner:       partner,
		Cost:          cost,
		PartnerShare:  payout,
		PlatformShare: platformShare,
		ReinvestedUSD: reinvestUSD,
	})
	return nil
}

// Get returns a copy of the stored quota record.
func (e *Engine) Get(partner crypto.Address) (*Quota, error) {
	if e.state == nil {
		return nil, ErrNilState
	}
	record, err := e.loadQuota(partner)
	if err != nil {
		return nil, err
	}
	return record.Clone(), nil
}
