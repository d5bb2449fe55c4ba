package oracle

import (
	"errors"
	"math"
	"math/big"

	"alphaledger/core/events"
	"alphaledger/native/common"
)

const moduleName = "oracle"

// MaxDecimals bounds the rate scale so 10^decimals stays inside the 128-bit
// range the conversions are specified over.
const MaxDecimals uint8 = 38

var (
	ErrNilState        = errors.New("oracle engine: state not configured")
	ErrNotConfigured   = errors.New("oracle engine: rate not configured")
	ErrInvalidRate     = errors.New("oracle engine: rate must be positive")
	ErrInvalidDecimals = errors.New("oracle engine: decimals out of range")
	ErrStale           = errors.New("oracle engine: rate is stale")
)

var maxUint64 = new(big.Int).SetUint64(math.MaxUint64)

// Rate is the stored oracle record: the point/asset conversion rate, its
// decimal scale and the freshness bookkeeping.
type Rate struct {
	Value              *big.Int `json:"value"`
	Decimals           uint8    `json:"decimals"`
	LastUpdateTime     uint64   `json:"lastUpdateTime"`
	StalenessThreshold uint64   `json:"stalenessThreshold"`
}

// Clone returns a deep copy of the rate record.
func (r *Rate) Clone() *Rate {
	if r == nil {
		return nil
	}
	clone := *r
	if r.Value != nil {
		clone.Value = new(big.Int).Set(r.Value)
	}
	return &clone
}

// IsStale reports whether more time has elapsed since the last update than
// the configured threshold permits.
func (r *Rate) IsStale(now uint64) bool {
	if r == nil {
		return true
	}
	if now <= r.LastUpdateTime {
		return false
	}
	return now-r.LastUpdateTime > r.StalenessThreshold
}

func pow10(decimals uint8) *big.Int {
	return new(big.Int).Exp(big.NewInt(10), big.NewInt(int64(decimals)), nil)
}

// ConvertPointsToAsset returns floor(points * rate / 10^decimals). The
// multiply runs over big integers so the u64*u128 product cannot wrap; a
// quotient outside the unsigned 64-bit range fails.
func ConvertPointsToAsset(points uint64, rate *big.Int, decimals uint8) (uint64, error) {
	if rate == nil || rate.Sign() <= 0 {
		return 0, ErrInvalidRate
	}
	if decimals > MaxDecimals {
		return 0, ErrInvalidDecimals
	}
	if points == 0 {
		return 0, nil
	}
	out := new(big.Int).SetUint64(points)
	out.Mul(out, rate)
	out.Quo(out, pow10(decimals))
	if out.Cmp(maxUint64) > 0 {
		return 0, common.ErrOverflow
	}
	return out.Uint64(), nil
}

// ConvertAssetToPoints returns floor(asset * 10^decimals / rate), the inverse
// of ConvertPointsToAsset up to integer-division rounding.
func ConvertAssetToPoints(asset uint64, rate *big.Int, decimals uint8) (uint64, error) {
	if rate == nil || rate.Sign() <= 0 {
		return 0, ErrInvalidRate
	}
	if decimals > MaxDecimals {
		return 0, ErrInvalidDecimals
	}
	if asset == 0 {
		return 0, nil
	}
	out := new(big.Int).SetUint64(asset)
	out.Mul(out, pow10(decimals))
	out.Quo(out, rate)
	if out.Cmp(maxUint64) > 0 {
		return 0, common.ErrOverflow
	}
	return out.Uint64(), nil
}

type engineState interface {
	OracleRate() (*Rate, error)
	PutOracleRate(rate *Rate) error
}

// Engine wraps the stored rate with authorization and freshness checks.
// Components pricing through the engine never see a stale rate: the staleness
// check runs before every conversion.
type Engine struct {
	state     engineState
	emitter   events.Emitter
	pauses    common.PauseView
	decimals  uint8
	threshold uint64
}

// NewEngine constructs an oracle engine. Decimals and the staleness threshold
// are deployment parameters applied to every subsequent rate update.
func NewEngine(decimals uint8, stalenessThreshold uint64) *Engine {
	return &Engine{
		emitter:   events.NoopEmitter{},
		decimals:  decimals,
		threshold: stalenessThreshold,
	}
}

// SetState wires the engine to the external persistence layer.
func (e *Engine) SetState(state engineState) { e.state = state }

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

func (e *Engine) loadRate() (*Rate, error) {
	if e == nil || e.state == nil {
		return nil, ErrNilState
	}
	rate, err := e.state.OracleRate()
	if err != nil {
		return nil, err
	}
	if rate == nil || rate.Value == nil || rate.Value.Sign() <= 0 {
		return nil, ErrNotConfigured
	}
	return rate, nil
}

func (e *Engine) freshRate(now uint64) (*Rate, error) {
	rate, err := e.loadRate()
	if err != nil {
		return nil, err
	}
	if rate.IsStale(now) {
		return nil, ErrStale
	}
	return rate, nil
}

// UpdateRate records a new rate with the supplied timestamp. Only the oracle
// capability may call it.
func (e *Engine) UpdateRate(token common.Token, newRate *big.Int, now uint64) error {
	if e == nil || e.state == nil {
		return ErrNilState
	}
	if err := common.Guard(e.pauses, moduleName); err != nil {
		return err
	}
	if err := common.RequireOracle(token); err != nil {
		return err
	}
	if newRate == nil || newRate.Sign() <= 0 {
		return ErrInvalidRate
	}
	if e.decimals > MaxDecimals {
		return ErrInvalidDecimals
	}

	rate := &Rate{
		Value:              new(big.Int).Set(newRate),
		Decimals:           e.decimals,
		LastUpdateTime:     now,
		StalenessThreshold: e.threshold,
	}
	if err := e.state.PutOracleRate(rate); err != nil {
		return err
	}

	e.emitter.Emit(events.OracleRateUpdated{Rate: rate.Value, Decimals: rate.Decimals, UpdatedAt: now})
	return nil
}

// PointsToAsset converts points to asset units at the current rate, failing
// when the rate is stale.
func (e *Engine) PointsToAsset(points uint64, now uint64) (uint64, error) {
	rate, err := e.freshRate(now)
	if err != nil {
		return 0, err
	}
	return ConvertPointsToAsset(points, rate.Value, rate.Decimals)
}

// AssetToPoints converts asset units to points at the current rate, failing
// when the rate is stale.
func (e *Engine) AssetToPoints(asset uint64, now uint64) (uint64, error) {
	rate, err := e.freshRate(now)
	if err != nil {
		return 0, err
	}
	return ConvertAssetToPoints(asset, rate.Value, rate.Decimals)
}

// IsStale reports the freshness of the stored rate without converting.
func (e *Engine) IsStale(now uint64) (bool, error) {
	rate, err := e.loadRate()
	if err != nil {
		return true, err
	}
	return rate.IsStale(now), nil
}

// CurrentRate returns a copy of the stored rate record.
func (e *Engine) CurrentRate() (*Rate, error) {
	rate, err := e.loadRate()
	if err != nil {
		return nil, err
	}
	return rate.Clone(), nil
}
