package events

import (
	"strconv"

	"alphaledger/core/types"
	"alphaledger/crypto"
)

const (
	// TypeStakeCreated is emitted when a deposit opens a stake position.
	TypeStakeCreated = "stake.created"
	// TypeStakeRedeemed is emitted when a matured position is redeemed.
	TypeStakeRedeemed = "stake.redeemed"
	// TypeStakeForfeited is emitted when an expired position is removed by an
	// administrator.
	TypeStakeForfeited = "stake.forfeited"
	// TypeStakeAccrualClaimed is emitted when accrued points are claimed
	// without destroying the position.
	TypeStakeAccrualClaimed = "stake.accrualClaimed"
)

// StakeCreated captures a new stake position.
type StakeCreated struct {
	PositionID [32]byte
	Owner      crypto.Address
	Principal  uint64
	UnlockTime uint64
	ExpiryTime uint64
}

// EventType satisfies the Event interface.
func (StakeCreated) EventType() string { return TypeStakeCreated }

// Event converts the structured payload into a broadcastable event.
func (e StakeCreated) Event() *types.Event {
	return &types.Event{Type: TypeStakeCreated, Attributes: map[string]string{
		"positionId": formatID(e.PositionID),
		"owner":      formatAddress(e.Owner),
		"amount":     formatAmount(e.Principal),
		"unlockTime": strconv.FormatUint(e.UnlockTime, 10),
		"expiryTime": strconv.FormatUint(e.ExpiryTime, 10),
	}}
}

// StakeRedeemed captures a redeemed position and the points credited on exit.
type StakeRedeemed struct {
	PositionID     [32]byte
	Owner          crypto.Address
	Principal      uint64
	PointsAccrued  uint64
}

// EventType satisfies the Event interface.
func (StakeRedeemed) EventType() string { return TypeStakeRedeemed }

// Event converts the structured payload into a broadcastable event.
func (e StakeRedeemed) Event() *types.Event {
	return &types.Event{Type: TypeStakeRedeemed, Attributes: map[string]string{
		"positionId": formatID(e.PositionID),
		"owner":      formatAddress(e.Owner),
		"amount":     formatAmount(e.Principal),
		"accrued":    formatAmount(e.PointsAccrued),
	}}
}

// StakeForfeited captures an administrative removal of an expired position.
type StakeForfeited struct {
	PositionID [32]byte
	Owner      crypto.Address
	Principal  uint64
}

// EventType satisfies the Event interface.
func (StakeForfeited) EventType() string { return TypeStakeForfeited }

// Event converts the structured payload into a broadcastable event.
func (e StakeForfeited) Event() *types.Event {
	return &types.Event{Type: TypeStakeForfeited, Attributes: map[string]string{
		"positionId": formatID(e.PositionID),
		"owner":      formatAddress(e.Owner),
		"amount":     formatAmount(e.Principal),
	}}
}

// StakeAccrualClaimed captures a partial accrual claim on a live position.
type StakeAccrualClaimed struct {
	PositionID    [32]byte
	Owner         crypto.Address
	PointsAccrued uint64
	ClaimedAt     uint64
}

// EventType satisfies the Event interface.
func (StakeAccrualClaimed) EventType() string { return TypeStakeAccrualClaimed }

// Event converts the structured payload into a broadcastable event.
func (e StakeAccrualClaimed) Event() *types.Event {
	return &types.Event{Type: TypeStakeAccrualClaimed, Attributes: map[string]string{
		"positionId": formatID(e.PositionID),
		"owner":      formatAddress(e.Owner),
		"accrued":    formatAmount(e.PointsAccrued),
		"claimedAt":  strconv.FormatUint(e.ClaimedAt, 10),
	}}
}
