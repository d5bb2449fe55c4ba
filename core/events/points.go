package events

import (
	"alphaledger/core/types"
	"alphaledger/crypto"
)

const (
	// TypePointsEarned is emitted when points are credited to an account.
	TypePointsEarned = "points.earned"
	// TypePointsSpent is emitted when points are debited and burned.
	TypePointsSpent = "points.spent"
	// TypePointsLocked is emitted when available points move into the locked
	// bucket.
	TypePointsLocked = "points.locked"
	// TypePointsUnlocked is emitted when locked points move back to available.
	TypePointsUnlocked = "points.unlocked"
	// TypeBadDebtAdded is emitted when a shortfall is booked against an
	// account.
	TypeBadDebtAdded = "points.badDebtAdded"
	// TypeBadDebtRepaid is emitted when an account pays down its shortfall.
	TypeBadDebtRepaid = "points.badDebtRepaid"
)

// PointsEarned captures a credit to an account's available balance.
type PointsEarned struct {
	User   crypto.Address
	Amount uint64
	Supply uint64
}

// EventType satisfies the Event interface.
func (PointsEarned) EventType() string { return TypePointsEarned }

// Event converts the structured payload into a broadcastable event.
func (e PointsEarned) Event() *types.Event {
	return &types.Event{Type: TypePointsEarned, Attributes: map[string]string{
		"user":   formatAddress(e.User),
		"amount": formatAmount(e.Amount),
		"supply": formatAmount(e.Supply),
	}}
}

// PointsSpent captures a debit from an account's available balance.
type PointsSpent struct {
	User   crypto.Address
	Amount uint64
	Supply uint64
}

// EventType satisfies the Event interface.
func (PointsSpent) EventType() string { return TypePointsSpent }

// Event converts the structured payload into a broadcastable event.
func (e PointsSpent) Event() *types.Event {
	return &types.Event{Type: TypePointsSpent, Attributes: map[string]string{
		"user":   formatAddress(e.User),
		"amount": formatAmount(e.Amount),
		"supply": formatAmount(e.Supply),
	}}
}

// PointsLocked captures a transfer from available to locked balance.
type PointsLocked struct {
	User   crypto.Address
	Amount uint64
}

// EventType satisfies the Event interface.
func (PointsLocked) EventType() string { return TypePointsLocked }

// Event converts the structured payload into a broadcastable event.
func (e PointsLocked) Event() *types.Event {
	return &types.Event{Type: TypePointsLocked, Attributes: map[string]string{
		"user":   formatAddress(e.User),
		"amount": formatAmount(e.Amount),
	}}
}

// PointsUnlocked captures a transfer from locked back to available balance.
type PointsUnlocked struct {
	User   crypto.Address
	Amount uint64
}

// EventType satisfies the Event interface.
func (PointsUnlocked) EventType() string { return TypePointsUnlocked }

// Event converts the structured payload into a broadcastable event.
func (e PointsUnlocked) Event() *types.Event {
	return &types.Event{Type: TypePointsUnlocked, Attributes: map[string]string{
		"user":   formatAddress(e.User),
		"amount": formatAmount(e.Amount),
	}}
}

// BadDebtAdded captures a shortfall booked against an account.
type BadDebtAdded struct {
	User   crypto.Address
	Amount uint64
	Total  uint64
}

// EventType satisfies the Event interface.
func (BadDebtAdded) EventType() string { return TypeBadDebtAdded }

// Event converts the structured payload into a broadcastable event.
func (e BadDebtAdded) Event() *types.Event {
	return &types.Event{Type: TypeBadDebtAdded, Attributes: map[string]string{
		"user":   formatAddress(e.User),
		"amount": formatAmount(e.Amount),
		"total":  formatAmount(e.Total),
	}}
}

// BadDebtRepaid captures a repayment against an outstanding shortfall.
type BadDebtRepaid struct {
	User      crypto.Address
	Amount    uint64
	Remaining uint64
}

// EventType satisfies the Event interface.
func (BadDebtRepaid) EventType() string { return TypeBadDebtRepaid }

// Event converts the structured payload into a broadcastable event.
func (e BadDebtRepaid) Event() *types.Event {
	return &types.Event{Type: TypeBadDebtRepaid, Attributes: map[string]string{
		"user":      formatAddress(e.User),
		"amount":    formatAmount(e.Amount),
		"remaining": formatAmount(e.Remaining),
	}}
}
