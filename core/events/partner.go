package events

import (
	"alphaledger/core/types"
	"alphaledger/crypto"
)

const (
	// TypePartnerCollateralRegistered is emitted when TVL collateral backing
	// a partner's quota is registered or increased.
	TypePartnerCollateralRegistered = "partner.collateralRegistered"
	// TypePartnerMinted is emitted when a partner mints points under quota.
	TypePartnerMinted = "partner.minted"
	// TypePartnerRevenueShared is emitted when perk revenue is split between
	// the partner, the reinvestment pool and the platform.
	TypePartnerRevenueShared = "partner.revenueShared"
)

// PartnerCollateralRegistered captures a collateral registration.
type PartnerCollateralRegistered struct {
	Partner       crypto.Address
	ValueUSD      uint64
	LifetimeQuota uint64
	DailyQuota    uint64
}

// EventType satisfies the Event interface.
func (PartnerCollateralRegistered) EventType() string { return TypePartnerCollateralRegistered }

// Event converts the structured payload into a broadcastable event.
func (e PartnerCollateralRegistered) Event() *types.Event {
	return &types.Event{Type: TypePartnerCollateralRegistered, Attributes: map[string]string{
		"partner":       formatAddress(e.Partner),
		"valueUsd":      formatAmount(e.ValueUSD),
		"lifetimeQuota": formatAmount(e.LifetimeQuota),
		"dailyQuota":    formatAmount(e.DailyQuota),
	}}
}

// PartnerMinted captures a quota-backed mint to a user.
type PartnerMinted struct {
	Partner crypto.Address
	User    crypto.Address
	Amount  uint64
	Epoch   uint64
}

// EventType satisfies the Event interface.
func (PartnerMinted) EventType() string { return TypePartnerMinted }

// Event converts the structured payload into a broadcastable event.
func (e PartnerMinted) Event() *types.Event {
	return &types.Event{Type: TypePartnerMinted, Attributes: map[string]string{
		"partner": formatAddress(e.Partner),
		"user":    formatAddress(e.User),
		"amount":  formatAmount(e.Amount),
		"epoch":   formatAmount(e.Epoch),
	}}
}

// PartnerRevenueShared captures a revenue split on a perk sale.
type PartnerRevenueShared struct {
	Partner       crypto.Address
	Cost          uint64
	PartnerShare  uint64
	PlatformShare uint64
	ReinvestedUSD uint64
}

// EventType satisfies the Event interface.
func (PartnerRevenueShared) EventType() string { return TypePartnerRevenueShared }

// Event converts the structured payload into a broadcastable event.
func (e PartnerRevenueShared) Event() *types.Event {
	return &types.Event{Type: TypePartnerRevenueShared, Attributes: map[string]string{
		"partner":       formatAddress(e.Partner),
		"cost":          formatAmount(e.Cost),
		"partnerShare":  formatAmount(e.PartnerShare),
		"platformShare": formatAmount(e.PlatformShare),
		"reinvestedUsd": formatAmount(e.ReinvestedUSD),
	}}
}
