package events

import (
	"math/big"
	"strconv"

	"alphaledger/core/types"
)

// TypeOracleRateUpdated is emitted when the authorized feed refreshes the
// point/asset conversion rate.
const TypeOracleRateUpdated = "oracle.rateUpdated"

// OracleRateUpdated captures a rate refresh.
type OracleRateUpdated struct {
	Rate      *big.Int
	Decimals  uint8
	UpdatedAt uint64
}

// EventType satisfies the Event interface.
func (OracleRateUpdated) EventType() string { return TypeOracleRateUpdated }

// Event converts the structured payload into a broadcastable event.
func (e OracleRateUpdated) Event() *types.Event {
	attrs := map[string]string{
		"decimals":  strconv.FormatUint(uint64(e.Decimals), 10),
		"updatedAt": strconv.FormatUint(e.UpdatedAt, 10),
	}
	if e.Rate != nil {
		attrs["rate"] = e.Rate.String()
	}
	return &types.Event{Type: TypeOracleRateUpdated, Attributes: attrs}
}
