package events

import (
	"encoding/hex"
	"strconv"

	"alphaledger/crypto"
)

func formatAmount(amount uint64) string {
	return strconv.FormatUint(amount, 10)
}

func formatAddress(addr crypto.Address) string {
	if addr.IsZero() {
		return ""
	}
	return addr.String()
}

func formatID(id [32]byte) string {
	return hex.EncodeToString(id[:])
}
