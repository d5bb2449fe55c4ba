package config

import (
	"errors"
	"fmt"

	"alphaledger/crypto"
)

var (
	errLTVRange      = errors.New("config: MaxLTVBps must be between 1 and 10000")
	errFeeRange      = errors.New("config: OriginationFeeBps must not exceed 10000")
	errEpochLength   = errors.New("config: EpochLengthSeconds must be positive")
	errEpochsPerYear = errors.New("config: EpochsPerYear must be positive")
	errDecimals      = errors.New("config: OracleDecimals must not exceed 38")
)

// Validate checks the economic parameters for internal consistency.
func (c Config) Validate() error {
	p := c.Protocol
	if p.MaxLTVBps == 0 || p.MaxLTVBps > 10_000 {
		return errLTVRange
	}
	if p.OriginationFeeBps > 10_000 {
		return errFeeRange
	}
	if p.EpochLengthSeconds == 0 {
		return errEpochLength
	}
	if p.EpochsPerYear == 0 {
		return errEpochsPerYear
	}
	if p.OracleDecimals > 38 {
		return errDecimals
	}
	if p.FeeCollector != "" {
		if _, err := crypto.DecodeAddress(p.FeeCollector); err != nil {
			return fmt.Errorf("config: FeeCollector: %w", err)
		}
	}
	if p.PlatformAccount != "" {
		if _, err := crypto.DecodeAddress(p.PlatformAccount); err != nil {
			return fmt.Errorf("config: PlatformAccount: %w", err)
		}
	}
	return nil
}
