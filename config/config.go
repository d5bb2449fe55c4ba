package config

import (
	"fmt"
	"os"

	"github.com/BurntSushi/toml"
)

// Config captures the node-level settings loaded at startup.
type Config struct {
	ListenAddress string   `toml:"ListenAddress"`
	DataDir       string   `toml:"DataDir"`
	Protocol      Protocol `toml:"protocol"`
	Pauses        Pauses   `toml:"pauses"`
}

// Protocol holds the economic parameters of the ledger. Rates are annual
// basis points; durations are seconds.
type Protocol struct {
	MaxLTVBps              uint64 `toml:"MaxLTVBps"`
	OriginationFeeBps      uint64 `toml:"OriginationFeeBps"`
	InterestRateBps        uint64 `toml:"InterestRateBps"`
	AccrualRateBps         uint64 `toml:"AccrualRateBps"`
	GracePeriodSeconds     uint64 `toml:"GracePeriodSeconds"`
	EpochLengthSeconds     uint64 `toml:"EpochLengthSeconds"`
	EpochsPerYear          uint64 `toml:"EpochsPerYear"`
	OracleDecimals         uint8  `toml:"OracleDecimals"`
	OracleStalenessSeconds uint64 `toml:"OracleStalenessSeconds"`
	FeeCollector           string `toml:"FeeCollector"`
	PlatformAccount        string `toml:"PlatformAccount"`
}

// Pauses disables individual modules at runtime. A paused module rejects
// mutating operations until the flag clears.
type Pauses struct {
	Points  bool `toml:"Points"`
	Stake   bool `toml:"Stake"`
	Loan    bool `toml:"Loan"`
	Partner bool `toml:"Partner"`
}

// IsPaused reports whether the named module is paused.
func (p Pauses) IsPaused(module string) bool {
	switch module {
	case "points":
		return p.Points
	case "stake":
		return p.Stake
	case "loan":
		return p.Loan
	case "partner":
		return p.Partner
	default:
		return false
	}
}

// Default returns the configuration used when no file overrides it.
func Default() Config {
	return Config{
		ListenAddress: ":8645",
		DataDir:       "./data",
		Protocol: Protocol{
			MaxLTVBps:              7_000,
			OriginationFeeBps:      100,
			InterestRateBps:        1_000,
			AccrualRateBps:         500,
			GracePeriodSeconds:     604_800,
			EpochLengthSeconds:     86_400,
			EpochsPerYear:          365,
			OracleDecimals:         6,
			OracleStalenessSeconds: 300,
		},
	}
}

// Load reads a TOML configuration file, applying defaults for any setting
// the file omits. A missing file yields the defaults.
func Load(path string) (Config, error) {
	cfg := Default()
	if path == "" {
		return cfg, cfg.Validate()
	}
	if _, err := os.Stat(path); os.IsNotExist(err) {
		return cfg, cfg.Validate()
	}
	if _, err := toml.DecodeFile(path, &cfg); err != nil {
		return Config{}, fmt.Errorf("config: decode %s: %w", path, err)
	}
	return cfg, cfg.Validate()
}
