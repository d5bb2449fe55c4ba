package epoch

// DefaultLengthSeconds is the epoch length applied when a configuration does
// not override it: one day, matching the daily quota reset cadence.
const DefaultLengthSeconds uint64 = 86_400

// Config derives discrete epoch identifiers from the externally supplied
// clock. The ledger core never reads wall-clock time itself; callers pass unix
// timestamps in and epochs fall out of this division.
type Config struct {
	// LengthSeconds is the duration of one epoch in seconds.
	LengthSeconds uint64
}

// DefaultConfig returns the daily epoch configuration.
func DefaultConfig() Config {
	return Config{LengthSeconds: DefaultLengthSeconds}
}

// Normalize coerces a zero length to the default so EpochOf never divides by
// zero.
func (c Config) Normalize() Config {
	if c.LengthSeconds == 0 {
		c.LengthSeconds = DefaultLengthSeconds
	}
	return c
}

// EpochOf returns the epoch identifier containing the supplied unix timestamp.
func (c Config) EpochOf(now uint64) uint64 {
	length := c.LengthSeconds
	if length == 0 {
		length = DefaultLengthSeconds
	}
	return now / length
}

// Elapsed returns the number of whole epochs between two timestamps. The
// result is zero when `to` does not come after `from`.
func (c Config) Elapsed(from, to uint64) uint64 {
	if to <= from {
		return 0
	}
	start := c.EpochOf(from)
	end := c.EpochOf(to)
	if end <= start {
		return 0
	}
	return end - start
}
