package epoch

import "testing"

func TestEpochOf(t *testing.T) {
	cfg := DefaultConfig()
	if got := cfg.EpochOf(0); got != 0 {
		t.Fatalf("epoch of 0: %d", got)
	}
	if got := cfg.EpochOf(86_399); got != 0 {
		t.Fatalf("epoch at end of first day: %d", got)
	}
	if got := cfg.EpochOf(86_400); got != 1 {
		t.Fatalf("epoch at start of second day: %d", got)
	}
}

func TestElapsedCountsWholeEpochBoundaries(t *testing.T) {
	cfg := Config{LengthSeconds: 100}
	cases := []struct {
		from, to, want uint64
	}{
		{0, 0, 0},
		{50, 40, 0},
		{0, 99, 0},
		{0, 100, 1},
		{99, 100, 1},
		{0, 1_000, 10},
		{150, 250, 1},
	}
	for _, tc := range cases {
		if got := cfg.Elapsed(tc.from, tc.to); got != tc.want {
			t.Fatalf("elapsed(%d, %d) = %d, want %d", tc.from, tc.to, got, tc.want)
		}
	}
}

func TestNormalizeDefaultsZeroLength(t *testing.T) {
	if got := (Config{}).Normalize().LengthSeconds; got != DefaultLengthSeconds {
		t.Fatalf("normalized length: %d", got)
	}
}
