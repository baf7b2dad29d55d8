package liquidity_test

import (
	"math/big"
	"testing"

	"github.com/CubeConsumerServicesPvtLtd/tikkatokenerc20/liquidity"
	"github.com/stretchr/testify/require"
)

func testSchedule(start uint64) *liquidity.Schedule {
	return &liquidity.Schedule{
		ID:            liquidity.ScheduleID("9c4d01f62b7a83655c2e9a0f41d8b3726ea5c099", 0),
		Beneficiary:   "9c4d01f62b7a83655c2e9a0f41d8b3726ea5c099",
		Start:         start,
		AmountPerTerm: "100",
		TermDuration:  100,
		TotalAmount:   "1000",
		Released:      "0",
		Revocable:     true,
	}
}

func TestReleasable(t *testing.T) {
	t.Parallel()

	const start = uint64(1_700_000_000)

	tests := []struct {
		name     string
		mutate   func(*liquidity.Schedule)
		now      uint64
		expected string
	}{
		{
			name:     "zero before start",
			now:      start - 1,
			expected: "0",
		},
		{
			name:     "zero before first full term",
			now:      start + 99,
			expected: "0",
		},
		{
			name:     "one full term",
			now:      start + 100,
			expected: "100",
		},
		{
			name:     "partial terms floor",
			now:      start + 250,
			expected: "200",
		},
		{
			name: "released is subtracted",
			mutate: func(s *liquidity.Schedule) {
				s.Released = "200"
			},
			now:      start + 350,
			expected: "100",
		},
		{
			name:     "capped at total amount",
			now:      start + 100_000,
			expected: "1000",
		},
		{
			name: "capped at total minus released",
			mutate: func(s *liquidity.Schedule) {
				s.Released = "300"
			},
			now:      start + 100_000,
			expected: "700",
		},
		{
			name: "revoked schedules release nothing",
			mutate: func(s *liquidity.Schedule) {
				s.Revoked = true
			},
			now:      start + 250,
			expected: "0",
		},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			schedule := testSchedule(start)
			if tt.mutate != nil {
				tt.mutate(schedule)
			}

			amount, err := liquidity.Releasable(schedule, tt.now)
			require.NoError(t, err)
			require.Equal(t, tt.expected, amount.String())
		})
	}
}

func TestReleasableIsIdempotent(t *testing.T) {
	t.Parallel()

	schedule := testSchedule(1_700_000_000)
	now := uint64(1_700_000_000 + 250)

	first, err := liquidity.Releasable(schedule, now)
	require.NoError(t, err)
	second, err := liquidity.Releasable(schedule, now)
	require.NoError(t, err)
	require.Equal(t, first.String(), second.String())
}

func TestReleasablePlusReleasedNeverExceedsTotal(t *testing.T) {
	t.Parallel()

	const start = uint64(1_700_000_000)
	total := big.NewInt(1000)

	for _, released := range []string{"0", "100", "500", "1000"} {
		for _, offset := range []uint64{0, 1, 99, 100, 250, 1000, 10_000, 1_000_000} {
			releasedInt, ok := new(big.Int).SetString(released, 10)
			require.True(t, ok)

			// Releases only happen out of the vested amount, so states where
			// released exceeds vested(now) are unreachable and rejected.
			vested := big.NewInt(int64(offset / 100 * 100))
			if vested.Cmp(total) > 0 {
				vested.Set(total)
			}
			schedule := testSchedule(start)
			schedule.Released = released

			if releasedInt.Cmp(vested) > 0 {
				_, err := liquidity.Releasable(schedule, start+offset)
				require.Error(t, err)
				continue
			}

			releasable, err := liquidity.Releasable(schedule, start+offset)
			require.NoError(t, err)

			sum := new(big.Int).Add(releasable, releasedInt)
			require.LessOrEqual(t, sum.Cmp(total), 0,
				"releasable %s + released %s exceeds total at offset %d", releasable, released, offset)
		}
	}
}

func TestReleasableRejectsCorruptRecords(t *testing.T) {
	t.Parallel()

	const start = uint64(1_700_000_000)

	tests := []struct {
		name   string
		mutate func(*liquidity.Schedule)
	}{
		{
			name: "zero amount per term",
			mutate: func(s *liquidity.Schedule) {
				s.AmountPerTerm = "0"
			},
		},
		{
			name: "malformed total amount",
			mutate: func(s *liquidity.Schedule) {
				s.TotalAmount = "not-a-number"
			},
		},
		{
			name: "zero term duration",
			mutate: func(s *liquidity.Schedule) {
				s.TermDuration = 0
			},
		},
		{
			name: "released beyond vested",
			mutate: func(s *liquidity.Schedule) {
				s.Released = "900"
			},
		},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			schedule := testSchedule(start)
			tt.mutate(schedule)

			_, err := liquidity.Releasable(schedule, start+250)
			require.Error(t, err)
		})
	}
}

func TestScheduleIDIsDeterministicAndUnique(t *testing.T) {
	t.Parallel()

	a := liquidity.ScheduleID("9c4d01f62b7a83655c2e9a0f41d8b3726ea5c099", 0)
	b := liquidity.ScheduleID("9c4d01f62b7a83655c2e9a0f41d8b3726ea5c099", 0)
	c := liquidity.ScheduleID("9c4d01f62b7a83655c2e9a0f41d8b3726ea5c099", 1)
	d := liquidity.ScheduleID("1f0a88d3c54be97210ffe6b3a8d2047c9e165b22", 0)

	require.Equal(t, a, b)
	require.NotEqual(t, a, c)
	require.NotEqual(t, a, d)
	require.Len(t, a, 64)
}
