package indexer

import (
	"math"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestSplitRange(t *testing.T) {
	cases := []struct {
		name            string
		from, to, batch uint64
		want            []BlockRange
	}{
		{"even", 100, 105, 2, []BlockRange{{100, 101}, {102, 103}, {104, 105}}},
		{"remainder", 1, 9, 4, []BlockRange{{1, 4}, {5, 8}, {9, 9}}},
		{"single block", 5, 5, 10, []BlockRange{{5, 5}}},
		{"batch covers range", 0, 999, 1000, []BlockRange{{0, 999}}},
		{"near max", math.MaxUint64 - 2, math.MaxUint64, 2, []BlockRange{{math.MaxUint64 - 2, math.MaxUint64 - 1}, {math.MaxUint64, math.MaxUint64}}},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got, err := SplitRange(tc.from, tc.to, tc.batch)
			require.NoError(t, err)
			require.Equal(t, tc.want, got)
		})
	}
}

func TestSplitRangeInvalid(t *testing.T) {
	_, err := SplitRange(10, 9, 1)
	require.Error(t, err)
	_, err = SplitRange(1, 10, 0)
	require.Error(t, err)
}

func TestBlockRangeContains(t *testing.T) {
	r := BlockRange{From: 10, To: 20}
	require.True(t, r.Contains(10))
	require.True(t, r.Contains(20))
	require.False(t, r.Contains(9))
	require.False(t, r.Contains(21))
}
