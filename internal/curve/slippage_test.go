package curve

import (
	"math"
	"math/big"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestMinAfterSlippage(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name     string
		estimate int64
		pct      float64
		want     int64
	}{
		{"zero pct is identity", 10_000, 0, 10_000},
		{"half percent", 10_000, 0.5, 9_950},
		{"one percent", 10_000, 1, 9_900},
		{"fractional bps floor", 99, 1, 99},    // 99*100/10000 = 0 after floor
		{"hundred percent floors to zero", 10_000, 100, 0},
		{"over hundred clamps", 10_000, 250, 0},
		{"negative clamps to zero", 10_000, -5, 10_000},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			got := MinAfterSlippage(big.NewInt(tt.estimate), tt.pct)
			require.Zero(t, big.NewInt(tt.want).Cmp(got), "want %d, got %s", tt.want, got)
		})
	}

	t.Run("nil estimate", func(t *testing.T) {
		t.Parallel()
		require.Zero(t, MinAfterSlippage(nil, 1).Sign())
	})

	t.Run("NaN treated as zero", func(t *testing.T) {
		t.Parallel()
		got := MinAfterSlippage(big.NewInt(10_000), math.NaN())
		require.Equal(t, big.NewInt(10_000), got)
	})

	t.Run("input not mutated", func(t *testing.T) {
		t.Parallel()
		in := big.NewInt(10_000)
		_ = MinAfterSlippage(in, 5)
		require.Equal(t, big.NewInt(10_000), in)
	})
}

func TestMaxWithSlippage(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name     string
		estimate int64
		pct      float64
		want     int64
	}{
		{"zero pct is identity", 10_000, 0, 10_000},
		{"half percent", 10_000, 0.5, 10_050},
		{"hundred percent doubles", 10_000, 100, 20_000},
		{"fractional bps floor", 33, 0.5, 33}, // 33*50/10000 = 0 after floor
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			got := MaxWithSlippage(big.NewInt(tt.estimate), tt.pct)
			require.Equal(t, big.NewInt(tt.want), got)
		})
	}

	t.Run("never below the estimate", func(t *testing.T) {
		t.Parallel()
		for _, pct := range []float64{-10, 0, 0.01, 3, 100, 9999} {
			got := MaxWithSlippage(big.NewInt(777), pct)
			require.GreaterOrEqual(t, got.Cmp(big.NewInt(777)), 0, "pct %g", pct)
		}
	})

	t.Run("nil estimate", func(t *testing.T) {
		t.Parallel()
		require.Zero(t, MaxWithSlippage(nil, 1).Sign())
	})
}
