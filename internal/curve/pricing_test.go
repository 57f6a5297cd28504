package curve

import (
	"math/big"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/raffleworks/raffled/internal/domain"
)

func steps(pairs ...uint64) []domain.BondStep {
	out := make([]domain.BondStep, 0, len(pairs)/2)
	for i := 0; i+1 < len(pairs); i += 2 {
		out = append(out, domain.BondStep{
			RangeTo: pairs[i],
			Price:   new(big.Int).SetUint64(pairs[i+1]),
		})
	}
	return out
}

func TestBuyQuote(t *testing.T) {
	t.Parallel()

	// 0-99 @ 10, 100-249 @ 25, 250-999 @ 40
	schedule := steps(100, 10, 250, 25, 1000, 40)

	tests := []struct {
		name          string
		amount        uint64
		currentSupply uint64
		want          uint64
	}{
		{"zero amount is free", 0, 500, 0},
		{"single step", 10, 0, 100},
		{"ends exactly at step boundary", 100, 0, 1000},
		{"starts exactly at step boundary", 50, 100, 1250},
		{"spans two steps", 50, 80, 20*10 + 30*25},
		{"spans all three steps", 300, 50, 50*10 + 150*25 + 100*40},
		{"entirely in last step", 5, 400, 200},
		{"runs past the schedule stops accumulating", 100, 950, 50 * 40},
		{"entirely past the schedule costs zero", 10, 2000, 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			got, err := BuyQuote(tt.amount, tt.currentSupply, schedule)
			require.NoError(t, err)
			require.Equal(t, new(big.Int).SetUint64(tt.want), got)
		})
	}
}

func TestBuyQuoteErrors(t *testing.T) {
	t.Parallel()

	t.Run("empty schedule", func(t *testing.T) {
		t.Parallel()
		got, err := BuyQuote(5, 0, nil)
		require.ErrorIs(t, err, domain.ErrNoPriceSteps)
		require.Zero(t, got.Sign())
	})

	t.Run("non-ascending bounds", func(t *testing.T) {
		t.Parallel()
		bad := steps(100, 10, 100, 25)
		got, err := BuyQuote(150, 0, bad)
		require.ErrorIs(t, err, domain.ErrMalformedSteps)
		require.Zero(t, got.Sign())
	})

	t.Run("nil price in a touched step", func(t *testing.T) {
		t.Parallel()
		bad := []domain.BondStep{
			{RangeTo: 100, Price: big.NewInt(10)},
			{RangeTo: 200, Price: nil},
		}
		got, err := BuyQuote(150, 0, bad)
		require.ErrorIs(t, err, domain.ErrMalformedSteps)
		require.Zero(t, got.Sign())
	})

	t.Run("nil price in an untouched step is ignored", func(t *testing.T) {
		t.Parallel()
		schedule := []domain.BondStep{
			{RangeTo: 100, Price: big.NewInt(10)},
			{RangeTo: 200, Price: nil},
		}
		got, err := BuyQuote(50, 0, schedule)
		require.NoError(t, err)
		require.Equal(t, big.NewInt(500), got)
	})
}

func TestSellQuote(t *testing.T) {
	t.Parallel()

	schedule := steps(100, 10, 250, 25, 1000, 40)

	t.Run("zero amount", func(t *testing.T) {
		t.Parallel()
		got, err := SellQuote(0, 500, schedule)
		require.NoError(t, err)
		require.Zero(t, got.Sign())
	})

	t.Run("sell within one step", func(t *testing.T) {
		t.Parallel()
		got, err := SellQuote(20, 80, schedule)
		require.NoError(t, err)
		require.Equal(t, big.NewInt(200), got)
	})

	t.Run("sell spanning steps", func(t *testing.T) {
		t.Parallel()
		// [90, 150): 10 @ 10 plus 50 @ 25
		got, err := SellQuote(60, 150, schedule)
		require.NoError(t, err)
		require.Equal(t, big.NewInt(10*10+50*25), got)
	})

	t.Run("selling more than supply", func(t *testing.T) {
		t.Parallel()
		got, err := SellQuote(501, 500, schedule)
		require.ErrorIs(t, err, domain.ErrInsufficientSupply)
		require.Zero(t, got.Sign())
	})

	t.Run("empty schedule", func(t *testing.T) {
		t.Parallel()
		_, err := SellQuote(5, 500, nil)
		require.ErrorIs(t, err, domain.ErrNoPriceSteps)
	})
}

// Price is a function of supply position, so an immediate round trip is
// value neutral.
func TestBuySellSymmetry(t *testing.T) {
	t.Parallel()

	schedule := steps(100, 10, 250, 25, 1000, 40)

	for _, supply := range []uint64{0, 50, 99, 100, 240, 700} {
		buy, err := BuyQuote(75, supply, schedule)
		require.NoError(t, err)
		sell, err := SellQuote(75, supply+75, schedule)
		require.NoError(t, err)
		require.Equal(t, buy, sell, "supply %d", supply)
	}
}
