package trading

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func d(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

func TestRiskReward(t *testing.T) {
	cases := []struct {
		name                string
		entry, stop, target string
		want                string
	}{
		{"exact", "10.00", "9.00", "11.60", "1.6"},
		{"rounds half up", "10", "7", "15", "1.6667"},
		{"below threshold", "10", "9", "11.4", "1.4"},
		{"target below entry uses absolute reward", "10", "9", "8", "2"},
		{"stop above entry", "10", "11", "13", "3"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got, err := RiskReward(d(tc.entry), d(tc.stop), d(tc.target))
			require.NoError(t, err)
			assert.True(t, got.Equal(d(tc.want)), "got %s want %s", got, tc.want)
		})
	}

	t.Run("zero risk", func(t *testing.T) {
		_, err := RiskReward(d("10"), d("10"), d("12"))
		assert.ErrorIs(t, err, ErrZeroStopDistance)
	})
}

func TestMeetsMinimum(t *testing.T) {
	minRR := d("1.5")
	assert.True(t, MeetsMinimum(d("1.5"), minRR))
	assert.True(t, MeetsMinimum(d("1.6"), minRR))
	assert.False(t, MeetsMinimum(d("1.4999"), minRR))
}

func TestSizePosition(t *testing.T) {
	t.Run("already lot aligned", func(t *testing.T) {
		qty, err := SizePosition(d("10000"), d("10.00"), d("9.00"), 100)
		require.NoError(t, err)
		assert.Equal(t, int64(10000), qty)
	})

	t.Run("truncates to whole lots", func(t *testing.T) {
		// 10000 / 0.3 = 33333.33 -> 33333 -> 333 lots
		qty, err := SizePosition(d("10000"), d("10.3"), d("10"), 100)
		require.NoError(t, err)
		assert.Equal(t, int64(33300), qty)
	})

	t.Run("minimum one lot", func(t *testing.T) {
		qty, err := SizePosition(d("50"), d("100"), d("90"), 100)
		require.NoError(t, err)
		assert.Equal(t, int64(100), qty)
	})

	t.Run("zero stop distance", func(t *testing.T) {
		_, err := SizePosition(d("10000"), d("10"), d("10"), 100)
		assert.ErrorIs(t, err, ErrZeroStopDistance)
	})

	t.Run("always a positive lot multiple", func(t *testing.T) {
		budgets := []string{"1", "99.99", "1000", "10000", "123456.78"}
		diffs := []string{"0.01", "0.37", "1", "2.5", "300"}
		for _, b := range budgets {
			for _, diff := range diffs {
				entry := d("500")
				qty, err := SizePosition(d(b), entry, entry.Sub(d(diff)), 100)
				require.NoError(t, err)
				assert.True(t, IsLotMultiple(qty, 100), "budget=%s diff=%s qty=%d", b, diff, qty)
			}
		}
	})
}

func TestRiskBudgetAmount(t *testing.T) {
	b := RiskBudget{TotalCapital: d("1000000"), RiskFraction: d("0.01")}
	assert.True(t, b.Amount().Equal(d("10000")))
}

func TestIsLotMultiple(t *testing.T) {
	assert.True(t, IsLotMultiple(100, 100))
	assert.True(t, IsLotMultiple(10100, 100))
	assert.False(t, IsLotMultiple(0, 100))
	assert.False(t, IsLotMultiple(5, 100))
	assert.False(t, IsLotMultiple(-100, 100))
	assert.True(t, IsLotMultiple(200, 0), "non-positive lot falls back to default")
}

func TestWeightedAverage(t *testing.T) {
	got := WeightedAverage(d("10.00"), 10000, d("10.20"), 100)
	assert.Equal(t, "10.002", got.String())

	t.Run("identity within rounding", func(t *testing.T) {
		cases := []struct {
			a1 string
			q1 int64
			p2 string
			q2 int64
		}{
			{"10", 100, "11", 300},
			{"7.3333", 700, "6.1", 1300},
			{"153.27", 200, "149.99", 100},
			{"0.51", 90000, "0.49", 10000},
		}
		tolerance := d("0.00005")
		for _, tc := range cases {
			avg := WeightedAverage(d(tc.a1), tc.q1, d(tc.p2), tc.q2)
			lhs := avg.Mul(decimal.NewFromInt(tc.q1 + tc.q2))
			rhs := d(tc.a1).Mul(decimal.NewFromInt(tc.q1)).Add(d(tc.p2).Mul(decimal.NewFromInt(tc.q2)))
			maxErr := tolerance.Mul(decimal.NewFromInt(tc.q1 + tc.q2))
			assert.True(t, lhs.Sub(rhs).Abs().LessThanOrEqual(maxErr), "avg=%s", avg)
		}
	})
}

func TestChunkPnL(t *testing.T) {
	assert.True(t, ChunkPnL(d("11.00"), d("10.0020"), 5000).Equal(d("4990")))
	assert.True(t, ChunkPnL(d("11.50"), d("10.0020"), 5100).Equal(d("7639.8")))
	assert.True(t, ChunkPnL(d("9.5"), d("10"), 200).Equal(d("-100")))
}

func TestChunkPnLReconciles(t *testing.T) {
	avg := d("12.3457")
	exit := d("13.01")
	chunks := []int64{300, 1200, 500}
	var total int64
	sum := decimal.Zero
	for _, q := range chunks {
		sum = sum.Add(ChunkPnL(exit, avg, q))
		total += q
	}
	assert.True(t, sum.Equal(exit.Sub(avg).Mul(decimal.NewFromInt(total))))
}

func TestPercentOf(t *testing.T) {
	assert.Equal(t, "9.98", PercentOf(d("0.998"), d("10.002"), 2).String())
	assert.True(t, PercentOf(d("1"), decimal.Zero, 2).IsZero())
}
