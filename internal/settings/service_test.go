package settings

import (
	"context"
	"testing"

	"tradejournal/internal/pkg/trading"
	"tradejournal/internal/store/memstore"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func d(s string) decimal.Decimal { return decimal.RequireFromString(s) }

func TestService(t *testing.T) {
	ctx := context.Background()
	defaults := trading.RiskBudget{TotalCapital: d("1000000"), RiskFraction: d("0.01")}

	t.Run("falls back to defaults", func(t *testing.T) {
		svc := NewService(memstore.New(), defaults)
		b, err := svc.RiskBudget(ctx)
		require.NoError(t, err)
		assert.True(t, b.Amount().Equal(d("10000")))
	})

	t.Run("seed then update", func(t *testing.T) {
		svc := NewService(memstore.New(), defaults)
		require.NoError(t, svc.EnsureDefaults(ctx))

		view, err := svc.Update(ctx, trading.RiskBudget{TotalCapital: d("200000"), RiskFraction: d("0.02")})
		require.NoError(t, err)
		assert.True(t, view.RiskAmount.Equal(d("4000")))

		require.NoError(t, svc.EnsureDefaults(ctx), "seeding must not overwrite")
		got, err := svc.Get(ctx)
		require.NoError(t, err)
		assert.True(t, got.TotalCapital.Equal(d("200000")))
	})

	t.Run("bounds", func(t *testing.T) {
		svc := NewService(memstore.New(), defaults)
		cases := []trading.RiskBudget{
			{TotalCapital: d("999.99"), RiskFraction: d("0.01")},
			{TotalCapital: d("1000000000000"), RiskFraction: d("0.01")},
			{TotalCapital: d("10000"), RiskFraction: d("0.0009")},
			{TotalCapital: d("10000"), RiskFraction: d("0.11")},
		}
		for _, b := range cases {
			_, err := svc.Update(ctx, b)
			assert.ErrorIs(t, err, ErrInvalidSettings)
		}
		assert.NoError(t, Validate(trading.RiskBudget{TotalCapital: d("1000"), RiskFraction: d("0.1")}))
	})
}
