// Package storetest holds a behavioural suite shared by every store.Store implementation.
package storetest

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"tradejournal/internal/pkg/trading"
	"tradejournal/internal/plan"
	"tradejournal/internal/store"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// Factory returns a fresh, empty store for one subtest.
type Factory func(t *testing.T) store.Store

func d(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

func samplePlan(symbol string, created time.Time) *plan.Plan {
	return &plan.Plan{
		Symbol:          symbol,
		Direction:       plan.DirectionLong,
		EntryPrice:      d("10.00"),
		StopLoss:        d("9.00"),
		TakeProfit:      d("11.60"),
		PositionSize:    10000,
		RiskRewardRatio: d("1.6"),
		EntryRationale:  "breakout",
		Status:          plan.StatusPending,
		CreatedAt:       created,
		UpdatedAt:       created,
	}
}

// Run exercises the repository contract.
func Run(t *testing.T, newStore Factory) {
	base := time.Date(2024, 3, 1, 9, 30, 0, 0, time.UTC)

	t.Run("plan round trip keeps decimals exact", func(t *testing.T) {
		s := newStore(t)
		ctx := context.Background()
		p := samplePlan("600519", base)
		require.NoError(t, store.WithTx(ctx, s, func(uow store.UnitOfWork) error {
			return uow.Plans().Create(ctx, p)
		}))
		require.NotZero(t, p.ID)

		p.AvgEntryPrice = decimal.NewNullDecimal(d("10.0020"))
		p.RealizedPnL = decimal.NewNullDecimal(d("4990.0000"))
		p.TotalQuantity, p.CurrentQuantity = 10100, 5100
		p.Status = plan.StatusOpen
		require.NoError(t, store.WithTx(ctx, s, func(uow store.UnitOfWork) error {
			return uow.Plans().Update(ctx, p)
		}))

		var got *plan.Plan
		require.NoError(t, store.ReadOnly(ctx, s, func(uow store.UnitOfWork) error {
			var err error
			got, err = uow.Plans().Get(ctx, p.ID)
			return err
		}))
		assert.Equal(t, "600519", got.Symbol)
		assert.True(t, got.AvgEntryPrice.Valid)
		assert.True(t, got.AvgEntryPrice.Decimal.Equal(d("10.002")))
		assert.True(t, got.RealizedPnL.Decimal.Equal(d("4990")))
		assert.True(t, got.RiskRewardRatio.Equal(d("1.6")))
		assert.Equal(t, int64(5100), got.CurrentQuantity)
		assert.Equal(t, plan.StatusOpen, got.Status)
		assert.True(t, got.CreatedAt.Equal(base))
	})

	t.Run("missing rows map to not found", func(t *testing.T) {
		s := newStore(t)
		ctx := context.Background()
		err := store.ReadOnly(ctx, s, func(uow store.UnitOfWork) error {
			_, err := uow.Plans().Get(ctx, 404)
			return err
		})
		assert.ErrorIs(t, err, plan.ErrNotFound)
		err = store.ReadOnly(ctx, s, func(uow store.UnitOfWork) error {
			_, err := uow.Executions().Get(ctx, 404)
			return err
		})
		assert.ErrorIs(t, err, plan.ErrNotFound)
		err = store.WithTx(ctx, s, func(uow store.UnitOfWork) error {
			return uow.Plans().Delete(ctx, 404)
		})
		assert.ErrorIs(t, err, plan.ErrNotFound)
	})

	t.Run("rollback discards every write", func(t *testing.T) {
		s := newStore(t)
		ctx := context.Background()
		p := samplePlan("000001", base)
		err := store.WithTx(ctx, s, func(uow store.UnitOfWork) error {
			if err := uow.Plans().Create(ctx, p); err != nil {
				return err
			}
			if err := uow.Transactions().Append(ctx, &plan.Transaction{PlanID: p.ID, Type: plan.TxnInitialEntry, Price: d("10"), Quantity: 100, ExecutedAt: base}); err != nil {
				return err
			}
			return plan.ErrDisciplineViolation
		})
		require.ErrorIs(t, err, plan.ErrDisciplineViolation)

		require.NoError(t, store.ReadOnly(ctx, s, func(uow store.UnitOfWork) error {
			pending, err := uow.Plans().ListByStatus(ctx, plan.StatusPending)
			require.NoError(t, err)
			assert.Empty(t, pending)
			txns, err := uow.Transactions().ListByPlan(ctx, p.ID)
			require.NoError(t, err)
			assert.Empty(t, txns)
			return nil
		}))
	})

	t.Run("ledger ordered by time then id", func(t *testing.T) {
		s := newStore(t)
		ctx := context.Background()
		p := samplePlan("300750", base)
		require.NoError(t, store.WithTx(ctx, s, func(uow store.UnitOfWork) error {
			if err := uow.Plans().Create(ctx, p); err != nil {
				return err
			}
			rows := []plan.Transaction{
				{PlanID: p.ID, Type: plan.TxnPartialExit, Price: d("11"), Quantity: 100, ChunkPnL: decimal.NewNullDecimal(d("100")), ExecutedAt: base.Add(2 * time.Minute)},
				{PlanID: p.ID, Type: plan.TxnInitialEntry, Price: d("10"), Quantity: 200, ExecutedAt: base},
				{PlanID: p.ID, Type: plan.TxnAddPosition, Price: d("10.5"), Quantity: 100, ExecutedAt: base.Add(time.Minute)},
				{PlanID: p.ID, Type: plan.TxnFullExit, Price: d("11"), Quantity: 200, ChunkPnL: decimal.NewNullDecimal(d("133.3334")), ExecutedAt: base.Add(2 * time.Minute)},
			}
			for i := range rows {
				if err := uow.Transactions().Append(ctx, &rows[i]); err != nil {
					return err
				}
			}
			return nil
		}))

		var txns []plan.Transaction
		require.NoError(t, store.ReadOnly(ctx, s, func(uow store.UnitOfWork) error {
			var err error
			txns, err = uow.Transactions().ListByPlan(ctx, p.ID)
			return err
		}))
		require.Len(t, txns, 4)
		kinds := []plan.TxnType{txns[0].Type, txns[1].Type, txns[2].Type, txns[3].Type}
		assert.Equal(t, []plan.TxnType{plan.TxnInitialEntry, plan.TxnAddPosition, plan.TxnPartialExit, plan.TxnFullExit}, kinds)
		assert.False(t, txns[0].ChunkPnL.Valid)
		assert.True(t, txns[3].ChunkPnL.Decimal.Equal(d("133.3334")))
	})

	t.Run("review fields are written once", func(t *testing.T) {
		s := newStore(t)
		ctx := context.Background()
		p := samplePlan("AAPL", base)
		exec := &plan.Execution{ExitPrice: d("11.5"), RealizedPnL: d("12629.8"), ExitRationale: "target", ClosedAt: base}
		require.NoError(t, store.WithTx(ctx, s, func(uow store.UnitOfWork) error {
			if err := uow.Plans().Create(ctx, p); err != nil {
				return err
			}
			exec.PlanID = p.ID
			return uow.Executions().Create(ctx, exec)
		}))

		first := plan.Review{Score: 82, Comment: "disciplined exit", Model: "m1", Raw: json.RawMessage(`{"score":82}`), ReviewedAt: base.Add(time.Hour)}
		var updated bool
		require.NoError(t, store.WithTx(ctx, s, func(uow store.UnitOfWork) error {
			var err error
			updated, err = uow.Executions().SaveReview(ctx, exec.ID, first)
			return err
		}))
		assert.True(t, updated)

		require.NoError(t, store.WithTx(ctx, s, func(uow store.UnitOfWork) error {
			var err error
			updated, err = uow.Executions().SaveReview(ctx, exec.ID, plan.Review{Score: 10, Comment: "overwrite"})
			return err
		}))
		assert.False(t, updated)

		var got *plan.Execution
		require.NoError(t, store.ReadOnly(ctx, s, func(uow store.UnitOfWork) error {
			var err error
			got, err = uow.Executions().GetByPlan(ctx, p.ID)
			return err
		}))
		require.True(t, got.Reviewed())
		assert.Equal(t, 82, got.Review.Score)
		assert.Equal(t, "disciplined exit", got.Review.Comment)
		assert.JSONEq(t, `{"score":82}`, string(got.Review.Raw))
		assert.True(t, got.RealizedPnL.Equal(d("12629.8")))

		err := store.WithTx(ctx, s, func(uow store.UnitOfWork) error {
			_, err := uow.Executions().SaveReview(ctx, 999, first)
			return err
		})
		assert.ErrorIs(t, err, plan.ErrNotFound)
	})

	t.Run("executions newest first", func(t *testing.T) {
		s := newStore(t)
		ctx := context.Background()
		require.NoError(t, store.WithTx(ctx, s, func(uow store.UnitOfWork) error {
			for i, sym := range []string{"A", "B", "C"} {
				p := samplePlan(sym, base)
				if err := uow.Plans().Create(ctx, p); err != nil {
					return err
				}
				e := &plan.Execution{PlanID: p.ID, ExitPrice: d("1"), RealizedPnL: d("0"), ClosedAt: base.Add(time.Duration(i) * time.Hour)}
				if err := uow.Executions().Create(ctx, e); err != nil {
					return err
				}
			}
			return nil
		}))
		var execs []plan.Execution
		require.NoError(t, store.ReadOnly(ctx, s, func(uow store.UnitOfWork) error {
			var err error
			execs, err = uow.Executions().ListRecent(ctx)
			return err
		}))
		require.Len(t, execs, 3)
		assert.True(t, execs[0].ClosedAt.After(execs[1].ClosedAt))
		assert.True(t, execs[1].ClosedAt.After(execs[2].ClosedAt))
	})

	t.Run("list by status and symbol", func(t *testing.T) {
		s := newStore(t)
		ctx := context.Background()
		require.NoError(t, store.WithTx(ctx, s, func(uow store.UnitOfWork) error {
			for i, st := range []plan.Status{plan.StatusPending, plan.StatusOpen, plan.StatusPending, plan.StatusCancelled} {
				p := samplePlan("600000", base.Add(time.Duration(i)*time.Minute))
				p.Status = st
				if err := uow.Plans().Create(ctx, p); err != nil {
					return err
				}
			}
			return uow.Plans().Create(ctx, samplePlan("600001", base))
		}))
		require.NoError(t, store.ReadOnly(ctx, s, func(uow store.UnitOfWork) error {
			pending, err := uow.Plans().ListByStatus(ctx, plan.StatusPending)
			require.NoError(t, err)
			require.Len(t, pending, 3)
			assert.True(t, pending[0].CreatedAt.After(pending[1].CreatedAt) || pending[0].CreatedAt.Equal(pending[1].CreatedAt))
			bySymbol, err := uow.Plans().ListBySymbol(ctx, "600000")
			require.NoError(t, err)
			assert.Len(t, bySymbol, 4)
			return nil
		}))
	})

	t.Run("settings singleton", func(t *testing.T) {
		s := newStore(t)
		ctx := context.Background()
		require.NoError(t, store.ReadOnly(ctx, s, func(uow store.UnitOfWork) error {
			_, ok, err := uow.Settings().Get(ctx)
			require.NoError(t, err)
			assert.False(t, ok)
			return nil
		}))
		for _, capital := range []string{"1000000", "250000.5"} {
			budget := trading.RiskBudget{TotalCapital: d(capital), RiskFraction: d("0.02")}
			require.NoError(t, store.WithTx(ctx, s, func(uow store.UnitOfWork) error {
				return uow.Settings().Save(ctx, budget)
			}))
		}
		require.NoError(t, store.ReadOnly(ctx, s, func(uow store.UnitOfWork) error {
			got, ok, err := uow.Settings().Get(ctx)
			require.NoError(t, err)
			assert.True(t, ok)
			assert.True(t, got.TotalCapital.Equal(d("250000.5")))
			assert.True(t, got.RiskFraction.Equal(d("0.02")))
			return nil
		}))
	})
}
