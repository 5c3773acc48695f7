package dashboard

import (
	"context"
	"time"

	"tradejournal/internal/pkg/trading"
	"tradejournal/internal/plan"
	"tradejournal/internal/store"

	"github.com/shopspring/decimal"
)

// HistoryEntry 一笔已平仓交易。
type HistoryEntry struct {
	ExecutionID        int64           `json:"executionId"`
	PlanID             int64           `json:"planId"`
	Symbol             string          `json:"symbol"`
	Direction          plan.Direction  `json:"direction"`
	EntryPrice         decimal.Decimal `json:"entryPrice"`
	AvgEntryPrice      decimal.Decimal `json:"avgEntryPrice"`
	ExitPrice          decimal.Decimal `json:"exitPrice"`
	StopLoss           decimal.Decimal `json:"stopLoss"`
	TakeProfit         decimal.Decimal `json:"takeProfit"`
	PositionSize       int64           `json:"positionSize"`
	TotalQuantity      int64           `json:"totalQuantity"`
	RealizedPnL        decimal.Decimal `json:"realizedPnL"`
	RealizedPnLPercent decimal.Decimal `json:"realizedPnLPercent"`
	EntryRationale     string          `json:"entryRationale"`
	ExitRationale      string          `json:"exitRationale"`
	EmotionalState     string          `json:"emotionalState"`
	ReviewScore        *int            `json:"reviewScore"`
	ReviewComment      string          `json:"reviewComment"`
	PlanCreatedAt      time.Time       `json:"planCreatedAt"`
	ClosedAt           time.Time       `json:"closedAt"`
}

// History 已平仓交易，按平仓时间倒序。
func (p *Projector) History(ctx context.Context) ([]HistoryEntry, error) {
	out := []HistoryEntry{}
	err := store.ReadOnly(ctx, p.store, func(uow store.UnitOfWork) error {
		execs, err := uow.Executions().ListRecent(ctx)
		if err != nil {
			return err
		}
		for i := range execs {
			pl, err := uow.Plans().Get(ctx, execs[i].PlanID)
			if err != nil {
				return err
			}
			out = append(out, historyEntry(&execs[i], pl))
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

func historyEntry(e *plan.Execution, pl *plan.Plan) HistoryEntry {
	avg := pl.CostBasis()
	cost := avg.Mul(decimal.NewFromInt(pl.TotalQuantity))
	h := HistoryEntry{
		ExecutionID:        e.ID,
		PlanID:             pl.ID,
		Symbol:             pl.Symbol,
		Direction:          pl.Direction,
		EntryPrice:         pl.EntryPrice,
		AvgEntryPrice:      avg,
		ExitPrice:          e.ExitPrice,
		StopLoss:           pl.StopLoss,
		TakeProfit:         pl.TakeProfit,
		PositionSize:       pl.PositionSize,
		TotalQuantity:      pl.TotalQuantity,
		RealizedPnL:        e.RealizedPnL,
		RealizedPnLPercent: trading.PercentOf(e.RealizedPnL, cost, displayScale),
		EntryRationale:     pl.EntryRationale,
		ExitRationale:      e.ExitRationale,
		EmotionalState:     e.EmotionalState,
		PlanCreatedAt:      pl.CreatedAt,
		ClosedAt:           e.ClosedAt,
	}
	if e.Review != nil {
		score := e.Review.Score
		h.ReviewScore = &score
		h.ReviewComment = e.Review.Comment
	}
	return h
}
