// Package dashboard builds read-only views over open and closed plans:
// live unrealized P&L with stop distance, and the closed-trade history.
package dashboard

import (
	"context"
	"time"

	"tradejournal/internal/logger"
	"tradejournal/internal/market"
	"tradejournal/internal/pkg/trading"
	"tradejournal/internal/plan"
	"tradejournal/internal/store"

	"github.com/shopspring/decimal"
	"golang.org/x/sync/errgroup"
)

const (
	displayScale       int32 = 2
	defaultConcurrency       = 8
	quoteTimeout             = 5 * time.Second
)

type RiskLevel string

const (
	RiskSafe   RiskLevel = "SAFE"
	RiskDanger RiskLevel = "DANGER"
)

// QuoteSource 行情查询能力；失败只影响展示，不影响投影。
type QuoteSource interface {
	StockInfo(ctx context.Context, code string) (market.Quote, error)
}

// Position 单个持仓计划的实时视图。
type Position struct {
	PlanID          int64           `json:"planId"`
	Symbol          string          `json:"symbol"`
	Name            string          `json:"name"`
	EntryPrice      decimal.Decimal `json:"entryPrice"`
	AvgEntryPrice   decimal.Decimal `json:"avgEntryPrice"`
	StopLoss        decimal.Decimal `json:"stopLoss"`
	TakeProfit      decimal.Decimal `json:"takeProfit"`
	PositionSize    int64           `json:"positionSize"`
	TotalQuantity   int64           `json:"totalQuantity"`
	CurrentQuantity int64           `json:"currentQuantity"`
	RealizedPnL     decimal.Decimal `json:"realizedPnL"`
	CurrentPrice    decimal.Decimal `json:"currentPrice"`
	PriceAvailable  bool            `json:"priceAvailable"`
	UnrealizedPnL   decimal.Decimal `json:"unrealizedPnL"`
	PnLPercent      decimal.Decimal `json:"pnlPercent"`
	DistanceToStop  decimal.Decimal `json:"distanceToStop"`
	RiskLevel       RiskLevel       `json:"riskLevel"`
	EntryRationale  string          `json:"entryRationale"`
	RiskRewardRatio decimal.Decimal `json:"riskRewardRatio"`
}

// Dashboard 所有 OPEN 计划加汇总。
type Dashboard struct {
	Positions          []Position      `json:"positions"`
	TotalUnrealizedPnL decimal.Decimal `json:"totalUnrealizedPnL"`
	TotalRealizedPnL   decimal.Decimal `json:"totalRealizedPnL"`
	DangerCount        int             `json:"dangerCount"`
	GeneratedAt        time.Time       `json:"generatedAt"`
}

type Options struct {
	DangerBuffer decimal.Decimal
	Concurrency  int
	Clock        func() time.Time
}

// Projector 只读，不修改任何计划状态。
type Projector struct {
	store       store.Store
	quotes      QuoteSource
	buffer      decimal.Decimal
	concurrency int
	now         func() time.Time
}

func NewProjector(s store.Store, quotes QuoteSource, opts Options) *Projector {
	buffer := opts.DangerBuffer
	if buffer.IsNegative() || buffer.IsZero() {
		buffer = decimal.RequireFromString("0.02")
	}
	n := opts.Concurrency
	if n <= 0 {
		n = defaultConcurrency
	}
	clock := opts.Clock
	if clock == nil {
		clock = time.Now
	}
	return &Projector{store: s, quotes: quotes, buffer: buffer, concurrency: n, now: clock}
}

// Project 为每个 OPEN 计划拉取行情并计算浮动盈亏。
// 行情不可用时以持仓均价（未成交则计划入场价）占位。
func (p *Projector) Project(ctx context.Context) (Dashboard, error) {
	var open []plan.Plan
	err := store.ReadOnly(ctx, p.store, func(uow store.UnitOfWork) error {
		var err error
		open, err = uow.Plans().ListByStatus(ctx, plan.StatusOpen)
		return err
	})
	if err != nil {
		return Dashboard{}, err
	}

	quotes := make([]*market.Quote, len(open))
	if p.quotes != nil {
		var eg errgroup.Group
		eg.SetLimit(p.concurrency)
		for i := range open {
			eg.Go(func() error {
				qctx, cancel := context.WithTimeout(ctx, quoteTimeout)
				defer cancel()
				q, err := p.quotes.StockInfo(qctx, open[i].Symbol)
				if err != nil {
					logger.Debugf("[dashboard] quote for %s unavailable, using placeholder: %v", open[i].Symbol, err)
					return nil
				}
				quotes[i] = &q
				return nil
			})
		}
		_ = eg.Wait()
	}

	out := Dashboard{
		Positions:          make([]Position, 0, len(open)),
		TotalUnrealizedPnL: decimal.Zero,
		TotalRealizedPnL:   decimal.Zero,
		GeneratedAt:        p.now().UTC(),
	}
	for i := range open {
		pos := p.position(&open[i], quotes[i])
		if pos.RiskLevel == RiskDanger {
			out.DangerCount++
		}
		out.TotalUnrealizedPnL = out.TotalUnrealizedPnL.Add(pos.UnrealizedPnL)
		out.TotalRealizedPnL = out.TotalRealizedPnL.Add(pos.RealizedPnL)
		out.Positions = append(out.Positions, pos)
	}
	return out, nil
}

func (p *Projector) position(pl *plan.Plan, q *market.Quote) Position {
	avg := pl.CostBasis()
	current := avg
	available := false
	name := ""
	if q != nil && q.Price.IsPositive() {
		current = q.Price
		available = true
		name = q.Name
	}
	realized := decimal.Zero
	if pl.RealizedPnL.Valid {
		realized = pl.RealizedPnL.Decimal
	}
	distance := current.Sub(pl.StopLoss).Round(displayScale)
	return Position{
		PlanID:          pl.ID,
		Symbol:          pl.Symbol,
		Name:            name,
		EntryPrice:      pl.EntryPrice,
		AvgEntryPrice:   avg,
		StopLoss:        pl.StopLoss,
		TakeProfit:      pl.TakeProfit,
		PositionSize:    pl.PositionSize,
		TotalQuantity:   pl.TotalQuantity,
		CurrentQuantity: pl.CurrentQuantity,
		RealizedPnL:     realized,
		CurrentPrice:    current,
		PriceAvailable:  available,
		UnrealizedPnL:   trading.UnrealizedPnL(current, avg, pl.CurrentQuantity, displayScale),
		PnLPercent:      trading.PercentOf(current.Sub(avg), avg, displayScale),
		DistanceToStop:  distance,
		RiskLevel:       ClassifyRisk(distance, avg, p.buffer),
		EntryRationale:  pl.EntryRationale,
		RiskRewardRatio: pl.RiskRewardRatio,
	}
}

// ClassifyRisk 止损已被击穿，或剩余缓冲小于均价 × buffer 时为 DANGER。
func ClassifyRisk(distance, avg, buffer decimal.Decimal) RiskLevel {
	if !distance.IsPositive() {
		return RiskDanger
	}
	if avg.IsPositive() && distance.LessThan(avg.Mul(buffer)) {
		return RiskDanger
	}
	return RiskSafe
}
