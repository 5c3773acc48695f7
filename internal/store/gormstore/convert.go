package gormstore

import (
	"encoding/json"
	"time"

	"tradejournal/internal/plan"
	storemodel "tradejournal/internal/store/model"

	"gorm.io/datatypes"
)

func newPlanModel(p *plan.Plan) storemodel.TradePlanModel {
	return storemodel.TradePlanModel{
		ID:              p.ID,
		Symbol:          p.Symbol,
		Direction:       string(p.Direction),
		EntryPrice:      p.EntryPrice,
		StopLoss:        p.StopLoss,
		TakeProfit:      p.TakeProfit,
		PositionSize:    p.PositionSize,
		AvgEntryPrice:   p.AvgEntryPrice,
		TotalQuantity:   p.TotalQuantity,
		CurrentQuantity: p.CurrentQuantity,
		RealizedPnL:     p.RealizedPnL,
		RiskRewardRatio: p.RiskRewardRatio,
		EntryRationale:  p.EntryRationale,
		Status:          string(p.Status),
		CreatedAtUnix:   timeToMillis(p.CreatedAt),
		UpdatedAtUnix:   timeToMillis(p.UpdatedAt),
	}
}

func planModelToDomain(m storemodel.TradePlanModel) plan.Plan {
	return plan.Plan{
		ID:              m.ID,
		Symbol:          m.Symbol,
		Direction:       plan.Direction(m.Direction),
		EntryPrice:      m.EntryPrice,
		StopLoss:        m.StopLoss,
		TakeProfit:      m.TakeProfit,
		PositionSize:    m.PositionSize,
		AvgEntryPrice:   m.AvgEntryPrice,
		TotalQuantity:   m.TotalQuantity,
		CurrentQuantity: m.CurrentQuantity,
		RealizedPnL:     m.RealizedPnL,
		RiskRewardRatio: m.RiskRewardRatio,
		EntryRationale:  m.EntryRationale,
		Status:          plan.Status(m.Status),
		CreatedAt:       millisToTime(m.CreatedAtUnix),
		UpdatedAt:       millisToTime(m.UpdatedAtUnix),
	}
}

func newTransactionModel(t *plan.Transaction) storemodel.TradeTransactionModel {
	return storemodel.TradeTransactionModel{
		ID:             t.ID,
		PlanID:         t.PlanID,
		Type:           string(t.Type),
		Price:          t.Price,
		Quantity:       t.Quantity,
		ChunkPnL:       t.ChunkPnL,
		Rationale:      t.Rationale,
		ExecutedAtUnix: timeToMillis(t.ExecutedAt),
	}
}

func transactionModelToDomain(m storemodel.TradeTransactionModel) plan.Transaction {
	return plan.Transaction{
		ID:         m.ID,
		PlanID:     m.PlanID,
		Type:       plan.TxnType(m.Type),
		Price:      m.Price,
		Quantity:   m.Quantity,
		ChunkPnL:   m.ChunkPnL,
		Rationale:  m.Rationale,
		ExecutedAt: millisToTime(m.ExecutedAtUnix),
	}
}

func newExecutionModel(e *plan.Execution) storemodel.TradeExecutionModel {
	return storemodel.TradeExecutionModel{
		ID:             e.ID,
		PlanID:         e.PlanID,
		ExitPrice:      e.ExitPrice,
		RealizedPnL:    e.RealizedPnL,
		ExitRationale:  e.ExitRationale,
		EmotionalState: e.EmotionalState,
		ClosedAtUnix:   timeToMillis(e.ClosedAt),
	}
}

func executionModelToDomain(m storemodel.TradeExecutionModel) plan.Execution {
	exec := plan.Execution{
		ID:             m.ID,
		PlanID:         m.PlanID,
		ExitPrice:      m.ExitPrice,
		RealizedPnL:    m.RealizedPnL,
		ExitRationale:  m.ExitRationale,
		EmotionalState: m.EmotionalState,
		ClosedAt:       millisToTime(m.ClosedAtUnix),
	}
	if m.ReviewedAtUnix != nil {
		review := &plan.Review{
			Model:      m.ReviewModel,
			ReviewedAt: millisToTime(*m.ReviewedAtUnix),
		}
		if m.ReviewScore != nil {
			review.Score = *m.ReviewScore
		}
		if m.ReviewComment != nil {
			review.Comment = *m.ReviewComment
		}
		if len(m.ReviewRaw) > 0 {
			review.Raw = json.RawMessage(m.ReviewRaw)
		}
		exec.Review = review
	}
	return exec
}

func reviewColumns(r plan.Review) map[string]any {
	reviewedAt := timeToMillis(r.ReviewedAt)
	cols := map[string]any{
		"review_score":   r.Score,
		"review_comment": r.Comment,
		"review_model":   r.Model,
		"reviewed_at":    reviewedAt,
	}
	if len(r.Raw) > 0 {
		cols["review_raw"] = datatypes.JSON(r.Raw)
	}
	return cols
}

func timeToMillis(t time.Time) int64 {
	if t.IsZero() {
		return 0
	}
	return t.UnixMilli()
}

func millisToTime(v int64) time.Time {
	if v <= 0 {
		return time.Time{}
	}
	return time.UnixMilli(v).UTC()
}
