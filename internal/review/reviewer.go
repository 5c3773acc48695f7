// Package review produces the asynchronous post-trade critique of closed
// plans, and the pre-trade "devil's advocate" challenge of an entry thesis.
package review

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"strings"
	"time"

	"tradejournal/internal/pkg/jsonutil"
	"tradejournal/internal/plan"

	"github.com/tidwall/gjson"
)

var (
	// ErrInvalidOutput 模型返回内容无法解析或不符合 schema。
	ErrInvalidOutput = errors.New("invalid model output")
	ErrDisabled      = errors.New("review model disabled")
)

const emptyEmotion = "未填写"

// TradeData 渲染 trade_review 模板所用的字段。
type TradeData struct {
	Symbol         string
	Direction      string
	EntryPrice     string
	AvgEntryPrice  string
	StopLoss       string
	TakeProfit     string
	Quantity       int64
	EntryRationale string
	ExitPrice      string
	RealizedPnL    string
	ExitRationale  string
	EmotionalState string
}

// NewTradeData 由计划和结算记录组装模板数据。
func NewTradeData(p *plan.Plan, e *plan.Execution) TradeData {
	emotion := strings.TrimSpace(e.EmotionalState)
	if emotion == "" {
		emotion = emptyEmotion
	}
	return TradeData{
		Symbol:         p.Symbol,
		Direction:      string(p.Direction),
		EntryPrice:     p.EntryPrice.String(),
		AvgEntryPrice:  p.CostBasis().String(),
		StopLoss:       p.StopLoss.String(),
		TakeProfit:     p.TakeProfit.String(),
		Quantity:       p.TotalQuantity,
		EntryRationale: p.EntryRationale,
		ExitPrice:      e.ExitPrice.String(),
		RealizedPnL:    e.RealizedPnL.String(),
		ExitRationale:  e.ExitRationale,
		EmotionalState: emotion,
	}
}

// Reviewer 调用模型给一笔已平仓交易打分。
type Reviewer struct {
	model   ChatModel
	prompts *Registry
	now     func() time.Time
}

func NewReviewer(model ChatModel, prompts *Registry) *Reviewer {
	return &Reviewer{model: model, prompts: prompts, now: time.Now}
}

// Review 返回待写入的复盘结果，不做持久化。
func (r *Reviewer) Review(ctx context.Context, p *plan.Plan, e *plan.Execution) (plan.Review, error) {
	if r == nil || r.model == nil || r.prompts == nil {
		return plan.Review{}, ErrDisabled
	}
	system, user, err := r.prompts.Render(PromptTradeReview, NewTradeData(p, e))
	if err != nil {
		return plan.Review{}, err
	}
	raw, err := r.model.Complete(ctx, ChatRequest{
		Ref:    fmt.Sprintf("execution:%d", e.ID),
		System: system,
		User:   user,
	})
	if err != nil {
		return plan.Review{}, fmt.Errorf("review execution %d: %w", e.ID, err)
	}
	doc, ok := jsonutil.ExtractJSON(raw)
	if !ok {
		return plan.Review{}, fmt.Errorf("%w: no json in response", ErrInvalidOutput)
	}
	if err := r.prompts.Validate(PromptTradeReview, doc); err != nil {
		return plan.Review{}, err
	}
	parsed := gjson.Parse(doc)
	score := int(math.Round(parsed.Get("score").Float()))
	return plan.Review{
		Score:      clampScore(score),
		Comment:    strings.TrimSpace(parsed.Get("comment").String()),
		Model:      r.model.Model(),
		Raw:        json.RawMessage(doc),
		ReviewedAt: r.now().UTC(),
	}, nil
}

func clampScore(v int) int {
	switch {
	case v < 0:
		return 0
	case v > 100:
		return 100
	default:
		return v
	}
}
