package review

import (
	"context"
	"fmt"
	"strings"
	"time"

	"tradejournal/internal/logger"
	"tradejournal/internal/pkg/jsonutil"
	"tradejournal/internal/pkg/symbol"

	"github.com/shopspring/decimal"
	"github.com/tidwall/gjson"
)

const maxRisks = 3

// FallbackRisks 模型不可用时返回的通用提示。
var FallbackRisks = []string{
	"请再次审视你的买入逻辑是否充分考虑了风险",
	"市场情绪变化可能导致逻辑失效",
	"建议设置好止损并严格执行",
}

// ChallengeRequest 开仓前的质疑请求。
type ChallengeRequest struct {
	StockSymbol  string              `json:"stockSymbol" binding:"required"`
	CurrentPrice decimal.NullDecimal `json:"currentPrice"`
	Logic        string              `json:"logic" binding:"required"`
}

type ChallengeResult struct {
	Risks    []string `json:"risks"`
	Fallback bool     `json:"fallback"`
}

// PriceLookup 未提供当前价时用于补全。
type PriceLookup interface {
	CurrentPrice(ctx context.Context, code string) (decimal.Decimal, bool)
}

type challengeData struct {
	Symbol       string
	CurrentPrice string
	Logic        string
}

// Challenger 扮演对手盘，对买入逻辑提出风险点。
type Challenger struct {
	model   ChatModel
	prompts *Registry
	prices  PriceLookup
	timeout time.Duration
}

func NewChallenger(model ChatModel, prompts *Registry, prices PriceLookup, timeout time.Duration) *Challenger {
	if timeout <= 0 {
		timeout = defaultTimeout
	}
	return &Challenger{model: model, prompts: prompts, prices: prices, timeout: timeout}
}

// Challenge 永不返回错误：模型关闭或失败时退回 FallbackRisks。
func (c *Challenger) Challenge(ctx context.Context, req ChallengeRequest) ChallengeResult {
	code := symbol.Normalize(req.StockSymbol)
	if code == "" {
		code = strings.ToUpper(strings.TrimSpace(req.StockSymbol))
	}
	if c == nil || c.model == nil || c.prompts == nil {
		return fallback()
	}
	data := challengeData{Symbol: code, Logic: strings.TrimSpace(req.Logic)}
	if req.CurrentPrice.Valid && req.CurrentPrice.Decimal.IsPositive() {
		data.CurrentPrice = req.CurrentPrice.Decimal.String()
	} else if c.prices != nil {
		if price, ok := c.prices.CurrentPrice(ctx, code); ok {
			data.CurrentPrice = price.String()
		}
	}
	risks, err := c.ask(ctx, data)
	if err != nil {
		logger.Warnf("[review] challenge %s fell back: %v", code, err)
		return fallback()
	}
	return ChallengeResult{Risks: risks}
}

func (c *Challenger) ask(ctx context.Context, data challengeData) ([]string, error) {
	system, user, err := c.prompts.Render(PromptEntryChallenge, data)
	if err != nil {
		return nil, err
	}
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()
	raw, err := c.model.Complete(ctx, ChatRequest{Ref: "challenge:" + data.Symbol, System: system, User: user})
	if err != nil {
		return nil, err
	}
	doc, ok := jsonutil.ExtractJSON(raw)
	if !ok {
		return nil, fmt.Errorf("%w: no json in response", ErrInvalidOutput)
	}
	if err := c.prompts.Validate(PromptEntryChallenge, doc); err != nil {
		return nil, err
	}
	var risks []string
	for _, item := range gjson.Parse(doc).Array() {
		if s := strings.TrimSpace(item.String()); s != "" {
			risks = append(risks, s)
		}
		if len(risks) == maxRisks {
			break
		}
	}
	if len(risks) == 0 {
		return nil, fmt.Errorf("%w: empty risk list", ErrInvalidOutput)
	}
	return risks, nil
}

func fallback() ChallengeResult {
	return ChallengeResult{Risks: append([]string(nil), FallbackRisks...), Fallback: true}
}
