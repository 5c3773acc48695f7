package market

import (
	"context"
	"errors"
	"fmt"
	"time"

	"tradejournal/internal/config"
	"tradejournal/internal/logger"
	"tradejournal/internal/pkg/circuit"
	"tradejournal/internal/pkg/symbol"

	"github.com/shopspring/decimal"
)

type guardedSource struct {
	src     QuoteSource
	breaker *circuit.CircuitBreaker
}

type guardedSuggester struct {
	src     Suggester
	breaker *circuit.CircuitBreaker
}

// Chain 依次尝试各行情源，直到拿到有效价格。
type Chain struct {
	sources   []guardedSource
	suggest   *guardedSuggester
	threshold int
	cooldown  time.Duration
}

func NewChain(threshold int, cooldown time.Duration, sources ...QuoteSource) *Chain {
	c := &Chain{threshold: threshold, cooldown: cooldown}
	for _, src := range sources {
		if src == nil {
			continue
		}
		c.sources = append(c.sources, guardedSource{
			src:     src,
			breaker: circuit.NewCircuitBreaker("market."+src.Name(), threshold, cooldown),
		})
	}
	return c
}

// WithSuggester 挂载股票联想源，与行情源使用相同的熔断参数。
func (c *Chain) WithSuggester(s Suggester) *Chain {
	if s == nil {
		c.suggest = nil
		return c
	}
	c.suggest = &guardedSuggester{
		src:     s,
		breaker: circuit.NewCircuitBreaker("market."+s.Name(), c.threshold, c.cooldown),
	}
	return c
}

// NewChainFromConfig 按 market.providers 的顺序构建行情链。
func NewChainFromConfig(cfg config.MarketConfig) *Chain {
	var sources []QuoteSource
	for _, name := range cfg.Providers {
		switch name {
		case "sina":
			sources = append(sources, NewSinaSource(HTTPOptions{BaseURL: cfg.SinaBaseURL, UserAgent: cfg.UserAgent, Timeout: cfg.Timeout()}))
		case "tencent":
			sources = append(sources, NewTencentSource(HTTPOptions{BaseURL: cfg.TencentBaseURL, UserAgent: cfg.UserAgent, Timeout: cfg.Timeout()}))
		default:
			logger.Warnf("[market] unknown provider %q ignored", name)
		}
	}
	suggest := NewTencentSuggest(HTTPOptions{BaseURL: cfg.SearchBaseURL, UserAgent: cfg.UserAgent, Timeout: cfg.Timeout()})
	return NewChain(cfg.BreakerThreshold, cfg.BreakerCooldown(), sources...).WithSuggester(suggest)
}

// StockInfo 返回第一份有效行情。传输层错误计入熔断，"无数据" 不计入。
func (c *Chain) StockInfo(ctx context.Context, code string) (Quote, error) {
	sym := symbol.Parse(code)
	if !sym.Valid() {
		return Quote{}, fmt.Errorf("%w: %q", ErrInvalidSymbol, code)
	}
	var errs []error
	for _, g := range c.sources {
		if !g.breaker.Allow() {
			errs = append(errs, fmt.Errorf("%s: %w", g.src.Name(), circuit.ErrOpen))
			continue
		}
		q, err := g.src.Fetch(ctx, sym)
		switch {
		case err == nil:
			g.breaker.RecordSuccess()
			return q, nil
		case errors.Is(err, ErrQuoteUnavailable), errors.Is(err, ErrInvalidSymbol):
			g.breaker.RecordSuccess()
		case ctx.Err() != nil:
			return Quote{}, fmt.Errorf("%w: %v", ErrQuoteUnavailable, ctx.Err())
		default:
			g.breaker.RecordFailure()
			logger.Warnf("[market] %s fetch %s failed: %v", g.src.Name(), sym.Code, err)
		}
		errs = append(errs, err)
	}
	if len(errs) == 0 {
		return Quote{}, fmt.Errorf("%w: no quote source configured", ErrQuoteUnavailable)
	}
	return Quote{}, fmt.Errorf("%w: %s: %v", ErrQuoteUnavailable, sym.Code, errors.Join(errs...))
}

// CurrentPrice 获取失败时返回 false，由调用方决定占位价。
func (c *Chain) CurrentPrice(ctx context.Context, code string) (decimal.Decimal, bool) {
	q, err := c.StockInfo(ctx, code)
	if err != nil {
		logger.Debugf("[market] price for %s unavailable: %v", code, err)
		return decimal.Zero, false
	}
	return q.Price, true
}
