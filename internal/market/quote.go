// Package market fetches last-trade quotes for A-share, HK and US symbols
// from public quote endpoints. Every backend is independently fallible; the
// Chain tries them in order behind a per-backend circuit breaker.
package market

import (
	"context"
	"errors"
	"time"

	"tradejournal/internal/pkg/symbol"

	"github.com/shopspring/decimal"
)

var (
	// ErrQuoteUnavailable 行情源未返回有效价格（停牌、代码不存在或全部源失败）。
	ErrQuoteUnavailable = errors.New("quote unavailable")
	// ErrInvalidSymbol 无法识别的股票代码。
	ErrInvalidSymbol = errors.New("invalid symbol")
)

// Quote is one last-trade snapshot.
type Quote struct {
	Symbol    string          `json:"symbol"`
	Name      string          `json:"name"`
	Market    symbol.Market   `json:"market"`
	Price     decimal.Decimal `json:"price"`
	Source    string          `json:"source"`
	FetchedAt time.Time       `json:"fetchedAt"`
}

// QuoteSource is a single quote backend.
type QuoteSource interface {
	Name() string
	Fetch(ctx context.Context, sym symbol.Symbol) (Quote, error)
}
