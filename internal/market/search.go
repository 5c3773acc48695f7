package market

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"unicode/utf8"

	"tradejournal/internal/logger"
	"tradejournal/internal/pkg/symbol"
)

const (
	defaultSearchBaseURL = "https://smartbox.gtimg.cn"
	maxSearchResults     = 10
	maxKeywordRunes      = 20
)

// SearchResult 一条股票联想结果。
type SearchResult struct {
	Code   string        `json:"code"`
	Name   string        `json:"name"`
	Market symbol.Market `json:"market"`
}

// Suggester 按代码、名称或拼音联想股票。
type Suggester interface {
	Name() string
	Suggest(ctx context.Context, keyword string, limit int) ([]SearchResult, error)
}

// TencentSuggest 腾讯 smartbox 联想接口。
type TencentSuggest struct {
	baseURL   string
	userAgent string
	client    *http.Client
}

func NewTencentSuggest(opts HTTPOptions) *TencentSuggest {
	base := strings.TrimRight(strings.TrimSpace(opts.BaseURL), "/")
	if base == "" {
		base = defaultSearchBaseURL
	}
	return &TencentSuggest{baseURL: base, userAgent: opts.UserAgent, client: opts.client()}
}

func (s *TencentSuggest) Name() string { return "tencent-suggest" }

func (s *TencentSuggest) Suggest(ctx context.Context, keyword string, limit int) ([]SearchResult, error) {
	endpoint := s.baseURL + "/s3/?v=2&t=all&q=" + url.QueryEscape(keyword)
	body, err := fetchGBK(ctx, s.client, endpoint, map[string]string{
		"User-Agent": s.userAgent,
		"Referer":    "https://finance.qq.com/",
	})
	if err != nil {
		return nil, fmt.Errorf("tencent suggest %q: %w", keyword, err)
	}
	return parseTencentHint(body, limit), nil
}

// parseTencentHint 解析 v_hint="sh~600519~贵州茅台~gzmt~GP-A^..."。
// 只保留股票类条目（类型以 GP 开头），名称中的 \uXXXX 转义会被还原。
func parseTencentHint(body string, limit int) []SearchResult {
	start := strings.Index(body, `"`)
	end := strings.LastIndex(body, `"`)
	if start < 0 || end <= start {
		return nil
	}
	var out []SearchResult
	for _, item := range strings.Split(body[start+1:end], "^") {
		parts := strings.Split(strings.TrimSpace(item), "~")
		if len(parts) < 3 {
			continue
		}
		if len(parts) >= 5 && !strings.HasPrefix(strings.ToUpper(parts[4]), "GP") {
			continue
		}
		mkt := symbol.Market(strings.ToLower(strings.TrimSpace(parts[0])))
		code := strings.ToUpper(strings.TrimSpace(parts[1]))
		if mkt == symbol.MarketUS {
			code, _, _ = strings.Cut(code, ".")
		}
		sym := symbol.Parse(code)
		if !sym.Valid() || !knownMarket(mkt) {
			continue
		}
		out = append(out, SearchResult{Code: sym.Code, Name: unescapeName(parts[2]), Market: mkt})
		if limit > 0 && len(out) == limit {
			break
		}
	}
	return out
}

func knownMarket(m symbol.Market) bool {
	switch m {
	case symbol.MarketSH, symbol.MarketSZ, symbol.MarketBJ, symbol.MarketHK, symbol.MarketUS:
		return true
	}
	return false
}

func unescapeName(raw string) string {
	raw = strings.TrimSpace(raw)
	if name, err := strconv.Unquote(`"` + raw + `"`); err == nil {
		return name
	}
	return raw
}

// Search 联想股票。联想源失败或无结果时，若关键字本身是合法代码，则退回行情查询补出名称；
// 都没有结果时返回空列表。
func (c *Chain) Search(ctx context.Context, keyword string) ([]SearchResult, error) {
	keyword = strings.TrimSpace(keyword)
	if keyword == "" {
		return []SearchResult{}, nil
	}
	if utf8.RuneCountInString(keyword) > maxKeywordRunes {
		return nil, fmt.Errorf("%w: keyword longer than %d characters", ErrInvalidSymbol, maxKeywordRunes)
	}
	if g := c.suggest; g != nil && g.breaker.Allow() {
		res, err := g.src.Suggest(ctx, keyword, maxSearchResults)
		switch {
		case err == nil:
			g.breaker.RecordSuccess()
			if len(res) > 0 {
				return res, nil
			}
		case ctx.Err() != nil:
			return nil, fmt.Errorf("%w: %v", ErrQuoteUnavailable, ctx.Err())
		default:
			g.breaker.RecordFailure()
			logger.Warnf("[market] %s search %q failed: %v", g.src.Name(), keyword, err)
		}
	}
	if symbol.Parse(keyword).Valid() {
		if q, err := c.StockInfo(ctx, keyword); err == nil {
			return []SearchResult{{Code: q.Symbol, Name: q.Name, Market: q.Market}}, nil
		}
	}
	return []SearchResult{}, nil
}
