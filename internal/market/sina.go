package market

import (
	"context"
	"fmt"
	"net/http"
	"regexp"
	"strings"
	"time"

	"tradejournal/internal/pkg/symbol"
)

const defaultSinaBaseURL = "http://hq.sinajs.cn"

// var hq_str_sh600519="贵州茅台,1700.000,1701.000,1702.000,...";
var sinaLine = regexp.MustCompile(`var\s+hq_str_([^=]+)="([^"]*)"`)

// SinaSource 新浪财经行情。
type SinaSource struct {
	baseURL   string
	userAgent string
	client    *http.Client
	now       func() time.Time
}

func NewSinaSource(opts HTTPOptions) *SinaSource {
	base := strings.TrimRight(strings.TrimSpace(opts.BaseURL), "/")
	if base == "" {
		base = defaultSinaBaseURL
	}
	return &SinaSource{baseURL: base, userAgent: opts.UserAgent, client: opts.client(), now: time.Now}
}

func (s *SinaSource) Name() string { return "sina" }

func (s *SinaSource) Fetch(ctx context.Context, sym symbol.Symbol) (Quote, error) {
	code := symbol.Sina.ToProvider(sym)
	if code == "" {
		return Quote{}, fmt.Errorf("%w: %q", ErrInvalidSymbol, sym.Code)
	}
	body, err := fetchGBK(ctx, s.client, s.baseURL+"/list="+code, map[string]string{
		"User-Agent": s.userAgent,
		"Referer":    "https://finance.sina.com.cn",
		"Accept":     "*/*",
	})
	if err != nil {
		return Quote{}, fmt.Errorf("sina %s: %w", code, err)
	}
	q, err := parseSina(body, sym)
	if err != nil {
		return Quote{}, err
	}
	q.Source = s.Name()
	q.FetchedAt = s.now().UTC()
	return q, nil
}

// parseSina 字段布局随市场不同：
// A 股 [0]名称 [3]现价；港股 [1]中文名 [6]现价；美股 [0]名称 [1]现价。
func parseSina(body string, sym symbol.Symbol) (Quote, error) {
	m := sinaLine.FindStringSubmatch(body)
	if m == nil {
		return Quote{}, fmt.Errorf("%w: sina response not recognized for %s", ErrQuoteUnavailable, sym.Code)
	}
	data := strings.TrimSpace(m[2])
	if data == "" || strings.Contains(data, "FAILED") {
		return Quote{}, fmt.Errorf("%w: sina has no data for %s", ErrQuoteUnavailable, sym.Code)
	}
	fields := strings.Split(data, ",")
	nameIdx, priceIdx := 0, 3
	switch sym.Market {
	case symbol.MarketHK:
		nameIdx, priceIdx = 1, 6
	case symbol.MarketUS:
		nameIdx, priceIdx = 0, 1
	}
	if len(fields) <= priceIdx {
		return Quote{}, fmt.Errorf("%w: sina returned %d fields for %s", ErrQuoteUnavailable, len(fields), sym.Code)
	}
	price, ok := parsePrice(fields[priceIdx])
	if !ok {
		return Quote{}, fmt.Errorf("%w: sina price %q for %s", ErrQuoteUnavailable, fields[priceIdx], sym.Code)
	}
	return Quote{
		Symbol: sym.Code,
		Name:   strings.TrimSpace(fields[nameIdx]),
		Market: sym.Market,
		Price:  price,
	}, nil
}
