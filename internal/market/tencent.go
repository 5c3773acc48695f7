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

const defaultTencentBaseURL = "http://qt.gtimg.cn"

// v_sh600519="1~贵州茅台~600519~1700.00~1699.00~...";
var tencentLine = regexp.MustCompile(`v_([^=]+)="([^"]*)"`)

// TencentSource 腾讯财经行情，作为新浪的备用源。
type TencentSource struct {
	baseURL   string
	userAgent string
	client    *http.Client
	now       func() time.Time
}

func NewTencentSource(opts HTTPOptions) *TencentSource {
	base := strings.TrimRight(strings.TrimSpace(opts.BaseURL), "/")
	if base == "" {
		base = defaultTencentBaseURL
	}
	return &TencentSource{baseURL: base, userAgent: opts.UserAgent, client: opts.client(), now: time.Now}
}

func (s *TencentSource) Name() string { return "tencent" }

func (s *TencentSource) Fetch(ctx context.Context, sym symbol.Symbol) (Quote, error) {
	code := symbol.Tencent.ToProvider(sym)
	if code == "" {
		return Quote{}, fmt.Errorf("%w: %q", ErrInvalidSymbol, sym.Code)
	}
	body, err := fetchGBK(ctx, s.client, s.baseURL+"/q="+code, map[string]string{
		"User-Agent": s.userAgent,
		"Referer":    "https://finance.qq.com/",
	})
	if err != nil {
		return Quote{}, fmt.Errorf("tencent %s: %w", code, err)
	}
	q, err := parseTencent(body, sym)
	if err != nil {
		return Quote{}, err
	}
	q.Source = s.Name()
	q.FetchedAt = s.now().UTC()
	return q, nil
}

// parseTencent 各市场字段一致：[1]名称 [3]现价。
func parseTencent(body string, sym symbol.Symbol) (Quote, error) {
	m := tencentLine.FindStringSubmatch(body)
	if m == nil {
		return Quote{}, fmt.Errorf("%w: tencent response not recognized for %s", ErrQuoteUnavailable, sym.Code)
	}
	fields := strings.Split(strings.TrimSpace(m[2]), "~")
	if len(fields) < 4 {
		return Quote{}, fmt.Errorf("%w: tencent has no data for %s", ErrQuoteUnavailable, sym.Code)
	}
	price, ok := parsePrice(fields[3])
	if !ok {
		return Quote{}, fmt.Errorf("%w: tencent price %q for %s", ErrQuoteUnavailable, fields[3], sym.Code)
	}
	return Quote{
		Symbol: sym.Code,
		Name:   strings.TrimSpace(fields[1]),
		Market: sym.Market,
		Price:  price,
	}, nil
}
