package market

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"tradejournal/internal/pkg/symbol"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"golang.org/x/text/encoding/simplifiedchinese"
)

func gbk(t *testing.T, s string) string {
	t.Helper()
	out, err := simplifiedchinese.GBK.NewEncoder().String(s)
	require.NoError(t, err)
	return out
}

func TestParseSina(t *testing.T) {
	cases := []struct {
		name  string
		code  string
		body  string
		title string
		price string
	}{
		{
			name:  "a-share",
			code:  "600519",
			body:  `var hq_str_sh600519="贵州茅台,1700.000,1701.000,1688.880,1710.000,1680.000";`,
			title: "贵州茅台",
			price: "1688.88",
		},
		{
			name:  "hong kong",
			code:  "00700",
			body:  `var hq_str_rt_hk00700="TENCENT,腾讯控股,380.000,379.000,385.000,377.000,382.400,3.400";`,
			title: "腾讯控股",
			price: "382.4",
		},
		{
			name:  "us",
			code:  "AAPL",
			body:  `var hq_str_gb_aapl="苹果,189.9800,1.02,2024-03-01";`,
			title: "苹果",
			price: "189.98",
		},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			q, err := parseSina(tc.body, symbol.Parse(tc.code))
			require.NoError(t, err)
			assert.Equal(t, tc.title, q.Name)
			assert.True(t, q.Price.Equal(decimal.RequireFromString(tc.price)), q.Price.String())
		})
	}

	t.Run("empty payload", func(t *testing.T) {
		_, err := parseSina(`var hq_str_sh600000="";`, symbol.Parse("600000"))
		assert.ErrorIs(t, err, ErrQuoteUnavailable)
	})
	t.Run("suspended stock has zero price", func(t *testing.T) {
		_, err := parseSina(`var hq_str_sh600000="浦发银行,0.000,8.000,0.000";`, symbol.Parse("600000"))
		assert.ErrorIs(t, err, ErrQuoteUnavailable)
	})
}

func TestParseTencent(t *testing.T) {
	q, err := parseTencent(`v_sz000001="51~平安银行~000001~10.52~10.40~10.45";`, symbol.Parse("000001"))
	require.NoError(t, err)
	assert.Equal(t, "平安银行", q.Name)
	assert.Equal(t, symbol.MarketSZ, q.Market)
	assert.True(t, q.Price.Equal(decimal.RequireFromString("10.52")))

	_, err = parseTencent(`v_pv_none_match="1";`, symbol.Parse("000001"))
	assert.ErrorIs(t, err, ErrQuoteUnavailable)
}

func TestSinaSource_FetchDecodesGBK(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/list=sh600519", r.URL.Path)
		assert.Equal(t, "https://finance.sina.com.cn", r.Header.Get("Referer"))
		_, _ = w.Write([]byte(gbk(t, `var hq_str_sh600519="贵州茅台,1700.000,1701.000,1702.500";`)))
	}))
	defer srv.Close()

	src := NewSinaSource(HTTPOptions{BaseURL: srv.URL, UserAgent: "test"})
	q, err := src.Fetch(context.Background(), symbol.Parse("600519"))
	require.NoError(t, err)
	assert.Equal(t, "贵州茅台", q.Name)
	assert.Equal(t, "sina", q.Source)
	assert.True(t, q.Price.Equal(decimal.RequireFromString("1702.5")))
	assert.False(t, q.FetchedAt.IsZero())
}

func TestTencentSource_Fetch(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.True(t, strings.HasSuffix(r.URL.Path, "=hk00700"))
		_, _ = w.Write([]byte(gbk(t, `v_hk00700="100~腾讯控股~00700~382.40~379.00";`)))
	}))
	defer srv.Close()

	src := NewTencentSource(HTTPOptions{BaseURL: srv.URL})
	q, err := src.Fetch(context.Background(), symbol.Parse("00700"))
	require.NoError(t, err)
	assert.Equal(t, symbol.MarketHK, q.Market)
	assert.Equal(t, "00700", q.Symbol)
}

type MockQuoteSource struct {
	mock.Mock
	name string
}

func (m *MockQuoteSource) Name() string { return m.name }

func (m *MockQuoteSource) Fetch(ctx context.Context, sym symbol.Symbol) (Quote, error) {
	args := m.Called(ctx, sym)
	return args.Get(0).(Quote), args.Error(1)
}

func TestChain_FallsBackToNextSource(t *testing.T) {
	var sinaHits atomic.Int32
	sina := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		sinaHits.Add(1)
		w.WriteHeader(http.StatusForbidden)
	}))
	defer sina.Close()
	tencent := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(gbk(t, `v_sh600519="1~贵州茅台~600519~1701.00~1699.00";`)))
	}))
	defer tencent.Close()

	chain := NewChain(2, time.Hour,
		NewSinaSource(HTTPOptions{BaseURL: sina.URL}),
		NewTencentSource(HTTPOptions{BaseURL: tencent.URL}),
	)
	ctx := context.Background()
	for i := 0; i < 3; i++ {
		price, ok := chain.CurrentPrice(ctx, "600519")
		require.True(t, ok)
		assert.True(t, price.Equal(decimal.RequireFromString("1701")))
	}
	// 熔断打开后不再请求新浪
	assert.Equal(t, int32(2), sinaHits.Load())
}

func TestChain_NoDataDoesNotTripBreaker(t *testing.T) {
	src := &MockQuoteSource{name: "mock"}
	src.On("Fetch", mock.Anything, mock.Anything).Return(Quote{}, ErrQuoteUnavailable)
	chain := NewChain(1, time.Hour, src)

	for i := 0; i < 3; i++ {
		_, err := chain.StockInfo(context.Background(), "600000")
		assert.ErrorIs(t, err, ErrQuoteUnavailable)
	}
	src.AssertNumberOfCalls(t, "Fetch", 3)
}

func TestChain_InvalidSymbolAndEmptyChain(t *testing.T) {
	_, err := NewChain(1, time.Minute).StockInfo(context.Background(), "12")
	assert.ErrorIs(t, err, ErrInvalidSymbol)

	_, err = NewChain(1, time.Minute).StockInfo(context.Background(), "600519")
	assert.ErrorIs(t, err, ErrQuoteUnavailable)

	_, ok := NewChain(1, time.Minute).CurrentPrice(context.Background(), "600519")
	assert.False(t, ok)
}
