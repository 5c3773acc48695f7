package apihttp

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"net/url"
	"testing"

	"tradejournal/internal/dashboard"
	"tradejournal/internal/market"
	"tradejournal/internal/pkg/trading"
	"tradejournal/internal/plan"
	"tradejournal/internal/review"
	"tradejournal/internal/settings"
	"tradejournal/internal/store/memstore"
	"tradejournal/internal/trader"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

type MockQuotes struct {
	mock.Mock
}

func (m *MockQuotes) StockInfo(ctx context.Context, code string) (market.Quote, error) {
	args := m.Called(ctx, code)
	return args.Get(0).(market.Quote), args.Error(1)
}

func (m *MockQuotes) Search(ctx context.Context, keyword string) ([]market.SearchResult, error) {
	args := m.Called(ctx, keyword)
	res, _ := args.Get(0).([]market.SearchResult)
	return res, args.Error(1)
}

type MockChallenger struct {
	mock.Mock
}

func (m *MockChallenger) Challenge(ctx context.Context, req review.ChallengeRequest) review.ChallengeResult {
	return m.Called(ctx, req).Get(0).(review.ChallengeResult)
}

type MockPublisher struct {
	mock.Mock
}

func (m *MockPublisher) Publish(executionID int64) {
	m.Called(executionID)
}

type testAPI struct {
	handler    http.Handler
	quotes     *MockQuotes
	challenger *MockChallenger
	publisher  *MockPublisher
}

func newTestAPI(t *testing.T) *testAPI {
	t.Helper()
	st := memstore.New()
	pub := new(MockPublisher)
	pub.On("Publish", mock.AnythingOfType("int64")).Return()
	settingsSvc := settings.NewService(st, trading.RiskBudget{
		TotalCapital: decimal.NewFromInt(1000000),
		RiskFraction: decimal.RequireFromString("0.01"),
	})
	require.NoError(t, settingsSvc.EnsureDefaults(context.Background()))

	tr := trader.NewTrader(st, nil, pub, trader.Options{Shards: 2})
	tr.Start()
	t.Cleanup(tr.Stop)

	quotes := new(MockQuotes)
	challenger := new(MockChallenger)
	srv, err := NewServer(ServerConfig{
		Plans:      trader.NewService(tr, st, settingsSvc, pub, nil),
		Dashboard:  dashboard.NewProjector(st, quotes, dashboard.Options{}),
		Settings:   settingsSvc,
		Quotes:     quotes,
		Challenger: challenger,
	})
	require.NoError(t, err)
	return &testAPI{handler: srv.Handler(), quotes: quotes, challenger: challenger, publisher: pub}
}

func (a *testAPI) do(t *testing.T, method, path string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		switch v := body.(type) {
		case string:
			buf.WriteString(v)
		default:
			require.NoError(t, json.NewEncoder(&buf).Encode(v))
		}
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	a.handler.ServeHTTP(rec, req)
	return rec
}

func decode[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var out T
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &out), rec.Body.String())
	return out
}

func assertError(t *testing.T, rec *httptest.ResponseRecorder, status int, code string) {
	t.Helper()
	require.Equal(t, status, rec.Code, rec.Body.String())
	body := decode[ErrorBody](t, rec)
	assert.Equal(t, code, body.Error)
	assert.NotEmpty(t, body.Message)
}

var setup = map[string]any{
	"symbol":         "600519",
	"entryPrice":     "10.00",
	"stopLoss":       "9.00",
	"takeProfit":     "11.60",
	"entryRationale": "breakout retest",
}

func TestAPI_PlanLifecycle(t *testing.T) {
	api := newTestAPI(t)

	rec := api.do(t, http.MethodPost, "/api/plans", setup)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	created := decode[plan.Plan](t, rec)
	assert.Equal(t, plan.StatusPending, created.Status)
	assert.Equal(t, int64(10000), created.PositionSize)
	base := fmt.Sprintf("/api/plans/%d", created.ID)

	rec = api.do(t, http.MethodPost, base+"/execute", map[string]any{"price": "10.00", "quantity": 10000})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Equal(t, plan.StatusOpen, decode[plan.Plan](t, rec).Status)

	rec = api.do(t, http.MethodPost, base+"/add", map[string]any{"price": "10.20", "quantity": 100})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	rec = api.do(t, http.MethodPost, base+"/trim", map[string]any{"price": "11.00", "quantity": 5000, "newStopLoss": "10.50"})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	trimmed := decode[plan.Plan](t, rec)
	assert.Equal(t, int64(5100), trimmed.CurrentQuantity)
	assert.True(t, trimmed.StopLoss.Equal(decimal.RequireFromString("10.5")))

	api.quotes.On("StockInfo", mock.Anything, "600519").Return(market.Quote{Symbol: "600519", Name: "贵州茅台", Price: decimal.RequireFromString("10.50")}, nil)
	rec = api.do(t, http.MethodGet, "/api/dashboard", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	dash := decode[dashboard.Dashboard](t, rec)
	require.Len(t, dash.Positions, 1)
	assert.True(t, dash.Positions[0].PriceAvailable)

	rec = api.do(t, http.MethodPost, base+"/close", map[string]any{"exitPrice": "11.50", "exitRationale": "target zone", "emotionalState": "calm"})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	exec := decode[plan.Execution](t, rec)
	assert.Equal(t, created.ID, exec.PlanID)
	api.publisher.AssertCalled(t, "Publish", exec.ID)

	rec = api.do(t, http.MethodGet, base+"/transactions", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Len(t, decode[[]plan.Transaction](t, rec), 4)

	rec = api.do(t, http.MethodGet, "/api/history", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	history := decode[[]dashboard.HistoryEntry](t, rec)
	require.Len(t, history, 1)
	assert.Equal(t, "calm", history[0].EmotionalState)

	rec = api.do(t, http.MethodGet, "/api/plans?status=closed", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Len(t, decode[[]plan.Plan](t, rec), 1)

	rec = api.do(t, http.MethodPost, fmt.Sprintf("/api/executions/%d/review", exec.ID), nil)
	assert.Equal(t, http.StatusAccepted, rec.Code)

	rec = api.do(t, http.MethodGet, base+"/commands", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "[]", rec.Body.String())
}

func TestAPI_ErrorMapping(t *testing.T) {
	api := newTestAPI(t)

	low := map[string]any{"symbol": "600519", "entryPrice": "10", "stopLoss": "9", "takeProfit": "11"}
	assertError(t, api.do(t, http.MethodPost, "/api/plans", low), http.StatusBadRequest, CodeDisciplineViolation)

	degenerate := map[string]any{"symbol": "600519", "entryPrice": "10", "stopLoss": "10", "takeProfit": "12"}
	assertError(t, api.do(t, http.MethodPost, "/api/plans", degenerate), http.StatusBadRequest, CodeBadRequest)

	assertError(t, api.do(t, http.MethodPost, "/api/plans", "{not json"), http.StatusBadRequest, CodeBadRequest)
	assertError(t, api.do(t, http.MethodGet, "/api/plans/abc", nil), http.StatusBadRequest, CodeBadRequest)
	assertError(t, api.do(t, http.MethodGet, "/api/plans?status=weird", nil), http.StatusBadRequest, CodeBadRequest)
	assertError(t, api.do(t, http.MethodGet, "/api/plans/999", nil), http.StatusNotFound, CodeNotFound)
	assertError(t, api.do(t, http.MethodPost, "/api/executions/999/review", nil), http.StatusNotFound, CodeNotFound)

	rec := api.do(t, http.MethodPost, "/api/plans", setup)
	require.Equal(t, http.StatusCreated, rec.Code)
	id := decode[plan.Plan](t, rec).ID
	base := fmt.Sprintf("/api/plans/%d", id)

	assertError(t, api.do(t, http.MethodPost, base+"/add", map[string]any{"price": "10", "quantity": 100}), http.StatusConflict, CodeInvalidState)
	assertError(t, api.do(t, http.MethodPost, base+"/execute", map[string]any{"price": "10", "quantity": 150}), http.StatusBadRequest, CodeDisciplineViolation)

	rec = api.do(t, http.MethodPost, base+"/cancel", nil)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Equal(t, plan.StatusCancelled, decode[plan.Plan](t, rec).Status)
	assertError(t, api.do(t, http.MethodPost, base+"/cancel", nil), http.StatusConflict, CodeInvalidState)

	rec = api.do(t, http.MethodDelete, base, nil)
	assert.Equal(t, http.StatusNoContent, rec.Code)
	assertError(t, api.do(t, http.MethodGet, base, nil), http.StatusNotFound, CodeNotFound)
}

func TestAPI_DeleteBySymbol(t *testing.T) {
	api := newTestAPI(t)
	for i := 0; i < 2; i++ {
		require.Equal(t, http.StatusCreated, api.do(t, http.MethodPost, "/api/plans", setup).Code)
	}
	rec := api.do(t, http.MethodDelete, "/api/plans/symbol/600519", nil)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Equal(t, 2, decode[map[string]int](t, rec)["deleted"])
}

func TestAPI_Settings(t *testing.T) {
	api := newTestAPI(t)

	rec := api.do(t, http.MethodGet, "/api/settings", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	view := decode[settings.View](t, rec)
	assert.True(t, view.RiskAmount.Equal(decimal.NewFromInt(10000)))

	rec = api.do(t, http.MethodPut, "/api/settings", map[string]any{"totalCapital": "500000", "riskFraction": "0.02"})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.True(t, decode[settings.View](t, rec).RiskAmount.Equal(decimal.NewFromInt(10000)))

	rec = api.do(t, http.MethodPut, "/api/settings", map[string]any{"totalCapital": "500", "riskFraction": "0.02"})
	assertError(t, rec, http.StatusBadRequest, CodeBadRequest)
}

func TestAPI_Quotes(t *testing.T) {
	api := newTestAPI(t)
	api.quotes.On("StockInfo", mock.Anything, "00700").Return(market.Quote{Symbol: "00700", Name: "腾讯控股", Price: decimal.RequireFromString("382.4")}, nil)
	api.quotes.On("StockInfo", mock.Anything, "600000").Return(market.Quote{}, fmt.Errorf("%w: all providers failed", market.ErrQuoteUnavailable))
	api.quotes.On("StockInfo", mock.Anything, "12").Return(market.Quote{}, fmt.Errorf("%w: \"12\"", market.ErrInvalidSymbol))

	rec := api.do(t, http.MethodGet, "/api/quotes/00700", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "腾讯控股", decode[market.Quote](t, rec).Name)

	assertError(t, api.do(t, http.MethodGet, "/api/quotes/600000", nil), http.StatusServiceUnavailable, CodeQuoteUnavailable)
	assertError(t, api.do(t, http.MethodGet, "/api/quotes/12", nil), http.StatusBadRequest, CodeBadRequest)
}

func TestAPI_StockSearch(t *testing.T) {
	api := newTestAPI(t)
	api.quotes.On("Search", mock.Anything, "茅台").Return([]market.SearchResult{{Code: "600519", Name: "贵州茅台", Market: "sh"}}, nil)
	api.quotes.On("Search", mock.Anything, "zzz").Return([]market.SearchResult{}, nil)
	api.quotes.On("Search", mock.Anything, "一二三四五六七八九十一二三四五六七八九十一").Return(nil, fmt.Errorf("%w: keyword too long", market.ErrInvalidSymbol))

	t.Run("matches", func(t *testing.T) {
		rec := api.do(t, http.MethodGet, "/api/stocks/search?keyword="+url.QueryEscape("茅台"), nil)
		require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
		res := decode[[]market.SearchResult](t, rec)
		require.Len(t, res, 1)
		assert.Equal(t, "贵州茅台", res[0].Name)
	})

	t.Run("no match is an empty array", func(t *testing.T) {
		rec := api.do(t, http.MethodGet, "/api/stocks/search?keyword=zzz", nil)
		require.Equal(t, http.StatusOK, rec.Code)
		assert.JSONEq(t, "[]", rec.Body.String())
	})

	t.Run("oversized keyword", func(t *testing.T) {
		rec := api.do(t, http.MethodGet, "/api/stocks/search?keyword="+url.QueryEscape("一二三四五六七八九十一二三四五六七八九十一"), nil)
		assertError(t, rec, http.StatusBadRequest, CodeBadRequest)
	})
}

func TestAPI_Challenge(t *testing.T) {
	api := newTestAPI(t)
	api.challenger.On("Challenge", mock.Anything, mock.MatchedBy(func(req review.ChallengeRequest) bool {
		return req.StockSymbol == "600519" && req.Logic == "放量突破" && !req.CurrentPrice.Valid
	})).Return(review.ChallengeResult{Risks: []string{"估值偏高"}})

	rec := api.do(t, http.MethodPost, "/api/ai/challenge", map[string]any{"stockSymbol": "600519", "logic": "放量突破"})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Equal(t, []string{"估值偏高"}, decode[review.ChallengeResult](t, rec).Risks)

	assertError(t, api.do(t, http.MethodPost, "/api/ai/challenge", map[string]any{"stockSymbol": "600519"}), http.StatusBadRequest, CodeBadRequest)
}

func TestHealthz(t *testing.T) {
	api := newTestAPI(t)
	rec := api.do(t, http.MethodGet, "/healthz", nil)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"status":"ok"}`, rec.Body.String())
}

func TestNewServer_RequiresPlans(t *testing.T) {
	_, err := NewServer(ServerConfig{})
	assert.Error(t, err)
}
