package app

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"tradejournal/internal/config"
	"tradejournal/internal/plan"
	"tradejournal/internal/review"
	"tradejournal/internal/store"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

type MockChatModel struct {
	mock.Mock
}

func (m *MockChatModel) Model() string { return "mock-coach" }

func (m *MockChatModel) Complete(ctx context.Context, req review.ChatRequest) (string, error) {
	args := m.Called(ctx, req)
	return args.String(0), args.Error(1)
}

func testConfig(t *testing.T) *config.Config {
	t.Helper()
	return &config.Config{
		App: config.AppConfig{LogLevel: "error", HTTPAddr: "127.0.0.1:0", ShutdownSeconds: 1},
		Storage: config.StorageConfig{
			Driver:         "memory",
			MaxOpenConns:   1,
			CommandLogPath: filepath.Join(t.TempDir(), "commands.db"),
		},
		Trading: config.TradingConfig{
			LotUnit:             100,
			MinRiskReward:       "1.5",
			DangerBuffer:        "0.02",
			DefaultTotalCapital: "1000000",
			DefaultRiskFraction: "0.01",
			CommandShards:       2,
		},
		Market: config.MarketConfig{TimeoutSeconds: 1, BreakerThreshold: 1, BreakerCooldownSeconds: 1, QuoteConcurrency: 2},
		Review: config.ReviewConfig{Enabled: true, APIURL: "http://127.0.0.1:1", Model: "mock-coach", QueueSize: 4, Workers: 1},
	}
}

func d(s string) decimal.Decimal { return decimal.RequireFromString(s) }

func TestAppBuilder_BuildsWiredApp(t *testing.T) {
	model := new(MockChatModel)
	model.On("Complete", mock.Anything, mock.Anything).Return(`{"score": 90, "comment": "纪律执行到位"}`, nil)

	a, err := NewAppBuilder(testConfig(t), WithReviewModel(model)).Build(context.Background())
	require.NoError(t, err)
	t.Cleanup(func() { _ = a.Close() })

	require.NotNil(t, a.Summary)
	assert.Equal(t, "mock-coach", a.Summary.ReviewModel)
	assert.Equal(t, int64(1), a.Summary.PromptVersion)
	assert.Contains(t, a.Summary.String(), "最小盈亏比: 1.5")
	assert.True(t, a.Reviews().Enabled())

	a.StartTrader()
	defer a.StopTrader()
	ctx := context.Background()
	p, err := a.Plans().CreatePlan(ctx, plan.CreateInput{
		Symbol: "600519", EntryPrice: d("10"), StopLoss: d("9"), TakeProfit: d("12"),
	})
	require.NoError(t, err)
	assert.Equal(t, int64(10000), p.PositionSize)
	_, err = a.Plans().ExecutePlan(ctx, p.ID, plan.Fill{Price: d("10"), Quantity: 10000})
	require.NoError(t, err)
	exec, err := a.Plans().ClosePlan(ctx, p.ID, plan.CloseInput{ExitPrice: d("11"), ExitRationale: "target"})
	require.NoError(t, err)

	require.NoError(t, a.Reviews().Process(ctx, exec.ID))
	require.NoError(t, store.ReadOnly(ctx, a.store, func(uow store.UnitOfWork) error {
		e, err := uow.Executions().Get(ctx, exec.ID)
		require.NoError(t, err)
		require.True(t, e.Reviewed())
		assert.Equal(t, 90, e.Review.Score)
		return nil
	}))

	records, err := a.Plans().CommandLog(ctx, p.ID, 10)
	require.NoError(t, err)
	assert.Len(t, records, 3)
}

func TestAppBuilder_ReviewDisabled(t *testing.T) {
	cfg := testConfig(t)
	cfg.Review.Enabled = false
	cfg.Storage.CommandLogPath = ""

	a, err := NewAppBuilder(cfg).Build(context.Background())
	require.NoError(t, err)
	defer a.Close()
	assert.False(t, a.Reviews().Enabled())
	assert.Equal(t, "disabled", a.Summary.ReviewModel)
	assert.Equal(t, "-", orDash(a.Summary.CommandLog))
}

func TestApp_RunStopsOnCancel(t *testing.T) {
	cfg := testConfig(t)
	cfg.Review.Enabled = false
	a, err := NewApp(cfg)
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- a.Run(ctx) }()
	time.Sleep(50 * time.Millisecond)
	cancel()

	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("app did not stop")
	}
	assert.NoError(t, a.Close())
}

func TestNewApp_NilConfig(t *testing.T) {
	_, err := NewApp(nil)
	assert.Error(t, err)
}
