package review

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

type MockPriceLookup struct {
	mock.Mock
}

func (m *MockPriceLookup) CurrentPrice(ctx context.Context, code string) (decimal.Decimal, bool) {
	args := m.Called(ctx, code)
	return args.Get(0).(decimal.Decimal), args.Bool(1)
}

func newTestChallenger(t *testing.T, model ChatModel, prices PriceLookup) *Challenger {
	t.Helper()
	prompts, err := NewRegistry("")
	require.NoError(t, err)
	return NewChallenger(model, prompts, prices, 0)
}

func TestChallenger_Challenge(t *testing.T) {
	prices := new(MockPriceLookup)
	prices.On("CurrentPrice", mock.Anything, "600519").Return(d("1688.88"), true)
	model := new(MockChatModel)
	model.On("Complete", mock.Anything, mock.MatchedBy(func(req ChatRequest) bool {
		return req.Ref == "challenge:600519" &&
			strings.Contains(req.User, "当前价格：1688.88") &&
			strings.Contains(req.User, "买入逻辑：放量突破")
	})).Return(`["估值偏高", " ", "量能不持续", "大盘走弱", "第四条"]`, nil)

	got := newTestChallenger(t, model, prices).Challenge(context.Background(), ChallengeRequest{
		StockSymbol: " sh600519 ",
		Logic:       "放量突破",
	})
	assert.False(t, got.Fallback)
	assert.Equal(t, []string{"估值偏高", "量能不持续", "大盘走弱"}, got.Risks)
	model.AssertExpectations(t)
}

func TestChallenger_ProvidedPriceSkipsLookup(t *testing.T) {
	prices := new(MockPriceLookup)
	model := new(MockChatModel)
	model.On("Complete", mock.Anything, mock.MatchedBy(func(req ChatRequest) bool {
		return strings.Contains(req.User, "当前价格：12.5")
	})).Return(`["a"]`, nil)

	got := newTestChallenger(t, model, prices).Challenge(context.Background(), ChallengeRequest{
		StockSymbol:  "000001",
		CurrentPrice: decimal.NewNullDecimal(d("12.5")),
		Logic:        "x",
	})
	assert.Equal(t, []string{"a"}, got.Risks)
	prices.AssertNotCalled(t, "CurrentPrice", mock.Anything, mock.Anything)
}

func TestChallenger_FallsBack(t *testing.T) {
	req := ChallengeRequest{StockSymbol: "AAPL", Logic: "AI 概念"}

	t.Run("model error", func(t *testing.T) {
		model := new(MockChatModel)
		model.On("Complete", mock.Anything, mock.Anything).Return("", errors.New("down"))
		got := newTestChallenger(t, model, nil).Challenge(context.Background(), req)
		assert.True(t, got.Fallback)
		assert.Equal(t, FallbackRisks, got.Risks)
	})
	t.Run("object instead of array", func(t *testing.T) {
		model := new(MockChatModel)
		model.On("Complete", mock.Anything, mock.Anything).Return(`{"risks": ["a"]}`, nil)
		got := newTestChallenger(t, model, nil).Challenge(context.Background(), req)
		assert.True(t, got.Fallback)
	})
	t.Run("disabled", func(t *testing.T) {
		got := NewChallenger(nil, nil, nil, 0).Challenge(context.Background(), req)
		assert.True(t, got.Fallback)
		assert.Len(t, got.Risks, 3)
	})
}
