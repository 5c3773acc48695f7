package review

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"tradejournal/internal/plan"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

type MockChatModel struct {
	mock.Mock
}

func (m *MockChatModel) Model() string { return "mock-coach" }

func (m *MockChatModel) Complete(ctx context.Context, req ChatRequest) (string, error) {
	args := m.Called(ctx, req)
	return args.String(0), args.Error(1)
}

func d(s string) decimal.Decimal { return decimal.RequireFromString(s) }

func closedTrade() (*plan.Plan, *plan.Execution) {
	p := &plan.Plan{
		ID:             7,
		Symbol:         "600519",
		Direction:      plan.DirectionLong,
		EntryPrice:     d("10"),
		StopLoss:       d("9"),
		TakeProfit:     d("12"),
		PositionSize:   10000,
		AvgEntryPrice:  decimal.NewNullDecimal(d("10.002")),
		TotalQuantity:  10100,
		RealizedPnL:    decimal.NewNullDecimal(d("12629.8")),
		EntryRationale: "breakout above 20-day high",
		Status:         plan.StatusClosed,
	}
	e := &plan.Execution{
		ID:            3,
		PlanID:        7,
		ExitPrice:     d("11.5"),
		RealizedPnL:   d("12629.8"),
		ExitRationale: "target zone reached",
		ClosedAt:      time.Date(2024, 3, 2, 0, 0, 0, 0, time.UTC),
	}
	return p, e
}

func newTestReviewer(t *testing.T, model ChatModel) *Reviewer {
	t.Helper()
	prompts, err := NewRegistry("")
	require.NoError(t, err)
	r := NewReviewer(model, prompts)
	r.now = func() time.Time { return time.Date(2024, 3, 2, 1, 0, 0, 0, time.UTC) }
	return r
}

func TestReviewer_Review(t *testing.T) {
	model := new(MockChatModel)
	model.On("Complete", mock.Anything, mock.MatchedBy(func(req ChatRequest) bool {
		return req.Ref == "execution:3" &&
			strings.Contains(req.User, "持仓均价：10.002") &&
			strings.Contains(req.User, "情绪标签：未填写") &&
			strings.Contains(req.System, "0-100")
	})).Return("点评如下：\n```json\n{\"score\": \"85\", \"comment\": \" 严格按计划止盈 \"}\n```", nil)

	p, e := closedTrade()
	got, err := newTestReviewer(t, model).Review(context.Background(), p, e)
	require.NoError(t, err)
	assert.Equal(t, 85, got.Score)
	assert.Equal(t, "严格按计划止盈", got.Comment)
	assert.Equal(t, "mock-coach", got.Model)
	assert.JSONEq(t, `{"score": "85", "comment": " 严格按计划止盈 "}`, string(got.Raw))
	assert.Equal(t, time.Date(2024, 3, 2, 1, 0, 0, 0, time.UTC), got.ReviewedAt)
	model.AssertExpectations(t)
}

func TestReviewer_RejectsBadOutput(t *testing.T) {
	cases := []struct {
		name string
		out  string
		err  error
	}{
		{"prose only", "这笔交易还行", ErrInvalidOutput},
		{"score out of range", `{"score": 150, "comment": "x"}`, ErrInvalidOutput},
		{"missing comment", `{"score": 60}`, ErrInvalidOutput},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			model := new(MockChatModel)
			model.On("Complete", mock.Anything, mock.Anything).Return(tc.out, nil)
			p, e := closedTrade()
			_, err := newTestReviewer(t, model).Review(context.Background(), p, e)
			assert.ErrorIs(t, err, tc.err)
		})
	}

	t.Run("model error", func(t *testing.T) {
		model := new(MockChatModel)
		boom := errors.New("timeout")
		model.On("Complete", mock.Anything, mock.Anything).Return("", boom)
		p, e := closedTrade()
		_, err := newTestReviewer(t, model).Review(context.Background(), p, e)
		assert.ErrorIs(t, err, boom)
	})

	t.Run("disabled", func(t *testing.T) {
		p, e := closedTrade()
		var r *Reviewer
		_, err := r.Review(context.Background(), p, e)
		assert.ErrorIs(t, err, ErrDisabled)
	})
}

func TestNewTradeData_KeepsEmotion(t *testing.T) {
	p, e := closedTrade()
	e.EmotionalState = "greedy"
	data := NewTradeData(p, e)
	assert.Equal(t, "greedy", data.EmotionalState)
	assert.Equal(t, int64(10100), data.Quantity)
	assert.Equal(t, "LONG", data.Direction)
}

func TestClampScore(t *testing.T) {
	assert.Equal(t, 0, clampScore(-3))
	assert.Equal(t, 100, clampScore(101))
	assert.Equal(t, 42, clampScore(42))
}
