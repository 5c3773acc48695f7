package trader

import (
	"context"
	"time"

	"tradejournal/internal/plan"
	"tradejournal/internal/store"
)

// CommandHandler defines the interface for handling one command type.
type CommandHandler interface {
	// Type returns the command type this handler processes.
	Type() CommandType

	// Handle applies the command inside its own unit of work. The returned
	// value is delivered to the caller unchanged.
	Handle(ctx context.Context, hc *HandlerContext, cmd CommandEnvelope) (any, error)
}

// ReviewPublisher receives execution ids once a plan has closed and committed.
type ReviewPublisher interface {
	Publish(executionID int64)
}

// HandlerContext gives handlers what they need from the Trader without
// exposing the shard machinery.
type HandlerContext struct {
	trader *Trader
}

// NewHandlerContext creates a new handler context wrapping a Trader.
func NewHandlerContext(t *Trader) *HandlerContext {
	return &HandlerContext{trader: t}
}

func (c *HandlerContext) Store() store.Store { return c.trader.store }

func (c *HandlerContext) Rules() plan.Rules { return c.trader.rules }

func (c *HandlerContext) Now() time.Time { return c.trader.clock().UTC() }

// PublishReview 在事务提交后调用；未配置复盘时忽略。
func (c *HandlerContext) PublishReview(executionID int64) {
	if c.trader.reviews == nil || executionID <= 0 {
		return
	}
	c.trader.reviews.Publish(executionID)
}
