package trader

import (
	"context"
	"errors"
	"fmt"
	"runtime/debug"
	"sync"
	"sync/atomic"
	"time"

	"tradejournal/internal/logger"
	"tradejournal/internal/plan"
	"tradejournal/internal/store"
	"tradejournal/internal/store/cmdlog"
)

const (
	defaultShards        = 8
	defaultQueueSize     = 100
	defaultSlowThreshold = 100 * time.Millisecond
	commandTimeout       = 30 * time.Second
)

// Options 调整 Trader 的分片与告警阈值。
type Options struct {
	Shards        int
	QueueSize     int
	SlowThreshold time.Duration
	Rules         plan.Rules
	Clock         func() time.Time
}

// Trader is the command actor that serializes plan lifecycle changes.
//
// Architecture:
//   - Commands are routed to shard planID mod N; each shard runs one loop, so
//     every command on a given plan has a single writer.
//   - Plans on different shards proceed in parallel.
//   - Each command runs in its own store unit of work and is audited to the
//     command log afterwards.
type Trader struct {
	store    store.Store
	cmdlog   *cmdlog.Store
	reviews  ReviewPublisher
	registry *HandlerRegistry

	rules plan.Rules
	clock func() time.Time
	slow  time.Duration

	shards    []chan CommandEnvelope
	next      atomic.Uint64
	stopCh    chan struct{}
	startOnce sync.Once
	stopOnce  sync.Once
	wg        sync.WaitGroup
}

func NewTrader(s store.Store, log *cmdlog.Store, reviews ReviewPublisher, opts Options) *Trader {
	reg := NewHandlerRegistry()
	reg.RegisterDefaultHandlers()

	n := opts.Shards
	if n <= 0 {
		n = defaultShards
	}
	queue := opts.QueueSize
	if queue <= 0 {
		queue = defaultQueueSize
	}
	slow := opts.SlowThreshold
	if slow <= 0 {
		slow = defaultSlowThreshold
	}
	clock := opts.Clock
	if clock == nil {
		clock = time.Now
	}
	rules := opts.Rules
	if rules.LotUnit <= 0 || !rules.MinRiskReward.IsPositive() {
		rules = plan.DefaultRules()
	}
	t := &Trader{
		store:    s,
		cmdlog:   log,
		reviews:  reviews,
		registry: reg,
		rules:    rules,
		clock:    clock,
		slow:     slow,
		shards:   make([]chan CommandEnvelope, n),
		stopCh:   make(chan struct{}),
	}
	for i := range t.shards {
		t.shards[i] = make(chan CommandEnvelope, queue)
	}
	return t
}

// Start 启动各分片循环，重复调用无效。
func (t *Trader) Start() {
	t.startOnce.Do(func() {
		for i, ch := range t.shards {
			t.wg.Add(1)
			go t.runLoop(i, ch)
		}
	})
}

// Stop 等待各分片处理完当前命令后退出；排队中的命令由调用方收到停止错误。
func (t *Trader) Stop() {
	t.stopOnce.Do(func() { close(t.stopCh) })
	t.wg.Wait()
}

func (t *Trader) Rules() plan.Rules { return t.rules }

func (t *Trader) shardFor(cmd CommandEnvelope) chan CommandEnvelope {
	n := uint64(len(t.shards))
	if cmd.PlanID > 0 {
		return t.shards[uint64(cmd.PlanID)%n]
	}
	return t.shards[t.next.Add(1)%n]
}

func (t *Trader) Send(cmd CommandEnvelope) error {
	select {
	case <-t.stopCh:
		return fmt.Errorf("trader is stopped")
	default:
	}
	select {
	case t.shardFor(cmd) <- cmd:
		return nil
	case <-t.stopCh:
		return fmt.Errorf("trader is stopped")
	}
}

// SendSync 投递命令并等待结果。ctx 取消只影响等待，已入队的命令仍会执行。
func (t *Trader) SendSync(ctx context.Context, cmd CommandEnvelope) (any, error) {
	if cmd.ReplyCh == nil {
		cmd.ReplyCh = make(chan Result, 1)
	}
	if cmd.CreatedAt.IsZero() {
		cmd.CreatedAt = t.clock()
	}

	if err := t.Send(cmd); err != nil {
		return nil, err
	}

	select {
	case res := <-cmd.ReplyCh:
		return res.Value, res.Err
	case <-ctx.Done():
		return nil, ctx.Err()
	case <-t.stopCh:
		return nil, fmt.Errorf("trader stopped during sync call")
	}
}

func (t *Trader) runLoop(shard int, ch chan CommandEnvelope) {
	defer t.wg.Done()
	logger.Debugf("[trader] shard %d started", shard)

	for {
		select {
		case cmd := <-ch:
			t.handleCommand(cmd)
		case <-t.stopCh:
			logger.Debugf("[trader] shard %d stopping", shard)
			return
		}
	}
}

// handleCommand is the single entry point for processing a command.
//
// Safety:
//   - Catches panics so one bad handler cannot kill its shard.
//   - Warns about slow handlers.
//   - Appends an audit record once the outcome is known.
//   - Replies on ReplyCh (if present) to unblock SendSync.
func (t *Trader) handleCommand(cmd CommandEnvelope) {
	var (
		value any
		err   error
	)
	start := time.Now()

	defer func() {
		if r := recover(); r != nil {
			logger.Errorf("[trader] panic handling %s: %v\n%s", cmd.Type, r, debug.Stack())
			err = fmt.Errorf("panic: %v", r)
		}

		dur := time.Since(start)
		if dur > t.slow {
			logger.Warnf("[trader] slow command %s plan=%d took %v", cmd.Type, cmd.PlanID, dur)
		}
		t.audit(cmd, value, err, dur)

		if cmd.ReplyCh != nil {
			cmd.ReplyCh <- Result{Value: value, Err: err}
			close(cmd.ReplyCh)
		}
	}()

	handler, ok := t.registry.Get(cmd.Type)
	if !ok {
		err = fmt.Errorf("no handler registered for command type: %s", cmd.Type)
		logger.Warnf("[trader] %v", err)
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), commandTimeout)
	defer cancel()
	value, err = handler.Handle(ctx, NewHandlerContext(t), cmd)
	switch outcomeOf(err) {
	case cmdlog.OutcomeRejected:
		logger.Infof("[trader] %s plan=%d rejected: %v", cmd.Type, cmd.PlanID, err)
	case cmdlog.OutcomeFailed:
		logger.Errorf("[trader] failed to handle %s plan=%d: %v", cmd.Type, cmd.PlanID, err)
	}
}

func (t *Trader) audit(cmd CommandEnvelope, value any, err error, dur time.Duration) {
	if t.cmdlog == nil {
		return
	}
	rec := cmdlog.Record{
		CommandID:  cmd.ID,
		Type:       string(cmd.Type),
		PlanID:     cmd.PlanID,
		Payload:    string(cmd.Payload),
		Outcome:    outcomeOf(err),
		DurationMs: dur.Milliseconds(),
		CreatedAt:  cmd.CreatedAt,
	}
	if p, ok := value.(*plan.Plan); ok && p != nil && rec.PlanID == 0 {
		rec.PlanID = p.ID
	}
	if err != nil {
		rec.Error = err.Error()
	}
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if aerr := t.cmdlog.Append(ctx, rec); aerr != nil {
		logger.Errorf("[trader] failed to persist command %s: %v", cmd.Type, aerr)
	}
}

// outcomeOf 区分业务拒绝与系统失败。
func outcomeOf(err error) string {
	switch {
	case err == nil:
		return cmdlog.OutcomeApplied
	case errors.Is(err, plan.ErrDisciplineViolation),
		errors.Is(err, plan.ErrInvalidState),
		errors.Is(err, plan.ErrInvalidSetup),
		errors.Is(err, plan.ErrNotFound):
		return cmdlog.OutcomeRejected
	default:
		return cmdlog.OutcomeFailed
	}
}
