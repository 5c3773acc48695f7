package review

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"tradejournal/internal/logger"
	"tradejournal/internal/notifier"
	"tradejournal/internal/plan"
	"tradejournal/internal/store"
)

const (
	defaultQueueSize = 64
	defaultWorkers   = 1
)

// ExecutionReviewer 给结算记录生成复盘，由 *Reviewer 实现。
type ExecutionReviewer interface {
	Review(ctx context.Context, p *plan.Plan, e *plan.Execution) (plan.Review, error)
}

type QueueOptions struct {
	Size    int
	Workers int
	Timeout time.Duration
}

// Queue 平仓后异步复盘。Publish 不阻塞命令处理，队列满时直接丢弃并告警；
// 失败只记日志，执行记录保持未复盘状态，可通过手动触发重试。
type Queue struct {
	store    store.Store
	reviewer ExecutionReviewer
	notify   notifier.TextNotifier
	ch       chan int64
	workers  int
	timeout  time.Duration

	mu       sync.Mutex
	inflight map[int64]struct{}
}

// NewQueue reviewer 为 nil 时队列处于关闭状态，Publish 为空操作。
func NewQueue(s store.Store, reviewer ExecutionReviewer, n notifier.TextNotifier, opts QueueOptions) *Queue {
	size := opts.Size
	if size <= 0 {
		size = defaultQueueSize
	}
	workers := opts.Workers
	if workers <= 0 {
		workers = defaultWorkers
	}
	timeout := opts.Timeout
	if timeout <= 0 {
		timeout = defaultTimeout
	}
	if n == nil {
		n = notifier.Nop{}
	}
	return &Queue{
		store:    s,
		reviewer: reviewer,
		notify:   n,
		ch:       make(chan int64, size),
		workers:  workers,
		timeout:  timeout,
		inflight: make(map[int64]struct{}),
	}
}

func (q *Queue) Enabled() bool { return q != nil && q.reviewer != nil }

// Publish 投递一条待复盘的 execution。
func (q *Queue) Publish(executionID int64) {
	if !q.Enabled() {
		logger.Debugf("[review] disabled, skip execution %d", executionID)
		return
	}
	select {
	case q.ch <- executionID:
	default:
		logger.Warnf("[review] queue full, dropped execution %d", executionID)
	}
}

// Run 启动 worker，直到 ctx 结束。
func (q *Queue) Run(ctx context.Context) error {
	if !q.Enabled() {
		<-ctx.Done()
		return nil
	}
	var wg sync.WaitGroup
	for i := 0; i < q.workers; i++ {
		wg.Add(1)
		go func(id int) {
			defer wg.Done()
			q.worker(ctx, id)
		}(i)
	}
	logger.Infof("[review] queue started workers=%d", q.workers)
	wg.Wait()
	return nil
}

func (q *Queue) worker(ctx context.Context, id int) {
	for {
		select {
		case <-ctx.Done():
			return
		case execID := <-q.ch:
			func() {
				defer func() {
					if r := recover(); r != nil {
						logger.Errorf("[review] worker %d panic on execution %d: %v", id, execID, r)
					}
				}()
				if err := q.Process(ctx, execID); err != nil {
					logger.Errorf("[review] execution %d failed: %v", execID, err)
				}
			}()
		}
	}
}

// Process 同步完成一次复盘：读取、调用模型、写回、推送。已复盘的记录直接跳过。
func (q *Queue) Process(ctx context.Context, executionID int64) error {
	if !q.Enabled() {
		return ErrDisabled
	}
	if !q.acquire(executionID) {
		logger.Debugf("[review] execution %d already in flight", executionID)
		return nil
	}
	defer q.release(executionID)

	var (
		exec *plan.Execution
		pl   *plan.Plan
	)
	err := store.ReadOnly(ctx, q.store, func(uow store.UnitOfWork) error {
		var err error
		if exec, err = uow.Executions().Get(ctx, executionID); err != nil {
			return err
		}
		pl, err = uow.Plans().Get(ctx, exec.PlanID)
		return err
	})
	if err != nil {
		return err
	}
	if exec.Reviewed() {
		return nil
	}

	rctx, cancel := context.WithTimeout(ctx, q.timeout)
	result, err := q.reviewer.Review(rctx, pl, exec)
	cancel()
	if err != nil {
		return err
	}

	var saved bool
	err = store.WithTx(ctx, q.store, func(uow store.UnitOfWork) error {
		var err error
		saved, err = uow.Executions().SaveReview(ctx, executionID, result)
		return err
	})
	if err != nil {
		return fmt.Errorf("save review: %w", err)
	}
	if !saved {
		logger.Infof("[review] execution %d was reviewed concurrently, result discarded", executionID)
		return nil
	}
	logger.Infof("[review] execution %d plan %d %s scored %d", executionID, pl.ID, pl.Symbol, result.Score)
	if err := q.notify.SendText(ctx, reviewMessage(pl, exec, result)); err != nil && !errors.Is(err, context.Canceled) {
		logger.Warnf("[review] notify execution %d failed: %v", executionID, err)
	}
	return nil
}

func (q *Queue) acquire(id int64) bool {
	q.mu.Lock()
	defer q.mu.Unlock()
	if _, ok := q.inflight[id]; ok {
		return false
	}
	q.inflight[id] = struct{}{}
	return true
}

func (q *Queue) release(id int64) {
	q.mu.Lock()
	delete(q.inflight, id)
	q.mu.Unlock()
}

func reviewMessage(p *plan.Plan, e *plan.Execution, r plan.Review) string {
	return notifier.ReviewCard{
		Symbol:      p.Symbol,
		Direction:   string(p.Direction),
		AvgEntry:    p.CostBasis(),
		ExitPrice:   e.ExitPrice,
		Quantity:    p.TotalQuantity,
		RealizedPnL: e.RealizedPnL,
		Emotion:     e.EmotionalState,
		Score:       r.Score,
		Comment:     r.Comment,
		Model:       r.Model,
		ReviewedAt:  r.ReviewedAt,
	}.Render()
}
