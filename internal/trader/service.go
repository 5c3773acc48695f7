package trader

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"strings"

	"tradejournal/internal/logger"
	"tradejournal/internal/pkg/trading"
	"tradejournal/internal/plan"
	"tradejournal/internal/store"
	"tradejournal/internal/store/cmdlog"

	"github.com/google/uuid"
)

// RiskBudgetProvider supplies the current capital and risk fraction.
type RiskBudgetProvider interface {
	RiskBudget(ctx context.Context) (trading.RiskBudget, error)
}

// Service is the synchronous facade used by the transport layer. Writes go
// through the actor; reads open their own read-only unit of work.
type Service struct {
	trader  *Trader
	store   store.Store
	budgets RiskBudgetProvider
	reviews ReviewPublisher
	cmdlog  *cmdlog.Store
}

func NewService(t *Trader, s store.Store, budgets RiskBudgetProvider, reviews ReviewPublisher, log *cmdlog.Store) *Service {
	return &Service{trader: t, store: s, budgets: budgets, reviews: reviews, cmdlog: log}
}

// CreatePlan 读取风险预算后交给 actor 建计划。
// 预算必须在进入命令事务之前取得。
func (s *Service) CreatePlan(ctx context.Context, in plan.CreateInput) (*plan.Plan, error) {
	var budget trading.RiskBudget
	if s.budgets != nil {
		b, err := s.budgets.RiskBudget(ctx)
		if err != nil {
			return nil, fmt.Errorf("load risk budget: %w", err)
		}
		budget = b
	}
	return dispatchAs[*plan.Plan](ctx, s, CmdCreatePlan, 0, CreatePlanPayload{Input: in, Budget: budget})
}

func (s *Service) ExecutePlan(ctx context.Context, id int64, fill plan.Fill) (*plan.Plan, error) {
	return dispatchAs[*plan.Plan](ctx, s, CmdExecutePlan, id, fill)
}

func (s *Service) AddPosition(ctx context.Context, id int64, fill plan.Fill) (*plan.Plan, error) {
	return dispatchAs[*plan.Plan](ctx, s, CmdAddPosition, id, fill)
}

func (s *Service) TrimPosition(ctx context.Context, id int64, in plan.TrimInput) (*plan.Plan, error) {
	return dispatchAs[*plan.Plan](ctx, s, CmdTrimPosition, id, in)
}

func (s *Service) ClosePlan(ctx context.Context, id int64, in plan.CloseInput) (*plan.Execution, error) {
	return dispatchAs[*plan.Execution](ctx, s, CmdClosePlan, id, in)
}

func (s *Service) CancelPlan(ctx context.Context, id int64) error {
	_, err := dispatchAs[*plan.Plan](ctx, s, CmdCancelPlan, id, nil)
	return err
}

func (s *Service) DeletePlan(ctx context.Context, id int64) error {
	_, err := s.dispatch(ctx, CmdDeletePlan, id, nil)
	return err
}

// DeletePlansBySymbol 逐个删除该代码下可删除的计划，已有流水的计划跳过。
func (s *Service) DeletePlansBySymbol(ctx context.Context, symbol string) (int, error) {
	symbol = strings.ToUpper(strings.TrimSpace(symbol))
	if symbol == "" {
		return 0, fmt.Errorf("%w: symbol is required", plan.ErrInvalidSetup)
	}
	var plans []plan.Plan
	err := store.ReadOnly(ctx, s.store, func(uow store.UnitOfWork) error {
		var err error
		plans, err = uow.Plans().ListBySymbol(ctx, symbol)
		return err
	})
	if err != nil {
		return 0, err
	}
	deleted := 0
	for _, p := range plans {
		if p.Deletable() != nil {
			continue
		}
		if err := s.DeletePlan(ctx, p.ID); err != nil {
			// 期间状态可能已变化
			if errors.Is(err, plan.ErrInvalidState) || errors.Is(err, plan.ErrNotFound) {
				continue
			}
			return deleted, err
		}
		deleted++
	}
	logger.Infof("[trader] deleted %d/%d plans for %s", deleted, len(plans), symbol)
	return deleted, nil
}

func (s *Service) GetPlan(ctx context.Context, id int64) (*plan.Plan, error) {
	var out *plan.Plan
	err := store.ReadOnly(ctx, s.store, func(uow store.UnitOfWork) error {
		var err error
		out, err = uow.Plans().Get(ctx, id)
		return err
	})
	return out, err
}

// ListByStatus 返回指定状态的计划；status 为空时返回全部，按创建时间倒序。
func (s *Service) ListByStatus(ctx context.Context, status plan.Status) ([]plan.Plan, error) {
	statuses := []plan.Status{status}
	if status == "" {
		statuses = plan.AllStatuses()
	}
	var out []plan.Plan
	err := store.ReadOnly(ctx, s.store, func(uow store.UnitOfWork) error {
		for _, st := range statuses {
			list, err := uow.Plans().ListByStatus(ctx, st)
			if err != nil {
				return err
			}
			out = append(out, list...)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	if len(statuses) > 1 {
		sort.SliceStable(out, func(i, j int) bool {
			if !out[i].CreatedAt.Equal(out[j].CreatedAt) {
				return out[i].CreatedAt.After(out[j].CreatedAt)
			}
			return out[i].ID > out[j].ID
		})
	}
	if out == nil {
		out = []plan.Plan{}
	}
	return out, nil
}

// ListTransactions 按时间升序返回流水；计划不存在时返回 ErrNotFound。
func (s *Service) ListTransactions(ctx context.Context, id int64) ([]plan.Transaction, error) {
	var out []plan.Transaction
	err := store.ReadOnly(ctx, s.store, func(uow store.UnitOfWork) error {
		if _, err := uow.Plans().Get(ctx, id); err != nil {
			return err
		}
		var err error
		out, err = uow.Transactions().ListByPlan(ctx, id)
		return err
	})
	if err != nil {
		return nil, err
	}
	if out == nil {
		out = []plan.Transaction{}
	}
	return out, nil
}

// RequestReview 手动触发复盘。已复盘的执行记录直接忽略。
func (s *Service) RequestReview(ctx context.Context, executionID int64) error {
	var exec *plan.Execution
	err := store.ReadOnly(ctx, s.store, func(uow store.UnitOfWork) error {
		var err error
		exec, err = uow.Executions().Get(ctx, executionID)
		return err
	})
	if err != nil {
		return err
	}
	if exec.Reviewed() {
		logger.Infof("[trader] execution %d already reviewed, skip", executionID)
		return nil
	}
	if s.reviews != nil {
		s.reviews.Publish(exec.ID)
	}
	return nil
}

// CommandLog 返回计划的命令审计记录。
func (s *Service) CommandLog(ctx context.Context, planID int64, limit int) ([]cmdlog.Record, error) {
	if s.cmdlog == nil {
		return []cmdlog.Record{}, nil
	}
	recs, err := s.cmdlog.ListByPlan(ctx, planID, limit)
	if err != nil {
		return nil, err
	}
	if recs == nil {
		recs = []cmdlog.Record{}
	}
	return recs, nil
}

func (s *Service) dispatch(ctx context.Context, typ CommandType, planID int64, payload any) (any, error) {
	if typ != CmdCreatePlan && planID <= 0 {
		return nil, fmt.Errorf("%w: plan %d", plan.ErrNotFound, planID)
	}
	var raw json.RawMessage
	if payload != nil {
		b, err := json.Marshal(payload)
		if err != nil {
			return nil, fmt.Errorf("encode %s payload: %w", typ, err)
		}
		raw = b
	}
	return s.trader.SendSync(ctx, CommandEnvelope{
		ID:      uuid.NewString(),
		Type:    typ,
		PlanID:  planID,
		Payload: raw,
	})
}

func dispatchAs[T any](ctx context.Context, s *Service, typ CommandType, planID int64, payload any) (T, error) {
	var zero T
	v, err := s.dispatch(ctx, typ, planID, payload)
	if err != nil {
		return zero, err
	}
	out, ok := v.(T)
	if !ok {
		return zero, fmt.Errorf("unexpected %s result type %T", typ, v)
	}
	return out, nil
}
