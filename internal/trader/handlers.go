package trader

import (
	"context"
	"encoding/json"
	"fmt"

	"tradejournal/internal/plan"
	"tradejournal/internal/store"
)

type CreatePlanHandler struct{}

func (h *CreatePlanHandler) Type() CommandType { return CmdCreatePlan }

func (h *CreatePlanHandler) Handle(ctx context.Context, hc *HandlerContext, cmd CommandEnvelope) (any, error) {
	var payload CreatePlanPayload
	if err := decodePayload(cmd, &payload); err != nil {
		return nil, err
	}
	p, err := plan.New(payload.Input, hc.Rules(), payload.Budget, hc.Now())
	if err != nil {
		return nil, err
	}
	err = store.WithTx(ctx, hc.Store(), func(uow store.UnitOfWork) error {
		return uow.Plans().Create(ctx, p)
	})
	if err != nil {
		return nil, err
	}
	return p, nil
}

type ExecutePlanHandler struct{}

func (h *ExecutePlanHandler) Type() CommandType { return CmdExecutePlan }

func (h *ExecutePlanHandler) Handle(ctx context.Context, hc *HandlerContext, cmd CommandEnvelope) (any, error) {
	var fill plan.Fill
	if err := decodePayload(cmd, &fill); err != nil {
		return nil, err
	}
	return mutatePlan(ctx, hc, cmd.PlanID, func(uow store.UnitOfWork, p *plan.Plan) error {
		txn, err := p.Execute(fill, hc.Rules(), hc.Now())
		if err != nil {
			return err
		}
		return uow.Transactions().Append(ctx, &txn)
	})
}

type AddPositionHandler struct{}

func (h *AddPositionHandler) Type() CommandType { return CmdAddPosition }

func (h *AddPositionHandler) Handle(ctx context.Context, hc *HandlerContext, cmd CommandEnvelope) (any, error) {
	var fill plan.Fill
	if err := decodePayload(cmd, &fill); err != nil {
		return nil, err
	}
	return mutatePlan(ctx, hc, cmd.PlanID, func(uow store.UnitOfWork, p *plan.Plan) error {
		txn, err := p.AddPosition(fill, hc.Rules(), hc.Now())
		if err != nil {
			return err
		}
		return uow.Transactions().Append(ctx, &txn)
	})
}

type TrimPositionHandler struct{}

func (h *TrimPositionHandler) Type() CommandType { return CmdTrimPosition }

func (h *TrimPositionHandler) Handle(ctx context.Context, hc *HandlerContext, cmd CommandEnvelope) (any, error) {
	var in plan.TrimInput
	if err := decodePayload(cmd, &in); err != nil {
		return nil, err
	}
	var exec *plan.Execution
	p, err := mutatePlan(ctx, hc, cmd.PlanID, func(uow store.UnitOfWork, p *plan.Plan) error {
		out, err := p.Trim(in, hc.Rules(), hc.Now())
		if err != nil {
			return err
		}
		exec = out.Execution
		return recordOutcome(ctx, uow, out)
	})
	if err != nil {
		return nil, err
	}
	if exec != nil {
		hc.PublishReview(exec.ID)
	}
	return p, nil
}

type ClosePlanHandler struct{}

func (h *ClosePlanHandler) Type() CommandType { return CmdClosePlan }

func (h *ClosePlanHandler) Handle(ctx context.Context, hc *HandlerContext, cmd CommandEnvelope) (any, error) {
	var in plan.CloseInput
	if err := decodePayload(cmd, &in); err != nil {
		return nil, err
	}
	var exec *plan.Execution
	_, err := mutatePlan(ctx, hc, cmd.PlanID, func(uow store.UnitOfWork, p *plan.Plan) error {
		out, err := p.Close(in, hc.Now())
		if err != nil {
			return err
		}
		exec = out.Execution
		return recordOutcome(ctx, uow, out)
	})
	if err != nil {
		return nil, err
	}
	hc.PublishReview(exec.ID)
	return exec, nil
}

type CancelPlanHandler struct{}

func (h *CancelPlanHandler) Type() CommandType { return CmdCancelPlan }

func (h *CancelPlanHandler) Handle(ctx context.Context, hc *HandlerContext, cmd CommandEnvelope) (any, error) {
	return mutatePlan(ctx, hc, cmd.PlanID, func(_ store.UnitOfWork, p *plan.Plan) error {
		return p.Cancel(hc.Now())
	})
}

type DeletePlanHandler struct{}

func (h *DeletePlanHandler) Type() CommandType { return CmdDeletePlan }

func (h *DeletePlanHandler) Handle(ctx context.Context, hc *HandlerContext, cmd CommandEnvelope) (any, error) {
	err := store.WithTx(ctx, hc.Store(), func(uow store.UnitOfWork) error {
		p, err := uow.Plans().Get(ctx, cmd.PlanID)
		if err != nil {
			return err
		}
		if err := p.Deletable(); err != nil {
			return err
		}
		return uow.Plans().Delete(ctx, p.ID)
	})
	return nil, err
}

// mutatePlan 在一个工作单元内加载计划、执行状态迁移并写回。
// fn 返回错误时整个事务回滚，计划与流水都不会落库。
func mutatePlan(ctx context.Context, hc *HandlerContext, id int64, fn func(store.UnitOfWork, *plan.Plan) error) (*plan.Plan, error) {
	var out *plan.Plan
	err := store.WithTx(ctx, hc.Store(), func(uow store.UnitOfWork) error {
		p, err := uow.Plans().Get(ctx, id)
		if err != nil {
			return err
		}
		if err := fn(uow, p); err != nil {
			return err
		}
		if err := uow.Plans().Update(ctx, p); err != nil {
			return err
		}
		out = p
		return nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

func recordOutcome(ctx context.Context, uow store.UnitOfWork, out plan.Outcome) error {
	txn := out.Transaction
	if err := uow.Transactions().Append(ctx, &txn); err != nil {
		return err
	}
	if out.Execution != nil {
		return uow.Executions().Create(ctx, out.Execution)
	}
	return nil
}

func decodePayload(cmd CommandEnvelope, dst any) error {
	if len(cmd.Payload) == 0 {
		return fmt.Errorf("%w: %s payload is empty", plan.ErrInvalidSetup, cmd.Type)
	}
	if err := json.Unmarshal(cmd.Payload, dst); err != nil {
		return fmt.Errorf("%w: decode %s payload: %v", plan.ErrInvalidSetup, cmd.Type, err)
	}
	return nil
}
