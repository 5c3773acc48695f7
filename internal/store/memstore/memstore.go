// Package memstore keeps plans, ledger rows and executions in process memory.
// A unit of work holds the store lock until it commits or rolls back, so
// work units are fully serialized.
package memstore

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"tradejournal/internal/pkg/trading"
	"tradejournal/internal/plan"
	"tradejournal/internal/store"
)

type state struct {
	plans      map[int64]plan.Plan
	txns       []plan.Transaction
	executions map[int64]plan.Execution
	settings   *trading.RiskBudget
	nextPlan   int64
	nextTxn    int64
	nextExec   int64
}

func (s *state) clone() *state {
	c := &state{
		plans:      make(map[int64]plan.Plan, len(s.plans)),
		txns:       append([]plan.Transaction(nil), s.txns...),
		executions: make(map[int64]plan.Execution, len(s.executions)),
		nextPlan:   s.nextPlan,
		nextTxn:    s.nextTxn,
		nextExec:   s.nextExec,
	}
	for k, v := range s.plans {
		c.plans[k] = v
	}
	for k, v := range s.executions {
		if v.Review != nil {
			r := *v.Review
			v.Review = &r
		}
		c.executions[k] = v
	}
	if s.settings != nil {
		b := *s.settings
		c.settings = &b
	}
	return c
}

type Store struct {
	mu    sync.Mutex
	state *state
}

var _ store.Store = (*Store)(nil)

func New() *Store {
	return &Store{state: &state{
		plans:      make(map[int64]plan.Plan),
		executions: make(map[int64]plan.Execution),
	}}
}

func (s *Store) Begin(ctx context.Context) (store.UnitOfWork, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.mu.Lock()
	return &unitOfWork{parent: s, work: s.state.clone()}, nil
}

func (s *Store) Close() error { return nil }

type unitOfWork struct {
	parent *Store
	work   *state
	done   bool
}

func (u *unitOfWork) Commit() error {
	if u.done {
		return fmt.Errorf("unit of work already finished")
	}
	u.done = true
	u.parent.state = u.work
	u.parent.mu.Unlock()
	return nil
}

func (u *unitOfWork) Rollback() error {
	if u.done {
		return nil
	}
	u.done = true
	u.parent.mu.Unlock()
	return nil
}

func (u *unitOfWork) Plans() store.PlanRepository               { return (*planRepo)(u) }
func (u *unitOfWork) Transactions() store.TransactionRepository { return (*txnRepo)(u) }
func (u *unitOfWork) Executions() store.ExecutionRepository     { return (*execRepo)(u) }
func (u *unitOfWork) Settings() store.SettingsRepository        { return (*settingsRepo)(u) }

type planRepo unitOfWork

func (r *planRepo) Create(_ context.Context, p *plan.Plan) error {
	r.work.nextPlan++
	p.ID = r.work.nextPlan
	r.work.plans[p.ID] = *p
	return nil
}

func (r *planRepo) Update(_ context.Context, p *plan.Plan) error {
	if _, ok := r.work.plans[p.ID]; !ok {
		return fmt.Errorf("%w: plan %d", plan.ErrNotFound, p.ID)
	}
	r.work.plans[p.ID] = *p
	return nil
}

func (r *planRepo) Get(_ context.Context, id int64) (*plan.Plan, error) {
	p, ok := r.work.plans[id]
	if !ok {
		return nil, fmt.Errorf("%w: plan %d", plan.ErrNotFound, id)
	}
	return &p, nil
}

func (r *planRepo) Delete(_ context.Context, id int64) error {
	if _, ok := r.work.plans[id]; !ok {
		return fmt.Errorf("%w: plan %d", plan.ErrNotFound, id)
	}
	delete(r.work.plans, id)
	return nil
}

func (r *planRepo) ListByStatus(_ context.Context, status plan.Status) ([]plan.Plan, error) {
	out := r.filter(func(p plan.Plan) bool { return p.Status == status })
	sort.Slice(out, func(i, j int) bool {
		if !out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].CreatedAt.After(out[j].CreatedAt)
		}
		return out[i].ID > out[j].ID
	})
	return out, nil
}

func (r *planRepo) ListBySymbol(_ context.Context, symbol string) ([]plan.Plan, error) {
	out := r.filter(func(p plan.Plan) bool { return p.Symbol == symbol })
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (r *planRepo) filter(keep func(plan.Plan) bool) []plan.Plan {
	out := make([]plan.Plan, 0)
	for _, p := range r.work.plans {
		if keep(p) {
			out = append(out, p)
		}
	}
	return out
}

type txnRepo unitOfWork

func (r *txnRepo) Append(_ context.Context, txn *plan.Transaction) error {
	r.work.nextTxn++
	txn.ID = r.work.nextTxn
	r.work.txns = append(r.work.txns, *txn)
	return nil
}

func (r *txnRepo) ListByPlan(_ context.Context, planID int64) ([]plan.Transaction, error) {
	out := make([]plan.Transaction, 0)
	for _, t := range r.work.txns {
		if t.PlanID == planID {
			out = append(out, t)
		}
	}
	sort.SliceStable(out, func(i, j int) bool {
		if !out[i].ExecutedAt.Equal(out[j].ExecutedAt) {
			return out[i].ExecutedAt.Before(out[j].ExecutedAt)
		}
		return out[i].ID < out[j].ID
	})
	return out, nil
}

type execRepo unitOfWork

func (r *execRepo) Create(_ context.Context, exec *plan.Execution) error {
	for _, e := range r.work.executions {
		if e.PlanID == exec.PlanID {
			return fmt.Errorf("execution for plan %d already exists", exec.PlanID)
		}
	}
	r.work.nextExec++
	exec.ID = r.work.nextExec
	r.work.executions[exec.ID] = *exec
	return nil
}

func (r *execRepo) Get(_ context.Context, id int64) (*plan.Execution, error) {
	e, ok := r.work.executions[id]
	if !ok {
		return nil, fmt.Errorf("%w: execution %d", plan.ErrNotFound, id)
	}
	return &e, nil
}

func (r *execRepo) GetByPlan(_ context.Context, planID int64) (*plan.Execution, error) {
	for _, e := range r.work.executions {
		if e.PlanID == planID {
			return &e, nil
		}
	}
	return nil, fmt.Errorf("%w: execution for plan %d", plan.ErrNotFound, planID)
}

func (r *execRepo) ListRecent(_ context.Context) ([]plan.Execution, error) {
	out := make([]plan.Execution, 0, len(r.work.executions))
	for _, e := range r.work.executions {
		out = append(out, e)
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].ClosedAt.Equal(out[j].ClosedAt) {
			return out[i].ClosedAt.After(out[j].ClosedAt)
		}
		return out[i].ID > out[j].ID
	})
	return out, nil
}

func (r *execRepo) SaveReview(_ context.Context, id int64, review plan.Review) (bool, error) {
	e, ok := r.work.executions[id]
	if !ok {
		return false, fmt.Errorf("%w: execution %d", plan.ErrNotFound, id)
	}
	if e.Review != nil {
		return false, nil
	}
	if review.ReviewedAt.IsZero() {
		review.ReviewedAt = time.Now()
	}
	e.Review = &review
	r.work.executions[id] = e
	return true, nil
}

type settingsRepo unitOfWork

func (r *settingsRepo) Get(context.Context) (trading.RiskBudget, bool, error) {
	if r.work.settings == nil {
		return trading.RiskBudget{}, false, nil
	}
	return *r.work.settings, true, nil
}

func (r *settingsRepo) Save(_ context.Context, budget trading.RiskBudget) error {
	r.work.settings = &budget
	return nil
}
