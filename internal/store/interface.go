package store

import (
	"context"

	"tradejournal/internal/pkg/trading"
	"tradejournal/internal/plan"
)

// UnitOfWork defines a transaction scope.
type UnitOfWork interface {
	// Commit commits the transaction.
	Commit() error
	// Rollback rolls back the transaction. Calling it after Commit is a no-op.
	Rollback() error

	Plans() PlanRepository
	Transactions() TransactionRepository
	Executions() ExecutionRepository
	Settings() SettingsRepository
}

// Store is the entry point for database access.
type Store interface {
	// Begin starts a new UnitOfWork (transaction).
	Begin(ctx context.Context) (UnitOfWork, error)
	// Close closes the store connection.
	Close() error
}

// PlanRepository handles trade plan persistence. Missing rows yield plan.ErrNotFound.
type PlanRepository interface {
	Create(ctx context.Context, p *plan.Plan) error
	Update(ctx context.Context, p *plan.Plan) error
	Get(ctx context.Context, id int64) (*plan.Plan, error)
	Delete(ctx context.Context, id int64) error
	ListByStatus(ctx context.Context, status plan.Status) ([]plan.Plan, error)
	ListBySymbol(ctx context.Context, symbol string) ([]plan.Plan, error)
}

// TransactionRepository is append-only.
type TransactionRepository interface {
	Append(ctx context.Context, txn *plan.Transaction) error
	// ListByPlan returns the ledger ordered by execution time, then id.
	ListByPlan(ctx context.Context, planID int64) ([]plan.Transaction, error)
}

// ExecutionRepository handles close-out records and their review fields.
type ExecutionRepository interface {
	Create(ctx context.Context, exec *plan.Execution) error
	Get(ctx context.Context, id int64) (*plan.Execution, error)
	GetByPlan(ctx context.Context, planID int64) (*plan.Execution, error)
	// ListRecent returns executions newest first.
	ListRecent(ctx context.Context) ([]plan.Execution, error)
	// SaveReview writes the review fields only when they are still empty.
	// It reports whether the row was updated.
	SaveReview(ctx context.Context, id int64, review plan.Review) (bool, error)
}

// SettingsRepository stores the singleton risk budget row.
type SettingsRepository interface {
	Get(ctx context.Context) (trading.RiskBudget, bool, error)
	Save(ctx context.Context, budget trading.RiskBudget) error
}
