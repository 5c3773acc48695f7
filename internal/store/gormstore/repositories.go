package gormstore

import (
	"context"
	"errors"
	"fmt"
	"time"

	"tradejournal/internal/pkg/trading"
	"tradejournal/internal/plan"
	storemodel "tradejournal/internal/store/model"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

const settingsRowID = 1

type planRepository struct {
	db *gorm.DB
}

func (r *planRepository) Create(ctx context.Context, p *plan.Plan) error {
	if p == nil {
		return errors.New("plan cannot be nil")
	}
	m := newPlanModel(p)
	m.ID = 0
	if err := r.db.WithContext(ctx).Create(&m).Error; err != nil {
		return err
	}
	p.ID = m.ID
	return nil
}

func (r *planRepository) Update(ctx context.Context, p *plan.Plan) error {
	if p == nil || p.ID <= 0 {
		return errors.New("plan must have an id")
	}
	m := newPlanModel(p)
	// 计划总是在同一事务内先 Get 再 Update，这里不再检查影响行数
	return r.db.WithContext(ctx).Model(&m).Select("*").Updates(&m).Error
}

func (r *planRepository) Get(ctx context.Context, id int64) (*plan.Plan, error) {
	var m storemodel.TradePlanModel
	err := r.db.WithContext(ctx).Where("id = ?", id).First(&m).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, fmt.Errorf("%w: plan %d", plan.ErrNotFound, id)
	}
	if err != nil {
		return nil, err
	}
	p := planModelToDomain(m)
	return &p, nil
}

func (r *planRepository) Delete(ctx context.Context, id int64) error {
	res := r.db.WithContext(ctx).Where("id = ?", id).Delete(&storemodel.TradePlanModel{})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return fmt.Errorf("%w: plan %d", plan.ErrNotFound, id)
	}
	return nil
}

func (r *planRepository) ListByStatus(ctx context.Context, status plan.Status) ([]plan.Plan, error) {
	var rows []storemodel.TradePlanModel
	if err := r.db.WithContext(ctx).
		Where("status = ?", string(status)).
		Order("created_at DESC, id DESC").
		Find(&rows).Error; err != nil {
		return nil, err
	}
	return plansToDomain(rows), nil
}

func (r *planRepository) ListBySymbol(ctx context.Context, symbol string) ([]plan.Plan, error) {
	var rows []storemodel.TradePlanModel
	if err := r.db.WithContext(ctx).
		Where("symbol = ?", symbol).
		Order("id ASC").
		Find(&rows).Error; err != nil {
		return nil, err
	}
	return plansToDomain(rows), nil
}

func plansToDomain(rows []storemodel.TradePlanModel) []plan.Plan {
	out := make([]plan.Plan, 0, len(rows))
	for _, m := range rows {
		out = append(out, planModelToDomain(m))
	}
	return out
}

type transactionRepository struct {
	db *gorm.DB
}

func (r *transactionRepository) Append(ctx context.Context, txn *plan.Transaction) error {
	if txn == nil {
		return errors.New("transaction cannot be nil")
	}
	m := newTransactionModel(txn)
	m.ID = 0
	if err := r.db.WithContext(ctx).Create(&m).Error; err != nil {
		return err
	}
	txn.ID = m.ID
	return nil
}

func (r *transactionRepository) ListByPlan(ctx context.Context, planID int64) ([]plan.Transaction, error) {
	var rows []storemodel.TradeTransactionModel
	if err := r.db.WithContext(ctx).
		Where("plan_id = ?", planID).
		Order("executed_at ASC, id ASC").
		Find(&rows).Error; err != nil {
		return nil, err
	}
	out := make([]plan.Transaction, 0, len(rows))
	for _, m := range rows {
		out = append(out, transactionModelToDomain(m))
	}
	return out, nil
}

type executionRepository struct {
	db *gorm.DB
}

func (r *executionRepository) Create(ctx context.Context, exec *plan.Execution) error {
	if exec == nil {
		return errors.New("execution cannot be nil")
	}
	m := newExecutionModel(exec)
	m.ID = 0
	if err := r.db.WithContext(ctx).Create(&m).Error; err != nil {
		return err
	}
	exec.ID = m.ID
	return nil
}

func (r *executionRepository) Get(ctx context.Context, id int64) (*plan.Execution, error) {
	return r.first(ctx, "id", id)
}

func (r *executionRepository) GetByPlan(ctx context.Context, planID int64) (*plan.Execution, error) {
	return r.first(ctx, "plan_id", planID)
}

func (r *executionRepository) first(ctx context.Context, column string, arg int64) (*plan.Execution, error) {
	var m storemodel.TradeExecutionModel
	err := r.db.WithContext(ctx).Where(column+" = ?", arg).First(&m).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, fmt.Errorf("%w: execution with %s=%d", plan.ErrNotFound, column, arg)
	}
	if err != nil {
		return nil, err
	}
	exec := executionModelToDomain(m)
	return &exec, nil
}

func (r *executionRepository) ListRecent(ctx context.Context) ([]plan.Execution, error) {
	var rows []storemodel.TradeExecutionModel
	if err := r.db.WithContext(ctx).Order("closed_at DESC, id DESC").Find(&rows).Error; err != nil {
		return nil, err
	}
	out := make([]plan.Execution, 0, len(rows))
	for _, m := range rows {
		out = append(out, executionModelToDomain(m))
	}
	return out, nil
}

func (r *executionRepository) SaveReview(ctx context.Context, id int64, review plan.Review) (bool, error) {
	if review.ReviewedAt.IsZero() {
		review.ReviewedAt = time.Now()
	}
	res := r.db.WithContext(ctx).
		Model(&storemodel.TradeExecutionModel{}).
		Where("id = ? AND reviewed_at IS NULL", id).
		Updates(reviewColumns(review))
	if res.Error != nil {
		return false, res.Error
	}
	if res.RowsAffected > 0 {
		return true, nil
	}
	var count int64
	if err := r.db.WithContext(ctx).Model(&storemodel.TradeExecutionModel{}).Where("id = ?", id).Count(&count).Error; err != nil {
		return false, err
	}
	if count == 0 {
		return false, fmt.Errorf("%w: execution %d", plan.ErrNotFound, id)
	}
	return false, nil
}

type settingsRepository struct {
	db *gorm.DB
}

func (r *settingsRepository) Get(ctx context.Context) (trading.RiskBudget, bool, error) {
	var m storemodel.AppSettingsModel
	err := r.db.WithContext(ctx).Where("id = ?", settingsRowID).First(&m).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return trading.RiskBudget{}, false, nil
	}
	if err != nil {
		return trading.RiskBudget{}, false, err
	}
	return trading.RiskBudget{TotalCapital: m.TotalCapital, RiskFraction: m.RiskFraction}, true, nil
}

func (r *settingsRepository) Save(ctx context.Context, budget trading.RiskBudget) error {
	m := storemodel.AppSettingsModel{
		ID:            settingsRowID,
		TotalCapital:  budget.TotalCapital,
		RiskFraction:  budget.RiskFraction,
		UpdatedAtUnix: time.Now().UnixMilli(),
	}
	return r.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "id"}},
		UpdateAll: true,
	}).Create(&m).Error
}
