// Package settings owns the singleton risk budget (total capital and the
// fraction of it a single trade may risk).
package settings

import (
	"context"
	"errors"
	"fmt"

	"tradejournal/internal/logger"
	"tradejournal/internal/pkg/trading"
	"tradejournal/internal/store"

	"github.com/shopspring/decimal"
)

var ErrInvalidSettings = errors.New("invalid settings")

var (
	minCapital      = decimal.NewFromInt(1000)
	maxCapital      = decimal.RequireFromString("999999999999.99")
	minRiskFraction = decimal.RequireFromString("0.001")
	maxRiskFraction = decimal.RequireFromString("0.1")
)

// View 对外展示的设置，附带单笔风险金额。
type View struct {
	TotalCapital decimal.Decimal `json:"totalCapital"`
	RiskFraction decimal.Decimal `json:"riskFraction"`
	RiskAmount   decimal.Decimal `json:"riskAmount"`
}

type Service struct {
	store    store.Store
	defaults trading.RiskBudget
}

func NewService(s store.Store, defaults trading.RiskBudget) *Service {
	return &Service{store: s, defaults: defaults}
}

// Validate 检查资金与风险比例的取值范围。
func Validate(b trading.RiskBudget) error {
	if b.TotalCapital.LessThan(minCapital) || b.TotalCapital.GreaterThan(maxCapital) {
		return fmt.Errorf("%w: total capital must be within [%s, %s]", ErrInvalidSettings, minCapital, maxCapital)
	}
	if b.RiskFraction.LessThan(minRiskFraction) || b.RiskFraction.GreaterThan(maxRiskFraction) {
		return fmt.Errorf("%w: risk fraction must be within [%s, %s]", ErrInvalidSettings, minRiskFraction, maxRiskFraction)
	}
	return nil
}

// EnsureDefaults 首次启动时写入默认设置。
func (s *Service) EnsureDefaults(ctx context.Context) error {
	return store.WithTx(ctx, s.store, func(uow store.UnitOfWork) error {
		_, ok, err := uow.Settings().Get(ctx)
		if err != nil || ok {
			return err
		}
		logger.Infof("[settings] seeding defaults capital=%s risk=%s", s.defaults.TotalCapital, s.defaults.RiskFraction)
		return uow.Settings().Save(ctx, s.defaults)
	})
}

// RiskBudget 返回当前风险预算，未设置时使用默认值。
func (s *Service) RiskBudget(ctx context.Context) (trading.RiskBudget, error) {
	budget := s.defaults
	err := store.ReadOnly(ctx, s.store, func(uow store.UnitOfWork) error {
		stored, ok, err := uow.Settings().Get(ctx)
		if err != nil {
			return err
		}
		if ok {
			budget = stored
		}
		return nil
	})
	if err != nil {
		return trading.RiskBudget{}, err
	}
	return budget, nil
}

func (s *Service) Get(ctx context.Context) (View, error) {
	b, err := s.RiskBudget(ctx)
	if err != nil {
		return View{}, err
	}
	return toView(b), nil
}

func (s *Service) Update(ctx context.Context, b trading.RiskBudget) (View, error) {
	if err := Validate(b); err != nil {
		return View{}, err
	}
	if err := store.WithTx(ctx, s.store, func(uow store.UnitOfWork) error {
		return uow.Settings().Save(ctx, b)
	}); err != nil {
		return View{}, err
	}
	logger.Infof("[settings] updated capital=%s risk=%s", b.TotalCapital, b.RiskFraction)
	return toView(b), nil
}

func toView(b trading.RiskBudget) View {
	return View{
		TotalCapital: b.TotalCapital,
		RiskFraction: b.RiskFraction,
		RiskAmount:   b.Amount().Round(2),
	}
}
