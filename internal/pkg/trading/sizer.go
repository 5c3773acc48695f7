package trading

import "github.com/shopspring/decimal"

// RiskBudget 单笔交易可承受的风险资金来源：总资金 × 风险比例。
type RiskBudget struct {
	TotalCapital decimal.Decimal `json:"totalCapital"`
	RiskFraction decimal.Decimal `json:"riskFraction"`
}

// Amount 返回单笔风险金额。
func (b RiskBudget) Amount() decimal.Decimal {
	return b.TotalCapital.Mul(b.RiskFraction)
}

// SizePosition 按风险金额与止损距离计算建议股数。
// 原始股数向零截断后按手取整，至少一手。
func SizePosition(budget, entry, stop decimal.Decimal, lotUnit int64) (int64, error) {
	if lotUnit <= 0 {
		lotUnit = DefaultLotUnit
	}
	diff, err := stopDistance(entry, stop)
	if err != nil {
		return 0, err
	}
	rawShares, _ := budget.QuoRem(diff, 0)
	lots, _ := rawShares.QuoRem(decimal.NewFromInt(lotUnit), 0)
	if lots.LessThan(decimal.NewFromInt(1)) {
		lots = decimal.NewFromInt(1)
	}
	return lots.IntPart() * lotUnit, nil
}
