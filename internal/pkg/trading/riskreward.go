package trading

import "github.com/shopspring/decimal"

// RiskReward 计算 |target-entry| / |entry-stop|，保留 4 位小数，四舍五入。
func RiskReward(entry, stop, target decimal.Decimal) (decimal.Decimal, error) {
	risk, err := stopDistance(entry, stop)
	if err != nil {
		return decimal.Zero, err
	}
	reward := target.Sub(entry).Abs()
	return reward.DivRound(risk, PriceScale), nil
}

// MeetsMinimum 判断盈亏比是否达到纪律门槛（含等于）。
func MeetsMinimum(ratio, minimum decimal.Decimal) bool {
	return ratio.GreaterThanOrEqual(minimum)
}
