package trading

import "github.com/shopspring/decimal"

// WeightedAverage 加仓后的加权平均成本，保留 4 位小数。
func WeightedAverage(oldAvg decimal.Decimal, oldQty int64, fillPrice decimal.Decimal, addQty int64) decimal.Decimal {
	total := oldQty + addQty
	if total <= 0 {
		return oldAvg
	}
	cost := oldAvg.Mul(decimal.NewFromInt(oldQty)).Add(fillPrice.Mul(decimal.NewFromInt(addQty)))
	return cost.DivRound(decimal.NewFromInt(total), PriceScale)
}

// ChunkPnL 单次减仓/平仓的已实现盈亏（仅做多）：(exit - avg) × qty。
func ChunkPnL(exitPrice, avgEntry decimal.Decimal, qty int64) decimal.Decimal {
	return exitPrice.Sub(avgEntry).Mul(decimal.NewFromInt(qty)).Round(PriceScale)
}

// UnrealizedPnL 与 ChunkPnL 符号一致，用于看板按 2 位小数展示。
func UnrealizedPnL(current, avgEntry decimal.Decimal, qty int64, places int32) decimal.Decimal {
	return current.Sub(avgEntry).Mul(decimal.NewFromInt(qty)).Round(places)
}

// PercentOf 计算 part/base 的百分比：先保留 4 位比例，再 ×100 保留 places 位。
// base 为零时返回 0。
func PercentOf(part, base decimal.Decimal, places int32) decimal.Decimal {
	if base.IsZero() {
		return decimal.Zero
	}
	return part.DivRound(base, PriceScale).Mul(decimal.NewFromInt(100)).Round(places)
}
