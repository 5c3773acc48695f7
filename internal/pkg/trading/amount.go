// Package trading provides the decimal arithmetic behind trade plans:
// reward/risk evaluation, lot-aligned position sizing and weighted-average
// cost accounting. Every function is pure.
package trading

import (
	"errors"

	"github.com/shopspring/decimal"
)

// PriceScale 是均价、盈亏比与已实现盈亏保留的小数位。
const PriceScale int32 = 4

// DefaultLotUnit A 股一手 100 股。
const DefaultLotUnit int64 = 100

// ErrZeroStopDistance 入场价与止损价相同，风险无法计算。
var ErrZeroStopDistance = errors.New("entry price equals stop price")

// IsLotMultiple 判断数量是否为正的整手。
func IsLotMultiple(qty, lotUnit int64) bool {
	if lotUnit <= 0 {
		lotUnit = DefaultLotUnit
	}
	return qty > 0 && qty%lotUnit == 0
}

// stopDistance 返回 |entry - stop|，为零时报错。
func stopDistance(entry, stop decimal.Decimal) (decimal.Decimal, error) {
	diff := entry.Sub(stop).Abs()
	if diff.IsZero() {
		return decimal.Zero, ErrZeroStopDistance
	}
	return diff, nil
}
