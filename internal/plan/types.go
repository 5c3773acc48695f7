package plan

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

type Status string

const (
	StatusPending   Status = "PENDING"
	StatusOpen      Status = "OPEN"
	StatusClosed    Status = "CLOSED"
	StatusCancelled Status = "CANCELLED"
)

// Terminal 终态之后不再允许任何变更。
func (s Status) Terminal() bool {
	return s == StatusClosed || s == StatusCancelled
}

func AllStatuses() []Status {
	return []Status{StatusPending, StatusOpen, StatusClosed, StatusCancelled}
}

func ParseStatus(raw string) (Status, error) {
	switch s := Status(strings.ToUpper(strings.TrimSpace(raw))); s {
	case StatusPending, StatusOpen, StatusClosed, StatusCancelled:
		return s, nil
	default:
		return "", fmt.Errorf("unknown status %q", raw)
	}
}

type Direction string

const (
	DirectionLong  Direction = "LONG"
	DirectionShort Direction = "SHORT"
)

func ParseDirection(raw string) (Direction, error) {
	switch d := Direction(strings.ToUpper(strings.TrimSpace(raw))); d {
	case "":
		return DirectionLong, nil
	case DirectionLong, DirectionShort:
		return d, nil
	default:
		return "", fmt.Errorf("unknown direction %q", raw)
	}
}

type TxnType string

const (
	TxnInitialEntry TxnType = "INITIAL_ENTRY"
	TxnAddPosition  TxnType = "ADD_POSITION"
	TxnPartialExit  TxnType = "PARTIAL_EXIT"
	TxnFullExit     TxnType = "FULL_EXIT"
)

// IsDisposal 表示该流水是否减少了持仓。
func (t TxnType) IsDisposal() bool {
	return t == TxnPartialExit || t == TxnFullExit
}

// Plan 一笔交易想法的聚合根，持有全部流水与最终的执行记录。
type Plan struct {
	ID              int64               `json:"id"`
	Symbol          string              `json:"symbol"`
	Direction       Direction           `json:"direction"`
	EntryPrice      decimal.Decimal     `json:"entryPrice"`
	StopLoss        decimal.Decimal     `json:"stopLoss"`
	TakeProfit      decimal.Decimal     `json:"takeProfit"`
	PositionSize    int64               `json:"positionSize"`
	AvgEntryPrice   decimal.NullDecimal `json:"avgEntryPrice"`
	TotalQuantity   int64               `json:"totalQuantity"`
	CurrentQuantity int64               `json:"currentQuantity"`
	RealizedPnL     decimal.NullDecimal `json:"realizedPnL"`
	RiskRewardRatio decimal.Decimal     `json:"riskRewardRatio"`
	EntryRationale  string              `json:"entryRationale"`
	Status          Status              `json:"status"`
	CreatedAt       time.Time           `json:"createdAt"`
	UpdatedAt       time.Time           `json:"updatedAt"`
}

// Filled 首次成交之后均价、数量与已实现盈亏才有意义。
func (p *Plan) Filled() bool {
	return p != nil && p.AvgEntryPrice.Valid
}

// CostBasis 返回均价，未成交时退回计划入场价。
func (p *Plan) CostBasis() decimal.Decimal {
	if p.AvgEntryPrice.Valid {
		return p.AvgEntryPrice.Decimal
	}
	return p.EntryPrice
}

// Transaction 每次成交的不可变流水。
type Transaction struct {
	ID         int64               `json:"id"`
	PlanID     int64               `json:"planId"`
	Type       TxnType             `json:"type"`
	Price      decimal.Decimal     `json:"price"`
	Quantity   int64               `json:"quantity"`
	ChunkPnL   decimal.NullDecimal `json:"chunkPnL"`
	Rationale  string              `json:"rationale"`
	ExecutedAt time.Time           `json:"executedAt"`
}

// Execution 计划平仓时生成的唯一结算记录；只有复盘字段会在之后被写入一次。
type Execution struct {
	ID             int64           `json:"id"`
	PlanID         int64           `json:"planId"`
	ExitPrice      decimal.Decimal `json:"exitPrice"`
	RealizedPnL    decimal.Decimal `json:"realizedPnL"`
	ExitRationale  string          `json:"exitRationale"`
	EmotionalState string          `json:"emotionalState,omitempty"`
	ClosedAt       time.Time       `json:"closedAt"`
	Review         *Review         `json:"review,omitempty"`
}

// Reviewed 复盘字段是否已经写入。
func (e *Execution) Reviewed() bool {
	return e != nil && e.Review != nil
}

// Review 异步复盘结果。
type Review struct {
	Score      int             `json:"score"`
	Comment    string          `json:"comment"`
	Model      string          `json:"model,omitempty"`
	Raw        json.RawMessage `json:"raw,omitempty"`
	ReviewedAt time.Time       `json:"reviewedAt"`
}
