package model

import (
	"github.com/shopspring/decimal"
	"gorm.io/datatypes"
)

// 金额统一存为字符串列，避免 sqlite 将 numeric 转成 REAL 丢精度。

type TradePlanModel struct {
	ID              int64               `gorm:"column:id;primaryKey;autoIncrement"`
	Symbol          string              `gorm:"column:symbol;size:32;index"`
	Direction       string              `gorm:"column:direction;size:8"`
	EntryPrice      decimal.Decimal     `gorm:"column:entry_price;type:varchar(40)"`
	StopLoss        decimal.Decimal     `gorm:"column:stop_loss;type:varchar(40)"`
	TakeProfit      decimal.Decimal     `gorm:"column:take_profit;type:varchar(40)"`
	PositionSize    int64               `gorm:"column:position_size"`
	AvgEntryPrice   decimal.NullDecimal `gorm:"column:avg_entry_price;type:varchar(40)"`
	TotalQuantity   int64               `gorm:"column:total_quantity"`
	CurrentQuantity int64               `gorm:"column:current_quantity"`
	RealizedPnL     decimal.NullDecimal `gorm:"column:realized_pnl;type:varchar(40)"`
	RiskRewardRatio decimal.Decimal     `gorm:"column:risk_reward_ratio;type:varchar(40)"`
	EntryRationale  string              `gorm:"column:entry_rationale;type:text"`
	Status          string              `gorm:"column:status;size:16;index"`
	CreatedAtUnix   int64               `gorm:"column:created_at"`
	UpdatedAtUnix   int64               `gorm:"column:updated_at"`
}

func (TradePlanModel) TableName() string { return "trade_plans" }

type TradeTransactionModel struct {
	ID             int64               `gorm:"column:id;primaryKey;autoIncrement"`
	PlanID         int64               `gorm:"column:plan_id;index:idx_txn_plan_time,priority:1"`
	Type           string              `gorm:"column:type;size:16"`
	Price          decimal.Decimal     `gorm:"column:price;type:varchar(40)"`
	Quantity       int64               `gorm:"column:quantity"`
	ChunkPnL       decimal.NullDecimal `gorm:"column:chunk_pnl;type:varchar(40)"`
	Rationale      string              `gorm:"column:rationale;type:text"`
	ExecutedAtUnix int64               `gorm:"column:executed_at;index:idx_txn_plan_time,priority:2"`
}

func (TradeTransactionModel) TableName() string { return "trade_transactions" }

type TradeExecutionModel struct {
	ID             int64           `gorm:"column:id;primaryKey;autoIncrement"`
	PlanID         int64           `gorm:"column:plan_id;uniqueIndex"`
	ExitPrice      decimal.Decimal `gorm:"column:exit_price;type:varchar(40)"`
	RealizedPnL    decimal.Decimal `gorm:"column:realized_pnl;type:varchar(40)"`
	ExitRationale  string          `gorm:"column:exit_rationale;type:text"`
	EmotionalState string          `gorm:"column:emotional_state;size:64"`
	ClosedAtUnix   int64           `gorm:"column:closed_at;index"`

	// 复盘字段，仅由复盘 worker 写入一次
	ReviewScore    *int           `gorm:"column:review_score"`
	ReviewComment  *string        `gorm:"column:review_comment;type:text"`
	ReviewModel    string         `gorm:"column:review_model;size:64"`
	ReviewRaw      datatypes.JSON `gorm:"column:review_raw;type:TEXT"`
	ReviewedAtUnix *int64         `gorm:"column:reviewed_at"`
}

func (TradeExecutionModel) TableName() string { return "trade_executions" }

// AppSettingsModel 单行配置表，ID 固定为 1。
type AppSettingsModel struct {
	ID            int64           `gorm:"column:id;primaryKey"`
	TotalCapital  decimal.Decimal `gorm:"column:total_capital;type:varchar(40)"`
	RiskFraction  decimal.Decimal `gorm:"column:risk_fraction;type:varchar(40)"`
	UpdatedAtUnix int64           `gorm:"column:updated_at"`
}

func (AppSettingsModel) TableName() string { return "app_settings" }

// All 返回需要自动迁移的模型。
func All() []any {
	return []any{
		&TradePlanModel{},
		&TradeTransactionModel{},
		&TradeExecutionModel{},
		&AppSettingsModel{},
	}
}
