package plan

import (
	"errors"
	"fmt"
	"math"
	"strings"
	"time"

	"tradejournal/internal/pkg/trading"

	"github.com/shopspring/decimal"
)

const (
	defaultEntryRationale = "initial entry"
	defaultAddRationale   = "add position"
	trimCloseSuffix       = " (closed by trim)"
)

// Rules 纪律参数：一手股数与最小盈亏比。
type Rules struct {
	LotUnit       int64
	MinRiskReward decimal.Decimal
}

func DefaultRules() Rules {
	return Rules{
		LotUnit:       trading.DefaultLotUnit,
		MinRiskReward: decimal.RequireFromString("1.5"),
	}
}

func (r Rules) lot() int64 {
	if r.LotUnit <= 0 {
		return trading.DefaultLotUnit
	}
	return r.LotUnit
}

// CreateInput 新建计划的参数。PositionSize 为空或为 0 时按风险预算计算。
type CreateInput struct {
	Symbol         string          `json:"symbol"`
	Direction      string          `json:"direction"`
	EntryPrice     decimal.Decimal `json:"entryPrice"`
	StopLoss       decimal.Decimal `json:"stopLoss"`
	TakeProfit     decimal.Decimal `json:"takeProfit"`
	PositionSize   *int64          `json:"positionSize,omitempty"`
	EntryRationale string          `json:"entryRationale"`
}

// Fill 一次成交：建仓、加仓或减仓。
type Fill struct {
	Price     decimal.Decimal `json:"price"`
	Quantity  int64           `json:"quantity"`
	Rationale string          `json:"rationale,omitempty"`
}

// TrimInput 减仓参数，可顺带调整剩余仓位的止损/止盈。
type TrimInput struct {
	Fill
	NewStopLoss   decimal.NullDecimal `json:"newStopLoss"`
	NewTakeProfit decimal.NullDecimal `json:"newTakeProfit"`
}

type CloseInput struct {
	ExitPrice      decimal.Decimal `json:"exitPrice"`
	ExitRationale  string          `json:"exitRationale"`
	EmotionalState string          `json:"emotionalState,omitempty"`
}

// Outcome 一次处置的结果；Execution 仅在计划进入 CLOSED 时非空。
type Outcome struct {
	Transaction Transaction
	Execution   *Execution
	ChunkPnL    decimal.Decimal
}

// New 通过纪律门槛创建 PENDING 计划。所有校验都在构造前完成。
func New(in CreateInput, rules Rules, budget trading.RiskBudget, now time.Time) (*Plan, error) {
	symbol := strings.ToUpper(strings.TrimSpace(in.Symbol))
	if symbol == "" {
		return nil, fmt.Errorf("%w: symbol is required", ErrInvalidSetup)
	}
	dir, err := ParseDirection(in.Direction)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidSetup, err)
	}
	if dir == DirectionShort {
		return nil, fmt.Errorf("%w: short selling is not supported, long positions only", ErrDisciplineViolation)
	}
	for _, px := range []struct {
		name  string
		value decimal.Decimal
	}{
		{"entryPrice", in.EntryPrice},
		{"stopLoss", in.StopLoss},
		{"takeProfit", in.TakeProfit},
	} {
		if !px.value.IsPositive() {
			return nil, fmt.Errorf("%w: %s must be positive", ErrInvalidSetup, px.name)
		}
	}
	rr, err := trading.RiskReward(in.EntryPrice, in.StopLoss, in.TakeProfit)
	if err != nil {
		return nil, setupError(err)
	}
	if !trading.MeetsMinimum(rr, rules.MinRiskReward) {
		return nil, fmt.Errorf("%w: risk/reward %s is below the minimum %s", ErrDisciplineViolation, rr, rules.MinRiskReward)
	}
	size, err := resolveSize(in, rules, budget)
	if err != nil {
		return nil, err
	}
	return &Plan{
		Symbol:          symbol,
		Direction:       dir,
		EntryPrice:      in.EntryPrice,
		StopLoss:        in.StopLoss,
		TakeProfit:      in.TakeProfit,
		PositionSize:    size,
		RiskRewardRatio: rr,
		EntryRationale:  strings.TrimSpace(in.EntryRationale),
		Status:          StatusPending,
		CreatedAt:       now,
		UpdatedAt:       now,
	}, nil
}

func resolveSize(in CreateInput, rules Rules, budget trading.RiskBudget) (int64, error) {
	var size int64
	if in.PositionSize != nil && *in.PositionSize != 0 {
		size = *in.PositionSize
	} else {
		sized, err := trading.SizePosition(budget.Amount(), in.EntryPrice, in.StopLoss, rules.lot())
		if err != nil {
			return 0, setupError(err)
		}
		size = sized
	}
	if !trading.IsLotMultiple(size, rules.lot()) {
		return 0, lotError("position size", size, rules.lot())
	}
	return size, nil
}

// Execute 首次建仓：PENDING -> OPEN。
func (p *Plan) Execute(fill Fill, rules Rules, now time.Time) (Transaction, error) {
	if p.Status != StatusPending {
		return Transaction{}, stateError("execute", p.Status, StatusPending)
	}
	if err := checkFill(fill, rules); err != nil {
		return Transaction{}, err
	}
	p.AvgEntryPrice = decimal.NewNullDecimal(fill.Price)
	p.TotalQuantity = fill.Quantity
	p.CurrentQuantity = fill.Quantity
	p.RealizedPnL = decimal.NewNullDecimal(decimal.Zero)
	p.Status = StatusOpen
	p.UpdatedAt = now
	return p.ledgerEntry(TxnInitialEntry, fill, defaultEntryRationale, decimal.NullDecimal{}, now), nil
}

// AddPosition 加仓：按累计建仓数量重新计算加权均价。
func (p *Plan) AddPosition(fill Fill, rules Rules, now time.Time) (Transaction, error) {
	if p.Status != StatusOpen {
		return Transaction{}, stateError("add position", p.Status, StatusOpen)
	}
	if err := checkFill(fill, rules); err != nil {
		return Transaction{}, err
	}
	if fill.Quantity > math.MaxInt64-p.TotalQuantity {
		return Transaction{}, fmt.Errorf("%w: add quantity %d overflows total position %d", ErrDisciplineViolation, fill.Quantity, p.TotalQuantity)
	}
	p.AvgEntryPrice = decimal.NewNullDecimal(trading.WeightedAverage(p.CostBasis(), p.TotalQuantity, fill.Price, fill.Quantity))
	p.TotalQuantity += fill.Quantity
	p.CurrentQuantity += fill.Quantity
	if !p.RealizedPnL.Valid {
		p.RealizedPnL = decimal.NewNullDecimal(decimal.Zero)
	}
	p.UpdatedAt = now
	return p.ledgerEntry(TxnAddPosition, fill, defaultAddRationale, decimal.NullDecimal{}, now), nil
}

// Trim 部分减仓；剩余为零时计划直接进入 CLOSED 并生成执行记录。
// 调整后的止损/止盈不会重新校验盈亏比。
func (p *Plan) Trim(in TrimInput, rules Rules, now time.Time) (Outcome, error) {
	if p.Status != StatusOpen {
		return Outcome{}, stateError("trim", p.Status, StatusOpen)
	}
	if !in.Price.IsPositive() {
		return Outcome{}, fmt.Errorf("%w: exit price must be positive", ErrInvalidSetup)
	}
	if in.Quantity > p.CurrentQuantity {
		return Outcome{}, fmt.Errorf("%w: exit quantity %d exceeds current position %d", ErrDisciplineViolation, in.Quantity, p.CurrentQuantity)
	}
	if !trading.IsLotMultiple(in.Quantity, rules.lot()) {
		return Outcome{}, lotError("exit quantity", in.Quantity, rules.lot())
	}
	if in.NewStopLoss.Valid && !in.NewStopLoss.Decimal.IsPositive() {
		return Outcome{}, fmt.Errorf("%w: newStopLoss must be positive", ErrInvalidSetup)
	}
	if in.NewTakeProfit.Valid && !in.NewTakeProfit.Decimal.IsPositive() {
		return Outcome{}, fmt.Errorf("%w: newTakeProfit must be positive", ErrInvalidSetup)
	}

	chunk := p.realize(in.Price, in.Quantity)
	if in.NewStopLoss.Valid {
		p.StopLoss = in.NewStopLoss.Decimal
	}
	if in.NewTakeProfit.Valid {
		p.TakeProfit = in.NewTakeProfit.Decimal
	}
	p.UpdatedAt = now
	out := Outcome{
		Transaction: p.ledgerEntry(TxnPartialExit, in.Fill, "", decimal.NewNullDecimal(chunk), now),
		ChunkPnL:    chunk,
	}
	if p.CurrentQuantity == 0 {
		p.Status = StatusClosed
		out.Execution = p.settle(in.Price, strings.TrimSpace(in.Rationale+trimCloseSuffix), "", now)
	}
	return out, nil
}

// Close 以给定价格了结全部剩余仓位。
func (p *Plan) Close(in CloseInput, now time.Time) (Outcome, error) {
	if p.Status != StatusOpen {
		return Outcome{}, stateError("close", p.Status, StatusOpen)
	}
	if !in.ExitPrice.IsPositive() {
		return Outcome{}, fmt.Errorf("%w: exit price must be positive", ErrInvalidSetup)
	}
	if p.CurrentQuantity <= 0 {
		return Outcome{}, fmt.Errorf("%w: no remaining position to close", ErrInvalidState)
	}
	qty := p.CurrentQuantity
	chunk := p.realize(in.ExitPrice, qty)
	p.Status = StatusClosed
	p.UpdatedAt = now
	rationale := strings.TrimSpace(in.ExitRationale)
	fill := Fill{Price: in.ExitPrice, Quantity: qty, Rationale: rationale}
	return Outcome{
		Transaction: p.ledgerEntry(TxnFullExit, fill, "", decimal.NewNullDecimal(chunk), now),
		Execution:   p.settle(in.ExitPrice, rationale, strings.TrimSpace(in.EmotionalState), now),
		ChunkPnL:    chunk,
	}, nil
}

// Cancel 仅允许取消尚未成交的计划，没有任何账务影响。
func (p *Plan) Cancel(now time.Time) error {
	if p.Status != StatusPending {
		return stateError("cancel", p.Status, StatusPending)
	}
	p.Status = StatusCancelled
	p.UpdatedAt = now
	return nil
}

// Deletable 只有没有流水的计划可以删除。
func (p *Plan) Deletable() error {
	if p.Status == StatusPending || p.Status == StatusCancelled {
		return nil
	}
	return fmt.Errorf("%w: plan %d is %s and has ledger history", ErrInvalidState, p.ID, p.Status)
}

// realize 按当前均价结算处置数量，均价保持不变。
func (p *Plan) realize(price decimal.Decimal, qty int64) decimal.Decimal {
	chunk := trading.ChunkPnL(price, p.CostBasis(), qty)
	prev := decimal.Zero
	if p.RealizedPnL.Valid {
		prev = p.RealizedPnL.Decimal
	}
	p.RealizedPnL = decimal.NewNullDecimal(prev.Add(chunk))
	p.CurrentQuantity -= qty
	return chunk
}

func (p *Plan) settle(exit decimal.Decimal, rationale, emotion string, now time.Time) *Execution {
	return &Execution{
		PlanID:         p.ID,
		ExitPrice:      exit,
		RealizedPnL:    p.RealizedPnL.Decimal,
		ExitRationale:  rationale,
		EmotionalState: emotion,
		ClosedAt:       now,
	}
}

func (p *Plan) ledgerEntry(kind TxnType, fill Fill, fallback string, chunk decimal.NullDecimal, now time.Time) Transaction {
	rationale := strings.TrimSpace(fill.Rationale)
	if rationale == "" {
		rationale = fallback
	}
	return Transaction{
		PlanID:     p.ID,
		Type:       kind,
		Price:      fill.Price,
		Quantity:   fill.Quantity,
		ChunkPnL:   chunk,
		Rationale:  rationale,
		ExecutedAt: now,
	}
}

func checkFill(fill Fill, rules Rules) error {
	if !fill.Price.IsPositive() {
		return fmt.Errorf("%w: fill price must be positive", ErrInvalidSetup)
	}
	if !trading.IsLotMultiple(fill.Quantity, rules.lot()) {
		return lotError("fill quantity", fill.Quantity, rules.lot())
	}
	return nil
}

func stateError(op string, have, want Status) error {
	return fmt.Errorf("%w: cannot %s a %s plan, must be %s", ErrInvalidState, op, have, want)
}

func lotError(what string, qty, lot int64) error {
	return fmt.Errorf("%w: %s must be a positive multiple of %d, got %d", ErrDisciplineViolation, what, lot, qty)
}

func setupError(err error) error {
	if errors.Is(err, trading.ErrZeroStopDistance) {
		return fmt.Errorf("%w: %v", ErrInvalidSetup, err)
	}
	return err
}

// Replay 从流水重建持仓数量与已实现盈亏，用于审计。
func Replay(txns []Transaction) (total, current int64, realized decimal.Decimal) {
	realized = decimal.Zero
	for _, t := range txns {
		switch t.Type {
		case TxnInitialEntry, TxnAddPosition:
			total += t.Quantity
			current += t.Quantity
		case TxnPartialExit, TxnFullExit:
			current -= t.Quantity
			if t.ChunkPnL.Valid {
				realized = realized.Add(t.ChunkPnL.Decimal)
			}
		}
	}
	return total, current, realized
}
