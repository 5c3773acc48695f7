package trader

import (
	"encoding/json"
	"time"

	"tradejournal/internal/pkg/trading"
	"tradejournal/internal/plan"
)

// CommandType 定义命令类型
type CommandType string

const (
	// CmdCreatePlan 新建交易计划
	CmdCreatePlan CommandType = "CREATE_PLAN"
	// CmdExecutePlan 首次建仓
	CmdExecutePlan CommandType = "EXECUTE_PLAN"
	// CmdAddPosition 加仓
	CmdAddPosition CommandType = "ADD_POSITION"
	// CmdTrimPosition 部分减仓
	CmdTrimPosition CommandType = "TRIM_POSITION"
	// CmdClosePlan 全部平仓
	CmdClosePlan CommandType = "CLOSE_PLAN"
	// CmdCancelPlan 取消未成交计划
	CmdCancelPlan CommandType = "CANCEL_PLAN"
	// CmdDeletePlan 删除无流水的计划
	CmdDeletePlan CommandType = "DELETE_PLAN"
)

// CreatePlanPayload carries the setup plus the risk budget resolved by the caller.
type CreatePlanPayload struct {
	Input  plan.CreateInput   `json:"input"`
	Budget trading.RiskBudget `json:"budget"`
}

// CommandEnvelope 是 Actor 接收的标准消息信封
type CommandEnvelope struct {
	ID        string // UUID
	Type      CommandType
	PlanID    int64           // 0 表示新建，按轮询分片
	Payload   json.RawMessage // 具体的命令数据
	CreatedAt time.Time

	// ReplyCh 用于同步等待处理结果 (可选)
	ReplyCh chan Result `json:"-"`
}

// Result is what a handler hands back through ReplyCh.
type Result struct {
	Value any
	Err   error
}
