package plan

import "errors"

// 交易计划生命周期中的错误分类，调用方用 errors.Is 判断。
var (
	// ErrDisciplineViolation 业务纪律拒绝：盈亏比不足、非整手、超出持仓、做空等。
	ErrDisciplineViolation = errors.New("discipline violation")
	// ErrInvalidState 当前状态不允许该操作，调用方需要重新获取状态。
	ErrInvalidState = errors.New("invalid state")
	// ErrInvalidSetup 数值输入退化（例如止损距离为零），未写入任何状态。
	ErrInvalidSetup = errors.New("invalid setup")
	// ErrNotFound 计划或执行记录不存在。
	ErrNotFound = errors.New("not found")
)
