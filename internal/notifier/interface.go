package notifier

import "context"

// TextNotifier 最小化的文本推送接口，复盘结果等通过它发出。
type TextNotifier interface {
	SendText(ctx context.Context, text string) error
}

// Nop 丢弃所有消息，用于未配置推送渠道的场景。
type Nop struct{}

func (Nop) SendText(context.Context, string) error { return nil }
