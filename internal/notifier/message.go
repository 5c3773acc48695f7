package notifier

import (
	"fmt"
	"strings"
	"time"

	"tradejournal/internal/pkg/text"

	"github.com/shopspring/decimal"
)

// Telegram 单条消息上限 4096 字符，留出余量。
const (
	maxMessageRunes = 3800
	maxCommentRunes = 600
)

// ReviewCard 一笔已结算交易的复盘推送。
type ReviewCard struct {
	Symbol      string
	Direction   string
	AvgEntry    decimal.Decimal
	ExitPrice   decimal.Decimal
	Quantity    int64
	RealizedPnL decimal.Decimal
	Emotion     string
	Score       int
	Comment     string
	Model       string
	ReviewedAt  time.Time
}

// Render 生成 Markdown 文本：标题行、结算与评分代码块、模型与时间。
// 评语与整条消息均按 rune 截断。
func (c ReviewCard) Render() string {
	var b strings.Builder
	icon := "✅"
	if c.RealizedPnL.IsNegative() {
		icon = "🔻"
	}
	b.WriteString(icon + " 交易复盘 " + strings.TrimSpace(c.Symbol))
	if dir := strings.TrimSpace(c.Direction); dir != "" {
		b.WriteString(" (" + dir + ")")
	}
	b.WriteString("\n\n```\n")

	b.WriteString("结算\n")
	fmt.Fprintf(&b, "- 均价 %s → 平仓 %s\n", c.AvgEntry, c.ExitPrice)
	if c.Quantity > 0 {
		fmt.Fprintf(&b, "- 数量 %d\n", c.Quantity)
	}
	fmt.Fprintf(&b, "- 已实现盈亏 %s\n", c.RealizedPnL)
	if emotion := strings.TrimSpace(c.Emotion); emotion != "" {
		b.WriteString("- 情绪 " + sanitize(emotion) + "\n")
	}

	fmt.Fprintf(&b, "\n评分 %d/100\n", c.Score)
	if comment := strings.TrimSpace(c.Comment); comment != "" {
		b.WriteString("- " + sanitize(text.Truncate(comment, maxCommentRunes)) + "\n")
	}
	b.WriteString("```\n\n")

	if model := strings.TrimSpace(c.Model); model != "" {
		b.WriteString("模型：" + sanitize(model) + "\n")
	}
	if !c.ReviewedAt.IsZero() {
		b.WriteString("时间：" + c.ReviewedAt.Format("2006-01-02 15:04:05 MST"))
	}
	return text.Truncate(strings.TrimSpace(b.String()), maxMessageRunes)
}

// sanitize 防止内容提前闭合代码块，并把换行压成空格。
func sanitize(s string) string {
	s = strings.ReplaceAll(s, "```", "'''")
	return strings.Join(strings.Fields(s), " ")
}
