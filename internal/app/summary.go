package app

import (
	"fmt"
	"strings"
)

// StartupSummary 启动时打印的配置摘要。
type StartupSummary struct {
	HTTPAddr      string
	Storage       string
	CommandLog    string
	Shards        int
	LotUnit       int64
	MinRiskReward string
	DangerBuffer  string
	Providers     []string
	ReviewModel   string
	PromptVersion int64
	Telegram      bool
}

func (s *StartupSummary) Print() {
	fmt.Print(s.String())
}

func (s *StartupSummary) String() string {
	var b strings.Builder
	title := "启动配置摘要 (STARTUP SUMMARY)"
	b.WriteString(strings.Repeat("=", 80) + "\n")
	fmt.Fprintf(&b, "%*s\n", 40+len(title)/2, title)
	b.WriteString(strings.Repeat("=", 80) + "\n")

	b.WriteString("[服务 (SERVICE)]\n")
	fmt.Fprintf(&b, "  HTTP 地址: %s\n", s.HTTPAddr)
	fmt.Fprintf(&b, "  存储: %s\n", s.Storage)
	fmt.Fprintf(&b, "  命令审计: %s\n", orDash(s.CommandLog))
	fmt.Fprintf(&b, "  命令分片: %d\n", s.Shards)
	b.WriteString("\n")

	b.WriteString("[纪律规则 (DISCIPLINE)]\n")
	fmt.Fprintf(&b, "  整手单位: %d\n", s.LotUnit)
	fmt.Fprintf(&b, "  最小盈亏比: %s\n", s.MinRiskReward)
	fmt.Fprintf(&b, "  止损预警缓冲: %s\n", s.DangerBuffer)
	b.WriteString("\n")

	b.WriteString("[行情与复盘 (MARKET & REVIEW)]\n")
	fmt.Fprintf(&b, "  行情源: %s\n", formatList(s.Providers))
	fmt.Fprintf(&b, "  复盘模型: %s\n", s.ReviewModel)
	fmt.Fprintf(&b, "  提示词版本: v%d\n", s.PromptVersion)
	fmt.Fprintf(&b, "  Telegram 推送: %t\n", s.Telegram)
	b.WriteString(strings.Repeat("=", 80) + "\n")
	return b.String()
}

func formatList(items []string) string {
	if len(items) == 0 {
		return "-"
	}
	return strings.Join(items, ", ")
}

func orDash(s string) string {
	if strings.TrimSpace(s) == "" {
		return "-"
	}
	return s
}
