package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// Config 汇总交易日志服务的全部配置。
type Config struct {
	App     AppConfig     `toml:"app"`
	Storage StorageConfig `toml:"storage"`
	Trading TradingConfig `toml:"trading"`
	Market  MarketConfig  `toml:"market"`
	Review  ReviewConfig  `toml:"review"`
	Notify  NotifyConfig  `toml:"notify"`
}

type AppConfig struct {
	Env             string `toml:"env"`
	LogLevel        string `toml:"log_level"`
	HTTPAddr        string `toml:"http_addr"`
	LogPath         string `toml:"log_path"`
	LogMaxSizeMB    int    `toml:"log_max_size_mb"`
	LogMaxBackups   int    `toml:"log_max_backups"`
	LogMaxAgeDays   int    `toml:"log_max_age_days"`
	ReviewLogPath   string `toml:"review_log_path"`
	ReviewLogDump   bool   `toml:"review_log_dump"`
	ShutdownSeconds int    `toml:"shutdown_seconds"`
}

// StorageConfig 选择持久化驱动。memory 仅用于演示与测试。
type StorageConfig struct {
	Driver         string `toml:"driver"`
	Path           string `toml:"path"`
	DSN            string `toml:"dsn"`
	MaxOpenConns   int    `toml:"max_open_conns"`
	CommandLogPath string `toml:"command_log_path"`
}

// TradingConfig 承载纪律规则与默认资金设置。
// 金额字段使用字符串，避免 yaml 浮点解析带来的精度损失。
type TradingConfig struct {
	LotUnit             int64  `toml:"lot_unit"`
	MinRiskReward       string `toml:"min_risk_reward"`
	DangerBuffer        string `toml:"danger_buffer"`
	DefaultTotalCapital string `toml:"default_total_capital"`
	DefaultRiskFraction string `toml:"default_risk_fraction"`
	CommandShards       int    `toml:"command_shards"`
	SlowCommandMillis   int    `toml:"slow_command_ms"`
}

type MarketConfig struct {
	Providers              []string `toml:"providers"`
	TimeoutSeconds         int      `toml:"timeout_seconds"`
	BreakerThreshold       int      `toml:"breaker_threshold"`
	BreakerCooldownSeconds int      `toml:"breaker_cooldown_seconds"`
	QuoteConcurrency       int      `toml:"quote_concurrency"`
	UserAgent              string   `toml:"user_agent"`
	SinaBaseURL            string   `toml:"sina_base_url"`
	TencentBaseURL         string   `toml:"tencent_base_url"`
	SearchBaseURL          string   `toml:"search_base_url"`
}

// ReviewConfig 配置平仓后的异步复盘模型。
type ReviewConfig struct {
	Enabled        bool              `toml:"enabled"`
	APIURL         string            `toml:"api_url"`
	APIKey         string            `toml:"api_key"`
	Model          string            `toml:"model"`
	TimeoutSeconds int               `toml:"timeout_seconds"`
	MaxRetries     int               `toml:"max_retries"`
	QueueSize      int               `toml:"queue_size"`
	Workers        int               `toml:"workers"`
	PromptPath     string            `toml:"prompt_path"`
	ExtraHeaders   map[string]string `toml:"extra_headers"`
}

type NotifyConfig struct {
	Telegram TelegramConfig `toml:"telegram"`
}

type TelegramConfig struct {
	Enabled bool   `toml:"enabled"`
	Token   string `toml:"token"`
	ChatID  string `toml:"chat_id"`
}

// MinRiskRewardDecimal 返回已校验过的最小盈亏比。
func (t TradingConfig) MinRiskRewardDecimal() decimal.Decimal {
	return mustDecimal(t.MinRiskReward)
}

func (t TradingConfig) DangerBufferDecimal() decimal.Decimal {
	return mustDecimal(t.DangerBuffer)
}

func (t TradingConfig) DefaultCapitalDecimal() decimal.Decimal {
	return mustDecimal(t.DefaultTotalCapital)
}

func (t TradingConfig) DefaultRiskFractionDecimal() decimal.Decimal {
	return mustDecimal(t.DefaultRiskFraction)
}

func (t TradingConfig) SlowCommandThreshold() time.Duration {
	return time.Duration(t.SlowCommandMillis) * time.Millisecond
}

func (m MarketConfig) Timeout() time.Duration {
	return time.Duration(m.TimeoutSeconds) * time.Second
}

func (m MarketConfig) BreakerCooldown() time.Duration {
	return time.Duration(m.BreakerCooldownSeconds) * time.Second
}

func (r ReviewConfig) Timeout() time.Duration {
	return time.Duration(r.TimeoutSeconds) * time.Second
}

// Ready 表示复盘模型是否具备调用条件。
func (r ReviewConfig) Ready() bool {
	return r.Enabled && strings.TrimSpace(r.APIURL) != "" && strings.TrimSpace(r.Model) != ""
}

func mustDecimal(raw string) decimal.Decimal {
	d, err := decimal.NewFromString(strings.TrimSpace(raw))
	if err != nil {
		return decimal.Zero
	}
	return d
}

func parseDecimal(key, raw string) (decimal.Decimal, error) {
	d, err := decimal.NewFromString(strings.TrimSpace(raw))
	if err != nil {
		return decimal.Zero, fmt.Errorf("%s must be a decimal number: %q", key, raw)
	}
	return d, nil
}

// keySet 用于追踪配置文件中显式设置的字段路径。
type keySet map[string]struct{}

func (k keySet) mark(path string) {
	path = strings.ToLower(strings.TrimSpace(path))
	if path == "" {
		return
	}
	k[path] = struct{}{}
}

func (k keySet) isSet(path string) bool {
	if len(k) == 0 {
		return false
	}
	path = strings.ToLower(strings.TrimSpace(path))
	if path == "" {
		return false
	}
	_, ok := k[path]
	return ok
}

// fieldDefault 描述单个字段的默认值设置规则。
type fieldDefault struct {
	key   string
	need  func() bool
	apply func()
}
