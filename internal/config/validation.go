package config

import (
	"fmt"
	"strings"

	"github.com/shopspring/decimal"
)

// validate 对配置进行基础校验。
func validate(c *Config) error {
	if err := c.Storage.validate(); err != nil {
		return err
	}
	if err := c.Trading.validate(); err != nil {
		return err
	}
	if err := c.Market.validate(); err != nil {
		return err
	}
	if err := c.Review.validate(); err != nil {
		return err
	}
	if err := c.Notify.validate(); err != nil {
		return err
	}
	return nil
}

func (s *StorageConfig) validate() error {
	switch s.Driver {
	case "sqlite":
		if strings.TrimSpace(s.Path) == "" {
			return fmt.Errorf("storage.path is required for sqlite")
		}
	case "mysql", "postgres":
		if strings.TrimSpace(s.DSN) == "" {
			return fmt.Errorf("storage.dsn is required for %s", s.Driver)
		}
	case "memory":
	default:
		return fmt.Errorf("storage.driver must be one of sqlite/mysql/postgres/memory, got %q", s.Driver)
	}
	if s.MaxOpenConns <= 0 {
		return fmt.Errorf("storage.max_open_conns must be > 0")
	}
	return nil
}

func (t *TradingConfig) validate() error {
	if t.LotUnit <= 0 {
		return fmt.Errorf("trading.lot_unit must be > 0")
	}
	rr, err := parseDecimal("trading.min_risk_reward", t.MinRiskReward)
	if err != nil {
		return err
	}
	if !rr.IsPositive() {
		return fmt.Errorf("trading.min_risk_reward must be > 0")
	}
	buf, err := parseDecimal("trading.danger_buffer", t.DangerBuffer)
	if err != nil {
		return err
	}
	if buf.IsNegative() || buf.GreaterThanOrEqual(decimal.NewFromInt(1)) {
		return fmt.Errorf("trading.danger_buffer must be within [0, 1)")
	}
	capital, err := parseDecimal("trading.default_total_capital", t.DefaultTotalCapital)
	if err != nil {
		return err
	}
	if !capital.IsPositive() {
		return fmt.Errorf("trading.default_total_capital must be > 0")
	}
	frac, err := parseDecimal("trading.default_risk_fraction", t.DefaultRiskFraction)
	if err != nil {
		return err
	}
	if !frac.IsPositive() || frac.GreaterThan(decimal.NewFromInt(1)) {
		return fmt.Errorf("trading.default_risk_fraction must be within (0, 1]")
	}
	if t.CommandShards <= 0 {
		return fmt.Errorf("trading.command_shards must be > 0")
	}
	return nil
}

func (m *MarketConfig) validate() error {
	for _, p := range m.Providers {
		switch p {
		case "sina", "tencent":
		default:
			return fmt.Errorf("market.providers contains unknown provider: %s", p)
		}
	}
	if m.TimeoutSeconds <= 0 {
		return fmt.Errorf("market.timeout_seconds must be > 0")
	}
	if m.BreakerThreshold <= 0 {
		return fmt.Errorf("market.breaker_threshold must be > 0")
	}
	if m.QuoteConcurrency <= 0 {
		return fmt.Errorf("market.quote_concurrency must be > 0")
	}
	return nil
}

func (r *ReviewConfig) validate() error {
	if !r.Enabled {
		return nil
	}
	if strings.TrimSpace(r.APIURL) == "" {
		return fmt.Errorf("review.api_url is required when review is enabled")
	}
	if strings.TrimSpace(r.Model) == "" {
		return fmt.Errorf("review.model is required when review is enabled")
	}
	if r.Workers <= 0 {
		return fmt.Errorf("review.workers must be > 0")
	}
	if r.QueueSize <= 0 {
		return fmt.Errorf("review.queue_size must be > 0")
	}
	if r.MaxRetries < 0 {
		return fmt.Errorf("review.max_retries must be >= 0")
	}
	return nil
}

func (n *NotifyConfig) validate() error {
	tg := n.Telegram
	if !tg.Enabled {
		return nil
	}
	if strings.TrimSpace(tg.Token) == "" || strings.TrimSpace(tg.ChatID) == "" {
		return fmt.Errorf("notify.telegram requires token and chat_id when enabled")
	}
	return nil
}
