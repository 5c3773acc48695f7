package config

import (
	"path/filepath"
	"strings"
)

// 默认值常量
const (
	defaultAppEnv             = "dev"
	defaultAppLogLevel        = "info"
	defaultAppHTTPAddr        = ":8080"
	defaultAppLogMaxSizeMB    = 50
	defaultAppLogMaxBackups   = 5
	defaultAppLogMaxAgeDays   = 30
	defaultAppShutdownSeconds = 5

	defaultStorageDriver       = "sqlite"
	defaultStoragePath         = "data/tradejournal.db"
	defaultStorageMaxOpenConns = 1

	defaultLotUnit             = 100
	defaultMinRiskReward       = "1.5"
	defaultDangerBuffer        = "0.02"
	defaultTotalCapital        = "1000000"
	defaultRiskFraction        = "0.01"
	defaultCommandShards       = 8
	defaultSlowCommandMillis   = 500
	defaultMarketTimeout       = 5
	defaultBreakerThreshold    = 3
	defaultBreakerCooldown     = 60
	defaultQuoteConcurrency    = 8
	defaultMarketUserAgent     = "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0 Safari/537.36"
	defaultSinaBaseURL         = "http://hq.sinajs.cn"
	defaultTencentBaseURL      = "http://qt.gtimg.cn"
	defaultSearchBaseURL       = "https://smartbox.gtimg.cn"
	defaultReviewTimeout       = 60
	defaultReviewMaxRetries    = 2
	defaultReviewQueueSize     = 64
	defaultReviewWorkers       = 1
	defaultReviewPromptPath    = "configs/review_prompt.yaml"
	defaultReviewLogPathSuffix = "review.log"
)

var defaultMarketProviders = []string{"sina", "tencent"}

// applyDefaults 为所有子配置应用默认值。
func (c *Config) applyDefaults(keys keySet) {
	c.App.applyDefaults(keys)
	c.Storage.applyDefaults(keys)
	c.Trading.applyDefaults(keys)
	c.Market.applyDefaults(keys)
	c.Review.applyDefaults(keys)
}

func (a *AppConfig) applyDefaults(keys keySet) {
	if a == nil {
		return
	}
	applyFieldDefaults(keys,
		stringFieldDefault("app.env", &a.Env, defaultAppEnv),
		stringFieldDefault("app.log_level", &a.LogLevel, defaultAppLogLevel),
		stringFieldDefault("app.http_addr", &a.HTTPAddr, defaultAppHTTPAddr),
		intFieldDefault("app.log_max_size_mb", &a.LogMaxSizeMB, defaultAppLogMaxSizeMB),
		intFieldDefault("app.log_max_backups", &a.LogMaxBackups, defaultAppLogMaxBackups),
		intFieldDefault("app.log_max_age_days", &a.LogMaxAgeDays, defaultAppLogMaxAgeDays),
		intFieldDefault("app.shutdown_seconds", &a.ShutdownSeconds, defaultAppShutdownSeconds),
	)
	// 复盘日志默认与主日志同目录
	if strings.TrimSpace(a.ReviewLogPath) == "" && a.ReviewLogDump && strings.TrimSpace(a.LogPath) != "" {
		a.ReviewLogPath = filepath.Join(filepath.Dir(a.LogPath), defaultReviewLogPathSuffix)
	}
}

func (s *StorageConfig) applyDefaults(keys keySet) {
	if s == nil {
		return
	}
	s.Driver = strings.ToLower(strings.TrimSpace(s.Driver))
	applyFieldDefaults(keys,
		stringFieldDefault("storage.driver", &s.Driver, defaultStorageDriver),
		intFieldDefault("storage.max_open_conns", &s.MaxOpenConns, defaultStorageMaxOpenConns),
	)
	if s.Driver == "sqlite" {
		applyFieldDefaults(keys, stringFieldDefault("storage.path", &s.Path, defaultStoragePath))
	}
}

func (t *TradingConfig) applyDefaults(keys keySet) {
	if t == nil {
		return
	}
	applyFieldDefaults(keys,
		fieldDefault{
			key:   "trading.lot_unit",
			need:  func() bool { return t.LotUnit <= 0 },
			apply: func() { t.LotUnit = defaultLotUnit },
		},
		stringFieldDefault("trading.min_risk_reward", &t.MinRiskReward, defaultMinRiskReward),
		stringFieldDefault("trading.danger_buffer", &t.DangerBuffer, defaultDangerBuffer),
		stringFieldDefault("trading.default_total_capital", &t.DefaultTotalCapital, defaultTotalCapital),
		stringFieldDefault("trading.default_risk_fraction", &t.DefaultRiskFraction, defaultRiskFraction),
		intFieldDefault("trading.command_shards", &t.CommandShards, defaultCommandShards),
		intFieldDefault("trading.slow_command_ms", &t.SlowCommandMillis, defaultSlowCommandMillis),
	)
}

func (m *MarketConfig) applyDefaults(keys keySet) {
	if m == nil {
		return
	}
	m.Providers = normalizeProviderList(m.Providers)
	if len(m.Providers) == 0 && !keys.isSet("market.providers") {
		m.Providers = append([]string(nil), defaultMarketProviders...)
	}
	applyFieldDefaults(keys,
		intFieldDefault("market.timeout_seconds", &m.TimeoutSeconds, defaultMarketTimeout),
		intFieldDefault("market.breaker_threshold", &m.BreakerThreshold, defaultBreakerThreshold),
		intFieldDefault("market.breaker_cooldown_seconds", &m.BreakerCooldownSeconds, defaultBreakerCooldown),
		intFieldDefault("market.quote_concurrency", &m.QuoteConcurrency, defaultQuoteConcurrency),
		stringFieldDefault("market.user_agent", &m.UserAgent, defaultMarketUserAgent),
		stringFieldDefault("market.sina_base_url", &m.SinaBaseURL, defaultSinaBaseURL),
		stringFieldDefault("market.tencent_base_url", &m.TencentBaseURL, defaultTencentBaseURL),
		stringFieldDefault("market.search_base_url", &m.SearchBaseURL, defaultSearchBaseURL),
	)
}

func (r *ReviewConfig) applyDefaults(keys keySet) {
	if r == nil {
		return
	}
	applyFieldDefaults(keys,
		intFieldDefault("review.timeout_seconds", &r.TimeoutSeconds, defaultReviewTimeout),
		intFieldDefault("review.queue_size", &r.QueueSize, defaultReviewQueueSize),
		intFieldDefault("review.workers", &r.Workers, defaultReviewWorkers),
		stringFieldDefault("review.prompt_path", &r.PromptPath, defaultReviewPromptPath),
		fieldDefault{
			key:   "review.max_retries",
			need:  func() bool { return r.MaxRetries == 0 },
			apply: func() { r.MaxRetries = defaultReviewMaxRetries },
		},
	)
}

// Helper functions

func applyFieldDefaults(keys keySet, defs ...fieldDefault) {
	for _, def := range defs {
		if def.apply == nil {
			continue
		}
		if def.key != "" && keys.isSet(def.key) {
			continue
		}
		if def.need != nil && !def.need() {
			continue
		}
		def.apply()
	}
}

func stringFieldDefault(key string, target *string, def string) fieldDefault {
	return fieldDefault{
		key: key,
		need: func() bool {
			return target != nil && strings.TrimSpace(*target) == ""
		},
		apply: func() {
			if target != nil {
				*target = def
			}
		},
	}
}

func intFieldDefault(key string, target *int, def int) fieldDefault {
	return fieldDefault{
		key:  key,
		need: func() bool { return target != nil && *target <= 0 },
		apply: func() {
			if target != nil {
				*target = def
			}
		},
	}
}

func normalizeProviderList(list []string) []string {
	if len(list) == 0 {
		return nil
	}
	out := make([]string, 0, len(list))
	seen := make(map[string]bool, len(list))
	for _, id := range list {
		id = strings.ToLower(strings.TrimSpace(id))
		if id == "" || seen[id] {
			continue
		}
		seen[id] = true
		out = append(out, id)
	}
	if len(out) == 0 {
		return nil
	}
	return out
}
