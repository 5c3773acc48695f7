package app

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"tradejournal/internal/config"
	"tradejournal/internal/dashboard"
	"tradejournal/internal/logger"
	"tradejournal/internal/market"
	"tradejournal/internal/notifier"
	"tradejournal/internal/pkg/trading"
	"tradejournal/internal/plan"
	"tradejournal/internal/review"
	"tradejournal/internal/settings"
	"tradejournal/internal/store"
	"tradejournal/internal/store/cmdlog"
	"tradejournal/internal/store/gormstore"
	"tradejournal/internal/store/memstore"
	"tradejournal/internal/trader"
	apihttp "tradejournal/internal/transport/http/api"
)

type AppBuilder struct {
	cfg *config.Config

	storeFn       func(config.StorageConfig) (store.Store, error)
	reviewModelFn func(config.ReviewConfig) review.ChatModel
	notifierFn    func(config.NotifyConfig) notifier.TextNotifier
	quotesFn      func(config.MarketConfig) *market.Chain
}

type AppBuilderOption func(*AppBuilder)

// WithStore 替换存储实现，测试时注入内存存储。
func WithStore(s store.Store) AppBuilderOption {
	return func(b *AppBuilder) {
		b.storeFn = func(config.StorageConfig) (store.Store, error) { return s, nil }
	}
}

// WithReviewModel 替换复盘模型客户端。
func WithReviewModel(m review.ChatModel) AppBuilderOption {
	return func(b *AppBuilder) {
		b.reviewModelFn = func(config.ReviewConfig) review.ChatModel { return m }
	}
}

func NewAppBuilder(cfg *config.Config, opts ...AppBuilderOption) *AppBuilder {
	b := &AppBuilder{
		cfg:           cfg,
		storeFn:       openStore,
		reviewModelFn: newReviewModel,
		notifierFn:    newNotifier,
		quotesFn:      market.NewChainFromConfig,
	}
	for _, opt := range opts {
		if opt != nil {
			opt(b)
		}
	}
	return b
}

func (b *AppBuilder) Build(ctx context.Context) (*App, error) {
	if ctx == nil {
		ctx = context.Background()
	}
	if b.cfg == nil {
		return nil, fmt.Errorf("nil config")
	}
	cfg := b.cfg
	logger.SetLevel(cfg.App.LogLevel)

	st, err := b.storeFn(cfg.Storage)
	if err != nil {
		return nil, err
	}
	app := &App{cfg: cfg, store: st}
	ok := false
	defer func() {
		if !ok {
			_ = app.Close()
		}
	}()

	if path := strings.TrimSpace(cfg.Storage.CommandLogPath); path != "" {
		log, err := cmdlog.Open(path)
		if err != nil {
			return nil, err
		}
		app.cmdlog = log
	}

	settingsSvc := settings.NewService(st, trading.RiskBudget{
		TotalCapital: cfg.Trading.DefaultCapitalDecimal(),
		RiskFraction: cfg.Trading.DefaultRiskFractionDecimal(),
	})
	if err := settingsSvc.EnsureDefaults(ctx); err != nil {
		return nil, fmt.Errorf("seed settings: %w", err)
	}

	quotes := b.quotesFn(cfg.Market)

	prompts, err := loadPrompts(cfg.Review.PromptPath)
	if err != nil {
		return nil, err
	}
	var (
		reviewer   review.ExecutionReviewer
		model      review.ChatModel
		modelLabel = "disabled"
	)
	if cfg.Review.Ready() {
		model = b.reviewModelFn(cfg.Review)
		reviewer = review.NewReviewer(model, prompts)
		modelLabel = model.Model()
	}
	app.reviews = review.NewQueue(st, reviewer, b.notifierFn(cfg.Notify), review.QueueOptions{
		Size:    cfg.Review.QueueSize,
		Workers: cfg.Review.Workers,
		Timeout: cfg.Review.Timeout(),
	})
	challenger := review.NewChallenger(model, prompts, quotes, cfg.Review.Timeout())

	rules := plan.Rules{
		LotUnit:       cfg.Trading.LotUnit,
		MinRiskReward: cfg.Trading.MinRiskRewardDecimal(),
	}
	app.trader = trader.NewTrader(st, app.cmdlog, app.reviews, trader.Options{
		Shards:        cfg.Trading.CommandShards,
		SlowThreshold: cfg.Trading.SlowCommandThreshold(),
		Rules:         rules,
	})
	app.plans = trader.NewService(app.trader, st, settingsSvc, app.reviews, app.cmdlog)

	projector := dashboard.NewProjector(st, quotes, dashboard.Options{
		DangerBuffer: cfg.Trading.DangerBufferDecimal(),
		Concurrency:  cfg.Market.QuoteConcurrency,
	})
	app.http, err = apihttp.NewServer(apihttp.ServerConfig{
		Addr:            cfg.App.HTTPAddr,
		ShutdownTimeout: secondsOf(cfg.App.ShutdownSeconds),
		Plans:           app.plans,
		Dashboard:       projector,
		Settings:        settingsSvc,
		Quotes:          quotes,
		Challenger:      challenger,
	})
	if err != nil {
		return nil, err
	}

	app.Summary = &StartupSummary{
		HTTPAddr:      cfg.App.HTTPAddr,
		Storage:       describeStorage(cfg.Storage),
		CommandLog:    cfg.Storage.CommandLogPath,
		Shards:        cfg.Trading.CommandShards,
		LotUnit:       rules.LotUnit,
		MinRiskReward: rules.MinRiskReward.String(),
		DangerBuffer:  cfg.Trading.DangerBuffer,
		Providers:     cfg.Market.Providers,
		ReviewModel:   modelLabel,
		PromptVersion: prompts.Snapshot().Version,
		Telegram:      cfg.Notify.Telegram.Enabled,
	}
	ok = true
	return app, nil
}

func openStore(cfg config.StorageConfig) (store.Store, error) {
	if cfg.Driver == "memory" {
		logger.Warnf("[app] storage.driver=memory, data will be lost on exit")
		return memstore.New(), nil
	}
	st, err := gormstore.Open(gormstore.Options{
		Driver:       cfg.Driver,
		Path:         cfg.Path,
		DSN:          cfg.DSN,
		MaxOpenConns: cfg.MaxOpenConns,
	})
	if err != nil {
		return nil, err
	}
	return st, nil
}

func newReviewModel(cfg config.ReviewConfig) review.ChatModel {
	return review.NewChatClient(cfg)
}

func newNotifier(cfg config.NotifyConfig) notifier.TextNotifier {
	tg := cfg.Telegram
	if !tg.Enabled {
		return nil
	}
	return notifier.NewTelegram(tg.Token, tg.ChatID)
}

// loadPrompts 配置文件不存在时退回内置提示词。
func loadPrompts(path string) (*review.Registry, error) {
	path = strings.TrimSpace(path)
	if path != "" {
		if _, err := os.Stat(path); errors.Is(err, os.ErrNotExist) {
			logger.Warnf("[app] prompt file %s not found, using builtin prompts", path)
			path = ""
		}
	}
	return review.NewRegistry(path)
}

func secondsOf(n int) time.Duration {
	return time.Duration(n) * time.Second
}

func describeStorage(cfg config.StorageConfig) string {
	switch cfg.Driver {
	case "sqlite":
		return "sqlite " + cfg.Path
	case "memory":
		return "memory"
	default:
		return cfg.Driver
	}
}
