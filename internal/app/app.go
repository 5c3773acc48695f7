package app

import (
	"context"
	"errors"
	"fmt"

	"tradejournal/internal/config"
	"tradejournal/internal/logger"
	"tradejournal/internal/review"
	"tradejournal/internal/store"
	"tradejournal/internal/store/cmdlog"
	"tradejournal/internal/trader"
	apihttp "tradejournal/internal/transport/http/api"

	"golang.org/x/sync/errgroup"
)

// App 负责应用级编排：加载配置→初始化依赖→启动命令处理、复盘队列与 HTTP 服务。
type App struct {
	cfg     *config.Config
	store   store.Store
	cmdlog  *cmdlog.Store
	trader  *trader.Trader
	plans   *trader.Service
	reviews *review.Queue
	http    *apihttp.Server
	Summary *StartupSummary
}

// NewApp 根据配置构建应用对象（不启动）
func NewApp(cfg *config.Config) (*App, error) {
	if cfg == nil {
		return nil, fmt.Errorf("nil config")
	}
	logger.SetLevel(cfg.App.LogLevel)
	return buildAppWithWire(context.Background(), cfg)
}

// Run 启动全部组件，直到 ctx 取消或任一组件出错；返回前释放存储。
func (a *App) Run(ctx context.Context) error {
	if a == nil || a.cfg == nil {
		return fmt.Errorf("app not initialized")
	}
	if a.Summary != nil {
		a.Summary.Print()
	}

	a.trader.Start()
	group, ctx := errgroup.WithContext(ctx)
	if a.http != nil {
		group.Go(func() error {
			if err := a.http.Start(ctx); err != nil {
				return fmt.Errorf("http server error: %w", err)
			}
			return nil
		})
	}
	group.Go(func() error {
		return a.reviews.Run(ctx)
	})

	err := group.Wait()
	a.trader.Stop()
	return errors.Join(err, a.Close())
}

// Close 关闭存储与审计日志，可重复调用。
func (a *App) Close() error {
	if a == nil {
		return nil
	}
	var errs []error
	if a.store != nil {
		errs = append(errs, a.store.Close())
		a.store = nil
	}
	if a.cmdlog != nil {
		errs = append(errs, a.cmdlog.Close())
		a.cmdlog = nil
	}
	return errors.Join(errs...)
}

// Plans 供 CLI 直接调用计划命令与查询；调用前需要 StartTrader。
func (a *App) Plans() *trader.Service {
	if a == nil {
		return nil
	}
	return a.plans
}

// Reviews 供 CLI 同步触发复盘。
func (a *App) Reviews() *review.Queue {
	if a == nil {
		return nil
	}
	return a.reviews
}

// StartTrader 在不启动 HTTP 的场景（CLI）下单独启动命令处理。
func (a *App) StartTrader() {
	a.trader.Start()
}

func (a *App) StopTrader() {
	a.trader.Stop()
}
