package main

import (
	"context"
	"io"
	"log"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"tradejournal/internal/config"
	"tradejournal/internal/logger"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
)

const defaultConfigPath = "configs/config.yaml"

type rootOptions struct {
	configPath string
	closers    []io.Closer
}

func main() {
	_ = godotenv.Load()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	opts := &rootOptions{}
	root := &cobra.Command{
		Use:           "tradejournal",
		Short:         "交易纪律日志：计划、执行、复盘",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPostRun: func(*cobra.Command, []string) {
			opts.close()
		},
	}
	root.PersistentFlags().StringVarP(&opts.configPath, "config", "c", "", "配置文件路径 (默认读取 TRADEJOURNAL_CONFIG 或 "+defaultConfigPath+")")
	root.AddCommand(
		newServeCmd(opts),
		newReviewCmd(opts),
		newPlansCmd(opts),
	)

	if err := root.ExecuteContext(ctx); err != nil {
		opts.close()
		log.Fatalf("运行失败: %v", err)
	}
}

// load 读取配置并初始化日志输出。
func (o *rootOptions) load() (*config.Config, error) {
	path := strings.TrimSpace(o.configPath)
	if path == "" {
		path = strings.TrimSpace(os.Getenv(config.EnvPrefix + "_CONFIG"))
	}
	if path == "" {
		path = defaultConfigPath
	}
	cfg, err := config.Load(path)
	if err != nil {
		return nil, err
	}
	if err := o.setupLogOutput(cfg.App); err != nil {
		return nil, err
	}
	logger.SetReviewWriter(nil)
	if cfg.App.ReviewLogDump {
		if err := o.setupReviewLogOutput(cfg.App); err != nil {
			return nil, err
		}
	}
	logger.SetLevel(cfg.App.LogLevel)
	logger.EnableReviewPayloadDump(cfg.App.ReviewLogDump)
	logger.Infof("✓ 配置加载成功（环境=%s，配置=%s）", cfg.App.Env, path)
	return cfg, nil
}

func (o *rootOptions) setupLogOutput(app config.AppConfig) error {
	if strings.TrimSpace(app.LogPath) == "" {
		return nil
	}
	w, err := logger.NewRotatingFile(logger.RotateOptions{
		Path:       app.LogPath,
		MaxSizeMB:  app.LogMaxSizeMB,
		MaxBackups: app.LogMaxBackups,
		MaxAgeDays: app.LogMaxAgeDays,
	})
	if err != nil {
		return err
	}
	o.closers = append(o.closers, w)
	mw := io.MultiWriter(os.Stdout, w)
	log.SetOutput(mw)
	logger.SetOutput(mw)
	return nil
}

func (o *rootOptions) setupReviewLogOutput(app config.AppConfig) error {
	if strings.TrimSpace(app.ReviewLogPath) == "" {
		return nil
	}
	w, err := logger.NewRotatingFile(logger.RotateOptions{
		Path:       app.ReviewLogPath,
		MaxSizeMB:  app.LogMaxSizeMB,
		MaxBackups: app.LogMaxBackups,
		MaxAgeDays: app.LogMaxAgeDays,
	})
	if err != nil {
		return err
	}
	o.closers = append(o.closers, w)
	logger.SetReviewWriter(w)
	return nil
}

func (o *rootOptions) close() {
	for _, c := range o.closers {
		_ = c.Close()
	}
	o.closers = nil
}
