package main

import (
	"fmt"
	"strconv"

	"tradejournal/internal/app"

	"github.com/spf13/cobra"
)

// newReviewCmd 同步复盘一条结算记录，用于补跑失败或被丢弃的任务。
func newReviewCmd(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "review <executionId>",
		Short: "立即复盘指定的结算记录",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := strconv.ParseInt(args[0], 10, 64)
			if err != nil || id <= 0 {
				return fmt.Errorf("invalid execution id %q", args[0])
			}
			cfg, err := opts.load()
			if err != nil {
				return fmt.Errorf("读取配置失败: %w", err)
			}
			a, err := app.NewApp(cfg)
			if err != nil {
				return fmt.Errorf("初始化应用失败: %w", err)
			}
			defer a.Close()
			if err := a.Reviews().Process(cmd.Context(), id); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "execution %d reviewed\n", id)
			return nil
		},
	}
}
