package main

import (
	"fmt"
	"text/tabwriter"

	"tradejournal/internal/app"
	"tradejournal/internal/plan"

	"github.com/spf13/cobra"
)

func newPlansCmd(opts *rootOptions) *cobra.Command {
	var status string
	cmd := &cobra.Command{
		Use:   "plans",
		Short: "按状态列出交易计划",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			var st plan.Status
			if status != "" {
				parsed, err := plan.ParseStatus(status)
				if err != nil {
					return err
				}
				st = parsed
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
			plans, err := a.Plans().ListByStatus(cmd.Context(), st)
			if err != nil {
				return err
			}
			tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
			fmt.Fprintln(tw, "ID\tSYMBOL\tSTATUS\tENTRY\tSTOP\tTARGET\tRR\tQTY")
			for _, p := range plans {
				fmt.Fprintf(tw, "%d\t%s\t%s\t%s\t%s\t%s\t%s\t%d/%d\n",
					p.ID, p.Symbol, p.Status, p.EntryPrice, p.StopLoss, p.TakeProfit,
					p.RiskRewardRatio.StringFixed(2), p.CurrentQuantity, p.PositionSize)
			}
			return tw.Flush()
		},
	}
	cmd.Flags().StringVarP(&status, "status", "s", "", "PENDING / EXECUTED / CLOSED / CANCELLED，留空表示全部")
	return cmd
}
