package main

import (
	"fmt"

	"github.com/spf13/cobra"
	"github.com/warp/pool-engine/generic"
)

func newClipCmd() *cobra.Command {
	var ruleStart, ruleEnd, start, end string

	cmd := &cobra.Command{
		Use:   "clip",
		Short: "Intersect a rule interval with a request window",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			var re any = generic.FarFuture
			if ruleEnd != "" {
				re = ruleEnd
			}
			w, err := generic.Clip(ruleStart, re, start, end)
			if err != nil {
				return err
			}
			if w.Empty() {
				fmt.Fprintln(cmd.OutOrStdout(), "empty")
				return nil
			}
			fmt.Fprintln(cmd.OutOrStdout(), w.Range().String())
			return nil
		},
	}

	cmd.Flags().StringVar(&ruleStart, "rule-start", "", "rule start date (YYYY-MM-DD)")
	cmd.Flags().StringVar(&ruleEnd, "rule-end", "", "rule end date; open-ended when omitted")
	cmd.Flags().StringVar(&start, "start", "", "request window start")
	cmd.Flags().StringVar(&end, "end", "", "request window end")
	_ = cmd.MarkFlagRequired("rule-start")
	_ = cmd.MarkFlagRequired("start")
	_ = cmd.MarkFlagRequired("end")

	return cmd
}
