package main

import (
	"context"
	"fmt"

	"github.com/grafana/hitcounter/series"
	"github.com/raintank/dur"
	"github.com/spf13/cobra"
)

var windowCmd = &cobra.Command{
	Use:   "window <series> [window]",
	Short: "Print the samples of a series recorded within the window (default 24h), oldest first",
	Args:  cobra.RangeArgs(1, 2),
	RunE: func(cmd *cobra.Command, args []string) error {
		id, err := series.ParseID(args[0])
		if err != nil {
			return err
		}
		windowStr := "24h"
		if len(args) == 2 {
			windowStr = args[1]
		}
		window, err := dur.ParseNDuration(windowStr)
		if err != nil {
			return fmt.Errorf("invalid window %q: %w", windowStr, err)
		}

		svc, st, err := openCounter()
		if err != nil {
			return err
		}
		defer st.Stop()

		ctx, cancel := context.WithTimeout(context.Background(), timeout)
		defer cancel()
		points, err := svc.QueryWindow(ctx, id, window)
		if err != nil {
			return err
		}
		out := cmd.OutOrStdout()
		for _, p := range points {
			fmt.Fprintf(out, "%s %d\n", formatTs(p.Ts), p.Count)
		}
		fmt.Fprintf(out, "# %d samples of %s in the last %s\n", len(points), id, dur.FormatDuration(window))
		return nil
	},
}
