package main

import (
	"context"
	"fmt"

	"github.com/grafana/hitcounter/series"
	"github.com/spf13/cobra"
)

var latestCmd = &cobra.Command{
	Use:   "latest <series>",
	Short: "Print the most recent sample of a series",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		id, err := series.ParseID(args[0])
		if err != nil {
			return err
		}
		svc, st, err := openCounter()
		if err != nil {
			return err
		}
		defer st.Stop()

		ctx, cancel := context.WithTimeout(context.Background(), timeout)
		defer cancel()
		p, found, err := svc.Latest(ctx, id)
		if err != nil {
			return err
		}
		if !found {
			fmt.Fprintf(cmd.OutOrStdout(), "%s: no samples\n", id)
			return nil
		}
		fmt.Fprintf(cmd.OutOrStdout(), "%s %s %d\n", id, formatTs(p.Ts), p.Count)
		return nil
	},
}
