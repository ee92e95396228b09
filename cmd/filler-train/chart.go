package main

import (
	"fmt"
	"os"

	"github.com/montplusa/filler-battle-rl/pkg/training"
	"github.com/spf13/cobra"
)

func newChartCmd() *cobra.Command {
	var output string
	cmd := &cobra.Command{
		Use:   "chart <scores.json>",
		Short: "Render a score history as an HTML chart",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			res, err := training.LoadResult(args[0])
			if err != nil {
				return err
			}
			f, err := os.Create(output)
			if err != nil {
				return fmt.Errorf("failed to create chart: %w", err)
			}
			defer f.Close()

			if err := training.RenderChart(f, res); err != nil {
				return fmt.Errorf("failed to render chart: %w", err)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Chart written to %s (%d episodes)\n", output, res.Episodes)
			return nil
		},
	}
	cmd.Flags().StringVarP(&output, "output", "o", "scores.html", "HTML output path")
	return cmd
}
