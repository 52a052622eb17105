package main

import (
	"github.com/spf13/cobra"

	"github.com/sells-group/hotspot-cli/internal/expr"
)

// gridSummary is printed by the grid command.
type gridSummary struct {
	Cells       int      `json:"cells"`
	CountFields []string `json:"count_fields"`
	Pruned      int64    `json:"pruned"`
	Expression  string   `json:"score_expression"`
}

var gridCmd = &cobra.Command{
	Use:   "grid",
	Short: "Build, enrich, prune and score the hexagon grid",
	Long: "Tessellates the extent of the imported collections, counts each point collection per cell, " +
		"removes cells without any point and calculates the weighted count_all density.",
	RunE: func(cmd *cobra.Command, _ []string) error {
		ctx := cmd.Context()
		if err := applyPipelineFlags(cmd, cfg); err != nil {
			return err
		}

		p, ws, err := openPipeline(ctx)
		if err != nil {
			return err
		}
		defer ws.Close() //nolint:errcheck

		var (
			summary gridSummary
			sum     expr.WeightedSum
		)
		if summary.Cells, err = p.BuildGrid(ctx); err != nil {
			return err
		}
		if summary.CountFields, err = p.Enrich(ctx); err != nil {
			return err
		}
		if summary.Pruned, err = p.Prune(ctx); err != nil {
			return err
		}
		if sum, err = p.Score(ctx); err != nil {
			return err
		}
		summary.Expression = sum.String()
		return printJSON(cmd.OutOrStdout(), summary)
	},
}

func init() {
	addPipelineFlags(gridCmd, "cell-area", "weights")
	rootCmd.AddCommand(gridCmd)
}
