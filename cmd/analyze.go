package main

import (
	"github.com/spf13/cobra"

	"github.com/sells-group/hotspot-cli/internal/pipeline"
)

var analyzeCmd = &cobra.Command{
	Use:   "analyze",
	Short: "Run hot spot analysis on the scored grid",
	Long: "Writes HSAnalysis_All for the whole grid and, with a boundary layer, one result for the cells " +
		"of all districts together plus HSAnalysis_<Name> for every district with enough cells.",
	RunE: func(cmd *cobra.Command, _ []string) error {
		ctx := cmd.Context()
		if err := applyPipelineFlags(cmd, cfg); err != nil {
			return err
		}

		var regions []pipeline.Region
		if path := cfg.Pipeline.Districts; path != "" {
			var err error
			regions, err = pipeline.LoadRegions(path, cfg.Pipeline.RegionIDField, cfg.Pipeline.RegionNameField)
			if err != nil {
				return err
			}
		}

		p, ws, err := openPipeline(ctx)
		if err != nil {
			return err
		}
		defer ws.Close() //nolint:errcheck

		result, err := p.Analyze(ctx, regions)
		if err != nil {
			return err
		}
		return printJSON(cmd.OutOrStdout(), result)
	},
}

func init() {
	addPipelineFlags(analyzeCmd, "districts", "min-region-cells", "distance-band")
	rootCmd.AddCommand(analyzeCmd)
}
