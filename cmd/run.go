package main

import (
	"encoding/json"
	"fmt"
	"io"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/sells-group/hotspot-cli/internal/pipeline"
)

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Run every stage from ingest to hot spot analysis",
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

		run, err := ws.CreateRun(ctx)
		if err != nil {
			return err
		}
		log := zap.L().With(zap.String("run_id", run.ID))

		result, err := p.Run(ctx)
		if err != nil {
			if ferr := ws.FailRun(ctx, run.ID, err); ferr != nil {
				log.Warn("failed to record run failure", zap.Error(ferr))
			}
			return eris.Wrap(err, "pipeline run")
		}
		if err := ws.CompleteRun(ctx, run.ID, result); err != nil {
			log.Warn("failed to record run result", zap.Error(err))
		}

		log.Info("hot spot run complete",
			zap.String("workspace", ws.Path()),
			zap.Int("cells", result.Cells),
			zap.Int("outputs", len(result.Analysis.Outputs)),
			zap.Int("skipped", len(result.Analysis.Skipped)),
		)

		return printJSON(cmd.OutOrStdout(), result)
	},
}

var initCmd = &cobra.Command{
	Use:   "init",
	Short: "Create the workspace if it does not exist",
	RunE: func(cmd *cobra.Command, _ []string) error {
		ws, err := pipeline.InitWorkspace(cmd.Context(), cfg.Workspace.Dir, cfg.Workspace.Name)
		if err != nil {
			return err
		}
		defer ws.Close() //nolint:errcheck
		_, err = fmt.Fprintln(cmd.OutOrStdout(), ws.Path())
		return err
	},
}

// printJSON writes v to w as indented JSON.
func printJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func init() {
	addPipelineFlags(runCmd, "source-dir", "districts", "weights", "cell-area", "min-region-cells", "distance-band")
	rootCmd.AddCommand(runCmd)
	rootCmd.AddCommand(initCmd)
}
