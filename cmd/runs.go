package main

import (
	"fmt"
	"io"
	"text/tabwriter"
	"time"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"

	"github.com/sells-group/hotspot-cli/internal/pipeline"
	"github.com/sells-group/hotspot-cli/internal/store"
)

var runsLimit int

var runsCmd = &cobra.Command{
	Use:   "runs",
	Short: "List recorded pipeline runs",
	RunE: func(cmd *cobra.Command, _ []string) error {
		ctx := cmd.Context()

		ws, err := pipeline.InitWorkspace(ctx, cfg.Workspace.Dir, cfg.Workspace.Name)
		if err != nil {
			return err
		}
		defer ws.Close() //nolint:errcheck

		runs, err := ws.ListRuns(ctx, runsLimit)
		if err != nil {
			return eris.Wrap(err, "runs list")
		}
		if len(runs) == 0 {
			fmt.Fprintln(cmd.ErrOrStderr(), "No runs found.")
			return nil
		}
		formatRunsList(cmd.OutOrStdout(), runs)
		return nil
	},
}

// formatRunsList writes a tabular list of runs to out.
func formatRunsList(out io.Writer, runs []store.Run) {
	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	_, _ = fmt.Fprintln(w, "ID\tSTATUS\tSTARTED\tDURATION\tERROR")
	_, _ = fmt.Fprintln(w, "--\t------\t-------\t--------\t-----")

	for _, r := range runs {
		dur := "-"
		if r.FinishedAt != nil {
			dur = r.FinishedAt.Sub(r.StartedAt).Round(time.Second).String()
		}
		errMsg := r.Error
		if len(errMsg) > 40 {
			errMsg = errMsg[:37] + "..."
		}
		_, _ = fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\n",
			truncateID(r.ID),
			r.Status,
			r.StartedAt.Format("2006-01-02 15:04"),
			dur,
			errMsg,
		)
	}
	_ = w.Flush()
}

// truncateID returns the first 8 characters of a UUID for compact display.
func truncateID(id string) string {
	if len(id) > 8 {
		return id[:8]
	}
	return id
}

func init() {
	runsCmd.Flags().IntVar(&runsLimit, "limit", 20, "max number of runs to display")
	rootCmd.AddCommand(runsCmd)
}
