package main

import (
	"fmt"
	"io"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/sells-group/hotspot-cli/internal/pipeline"
	"github.com/sells-group/hotspot-cli/internal/store"
)

var collectionsCmd = &cobra.Command{
	Use:   "collections",
	Short: "List the feature collections of the workspace",
	RunE: func(cmd *cobra.Command, _ []string) error {
		ctx := cmd.Context()

		ws, err := pipeline.InitWorkspace(ctx, cfg.Workspace.Dir, cfg.Workspace.Name)
		if err != nil {
			return err
		}
		defer ws.Close() //nolint:errcheck

		infos, err := ws.ListCollections(ctx)
		if err != nil {
			return err
		}
		if len(infos) == 0 {
			fmt.Fprintln(cmd.ErrOrStderr(), "No collections found.")
			return nil
		}
		formatCollections(cmd.OutOrStdout(), infos)
		return nil
	},
}

// formatCollections writes a tabular list of collections to out.
func formatCollections(out io.Writer, infos []store.CollectionInfo) {
	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	_, _ = fmt.Fprintln(w, "NAME\tKIND\tGEOMETRY\tFEATURES\tFIELDS")
	_, _ = fmt.Fprintln(w, "----\t----\t--------\t--------\t------")

	for _, info := range infos {
		names := make([]string, len(info.Fields))
		for i, f := range info.Fields {
			names[i] = f.Name
		}
		fields := strings.Join(names, ",")
		if len(fields) > 60 {
			fields = fields[:57] + "..."
		}
		_, _ = fmt.Fprintf(w, "%s\t%s\t%s\t%d\t%s\n", info.Name, info.Kind, info.GeomType, info.Count, fields)
	}
	_ = w.Flush()
}

func init() {
	rootCmd.AddCommand(collectionsCmd)
}
