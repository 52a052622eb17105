package main

import (
	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/sells-group/hotspot-cli/internal/fetcher"
	"github.com/sells-group/hotspot-cli/internal/pipeline"
)

var exportOut string

var exportCmd = &cobra.Command{
	Use:   "export <collection>",
	Short: "Write a collection to a GeoJSON file",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		ws, err := pipeline.InitWorkspace(ctx, cfg.Workspace.Dir, cfg.Workspace.Name)
		if err != nil {
			return err
		}
		defer ws.Close() //nolint:errcheck

		coll, err := ws.Read(ctx, args[0])
		if err != nil {
			return eris.Wrapf(err, "export %s", args[0])
		}

		out := exportOut
		if out == "" {
			out = coll.Name + ".geojson"
		}
		if err := fetcher.WriteGeoJSON(out, fetcher.ToGeoJSON(coll)); err != nil {
			return err
		}
		zap.L().Info("collection exported",
			zap.String("collection", coll.Name),
			zap.Int("features", len(coll.Features)),
			zap.String("path", out),
		)
		return nil
	},
}

func init() {
	exportCmd.Flags().StringVarP(&exportOut, "out", "o", "", "output path (default: <collection>.geojson)")
	rootCmd.AddCommand(exportCmd)
}
