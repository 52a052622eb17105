package main

import (
	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/sells-group/hotspot-cli/internal/feature"
	"github.com/sells-group/hotspot-cli/internal/pipeline"
)

var (
	ingestFile       string
	ingestCollection string
	ingestEncoding   string
)

var ingestCmd = &cobra.Command{
	Use:   "ingest",
	Short: "Import source files into the workspace",
	Long: "Imports every csv, txt, tsv, xlsx, json and geojson file of the source directory as a feature " +
		"collection named after the file. With --file, imports a single file.",
	RunE: func(cmd *cobra.Command, _ []string) error {
		ctx := cmd.Context()
		if err := applyPipelineFlags(cmd, cfg); err != nil {
			return err
		}
		if ingestEncoding != "" {
			cfg.Ingest.Encoding = ingestEncoding
		}

		p, ws, err := openPipeline(ctx)
		if err != nil {
			return err
		}
		defer ws.Close() //nolint:errcheck

		if ingestFile != "" {
			if _, ok := pipeline.SourceKindOf(ingestFile); !ok {
				return eris.Errorf("ingest: unsupported file %s", ingestFile)
			}
			name := ingestCollection
			if name == "" {
				name = feature.StemName(ingestFile)
			}
			f, err := p.IngestFile(ctx, ingestFile, name)
			if err != nil {
				return eris.Wrap(err, "ingest file")
			}
			return printJSON(cmd.OutOrStdout(), f)
		}
		if ingestCollection != "" {
			return eris.New("ingest: --collection needs --file")
		}

		result, err := p.Ingest(ctx, cfg.Pipeline.SourceDir)
		if err != nil {
			return eris.Wrap(err, "ingest")
		}
		zap.L().Info("ingest complete",
			zap.Int("processed", len(result.Processed)),
			zap.Int("failed", len(result.Failed)),
		)
		return printJSON(cmd.OutOrStdout(), result)
	},
}

func init() {
	ingestCmd.Flags().StringVar(&ingestFile, "file", "", "import a single file")
	ingestCmd.Flags().StringVar(&ingestCollection, "collection", "", "collection name for --file (default: file name without extension)")
	ingestCmd.Flags().StringVar(&ingestEncoding, "encoding", "", "text encoding of delimited files, e.g. gbk (overrides ingest.encoding)")
	addPipelineFlags(ingestCmd, "source-dir")
	rootCmd.AddCommand(ingestCmd)
}
