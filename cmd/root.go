package main

import (
	"os"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/sells-group/hotspot-cli/internal/config"
)

var cfg *config.Config

var rootCmd = &cobra.Command{
	Use:   "hotspot-cli",
	Short: "POI density hot spot analysis on a hexagon grid",
	Long: "Imports point-of-interest files into a workspace, counts them on a hexagon grid, scores each cell " +
		"with a weighted density and runs Getis-Ord Gi* hot spot analysis over the grid and its districts.",
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		c, err := config.Load()
		if err != nil {
			return eris.Wrap(err, "load config")
		}
		applyWorkspaceFlags(cmd, c)
		if err := c.Validate(); err != nil {
			return err
		}
		cfg = c

		if err := config.InitLogger(cfg.Log); err != nil {
			return eris.Wrap(err, "init logger")
		}

		return nil
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		_ = zap.L().Sync()
	},
}

func init() {
	rootCmd.PersistentFlags().String("workspace", "", "directory holding the workspace (overrides workspace.dir)")
	rootCmd.PersistentFlags().String("name", "", "workspace name (overrides workspace.name)")
}

// applyWorkspaceFlags copies explicitly set persistent flags over the loaded config.
func applyWorkspaceFlags(cmd *cobra.Command, c *config.Config) {
	if f := cmd.Flags().Lookup("workspace"); f != nil && f.Changed {
		c.Workspace.Dir = f.Value.String()
	}
	if f := cmd.Flags().Lookup("name"); f != nil && f.Changed {
		c.Workspace.Name = f.Value.String()
	}
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
