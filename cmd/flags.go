package main

import (
	"maps"

	"github.com/spf13/cobra"

	"github.com/sells-group/hotspot-cli/internal/config"
)

// addPipelineFlags registers the pipeline overrides a command understands.
func addPipelineFlags(cmd *cobra.Command, names ...string) {
	for _, name := range names {
		switch name {
		case "source-dir":
			cmd.Flags().String(name, "", "directory of source files (overrides pipeline.source_dir)")
		case "districts":
			cmd.Flags().String(name, "", "boundary layer, shapefile or GeoJSON (overrides pipeline.districts)")
		case "weights":
			cmd.Flags().String(name, "", "YAML file mapping count fields to weights")
		case "cell-area":
			cmd.Flags().Float64(name, 0, "hexagon cell area in km² (overrides pipeline.cell_area_km2)")
		case "min-region-cells":
			cmd.Flags().Int(name, 0, "analyse a region only above this many cells (overrides pipeline.min_region_cells)")
		case "distance-band":
			cmd.Flags().Float64(name, 0, "Gi* distance band in metres, 0 picks one (overrides pipeline.distance_band_m)")
		}
	}
}

// applyPipelineFlags copies explicitly set pipeline flags over c.
func applyPipelineFlags(cmd *cobra.Command, c *config.Config) error {
	flags := cmd.Flags()
	changed := func(name string) bool {
		f := flags.Lookup(name)
		return f != nil && f.Changed
	}

	if changed("source-dir") {
		c.Pipeline.SourceDir, _ = flags.GetString("source-dir")
	}
	if changed("districts") {
		c.Pipeline.Districts, _ = flags.GetString("districts")
	}
	if changed("cell-area") {
		c.Pipeline.CellAreaKM2, _ = flags.GetFloat64("cell-area")
	}
	if changed("min-region-cells") {
		c.Pipeline.MinRegionCells, _ = flags.GetInt("min-region-cells")
	}
	if changed("distance-band") {
		c.Pipeline.DistanceBandM, _ = flags.GetFloat64("distance-band")
	}
	if changed("weights") {
		path, _ := flags.GetString("weights")
		weights, err := config.LoadWeights(path)
		if err != nil {
			return err
		}
		if c.Pipeline.Weights == nil {
			c.Pipeline.Weights = map[string]float64{}
		}
		maps.Copy(c.Pipeline.Weights, weights)
	}
	return c.Validate()
}
