package config

import (
	"os"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/rotisserie/eris"
	"github.com/spf13/viper"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"gopkg.in/yaml.v3"
)

// Config holds the full application configuration.
type Config struct {
	Workspace WorkspaceConfig `yaml:"workspace" mapstructure:"workspace"`
	Ingest    IngestConfig    `yaml:"ingest" mapstructure:"ingest"`
	Pipeline  PipelineConfig  `yaml:"pipeline" mapstructure:"pipeline"`
	Log       LogConfig       `yaml:"log" mapstructure:"log"`
}

// WorkspaceConfig locates the workspace and its scratch area.
type WorkspaceConfig struct {
	Dir        string `yaml:"dir" mapstructure:"dir" validate:"required"`
	Name       string `yaml:"name" mapstructure:"name" validate:"required,excludesall=/\\"`
	ScratchDir string `yaml:"scratch_dir" mapstructure:"scratch_dir"` // empty = OS temp dir
}

// IngestConfig configures source file conversion.
type IngestConfig struct {
	Encoding  string `yaml:"encoding" mapstructure:"encoding"`
	LngColumn string `yaml:"lng_column" mapstructure:"lng_column" validate:"required"`
	LatColumn string `yaml:"lat_column" mapstructure:"lat_column" validate:"required"`
}

// PipelineConfig configures grid building and analysis.
type PipelineConfig struct {
	SourceDir       string             `yaml:"source_dir" mapstructure:"source_dir"`
	GridName        string             `yaml:"grid_name" mapstructure:"grid_name" validate:"required"`
	CellAreaKM2     float64            `yaml:"cell_area_km2" mapstructure:"cell_area_km2" validate:"gt=0"`
	Districts       string             `yaml:"districts" mapstructure:"districts"`
	MinRegionCells  int                `yaml:"min_region_cells" mapstructure:"min_region_cells" validate:"gte=0"`
	BoundaryOutput  string             `yaml:"boundary_output" mapstructure:"boundary_output"`
	RegionIDField   string             `yaml:"region_id_field" mapstructure:"region_id_field" validate:"required"`
	RegionNameField string             `yaml:"region_name_field" mapstructure:"region_name_field" validate:"required"`
	FDR             bool               `yaml:"fdr" mapstructure:"fdr"`
	DistanceBandM   float64            `yaml:"distance_band_m" mapstructure:"distance_band_m" validate:"gte=0"`
	Weights         map[string]float64 `yaml:"weights" mapstructure:"weights"`
}

// LogConfig configures logging.
type LogConfig struct {
	Level  string `yaml:"level" mapstructure:"level"`
	Format string `yaml:"format" mapstructure:"format" validate:"omitempty,oneof=json console"`
}

var validate = validator.New()

// Validate checks that the configuration is usable.
func (c *Config) Validate() error {
	if err := validate.Struct(c); err != nil {
		return eris.Wrap(err, "config: validate")
	}
	return nil
}

// Load reads configuration from file and environment.
func Load() (*Config, error) {
	v := viper.New()

	// Config file
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")

	// Environment
	v.SetEnvPrefix("HOTSPOT")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// Defaults
	v.SetDefault("workspace.dir", ".")
	v.SetDefault("workspace.name", "poi")
	v.SetDefault("ingest.lng_column", "lng")
	v.SetDefault("ingest.lat_column", "lat")
	v.SetDefault("pipeline.source_dir", "data")
	v.SetDefault("pipeline.grid_name", "hex_grid")
	v.SetDefault("pipeline.cell_area_km2", 0.5)
	v.SetDefault("pipeline.min_region_cells", 30)
	v.SetDefault("pipeline.boundary_output", "HSAnalysis_Boundary")
	v.SetDefault("pipeline.region_id_field", "FID")
	v.SetDefault("pipeline.region_name_field", "Name")
	v.SetDefault("pipeline.fdr", true)
	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "json")

	// Read config file (optional)
	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, eris.Wrap(err, "config: read file")
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, eris.Wrap(err, "config: unmarshal")
	}

	return &cfg, nil
}

// LoadWeights reads a YAML mapping of count field name to weight.
func LoadWeights(path string) (map[string]float64, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, eris.Wrapf(err, "config: read weights %s", path)
	}
	var weights map[string]float64
	if err := yaml.Unmarshal(data, &weights); err != nil {
		return nil, eris.Wrapf(err, "config: parse weights %s", path)
	}
	for field := range weights {
		if !strings.HasSuffix(field, "_num") {
			return nil, eris.Errorf("config: weight for %q: count fields end in _num", field)
		}
	}
	return weights, nil
}

// InitLogger initializes the global zap logger.
func InitLogger(cfg LogConfig) error {
	var zapCfg zap.Config
	if cfg.Format == "console" {
		zapCfg = zap.NewDevelopmentConfig()
	} else {
		zapCfg = zap.NewProductionConfig()
	}

	level, err := zapcore.ParseLevel(cfg.Level)
	if err != nil {
		return eris.Wrap(err, "config: parse log level")
	}
	zapCfg.Level.SetLevel(level)

	logger, err := zapCfg.Build()
	if err != nil {
		return eris.Wrap(err, "config: build logger")
	}
	zap.ReplaceGlobals(logger)

	return nil
}
