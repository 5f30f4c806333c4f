package config

import (
	"path/filepath"
	"strings"

	"github.com/rotisserie/eris"
	"github.com/spf13/viper"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Config holds the full application configuration.
type Config struct {
	Data     DataConfig     `yaml:"data" mapstructure:"data"`
	Pipeline PipelineConfig `yaml:"pipeline" mapstructure:"pipeline"`
	Geodesic GeodesicConfig `yaml:"geodesic" mapstructure:"geodesic"`
	Store    StoreConfig    `yaml:"store" mapstructure:"store"`
	Log      LogConfig      `yaml:"log" mapstructure:"log"`
}

// DataConfig locates the inputs and outputs of one city run. Empty file
// paths resolve under DataDir/data_<city>.
type DataConfig struct {
	DataDir          string `yaml:"data_dir" mapstructure:"data_dir"`
	City             string `yaml:"city" mapstructure:"city"`
	RegionFile       string `yaml:"region_file" mapstructure:"region_file"`
	RegionCRS        string `yaml:"region_crs" mapstructure:"region_crs"`
	FootprintFile    string `yaml:"footprint_file" mapstructure:"footprint_file"`
	HeightTileDir    string `yaml:"height_tile_dir" mapstructure:"height_tile_dir"`
	HeightTilePrefix string `yaml:"height_tile_prefix" mapstructure:"height_tile_prefix"`
	PopulationFile   string `yaml:"population_file" mapstructure:"population_file"`
	OutputDir        string `yaml:"output_dir" mapstructure:"output_dir"`
}

// CityDir is the per-city working directory.
func (d DataConfig) CityDir() string {
	return filepath.Join(d.DataDir, "data_"+d.City)
}

// RegionPath returns the region boundary file.
func (d DataConfig) RegionPath() string {
	return d.orCity(d.RegionFile, "region.geojson")
}

// FootprintPath returns the building footprint file.
func (d DataConfig) FootprintPath() string {
	return d.orCity(d.FootprintFile, "buildings.geojson")
}

// OutputPath returns the directory outputs are written to.
func (d DataConfig) OutputPath() string {
	if d.OutputDir != "" {
		return d.OutputDir
	}
	return d.CityDir()
}

func (d DataConfig) orCity(path, name string) string {
	if path != "" {
		return path
	}
	return filepath.Join(d.CityDir(), name)
}

// PipelineConfig tunes the extraction run.
type PipelineConfig struct {
	AssignmentPolicy string  `yaml:"assignment_policy" mapstructure:"assignment_policy"`
	MinHeight        float64 `yaml:"min_height" mapstructure:"min_height"`
	TileStep         int     `yaml:"tile_step" mapstructure:"tile_step"`
	TileMargin       float64 `yaml:"tile_margin" mapstructure:"tile_margin"`
	BuildingIndex    bool    `yaml:"building_index" mapstructure:"building_index"`
	Visual           bool    `yaml:"visual" mapstructure:"visual"`
}

// GeodesicConfig selects the ellipsoid used for metric measures.
type GeodesicConfig struct {
	Ellipsoid string `yaml:"ellipsoid" mapstructure:"ellipsoid"`
}

// StoreConfig configures the result store.
type StoreConfig struct {
	Driver      string `yaml:"driver" mapstructure:"driver"`
	DatabaseURL string `yaml:"database_url" mapstructure:"database_url"`
	MaxConns    int32  `yaml:"max_conns" mapstructure:"max_conns"`
	MinConns    int32  `yaml:"min_conns" mapstructure:"min_conns"`
}

// LogConfig configures logging.
type LogConfig struct {
	Level  string `yaml:"level" mapstructure:"level"`
	Format string `yaml:"format" mapstructure:"format"`
}

// Load reads configuration from file and environment. An empty path searches
// the working directory for an optional config.yaml; an explicit path must exist.
func Load(path string) (*Config, error) {
	v := viper.New()

	// Config file
	if path != "" {
		v.SetConfigFile(path)
	} else {
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
	}

	// Environment
	v.SetEnvPrefix("MORPH")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// Defaults
	v.SetDefault("data.data_dir", "./data")
	v.SetDefault("data.city", "bj")
	v.SetDefault("data.region_file", "")
	v.SetDefault("data.region_crs", "EPSG:4326")
	v.SetDefault("data.footprint_file", "")
	v.SetDefault("data.height_tile_dir", "./data/data_CNBH")
	v.SetDefault("data.height_tile_prefix", "CNBH10m")
	v.SetDefault("data.population_file", "./data/data_worldpop/chn_ppp_2020_UNadj.tif")
	v.SetDefault("data.output_dir", "")
	v.SetDefault("pipeline.assignment_policy", "first")
	v.SetDefault("pipeline.min_height", 0.0)
	v.SetDefault("pipeline.tile_step", 2)
	v.SetDefault("pipeline.tile_margin", 0.5)
	v.SetDefault("pipeline.building_index", true)
	v.SetDefault("pipeline.visual", true)
	v.SetDefault("geodesic.ellipsoid", "WGS84")
	v.SetDefault("store.driver", "none")
	v.SetDefault("store.database_url", "")
	v.SetDefault("store.max_conns", 4)
	v.SetDefault("store.min_conns", 1)
	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "json")

	// Read config file (optional unless named)
	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok || path != "" {
			return nil, eris.Wrap(err, "config: read file")
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, eris.Wrap(err, "config: unmarshal")
	}

	return &cfg, nil
}

// Validate checks the settings a command depends on. Mode is one of "run",
// "index" or "tiles".
func (c *Config) Validate(mode string) error {
	var errs []string

	switch mode {
	case "run":
		if c.Data.City == "" {
			errs = append(errs, "data.city is required")
		}
		errs = append(errs, c.validateTiles()...)
		switch c.Pipeline.AssignmentPolicy {
		case "", "first", "discard":
		default:
			errs = append(errs, "pipeline.assignment_policy must be first or discard")
		}
		if c.Pipeline.MinHeight < 0 {
			errs = append(errs, "pipeline.min_height must be >= 0")
		}
		errs = append(errs, c.validateStore()...)
	case "tiles":
		errs = append(errs, c.validateTiles()...)
	case "index":
	default:
		return eris.Errorf("config: unknown mode %q", mode)
	}

	if len(errs) > 0 {
		return eris.Errorf("config: %s", strings.Join(errs, "; "))
	}
	return nil
}

func (c *Config) validateTiles() []string {
	var errs []string
	if c.Pipeline.TileStep <= 0 {
		errs = append(errs, "pipeline.tile_step must be > 0")
	}
	if c.Pipeline.TileMargin < 0 {
		errs = append(errs, "pipeline.tile_margin must be >= 0")
	}
	if c.Data.HeightTilePrefix == "" {
		errs = append(errs, "data.height_tile_prefix is required")
	}
	return errs
}

func (c *Config) validateStore() []string {
	switch c.Store.Driver {
	case "", "none":
		return nil
	case "sqlite", "postgres":
		if c.Store.DatabaseURL == "" {
			return []string{"store.database_url is required for driver " + c.Store.Driver}
		}
		return nil
	default:
		return []string{"store.driver must be none, sqlite or postgres"}
	}
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
