// Package config loads application configuration from an optional
// config.yaml plus SITEWORKS_-prefixed environment variables, and
// installs the global zap logger.
package config

import (
	"fmt"
	"strings"

	"github.com/rotisserie/eris"
	"github.com/spf13/viper"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Config holds the full application configuration.
type Config struct {
	Store    StoreConfig    `yaml:"store" mapstructure:"store"`
	Blob     BlobConfig     `yaml:"blob" mapstructure:"blob"`
	Geometry GeometryConfig `yaml:"geometry" mapstructure:"geometry"`
	DEM      DEMConfig      `yaml:"dem" mapstructure:"dem"`
	Log      LogConfig      `yaml:"log" mapstructure:"log"`
}

// StoreConfig configures the database backend.
type StoreConfig struct {
	Driver      string `yaml:"driver" mapstructure:"driver"` // sqlite or postgres
	DatabaseURL string `yaml:"database_url" mapstructure:"database_url"`
}

// BlobConfig configures uploaded-file storage.
type BlobConfig struct {
	Dir           string `yaml:"dir" mapstructure:"dir"`
	SigningSecret string `yaml:"signing_secret" mapstructure:"signing_secret"`
	URLPrefix     string `yaml:"url_prefix" mapstructure:"url_prefix"`
}

// GeometryConfig tunes the geometry pipeline.
type GeometryConfig struct {
	MaxBufferM            float64 `yaml:"max_buffer_m" mapstructure:"max_buffer_m"`
	ContainmentToleranceM float64 `yaml:"containment_tolerance_m" mapstructure:"containment_tolerance_m"`
	AllowOutsideTolerance bool    `yaml:"allow_outside_tolerance" mapstructure:"allow_outside_tolerance"`
	ContourClipBufferM    float64 `yaml:"contour_clip_buffer_m" mapstructure:"contour_clip_buffer_m"`
	BufferArcSteps        int     `yaml:"buffer_arc_steps" mapstructure:"buffer_arc_steps"`
}

// DEMConfig configures elevation-grid job handoff to the external
// raster worker.
type DEMConfig struct {
	DefaultResolutionM float64 `yaml:"default_resolution_m" mapstructure:"default_resolution_m"`
	DefaultMethod      string  `yaml:"default_method" mapstructure:"default_method"`
}

// LogConfig configures logging.
type LogConfig struct {
	Level  string `yaml:"level" mapstructure:"level"`
	Format string `yaml:"format" mapstructure:"format"`
}

// Load reads configuration from file and environment.
func Load() (*Config, error) {
	v := viper.New()

	// Config file
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")

	// Environment
	v.SetEnvPrefix("SITEWORKS")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// Defaults
	v.SetDefault("store.driver", "sqlite")
	v.SetDefault("store.database_url", "siteworks.db")
	v.SetDefault("blob.dir", "uploads")
	v.SetDefault("blob.url_prefix", "http://localhost:8080/files")
	v.SetDefault("geometry.max_buffer_m", 500.0)
	v.SetDefault("geometry.containment_tolerance_m", 1.0)
	v.SetDefault("geometry.allow_outside_tolerance", false)
	v.SetDefault("geometry.contour_clip_buffer_m", 100.0)
	v.SetDefault("geometry.buffer_arc_steps", 8)
	v.SetDefault("dem.default_resolution_m", 1.0)
	v.SetDefault("dem.default_method", "tin")
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

// Validate checks that the configuration is internally consistent
// before any storage or geometry work starts.
func (c *Config) Validate() error {
	var problems []string

	switch c.Store.Driver {
	case "sqlite":
	case "postgres":
		if c.Store.DatabaseURL == "" {
			problems = append(problems, "store.database_url is required for the postgres driver")
		}
	default:
		problems = append(problems, fmt.Sprintf("store.driver must be sqlite or postgres, got %q", c.Store.Driver))
	}

	if c.Blob.Dir == "" {
		problems = append(problems, "blob.dir is required")
	}

	if c.Geometry.MaxBufferM <= 0 {
		problems = append(problems, "geometry.max_buffer_m must be > 0")
	}
	if c.Geometry.ContainmentToleranceM < 0 {
		problems = append(problems, "geometry.containment_tolerance_m must be >= 0")
	}
	if c.Geometry.ContourClipBufferM < 0 {
		problems = append(problems, "geometry.contour_clip_buffer_m must be >= 0")
	}
	if c.Geometry.BufferArcSteps < 1 {
		problems = append(problems, "geometry.buffer_arc_steps must be >= 1")
	}

	if c.DEM.DefaultResolutionM <= 0 {
		problems = append(problems, "dem.default_resolution_m must be > 0")
	}
	if c.DEM.DefaultMethod == "" {
		problems = append(problems, "dem.default_method is required")
	}

	if len(problems) > 0 {
		return eris.New("config: " + strings.Join(problems, "; "))
	}
	return nil
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
