// Package config loads application configuration from config.yaml and the
// environment, and owns global logger setup.
package config

import (
	"strings"

	"github.com/rotisserie/eris"
	"github.com/spf13/viper"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Config holds the full application configuration.
type Config struct {
	Data       DataConfig     `yaml:"data" mapstructure:"data"`
	Projection ProjConfig     `yaml:"projection" mapstructure:"projection"`
	Density    DensityConfig  `yaml:"density" mapstructure:"density"`
	G          StatConfig     `yaml:"g" mapstructure:"g"`
	L          StatConfig     `yaml:"l" mapstructure:"l"`
	Envelope   EnvelopeConfig `yaml:"envelope" mapstructure:"envelope"`
	Output     OutputConfig   `yaml:"output" mapstructure:"output"`
	Store      StoreConfig    `yaml:"store" mapstructure:"store"`
	Server     ServerConfig   `yaml:"server" mapstructure:"server"`
	Fetch      FetchConfig    `yaml:"fetch" mapstructure:"fetch"`
	Log        LogConfig      `yaml:"log" mapstructure:"log"`
}

// DataConfig names the input files and their attribute fields.
type DataConfig struct {
	PointsPath   string   `yaml:"points_path" mapstructure:"points_path"`
	BoundaryPath string   `yaml:"boundary_path" mapstructure:"boundary_path"`
	Counties     []string `yaml:"counties" mapstructure:"counties"`
	IDField      string   `yaml:"id_field" mapstructure:"id_field"`
	CountyField  string   `yaml:"county_field" mapstructure:"county_field"`
	DateField    string   `yaml:"date_field" mapstructure:"date_field"`
	NameField    string   `yaml:"name_field" mapstructure:"name_field"`
}

// ProjConfig selects the planar CRS analysis runs in.
type ProjConfig struct {
	CRS string `yaml:"crs" mapstructure:"crs"`
}

// DensityConfig configures the kernel density surface.
type DensityConfig struct {
	Bandwidth float64 `yaml:"bandwidth" mapstructure:"bandwidth"`
	GridNX    int     `yaml:"grid_nx" mapstructure:"grid_nx"`
	GridNY    int     `yaml:"grid_ny" mapstructure:"grid_ny"`
}

// StatConfig configures a distance-function envelope (G or L).
type StatConfig struct {
	RStart     float64 `yaml:"r_start" mapstructure:"r_start"`
	REnd       float64 `yaml:"r_end" mapstructure:"r_end"`
	RStep      float64 `yaml:"r_step" mapstructure:"r_step"`
	NSim       int     `yaml:"nsim" mapstructure:"nsim"`
	Rank       int     `yaml:"rank" mapstructure:"rank"`
	Correction string  `yaml:"correction" mapstructure:"correction"`
}

// EnvelopeConfig configures simulation execution.
type EnvelopeConfig struct {
	Seed    int64 `yaml:"seed" mapstructure:"seed"`
	Workers int   `yaml:"workers" mapstructure:"workers"`
}

// OutputConfig configures where run artifacts land.
type OutputConfig struct {
	Dir string `yaml:"dir" mapstructure:"dir"`
}

// StoreConfig configures the database backend.
type StoreConfig struct {
	Driver      string `yaml:"driver" mapstructure:"driver"`
	DatabaseURL string `yaml:"database_url" mapstructure:"database_url"`
}

// ServerConfig configures the HTTP results server.
type ServerConfig struct {
	Port int `yaml:"port" mapstructure:"port"`
}

// FetchConfig configures dataset downloads.
type FetchConfig struct {
	DataDir     string `yaml:"data_dir" mapstructure:"data_dir"`
	UserAgent   string `yaml:"user_agent" mapstructure:"user_agent"`
	TimeoutSecs int    `yaml:"timeout_secs" mapstructure:"timeout_secs"`
	MaxRetries  int    `yaml:"max_retries" mapstructure:"max_retries"`
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
	v.SetEnvPrefix("SPATIAL")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// Defaults
	v.SetDefault("data.id_field", "OESID")
	v.SetDefault("data.county_field", "LOCALECOUN")
	v.SetDefault("data.date_field", "DATEOFINCI")
	v.SetDefault("data.name_field", "NAME")
	v.SetDefault("projection.crs", "EPSG:3310")
	v.SetDefault("density.bandwidth", 5000.0)
	v.SetDefault("density.grid_nx", 128)
	v.SetDefault("density.grid_ny", 128)
	v.SetDefault("g.r_start", 0.0)
	v.SetDefault("g.r_end", 10000.0)
	v.SetDefault("g.r_step", 100.0)
	v.SetDefault("g.nsim", 100)
	v.SetDefault("g.rank", 1)
	v.SetDefault("g.correction", "none")
	v.SetDefault("l.r_start", 0.0)
	v.SetDefault("l.r_end", 80000.0)
	v.SetDefault("l.r_step", 1000.0)
	v.SetDefault("l.nsim", 10)
	v.SetDefault("l.rank", 1)
	v.SetDefault("l.correction", "none")
	v.SetDefault("envelope.seed", 4131)
	v.SetDefault("envelope.workers", 0)
	v.SetDefault("output.dir", "out")
	v.SetDefault("store.driver", "sqlite")
	v.SetDefault("store.database_url", "spatial.db")
	v.SetDefault("server.port", 8080)
	v.SetDefault("fetch.data_dir", "data")
	v.SetDefault("fetch.timeout_secs", 60)
	v.SetDefault("fetch.max_retries", 3)
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

// Validate checks that the configuration is usable for the given mode.
// Modes: "analyze" (full pipeline), "serve" (HTTP server), "fetch" (downloads).
func (c *Config) Validate(mode string) error {
	var problems []string

	statOK := func(name string, s StatConfig) {
		if s.RStep <= 0 {
			problems = append(problems, name+".r_step must be > 0")
		}
		if s.REnd <= s.RStart {
			problems = append(problems, name+".r_end must be > "+name+".r_start")
		} else if s.RStep > 0 && s.RStep > s.REnd-s.RStart {
			problems = append(problems, name+".r_step must not exceed "+name+".r_end - "+name+".r_start")
		}
		if s.NSim < 1 {
			problems = append(problems, name+".nsim must be >= 1")
		}
		if s.Rank < 1 || s.Rank*2 > s.NSim+1 {
			problems = append(problems, name+".rank must satisfy 1 <= rank <= (nsim+1)/2")
		}
	}

	switch mode {
	case "analyze":
		if c.Data.PointsPath == "" {
			problems = append(problems, "data.points_path is required")
		}
		if c.Data.BoundaryPath == "" {
			problems = append(problems, "data.boundary_path is required")
		}
		if c.Density.Bandwidth <= 0 {
			problems = append(problems, "density.bandwidth must be > 0")
		}
		if c.Density.GridNX < 2 || c.Density.GridNY < 2 {
			problems = append(problems, "density grid must be at least 2x2")
		}
		statOK("g", c.G)
		statOK("l", c.L)
		if c.G.Correction != "none" && c.G.Correction != "border" {
			problems = append(problems, "g.correction must be none or border")
		}
		if c.L.Correction != "none" {
			problems = append(problems, "l.correction must be none")
		}
	case "serve":
		if c.Server.Port <= 0 {
			problems = append(problems, "server.port must be > 0")
		}
		if c.Store.Driver != "sqlite" && c.Store.Driver != "postgres" {
			problems = append(problems, "store.driver must be sqlite or postgres")
		}
	case "fetch":
		if c.Fetch.DataDir == "" {
			problems = append(problems, "fetch.data_dir is required")
		}
	default:
		return eris.Errorf("config: unknown mode %q", mode)
	}

	if len(problems) > 0 {
		return eris.Errorf("config: invalid configuration: %s", strings.Join(problems, "; "))
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
