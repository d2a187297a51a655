package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func chdirTemp(t *testing.T) {
	t.Helper()
	dir := t.TempDir()
	origDir, _ := os.Getwd()
	require.NoError(t, os.Chdir(dir))
	t.Cleanup(func() { os.Chdir(origDir) })
}

func TestLoadDefaults(t *testing.T) {
	// Change to temp dir so no config.yaml is found
	chdirTemp(t)

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "OESID", cfg.Data.IDField)
	assert.Equal(t, "LOCALECOUN", cfg.Data.CountyField)
	assert.Equal(t, "DATEOFINCI", cfg.Data.DateField)
	assert.Equal(t, "NAME", cfg.Data.NameField)
	assert.Equal(t, "EPSG:3310", cfg.Projection.CRS)
	assert.InDelta(t, 5000.0, cfg.Density.Bandwidth, 0.001)
	assert.Equal(t, 128, cfg.Density.GridNX)
	assert.Equal(t, 100, cfg.G.NSim)
	assert.Equal(t, 10, cfg.L.NSim)
	assert.Equal(t, 1, cfg.G.Rank)
	assert.InDelta(t, 10000.0, cfg.G.REnd, 0.001)
	assert.InDelta(t, 80000.0, cfg.L.REnd, 0.001)
	assert.Equal(t, int64(4131), cfg.Envelope.Seed)
	assert.Equal(t, "out", cfg.Output.Dir)
	assert.Equal(t, "sqlite", cfg.Store.Driver)
	assert.Equal(t, 8080, cfg.Server.Port)
	assert.Equal(t, "info", cfg.Log.Level)
	assert.Equal(t, "json", cfg.Log.Format)
}

func TestLoadFromYAML(t *testing.T) {
	chdirTemp(t)

	yaml := `
data:
  points_path: data/spills.shp
  boundary_path: data/counties.shp
  counties: [Kern, Fresno]
density:
  bandwidth: 3000
log:
  level: debug
  format: console
server:
  port: 9090
`
	dir, _ := os.Getwd()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "config.yaml"), []byte(yaml), 0644))

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "data/spills.shp", cfg.Data.PointsPath)
	assert.Equal(t, []string{"Kern", "Fresno"}, cfg.Data.Counties)
	assert.InDelta(t, 3000.0, cfg.Density.Bandwidth, 0.001)
	assert.Equal(t, "debug", cfg.Log.Level)
	assert.Equal(t, "console", cfg.Log.Format)
	assert.Equal(t, 9090, cfg.Server.Port)
	// Defaults still apply for unset values
	assert.Equal(t, 100, cfg.G.NSim)
	assert.Equal(t, "OESID", cfg.Data.IDField)
}

func TestLoadEnvOverridesFile(t *testing.T) {
	chdirTemp(t)

	yaml := `
store:
  driver: sqlite
log:
  level: debug
`
	dir, _ := os.Getwd()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "config.yaml"), []byte(yaml), 0644))

	t.Setenv("SPATIAL_STORE_DRIVER", "postgres")
	t.Setenv("SPATIAL_LOG_LEVEL", "warn")

	cfg, err := Load()
	require.NoError(t, err)

	// Env overrides file
	assert.Equal(t, "postgres", cfg.Store.Driver)
	assert.Equal(t, "warn", cfg.Log.Level)
}

func TestLoadEnvOverridesDefaults(t *testing.T) {
	chdirTemp(t)

	t.Setenv("SPATIAL_SERVER_PORT", "3000")

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, 3000, cfg.Server.Port)
}

func TestInitLoggerConsole(t *testing.T) {
	err := InitLogger(LogConfig{Level: "debug", Format: "console"})
	require.NoError(t, err)
	assert.NotNil(t, zap.L())
}

func TestInitLoggerJSON(t *testing.T) {
	err := InitLogger(LogConfig{Level: "info", Format: "json"})
	require.NoError(t, err)
	assert.NotNil(t, zap.L())
}

func TestInitLoggerInvalidLevel(t *testing.T) {
	err := InitLogger(LogConfig{Level: "invalid", Format: "json"})
	assert.Error(t, err)
}

// validDefaults returns a Config populated like Load with no file present.
func validDefaults(t *testing.T) *Config {
	t.Helper()
	chdirTemp(t)
	cfg, err := Load()
	require.NoError(t, err)
	return cfg
}

func TestValidateAnalyze_AllPresent(t *testing.T) {
	cfg := validDefaults(t)
	cfg.Data.PointsPath = "data/spills.shp"
	cfg.Data.BoundaryPath = "data/counties.shp"

	assert.NoError(t, cfg.Validate("analyze"))
}

func TestValidateAnalyze_MissingPaths(t *testing.T) {
	cfg := validDefaults(t)

	err := cfg.Validate("analyze")
	assert.Error(t, err)
	assert.Contains(t, err.Error(), "data.points_path is required")
	assert.Contains(t, err.Error(), "data.boundary_path is required")
}

func TestValidateAnalyze_BadStatConfig(t *testing.T) {
	cfg := validDefaults(t)
	cfg.Data.PointsPath = "p.shp"
	cfg.Data.BoundaryPath = "b.shp"

	cfg.G.RStep = 0
	err := cfg.Validate("analyze")
	assert.Error(t, err)
	assert.Contains(t, err.Error(), "g.r_step must be > 0")

	cfg.G.RStep = 100
	cfg.L.Rank = 20 // rank*2 > nsim+1 for nsim=10
	err = cfg.Validate("analyze")
	assert.Error(t, err)
	assert.Contains(t, err.Error(), "l.rank")
}

func TestValidateAnalyze_Correction(t *testing.T) {
	cfg := validDefaults(t)
	cfg.Data.PointsPath = "p.shp"
	cfg.Data.BoundaryPath = "b.shp"

	assert.Equal(t, "none", cfg.G.Correction)
	cfg.G.Correction = "border"
	assert.NoError(t, cfg.Validate("analyze"))

	cfg.G.Correction = "isotropic"
	err := cfg.Validate("analyze")
	assert.Error(t, err)
	assert.Contains(t, err.Error(), "g.correction")

	cfg.G.Correction = "none"
	cfg.L.Correction = "border"
	err = cfg.Validate("analyze")
	assert.Error(t, err)
	assert.Contains(t, err.Error(), "l.correction")
}

func TestValidateAnalyze_StepWiderThanRange(t *testing.T) {
	cfg := validDefaults(t)
	cfg.Data.PointsPath = "p.shp"
	cfg.Data.BoundaryPath = "b.shp"

	// A positive step wider than [r_start, r_end] yields a single-point
	// sequence, which no distance function can be evaluated on.
	cfg.G.REnd = 500
	cfg.G.RStep = 1000
	err := cfg.Validate("analyze")
	assert.Error(t, err)
	assert.Contains(t, err.Error(), "g.r_step must not exceed")
}

func TestValidateServe(t *testing.T) {
	cfg := validDefaults(t)
	assert.NoError(t, cfg.Validate("serve"))

	cfg.Server.Port = 0
	err := cfg.Validate("serve")
	assert.Error(t, err)
	assert.Contains(t, err.Error(), "server.port must be > 0")

	cfg.Server.Port = 8080
	cfg.Store.Driver = "mysql"
	err = cfg.Validate("serve")
	assert.Error(t, err)
	assert.Contains(t, err.Error(), "store.driver")
}

func TestValidateFetch(t *testing.T) {
	cfg := validDefaults(t)
	assert.NoError(t, cfg.Validate("fetch"))

	cfg.Fetch.DataDir = ""
	assert.Error(t, cfg.Validate("fetch"))
}

func TestValidateUnknownMode(t *testing.T) {
	cfg := validDefaults(t)
	err := cfg.Validate("unknown")
	assert.Error(t, err)
	assert.Contains(t, err.Error(), "unknown mode")
}
