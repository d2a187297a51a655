package main

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/rotisserie/eris"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sells-group/spatial-cli/internal/envelope"
	"github.com/sells-group/spatial-cli/internal/model"
	"github.com/sells-group/spatial-cli/internal/store"
)

func TestComputeAllAndWriteArtifacts(t *testing.T) {
	cfg = testConfig(t)
	writeFixtures(t, cfg)

	// Keep the simulation load small for the test.
	cfg.Density.GridNX = 16
	cfg.Density.GridNY = 16
	cfg.G.NSim = 5
	cfg.G.REnd = 50000
	cfg.G.RStep = 5000
	cfg.L.NSim = 5
	cfg.L.REnd = 50000
	cfg.L.RStep = 5000

	p, obs, outline, err := loadPattern()
	require.NoError(t, err)

	surface, gEnv, lEnv, rs, err := computeAll(context.Background(), p)
	require.NoError(t, err)

	assert.Equal(t, 16, surface.NX)
	assert.Equal(t, "G", gEnv.Name)
	assert.Equal(t, "L", lEnv.Name)
	assert.Equal(t, 3, rs.N)
	assert.Greater(t, rs.WindowArea, 0.0)
	assert.Greater(t, rs.MeanNN, 0.0)

	require.NoError(t, writeArtifacts(surface, gEnv, lEnv, rs, obs, outline))
	for _, name := range []string{"density.png", "density.html", "gfunc.png", "lfunc.png", "map.html", "report.xlsx"} {
		info, err := os.Stat(filepath.Join(cfg.Output.Dir, name))
		require.NoError(t, err, name)
		assert.Greater(t, info.Size(), int64(0), name)
	}
}

// saveFailStore fails every SaveEnvelope call, simulating a storage fault
// after the run row exists.
type saveFailStore struct {
	store.Store
}

func (s *saveFailStore) SaveEnvelope(context.Context, string, *envelope.Envelope) error {
	return eris.New("disk full")
}

func TestRunAnalysis_FailureMarksRunFailed(t *testing.T) {
	cfg = testConfig(t)
	writeFixtures(t, cfg)
	cfg.Density.GridNX = 16
	cfg.Density.GridNY = 16
	cfg.G.NSim = 5
	cfg.G.REnd = 50000
	cfg.G.RStep = 5000
	cfg.L.NSim = 5
	cfg.L.REnd = 50000
	cfg.L.RStep = 5000

	ctx := context.Background()
	st, err := initStore(ctx)
	require.NoError(t, err)
	defer st.Close()
	require.NoError(t, st.Migrate(ctx))

	p, obs, outline, err := loadPattern()
	require.NoError(t, err)

	_, _, _, _, err = runAnalysis(ctx, &saveFailStore{Store: st}, p, obs, outline)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "disk full")

	// The run must not linger in the running state.
	runs, err := st.ListRuns(ctx, store.RunFilter{})
	require.NoError(t, err)
	require.Len(t, runs, 1)
	assert.Equal(t, model.RunFailed, runs[0].Status)
	assert.Contains(t, runs[0].Error, "disk full")
}
