package main

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sells-group/spatial-cli/internal/envelope"
	"github.com/sells-group/spatial-cli/internal/model"
	"github.com/sells-group/spatial-cli/internal/store"
)

func testServer(t *testing.T) (*httptest.Server, store.Store, string) {
	t.Helper()
	dir := t.TempDir()

	st, err := store.NewSQLite(filepath.Join(dir, "serve.db"))
	require.NoError(t, err)
	t.Cleanup(func() { st.Close() })
	require.NoError(t, st.Migrate(context.Background()))

	artifactDir := filepath.Join(dir, "out")
	require.NoError(t, os.MkdirAll(artifactDir, 0o755))

	srv := httptest.NewServer(newRouter(st, artifactDir))
	t.Cleanup(srv.Close)
	return srv, st, artifactDir
}

func getJSON(t *testing.T, url string, out any) int {
	t.Helper()
	resp, err := http.Get(url)
	require.NoError(t, err)
	defer resp.Body.Close()
	if out != nil {
		require.NoError(t, json.NewDecoder(resp.Body).Decode(out))
	}
	return resp.StatusCode
}

func TestServeHealth(t *testing.T) {
	srv, _, _ := testServer(t)

	var body map[string]string
	code := getJSON(t, srv.URL+"/health", &body)
	assert.Equal(t, http.StatusOK, code)
	assert.Equal(t, "ok", body["status"])
}

func TestServeRuns(t *testing.T) {
	srv, st, _ := testServer(t)
	ctx := context.Background()

	run, err := st.CreateRun(ctx, "spills", &model.AnalysisParams{CRS: "EPSG:3310"})
	require.NoError(t, err)
	require.NoError(t, st.CompleteRun(ctx, run.ID, &model.RunSummary{N: 42}))

	var runs []model.Run
	code := getJSON(t, srv.URL+"/runs", &runs)
	assert.Equal(t, http.StatusOK, code)
	require.Len(t, runs, 1)
	assert.Equal(t, "spills", runs[0].Dataset)
	assert.Equal(t, model.RunCompleted, runs[0].Status)

	var got model.Run
	code = getJSON(t, srv.URL+"/runs/"+run.ID, &got)
	assert.Equal(t, http.StatusOK, code)
	require.NotNil(t, got.Summary)
	assert.Equal(t, 42, got.Summary.N)
}

func TestServeRunNotFound(t *testing.T) {
	srv, _, _ := testServer(t)

	code := getJSON(t, srv.URL+"/runs/does-not-exist", nil)
	assert.Equal(t, http.StatusNotFound, code)
}

func TestServeEnvelope(t *testing.T) {
	srv, st, _ := testServer(t)
	ctx := context.Background()

	run, err := st.CreateRun(ctx, "spills", &model.AnalysisParams{})
	require.NoError(t, err)
	require.NoError(t, st.SaveEnvelope(ctx, run.ID, &envelope.Envelope{
		Name: "G",
		R:    []float64{0, 100},
		Obs:  []float64{0, 0.5},
		Theo: []float64{0, 0.4},
		Lo:   []float64{0, 0.3},
		Hi:   []float64{0, 0.6},
		NSim: 100,
		Rank: 1,
	}))

	var env envelope.Envelope
	code := getJSON(t, srv.URL+"/runs/"+run.ID+"/envelopes/G", &env)
	assert.Equal(t, http.StatusOK, code)
	assert.Equal(t, "G", env.Name)
	assert.Equal(t, []float64{0, 0.5}, env.Obs)

	code = getJSON(t, srv.URL+"/runs/"+run.ID+"/envelopes/K", nil)
	assert.Equal(t, http.StatusNotFound, code)
}

func TestServeArtifacts(t *testing.T) {
	srv, _, artifactDir := testServer(t)
	require.NoError(t, os.WriteFile(filepath.Join(artifactDir, "map.html"), []byte("<html></html>"), 0o644))

	resp, err := http.Get(srv.URL + "/artifacts/map.html")
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)
}

func TestServeCORSHeaders(t *testing.T) {
	srv, _, _ := testServer(t)

	req, err := http.NewRequest(http.MethodGet, srv.URL+"/health", nil)
	require.NoError(t, err)
	req.Header.Set("Origin", "http://localhost:3000")

	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, "*", resp.Header.Get("Access-Control-Allow-Origin"))
}
