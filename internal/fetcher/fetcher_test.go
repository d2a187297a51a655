package fetcher

import (
	"archive/zip"
	"context"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/time/rate"
)

func testHTTPOptions() HTTPOptions {
	return HTTPOptions{
		Timeout:    5 * time.Second,
		MaxRetries: 3,
		RateLimiters: map[string]*rate.Limiter{
			"127.0.0.1": rate.NewLimiter(rate.Inf, 1),
		},
	}
}

func TestHTTPFetcher_Download(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "spatial-cli/1.0", r.Header.Get("User-Agent"))
		_, _ = w.Write([]byte("payload"))
	}))
	defer srv.Close()

	f := NewHTTPFetcher(testHTTPOptions())
	rc, err := f.Download(context.Background(), srv.URL+"/data.bin")
	require.NoError(t, err)
	defer rc.Close()

	buf := make([]byte, 16)
	n, _ := rc.Read(buf)
	assert.Equal(t, "payload", string(buf[:n]))
}

func TestHTTPFetcher_RetriesServerErrors(t *testing.T) {
	var calls int
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls++
		if calls < 3 {
			w.WriteHeader(http.StatusInternalServerError)
			return
		}
		_, _ = w.Write([]byte("ok"))
	}))
	defer srv.Close()

	f := NewHTTPFetcher(testHTTPOptions())
	rc, err := f.Download(context.Background(), srv.URL)
	require.NoError(t, err)
	defer rc.Close()
	assert.Equal(t, 3, calls)
}

func TestHTTPFetcher_NotFound(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	defer srv.Close()

	f := NewHTTPFetcher(testHTTPOptions())
	_, err := f.Download(context.Background(), srv.URL+"/missing")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unexpected status 404")
}

func TestHTTPFetcher_DownloadToFile(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte("file contents"))
	}))
	defer srv.Close()

	path := filepath.Join(t.TempDir(), "out.bin")
	f := NewHTTPFetcher(testHTTPOptions())
	n, err := f.DownloadToFile(context.Background(), srv.URL, path)
	require.NoError(t, err)
	assert.Equal(t, int64(len("file contents")), n)

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "file contents", string(data))
}

func TestParseFTPURL(t *testing.T) {
	tests := []struct {
		name     string
		url      string
		wantHost string
		wantPath string
		wantErr  bool
	}{
		{
			name:     "default port",
			url:      "ftp://ftp.example.gov/pub/boundaries.zip",
			wantHost: "ftp.example.gov:21",
			wantPath: "/pub/boundaries.zip",
		},
		{
			name:     "explicit port",
			url:      "ftp://ftp.example.gov:2121/data.shp",
			wantHost: "ftp.example.gov:2121",
			wantPath: "/data.shp",
		},
		{
			name:    "wrong scheme",
			url:     "https://example.gov/data.zip",
			wantErr: true,
		},
		{
			name:    "empty path",
			url:     "ftp://ftp.example.gov",
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			host, path, err := parseFTPURL(tt.url)
			if tt.wantErr {
				require.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.wantHost, host)
			assert.Equal(t, tt.wantPath, path)
		})
	}
}

func writeZIP(t *testing.T, path string, files map[string]string) {
	t.Helper()
	f, err := os.Create(path)
	require.NoError(t, err)
	defer f.Close()

	w := zip.NewWriter(f)
	for name, content := range files {
		entry, err := w.Create(name)
		require.NoError(t, err)
		_, err = entry.Write([]byte(content))
		require.NoError(t, err)
	}
	require.NoError(t, w.Close())
}

func TestExtractZIP(t *testing.T) {
	dir := t.TempDir()
	archive := filepath.Join(dir, "data.zip")
	writeZIP(t, archive, map[string]string{
		"spills.shp": "shp bytes",
		"spills.dbf": "dbf bytes",
	})

	dest := filepath.Join(dir, "out")
	extracted, err := ExtractZIP(archive, dest)
	require.NoError(t, err)
	assert.Len(t, extracted, 2)

	data, err := os.ReadFile(filepath.Join(dest, "spills.shp"))
	require.NoError(t, err)
	assert.Equal(t, "shp bytes", string(data))
}

func TestExtractZIP_RejectsEscapingPaths(t *testing.T) {
	dir := t.TempDir()
	archive := filepath.Join(dir, "evil.zip")
	writeZIP(t, archive, map[string]string{
		"../escape.txt": "nope",
	})

	_, err := ExtractZIP(archive, filepath.Join(dir, "out"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "illegal path")
}

func TestExtractShapefile(t *testing.T) {
	dir := t.TempDir()
	archive := filepath.Join(dir, "ds.zip")
	writeZIP(t, archive, map[string]string{
		"county.shp": "shp",
		"county.shx": "shx",
		"county.dbf": "dbf",
	})

	shpPath, err := ExtractShapefile(archive, filepath.Join(dir, "out"))
	require.NoError(t, err)
	assert.Equal(t, "county.shp", filepath.Base(shpPath))
}

func TestExtractShapefile_NoShp(t *testing.T) {
	dir := t.TempDir()
	archive := filepath.Join(dir, "ds.zip")
	writeZIP(t, archive, map[string]string{"readme.txt": "hi"})

	_, err := ExtractShapefile(archive, filepath.Join(dir, "out"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "no .shp file")
}

func TestReadCSV(t *testing.T) {
	in := "id,lon,lat\n1,-122.4,37.7\n2, -120.0 , 36.5 \n"
	header, rows, err := ReadCSV(context.Background(), strings.NewReader(in), CSVOptions{TrimSpace: true})
	require.NoError(t, err)
	assert.Equal(t, []string{"id", "lon", "lat"}, header)
	require.Len(t, rows, 2)
	assert.Equal(t, []string{"2", "-120.0", "36.5"}, rows[1])
}

func TestReadCSV_Empty(t *testing.T) {
	_, _, err := ReadCSV(context.Background(), strings.NewReader(""), CSVOptions{})
	require.Error(t, err)
}

func TestClient_FetchHTTP(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte("points"))
	}))
	defer srv.Close()

	c := NewClient(testHTTPOptions())
	dest := t.TempDir()
	paths, err := c.Fetch(context.Background(), srv.URL+"/spills.csv", dest)
	require.NoError(t, err)
	require.Len(t, paths, 1)
	assert.Equal(t, filepath.Join(dest, "spills.csv"), paths[0])
}

func TestClient_FetchExtractsZIP(t *testing.T) {
	dir := t.TempDir()
	archive := filepath.Join(dir, "src.zip")
	writeZIP(t, archive, map[string]string{
		"county.shp": "shp",
		"county.dbf": "dbf",
	})
	payload, err := os.ReadFile(archive)
	require.NoError(t, err)

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write(payload)
	}))
	defer srv.Close()

	c := NewClient(testHTTPOptions())
	dest := filepath.Join(dir, "out")
	paths, err := c.Fetch(context.Background(), srv.URL+"/county.zip", dest)
	require.NoError(t, err)
	assert.Len(t, paths, 2)

	// The archive itself is removed after extraction.
	_, statErr := os.Stat(filepath.Join(dest, "county.zip"))
	assert.True(t, os.IsNotExist(statErr))
}

func TestClient_FetchShapefile(t *testing.T) {
	dir := t.TempDir()
	archive := filepath.Join(dir, "src.zip")
	writeZIP(t, archive, map[string]string{
		"county.shp": "shp",
		"county.dbf": "dbf",
		"county.prj": "prj",
	})
	payload, err := os.ReadFile(archive)
	require.NoError(t, err)

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write(payload)
	}))
	defer srv.Close()

	c := NewClient(testHTTPOptions())
	dest := filepath.Join(dir, "out")
	shpPath, err := c.FetchShapefile(context.Background(), srv.URL+"/county.zip", dest)
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(dest, "county.shp"), shpPath)

	// Sidecars sit next to the .shp, the archive is gone.
	_, err = os.Stat(filepath.Join(dest, "county.dbf"))
	require.NoError(t, err)
	_, statErr := os.Stat(filepath.Join(dest, "county.zip"))
	assert.True(t, os.IsNotExist(statErr))
}

func TestClient_FetchShapefile_NotAnArchive(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte("points"))
	}))
	defer srv.Close()

	c := NewClient(testHTTPOptions())
	_, err := c.FetchShapefile(context.Background(), srv.URL+"/spills.csv", t.TempDir())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "not a shapefile archive")
}

func TestClient_UnsupportedScheme(t *testing.T) {
	c := NewClient(testHTTPOptions())
	_, err := c.Fetch(context.Background(), "gopher://example.gov/data", t.TempDir())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unsupported scheme")
}
