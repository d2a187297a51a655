// Package fetcher downloads spatial datasets over HTTP and FTP and unpacks
// the shapefile archives they usually arrive in.
package fetcher

import (
	"context"
	"io"
	"net/url"
	"os"
	"path"
	"path/filepath"
	"strings"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"
)

// Fetcher downloads remote data.
type Fetcher interface {
	// Download fetches the URL and returns the response body.
	Download(ctx context.Context, url string) (io.ReadCloser, error)

	// DownloadToFile fetches the URL and writes it to the given path. Returns bytes written.
	DownloadToFile(ctx context.Context, url string, path string) (int64, error)
}

// Client dispatches downloads by URL scheme and unpacks archives.
type Client struct {
	http *HTTPFetcher
	ftp  *FTPFetcher
}

// NewClient creates a Client using the given HTTP options. FTP downloads use
// the same timeout.
func NewClient(opts HTTPOptions) *Client {
	return &Client{
		http: NewHTTPFetcher(opts),
		ftp:  NewFTPFetcher(FTPOptions{Timeout: opts.Timeout}),
	}
}

func (c *Client) fetcherFor(rawURL string) (Fetcher, error) {
	u, err := url.Parse(rawURL)
	if err != nil {
		return nil, eris.Wrapf(err, "fetcher: parse url %s", rawURL)
	}
	switch u.Scheme {
	case "http", "https":
		return c.http, nil
	case "ftp":
		return c.ftp, nil
	default:
		return nil, eris.Errorf("fetcher: unsupported scheme %q", u.Scheme)
	}
}

// Fetch downloads rawURL into destDir. ZIP archives are extracted and the
// archive removed. Returns the paths of the files now on disk.
func (c *Client) Fetch(ctx context.Context, rawURL, destDir string) ([]string, error) {
	dest, err := c.download(ctx, rawURL, destDir)
	if err != nil {
		return nil, err
	}

	if strings.EqualFold(filepath.Ext(dest), ".zip") {
		extracted, err := ExtractZIP(dest, destDir)
		if err != nil {
			return nil, err
		}
		removeArchive(dest)
		return extracted, nil
	}

	return []string{dest}, nil
}

// FetchShapefile downloads a shapefile ZIP archive into destDir, extracts it,
// and returns the path of the .shp member. Its sidecars land next to it.
func (c *Client) FetchShapefile(ctx context.Context, rawURL, destDir string) (string, error) {
	dest, err := c.download(ctx, rawURL, destDir)
	if err != nil {
		return "", err
	}
	if !strings.EqualFold(filepath.Ext(dest), ".zip") {
		return "", eris.Errorf("fetcher: %s is not a shapefile archive", rawURL)
	}

	shpPath, err := ExtractShapefile(dest, destDir)
	if err != nil {
		return "", err
	}
	removeArchive(dest)
	return shpPath, nil
}

// download fetches rawURL into destDir under the URL's file name.
func (c *Client) download(ctx context.Context, rawURL, destDir string) (string, error) {
	f, err := c.fetcherFor(rawURL)
	if err != nil {
		return "", err
	}

	if err := os.MkdirAll(destDir, 0o755); err != nil {
		return "", eris.Wrap(err, "fetcher: create dest dir")
	}

	u, err := url.Parse(rawURL)
	if err != nil {
		return "", eris.Wrapf(err, "fetcher: parse url %s", rawURL)
	}
	name := path.Base(u.Path)
	if name == "." || name == "/" {
		return "", eris.Errorf("fetcher: url %s has no file name", rawURL)
	}
	dest := filepath.Join(destDir, name)

	zap.L().Info("downloading dataset",
		zap.String("url", rawURL),
		zap.String("dest", dest),
	)

	n, err := f.DownloadToFile(ctx, rawURL, dest)
	if err != nil {
		return "", err
	}
	zap.L().Info("download complete", zap.String("dest", dest), zap.Int64("bytes", n))
	return dest, nil
}

func removeArchive(dest string) {
	if err := os.Remove(dest); err != nil {
		zap.L().Warn("could not remove archive", zap.String("path", dest), zap.Error(err))
	}
}
