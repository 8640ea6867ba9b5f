// Package fetcher downloads business registry exports over HTTP and FTP
// and parses the CSV, XLSX, and ZIP formats councils publish them in.
package fetcher

import (
	"context"
	"io"
)

// Fetcher downloads remote registry data.
type Fetcher interface {
	// Download fetches the URL and returns the response body. The
	// caller must close it.
	Download(ctx context.Context, url string) (io.ReadCloser, error)

	// DownloadToFile fetches the URL to a local path. Returns bytes
	// written.
	DownloadToFile(ctx context.Context, url string, path string) (int64, error)
}
