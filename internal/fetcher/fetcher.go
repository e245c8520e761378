// Package fetcher opens OSM map files from local paths, HTTP or FTP, and
// streams their contents as top-level elements, XML tokens or CSV rows.
package fetcher

import (
	"context"
	"io"
)

// Downloader retrieves a remote resource.
type Downloader interface {
	// Download fetches the URL and returns the response body. The caller
	// must close it.
	Download(ctx context.Context, url string) (io.ReadCloser, error)
}
