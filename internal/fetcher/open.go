package fetcher

import (
	"compress/bzip2"
	"compress/gzip"
	"context"
	"io"
	"net/url"
	"os"
	"path"
	"strings"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"
)

// OpenOptions configures Open.
type OpenOptions struct {
	HTTP HTTPOptions
	FTP  FTPOptions

	// Downloaders overrides the downloader used per URL scheme.
	Downloaders map[string]Downloader
}

// Open returns a reader over the map file at location, which may be a local
// path or an http, https or ftp URL. Files ending in .gz or .bz2 are
// decompressed on the fly. The caller must close the returned reader.
func Open(ctx context.Context, location string, opts OpenOptions) (io.ReadCloser, error) {
	raw, name, err := openRaw(ctx, location, opts)
	if err != nil {
		return nil, err
	}

	switch strings.ToLower(path.Ext(name)) {
	case ".gz":
		gz, err := gzip.NewReader(raw)
		if err != nil {
			_ = raw.Close()
			return nil, eris.Wrapf(err, "open: gzip header of %s", location)
		}
		return &stackedReader{Reader: gz, closers: []io.Closer{gz, raw}}, nil
	case ".bz2":
		return &stackedReader{Reader: bzip2.NewReader(raw), closers: []io.Closer{raw}}, nil
	default:
		return raw, nil
	}
}

func openRaw(ctx context.Context, location string, opts OpenOptions) (io.ReadCloser, string, error) {
	u, err := url.Parse(location)
	if err != nil || u.Scheme == "" || u.Host == "" {
		f, err := os.Open(location)
		if err != nil {
			return nil, "", eris.Wrapf(err, "open: %s", location)
		}
		return f, location, nil
	}

	d, ok := opts.Downloaders[u.Scheme]
	if !ok {
		switch u.Scheme {
		case "http", "https":
			d = NewHTTPFetcher(opts.HTTP)
		case "ftp":
			d = NewFTPFetcher(opts.FTP)
		default:
			return nil, "", eris.Errorf("open: unsupported scheme %q", u.Scheme)
		}
	}

	zap.L().Debug("open: downloading", zap.String("url", location))
	body, err := d.Download(ctx, location)
	if err != nil {
		return nil, "", eris.Wrapf(err, "open: %s", location)
	}
	return body, u.Path, nil
}

// stackedReader closes every layer of a decompressing reader, innermost first.
type stackedReader struct {
	io.Reader
	closers []io.Closer
}

func (s *stackedReader) Close() error {
	var first error
	for _, c := range s.closers {
		if err := c.Close(); err != nil && first == nil {
			first = err
		}
	}
	return first
}
