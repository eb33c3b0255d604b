package storage

import (
	"context"
	"fmt"
	"net/url"
	"os"
	"path"
	"path/filepath"
	"strings"
)

// Sink persists fetched content under a logical remote path.
type Sink interface {
	// Store writes content and returns where it ended up.
	Store(ctx context.Context, content []byte, remotePath string) (string, error)
}

// Options configures the sink chosen by Open.
type Options struct {
	Compress bool
	S3       S3Config
	Azure    AzureConfig
}

// Open returns the sink for dest: s3://bucket/prefix, azblob://container/prefix,
// file:///dir or a local directory. Anything not written as one of those
// URLs is a local directory, colons included.
func Open(ctx context.Context, dest string, opts Options) (Sink, error) {
	if dest == "" {
		return nil, fmt.Errorf("empty destination")
	}
	scheme, _, ok := strings.Cut(dest, "://")
	if !ok {
		return &LocalSink{Root: dest, Compress: opts.Compress}, nil
	}
	switch strings.ToLower(scheme) {
	case "s3", "azblob", "file":
	default:
		return &LocalSink{Root: dest, Compress: opts.Compress}, nil
	}

	u, err := url.Parse(dest)
	if err != nil {
		return nil, fmt.Errorf("invalid destination %q: %w", dest, err)
	}
	prefix := strings.Trim(u.Path, "/")
	switch u.Scheme {
	case "s3":
		cfg := opts.S3
		cfg.Bucket = u.Host
		return NewS3Sink(cfg, prefix, opts.Compress)
	case "azblob":
		return NewAzureSink(opts.Azure, u.Host, prefix, opts.Compress)
	default:
		return &LocalSink{Root: u.Path, Compress: opts.Compress}, nil
	}
}

// StripPath removes leading path separators so an absolute remote path
// lands inside the destination root.
func StripPath(remotePath string) string {
	return strings.TrimLeft(remotePath, "/"+string(os.PathSeparator))
}

// objectKey joins prefix and the stripped remote path with forward slashes.
func objectKey(prefix, remotePath string, compress bool) string {
	key := filepath.ToSlash(StripPath(remotePath))
	if prefix != "" {
		key = path.Join(prefix, key)
	}
	if compress {
		key += zstdExt
	}
	return key
}
