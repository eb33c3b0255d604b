package storage

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
)

// LocalSink writes files below Root, mirroring the remote directory layout.
type LocalSink struct {
	Root     string
	Compress bool
}

// Destination returns the local path remotePath is stored at.
func (s *LocalSink) Destination(remotePath string) string {
	dst := filepath.Join(s.Root, StripPath(remotePath))
	if s.Compress {
		dst += zstdExt
	}
	return dst
}

func (s *LocalSink) Store(ctx context.Context, content []byte, remotePath string) (string, error) {
	dst := s.Destination(remotePath)
	if err := os.MkdirAll(filepath.Dir(dst), 0755); err != nil {
		return "", fmt.Errorf("failed to create directory for %s: %w", dst, err)
	}

	if s.Compress {
		var err error
		if content, err = compress(content); err != nil {
			return "", err
		}
	}

	f, err := os.Create(dst)
	if err != nil {
		return "", fmt.Errorf("failed to create %s: %w", dst, err)
	}
	defer f.Close()

	if _, err := f.Write(content); err != nil {
		return "", fmt.Errorf("failed to write %s: %w", dst, err)
	}
	if err := f.Close(); err != nil {
		return "", fmt.Errorf("failed to close %s: %w", dst, err)
	}
	return dst, nil
}
