package storage

import (
	"fmt"

	"github.com/klauspost/compress/zstd"
)

const zstdExt = ".zst"

func compress(content []byte) ([]byte, error) {
	zw, err := zstd.NewWriter(nil, zstd.WithEncoderLevel(zstd.SpeedDefault))
	if err != nil {
		return nil, fmt.Errorf("create zstd writer: %w", err)
	}
	defer zw.Close()
	return zw.EncodeAll(content, make([]byte, 0, len(content)/2)), nil
}

// Decompress reverses the encoding applied when Compress is set.
func Decompress(data []byte) ([]byte, error) {
	zr, err := zstd.NewReader(nil)
	if err != nil {
		return nil, fmt.Errorf("create zstd reader: %w", err)
	}
	defer zr.Close()

	out, err := zr.DecodeAll(data, nil)
	if err != nil {
		return nil, fmt.Errorf("decode zstd: %w", err)
	}
	return out, nil
}
