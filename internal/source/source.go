// Package source acquires RMF buffers from storage.
package source

import (
	"bytes"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/klauspost/compress/zstd"
)

// MaxDecodedSize bounds the output of a compressed source.
const MaxDecodedSize = 256 << 20

var (
	ErrEmptyPath = errors.New("source: empty path")
	ErrTooLarge  = errors.New("source: decoded data too large")
)

var zstdMagic = []byte{0x28, 0xb5, 0x2f, 0xfd}

// Source is an immutable buffer plus the label used to prefix its trace.
type Source struct {
	Label      string
	Data       []byte
	Compressed bool
}

func FromBytes(label string, data []byte) Source {
	return Source{Label: label, Data: data}
}

// ReadFile loads path. zstd frames are decompressed and the ".zst" suffix is
// dropped from the label.
func ReadFile(path string) (Source, error) {
	if strings.TrimSpace(path) == "" {
		return Source{}, ErrEmptyPath
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return Source{}, fmt.Errorf("source read failed (%s): %w", path, err)
	}
	label := filepath.Base(path)
	if !IsZstd(data) {
		return Source{Label: label, Data: data}, nil
	}
	out, err := Decompress(data)
	if err != nil {
		return Source{}, fmt.Errorf("source decompress failed (%s): %w", path, err)
	}
	return Source{Label: strings.TrimSuffix(label, ".zst"), Data: out, Compressed: true}, nil
}

func IsZstd(data []byte) bool {
	return bytes.HasPrefix(data, zstdMagic)
}

// Decompress inflates a zstd stream, refusing output beyond MaxDecodedSize.
func Decompress(data []byte) ([]byte, error) {
	dec, err := zstd.NewReader(nil, zstd.WithDecoderMaxMemory(MaxDecodedSize))
	if err != nil {
		return nil, err
	}
	defer dec.Close()
	out, err := dec.DecodeAll(data, nil)
	if err != nil {
		if errors.Is(err, zstd.ErrDecoderSizeExceeded) || errors.Is(err, zstd.ErrWindowSizeExceeded) {
			return nil, fmt.Errorf("%w: %v", ErrTooLarge, err)
		}
		return nil, err
	}
	if out == nil {
		out = []byte{}
	}
	return out, nil
}

// Compress encodes data as a single zstd frame.
func Compress(data []byte) ([]byte, error) {
	enc, err := zstd.NewWriter(nil)
	if err != nil {
		return nil, err
	}
	defer enc.Close()
	return enc.EncodeAll(data, nil), nil
}
