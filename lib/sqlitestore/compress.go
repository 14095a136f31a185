// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package sqlitestore

import (
	"fmt"

	"github.com/klauspost/compress/zstd"
	"github.com/pierrec/lz4/v4"
)

// compressionTag identifies the algorithm a record blob is compressed
// with. Stored per row; changing the values breaks existing
// databases.
type compressionTag uint8

const (
	compressionNone compressionTag = 0
	compressionLZ4  compressionTag = 1
	compressionZstd compressionTag = 2
)

// zstdEncoder and zstdDecoder are reused across calls; both are safe
// for concurrent use.
var (
	zstdEncoder *zstd.Encoder
	zstdDecoder *zstd.Decoder
)

func init() {
	var err error
	zstdEncoder, err = zstd.NewWriter(nil,
		zstd.WithEncoderLevel(zstd.SpeedDefault),
	)
	if err != nil {
		panic("sqlitestore: zstd encoder initialization failed: " + err.Error())
	}

	zstdDecoder, err = zstd.NewReader(nil)
	if err != nil {
		panic("sqlitestore: zstd decoder initialization failed: " + err.Error())
	}
}

// compressBlob compresses a record blob with the best-fitting
// algorithm: zstd when the ratio is worthwhile, lz4 for mildly
// compressible data, or none. CBOR field maps are small and often
// text-heavy, so zstd wins for anything beyond trivial records.
func compressBlob(data []byte) ([]byte, compressionTag) {
	if len(data) == 0 {
		return data, compressionNone
	}

	compressed := zstdEncoder.EncodeAll(data, nil)
	ratio := float64(len(data)) / float64(len(compressed))
	switch {
	case ratio >= 1.5:
		return compressed, compressionZstd
	case ratio >= 1.1:
		if lz4Compressed, ok := compressLZ4(data); ok {
			return lz4Compressed, compressionLZ4
		}
		return compressed, compressionZstd
	default:
		return data, compressionNone
	}
}

// decompressBlob reverses compressBlob. uncompressedSize must match
// the original blob length exactly.
func decompressBlob(compressed []byte, tag compressionTag, uncompressedSize int) ([]byte, error) {
	switch tag {
	case compressionNone:
		if len(compressed) != uncompressedSize {
			return nil, fmt.Errorf("uncompressed blob: size %d does not match expected %d",
				len(compressed), uncompressedSize)
		}
		return compressed, nil

	case compressionLZ4:
		destination := make([]byte, uncompressedSize)
		read, err := lz4.UncompressBlock(compressed, destination)
		if err != nil {
			return nil, fmt.Errorf("lz4 decompress: %w", err)
		}
		if read != uncompressedSize {
			return nil, fmt.Errorf("lz4 decompress: got %d bytes, expected %d", read, uncompressedSize)
		}
		return destination, nil

	case compressionZstd:
		result, err := zstdDecoder.DecodeAll(compressed, make([]byte, 0, uncompressedSize))
		if err != nil {
			return nil, fmt.Errorf("zstd decompress: %w", err)
		}
		if len(result) != uncompressedSize {
			return nil, fmt.Errorf("zstd decompress: got %d bytes, expected %d", len(result), uncompressedSize)
		}
		return result, nil

	default:
		return nil, fmt.Errorf("unsupported compression tag: %d", tag)
	}
}

// compressLZ4 block-compresses data, reporting false when lz4
// determines the data is incompressible or the output is not smaller.
func compressLZ4(data []byte) ([]byte, bool) {
	bound := lz4.CompressBlockBound(len(data))
	destination := make([]byte, bound)
	written, err := lz4.CompressBlock(data, destination, nil)
	if err != nil || written == 0 || written >= len(data) {
		return nil, false
	}
	return destination[:written], true
}
