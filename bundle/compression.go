package bundle

import (
	"errors"
	"fmt"

	"github.com/pierrec/lz4/v4"
)

// ErrUnsupportedCompression is returned for block compression schemes this
// package cannot decode.
var ErrUnsupportedCompression = errors.New("bundle: unsupported compression")

// Compression identifies the scheme of a block or of the block info.
// The values are stored in the low six bits of the archive and block flags.
type Compression uint32

// Compression schemes.
const (
	CompressionNone  Compression = 0
	CompressionLZMA  Compression = 1
	CompressionLZ4   Compression = 2
	CompressionLZ4HC Compression = 3
)

const compressionMask = 0x3f

func (c Compression) String() string {
	switch c {
	case CompressionNone:
		return "none"
	case CompressionLZMA:
		return "lzma"
	case CompressionLZ4:
		return "lz4"
	case CompressionLZ4HC:
		return "lz4hc"
	default:
		return fmt.Sprintf("unknown(%d)", uint32(c))
	}
}

// decompress expands src into exactly size bytes.
func decompress(c Compression, src []byte, size int) ([]byte, error) {
	switch c {
	case CompressionNone:
		if len(src) != size {
			return nil, fmt.Errorf("stored block: size %d does not match expected %d", len(src), size)
		}
		return src, nil

	case CompressionLZ4, CompressionLZ4HC:
		dst := make([]byte, size)
		n, err := lz4.UncompressBlock(src, dst)
		if err != nil {
			return nil, fmt.Errorf("lz4 decompress: %w", err)
		}
		if n != size {
			return nil, fmt.Errorf("lz4 decompress: got %d bytes, expected %d", n, size)
		}
		return dst, nil

	default:
		return nil, fmt.Errorf("%w: %s", ErrUnsupportedCompression, c)
	}
}
