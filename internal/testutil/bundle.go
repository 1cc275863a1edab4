package testutil

import (
	"bytes"
	"encoding/binary"
	"testing"

	"github.com/klauspost/compress/gzip"
	"github.com/pierrec/lz4/v4"
	"github.com/stretchr/testify/require"

	"github.com/meigma/assetkit/internal/binutil"
)

// Bundle compression schemes, matching the archive encoding.
const (
	BundleNone  = 0
	BundleLZMA  = 1
	BundleLZ4   = 2
	BundleLZ4HC = 3
)

// BundleNode is one file in a synthetic archive.
type BundleNode struct {
	Path       string
	Data       []byte
	Serialized bool
}

// BundleSpec describes a synthetic archive.
type BundleSpec struct {
	Version uint32
	Engine  string
	Nodes   []BundleNode
	// Compression applies to data blocks; InfoCompression to the block info.
	Compression     uint16
	InfoCompression uint32
	InfoAtEnd       bool
	// InfoPadding sets the flag that aligns the first block to 16 bytes.
	InfoPadding bool
	// BlockSize splits the data stream; zero keeps it in one block.
	BlockSize int
}

type bundleBlock struct {
	raw        int
	compressed []byte
	flags      uint16
}

// BuildBundle encodes spec as an archive. Blocks that lz4 cannot shrink are
// stored uncompressed.
func BuildBundle(tb testing.TB, spec BundleSpec) []byte {
	tb.Helper()
	if spec.Version == 0 {
		spec.Version = 7
	}
	if spec.Engine == "" {
		spec.Engine = DefaultEngine
	}

	var stream []byte
	info := binutil.NewWriter(binary.BigEndian)
	info.Raw(make([]byte, 16))
	var nodes []byte
	{
		w := binutil.NewWriter(binary.BigEndian)
		w.I32(int32(len(spec.Nodes))) //nolint:gosec // fixtures are small
		for _, n := range spec.Nodes {
			w.I64(int64(len(stream)))
			w.I64(int64(len(n.Data)))
			var flags uint32
			if n.Serialized {
				flags = 4
			}
			w.U32(flags)
			w.CString(n.Path)
			stream = append(stream, n.Data...)
		}
		nodes = w.Bytes()
	}

	size := spec.BlockSize
	if size <= 0 {
		size = max(len(stream), 1)
	}
	var blocks []bundleBlock
	for off := 0; off < len(stream); off += size {
		chunk := stream[off:min(off+size, len(stream))]
		blocks = append(blocks, compressBlock(tb, chunk, spec.Compression))
	}

	info.I32(int32(len(blocks))) //nolint:gosec // fixtures are small
	for _, b := range blocks {
		info.U32(uint32(b.raw))             //nolint:gosec // fixtures are small
		info.U32(uint32(len(b.compressed))) //nolint:gosec // fixtures are small
		info.U16(b.flags)
	}
	info.Raw(nodes)
	rawInfo := info.Bytes()
	packedInfo := rawInfo
	if spec.InfoCompression == BundleLZ4 || spec.InfoCompression == BundleLZ4HC {
		packedInfo = lz4Compress(tb, rawInfo)
		require.NotNil(tb, packedInfo, "block info must compress")
	}

	flags := spec.InfoCompression
	if spec.InfoAtEnd {
		flags |= 0x80
	}
	if spec.InfoPadding {
		flags |= 0x200
	}

	w := binutil.NewWriter(binary.BigEndian)
	w.CString("UnityFS")
	w.U32(spec.Version)
	w.CString("5.x.x")
	w.CString(spec.Engine)
	sizeAt := w.Len()
	w.I64(0)
	w.U32(uint32(len(packedInfo))) //nolint:gosec // fixtures are small
	w.U32(uint32(len(rawInfo)))    //nolint:gosec // fixtures are small
	w.U32(flags)
	if spec.Version >= 7 {
		w.Align(16)
	}
	if !spec.InfoAtEnd {
		w.Raw(packedInfo)
	}
	if spec.InfoPadding {
		w.Align(16)
	}
	for _, b := range blocks {
		w.Raw(b.compressed)
	}
	if spec.InfoAtEnd {
		w.Raw(packedInfo)
	}
	w.PutU64At(sizeAt, uint64(w.Len())) //nolint:gosec // fixtures are small
	return w.Bytes()
}

func compressBlock(tb testing.TB, chunk []byte, scheme uint16) bundleBlock {
	tb.Helper()
	switch scheme {
	case BundleLZ4, BundleLZ4HC:
		if packed := lz4Compress(tb, chunk); packed != nil {
			return bundleBlock{raw: len(chunk), compressed: packed, flags: scheme}
		}
	case BundleLZMA:
		// Not decodable; the payload only has to be present.
		return bundleBlock{raw: len(chunk), compressed: append([]byte(nil), chunk...), flags: scheme}
	}
	return bundleBlock{raw: len(chunk), compressed: chunk}
}

// lz4Compress returns nil when the input does not shrink.
func lz4Compress(tb testing.TB, data []byte) []byte {
	tb.Helper()
	dst := make([]byte, lz4.CompressBlockBound(len(data)))
	n, err := lz4.CompressBlock(data, dst, nil)
	require.NoError(tb, err)
	if n == 0 || n >= len(data) {
		return nil
	}
	return dst[:n]
}

// Gzip wraps data in a gzip member.
func Gzip(tb testing.TB, data []byte) []byte {
	tb.Helper()
	var buf bytes.Buffer
	zw := gzip.NewWriter(&buf)
	_, err := zw.Write(data)
	require.NoError(tb, err)
	require.NoError(tb, zw.Close())
	return buf.Bytes()
}
