package bundle

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"log/slog"
	"path"

	"github.com/meigma/assetkit/internal/asseterr"
	"github.com/meigma/assetkit/internal/binutil"
	"github.com/meigma/assetkit/internal/sizing"
)

// Signature opens every archive this package reads.
const Signature = "UnityFS"

// Supported archive format versions.
const (
	MinVersion = 6
	MaxVersion = 8
)

// Archive flag bits above the compression mask.
const (
	flagInfoAtEnd   = 0x80
	flagInfoPadding = 0x200
)

// NodeSerialized marks a node that holds a serialized file.
const NodeSerialized = 0x4

// DefaultMaxSize bounds the total decompressed size of an archive.
const DefaultMaxSize = 4 << 30

// Header is the fixed archive header.
type Header struct {
	Version              uint32
	EngineVersion        string
	EngineRevision       string
	Size                 int64
	CompressedInfoSize   uint32
	UncompressedInfoSize uint32
	Flags                uint32
}

// Compression returns the scheme of the block info.
func (h Header) Compression() Compression { return Compression(h.Flags & compressionMask) }

// Block is one compressed chunk of the archive's data stream.
type Block struct {
	UncompressedSize uint32
	CompressedSize   uint32
	Flags            uint16
}

// Compression returns the block's scheme.
func (b Block) Compression() Compression { return Compression(b.Flags & compressionMask) }

// Node is a named file inside the archive.
type Node struct {
	Path   string
	Offset int64
	Size   int64
	Flags  uint32

	data []byte
}

// Data returns the node's bytes. The slice aliases the archive's
// decompressed stream.
func (n Node) Data() []byte { return n.data }

// Name returns the last element of the node path.
func (n Node) Name() string { return path.Base(n.Path) }

// IsSerialized reports whether n holds a serialized file rather than a
// resource blob.
func IsSerialized(n Node) bool { return n.Flags&NodeSerialized != 0 }

// Archive is an unpacked bundle.
type Archive struct {
	header Header
	blocks []Block
	nodes  []Node
}

// Option configures Open and Unwrap.
type Option func(*config)

type config struct {
	maxSize int64
	logger  *slog.Logger
}

// WithMaxSize bounds the decompressed size. Archives or wrappers that
// expand beyond it fail with ErrSizeOverflow.
func WithMaxSize(n int64) Option {
	return func(c *config) { c.maxSize = n }
}

// WithLogger sets the logger for archive diagnostics.
func WithLogger(logger *slog.Logger) Option {
	return func(c *config) { c.logger = logger }
}

func newConfig(opts []Option) *config {
	c := &config{maxSize: DefaultMaxSize}
	for _, opt := range opts {
		opt(c)
	}
	if c.logger == nil {
		c.logger = slog.New(slog.DiscardHandler)
	}
	return c
}

// IsArchive reports whether buf starts with the archive signature.
func IsArchive(buf []byte) bool {
	return bytes.HasPrefix(buf, []byte(Signature+"\x00"))
}

// Open parses an archive and decompresses its data stream. Malformed
// archives fail with an error wrapping asseterr.ErrFormat.
func Open(buf []byte, opts ...Option) (*Archive, error) {
	cfg := newConfig(opts)
	r := binutil.NewReader(buf, binary.BigEndian)

	if sig := r.CString(); sig != Signature {
		return nil, malformed("signature %q", sig)
	}
	var h Header
	h.Version = r.U32()
	h.EngineVersion = r.CString()
	h.EngineRevision = r.CString()
	h.Size = r.I64()
	h.CompressedInfoSize = r.U32()
	h.UncompressedInfoSize = r.U32()
	h.Flags = r.U32()
	if err := r.Err(); err != nil {
		return nil, malformed("header: %w", err)
	}
	if h.Version < MinVersion || h.Version > MaxVersion {
		return nil, malformed("unsupported version %d", h.Version)
	}
	if h.Size != int64(len(buf)) {
		return nil, malformed("declared size %d, have %d", h.Size, len(buf))
	}
	if h.Version >= 7 {
		r.Align(16)
	}

	var rawInfo []byte
	if h.Flags&flagInfoAtEnd != 0 {
		start := int64(len(buf)) - int64(h.CompressedInfoSize)
		if start < int64(r.Pos()) {
			return nil, malformed("block info larger than archive")
		}
		rawInfo = buf[start:]
	} else {
		rawInfo = r.Bytes(int(h.CompressedInfoSize))
		if err := r.Err(); err != nil {
			return nil, malformed("block info: %w", err)
		}
	}
	// Padding precedes the first block wherever the info lives.
	if h.Flags&flagInfoPadding != 0 {
		r.Align(16)
	}
	if int64(h.UncompressedInfoSize) > cfg.maxSize {
		return nil, fmt.Errorf("%w: bundle: block info of %d bytes exceeds %d", asseterr.ErrSizeOverflow, h.UncompressedInfoSize, cfg.maxSize)
	}

	info, err := decompress(h.Compression(), rawInfo, int(h.UncompressedInfoSize))
	if err != nil {
		return nil, fmt.Errorf("%w: bundle: block info: %w", asseterr.ErrFormat, err)
	}
	a := &Archive{header: h}
	if err := a.readInfo(info); err != nil {
		return nil, err
	}

	data, err := a.readBlocks(r, cfg.maxSize)
	if err != nil {
		return nil, err
	}
	for i := range a.nodes {
		n := &a.nodes[i]
		if !sizing.InRange(n.Offset, n.Size, int64(len(data))) {
			return nil, malformed("node %q [%d, +%d) outside data stream of %d bytes", n.Path, n.Offset, n.Size, len(data))
		}
		n.data = data[n.Offset : n.Offset+n.Size]
	}

	cfg.logger.Debug("bundle opened",
		"version", h.Version,
		"engine", h.EngineRevision,
		"blocks", len(a.blocks),
		"nodes", len(a.nodes),
		"size", len(data))
	return a, nil
}

func (a *Archive) readInfo(info []byte) error {
	r := binutil.NewReader(info, binary.BigEndian)
	r.Skip(16) // uncompressed data hash
	a.blocks = binutil.Array(r, 10, func(r *binutil.Reader) Block {
		return Block{UncompressedSize: r.U32(), CompressedSize: r.U32(), Flags: r.U16()}
	})
	a.nodes = binutil.Array(r, 21, func(r *binutil.Reader) Node {
		return Node{Offset: r.I64(), Size: r.I64(), Flags: r.U32(), Path: r.CString()}
	})
	if err := r.Err(); err != nil {
		return malformed("block info: %w", err)
	}
	return nil
}

func (a *Archive) readBlocks(r *binutil.Reader, maxSize int64) ([]byte, error) {
	var total uint64
	for _, b := range a.blocks {
		var ok bool
		if total, ok = sizing.AddUint64(total, uint64(b.UncompressedSize)); !ok || total > uint64(maxSize) { //nolint:gosec // maxSize is positive
			return nil, fmt.Errorf("%w: bundle: data stream exceeds %d bytes", asseterr.ErrSizeOverflow, maxSize)
		}
	}
	size, err := sizing.ToInt(total, asseterr.ErrSizeOverflow)
	if err != nil {
		return nil, err
	}

	data := make([]byte, 0, size)
	for i, b := range a.blocks {
		src := r.Bytes(int(b.CompressedSize))
		if err := r.Err(); err != nil {
			return nil, malformed("block %d: %w", i, err)
		}
		out, err := decompress(b.Compression(), src, int(b.UncompressedSize))
		if err != nil {
			return nil, fmt.Errorf("%w: bundle: block %d: %w", asseterr.ErrFormat, i, err)
		}
		data = append(data, out...)
	}
	return data, nil
}

// Header returns the archive header.
func (a *Archive) Header() Header { return a.header }

// Blocks returns the block table.
func (a *Archive) Blocks() []Block { return a.blocks }

// Nodes returns the archive's files in table order.
func (a *Archive) Nodes() []Node { return a.nodes }

// Node returns the node whose path or base name is name.
func (a *Archive) Node(name string) (Node, bool) {
	for _, n := range a.nodes {
		if n.Path == name || n.Name() == name {
			return n, true
		}
	}
	return Node{}, false
}

func malformed(format string, args ...any) error {
	return fmt.Errorf("%w: bundle: %w", asseterr.ErrFormat, fmt.Errorf(format, args...))
}
