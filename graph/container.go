package graph

import (
	"encoding/binary"
	"errors"
	"fmt"
	"log/slog"
	"slices"

	"github.com/opencontainers/go-digest"

	"github.com/meigma/assetkit/internal/asseterr"
	"github.com/meigma/assetkit/internal/binutil"
	"github.com/meigma/assetkit/internal/sizing"
	"github.com/meigma/assetkit/typetree"
)

// Supported serialized-file format versions.
const (
	MinFormatVersion = 14
	MaxFormatVersion = 22
)

// Format version gates.
const (
	formatStrippedFlag    = 16
	formatScriptTypeIndex = 17
	formatRefTypes        = 20
	formatTypeDeps        = 21
	formatLargeFiles      = 22
)

const (
	headerSize      = 20
	largeHeaderSize = headerSize + 28
	minObjectRecord = 20
)

// Header is the fixed big-endian prefix of a serialized file.
type Header struct {
	MetadataSize uint32
	FileSize     int64
	Version      uint32
	DataOffset   int64
	BigEndian    bool
}

// Type is one entry of a container's type table.
type Type struct {
	ClassID         int32
	IsStripped      bool
	ScriptTypeIndex int16
	ScriptID        [16]byte
	OldTypeHash     [16]byte
	Tree            *typetree.Node
	Dependencies    []int32
}

// ScriptRef is an entry of the script table.
type ScriptRef struct {
	FileIndex int32
	LocalID   int64
}

// External is a reference to another container.
type External struct {
	GUID     [16]byte
	Type     int32
	PathName string
}

// Container is one parsed serialized file.
//
// A Container is immutable after Parse except for the logical path table
// and the session index, which the owning session sets once during load.
type Container struct {
	name     string
	buf      []byte
	order    binary.ByteOrder
	header   Header
	engine   Version
	rawVer   string
	platform int32

	typeTrees bool
	types     []*Type
	refTypes  []*Type
	objects   []*Object
	byPath    map[int64]*Object
	scripts   []ScriptRef
	externals []External
	userInfo  string

	digest digest.Digest
	logger *slog.Logger

	index int
	paths map[int64]string
}

// Option configures Parse.
type Option func(*parseConfig)

type parseConfig struct {
	versionOverride string
	logger          *slog.Logger
}

// WithVersionOverride supplies the engine version for containers whose
// builds stripped it. It has no effect when the file records a version.
func WithVersionOverride(v string) Option {
	return func(c *parseConfig) {
		c.versionOverride = v
	}
}

// WithLogger sets the logger used during parsing and decoding.
func WithLogger(logger *slog.Logger) Option {
	return func(c *parseConfig) {
		c.logger = logger
	}
}

// Parse builds the object table of a serialized file. It never decodes
// object payloads. buf must not be modified afterwards.
func Parse(name string, buf []byte, opts ...Option) (*Container, error) {
	var cfg parseConfig
	for _, opt := range opts {
		if opt == nil {
			continue
		}
		opt(&cfg)
	}

	c := &Container{
		name:   name,
		buf:    buf,
		logger: cfg.logger,
		index:  -1,
		paths:  make(map[int64]string),
	}
	if err := c.parseHeader(); err != nil {
		return nil, err
	}
	if err := c.parseMetadata(cfg); err != nil {
		return nil, err
	}
	if err := c.checkObjects(); err != nil {
		return nil, err
	}
	c.digest = digest.FromBytes(buf)
	c.log().Debug("parsed container",
		"name", name,
		"format", c.header.Version,
		"engine", c.engine.String(),
		"objects", len(c.objects))
	return c, nil
}

func (c *Container) formatErr(offset int, reason string, err error) error {
	return &asseterr.FormatError{Container: c.name, Offset: int64(offset), Reason: reason, Err: err}
}

func (c *Container) parseHeader() error {
	if len(c.buf) < headerSize {
		return c.formatErr(0, fmt.Sprintf("file of %d bytes is shorter than the header", len(c.buf)), nil)
	}
	r := binutil.NewReader(c.buf, binary.BigEndian)
	h := Header{MetadataSize: r.U32()}
	fileSize := r.U32()
	h.Version = r.U32()
	dataOffset := r.U32()
	h.FileSize, h.DataOffset = int64(fileSize), int64(dataOffset)

	if h.Version < MinFormatVersion || h.Version > MaxFormatVersion {
		return c.formatErr(8, fmt.Sprintf("unsupported version %d", h.Version), nil)
	}
	h.BigEndian = r.U8() != 0
	r.Skip(3)
	if h.Version >= formatLargeFiles {
		h.MetadataSize = r.U32()
		h.FileSize = r.I64()
		h.DataOffset = r.I64()
		r.Skip(8)
	}
	if err := r.Err(); err != nil {
		return c.formatErr(r.Pos(), "truncated header", err)
	}

	if h.FileSize != int64(len(c.buf)) {
		return c.formatErr(4, fmt.Sprintf("declared size %d does not match %d bytes", h.FileSize, len(c.buf)), nil)
	}
	if h.DataOffset < 0 || h.DataOffset > int64(len(c.buf)) {
		return c.formatErr(12, fmt.Sprintf("data offset %d outside file", h.DataOffset), nil)
	}
	if !sizing.InRange(int64(r.Pos()), int64(h.MetadataSize), int64(len(c.buf))) {
		return c.formatErr(0, fmt.Sprintf("metadata of %d bytes outside file", h.MetadataSize), nil)
	}

	c.header = h
	c.order = binary.LittleEndian
	if h.BigEndian {
		c.order = binary.BigEndian
	}
	return nil
}

func (c *Container) headerLen() int {
	if c.header.Version >= formatLargeFiles {
		return largeHeaderSize
	}
	return headerSize
}

func (c *Container) parseMetadata(cfg parseConfig) error {
	start := c.headerLen()
	end := start + int(c.header.MetadataSize)
	r := binutil.NewReader(c.buf[:end], c.order)
	r.Seek(start)

	c.rawVer = r.CString()
	c.platform = r.I32()
	c.typeTrees = r.Bool()
	if err := r.Err(); err != nil {
		return c.formatErr(r.Pos(), "truncated metadata", err)
	}
	if err := c.resolveEngine(cfg.versionOverride); err != nil {
		return err
	}

	c.types = binutil.Array(r, 1, func(r *binutil.Reader) *Type { return c.readType(r, false) })
	if err := r.Err(); err != nil {
		return c.formatErr(r.Pos(), "truncated type table", err)
	}

	count := r.Count(minObjectRecord)
	if err := r.Err(); err != nil {
		return c.formatErr(r.Pos(), "object count exceeds metadata", err)
	}
	c.objects = make([]*Object, 0, count)
	c.byPath = make(map[int64]*Object, count)
	for range count {
		r.Align(4)
		recordAt := r.Pos()
		obj := &Object{container: c, PathID: r.I64()}
		if c.header.Version >= formatLargeFiles {
			obj.Start = r.I64()
		} else {
			obj.Start = int64(r.U32())
		}
		obj.Size = int64(r.U32())
		obj.TypeIndex = r.I32()
		if err := r.Err(); err != nil {
			return c.formatErr(r.Pos(), "truncated object table", err)
		}
		if obj.TypeIndex < 0 || int(obj.TypeIndex) >= len(c.types) {
			return c.formatErr(recordAt, fmt.Sprintf("object %d has type index %d of %d", obj.PathID, obj.TypeIndex, len(c.types)), nil)
		}
		obj.Type = c.types[obj.TypeIndex]
		obj.ClassID = obj.Type.ClassID
		if _, dup := c.byPath[obj.PathID]; dup {
			return c.formatErr(recordAt, fmt.Sprintf("duplicate path id %d", obj.PathID), nil)
		}
		obj.Start += c.header.DataOffset
		c.objects = append(c.objects, obj)
		c.byPath[obj.PathID] = obj
	}

	c.scripts = binutil.Array(r, 12, func(r *binutil.Reader) ScriptRef {
		s := ScriptRef{FileIndex: r.I32()}
		r.Align(4)
		s.LocalID = r.I64()
		return s
	})
	c.externals = binutil.Array(r, 22, func(r *binutil.Reader) External {
		r.CString() // temp path, always empty in player builds
		var e External
		copy(e.GUID[:], r.Bytes(16))
		e.Type = r.I32()
		e.PathName = r.CString()
		return e
	})
	if c.header.Version >= formatRefTypes {
		c.refTypes = binutil.Array(r, 1, func(r *binutil.Reader) *Type { return c.readType(r, true) })
	}
	c.userInfo = r.CString()
	if err := r.Err(); err != nil {
		return c.formatErr(r.Pos(), "truncated metadata tables", err)
	}
	return nil
}

func (c *Container) resolveEngine(override string) error {
	raw := c.rawVer
	if IsStripped(raw) {
		if override == "" {
			c.log().Warn("engine version stripped and no override given", "container", c.name)
			return nil
		}
		raw = override
	}
	v, err := ParseVersion(raw)
	if err != nil {
		return c.formatErr(c.headerLen(), "engine version", err)
	}
	c.engine = v
	return nil
}

func (c *Container) readType(r *binutil.Reader, ref bool) *Type {
	t := &Type{ClassID: r.I32(), ScriptTypeIndex: -1}
	v := c.header.Version
	if v >= formatStrippedFlag {
		t.IsStripped = r.Bool()
	}
	if v >= formatScriptTypeIndex {
		t.ScriptTypeIndex = r.I16()
	}
	if !ref && (t.ClassID == ClassMonoBehaviour || t.ScriptTypeIndex >= 0) {
		copy(t.ScriptID[:], r.Bytes(16))
	}
	copy(t.OldTypeHash[:], r.Bytes(16))
	if c.typeTrees {
		if r.Err() != nil {
			return t
		}
		tree, err := typetree.ParseBlob(r, v)
		if err != nil {
			r.Fail(err)
			return t
		}
		t.Tree = tree
		if v >= formatTypeDeps {
			if ref {
				// Referenced types name their class, namespace and assembly.
				r.CString()
				r.CString()
				r.CString()
			} else {
				t.Dependencies = binutil.Array(r, 4, func(r *binutil.Reader) int32 { return r.I32() })
			}
		}
	}
	return t
}

// checkObjects verifies that every object range lies inside the buffer
// and that no two ranges overlap.
func (c *Container) checkObjects() error {
	sorted := slices.Clone(c.objects)
	slices.SortFunc(sorted, func(a, b *Object) int {
		switch {
		case a.Start < b.Start:
			return -1
		case a.Start > b.Start:
			return 1
		}
		return 0
	})
	var prev *Object
	for _, o := range sorted {
		if !sizing.InRange(o.Start, o.Size, int64(len(c.buf))) {
			return c.formatErr(int(c.header.DataOffset), fmt.Sprintf("object %d range [%d,+%d) outside %d-byte file", o.PathID, o.Start, o.Size, len(c.buf)), nil)
		}
		if prev != nil && prev.Start+prev.Size > o.Start {
			return c.formatErr(int(o.Start), fmt.Sprintf("object %d overlaps object %d", o.PathID, prev.PathID), nil)
		}
		prev = o
	}
	return nil
}

func (c *Container) log() *slog.Logger {
	if c.logger != nil {
		return c.logger
	}
	return slog.New(slog.DiscardHandler)
}

// Name returns the container's source name.
func (c *Container) Name() string { return c.name }

// Header returns the parsed file header.
func (c *Container) Header() Header { return c.header }

// Version returns the engine version used to gate object layouts. It is
// zero when the file stripped the version and no override was given.
func (c *Container) Version() Version { return c.engine }

// RawVersion returns the engine version string recorded in the file.
func (c *Container) RawVersion() string { return c.rawVer }

// Platform returns the build target platform id.
func (c *Container) Platform() int32 { return c.platform }

// Digest returns the sha256 digest of the container bytes.
func (c *Container) Digest() digest.Digest { return c.digest }

// Len returns the number of objects.
func (c *Container) Len() int { return len(c.objects) }

// Objects returns the objects in table order. The slice must not be modified.
func (c *Container) Objects() []*Object { return c.objects }

// Object returns the object with the given path id.
func (c *Container) Object(pathID int64) (*Object, bool) {
	o, ok := c.byPath[pathID]
	return o, ok
}

// Types returns the type table.
func (c *Container) Types() []*Type { return c.types }

// Scripts returns the script table.
func (c *Container) Scripts() []ScriptRef { return c.scripts }

// Externals returns the external references in table order.
func (c *Container) Externals() []External { return c.externals }

// UserInformation returns the trailing user information string.
func (c *Container) UserInformation() string { return c.userInfo }

// Bytes returns the container buffer. It must not be modified.
func (c *Container) Bytes() []byte { return c.buf }

// Index returns the container's position in its session, or -1.
func (c *Container) Index() int { return c.index }

// SetIndex records the container's position in its session. It is called
// once by the session before the container is shared.
func (c *Container) SetIndex(i int) { c.index = i }

// SetPath records a logical path for the object with the given path id.
// It is called only by the session's resolution pass.
func (c *Container) SetPath(pathID int64, path string) { c.paths[pathID] = path }

// Path returns the logical path recorded for pathID.
func (c *Container) Path(pathID int64) (string, bool) {
	p, ok := c.paths[pathID]
	return p, ok
}

// IsFormatError reports whether err came from a malformed container.
func IsFormatError(err error) bool {
	return errors.Is(err, asseterr.ErrFormat)
}
