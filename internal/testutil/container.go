// Package testutil builds synthetic serialized files, bundles and texture
// blocks for tests.
package testutil

import (
	"encoding/binary"
	"testing"

	"github.com/meigma/assetkit/internal/binutil"
	"github.com/meigma/assetkit/typetree"
)

// DefaultEngine is the engine version the payload encoders lay out for.
const DefaultEngine = "2019.4.31f1"

// DefaultFormat is the serialized-file format version used when a spec
// leaves it unset.
const DefaultFormat = 21

// Object is one object to place in a synthetic container.
type Object struct {
	PathID          int64
	ClassID         int32
	ScriptTypeIndex int16
	Data            []byte
	// Tree, when set, is embedded in the type table for this object's type.
	Tree *typetree.Node

	// Explicit writes Start and Size into the object table verbatim and
	// does not place Data, for building malformed tables.
	Explicit bool
	Start    int64
	Size     int64
	// BadTypeIndex writes a type index one past the end of the type table.
	BadTypeIndex bool
}

// External is one entry of the externals table.
type External struct {
	PathName string
	GUID     [16]byte
}

// ContainerSpec describes a synthetic serialized file.
type ContainerSpec struct {
	Format    uint32
	Engine    string
	BigEndian bool
	TypeTrees bool
	Objects   []Object
	Externals []External
}

func (s ContainerSpec) order() binutil.Order {
	if s.BigEndian {
		return binary.BigEndian
	}
	return binary.LittleEndian
}

type typeKey struct {
	classID int32
	script  int16
	tree    *typetree.Node
}

// BuildContainer encodes spec as a serialized file.
func BuildContainer(tb testing.TB, spec ContainerSpec) []byte {
	tb.Helper()
	if spec.Format == 0 {
		spec.Format = DefaultFormat
	}
	if spec.Engine == "" {
		spec.Engine = DefaultEngine
	}
	large := spec.Format >= 22
	headerLen := 20
	if large {
		headerLen = 48
	}

	var keys []typeKey
	typeIndex := make(map[typeKey]int32)
	objTypes := make([]int32, len(spec.Objects))
	for i, o := range spec.Objects {
		script := o.ScriptTypeIndex
		if o.ClassID != 114 && script == 0 {
			script = -1
		}
		k := typeKey{classID: o.ClassID, script: script, tree: o.Tree}
		idx, ok := typeIndex[k]
		if !ok {
			idx = int32(len(keys)) //nolint:gosec // fixtures are small
			typeIndex[k] = idx
			keys = append(keys, k)
		}
		objTypes[i] = idx
	}

	meta := binutil.NewWriter(spec.order())
	// Pad so that alignment inside metadata matches absolute file offsets.
	meta.Raw(make([]byte, headerLen))
	meta.CString(spec.Engine)
	meta.I32(19) // StandaloneWindows64
	meta.Bool(spec.TypeTrees)

	meta.I32(int32(len(keys))) //nolint:gosec // fixtures are small
	for _, k := range keys {
		writeType(meta, spec, k, false)
	}

	// Lay out object data: each object 8-aligned relative to the data offset.
	var starts []int64
	var cursor int64
	for _, o := range spec.Objects {
		if o.Explicit {
			starts = append(starts, o.Start)
			continue
		}
		cursor = (cursor + 7) &^ 7
		starts = append(starts, cursor)
		cursor += int64(len(o.Data))
	}

	meta.I32(int32(len(spec.Objects))) //nolint:gosec // fixtures are small
	for i, o := range spec.Objects {
		meta.Align(4)
		meta.I64(o.PathID)
		if large {
			meta.I64(starts[i])
		} else {
			meta.U32(uint32(starts[i])) //nolint:gosec // fixtures are small
		}
		size := int64(len(o.Data))
		if o.Explicit {
			size = o.Size
		}
		meta.U32(uint32(size)) //nolint:gosec // fixtures are small
		typeIdx := objTypes[i]
		if o.BadTypeIndex {
			typeIdx = int32(len(keys)) //nolint:gosec // fixtures are small
		}
		meta.I32(typeIdx)
	}

	meta.I32(0)                          // scripts
	meta.I32(int32(len(spec.Externals))) //nolint:gosec // fixtures are small
	for _, e := range spec.Externals {
		meta.CString("")
		meta.Raw(e.GUID[:])
		meta.I32(0)
		meta.CString(e.PathName)
	}
	if spec.Format >= 20 {
		meta.I32(0) // ref types
	}
	meta.CString("")

	metaBytes := meta.Bytes()[headerLen:]
	dataOffset := int64(headerLen + len(metaBytes))
	dataOffset = (dataOffset + 15) &^ 15
	fileSize := dataOffset + cursor

	out := binutil.NewWriter(binary.BigEndian)
	out.U32(uint32(len(metaBytes))) //nolint:gosec // fixtures are small
	out.U32(uint32(fileSize))       //nolint:gosec // fixtures are small
	out.U32(spec.Format)
	out.U32(uint32(dataOffset)) //nolint:gosec // fixtures are small
	out.Bool(spec.BigEndian)
	out.Raw([]byte{0, 0, 0})
	if large {
		out.U32(uint32(len(metaBytes))) //nolint:gosec // fixtures are small
		out.I64(fileSize)
		out.I64(dataOffset)
		out.I64(0)
	}
	out.Raw(metaBytes)
	for out.Len() < int(dataOffset) {
		out.U8(0)
	}
	for i, o := range spec.Objects {
		if o.Explicit {
			continue
		}
		for int64(out.Len()) < dataOffset+starts[i] {
			out.U8(0)
		}
		out.Raw(o.Data)
	}
	return out.Bytes()
}

func writeType(w *binutil.Writer, spec ContainerSpec, k typeKey, ref bool) {
	w.I32(k.classID)
	if spec.Format >= 16 {
		w.Bool(false)
	}
	if spec.Format >= 17 {
		w.I16(k.script)
	}
	if !ref && (k.classID == 114 || k.script >= 0) {
		w.Raw(make([]byte, 16))
	}
	hash := make([]byte, 16)
	hash[0] = byte(k.classID)
	w.Raw(hash)
	if !spec.TypeTrees {
		return
	}
	tree := k.tree
	if tree == nil {
		tree = &typetree.Node{Name: "Base", Type: "Object", ByteSize: -1}
	}
	typetree.EncodeBlob(w, tree, spec.Format)
	if spec.Format >= 21 {
		w.I32(0) // dependencies
	}
}

// NewWriter returns a little-endian writer for payload fixtures.
func NewWriter() *binutil.Writer { return binutil.NewWriter(binary.LittleEndian) }
