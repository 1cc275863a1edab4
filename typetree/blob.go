package typetree

import (
	"fmt"

	"github.com/meigma/assetkit/internal/asseterr"
	"github.com/meigma/assetkit/internal/binutil"
)

// commonStringFlag marks a string offset that indexes the engine's shared
// string table instead of the blob's local buffer.
const commonStringFlag uint32 = 0x80000000

// refTypeHashVersion is the first container version whose node records
// carry an 8-byte reference type hash.
const refTypeHashVersion = 19

// commonStrings is the engine's shared string buffer, in buffer order.
// Offsets into the buffer are computed at init from this order.
var commonStrings = []string{
	"AABB", "AnimationClip", "AnimationCurve", "AnimationState", "Array",
	"Base", "BitField", "bitset", "bool", "char", "ColorRGBA", "Component",
	"data", "deque", "double", "dynamic_array", "FastPropertyName", "first",
	"float", "Font", "GameObject", "Generic Mono", "GradientNEW", "GUID",
	"GUIStyle", "int", "list", "long long", "map", "Matrix4x4f", "MdFour",
	"MonoBehaviour", "MonoScript", "m_ByteSize", "m_Curve",
	"m_EditorClassIdentifier", "m_EditorHideFlags", "m_Enabled",
	"m_ExtensionPtr", "m_GameObject", "m_Index", "m_IsArray", "m_IsStatic",
	"m_MetaFlag", "m_Name", "m_ObjectHideFlags", "m_PrefabInternal",
	"m_PrefabParentObject", "m_Script", "m_StaticEditorFlags", "m_Type",
	"m_Version", "Object", "pair", "PPtr<Component>", "PPtr<GameObject>",
	"PPtr<Material>", "PPtr<MonoBehaviour>", "PPtr<MonoScript>",
	"PPtr<Object>", "PPtr<Prefab>", "PPtr<Sprite>", "PPtr<TextAsset>",
	"PPtr<Texture>", "PPtr<Texture2D>", "PPtr<Transform>", "Prefab",
	"Quaternionf", "Rectf", "RectInt", "RectOffset", "second", "set",
	"short", "size", "SInt16", "SInt32", "SInt64", "SInt8", "staticvector",
	"string", "TextAsset", "TextMesh", "Texture", "Texture2D", "Transform",
	"TypelessData", "UInt16", "UInt32", "UInt64", "UInt8", "unsigned int",
	"unsigned long long", "unsigned short", "vector", "Vector2f", "Vector3f",
	"Vector4f", "m_ScriptingClassIdentifier", "Gradient", "Type*",
	"int2_storage", "int3_storage", "BoundsInt", "m_CorrespondingSourceObject",
	"m_PrefabInstance", "m_PrefabAsset", "FileSize", "Hash128",
}

var (
	commonByOffset = make(map[uint32]string, len(commonStrings))
	commonOffsets  = make(map[string]uint32, len(commonStrings))
)

func init() {
	var off uint32
	for _, s := range commonStrings {
		commonByOffset[off] = s
		commonOffsets[s] = off
		off += uint32(len(s)) + 1 //nolint:gosec // table is small
	}
}

// CommonStringOffset returns the flagged offset of s in the shared string
// table, for encoders that want to reference it.
func CommonStringOffset(s string) (uint32, bool) {
	off, ok := commonOffsets[s]
	if !ok {
		return 0, false
	}
	return off | commonStringFlag, true
}

// HasRefTypeHash reports whether node records for the given container
// version include a reference type hash.
func HasRefTypeHash(version uint32) bool { return version >= refTypeHashVersion }

// ParseBlob reads an embedded type tree in the flat blob encoding:
// node count, string buffer size, fixed-size node records, then the
// string buffer. Levels in the records rebuild the tree.
func ParseBlob(r *binutil.Reader, version uint32) (*Node, error) {
	recordSize := 24
	if HasRefTypeHash(version) {
		recordSize += 8
	}
	count := r.Count(0)
	stringSize := r.Count(0)
	if err := r.Err(); err != nil {
		return nil, fmt.Errorf("%w: typetree: blob header: %w", asseterr.ErrDecode, err)
	}
	if count == 0 {
		return nil, fmt.Errorf("%w: typetree: empty blob", asseterr.ErrDecode)
	}
	if int64(count)*int64(recordSize)+int64(stringSize) > int64(r.Remaining()) {
		return nil, fmt.Errorf("%w: typetree: blob of %d nodes exceeds %d remaining bytes", asseterr.ErrDecode, count, r.Remaining())
	}

	type record struct {
		level     int
		typeFlags uint8
		typeOff   uint32
		nameOff   uint32
		byteSize  int32
		index     int32
		metaFlag  int32
	}
	records := make([]record, count)
	for i := range records {
		r.U16() // node version
		records[i].level = int(r.U8())
		records[i].typeFlags = r.U8()
		records[i].typeOff = r.U32()
		records[i].nameOff = r.U32()
		records[i].byteSize = r.I32()
		records[i].index = r.I32()
		records[i].metaFlag = r.I32()
		if HasRefTypeHash(version) {
			r.U64()
		}
	}
	strs := r.Bytes(stringSize)
	if err := r.Err(); err != nil {
		return nil, fmt.Errorf("%w: typetree: blob nodes: %w", asseterr.ErrDecode, err)
	}

	lookup := func(off uint32) (string, error) {
		if off&commonStringFlag != 0 {
			s, ok := commonByOffset[off&^commonStringFlag]
			if !ok {
				return "", fmt.Errorf("%w: typetree: unknown common string offset %d", asseterr.ErrDecode, off&^commonStringFlag)
			}
			return s, nil
		}
		if int(off) >= len(strs) {
			return "", fmt.Errorf("%w: typetree: string offset %d outside %d-byte buffer", asseterr.ErrDecode, off, len(strs))
		}
		end := int(off)
		for end < len(strs) && strs[end] != 0 {
			end++
		}
		return string(strs[off:end]), nil
	}

	nodes := make([]*Node, count)
	for i, rec := range records {
		typ, err := lookup(rec.typeOff)
		if err != nil {
			return nil, err
		}
		name, err := lookup(rec.nameOff)
		if err != nil {
			return nil, err
		}
		nodes[i] = &Node{
			Name:     name,
			Type:     typ,
			ByteSize: rec.byteSize,
			Index:    rec.index,
			Level:    rec.level,
			IsArray:  rec.typeFlags&1 != 0,
			MetaFlag: rec.metaFlag,
		}
	}
	return link(nodes)
}

// link rebuilds parent/child edges from a depth-first node list.
func link(nodes []*Node) (*Node, error) {
	root := nodes[0]
	stack := []*Node{root}
	for _, n := range nodes[1:] {
		if n.Level <= root.Level {
			return nil, fmt.Errorf("%w: typetree: second root %q at level %d", asseterr.ErrDecode, n.Name, n.Level)
		}
		for len(stack) > 0 && stack[len(stack)-1].Level >= n.Level {
			stack = stack[:len(stack)-1]
		}
		parent := stack[len(stack)-1]
		if n.Level != parent.Level+1 {
			return nil, fmt.Errorf("%w: typetree: node %q skips from level %d to %d", asseterr.ErrDecode, n.Name, parent.Level, n.Level)
		}
		parent.Children = append(parent.Children, n)
		stack = append(stack, n)
	}
	return root, nil
}

// Flatten returns the tree in depth-first order, the order used by the
// blob encoding.
func Flatten(root *Node) []*Node {
	var out []*Node
	root.Walk(func(n *Node) bool {
		out = append(out, n)
		return true
	})
	return out
}

// EncodeBlob writes root in the flat blob encoding understood by ParseBlob.
// Names found in the shared string table are referenced there; all others
// go to the local buffer.
func EncodeBlob(w *binutil.Writer, root *Node, version uint32) {
	var nodes []*Node
	var depths []uint8
	var visit func(*Node, uint8)
	visit = func(n *Node, depth uint8) {
		nodes = append(nodes, n)
		depths = append(depths, depth)
		for _, c := range n.Children {
			visit(c, depth+1)
		}
	}
	visit(root, 0)
	var local []byte
	localOffsets := make(map[string]uint32)
	offset := func(s string) uint32 {
		if off, ok := CommonStringOffset(s); ok {
			return off
		}
		if off, ok := localOffsets[s]; ok {
			return off
		}
		off := uint32(len(local)) //nolint:gosec // buffers are small
		local = append(local, s...)
		local = append(local, 0)
		localOffsets[s] = off
		return off
	}

	type strs struct{ typ, name uint32 }
	offsets := make([]strs, len(nodes))
	for i, n := range nodes {
		offsets[i] = strs{typ: offset(n.Type), name: offset(n.Name)}
	}

	w.I32(int32(len(nodes))) //nolint:gosec // trees are small
	w.I32(int32(len(local))) //nolint:gosec // buffers are small
	for i, n := range nodes {
		w.U16(1)
		w.U8(depths[i])
		var flags uint8
		if n.IsArray {
			flags = 1
		}
		w.U8(flags)
		w.U32(offsets[i].typ)
		w.U32(offsets[i].name)
		w.I32(n.ByteSize)
		w.I32(n.Index)
		w.I32(n.MetaFlag)
		if HasRefTypeHash(version) {
			w.U64(0)
		}
	}
	w.Raw(local)
}
