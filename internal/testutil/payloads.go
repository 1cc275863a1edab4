package testutil

import "github.com/meigma/assetkit/internal/binutil"

// Payload encoders in this file follow the DefaultEngine layouts.

// Ref is an object reference.
type Ref struct {
	FileID int32
	PathID int64
}

func writeRef(w *binutil.Writer, r Ref) {
	w.I32(r.FileID)
	w.I64(r.PathID)
}

func writeRefs(w *binutil.Writer, refs []Ref) {
	w.I32(int32(len(refs))) //nolint:gosec // fixtures are small
	for _, r := range refs {
		writeRef(w, r)
	}
}

func writeFloats(w *binutil.Writer, fs ...float32) {
	for _, f := range fs {
		w.F32(f)
	}
}

// TextureSpec describes a Texture2D payload.
type TextureSpec struct {
	Name   string
	Width  int32
	Height int32
	Format int32
	Data   []byte
	// StreamPath, when set, leaves Data empty and records a stream reference.
	StreamPath   string
	StreamOffset uint32
	StreamSize   uint32
}

// Texture2D encodes a texture payload.
func Texture2D(spec TextureSpec) []byte {
	w := NewWriter()
	w.AlignedString(spec.Name)
	w.I32(0)      // forced fallback format
	w.Bool(false) // downscale fallback
	w.Align(4)
	w.I32(spec.Width)
	w.I32(spec.Height)
	w.I32(int32(len(spec.Data))) //nolint:gosec // fixtures are small
	w.I32(spec.Format)
	w.I32(1)      // mip count
	w.Bool(true)  // readable
	w.Bool(false) // ignore master texture limit
	w.Bool(false) // streaming mipmaps
	w.Align(4)
	w.I32(0) // streaming priority
	w.I32(1) // image count
	w.I32(2) // dimension
	w.I32(1) // filter
	w.I32(1) // aniso
	w.F32(0) // mip bias
	w.I32(0)
	w.I32(0)
	w.I32(0)
	w.I32(0) // lightmap format
	w.I32(1) // color space
	if spec.StreamPath != "" {
		w.I32(0)
		w.U32(spec.StreamOffset)
		w.U32(spec.StreamSize)
		w.AlignedString(spec.StreamPath)
		return w.Bytes()
	}
	w.ByteArray(spec.Data)
	return w.Bytes()
}

// Sprite layouts other than the DefaultEngine one.
const (
	SpriteLayoutDefault = iota
	// SpriteLayout55 stores vertices and indices inline, before 5.6.
	SpriteLayout55
	// SpriteLayout2018 carries a source skin and no secondary textures.
	SpriteLayout2018
)

// SubMesh is one index range of sprite render data. FirstIndex counts
// indices, not bytes.
type SubMesh struct {
	FirstIndex  uint32
	IndexCount  uint32
	FirstVertex uint32
	VertexCount uint32
}

// RenderData describes sprite render data.
type RenderData struct {
	Texture      Ref
	AlphaTexture Ref
	// Vertices are x, y pairs; z is written as zero.
	Vertices [][2]float32
	Indices  []uint16
	// SubMeshes split Vertices and Indices; empty writes one submesh over
	// all of them.
	SubMeshes []SubMesh
	// UV adds a float2 channel after the position, widening the stride.
	UV                bool
	BindPoses         int
	TextureRect       [4]float32
	TextureRectOffset [2]float32
	Settings          uint32
	Downscale         float32
}

func writeRenderData(w *binutil.Writer, rd RenderData, layout int) {
	writeRef(w, rd.Texture)
	writeRef(w, rd.AlphaTexture)
	if layout == SpriteLayoutDefault {
		w.I32(0) // secondary textures
	}
	if layout == SpriteLayout55 {
		w.I32(int32(len(rd.Vertices))) //nolint:gosec // fixtures are small
		for _, v := range rd.Vertices {
			writeFloats(w, v[0], v[1], 0)
		}
		w.I32(int32(len(rd.Indices))) //nolint:gosec // fixtures are small
		for _, i := range rd.Indices {
			w.U16(i)
		}
		w.Align(4)
	} else {
		writeSpriteMesh(w, rd, layout)
	}
	writeFloats(w, rd.TextureRect[:]...)
	writeFloats(w, rd.TextureRectOffset[:]...)
	if layout == SpriteLayout55 {
		w.U32(rd.Settings)
		writeFloats(w, 0, 0, 0, 0)
		return
	}
	writeFloats(w, 0, 0) // atlas rect offset
	w.U32(rd.Settings)
	writeFloats(w, 0, 0, 0, 0)
	downscale := rd.Downscale
	if downscale == 0 {
		downscale = 1
	}
	w.F32(downscale)
}

// writeSpriteMesh writes the submesh, index buffer and vertex data layout
// with positions in channel 0 of a single stream.
func writeSpriteMesh(w *binutil.Writer, rd RenderData, layout int) {
	subs := rd.SubMeshes
	if len(subs) == 0 {
		subs = []SubMesh{{IndexCount: uint32(len(rd.Indices)), VertexCount: uint32(len(rd.Vertices))}} //nolint:gosec // fixtures are small
	}
	w.I32(int32(len(subs))) //nolint:gosec // fixtures are small
	for _, sm := range subs {
		w.U32(sm.FirstIndex * 2)
		w.U32(sm.IndexCount)
		w.I32(0) // topology
		w.U32(0) // base vertex
		w.U32(sm.FirstVertex)
		w.U32(sm.VertexCount)
		writeFloats(w, 0, 0, 0, 0, 0, 0)
	}

	indices := NewWriter()
	for _, i := range rd.Indices {
		indices.U16(i)
	}
	w.ByteArray(indices.Bytes())
	w.Align(4)

	w.U32(uint32(len(rd.Vertices))) //nolint:gosec // fixtures are small
	if rd.UV {
		w.I32(2)
		w.Raw([]byte{0, 0, 0, 3})
		w.Raw([]byte{0, 12, 0, 2})
	} else {
		w.I32(1)
		w.Raw([]byte{0, 0, 0, 3})
	}
	vertices := NewWriter()
	for i, v := range rd.Vertices {
		writeFloats(vertices, v[0], v[1], 0)
		if rd.UV {
			writeFloats(vertices, float32(i), -1)
		}
	}
	vertices.Align(16)
	w.ByteArray(vertices.Bytes())
	w.Align(4)

	w.I32(int32(rd.BindPoses)) //nolint:gosec // fixtures are small
	for range rd.BindPoses {
		writeFloats(w, 1, 0, 0, 0, 0, 1, 0, 0, 0, 0, 1, 0, 0, 0, 0, 1)
	}
	if layout == SpriteLayout2018 {
		w.I32(int32(len(rd.Vertices))) //nolint:gosec // fixtures are small
		for range rd.Vertices {
			writeFloats(w, 1, 0, 0, 0)
			w.Raw(make([]byte, 16))
		}
	}
}

// SpriteSpec describes a Sprite payload.
type SpriteSpec struct {
	Name          string
	Rect          [4]float32
	Offset        [2]float32
	PixelsToUnits float32
	Pivot         [2]float32
	RenderKey     [16]byte
	RenderKeyID   int64
	Atlas         Ref
	RenderData    RenderData
	// Layout picks one of the SpriteLayout encodings; the container's
	// engine version must match it.
	Layout int
}

// Sprite encodes a sprite payload.
func Sprite(spec SpriteSpec) []byte {
	w := NewWriter()
	w.AlignedString(spec.Name)
	writeFloats(w, spec.Rect[:]...)
	writeFloats(w, spec.Offset[:]...)
	writeFloats(w, 0, 0, 0, 0) // border
	ppu := spec.PixelsToUnits
	if ppu == 0 {
		ppu = 100
	}
	w.F32(ppu)
	writeFloats(w, spec.Pivot[:]...)
	w.U32(1)      // extrude
	w.Bool(false) // is polygon
	w.Align(4)
	if spec.Layout != SpriteLayout55 {
		w.Raw(spec.RenderKey[:])
		w.I64(spec.RenderKeyID)
		w.I32(0) // atlas tags
		writeRef(w, spec.Atlas)
	}
	writeRenderData(w, spec.RenderData, spec.Layout)
	return w.Bytes()
}

// AtlasEntry is one render data map entry of a SpriteAtlas.
type AtlasEntry struct {
	Key         [16]byte
	KeyID       int64
	Texture     Ref
	TextureRect [4]float32
	Settings    uint32
	Downscale   float32
}

// SpriteAtlas encodes an atlas payload.
func SpriteAtlas(name string, sprites []Ref, entries []AtlasEntry) []byte {
	w := NewWriter()
	w.AlignedString(name)
	writeRefs(w, sprites)
	w.I32(0)                   // packed sprite names
	w.I32(int32(len(entries))) //nolint:gosec // fixtures are small
	for _, e := range entries {
		w.Raw(e.Key[:])
		w.I64(e.KeyID)
		writeRef(w, e.Texture)
		writeRef(w, Ref{})
		writeFloats(w, e.TextureRect[:]...)
		writeFloats(w, 0, 0) // texture rect offset
		writeFloats(w, 0, 0) // atlas rect offset
		writeFloats(w, 0, 0, 0, 0)
		downscale := e.Downscale
		if downscale == 0 {
			downscale = 1
		}
		w.F32(downscale)
		w.U32(e.Settings)
	}
	w.AlignedString("")
	w.Bool(false)
	w.Align(4)
	return w.Bytes()
}

// Key is an animation keyframe.
type Key struct {
	Time, Value, In, Out float32
}

// Curve is one float curve of an animation clip.
type Curve struct {
	Path      string
	Attribute string
	Keys      []Key
}

// Event is an animation event.
type Event struct {
	Time float32
	Data string
}

// VectorKey is one transform curve key. Rotation keys use all four
// components; position keys use the first three.
type VectorKey struct {
	Time  float32
	Value [4]float32
}

// VectorCurve is one rotation or position curve.
type VectorCurve struct {
	Path string
	Keys []VectorKey
}

// PPtrKey switches a reference at Time.
type PPtrKey struct {
	Time  float32
	Value Ref
}

// PPtrCurve is one object reference curve.
type PPtrCurve struct {
	Path      string
	Attribute string
	Keys      []PPtrKey
}

// Binding is one generic binding of the clip's runtime curves.
type Binding struct {
	Path      uint32
	Attribute uint32
	TypeID    int32
}

// ClipSpec describes an AnimationClip payload.
type ClipSpec struct {
	Name       string
	SampleRate float32
	Rotations  []VectorCurve
	// Compressed lists the paths of packed rotation curves.
	Compressed []string
	Positions  []VectorCurve
	Curves     []Curve
	PPtrCurves []PPtrCurve
	// Dense is written as a one-curve dense clip.
	Dense    []float32
	StopTime float32
	Bindings []Binding
	Events   []Event
}

// AnimationClip encodes a clip payload with float curves and events.
func AnimationClip(name string, sampleRate float32, curves []Curve, events []Event) []byte {
	return Clip(ClipSpec{Name: name, SampleRate: sampleRate, Curves: curves, Events: events})
}

func writeVectorCurve(w *binutil.Writer, c VectorCurve, dim int) {
	w.I32(int32(len(c.Keys))) //nolint:gosec // fixtures are small
	for _, k := range c.Keys {
		w.F32(k.Time)
		writeFloats(w, k.Value[:dim]...)
		writeFloats(w, make([]float32, 2*dim)...) // slopes
		w.I32(0)
		writeFloats(w, make([]float32, 2*dim)...) // weights
	}
	w.I32(2) // pre infinity
	w.I32(2) // post infinity
	w.I32(4) // rotation order
	w.AlignedString(c.Path)
}

func writeXform(w *binutil.Writer) {
	writeFloats(w, 0, 0, 0)
	writeFloats(w, 0, 0, 0, 1)
	writeFloats(w, 1, 1, 1)
}

func writeMuscleClip(w *binutil.Writer, spec ClipSpec) {
	writeXform(w)              // root
	writeFloats(w, 0, 0, 0)    // look at position
	writeFloats(w, 0, 0, 0, 0) // look at weight
	w.I32(0)                   // goals
	for range 2 {
		writeXform(w)
		w.I32(0)
		writeFloats(w, 0, 0, 0, 0)
	}
	w.I32(0) // degrees of freedom
	w.I32(0) // translation degrees of freedom
	for range 4 {
		writeXform(w) // start, stop, left foot, right foot
	}
	writeFloats(w, 0, 0, 0) // average speed

	w.I32(0) // streamed data
	w.U32(0)
	curves := uint32(0)
	if len(spec.Dense) > 0 {
		curves = 1
	}
	w.I32(int32(len(spec.Dense))) //nolint:gosec // fixtures are small
	w.U32(curves)
	w.F32(spec.SampleRate)
	w.F32(0)
	w.I32(int32(len(spec.Dense))) //nolint:gosec // fixtures are small
	writeFloats(w, spec.Dense...)
	w.I32(0) // constants

	writeFloats(w, 0, spec.StopTime, 0, 0, 0, 0)
	w.I32(0) // index array
	w.I32(0) // value deltas
	w.I32(0) // reference pose
	w.Bool(false)
	w.Bool(true) // loop time
	w.Raw(make([]byte, 9))
	w.Align(4)
}

// Clip encodes a clip payload with every curve family present.
func Clip(spec ClipSpec) []byte {
	w := NewWriter()
	w.AlignedString(spec.Name)
	w.Bool(false)
	w.Bool(false)
	w.Bool(true)
	w.Align(4)

	w.I32(int32(len(spec.Rotations))) //nolint:gosec // fixtures are small
	for _, c := range spec.Rotations {
		writeVectorCurve(w, c, 4)
	}
	w.I32(int32(len(spec.Compressed))) //nolint:gosec // fixtures are small
	for _, path := range spec.Compressed {
		w.AlignedString(path)
		w.U32(2) // times
		w.ByteArray([]byte{0x21})
		w.Align(4)
		w.U8(4)
		w.Align(4)
		w.U32(1) // values
		w.ByteArray([]byte{1, 2, 3, 4})
		w.Align(4)
		w.U32(3) // slopes
		w.F32(1)
		w.F32(0)
		w.ByteArray([]byte{0xff, 0x0f})
		w.Align(4)
		w.U8(4)
		w.Align(4)
		w.I32(2)
		w.I32(2)
	}
	w.I32(0) // euler

	w.I32(int32(len(spec.Positions))) //nolint:gosec // fixtures are small
	for _, c := range spec.Positions {
		writeVectorCurve(w, c, 3)
	}
	w.I32(0) // scale

	w.I32(int32(len(spec.Curves))) //nolint:gosec // fixtures are small
	for _, c := range spec.Curves {
		w.I32(int32(len(c.Keys))) //nolint:gosec // fixtures are small
		for _, k := range c.Keys {
			writeFloats(w, k.Time, k.Value, k.In, k.Out)
			w.I32(0)
			writeFloats(w, 1.0/3, 1.0/3)
		}
		w.I32(2) // pre infinity
		w.I32(2) // post infinity
		w.I32(4) // rotation order
		w.AlignedString(c.Attribute)
		w.AlignedString(c.Path)
		w.I32(114)
		writeRef(w, Ref{})
	}

	w.I32(int32(len(spec.PPtrCurves))) //nolint:gosec // fixtures are small
	for _, c := range spec.PPtrCurves {
		w.I32(int32(len(c.Keys))) //nolint:gosec // fixtures are small
		for _, k := range c.Keys {
			w.F32(k.Time)
			writeRef(w, k.Value)
		}
		w.AlignedString(c.Attribute)
		w.AlignedString(c.Path)
		w.I32(212)
		writeRef(w, Ref{})
	}

	w.F32(spec.SampleRate)
	w.I32(2) // loop
	writeFloats(w, 0, 0, 0, 0, 0, 0)

	w.U32(1024) // muscle clip size
	writeMuscleClip(w, spec)

	w.I32(int32(len(spec.Bindings))) //nolint:gosec // fixtures are small
	for _, b := range spec.Bindings {
		w.U32(b.Path)
		w.U32(b.Attribute)
		writeRef(w, Ref{})
		w.I32(b.TypeID)
		w.U8(0)
		w.Bool(false)
		w.Align(4)
	}
	w.I32(0) // pptr curve mapping
	w.Bool(false)
	w.Bool(true) // motion float curves
	w.Align(4)

	w.I32(int32(len(spec.Events))) //nolint:gosec // fixtures are small
	for _, e := range spec.Events {
		w.F32(e.Time)
		w.AlignedString("")
		w.AlignedString(e.Data)
		writeRef(w, Ref{})
		w.F32(0)
		w.I32(0)
		w.I32(0)
	}
	w.Align(4)
	return w.Bytes()
}

// MonoScript encodes a script payload.
func MonoScript(class, namespace, assembly string) []byte {
	w := NewWriter()
	w.AlignedString(class)
	w.I32(0)
	w.Raw(make([]byte, 16))
	w.AlignedString(class)
	w.AlignedString(namespace)
	w.AlignedString(assembly)
	return w.Bytes()
}

// MonoBehaviour encodes a script instance: its base fields followed by fields.
func MonoBehaviour(gameObject, script Ref, name string, fields []byte) []byte {
	w := NewWriter()
	writeRef(w, gameObject)
	w.Bool(true)
	w.Align(4)
	writeRef(w, script)
	w.AlignedString(name)
	w.Raw(fields)
	return w.Bytes()
}

// BundleEntry is an AssetBundle container entry.
type BundleEntry struct {
	Path         string
	PreloadIndex int32
	PreloadSize  int32
	Asset        Ref
}

// AssetBundle encodes an asset bundle index payload.
func AssetBundle(name string, preload []Ref, entries []BundleEntry) []byte {
	w := NewWriter()
	w.AlignedString(name)
	writeRefs(w, preload)
	w.I32(int32(len(entries))) //nolint:gosec // fixtures are small
	for _, e := range entries {
		w.AlignedString(e.Path)
		w.I32(e.PreloadIndex)
		w.I32(e.PreloadSize)
		writeRef(w, e.Asset)
	}
	return w.Bytes()
}

// ResourceEntry is a ResourceManager container entry.
type ResourceEntry struct {
	Path   string
	Object Ref
}

// ResourceManager encodes a resource manager payload.
func ResourceManager(entries []ResourceEntry) []byte {
	w := NewWriter()
	w.I32(int32(len(entries))) //nolint:gosec // fixtures are small
	for _, e := range entries {
		w.AlignedString(e.Path)
		writeRef(w, e.Object)
	}
	return w.Bytes()
}

// TextAsset encodes a text asset payload.
func TextAsset(name string, script []byte) []byte {
	w := NewWriter()
	w.AlignedString(name)
	w.ByteArray(script)
	w.Align(4)
	return w.Bytes()
}

// GameObject encodes a game object payload.
func GameObject(name string, components []Ref) []byte {
	w := NewWriter()
	writeRefs(w, components)
	w.U32(0)
	w.AlignedString(name)
	return w.Bytes()
}
