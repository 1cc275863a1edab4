package graph

import (
	"sync"

	"github.com/meigma/assetkit/internal/asseterr"
	"github.com/meigma/assetkit/internal/binutil"
	"github.com/meigma/assetkit/typetree"
)

// Object is one entry of a container's object table.
//
// The payload is decoded on the first call to Decode and memoised; later
// and concurrent calls share that single decode.
type Object struct {
	container *Container

	PathID    int64
	ClassID   int32
	TypeIndex int32
	Type      *Type

	// Start and Size delimit the object's bytes within the container buffer.
	Start int64
	Size  int64

	once    sync.Once
	payload Payload
	err     error
}

// Container returns the container that owns the object.
func (o *Object) Container() *Container { return o.container }

// ID returns the session-wide identity of the object.
func (o *Object) ID() ObjectID {
	return ObjectID{Container: o.container.index, PathID: o.PathID}
}

// ClassName returns the engine class name of the object.
func (o *Object) ClassName() string { return ClassName(o.ClassID) }

// Bytes returns the object's serialized bytes. The slice aliases the
// container buffer.
func (o *Object) Bytes() []byte {
	return o.container.buf[o.Start : o.Start+o.Size]
}

// Reader returns a fresh reader positioned at the start of the object.
func (o *Object) Reader() *binutil.Reader {
	return binutil.NewReader(o.Bytes(), o.container.order)
}

// Path returns the logical path assigned during resolution, if any.
func (o *Object) Path() (string, bool) { return o.container.Path(o.PathID) }

// Signature returns the schema cache key for the object's type. The
// script identity is filled in by callers that resolve it.
func (o *Object) Signature() typetree.Signature {
	return typetree.Signature{
		ClassID:         o.ClassID,
		ScriptTypeIndex: o.Type.ScriptTypeIndex,
		TypeHash:        o.Type.OldTypeHash,
	}
}

// EmbeddedType returns the type tree stored in the container, or nil.
func (o *Object) EmbeddedType() *typetree.Node { return o.Type.Tree }

// Decode returns the object's typed payload.
func (o *Object) Decode() (Payload, error) {
	o.once.Do(func() {
		o.payload, o.err = o.decode()
	})
	return o.payload, o.err
}

func (o *Object) decode() (Payload, error) {
	r := o.Reader()
	k, ok := kindFor(o.ClassID)
	if !ok {
		return &Unknown{ClassID: o.ClassID, Raw: o.Bytes()}, nil
	}
	p := k.decode(&Layout{Reader: r, Engine: o.container.engine, Format: o.container.header.Version})
	if err := r.Err(); err != nil {
		o.container.log().Debug("object decode failed",
			"container", o.container.name,
			"path_id", o.PathID,
			"class", k.name,
			"error", err)
		return nil, &asseterr.DecodeError{
			Container: o.container.name,
			PathID:    o.PathID,
			Class:     k.name,
			Err:       err,
		}
	}
	return p, nil
}

// Layout is the decoding context handed to kind decoders: a reader over
// the object's bytes and the versions that gate the layout.
type Layout struct {
	*binutil.Reader
	Engine Version
	Format uint32
}

// PPtr reads an object reference.
func (l *Layout) PPtr() PPtr { return ReadPPtr(l.Reader) }

// Name reads the aligned m_Name string that leads every named object.
func (l *Layout) Name() string { return l.AlignedString() }

// Vec2 reads two floats.
func (l *Layout) Vec2() Vector2 { return Vector2{X: l.F32(), Y: l.F32()} }

// Vec3 reads three floats.
func (l *Layout) Vec3() Vector3 { return Vector3{X: l.F32(), Y: l.F32(), Z: l.F32()} }

// Vec4 reads four floats.
func (l *Layout) Vec4() Vector4 { return Vector4{X: l.F32(), Y: l.F32(), Z: l.F32(), W: l.F32()} }

// Rect reads a float rectangle.
func (l *Layout) Rect() Rect {
	return Rect{X: l.F32(), Y: l.F32(), Width: l.F32(), Height: l.F32()}
}

// PPtrs reads a counted array of references.
func (l *Layout) PPtrs() []PPtr {
	return binutil.Array(l.Reader, 12, ReadPPtr)
}

// Strings reads a counted array of aligned strings.
func (l *Layout) Strings() []string {
	return binutil.Array(l.Reader, 4, func(r *binutil.Reader) string { return r.AlignedString() })
}

// Vector2 is a 2D float vector.
type Vector2 struct{ X, Y float32 }

// Vector3 is a 3D float vector.
type Vector3 struct{ X, Y, Z float32 }

// Vector4 is a 4D float vector.
type Vector4 struct{ X, Y, Z, W float32 }

// Rect is a float rectangle with its origin at the bottom left.
type Rect struct{ X, Y, Width, Height float32 }
