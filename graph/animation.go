package graph

import "github.com/meigma/assetkit/internal/binutil"

// Wrap modes of an animation clip.
const (
	WrapDefault  = 0
	WrapOnce     = 1
	WrapLoop     = 2
	WrapPingPong = 4
	WrapClamp    = 8
)

// Keyframe is one sample of a float curve with Hermite tangents.
type Keyframe struct {
	Time     float32
	Value    float32
	InSlope  float32
	OutSlope float32
}

// FloatCurve animates one float attribute of the object at Path.
type FloatCurve struct {
	Path      string
	Attribute string
	ClassID   int32
	Script    PPtr
	Keys      []Keyframe
	PreWrap   int32
	PostWrap  int32
}

// VectorKey is one sample of a vector curve.
type VectorKey[T any] struct {
	Time     float32
	Value    T
	InSlope  T
	OutSlope T
}

// VectorCurve animates a transform property of the object at Path.
// Rotation curves carry quaternions as Vector4; the others carry Vector3.
type VectorCurve[T any] struct {
	Path     string
	Keys     []VectorKey[T]
	PreWrap  int32
	PostWrap int32
}

// PackedIntVector is a bit-packed run of unsigned integers.
type PackedIntVector struct {
	NumItems uint32
	Data     []byte
	BitSize  uint8
}

// PackedFloatVector is a run of floats quantised to BitSize bits over
// [Start, Start+Range].
type PackedFloatVector struct {
	NumItems uint32
	Range    float32
	Start    float32
	Data     []byte
	BitSize  uint8
}

// PackedQuatVector is a run of quaternions packed 32 bits each.
type PackedQuatVector struct {
	NumItems uint32
	Data     []byte
}

// CompressedCurve is a rotation curve stored in packed form. It is kept
// packed; nothing in the package expands it.
type CompressedCurve struct {
	Path     string
	Times    PackedIntVector
	Values   PackedQuatVector
	Slopes   PackedFloatVector
	PreWrap  int32
	PostWrap int32
}

// PPtrKeyframe switches an object reference at Time.
type PPtrKeyframe struct {
	Time  float32
	Value PPtr
}

// PPtrCurve animates an object reference, such as a sprite swap.
type PPtrCurve struct {
	Path      string
	Attribute string
	ClassID   int32
	Script    PPtr
	Keys      []PPtrKeyframe
}

// DenseClip holds curves sampled at a fixed rate, CurveCount values per
// frame.
type DenseClip struct {
	FrameCount int32
	CurveCount uint32
	SampleRate float32
	BeginTime  float32
	Samples    []float32
}

// ClipMuscle is the runtime form of a clip. Only the sampled data and the
// time range are kept; pose and loop settings beyond LoopTime are read
// past.
type ClipMuscle struct {
	StreamedData       []uint32
	StreamedCurveCount uint32
	Dense              DenseClip
	Constants          []float32
	StartTime          float32
	StopTime           float32
	Mirror             bool
	LoopTime           bool
}

// GenericBinding maps one runtime curve to the property it drives. Path
// and Attribute are CRC32 hashes of the names.
type GenericBinding struct {
	Path        uint32
	Attribute   uint32
	Script      PPtr
	TypeID      int32
	CustomType  uint8
	IsPPtrCurve bool
	IsIntCurve  bool
}

// ClipBindings is the binding table of a clip's runtime curves.
type ClipBindings struct {
	Generic          []GenericBinding
	PPtrCurveMapping []PPtr
}

// AnimationEvent fires a named function at a point in a clip.
type AnimationEvent struct {
	Time         float32
	FunctionName string
	Data         string
	Object       PPtr
	Float        float32
	Int          int32
	Options      int32
}

// AnimationClip is a set of animated curves sampled at a fixed rate.
type AnimationClip struct {
	Name                     string
	Legacy                   bool
	Compressed               bool
	HighQuality              bool
	RotationCurves           []VectorCurve[Vector4]
	CompressedRotationCurves []CompressedCurve
	EulerCurves              []VectorCurve[Vector3]
	PositionCurves           []VectorCurve[Vector3]
	ScaleCurves              []VectorCurve[Vector3]
	FloatCurves              []FloatCurve
	PPtrCurves               []PPtrCurve
	SampleRate               float32
	WrapMode                 int32
	BoundsMin                Vector3
	BoundsMax                Vector3
	MuscleClipSize           uint32
	Muscle                   ClipMuscle
	Bindings                 ClipBindings
	HasGenericRootTransform  bool
	HasMotionFloatCurves     bool
	Events                   []AnimationEvent
}

func (*AnimationClip) payload() {}

// ObjectName returns the clip's name.
func (c *AnimationClip) ObjectName() string { return c.Name }

// Duration returns the time of the latest keyframe over all float curves.
func (c *AnimationClip) Duration() float32 {
	var d float32
	for _, fc := range c.FloatCurves {
		if n := len(fc.Keys); n > 0 && fc.Keys[n-1].Time > d {
			d = fc.Keys[n-1].Time
		}
	}
	return d
}

func decodeAnimationClip(l *Layout) Payload {
	v := l.Engine
	c := &AnimationClip{Name: l.Name()}
	switch {
	case v.AtLeast(5):
		c.Legacy = l.Bool()
	case v.AtLeast(4):
		c.Legacy = l.I32() == 1
	default:
		c.Legacy = true
	}
	c.Compressed = l.Bool()
	if v.AtLeast(4, 3) {
		c.HighQuality = l.Bool()
	}
	l.Align(4)

	c.RotationCurves = binutil.Array(l.Reader, 20, func(*binutil.Reader) VectorCurve[Vector4] {
		return readVectorCurve(l, 16, (*Layout).Vec4)
	})
	c.CompressedRotationCurves = binutil.Array(l.Reader, 52, func(*binutil.Reader) CompressedCurve {
		return readCompressedCurve(l)
	})
	if v.AtLeast(5, 3) {
		c.EulerCurves = readVector3Curves(l)
	}
	c.PositionCurves = readVector3Curves(l)
	c.ScaleCurves = readVector3Curves(l)
	c.FloatCurves = binutil.Array(l.Reader, 32, func(*binutil.Reader) FloatCurve {
		return readFloatCurve(l)
	})
	if v.AtLeast(4, 3) {
		c.PPtrCurves = binutil.Array(l.Reader, 28, func(*binutil.Reader) PPtrCurve {
			return readPPtrCurve(l)
		})
	}
	c.SampleRate = l.F32()
	c.WrapMode = l.I32()
	if v.AtLeast(3, 4) {
		center, extent := l.Vec3(), l.Vec3()
		c.BoundsMin = Vector3{X: center.X - extent.X, Y: center.Y - extent.Y, Z: center.Z - extent.Z}
		c.BoundsMax = Vector3{X: center.X + extent.X, Y: center.Y + extent.Y, Z: center.Z + extent.Z}
	}
	if v.AtLeast(4) {
		c.MuscleClipSize = l.U32()
		c.Muscle = readClipMuscle(l)
	}
	if v.AtLeast(4, 3) {
		c.Bindings = readClipBindings(l)
	}
	if v.AtLeast(2018, 3) {
		c.HasGenericRootTransform = l.Bool()
		c.HasMotionFloatCurves = l.Bool()
		l.Align(4)
	}
	c.Events = binutil.Array(l.Reader, 36, func(r *binutil.Reader) AnimationEvent {
		e := AnimationEvent{Time: r.F32()}
		e.FunctionName = r.AlignedString()
		e.Data = r.AlignedString()
		e.Object = ReadPPtr(r)
		e.Float = r.F32()
		if v.AtLeast(3) {
			e.Int = r.I32()
		}
		e.Options = r.I32()
		return e
	})
	if v.AtLeast(2017) {
		l.Align(4)
	}
	return c
}

// readKeys reads a keyframe array whose values take valueSize bytes.
func readKeys[T any](l *Layout, valueSize int, read func(*Layout) T) []VectorKey[T] {
	weighted := l.Engine.AtLeast(2018)
	keySize := 4 + 3*valueSize
	if weighted {
		keySize += 4 + 2*valueSize
	}
	return binutil.Array(l.Reader, keySize, func(*binutil.Reader) VectorKey[T] {
		k := VectorKey[T]{Time: l.F32(), Value: read(l), InSlope: read(l), OutSlope: read(l)}
		if weighted {
			l.I32()               // weightedMode
			l.Skip(2 * valueSize) // inWeight, outWeight
		}
		return k
	})
}

func readVectorCurve[T any](l *Layout, valueSize int, read func(*Layout) T) VectorCurve[T] {
	c := VectorCurve[T]{Keys: readKeys(l, valueSize, read)}
	c.PreWrap = l.I32()
	c.PostWrap = l.I32()
	if l.Engine.AtLeast(5, 3) {
		l.I32() // m_RotationOrder
	}
	c.Path = l.AlignedString()
	return c
}

func readVector3Curves(l *Layout) []VectorCurve[Vector3] {
	return binutil.Array(l.Reader, 20, func(*binutil.Reader) VectorCurve[Vector3] {
		return readVectorCurve(l, 12, (*Layout).Vec3)
	})
}

func readFloatCurve(l *Layout) FloatCurve {
	keys := readKeys(l, 4, func(l *Layout) float32 { return l.F32() })
	fc := FloatCurve{Keys: make([]Keyframe, len(keys))}
	for i, k := range keys {
		fc.Keys[i] = Keyframe{Time: k.Time, Value: k.Value, InSlope: k.InSlope, OutSlope: k.OutSlope}
	}
	fc.PreWrap = l.I32()
	fc.PostWrap = l.I32()
	if l.Engine.AtLeast(5, 3) {
		l.I32() // m_RotationOrder
	}
	fc.Attribute = l.AlignedString()
	fc.Path = l.AlignedString()
	fc.ClassID = l.I32()
	fc.Script = l.PPtr()
	return fc
}

func readCompressedCurve(l *Layout) CompressedCurve {
	c := CompressedCurve{Path: l.AlignedString()}

	c.Times.NumItems = l.U32()
	c.Times.Data = l.ByteArray()
	l.Align(4)
	c.Times.BitSize = l.U8()
	l.Align(4)

	c.Values.NumItems = l.U32()
	c.Values.Data = l.ByteArray()
	l.Align(4)

	c.Slopes.NumItems = l.U32()
	c.Slopes.Range = l.F32()
	c.Slopes.Start = l.F32()
	c.Slopes.Data = l.ByteArray()
	l.Align(4)
	c.Slopes.BitSize = l.U8()
	l.Align(4)

	c.PreWrap = l.I32()
	c.PostWrap = l.I32()
	return c
}

func readPPtrCurve(l *Layout) PPtrCurve {
	var c PPtrCurve
	c.Keys = binutil.Array(l.Reader, 16, func(r *binutil.Reader) PPtrKeyframe {
		return PPtrKeyframe{Time: r.F32(), Value: ReadPPtr(r)}
	})
	c.Attribute = l.AlignedString()
	c.Path = l.AlignedString()
	c.ClassID = l.I32()
	c.Script = l.PPtr()
	return c
}

// skipVec3 skips a Vector3, stored as a padded Vector4 before 5.4.
func (l *Layout) skipVec3() {
	if l.Engine.AtLeast(5, 4) {
		l.Skip(12)
	} else {
		l.Skip(16)
	}
}

func (l *Layout) skipXform() {
	l.skipVec3() // t
	l.Skip(16)   // q
	l.skipVec3() // s
}

func (l *Layout) skipF32s() { l.Skip(4 * l.Count(4)) }

func skipHumanPose(l *Layout) {
	v := l.Engine
	l.skipXform() // m_RootX
	l.skipVec3()  // m_LookAtPosition
	l.Skip(16)    // m_LookAtWeight
	binutil.Array(l.Reader, 40, func(*binutil.Reader) struct{} {
		l.skipXform()
		l.Skip(8) // m_WeightT, m_WeightR
		if v.AtLeast(5) {
			l.skipVec3() // m_HintT
			l.Skip(4)    // m_HintWeightT
		}
		return struct{}{}
	})
	for range 2 { // m_LeftHandPose, m_RightHandPose
		l.skipXform()
		l.skipF32s()
		l.Skip(16)
	}
	l.skipF32s() // m_DoFArray
	if v.AtLeast(5, 2) {
		size := 16
		if v.AtLeast(5, 4) {
			size = 12
		}
		l.Skip(size * l.Count(size)) // m_TDoFArray
	}
}

func readClipMuscle(l *Layout) ClipMuscle {
	v := l.Engine
	var m ClipMuscle
	skipHumanPose(l) // m_DeltaPose
	l.skipXform()    // m_StartX
	if v.AtLeast(5, 5) {
		l.skipXform() // m_StopX
	}
	l.skipXform() // m_LeftFootStartX
	l.skipXform() // m_RightFootStartX
	if !v.AtLeast(5) {
		l.skipXform() // m_MotionStartX
		l.skipXform() // m_MotionStopX
	}
	l.skipVec3() // m_AverageSpeed

	n := l.Count(4)
	m.StreamedData = make([]uint32, n)
	for i := range m.StreamedData {
		m.StreamedData[i] = l.U32()
	}
	m.StreamedCurveCount = l.U32()
	m.Dense = DenseClip{FrameCount: l.I32(), CurveCount: l.U32(), SampleRate: l.F32(), BeginTime: l.F32()}
	m.Dense.Samples = l.F32s()
	if v.AtLeast(4, 3) {
		m.Constants = l.F32s()
	}
	if !v.AtLeast(2018, 3) {
		size := 12
		if !v.AtLeast(5, 5) {
			size = 16
		}
		l.Skip(size * l.Count(size)) // m_Binding
	}

	m.StartTime = l.F32()
	m.StopTime = l.F32()
	l.Skip(16)   // orientation offset, level, cycle offset, angular speed
	l.skipF32s() // m_IndexArray
	if !v.AtLeast(4, 3) {
		l.skipF32s() // m_AdditionalCurveIndexArray
	}
	l.Skip(8 * l.Count(8)) // m_ValueArrayDelta
	if v.AtLeast(5, 3) {
		l.skipF32s() // m_ValueArrayReferencePose
	}
	m.Mirror = l.Bool()
	if v.AtLeast(4, 3) {
		m.LoopTime = l.Bool()
	}
	l.Skip(4) // loop blend flags
	if v.AtLeast(5, 5) {
		l.Skip(1) // m_StartAtOrigin
	}
	l.Skip(4) // keep original flags, height from feet
	l.Align(4)
	return m
}

func readClipBindings(l *Layout) ClipBindings {
	v := l.Engine
	var b ClipBindings
	b.Generic = binutil.Array(l.Reader, 24, func(r *binutil.Reader) GenericBinding {
		g := GenericBinding{Path: r.U32(), Attribute: r.U32(), Script: ReadPPtr(r)}
		if v.AtLeast(5, 6) {
			g.TypeID = r.I32()
		} else {
			g.TypeID = int32(r.U16())
		}
		g.CustomType = r.U8()
		g.IsPPtrCurve = r.Bool()
		if v.AtLeast(2022, 1) {
			g.IsIntCurve = r.Bool()
		}
		r.Align(4)
		return g
	})
	b.PPtrCurveMapping = l.PPtrs()
	return b
}
