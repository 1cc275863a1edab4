package graph

import "github.com/meigma/assetkit/internal/binutil"

// Texture2D is a 2D texture: pixel data in an engine pixel format, stored
// bottom row first.
type Texture2D struct {
	Name              string
	Width             int32
	Height            int32
	CompleteImageSize int32
	Format            int32
	MipCount          int32
	IsReadable        bool
	ImageCount        int32
	Dimension         int32
	ColorSpace        int32
	Settings          TextureSettings

	// Data holds the image bytes when they are stored inline.
	Data []byte
	// Stream locates the image bytes in an external resource when Data
	// is empty.
	Stream StreamingInfo
}

// TextureSettings are the sampler settings serialized with a texture.
type TextureSettings struct {
	FilterMode int32
	Aniso      int32
	MipBias    float32
	WrapU      int32
	WrapV      int32
	WrapW      int32
}

// StreamingInfo locates data stored outside the object.
type StreamingInfo struct {
	Offset uint64
	Size   uint32
	Path   string
}

// IsZero reports whether the stream reference is unset.
func (s StreamingInfo) IsZero() bool { return s.Path == "" && s.Size == 0 }

func (*Texture2D) payload() {}

// ObjectName returns the texture's name.
func (t *Texture2D) ObjectName() string { return t.Name }

func decodeTexture2D(l *Layout) Payload {
	v := l.Engine
	t := &Texture2D{Name: l.Name()}
	if v.AtLeast(2017, 3) {
		l.I32() // m_ForcedFallbackFormat
		l.Bool()
		if v.AtLeast(2020, 2) {
			l.Bool() // m_IsAlphaChannelOptional
		}
		l.Align(4)
	}
	t.Width = l.I32()
	t.Height = l.I32()
	t.CompleteImageSize = l.I32()
	if v.AtLeast(2020, 1) {
		l.I32() // m_MipsStripped
	}
	t.Format = l.I32()
	if v.AtLeast(5, 2) {
		t.MipCount = l.I32()
	} else {
		t.MipCount = 1
		if l.Bool() {
			t.MipCount = 2
		}
	}
	t.IsReadable = l.Bool()
	if v.AtLeast(2020, 1) {
		l.Bool() // m_IsPreProcessed
	}
	if v.AtLeast(2019, 3) {
		l.Bool() // m_IgnoreMasterTextureLimit
	}
	if v.AtLeast(3) && !v.AtLeast(5, 5) {
		l.Bool() // m_ReadAllowed
	}
	if v.AtLeast(2018, 2) {
		l.Bool() // m_StreamingMipmaps
	}
	l.Align(4)
	if v.AtLeast(2018, 2) {
		l.I32() // m_StreamingMipmapsPriority
	}
	t.ImageCount = l.I32()
	t.Dimension = l.I32()

	t.Settings.FilterMode = l.I32()
	t.Settings.Aniso = l.I32()
	t.Settings.MipBias = l.F32()
	t.Settings.WrapU = l.I32()
	if v.AtLeast(2017) {
		t.Settings.WrapV = l.I32()
		t.Settings.WrapW = l.I32()
	}
	if v.AtLeast(3) {
		l.I32() // m_LightmapFormat
	}
	if v.AtLeast(3, 5) {
		t.ColorSpace = l.I32()
	}
	if v.AtLeast(2020, 2) {
		l.ByteArray() // m_PlatformBlob
		l.Align(4)
	}

	size := l.Count(0)
	if size == 0 && v.AtLeast(5, 3) {
		t.Stream = readStreamingInfo(l)
		return t
	}
	t.Data = l.Bytes(size)
	return t
}

func readStreamingInfo(l *Layout) StreamingInfo {
	var s StreamingInfo
	if l.Engine.AtLeast(2020) {
		s.Offset = l.U64()
	} else {
		s.Offset = uint64(l.U32())
	}
	s.Size = l.U32()
	s.Path = l.AlignedString()
	return s
}

// TextAsset is an opaque text or binary blob.
type TextAsset struct {
	Name   string
	Script []byte
}

func (*TextAsset) payload() {}

// ObjectName returns the asset's name.
func (t *TextAsset) ObjectName() string { return t.Name }

func decodeTextAsset(l *Layout) Payload {
	t := &TextAsset{Name: l.Name()}
	t.Script = l.ByteArray()
	l.Align(4)
	return t
}

// GameObject is a scene node that owns components.
type GameObject struct {
	Name       string
	Components []PPtr
	Layer      uint32
}

func (*GameObject) payload() {}

// ObjectName returns the game object's name.
func (g *GameObject) ObjectName() string { return g.Name }

func decodeGameObject(l *Layout) Payload {
	g := &GameObject{}
	if l.Engine.AtLeast(5, 5) {
		g.Components = l.PPtrs()
	} else {
		// Older builds pair each component with its class id.
		g.Components = binutil.Array(l.Reader, 16, func(r *binutil.Reader) PPtr {
			r.I32()
			return ReadPPtr(r)
		})
	}
	g.Layer = l.U32()
	g.Name = l.AlignedString()
	return g
}
