package graph

import (
	"encoding/binary"

	"github.com/meigma/assetkit/internal/binutil"
)

// Sprite packing rotations stored in SpriteSettings.
const (
	RotationNone           = 0
	RotationFlipHorizontal = 1
	RotationFlipVertical   = 2
	RotationRotate180      = 3
	RotationRotate90       = 4
)

// Sprite packing modes.
const (
	PackingTight     = 0
	PackingRectangle = 1
)

// RenderDataKey links a sprite to its entry in an atlas render data map.
type RenderDataKey struct {
	GUID   [16]byte
	FileID int64
}

// SpriteSettings unpacks the packed settings word of sprite render data.
type SpriteSettings struct {
	Raw uint32
}

// Packed reports whether the sprite was packed into an atlas.
func (s SpriteSettings) Packed() bool { return s.Raw&1 != 0 }

// PackingMode returns PackingTight or PackingRectangle.
func (s SpriteSettings) PackingMode() int { return int(s.Raw>>1) & 1 }

// PackingRotation returns one of the Rotation constants.
func (s SpriteSettings) PackingRotation() int { return int(s.Raw>>2) & 0xf }

// MeshType returns 0 for full-rect meshes and 1 for tight meshes.
func (s SpriteSettings) MeshType() int { return int(s.Raw>>6) & 1 }

// SpriteRenderData is what the renderer needs to draw a sprite: a texture,
// where the sprite sits in it, and the sprite's triangle mesh.
//
// From 5.6 the mesh is stored as submeshes over an index buffer and vertex
// data; earlier versions store Vertices and Indices directly.
type SpriteRenderData struct {
	Texture             PPtr
	AlphaTexture        PPtr
	SubMeshes           []SubMesh
	IndexBuffer         []byte
	VertexData          VertexData
	Vertices            []Vector3
	Indices             []uint16
	BindPose            []Matrix4x4
	TextureRect         Rect
	TextureRectOffset   Vector2
	AtlasRectOffset     Vector2
	Settings            SpriteSettings
	UVTransform         Vector4
	DownscaleMultiplier float32
}

// Triangles returns the mesh as vertex triples. Incomplete trailing
// indices and out-of-range indices are dropped, as is a submesh whose
// vertices run past the vertex data.
func (rd *SpriteRenderData) Triangles() [][3]Vector2 {
	if len(rd.SubMeshes) > 0 {
		return rd.subMeshTriangles()
	}
	out := make([][3]Vector2, 0, len(rd.Indices)/3)
	for i := 0; i+2 < len(rd.Indices); i += 3 {
		var tri [3]Vector2
		ok := true
		for k := range 3 {
			idx := int(rd.Indices[i+k])
			if idx >= len(rd.Vertices) {
				ok = false
				break
			}
			tri[k] = Vector2{X: rd.Vertices[idx].X, Y: rd.Vertices[idx].Y}
		}
		if ok {
			out = append(out, tri)
		}
	}
	return out
}

func (rd *SpriteRenderData) subMeshTriangles() [][3]Vector2 {
	var out [][3]Vector2
	for _, sm := range rd.SubMeshes {
		verts, ok := rd.VertexData.positions(sm.FirstVertex, sm.VertexCount)
		if !ok {
			continue
		}
		for t := range int64(sm.IndexCount / 3) {
			at := int64(sm.FirstByte) + t*6
			if at+6 > int64(len(rd.IndexBuffer)) {
				break
			}
			var tri [3]Vector2
			ok := true
			for k := range 3 {
				idx := int64(binary.LittleEndian.Uint16(rd.IndexBuffer[at+int64(k)*2:])) - int64(sm.FirstVertex)
				if idx < 0 || idx >= int64(len(verts)) {
					ok = false
					break
				}
				tri[k] = verts[idx]
			}
			if ok {
				out = append(out, tri)
			}
		}
	}
	return out
}

// Sprite is a rectangular region of a texture with an optional mesh.
type Sprite struct {
	Name          string
	Rect          Rect
	Offset        Vector2
	Border        Vector4
	PixelsToUnits float32
	Pivot         Vector2
	Extrude       uint32
	IsPolygon     bool
	RenderDataKey RenderDataKey
	AtlasTags     []string
	SpriteAtlas   PPtr
	RenderData    SpriteRenderData
}

func (*Sprite) payload() {}

// ObjectName returns the sprite's name.
func (s *Sprite) ObjectName() string { return s.Name }

func decodeSprite(l *Layout) Payload {
	v := l.Engine
	s := &Sprite{Name: l.Name(), Pivot: Vector2{X: 0.5, Y: 0.5}}
	s.Rect = l.Rect()
	s.Offset = l.Vec2()
	if v.AtLeast(4, 5) {
		s.Border = l.Vec4()
	}
	s.PixelsToUnits = l.F32()
	if v.AtLeast(5, 4, 2) {
		s.Pivot = l.Vec2()
	}
	s.Extrude = l.U32()
	if v.AtLeast(5, 3) {
		s.IsPolygon = l.Bool()
		l.Align(4)
	}
	if v.AtLeast(2017) {
		s.RenderDataKey = readRenderDataKey(l)
		s.AtlasTags = l.Strings()
		s.SpriteAtlas = l.PPtr()
	}
	s.RenderData = readSpriteRenderData(l)
	return s
}

func readRenderDataKey(l *Layout) RenderDataKey {
	var k RenderDataKey
	copy(k.GUID[:], l.Bytes(16))
	k.FileID = l.I64()
	return k
}

func readSpriteRenderData(l *Layout) SpriteRenderData {
	v := l.Engine
	rd := SpriteRenderData{Texture: l.PPtr(), DownscaleMultiplier: 1}
	if v.AtLeast(5, 2) {
		rd.AlphaTexture = l.PPtr()
	}
	if v.AtLeast(2019) {
		skipSecondaryTextures(l)
	}
	if v.AtLeast(5, 6) {
		rd.SubMeshes = binutil.Array(l.Reader, 44, func(*binutil.Reader) SubMesh { return readSubMesh(l) })
		rd.IndexBuffer = l.ByteArray()
		l.Align(4)
		rd.VertexData = readVertexData(l)
	} else {
		uv := !v.AtLeast(4, 4)
		rd.Vertices = binutil.Array(l.Reader, 12, func(r *binutil.Reader) Vector3 {
			p := Vector3{X: r.F32(), Y: r.F32(), Z: r.F32()}
			if uv {
				r.Skip(8)
			}
			return p
		})
		rd.Indices = l.U16s()
	}
	if v.AtLeast(2018) {
		rd.BindPose = binutil.Array(l.Reader, 64, func(r *binutil.Reader) Matrix4x4 {
			var m Matrix4x4
			for i := range m {
				m[i] = r.F32()
			}
			return m
		})
		if !v.AtLeast(2018, 2) {
			// m_SourceSkin: four weights and four bone indices per vertex.
			binutil.Array(l.Reader, 32, func(r *binutil.Reader) struct{} {
				r.Skip(32)
				return struct{}{}
			})
		}
	}
	rd.TextureRect = l.Rect()
	rd.TextureRectOffset = l.Vec2()
	if v.AtLeast(5, 6) {
		rd.AtlasRectOffset = l.Vec2()
	}
	rd.Settings = SpriteSettings{Raw: l.U32()}
	if v.AtLeast(4, 5) {
		rd.UVTransform = l.Vec4()
	}
	if v.AtLeast(2017) {
		rd.DownscaleMultiplier = l.F32()
	}
	return rd
}

func skipSecondaryTextures(l *Layout) {
	binutil.Array(l.Reader, 16, func(r *binutil.Reader) struct{} {
		ReadPPtr(r)
		r.AlignedString()
		return struct{}{}
	})
}

// SpriteAtlasData is an atlas's render data for one packed sprite.
type SpriteAtlasData struct {
	Texture             PPtr
	AlphaTexture        PPtr
	TextureRect         Rect
	TextureRectOffset   Vector2
	AtlasRectOffset     Vector2
	UVTransform         Vector4
	DownscaleMultiplier float32
	Settings            SpriteSettings
}

// SpriteAtlas packs several sprites into shared textures.
type SpriteAtlas struct {
	Name          string
	PackedSprites []PPtr
	PackedNames   []string
	RenderData    map[RenderDataKey]SpriteAtlasData
	Tag           string
	IsVariant     bool
}

func (*SpriteAtlas) payload() {}

// ObjectName returns the atlas's name.
func (a *SpriteAtlas) ObjectName() string { return a.Name }

func decodeSpriteAtlas(l *Layout) Payload {
	v := l.Engine
	a := &SpriteAtlas{Name: l.Name()}
	a.PackedSprites = l.PPtrs()
	a.PackedNames = l.Strings()
	n := l.Count(24 + 48)
	a.RenderData = make(map[RenderDataKey]SpriteAtlasData, n)
	for range n {
		key := readRenderDataKey(l)
		d := SpriteAtlasData{Texture: l.PPtr(), AlphaTexture: l.PPtr()}
		d.TextureRect = l.Rect()
		d.TextureRectOffset = l.Vec2()
		if v.AtLeast(2017, 2) {
			d.AtlasRectOffset = l.Vec2()
		}
		d.UVTransform = l.Vec4()
		d.DownscaleMultiplier = l.F32()
		d.Settings = SpriteSettings{Raw: l.U32()}
		if v.AtLeast(2020, 2) {
			skipSecondaryTextures(l)
		}
		if l.Err() != nil {
			return a
		}
		a.RenderData[key] = d
	}
	a.Tag = l.AlignedString()
	a.IsVariant = l.Bool()
	l.Align(4)
	return a
}
