package graph

import (
	"math"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/meigma/assetkit/internal/asseterr"
	"github.com/meigma/assetkit/internal/testutil"
)

func decodeOne(t *testing.T, classID int32, data []byte) Payload {
	t.Helper()
	return decodeEngine(t, "", classID, data)
}

// decodeEngine decodes a one-object container written for engine.
func decodeEngine(t *testing.T, engine string, classID int32, data []byte) Payload {
	t.Helper()
	c := mustParse(t, testutil.BuildContainer(t, testutil.ContainerSpec{
		Engine:  engine,
		Objects: []testutil.Object{{PathID: 1, ClassID: classID, Data: data}},
	}))
	o, ok := c.Object(1)
	require.True(t, ok)
	p, err := o.Decode()
	require.NoError(t, err)
	return p
}

func TestDecodeMemoised(t *testing.T) {
	t.Parallel()

	c := mustParse(t, testutil.BuildContainer(t, sampleSpec()))
	o, _ := c.Object(7)

	const n = 16
	results := make([]Payload, n)
	var wg sync.WaitGroup
	for i := range n {
		wg.Add(1)
		go func() {
			defer wg.Done()
			p, err := o.Decode()
			assert.NoError(t, err)
			results[i] = p
		}()
	}
	wg.Wait()
	for i := range results {
		assert.Same(t, results[0], results[i])
	}
	ta, ok := results[0].(*TextAsset)
	require.True(t, ok)
	assert.Equal(t, "seven", ta.Name)
	assert.Equal(t, []byte("7"), ta.Script)
}

func TestDecodeTruncatedIsolated(t *testing.T) {
	t.Parallel()

	full := testutil.TextAsset("whole", []byte("payload"))
	c := mustParse(t, testutil.BuildContainer(t, testutil.ContainerSpec{
		Objects: []testutil.Object{
			{PathID: 1, ClassID: ClassTextAsset, Data: full[:6]},
			{PathID: 2, ClassID: ClassTextAsset, Data: full},
		},
	}))

	bad, _ := c.Object(1)
	_, err := bad.Decode()
	require.ErrorIs(t, err, asseterr.ErrDecode)
	var de *asseterr.DecodeError
	require.ErrorAs(t, err, &de)
	assert.Equal(t, "test.assets", de.Container)
	assert.Equal(t, int64(1), de.PathID)
	assert.Equal(t, "TextAsset", de.Class)

	// The failure is memoised too.
	_, err2 := bad.Decode()
	assert.Same(t, err, err2)

	good, _ := c.Object(2)
	p, err := good.Decode()
	require.NoError(t, err)
	assert.Equal(t, "whole", PayloadName(p))
}

func TestDecodeUnknown(t *testing.T) {
	t.Parallel()

	p := decodeOne(t, 9999, []byte{9, 8, 7})
	u, ok := p.(*Unknown)
	require.True(t, ok)
	assert.Equal(t, int32(9999), u.ClassID)
	assert.Equal(t, []byte{9, 8, 7}, u.Raw)
	assert.Equal(t, "", PayloadName(p))
	assert.Equal(t, "Class9999", ClassName(9999))
	assert.Equal(t, "Transform", ClassName(4))
}

func TestDecodeTexture2D(t *testing.T) {
	t.Parallel()

	t.Run("inline", func(t *testing.T) {
		t.Parallel()
		p := decodeOne(t, ClassTexture2D, testutil.Texture2D(testutil.TextureSpec{
			Name: "atlas", Width: 2, Height: 1, Format: 4, Data: []byte{1, 2, 3, 4, 5, 6, 7, 8},
		}))
		tex, ok := p.(*Texture2D)
		require.True(t, ok)
		assert.Equal(t, "atlas", tex.Name)
		assert.Equal(t, int32(2), tex.Width)
		assert.Equal(t, int32(1), tex.Height)
		assert.Equal(t, int32(4), tex.Format)
		assert.Equal(t, []byte{1, 2, 3, 4, 5, 6, 7, 8}, tex.Data)
		assert.True(t, tex.Stream.IsZero())
	})

	t.Run("streamed", func(t *testing.T) {
		t.Parallel()
		p := decodeOne(t, ClassTexture2D, testutil.Texture2D(testutil.TextureSpec{
			Name: "big", Width: 4, Height: 4, Format: 4,
			StreamPath: "archive:/CAB-1/CAB-1.resS", StreamOffset: 64, StreamSize: 64,
		}))
		tex := p.(*Texture2D)
		assert.Empty(t, tex.Data)
		assert.Equal(t, StreamingInfo{Offset: 64, Size: 64, Path: "archive:/CAB-1/CAB-1.resS"}, tex.Stream)
	})
}

func TestDecodeSpriteAndAtlas(t *testing.T) {
	t.Parallel()

	key := [16]byte{1, 2, 3}
	p := decodeOne(t, ClassSprite, testutil.Sprite(testutil.SpriteSpec{
		Name:        "hero",
		Rect:        [4]float32{0, 0, 10, 10},
		Pivot:       [2]float32{0.5, 0.5},
		RenderKey:   key,
		RenderKeyID: 21,
		Atlas:       testutil.Ref{PathID: 9},
		RenderData: testutil.RenderData{
			Texture:     testutil.Ref{PathID: 3},
			Vertices:    [][2]float32{{-1, -1}, {1, -1}, {1, 1}},
			Indices:     []uint16{0, 1, 2},
			TextureRect: [4]float32{2, 3, 10, 10},
			Settings:    1 | 4<<2,
		},
	}))
	s, ok := p.(*Sprite)
	require.True(t, ok)
	assert.Equal(t, "hero", s.Name)
	assert.Equal(t, Rect{Width: 10, Height: 10}, s.Rect)
	assert.Equal(t, float32(100), s.PixelsToUnits)
	assert.Equal(t, RenderDataKey{GUID: key, FileID: 21}, s.RenderDataKey)
	assert.Equal(t, PPtr{PathID: 9}, s.SpriteAtlas)
	assert.Equal(t, PPtr{PathID: 3}, s.RenderData.Texture)
	assert.Equal(t, Rect{X: 2, Y: 3, Width: 10, Height: 10}, s.RenderData.TextureRect)
	assert.True(t, s.RenderData.Settings.Packed())
	assert.Equal(t, RotationRotate90, s.RenderData.Settings.PackingRotation())
	assert.Equal(t, PackingTight, s.RenderData.Settings.PackingMode())
	assert.Equal(t, [][3]Vector2{{{X: -1, Y: -1}, {X: 1, Y: -1}, {X: 1, Y: 1}}}, s.RenderData.Triangles())

	p = decodeOne(t, ClassSpriteAtlas, testutil.SpriteAtlas("atlas", []testutil.Ref{{PathID: 5}}, []testutil.AtlasEntry{
		{Key: key, KeyID: 21, Texture: testutil.Ref{PathID: 3}, TextureRect: [4]float32{4, 4, 8, 8}, Settings: 3},
	}))
	a, ok := p.(*SpriteAtlas)
	require.True(t, ok)
	assert.Equal(t, []PPtr{{PathID: 5}}, a.PackedSprites)
	d, ok := a.RenderData[RenderDataKey{GUID: key, FileID: 21}]
	require.True(t, ok)
	assert.Equal(t, Rect{X: 4, Y: 4, Width: 8, Height: 8}, d.TextureRect)
	assert.Equal(t, float32(1), d.DownscaleMultiplier)
	assert.Equal(t, PackingRectangle, d.Settings.PackingMode())
}

func TestDecodeSpriteMeshLayouts(t *testing.T) {
	t.Parallel()

	vertices := [][2]float32{{0, 0}, {1, 0}, {1, 1}, {5, 5}, {6, 5}, {6, 6}}
	indices := []uint16{0, 1, 2, 3, 4, 5}
	want := [][3]Vector2{
		{{X: 0, Y: 0}, {X: 1, Y: 0}, {X: 1, Y: 1}},
		{{X: 5, Y: 5}, {X: 6, Y: 5}, {X: 6, Y: 6}},
	}
	split := []testutil.SubMesh{
		{FirstIndex: 0, IndexCount: 3, FirstVertex: 0, VertexCount: 3},
		{FirstIndex: 3, IndexCount: 3, FirstVertex: 3, VertexCount: 3},
	}

	tests := []struct {
		name   string
		engine string
		layout int
		rd     testutil.RenderData
		check  func(t *testing.T, rd *SpriteRenderData)
	}{
		{
			name: "submeshes with interleaved uv",
			rd:   testutil.RenderData{Vertices: vertices, Indices: indices, SubMeshes: split, UV: true, BindPoses: 2},
			check: func(t *testing.T, rd *SpriteRenderData) {
				require.Len(t, rd.SubMeshes, 2)
				assert.Equal(t, uint32(6), rd.SubMeshes[1].FirstByte)
				assert.Equal(t, uint32(3), rd.SubMeshes[1].FirstVertex)
				require.Len(t, rd.VertexData.Streams, 1)
				assert.Equal(t, uint32(20), rd.VertexData.Streams[0].Stride)
				assert.Equal(t, uint32(6), rd.VertexData.VertexCount)
				require.Len(t, rd.BindPose, 2)
				assert.Equal(t, float32(1), rd.BindPose[0][15])
				assert.Empty(t, rd.Vertices)
			},
		},
		{
			name:   "2018.1 source skin",
			engine: "2018.1.0f1",
			layout: testutil.SpriteLayout2018,
			rd:     testutil.RenderData{Vertices: vertices, Indices: indices, SubMeshes: split, BindPoses: 1},
			check: func(t *testing.T, rd *SpriteRenderData) {
				assert.Equal(t, uint32(12), rd.VertexData.Streams[0].Stride)
				assert.Len(t, rd.BindPose, 1)
			},
		},
		{
			name:   "5.5 inline vertices",
			engine: "5.5.0f1",
			layout: testutil.SpriteLayout55,
			rd:     testutil.RenderData{Vertices: vertices, Indices: indices},
			check: func(t *testing.T, rd *SpriteRenderData) {
				assert.Empty(t, rd.SubMeshes)
				assert.Len(t, rd.Vertices, 6)
				assert.Equal(t, indices, rd.Indices)
				assert.Equal(t, float32(1), rd.DownscaleMultiplier)
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			rd := tt.rd
			rd.Texture = testutil.Ref{PathID: 3}
			rd.TextureRect = [4]float32{1, 2, 3, 4}
			rd.Settings = 1
			p := decodeEngine(t, tt.engine, ClassSprite, testutil.Sprite(testutil.SpriteSpec{
				Name:       "mesh",
				Rect:       [4]float32{0, 0, 8, 8},
				RenderData: rd,
				Layout:     tt.layout,
			}))
			s, ok := p.(*Sprite)
			require.True(t, ok)
			assert.Equal(t, "mesh", s.Name)
			assert.Equal(t, PPtr{PathID: 3}, s.RenderData.Texture)
			assert.Equal(t, Rect{X: 1, Y: 2, Width: 3, Height: 4}, s.RenderData.TextureRect)
			assert.True(t, s.RenderData.Settings.Packed())
			assert.Equal(t, want, s.RenderData.Triangles())
			tt.check(t, &s.RenderData)
		})
	}
}

func TestSpriteTrianglesBounds(t *testing.T) {
	t.Parallel()

	pos := testutil.NewWriter()
	for _, v := range [][2]float32{{0, 0}, {1, 0}, {1, 1}} {
		pos.F32(v[0])
		pos.F32(v[1])
		pos.F32(0)
	}
	idx := testutil.NewWriter()
	for _, i := range []uint16{0, 1, 2, 0, 1, 9} {
		idx.U16(i)
	}
	rd := SpriteRenderData{
		IndexBuffer: idx.Bytes(),
		VertexData: VertexData{
			VertexCount: 3,
			Channels:    []ChannelInfo{{Format: 0, Dimension: 3}},
			Streams:     []StreamInfo{{ChannelMask: 1, Stride: 12}},
			Data:        pos.Bytes(),
		},
		SubMeshes: []SubMesh{
			// Second triangle points past the submesh's vertices.
			{FirstByte: 0, IndexCount: 6, VertexCount: 3},
			// Vertices run past the data.
			{FirstByte: 0, IndexCount: 3, FirstVertex: 1, VertexCount: 3},
			// Index range runs past the buffer.
			{FirstByte: 10, IndexCount: 3, VertexCount: 3},
		},
	}
	assert.Equal(t, [][3]Vector2{{{X: 0, Y: 0}, {X: 1, Y: 0}, {X: 1, Y: 1}}}, rd.Triangles())
}

func TestVertexFormatSize(t *testing.T) {
	t.Parallel()

	v2019, err := ParseVersion("2019.4.31f1")
	require.NoError(t, err)
	v2017, err := ParseVersion("2017.4.0f1")
	require.NoError(t, err)
	v5, err := ParseVersion("5.6.0f1")
	require.NoError(t, err)

	tests := []struct {
		v      Version
		format uint8
		size   uint32
		ok     bool
	}{
		{v2019, 0, 4, true},
		{v2019, 2, 1, true},
		{v2019, 4, 2, true},
		{v2019, 11, 4, true},
		{v2019, 12, 0, false},
		{v2017, 2, 1, true},
		{v2017, 5, 2, true},
		{v2017, 12, 4, true},
		{v5, 3, 1, true},
		{v5, 4, 4, true},
		{v5, 5, 0, false},
	}
	for _, tt := range tests {
		size, ok := vertexFormatSize(tt.v, tt.format)
		assert.Equal(t, tt.ok, ok, "%s format %d", tt.v, tt.format)
		assert.Equal(t, tt.size, size, "%s format %d", tt.v, tt.format)
	}
}

func TestDecodeAnimationClip(t *testing.T) {
	t.Parallel()

	inf := float32(math.Inf(1))
	p := decodeOne(t, ClassAnimationClip, testutil.AnimationClip("idle", 30, []testutil.Curve{
		{Path: "Parameters/ParamAngleX", Attribute: "m_Value", Keys: []testutil.Key{{Time: 0, Value: 0, In: 0, Out: 0}, {Time: 2, Value: 5, In: inf, Out: 0}}},
	}, []testutil.Event{{Time: 1, Data: "blink"}}))
	clip, ok := p.(*AnimationClip)
	require.True(t, ok)
	assert.Equal(t, "idle", clip.Name)
	assert.Equal(t, float32(30), clip.SampleRate)
	assert.Equal(t, int32(WrapLoop), clip.WrapMode)
	require.Len(t, clip.FloatCurves, 1)
	fc := clip.FloatCurves[0]
	assert.Equal(t, "Parameters/ParamAngleX", fc.Path)
	assert.Equal(t, "m_Value", fc.Attribute)
	assert.Equal(t, []Keyframe{{Time: 0}, {Time: 2, Value: 5, InSlope: inf}}, fc.Keys)
	assert.Equal(t, float32(2), clip.Duration())
	require.Len(t, clip.Events, 1)
	assert.Equal(t, "blink", clip.Events[0].Data)
}

func TestDecodeAnimationClipAllCurves(t *testing.T) {
	t.Parallel()

	p := decodeOne(t, ClassAnimationClip, testutil.Clip(testutil.ClipSpec{
		Name:       "wave",
		SampleRate: 60,
		Rotations: []testutil.VectorCurve{{Path: "Arm", Keys: []testutil.VectorKey{
			{Time: 0, Value: [4]float32{0, 0, 0, 1}},
			{Time: 0.5, Value: [4]float32{0, 0.7, 0, 0.7}},
		}}},
		Compressed: []string{"Arm/Hand"},
		Positions: []testutil.VectorCurve{{Path: "Body", Keys: []testutil.VectorKey{
			{Time: 0.25, Value: [4]float32{1, 2, 3}},
		}}},
		Curves: []testutil.Curve{
			{Path: "Parameters/ParamArmR", Attribute: "m_Value", Keys: []testutil.Key{{Time: 0, Value: 0, In: 0, Out: 0}, {Time: 1.5, Value: 30, In: 0, Out: 0}}},
		},
		PPtrCurves: []testutil.PPtrCurve{{Path: "Face", Attribute: "m_Sprite", Keys: []testutil.PPtrKey{
			{Time: 0.5, Value: testutil.Ref{PathID: 40}},
		}}},
		Dense:    []float32{1, 2, 3},
		StopTime: 1.5,
		Bindings: []testutil.Binding{{Path: 0xdeadbeef, Attribute: 1, TypeID: 4}},
		Events:   []testutil.Event{{Time: 0.75, Data: "wave"}},
	}))
	clip, ok := p.(*AnimationClip)
	require.True(t, ok)
	assert.Equal(t, "wave", clip.Name)

	require.Len(t, clip.RotationCurves, 1)
	assert.Equal(t, "Arm", clip.RotationCurves[0].Path)
	require.Len(t, clip.RotationCurves[0].Keys, 2)
	assert.Equal(t, Vector4{Y: 0.7, W: 0.7}, clip.RotationCurves[0].Keys[1].Value)
	require.Len(t, clip.CompressedRotationCurves, 1)
	cc := clip.CompressedRotationCurves[0]
	assert.Equal(t, "Arm/Hand", cc.Path)
	assert.Equal(t, uint32(2), cc.Times.NumItems)
	assert.Equal(t, uint8(4), cc.Times.BitSize)
	assert.Equal(t, []byte{1, 2, 3, 4}, cc.Values.Data)
	assert.Equal(t, float32(1), cc.Slopes.Range)
	require.Len(t, clip.PositionCurves, 1)
	assert.Equal(t, "Body", clip.PositionCurves[0].Path)
	assert.Equal(t, []VectorKey[Vector3]{{Time: 0.25, Value: Vector3{X: 1, Y: 2, Z: 3}}}, clip.PositionCurves[0].Keys)
	assert.Empty(t, clip.EulerCurves)
	assert.Empty(t, clip.ScaleCurves)

	require.Len(t, clip.FloatCurves, 1)
	assert.Equal(t, "Parameters/ParamArmR", clip.FloatCurves[0].Path)
	assert.Equal(t, []Keyframe{{Time: 0}, {Time: 1.5, Value: 30}}, clip.FloatCurves[0].Keys)
	assert.Equal(t, float32(1.5), clip.Duration())

	require.Len(t, clip.PPtrCurves, 1)
	assert.Equal(t, "m_Sprite", clip.PPtrCurves[0].Attribute)
	assert.Equal(t, []PPtrKeyframe{{Time: 0.5, Value: PPtr{PathID: 40}}}, clip.PPtrCurves[0].Keys)

	assert.Equal(t, float32(60), clip.SampleRate)
	assert.Equal(t, uint32(1024), clip.MuscleClipSize)
	assert.Equal(t, []float32{1, 2, 3}, clip.Muscle.Dense.Samples)
	assert.Equal(t, uint32(1), clip.Muscle.Dense.CurveCount)
	assert.Equal(t, float32(1.5), clip.Muscle.StopTime)
	assert.True(t, clip.Muscle.LoopTime)
	require.Len(t, clip.Bindings.Generic, 1)
	assert.Equal(t, GenericBinding{Path: 0xdeadbeef, Attribute: 1, TypeID: 4}, clip.Bindings.Generic[0])
	assert.True(t, clip.HasMotionFloatCurves)

	require.Len(t, clip.Events, 1)
	assert.Equal(t, float32(0.75), clip.Events[0].Time)
	assert.Equal(t, "wave", clip.Events[0].Data)
}

func TestDecodeScriptsAndIndexes(t *testing.T) {
	t.Parallel()

	p := decodeOne(t, ClassMonoScript, testutil.MonoScript("Stats", "Game", "Assembly-CSharp.dll"))
	ms, ok := p.(*MonoScript)
	require.True(t, ok)
	assert.Equal(t, "Game.Stats", ms.Identity().FullName())
	assert.Equal(t, "Assembly-CSharp.dll", ms.AssemblyName)

	fields := testutil.NewWriter()
	fields.I32(42)
	p = decodeOne(t, ClassMonoBehaviour, testutil.MonoBehaviour(testutil.Ref{PathID: 2}, testutil.Ref{PathID: 3}, "stats", fields.Bytes()))
	mb, ok := p.(*MonoBehaviour)
	require.True(t, ok)
	assert.Equal(t, PPtr{PathID: 3}, mb.Script)
	assert.Equal(t, "stats", mb.Name)
	assert.True(t, mb.Enabled)
	assert.Equal(t, 12+4+12+4+8, mb.FieldsOffset)

	p = decodeOne(t, ClassAssetBundle, testutil.AssetBundle("bundle", []testutil.Ref{{PathID: 10}, {PathID: 11}, {PathID: 12}}, []testutil.BundleEntry{
		{Path: "assets/a.png", PreloadIndex: 0, PreloadSize: 2, Asset: testutil.Ref{PathID: 10}},
		{Path: "assets/b.png", PreloadIndex: 2, PreloadSize: 5, Asset: testutil.Ref{PathID: 12}},
	}))
	ab, ok := p.(*AssetBundle)
	require.True(t, ok)
	require.Len(t, ab.Container, 2)
	assert.Equal(t, []PPtr{{PathID: 10}, {PathID: 11}}, ab.Preload(ab.Container[0].Info))
	assert.Equal(t, []PPtr{{PathID: 12}}, ab.Preload(ab.Container[1].Info), "span is clipped to the table")

	p = decodeOne(t, ClassResourceManager, testutil.ResourceManager([]testutil.ResourceEntry{
		{Path: "ui/icon", Object: testutil.Ref{PathID: 4}},
	}))
	rm, ok := p.(*ResourceManager)
	require.True(t, ok)
	assert.Equal(t, []ResourceEntry{{Path: "ui/icon", Object: PPtr{PathID: 4}}}, rm.Container)

	p = decodeOne(t, ClassGameObject, testutil.GameObject("root", []testutil.Ref{{PathID: 8}}))
	gobj, ok := p.(*GameObject)
	require.True(t, ok)
	assert.Equal(t, "root", gobj.Name)
	assert.Equal(t, []PPtr{{PathID: 8}}, gobj.Components)
}

func TestObjectReader(t *testing.T) {
	t.Parallel()

	c := mustParse(t, testutil.BuildContainer(t, sampleSpec()))
	o, _ := c.Object(1)
	r := o.Reader()
	assert.Equal(t, 5, r.Len())
	assert.Equal(t, uint8(1), r.U8())
	// Each call starts over.
	assert.Equal(t, 0, o.Reader().Pos())
}
