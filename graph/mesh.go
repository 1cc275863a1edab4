package graph

import (
	"encoding/binary"
	"fmt"
	"math"

	"github.com/meigma/assetkit/internal/binutil"
)

// Matrix4x4 is a column-major 4x4 float matrix.
type Matrix4x4 [16]float32

// AABB is an axis-aligned box stored as center and extent.
type AABB struct {
	Center Vector3
	Extent Vector3
}

// SubMesh is one index range of a mesh. FirstByte addresses the index
// buffer; FirstVertex and VertexCount address the vertex data.
type SubMesh struct {
	FirstByte     uint32
	IndexCount    uint32
	Topology      int32
	TriangleCount uint32
	BaseVertex    uint32
	FirstVertex   uint32
	VertexCount   uint32
	LocalAABB     AABB
}

func readSubMesh(l *Layout) SubMesh {
	v := l.Engine
	var sm SubMesh
	sm.FirstByte = l.U32()
	sm.IndexCount = l.U32()
	sm.Topology = l.I32()
	if !v.AtLeast(4) {
		sm.TriangleCount = l.U32()
	}
	if v.AtLeast(2017, 3) {
		sm.BaseVertex = l.U32()
	}
	if v.AtLeast(3) {
		sm.FirstVertex = l.U32()
		sm.VertexCount = l.U32()
		sm.LocalAABB = AABB{Center: l.Vec3(), Extent: l.Vec3()}
	}
	return sm
}

// ChannelInfo places one vertex attribute inside a stream.
type ChannelInfo struct {
	Stream    uint8
	Offset    uint8
	Format    uint8
	Dimension uint8
}

// StreamInfo is one interleaved run of vertex data.
type StreamInfo struct {
	ChannelMask uint32
	Offset      uint32
	Stride      uint32
}

// VertexData is a mesh's vertex buffer: the channel layout and the raw
// bytes it describes.
type VertexData struct {
	CurrentChannels uint32
	VertexCount     uint32
	Channels        []ChannelInfo
	Streams         []StreamInfo
	Data            []byte
}

// readVertexData reads the 5.0+ layout, where streams are derived from the
// channels rather than stored.
func readVertexData(l *Layout) VertexData {
	v := l.Engine
	var vd VertexData
	if !v.AtLeast(2018) {
		vd.CurrentChannels = l.U32()
	}
	vd.VertexCount = l.U32()
	vd.Channels = binutil.Array(l.Reader, 4, func(r *binutil.Reader) ChannelInfo {
		return ChannelInfo{Stream: r.U8(), Offset: r.U8(), Format: r.U8(), Dimension: r.U8() & 0xf}
	})
	vd.Streams = vertexStreams(l, vd)
	vd.Data = l.ByteArray()
	l.Align(4)
	return vd
}

func vertexStreams(l *Layout, vd VertexData) []StreamInfo {
	var count int
	for _, ch := range vd.Channels {
		count = max(count, int(ch.Stream)+1)
	}
	streams := make([]StreamInfo, count)
	var offset uint32
	for s := range streams {
		var mask, stride uint32
		for i, ch := range vd.Channels {
			if int(ch.Stream) != s || ch.Dimension == 0 {
				continue
			}
			size, ok := vertexFormatSize(l.Engine, ch.Format)
			if !ok {
				l.Fail(fmt.Errorf("graph: channel %d has unknown vertex format %d", i, ch.Format))
				return nil
			}
			mask |= 1 << i
			stride += uint32(ch.Dimension) * size
		}
		streams[s] = StreamInfo{ChannelMask: mask, Offset: offset, Stride: stride}
		offset += vd.VertexCount * stride
		offset = (offset + 15) &^ 15
	}
	return streams
}

// vertexFormatSize returns the byte size of one component of format.
// Format numbering changed in 2017 and again in 2019.
func vertexFormatSize(v Version, format uint8) (uint32, bool) {
	var sizes []uint32
	switch {
	case v.AtLeast(2019):
		sizes = []uint32{4, 2, 1, 1, 2, 2, 1, 1, 2, 2, 4, 4}
	case v.AtLeast(2017):
		sizes = []uint32{4, 2, 1, 1, 1, 2, 2, 1, 1, 2, 2, 4, 4}
	default:
		sizes = []uint32{4, 2, 1, 1, 4}
	}
	if int(format) >= len(sizes) {
		return 0, false
	}
	return sizes[format], true
}

// positions reads count float3 positions of channel 0 starting at vertex
// first. It reports false when the range runs past the data.
func (vd *VertexData) positions(first, count uint32) ([]Vector2, bool) {
	if len(vd.Channels) == 0 || int(vd.Channels[0].Stream) >= len(vd.Streams) {
		return nil, false
	}
	ch := vd.Channels[0]
	st := vd.Streams[ch.Stream]
	if st.Stride < 12 {
		return nil, false
	}
	base := int64(st.Offset) + int64(first)*int64(st.Stride) + int64(ch.Offset)
	if last := base + int64(count)*int64(st.Stride); count > 0 && last-int64(st.Stride)+12 > int64(len(vd.Data)) {
		return nil, false
	}
	out := make([]Vector2, count)
	for i := range out {
		at := base + int64(i)*int64(st.Stride)
		out[i] = Vector2{
			X: math.Float32frombits(binary.LittleEndian.Uint32(vd.Data[at:])),
			Y: math.Float32frombits(binary.LittleEndian.Uint32(vd.Data[at+4:])),
		}
	}
	return out, true
}
