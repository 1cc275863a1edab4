package raster

import (
	"encoding/binary"
	"image"
	"image/color"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/meigma/assetkit/internal/testutil"
)

func dxt1Block(c0, c1 uint16, index func(i int) uint32) []byte {
	var bits uint32
	for i := range 16 {
		bits |= index(i) << (2 * i)
	}
	b := binary.LittleEndian.AppendUint16(nil, c0)
	b = binary.LittleEndian.AppendUint16(b, c1)
	return binary.LittleEndian.AppendUint32(b, bits)
}

func TestDXT1FourColor(t *testing.T) {
	t.Parallel()

	data := dxt1Block(0xf800, 0x001f, func(i int) uint32 { return uint32(i % 4) }) //nolint:gosec // small
	img, err := Decode(DXT1, data, 4, 4)
	require.NoError(t, err)

	want := []color.NRGBA{
		{255, 0, 0, 255},
		{0, 0, 255, 255},
		{170, 0, 85, 255},
		{85, 0, 170, 255},
	}
	for y := range 4 {
		for x := range 4 {
			assert.Equal(t, want[x], img.NRGBAAt(x, y), "pixel %d,%d", x, y)
		}
	}
}

func TestDXT1ThreeColor(t *testing.T) {
	t.Parallel()

	data := dxt1Block(0x001f, 0xf800, func(i int) uint32 { return uint32(3 - i%4) }) //nolint:gosec // small
	img, err := Decode(DXT1, data, 4, 4)
	require.NoError(t, err)
	assert.Equal(t, color.NRGBA{}, img.NRGBAAt(0, 0), "index 3 is transparent black")
	assert.Equal(t, color.NRGBA{127, 0, 127, 255}, img.NRGBAAt(1, 0))
	assert.Equal(t, color.NRGBA{255, 0, 0, 255}, img.NRGBAAt(2, 0))
	assert.Equal(t, color.NRGBA{0, 0, 255, 255}, img.NRGBAAt(3, 0))
}

func TestDXT1RoundTripBounded(t *testing.T) {
	t.Parallel()

	for _, size := range []image.Point{{16, 8}, {5, 3}} {
		src := image.NewNRGBA(image.Rect(0, 0, size.X, size.Y))
		for y := range size.Y {
			for x := range size.X {
				v := uint8(x*8 + y*2) //nolint:gosec // small
				src.SetNRGBA(x, y, color.NRGBA{v, v, v, 255})
			}
		}
		got, err := Decode(DXT1, testutil.EncodeDXT1(src), size.X, size.Y)
		require.NoError(t, err)

		maxErr := 0
		for y := range size.Y {
			for x := range size.X {
				a, b := src.NRGBAAt(x, y), got.NRGBAAt(x, y)
				maxErr = max(maxErr, absDiff(a.R, b.R), absDiff(a.G, b.G), absDiff(a.B, b.B))
				assert.Equal(t, uint8(255), b.A)
			}
		}
		assert.LessOrEqual(t, maxErr, 24, "size %v", size)
	}
}

func absDiff(a, b uint8) int {
	if a > b {
		return int(a - b)
	}
	return int(b - a)
}

func TestDXT5(t *testing.T) {
	t.Parallel()

	// Alpha 255/0 in eight-value mode: pixel 0 selects a0, 1 selects a1,
	// 2 selects (6*a0 + a1) / 7.
	alpha := []byte{255, 0, 1<<3 | 2<<6, 0, 0, 0, 0, 0}
	data := append(alpha, dxt1Block(0xffff, 0xffff, func(int) uint32 { return 0 })...)
	img, err := Decode(DXT5, data, 4, 4)
	require.NoError(t, err)
	assert.Equal(t, color.NRGBA{255, 255, 255, 255}, img.NRGBAAt(0, 0))
	assert.Equal(t, color.NRGBA{255, 255, 255, 0}, img.NRGBAAt(1, 0))
	assert.Equal(t, uint8(218), img.NRGBAAt(2, 0).A)
	assert.Equal(t, uint8(255), img.NRGBAAt(3, 3).A)
}

func TestBC4AndBC5(t *testing.T) {
	t.Parallel()

	// Six-value mode (a0 <= a1): index 6 is 0, index 7 is 255.
	red := []byte{10, 200, 6 | 7<<3 | 1<<6, 0, 0, 0, 0, 0}
	img, err := Decode(BC4, red, 4, 4)
	require.NoError(t, err)
	assert.Equal(t, color.NRGBA{0, 0, 0, 255}, img.NRGBAAt(0, 0))
	assert.Equal(t, color.NRGBA{255, 0, 0, 255}, img.NRGBAAt(1, 0))
	assert.Equal(t, color.NRGBA{200, 0, 0, 255}, img.NRGBAAt(2, 0))
	assert.Equal(t, color.NRGBA{10, 0, 0, 255}, img.NRGBAAt(3, 0))

	rg := []byte{50, 50, 0, 0, 0, 0, 0, 0, 100, 100, 0, 0, 0, 0, 0, 0}
	img, err = Decode(BC5, rg, 4, 4)
	require.NoError(t, err)
	assert.Equal(t, color.NRGBA{50, 100, 0, 255}, img.NRGBAAt(2, 3))
}

func TestETC1(t *testing.T) {
	t.Parallel()

	t.Run("individual", func(t *testing.T) {
		t.Parallel()
		// Sub-blocks side by side, table 0; pixel (3,3) selects -8.
		data := []byte{0x8f, 0x80, 0x80, 0x00, 0x80, 0x00, 0x80, 0x00}
		img, err := Decode(ETCRGB4, data, 4, 4)
		require.NoError(t, err)
		assert.Equal(t, color.NRGBA{138, 138, 138, 255}, img.NRGBAAt(0, 0))
		assert.Equal(t, color.NRGBA{138, 138, 138, 255}, img.NRGBAAt(1, 3))
		assert.Equal(t, color.NRGBA{255, 2, 2, 255}, img.NRGBAAt(3, 0))
		assert.Equal(t, color.NRGBA{247, 0, 0, 255}, img.NRGBAAt(3, 3))
	})

	t.Run("differential flipped", func(t *testing.T) {
		t.Parallel()
		data := []byte{0x81, 0x87, 0x80, 0x03, 0, 0, 0, 0}
		img, err := Decode(ETCRGB4, data, 4, 4)
		require.NoError(t, err)
		assert.Equal(t, color.NRGBA{134, 134, 134, 255}, img.NRGBAAt(3, 1))
		assert.Equal(t, color.NRGBA{142, 125, 134, 255}, img.NRGBAAt(0, 2))
	})
}
