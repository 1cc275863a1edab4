package raster

import (
	"image"
	"image/color"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/meigma/assetkit/internal/asseterr"
)

func TestDecodeRGBA32Exact(t *testing.T) {
	t.Parallel()

	data := make([]byte, 3*2*4)
	for i := range data {
		data[i] = byte(i*37 + 11)
	}
	img, err := Decode(RGBA32, data, 3, 2)
	require.NoError(t, err)
	assert.Equal(t, image.Rect(0, 0, 3, 2), img.Rect)
	assert.Equal(t, data, img.Pix)
}

func TestDecodePixelFormats(t *testing.T) {
	t.Parallel()

	tests := []struct {
		format Format
		data   []byte
		want   color.NRGBA
	}{
		{Alpha8, []byte{0x80}, color.NRGBA{255, 255, 255, 0x80}},
		{ARGB4444, []byte{0x42, 0xf8}, color.NRGBA{136, 68, 34, 255}},
		{RGB24, []byte{1, 2, 3}, color.NRGBA{1, 2, 3, 255}},
		{ARGB32, []byte{4, 1, 2, 3}, color.NRGBA{1, 2, 3, 4}},
		{RGB565, []byte{0x00, 0xf8}, color.NRGBA{255, 0, 0, 255}},
		{RGB565, []byte{0xe0, 0x07}, color.NRGBA{0, 255, 0, 255}},
		{R16, []byte{0x34, 0x12}, color.NRGBA{0x12, 0, 0, 255}},
		{RGBA4444, []byte{0x34, 0x12}, color.NRGBA{17, 34, 51, 68}},
		{BGRA32, []byte{3, 2, 1, 4}, color.NRGBA{1, 2, 3, 4}},
		{RG16, []byte{5, 6}, color.NRGBA{5, 6, 0, 255}},
		{R8, []byte{9}, color.NRGBA{9, 0, 0, 255}},
	}
	for _, tt := range tests {
		t.Run(tt.format.String(), func(t *testing.T) {
			t.Parallel()
			img, err := Decode(tt.format, tt.data, 1, 1)
			require.NoError(t, err)
			assert.Equal(t, tt.want, img.NRGBAAt(0, 0))
		})
	}
}

func TestDecodeRowsInStoredOrder(t *testing.T) {
	t.Parallel()

	img, err := Decode(R8, []byte{1, 2, 3, 4, 5, 6}, 2, 3)
	require.NoError(t, err)
	assert.Equal(t, uint8(1), img.NRGBAAt(0, 0).R)
	assert.Equal(t, uint8(6), img.NRGBAAt(1, 2).R)

	FlipVertical(img)
	assert.Equal(t, uint8(5), img.NRGBAAt(0, 0).R)
	assert.Equal(t, uint8(3), img.NRGBAAt(0, 1).R)
	assert.Equal(t, uint8(2), img.NRGBAAt(1, 2).R)
}

func TestDecodeErrors(t *testing.T) {
	t.Parallel()

	_, err := Decode(Format(25), make([]byte, 64), 4, 4)
	require.ErrorIs(t, err, asseterr.ErrUnsupportedFormat)
	var fe *asseterr.FormatUnsupportedError
	require.ErrorAs(t, err, &fe)
	assert.Equal(t, 25, fe.Format)
	assert.Equal(t, "BC7", fe.Name)

	_, err = Decode(Format(999), nil, 1, 1)
	require.ErrorAs(t, err, &fe)
	assert.Empty(t, fe.Name)

	_, err = Decode(RGBA32, make([]byte, 15), 2, 2)
	assert.ErrorIs(t, err, asseterr.ErrDecode)

	_, err = Decode(DXT1, make([]byte, 8), 5, 4)
	assert.ErrorIs(t, err, asseterr.ErrDecode, "two blocks are needed for width 5")

	_, err = Decode(RGBA32, nil, 0, 4)
	assert.ErrorIs(t, err, asseterr.ErrDecode)
}

func TestFormatRegistry(t *testing.T) {
	t.Parallel()

	assert.Equal(t, "DXT5", DXT5.String())
	assert.Equal(t, "ETC_RGB4", ETCRGB4.String())
	assert.Equal(t, "BC7", Format(25).String())
	assert.Equal(t, "Format(999)", Format(999).String())
	assert.True(t, Supported(BC5))
	assert.False(t, Supported(Format(25)))

	assert.Panics(t, func() {
		Register(RGBA32, "again", perPixel(4), decodeRGBA32)
	})
}
