package raster

import (
	"fmt"
	"image"
	"sync"

	"github.com/meigma/assetkit/internal/asseterr"
	"github.com/meigma/assetkit/internal/sizing"
)

// Format is an engine pixel format tag as stored in Texture2D.Format.
type Format int

// Pixel formats with built-in decoders.
const (
	Alpha8   Format = 1
	ARGB4444 Format = 2
	RGB24    Format = 3
	RGBA32   Format = 4
	ARGB32   Format = 5
	RGB565   Format = 7
	R16      Format = 9
	DXT1     Format = 10
	DXT5     Format = 12
	RGBA4444 Format = 13
	BGRA32   Format = 14
	BC4      Format = 26
	BC5      Format = 27
	ETCRGB4  Format = 34
	RG16     Format = 62
	R8       Format = 63
)

// Names of formats that are recognised but have no built-in decoder.
var otherNames = map[Format]string{
	15: "RHalf",
	16: "RGHalf",
	17: "RGBAHalf",
	18: "RFloat",
	19: "RGFloat",
	20: "RGBAFloat",
	24: "BC6H",
	25: "BC7",
	28: "DXT1Crunched",
	29: "DXT5Crunched",
	45: "ETC2_RGB",
	47: "ETC2_RGBA8",
	48: "ASTC_RGB_4x4",
}

// SizeFunc returns the bytes needed for the first image of a texture.
type SizeFunc func(width, height int) int

// DecodeFunc fills dst from src. src holds at least SizeFunc bytes and dst
// is sized to the texture, rows in stored order.
type DecodeFunc func(dst *image.NRGBA, src []byte)

type codec struct {
	name   string
	size   SizeFunc
	decode DecodeFunc
}

var (
	codecsMu sync.RWMutex
	codecs   = make(map[Format]codec)
)

// Register adds a decoder for f. It panics if f already has one. Call it
// from init.
func Register(f Format, name string, size SizeFunc, decode DecodeFunc) {
	codecsMu.Lock()
	defer codecsMu.Unlock()
	if _, dup := codecs[f]; dup {
		panic(fmt.Sprintf("raster: format %d (%s) registered twice", f, name))
	}
	codecs[f] = codec{name: name, size: size, decode: decode}
}

func lookup(f Format) (codec, bool) {
	codecsMu.RLock()
	defer codecsMu.RUnlock()
	c, ok := codecs[f]
	return c, ok
}

// Supported reports whether f has a registered decoder.
func Supported(f Format) bool {
	_, ok := lookup(f)
	return ok
}

func (f Format) String() string {
	if c, ok := lookup(f); ok {
		return c.name
	}
	if n, ok := otherNames[f]; ok {
		return n
	}
	return fmt.Sprintf("Format(%d)", int(f))
}

// Decode converts the first image of a texture to NRGBA. Rows keep the
// stored order, bottom row first; see FlipVertical.
func Decode(f Format, data []byte, width, height int) (*image.NRGBA, error) {
	c, ok := lookup(f)
	if !ok {
		name := ""
		if n, known := otherNames[f]; known {
			name = n
		}
		return nil, &asseterr.FormatUnsupportedError{Format: int(f), Name: name}
	}
	if width <= 0 || height <= 0 {
		return nil, fmt.Errorf("%w: raster: %s: invalid size %dx%d", asseterr.ErrDecode, c.name, width, height)
	}
	if !sizing.MulFits(width, height) || !sizing.MulFits(width*height, 4) {
		return nil, fmt.Errorf("%w: raster: %dx%d", asseterr.ErrSizeOverflow, width, height)
	}
	if need := c.size(width, height); len(data) < need {
		return nil, fmt.Errorf("%w: raster: %s %dx%d needs %d bytes, have %d",
			asseterr.ErrDecode, c.name, width, height, need, len(data))
	}
	dst := image.NewNRGBA(image.Rect(0, 0, width, height))
	c.decode(dst, data)
	return dst, nil
}

func perPixel(bytes int) SizeFunc {
	return func(w, h int) int { return w * h * bytes }
}

func perBlock(bytes int) SizeFunc {
	return func(w, h int) int { return ((w + 3) / 4) * ((h + 3) / 4) * bytes }
}

func init() {
	Register(Alpha8, "Alpha8", perPixel(1), decodeAlpha8)
	Register(ARGB4444, "ARGB4444", perPixel(2), decodeARGB4444)
	Register(RGB24, "RGB24", perPixel(3), decodeRGB24)
	Register(RGBA32, "RGBA32", perPixel(4), decodeRGBA32)
	Register(ARGB32, "ARGB32", perPixel(4), decodeARGB32)
	Register(RGB565, "RGB565", perPixel(2), decodeRGB565)
	Register(R16, "R16", perPixel(2), decodeR16)
	Register(DXT1, "DXT1", perBlock(8), decodeDXT1)
	Register(DXT5, "DXT5", perBlock(16), decodeDXT5)
	Register(RGBA4444, "RGBA4444", perPixel(2), decodeRGBA4444)
	Register(BGRA32, "BGRA32", perPixel(4), decodeBGRA32)
	Register(BC4, "BC4", perBlock(8), decodeBC4)
	Register(BC5, "BC5", perBlock(16), decodeBC5)
	Register(ETCRGB4, "ETC_RGB4", perBlock(8), decodeETC1)
	Register(RG16, "RG16", perPixel(2), decodeRG16)
	Register(R8, "R8", perPixel(1), decodeR8)
}
