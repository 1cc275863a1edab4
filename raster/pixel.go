package raster

import (
	"encoding/binary"
	"image"
)

// eachPixel calls set with the index of each source pixel and the offset
// of the matching NRGBA pixel in dst.Pix.
func eachPixel(dst *image.NRGBA, set func(i, o int)) {
	w, h := dst.Rect.Dx(), dst.Rect.Dy()
	for y := range h {
		row := y * dst.Stride
		for x := range w {
			set(y*w+x, row+x*4)
		}
	}
}

func put(p []byte, o int, r, g, b, a uint8) {
	p[o], p[o+1], p[o+2], p[o+3] = r, g, b, a
}

func nibble(v uint16, shift uint) uint8 {
	return uint8((v>>shift)&0xf) * 17 //nolint:gosec // four bits
}

func decodeAlpha8(dst *image.NRGBA, src []byte) {
	eachPixel(dst, func(i, o int) { put(dst.Pix, o, 0xff, 0xff, 0xff, src[i]) })
}

func decodeARGB4444(dst *image.NRGBA, src []byte) {
	eachPixel(dst, func(i, o int) {
		v := binary.LittleEndian.Uint16(src[i*2:])
		put(dst.Pix, o, nibble(v, 8), nibble(v, 4), nibble(v, 0), nibble(v, 12))
	})
}

func decodeRGBA4444(dst *image.NRGBA, src []byte) {
	eachPixel(dst, func(i, o int) {
		v := binary.LittleEndian.Uint16(src[i*2:])
		put(dst.Pix, o, nibble(v, 12), nibble(v, 8), nibble(v, 4), nibble(v, 0))
	})
}

func decodeRGB24(dst *image.NRGBA, src []byte) {
	eachPixel(dst, func(i, o int) {
		s := src[i*3:]
		put(dst.Pix, o, s[0], s[1], s[2], 0xff)
	})
}

func decodeRGBA32(dst *image.NRGBA, src []byte) {
	copy(dst.Pix, src[:len(dst.Pix)])
}

func decodeARGB32(dst *image.NRGBA, src []byte) {
	eachPixel(dst, func(i, o int) {
		s := src[i*4:]
		put(dst.Pix, o, s[1], s[2], s[3], s[0])
	})
}

func decodeBGRA32(dst *image.NRGBA, src []byte) {
	eachPixel(dst, func(i, o int) {
		s := src[i*4:]
		put(dst.Pix, o, s[2], s[1], s[0], s[3])
	})
}

// expand565 widens a packed 5:6:5 color to 8 bits per channel.
func expand565(v uint16) (r, g, b uint8) {
	r5 := uint8(v >> 11)     //nolint:gosec // five bits
	g6 := uint8(v>>5) & 0x3f //nolint:gosec // six bits
	b5 := uint8(v) & 0x1f    //nolint:gosec // five bits
	return r5<<3 | r5>>2, g6<<2 | g6>>4, b5<<3 | b5>>2
}

func decodeRGB565(dst *image.NRGBA, src []byte) {
	eachPixel(dst, func(i, o int) {
		r, g, b := expand565(binary.LittleEndian.Uint16(src[i*2:]))
		put(dst.Pix, o, r, g, b, 0xff)
	})
}

func decodeR16(dst *image.NRGBA, src []byte) {
	eachPixel(dst, func(i, o int) {
		put(dst.Pix, o, src[i*2+1], 0, 0, 0xff)
	})
}

func decodeRG16(dst *image.NRGBA, src []byte) {
	eachPixel(dst, func(i, o int) {
		put(dst.Pix, o, src[i*2], src[i*2+1], 0, 0xff)
	})
}

func decodeR8(dst *image.NRGBA, src []byte) {
	eachPixel(dst, func(i, o int) { put(dst.Pix, o, src[i], 0, 0, 0xff) })
}
