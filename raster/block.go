package raster

import (
	"encoding/binary"
	"image"
)

// block is a decoded 4x4 tile, row-major RGBA.
type block [16][4]uint8

// eachBlock decodes 4x4 tiles in storage order and writes the part of each
// tile that falls inside dst.
func eachBlock(dst *image.NRGBA, src []byte, size int, decode func(b []byte, out *block)) {
	w, h := dst.Rect.Dx(), dst.Rect.Dy()
	bw, bh := (w+3)/4, (h+3)/4
	var tile block
	for by := range bh {
		for bx := range bw {
			off := (by*bw + bx) * size
			decode(src[off:off+size], &tile)
			for py := range 4 {
				y := by*4 + py
				if y >= h {
					break
				}
				for px := range 4 {
					x := bx*4 + px
					if x >= w {
						break
					}
					o := y*dst.Stride + x*4
					copy(dst.Pix[o:o+4], tile[py*4+px][:])
				}
			}
		}
	}
}

// colorBlock decodes a BC1 color block. With opaque set the block is always
// read in four-color mode, as inside BC3.
func colorBlock(b []byte, out *block, opaque bool) {
	c0 := binary.LittleEndian.Uint16(b[0:])
	c1 := binary.LittleEndian.Uint16(b[2:])
	var pal [4][4]uint8
	r0, g0, b0 := expand565(c0)
	r1, g1, b1 := expand565(c1)
	pal[0] = [4]uint8{r0, g0, b0, 0xff}
	pal[1] = [4]uint8{r1, g1, b1, 0xff}
	if c0 > c1 || opaque {
		pal[2] = [4]uint8{mix(r0, r1, 2, 1), mix(g0, g1, 2, 1), mix(b0, b1, 2, 1), 0xff}
		pal[3] = [4]uint8{mix(r0, r1, 1, 2), mix(g0, g1, 1, 2), mix(b0, b1, 1, 2), 0xff}
	} else {
		pal[2] = [4]uint8{mix(r0, r1, 1, 1), mix(g0, g1, 1, 1), mix(b0, b1, 1, 1), 0xff}
		pal[3] = [4]uint8{}
	}
	bits := binary.LittleEndian.Uint32(b[4:])
	for i := range 16 {
		out[i] = pal[bits>>(2*i)&3]
	}
}

// mix returns the weighted mean (wa*a + wb*b) / (wa + wb).
func mix(a, b uint8, wa, wb int) uint8 {
	return uint8((wa*int(a) + wb*int(b)) / (wa + wb)) //nolint:gosec // mean of bytes
}

// alphaBlock decodes a BC3 alpha or BC4 channel block into 16 values.
func alphaBlock(b []byte) [16]uint8 {
	a0, a1 := int(b[0]), int(b[1])
	var pal [8]uint8
	pal[0], pal[1] = b[0], b[1]
	if a0 > a1 {
		for i := 1; i < 7; i++ {
			pal[i+1] = uint8(((7-i)*a0 + i*a1) / 7) //nolint:gosec // mean of bytes
		}
	} else {
		for i := 1; i < 5; i++ {
			pal[i+1] = uint8(((5-i)*a0 + i*a1) / 5) //nolint:gosec // mean of bytes
		}
		pal[6], pal[7] = 0, 0xff
	}
	var bits uint64
	for i := range 6 {
		bits |= uint64(b[2+i]) << (8 * i)
	}
	var out [16]uint8
	for i := range 16 {
		out[i] = pal[bits>>(3*i)&7]
	}
	return out
}

func decodeDXT1(dst *image.NRGBA, src []byte) {
	eachBlock(dst, src, 8, func(b []byte, out *block) { colorBlock(b, out, false) })
}

func decodeDXT5(dst *image.NRGBA, src []byte) {
	eachBlock(dst, src, 16, func(b []byte, out *block) {
		alpha := alphaBlock(b[:8])
		colorBlock(b[8:], out, true)
		for i := range 16 {
			out[i][3] = alpha[i]
		}
	})
}

func decodeBC4(dst *image.NRGBA, src []byte) {
	eachBlock(dst, src, 8, func(b []byte, out *block) {
		red := alphaBlock(b)
		for i := range 16 {
			out[i] = [4]uint8{red[i], 0, 0, 0xff}
		}
	})
}

func decodeBC5(dst *image.NRGBA, src []byte) {
	eachBlock(dst, src, 16, func(b []byte, out *block) {
		red, green := alphaBlock(b[:8]), alphaBlock(b[8:])
		for i := range 16 {
			out[i] = [4]uint8{red[i], green[i], 0, 0xff}
		}
	})
}
