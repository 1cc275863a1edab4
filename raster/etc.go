package raster

import (
	"encoding/binary"
	"image"
)

// etc1Modifiers are the intensity tables selected by each sub-block's
// codeword, indexed by the pixel's two-bit selector.
var etc1Modifiers = [8][4]int{
	{2, 8, -2, -8},
	{5, 17, -5, -17},
	{9, 29, -9, -29},
	{13, 42, -13, -42},
	{18, 60, -18, -60},
	{24, 80, -24, -80},
	{33, 106, -33, -106},
	{47, 183, -47, -183},
}

func clampByte(v int) uint8 {
	switch {
	case v < 0:
		return 0
	case v > 0xff:
		return 0xff
	default:
		return uint8(v)
	}
}

func extend5(v int) int { return v<<3 | v>>2 }

// etc1Block decodes one big-endian ETC1 block.
func etc1Block(b []byte, out *block) {
	hi := binary.BigEndian.Uint32(b[0:])
	lo := binary.BigEndian.Uint32(b[4:])
	diff := hi&2 != 0
	flip := hi&1 != 0

	var base [2][3]int
	for ch := range 3 {
		v := int(b[ch])
		if diff {
			c := v >> 3
			d := v & 7
			if d >= 4 {
				d -= 8
			}
			base[0][ch] = extend5(c)
			base[1][ch] = extend5((c + d) & 0x1f)
		} else {
			base[0][ch] = (v >> 4) * 17
			base[1][ch] = (v & 0xf) * 17
		}
	}
	tables := [2]int{int(hi>>5) & 7, int(hi>>2) & 7}

	for x := range 4 {
		for y := range 4 {
			i := x*4 + y
			sel := (lo>>(i+16)&1)<<1 | lo>>i&1
			sub := 0
			if (flip && y >= 2) || (!flip && x >= 2) {
				sub = 1
			}
			m := etc1Modifiers[tables[sub]][sel]
			c := base[sub]
			out[y*4+x] = [4]uint8{clampByte(c[0] + m), clampByte(c[1] + m), clampByte(c[2] + m), 0xff}
		}
	}
}

func decodeETC1(dst *image.NRGBA, src []byte) {
	eachBlock(dst, src, 8, etc1Block)
}
