package testutil

import (
	"encoding/binary"
	"image"
)

// EncodeDXT1 compresses img into opaque DXT1 blocks in storage order. The
// endpoints are each block's per-channel bounding box.
func EncodeDXT1(img *image.NRGBA) []byte {
	w, h := img.Rect.Dx(), img.Rect.Dy()
	bw, bh := (w+3)/4, (h+3)/4
	out := make([]byte, 0, bw*bh*8)
	for by := range bh {
		for bx := range bw {
			var px [16][3]int
			lo := [3]int{255, 255, 255}
			hi := [3]int{}
			for i := range 16 {
				x := min(bx*4+i%4, w-1)
				y := min(by*4+i/4, h-1)
				o := img.PixOffset(img.Rect.Min.X+x, img.Rect.Min.Y+y)
				for c := range 3 {
					v := int(img.Pix[o+c])
					px[i][c] = v
					lo[c] = min(lo[c], v)
					hi[c] = max(hi[c], v)
				}
			}
			c0, c1 := pack565(hi), pack565(lo)
			if c0 < c1 {
				c0, c1 = c1, c0
			}
			pal := palette565(c0, c1)
			var bits uint32
			for i := range 16 {
				best, bestDist := 0, 1<<30
				for k, p := range pal {
					d := 0
					for c := range 3 {
						e := px[i][c] - p[c]
						d += e * e
					}
					if d < bestDist {
						best, bestDist = k, d
					}
				}
				bits |= uint32(best) << (2 * i) //nolint:gosec // two bits
			}
			out = binary.LittleEndian.AppendUint16(out, c0)
			out = binary.LittleEndian.AppendUint16(out, c1)
			out = binary.LittleEndian.AppendUint32(out, bits)
		}
	}
	return out
}

func pack565(c [3]int) uint16 {
	r := (c[0]*31 + 127) / 255
	g := (c[1]*63 + 127) / 255
	b := (c[2]*31 + 127) / 255
	return uint16(r<<11 | g<<5 | b) //nolint:gosec // packed fields
}

func unpack565(v uint16) [3]int {
	r, g, b := int(v>>11), int(v>>5)&0x3f, int(v)&0x1f
	return [3]int{r<<3 | r>>2, g<<2 | g>>4, b<<3 | b>>2}
}

// palette565 mirrors the decoder's four-color palette. Equal endpoints
// decode in three-color mode, so only entry 0 is offered.
func palette565(c0, c1 uint16) [][3]int {
	a, b := unpack565(c0), unpack565(c1)
	if c0 == c1 {
		return [][3]int{a}
	}
	var p2, p3 [3]int
	for c := range 3 {
		p2[c] = (2*a[c] + b[c]) / 3
		p3[c] = (a[c] + 2*b[c]) / 3
	}
	return [][3]int{a, b, p2, p3}
}
