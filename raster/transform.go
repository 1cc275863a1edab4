package raster

import (
	"image"

	"golang.org/x/image/draw"
)

// FlipVertical reverses the row order of img in place. Decoded textures
// are bottom row first; flipping once makes them upright.
func FlipVertical(img *image.NRGBA) {
	w := img.Rect.Dx() * 4
	tmp := make([]byte, w)
	for top, bottom := 0, img.Rect.Dy()-1; top < bottom; top, bottom = top+1, bottom-1 {
		a := img.Pix[top*img.Stride : top*img.Stride+w]
		b := img.Pix[bottom*img.Stride : bottom*img.Stride+w]
		copy(tmp, a)
		copy(a, b)
		copy(b, tmp)
	}
}

func flipHorizontal(img *image.NRGBA) {
	w, h := img.Rect.Dx(), img.Rect.Dy()
	for y := range h {
		row := img.Pix[y*img.Stride:]
		for l, r := 0, w-1; l < r; l, r = l+1, r-1 {
			for c := range 4 {
				row[l*4+c], row[r*4+c] = row[r*4+c], row[l*4+c]
			}
		}
	}
}

func rotate180(img *image.NRGBA) {
	FlipVertical(img)
	flipHorizontal(img)
}

// rotateCounterClockwise returns img rotated a quarter turn
// counterclockwise.
func rotateCounterClockwise(img *image.NRGBA) *image.NRGBA {
	w, h := img.Rect.Dx(), img.Rect.Dy()
	out := image.NewNRGBA(image.Rect(0, 0, h, w))
	for y := range h {
		for x := range w {
			s := y*img.Stride + x*4
			d := (w-1-x)*out.Stride + y*4
			copy(out.Pix[d:d+4], img.Pix[s:s+4])
		}
	}
	return out
}

// crop copies r out of img into a new image at the origin.
func crop(img *image.NRGBA, r image.Rectangle) *image.NRGBA {
	out := image.NewNRGBA(image.Rect(0, 0, r.Dx(), r.Dy()))
	for y := range r.Dy() {
		s := img.PixOffset(r.Min.X, r.Min.Y+y)
		copy(out.Pix[y*out.Stride:y*out.Stride+r.Dx()*4], img.Pix[s:s+r.Dx()*4])
	}
	return out
}

// resize scales img to w x h with the given kernel.
func resize(img *image.NRGBA, w, h int, k draw.Interpolator) *image.NRGBA {
	out := image.NewNRGBA(image.Rect(0, 0, w, h))
	k.Scale(out, out.Bounds(), img, img.Bounds(), draw.Src, nil)
	return out
}
