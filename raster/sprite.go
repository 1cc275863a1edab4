package raster

import (
	"fmt"
	"image"
	"math"

	"golang.org/x/image/draw"
	"golang.org/x/image/vector"

	"github.com/meigma/assetkit/internal/asseterr"
)

// Sprite packing rotations.
const (
	RotationNone           = 0
	RotationFlipHorizontal = 1
	RotationFlipVertical   = 2
	RotationRotate180      = 3
	RotationRotate90       = 4
)

// Sprite packing modes.
const (
	PackingTight     = 0
	PackingRectangle = 1
)

// VectorMaskLimit is the triangle count from which TightMask switches from
// vector rasterization to the scanline mask.
const VectorMaskLimit = 1024

// Point is a 2D position in sprite or pixel units.
type Point struct{ X, Y float32 }

// Rect is a float rectangle with its origin at the bottom left.
type Rect struct{ X, Y, Width, Height float32 }

// Triangle is one triangle of a sprite mesh.
type Triangle [3]Point

// Transform maps mesh coordinates to pixels: p*Scale + (TX, TY).
type Transform struct {
	Scale  float32
	TX, TY float32
}

func (t Transform) apply(p Point) (float32, float32) {
	return p.X*t.Scale + t.TX, p.Y*t.Scale + t.TY
}

// Cutting describes where a sprite sits in its texture and how it was
// packed there.
type Cutting struct {
	// Rect is the sprite's region of the texture in stored-row pixels.
	Rect Rect
	// Offset is the texture rect offset of the render data.
	Offset Point
	// Downscale is the atlas downscale multiplier; 0 and 1 mean none.
	Downscale float32
	Packed    bool
	Rotation  int
	Mode      int
	Mesh      []Triangle

	PixelsToUnits float32
	Pivot         Point
	// SpriteRect is the sprite's own rectangle; its size positions the mesh.
	SpriteRect Rect
}

// meshTransform places mesh vertices, given in sprite units around the
// pivot, onto the cropped image.
func (c Cutting) meshTransform() Transform {
	return Transform{
		Scale: c.PixelsToUnits,
		TX:    c.SpriteRect.Width*c.Pivot.X - c.Offset.X,
		TY:    c.SpriteRect.Height*c.Pivot.Y - c.Offset.Y,
	}
}

// Cut extracts a sprite from a decoded texture in stored row order and
// returns it upright. The source image is not modified.
func Cut(texture *image.NRGBA, c Cutting) (*image.NRGBA, error) {
	src := texture
	if c.Downscale > 0 && c.Downscale != 1 {
		w := int(float32(texture.Rect.Dx()) / c.Downscale)
		h := int(float32(texture.Rect.Dy()) / c.Downscale)
		if w <= 0 || h <= 0 {
			return nil, fmt.Errorf("%w: raster: downscale %g leaves an empty texture", asseterr.ErrDecode, c.Downscale)
		}
		src = resize(texture, w, h, draw.CatmullRom)
	}

	x0 := int(math.Floor(float64(c.Rect.X)))
	y0 := int(math.Floor(float64(c.Rect.Y)))
	x1 := int(math.Ceil(float64(c.Rect.X + c.Rect.Width)))
	y1 := int(math.Ceil(float64(c.Rect.Y + c.Rect.Height)))
	r := image.Rect(x0, y0, x1, y1).Intersect(src.Rect)
	if r.Empty() {
		return nil, fmt.Errorf("%w: raster: sprite rect %v outside %dx%d texture",
			asseterr.ErrDecode, c.Rect, src.Rect.Dx(), src.Rect.Dy())
	}
	img := crop(src, r)

	if c.Packed {
		switch c.Rotation {
		case RotationFlipHorizontal:
			flipHorizontal(img)
		case RotationFlipVertical:
			FlipVertical(img)
		case RotationRotate180:
			rotate180(img)
		case RotationRotate90:
			img = rotateCounterClockwise(img)
		}
	}

	if c.Mode == PackingTight && len(c.Mesh) > 0 {
		TightMask(img, c.Mesh, c.meshTransform())
	}
	FlipVertical(img)
	return img, nil
}

// TightMask clears every pixel of img whose center is not covered by a
// mesh triangle. Meshes below VectorMaskLimit triangles are filled with a
// vector rasterizer; larger ones use a half-open scanline mask.
func TightMask(img *image.NRGBA, mesh []Triangle, t Transform) {
	var covered func(x, y int) bool
	if len(mesh) < VectorMaskLimit {
		covered = vectorCoverage(img.Rect.Dx(), img.Rect.Dy(), mesh, t)
	} else {
		covered = scanlineCoverage(img.Rect.Dx(), img.Rect.Dy(), mesh, t)
	}
	for y := range img.Rect.Dy() {
		for x := range img.Rect.Dx() {
			if !covered(x, y) {
				o := y*img.Stride + x*4
				clear(img.Pix[o : o+4])
			}
		}
	}
}

func vectorCoverage(w, h int, mesh []Triangle, t Transform) func(x, y int) bool {
	z := vector.NewRasterizer(w, h)
	for _, tri := range mesh {
		var xs, ys [3]float32
		for i, p := range tri {
			xs[i], ys[i] = t.apply(p)
		}
		// Fill every triangle with the same winding so overlaps add up.
		if (xs[1]-xs[0])*(ys[2]-ys[0])-(ys[1]-ys[0])*(xs[2]-xs[0]) < 0 {
			xs[1], xs[2] = xs[2], xs[1]
			ys[1], ys[2] = ys[2], ys[1]
		}
		z.MoveTo(xs[0], ys[0])
		z.LineTo(xs[1], ys[1])
		z.LineTo(xs[2], ys[2])
		z.ClosePath()
	}
	mask := image.NewAlpha(image.Rect(0, 0, w, h))
	z.Draw(mask, mask.Bounds(), image.Opaque, image.Point{})
	return func(x, y int) bool { return mask.Pix[y*mask.Stride+x] >= 0x80 }
}

func scanlineCoverage(w, h int, mesh []Triangle, t Transform) func(x, y int) bool {
	mask := make([]bool, w*h)
	for _, tri := range mesh {
		var px, py [3]float64
		for i, p := range tri {
			x, y := t.apply(p)
			px[i], py[i] = float64(x), float64(y)
		}
		minY := math.Min(py[0], math.Min(py[1], py[2]))
		maxY := math.Max(py[0], math.Max(py[1], py[2]))
		rowStart := max(int(math.Ceil(minY-0.5)), 0)
		rowEnd := min(int(math.Ceil(maxY-0.5)), h)
		for y := rowStart; y < rowEnd; y++ {
			cy := float64(y) + 0.5
			left, right := math.Inf(1), math.Inf(-1)
			for i := range 3 {
				j := (i + 1) % 3
				ya, yb := py[i], py[j]
				// Half-open in y: an edge owns [min, max).
				if (cy < ya) == (cy < yb) {
					continue
				}
				x := px[i] + (cy-ya)*(px[j]-px[i])/(yb-ya)
				left = math.Min(left, x)
				right = math.Max(right, x)
			}
			if left > right {
				continue
			}
			// Half-open in x: centers in [left, right).
			colStart := max(int(math.Ceil(left-0.5)), 0)
			colEnd := min(int(math.Ceil(right-0.5)), w)
			for x := colStart; x < colEnd; x++ {
				mask[y*w+x] = true
			}
		}
	}
	return func(x, y int) bool { return mask[y*w+x] }
}

// MaskMode selects how a sprite's separate alpha texture is used.
type MaskMode int

// Mask modes.
const (
	// MaskOff ignores the alpha texture.
	MaskOff MaskMode = iota
	// MaskOn applies the alpha texture with preview quality resampling.
	MaskOn
	// MaskOnly returns the alpha texture's own cut instead of the sprite.
	MaskOnly
	// MaskExport applies the alpha texture with export quality resampling.
	MaskExport
)

func (m MaskMode) String() string {
	switch m {
	case MaskOff:
		return "off"
	case MaskOn:
		return "on"
	case MaskOnly:
		return "mask-only"
	case MaskExport:
		return "export"
	default:
		return fmt.Sprintf("MaskMode(%d)", int(m))
	}
}

// Quality selects the resampling kernel used when a mask and its color
// image differ in size.
type Quality int

// Resampling qualities.
const (
	QualityPreview Quality = iota
	QualityExport
)

// ApplyMask replaces the alpha of color with the gray level of mask,
// (R+G+B)/3, resampling mask to color's size first when they differ.
func ApplyMask(color, mask *image.NRGBA, q Quality) {
	w, h := color.Rect.Dx(), color.Rect.Dy()
	if mask.Rect.Dx() != w || mask.Rect.Dy() != h {
		var k draw.Interpolator = draw.CatmullRom
		if q == QualityPreview {
			k = draw.NearestNeighbor
		}
		mask = resize(mask, w, h, k)
	}
	for y := range h {
		for x := range w {
			m := mask.PixOffset(mask.Rect.Min.X+x, mask.Rect.Min.Y+y)
			gray := (int(mask.Pix[m]) + int(mask.Pix[m+1]) + int(mask.Pix[m+2])) / 3
			color.Pix[color.PixOffset(color.Rect.Min.X+x, color.Rect.Min.Y+y)+3] = uint8(gray) //nolint:gosec // mean of bytes
		}
	}
}
