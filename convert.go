package assetkit

import (
	"errors"
	"fmt"
	"image"

	"github.com/meigma/assetkit/curve"
	"github.com/meigma/assetkit/graph"
	"github.com/meigma/assetkit/internal/sizing"
	"github.com/meigma/assetkit/raster"
	"github.com/meigma/assetkit/typetree"
)

// payloadAs decodes obj and asserts its payload type.
func payloadAs[T graph.Payload](obj *graph.Object) (T, error) {
	var zero T
	if obj == nil {
		return zero, fmt.Errorf("%w: nil object", ErrWrongKind)
	}
	p, err := obj.Decode()
	if err != nil {
		return zero, err
	}
	v, ok := p.(T)
	if !ok {
		return zero, fmt.Errorf("%w: %s #%d is a %s", ErrWrongKind, obj.Container().Name(), obj.PathID, obj.ClassName())
	}
	return v, nil
}

// Texture decodes a Texture2D object into an image. Rows come out in stored
// order, bottom row first, unless flip is set.
func (s *Session) Texture(obj *graph.Object, flip bool) (*image.NRGBA, error) {
	tex, err := payloadAs[*graph.Texture2D](obj)
	if err != nil {
		return nil, err
	}
	img, err := s.texture(obj, tex)
	if err != nil {
		return nil, err
	}
	if flip {
		raster.FlipVertical(img)
	}
	return img, nil
}

func (s *Session) texture(obj *graph.Object, tex *graph.Texture2D) (*image.NRGBA, error) {
	data, err := s.textureData(obj, tex)
	if err != nil {
		return nil, err
	}
	img, err := raster.Decode(raster.Format(tex.Format), data, int(tex.Width), int(tex.Height))
	if err != nil {
		return nil, fmt.Errorf("assetkit: %s: texture %q: %w", obj.Container().Name(), tex.Name, err)
	}
	return img, nil
}

// textureData returns the inline image bytes or the streamed range they
// point to.
func (s *Session) textureData(obj *graph.Object, tex *graph.Texture2D) ([]byte, error) {
	if len(tex.Data) > 0 || tex.Stream.Path == "" {
		return tex.Data, nil
	}
	res, ok := s.resourceData(tex.Stream.Path)
	if !ok {
		return nil, &DanglingReferenceError{
			Container: obj.Container().Name(),
			Field:     "m_StreamData " + tex.Stream.Path,
			PathID:    obj.PathID,
		}
	}
	off, err := sizing.ToInt(tex.Stream.Offset, ErrSizeOverflow)
	if err != nil {
		return nil, err
	}
	size := int64(tex.Stream.Size)
	if !sizing.InRange(int64(off), size, int64(len(res))) {
		return nil, &DecodeError{
			Container: obj.Container().Name(),
			PathID:    obj.PathID,
			Class:     obj.ClassName(),
			Field:     "m_StreamData",
			Err: fmt.Errorf("range %d+%d outside %s (%d bytes)",
				off, size, tex.Stream.Path, len(res)),
		}
	}
	return res[off : int64(off)+size], nil
}

// resolveTexture resolves ref to a texture and decodes it.
func (s *Session) resolveTexture(from *graph.Object, ref graph.PPtr, field string) (*image.NRGBA, error) {
	target, ok := s.Resolve(from.Container(), ref)
	if !ok {
		return nil, &DanglingReferenceError{
			Container: from.Container().Name(),
			Field:     field,
			FileID:    ref.FileID,
			PathID:    ref.PathID,
		}
	}
	tex, err := payloadAs[*graph.Texture2D](target)
	if err != nil {
		return nil, err
	}
	return s.texture(target, tex)
}

// SpriteImage renders a Sprite object upright. A sprite packed into an atlas
// is cut from the atlas texture using the atlas's render data; otherwise the
// sprite's own texture is used, with its alpha texture applied as mode
// selects.
func (s *Session) SpriteImage(obj *graph.Object, mode raster.MaskMode) (*image.NRGBA, error) {
	sp, err := payloadAs[*graph.Sprite](obj)
	if err != nil {
		return nil, err
	}

	if atlasObj, ok := s.Resolve(obj.Container(), sp.SpriteAtlas); ok {
		atlas, err := payloadAs[*graph.SpriteAtlas](atlasObj)
		if err != nil {
			return nil, err
		}
		data, ok := atlas.RenderData[sp.RenderDataKey]
		if !ok {
			return nil, &DanglingReferenceError{
				Container: obj.Container().Name(),
				Field:     "m_RenderDataKey in atlas " + atlas.Name,
				PathID:    obj.PathID,
			}
		}
		texture, err := s.resolveTexture(atlasObj, data.Texture, "atlas texture")
		if err != nil {
			return nil, err
		}
		return raster.Cut(texture, spriteCutting(sp, data.TextureRect, data.TextureRectOffset, data.DownscaleMultiplier, data.Settings))
	}

	rd := &sp.RenderData
	cutting := spriteCutting(sp, rd.TextureRect, rd.TextureRectOffset, rd.DownscaleMultiplier, rd.Settings)
	texture, err := s.resolveTexture(obj, rd.Texture, "m_RD.texture")
	if err != nil {
		return nil, err
	}

	if mode != raster.MaskOff && !rd.AlphaTexture.IsNull() {
		alphaTex, err := s.resolveTexture(obj, rd.AlphaTexture, "m_RD.alphaTexture")
		if err != nil {
			s.log().Debug("alpha texture unavailable", "container", obj.Container().Name(), "path_id", obj.PathID, "error", err)
		} else {
			mask, err := raster.Cut(alphaTex, cutting)
			if err != nil {
				return nil, err
			}
			if mode == raster.MaskOnly {
				return mask, nil
			}
			img, err := raster.Cut(texture, cutting)
			if err != nil {
				return nil, err
			}
			q := raster.QualityPreview
			if mode == raster.MaskExport {
				q = raster.QualityExport
			}
			raster.ApplyMask(img, mask, q)
			return img, nil
		}
	}
	return raster.Cut(texture, cutting)
}

// spriteCutting combines a sprite's geometry with the render data of the
// texture it is cut from. The mesh always comes from the sprite's own
// render data.
func spriteCutting(sp *graph.Sprite, rect graph.Rect, offset graph.Vector2, downscale float32, settings graph.SpriteSettings) raster.Cutting {
	tris := sp.RenderData.Triangles()
	mesh := make([]raster.Triangle, len(tris))
	for i, tri := range tris {
		for k, v := range tri {
			mesh[i][k] = raster.Point{X: v.X, Y: v.Y}
		}
	}
	return raster.Cutting{
		Rect:          raster.Rect(rect),
		Offset:        raster.Point(offset),
		Downscale:     downscale,
		Packed:        settings.Packed(),
		Rotation:      settings.PackingRotation(),
		Mode:          settings.PackingMode(),
		Mesh:          mesh,
		PixelsToUnits: sp.PixelsToUnits,
		Pivot:         raster.Point(sp.Pivot),
		SpriteRect:    raster.Rect(sp.Rect),
	}
}

// Motion converts animation clips into motion documents, one per clip in
// argument order. The first clip that fails to convert fails the call.
func (s *Session) Motion(objs ...*graph.Object) ([]*curve.Motion, error) {
	out := make([]*curve.Motion, 0, len(objs))
	for _, obj := range objs {
		clip, err := payloadAs[*graph.AnimationClip](obj)
		if err != nil {
			return nil, err
		}
		m, err := curve.BuildMotion(motionClip(clip))
		if err != nil {
			return nil, fmt.Errorf("assetkit: %s #%d: %w", obj.Container().Name(), obj.PathID, err)
		}
		s.log().Debug("motion built", "clip", clip.Name, "curves", m.Meta.CurveCount, "segments", m.Meta.TotalSegmentCount)
		out = append(out, m)
	}
	return out, nil
}

func motionClip(clip *graph.AnimationClip) curve.Clip {
	c := curve.Clip{
		Name:       clip.Name,
		Duration:   clip.Duration(),
		SampleRate: clip.SampleRate,
		Tracks:     make([]curve.Track, 0, len(clip.FloatCurves)),
		Events:     make([]curve.Event, 0, len(clip.Events)),
	}
	for _, fc := range clip.FloatCurves {
		target, id := curve.Binding(fc.Path, fc.Attribute)
		keys := make([]curve.Keyframe, len(fc.Keys))
		for i, k := range fc.Keys {
			keys[i] = curve.Keyframe(k)
		}
		c.Tracks = append(c.Tracks, curve.Track{Target: target, ID: id, Keys: keys})
	}
	for _, e := range clip.Events {
		c.Events = append(c.Events, curve.Event{Time: e.Time, Value: e.Data})
	}
	return c
}

// subject adapts an object to typetree.Subject, resolving the script of
// script-defined instances through the session.
type subject struct {
	s   *Session
	obj *graph.Object
	// script is filled by ScriptIdentity for error reporting.
	script string
}

func (sub *subject) Signature() typetree.Signature {
	sig := sub.obj.Signature()
	if id, ok := sub.ScriptIdentity(); ok {
		sig.Script = id
	}
	return sig
}

func (sub *subject) EmbeddedType() *typetree.Node { return sub.obj.EmbeddedType() }

func (sub *subject) ScriptIdentity() (typetree.ClassIdentity, bool) {
	if sub.obj.ClassID != graph.ClassMonoBehaviour {
		return typetree.ClassIdentity{}, false
	}
	p, err := sub.obj.Decode()
	if err != nil {
		return typetree.ClassIdentity{}, false
	}
	mb, ok := p.(*graph.MonoBehaviour)
	if !ok {
		return typetree.ClassIdentity{}, false
	}
	ms, ok := sub.s.monoScript(sub.obj.Container(), mb.Script)
	if !ok {
		return typetree.ClassIdentity{}, false
	}
	id := ms.Identity()
	sub.script = id.String()
	return id, true
}

// Schema returns the field layout of obj: its embedded type tree, or a
// layout derived from the type source for script classes. Failure is a
// *SchemaError wrapping ErrSchemaUnavailable.
func (s *Session) Schema(obj *graph.Object) (*typetree.Node, error) {
	if obj == nil {
		return nil, fmt.Errorf("%w: nil object", ErrWrongKind)
	}
	sub := &subject{s: s, obj: obj}
	n, err := s.describer.Describe(sub)
	if err != nil {
		s.log().Debug("schema unavailable", "container", obj.Container().Name(), "path_id", obj.PathID, "error", err)
		return nil, &SchemaError{
			Container: obj.Container().Name(),
			PathID:    obj.PathID,
			Class:     obj.ClassName(),
			Script:    sub.script,
		}
	}
	return n, nil
}

// Dump decodes obj against its schema into a generic value tree.
func (s *Session) Dump(obj *graph.Object) (*typetree.Tree, error) {
	schema, err := s.Schema(obj)
	if err != nil {
		return nil, err
	}
	tree, err := typetree.Decode(obj.Reader(), schema)
	if err != nil {
		de := &DecodeError{
			Container: obj.Container().Name(),
			PathID:    obj.PathID,
			Class:     obj.ClassName(),
			Err:       err,
		}
		var fe *typetree.FieldError
		if errors.As(err, &fe) {
			de.Field = fe.Path
		}
		return nil, de
	}
	return tree, nil
}
