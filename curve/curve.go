package curve

import (
	"errors"
	"fmt"
	"math"
)

// ErrInvalidTrack is returned when keyframe times are not finite and
// strictly increasing.
var ErrInvalidTrack = errors.New("curve: invalid track")

const (
	// holdGap is the time gap of a same-instant hold.
	holdGap = 0.01
	// epsilon bounds the hold gap match and the flat tangent test.
	epsilon = 0.0001
)

// SegmentType identifies a motion segment kind. The values are the segment
// identifiers of the motion document encoding.
type SegmentType int

// Segment kinds.
const (
	Linear         SegmentType = 0
	Bezier         SegmentType = 1
	Stepped        SegmentType = 2
	InverseStepped SegmentType = 3
)

func (s SegmentType) String() string {
	switch s {
	case Linear:
		return "linear"
	case Bezier:
		return "bezier"
	case Stepped:
		return "stepped"
	case InverseStepped:
		return "inverse-stepped"
	default:
		return fmt.Sprintf("SegmentType(%d)", int(s))
	}
}

// points returns how many points a segment of this kind carries.
func (s SegmentType) points() int {
	if s == Bezier {
		return 3
	}
	return 1
}

// Keyframe is one sample of a track with Hermite tangents.
type Keyframe struct {
	Time     float32
	Value    float32
	InSlope  float32
	OutSlope float32
}

// Point is a time/value pair.
type Point struct {
	Time  float32
	Value float32
}

// Segment is one piece of a converted curve. Bezier segments carry two
// control points followed by the end point; the others carry the end point.
type Segment struct {
	Type   SegmentType
	Points []Point
}

// End returns the segment's end point.
func (s Segment) End() Point { return s.Points[len(s.Points)-1] }

// Track is one animated property.
type Track struct {
	Target string
	ID     string
	Keys   []Keyframe
}

// Result is a converted track.
type Result struct {
	// First is the track's first keyframe; zero for an empty track.
	First        Point
	Segments     []Segment
	PointCount   int
	SegmentCount int
}

// Validate reports whether the track's keyframe times are finite and
// strictly increasing.
func Validate(t Track) error {
	for i, k := range t.Keys {
		tm := float64(k.Time)
		if math.IsNaN(tm) || math.IsInf(tm, 0) {
			return fmt.Errorf("%w: %s: keyframe %d has non-finite time %v", ErrInvalidTrack, t.ID, i, k.Time)
		}
		if i > 0 && k.Time <= t.Keys[i-1].Time {
			return fmt.Errorf("%w: %s: keyframe %d at %v does not follow %v",
				ErrInvalidTrack, t.ID, i, k.Time, t.Keys[i-1].Time)
		}
	}
	return nil
}

// Convert validates t and converts its keyframes into segments. An empty
// track yields no points; a single keyframe yields one point and no
// segments.
func Convert(t Track) (Result, error) {
	if err := Validate(t); err != nil {
		return Result{}, err
	}
	keys := t.Keys
	if len(keys) == 0 {
		return Result{}, nil
	}

	res := Result{
		First:      Point{Time: keys[0].Time, Value: keys[0].Value},
		PointCount: 1,
	}
	for j := 1; j < len(keys); j++ {
		pre, cur := keys[j-1], keys[j]
		var seg Segment
		switch {
		case isHold(pre, cur) && j+1 < len(keys) && keys[j+1].Value == cur.Value:
			next := keys[j+1]
			seg = Segment{Type: InverseStepped, Points: []Point{{next.Time, next.Value}}}
			j++
		case math.IsInf(float64(cur.InSlope), 1):
			seg = Segment{Type: Stepped, Points: []Point{{cur.Time, cur.Value}}}
		case pre.OutSlope == 0 && abs(cur.InSlope) < epsilon:
			seg = Segment{Type: Linear, Points: []Point{{cur.Time, cur.Value}}}
		default:
			seg = bezier(pre, cur)
		}
		res.Segments = append(res.Segments, seg)
		res.PointCount += seg.Type.points()
	}
	res.SegmentCount = len(res.Segments)
	return res, nil
}

func isHold(pre, cur Keyframe) bool {
	return abs(cur.Time-pre.Time-holdGap) < epsilon
}

func bezier(pre, cur Keyframe) Segment {
	l := (cur.Time - pre.Time) / 3
	return Segment{Type: Bezier, Points: []Point{
		{pre.Time + l, pre.OutSlope*l + pre.Value},
		{cur.Time - l, cur.Value - cur.InSlope*l},
		{cur.Time, cur.Value},
	}}
}

func abs(v float32) float32 {
	return float32(math.Abs(float64(v)))
}

// Flatten encodes a converted track as a motion segment list: the first
// point's value at time zero, then each segment's type id followed by its
// points. An empty result flattens to nil.
func Flatten(r Result) []float32 {
	if r.PointCount == 0 {
		return nil
	}
	out := make([]float32, 0, 2+3*r.SegmentCount+2*r.PointCount)
	out = append(out, 0, r.First.Value)
	for _, s := range r.Segments {
		out = append(out, float32(s.Type))
		for _, p := range s.Points {
			out = append(out, p.Time, p.Value)
		}
	}
	return out
}

// Count recounts points and segments from a flattened segment list. It
// returns an error when the list is not a well-formed encoding.
func Count(segments []float32) (points, segs int, err error) {
	if len(segments) == 0 {
		return 0, 0, nil
	}
	if len(segments) < 2 {
		return 0, 0, fmt.Errorf("%w: segment list of length %d", ErrInvalidTrack, len(segments))
	}
	points = 1
	for i := 2; i < len(segments); {
		typ := SegmentType(segments[i])
		if typ < Linear || typ > InverseStepped {
			return 0, 0, fmt.Errorf("%w: unknown segment type %v at %d", ErrInvalidTrack, segments[i], i)
		}
		n := typ.points()
		i += 1 + 2*n
		if i > len(segments) {
			return 0, 0, fmt.Errorf("%w: truncated %s segment", ErrInvalidTrack, typ)
		}
		points += n
		segs++
	}
	return points, segs, nil
}
