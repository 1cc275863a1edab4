package curve

import (
	"encoding/json"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var inf = float32(math.Inf(1))

func track(keys ...Keyframe) Track {
	return Track{Target: TargetParameter, ID: "ParamAngleX", Keys: keys}
}

func TestConvertDegenerate(t *testing.T) {
	t.Parallel()

	res, err := Convert(track())
	require.NoError(t, err)
	assert.Equal(t, Result{}, res)
	assert.Nil(t, Flatten(res))

	res, err = Convert(track(Keyframe{Time: 0.5, Value: 3}))
	require.NoError(t, err)
	assert.Equal(t, 1, res.PointCount)
	assert.Equal(t, 0, res.SegmentCount)
	assert.Empty(t, res.Segments)
	assert.Equal(t, Point{0.5, 3}, res.First)
	assert.Equal(t, []float32{0, 3}, Flatten(res))
}

func TestFlattenStartsAtZero(t *testing.T) {
	t.Parallel()

	res, err := Convert(track(Keyframe{Time: 0.25, Value: 2}, Keyframe{Time: 1, Value: 6}))
	require.NoError(t, err)
	assert.Equal(t, []float32{0, 2, 0, 1, 6}, Flatten(res))

	points, segs, err := Count(Flatten(res))
	require.NoError(t, err)
	assert.Equal(t, res.PointCount, points)
	assert.Equal(t, res.SegmentCount, segs)
}

func TestConvertStepped(t *testing.T) {
	t.Parallel()

	res, err := Convert(track(Keyframe{}, Keyframe{Time: 1, Value: 5, InSlope: inf}))
	require.NoError(t, err)
	require.Len(t, res.Segments, 1)
	assert.Equal(t, Stepped, res.Segments[0].Type)
	assert.Equal(t, Point{1, 5}, res.Segments[0].End())
	assert.Equal(t, []float32{0, 0, 2, 1, 5}, Flatten(res))

	// An infinite out-slope on the earlier key does not step.
	res, err = Convert(track(Keyframe{OutSlope: inf}, Keyframe{Time: 1, Value: 5}))
	require.NoError(t, err)
	require.Len(t, res.Segments, 1)
	assert.NotEqual(t, Stepped, res.Segments[0].Type)
}

func TestConvertLinear(t *testing.T) {
	t.Parallel()

	res, err := Convert(track(Keyframe{}, Keyframe{Time: 1, Value: 2, InSlope: 0.00005}))
	require.NoError(t, err)
	require.Len(t, res.Segments, 1)
	assert.Equal(t, Linear, res.Segments[0].Type)
	assert.Equal(t, 2, res.PointCount)
}

func TestConvertBezier(t *testing.T) {
	t.Parallel()

	res, err := Convert(track(
		Keyframe{Time: 0, Value: 1, OutSlope: 3},
		Keyframe{Time: 3, Value: 4, InSlope: 2},
	))
	require.NoError(t, err)
	require.Len(t, res.Segments, 1)
	seg := res.Segments[0]
	assert.Equal(t, Bezier, seg.Type)
	// Control offsets are slope * dt/3 with dt/3 = 1.
	assert.Equal(t, []Point{{1, 4}, {2, 2}, {3, 4}}, seg.Points)
	assert.Equal(t, 4, res.PointCount)
	assert.Equal(t, []float32{0, 1, 1, 1, 4, 2, 2, 3, 4}, Flatten(res))
}

func TestConvertInverseStepped(t *testing.T) {
	t.Parallel()

	res, err := Convert(track(
		Keyframe{Time: 0, Value: 0},
		Keyframe{Time: 0.01, Value: 7},
		Keyframe{Time: 1, Value: 7},
		Keyframe{Time: 2, Value: 7},
	))
	require.NoError(t, err)
	require.Len(t, res.Segments, 2)
	assert.Equal(t, InverseStepped, res.Segments[0].Type)
	assert.Equal(t, Point{1, 7}, res.Segments[0].End())
	assert.Equal(t, Linear, res.Segments[1].Type)
	assert.Equal(t, 3, res.PointCount)
	assert.Equal(t, 2, res.SegmentCount)
}

func TestConvertHoldAtEnd(t *testing.T) {
	t.Parallel()

	// A hold gap on the last pair has no keyframe after next and falls
	// through to the other rules.
	res, err := Convert(track(
		Keyframe{Time: 0, Value: 0},
		Keyframe{Time: 0.01, Value: 7},
	))
	require.NoError(t, err)
	require.Len(t, res.Segments, 1)
	assert.Equal(t, Linear, res.Segments[0].Type)

	// A hold whose value changes afterwards is not inverse stepped.
	res, err = Convert(track(
		Keyframe{Time: 0, Value: 0},
		Keyframe{Time: 0.01, Value: 7},
		Keyframe{Time: 1, Value: 8},
	))
	require.NoError(t, err)
	require.Len(t, res.Segments, 2)
	assert.Equal(t, Linear, res.Segments[0].Type)
}

func TestValidate(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		keys []Keyframe
	}{
		{name: "equal times", keys: []Keyframe{{Time: 1}, {Time: 1}}},
		{name: "decreasing", keys: []Keyframe{{Time: 2}, {Time: 1}}},
		{name: "nan", keys: []Keyframe{{Time: float32(math.NaN())}}},
		{name: "inf", keys: []Keyframe{{Time: 0}, {Time: inf}}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			_, err := Convert(track(tt.keys...))
			assert.ErrorIs(t, err, ErrInvalidTrack)
		})
	}
	assert.NoError(t, Validate(track(Keyframe{Time: 0, InSlope: inf}, Keyframe{Time: 1})))
}

func TestCountsMatchFlattened(t *testing.T) {
	t.Parallel()

	var keys []Keyframe
	for i := range 40 {
		k := Keyframe{Time: float32(i) * 0.5, Value: float32(i % 3)}
		switch i % 4 {
		case 1:
			k.InSlope = inf
		case 2:
			k.InSlope, k.OutSlope = 1.5, -0.5
		}
		keys = append(keys, k)
	}
	keys = append(keys,
		Keyframe{Time: 30, Value: 9},
		Keyframe{Time: 30.01, Value: 4},
		Keyframe{Time: 31, Value: 4},
	)

	res, err := Convert(track(keys...))
	require.NoError(t, err)
	points, segs, err := Count(Flatten(res))
	require.NoError(t, err)
	assert.Equal(t, res.PointCount, points)
	assert.Equal(t, res.SegmentCount, segs)
	assert.Len(t, res.Segments, segs)
}

func TestCountMalformed(t *testing.T) {
	t.Parallel()

	_, _, err := Count([]float32{0})
	require.ErrorIs(t, err, ErrInvalidTrack)
	_, _, err = Count([]float32{0, 0, 1, 1, 1})
	require.ErrorIs(t, err, ErrInvalidTrack)
	_, _, err = Count([]float32{0, 0, 9, 1, 1})
	assert.ErrorIs(t, err, ErrInvalidTrack)
}

func TestBuildMotion(t *testing.T) {
	t.Parallel()

	m, err := BuildMotion(Clip{
		Name:       "idle",
		Duration:   2,
		SampleRate: 30,
		Tracks: []Track{
			{Target: TargetParameter, ID: "ParamA", Keys: []Keyframe{{}, {Time: 1, Value: 5, InSlope: inf}}},
			{Target: TargetPartOpacity, ID: "PartB", Keys: []Keyframe{{Value: 1, OutSlope: 1}, {Time: 2, Value: 0, InSlope: 1}}},
			{Target: TargetModel, ID: "Opacity", Keys: []Keyframe{{Value: 1}}},
		},
		Events: []Event{{Time: 0.5, Value: "blink"}, {Time: 1, Value: "go"}},
	})
	require.NoError(t, err)

	assert.Equal(t, MotionVersion, m.Version)
	assert.Equal(t, "idle", m.Name)
	assert.Equal(t, MotionMeta{
		Duration:             2,
		Fps:                  30,
		Loop:                 true,
		AreBeziersRestricted: true,
		CurveCount:           3,
		TotalSegmentCount:    2,
		TotalPointCount:      2 + 4 + 1,
		UserDataCount:        2,
		TotalUserDataSize:    7,
	}, m.Meta)

	var points, segs int
	for _, c := range m.Curves {
		p, s, err := Count(c.Segments)
		require.NoError(t, err)
		points += p
		segs += s
	}
	assert.Equal(t, m.Meta.TotalPointCount, points)
	assert.Equal(t, m.Meta.TotalSegmentCount, segs)

	raw, err := json.Marshal(m)
	require.NoError(t, err)
	var doc map[string]any
	require.NoError(t, json.Unmarshal(raw, &doc))
	assert.NotContains(t, doc, "Name")
	assert.Contains(t, doc["Meta"], "TotalPointCount")
	curves, ok := doc["Curves"].([]any)
	require.True(t, ok)
	assert.Equal(t, "ParamA", curves[0].(map[string]any)["Id"])
}

func TestBuildMotionInvalidTrack(t *testing.T) {
	t.Parallel()

	_, err := BuildMotion(Clip{Name: "bad", Tracks: []Track{track(Keyframe{Time: 1}, Keyframe{Time: 0})}})
	assert.ErrorIs(t, err, ErrInvalidTrack)
}

func TestBinding(t *testing.T) {
	t.Parallel()

	tests := []struct {
		path, attr string
		target, id string
	}{
		{"Parameters/ParamAngleX", "m_Value", TargetParameter, "ParamAngleX"},
		{"Parts/PartArmL", "m_Opacity", TargetPartOpacity, "PartArmL"},
		{"", "Opacity", TargetModel, "Opacity"},
		{"Root/Eye", "", TargetModel, "Eye"},
	}
	for _, tt := range tests {
		target, id := Binding(tt.path, tt.attr)
		assert.Equal(t, tt.target, target, tt.path)
		assert.Equal(t, tt.id, id, tt.path)
	}
}

func TestSegmentTypeString(t *testing.T) {
	t.Parallel()

	assert.Equal(t, "inverse-stepped", InverseStepped.String())
	assert.Equal(t, "SegmentType(7)", SegmentType(7).String())
}
