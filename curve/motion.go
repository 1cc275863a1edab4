package curve

import (
	"fmt"
	"path"
	"strings"
)

// MotionVersion is the motion document format version.
const MotionVersion = 3

// Binding targets.
const (
	TargetParameter   = "Parameter"
	TargetPartOpacity = "PartOpacity"
	TargetModel       = "Model"
)

// Event is a timeline event carried into the motion's user data.
type Event struct {
	Time  float32
	Value string
}

// Clip is an animation ready to be converted into a motion.
type Clip struct {
	Name       string
	Duration   float32
	SampleRate float32
	Tracks     []Track
	Events     []Event
}

// Motion is a motion document. Field names follow the motion3 JSON layout.
type Motion struct {
	Version  int        `json:"Version"`
	Meta     MotionMeta `json:"Meta"`
	Curves   []Curve    `json:"Curves"`
	UserData []UserData `json:"UserData"`

	// Name is the source clip's name; it is not part of the document.
	Name string `json:"-"`
}

// MotionMeta is the motion header. Its totals are authoritative for
// consumers.
type MotionMeta struct {
	Duration             float32 `json:"Duration"`
	Fps                  float32 `json:"Fps"`
	Loop                 bool    `json:"Loop"`
	AreBeziersRestricted bool    `json:"AreBeziersRestricted"`
	CurveCount           int     `json:"CurveCount"`
	TotalSegmentCount    int     `json:"TotalSegmentCount"`
	TotalPointCount      int     `json:"TotalPointCount"`
	UserDataCount        int     `json:"UserDataCount"`
	TotalUserDataSize    int     `json:"TotalUserDataSize"`
}

// Curve is one converted track in a motion.
type Curve struct {
	Target   string    `json:"Target"`
	ID       string    `json:"Id"`
	Segments []float32 `json:"Segments"`
}

// UserData is one timeline event in a motion.
type UserData struct {
	Time  float32 `json:"Time"`
	Value string  `json:"Value"`
}

// BuildMotion converts every track of c and assembles the motion document.
// A track that fails validation fails the whole motion.
func BuildMotion(c Clip) (*Motion, error) {
	m := &Motion{
		Version: MotionVersion,
		Name:    c.Name,
		Meta: MotionMeta{
			Duration:             c.Duration,
			Fps:                  c.SampleRate,
			Loop:                 true,
			AreBeziersRestricted: true,
			CurveCount:           len(c.Tracks),
			UserDataCount:        len(c.Events),
		},
		Curves:   make([]Curve, 0, len(c.Tracks)),
		UserData: make([]UserData, 0, len(c.Events)),
	}
	for _, t := range c.Tracks {
		res, err := Convert(t)
		if err != nil {
			return nil, fmt.Errorf("curve: motion %s: %w", c.Name, err)
		}
		m.Curves = append(m.Curves, Curve{Target: t.Target, ID: t.ID, Segments: Flatten(res)})
		m.Meta.TotalSegmentCount += res.SegmentCount
		m.Meta.TotalPointCount += res.PointCount
	}
	for _, e := range c.Events {
		m.UserData = append(m.UserData, UserData(e))
		m.Meta.TotalUserDataSize += len(e.Value)
	}
	return m, nil
}

// Binding maps an animated object path and attribute to a motion target and
// id. Paths under Parameters/ drive parameters, paths under Parts/ drive part
// opacity, and anything else is a model-level curve named by its attribute.
func Binding(objectPath, attribute string) (target, id string) {
	switch {
	case strings.HasPrefix(objectPath, "Parameters/"):
		return TargetParameter, path.Base(objectPath)
	case strings.HasPrefix(objectPath, "Parts/"):
		return TargetPartOpacity, path.Base(objectPath)
	default:
		if attribute == "" {
			return TargetModel, path.Base(objectPath)
		}
		return TargetModel, attribute
	}
}
