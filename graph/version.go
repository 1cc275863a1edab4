package graph

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
)

// ErrVersion is returned for an engine version string that cannot be parsed.
var ErrVersion = errors.New("graph: malformed engine version")

// Version is a parsed engine version such as 2019.4.31f1.
type Version struct {
	Major, Minor, Patch int
	Stage               string // release stage letter: a, b, f, p, x
	Build               int
}

// ParseVersion parses "major.minor.patch<stage><build>". The patch and
// build parts are optional.
func ParseVersion(s string) (Version, error) {
	parts := strings.SplitN(s, ".", 3)
	if len(parts) < 2 {
		return Version{}, fmt.Errorf("%w: %q", ErrVersion, s)
	}
	var v Version
	var err error
	if v.Major, err = strconv.Atoi(parts[0]); err != nil {
		return Version{}, fmt.Errorf("%w: %q", ErrVersion, s)
	}
	if v.Minor, err = strconv.Atoi(parts[1]); err != nil {
		return Version{}, fmt.Errorf("%w: %q", ErrVersion, s)
	}
	if len(parts) == 2 {
		return v, nil
	}

	rest := parts[2]
	i := 0
	for i < len(rest) && rest[i] >= '0' && rest[i] <= '9' {
		i++
	}
	if i == 0 {
		return Version{}, fmt.Errorf("%w: %q", ErrVersion, s)
	}
	v.Patch, _ = strconv.Atoi(rest[:i]) //nolint:errcheck // digits only
	rest = rest[i:]
	if rest == "" {
		return v, nil
	}
	j := 0
	for j < len(rest) && (rest[j] < '0' || rest[j] > '9') {
		j++
	}
	v.Stage = rest[:j]
	if j < len(rest) {
		if v.Build, err = strconv.Atoi(rest[j:]); err != nil {
			return Version{}, fmt.Errorf("%w: %q", ErrVersion, s)
		}
	}
	return v, nil
}

// IsStripped reports whether s is the placeholder written by builds that
// strip the engine version.
func IsStripped(s string) bool {
	return s == "" || s == "0.0.0"
}

// AtLeast reports whether v is at or after major.minor.patch. Missing
// trailing components are zero.
func (v Version) AtLeast(parts ...int) bool {
	mine := [3]int{v.Major, v.Minor, v.Patch}
	for i := range 3 {
		want := 0
		if i < len(parts) {
			want = parts[i]
		}
		if mine[i] != want {
			return mine[i] > want
		}
	}
	return true
}

// IsZero reports whether v is the zero Version.
func (v Version) IsZero() bool { return v == Version{} }

func (v Version) String() string {
	s := fmt.Sprintf("%d.%d.%d", v.Major, v.Minor, v.Patch)
	if v.Stage != "" {
		s += v.Stage + strconv.Itoa(v.Build)
	}
	return s
}
