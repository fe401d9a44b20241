package asc

import (
	"fmt"
	"strconv"
	"strings"
)

// Version is the guest's object layout version, an ordered (major, minor,
// patch) triple. Only two layout classes matter to the bridge: everything
// at or below 0.0.4 uses the v0.0.4 header shapes, everything at or above
// 0.0.5 uses the v0.0.5 shapes.
type Version struct {
	Major, Minor, Patch uint8
}

// ParseVersion parses a "major.minor.patch" string, the form manifest
// mapping.apiVersion fields use.
func ParseVersion(s string) (Version, error) {
	parts := strings.SplitN(s, ".", 3)
	if len(parts) != 3 {
		return Version{}, fmt.Errorf("asc: invalid version %q", s)
	}
	var nums [3]uint8
	for i, p := range parts {
		n, err := strconv.ParseUint(p, 10, 8)
		if err != nil {
			return Version{}, fmt.Errorf("asc: invalid version %q: %w", s, err)
		}
		nums[i] = uint8(n)
	}
	return Version{Major: nums[0], Minor: nums[1], Patch: nums[2]}, nil
}

func (v Version) String() string {
	return fmt.Sprintf("%d.%d.%d", v.Major, v.Minor, v.Patch)
}

// Compare returns -1, 0, or 1 as v is less than, equal to, or greater than
// o, ordered lexicographically by (major, minor, patch).
func (v Version) Compare(o Version) int {
	switch {
	case v.Major != o.Major:
		return cmp(v.Major, o.Major)
	case v.Minor != o.Minor:
		return cmp(v.Minor, o.Minor)
	default:
		return cmp(v.Patch, o.Patch)
	}
}

func cmp(a, b uint8) int {
	switch {
	case a < b:
		return -1
	case a > b:
		return 1
	default:
		return 0
	}
}

// V004 is the ceiling of the legacy layout class (object layouts at or below
// this version use the v0.0.4 header shapes).
var V004 = Version{0, 0, 4}

// V005 is the floor of the current layout class.
var V005 = Version{0, 0, 5}

// Class identifies which of the two supported on-wire layout families a
// Version belongs to.
type Class int

const (
	ClassV004 Class = iota
	ClassV005
)

// ClassOf returns the layout class that applies to v. Versions above 0.0.4
// and below 0.0.5 do not exist in practice, so anything ≤ 0.0.4 is v004 and
// anything ≥ 0.0.5 is v005.
func ClassOf(v Version) Class {
	if v.Compare(V005) >= 0 {
		return ClassV005
	}
	return ClassV004
}

func (c Class) String() string {
	if c == ClassV005 {
		return "v0.0.5"
	}
	return "v0.0.4"
}
