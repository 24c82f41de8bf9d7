// Package world describes the static arena geometry of each scenario and
// computes simulated sensor readings against it.
//
// All functions are pure: the same pose and layout always produce the same
// readings, which keeps challenge grading reproducible.
package world

import "math"

// Box is an axis-aligned rectangle on the floor plane, inclusive on all edges.
type Box struct {
	MinX float64 `json:"min_x"`
	MaxX float64 `json:"max_x"`
	MinZ float64 `json:"min_z"`
	MaxZ float64 `json:"max_z"`
}

// Contains reports whether the point (x, z) lies inside the box.
func (b Box) Contains(x, z float64) bool {
	return x >= b.MinX && x <= b.MaxX && z >= b.MinZ && z <= b.MaxZ
}

// Zone is a coloured floor mat.
type Zone struct {
	Box
	Color uint32 `json:"color"`
}

// Ring is an annulus painted on the floor, used for line following.
type Ring struct {
	CX    float64 `json:"cx"`
	CZ    float64 `json:"cz"`
	Inner float64 `json:"inner"`
	Outer float64 `json:"outer"`
	Color uint32  `json:"color"`
}

// Contains reports whether (x, z) is on the painted band.
func (r Ring) Contains(x, z float64) bool {
	d := math.Hypot(x-r.CX, z-r.CZ)
	return d >= r.Inner && d <= r.Outer
}

// Ramp raises the floor linearly between StartZ and EndZ (StartZ > EndZ).
type Ramp struct {
	StartZ float64 `json:"start_z"`
	EndZ   float64 `json:"end_z"`
	Rise   float64 `json:"rise"`
}

// Height returns the floor height at z.
func (r Ramp) Height(z float64) float64 {
	switch {
	case z > r.StartZ:
		return 0
	case z < r.EndZ:
		return r.Rise
	}
	t := (r.StartZ - z) / (r.StartZ - r.EndZ)
	return clamp(t, 0, 1) * r.Rise
}

// Layout is the world geometry of one scenario.
type Layout struct {
	Wall  *Box   `json:"wall,omitempty"`
	Zones []Zone `json:"zones,omitempty"`
	Ring  *Ring  `json:"ring,omitempty"`
	Ramp  *Ramp  `json:"ramp,omitempty"`
	// ColorTolerance is the per-channel slack allowed by MatchesHex.
	ColorTolerance int `json:"color_tolerance"`
}

// Height returns the floor height at z, zero when the layout has no ramp.
func (l Layout) Height(z float64) float64 {
	if l.Ramp == nil {
		return 0
	}
	return l.Ramp.Height(z)
}

var (
	frontWall = Box{MinX: -3, MaxX: 3, MinZ: -8.25, MaxZ: -7.75}

	colorMats = []Zone{
		{Box: Box{MinX: 1.5, MaxX: 3.5, MinZ: -4, MaxZ: -2}, Color: ColorBlue},
		{Box: Box{MinX: -3.5, MaxX: -1.5, MinZ: -4, MaxZ: -2}, Color: ColorRed},
	}

	lineTrack = Ring{CX: -6, CZ: 0, Inner: 5.8, Outer: 6.2, Color: ColorBlack}

	startRamp = Ramp{StartZ: -1.5, EndZ: -16.5, Rise: 1}

	wallScenarios  = map[string]bool{"c9": true, "c14": true, "c15": true, "c16": true, "c19": true, "c20": true}
	colorScenarios = map[string]bool{"c13": true, "c14": true}
)

// LayoutFor returns the arena of the given scenario id. Unknown or empty ids
// yield an empty arena: no wall, plain white floor.
func LayoutFor(scenarioID string) Layout {
	var l Layout
	if wallScenarios[scenarioID] {
		wall := frontWall
		l.Wall = &wall
	}
	if colorScenarios[scenarioID] {
		l.Zones = append([]Zone(nil), colorMats...)
	}
	switch scenarioID {
	case "c3":
		ramp := startRamp
		l.Ramp = &ramp
	case "c21":
		ring := lineTrack
		l.Ring = &ring
	}
	return l
}

func clamp(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
