package world

import (
	"math"
	"strconv"
)

// Sensor geometry, in world units (1 unit = 10 cm).
const (
	TouchOffset    = 1.6
	DistanceOrigin = 1.05
	DistanceStep   = 0.5
	DistanceRange  = 25.5
	ColorOffset    = 0.8
)

// DistanceNone is the ultrasonic reading reported when nothing is in range.
// It is a sentinel, not a measurement.
const DistanceNone = 255

// Light intensities reported by the colour sensor, in percent.
const (
	IntensityBright = 100
	IntensityColor  = 50
	IntensityDark   = 5
)

// Readings is the full sensor panel for one pose.
type Readings struct {
	Gyro      int    `json:"gyro"`
	Touch     bool   `json:"touch"`
	Distance  int    `json:"distance"`
	Color     string `json:"color"`
	Intensity int    `json:"intensity"`
	RawColor  uint32 `json:"raw_color"`
}

// InRange reports whether Distance is a real measurement.
func (r Readings) InRange() bool {
	return r.Distance != DistanceNone
}

// DistanceLabel formats the distance the way the sensor dashboard shows it.
func (r Readings) DistanceLabel() string {
	if !r.InRange() {
		return "> 255"
	}
	return strconv.Itoa(r.Distance)
}

// Sense computes every sensor reading for a robot at (x, z) facing heading.
func Sense(x, z, heading float64, l Layout) Readings {
	name, intensity, raw := Color(x, z, heading, l)
	return Readings{
		Gyro:      Gyro(heading),
		Touch:     Touch(x, z, heading, l),
		Distance:  Distance(x, z, heading, l),
		Color:     name,
		Intensity: intensity,
		RawColor:  raw,
	}
}

// Gyro reports round(heading mod 360). The remainder keeps the sign of the
// heading, so turning right from zero reads negative.
func Gyro(heading float64) int {
	return roundHalfUp(math.Mod(heading, 360))
}

// Touch reports whether the bumper point ahead of the robot is inside the wall.
func Touch(x, z, heading float64, l Layout) bool {
	if l.Wall == nil {
		return false
	}
	sin, cos := direction(heading)
	return l.Wall.Contains(x+sin*TouchOffset, z+cos*TouchOffset)
}

// Distance marches a ray from the ultrasonic sensor along the heading and
// returns the first hit in centimetres, or DistanceNone.
func Distance(x, z, heading float64, l Layout) int {
	if l.Wall == nil {
		return DistanceNone
	}
	sin, cos := direction(heading)
	ox := x + sin*DistanceOrigin
	oz := z + cos*DistanceOrigin
	for d := 0.0; d < DistanceRange; d += DistanceStep {
		if l.Wall.Contains(ox+sin*d, oz+cos*d) {
			return roundHalfUp(d * 10)
		}
	}
	return DistanceNone
}

// Color samples the floor just ahead of the robot and returns the colour
// name, light intensity and packed RGB value.
func Color(x, z, heading float64, l Layout) (string, int, uint32) {
	sin, cos := direction(heading)
	raw := SampleFloor(l, x+sin*ColorOffset, z+cos*ColorOffset)
	return NameOf(raw), intensityOf(raw), raw
}

// SampleFloor returns the floor colour at (x, z). The ring is painted first
// and zones on top of it in list order, so the last matching zone wins.
func SampleFloor(l Layout, x, z float64) uint32 {
	raw := ColorWhite
	if l.Ring != nil && l.Ring.Contains(x, z) {
		raw = l.Ring.Color
	}
	for _, zone := range l.Zones {
		if zone.Contains(x, z) {
			raw = zone.Color
		}
	}
	return raw
}

func intensityOf(raw uint32) int {
	switch raw {
	case ColorWhite:
		return IntensityBright
	case ColorBlack:
		return IntensityDark
	default:
		return IntensityColor
	}
}

func direction(heading float64) (float64, float64) {
	rad := heading * math.Pi / 180
	return math.Sin(rad), math.Cos(rad)
}

// roundHalfUp rounds .5 towards positive infinity.
func roundHalfUp(v float64) int {
	return int(math.Floor(v + 0.5))
}
