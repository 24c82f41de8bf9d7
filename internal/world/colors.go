package world

import (
	"fmt"
	"strconv"
	"strings"
)

// Packed RGB values of the named colours the simulator knows about.
const (
	ColorBlack   uint32 = 0x000000
	ColorWhite   uint32 = 0xFFFFFF
	ColorRed     uint32 = 0xFF0000
	ColorGreen   uint32 = 0x00FF00
	ColorBlue    uint32 = 0x0000FF
	ColorYellow  uint32 = 0xFFFF00
	ColorCyan    uint32 = 0x00FFFF
	ColorMagenta uint32 = 0xFF00FF
	ColorOrange  uint32 = 0xFFA500
)

var colorNames = map[uint32]string{
	ColorBlack:   "black",
	ColorWhite:   "white",
	ColorRed:     "red",
	ColorGreen:   "green",
	ColorBlue:    "blue",
	ColorYellow:  "yellow",
	ColorCyan:    "cyan",
	ColorMagenta: "magenta",
	ColorOrange:  "orange",
}

// NameOf returns the colour name of raw, or its hex form when unnamed.
func NameOf(raw uint32) string {
	if name, ok := colorNames[raw]; ok {
		return name
	}
	return HexColor(raw)
}

// HexColor formats raw as an upper-case "#RRGGBB" string.
func HexColor(raw uint32) string {
	return fmt.Sprintf("#%06X", raw&0xFFFFFF)
}

// ParseHex parses "#RRGGBB" or "RRGGBB", case-insensitively.
func ParseHex(hex string) (uint32, bool) {
	s := strings.TrimPrefix(strings.TrimSpace(hex), "#")
	if len(s) != 6 {
		return 0, false
	}
	v, err := strconv.ParseUint(s, 16, 32)
	if err != nil {
		return 0, false
	}
	return uint32(v), true
}

// MatchesHex reports whether hex names the colour raw, allowing each RGB
// channel to differ by at most tolerance. Malformed input never matches.
func MatchesHex(raw uint32, hex string, tolerance int) bool {
	want, ok := ParseHex(hex)
	if !ok {
		return false
	}
	for shift := 0; shift <= 16; shift += 8 {
		a := int(raw>>shift) & 0xFF
		b := int(want>>shift) & 0xFF
		if absInt(a-b) > tolerance {
			return false
		}
	}
	return true
}

// NormalizeColor maps a colour token (a name or a hex string) to its
// lower-case name when the simulator knows it, and to lower-case otherwise.
func NormalizeColor(token string) string {
	t := strings.ToLower(strings.TrimSpace(token))
	if raw, ok := ParseHex(t); ok {
		if name, named := colorNames[raw]; named {
			return name
		}
	}
	return t
}

// ParseColor resolves a colour name or hex string to its RGB value.
func ParseColor(token string) (uint32, bool) {
	t := strings.ToLower(strings.TrimSpace(token))
	for raw, name := range colorNames {
		if name == t {
			return raw, true
		}
	}
	return ParseHex(t)
}

func absInt(v int) int {
	if v < 0 {
		return -v
	}
	return v
}
