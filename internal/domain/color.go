package domain

import (
	"fmt"
	"math"
	"regexp"
	"strconv"
	"strings"
)

// NoTint is the sentinel meaning "no tint applied". It is never stored.
const NoTint = "#ffffff"

var (
	hexPattern     = regexp.MustCompile(`^#[0-9A-Fa-f]{6}$`)
	partialPattern = regexp.MustCompile(`^#[0-9A-Fa-f]{0,6}$`)
)

// ValidHex reports whether s is "#" followed by exactly six hex digits.
func ValidHex(s string) bool {
	return hexPattern.MatchString(s)
}

// PartialHex reports whether s is a hex color still being typed: "#" followed
// by up to six hex digits.
func PartialHex(s string) bool {
	return partialPattern.MatchString(s)
}

// IsNoTint reports whether tint means "no tint": empty or the sentinel.
func IsNoTint(tint string) bool {
	return tint == "" || strings.EqualFold(tint, NoTint)
}

// HSLToRGB converts hue [0,360), saturation and lightness [0,100] to byte channels.
func HSLToRGB(h, s, l float64) (r, g, b uint8) {
	l /= 100
	a := s * math.Min(l, 1-l) / 100
	channel := func(n float64) uint8 {
		k := mod(n+h/30, 12)
		c := l - a*math.Max(math.Min(math.Min(k-3, 9-k), 1), -1)
		return clampByte(math.Floor(255*c + 0.5))
	}
	return channel(0), channel(8), channel(4)
}

// HSLToHex renders an HSL triple as a lowercase "#rrggbb" string.
func HSLToHex(h, s, l float64) string {
	r, g, b := HSLToRGB(h, s, l)
	return fmt.Sprintf("#%02x%02x%02x", r, g, b)
}

// HexToHSL parses "#rrggbb" (the "#" is optional) into hue [0,360) and
// saturation/lightness [0,100]. Malformed input yields zeros; callers validate.
func HexToHSL(hex string) (h, s, l float64) {
	r, g, b, ok := parseHex(hex)
	if !ok {
		return 0, 0, 0
	}
	rf, gf, bf := float64(r)/255, float64(g)/255, float64(b)/255

	maxC := math.Max(rf, math.Max(gf, bf))
	minC := math.Min(rf, math.Min(gf, bf))
	l = (maxC + minC) / 2

	if maxC != minC {
		d := maxC - minC
		if l > 0.5 {
			s = d / (2 - maxC - minC)
		} else {
			s = d / (maxC + minC)
		}
		switch maxC {
		case rf:
			h = (gf - bf) / d
			if gf < bf {
				h += 6
			}
		case gf:
			h = (bf-rf)/d + 2
		default:
			h = (rf-gf)/d + 4
		}
		h /= 6
	}

	return mod(h*360, 360), s * 100, l * 100
}

func parseHex(hex string) (r, g, b uint8, ok bool) {
	hex = strings.TrimPrefix(hex, "#")
	if len(hex) != 6 {
		return 0, 0, 0, false
	}
	v, err := strconv.ParseUint(hex, 16, 32)
	if err != nil {
		return 0, 0, 0, false
	}
	return uint8(v >> 16), uint8(v >> 8 & 0xFF), uint8(v & 0xFF), true
}

func clampByte(v float64) uint8 {
	switch {
	case math.IsNaN(v), v <= 0:
		return 0
	case v >= 255:
		return 255
	}
	return uint8(v)
}
