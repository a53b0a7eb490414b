// Package domain models the weather-effect configuration stored on scene items.
//
// # Storage
//
// Each scene item carries a generic string-keyed metadata container. The panel
// owns exactly one key, "<plugin id>/weather" (see [MetadataKey]), whose value is
// a JSON-like record:
//
//	{"type": "RAIN", "speed": 2, "density": 3, "direction": {"x": -1, "y": -1}, "tint": "#3366cc"}
//
// Only "type" is required. Absent fields are defaulted on read:
//
//	speed      1        wind intensity, 1 (low) to 4 (max)
//	density    3        particle cover, 1 (low) to 4 (max)
//	direction  (-1,-1)  drift vector, components in {-1, 0, 1}, never (0,0)
//	tint       none     "#" + 6 hex digits
//
// A value under the key that is not a plain map (a string, number, list, nil)
// belongs to someone else. It reads as "no configuration" and is never written.
//
// # Tint Sentinel
//
// "#ffffff" means "no tint". It is compared case-insensitively and is never
// stored: writes of the sentinel remove the field instead (see [IsNoTint]).
//
// # Directions
//
// Stored vectors map onto eight compass symbols by 45° snapping, with EAST at 0°
// and angles increasing counter-clockwise (NORTH is +y). The zero vector has no
// angle and resolves to EAST. See [VectorToDirection] and [DirectionToVector].
//
// # Colors
//
// Hue/saturation/lightness use H in [0,360) and S, L in [0,100]. Conversion to
// hex rounds each channel to a byte, so a round trip is lossy but settles after
// at most two iterations. See [HSLToHex] and [HexToHSL].
package domain
