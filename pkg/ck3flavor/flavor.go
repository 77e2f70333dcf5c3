// Package ck3flavor implements per-save-version
// decoding policy for floats, and the set of identifiers whose values
// the melter must emit unquoted regardless of their wire Quoted/
// Unquoted tag.
package ck3flavor

import (
	"encoding/binary"
	"math"

	"github.com/condor/ck3save/pkg/ck3bin"
)

// epsilon is float64(math.Float32frombits(0x34000000)) i.e. f32::EPSILON
// promoted to f64, pinned exactly to the reference decoder: without this
// nudge, values such as 251.24999999999 fail to round-trip to 251.25000.
const epsilon = float64(0x1p-23)

// Flavor is a version-dependent decoding policy.
type Flavor struct {
	needsFloatReencode bool
	unquoteIdentifiers map[string]bool
}

// legacy is the pre-1.5 flavor: f64 is i64/1000.0 and values assigned to
// certain identifiers must be re-encoded before text emission.
var legacy = Flavor{
	needsFloatReencode: true,
	unquoteIdentifiers: identifierSet(
		"save_game_version", "portraits_version", "meta_date",
		"color1", "color2", "color3", "color4", "color5",
		"traits_lookup", "features", "modifiers", "traditions", "name_list",
	),
}

// modern is the 1.5+ flavor: f64 decodes directly to its final form.
var modern = Flavor{
	needsFloatReencode: false,
	unquoteIdentifiers: identifierSet(
		"save_game_version", "portraits_version", "meta_date",
		"color1", "color2", "color3", "color4", "color5",
		"traits_lookup", "features", "modifiers", "traditions",
		"name_list", "localization_key",
	),
}

func identifierSet(names ...string) map[string]bool {
	m := make(map[string]bool, len(names))
	for _, n := range names {
		m[n] = true
	}
	return m
}

// NeedsFloatReencode reports whether f64 values destined for designated
// identifiers must pass through ReencodeFloat before emission.
func (f Flavor) NeedsFloatReencode() bool { return f.needsFloatReencode }

// UnquoteIdentifier reports whether values of the resolved identifier
// name must always be emitted unquoted, independent of their wire tag.
func (f Flavor) UnquoteIdentifier(name string) bool {
	return f.unquoteIdentifiers[name]
}

// DecodeF32 decodes a raw little-endian IEEE-754 single, identical
// across both flavors.
func (f Flavor) DecodeF32(data [4]byte) float32 {
	return math.Float32frombits(binary.LittleEndian.Uint32(data[:]))
}

// DecodeF64 decodes a raw f64 token per this flavor's policy.
func (f Flavor) DecodeF64(data [8]byte) float64 {
	x := float64(int64(binary.LittleEndian.Uint64(data[:])))
	if f.needsFloatReencode {
		return x / 1000.0
	}
	return math.Trunc(x+epsilon*sign(x)) / 100000.0
}

// ReencodeFloat applies the Q49.15 re-encoding step required under the
// legacy flavor for values bound to vassal_power_value, budget_*,
// damage_last_tick, and gold (inside alive_data) before text emission.
// Pinned byte-for-byte to the reference implementation: 251.25000,
// 1.50799, and -350.0 are its worked fixtures.
func ReencodeFloat(f float64) float64 {
	scaled := f * 1000.0
	num := math.Trunc(scaled/32768.0*100000.0 + epsilon*sign(scaled))
	return num / 100000.0
}

func sign(x float64) float64 {
	switch {
	case x > 0:
		return 1
	case x < 0:
		return -1
	default:
		return 0
	}
}

// saveGameVersionToken is the well-known identifier token id whose
// following I32 value selects between flavors.
const saveGameVersionToken = 1423

// SelectFromTokens scans a pre-read window of binary tokens for the
// save_game_version pattern (Id Equal I32(v)) and returns the flavor
// matching v. It does not assume the pattern starts at a fixed offset:
// real saves interleave a small amount of framing before it.
func SelectFromTokens(tokens []ck3bin.Token) Flavor {
	for i := 0; i+2 < len(tokens); i++ {
		if tokens[i].Kind == ck3bin.KindID && tokens[i].ID == saveGameVersionToken &&
			tokens[i+1].Kind == ck3bin.KindEqual && tokens[i+2].Kind == ck3bin.KindI32 {
			v := tokens[i+2].I32
			if v >= 6 {
				return modern
			}
			return legacy
		}
	}
	return legacy
}
