// Package wrap decides which meshes of a loaded vehicle scene receive the
// synthesized wrap texture and applies it to them.
package wrap

import "strings"

// Outcome is the per-mesh classification result.
type Outcome int

const (
	// RetainOriginal keeps the authored material (glass, trim, interior).
	RetainOriginal Outcome = iota
	// ReceivesWrap substitutes the wrap texture material.
	ReceivesWrap
)

func (o Outcome) String() string {
	if o == ReceivesWrap {
		return "receives-wrap"
	}
	return "retain-original"
}

// MaterialInfo is the classifier's view of one mesh material.
type MaterialInfo struct {
	Name        string // resolved name, may be empty
	norm        string // lowercased, separator-stripped form of Name
	Transparent bool
	Opacity     float32
	Metalness   float32
	Roughness   float32
}

// Marker lists. Matching is substring over the normalized name, so
// "Window_Glass", "glass_roof" and "GlassFront" all hit "glass". The
// lists encode one asset family's authoring convention; supporting a new
// convention means adding rules or markers, not branches.
var (
	glassMarkers = []string{"glass", "windshield", "windscreen"}

	paintMarkers = []string{"paint", "exterior", "body"}

	fadeMarker = "fade"

	exclusionMarkers = []string{
		"glass", "interior", "light", "leather", "plastic", "chrome",
		"metal", "rubber", "fabric", "seatbelt", "grille", "chargeport",
		"plate", "ground", "mirror", "suede", "decor", "screen",
		"blacktrim", "storage",
	}
)

// Numeric-property fallback thresholds for unnamed materials. A
// best-effort guess with no ground truth; kept in one place so it stays
// isolated and testable.
const (
	unnamedMinOpacity   = 0.9
	unnamedMinMetalness = 0.3
	unnamedMaxRoughness = 0.8
)

// rule pairs a predicate with its outcome. Rules are evaluated in order,
// first match wins; no rule matching means RetainOriginal.
type rule struct {
	name    string
	match   func(MaterialInfo) bool
	outcome Outcome
}

// classificationRules is the ordered decision table. Glass sits first and
// overrides every other signal: a wrapped window is always wrong.
var classificationRules = []rule{
	{
		name:    "glass",
		match:   matchGlass,
		outcome: RetainOriginal,
	},
	{
		name:    "fade-paint",
		match:   matchFadePaint,
		outcome: ReceivesWrap,
	},
	{
		name:    "paint",
		match:   matchPaint,
		outcome: ReceivesWrap,
	},
	{
		name:    "unnamed-heuristic",
		match:   matchUnnamedHeuristic,
		outcome: ReceivesWrap,
	},
}

// normalizeName lowercases and strips separators so marker matching is
// insensitive to "Charge_Port" vs "ChargePort" vs "charge port".
func normalizeName(name string) string {
	var b strings.Builder
	b.Grow(len(name))
	for _, r := range strings.ToLower(name) {
		switch r {
		case '_', '-', ' ', '.':
		default:
			b.WriteRune(r)
		}
	}
	return b.String()
}

func containsAny(norm string, markers []string) bool {
	for _, m := range markers {
		if strings.Contains(norm, m) {
			return true
		}
	}
	return false
}

func matchGlass(m MaterialInfo) bool {
	if containsAny(m.norm, glassMarkers) {
		return true
	}
	return m.Transparent && m.Opacity < 0.5
}

// matchFadePaint hits edge-blended paint variants ("ExteriorFade",
// "PaintFade_Left"). They receive the wrap regardless of their
// transparency flag; the binder gives them blend handling instead.
func matchFadePaint(m MaterialInfo) bool {
	if !strings.Contains(m.norm, fadeMarker) {
		return false
	}
	if !containsAny(m.norm, paintMarkers) {
		return false
	}
	return !excluded(m.norm)
}

func matchPaint(m MaterialInfo) bool {
	if !containsAny(m.norm, paintMarkers) {
		return false
	}
	return !excluded(m.norm)
}

// matchUnnamedHeuristic guesses for meshes whose material carries no
// usable name: near-opaque, fairly metallic, fairly smooth surfaces are
// treated as body panels.
func matchUnnamedHeuristic(m MaterialInfo) bool {
	if m.norm != "" && m.norm != "unnamed" {
		return false
	}
	opaque := !m.Transparent || m.Opacity >= unnamedMinOpacity
	return opaque && m.Metalness > unnamedMinMetalness && m.Roughness < unnamedMaxRoughness
}

// excluded reports whether the name carries any exclusion token. Glass is
// in the list too, but the glass rule fires first anyway.
func excluded(norm string) bool {
	return containsAny(norm, exclusionMarkers)
}

// IsFade reports whether a resolved material name is a fade blend variant.
// The binder uses this for transparency and draw-order handling.
func IsFade(name string) bool {
	m := MaterialInfo{Name: name, norm: normalizeName(name)}
	return matchFadePaint(m)
}
