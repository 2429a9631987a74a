// Package design models the 2D wrap-design surface the texture
// synthesizer samples from. The paint editor itself lives elsewhere; this
// package covers only its rasterize-and-notify contract, plus a
// file-backed implementation for the standalone viewer.
package design

import (
	"image"
)

// SupersampleFactor is the fixed pixel-ratio multiplier used when
// rasterizing the design for the wrap texture. 4x keeps painted detail
// crisp when the texture is stretched over a large mesh.
const SupersampleFactor = 4

// Surface is a live 2D design that can be rasterized and reports changes.
type Surface interface {
	// Rasterize renders the design at its logical size times multiplier.
	// Row order is top-left origin, matching the mesh UV convention, so
	// the resulting texture must not be vertically flipped.
	Rasterize(multiplier float64) (*image.RGBA, error)

	// Subscribe registers fn to run after every design mutation. fn must
	// be cheap; heavy work (re-rasterization) belongs on the caller's
	// frame boundary.
	Subscribe(fn func())
}
