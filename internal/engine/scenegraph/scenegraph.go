// Package scenegraph holds the parsed in-memory scene: world-space mesh
// primitives and their materials. The graph is built once per model load,
// mutated in place by the classifier and binder, and released when the
// viewport closes.
package scenegraph

import "github.com/wrapstudio/wrapview/pkg/math"

// Material holds the authored (or substituted) surface parameters of a mesh.
type Material struct {
	Name        string
	BaseColor   [4]float32
	Roughness   float32
	Metalness   float32
	Transparent bool
	Opacity     float32
	Emissive    [3]float32
	DoubleSided bool

	// BaseColorImage indexes the scene document's image array, -1 when the
	// material has no authored color texture.
	BaseColorImage int

	// UsesWrap marks a replacement material carrying the wrap texture as
	// its color map.
	UsesWrap bool

	// Reflectivity scales environment/specular response on replacement
	// materials (the wrap binder sets it to 1).
	Reflectivity float32

	// DepthWrite is meaningful only for transparent materials.
	DepthWrite bool
}

// Mesh is one drawable primitive with world-space geometry.
type Mesh struct {
	Name string

	Positions []float32 // xyz triples
	Normals   []float32 // xyz triples, may be empty until recomputed
	UVs       []float32 // uv pairs, may be empty (wrap needs them, trim may lack them)
	Indices   []uint32  // empty means non-indexed triangle soup

	// MaterialIndex points into SceneGraph.Materials, -1 when the
	// primitive carried no material reference.
	MaterialIndex int

	// Material is the mesh's one current material: the authored one, or
	// the wrap replacement after binding. Never nil after Build.
	Material *Material

	FlatShading bool

	// RenderOrder orders transparent meshes after opaque ones; higher
	// draws later.
	RenderOrder int
}

// Bounds is an axis-aligned bounding box.
type Bounds struct {
	Min math.Vec3
	Max math.Vec3
}

// Center returns the box center.
func (b Bounds) Center() math.Vec3 {
	return b.Min.Add(b.Max).Scale(0.5)
}

// Radius returns half the box diagonal, for camera framing.
func (b Bounds) Radius() float32 {
	return b.Max.Sub(b.Min).Length() / 2
}

// SceneGraph is the parsed scene handed through the pipeline.
type SceneGraph struct {
	Meshes []*Mesh

	// Materials is the scene document's material array, attached at build
	// time because primitive-level material names are not always present.
	Materials []Material

	// Images holds the encoded payloads of the document's image array,
	// indexed by Material.BaseColorImage. Entries the loader could not
	// resolve are nil; the viewport falls back to the base color factor.
	Images [][]byte

	Bounds Bounds
}

// TriangleCount returns the total triangle count across all meshes.
func (g *SceneGraph) TriangleCount() int {
	var n int
	for _, m := range g.Meshes {
		if len(m.Indices) > 0 {
			n += len(m.Indices) / 3
		} else {
			n += len(m.Positions) / 9
		}
	}
	return n
}
