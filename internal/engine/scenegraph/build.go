package scenegraph

import (
	"errors"
	"fmt"

	"go.uber.org/zap"

	"github.com/wrapstudio/wrapview/internal/logger"
	"github.com/wrapstudio/wrapview/pkg/formats"
	"github.com/wrapstudio/wrapview/pkg/math"
)

// ErrEmptyScene is returned when the document yields no drawable geometry.
var ErrEmptyScene = errors.New("scene document contains no drawable meshes")

const triangleMode = 4 // glTF primitive.mode TRIANGLES

// Build flattens a parsed glTF document into a SceneGraph with world-space
// geometry. Primitives with missing or malformed accessors are skipped
// rather than failing the whole load; the model files in the wild are
// frequently partial.
func Build(doc *formats.GLTF, src formats.BufferSource) (*SceneGraph, error) {
	graph := &SceneGraph{
		Materials: convertMaterials(doc),
		Bounds: Bounds{
			Min: math.Vec3{X: 1e10, Y: 1e10, Z: 1e10},
			Max: math.Vec3{X: -1e10, Y: -1e10, Z: -1e10},
		},
	}

	type entry struct {
		node   int
		parent math.Mat4
	}
	stack := make([]entry, 0, len(doc.Nodes))
	for _, root := range doc.RootNodes() {
		stack = append(stack, entry{node: root, parent: math.Identity()})
	}

	visited := make(map[int]bool)
	for len(stack) > 0 {
		e := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		if e.node < 0 || e.node >= len(doc.Nodes) || visited[e.node] {
			continue
		}
		visited[e.node] = true
		node := &doc.Nodes[e.node]

		world := e.parent.Mul(nodeMatrix(node))

		if node.Mesh != nil && *node.Mesh >= 0 && *node.Mesh < len(doc.Meshes) {
			gm := &doc.Meshes[*node.Mesh]
			for pi := range gm.Primitives {
				mesh, err := buildPrimitive(doc, src, &gm.Primitives[pi], graph, world, primitiveName(node, gm, pi))
				if err != nil {
					logger.Warn("skipping primitive",
						zap.String("node", node.Name),
						zap.Int("primitive", pi),
						zap.Error(err))
					continue
				}
				graph.Meshes = append(graph.Meshes, mesh)
			}
		}

		for _, child := range node.Children {
			stack = append(stack, entry{node: child, parent: world})
		}
	}

	if len(graph.Meshes) == 0 {
		return nil, ErrEmptyScene
	}
	return graph, nil
}

// primitiveName picks the most specific name available for diagnostics.
func primitiveName(node *formats.GLTFNode, mesh *formats.GLTFMesh, pi int) string {
	switch {
	case mesh.Name != "" && len(mesh.Primitives) > 1:
		return fmt.Sprintf("%s.%d", mesh.Name, pi)
	case mesh.Name != "":
		return mesh.Name
	default:
		return node.Name
	}
}

func buildPrimitive(doc *formats.GLTF, src formats.BufferSource, prim *formats.GLTFPrimitive,
	graph *SceneGraph, world math.Mat4, name string) (*Mesh, error) {

	if prim.Mode != nil && *prim.Mode != triangleMode {
		return nil, fmt.Errorf("non-triangle mode %d", *prim.Mode)
	}

	posAcc, ok := prim.Attributes["POSITION"]
	if !ok {
		return nil, errors.New("primitive has no POSITION attribute")
	}
	positions, err := formats.ReadAccessorFloats(doc, src, posAcc)
	if err != nil {
		return nil, fmt.Errorf("positions: %w", err)
	}
	if len(positions)%3 != 0 || len(positions) == 0 {
		return nil, fmt.Errorf("position stream has %d components", len(positions))
	}

	mesh := &Mesh{
		Name:          name,
		MaterialIndex: -1,
	}

	// World-space positions; bounds tracked as we transform.
	mesh.Positions = make([]float32, len(positions))
	for i := 0; i < len(positions); i += 3 {
		p := world.TransformPoint(math.Vec3{X: positions[i], Y: positions[i+1], Z: positions[i+2]})
		mesh.Positions[i] = p.X
		mesh.Positions[i+1] = p.Y
		mesh.Positions[i+2] = p.Z
		updateBounds(&graph.Bounds, p)
	}

	if normAcc, ok := prim.Attributes["NORMAL"]; ok {
		if normals, err := formats.ReadAccessorFloats(doc, src, normAcc); err == nil && len(normals) == len(positions) {
			mesh.Normals = make([]float32, len(normals))
			for i := 0; i < len(normals); i += 3 {
				n := world.TransformDirection(math.Vec3{X: normals[i], Y: normals[i+1], Z: normals[i+2]}).Normalize()
				mesh.Normals[i] = n.X
				mesh.Normals[i+1] = n.Y
				mesh.Normals[i+2] = n.Z
			}
		}
	}

	if uvAcc, ok := prim.Attributes["TEXCOORD_0"]; ok {
		if uvs, err := formats.ReadAccessorFloats(doc, src, uvAcc); err == nil && len(uvs) == len(positions)/3*2 {
			mesh.UVs = uvs
		}
	}

	if prim.Indices != nil {
		indices, err := formats.ReadAccessorIndices(doc, src, *prim.Indices)
		if err != nil {
			return nil, fmt.Errorf("indices: %w", err)
		}
		vertCount := uint32(len(positions) / 3)
		for _, idx := range indices {
			if idx >= vertCount {
				return nil, fmt.Errorf("index %d out of range (%d vertices)", idx, vertCount)
			}
		}
		mesh.Indices = indices
	}

	if prim.Material != nil && *prim.Material >= 0 && *prim.Material < len(graph.Materials) {
		mesh.MaterialIndex = *prim.Material
		mat := graph.Materials[*prim.Material]
		mesh.Material = &mat
	} else {
		mesh.Material = &Material{
			Name:           "",
			BaseColor:      [4]float32{0.8, 0.8, 0.8, 1},
			Roughness:      1,
			Metalness:      1,
			Opacity:        1,
			BaseColorImage: -1,
		}
	}

	return mesh, nil
}

// nodeMatrix returns the node's local transform: explicit matrix when
// present, otherwise composed TRS.
func nodeMatrix(node *formats.GLTFNode) math.Mat4 {
	if len(node.Matrix) == 16 {
		var m math.Mat4
		copy(m[:], node.Matrix)
		return m
	}

	t := math.Vec3{}
	if len(node.Translation) == 3 {
		t = math.Vec3{X: node.Translation[0], Y: node.Translation[1], Z: node.Translation[2]}
	}
	q := [4]float32{0, 0, 0, 1}
	if len(node.Rotation) == 4 {
		copy(q[:], node.Rotation)
	}
	s := math.Vec3{X: 1, Y: 1, Z: 1}
	if len(node.Scale) == 3 {
		s = math.Vec3{X: node.Scale[0], Y: node.Scale[1], Z: node.Scale[2]}
	}
	return math.TRS(t, q, s)
}

// convertMaterials maps the document material array into classifier-ready
// descriptors, applying the glTF defaults for absent fields.
func convertMaterials(doc *formats.GLTF) []Material {
	out := make([]Material, len(doc.Materials))
	for i := range doc.Materials {
		gm := &doc.Materials[i]
		m := Material{
			Name:           gm.Name,
			BaseColor:      [4]float32{1, 1, 1, 1},
			Roughness:      1,
			Metalness:      1,
			Opacity:        1,
			DoubleSided:    gm.DoubleSided,
			Transparent:    gm.AlphaMode == "BLEND",
			BaseColorImage: -1,
		}
		if len(gm.EmissiveFactor) == 3 {
			copy(m.Emissive[:], gm.EmissiveFactor)
		}
		if pbr := gm.PBRMetallicRoughness; pbr != nil {
			if len(pbr.BaseColorFactor) == 4 {
				copy(m.BaseColor[:], pbr.BaseColorFactor)
				m.Opacity = pbr.BaseColorFactor[3]
			}
			if pbr.MetallicFactor != nil {
				m.Metalness = *pbr.MetallicFactor
			}
			if pbr.RoughnessFactor != nil {
				m.Roughness = *pbr.RoughnessFactor
			}
			if pbr.BaseColorTexture != nil {
				if ti := pbr.BaseColorTexture.Index; ti >= 0 && ti < len(doc.Textures) && doc.Textures[ti].Source != nil {
					m.BaseColorImage = *doc.Textures[ti].Source
				}
			}
		}
		out[i] = m
	}
	return out
}

func updateBounds(b *Bounds, p math.Vec3) {
	if p.X < b.Min.X {
		b.Min.X = p.X
	}
	if p.Y < b.Min.Y {
		b.Min.Y = p.Y
	}
	if p.Z < b.Min.Z {
		b.Min.Z = p.Z
	}
	if p.X > b.Max.X {
		b.Max.X = p.X
	}
	if p.Y > b.Max.Y {
		b.Max.Y = p.Y
	}
	if p.Z > b.Max.Z {
		b.Max.Z = p.Z
	}
}
