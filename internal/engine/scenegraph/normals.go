package scenegraph

import (
	gomath "math"

	"github.com/wrapstudio/wrapview/pkg/math"
)

// weldEpsilon quantizes vertex positions when welding duplicates. Vehicle
// models are authored in meters; 0.1mm never merges distinct panels.
const weldEpsilon float32 = 0.0001

// EnsureIndexed welds duplicate vertices and builds an index buffer for a
// non-indexed mesh. Welding keys on quantized position plus UV so texture
// seams survive. Indexed meshes are left untouched.
func EnsureIndexed(m *Mesh) {
	if len(m.Indices) > 0 {
		return
	}
	vertCount := len(m.Positions) / 3
	if vertCount == 0 {
		return
	}

	type key struct {
		px, py, pz int32
		u, v       int32
	}
	hasUV := len(m.UVs) == vertCount*2

	lookup := make(map[key]uint32, vertCount)
	indices := make([]uint32, 0, vertCount)
	var positions, uvs []float32

	for i := 0; i < vertCount; i++ {
		k := key{
			px: int32(m.Positions[i*3] / weldEpsilon),
			py: int32(m.Positions[i*3+1] / weldEpsilon),
			pz: int32(m.Positions[i*3+2] / weldEpsilon),
		}
		if hasUV {
			k.u = int32(m.UVs[i*2] / weldEpsilon)
			k.v = int32(m.UVs[i*2+1] / weldEpsilon)
		}

		idx, ok := lookup[k]
		if !ok {
			idx = uint32(len(positions) / 3)
			lookup[k] = idx
			positions = append(positions, m.Positions[i*3], m.Positions[i*3+1], m.Positions[i*3+2])
			if hasUV {
				uvs = append(uvs, m.UVs[i*2], m.UVs[i*2+1])
			}
		}
		indices = append(indices, idx)
	}

	m.Positions = positions
	if hasUV {
		m.UVs = uvs
	}
	m.Indices = indices
	m.Normals = nil // stale after welding
}

// RecomputeSmoothNormals rebuilds per-vertex normals by accumulating face
// normals, then averaging across vertices that share a quantized position.
// Averaging by position (not by index) removes the faceted look caused by
// vertices duplicated along UV seams.
func RecomputeSmoothNormals(m *Mesh) {
	vertCount := len(m.Positions) / 3
	if vertCount == 0 || len(m.Indices) < 3 {
		return
	}

	normals := make([]float32, vertCount*3)
	for i := 0; i+2 < len(m.Indices); i += 3 {
		i0, i1, i2 := m.Indices[i], m.Indices[i+1], m.Indices[i+2]
		v0 := vertexAt(m, i0)
		v1 := vertexAt(m, i1)
		v2 := vertexAt(m, i2)

		face := v1.Sub(v0).Cross(v2.Sub(v0))
		if face.Length() < 1e-10 {
			continue // degenerate triangle
		}

		// Area-weighted accumulation: leave the cross product unnormalized.
		for _, idx := range []uint32{i0, i1, i2} {
			normals[idx*3] += face.X
			normals[idx*3+1] += face.Y
			normals[idx*3+2] += face.Z
		}
	}

	// Group vertices by quantized position and average across the group.
	posMap := make(map[[3]int32][]int, vertCount)
	for i := 0; i < vertCount; i++ {
		key := [3]int32{
			int32(m.Positions[i*3] / weldEpsilon),
			int32(m.Positions[i*3+1] / weldEpsilon),
			int32(m.Positions[i*3+2] / weldEpsilon),
		}
		posMap[key] = append(posMap[key], i)
	}

	for _, idxs := range posMap {
		if len(idxs) < 2 {
			continue
		}
		var sum math.Vec3
		for _, idx := range idxs {
			sum.X += normals[idx*3]
			sum.Y += normals[idx*3+1]
			sum.Z += normals[idx*3+2]
		}
		for _, idx := range idxs {
			normals[idx*3] = sum.X
			normals[idx*3+1] = sum.Y
			normals[idx*3+2] = sum.Z
		}
	}

	// Normalize in place.
	for i := 0; i < vertCount; i++ {
		x, y, z := normals[i*3], normals[i*3+1], normals[i*3+2]
		l := float32(gomath.Sqrt(float64(x*x + y*y + z*z)))
		if l < 1e-10 {
			normals[i*3], normals[i*3+1], normals[i*3+2] = 0, 1, 0
			continue
		}
		normals[i*3] = x / l
		normals[i*3+1] = y / l
		normals[i*3+2] = z / l
	}

	m.Normals = normals
	m.FlatShading = false
}

func vertexAt(m *Mesh, i uint32) math.Vec3 {
	return math.Vec3{
		X: m.Positions[i*3],
		Y: m.Positions[i*3+1],
		Z: m.Positions[i*3+2],
	}
}
