package viewport

import (
	"sort"
	"unsafe"

	"github.com/go-gl/gl/v4.1-core/gl"
	"go.uber.org/zap"

	"github.com/wrapstudio/wrapview/internal/engine/scenegraph"
	"github.com/wrapstudio/wrapview/internal/engine/texture"
	"github.com/wrapstudio/wrapview/internal/logger"
)

// vertexStride is position (3) + normal (3) + uv (2) floats.
const vertexStride = 8

// renderMesh is one mesh's GPU residency.
type renderMesh struct {
	vao        uint32
	vbo        uint32
	ebo        uint32
	indexCount int32

	mesh *scenegraph.Mesh

	// texID is the texture the mesh samples: the shared wrap texture for
	// wrapped meshes, a per-material upload for authored images, or 0.
	texID uint32

	// ownsTex marks per-material textures released with the mesh. The
	// shared wrap texture is never owned here.
	ownsTex bool
}

// uploadMeshes pushes every mesh in the graph to the GPU. Authored
// base-color images are decoded and uploaded once per image index and
// shared between meshes. Must run on the GL thread.
func uploadMeshes(graph *scenegraph.SceneGraph, wrapTexID uint32) []*renderMesh {
	log := logger.Named("viewport")

	imageTex := make(map[int]uint32)
	var out []*renderMesh

	for _, mesh := range graph.Meshes {
		rm := &renderMesh{mesh: mesh}

		switch {
		case mesh.Material.UsesWrap:
			rm.texID = wrapTexID
		case mesh.Material.BaseColorImage >= 0:
			rm.texID = imageTexture(graph, mesh.Material.BaseColorImage, imageTex, log)
		}

		if !uploadGeometry(rm, mesh) {
			log.Warn("mesh has no uploadable geometry", zap.String("mesh", mesh.Name))
			continue
		}
		out = append(out, rm)
	}

	// Shared image textures are owned by the first mesh that carries
	// them, so teardown releases each exactly once.
	owned := make(map[uint32]bool)
	for _, rm := range out {
		if rm.texID != 0 && rm.texID != wrapTexID && !owned[rm.texID] {
			rm.ownsTex = true
			owned[rm.texID] = true
		}
	}

	return out
}

// imageTexture decodes and uploads the graph image at idx, caching by
// index so shared images upload once.
func imageTexture(graph *scenegraph.SceneGraph, idx int, cache map[int]uint32, log *zap.Logger) uint32 {
	if id, ok := cache[idx]; ok {
		return id
	}
	if idx >= len(graph.Images) || graph.Images[idx] == nil {
		cache[idx] = 0
		return 0
	}
	img, err := texture.DecodeImage(graph.Images[idx])
	if err != nil {
		log.Warn("undecodable base color image", zap.Int("image", idx), zap.Error(err))
		cache[idx] = 0
		return 0
	}
	id := texture.UploadImage(img)
	cache[idx] = id
	return id
}

// uploadGeometry interleaves the mesh streams and creates the VAO.
func uploadGeometry(rm *renderMesh, mesh *scenegraph.Mesh) bool {
	vertCount := len(mesh.Positions) / 3
	if vertCount == 0 || len(mesh.Indices) == 0 {
		return false
	}

	verts := make([]float32, 0, vertCount*vertexStride)
	for i := 0; i < vertCount; i++ {
		verts = append(verts, mesh.Positions[i*3], mesh.Positions[i*3+1], mesh.Positions[i*3+2])
		if len(mesh.Normals) == len(mesh.Positions) {
			verts = append(verts, mesh.Normals[i*3], mesh.Normals[i*3+1], mesh.Normals[i*3+2])
		} else {
			verts = append(verts, 0, 1, 0)
		}
		if len(mesh.UVs) == vertCount*2 {
			verts = append(verts, mesh.UVs[i*2], mesh.UVs[i*2+1])
		} else {
			verts = append(verts, 0, 0)
		}
	}

	gl.GenVertexArrays(1, &rm.vao)
	gl.BindVertexArray(rm.vao)

	gl.GenBuffers(1, &rm.vbo)
	gl.BindBuffer(gl.ARRAY_BUFFER, rm.vbo)
	gl.BufferData(gl.ARRAY_BUFFER, len(verts)*4, unsafe.Pointer(&verts[0]), gl.STATIC_DRAW)

	stride := int32(vertexStride * 4)
	gl.VertexAttribPointerWithOffset(0, 3, gl.FLOAT, false, stride, 0)
	gl.EnableVertexAttribArray(0)
	gl.VertexAttribPointerWithOffset(1, 3, gl.FLOAT, false, stride, 3*4)
	gl.EnableVertexAttribArray(1)
	gl.VertexAttribPointerWithOffset(2, 2, gl.FLOAT, false, stride, 6*4)
	gl.EnableVertexAttribArray(2)

	gl.GenBuffers(1, &rm.ebo)
	gl.BindBuffer(gl.ELEMENT_ARRAY_BUFFER, rm.ebo)
	gl.BufferData(gl.ELEMENT_ARRAY_BUFFER, len(mesh.Indices)*4, unsafe.Pointer(&mesh.Indices[0]), gl.STATIC_DRAW)

	rm.indexCount = int32(len(mesh.Indices))
	gl.BindVertexArray(0)
	return true
}

// destroyMeshes releases all GPU residency for the given meshes.
func destroyMeshes(meshes []*renderMesh) {
	for _, rm := range meshes {
		if rm.vao != 0 {
			gl.DeleteVertexArrays(1, &rm.vao)
		}
		if rm.vbo != 0 {
			gl.DeleteBuffers(1, &rm.vbo)
		}
		if rm.ebo != 0 {
			gl.DeleteBuffers(1, &rm.ebo)
		}
		if rm.ownsTex && rm.texID != 0 {
			gl.DeleteTextures(1, &rm.texID)
		}
	}
}

// splitPasses partitions meshes into the opaque pass and the blended
// pass, the latter sorted by ascending render order so faded panels
// composite over the body they cover.
func splitPasses(meshes []*renderMesh) (opaque, blended []*renderMesh) {
	for _, rm := range meshes {
		if rm.mesh.Material.Transparent {
			blended = append(blended, rm)
		} else {
			opaque = append(opaque, rm)
		}
	}
	sort.SliceStable(blended, func(i, j int) bool {
		return blended[i].mesh.RenderOrder < blended[j].mesh.RenderOrder
	})
	return opaque, blended
}
