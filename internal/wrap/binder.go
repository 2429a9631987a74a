package wrap

import (
	"go.uber.org/zap"

	"github.com/wrapstudio/wrapview/internal/engine/scenegraph"
	"github.com/wrapstudio/wrapview/internal/logger"
)

// Replacement material defaults, used when the original material lacks a
// value to inherit.
const (
	defaultWrapRoughness = 0.4
	defaultWrapMetalness = 0.6
)

// fadeRenderOrder pushes fade meshes after all opaque geometry so edge
// blending composites correctly.
const fadeRenderOrder = 10

// TextureRef is the binder's handle on the shared wrap texture. Binding
// never reallocates the texture; design edits only mark it dirty.
type TextureRef interface {
	MarkDirty()
}

// Bind applies the wrap texture to every receives-wrap mesh by installing
// a replacement material, and forces consistent smooth shading on
// retained meshes. Runs once per model (re)load, after Classify.
func Bind(graph *scenegraph.SceneGraph, classifications []MeshClassification, tex TextureRef) {
	log := logger.Named("bind")
	var wrapped, retained int

	for _, cls := range classifications {
		mesh := cls.Mesh

		if !cls.ReceivesWrap() {
			// Visual treatment stays consistent across the model: retained
			// meshes keep their texture but never flat-shade.
			mesh.FlatShading = false
			retained++
			continue
		}

		mesh.Material = replacementMaterial(mesh, cls)
		mesh.FlatShading = false
		if cls.Fade {
			mesh.RenderOrder = fadeRenderOrder
		} else {
			mesh.RenderOrder = 0
		}
		wrapped++
	}

	if tex != nil {
		tex.MarkDirty()
	}

	log.Info("wrap texture bound",
		zap.Int("wrapped", wrapped),
		zap.Int("retained", retained))
}

// Refresh propagates a design edit: the shared texture is marked dirty and
// the next frame picks it up. No reclassification, no material rebuild.
func Refresh(tex TextureRef) {
	if tex != nil {
		tex.MarkDirty()
	}
}

// replacementMaterial builds the wrap material for a mesh, inheriting the
// original's surface properties where it has them.
func replacementMaterial(mesh *scenegraph.Mesh, cls MeshClassification) *scenegraph.Material {
	m := &scenegraph.Material{
		Name:           cls.MaterialName,
		BaseColor:      [4]float32{1, 1, 1, 1},
		Roughness:      defaultWrapRoughness,
		Metalness:      defaultWrapMetalness,
		Reflectivity:   1,
		Opacity:        1,
		DoubleSided:    true,
		BaseColorImage: -1,
		UsesWrap:       true,
	}

	if orig := mesh.Material; orig != nil && mesh.MaterialIndex >= 0 {
		m.Roughness = orig.Roughness
		m.Metalness = orig.Metalness
		m.DoubleSided = orig.DoubleSided
		m.BaseColor = orig.BaseColor
		m.Emissive = orig.Emissive
	}

	// Only fade variants blend; everything else draws opaque regardless of
	// the authored transparency flag.
	if cls.Fade {
		m.Transparent = true
		m.DepthWrite = true
	}

	return m
}
