package wrap

import (
	"go.uber.org/zap"

	"github.com/wrapstudio/wrapview/internal/engine/scenegraph"
	"github.com/wrapstudio/wrapview/internal/logger"
)

// MeshClassification is the per-mesh wrap decision, plus the resolved
// material name and matched rule for diagnostics and debug filters.
type MeshClassification struct {
	Mesh         *scenegraph.Mesh
	Outcome      Outcome
	MaterialName string
	Rule         string
	Fade         bool
}

// ReceivesWrap reports whether the mesh gets the wrap texture.
func (c MeshClassification) ReceivesWrap() bool {
	return c.Outcome == ReceivesWrap
}

// Classify decides, for every mesh in the graph, whether it receives the
// wrap texture or retains its authored material. Pure over its inputs: no
// network or file IO, deterministic, idempotent. Runs once per model
// (re)load, never per frame.
//
// Every mesh, regardless of outcome, is indexed and has its normals
// recomputed for smooth shading; duplicate vertices from non-indexed
// exports would otherwise render faceted.
func Classify(graph *scenegraph.SceneGraph) []MeshClassification {
	log := logger.Named("classify")
	out := make([]MeshClassification, 0, len(graph.Meshes))

	for _, mesh := range graph.Meshes {
		scenegraph.EnsureIndexed(mesh)
		scenegraph.RecomputeSmoothNormals(mesh)

		info := resolveInfo(graph, mesh)
		cls := MeshClassification{
			Mesh:         mesh,
			Outcome:      RetainOriginal,
			MaterialName: info.Name,
			Rule:         "default",
		}
		for _, r := range classificationRules {
			if r.match(info) {
				cls.Outcome = r.outcome
				cls.Rule = r.name
				break
			}
		}
		cls.Fade = cls.Outcome == ReceivesWrap && matchFadePaint(info)

		if info.Name == "" || info.Name == "unnamed" {
			log.Debug("material has no usable name, numeric fallback applied",
				zap.String("mesh", mesh.Name),
				zap.String("outcome", cls.Outcome.String()))
		}

		out = append(out, cls)
	}

	return out
}

// resolveInfo builds the classifier's material view: prefer the mesh
// material's own name, fall back to the graph-level material array by
// index (primitive-level names are not always populated), else empty.
func resolveInfo(graph *scenegraph.SceneGraph, mesh *scenegraph.Mesh) MaterialInfo {
	mat := mesh.Material

	name := mat.Name
	if name == "" && mesh.MaterialIndex >= 0 && mesh.MaterialIndex < len(graph.Materials) {
		name = graph.Materials[mesh.MaterialIndex].Name
	}

	return MaterialInfo{
		Name:        name,
		norm:        normalizeName(name),
		Transparent: mat.Transparent,
		Opacity:     mat.Opacity,
		Metalness:   mat.Metalness,
		Roughness:   mat.Roughness,
	}
}
