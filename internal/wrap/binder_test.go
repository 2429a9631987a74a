package wrap

import (
	"testing"

	"github.com/wrapstudio/wrapview/internal/engine/scenegraph"
)

type fakeTexture struct {
	dirtyCount int
}

func (f *fakeTexture) MarkDirty() { f.dirtyCount++ }

func TestBindSubstitutesWrapMaterial(t *testing.T) {
	paintMat := opaque("Body_Paint")
	paintMat.Roughness = 0.25
	paintMat.Metalness = 0.75
	paintMat.DoubleSided = true
	paintMat.Emissive = [3]float32{0.1, 0, 0}

	paint := meshWithMaterial("body", paintMat)
	glass := meshWithMaterial("window", opaque("Window_Glass"))
	glass.FlatShading = true
	graph := graphOf(paint, glass)

	cls := Classify(graph)
	tex := &fakeTexture{}
	Bind(graph, cls, tex)

	if !paint.Material.UsesWrap {
		t.Error("paint mesh material does not use the wrap texture")
	}
	// Inherited surface properties.
	if paint.Material.Roughness != 0.25 || paint.Material.Metalness != 0.75 {
		t.Errorf("inherited roughness/metalness = %v/%v, want 0.25/0.75",
			paint.Material.Roughness, paint.Material.Metalness)
	}
	if !paint.Material.DoubleSided {
		t.Error("double-sided not inherited")
	}
	if paint.Material.Emissive != [3]float32{0.1, 0, 0} {
		t.Errorf("emissive not inherited: %v", paint.Material.Emissive)
	}
	if paint.Material.Reflectivity != 1 {
		t.Errorf("reflectivity = %v, want 1", paint.Material.Reflectivity)
	}
	// Non-fade wrap draws opaque.
	if paint.Material.Transparent {
		t.Error("non-fade wrap material marked transparent")
	}

	// Retained mesh: material untouched, shading forced smooth.
	if glass.Material.UsesWrap {
		t.Error("glass mesh received the wrap texture")
	}
	if glass.FlatShading {
		t.Error("retained mesh still flat-shaded")
	}

	if tex.dirtyCount != 1 {
		t.Errorf("texture marked dirty %d times during bind, want 1", tex.dirtyCount)
	}
}

func TestBindDefaultsWithoutOriginalMaterial(t *testing.T) {
	mesh := &scenegraph.Mesh{
		Name:          "orphan",
		Positions:     []float32{0, 0, 0, 1, 0, 0, 0, 1, 0},
		Indices:       []uint32{0, 1, 2},
		MaterialIndex: -1,
		Material:      &scenegraph.Material{Opacity: 1, Metalness: 0.5, Roughness: 0.4, BaseColorImage: -1},
	}
	graph := &scenegraph.SceneGraph{Meshes: []*scenegraph.Mesh{mesh}}

	cls := Classify(graph)
	if !cls[0].ReceivesWrap() {
		t.Fatal("fixture mesh should receive wrap via numeric fallback")
	}
	Bind(graph, cls, &fakeTexture{})

	if mesh.Material.Roughness != defaultWrapRoughness {
		t.Errorf("roughness = %v, want default %v", mesh.Material.Roughness, defaultWrapRoughness)
	}
	if mesh.Material.Metalness != defaultWrapMetalness {
		t.Errorf("metalness = %v, want default %v", mesh.Material.Metalness, defaultWrapMetalness)
	}
	if !mesh.Material.DoubleSided {
		t.Error("default wrap material not double-sided")
	}
}

func TestBindFadeTransparencyAndOrder(t *testing.T) {
	fadeMat := opaque("ExteriorFade")
	fadeMat.Transparent = true
	fade := meshWithMaterial("seam", fadeMat)
	body := meshWithMaterial("body", opaque("Body_Paint"))
	graph := graphOf(fade, body)

	cls := Classify(graph)
	Bind(graph, cls, &fakeTexture{})

	if !fade.Material.Transparent || !fade.Material.DepthWrite {
		t.Errorf("fade material transparency/depth = %v/%v, want true/true",
			fade.Material.Transparent, fade.Material.DepthWrite)
	}
	if fade.RenderOrder <= body.RenderOrder {
		t.Errorf("fade render order %d not above opaque %d", fade.RenderOrder, body.RenderOrder)
	}
}

func TestRefreshOnlyMarksDirty(t *testing.T) {
	paint := meshWithMaterial("body", opaque("Body_Paint"))
	graph := graphOf(paint)
	cls := Classify(graph)

	tex := &fakeTexture{}
	Bind(graph, cls, tex)
	boundMaterial := paint.Material

	// A design edit refreshes the texture without rebuilding materials or
	// reclassifying.
	Refresh(tex)

	if paint.Material != boundMaterial {
		t.Error("refresh replaced the bound material")
	}
	if tex.dirtyCount != 2 {
		t.Errorf("dirty count = %d, want 2 (bind + refresh)", tex.dirtyCount)
	}
}
