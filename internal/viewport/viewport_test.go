package viewport

import (
	"testing"

	"github.com/wrapstudio/wrapview/internal/engine/scenegraph"
)

func rm(name string, transparent bool, order int) *renderMesh {
	return &renderMesh{
		mesh: &scenegraph.Mesh{
			Name:        name,
			RenderOrder: order,
			Material:    &scenegraph.Material{Transparent: transparent},
		},
	}
}

func TestSplitPassesSeparatesTransparent(t *testing.T) {
	meshes := []*renderMesh{
		rm("body", false, 0),
		rm("fade_hood", true, 10),
		rm("glass", true, 0),
		rm("trim", false, 0),
	}

	opaque, blended := splitPasses(meshes)

	if len(opaque) != 2 {
		t.Fatalf("got %d opaque meshes, want 2", len(opaque))
	}
	if len(blended) != 2 {
		t.Fatalf("got %d blended meshes, want 2", len(blended))
	}
	for _, m := range opaque {
		if m.mesh.Material.Transparent {
			t.Errorf("transparent mesh %s in opaque pass", m.mesh.Name)
		}
	}
}

func TestSplitPassesOrdersBlendedByRenderOrder(t *testing.T) {
	meshes := []*renderMesh{
		rm("fade_roof", true, 10),
		rm("glass_rear", true, 0),
		rm("fade_hood", true, 10),
		rm("glass_front", true, 0),
	}

	_, blended := splitPasses(meshes)

	want := []string{"glass_rear", "glass_front", "fade_roof", "fade_hood"}
	for i, m := range blended {
		if m.mesh.Name != want[i] {
			t.Errorf("blended[%d] = %s, want %s (stable sort by render order)", i, m.mesh.Name, want[i])
		}
	}
}

func TestSplitPassesEmpty(t *testing.T) {
	opaque, blended := splitPasses(nil)
	if len(opaque) != 0 || len(blended) != 0 {
		t.Error("empty input should yield empty passes")
	}
}

func TestReflectivityDefaults(t *testing.T) {
	authored := &scenegraph.Material{Name: "Chrome_Trim"}
	if got := reflectivity(authored); got != 1 {
		t.Errorf("authored material reflectivity = %v, want default 1", got)
	}

	bound := &scenegraph.Material{UsesWrap: true, Reflectivity: 1}
	if got := reflectivity(bound); got != 1 {
		t.Errorf("wrap material reflectivity = %v, want 1", got)
	}

	halved := &scenegraph.Material{Reflectivity: 0.5}
	if got := reflectivity(halved); got != 0.5 {
		t.Errorf("explicit reflectivity = %v, want 0.5", got)
	}
}

func TestDeliverPicksUpAtFrameBoundary(t *testing.T) {
	c := &Controller{pending: make(chan pendingScene, 1)}

	if _, ok := c.takePending(); ok {
		t.Fatal("fresh controller has a pending outcome")
	}

	graph := &scenegraph.SceneGraph{}
	c.Deliver(graph)

	p, ok := c.takePending()
	if !ok {
		t.Fatal("delivered graph never surfaced")
	}
	if p.graph != graph || p.errMsg != "" {
		t.Errorf("takePending = %+v, want the delivered graph", p)
	}
	if _, ok := c.takePending(); ok {
		t.Error("outcome surfaced twice")
	}
}

func TestDeliverReplacesUnclaimedOutcome(t *testing.T) {
	c := &Controller{pending: make(chan pendingScene, 1)}

	c.DeliverError("3D preview unavailable")
	graph := &scenegraph.SceneGraph{}
	c.Deliver(graph)

	p, ok := c.takePending()
	if !ok || p.graph != graph || p.errMsg != "" {
		t.Fatalf("takePending = %+v %v, want only the newest outcome", p, ok)
	}
	if _, ok := c.takePending(); ok {
		t.Error("stale outcome survived replacement")
	}
}

func TestDeliverErrorSurfacesMessage(t *testing.T) {
	c := &Controller{pending: make(chan pendingScene, 1)}

	c.DeliverError("3D model could not be read")

	p, ok := c.takePending()
	if !ok || p.errMsg != "3D model could not be read" || p.graph != nil {
		t.Fatalf("takePending = %+v %v", p, ok)
	}
}

func TestLoadProgressInStatusText(t *testing.T) {
	c := &Controller{pending: make(chan pendingScene, 1)}

	if got := c.StatusText(); got != "no vehicle loaded" {
		t.Errorf("idle status text = %q", got)
	}

	c.ReportProgress(0)
	if got := c.StatusText(); got != "loading 0%" {
		t.Errorf("status text = %q, want loading 0%%", got)
	}

	c.ReportProgress(85)
	if got := c.StatusText(); got != "loading 85%" {
		t.Errorf("status text = %q, want loading 85%%", got)
	}

	// Delivery ends the loading display even before the loop presents.
	c.Deliver(&scenegraph.SceneGraph{})
	if got := c.StatusText(); got != "no vehicle loaded" {
		t.Errorf("status text after delivery = %q", got)
	}
}

func TestOnQuitHookRegistered(t *testing.T) {
	c := &Controller{}

	called := false
	c.OnQuit(func() { called = true })
	c.quitHook()

	if !called {
		t.Error("registered quit hook did not run")
	}
}

func TestStatusText(t *testing.T) {
	c := &Controller{}

	if c.Status() != StatusEmpty {
		t.Errorf("fresh controller status = %v, want empty", c.Status())
	}
	if got := c.StatusText(); got != "no vehicle loaded" {
		t.Errorf("empty status text = %q", got)
	}

	c.status = StatusUnavailable
	c.statusMsg = "3D preview unavailable"
	if got := c.StatusText(); got != "3D preview unavailable" {
		t.Errorf("unavailable status text = %q", got)
	}

	c.status = StatusReady
	if got := c.StatusText(); got != "" {
		t.Errorf("ready status text = %q, want empty", got)
	}
}
