// Package viewport owns the interactive 3D preview: the render loop,
// camera input, GPU residency of the current vehicle, and the frame
// boundary where design changes are folded into the wrap texture.
package viewport

import (
	"fmt"
	gomath "math"
	"sync/atomic"
	"time"

	"github.com/go-gl/gl/v4.1-core/gl"
	"github.com/veandco/go-sdl2/sdl"
	"go.uber.org/zap"

	"github.com/wrapstudio/wrapview/internal/design"
	"github.com/wrapstudio/wrapview/internal/engine/camera"
	"github.com/wrapstudio/wrapview/internal/engine/scenegraph"
	"github.com/wrapstudio/wrapview/internal/engine/shader"
	"github.com/wrapstudio/wrapview/internal/engine/texture"
	"github.com/wrapstudio/wrapview/internal/engine/window"
	"github.com/wrapstudio/wrapview/internal/logger"
	wmath "github.com/wrapstudio/wrapview/pkg/math"
)

// Status is the viewport's presentation state.
type Status int

const (
	// StatusEmpty: no scene presented yet.
	StatusEmpty Status = iota
	// StatusReady: a vehicle is on screen.
	StatusReady
	// StatusUnavailable: loading failed; the preview shows its error
	// state while the rest of the application stays usable.
	StatusUnavailable
)

// Controller drives the preview window.
type Controller struct {
	win     *window.Window
	cam     *camera.OrbitCamera
	program *shader.Program

	wrapTex *texture.WrapTexture
	surface design.Surface

	pending  chan pendingScene
	progress atomic.Int32 // load percent + 1; zero when no load is in flight
	quitHook func()

	graph  *scenegraph.SceneGraph
	meshes []*renderMesh

	fov       float32 // vertical FOV in radians
	showFPS   bool
	baseTitle string

	status    Status
	statusMsg string

	log *zap.Logger
}

// New creates the controller and compiles the vehicle shader. Must run
// on the GL thread after the window's context is current.
func New(win *window.Window, title string, fovDegrees float32, showFPS bool) (*Controller, error) {
	program, err := shader.Compile(vehicleVertexShader, vehicleFragmentShader)
	if err != nil {
		return nil, fmt.Errorf("vehicle shader: %w", err)
	}

	return &Controller{
		win:       win,
		cam:       camera.NewOrbitCamera(),
		program:   program,
		pending:   make(chan pendingScene, 1),
		fov:       fovDegrees * gomath.Pi / 180,
		showFPS:   showFPS,
		baseTitle: title,
		log:       logger.Named("viewport"),
	}, nil
}

// AttachDesign wires the 2D design surface in: an initial synthesis
// fills the wrap texture, and later surface changes mark it dirty so the
// next frame re-synthesizes. Must run on the GL thread.
func (c *Controller) AttachDesign(surface design.Surface) error {
	c.surface = surface
	c.wrapTex = texture.NewWrapTexture(design.SupersampleFactor)
	if err := c.wrapTex.Synthesize(surface); err != nil {
		return err
	}
	surface.Subscribe(c.wrapTex.MarkDirty)
	return nil
}

// WrapTexture returns the shared wrap texture, nil before AttachDesign.
func (c *Controller) WrapTexture() *texture.WrapTexture { return c.wrapTex }

// pendingScene is a load outcome waiting for the render loop to pick it
// up at a frame boundary.
type pendingScene struct {
	graph  *scenegraph.SceneGraph
	errMsg string
}

// Deliver hands a classified, bound graph to the render loop, which
// presents it at the next frame boundary. Safe from any goroutine, so a
// load can run off the GL thread while the window keeps repainting.
func (c *Controller) Deliver(graph *scenegraph.SceneGraph) {
	c.deliver(pendingScene{graph: graph})
}

// DeliverError puts the viewport into its non-fatal error state at the
// next frame boundary. Safe from any goroutine.
func (c *Controller) DeliverError(msg string) {
	c.deliver(pendingScene{errMsg: msg})
}

// deliver replaces any outcome the loop has not yet picked up: only the
// newest load matters.
func (c *Controller) deliver(p pendingScene) {
	c.progress.Store(0)
	for {
		select {
		case c.pending <- p:
			return
		case <-c.pending:
		}
	}
}

// takePending returns the undelivered load outcome, if any.
func (c *Controller) takePending() (pendingScene, bool) {
	select {
	case p := <-c.pending:
		return p, true
	default:
		return pendingScene{}, false
	}
}

// ReportProgress publishes load progress (0-100) for the empty-state
// display. Safe from any goroutine; satisfies the loader's ProgressFunc.
func (c *Controller) ReportProgress(percent int) {
	c.progress.Store(int32(percent) + 1)
}

// loadProgress returns the published percentage and whether a load is in
// flight.
func (c *Controller) loadProgress() (int, bool) {
	v := c.progress.Load()
	if v == 0 {
		return 0, false
	}
	return int(v - 1), true
}

// OnQuit registers fn to run when the event loop exits. The application
// uses it to cancel an in-flight load so late progress callbacks and
// results never touch torn-down state.
func (c *Controller) OnQuit(fn func()) {
	c.quitHook = fn
}

// Present replaces the current scene with a classified, bound graph:
// GPU residency for the old vehicle is released, the new one is
// uploaded, and the camera frames it. Must run on the GL thread.
func (c *Controller) Present(graph *scenegraph.SceneGraph) {
	destroyMeshes(c.meshes)

	c.graph = graph
	var wrapID uint32
	if c.wrapTex != nil {
		wrapID = c.wrapTex.ID()
	}
	c.meshes = uploadMeshes(graph, wrapID)
	c.cam.Frame(graph.Bounds, c.fov)

	c.status = StatusReady
	c.statusMsg = ""
	c.win.SetTitle(c.baseTitle)

	c.log.Info("scene presented",
		zap.Int("meshes", len(c.meshes)),
		zap.Int("triangles", graph.TriangleCount()))
}

// ShowUnavailable puts the viewport into its non-fatal error state.
func (c *Controller) ShowUnavailable(msg string) {
	c.status = StatusUnavailable
	c.statusMsg = msg
	c.win.SetTitle(c.baseTitle + " — " + msg)
	c.log.Warn("preview unavailable", zap.String("reason", msg))
}

// Status returns the current presentation state.
func (c *Controller) Status() Status { return c.status }

// StatusText returns the user-facing message for the current state.
func (c *Controller) StatusText() string {
	switch c.status {
	case StatusUnavailable:
		return c.statusMsg
	case StatusEmpty:
		if p, ok := c.loadProgress(); ok {
			return fmt.Sprintf("loading %d%%", p)
		}
		return "no vehicle loaded"
	default:
		return ""
	}
}

// Run drives the event and render loop until the window closes.
func (c *Controller) Run() error {
	gl.Enable(gl.DEPTH_TEST)

	last := time.Now()
	frames := 0
	fpsMark := last
	var leftDown bool
	shownProgress := -1

	running := true
	for running {
		for event := sdl.PollEvent(); event != nil; event = sdl.PollEvent() {
			switch e := event.(type) {
			case *sdl.QuitEvent:
				running = false

			case *sdl.MouseButtonEvent:
				if e.Button == sdl.BUTTON_LEFT {
					leftDown = e.State == sdl.PRESSED
				}

			case *sdl.MouseMotionEvent:
				if leftDown {
					c.cam.HandleDrag(float32(e.XRel), float32(e.YRel))
				}

			case *sdl.MouseWheelEvent:
				c.cam.HandleZoom(float32(e.Y))

			case *sdl.KeyboardEvent:
				if e.State == sdl.PRESSED {
					switch e.Keysym.Sym {
					case sdl.K_ESCAPE:
						running = false
					case sdl.K_r:
						c.cam.Reset()
					case sdl.K_f:
						c.win.ToggleFullscreen()
					}
				}
			}
		}

		now := time.Now()
		dt := float32(now.Sub(last).Seconds())
		last = now
		c.cam.Update(dt)

		// Load outcomes land here so Present and ShowUnavailable run on
		// the GL thread.
		if p, ok := c.takePending(); ok {
			if p.errMsg != "" {
				c.ShowUnavailable(p.errMsg)
			} else {
				c.Present(p.graph)
			}
		}
		if c.status == StatusEmpty {
			if p, ok := c.loadProgress(); ok && p != shownProgress {
				c.win.SetTitle(fmt.Sprintf("%s — loading %d%%", c.baseTitle, p))
				shownProgress = p
			}
		}

		// Design edits coalesce here: however many change events fired
		// since the last frame, at most one re-synthesis runs.
		if c.wrapTex != nil && c.surface != nil && c.wrapTex.TakeDirty() {
			if err := c.wrapTex.Synthesize(c.surface); err != nil {
				c.log.Warn("wrap re-synthesis failed", zap.Error(err))
			}
		}

		c.renderFrame()
		c.win.SwapBuffers()

		if c.showFPS {
			frames++
			if now.Sub(fpsMark) >= time.Second {
				c.win.SetTitle(fmt.Sprintf("%s — %d FPS", c.baseTitle, frames))
				frames = 0
				fpsMark = now
			}
		}
	}

	if c.quitHook != nil {
		c.quitHook()
	}
	return nil
}

func (c *Controller) renderFrame() {
	dw, dh := c.win.DrawableSize()
	gl.Viewport(0, 0, int32(dw), int32(dh))
	gl.ClearColor(0.13, 0.14, 0.16, 1.0)
	gl.Clear(gl.COLOR_BUFFER_BIT | gl.DEPTH_BUFFER_BIT)

	if c.status != StatusReady || len(c.meshes) == 0 || dh == 0 {
		return
	}

	aspect := float32(dw) / float32(dh)
	far := c.graph.Bounds.Radius() * 20
	if far < 100 {
		far = 100
	}
	proj := wmath.Perspective(c.fov, aspect, 0.05, far)
	viewProj := proj.Mul(c.cam.ViewMatrix())

	c.program.Use()
	c.program.SetMat4("uViewProj", viewProj)
	c.program.SetVec3("uCameraPos", c.cam.Position())

	// Studio rig: warm key from above left, cool fill opposite.
	c.program.SetVec3("uKeyDir", wmath.Vec3{X: -0.45, Y: -0.8, Z: -0.35}.Normalize())
	c.program.SetVec3("uKeyColor", wmath.Vec3{X: 1.0, Y: 0.98, Z: 0.94})
	c.program.SetVec3("uFillDir", wmath.Vec3{X: 0.6, Y: -0.1, Z: 0.55}.Normalize())
	c.program.SetVec3("uFillColor", wmath.Vec3{X: 0.22, Y: 0.24, Z: 0.28})
	c.program.SetVec3("uAmbient", wmath.Vec3{X: 0.22, Y: 0.22, Z: 0.22})

	opaque, blended := splitPasses(c.meshes)

	gl.Disable(gl.BLEND)
	gl.DepthMask(true)
	for _, rm := range opaque {
		c.drawMesh(rm)
	}

	gl.Enable(gl.BLEND)
	gl.BlendFunc(gl.SRC_ALPHA, gl.ONE_MINUS_SRC_ALPHA)
	for _, rm := range blended {
		gl.DepthMask(rm.mesh.Material.DepthWrite)
		c.drawMesh(rm)
	}
	gl.DepthMask(true)
	gl.Disable(gl.BLEND)

	gl.BindVertexArray(0)
}

func (c *Controller) drawMesh(rm *renderMesh) {
	mat := rm.mesh.Material

	if mat.DoubleSided {
		gl.Disable(gl.CULL_FACE)
	} else {
		gl.Enable(gl.CULL_FACE)
		gl.CullFace(gl.BACK)
	}

	c.program.SetVec4("uBaseColor", mat.BaseColor[0], mat.BaseColor[1], mat.BaseColor[2], mat.BaseColor[3])
	c.program.SetFloat("uRoughness", mat.Roughness)
	c.program.SetFloat("uMetalness", mat.Metalness)
	c.program.SetFloat("uReflectivity", reflectivity(mat))
	c.program.SetFloat("uOpacity", mat.Opacity)
	c.program.SetVec3("uEmissive", wmath.Vec3{X: mat.Emissive[0], Y: mat.Emissive[1], Z: mat.Emissive[2]})

	useTex := rm.texID != 0
	c.program.SetBool("uUseTexture", useTex)
	if useTex {
		gl.ActiveTexture(gl.TEXTURE0)
		gl.BindTexture(gl.TEXTURE_2D, rm.texID)
		c.program.SetInt("uTexture", 0)
	}

	gl.BindVertexArray(rm.vao)
	gl.DrawElements(gl.TRIANGLES, rm.indexCount, gl.UNSIGNED_INT, nil)
}

// reflectivity defaults to full specular response for authored
// materials that never set it.
func reflectivity(mat *scenegraph.Material) float32 {
	if mat.Reflectivity == 0 && !mat.UsesWrap {
		return 1
	}
	return mat.Reflectivity
}

// Close releases all GPU resources. Must run on the GL thread.
func (c *Controller) Close() {
	destroyMeshes(c.meshes)
	c.meshes = nil
	if c.wrapTex != nil {
		c.wrapTex.Delete()
	}
	if c.program != nil {
		c.program.Delete()
	}
}
