// Package texture owns the GPU texture objects the viewport samples:
// the synthesized wrap texture and decoded base-color images.
package texture

import (
	"fmt"
	"image"
	"sync/atomic"
	"unsafe"

	"github.com/go-gl/gl/v4.1-core/gl"
	"go.uber.org/zap"

	"github.com/wrapstudio/wrapview/internal/logger"
)

// Source rasterizes a 2D design into pixels at a given supersample
// multiplier.
type Source interface {
	Rasterize(multiplier float64) (*image.RGBA, error)
}

// WrapTexture is the single GL texture object all wrap-receiving meshes
// sample. Re-synthesis uploads into the same object, so bound materials
// never need rebinding when the design changes.
type WrapTexture struct {
	id          uint32
	width       int32
	height      int32
	supersample int
	dirty       atomic.Bool
	log         *zap.Logger
}

// NewWrapTexture allocates the texture object. Must run on the GL thread.
func NewWrapTexture(supersample int) *WrapTexture {
	if supersample < 1 {
		supersample = 1
	}
	t := &WrapTexture{
		supersample: supersample,
		log:         logger.Named("texture"),
	}
	gl.GenTextures(1, &t.id)
	gl.BindTexture(gl.TEXTURE_2D, t.id)

	gl.TexParameteri(gl.TEXTURE_2D, gl.TEXTURE_MIN_FILTER, gl.LINEAR_MIPMAP_LINEAR)
	gl.TexParameteri(gl.TEXTURE_2D, gl.TEXTURE_MAG_FILTER, gl.LINEAR)
	gl.TexParameteri(gl.TEXTURE_2D, gl.TEXTURE_WRAP_S, gl.CLAMP_TO_EDGE)
	gl.TexParameteri(gl.TEXTURE_2D, gl.TEXTURE_WRAP_T, gl.CLAMP_TO_EDGE)

	var maxAniso float32
	gl.GetFloatv(gl.MAX_TEXTURE_MAX_ANISOTROPY, &maxAniso)
	if maxAniso > 0 {
		gl.TexParameterf(gl.TEXTURE_2D, gl.TEXTURE_MAX_ANISOTROPY, maxAniso)
	}

	return t
}

// ID returns the GL texture name.
func (t *WrapTexture) ID() uint32 { return t.id }

// MarkDirty flags the texture for re-synthesis at the next frame
// boundary. Safe to call from any goroutine.
func (t *WrapTexture) MarkDirty() { t.dirty.Store(true) }

// TakeDirty reports and clears the dirty flag.
func (t *WrapTexture) TakeDirty() bool { return t.dirty.Swap(false) }

// Synthesize rasterizes src at the configured supersample multiplier and
// uploads the result. The pixel store is reallocated only when the
// design's dimensions changed; otherwise the existing store is
// overwritten in place. Must run on the GL thread.
func (t *WrapTexture) Synthesize(src Source) error {
	img, err := src.Rasterize(float64(t.supersample))
	if err != nil {
		return fmt.Errorf("rasterize design: %w", err)
	}
	t.Upload(img)
	return nil
}

// Upload pushes img into the texture object and regenerates mipmaps.
// Rows upload in decoded order; the UV convention of the scene format
// puts the origin top-left, same as the image layout.
func (t *WrapTexture) Upload(img *image.RGBA) {
	w := int32(img.Bounds().Dx())
	h := int32(img.Bounds().Dy())
	if w == 0 || h == 0 {
		return
	}

	gl.BindTexture(gl.TEXTURE_2D, t.id)
	if w == t.width && h == t.height {
		gl.TexSubImage2D(gl.TEXTURE_2D, 0, 0, 0, w, h,
			gl.RGBA, gl.UNSIGNED_BYTE, unsafe.Pointer(&img.Pix[0]))
	} else {
		gl.TexImage2D(gl.TEXTURE_2D, 0, gl.RGBA, w, h,
			0, gl.RGBA, gl.UNSIGNED_BYTE, unsafe.Pointer(&img.Pix[0]))
		t.width, t.height = w, h
	}
	gl.GenerateMipmap(gl.TEXTURE_2D)

	t.log.Debug("wrap texture uploaded",
		zap.Int32("width", w),
		zap.Int32("height", h),
		zap.Int("supersample", t.supersample))
}

// Size returns the dimensions of the last upload.
func (t *WrapTexture) Size() (int, int) { return int(t.width), int(t.height) }

// Delete releases the GL texture object. Must run on the GL thread.
func (t *WrapTexture) Delete() {
	if t.id != 0 {
		gl.DeleteTextures(1, &t.id)
		t.id = 0
	}
}
