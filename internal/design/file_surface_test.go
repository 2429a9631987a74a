package design

import (
	"image"
	"image/color"
	"image/png"
	"os"
	"path/filepath"
	"testing"
	"time"
)

func writeTestPNG(t *testing.T, path string, w, h int, c color.RGBA) {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			img.SetRGBA(x, y, c)
		}
	}
	f, err := os.Create(path)
	if err != nil {
		t.Fatal(err)
	}
	defer f.Close()
	if err := png.Encode(f, img); err != nil {
		t.Fatal(err)
	}
}

func TestRasterizeSupersampled(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "design.png")
	writeTestPNG(t, path, 32, 16, color.RGBA{R: 255, A: 255})

	s, err := OpenFileSurface(path)
	if err != nil {
		t.Fatalf("OpenFileSurface: %v", err)
	}
	defer s.Close()

	img, err := s.Rasterize(SupersampleFactor)
	if err != nil {
		t.Fatalf("Rasterize: %v", err)
	}
	if img.Bounds().Dx() != 32*SupersampleFactor || img.Bounds().Dy() != 16*SupersampleFactor {
		t.Errorf("rasterized size = %v, want %dx%d", img.Bounds(),
			32*SupersampleFactor, 16*SupersampleFactor)
	}

	// Solid red in, solid red out.
	r, _, _, a := img.At(5, 5).RGBA()
	if r>>8 != 255 || a>>8 != 255 {
		t.Errorf("pixel = %v, want opaque red", img.At(5, 5))
	}
}

func TestRasterizeIdentityScale(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "design.png")
	writeTestPNG(t, path, 8, 8, color.RGBA{G: 200, A: 255})

	s, err := OpenFileSurface(path)
	if err != nil {
		t.Fatal(err)
	}
	defer s.Close()

	img, err := s.Rasterize(1)
	if err != nil {
		t.Fatal(err)
	}
	if img.Bounds().Dx() != 8 || img.Bounds().Dy() != 8 {
		t.Errorf("size = %v, want 8x8", img.Bounds())
	}
}

func TestOpenFileSurfaceErrors(t *testing.T) {
	if _, err := OpenFileSurface(filepath.Join(t.TempDir(), "missing.png")); err == nil {
		t.Error("expected error for missing file")
	}

	badPath := filepath.Join(t.TempDir(), "not-an-image.png")
	if err := os.WriteFile(badPath, []byte("plain text"), 0o644); err != nil {
		t.Fatal(err)
	}
	if _, err := OpenFileSurface(badPath); err == nil {
		t.Error("expected error for undecodable file")
	}
}

func TestChangeNotification(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "design.png")
	writeTestPNG(t, path, 4, 4, color.RGBA{B: 255, A: 255})

	s, err := OpenFileSurface(path)
	if err != nil {
		t.Fatal(err)
	}
	defer s.Close()

	changed := make(chan struct{}, 4)
	s.Subscribe(func() { changed <- struct{}{} })

	// Simulate an editor save.
	writeTestPNG(t, path, 4, 4, color.RGBA{R: 255, A: 255})

	select {
	case <-changed:
	case <-time.After(3 * time.Second):
		t.Fatal("no change notification after file write")
	}

	// The reloaded image must be served by the next rasterize.
	img, err := s.Rasterize(1)
	if err != nil {
		t.Fatal(err)
	}
	r, _, b, _ := img.At(1, 1).RGBA()
	if r>>8 != 255 || b>>8 == 255 {
		t.Errorf("pixel after reload = %v, want red", img.At(1, 1))
	}
}
