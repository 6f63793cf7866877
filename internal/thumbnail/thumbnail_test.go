package thumbnail

import (
	"bytes"
	"image"
	"image/color"
	"image/png"
	"os"
	"path/filepath"
	"testing"
)

func pngBytes(t *testing.T, w, h int) []byte {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	for x := 0; x < w; x++ {
		for y := 0; y < h; y++ {
			img.Set(x, y, color.RGBA{R: uint8(x % 256), G: uint8(y % 256), B: 100, A: 255})
		}
	}
	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		t.Fatal(err)
	}
	return buf.Bytes()
}

func TestFromBytesFitsWithinBounds(t *testing.T) {
	data, err := FromBytes(pngBytes(t, 900, 450))
	if err != nil {
		t.Fatal(err)
	}

	img, format, err := image.Decode(bytes.NewReader(data))
	if err != nil {
		t.Fatalf("Generated thumbnail is not decodable: %v", err)
	}
	if format != "jpeg" {
		t.Errorf("Expected jpeg output, got %s", format)
	}

	b := img.Bounds()
	if b.Dx() > 300 || b.Dy() > 300 {
		t.Errorf("Thumbnail exceeds 300x300: %dx%d", b.Dx(), b.Dy())
	}
	// 2:1 aspect ratio preserved: 300x150.
	if b.Dx() != 300 || b.Dy() != 150 {
		t.Errorf("Expected 300x150 thumbnail, got %dx%d", b.Dx(), b.Dy())
	}
}

func TestFromBytesSmallImageNotUpscaled(t *testing.T) {
	data, err := FromBytes(pngBytes(t, 40, 20))
	if err != nil {
		t.Fatal(err)
	}
	img, _, err := image.Decode(bytes.NewReader(data))
	if err != nil {
		t.Fatal(err)
	}
	b := img.Bounds()
	if b.Dx() > 40 || b.Dy() > 20 {
		t.Errorf("Small image should not be upscaled, got %dx%d", b.Dx(), b.Dy())
	}
}

func TestFromBytesRejectsNonImage(t *testing.T) {
	if _, err := FromBytes([]byte("definitely not an image")); err == nil {
		t.Error("Expected non-image data to be rejected")
	}
}

func TestGenerateReadsFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "img.png")
	if err := os.WriteFile(path, pngBytes(t, 100, 100), 0o644); err != nil {
		t.Fatal(err)
	}

	data, err := Generate(path)
	if err != nil {
		t.Fatal(err)
	}
	if len(data) == 0 {
		t.Error("Expected non-empty thumbnail")
	}

	if _, err := Generate(filepath.Join(t.TempDir(), "missing.png")); err == nil {
		t.Error("Expected missing file to fail")
	}
}
