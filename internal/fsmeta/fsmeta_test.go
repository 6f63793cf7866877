package fsmeta

import (
	"bytes"
	"image"
	"image/png"
	"os"
	"path/filepath"
	"testing"
	"time"
)

func writeFile(t *testing.T, name string, data []byte) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	if err := os.WriteFile(path, data, 0o644); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestDetectImage(t *testing.T) {
	var buf bytes.Buffer
	if err := png.Encode(&buf, image.NewRGBA(image.Rect(0, 0, 4, 4))); err != nil {
		t.Fatal(err)
	}
	path := writeFile(t, "pic.png", buf.Bytes())

	mime, isImage := Detect(path)
	if mime != "image/png" {
		t.Errorf("Expected image/png, got %s", mime)
	}
	if !isImage {
		t.Error("Expected PNG to be detected as image")
	}
}

func TestDetectText(t *testing.T) {
	path := writeFile(t, "notes.txt", []byte("plain text content\n"))

	mime, isImage := Detect(path)
	if mime != "text/plain" {
		t.Errorf("Expected text/plain, got %s", mime)
	}
	if isImage {
		t.Error("Text must not be detected as image")
	}
}

func TestDetectMissingFileFallsBack(t *testing.T) {
	mime, isImage := Detect(filepath.Join(t.TempDir(), "gone.bin"))
	if mime != "application/octet-stream" || isImage {
		t.Errorf("Expected octet-stream fallback, got %s (image=%v)", mime, isImage)
	}
}

func TestNeedsThumbnail(t *testing.T) {
	if !NeedsThumbnail(true, 1024) {
		t.Error("Small image should need a thumbnail")
	}
	if NeedsThumbnail(true, 5*1024*1024) {
		t.Error("5 MiB image is at the limit and must not need a thumbnail")
	}
	if NeedsThumbnail(false, 1024) {
		t.Error("Non-image must not need a thumbnail")
	}
}

func TestModifiedUnix(t *testing.T) {
	mod := time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)
	got := ModifiedUnix(mod)
	if got == nil || *got != mod.Unix() {
		t.Errorf("Expected %d, got %v", mod.Unix(), got)
	}

	if ModifiedUnix(time.Time{}) != nil {
		t.Error("Zero time should yield nil")
	}
}

func TestGather(t *testing.T) {
	path := writeFile(t, "doc.txt", []byte("hello"))
	info := Gather(path, time.Now())

	if info.MimeType != "text/plain" {
		t.Errorf("Expected text/plain, got %s", info.MimeType)
	}
	if info.IsImage {
		t.Error("Text file reported as image")
	}
	if info.ModifiedDate == nil {
		t.Error("Expected modified date")
	}
	// Xattrs are best-effort; absent on a fresh temp file.
}
