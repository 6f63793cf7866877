// Package thumbnail generates compressed preview images for uploads.
package thumbnail

import (
	"bytes"
	"fmt"
	"image"
	"os"

	"github.com/disintegration/imaging"

	"github.com/blockgate/blockgate/internal/constants"
)

// Generate reads an image file and returns JPEG bytes resized to fit
// inside ThumbnailMaxDimension square, preserving aspect ratio.
func Generate(path string) ([]byte, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read image file: %w", err)
	}
	return FromBytes(data)
}

// FromBytes generates a thumbnail from in-memory image data.
func FromBytes(data []byte) ([]byte, error) {
	img, _, err := image.Decode(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("failed to load image: %w", err)
	}

	thumb := imaging.Fit(img, constants.ThumbnailMaxDimension, constants.ThumbnailMaxDimension, imaging.Lanczos)

	var buf bytes.Buffer
	err = imaging.Encode(&buf, thumb, imaging.JPEG, imaging.JPEGQuality(constants.ThumbnailJPEGQuality))
	if err != nil {
		return nil, fmt.Errorf("failed to create thumbnail: %w", err)
	}
	return buf.Bytes(), nil
}
