package imagesafety

import (
	"bytes"
	"fmt"
	"image/gif"

	"github.com/disintegration/imaging"
)

const (
	compressMaxDim  = 1024
	compressQuality = 85
)

// NormalizeGIF decodes the first frame of an animated GIF and re-encodes it
// as PNG so that the still-image classifier can handle it.
func NormalizeGIF(payload []byte) ([]byte, string, error) {
	frame, err := gif.Decode(bytes.NewReader(payload))
	if err != nil {
		return nil, "", fmt.Errorf("decode gif frame: %w", err)
	}
	var buf bytes.Buffer
	if err := imaging.Encode(&buf, frame, imaging.PNG); err != nil {
		return nil, "", fmt.Errorf("encode png frame: %w", err)
	}
	return buf.Bytes(), "image/png", nil
}

// compressIfNeeded shrinks oversized payloads by bounding the longest side
// and re-encoding as JPEG. Failures fall back to the original bytes so an
// unreadable image still reaches the classifier for its own rejection.
func compressIfNeeded(payload []byte, maxBytes int64) ([]byte, string, bool) {
	if maxBytes <= 0 || int64(len(payload)) <= maxBytes {
		return payload, "", false
	}
	img, err := imaging.Decode(bytes.NewReader(payload), imaging.AutoOrientation(true))
	if err != nil {
		return payload, "", false
	}
	bounds := img.Bounds()
	if bounds.Dx() > compressMaxDim || bounds.Dy() > compressMaxDim {
		img = imaging.Fit(img, compressMaxDim, compressMaxDim, imaging.Lanczos)
	}
	var buf bytes.Buffer
	if err := imaging.Encode(&buf, img, imaging.JPEG, imaging.JPEGQuality(compressQuality)); err != nil {
		return payload, "", false
	}
	return buf.Bytes(), "image/jpeg", true
}
