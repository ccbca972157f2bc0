package transform

import (
	"bytes"
	"context"
	"fmt"
	"image"
	"path/filepath"
	"strings"

	"github.com/disintegration/imaging"
	"github.com/gen2brain/jpegli"
)

// progressiveLevel is the highest jpegli progression: the most scans.
const progressiveLevel = 2

// JPEG recompresses JPEG files as progressive JPEGs at the given quality.
// Other files pass through unchanged. EXIF orientation is applied to the
// pixels because the encoder does not carry metadata over.
func JPEG(quality int) Transform {
	opts := &jpegli.EncodingOptions{
		Quality:              quality,
		ChromaSubsampling:    image.YCbCrSubsampleRatio420,
		ProgressiveLevel:     progressiveLevel,
		OptimizeCoding:       true,
		AdaptiveQuantization: true,
	}

	return Contents("jpeg", func(_ context.Context, file File) ([]byte, error) {
		switch strings.ToLower(filepath.Ext(file.Path)) {
		case ".jpg", ".jpeg":
		default:
			return file.Contents, nil
		}

		img, err := imaging.Decode(bytes.NewReader(file.Contents), imaging.AutoOrientation(true))
		if err != nil {
			return nil, fmt.Errorf("decoding: %w", err)
		}

		var buf bytes.Buffer
		if err := jpegli.Encode(&buf, img, opts); err != nil {
			return nil, fmt.Errorf("encoding: %w", err)
		}
		return buf.Bytes(), nil
	})
}
