// Package render turns a validated source into a single encoded variant,
// applying the aspect-ratio policy and the never-upscale rule.
package render

import (
	"bytes"
	"errors"
	"fmt"
	"image"
	"math"

	"github.com/disintegration/imaging"
	"github.com/nfnt/resize"

	"github.com/leeforge/imageflow/policy"
	"github.com/leeforge/imageflow/validate"
)

// ErrSkip reports that a variant's target width exceeds the source width.
// Skipping is silent by contract: the variant is simply absent from the
// pipeline result, it is not a failure.
var ErrSkip = errors.New("render: target width exceeds source width")

// Rendered is one encoded variant buffer plus its actual pixel dimensions.
type Rendered struct {
	Data    []byte
	Width   int
	Height  int
	Variant policy.Variant
}

// ContentType returns the MIME type of the encoded buffer.
func (r *Rendered) ContentType() string {
	return r.Variant.Format.ContentType()
}

// Render resizes and re-encodes src according to the variant descriptor.
//
// With a fixed height the mode is cover: the output fills exactly
// width x height, cropping overflow from the center. Without one the mode
// is inside: height is derived as round(srcH/srcW * width). In both modes
// the output never exceeds the source resolution.
func Render(src *validate.Source, variant policy.Variant) (*Rendered, error) {
	if variant.Width > src.Width {
		return nil, ErrSkip
	}

	img, _, err := image.Decode(bytes.NewReader(src.Data))
	if err != nil {
		return nil, fmt.Errorf("decode source: %w", err)
	}

	var out image.Image
	if variant.Height > 0 {
		out = coverResize(img, variant.Width, variant.Height)
	} else {
		height := deriveHeight(src.Width, src.Height, variant.Width)
		out = insideResize(img, variant.Width, height)
	}

	data, err := encode(out, variant.Format, variant.Quality)
	if err != nil {
		return nil, fmt.Errorf("encode %s: %w", variant.Format, err)
	}

	bounds := out.Bounds()
	return &Rendered{
		Data:    data,
		Width:   bounds.Dx(),
		Height:  bounds.Dy(),
		Variant: variant,
	}, nil
}

// deriveHeight computes the inside-mode height preserving the source aspect
// ratio.
func deriveHeight(srcW, srcH, targetW int) int {
	return int(math.Round(float64(srcH) / float64(srcW) * float64(targetW)))
}

// insideResize fits the image to exactly width x height. The caller derives
// height from the source ratio, so no cropping happens.
func insideResize(img image.Image, width, height int) image.Image {
	b := img.Bounds()
	if b.Dx() == width && b.Dy() == height {
		return img
	}
	return resize.Resize(uint(width), uint(height), img, resize.Lanczos3)
}

// coverResize fills width x height, cropping overflow from the center. When
// the target box is taller than the source, the box is shrunk proportionally
// first so the output never holds upscaled pixels.
func coverResize(img image.Image, width, height int) image.Image {
	b := img.Bounds()
	if width > b.Dx() || height > b.Dy() {
		scale := math.Min(float64(b.Dx())/float64(width), float64(b.Dy())/float64(height))
		width = int(float64(width) * scale)
		height = int(float64(height) * scale)
		if width < 1 {
			width = 1
		}
		if height < 1 {
			height = 1
		}
	}
	return imaging.Fill(img, width, height, imaging.Center, imaging.Lanczos)
}
