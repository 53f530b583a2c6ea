package render

import (
	"bytes"
	"fmt"
	"image"
	"image/jpeg"
	"image/png"

	"github.com/chai2010/webp"

	"github.com/leeforge/imageflow/policy"
)

// encode serializes img in the requested format. Quality rides a single
// 1-100 scale; PNG is lossless and ignores it.
func encode(img image.Image, format policy.Format, quality int) ([]byte, error) {
	var buf bytes.Buffer
	var err error

	switch format {
	case policy.FormatWebP:
		err = webp.Encode(&buf, img, &webp.Options{Quality: float32(quality)})
	case policy.FormatJPEG:
		err = jpeg.Encode(&buf, img, &jpeg.Options{Quality: quality})
	case policy.FormatPNG:
		err = png.Encode(&buf, img)
	default:
		err = fmt.Errorf("unsupported output format: %s", format)
	}
	if err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}
