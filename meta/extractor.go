// Package meta derives lightweight visual metadata from a validated source:
// average/dominant color, a tiny blurred placeholder for progressive
// loading, and the source aspect ratio. Extraction is best-effort and never
// returns an error; internal failures degrade to documented fallbacks.
package meta

import (
	"bytes"
	"encoding/base64"
	"fmt"
	"image"
	"image/png"

	"github.com/disintegration/imaging"
	"github.com/nfnt/resize"
	"go.uber.org/zap"

	"github.com/leeforge/imageflow/logging"
	"github.com/leeforge/imageflow/validate"
)

const (
	// DefaultSampleGrid is the downsample size used before color averaging.
	// Small enough to bound CPU, large enough to denoise outliers.
	DefaultSampleGrid = 100
	// DefaultBlurGrid is the downsample size for the blur placeholder.
	DefaultBlurGrid = 10

	blurSigma = 1.2
)

// Visual is the per-source metadata record, independent of the variant set.
type Visual struct {
	DominantColor   string   `json:"dominantColor"`
	Palette         []string `json:"palette"`
	AverageColor    string   `json:"averageColor"`
	BlurPlaceholder string   `json:"blurPlaceholder"`
	AspectRatio     float64  `json:"aspectRatio"`
}

// Config sizes the sampling grids.
type Config struct {
	SampleGrid int `mapstructure:"sample-grid" json:"sampleGrid" default:"100"`
	BlurGrid   int `mapstructure:"blur-grid" json:"blurGrid" default:"10"`
}

// Extractor computes Visual records.
type Extractor struct {
	cfg    Config
	logger logging.Logger
}

// New creates an Extractor. Zero config fields fall back to the defaults.
func New(cfg Config, logger logging.Logger) *Extractor {
	if cfg.SampleGrid <= 0 {
		cfg.SampleGrid = DefaultSampleGrid
	}
	if cfg.BlurGrid <= 0 {
		cfg.BlurGrid = DefaultBlurGrid
	}
	if logger == nil {
		logger = logging.Global()
	}
	return &Extractor{cfg: cfg, logger: logger.Named("meta")}
}

// Fallback is the Visual returned when extraction cannot proceed. Metadata
// is an enhancement, not a correctness gate, so callers always get a value.
func Fallback() Visual {
	return Visual{
		DominantColor:   "#000000",
		Palette:         []string{"#000000"},
		AverageColor:    "#000000",
		BlurPlaceholder: "",
		AspectRatio:     1.0,
	}
}

// Extract computes the Visual for src. The palette is intentionally a
// singleton of the average; see DESIGN.md for the clustering trade-off.
func (e *Extractor) Extract(src *validate.Source) Visual {
	img, _, err := image.Decode(bytes.NewReader(src.Data))
	if err != nil {
		e.logger.Warn("metadata extraction degraded", zap.Error(err))
		return Fallback()
	}
	if src.Width <= 0 || src.Height <= 0 {
		return Fallback()
	}

	avg := e.averageColor(img)
	visual := Visual{
		DominantColor: avg,
		Palette:       []string{avg},
		AverageColor:  avg,
		AspectRatio:   src.AspectRatio(),
	}

	placeholder, err := e.blurPlaceholder(img)
	if err != nil {
		e.logger.Warn("blur placeholder degraded", zap.Error(err))
	} else {
		visual.BlurPlaceholder = placeholder
	}
	return visual
}

// averageColor downsamples to the sampling grid and takes the arithmetic
// mean of each channel.
func (e *Extractor) averageColor(img image.Image) string {
	grid := resize.Resize(uint(e.cfg.SampleGrid), uint(e.cfg.SampleGrid), img, resize.Bilinear)

	var sumR, sumG, sumB uint64
	bounds := grid.Bounds()
	for y := bounds.Min.Y; y < bounds.Max.Y; y++ {
		for x := bounds.Min.X; x < bounds.Max.X; x++ {
			r, g, b, _ := grid.At(x, y).RGBA()
			sumR += uint64(r >> 8)
			sumG += uint64(g >> 8)
			sumB += uint64(b >> 8)
		}
	}

	n := uint64(bounds.Dx() * bounds.Dy())
	if n == 0 {
		return "#000000"
	}
	return fmt.Sprintf("#%02x%02x%02x", sumR/n, sumG/n, sumB/n)
}

// blurPlaceholder shrinks the image into the blur grid, blurs it, and
// returns a self-contained data URI.
func (e *Extractor) blurPlaceholder(img image.Image) (string, error) {
	tiny := imaging.Fit(img, e.cfg.BlurGrid, e.cfg.BlurGrid, imaging.Box)
	blurred := imaging.Blur(tiny, blurSigma)

	var buf bytes.Buffer
	if err := png.Encode(&buf, blurred); err != nil {
		return "", err
	}
	return "data:image/png;base64," + base64.StdEncoding.EncodeToString(buf.Bytes()), nil
}
