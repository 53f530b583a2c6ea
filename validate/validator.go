// Package validate inspects raw upload bytes, enforces the pipeline safety
// limits, and normalizes EXIF orientation so every downstream consumer can
// treat the buffer as already upright.
package validate

import (
	"bytes"
	"context"
	"image"

	_ "image/gif"
	"image/jpeg"
	"image/png"

	"github.com/chai2010/webp"
	_ "golang.org/x/image/webp"

	"go.uber.org/zap"

	"github.com/leeforge/imageflow/errors"
	"github.com/leeforge/imageflow/logging"
)

const (
	// DefaultMaxDimension is the per-side pixel limit for accepted sources.
	DefaultMaxDimension = 4096
	// DefaultMaxBytes is the byte-size limit for accepted sources.
	DefaultMaxBytes = 10 << 20
	// normalizeQuality is the re-encode quality used when a rotated source
	// has to be rewritten upright. High, to not degrade variant inputs.
	normalizeQuality = 95
)

// Config bounds what the validator accepts.
type Config struct {
	MaxDimension int   `mapstructure:"max-dimension" json:"maxDimension" default:"4096"`
	MaxBytes     int64 `mapstructure:"max-bytes" json:"maxBytes" default:"10485760"`
}

// Source is a validated, orientation-normalized image ready for rendering.
// Width/Height/Format come from the decode itself; nothing downstream
// re-probes the buffer.
type Source struct {
	Data   []byte
	Width  int
	Height int
	Format string
	Size   int64
}

// AspectRatio returns width/height of the upright source.
func (s *Source) AspectRatio() float64 {
	if s.Height == 0 {
		return 1.0
	}
	return float64(s.Width) / float64(s.Height)
}

// Validator enforces dimension, size and format limits on raw uploads.
type Validator struct {
	cfg    Config
	logger logging.Logger
}

// New creates a Validator. Zero config fields fall back to the defaults.
func New(cfg Config, logger logging.Logger) *Validator {
	if cfg.MaxDimension <= 0 {
		cfg.MaxDimension = DefaultMaxDimension
	}
	if cfg.MaxBytes <= 0 {
		cfg.MaxBytes = DefaultMaxBytes
	}
	if logger == nil {
		logger = logging.Global()
	}
	return &Validator{cfg: cfg, logger: logger.Named("validate")}
}

// Validate checks data against the configured limits and returns the
// normalized source. All rejections carry a fatal error kind; a rejected
// source never reaches the renderer or the store.
func (v *Validator) Validate(ctx context.Context, data []byte) (*Source, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	size := int64(len(data))
	if size == 0 {
		return nil, errors.New(errors.KindInvalidFormat, "empty image payload")
	}
	if size > v.cfg.MaxBytes {
		v.logger.Warn("rejected oversized upload",
			zap.Int64("size", size),
			zap.Int64("max_bytes", v.cfg.MaxBytes))
		return nil, errors.NewFileTooLarge(size, v.cfg.MaxBytes)
	}

	config, format, err := image.DecodeConfig(bytes.NewReader(data))
	if err != nil {
		return nil, errors.NewInvalidFormat(err)
	}
	if config.Width <= 0 || config.Height <= 0 {
		return nil, errors.New(errors.KindInvalidFormat, "image has no readable dimensions")
	}
	if config.Width > v.cfg.MaxDimension || config.Height > v.cfg.MaxDimension {
		v.logger.Warn("rejected oversized dimensions",
			zap.Int("width", config.Width),
			zap.Int("height", config.Height),
			zap.Int("max_dimension", v.cfg.MaxDimension))
		return nil, errors.NewImageTooLarge(config.Width, config.Height, v.cfg.MaxDimension)
	}

	src := &Source{
		Data:   data,
		Width:  config.Width,
		Height: config.Height,
		Format: format,
		Size:   size,
	}

	orientation := readOrientation(data)
	if orientation <= 1 {
		return src, nil
	}
	return v.normalize(src, orientation)
}

// normalize rewrites the pixel data upright. Re-encoding drops the EXIF
// block, so the orientation tag is stripped along the way.
func (v *Validator) normalize(src *Source, orientation int) (*Source, error) {
	img, _, err := image.Decode(bytes.NewReader(src.Data))
	if err != nil {
		return nil, errors.NewInvalidFormat(err)
	}

	upright := applyOrientation(img, orientation)

	var buf bytes.Buffer
	switch src.Format {
	case "png":
		err = png.Encode(&buf, upright)
	case "webp":
		err = webp.Encode(&buf, upright, &webp.Options{Quality: normalizeQuality})
	default:
		err = jpeg.Encode(&buf, upright, &jpeg.Options{Quality: normalizeQuality})
	}
	if err != nil {
		return nil, errors.Wrap(err, errors.KindInvalidFormat, "re-encode upright image")
	}

	bounds := upright.Bounds()
	v.logger.Debug("normalized orientation",
		zap.Int("orientation", orientation),
		zap.Int("width", bounds.Dx()),
		zap.Int("height", bounds.Dy()))

	return &Source{
		Data:   buf.Bytes(),
		Width:  bounds.Dx(),
		Height: bounds.Dy(),
		Format: src.Format,
		Size:   int64(buf.Len()),
	}, nil
}
