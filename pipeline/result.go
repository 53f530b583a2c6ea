package pipeline

import (
	"github.com/leeforge/imageflow/errors"
	"github.com/leeforge/imageflow/meta"
	"github.com/leeforge/imageflow/policy"
)

// ProcessedImage is one successfully published variant.
type ProcessedImage struct {
	Key     string        `json:"key"`
	URL     string        `json:"url"`
	Variant string        `json:"variant"`
	Width   int           `json:"width"`
	Height  int           `json:"height"`
	Size    int64         `json:"size"`
	Format  policy.Format `json:"format"`
}

// VariantFailure records one variant that failed at render or publish time.
type VariantFailure struct {
	Variant string      `json:"variant"`
	Kind    errors.Kind `json:"kind"`
	Reason  string      `json:"reason"`
}

// Result is the aggregate outcome of one pipeline run. Images holds only
// successes, in policy order; skipped variants appear in neither list. A
// source too small for every configured variant yields an empty-but-valid
// Result with metadata still populated.
type Result struct {
	Images   []ProcessedImage `json:"images"`
	Failures []VariantFailure `json:"failures,omitempty"`
	Meta     meta.Visual      `json:"meta"`
}
