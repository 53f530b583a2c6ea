// Package policy holds the static variant policy table: named groups of
// resize/encode descriptors applied together to one source image.
package policy

import (
	"fmt"
	"sort"
	"strings"

	"github.com/go-playground/validator/v10"
)

// Format identifies a variant output codec.
type Format string

const (
	FormatWebP Format = "webp"
	FormatJPEG Format = "jpeg"
	FormatPNG  Format = "png"
)

// ContentType returns the MIME type for the format.
func (f Format) ContentType() string {
	return "image/" + string(f)
}

// Ext returns the file extension used in derived object keys.
func (f Format) Ext() string {
	return string(f)
}

// ParseFormat normalizes a format string, accepting the jpg alias.
func ParseFormat(s string) (Format, error) {
	switch strings.ToLower(s) {
	case "webp":
		return FormatWebP, nil
	case "jpeg", "jpg":
		return FormatJPEG, nil
	case "png":
		return FormatPNG, nil
	default:
		return "", fmt.Errorf("unsupported output format: %s", s)
	}
}

// Variant describes a single resized/re-encoded derivative of a source image.
type Variant struct {
	// Name is unique within a policy group, e.g. "thumb", "card", "zoom".
	Name string `mapstructure:"name" json:"name" validate:"required"`

	// Width is the target width in pixels.
	Width int `mapstructure:"width" json:"width" validate:"gt=0"`

	// Height, when non-zero, switches the resize mode to cover: the output is
	// exactly Width x Height with overflow cropped from the center. When zero,
	// height is derived from the source aspect ratio.
	Height int `mapstructure:"height" json:"height,omitempty" validate:"gte=0"`

	// Quality is the encoder quality on a single 1-100 scale across formats.
	Quality int `mapstructure:"quality" json:"quality" validate:"min=1,max=100"`

	// Format is the output codec.
	Format Format `mapstructure:"format" json:"format" validate:"oneof=webp jpeg png"`
}

// Table is an immutable mapping from group name to an ordered variant list.
// Built once at process start; safe for concurrent reads.
type Table struct {
	groups map[string][]Variant
}

var structValidator = validator.New()

// NewTable builds a Table from the given groups, rejecting duplicate variant
// names within a group and descriptors that fail field validation.
func NewTable(groups map[string][]Variant) (*Table, error) {
	out := make(map[string][]Variant, len(groups))
	for name, variants := range groups {
		if len(variants) == 0 {
			return nil, fmt.Errorf("policy group %q has no variants", name)
		}
		seen := make(map[string]struct{}, len(variants))
		for _, v := range variants {
			if err := structValidator.Struct(v); err != nil {
				return nil, fmt.Errorf("policy group %q variant %q: %w", name, v.Name, err)
			}
			if _, dup := seen[v.Name]; dup {
				return nil, fmt.Errorf("policy group %q: duplicate variant name %q", name, v.Name)
			}
			seen[v.Name] = struct{}{}
		}
		out[name] = append([]Variant(nil), variants...)
	}
	return &Table{groups: out}, nil
}

// Get returns the ordered variant list for a group name.
func (t *Table) Get(name string) ([]Variant, bool) {
	variants, ok := t.groups[name]
	return variants, ok
}

// Names returns the sorted group names, mainly for logging and diagnostics.
func (t *Table) Names() []string {
	names := make([]string, 0, len(t.groups))
	for name := range t.groups {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Merge returns a new Table with overrides applied on top of t. Groups in
// overrides replace same-named groups wholesale.
func (t *Table) Merge(overrides map[string][]Variant) (*Table, error) {
	merged := make(map[string][]Variant, len(t.groups)+len(overrides))
	for name, variants := range t.groups {
		merged[name] = variants
	}
	for name, variants := range overrides {
		merged[name] = variants
	}
	return NewTable(merged)
}
