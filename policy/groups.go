package policy

import "fmt"

// Group names served by the default table.
const (
	GroupStyleSwiper = "style-swiper"
	GroupProduct     = "product"
	GroupHero        = "hero"
	GroupMobile      = "mobile"
)

// MobileBaseWidth is the CSS-pixel base width the mobile density tiers are
// derived from.
const MobileBaseWidth = 375

// DefaultGroups returns the built-in policy groups.
func DefaultGroups() map[string][]Variant {
	return map[string][]Variant{
		GroupStyleSwiper: {
			{Name: "thumb", Width: 150, Quality: 80, Format: FormatWebP},
			{Name: "small", Width: 400, Quality: 85, Format: FormatWebP},
			{Name: "medium", Width: 800, Quality: 90, Format: FormatWebP},
			{Name: "large", Width: 1200, Quality: 90, Format: FormatWebP},
			{Name: "original", Width: 1920, Quality: 95, Format: FormatWebP},
		},
		GroupProduct: {
			{Name: "thumb", Width: 200, Height: 200, Quality: 85, Format: FormatWebP},
			{Name: "card", Width: 400, Height: 600, Quality: 90, Format: FormatWebP},
			{Name: "detail", Width: 1000, Quality: 95, Format: FormatWebP},
			{Name: "zoom", Width: 2000, Quality: 95, Format: FormatWebP},
		},
		GroupHero: {
			{Name: "mobile", Width: 768, Quality: 85, Format: FormatWebP},
			{Name: "tablet", Width: 1024, Quality: 90, Format: FormatWebP},
			{Name: "desktop", Width: 1920, Quality: 95, Format: FormatWebP},
			{Name: "4k", Width: 3840, Quality: 95, Format: FormatWebP},
		},
		GroupMobile: DensityVariants(MobileBaseWidth, 3, 85, FormatWebP),
	}
}

// DefaultTable builds the Table of built-in groups. The built-ins are
// internally consistent, so construction cannot fail.
func DefaultTable() *Table {
	table, err := NewTable(DefaultGroups())
	if err != nil {
		panic(fmt.Sprintf("policy: default table invalid: %v", err))
	}
	return table
}

// DensityVariants derives density-tier variants (1x..maxDensity x) over one
// base width. The tiers are conceptually ordinary variants; only the naming
// convention differs: "mobile-1x", "mobile-2x", ...
func DensityVariants(baseWidth, maxDensity, quality int, format Format) []Variant {
	variants := make([]Variant, 0, maxDensity)
	for d := 1; d <= maxDensity; d++ {
		variants = append(variants, Variant{
			Name:    fmt.Sprintf("mobile-%dx", d),
			Width:   baseWidth * d,
			Quality: quality,
			Format:  format,
		})
	}
	return variants
}
