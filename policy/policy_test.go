package policy

import "testing"

func TestDefaultTableGroups(t *testing.T) {
	table := DefaultTable()

	for _, name := range []string{GroupStyleSwiper, GroupProduct, GroupHero, GroupMobile} {
		if _, ok := table.Get(name); !ok {
			t.Errorf("expected built-in group %q", name)
		}
	}

	if _, ok := table.Get("banner"); ok {
		t.Fatalf("unexpected group resolved")
	}
}

func TestNewTableRejectsDuplicateNames(t *testing.T) {
	_, err := NewTable(map[string][]Variant{
		"product": {
			{Name: "thumb", Width: 200, Quality: 85, Format: FormatWebP},
			{Name: "thumb", Width: 400, Quality: 85, Format: FormatWebP},
		},
	})
	if err == nil {
		t.Fatalf("expected duplicate variant name to be rejected")
	}
}

func TestNewTableRejectsInvalidDescriptors(t *testing.T) {
	tests := []struct {
		name    string
		variant Variant
	}{
		{"zero width", Variant{Name: "x", Width: 0, Quality: 80, Format: FormatWebP}},
		{"quality over 100", Variant{Name: "x", Width: 100, Quality: 101, Format: FormatWebP}},
		{"bad format", Variant{Name: "x", Width: 100, Quality: 80, Format: "gif"}},
		{"missing name", Variant{Width: 100, Quality: 80, Format: FormatWebP}},
	}
	for _, tt := range tests {
		if _, err := NewTable(map[string][]Variant{"g": {tt.variant}}); err == nil {
			t.Errorf("%s: expected validation error", tt.name)
		}
	}
}

func TestDensityVariants(t *testing.T) {
	variants := DensityVariants(375, 3, 85, FormatWebP)

	want := []struct {
		name  string
		width int
	}{
		{"mobile-1x", 375},
		{"mobile-2x", 750},
		{"mobile-3x", 1125},
	}

	if len(variants) != len(want) {
		t.Fatalf("expected %d variants, got %d", len(want), len(variants))
	}
	for i, w := range want {
		if variants[i].Name != w.name || variants[i].Width != w.width {
			t.Errorf("tier %d = %s/%d, want %s/%d", i, variants[i].Name, variants[i].Width, w.name, w.width)
		}
	}
}

func TestMergeReplacesGroupWholesale(t *testing.T) {
	table := DefaultTable()

	merged, err := table.Merge(map[string][]Variant{
		GroupProduct: {
			{Name: "only", Width: 640, Quality: 80, Format: FormatJPEG},
		},
	})
	if err != nil {
		t.Fatalf("merge failed: %v", err)
	}

	variants, ok := merged.Get(GroupProduct)
	if !ok || len(variants) != 1 || variants[0].Name != "only" {
		t.Fatalf("expected override to replace group, got %+v", variants)
	}

	// original table untouched
	orig, _ := table.Get(GroupProduct)
	if len(orig) != 4 {
		t.Fatalf("merge mutated the source table")
	}
}

func TestParseFormat(t *testing.T) {
	if f, err := ParseFormat("JPG"); err != nil || f != FormatJPEG {
		t.Fatalf("ParseFormat(JPG) = %v, %v", f, err)
	}
	if _, err := ParseFormat("gif"); err == nil {
		t.Fatalf("expected gif to be rejected")
	}
	if got := FormatWebP.ContentType(); got != "image/webp" {
		t.Fatalf("ContentType = %q", got)
	}
}
