package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func writeConfig(t *testing.T, dir, name, body string) {
	t.Helper()
	if err := os.WriteFile(filepath.Join(dir, name), []byte(body), 0o644); err != nil {
		t.Fatalf("write %s: %v", name, err)
	}
}

func TestLoadAppliesDefaultsWithoutFiles(t *testing.T) {
	cfg, err := Load(Options{BasePath: t.TempDir()})
	if err != nil {
		t.Fatalf("Load: %v", err)
	}

	if cfg.Validation.MaxDimension != 4096 {
		t.Errorf("MaxDimension = %d, want 4096", cfg.Validation.MaxDimension)
	}
	if cfg.Validation.MaxBytes != 10<<20 {
		t.Errorf("MaxBytes = %d, want %d", cfg.Validation.MaxBytes, 10<<20)
	}
	if cfg.Meta.SampleGrid != 100 || cfg.Meta.BlurGrid != 10 {
		t.Errorf("meta grids = %d/%d, want 100/10", cfg.Meta.SampleGrid, cfg.Meta.BlurGrid)
	}
	if cfg.Pipeline.PublishTimeout != 30*time.Second {
		t.Errorf("PublishTimeout = %v, want 30s", cfg.Pipeline.PublishTimeout)
	}
	if cfg.Storage.Provider != ProviderLocal {
		t.Errorf("Provider = %q, want local", cfg.Storage.Provider)
	}
	if cfg.HTTP.Addr != ":8080" {
		t.Errorf("Addr = %q, want :8080", cfg.HTTP.Addr)
	}
}

func TestLoadBindsFileValues(t *testing.T) {
	dir := t.TempDir()
	writeConfig(t, dir, "config.yaml", `
storage:
  provider: memory
pipeline:
  publish-timeout: 5s
  max-concurrent-renders: 2
validation:
  max-dimension: 2048
`)

	cfg, err := Load(Options{BasePath: dir})
	if err != nil {
		t.Fatalf("Load: %v", err)
	}

	if cfg.Storage.Provider != ProviderMemory {
		t.Errorf("Provider = %q, want memory", cfg.Storage.Provider)
	}
	if cfg.Pipeline.PublishTimeout != 5*time.Second {
		t.Errorf("PublishTimeout = %v, want 5s", cfg.Pipeline.PublishTimeout)
	}
	if cfg.Pipeline.MaxConcurrentRenders != 2 {
		t.Errorf("MaxConcurrentRenders = %d, want 2", cfg.Pipeline.MaxConcurrentRenders)
	}
	if cfg.Validation.MaxDimension != 2048 {
		t.Errorf("MaxDimension = %d, want 2048", cfg.Validation.MaxDimension)
	}
	// untouched sections keep defaults
	if cfg.Meta.SampleGrid != 100 {
		t.Errorf("SampleGrid = %d, want default 100", cfg.Meta.SampleGrid)
	}
}

func TestLoadLocalFileOverrides(t *testing.T) {
	dir := t.TempDir()
	writeConfig(t, dir, "config.yaml", "http:\n  addr: \":8080\"\n")
	writeConfig(t, dir, "config.local.yaml", "http:\n  addr: \":9090\"\n")

	cfg, err := Load(Options{BasePath: dir})
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.HTTP.Addr != ":9090" {
		t.Errorf("Addr = %q, want local override :9090", cfg.HTTP.Addr)
	}
}

func TestLoadEnvOverridesFile(t *testing.T) {
	dir := t.TempDir()
	writeConfig(t, dir, "config.yaml", "storage:\n  provider: local\n")
	t.Setenv("IMAGEFLOW_STORAGE_PROVIDER", "memory")

	cfg, err := Load(Options{BasePath: dir})
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Storage.Provider != ProviderMemory {
		t.Errorf("Provider = %q, want env override memory", cfg.Storage.Provider)
	}
}

func TestLoadEnvOnlyConfiguration(t *testing.T) {
	// no config files at all; the environment is the only source
	t.Setenv("IMAGEFLOW_STORAGE_PROVIDER", "memory")
	t.Setenv("IMAGEFLOW_VALIDATION_MAX_DIMENSION", "1024")
	t.Setenv("IMAGEFLOW_PIPELINE_PUBLISH_TIMEOUT", "5s")

	cfg, err := Load(Options{BasePath: t.TempDir()})
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Storage.Provider != ProviderMemory {
		t.Errorf("Provider = %q, want memory", cfg.Storage.Provider)
	}
	if cfg.Validation.MaxDimension != 1024 {
		t.Errorf("MaxDimension = %d, want 1024", cfg.Validation.MaxDimension)
	}
	if cfg.Pipeline.PublishTimeout != 5*time.Second {
		t.Errorf("PublishTimeout = %v, want 5s", cfg.Pipeline.PublishTimeout)
	}
	// untouched keys still default
	if cfg.Meta.SampleGrid != 100 {
		t.Errorf("SampleGrid = %d, want default 100", cfg.Meta.SampleGrid)
	}
}

func TestLoadRejectsUnknownProvider(t *testing.T) {
	dir := t.TempDir()
	writeConfig(t, dir, "config.yaml", "storage:\n  provider: s3\n")

	if _, err := Load(Options{BasePath: dir}); err == nil {
		t.Fatal("expected unknown provider to be rejected")
	}
}

func TestLoadRejectsIncompleteOSS(t *testing.T) {
	dir := t.TempDir()
	writeConfig(t, dir, "config.yaml", `
storage:
  provider: oss
  oss:
    endpoint: oss-cn-hangzhou.aliyuncs.com
`)

	if _, err := Load(Options{BasePath: dir}); err == nil {
		t.Fatal("expected incomplete oss credentials to be rejected")
	}
}

func TestParseMode(t *testing.T) {
	cases := map[string]Mode{
		"":           DevMode,
		"dev":        DevMode,
		"Production": ProdMode,
		"prod":       ProdMode,
		"test":       TestMode,
		"garbage":    DevMode,
	}
	for input, want := range cases {
		if got := ParseMode(input); got != want {
			t.Errorf("ParseMode(%q) = %q, want %q", input, got, want)
		}
	}
}

func TestConfigTableMergesOverrides(t *testing.T) {
	cfg, err := Load(Options{BasePath: t.TempDir()})
	if err != nil {
		t.Fatalf("Load: %v", err)
	}

	table, err := cfg.Table()
	if err != nil {
		t.Fatalf("Table: %v", err)
	}
	if _, ok := table.Get("product"); !ok {
		t.Error("built-in product group missing")
	}
}
