package main

import (
	"bytes"
	"context"
	stderrors "errors"
	"image"
	"image/color"
	"image/jpeg"
	"os"
	"path/filepath"
	"testing"

	"github.com/leeforge/imageflow/config"
	"github.com/leeforge/imageflow/errors"
	"github.com/leeforge/imageflow/logging"
	"github.com/leeforge/imageflow/policy"
)

func loadTestConfig(t *testing.T, body string) *config.Config {
	t.Helper()
	dir := t.TempDir()
	if err := os.WriteFile(filepath.Join(dir, "config.yaml"), []byte(body), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}
	cfg, err := config.Load(config.Options{BasePath: dir})
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	return cfg
}

func smallJPEG(t *testing.T, w, h int) []byte {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			img.Set(x, y, color.RGBA{R: 90, G: 140, B: 60, A: 255})
		}
	}
	var buf bytes.Buffer
	if err := jpeg.Encode(&buf, img, nil); err != nil {
		t.Fatalf("encode: %v", err)
	}
	return buf.Bytes()
}

func TestBuildPipelineEnforcesConfiguredDimensionLimit(t *testing.T) {
	cfg := loadTestConfig(t, `
storage:
  provider: memory
validation:
  max-dimension: 100
`)

	pipe, _, err := buildPipeline(cfg, logging.NewNop())
	if err != nil {
		t.Fatalf("buildPipeline: %v", err)
	}

	// 200px exceeds the configured limit but not the 4096 package default
	_, err = pipe.Process(context.Background(), smallJPEG(t, 200, 150), "a.png", policy.GroupProduct)
	if !stderrors.Is(err, &errors.Error{Kind: errors.KindImageTooLarge}) {
		t.Fatalf("err = %v, want image_too_large", err)
	}
}

func TestBuildPipelineEnforcesConfiguredByteLimit(t *testing.T) {
	cfg := loadTestConfig(t, `
storage:
  provider: memory
validation:
  max-bytes: 64
`)

	pipe, _, err := buildPipeline(cfg, logging.NewNop())
	if err != nil {
		t.Fatalf("buildPipeline: %v", err)
	}

	_, err = pipe.Process(context.Background(), smallJPEG(t, 50, 50), "a.png", policy.GroupProduct)
	if !stderrors.Is(err, &errors.Error{Kind: errors.KindFileTooLarge}) {
		t.Fatalf("err = %v, want file_too_large", err)
	}
}

func TestBuildPipelineUsesConfiguredMetaGrids(t *testing.T) {
	cfg := loadTestConfig(t, `
storage:
  provider: memory
meta:
  blur-grid: 4
`)

	pipe, store, err := buildPipeline(cfg, logging.NewNop())
	if err != nil {
		t.Fatalf("buildPipeline: %v", err)
	}
	if store == nil {
		t.Fatal("expected a constructed store")
	}

	result, err := pipe.Process(context.Background(), smallJPEG(t, 300, 300), "a.png", policy.GroupProduct)
	if err != nil {
		t.Fatalf("Process: %v", err)
	}
	if result.Meta.BlurPlaceholder == "" {
		t.Fatal("expected a blur placeholder from the configured extractor")
	}
}
