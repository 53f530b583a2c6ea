package handler

import (
	"bytes"
	"image"
	"image/color"
	"image/jpeg"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/leeforge/imageflow/http/middleware"
	"github.com/leeforge/imageflow/json"
	"github.com/leeforge/imageflow/logging"
	"github.com/leeforge/imageflow/pipeline"
	"github.com/leeforge/imageflow/storage"
)

type uploadResponse struct {
	Data  *pipeline.Result `json:"data"`
	Error *struct {
		Kind    string `json:"kind"`
		Message string `json:"message"`
	} `json:"error"`
	Meta struct {
		TraceID string `json:"traceId"`
	} `json:"meta"`
}

func testServer(t *testing.T) (*httptest.Server, *storage.MemoryStore) {
	t.Helper()
	store := storage.NewMemory("")
	pipe, err := pipeline.New(store, pipeline.WithLogger(logging.NewNop()))
	if err != nil {
		t.Fatalf("pipeline.New: %v", err)
	}
	h := NewImages(pipe, store, 0, logging.NewNop())
	srv := httptest.NewServer(NewRouter(h))
	t.Cleanup(srv.Close)
	return srv, store
}

func jpegUpload(t *testing.T, w, h int) []byte {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			img.Set(x, y, color.RGBA{R: 120, G: 80, B: 40, A: 255})
		}
	}
	var buf bytes.Buffer
	if err := jpeg.Encode(&buf, img, nil); err != nil {
		t.Fatalf("encode: %v", err)
	}
	return buf.Bytes()
}

func decodeResponse(t *testing.T, resp *http.Response) uploadResponse {
	t.Helper()
	defer resp.Body.Close()
	var out uploadResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	return out
}

func TestUploadRawBody(t *testing.T) {
	srv, store := testServer(t)

	resp, err := http.Post(srv.URL+"/api/v1/images?key=product/1.png&group=product",
		"image/jpeg", bytes.NewReader(jpegUpload(t, 600, 400)))
	if err != nil {
		t.Fatalf("post: %v", err)
	}
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d, want 200", resp.StatusCode)
	}

	out := decodeResponse(t, resp)
	if out.Error != nil {
		t.Fatalf("unexpected error: %+v", out.Error)
	}
	if out.Data == nil || len(out.Data.Images) == 0 {
		t.Fatal("expected published images in response")
	}
	if out.Meta.TraceID == "" {
		t.Error("expected a trace ID in response meta")
	}
	if resp.Header.Get(middleware.TraceIDHeader) == "" {
		t.Error("expected X-Trace-ID response header")
	}
	if store.Len() != len(out.Data.Images) {
		t.Errorf("store holds %d objects, response lists %d", store.Len(), len(out.Data.Images))
	}
}

func TestUploadMultipart(t *testing.T) {
	srv, _ := testServer(t)

	var body bytes.Buffer
	mw := multipart.NewWriter(&body)
	part, err := mw.CreateFormFile("file", "photo.jpg")
	if err != nil {
		t.Fatalf("form file: %v", err)
	}
	if _, err := part.Write(jpegUpload(t, 500, 500)); err != nil {
		t.Fatalf("write part: %v", err)
	}
	mw.Close()

	resp, err := http.Post(srv.URL+"/api/v1/images?key=a.png&group=product",
		mw.FormDataContentType(), &body)
	if err != nil {
		t.Fatalf("post: %v", err)
	}
	out := decodeResponse(t, resp)
	if resp.StatusCode != http.StatusOK || out.Error != nil {
		t.Fatalf("status = %d, error = %+v", resp.StatusCode, out.Error)
	}
	if len(out.Data.Images) == 0 {
		t.Fatal("expected published images")
	}
}

func TestUploadDefaultsToStyleSwiperGroup(t *testing.T) {
	srv, _ := testServer(t)

	// no group parameter: the style-swiper variants apply
	resp, err := http.Post(srv.URL+"/api/v1/images?key=s/7.png", "image/jpeg",
		bytes.NewReader(jpegUpload(t, 500, 400)))
	if err != nil {
		t.Fatalf("post: %v", err)
	}
	out := decodeResponse(t, resp)
	if resp.StatusCode != http.StatusOK || out.Error != nil {
		t.Fatalf("status = %d, error = %+v", resp.StatusCode, out.Error)
	}
	// a 500px source carries exactly thumb (150) and small (400)
	if len(out.Data.Images) != 2 {
		t.Fatalf("published %d variants, want 2", len(out.Data.Images))
	}
	if out.Data.Images[0].Variant != "thumb" || out.Data.Images[1].Variant != "small" {
		t.Fatalf("variants = %s/%s, want thumb/small",
			out.Data.Images[0].Variant, out.Data.Images[1].Variant)
	}
}

func TestUploadRejectsMissingKey(t *testing.T) {
	srv, _ := testServer(t)

	resp, err := http.Post(srv.URL+"/api/v1/images", "image/jpeg",
		bytes.NewReader(jpegUpload(t, 100, 100)))
	if err != nil {
		t.Fatalf("post: %v", err)
	}
	out := decodeResponse(t, resp)
	if resp.StatusCode != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", resp.StatusCode)
	}
	if out.Error == nil || out.Error.Kind != "invalid_format" {
		t.Fatalf("error = %+v, want invalid_format", out.Error)
	}
}

func TestUploadRejectsUnknownGroup(t *testing.T) {
	srv, store := testServer(t)

	resp, err := http.Post(srv.URL+"/api/v1/images?key=a.png&group=banner",
		"image/jpeg", bytes.NewReader(jpegUpload(t, 100, 100)))
	if err != nil {
		t.Fatalf("post: %v", err)
	}
	out := decodeResponse(t, resp)
	if resp.StatusCode != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", resp.StatusCode)
	}
	if out.Error == nil || out.Error.Kind != "unknown_policy_group" {
		t.Fatalf("error = %+v, want unknown_policy_group", out.Error)
	}
	if store.Len() != 0 {
		t.Errorf("store holds %d objects after rejected upload", store.Len())
	}
}

func TestUploadRejectsGarbage(t *testing.T) {
	srv, _ := testServer(t)

	resp, err := http.Post(srv.URL+"/api/v1/images?key=a.png", "image/jpeg",
		bytes.NewReader([]byte("definitely not an image")))
	if err != nil {
		t.Fatalf("post: %v", err)
	}
	out := decodeResponse(t, resp)
	if resp.StatusCode != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", resp.StatusCode)
	}
	if out.Error == nil || out.Error.Kind != "invalid_format" {
		t.Fatalf("error = %+v, want invalid_format", out.Error)
	}
}

func TestUploadMobileRoute(t *testing.T) {
	srv, _ := testServer(t)

	resp, err := http.Post(srv.URL+"/api/v1/images/mobile?key=p/9.png",
		"image/jpeg", bytes.NewReader(jpegUpload(t, 800, 600)))
	if err != nil {
		t.Fatalf("post: %v", err)
	}
	out := decodeResponse(t, resp)
	if resp.StatusCode != http.StatusOK || out.Error != nil {
		t.Fatalf("status = %d, error = %+v", resp.StatusCode, out.Error)
	}
	for _, img := range out.Data.Images {
		if len(img.Key) < len("mobile/") || img.Key[:len("mobile/")] != "mobile/" {
			t.Errorf("key %q lacks mobile/ prefix", img.Key)
		}
	}
}

func TestListAndDelete(t *testing.T) {
	srv, _ := testServer(t)

	resp, err := http.Post(srv.URL+"/api/v1/images?key=p/1.png&group=product",
		"image/jpeg", bytes.NewReader(jpegUpload(t, 600, 400)))
	if err != nil {
		t.Fatalf("seed upload: %v", err)
	}
	seeded := decodeResponse(t, resp)
	if len(seeded.Data.Images) == 0 {
		t.Fatal("seed upload published nothing")
	}

	resp, err = http.Get(srv.URL + "/api/v1/images?prefix=p/")
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	var listOut struct {
		Data []storage.ObjectInfo `json:"data"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&listOut); err != nil {
		t.Fatalf("decode list: %v", err)
	}
	resp.Body.Close()
	if len(listOut.Data) != len(seeded.Data.Images) {
		t.Fatalf("listed %d objects, want %d", len(listOut.Data), len(seeded.Data.Images))
	}

	target := seeded.Data.Images[0].Key
	req, _ := http.NewRequest(http.MethodDelete, srv.URL+"/api/v1/images/"+target, nil)
	resp, err = http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("delete: %v", err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("delete status = %d, want 200", resp.StatusCode)
	}
}
