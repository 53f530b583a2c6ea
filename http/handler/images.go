// Package handler exposes the pipeline over HTTP. One route family:
// uploads go in, variant manifests come out as JSON.
package handler

import (
	"io"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/leeforge/imageflow/errors"
	"github.com/leeforge/imageflow/http/responder"
	"github.com/leeforge/imageflow/logging"
	"github.com/leeforge/imageflow/pipeline"
	"github.com/leeforge/imageflow/policy"
	"github.com/leeforge/imageflow/storage"
)

// DefaultMaxUploadBytes bounds the request body read. Slightly above the
// validator's source limit so oversized uploads get the structured
// file_too_large rejection instead of a connection reset.
const DefaultMaxUploadBytes = 16 << 20

// Images serves the image upload and management routes.
type Images struct {
	pipe           *pipeline.Pipeline
	store          storage.Store
	maxUploadBytes int64
	logger         logging.Logger
}

// NewImages wires the handler. maxUploadBytes <= 0 selects the default.
func NewImages(pipe *pipeline.Pipeline, store storage.Store, maxUploadBytes int64, logger logging.Logger) *Images {
	if maxUploadBytes <= 0 {
		maxUploadBytes = DefaultMaxUploadBytes
	}
	if logger == nil {
		logger = logging.Global()
	}
	return &Images{
		pipe:           pipe,
		store:          store,
		maxUploadBytes: maxUploadBytes,
		logger:         logger.Named("http"),
	}
}

// Routes mounts the handler on a chi router.
func (h *Images) Routes(r chi.Router) {
	r.Post("/images", h.Upload)
	r.Post("/images/mobile", h.UploadMobile)
	r.Get("/images", h.List)
	r.Delete("/images/*", h.Delete)
}

// Upload runs the full pipeline over the request body.
//
//	POST /images?key=product/123.png&group=product
//
// The body is the raw image, or a multipart form with a "file" part.
func (h *Images) Upload(w http.ResponseWriter, r *http.Request) {
	res := responder.FromRequest(w, r)

	key := r.URL.Query().Get("key")
	if key == "" {
		res.WriteError(errors.New(errors.KindInvalidFormat, "missing key parameter"))
		return
	}
	group := r.URL.Query().Get("group")
	if group == "" {
		group = policy.GroupStyleSwiper
	}

	data, err := h.readBody(r)
	if err != nil {
		res.WriteError(err)
		return
	}

	result, err := h.pipe.Process(r.Context(), data, key, group)
	if err != nil {
		res.WriteError(err)
		return
	}
	res.Write(http.StatusOK, result)
}

// UploadMobile renders only the density tiers under the mobile key prefix.
//
//	POST /images/mobile?key=product/123.png
func (h *Images) UploadMobile(w http.ResponseWriter, r *http.Request) {
	res := responder.FromRequest(w, r)

	key := r.URL.Query().Get("key")
	if key == "" {
		res.WriteError(errors.New(errors.KindInvalidFormat, "missing key parameter"))
		return
	}

	data, err := h.readBody(r)
	if err != nil {
		res.WriteError(err)
		return
	}

	result, err := h.pipe.ProcessMobile(r.Context(), data, key)
	if err != nil {
		res.WriteError(err)
		return
	}
	res.Write(http.StatusOK, result)
}

// List reports stored objects under a prefix, for audit and cleanup flows.
//
//	GET /images?prefix=product/&max=100
func (h *Images) List(w http.ResponseWriter, r *http.Request) {
	res := responder.FromRequest(w, r)

	maxKeys := 100
	if raw := r.URL.Query().Get("max"); raw != "" {
		if n, err := strconv.Atoi(raw); err == nil && n > 0 {
			maxKeys = n
		}
	}

	objects, err := h.store.List(r.Context(), r.URL.Query().Get("prefix"), maxKeys)
	if err != nil {
		res.WriteError(errors.Wrap(err, errors.KindStoreUnavailable, "list failed"))
		return
	}
	res.Write(http.StatusOK, objects)
}

// Delete removes one stored object.
//
//	DELETE /images/product/123-card.webp
func (h *Images) Delete(w http.ResponseWriter, r *http.Request) {
	res := responder.FromRequest(w, r)

	key := chi.URLParam(r, "*")
	if key == "" {
		res.WriteError(errors.New(errors.KindInvalidFormat, "missing object key"))
		return
	}

	if err := h.store.Delete(r.Context(), key); err != nil {
		h.logger.Warn("delete failed", zap.String("object_key", key), zap.Error(err))
		res.WriteError(errors.Wrap(err, errors.KindStoreUnavailable, "delete failed"))
		return
	}
	res.Write(http.StatusOK, map[string]string{"deleted": key})
}

// readBody extracts the upload, preferring a multipart "file" part and
// falling back to the raw body.
func (h *Images) readBody(r *http.Request) ([]byte, error) {
	var reader io.Reader = r.Body
	if strings.HasPrefix(r.Header.Get("Content-Type"), "multipart/form-data") {
		file, _, err := r.FormFile("file")
		if err != nil {
			return nil, errors.Wrap(err, errors.KindInvalidFormat, "missing file part")
		}
		defer file.Close()
		reader = file
	}
	reader = io.LimitReader(reader, h.maxUploadBytes+1)

	data, err := io.ReadAll(reader)
	if err != nil {
		return nil, errors.Wrap(err, errors.KindInvalidFormat, "unreadable request body")
	}
	if int64(len(data)) > h.maxUploadBytes {
		return nil, errors.NewFileTooLarge(int64(len(data)), h.maxUploadBytes)
	}
	return data, nil
}
