// Package responder shapes every API response the same way: a data
// envelope, a structured error, and response metadata (trace ID, timing).
package responder

import (
	stderrors "errors"
	"net/http"

	"github.com/leeforge/imageflow/errors"
	"github.com/leeforge/imageflow/http/middleware"
	"github.com/leeforge/imageflow/json"
)

// Response is the standard API envelope.
type Response struct {
	Data  any    `json:"data,omitempty"`
	Error *Error `json:"error,omitempty"`
	Meta  Meta   `json:"meta"`
}

// Error is the wire form of a failed request.
type Error struct {
	Kind    string         `json:"kind"`
	Message string         `json:"message"`
	Details map[string]any `json:"details,omitempty"`
}

// Meta carries per-request metadata.
type Meta struct {
	TraceID string `json:"traceId,omitempty"`
	Took    int64  `json:"took,omitempty"`
}

// Responder writes envelopes for one request.
type Responder struct {
	w http.ResponseWriter
	r *http.Request
}

// FromRequest builds a Responder bound to one request/response pair.
func FromRequest(w http.ResponseWriter, r *http.Request) *Responder {
	return &Responder{w: w, r: r}
}

func (r *Responder) meta() Meta {
	ctx := r.r.Context()
	return Meta{
		TraceID: middleware.GetTraceID(ctx),
		Took:    middleware.GetRequestDuration(ctx),
	}
}

func (r *Responder) writeJSON(status int, payload *Response) {
	raw, err := json.Marshal(payload)
	if err != nil {
		http.Error(r.w, `{"error":{"kind":"internal","message":"encode failed"}}`,
			http.StatusInternalServerError)
		return
	}
	r.w.Header().Set("Content-Type", "application/json")
	r.w.WriteHeader(status)
	_, _ = r.w.Write(raw)
}

// Write sends a success envelope.
func (r *Responder) Write(status int, payload any) {
	r.writeJSON(status, &Response{Data: payload, Meta: r.meta()})
}

// WriteError maps err onto the envelope. Kinds carry their own HTTP
// status; anything else is an internal error.
func (r *Responder) WriteError(err error) {
	var appErr *errors.Error
	if !stderrors.As(err, &appErr) {
		appErr = errors.Wrap(err, errors.KindInternal, "internal error")
	}

	status := appErr.HTTPStatus
	if status == 0 {
		status = http.StatusInternalServerError
	}

	r.writeJSON(status, &Response{
		Error: &Error{
			Kind:    string(appErr.Kind),
			Message: appErr.Message,
			Details: appErr.Details,
		},
		Meta: r.meta(),
	})
}
