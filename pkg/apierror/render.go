package apierror

import (
	"encoding/json"
	"net/http"
	"runtime/debug"
	"strconv"
)

// envelope is the wire shape of an error response.
type envelope struct {
	Code    string         `json:"code"`
	Message string         `json:"message"`
	Details map[string]any `json:"details,omitempty"`
	Stack   string         `json:"stack,omitempty"`
}

// Renderer writes taxonomy errors as JSON responses.
type Renderer struct {
	debug bool
}

// RendererOption configures a Renderer.
type RendererOption func(*Renderer)

// WithDebug includes stack traces and full error chains in responses.
// Never enable in production.
func WithDebug(debug bool) RendererOption {
	return func(r *Renderer) {
		r.debug = debug
	}
}

// NewRenderer creates a renderer. The zero configuration is production-safe:
// no stacks, no internals.
func NewRenderer(opts ...RendererOption) *Renderer {
	r := &Renderer{}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Render writes err to w as a JSON error envelope with the taxonomy status.
// Rate-limited errors additionally set the Retry-After header.
func (r *Renderer) Render(w http.ResponseWriter, err error) {
	apiErr := From(err)

	body := envelope{
		Code:    apiErr.Code,
		Message: apiErr.Message,
		Details: apiErr.Details,
	}

	if r.debug {
		body.Stack = string(debug.Stack())
		if cause := apiErr.Unwrap(); cause != nil {
			if body.Details == nil {
				body.Details = make(map[string]any, 1)
			}
			body.Details["cause"] = cause.Error()
		}
	}

	if apiErr.RetryAfter > 0 {
		secs := int(apiErr.RetryAfter.Seconds())
		if secs < 1 {
			secs = 1
		}
		w.Header().Set("Retry-After", strconv.Itoa(secs))
	}

	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(apiErr.Status)
	_ = json.NewEncoder(w).Encode(body)
}
