package api

import (
	"net/http"

	"github.com/go-chi/render"
	"github.com/rs/zerolog/log"
	"github.com/sksmith/video-shoppe/core"
)

//--
// Error response payloads & renderers
//--

// ErrResponse renderer type for handling all sorts of errors.
//
// Domain errors from core carry a Kind and a stable Code. The Kind picks the HTTP status and the Code is passed
// through so clients can branch on it.
type ErrResponse struct {
	Err            error `json:"-"` // low-level runtime error
	HTTPStatusCode int   `json:"-"` // http response status code

	StatusText string `json:"status"`             // user-level status message
	Category   string `json:"category,omitempty"` // validation, not_found, conflict, consistency, auth or internal
	AppCode    string `json:"code,omitempty"`     // application-specific error code
	ErrorText  string `json:"error,omitempty"`    // application-level error message, for debugging

	Detail map[string]interface{} `json:"detail,omitempty"`
}

func (e *ErrResponse) Render(_ http.ResponseWriter, r *http.Request) error {
	render.Status(r, e.HTTPStatusCode)
	return nil
}

func ErrInvalidRequest(err error) render.Renderer {
	return &ErrResponse{
		Err:            err,
		HTTPStatusCode: http.StatusBadRequest,
		StatusText:     "Invalid request.",
		Category:       string(core.KindValidation),
		ErrorText:      err.Error(),
	}
}

// ErrFrom maps an error returned by a service to its response. Anything that is not a domain error is logged and
// reported as an internal error without details.
func ErrFrom(err error) *ErrResponse {
	e, ok := core.AsError(err)
	if !ok {
		log.Error().Err(err).Msg("unexpected error")
		return ErrInternalServer
	}

	resp := &ErrResponse{
		Err:       err,
		Category:  string(e.Kind),
		AppCode:   e.Code,
		ErrorText: e.Message,
	}

	switch e.Kind {
	case core.KindValidation:
		resp.HTTPStatusCode = http.StatusBadRequest
		resp.StatusText = "Invalid request."
	case core.KindNotFound:
		resp.HTTPStatusCode = http.StatusNotFound
		resp.StatusText = "Resource not found."
	case core.KindConflict:
		resp.HTTPStatusCode = http.StatusConflict
		resp.StatusText = "Conflict."
	case core.KindAuth:
		resp.HTTPStatusCode = http.StatusForbidden
		resp.StatusText = "Forbidden."
	case core.KindConsistency:
		log.Error().Err(err).Str("code", e.Code).Fields(e.Detail).Msg("consistency error")
		resp.HTTPStatusCode = http.StatusInternalServerError
		resp.StatusText = "Reconciliation required."
		resp.Detail = e.Detail
	default:
		return ErrInternalServer
	}
	return resp
}

var ErrNotFound = &ErrResponse{HTTPStatusCode: http.StatusNotFound, StatusText: "Resource not found.", Category: string(core.KindNotFound)}
var ErrInternalServer = &ErrResponse{
	Err:            nil,
	HTTPStatusCode: http.StatusInternalServerError,
	StatusText:     "Internal server error.",
	Category:       "internal",
	ErrorText:      "An internal server error has occurred.",
}
