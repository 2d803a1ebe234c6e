package server

import (
	"context"
	"encoding/json"
	stderrors "errors"
	"net/http"

	"github.com/charmbracelet/log"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/matzehuels/siteplan/pkg/errors"
	"github.com/matzehuels/siteplan/pkg/store"
)

type errorResponse struct {
	Error     string      `json:"error"`
	Code      errors.Code `json:"code,omitempty"`
	RequestID string      `json:"request_id,omitempty"`
}

func writeJSON(w http.ResponseWriter, r *http.Request, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.Warn("encode failed", "method", r.Method, "path", r.URL.Path, "error", err)
	}
}

func writeError(w http.ResponseWriter, r *http.Request, err error) {
	status := statusFor(err)
	msg := errors.UserMessage(err)
	if status == http.StatusInternalServerError {
		log.Error("request failed", "path", r.URL.Path, "error", err)
		msg = "internal error"
	}
	writeJSON(w, r, status, errorResponse{
		Error:     msg,
		Code:      errors.GetCode(err),
		RequestID: middleware.GetReqID(r.Context()),
	})
}

func statusFor(err error) int {
	var tooLarge *http.MaxBytesError
	switch {
	case stderrors.As(err, &tooLarge):
		return http.StatusRequestEntityTooLarge
	case stderrors.Is(err, store.ErrNotFound):
		return http.StatusNotFound
	case stderrors.Is(err, context.Canceled), stderrors.Is(err, context.DeadlineExceeded):
		return http.StatusServiceUnavailable
	}

	switch errors.GetCode(err) {
	case errors.ErrCodeInvalidInput, errors.ErrCodeInvalidInstance,
		errors.ErrCodeInvalidSolution, errors.ErrCodeInvalidPath:
		return http.StatusBadRequest
	case errors.ErrCodeNoFeasibleSolution:
		return http.StatusUnprocessableEntity
	case errors.ErrCodeNotFound, errors.ErrCodeFileNotFound:
		return http.StatusNotFound
	case errors.ErrCodeUnsupported:
		return http.StatusNotImplemented
	}
	return http.StatusInternalServerError
}

// decodeJSON decodes the body into v and validates its struct tags.
func decodeJSON(r *http.Request, v any) error {
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	if err := dec.Decode(v); err != nil {
		var tooLarge *http.MaxBytesError
		if stderrors.As(err, &tooLarge) {
			return err
		}
		return errors.Wrap(errors.ErrCodeInvalidInput, err, "invalid JSON body")
	}
	return errors.ValidateStruct(errors.ErrCodeInvalidInput, v)
}
