// Package response writes the JSON envelope every endpoint answers with:
// {"success": true, "data": ...} or {"success": false, "error": "..."}.
package response

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/shashiranjanraj/studio/pkg/apperr"
	"github.com/shashiranjanraj/studio/pkg/logger"
)

type envelope struct {
	Success    bool              `json:"success"`
	Count      *int              `json:"count,omitempty"`
	Pagination any               `json:"pagination,omitempty"`
	Data       any               `json:"data,omitempty"`
	Error      string            `json:"error,omitempty"`
	Errors     map[string]string `json:"errors,omitempty"`
}

// JSON writes v with the given status.
func JSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v) //nolint:errcheck
}

func Success(w http.ResponseWriter, data any) {
	JSON(w, http.StatusOK, envelope{Success: true, Data: data})
}

func Created(w http.ResponseWriter, data any) {
	JSON(w, http.StatusCreated, envelope{Success: true, Data: data})
}

// List answers a paginated collection.
func List(w http.ResponseWriter, data any, count int, pagination any) {
	JSON(w, http.StatusOK, envelope{Success: true, Count: &count, Pagination: pagination, Data: data})
}

func Error(w http.ResponseWriter, status int, message string) {
	JSON(w, status, envelope{Success: false, Error: message})
}

// Fail maps err to its status. Unexpected faults are logged and answered
// with a generic message.
func Fail(w http.ResponseWriter, r *http.Request, err error) {
	var ae *apperr.Error
	if !errors.As(err, &ae) || ae.Kind == apperr.KindInternal {
		logger.WithCtx(r.Context()).Error("request failed", "error", err, "path", r.URL.Path)
		Error(w, http.StatusInternalServerError, "Server Error")
		return
	}
	if ae.Kind == apperr.KindIntegration {
		logger.WithCtx(r.Context()).Warn("integration failure", "error", err, "path", r.URL.Path)
	}
	JSON(w, ae.Kind.Status(), envelope{Success: false, Error: ae.Message, Errors: ae.Fields})
}

func Unauthorized(w http.ResponseWriter, message string) {
	Error(w, http.StatusUnauthorized, message)
}

func Forbidden(w http.ResponseWriter, message string) {
	Error(w, http.StatusForbidden, message)
}

func NotFound(w http.ResponseWriter) {
	Error(w, http.StatusNotFound, "Not found")
}
