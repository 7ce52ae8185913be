package httputil

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/tendant/gymdesk/internal/errutil"
	"github.com/tendant/gymdesk/pkg/domain"
)

// ErrorResponse is the body of every error reply.
type ErrorResponse struct {
	Error string `json:"error"`
	Code  string `json:"code"`
	Field string `json:"field,omitempty"`
}

// JSON writes v as a JSON response with status.
func JSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if v != nil {
		json.NewEncoder(w).Encode(v)
	}
}

// Error writes an error body with status and code.
func Error(w http.ResponseWriter, status int, code, message string) {
	JSON(w, status, ErrorResponse{Error: message, Code: code})
}

var kindStatus = []struct {
	kind   error
	status int
	code   string
}{
	{domain.ErrValidation, http.StatusBadRequest, "VALIDATION_ERROR"},
	{domain.ErrConflict, http.StatusConflict, "CONFLICT"},
	{domain.ErrNotFound, http.StatusNotFound, "NOT_FOUND"},
	{domain.ErrUnauthorized, http.StatusUnauthorized, "UNAUTHORIZED"},
	{domain.ErrForbidden, http.StatusForbidden, "FORBIDDEN"},
}

// WriteError maps a domain error kind to its status. Anything else is an
// unexpected fault: it is logged and answered with a generic 500.
func WriteError(w http.ResponseWriter, logger *slog.Logger, r *http.Request, err error) {
	for _, k := range kindStatus {
		if !errors.Is(err, k.kind) {
			continue
		}
		resp := ErrorResponse{Error: err.Error(), Code: k.code}
		var derr *domain.Error
		if errors.As(err, &derr) {
			resp.Error = derr.Message
			resp.Field = derr.Field
		}
		JSON(w, k.status, resp)
		return
	}

	errutil.LogError(logger, "request failed", err, "method", r.Method, "path", r.URL.Path)
	Error(w, http.StatusInternalServerError, "INTERNAL_ERROR", "internal server error")
}
