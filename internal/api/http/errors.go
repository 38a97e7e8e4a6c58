package http

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/go-playground/validator/v10"

	"rental-backend/internal/domain"
	"rental-backend/internal/logger"
)

const (
	codeBadRequest   = "bad_request"
	codeValidation   = "validation_error"
	codeConflict     = "conflict"
	codeInvalidState = "invalid_state"
	codeNotFound     = "not_found"
	codeUnauthorized = "unauthorized"
	codeForbidden    = "forbidden"
	codeInternal     = "internal_error"
)

type errorBody struct {
	Code    string         `json:"code"`
	Message string         `json:"message"`
	Details map[string]any `json:"details,omitempty"`
}

type errorResponse struct {
	Error errorBody `json:"error"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if v == nil {
		return
	}
	if err := json.NewEncoder(w).Encode(v); err != nil {
		logger.Warn("Failed to encode response", "error", err)
	}
}

func writeErrorBody(w http.ResponseWriter, status int, code, message string, details map[string]any) {
	writeJSON(w, status, errorResponse{Error: errorBody{Code: code, Message: message, Details: details}})
}

// writeError maps service errors onto status codes. Conflicts are checked before validation
// because a ConflictError is both.
func writeError(w http.ResponseWriter, r *http.Request, err error) {
	var (
		conflict   *domain.ConflictError
		validation *domain.ValidationError
		state      *domain.StateError
		fieldErrs  validator.ValidationErrors
	)

	switch {
	case errors.As(err, &conflict):
		details := map[string]any{"product_id": conflict.ProductID}
		if len(conflict.OrderNumbers) > 0 {
			details["order_numbers"] = conflict.OrderNumbers
		}
		writeErrorBody(w, http.StatusConflict, codeConflict, err.Error(), details)
	case errors.Is(err, domain.ErrConflict):
		writeErrorBody(w, http.StatusConflict, codeConflict, err.Error(), nil)
	case errors.As(err, &state):
		required := make([]string, 0, len(state.Required))
		for _, s := range state.Required {
			required = append(required, string(s))
		}
		writeErrorBody(w, http.StatusConflict, codeInvalidState, err.Error(), map[string]any{
			"action":   state.Action,
			"current":  state.Current,
			"required": required,
		})
	case errors.As(err, &fieldErrs):
		fields := make(map[string]any, len(fieldErrs))
		for _, fe := range fieldErrs {
			fields[fe.Field()] = fe.Tag()
		}
		writeErrorBody(w, http.StatusUnprocessableEntity, codeValidation, "request validation failed", map[string]any{"fields": fields})
	case errors.As(err, &validation):
		var details map[string]any
		if validation.Field != "" {
			details = map[string]any{"field": validation.Field}
		}
		writeErrorBody(w, http.StatusUnprocessableEntity, codeValidation, validation.Message, details)
	case errors.Is(err, domain.ErrValidation):
		writeErrorBody(w, http.StatusUnprocessableEntity, codeValidation, err.Error(), nil)
	case errors.Is(err, domain.ErrNotFound):
		writeErrorBody(w, http.StatusNotFound, codeNotFound, err.Error(), nil)
	default:
		logger.ErrorContext(r.Context(), "Request failed", "method", r.Method, "path", r.URL.Path, "error", err)
		writeErrorBody(w, http.StatusInternalServerError, codeInternal, "internal server error", nil)
	}
}

// badRequest is for bodies and parameters that cannot be parsed at all
func badRequest(w http.ResponseWriter, message string) {
	writeErrorBody(w, http.StatusBadRequest, codeBadRequest, message, nil)
}
