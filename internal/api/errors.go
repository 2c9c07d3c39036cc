package api

import (
	"encoding/json"
	"net/http"

	"github.com/joestump/hookline/internal/apperr"
)

type errorBody struct {
	Error string `json:"error"`
	Code  string `json:"code"`
}

// writeError writes a JSON error response with the given HTTP status code.
func writeError(w http.ResponseWriter, status int, message, code string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(errorBody{Error: message, Code: code})
}

// writeAppError maps an apperr kind onto a status and error code.
func writeAppError(w http.ResponseWriter, err error) {
	status, code := http.StatusInternalServerError, "INTERNAL_ERROR"
	switch apperr.KindOf(err) {
	case apperr.KindAuth:
		status, code = http.StatusServiceUnavailable, "NOT_CONFIGURED"
	case apperr.KindTemplateFormat:
		status, code = http.StatusUnprocessableEntity, "TEMPLATE_FORMAT"
	case apperr.KindInput:
		status, code = http.StatusBadRequest, "INVALID_INPUT"
	case apperr.KindGeneration:
		status, code = http.StatusBadGateway, "GENERATION_FAILED"
	case apperr.KindPersistence:
		status, code = http.StatusInternalServerError, "STORAGE_ERROR"
	}
	writeError(w, status, apperr.UserMessage(err), code)
}

// writeJSON writes a JSON response with the given HTTP status code.
func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

func decodeJSON(w http.ResponseWriter, r *http.Request, v any) error {
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, 1<<20))
	dec.DisallowUnknownFields()
	return dec.Decode(v)
}
