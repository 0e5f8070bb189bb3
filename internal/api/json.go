package api

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"shelf/internal/apperr"
)

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		slog.Error("json encode failed", slog.String("error", err.Error()))
	}
}

type errResponse struct {
	Error string `json:"error"`
}

// fieldErrResponse carries the per-field validation mapping.
type fieldErrResponse struct {
	Errors map[string]string `json:"errors"`
}

func errorBody(msg string) errResponse {
	return errResponse{Error: msg}
}

// writeError maps the error taxonomy onto HTTP statuses:
// validation -> 422 with a field map, format -> 400, not found -> 404,
// everything else -> 500.
func writeError(w http.ResponseWriter, err error) {
	var verr *apperr.ValidationError
	if errors.As(err, &verr) {
		writeJSON(w, http.StatusUnprocessableEntity, fieldErrResponse{Errors: verr.Fields})
		return
	}
	var ferr *apperr.FormatError
	if errors.As(err, &ferr) {
		writeJSON(w, http.StatusBadRequest, errorBody(ferr.Reason))
		return
	}
	if errors.Is(err, apperr.ErrNotFound) {
		writeJSON(w, http.StatusNotFound, errorBody("not found"))
		return
	}
	slog.Error("request failed", slog.String("error", err.Error()))
	writeJSON(w, http.StatusInternalServerError, errorBody("internal error"))
}
