package api

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"strings"
)

// jsonResponse writes a JSON response with the given status code.
func jsonResponse(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if data != nil {
		if err := json.NewEncoder(w).Encode(data); err != nil {
			slog.Error("encoding response", "error", err)
		}
	}
}

// jsonError writes a JSON error response.
func jsonError(w http.ResponseWriter, status int, message string) {
	jsonResponse(w, status, map[string]string{"error": message})
}

// serverError logs err and answers 500 with a generic message.
func serverError(w http.ResponseWriter, r *http.Request, message string, err error) {
	slog.Error(message, "method", r.Method, "path", r.URL.Path, "error", err)
	jsonError(w, http.StatusInternalServerError, message)
}

// validationError answers 400 with every joined problem on one line.
func validationError(w http.ResponseWriter, err error) {
	jsonError(w, http.StatusBadRequest, strings.ReplaceAll(err.Error(), "\n", "; "))
}

// decodeJSON decodes a JSON request body into the given target.
func decodeJSON(r *http.Request, target any) error {
	defer r.Body.Close()
	return json.NewDecoder(r.Body).Decode(target)
}
