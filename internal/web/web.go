// Package web holds small helpers shared by the HTTP handlers.
package web

import (
	"encoding/json"
	"errors"
	"log"
	"net/http"

	"github.com/FCHEHIDI/Library-Management-System/internal/liberr"
)

// Respond writes v as a JSON body with the given status.
func Respond(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if v == nil {
		return
	}
	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.Printf("web: encode response: %v", err)
	}
}

// Error maps the error taxonomy onto HTTP status codes and writes a
// JSON error body.
func Error(w http.ResponseWriter, err error) {
	status := http.StatusInternalServerError
	switch {
	case errors.Is(err, liberr.ErrNotFound):
		status = http.StatusNotFound
	case errors.Is(err, liberr.ErrPolicyViolation):
		status = http.StatusUnprocessableEntity
	case errors.Is(err, liberr.ErrConflict):
		status = http.StatusConflict
	case errors.Is(err, liberr.ErrUnauthorized):
		status = http.StatusForbidden
	}
	if status == http.StatusInternalServerError {
		log.Printf("web: internal error: %v", err)
		Respond(w, status, map[string]string{"error": "internal server error"})
		return
	}
	Respond(w, status, map[string]string{"error": err.Error()})
}

// Decode reads a JSON request body into v.
func Decode(r *http.Request, v any) error {
	return json.NewDecoder(r.Body).Decode(v)
}
