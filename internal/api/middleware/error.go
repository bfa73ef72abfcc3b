// Package middleware provides HTTP middleware and error helpers for the API.
package middleware

import (
	"encoding/json"
	"log"
	"net/http"
	"runtime/debug"
)

// Error codes returned in API error bodies.
const (
	ErrBadRequest    = "bad_request"
	ErrValidation    = "validation_error"
	ErrNotFound      = "not_found"
	ErrInternalError = "internal_error"
)

// ErrorResponse is the body of every non-2xx API response.
type ErrorResponse struct {
	Error   string `json:"error"`
	Message string `json:"message"`
}

// WriteError writes a JSON error body with the given status code.
func WriteError(w http.ResponseWriter, status int, code, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(ErrorResponse{Error: code, Message: message}); err != nil {
		log.Printf("writing error response: %v", err)
	}
}

// ErrorRecovery converts handler panics into a 500 response instead of
// tearing down the connection.
func ErrorRecovery(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		defer func() {
			if v := recover(); v != nil {
				log.Printf("panic in %s %s: %v\n%s", r.Method, r.URL.Path, v, debug.Stack())
				WriteError(w, http.StatusInternalServerError, ErrInternalError, "An unexpected error occurred")
			}
		}()
		next.ServeHTTP(w, r)
	})
}
