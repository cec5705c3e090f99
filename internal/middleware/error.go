package middleware

import (
	"encoding/json"
	"net/http"

	"go.uber.org/zap"
)

// Response is the envelope every endpoint answers with. Data is present
// on success, Errors on failure; both are omitted when empty.
type Response struct {
	Success bool        `json:"success"`
	Message string      `json:"message,omitempty"`
	Data    interface{} `json:"data,omitempty"`
	Errors  interface{} `json:"errors,omitempty"`
}

// RespondWithJSON sends a success envelope wrapping payload
func RespondWithJSON(w http.ResponseWriter, statusCode int, payload interface{}) {
	writeJSON(w, statusCode, Response{Success: true, Data: payload})
}

// RespondWithMessage sends a success envelope with a message and payload
func RespondWithMessage(w http.ResponseWriter, statusCode int, message string, payload interface{}) {
	writeJSON(w, statusCode, Response{Success: true, Message: message, Data: payload})
}

// respondWithError sends a failure envelope
func respondWithError(w http.ResponseWriter, statusCode int, message string) {
	writeJSON(w, statusCode, Response{Success: false, Message: message})
}

// RespondWithError is the exported form for handlers
func RespondWithError(w http.ResponseWriter, statusCode int, message string) {
	respondWithError(w, statusCode, message)
}

// RespondWithValidationErrors sends a failure envelope carrying per-field
// validation errors
func RespondWithValidationErrors(w http.ResponseWriter, errors []ValidationError) {
	writeJSON(w, http.StatusUnprocessableEntity, Response{
		Success: false,
		Message: "validation failed",
		Errors:  errors,
	})
}

func writeJSON(w http.ResponseWriter, statusCode int, response Response) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	json.NewEncoder(w).Encode(response)
}

// ErrorHandlingMiddleware catches panics and converts them to 500 errors
func ErrorHandlingMiddleware(logger *zap.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			defer func() {
				if err := recover(); err != nil {
					logger.Error("Panic recovered",
						zap.Any("error", err),
						zap.String("path", r.URL.Path),
						zap.String("method", r.Method),
					)

					respondWithError(w, http.StatusInternalServerError, "internal server error")
				}
			}()

			next.ServeHTTP(w, r)
		})
	}
}
