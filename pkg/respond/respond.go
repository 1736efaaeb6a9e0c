// Package respond writes JSON API responses.
package respond

import (
	"encoding/json"
	"net/http"

	"portfoliocms/pkg/logger"
)

// ErrorBody is the shape of every API error.
type ErrorBody struct {
	Error   string `json:"error"`
	Message string `json:"message"`
}

// JSON writes v with the given status code.
func JSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		logger.Sugar.Errorf("Failed to encode response: %v", err)
	}
}

// Error writes an ErrorBody.
func Error(w http.ResponseWriter, status int, title, message string) {
	JSON(w, status, ErrorBody{Error: title, Message: message})
}
