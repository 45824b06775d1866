// Package httputil provides HTTP error handling utilities.
package httputil

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
)

// MaxErrorBodySize caps the message echoed back to clients.
const MaxErrorBodySize = 500

// HTTPError is an error that knows which status it should surface as.
type HTTPError struct {
	StatusCode int
	Message    string
	Err        error
}

func (e *HTTPError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s (status %d): %v", e.Message, e.StatusCode, e.Err)
	}
	return fmt.Sprintf("%s (status %d)", e.Message, e.StatusCode)
}

func (e *HTTPError) Unwrap() error {
	return e.Err
}

// NewError builds an HTTPError; err may be nil.
func NewError(status int, message string, err error) *HTTPError {
	return &HTTPError{StatusCode: status, Message: message, Err: err}
}

func BadRequest(message string, err error) *HTTPError {
	return NewError(http.StatusBadRequest, message, err)
}

func Unauthorized(message string) *HTTPError {
	return NewError(http.StatusUnauthorized, message, nil)
}

func NotFound(message string) *HTTPError {
	return NewError(http.StatusNotFound, message, nil)
}

// truncate truncates a string to maxLen, adding "..." if truncated
func truncate(s string, maxLen int) string {
	if len(s) <= maxLen {
		return s
	}
	return s[:maxLen] + "..."
}

type errorBody struct {
	Error  string `json:"error"`
	Status int    `json:"status"`
}

// WriteError renders err as {"error": ..., "status": ...}. Errors that are
// not HTTPErrors become 500s and their detail is logged, not returned.
func WriteError(w http.ResponseWriter, logger *slog.Logger, err error) {
	status := http.StatusInternalServerError
	message := http.StatusText(status)

	var httpErr *HTTPError
	if errors.As(err, &httpErr) {
		status = httpErr.StatusCode
		message = truncate(httpErr.Message, MaxErrorBodySize)
	}

	if logger != nil {
		level := slog.LevelWarn
		if status >= 500 {
			level = slog.LevelError
		}
		logger.Log(context.Background(), level, "Request failed", "status", status, "error", err)
	}

	WriteJSON(w, status, errorBody{Error: message, Status: status})
}

// WriteJSON encodes v with the given status.
func WriteJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
