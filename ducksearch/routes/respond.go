package routes

import (
	"encoding/json"
	"errors"
	"net/http"

	"ducksearch/ducksearch/utils/errs"
	"ducksearch/ducksearch/utils/logging"
	"ducksearch/ducksearch/utils/types"

	"go.uber.org/zap"
)

// RetryAfterSeconds is advertised on 429 responses.
const RetryAfterSeconds = "60"

// httpError carries the status and the message a client is allowed to see.
type httpError struct {
	status  int
	message string
	cause   error
}

func (e *httpError) Error() string { return e.message }

func (e *httpError) Unwrap() error { return e.cause }

func newHTTPError(status int, message string, cause error) *httpError {
	return &httpError{status: status, message: message, cause: cause}
}

// generic wrapper to reduce boilerplate
func handleJSON(handler func(r *http.Request) (any, int, error)) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		res, status, err := handler(r)
		if err != nil {
			writeError(w, r, status, err)
			return
		}
		writeJSON(w, status, res)
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

// writeError maps err onto the error envelope. Internal details only reach
// error.log.
func writeError(w http.ResponseWriter, r *http.Request, status int, err error) {
	message := err.Error()
	var he *httpError
	switch {
	case errors.As(err, &he):
		status, message = he.status, he.message
	case errors.Is(err, errs.ErrInvalidRequest):
		status = http.StatusBadRequest
	case status < http.StatusInternalServerError && status >= http.StatusBadRequest:
	default:
		status = http.StatusInternalServerError
		message = "internal error"
	}
	if status >= http.StatusInternalServerError {
		logging.ErrorLogger.Error("request failed",
			zap.String("path", r.URL.Path),
			zap.Int("status", status),
			zap.String("request_id", logging.RequestID(r.Context())),
			zap.Error(err))
	}
	if status == http.StatusTooManyRequests {
		w.Header().Set("Retry-After", RetryAfterSeconds)
	}
	writeJSON(w, status, types.ErrorResponse{Error: message})
}
