package api

import (
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/vocdoni/tokenzk/log"
)

// Error is an API error: the error sent to the client, its unique code and
// the HTTP status of the response. The definitions live in
// errors_definition.go; handlers add context with With, Withf or WithErr.
type Error struct {
	Err        error
	Code       int
	HTTPstatus int
}

// errorResponse is the body of every error response, for example:
//
//	{"error":"proof rejected: state 1234","code":40010}
type errorResponse struct {
	Error string `json:"error"`
	Code  int    `json:"code"`
}

// MarshalJSON returns the error response body. HTTPstatus is not part of it.
func (e Error) MarshalJSON() ([]byte, error) {
	return json.Marshal(errorResponse{Error: e.Err.Error(), Code: e.Code})
}

// Error returns the message of the wrapped error.
func (e Error) Error() string {
	return e.Err.Error()
}

// Unwrap returns the wrapped error.
func (e Error) Unwrap() error {
	return e.Err
}

// Is reports whether target is an API error with the same code, so an error
// with extra context still matches its definition.
func (e Error) Is(target error) bool {
	t, ok := target.(Error)
	return ok && t.Code == e.Code
}

// Write sends the error as a JSON response with its HTTP status.
func (e Error) Write(w http.ResponseWriter) {
	msg, err := json.Marshal(e)
	if err != nil {
		log.Warn(err)
		http.Error(w, "marshal failed", http.StatusInternalServerError)
		return
	}
	if e.HTTPstatus >= http.StatusInternalServerError {
		log.Warnw("API internal error", "error", e.Error(), "code", e.Code)
	} else {
		log.Debugw("API error response", "error", e.Error(), "code", e.Code, "httpStatus", e.HTTPstatus)
	}
	w.Header().Set("Content-Type", "application/json")
	w.Header().Set("X-Content-Type-Options", "nosniff")
	w.WriteHeader(e.HTTPstatus)
	if _, err := w.Write(append(msg, '\n')); err != nil {
		log.Warnw("failed to write error response", "error", err)
	}
}

// Withf returns a copy of the error with the formatted string appended.
func (e Error) Withf(format string, args ...any) Error {
	return e.With(fmt.Sprintf(format, args...))
}

// With returns a copy of the error with the string appended.
func (e Error) With(s string) Error {
	return Error{
		Err:        fmt.Errorf("%w: %s", e.Err, s),
		Code:       e.Code,
		HTTPstatus: e.HTTPstatus,
	}
}

// WithErr returns a copy of the error with err appended.
func (e Error) WithErr(err error) Error {
	return e.With(err.Error())
}
