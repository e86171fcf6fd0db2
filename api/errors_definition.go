//nolint:lll
package api

import (
	"fmt"
	"net/http"
)

// API errors. Codes 4xxxx are caused by the request and 5xxxx by the
// server; the code is part of the wire format and the HTTP status is chosen
// per error. Codes are append only: a removed error leaves a gap that is
// never reused.
var (
	ErrResourceNotFound  = Error{Code: 40001, HTTPstatus: http.StatusNotFound, Err: fmt.Errorf("resource not found")}
	ErrMalformedBody     = Error{Code: 40004, HTTPstatus: http.StatusBadRequest, Err: fmt.Errorf("malformed JSON body")}
	ErrMalformedStateID  = Error{Code: 40006, HTTPstatus: http.StatusBadRequest, Err: fmt.Errorf("malformed state ID")}
	ErrProofJobNotFound  = Error{Code: 40007, HTTPstatus: http.StatusNotFound, Err: fmt.Errorf("proof job not found")}
	ErrMalformedSignals  = Error{Code: 40009, HTTPstatus: http.StatusBadRequest, Err: fmt.Errorf("malformed public signals")}
	ErrProofRejected     = Error{Code: 40010, HTTPstatus: http.StatusBadRequest, Err: fmt.Errorf("proof rejected")}
	ErrMalformedProof    = Error{Code: 40011, HTTPstatus: http.StatusBadRequest, Err: fmt.Errorf("malformed proof")}
	ErrMissingTokenState = Error{Code: 40012, HTTPstatus: http.StatusBadRequest, Err: fmt.Errorf("missing token state")}

	ErrMarshalingServerJSONFailed = Error{Code: 50001, HTTPstatus: http.StatusInternalServerError, Err: fmt.Errorf("marshaling (server-side) JSON failed")}
	ErrGenericInternalServerError = Error{Code: 50002, HTTPstatus: http.StatusInternalServerError, Err: fmt.Errorf("internal server error")}
)
