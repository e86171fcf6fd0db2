package api

import (
	"encoding/json"
	"math/big"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/vocdoni/tokenzk/crypto/field"
	"github.com/vocdoni/tokenzk/log"
)

// httpWriteJSON writes data as a JSON response with status 200.
func httpWriteJSON(w http.ResponseWriter, data any) {
	body, err := json.Marshal(data)
	if err != nil {
		ErrMarshalingServerJSONFailed.WithErr(err).Write(w)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	if _, err := w.Write(append(body, '\n')); err != nil {
		log.Warnw("cannot write api response", "error", err)
		return
	}
	if log.Level() == log.LogLevelDebug {
		log.Debugw("api response", "bytes", len(body), "data", strings.ReplaceAll(string(body), "\"", ""))
	}
}

// httpWriteOK writes an empty 200 response.
func httpWriteOK(w http.ResponseWriter) {
	w.WriteHeader(http.StatusOK)
	if _, err := w.Write([]byte("\n")); err != nil {
		log.Warnw("cannot write api response", "error", err)
	}
}

// stateIDFromURL parses the state identifier of the request URL, as a
// decimal or 0x prefixed hex number in the scalar field.
func stateIDFromURL(r *http.Request) (*big.Int, error) {
	return field.Parse(chi.URLParam(r, StateURLParam))
}
