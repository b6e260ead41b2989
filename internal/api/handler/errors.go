package handler

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"

	"github.com/mcoot/topten/internal/api/apierr"
	"github.com/mcoot/topten/internal/services/resilience"
)

// WriteError writes an error response to the response writer
func WriteError(w http.ResponseWriter, err error) {
	apierr.WriteError(w, err)
}

// writeFailure writes the response for a failed supervised operation and
// reports whether it did
func writeFailure(w http.ResponseWriter, res resilience.Result) bool {
	if res.OK() {
		return false
	}
	apierr.WriteOutcome(w, res)
	return true
}

// decodeBody decodes an optional JSON body into v
func decodeBody(r *http.Request, v any) error {
	if err := json.NewDecoder(r.Body).Decode(v); err != nil && !errors.Is(err, io.EOF) {
		return apierr.NewInvalidRequestError("Invalid request body")
	}
	return nil
}
