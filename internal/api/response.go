// Package api implements the JSON management API consumed by the admin
// console. Every response uses the {code, message, data} envelope with
// code 0 for success and -1 for failure.
package api

import (
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"

	"dirbridge/internal/domain"
)

// Response is the envelope every endpoint answers with.
type Response struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
	Data    any    `json:"data,omitempty"`
}

func writeJSON(w http.ResponseWriter, status int, body Response) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}

// ok writes a success envelope with HTTP 200.
func ok(w http.ResponseWriter, data any) {
	writeJSON(w, http.StatusOK, Response{Code: 0, Message: "success", Data: data})
}

// fail writes an error envelope; the HTTP status comes from the domain
// error mapping.
func fail(w http.ResponseWriter, err error) {
	writeJSON(w, httpStatusFromDomainError(err), Response{Code: -1, Message: err.Error()})
}

// decode reads a JSON request body into dst, surfacing malformed bodies as
// ValidationError.
func decode(r *http.Request, dst any) error {
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		return domain.ErrValidation("invalid request body: %v", err)
	}
	return nil
}

// idParam extracts a UUID path parameter. A malformed id is a bad request,
// not a missing row.
func idParam(r *http.Request, name string) (string, error) {
	id := chi.URLParam(r, name)
	if !domain.ValidID(id) {
		return "", domain.ErrValidation("invalid %s %q", name, id)
	}
	return id, nil
}
