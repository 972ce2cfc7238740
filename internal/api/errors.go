package api

import (
	"errors"
	"net/http"

	"dirbridge/internal/domain"
)

// httpStatusFromDomainError maps domain errors to HTTP status codes.
func httpStatusFromDomainError(err error) int {
	var validation *domain.ValidationError
	var credentials *domain.CredentialsError
	var notFound *domain.NotFoundError
	var conflict *domain.ConflictError
	var busy *domain.BusyError
	var unsupported *domain.UnsupportedError
	var unavailable *domain.UnavailableError
	var apply *domain.ApplyError

	switch {
	case errors.As(err, &validation):
		return http.StatusBadRequest
	case errors.As(err, &credentials):
		return http.StatusUnauthorized
	case errors.As(err, &notFound):
		return http.StatusNotFound
	case errors.As(err, &conflict):
		return http.StatusConflict
	case errors.As(err, &busy):
		return http.StatusConflict
	case errors.As(err, &unsupported):
		return http.StatusUnprocessableEntity
	case errors.As(err, &unavailable):
		return http.StatusConflict
	case errors.As(err, &apply):
		return http.StatusConflict
	default:
		return http.StatusInternalServerError
	}
}
