package apperrors

import "net/http"

// Code is a machine-readable error category.
type Code string

const (
	CodeUnknown      Code = "UNKNOWN"
	CodeValidation   Code = "VALIDATION"
	CodeConnectivity Code = "CONNECTIVITY"
	CodeConflict     Code = "CONFLICT"
	CodeAuth         Code = "AUTH"
	CodeNotFound     Code = "NOT_FOUND"
	CodeRateLimited  Code = "RATE_LIMITED"
)

// HTTPStatus maps the code to the status returned by the API
func (c Code) HTTPStatus() int {
	switch c {
	case CodeValidation:
		return http.StatusBadRequest
	case CodeConnectivity:
		return http.StatusServiceUnavailable
	case CodeConflict:
		return http.StatusConflict
	case CodeAuth:
		return http.StatusUnauthorized
	case CodeNotFound:
		return http.StatusNotFound
	case CodeRateLimited:
		return http.StatusTooManyRequests
	default:
		return http.StatusInternalServerError
	}
}
