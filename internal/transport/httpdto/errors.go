package httpdto

import (
	"errors"
	"net/http"

	sentinal_errors "sentinal-social/pkg/errors"
)

// ErrorStatus maps a core error to an HTTP status and response code. The
// reason is preferred as the code so clients can tell conflicts apart.
func ErrorStatus(err error) (int, string) {
	if errors.Is(err, sentinal_errors.ErrUnauthorized) {
		return http.StatusUnauthorized, "UNAUTHORIZED"
	}
	if errors.Is(err, sentinal_errors.ErrRateLimited) {
		return http.StatusTooManyRequests, "RATE_LIMITED"
	}

	var status int
	switch sentinal_errors.KindOf(err) {
	case sentinal_errors.KindValidation:
		status = http.StatusBadRequest
	case sentinal_errors.KindConflict:
		status = http.StatusConflict
	case sentinal_errors.KindForbidden:
		status = http.StatusForbidden
	case sentinal_errors.KindNotFound:
		status = http.StatusNotFound
	case sentinal_errors.KindUnavailable:
		status = http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError, "INTERNAL_ERROR"
	}

	if reason := sentinal_errors.ReasonOf(err); reason != sentinal_errors.ReasonNone {
		return status, string(reason)
	}
	return status, string(sentinal_errors.KindOf(err))
}
