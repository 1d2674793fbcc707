package httpadapter

import (
	"net/http"
	"strconv"

	"github.com/complyline/assessor/internal/core/domain"
)

func writeError(w http.ResponseWriter, err error) {
	if limited, ok := domain.AsRateLimited(err); ok {
		retryAfterMs := limited.RetryAfter.Milliseconds()
		retryAfterSec := (retryAfterMs + 999) / 1000
		w.Header().Set("Retry-After", strconv.FormatInt(retryAfterSec, 10))
		writeJSON(w, http.StatusTooManyRequests, map[string]any{
			"error":        "rate limit exceeded",
			"retryAfterMs": retryAfterMs,
		})
		return
	}

	writeJSON(w, mapErrorToHTTPStatus(err), map[string]string{"error": err.Error()})
}

func mapErrorToHTTPStatus(err error) int {
	switch {
	case domain.IsKind(err, domain.ErrInvalidInput):
		return http.StatusBadRequest
	case domain.IsKind(err, domain.ErrJobNotFound):
		return http.StatusNotFound
	case domain.IsKind(err, domain.ErrTemporary):
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}
