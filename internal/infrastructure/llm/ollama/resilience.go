package ollama

import (
	"context"
	"errors"
	"net"
	"net/http"

	"github.com/avelasquez/talent-inbound/internal/core/domain"
	"github.com/avelasquez/talent-inbound/internal/infrastructure/resilience"
)

// classifyModelError feeds the breaker. Retryable is moot under the
// single-attempt model policy; CountFailure decides what trips the
// breaker: infrastructure failures count, caller mistakes do not.
func classifyModelError(err error) resilience.Verdict {
	if err == nil {
		return resilience.Verdict{}
	}
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return resilience.Verdict{Retryable: false, CountFailure: false}
	}

	var statusErr *HTTPStatusError
	if errors.As(err, &statusErr) {
		return resilience.Verdict{
			Retryable:    isRetryableHTTPStatus(statusErr.StatusCode),
			CountFailure: isRetryableHTTPStatus(statusErr.StatusCode),
		}
	}

	var netErr net.Error
	if errors.As(err, &netErr) {
		return resilience.Verdict{Retryable: true, CountFailure: true}
	}

	return resilience.Verdict{Retryable: false, CountFailure: true}
}

// wrapTemporaryIfNeeded marks infrastructure failures as temporary so
// callers can distinguish "model is down" from "request is wrong".
func wrapTemporaryIfNeeded(operation string, err error) error {
	if err == nil || domain.IsKind(err, domain.ErrTemporary) {
		return err
	}
	if classifyModelError(err).CountFailure || resilience.IsCircuitOpen(err) {
		return domain.WrapError(domain.ErrTemporary, operation, err)
	}
	return err
}

func isRetryableHTTPStatus(statusCode int) bool {
	switch statusCode {
	case http.StatusRequestTimeout,
		http.StatusTooManyRequests,
		http.StatusInternalServerError,
		http.StatusBadGateway,
		http.StatusServiceUnavailable,
		http.StatusGatewayTimeout:
		return true
	default:
		return false
	}
}
