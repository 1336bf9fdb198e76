package mistral

import (
	"context"
	"errors"
	"net"
	"net/http"

	"github.com/kirillkom/catalog-qa/internal/core/domain"
	"github.com/kirillkom/catalog-qa/internal/infrastructure/resilience"
)

func classifyMistralError(err error) resilience.Class {
	if err == nil {
		return resilience.ClassRejected
	}
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return resilience.ClassRejected
	}
	if resilience.IsCircuitOpen(err) {
		return resilience.ClassTransient
	}

	var statusErr *HTTPStatusError
	if errors.As(err, &statusErr) {
		if isRetryableHTTPStatus(statusErr.StatusCode) {
			return resilience.ClassTransient
		}
		// 4xx is a caller problem; retrying the same payload cannot help.
		return resilience.ClassRejected
	}

	var netErr net.Error
	if errors.As(err, &netErr) {
		return resilience.ClassTransient
	}
	return resilience.ClassFatal
}

// wrapTemporaryIfNeeded tags transport-level failures so use cases can
// distinguish them from semantic errors.
func wrapTemporaryIfNeeded(operation string, err error) error {
	if err == nil {
		return nil
	}
	if domain.IsKind(err, domain.ErrTemporary) {
		return err
	}
	if classifyMistralError(err) == resilience.ClassTransient || resilience.IsCircuitOpen(err) {
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
