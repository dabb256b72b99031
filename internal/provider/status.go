package provider

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"time"

	"coverfill/internal/services"
)

// StatusError maps a non-2xx HTTP response into a marked error. Rate limits
// and server errors are transient; credential rejections are configuration
// problems; everything else is an external failure.
func StatusError(backend, operation string, status int, latency time.Duration) error {
	message := fmt.Sprintf("returned %d (latency=%v)", status, latency.Round(time.Millisecond))
	switch {
	case status == http.StatusUnauthorized || status == http.StatusForbidden:
		return services.Wrap(services.ErrConfiguration, backend, operation, message+"; check credentials", nil)
	case status == http.StatusTooManyRequests || status >= 500:
		return services.Wrap(services.ErrTransient, backend, operation, message, nil)
	case status == http.StatusNotFound:
		return services.Wrap(services.ErrNotFound, backend, operation, message, nil)
	default:
		return services.Wrap(services.ErrExternal, backend, operation, message, nil)
	}
}

// RequestError marks a failed round trip. Deadline and network timeouts carry
// ErrTimeout; every other transport failure is transient.
func RequestError(backend, operation string, latency time.Duration, err error) error {
	marker := services.ErrTransient
	var netErr net.Error
	if errors.Is(err, context.DeadlineExceeded) || (errors.As(err, &netErr) && netErr.Timeout()) {
		marker = services.ErrTimeout
	}
	return services.Wrap(marker, backend, operation, fmt.Sprintf("execute request (latency=%v)", latency.Round(time.Millisecond)), err)
}
