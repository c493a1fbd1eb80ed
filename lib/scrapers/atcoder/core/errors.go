package core

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"github.com/go-resty/resty/v2"
)

var (
	// ErrNetwork covers transport failures, timeouts and transient server
	// statuses (5xx, 429). It is the only retryable class.
	ErrNetwork = fmt.Errorf("network error")
	// ErrUnexpectedResponse means the page no longer looks the way it is
	// expected to, usually because the site changed.
	ErrUnexpectedResponse = fmt.Errorf("unexpected response from site")

	ErrInvalidCredentials = fmt.Errorf("incorrect username or password")
	ErrNotFound           = fmt.Errorf("not found")
	ErrForbidden          = fmt.Errorf("access denied")
)

func IsRetryable(err error) bool {
	return errors.Is(err, ErrNetwork)
}

// Classify maps the outcome of a request that is expected to answer 200 onto
// the error taxonomy.
func Classify(ctx context.Context, res *resty.Response, err error) error {
	if err != nil {
		// cancellation by the caller is not a network failure
		if ctx.Err() != nil {
			return ctx.Err()
		}
		return fmt.Errorf("%w: %w", ErrNetwork, err)
	}

	status := res.StatusCode()
	switch {
	case status >= 200 && status < 300:
		return nil
	case status == http.StatusNotFound:
		return fmt.Errorf("%w: %s", ErrNotFound, res.Request.URL)
	case status == http.StatusUnauthorized || status == http.StatusForbidden:
		return fmt.Errorf("%w: %s returned %d", ErrForbidden, res.Request.URL, status)
	case status >= 300 && status < 400:
		location := res.Header().Get("Location")
		if isLoginRedirect(location) {
			return fmt.Errorf("%w: login required for %s", ErrForbidden, res.Request.URL)
		}
		return fmt.Errorf("%w: %s redirected to %q", ErrForbidden, res.Request.URL, location)
	case status == http.StatusTooManyRequests || status >= 500:
		return fmt.Errorf("%w: %s returned %d", ErrNetwork, res.Request.URL, status)
	}
	return fmt.Errorf("%w: %s returned %d", ErrUnexpectedResponse, res.Request.URL, status)
}
