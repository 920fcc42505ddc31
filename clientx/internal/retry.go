// Package internal holds the resilient transport behind clientx.
package internal

import (
	stderrors "errors"
	"io"
	"net/http"

	"github.com/sony/gobreaker"

	"go.eggybyte.com/settings/core/utils"
)

var errRetryableStatus = stderrors.New("retryable status")

// errServerStatus marks a 5xx response as a breaker failure while the
// response itself is still returned to the caller.
var errServerStatus = stderrors.New("server error status")

// RetryTransport retries transport failures and 502/503/504 responses,
// optionally behind a circuit breaker.
type RetryTransport struct {
	base    http.RoundTripper
	retry   utils.RetryConfig
	breaker *gobreaker.CircuitBreaker
}

// NewRetryTransport wraps base. A nil breaker disables circuit breaking.
func NewRetryTransport(base http.RoundTripper, retry utils.RetryConfig, breaker *gobreaker.CircuitBreaker) *RetryTransport {
	if base == nil {
		base = http.DefaultTransport
	}
	return &RetryTransport{base: base, retry: retry, breaker: breaker}
}

// RoundTrip implements http.RoundTripper.
func (t *RetryTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	if t.breaker == nil {
		return t.roundTripWithRetry(req)
	}

	out, err := t.breaker.Execute(func() (interface{}, error) {
		resp, err := t.roundTripWithRetry(req)
		if err != nil {
			return nil, err
		}
		if resp.StatusCode >= http.StatusInternalServerError {
			return resp, errServerStatus
		}
		return resp, nil
	})
	if err != nil && !stderrors.Is(err, errServerStatus) {
		return nil, err
	}
	return out.(*http.Response), nil
}

func (t *RetryTransport) roundTripWithRetry(req *http.Request) (*http.Response, error) {
	cfg := t.retry
	if !replayable(req) {
		cfg.MaxAttempts = 1
	}

	var resp *http.Response
	attempt := 0
	err := utils.Retry(req.Context(), cfg, func() error {
		attempt++
		r, err := prepare(req, attempt)
		if err != nil {
			return utils.Permanent(err)
		}

		res, err := t.base.RoundTrip(r)
		if err != nil {
			if ctxErr := req.Context().Err(); ctxErr != nil {
				return utils.Permanent(err)
			}
			return err
		}
		if RetryableStatus(res.StatusCode) && attempt < cfg.MaxAttempts {
			_, _ = io.Copy(io.Discard, res.Body)
			_ = res.Body.Close()
			return errRetryableStatus
		}
		resp = res
		return nil
	})
	if err != nil {
		return nil, err
	}
	return resp, nil
}

// RetryableStatus reports whether a response status is worth retrying.
// 500 is never retried.
func RetryableStatus(code int) bool {
	switch code {
	case http.StatusBadGateway, http.StatusServiceUnavailable, http.StatusGatewayTimeout:
		return true
	default:
		return false
	}
}

func replayable(req *http.Request) bool {
	return req.Body == nil || req.Body == http.NoBody || req.GetBody != nil
}

func prepare(req *http.Request, attempt int) (*http.Request, error) {
	if attempt == 1 {
		return req, nil
	}
	r := req.Clone(req.Context())
	if req.GetBody != nil {
		body, err := req.GetBody()
		if err != nil {
			return nil, err
		}
		r.Body = body
	}
	return r, nil
}

// IsBreakerOpen reports whether err was returned by an open breaker.
func IsBreakerOpen(err error) bool {
	return stderrors.Is(err, gobreaker.ErrOpenState) || stderrors.Is(err, gobreaker.ErrTooManyRequests)
}
