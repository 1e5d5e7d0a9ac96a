// Package external proxies third-party agricultural data providers.
package external

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"farmlink/internal/models"
	"farmlink/internal/observability"

	"go.opentelemetry.io/otel/attribute"
)

// maxBodyBytes bounds upstream responses.
const maxBodyBytes = 4 << 20

// Doer is satisfied by *http.Client.
type Doer interface {
	Do(req *http.Request) (*http.Response, error)
}

// errMissingKey marks a provider whose API key is not configured.
var errMissingKey = errors.New("api key not configured")

func missingKeyError(service string) *models.AppError {
	appErr := models.NewUpstreamError(service, 0, errMissingKey)
	appErr.Status = http.StatusServiceUnavailable
	return appErr
}

// get performs one GET against the provider and returns the body. Any
// transport error or non-2xx status is an UpstreamFailure. Calls are never
// retried.
func get(ctx context.Context, doer Doer, timeout time.Duration, service, operation, rawURL string, query url.Values) (body []byte, err error) {
	ctx, span := observability.StartClientSpan(ctx, service, operation)
	start := time.Now()
	defer func() {
		observability.ObserveUpstream(service, start, err)
		observability.EndSpan(span, err)
	}()

	if timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, timeout)
		defer cancel()
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL+"?"+query.Encode(), nil)
	if err != nil {
		return nil, models.NewUpstreamError(service, 0, err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := doer.Do(req)
	if err != nil {
		return nil, models.NewUpstreamError(service, 0, err)
	}
	defer func() { _ = resp.Body.Close() }()
	span.SetAttributes(attribute.Int("http.status_code", resp.StatusCode))

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, maxBodyBytes))
		return nil, models.NewUpstreamError(service, resp.StatusCode, fmt.Errorf("%s %s: status %d", service, operation, resp.StatusCode))
	}

	body, err = io.ReadAll(io.LimitReader(resp.Body, maxBodyBytes+1))
	if err != nil {
		return nil, models.NewUpstreamError(service, 0, err)
	}
	if len(body) > maxBodyBytes {
		return nil, models.NewUpstreamError(service, 0, fmt.Errorf("%s %s: response exceeds %d bytes", service, operation, maxBodyBytes))
	}
	return body, nil
}
