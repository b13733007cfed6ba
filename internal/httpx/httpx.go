// Package httpx holds the retrying HTTP client shared by the daemon invoker
// and the live API client.
package httpx

import (
	"context"
	"fmt"
	"io"
	stdlog "log"
	"net/http"
	"strings"
	"time"

	"github.com/hashicorp/go-retryablehttp"
	"github.com/rs/zerolog/log"
)

// RequestIDHeader carries the per-call correlation id.
const RequestIDHeader = "X-Request-Id"

// HTTPError is a non-2xx response.
type HTTPError struct {
	StatusCode int
	Message    string
}

func (e *HTTPError) Error() string {
	return fmt.Sprintf("http %d: %s", e.StatusCode, e.Message)
}

// NewRetryClient returns a retryablehttp client logging attempts through
// zerolog. Client errors other than 429 are not retried.
func NewRetryClient(retryMax int, waitMin time.Duration) *retryablehttp.Client {
	client := retryablehttp.NewClient()
	client.RetryMax = retryMax
	if waitMin > 0 {
		client.RetryWaitMin = waitMin
		client.RetryWaitMax = 8 * waitMin
	}
	client.Logger = stdlog.New(io.Discard, "", stdlog.LstdFlags)
	client.RequestLogHook = func(_ retryablehttp.Logger, req *http.Request, attempt int) {
		log.Trace().
			Str(req.Method, req.URL.String()).
			Str("request_id", req.Header.Get(RequestIDHeader)).
			Int("attempt", attempt).
			Msg("")
	}
	client.CheckRetry = func(ctx context.Context, resp *http.Response, err error) (bool, error) {
		if resp != nil && resp.StatusCode >= 400 && resp.StatusCode < 500 && resp.StatusCode != http.StatusTooManyRequests {
			return false, nil
		}
		return retryablehttp.DefaultRetryPolicy(ctx, resp, err)
	}
	// Hand the last response back instead of a generic "giving up" error.
	client.ErrorHandler = retryablehttp.PassthroughErrorHandler
	return client
}

// AddAuthHeader sets a bearer token when token is not empty.
func AddAuthHeader(req *retryablehttp.Request, token string) {
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
}

// CheckResponse converts a non-2xx response into an HTTPError.
func CheckResponse(resp *http.Response) error {
	if resp.StatusCode >= 200 && resp.StatusCode < 300 {
		return nil
	}
	body, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
	msg := strings.TrimSpace(string(body))
	if msg == "" {
		msg = http.StatusText(resp.StatusCode)
	}
	return &HTTPError{StatusCode: resp.StatusCode, Message: msg}
}
