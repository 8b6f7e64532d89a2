// Package request performs the outbound HTTP GETs used to fetch DID documents and classifies their
// failures.
package request

import (
	"context"
	"fmt"
	"io"
	"net"
	"net/http"
	neturl "net/url"
	"time"

	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
)

// DefaultTimeout bounds both connecting and waiting for a response.
const DefaultTimeout = 10 * time.Second

type ErrorType string

const (
	HTTPError    ErrorType = "HttpError"
	NetworkError ErrorType = "NetworkError"
	TimeoutError ErrorType = "TimeoutError"
	UnknownError ErrorType = "UnknownError"
)

func (t ErrorType) String() string {
	return string(t)
}

// Error is a failed GET. Cause holds the underlying transport error, if any.
type Error struct {
	Type       ErrorType
	Message    string
	StatusCode int
	Cause      error
}

func (e *Error) Error() string {
	return e.Message
}

func (e *Error) Unwrap() error {
	return e.Cause
}

// IsType reports whether err is a request error of the given type.
func IsType(err error, errType ErrorType) bool {
	var reqErr *Error
	return errors.As(err, &reqErr) && reqErr.Type == errType
}

// NewClient builds a traced client. The same timeout bounds dialing and the whole exchange.
func NewClient(timeout time.Duration) *http.Client {
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	// the default transport is replaced when HTTP mocking is active; keep whatever is installed then
	transport := http.DefaultTransport
	if base, ok := transport.(*http.Transport); ok {
		dialing := base.Clone()
		dialing.DialContext = (&net.Dialer{Timeout: timeout, KeepAlive: 30 * time.Second}).DialContext
		transport = dialing
	}
	return &http.Client{
		Transport: otelhttp.NewTransport(transport),
		Timeout:   timeout,
	}
}

// Get fetches url and returns the response body. A nil client uses NewClient(timeout).
func Get(ctx context.Context, client *http.Client, url string, timeout time.Duration) ([]byte, error) {
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	if client == nil {
		client = NewClient(timeout)
	}

	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, &Error{Type: UnknownError, Message: "Failed to GET: " + url, Cause: err}
	}
	req.Header.Set("Accept", "application/json")

	resp, err := client.Do(req)
	if err != nil {
		return nil, classify(err, url, timeout)
	}
	defer func() {
		if closeErr := resp.Body.Close(); closeErr != nil {
			logrus.WithError(closeErr).Warnf("closing response body for %s", url)
		}
	}()

	if resp.StatusCode < http.StatusOK || resp.StatusCode >= http.StatusMultipleChoices {
		return nil, &Error{
			Type:       HTTPError,
			Message:    fmt.Sprintf("Request failed with status code %d", resp.StatusCode),
			StatusCode: resp.StatusCode,
		}
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, classify(err, url, timeout)
	}
	return body, nil
}

// classify maps a transport failure onto an error type. Anything that does not look like a timeout or a
// network fault is unknown.
func classify(err error, url string, timeout time.Duration) *Error {
	if isTimeout(err) {
		return &Error{
			Type:    TimeoutError,
			Message: fmt.Sprintf("Request timed out after %dms", timeout.Milliseconds()),
			Cause:   err,
		}
	}
	// *url.Error satisfies net.Error itself, so look at what it wraps
	inner := err
	var urlErr *neturl.Error
	if errors.As(err, &urlErr) {
		inner = urlErr.Err
	}
	var netErr net.Error
	if errors.As(inner, &netErr) || errors.Is(inner, io.ErrUnexpectedEOF) || errors.Is(inner, io.EOF) {
		return &Error{Type: NetworkError, Message: "Network error", Cause: err}
	}
	return &Error{Type: UnknownError, Message: "Failed to GET: " + url, Cause: err}
}

func isTimeout(err error) bool {
	if errors.Is(err, context.DeadlineExceeded) {
		return true
	}
	var netErr net.Error
	return errors.As(err, &netErr) && netErr.Timeout()
}
