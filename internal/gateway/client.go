package gateway

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net"
	"net/http"
	"time"
)

// Client is the shared HTTP transport for provider adapters. Every call is
// request/response, individually bounded by the configured timeout, and
// transport failures come back classified as gateway error kinds.
type Client struct {
	http   *http.Client
	logger *slog.Logger
}

// NewClient builds a gateway HTTP client with a per-call timeout.
func NewClient(timeout time.Duration, logger *slog.Logger) *Client {
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	return &Client{
		http:   &http.Client{Timeout: timeout},
		logger: logger,
	}
}

// Post sends a provider request body and returns the raw response bytes, or
// a classified gateway error.
func (c *Client) Post(ctx context.Context, url, contentType string, body []byte, headers map[string]string) ([]byte, *Error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return nil, NewError(ErrorGeneric, fmt.Sprintf("build request for %s", url), err)
	}
	req.Header.Set("Content-Type", contentType)
	for k, v := range headers {
		req.Header.Set(k, v)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		gerr := classifyTransportError(err)
		c.logger.Error("gateway call failed", "url", url, "kind", gerr.Kind.String(), "error", err)
		return nil, gerr
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		c.logger.Error("gateway returned unexpected status", "url", url, "status", resp.StatusCode)
		return nil, NewError(ErrorUnexpectedHTTPStatus, fmt.Sprintf("status code %d from gateway", resp.StatusCode), nil)
	}

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, NewError(ErrorSocket, "reading gateway response", err)
	}
	return raw, nil
}

func classifyTransportError(err error) *Error {
	var dnsErr *net.DNSError
	if errors.As(err, &dnsErr) {
		return NewError(ErrorDNSFailure, dnsErr.Name, err)
	}

	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return NewError(ErrorConnectionTimeout, "gateway call timed out", err)
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return NewError(ErrorConnectionTimeout, "gateway call timed out", err)
	}

	var opErr *net.OpError
	if errors.As(err, &opErr) {
		return NewError(ErrorSocket, opErr.Op, err)
	}

	return NewError(ErrorGeneric, "gateway call failed", err)
}
