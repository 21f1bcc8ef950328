package gateway

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/goliatone/go-intake/flow"
	"github.com/goliatone/go-intake/runner"
)

// ClientOption configures the HTTP gateways.
type ClientOption func(*client)

func WithHTTPClient(hc *http.Client) ClientOption {
	return func(c *client) {
		if hc != nil {
			c.http = hc
		}
	}
}

// WithToken sets the bearer token sent with every request.
func WithToken(token string) ClientOption {
	return func(c *client) {
		c.token = strings.TrimSpace(token)
	}
}

func WithCatalog(catalog *flow.Catalog) ClientOption {
	return func(c *client) {
		if catalog != nil {
			c.catalog = catalog
		}
	}
}

func WithLogger(logger flow.Logger) ClientOption {
	return func(c *client) {
		if logger != nil {
			c.logger = logger
		}
	}
}

type client struct {
	baseURL string
	token   string
	http    *http.Client
	catalog *flow.Catalog
	logger  flow.Logger
}

func newClient(baseURL string, opts ...ClientOption) client {
	c := client{
		baseURL: strings.TrimRight(strings.TrimSpace(baseURL), "/"),
		http:    &http.Client{Timeout: 15 * time.Second},
		catalog: flow.DefaultCatalog(),
		logger:  flow.NewFmtLogger(io.Discard),
	}
	for _, opt := range opts {
		if opt != nil {
			opt(&c)
		}
	}
	return c
}

// do sends one JSON request. 4xx responses are marked permanent so the
// runner does not retry them.
func (c client) do(ctx context.Context, operation, method, path string, body any, out any) error {
	var reader io.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		if err != nil {
			return runner.Permanent(fmt.Errorf("%s: encode request: %w", operation, err))
		}
		reader = bytes.NewReader(payload)
	}
	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return runner.Permanent(err)
	}
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		snippet, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		statusErr := &StatusError{
			Operation:  operation,
			StatusCode: resp.StatusCode,
			Body:       strings.TrimSpace(string(snippet)),
		}
		if resp.StatusCode >= 400 && resp.StatusCode < 500 {
			return runner.Permanent(statusErr)
		}
		return statusErr
	}
	if out == nil {
		_, _ = io.Copy(io.Discard, resp.Body)
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("%s: decode response: %w", operation, err)
	}
	return nil
}
