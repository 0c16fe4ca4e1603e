package llm

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/dogmaai/magi-decision/pkg/config"
	xhttp "github.com/dogmaai/magi-decision/pkg/http"
)

// HTTPServiceBase centralizes client construction and JSON POST handling for vendor clients.
type HTTPServiceBase struct {
	baseURL string
	headers map[string]string
	retries int
	client  *xhttp.Client
}

// NewHTTPServiceBase builds a client with the vendor's timeout, base URL and auth headers.
func NewHTTPServiceBase(cfg config.LLMConfig, headers map[string]string) *HTTPServiceBase {
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 90 * time.Second
	}
	h := map[string]string{"Content-Type": "application/json"}
	for k, v := range headers {
		h[k] = v
	}
	return &HTTPServiceBase{
		baseURL: strings.TrimRight(cfg.BaseURL, "/"),
		headers: h,
		retries: cfg.Retries,
		client:  xhttp.NewClient(xhttp.WithTimeout(timeout)),
	}
}

// PostJSON posts the given payload to path under baseURL and decodes JSON into dest.
func (b *HTTPServiceBase) PostJSON(ctx context.Context, path string, payload interface{}, dest interface{}) error {
	if b.client == nil || b.baseURL == "" {
		return fmt.Errorf("llm http client not initialized")
	}
	err := b.client.SendAndParse(ctx, &xhttp.RequestOptions{
		Method:  xhttp.MethodPost,
		URL:     b.baseURL + path,
		Headers: b.headers,
		Body:    payload,
	}, dest)
	if err != nil {
		return fmt.Errorf("post %s: %w", path, err)
	}
	return nil
}

// PostJSONWithRetry retries transient failures (transport, 429, 5xx) with linear backoff.
func (b *HTTPServiceBase) PostJSONWithRetry(ctx context.Context, path string, payload interface{}, dest interface{}) error {
	attempts := b.retries + 1
	var err error
	for i := 1; i <= attempts; i++ {
		err = b.PostJSON(ctx, path, payload, dest)
		if err == nil || !xhttp.IsRetryable(err) || i == attempts {
			return err
		}
		select {
		case <-time.After(time.Duration(i) * 250 * time.Millisecond):
		case <-ctx.Done():
			return fmt.Errorf("%w (last error: %v)", ctx.Err(), err)
		}
	}
	return err
}
