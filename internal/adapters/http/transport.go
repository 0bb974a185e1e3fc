// Package http provides the HTTP transport that delivers bulk bodies to the
// document store.
package http

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"

	restylog "github.com/bft-labs/bulkship/internal/adapters/log"
	"github.com/bft-labs/bulkship/internal/ports"
)

// ContentType is the media type of a bulk request body.
const ContentType = "application/x-ndjson"

// Default transport settings.
const (
	DefaultTimeout      = 60 * time.Second
	DefaultRetryWait    = 200 * time.Millisecond
	DefaultRetryMaxWait = 5 * time.Second
)

// TransportConfig configures the HTTP transport.
type TransportConfig struct {
	// BaseURL is the store address, e.g. http://localhost:9200.
	BaseURL string

	Timeout      time.Duration
	RetryCount   int
	RetryWait    time.Duration
	RetryMaxWait time.Duration

	// Username and Password enable basic auth. APIKey, when set, is sent as
	// an "ApiKey" Authorization header instead.
	Username string
	Password string
	APIKey   string

	UserAgent string
	Headers   map[string]string
}

// Transport implements ports.Transport over resty.
type Transport struct {
	client  *resty.Client
	baseURL string
	logger  ports.Logger
}

// NewTransport creates a transport for the store at cfg.BaseURL.
func NewTransport(cfg TransportConfig, logger ports.Logger) *Transport {
	if cfg.Timeout <= 0 {
		cfg.Timeout = DefaultTimeout
	}
	if cfg.RetryWait <= 0 {
		cfg.RetryWait = DefaultRetryWait
	}
	if cfg.RetryMaxWait <= 0 {
		cfg.RetryMaxWait = DefaultRetryMaxWait
	}
	baseURL := strings.TrimRight(cfg.BaseURL, "/")

	client := resty.New()
	client.SetLogger(restylog.NewRestyLogger(logger))

	client.
		SetTimeout(cfg.Timeout).
		SetBaseURL(baseURL).
		SetHeader("Accept", "application/json").
		SetHeader("Content-Type", ContentType)
	if cfg.UserAgent != "" {
		client.SetHeader("User-Agent", cfg.UserAgent)
	}
	for k, v := range cfg.Headers {
		client.SetHeader(k, v)
	}

	switch {
	case cfg.APIKey != "":
		client.SetHeader("Authorization", "ApiKey "+cfg.APIKey)
	case cfg.Username != "":
		client.SetBasicAuth(cfg.Username, cfg.Password)
	}

	client.
		SetRetryCount(cfg.RetryCount).
		SetRetryWaitTime(cfg.RetryWait).
		SetRetryMaxWaitTime(cfg.RetryMaxWait).
		AddRetryCondition(retryable)

	client.OnAfterResponse(func(c *resty.Client, resp *resty.Response) error {
		logger.Debug("bulk response",
			ports.Int("status", resp.StatusCode()),
			ports.Int("bytes", len(resp.Body())),
			ports.Duration("took", resp.Time()),
		)
		return nil
	})

	client.OnError(func(req *resty.Request, err error) {
		logger.Debug("bulk request failed",
			ports.String("url", req.URL),
			ports.Err(err),
		)
	})

	return &Transport{
		client:  client,
		baseURL: baseURL,
		logger:  logger,
	}
}

// Send posts the bulk body. Any HTTP status is returned as a RawResponse;
// an error means no response was obtained.
func (t *Transport) Send(ctx context.Context, req ports.Request) (ports.RawResponse, error) {
	r := t.client.R().
		SetContext(ctx).
		SetBody(req.Body)
	if len(req.Params) > 0 {
		r.SetQueryParams(req.Params)
	}

	resp, err := r.Post(BulkPath(req.Index, req.Type))
	if err != nil {
		return ports.RawResponse{}, fmt.Errorf("bulk request to %s: %w", t.baseURL, err)
	}

	return ports.RawResponse{
		Status: resp.StatusCode(),
		Body:   resp.Body(),
	}, nil
}

// BulkPath returns the endpoint path for the given defaults. The type
// segment is only used together with an index.
func BulkPath(index, typ string) string {
	if index == "" {
		return "/_bulk"
	}
	if typ == "" {
		return "/" + url.PathEscape(index) + "/_bulk"
	}
	return "/" + url.PathEscape(index) + "/" + url.PathEscape(typ) + "/_bulk"
}

// retryable retries connection failures and statuses that signal a busy or
// briefly unavailable store.
func retryable(resp *resty.Response, err error) bool {
	if err != nil {
		return true
	}
	switch resp.StatusCode() {
	case http.StatusTooManyRequests, http.StatusBadGateway,
		http.StatusServiceUnavailable, http.StatusGatewayTimeout:
		return true
	}
	return false
}
