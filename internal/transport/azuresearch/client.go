// Package azuresearch is an Azure AI Search REST client bound to one index.
package azuresearch

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/Azure/azure-sdk-for-go/sdk/azcore"
	"github.com/Azure/azure-sdk-for-go/sdk/azcore/policy"
	"go.uber.org/zap"

	"github.com/kailas-cloud/vecmigrate/internal/metrics"
)

const (
	// DefaultAPIVersion is the REST API version used when none is configured.
	DefaultAPIVersion = "2024-07-01"

	// TokenScope is the Entra ID scope for search service data plane tokens.
	TokenScope = "https://search.azure.com/.default"

	defaultTimeout = 60 * time.Second
	backendLabel   = "azure"
	maxErrorBody   = 64 << 10
)

// Config configures a Client. Requests carry APIKey when set, otherwise a
// bearer token from Credential.
type Config struct {
	Endpoint   string
	APIKey     string
	Credential azcore.TokenCredential
	APIVersion string
	Timeout    time.Duration
	HTTPClient *http.Client
	Logger     *zap.Logger
}

// Client talks to one search service.
type Client struct {
	endpoint   string
	apiKey     string
	credential azcore.TokenCredential
	apiVersion string
	http       *http.Client
	logger     *zap.Logger
}

// APIError is a non-success response from the search service.
type APIError struct {
	StatusCode int
	Code       string
	Message    string
}

func (e *APIError) Error() string {
	if e.Code != "" {
		return fmt.Sprintf("azure search: status %d: %s: %s", e.StatusCode, e.Code, e.Message)
	}
	return fmt.Sprintf("azure search: status %d: %s", e.StatusCode, e.Message)
}

// IsStatus reports whether err is an APIError with the given status code.
func IsStatus(err error, code int) bool {
	var apiErr *APIError
	return errors.As(err, &apiErr) && apiErr.StatusCode == code
}

// NewClient creates a search service client.
func NewClient(cfg Config) (*Client, error) {
	if cfg.Endpoint == "" {
		return nil, fmt.Errorf("azure search: endpoint is required")
	}
	if _, err := url.Parse(cfg.Endpoint); err != nil {
		return nil, fmt.Errorf("azure search: invalid endpoint: %w", err)
	}
	if cfg.APIKey == "" && cfg.Credential == nil {
		return nil, fmt.Errorf("azure search: api key or credential is required")
	}
	if cfg.APIVersion == "" {
		cfg.APIVersion = DefaultAPIVersion
	}
	if cfg.Logger == nil {
		cfg.Logger = zap.NewNop()
	}
	hc := cfg.HTTPClient
	if hc == nil {
		timeout := cfg.Timeout
		if timeout <= 0 {
			timeout = defaultTimeout
		}
		hc = &http.Client{Timeout: timeout}
	}
	return &Client{
		endpoint:   strings.TrimRight(cfg.Endpoint, "/"),
		apiKey:     cfg.APIKey,
		credential: cfg.Credential,
		apiVersion: cfg.APIVersion,
		http:       hc,
		logger:     cfg.Logger,
	}, nil
}

// Index returns a handle bound to the named index.
func (c *Client) Index(name string) *Index {
	return &Index{client: c, name: name}
}

// do sends a request and returns the raw response body for 2xx responses.
// Other statuses are decoded into an APIError.
func (c *Client) do(
	ctx context.Context, op, method, path string, query url.Values, body any,
) (int, []byte, error) {
	var reader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return 0, nil, fmt.Errorf("marshal %s request: %w", op, err)
		}
		reader = bytes.NewReader(data)
	}

	if query == nil {
		query = url.Values{}
	}
	query.Set("api-version", c.apiVersion)
	u := c.endpoint + path + "?" + query.Encode()

	req, err := http.NewRequestWithContext(ctx, method, u, reader)
	if err != nil {
		return 0, nil, fmt.Errorf("build %s request: %w", op, err)
	}
	if err := c.authorize(ctx, req); err != nil {
		return 0, nil, fmt.Errorf("%s: %w", op, err)
	}
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	start := time.Now()
	resp, err := c.http.Do(req)
	metrics.IndexRequestDuration.WithLabelValues(backendLabel, op).Observe(time.Since(start).Seconds())
	if err != nil {
		metrics.IndexRequestsTotal.WithLabelValues(backendLabel, op, "error").Inc()
		return 0, nil, fmt.Errorf("%s: %w", op, err)
	}
	defer func() { _ = resp.Body.Close() }()
	metrics.IndexRequestsTotal.WithLabelValues(backendLabel, op, strconv.Itoa(resp.StatusCode)).Inc()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		raw, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
		apiErr := decodeError(resp.StatusCode, raw)
		c.logger.Debug("azure search request failed",
			zap.String("op", op),
			zap.Int("status", resp.StatusCode),
			zap.String("code", apiErr.Code),
		)
		return resp.StatusCode, nil, apiErr
	}

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return resp.StatusCode, nil, fmt.Errorf("read %s response: %w", op, err)
	}
	return resp.StatusCode, data, nil
}

func (c *Client) authorize(ctx context.Context, req *http.Request) error {
	if c.apiKey != "" {
		req.Header.Set("api-key", c.apiKey)
		return nil
	}
	tok, err := c.credential.GetToken(ctx, policy.TokenRequestOptions{Scopes: []string{TokenScope}})
	if err != nil {
		return fmt.Errorf("acquire token: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+tok.Token)
	return nil
}

type errorEnvelope struct {
	Error struct {
		Code    string `json:"code"`
		Message string `json:"message"`
	} `json:"error"`
}

func decodeError(status int, raw []byte) *APIError {
	apiErr := &APIError{StatusCode: status}
	var env errorEnvelope
	if err := json.Unmarshal(raw, &env); err == nil && (env.Error.Code != "" || env.Error.Message != "") {
		apiErr.Code = env.Error.Code
		apiErr.Message = env.Error.Message
		return apiErr
	}
	apiErr.Message = strings.TrimSpace(string(raw))
	if apiErr.Message == "" {
		apiErr.Message = http.StatusText(status)
	}
	return apiErr
}
