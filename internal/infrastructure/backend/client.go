// Package backend talks to the alle HTTP API.
package backend

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"strings"
	"time"

	"golang.org/x/time/rate"

	"github.com/alle-ai/alle-go/internal/domain"
	"github.com/alle-ai/alle-go/internal/ports"
)

// maxResponseBytes caps how much of a response body is read.
const maxResponseBytes = 32 << 20

// ErrMissingToken is returned when the configured token variable is unset.
var ErrMissingToken = errors.New("missing API token")

// Client is the HTTP adapter for the video and workbench endpoints.
type Client struct {
	baseURL    string
	tokenEnv   string
	httpClient *http.Client
	limiter    *rate.Limiter
}

// NewClient builds a client from the api config section.
func NewClient(cfg domain.Config) *Client {
	return &Client{
		baseURL:    strings.TrimRight(cfg.API.BaseURL, "/"),
		tokenEnv:   cfg.API.TokenEnvVar,
		httpClient: &http.Client{Timeout: cfg.GetTimeout()},
		limiter:    rate.NewLimiter(rate.Limit(cfg.GetRequestsPerSecond()), 1),
	}
}

// WithHTTPClient replaces the underlying http.Client.
func (c *Client) WithHTTPClient(hc *http.Client) *Client {
	c.httpClient = hc
	return c
}

// CheckStatus implements ports.VideoBackend.
func (c *Client) CheckStatus(ctx context.Context, jobID string) (domain.VideoJobStatus, error) {
	var status domain.VideoJobStatus
	path := "/video/status/" + url.PathEscape(jobID)
	if err := c.doJSON(ctx, http.MethodGet, path, nil, &status); err != nil {
		return domain.VideoJobStatus{}, fmt.Errorf("video status %s: %w", jobID, err)
	}
	return status, nil
}

// Generate implements ports.VideoBackend.
func (c *Client) Generate(ctx context.Context, req domain.VideoGenerationRequest) (domain.VideoGenerationResult, error) {
	body, err := json.Marshal(req)
	if err != nil {
		return domain.VideoGenerationResult{}, err
	}
	var result domain.VideoGenerationResult
	if err := c.doJSON(ctx, http.MethodPost, "/video/generate", body, &result); err != nil {
		return domain.VideoGenerationResult{}, fmt.Errorf("video generate: %w", err)
	}
	return result, nil
}

// Invoke performs an arbitrary workbench call. Non-2xx statuses are returned
// as results, not errors, so they can be recorded.
func (c *Client) Invoke(ctx context.Context, method, path string, body []byte) (domain.CallResult, error) {
	start := time.Now()
	resp, err := c.do(ctx, method, path, body)
	if err != nil {
		return domain.CallResult{}, err
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
	if err != nil {
		return domain.CallResult{}, fmt.Errorf("read response: %w", err)
	}
	return domain.CallResult{
		StatusCode: resp.StatusCode,
		StatusText: http.StatusText(resp.StatusCode),
		Body:       data,
		Duration:   time.Since(start),
	}, nil
}

func (c *Client) doJSON(ctx context.Context, method, path string, body []byte, out interface{}) error {
	resp, err := c.do(ctx, method, path, body)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
	if err != nil {
		return fmt.Errorf("read response: %w", err)
	}
	if resp.StatusCode >= 400 {
		return &StatusError{Code: resp.StatusCode, Status: resp.Status, Body: strings.TrimSpace(string(data))}
	}
	if err := json.Unmarshal(data, out); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	return nil
}

func (c *Client) do(ctx context.Context, method, path string, body []byte) (*http.Response, error) {
	if c.baseURL == "" {
		return nil, errors.New("api.base_url is not configured")
	}
	if err := c.limiter.Wait(ctx); err != nil {
		return nil, err
	}

	var reader io.Reader
	if body != nil {
		reader = bytes.NewReader(body)
	}
	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+"/"+strings.TrimLeft(path, "/"), reader)
	if err != nil {
		return nil, err
	}
	req.Header.Set("accept", "application/json")
	if body != nil {
		req.Header.Set("content-type", "application/json")
	}
	if err := c.setAuth(req); err != nil {
		return nil, err
	}
	return c.httpClient.Do(req)
}

func (c *Client) setAuth(req *http.Request) error {
	if c.tokenEnv == "" {
		return nil
	}
	token := os.Getenv(c.tokenEnv)
	if token == "" {
		return fmt.Errorf("%w: set %s", ErrMissingToken, c.tokenEnv)
	}
	req.Header.Set("authorization", "Bearer "+token)
	return nil
}

// StatusError is a non-2xx response from a JSON endpoint.
type StatusError struct {
	Code   int
	Status string
	Body   string
}

func (e *StatusError) Error() string {
	if e.Body == "" {
		return e.Status
	}
	return fmt.Sprintf("%s: %s", e.Status, e.Body)
}

var (
	_ ports.VideoBackend = (*Client)(nil)
	_ ports.APIInvoker   = (*Client)(nil)
)
