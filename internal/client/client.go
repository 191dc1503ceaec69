// Package client talks to the Barkat Learn backend over HTTP/JSON.
//
// A Client built with an empty base URL runs in offline/demo mode: writes succeed without a request, card reads come
// from the bundled catalog and progress, stats and profile reads return no data.
package client

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/barkatlearn/learn/internal/catalog"
	"github.com/barkatlearn/learn/internal/models"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// maxResponseSize caps how much of a response body is read
const maxResponseSize = 10 * 1024 * 1024

// DefaultTimeout bounds every request made by a Client
const DefaultTimeout = 15 * time.Second

// ErrAuthRequired is returned by endpoints that cannot fall back to local data without a token
var ErrAuthRequired = errors.New("authentication required")

// APIError is returned for non-2xx responses
type APIError struct {
	StatusCode int
	Message    string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("api error %d: %s", e.StatusCode, e.Message)
}

// DecodeError is returned when a 2xx response body does not match the expected schema
type DecodeError struct {
	Path string
	Err  error
}

func (e *DecodeError) Error() string {
	return fmt.Sprintf("failed to decode response from %s: %v", e.Path, e.Err)
}

func (e *DecodeError) Unwrap() error {
	return e.Err
}

// IsUnauthorized reports whether err is a 401 response
func IsUnauthorized(err error) bool {
	var apiErr *APIError
	return errors.As(err, &apiErr) && apiErr.StatusCode == http.StatusUnauthorized
}

// Client is the backend API client
type Client struct {
	baseURL    string
	httpClient *http.Client
	catalog    *catalog.Catalog
	logger     *zap.Logger
}

// New creates a client for baseURL. An empty baseURL puts the client in offline mode.
func New(baseURL string, timeout time.Duration, cards *catalog.Catalog, logger *zap.Logger) *Client {
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	if cards == nil {
		cards = catalog.Default()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Client{
		baseURL:    strings.TrimRight(strings.TrimSpace(baseURL), "/"),
		httpClient: &http.Client{Timeout: timeout},
		catalog:    cards,
		logger:     logger,
	}
}

// Offline reports whether no backend is configured
func (c *Client) Offline() bool {
	return c.baseURL == ""
}

// BaseURL returns the configured backend URL
func (c *Client) BaseURL() string {
	return c.baseURL
}

// do sends a JSON request and decodes a JSON response into out (when non-nil)
func (c *Client) do(ctx context.Context, method, path, token string, body, out any) error {
	var reader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("failed to marshal request: %w", err)
		}
		reader = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("X-Request-ID", uuid.New().String())
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("failed to send request: %w", err)
	}
	defer resp.Body.Close()

	payload, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseSize))
	if err != nil {
		return fmt.Errorf("failed to read response: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		apiErr := newAPIError(resp.StatusCode, payload)
		c.logger.Debug("api request failed",
			zap.String("method", method),
			zap.String("path", path),
			zap.Int("status", resp.StatusCode),
			zap.String("message", apiErr.Message),
		)
		return apiErr
	}

	if out == nil {
		return nil
	}
	if len(bytes.TrimSpace(payload)) == 0 {
		return &DecodeError{Path: path, Err: io.ErrUnexpectedEOF}
	}
	if err := json.Unmarshal(payload, out); err != nil {
		return &DecodeError{Path: path, Err: err}
	}
	return nil
}

// newAPIError extracts a message from an {"error": "..."} body, falling back to the raw body or the status text
func newAPIError(status int, payload []byte) *APIError {
	var body struct {
		Error   string `json:"error"`
		Message string `json:"message"`
	}
	message := ""
	if err := json.Unmarshal(payload, &body); err == nil {
		message = body.Error
		if message == "" {
			message = body.Message
		}
	}
	if message == "" {
		message = strings.TrimSpace(string(payload))
	}
	if message == "" {
		message = http.StatusText(status)
	}
	return &APIError{StatusCode: status, Message: message}
}

// Health calls GET /api/health
func (c *Client) Health(ctx context.Context) (*models.HealthResponse, error) {
	if c.Offline() {
		return &models.HealthResponse{Status: "ok", Service: "local"}, nil
	}
	var status models.HealthResponse
	if err := c.do(ctx, http.MethodGet, "/api/health", "", nil, &status); err != nil {
		return nil, err
	}
	return &status, nil
}
