package client

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/alfredjeanlab/emithub/internal/model"
)

// HTTPClient implements HubClient using the emithub HTTP/JSON REST API.
type HTTPClient struct {
	baseURL    string
	httpClient *http.Client
}

var _ HubClient = (*HTTPClient)(nil)

// NewHTTPClient creates a new HTTP client targeting the given base URL
// (e.g. "http://localhost:8080").
func NewHTTPClient(baseURL string) *HTTPClient {
	return &HTTPClient{
		baseURL:    strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{Timeout: 30 * time.Second},
	}
}

// Close is a no-op for the HTTP client.
func (c *HTTPClient) Close() error { return nil }

func channelPath(id uuid.UUID, suffix string) string {
	return "/api/v1/channels/" + id.String() + suffix
}

// --- Channels ---

func (c *HTTPClient) CreateChannel(ctx context.Context, req *model.CreateChannelInput) (*model.Channel, error) {
	var ch model.Channel
	if err := c.doJSON(ctx, http.MethodPost, "/api/v1/channels", req, &ch); err != nil {
		return nil, err
	}
	return &ch, nil
}

func (c *HTTPClient) ListChannels(ctx context.Context) (*ListChannelsResponse, error) {
	var resp ListChannelsResponse
	if err := c.doJSON(ctx, http.MethodGet, "/api/v1/channels", nil, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

func (c *HTTPClient) GetChannel(ctx context.Context, id uuid.UUID) (*model.Channel, error) {
	var ch model.Channel
	if err := c.doJSON(ctx, http.MethodGet, channelPath(id, ""), nil, &ch); err != nil {
		return nil, err
	}
	return &ch, nil
}

// --- Lifecycle ---

func (c *HTTPClient) StartChannel(ctx context.Context, id uuid.UUID) (*model.Channel, error) {
	return c.putChannel(ctx, channelPath(id, "/start"), nil)
}

func (c *HTTPClient) PauseChannel(ctx context.Context, id uuid.UUID) (*model.Channel, error) {
	return c.putChannel(ctx, channelPath(id, "/pause"), nil)
}

func (c *HTTPClient) StopChannel(ctx context.Context, id uuid.UUID) (*model.Channel, error) {
	return c.putChannel(ctx, channelPath(id, "/stop"), nil)
}

func (c *HTTPClient) SetChannelStatus(ctx context.Context, id uuid.UUID, status model.ChannelStatus) (*model.Channel, error) {
	return c.putChannel(ctx, channelPath(id, "/status"), map[string]string{"status": status.String()})
}

func (c *HTTPClient) putChannel(ctx context.Context, path string, body any) (*model.Channel, error) {
	var ch model.Channel
	if err := c.doJSON(ctx, http.MethodPut, path, body, &ch); err != nil {
		return nil, err
	}
	return &ch, nil
}

// --- Messages ---

func (c *HTTPClient) Broadcast(ctx context.Context, id uuid.UUID, req *BroadcastRequest) (*BroadcastResponse, error) {
	var resp BroadcastResponse
	if err := c.doJSON(ctx, http.MethodPost, channelPath(id, "/broadcast"), req, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// --- Health ---

func (c *HTTPClient) Health(ctx context.Context) (*HealthResponse, error) {
	var resp HealthResponse
	if err := c.doJSON(ctx, http.MethodGet, "/api/v1/health", nil, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// --- internal helpers ---

// APIError represents an error response from the server.
type APIError struct {
	StatusCode int
	Message    string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("HTTP %d: %s", e.StatusCode, e.Message)
}

// doJSON performs an HTTP request with optional JSON body and decodes the JSON response.
// If result is nil, the response body is discarded.
func (c *HTTPClient) doJSON(ctx context.Context, method, path string, body any, result any) error {
	var bodyReader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("marshaling request body: %w", err)
		}
		bodyReader = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, bodyReader)
	if err != nil {
		return fmt.Errorf("creating request: %w", err)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("performing request: %w", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("reading response: %w", err)
	}

	if resp.StatusCode >= 400 {
		var errResp struct {
			Error   string `json:"error"`
			Message string `json:"message"`
		}
		if json.Unmarshal(respBody, &errResp) == nil {
			if errResp.Error != "" {
				return &APIError{StatusCode: resp.StatusCode, Message: errResp.Error}
			}
			if errResp.Message != "" {
				return &APIError{StatusCode: resp.StatusCode, Message: errResp.Message}
			}
		}
		return &APIError{StatusCode: resp.StatusCode, Message: strings.TrimSpace(string(respBody))}
	}

	if result != nil && len(respBody) > 0 {
		if err := json.Unmarshal(respBody, result); err != nil {
			return fmt.Errorf("decoding response: %w", err)
		}
	}
	return nil
}
