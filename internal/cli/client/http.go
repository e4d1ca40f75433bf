package client

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
)

const (
	envAdminToken = "RAGCHAT_ADMIN_TOKEN"
	envAPIURL     = "RAGCHAT_API_URL"

	defaultAPIURL = "http://localhost:8080"

	// maxEventSize bounds one SSE line; the done event carries every match.
	maxEventSize = 1024 * 1024
)

type APIClient struct {
	baseURL    string
	adminToken string
	httpClient *http.Client
	// streamClient has no overall timeout; streams end when the server closes them.
	streamClient *http.Client
}

// NewAPIClientWithCmd creates an APIClient with config cascade: flag → env → global config → default
// If cmd is nil, skips flag checking and goes directly to env → global config
func NewAPIClientWithCmd(cmd *cobra.Command) (*APIClient, error) {
	var adminToken, baseURL string

	if cmd != nil {
		if flagToken, err := cmd.Flags().GetString("admin-token"); err == nil && flagToken != "" {
			adminToken = flagToken
		}
		if flagURL, err := cmd.Flags().GetString("api-url"); err == nil && flagURL != "" {
			baseURL = flagURL
		}
	}

	if adminToken == "" {
		adminToken = os.Getenv(envAdminToken)
	}
	if baseURL == "" {
		baseURL = os.Getenv(envAPIURL)
	}

	if adminToken == "" || baseURL == "" {
		globalConfig, err := LoadGlobalConfig()
		if err != nil {
			return nil, err
		}
		if globalConfig != nil {
			if adminToken == "" {
				adminToken = globalConfig.AdminToken
			}
			if baseURL == "" {
				baseURL = globalConfig.APIURL
			}
		}
	}

	if baseURL == "" {
		baseURL = defaultAPIURL
	}

	return NewAPIClientWithConfig(adminToken, baseURL), nil
}

func NewAPIClient(cmd *cobra.Command) (*APIClient, error) {
	_ = godotenv.Load()
	return NewAPIClientWithCmd(cmd)
}

// NewAPIClientWithConfig creates an APIClient with explicit config.
func NewAPIClientWithConfig(adminToken, baseURL string) *APIClient {
	return &APIClient{
		baseURL:    strings.TrimRight(baseURL, "/"),
		adminToken: adminToken,
		httpClient: &http.Client{
			Timeout: 2 * time.Minute,
		},
		streamClient: &http.Client{},
	}
}

// APIResponse represents the standard API response format.
type APIResponse struct {
	Data    json.RawMessage `json:"data,omitempty"`
	Error   string          `json:"error,omitempty"`
	Message string          `json:"message,omitempty"`
}

// APIError represents an error from the API.
type APIError struct {
	StatusCode int
	Message    string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("API error (%d): %s", e.StatusCode, e.Message)
}

// Get performs a GET request and returns the enveloped data.
func (c *APIClient) Get(ctx context.Context, path string) (*APIResponse, error) {
	return c.enveloped(ctx, http.MethodGet, path, nil)
}

// Delete performs a DELETE request and returns the enveloped data.
func (c *APIClient) Delete(ctx context.Context, path string) (*APIResponse, error) {
	return c.enveloped(ctx, http.MethodDelete, path, nil)
}

// Post performs a POST request with a JSON body and decodes the raw
// (unenveloped) response into out. Error statuses are returned as *APIError;
// out is still filled when the error body decodes into it.
func (c *APIClient) Post(ctx context.Context, path string, body, out any) (int, error) {
	status, respBody, err := c.do(ctx, c.httpClient, http.MethodPost, path, body, "application/json")
	if out != nil && len(respBody) > 0 {
		if decodeErr := json.Unmarshal(respBody, out); decodeErr != nil && err == nil {
			return status, fmt.Errorf("failed to parse response: %w", decodeErr)
		}
	}
	return status, err
}

func (c *APIClient) enveloped(ctx context.Context, method, path string, body any) (*APIResponse, error) {
	_, respBody, err := c.do(ctx, c.httpClient, method, path, body, "application/json")
	if err != nil {
		return nil, err
	}

	var apiResp APIResponse
	if err := json.Unmarshal(respBody, &apiResp); err != nil {
		return nil, fmt.Errorf("failed to parse response: %w", err)
	}
	return &apiResp, nil
}

func (c *APIClient) newRequest(ctx context.Context, method, path string, body any, accept string) (*http.Request, error) {
	var reqBody io.Reader
	if body != nil {
		jsonData, err := json.Marshal(body)
		if err != nil {
			return nil, fmt.Errorf("failed to marshal request body: %w", err)
		}
		reqBody = bytes.NewReader(jsonData)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reqBody)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}

	if c.adminToken != "" {
		req.Header.Set("Authorization", "Bearer "+c.adminToken)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	req.Header.Set("Accept", accept)
	return req, nil
}

func (c *APIClient) do(ctx context.Context, hc *http.Client, method, path string, body any, accept string) (int, []byte, error) {
	req, err := c.newRequest(ctx, method, path, body, accept)
	if err != nil {
		return 0, nil, err
	}

	resp, err := hc.Do(req)
	if err != nil {
		return 0, nil, fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return resp.StatusCode, nil, fmt.Errorf("failed to read response body: %w", err)
	}

	if resp.StatusCode >= 400 {
		return resp.StatusCode, respBody, errorFromBody(resp.StatusCode, respBody)
	}
	return resp.StatusCode, respBody, nil
}

func errorFromBody(status int, body []byte) *APIError {
	var apiResp APIResponse
	if err := json.Unmarshal(body, &apiResp); err != nil || (apiResp.Error == "" && apiResp.Message == "") {
		return &APIError{StatusCode: status, Message: strings.TrimSpace(string(body))}
	}
	msg := apiResp.Error
	if apiResp.Message != "" {
		if msg != "" {
			msg += ": "
		}
		msg += apiResp.Message
	}
	return &APIError{StatusCode: status, Message: msg}
}

// StreamResponse is the non-streamed part of a chat response.
type StreamResponse struct {
	StatusCode int
	Header     http.Header
	// Body is set instead of events when the server answered with plain JSON.
	Body []byte
}

// Stream posts body to path and calls onEvent for every server-sent event.
// onEvent errors stop the stream and are returned unchanged.
func (c *APIClient) Stream(ctx context.Context, path string, body any, onEvent func(event string, data []byte) error) (*StreamResponse, error) {
	req, err := c.newRequest(ctx, http.MethodPost, path, body, "text/event-stream")
	if err != nil {
		return nil, err
	}

	resp, err := c.streamClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	out := &StreamResponse{StatusCode: resp.StatusCode, Header: resp.Header}

	if !strings.HasPrefix(resp.Header.Get("Content-Type"), "text/event-stream") {
		respBody, err := io.ReadAll(resp.Body)
		if err != nil {
			return out, fmt.Errorf("failed to read response body: %w", err)
		}
		if resp.StatusCode >= 400 {
			return out, errorFromBody(resp.StatusCode, respBody)
		}
		out.Body = respBody
		return out, nil
	}

	return out, readEvents(resp.Body, onEvent)
}

// readEvents parses an event stream of "event:" / "data:" lines separated
// by blank lines. Comment lines and unknown fields are ignored.
func readEvents(r io.Reader, onEvent func(event string, data []byte) error) error {
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), maxEventSize)

	var event string
	var data bytes.Buffer
	dispatch := func() error {
		defer func() {
			event = ""
			data.Reset()
		}()
		if data.Len() == 0 {
			return nil
		}
		if event == "" {
			event = "message"
		}
		return onEvent(event, bytes.Clone(data.Bytes()))
	}

	for scanner.Scan() {
		line := scanner.Text()
		switch {
		case line == "":
			if err := dispatch(); err != nil {
				return err
			}
		case strings.HasPrefix(line, ":"):
		case strings.HasPrefix(line, "event:"):
			event = strings.TrimSpace(strings.TrimPrefix(line, "event:"))
		case strings.HasPrefix(line, "data:"):
			if data.Len() > 0 {
				data.WriteByte('\n')
			}
			data.WriteString(strings.TrimPrefix(strings.TrimPrefix(line, "data:"), " "))
		}
	}
	if err := scanner.Err(); err != nil {
		return fmt.Errorf("failed to read event stream: %w", err)
	}
	return dispatch()
}
