//go:build functional

// Package functional provides functional tests for the catalog HTTP API and
// its WebSocket change feed.
package functional

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net"
	"net/http"
	"os"
	"strconv"
	"sync"
	"testing"
	"time"

	"go.uber.org/zap"

	"github.com/vyrodovalexey/catalog-service/internal/config"
	"github.com/vyrodovalexey/catalog-service/internal/server"
	"github.com/vyrodovalexey/catalog-service/internal/store"
)

// Environment variable names for test configuration.
const (
	EnvTestServerHost    = "TEST_SERVER_HOST"
	EnvTestTimeout       = "TEST_TIMEOUT"
	EnvTestMetricsEnable = "TEST_METRICS_ENABLED"
)

// Default test configuration values.
const (
	DefaultTestHost         = "localhost"
	DefaultTestTimeout      = 30 * time.Second
	DefaultRequestTimeout   = 5 * time.Second
	DefaultWebSocketTimeout = 5 * time.Second
	DefaultShutdownTimeout  = 5 * time.Second
	DefaultMetricsEnabled   = false
)

// TestConfig holds test configuration loaded from environment.
type TestConfig struct {
	Host           string
	Timeout        time.Duration
	MetricsEnabled bool
}

// LoadTestConfig loads test configuration from environment variables.
func LoadTestConfig() *TestConfig {
	cfg := &TestConfig{
		Host:           DefaultTestHost,
		Timeout:        DefaultTestTimeout,
		MetricsEnabled: DefaultMetricsEnabled,
	}

	if host := os.Getenv(EnvTestServerHost); host != "" {
		cfg.Host = host
	}

	if timeoutStr := os.Getenv(EnvTestTimeout); timeoutStr != "" {
		if timeout, err := time.ParseDuration(timeoutStr); err == nil {
			cfg.Timeout = timeout
		}
	}

	if metricsStr := os.Getenv(EnvTestMetricsEnable); metricsStr != "" {
		if enabled, err := strconv.ParseBool(metricsStr); err == nil {
			cfg.MetricsEnabled = enabled
		}
	}

	return cfg
}

// TestServer runs a real catalog server on a free port.
type TestServer struct {
	Server  *server.Server
	Store   *store.MemoryStore
	BaseURL string
	WSURL   string
	Port    int
	timeout time.Duration
	t       *testing.T
	mu      sync.Mutex
	started bool
}

// NewTestServer creates a test server. With seed set the store holds the
// five sample items.
func NewTestServer(t *testing.T, seed bool) *TestServer {
	t.Helper()

	testCfg := LoadTestConfig()

	listener, err := net.Listen("tcp", fmt.Sprintf("%s:0", testCfg.Host))
	if err != nil {
		t.Fatalf("Failed to find available port: %v", err)
	}
	port := listener.Addr().(*net.TCPAddr).Port
	listener.Close()

	cfg := &config.Config{
		ServerPort:         port,
		LogLevel:           "error",
		ShutdownTimeout:    DefaultShutdownTimeout,
		MetricsEnabled:     testCfg.MetricsEnabled,
		WSBufferSize:       config.DefaultWSBufferSize,
		CORSAllowedOrigins: []string{"*"},
	}

	itemStore := store.NewMemoryStore()
	if seed {
		store.Seed(itemStore)
	}

	return &TestServer{
		Server:  server.New(cfg, zap.NewNop(), itemStore),
		Store:   itemStore,
		BaseURL: fmt.Sprintf("http://%s:%d", testCfg.Host, port),
		WSURL:   fmt.Sprintf("ws://%s:%d/ws", testCfg.Host, port),
		Port:    port,
		timeout: testCfg.Timeout,
		t:       t,
	}
}

// Start starts the server and waits until /health answers. Stop is
// registered as test cleanup.
func (ts *TestServer) Start() {
	ts.mu.Lock()
	defer ts.mu.Unlock()

	if ts.started {
		return
	}

	go func() {
		if err := ts.Server.Start(); err != nil {
			ts.t.Logf("Server error: %v", err)
		}
	}()

	ts.waitForReady()
	ts.started = true
	ts.t.Cleanup(ts.Stop)
}

func (ts *TestServer) waitForReady() {
	ctx, cancel := context.WithTimeout(context.Background(), ts.timeout)
	defer cancel()

	ticker := time.NewTicker(50 * time.Millisecond)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			ts.t.Fatalf("Server did not become ready within timeout")
		case <-ticker.C:
			resp, err := http.Get(ts.BaseURL + "/health")
			if err == nil {
				resp.Body.Close()
				if resp.StatusCode == http.StatusOK {
					return
				}
			}
		}
	}
}

// Stop gracefully stops the server.
func (ts *TestServer) Stop() {
	ts.mu.Lock()
	defer ts.mu.Unlock()

	if !ts.started {
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), DefaultShutdownTimeout)
	defer cancel()

	if err := ts.Server.Shutdown(ctx); err != nil {
		ts.t.Logf("Server shutdown error: %v", err)
	}

	ts.started = false
}

// HTTPClient provides a configured HTTP client for tests.
type HTTPClient struct {
	client  *http.Client
	baseURL string
	t       *testing.T
}

// NewHTTPClient creates a new HTTP client for testing.
func NewHTTPClient(t *testing.T, baseURL string) *HTTPClient {
	return &HTTPClient{
		client: &http.Client{
			Timeout: DefaultRequestTimeout,
		},
		baseURL: baseURL,
		t:       t,
	}
}

// Response represents an HTTP response.
type Response struct {
	StatusCode int
	Headers    http.Header
	Body       []byte
}

// Do executes a request. A string or []byte body is sent verbatim, anything
// else is JSON encoded.
func (c *HTTPClient) Do(method, path string, body any, headers map[string]string) *Response {
	c.t.Helper()

	var bodyReader io.Reader
	switch v := body.(type) {
	case nil:
	case string:
		bodyReader = bytes.NewBufferString(v)
	case []byte:
		bodyReader = bytes.NewBuffer(v)
	default:
		jsonBody, err := json.Marshal(v)
		if err != nil {
			c.t.Fatalf("Failed to marshal request body: %v", err)
		}
		bodyReader = bytes.NewBuffer(jsonBody)
	}

	ctx, cancel := context.WithTimeout(context.Background(), DefaultRequestTimeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, bodyReader)
	if err != nil {
		c.t.Fatalf("Failed to create request: %v", err)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	for key, value := range headers {
		req.Header.Set(key, value)
	}

	resp, err := c.client.Do(req)
	if err != nil {
		c.t.Fatalf("Request %s %s failed: %v", method, path, err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		c.t.Fatalf("Failed to read response body: %v", err)
	}

	return &Response{
		StatusCode: resp.StatusCode,
		Headers:    resp.Header,
		Body:       data,
	}
}

// Get performs a GET request.
func (c *HTTPClient) Get(path string) *Response {
	c.t.Helper()
	return c.Do(http.MethodGet, path, nil, nil)
}

// Post performs a POST request.
func (c *HTTPClient) Post(path string, body any) *Response {
	c.t.Helper()
	return c.Do(http.MethodPost, path, body, nil)
}

// Put performs a PUT request.
func (c *HTTPClient) Put(path string, body any) *Response {
	c.t.Helper()
	return c.Do(http.MethodPut, path, body, nil)
}

// Patch performs a PATCH request.
func (c *HTTPClient) Patch(path string, body any) *Response {
	c.t.Helper()
	return c.Do(http.MethodPatch, path, body, nil)
}

// Delete performs a DELETE request.
func (c *HTTPClient) Delete(path string) *Response {
	c.t.Helper()
	return c.Do(http.MethodDelete, path, nil, nil)
}

// APIResponse is the response envelope with undecoded data.
type APIResponse struct {
	Success   bool            `json:"success"`
	Message   string          `json:"message"`
	Data      json.RawMessage `json:"data"`
	Timestamp time.Time       `json:"timestamp"`
}

// ItemResponse represents an item in API responses.
type ItemResponse struct {
	ID          int64       `json:"id"`
	Name        string      `json:"name"`
	Description string      `json:"description"`
	Price       json.Number `json:"price"`
	Stock       int         `json:"stock"`
	Category    string      `json:"category"`
}

// ItemRequest is the body of create and update requests.
type ItemRequest struct {
	Name        string `json:"name"`
	Description string `json:"description,omitempty"`
	Price       any    `json:"price,omitempty"`
	Stock       *int   `json:"stock,omitempty"`
	Category    string `json:"category,omitempty"`
}

func intPtr(v int) *int {
	return &v
}

// ParseAPIResponse parses the envelope of resp.
func ParseAPIResponse(t *testing.T, resp *Response) *APIResponse {
	t.Helper()

	var apiResp APIResponse
	if err := json.Unmarshal(resp.Body, &apiResp); err != nil {
		t.Fatalf("Failed to parse API response %q: %v", resp.Body, err)
	}
	return &apiResp
}

// ParseData decodes the data field of resp into T.
func ParseData[T any](t *testing.T, resp *Response) T {
	t.Helper()

	var data T
	apiResp := ParseAPIResponse(t, resp)
	if err := json.Unmarshal(apiResp.Data, &data); err != nil {
		t.Fatalf("Failed to parse data %q: %v", apiResp.Data, err)
	}
	return data
}

// AssertStatusCode asserts that the response has the expected status code.
func AssertStatusCode(t *testing.T, resp *Response, expected int) {
	t.Helper()
	if resp.StatusCode != expected {
		t.Errorf("Expected status code %d, got %d. Body: %s", expected, resp.StatusCode, string(resp.Body))
	}
}

// AssertHeader asserts that the response has the expected header value.
func AssertHeader(t *testing.T, resp *Response, key, expected string) {
	t.Helper()
	actual := resp.Headers.Get(key)
	if actual != expected {
		t.Errorf("Expected header %s to be %q, got %q", key, expected, actual)
	}
}

// AssertEnvelope asserts the success flag and message of the response.
func AssertEnvelope(t *testing.T, resp *Response, success bool, message string) {
	t.Helper()
	apiResp := ParseAPIResponse(t, resp)
	if apiResp.Success != success {
		t.Errorf("Expected success=%v, got %v", success, apiResp.Success)
	}
	if apiResp.Message != message {
		t.Errorf("Expected message %q, got %q", message, apiResp.Message)
	}
	if apiResp.Timestamp.IsZero() {
		t.Error("Expected timestamp to be set")
	}
}

// LogTestStart logs the start of a test.
func LogTestStart(t *testing.T, testID, testName string) {
	t.Helper()
	t.Logf("Starting test %s: %s", testID, testName)
}

// LogTestEnd logs the end of a test.
func LogTestEnd(t *testing.T, testID string) {
	t.Helper()
	t.Logf("Completed test %s", testID)
}
