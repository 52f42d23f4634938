// Package testutil provides a configurable mock GitHub API server for
// tests.
package testutil

import (
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"sync"
)

// MockResponse defines the behavior for a mock endpoint response.
type MockResponse struct {
	StatusCode int
	Body       string
	Headers    map[string]string
}

// MockAPI is a configurable mock GitHub API server.
type MockAPI struct {
	server   *httptest.Server
	mu       sync.RWMutex
	handlers map[string]func(w http.ResponseWriter, r *http.Request)

	// RequestCount is the total number of requests served.
	RequestCount int
}

// NewMockAPI creates a new mock API server.
func NewMockAPI() *MockAPI {
	mock := &MockAPI{
		handlers: make(map[string]func(w http.ResponseWriter, r *http.Request)),
	}

	mock.server = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		mock.mu.Lock()
		mock.RequestCount++
		mock.mu.Unlock()

		mock.mu.RLock()
		handler, exists := mock.handlers[r.URL.Path]
		mock.mu.RUnlock()

		if exists {
			handler(w, r)
			return
		}

		setRateLimitHeaders(w, "4999")
		w.WriteHeader(http.StatusNotFound)
		w.Write([]byte(`{"message": "Not Found"}`))
	}))

	return mock
}

// URL returns the mock server URL.
func (m *MockAPI) URL() string {
	return m.server.URL
}

// Close shuts down the mock server.
func (m *MockAPI) Close() {
	m.server.Close()
}

// GetRequestCount returns the number of requests made to the server.
func (m *MockAPI) GetRequestCount() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.RequestCount
}

// SetHandler sets a custom handler for a specific path.
func (m *MockAPI) SetHandler(path string, handler func(w http.ResponseWriter, r *http.Request)) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.handlers[path] = handler
}

// SetResponse configures a fixed response for a path.
func (m *MockAPI) SetResponse(path string, resp MockResponse) {
	m.SetHandler(path, func(w http.ResponseWriter, r *http.Request) {
		for key, value := range resp.Headers {
			w.Header().Set(key, value)
		}
		if resp.Headers["x-ratelimit-remaining"] == "" {
			setRateLimitHeaders(w, "4999")
		}
		w.WriteHeader(resp.StatusCode)
		if resp.Body != "" {
			w.Write([]byte(resp.Body))
		}
	})
}

// SetPaginated serves a list endpoint page by page. Each element of pages
// is one page body; requests past the last page get an empty list.
func (m *MockAPI) SetPaginated(path string, pages [][]json.RawMessage) {
	m.SetHandler(path, func(w http.ResponseWriter, r *http.Request) {
		page := 1
		fmt.Sscanf(r.URL.Query().Get("page"), "%d", &page)

		var body []byte
		if page >= 1 && page <= len(pages) {
			body, _ = json.Marshal(pages[page-1])
		} else {
			body = []byte("[]")
		}

		setRateLimitHeaders(w, "4999")
		w.WriteHeader(http.StatusOK)
		w.Write(body)
	})
}

// NewJSONResponse creates a 200 OK response with healthy rate limit
// headers.
func NewJSONResponse(data string) MockResponse {
	return MockResponse{
		StatusCode: http.StatusOK,
		Body:       data,
		Headers: map[string]string{
			"x-ratelimit-remaining": "4999",
			"x-ratelimit-reset":     "2000000000",
			"Content-Type":          "application/json; charset=utf-8",
		},
	}
}

// NewRateLimitResponse creates a 403 quota-exhausted response with the
// given reset epoch.
func NewRateLimitResponse(resetEpoch string) MockResponse {
	return MockResponse{
		StatusCode: http.StatusForbidden,
		Body:       `{"message": "API rate limit exceeded"}`,
		Headers: map[string]string{
			"x-ratelimit-remaining": "0",
			"x-ratelimit-reset":     resetEpoch,
			"Content-Type":          "application/json; charset=utf-8",
		},
	}
}

// NewServerErrorResponse creates a 500 Internal Server Error response.
func NewServerErrorResponse() MockResponse {
	return MockResponse{
		StatusCode: http.StatusInternalServerError,
		Body:       `{"message": "Internal server error"}`,
		Headers: map[string]string{
			"x-ratelimit-remaining": "4998",
			"x-ratelimit-reset":     "2000000000",
		},
	}
}

func setRateLimitHeaders(w http.ResponseWriter, remaining string) {
	w.Header().Set("x-ratelimit-remaining", remaining)
	w.Header().Set("x-ratelimit-reset", "2000000000")
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
}
