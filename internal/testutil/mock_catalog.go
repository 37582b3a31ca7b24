// Package testutil provides testing utilities for ticker-sync.
package testutil

import (
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strconv"
	"strings"
	"sync"
)

// MockCatalog is a configurable paginated catalog server for testing. Pages
// are linked by continuation URLs pointing back at the server; throttled and
// error responses can be injected per page.
type MockCatalog struct {
	server *httptest.Server

	mu        sync.Mutex
	pages     [][]map[string]any
	throttles map[int]int    // page index -> remaining throttled responses
	failures  map[int]string // page index -> error message

	// Tracking
	RequestCount   int
	ThrottledCount int
	LastAPIKey     string
}

// NewMockCatalog creates a server that pages through the given result sets.
func NewMockCatalog(pages [][]map[string]any) *MockCatalog {
	mock := &MockCatalog{
		pages:     pages,
		throttles: make(map[int]int),
		failures:  make(map[int]string),
	}

	mock.server = httptest.NewServer(http.HandlerFunc(mock.handler))
	return mock
}

// URL returns the server's base listing URL.
func (m *MockCatalog) URL() string {
	return m.server.URL
}

// Close shuts down the server.
func (m *MockCatalog) Close() {
	m.server.Close()
}

// ThrottleAt makes page index respond with a rate-limit error the next n
// requests before succeeding.
func (m *MockCatalog) ThrottleAt(index, n int) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.throttles[index] = n
}

// FailAt makes page index permanently respond with the given API error.
func (m *MockCatalog) FailAt(index int, message string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.failures[index] = message
}

// ClearFailure removes an injected failure for page index.
func (m *MockCatalog) ClearFailure(index int) {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.failures, index)
}

// GetRequestCount returns the number of requests served.
func (m *MockCatalog) GetRequestCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.RequestCount
}

func (m *MockCatalog) handler(w http.ResponseWriter, r *http.Request) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.RequestCount++
	m.LastAPIKey = r.URL.Query().Get("apiKey")

	index := 0
	if c := r.URL.Query().Get("cursor"); c != "" {
		parsed, err := strconv.Atoi(strings.TrimPrefix(c, "p"))
		if err != nil {
			writeJSON(w, map[string]any{"status": "ERROR", "error": "invalid cursor"})
			return
		}
		index = parsed
	}

	if msg, ok := m.failures[index]; ok {
		writeJSON(w, map[string]any{"status": "ERROR", "error": msg})
		return
	}

	if m.throttles[index] > 0 {
		m.throttles[index]--
		m.ThrottledCount++
		writeJSON(w, map[string]any{
			"status": "ERROR",
			"error":  "You've exceeded the maximum requests per minute, please wait or upgrade your subscription",
		})
		return
	}

	if index >= len(m.pages) {
		writeJSON(w, map[string]any{"status": "ERROR", "error": fmt.Sprintf("unknown page %d", index)})
		return
	}

	payload := map[string]any{
		"status":  "OK",
		"results": m.pages[index],
	}
	if index+1 < len(m.pages) {
		payload["next_url"] = fmt.Sprintf("%s?cursor=p%d", m.server.URL, index+1)
	}
	writeJSON(w, payload)
}

func writeJSON(w http.ResponseWriter, payload map[string]any) {
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(payload)
}

// TickerPage builds a result set with one entry per ticker symbol.
func TickerPage(tickers ...string) []map[string]any {
	results := make([]map[string]any, len(tickers))
	for i, tk := range tickers {
		results[i] = map[string]any{
			"ticker": tk,
			"market": "stocks",
			"active": true,
		}
	}
	return results
}
