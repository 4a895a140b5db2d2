package api

import (
	"io"
	"strings"
	"sync"

	fhttp "github.com/bogdanfinn/fhttp"
)

// mockHTTPClient records requests and answers from doFunc
type mockHTTPClient struct {
	doFunc func(req *fhttp.Request) (*fhttp.Response, error)

	mu        sync.Mutex
	requests  []*fhttp.Request
	bodies    []string
	idleClose int
}

func (m *mockHTTPClient) Do(req *fhttp.Request) (*fhttp.Response, error) {
	var body string
	if req.Body != nil {
		data, _ := io.ReadAll(req.Body)
		body = string(data)
	}

	m.mu.Lock()
	m.requests = append(m.requests, req)
	m.bodies = append(m.bodies, body)
	m.mu.Unlock()

	return m.doFunc(req)
}

func (m *mockHTTPClient) CloseIdleConnections() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.idleClose++
}

func (m *mockHTTPClient) lastRequest() (*fhttp.Request, string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if len(m.requests) == 0 {
		return nil, ""
	}
	return m.requests[len(m.requests)-1], m.bodies[len(m.bodies)-1]
}

// respondWith returns a doFunc that always answers status/body
func respondWith(status int, body string) func(*fhttp.Request) (*fhttp.Response, error) {
	return func(*fhttp.Request) (*fhttp.Response, error) {
		return &fhttp.Response{
			StatusCode: status,
			Body:       io.NopCloser(strings.NewReader(body)),
			Header:     make(fhttp.Header),
		}, nil
	}
}
