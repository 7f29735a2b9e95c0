package helpers

import (
	"bufio"
	"bytes"
	"io/ioutil"
	"net/http"
	"strings"
	"sync"
)

// MockHTTP is http.RoundTripper test double.
// Fun takes precedence, then Err, then static Header+Body response.
// Every request is recorded with its body drained into RequestBodies.
type MockHTTP struct {
	Fun    func(*http.Request) (*http.Response, error)
	Header []byte
	Body   []byte
	Err    error

	mu            sync.Mutex
	Requests      []*http.Request
	RequestBodies []string
}

func (m *MockHTTP) RoundTrip(req *http.Request) (*http.Response, error) {
	var body []byte
	if req.Body != nil {
		body, _ = ioutil.ReadAll(req.Body)
		_ = req.Body.Close()
		req.Body = ioutil.NopCloser(bytes.NewReader(body))
	}
	m.mu.Lock()
	m.Requests = append(m.Requests, req)
	m.RequestBodies = append(m.RequestBodies, string(body))
	m.mu.Unlock()

	if m.Fun != nil {
		return m.Fun(req)
	}
	if m.Err != nil {
		return nil, m.Err
	}
	header := m.Header
	if header == nil {
		header = []byte("HTTP/1.0 200 OK\r\n\r\n")
	}
	rb := make([]byte, 0, len(header)+len(m.Body))
	rb = append(rb, header...)
	rb = append(rb, m.Body...)
	return http.ReadResponse(bufio.NewReader(bytes.NewReader(rb)), req)
}

func (m *MockHTTP) Count() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.Requests)
}

// MockResponse builds a response with JSON content type.
func MockResponse(req *http.Request, status int, body string) *http.Response {
	return &http.Response{
		StatusCode: status,
		Status:     http.StatusText(status),
		Proto:      "HTTP/1.1",
		ProtoMajor: 1,
		ProtoMinor: 1,
		Header:     http.Header{"Content-Type": []string{"application/json"}},
		Body:       ioutil.NopCloser(strings.NewReader(body)),
		Request:    req,
	}
}
