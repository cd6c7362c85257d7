package mock

import (
	"context"
	"net/http"
	"sync"

	"github.com/yourorg/mpqr-bridge/internal/adapter"
)

// Call is one recorded request against the mock transport.
type Call struct {
	Method         string
	Endpoint       string
	Body           []byte
	IdempotencyKey string
}

// Transport is a mock implementation of adapter.Transport for testing.
// GetFunc and PostJSONFunc decide the responses; every call is recorded.
type Transport struct {
	GetFunc      func(ctx context.Context, endpoint string) (adapter.Response, error)
	PostJSONFunc func(ctx context.Context, endpoint string, body []byte, idempotencyKey string) (adapter.Response, error)

	mu    sync.Mutex
	calls []Call
}

// NewTransport creates a mock that answers 200 with an empty object unless told otherwise.
func NewTransport() *Transport {
	return &Transport{}
}

// Reply builds a response with the given status and body.
func Reply(status int, body string) adapter.Response {
	return adapter.Response{StatusCode: status, Body: []byte(body)}
}

// Get implements adapter.Transport.
func (m *Transport) Get(ctx context.Context, endpoint string) (adapter.Response, error) {
	m.record(Call{Method: http.MethodGet, Endpoint: endpoint})
	if m.GetFunc != nil {
		return m.GetFunc(ctx, endpoint)
	}
	return Reply(http.StatusOK, "{}"), nil
}

// PostJSON implements adapter.Transport.
func (m *Transport) PostJSON(ctx context.Context, endpoint string, body []byte, idempotencyKey string) (adapter.Response, error) {
	m.record(Call{Method: http.MethodPost, Endpoint: endpoint, Body: append([]byte(nil), body...), IdempotencyKey: idempotencyKey})
	if m.PostJSONFunc != nil {
		return m.PostJSONFunc(ctx, endpoint, body, idempotencyKey)
	}
	return Reply(http.StatusOK, "{}"), nil
}

func (m *Transport) record(c Call) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.calls = append(m.calls, c)
}

// Calls returns a copy of every recorded call in order.
func (m *Transport) Calls() []Call {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]Call(nil), m.calls...)
}

// CallsFor returns the recorded calls with the given HTTP method.
func (m *Transport) CallsFor(method string) []Call {
	var out []Call
	for _, c := range m.Calls() {
		if c.Method == method {
			out = append(out, c)
		}
	}
	return out
}

// Reset forgets the recorded calls.
func (m *Transport) Reset() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.calls = nil
}
