// Package requestertest provides RoundTripper doubles for outbound HTTP tests.
package requestertest

import (
	"bytes"
	"io"
	"net/http"
	"sync"
)

// Recorder is an http.RoundTripper that answers with a handler and keeps
// every request it saw, so tests can assert on call counts.
type Recorder struct {
	mu       sync.Mutex
	requests []*http.Request
	bodies   [][]byte
	respond  func(*http.Request) (*http.Response, error)
}

// NewRecorder answers every request with respond.
func NewRecorder(respond func(*http.Request) (*http.Response, error)) *Recorder {
	return &Recorder{respond: respond}
}

// Status answers every request with an empty body and the given status.
func Status(code int) *Recorder {
	return NewRecorder(func(req *http.Request) (*http.Response, error) {
		return NewResponse(req, code, ""), nil
	})
}

// WebhookObject is a minimal webhook resource as the chat service returns it.
const WebhookObject = `{"id":"123","token":"abc","type":1,"channel_id":"100"}`

// Webhook imitates a chat webhook: GETs get getStatus, with WebhookObject
// when it is 200, and POSTs get postStatus with an empty body.
func Webhook(getStatus, postStatus int) *Recorder {
	return NewRecorder(func(req *http.Request) (*http.Response, error) {
		switch {
		case req.Method == http.MethodPost:
			return NewResponse(req, postStatus, ""), nil
		case getStatus == http.StatusOK:
			return NewResponse(req, getStatus, WebhookObject), nil
		default:
			return NewResponse(req, getStatus, ""), nil
		}
	})
}

func (r *Recorder) RoundTrip(req *http.Request) (*http.Response, error) {
	var body []byte
	if req.Body != nil {
		body, _ = io.ReadAll(req.Body)
		_ = req.Body.Close()
	}
	r.mu.Lock()
	r.requests = append(r.requests, req)
	r.bodies = append(r.bodies, body)
	r.mu.Unlock()
	return r.respond(req)
}

// Calls returns how many requests went through.
func (r *Recorder) Calls() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.requests)
}

// Request returns the i-th request and its body.
func (r *Recorder) Request(i int) (*http.Request, []byte) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.requests[i], r.bodies[i]
}

// NewResponse builds a minimal response for req.
func NewResponse(req *http.Request, code int, body string) *http.Response {
	header := make(http.Header)
	if body != "" {
		header.Set("Content-Type", "application/json")
	}
	return &http.Response{
		StatusCode: code,
		Status:     http.StatusText(code),
		Header:     header,
		Body:       io.NopCloser(bytes.NewBufferString(body)),
		Request:    req,
	}
}
