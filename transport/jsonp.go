package transport

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"sync"
	"time"
)

// JSONP fetches callback-wrapped payloads. Callbacks live in a registry owned by the helper and are
// removed again on every exit path.
type JSONP struct {
	fetcher Fetcher
	param   string
	now     func() time.Time

	mu        sync.Mutex
	seq       uint64
	callbacks map[string]func(json.RawMessage)
}

func NewJSONP(fetcher Fetcher) *JSONP {
	return &JSONP{
		fetcher:   fetcher,
		param:     "callback",
		now:       time.Now,
		callbacks: make(map[string]func(json.RawMessage)),
	}
}

// nextName returns a callback name unique for this helper: timestamp plus a monotonic counter.
func (j *JSONP) nextName() string {
	j.mu.Lock()
	defer j.mu.Unlock()
	j.seq++
	return fmt.Sprintf("rizumu_jsonp_%d_%d", j.now().UnixMilli(), j.seq)
}

func (j *JSONP) register(name string, fn func(json.RawMessage)) {
	j.mu.Lock()
	defer j.mu.Unlock()
	j.callbacks[name] = fn
}

func (j *JSONP) unregister(name string) {
	j.mu.Lock()
	defer j.mu.Unlock()
	delete(j.callbacks, name)
}

// invoke runs the registered callback, reporting whether one existed.
func (j *JSONP) invoke(name string, payload json.RawMessage) bool {
	j.mu.Lock()
	fn, ok := j.callbacks[name]
	j.mu.Unlock()
	if ok {
		fn(payload)
	}
	return ok
}

// Registered returns the number of live callbacks.
func (j *JSONP) Registered() int {
	j.mu.Lock()
	defer j.mu.Unlock()
	return len(j.callbacks)
}

// Call requests target with a generated callback parameter and returns the payload the body passes
// to that callback.
func (j *JSONP) Call(ctx context.Context, target string) (json.RawMessage, error) {
	name := j.nextName()

	result := make(chan json.RawMessage, 1)
	j.register(name, func(payload json.RawMessage) {
		select {
		case result <- payload:
		default:
		}
	})
	defer j.unregister(name)

	u, err := url.Parse(target)
	if err != nil {
		return nil, fmt.Errorf("parsing jsonp target: %w", err)
	}
	q := u.Query()
	q.Set(j.param, name)
	u.RawQuery = q.Encode()

	resp, err := j.fetcher.Do(ctx, &Request{Method: http.MethodGet, URL: u.String()})
	if err != nil {
		return nil, err
	}
	if !resp.OK() {
		return nil, &StatusError{StatusCode: resp.StatusCode, Body: string(resp.Body)}
	}

	payload, err := unwrapCallback(resp.Body, name)
	if err != nil {
		return nil, err
	}
	if !j.invoke(name, payload) {
		return nil, ErrJSONPNoCallback
	}

	select {
	case p := <-result:
		return p, nil
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

// unwrapCallback extracts the argument of `name(...)` from a script body.
func unwrapCallback(body []byte, name string) (json.RawMessage, error) {
	body = bytes.TrimSpace(body)
	prefix := []byte(name + "(")

	start := bytes.Index(body, prefix)
	if start < 0 {
		return nil, ErrJSONPNoCallback
	}
	rest := bytes.TrimRight(body[start+len(prefix):], "; \n\r\t")
	if len(rest) == 0 || rest[len(rest)-1] != ')' {
		return nil, fmt.Errorf("%w: unterminated callback invocation", ErrParse)
	}
	payload := bytes.TrimSpace(rest[:len(rest)-1])
	if !json.Valid(payload) {
		return nil, fmt.Errorf("%w: jsonp payload is not JSON", ErrParse)
	}
	return json.RawMessage(payload), nil
}
