package transport

import (
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"
)

// scriptedFetcher answers by URL prefix and records every URL it was asked for.
type scriptedFetcher struct {
	mu      sync.Mutex
	calls   []string
	headers []http.Header
	answer  func(req *Request) (*Response, error)
}

func (f *scriptedFetcher) Do(ctx context.Context, req *Request) (*Response, error) {
	f.mu.Lock()
	f.calls = append(f.calls, req.URL)
	f.headers = append(f.headers, req.Header)
	f.mu.Unlock()
	return f.answer(req)
}

func (f *scriptedFetcher) Calls() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.calls...)
}

func failing(req *Request) (*Response, error) {
	return &Response{StatusCode: http.StatusForbidden, Body: []byte("cors")}, nil
}

func TestChain_ProxyRetryThenBare(t *testing.T) {
	t.Parallel()

	fetcher := &scriptedFetcher{answer: failing}
	bare := &scriptedFetcher{answer: failing}

	chain := NewChain(Options{
		Mode:       ModeProxy,
		MaxRetries: 1,
		Proxies: []Proxy{
			PrefixProxy("one", "https://one.test/?u=", false, http.MethodPost),
			PrefixProxy("two", "https://two.test/?u=", false, http.MethodPost),
		},
		Proxy: fetcher,
		Bare:  bare,
	})

	_, err := chain.Do(context.Background(), &Request{Method: http.MethodPost, URL: "https://api.test/search", Body: []byte(`{}`)})
	if !errors.Is(err, ErrExhausted) {
		t.Fatalf("Do() error = %v, want ErrExhausted", err)
	}

	var terr *TransportError
	if !errors.As(err, &terr) || terr.Attempts != 3 {
		t.Fatalf("Do() error = %#v, want TransportError with 3 attempts", err)
	}

	want := []string{"https://one.test/?u=https://api.test/search", "https://two.test/?u=https://api.test/search"}
	got := fetcher.Calls()
	if len(got) != len(want) {
		t.Fatalf("proxy calls = %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("proxy call %d = %q, want %q", i, got[i], want[i])
		}
	}
	if calls := bare.Calls(); len(calls) != 1 || calls[0] != "https://api.test/search" {
		t.Errorf("bare calls = %v, want one call to the origin", calls)
	}

	for _, p := range chain.Proxies().Snapshot() {
		if p.Status != StatusFailed {
			t.Errorf("proxy %s status = %s, want failed", p.Name, p.Status)
		}
	}
}

func TestChain_DirectSuccessSkipsProxies(t *testing.T) {
	t.Parallel()

	fetcher := &scriptedFetcher{answer: func(req *Request) (*Response, error) {
		return &Response{StatusCode: 200, Body: []byte(`ok`)}, nil
	}}
	chain := NewChain(Options{Mode: ModeAuto, MaxRetries: 2, Proxies: DefaultProxies(), Fetcher: fetcher, Bare: fetcher})

	text, err := chain.Text(context.Background(), &Request{Method: http.MethodGet, URL: "https://api.test/x"})
	if err != nil {
		t.Fatalf("Text() error = %v", err)
	}
	if text != "ok" {
		t.Errorf("Text() = %q, want ok", text)
	}
	if calls := fetcher.Calls(); len(calls) != 1 {
		t.Errorf("calls = %v, want exactly the direct one", calls)
	}
}

func TestChain_ProxySuccessMarksWorking(t *testing.T) {
	t.Parallel()

	fetcher := &scriptedFetcher{answer: func(req *Request) (*Response, error) {
		if strings.HasPrefix(req.URL, "https://two.test/") {
			return &Response{StatusCode: 200, Body: []byte(`{"data":[]}`)}, nil
		}
		return nil, errors.New("connection refused")
	}}
	chain := NewChain(Options{
		Mode:       ModeAuto,
		MaxRetries: 3,
		Proxies: []Proxy{
			PrefixProxy("one", "https://one.test/?u=", true),
			PrefixProxy("two", "https://two.test/?u=", true),
		},
		Fetcher: fetcher,
		Bare:    fetcher,
	})

	var out struct {
		Data []any `json:"data"`
	}
	if err := chain.JSON(context.Background(), &Request{Method: http.MethodGet, URL: "https://api.test/x"}, &out); err != nil {
		t.Fatalf("JSON() error = %v", err)
	}

	snap := chain.Proxies().Snapshot()
	if snap[0].Status != StatusFailed || snap[1].Status != StatusWorking {
		t.Errorf("statuses = %s/%s, want failed/working", snap[0].Status, snap[1].Status)
	}

	// The working descriptor is preferred on the next call.
	before := len(fetcher.Calls())
	if err := chain.JSON(context.Background(), &Request{Method: http.MethodGet, URL: "https://api.test/y"}, &out); err != nil {
		t.Fatalf("second JSON() error = %v", err)
	}
	calls := fetcher.Calls()[before:]
	if len(calls) != 2 || !strings.HasPrefix(calls[1], "https://two.test/") {
		t.Errorf("second call sequence = %v, want direct then proxy two", calls)
	}
}

func TestChain_ParseFailureIsNotRetried(t *testing.T) {
	t.Parallel()

	fetcher := &scriptedFetcher{answer: func(req *Request) (*Response, error) {
		return &Response{StatusCode: 200, Body: []byte(`<html>`)}, nil
	}}
	chain := NewChain(Options{Mode: ModeAuto, MaxRetries: 2, Proxies: DefaultProxies(), Fetcher: fetcher, Bare: fetcher})

	var v map[string]any
	err := chain.JSON(context.Background(), &Request{Method: http.MethodGet, URL: "https://api.test/x"}, &v)
	if !errors.Is(err, ErrParse) {
		t.Fatalf("JSON() error = %v, want ErrParse", err)
	}
	if calls := fetcher.Calls(); len(calls) != 1 {
		t.Errorf("calls = %v, want a single attempt", calls)
	}
}

func TestChain_BareRequestStripsHeaders(t *testing.T) {
	t.Parallel()

	fetcher := &scriptedFetcher{answer: failing}
	bare := &scriptedFetcher{answer: func(req *Request) (*Response, error) {
		return &Response{StatusCode: 200, Body: []byte(`{}`)}, nil
	}}
	chain := NewChain(Options{Mode: ModeDirect, Fetcher: fetcher, Bare: bare})

	req := &Request{
		Method: http.MethodPost,
		URL:    "https://api.test/search",
		Body:   []byte(`{}`),
		Header: http.Header{"Content-Type": {"application/json"}, "Cookie": {"session=1"}, "X-Trace": {"abc"}},
	}
	if _, err := chain.Do(context.Background(), req); err != nil {
		t.Fatalf("Do() error = %v", err)
	}

	bare.mu.Lock()
	defer bare.mu.Unlock()
	if len(bare.headers) != 1 {
		t.Fatalf("bare calls = %d, want 1", len(bare.headers))
	}
	h := bare.headers[0]
	if len(h) != 1 || h.Get("Content-Type") != "application/json" {
		t.Errorf("bare headers = %v, want only Content-Type", h)
	}
}

func TestChain_JSONPDescriptorServesGet(t *testing.T) {
	t.Parallel()

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		cb := r.URL.Query().Get("callback")
		if cb == "" {
			w.WriteHeader(http.StatusForbidden)
			return
		}
		io.WriteString(w, cb+`({"data":[1,2]});`)
	}))
	defer server.Close()

	direct := &DirectFetcher{Client: server.Client()}
	chain := NewChain(Options{Mode: ModeAuto, MaxRetries: 0, Proxies: []Proxy{JSONPProxy()}, Fetcher: direct, Bare: direct})

	resp, err := chain.Do(context.Background(), &Request{Method: http.MethodGet, URL: server.URL + "/songs"})
	if err != nil {
		t.Fatalf("Do() error = %v", err)
	}
	if got := string(resp.Body); got != `{"data":[1,2]}` {
		t.Errorf("body = %s", got)
	}
	if s := chain.Proxies().Snapshot()[0].Status; s != StatusWorking {
		t.Errorf("jsonp status = %s, want working", s)
	}
}

func TestChain_ClosedRelayFallsBackToDirect(t *testing.T) {
	t.Parallel()

	direct := &scriptedFetcher{answer: func(req *Request) (*Response, error) {
		return &Response{StatusCode: 200, Body: []byte(`direct`)}, nil
	}}
	relay := NewRelayFetcher(direct)
	// never started, so unavailable

	chain := NewChain(Options{Mode: ModeDirect, Fetcher: relay, Direct: direct})
	text, err := chain.Text(context.Background(), &Request{Method: http.MethodGet, URL: "https://api.test/"})
	if err != nil {
		t.Fatalf("Text() error = %v", err)
	}
	if text != "direct" {
		t.Errorf("Text() = %q, want direct", text)
	}
}

func TestChain_ProxiesNeverSeeCredentials(t *testing.T) {
	t.Parallel()

	var mu sync.Mutex
	auth := map[string]string{}
	record := func(name string, status int) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			mu.Lock()
			auth[name] = r.Header.Get("Authorization")
			mu.Unlock()
			w.WriteHeader(status)
			io.WriteString(w, `{}`)
		})
	}
	origin := httptest.NewServer(record("origin", http.StatusForbidden))
	defer origin.Close()
	public := httptest.NewServer(record("proxy", http.StatusOK))
	defer public.Close()

	chain := NewChain(Options{
		Mode:    ModeAuto,
		Proxies: []Proxy{PrefixProxy("public", public.URL+"/?u=", true)},
		Fetcher: NewDirectFetcher(time.Second, "secret-api-token"),
		Bare:    &DirectFetcher{Client: &http.Client{Timeout: time.Second}},
	})
	if _, err := chain.Do(context.Background(), &Request{Method: http.MethodGet, URL: origin.URL + "/songs"}); err != nil {
		t.Fatalf("Do() error = %v", err)
	}

	mu.Lock()
	defer mu.Unlock()
	if got := auth["origin"]; got != "Bearer secret-api-token" {
		t.Errorf("origin Authorization = %q, want the bearer token", got)
	}
	if got, ok := auth["proxy"]; !ok || got != "" {
		t.Errorf("proxy Authorization = %q (called %v), want none", got, ok)
	}
}

func TestParseMode(t *testing.T) {
	t.Parallel()

	tests := []struct {
		in      string
		want    Mode
		wantErr bool
	}{
		{"direct", ModeDirect, false},
		{"PROXY", ModeProxy, false},
		{" auto ", ModeAuto, false},
		{"", ModeAuto, false},
		{"worker", "", true},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := ParseMode(tt.in)
			if (err != nil) != tt.wantErr {
				t.Fatalf("ParseMode(%q) error = %v, wantErr %v", tt.in, err, tt.wantErr)
			}
			if got != tt.want {
				t.Errorf("ParseMode(%q) = %q, want %q", tt.in, got, tt.want)
			}
		})
	}
}
