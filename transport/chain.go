package transport

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"net/http"
	"time"
)

// Options configure a Chain.
type Options struct {
	Mode       Mode
	MaxRetries int
	Cooldown   time.Duration
	Proxies    []Proxy

	// Fetcher performs the direct attempt and may carry credentials; it may be a RelayFetcher.
	Fetcher Fetcher
	// Direct is used when Fetcher reports ErrRelayUnavailable. Defaults to Bare.
	Direct Fetcher
	// Proxy performs proxied and JSONP calls. It must not attach credentials since the
	// request leaves for a third party. Defaults to Bare, which is also its fallback.
	Proxy Fetcher
	// Bare performs the final minimal request. Defaults to a plain client.
	Bare Fetcher
}

// Chain performs requests through the direct -> proxies -> bare fallback sequence.
type Chain struct {
	mode       Mode
	maxRetries int
	proxies    *ProxySet
	fetcher    Fetcher
	direct     Fetcher
	proxy      Fetcher
	bare       Fetcher
	jsonp      *JSONP
}

func NewChain(opts Options) *Chain {
	if opts.Mode == "" {
		opts.Mode = ModeAuto
	}
	if opts.MaxRetries < 0 {
		opts.MaxRetries = 0
	}
	if opts.Bare == nil {
		opts.Bare = &DirectFetcher{Client: &http.Client{Timeout: 15 * time.Second}}
	}
	if opts.Direct == nil {
		opts.Direct = opts.Bare
	}
	if opts.Fetcher == nil {
		opts.Fetcher = opts.Direct
	}
	if opts.Proxy == nil {
		opts.Proxy = opts.Bare
	}

	c := &Chain{
		mode:       opts.Mode,
		maxRetries: opts.MaxRetries,
		proxies:    NewProxySet(opts.Proxies, opts.Cooldown),
		fetcher:    opts.Fetcher,
		direct:     opts.Direct,
		proxy:      opts.Proxy,
		bare:       opts.Bare,
	}
	c.jsonp = NewJSONP(fetcherFunc(c.fetchProxied))
	return c
}

// Proxies exposes the descriptor set, mostly for status reporting.
func (c *Chain) Proxies() *ProxySet { return c.proxies }

type fetcherFunc func(ctx context.Context, req *Request) (*Response, error)

func (f fetcherFunc) Do(ctx context.Context, req *Request) (*Response, error) { return f(ctx, req) }

// fetch uses the configured fetcher, skipping to the direct one when the relay is down.
func (c *Chain) fetch(ctx context.Context, req *Request) (*Response, error) {
	return fetchOr(ctx, c.fetcher, c.direct, req)
}

// fetchProxied is fetch for requests bound to a proxy host.
func (c *Chain) fetchProxied(ctx context.Context, req *Request) (*Response, error) {
	return fetchOr(ctx, c.proxy, c.bare, req)
}

func fetchOr(ctx context.Context, f, fallback Fetcher, req *Request) (*Response, error) {
	resp, err := f.Do(ctx, req)
	if errors.Is(err, ErrRelayUnavailable) {
		log.Println("[Transport] Relay unavailable, fetching directly")
		return fallback.Do(ctx, req)
	}
	return resp, err
}

func checkStatus(resp *Response) error {
	if resp.OK() {
		return nil
	}
	body := string(resp.Body)
	if len(body) > 200 {
		body = body[:200]
	}
	return &StatusError{StatusCode: resp.StatusCode, Body: body}
}

// Do returns the first 2xx response the chain can obtain.
func (c *Chain) Do(ctx context.Context, req *Request) (*Response, error) {
	attempts := 0
	var lastErr error

	if c.mode.allowsDirect() {
		attempts++
		resp, err := c.fetch(ctx, req)
		if err == nil {
			err = checkStatus(resp)
		}
		if err == nil {
			return resp, nil
		}
		log.Printf("[Transport] Direct %s %s failed: %v", req.Method, req.URL, err)
		lastErr = err
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
	}

	if c.mode.allowsProxy() {
		for try := 0; try <= c.maxRetries; try++ {
			i, proxy, ok := c.proxies.Next(req.Method)
			if !ok {
				log.Printf("[Transport] No usable proxy for %s", req.Method)
				break
			}
			attempts++
			resp, err := c.viaProxy(ctx, proxy, req)
			if err == nil {
				c.proxies.MarkWorking(i)
				log.Printf("[Transport] Proxy %s served %s", proxy.Name, req.URL)
				return resp, nil
			}
			log.Printf("[Transport] Proxy %s attempt %d/%d failed: %v", proxy.Name, try+1, c.maxRetries+1, err)
			c.proxies.MarkFailed(i)
			lastErr = err
			if ctx.Err() != nil {
				return nil, ctx.Err()
			}
		}
	}

	attempts++
	resp, err := c.bare.Do(ctx, bareRequest(req))
	if err == nil {
		err = checkStatus(resp)
	}
	if err == nil {
		log.Printf("[Transport] Bare request succeeded for %s", req.URL)
		return resp, nil
	}
	log.Printf("[Transport] Bare request for %s failed: %v", req.URL, err)
	if lastErr == nil {
		lastErr = err
	} else {
		lastErr = errors.Join(lastErr, err)
	}

	return nil, &TransportError{URL: req.URL, Attempts: attempts, Err: lastErr}
}

func (c *Chain) viaProxy(ctx context.Context, proxy Proxy, req *Request) (*Response, error) {
	if proxy.JSONP {
		if req.Method != http.MethodGet {
			return nil, ErrMethodNotAllowed
		}
		payload, err := c.jsonp.Call(ctx, req.URL)
		if err != nil {
			return nil, err
		}
		return &Response{
			StatusCode: http.StatusOK,
			Header:     http.Header{"Content-Type": []string{"application/json"}},
			Body:       payload,
		}, nil
	}

	proxied := *req
	proxied.URL = proxy.Rewrite(req.URL)
	resp, err := c.fetchProxied(ctx, &proxied)
	if err != nil {
		return nil, err
	}
	if err := checkStatus(resp); err != nil {
		return nil, err
	}
	return resp, nil
}

// bareRequest strips everything but the method, URL, body and its content type.
func bareRequest(req *Request) *Request {
	bare := &Request{Method: req.Method, URL: req.URL, Body: req.Body}
	if req.Body != nil {
		ct := req.Header.Get("Content-Type")
		if ct == "" {
			ct = "application/json"
		}
		bare.Header = http.Header{"Content-Type": []string{ct}}
	}
	return bare
}

// JSON performs req and decodes the body into v. Decode failures are not retried.
func (c *Chain) JSON(ctx context.Context, req *Request, v any) error {
	resp, err := c.Do(ctx, req)
	if err != nil {
		return err
	}
	if err := json.Unmarshal(resp.Body, v); err != nil {
		return fmt.Errorf("%w: %v", ErrParse, err)
	}
	return nil
}

// Text performs req and returns the body as a string.
func (c *Chain) Text(ctx context.Context, req *Request) (string, error) {
	resp, err := c.Do(ctx, req)
	if err != nil {
		return "", err
	}
	return string(resp.Body), nil
}
